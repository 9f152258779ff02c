// Package reports renders ISO 27001 documents from assessment data: clause
// documents, the Statement of Applicability and the Notion export.
package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/iso27001/tracker/internal/clauses"
	"github.com/iso27001/tracker/internal/models"
)

type ReportType string

const (
	ReportTypeClause       ReportType = "clause"
	ReportTypeSoA          ReportType = "soa"
	ReportTypeNotionExport ReportType = "notion-export"
)

type ReportFormat string

const (
	FormatMarkdown ReportFormat = "markdown"
	FormatCSV      ReportFormat = "csv"
	FormatPDF      ReportFormat = "pdf"
)

const (
	MimeMarkdown = "text/markdown; charset=utf-8"
	MimeCSV      = "text/csv"
	MimePDF      = "application/pdf"
)

var (
	ErrMissingClause     = errors.New("clause is required")
	ErrUnsupportedFormat = errors.New("unsupported report format")
)

type ReportRequest struct {
	Type   ReportType
	Format ReportFormat
	Clause string
}

type Report struct {
	Type        ReportType
	Format      ReportFormat
	Title       string
	GeneratedAt time.Time
	Data        []byte
	Filename    string
	MimeType    string
}

// ClauseData is the assessment state recorded against a single clause.
type ClauseData struct {
	Gap         *models.GapAssessment
	Maturity    *models.MaturityAssessment
	ActionItems []models.ActionItem
	Evidence    []models.Evidence
	Risks       []models.RiskRegister
}

type DataProvider interface {
	GetClauseData(ctx context.Context, clause string) (*ClauseData, error)
	GetGapAssessments(ctx context.Context) ([]models.GapAssessment, error)
	GetMaturityAssessments(ctx context.Context) ([]models.MaturityAssessment, error)
}

type Generator struct {
	provider     DataProvider
	organization string
	now          func() time.Time
}

type Option func(*Generator)

// WithOrganization replaces the "[Company Name]" placeholder in generated
// documents.
func WithOrganization(name string) Option {
	return func(g *Generator) {
		g.organization = name
	}
}

func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		g.now = now
	}
}

func NewGenerator(provider DataProvider, opts ...Option) *Generator {
	g := &Generator{
		provider: provider,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Generator) Generate(ctx context.Context, req *ReportRequest) (*Report, error) {
	switch req.Type {
	case ReportTypeClause:
		return g.generateClauseDocument(ctx, req.Clause)
	case ReportTypeSoA:
		return g.generateSoA(ctx, req.Format)
	case ReportTypeNotionExport:
		return g.generateNotionExport(ctx)
	default:
		return nil, fmt.Errorf("unsupported report type: %s", req.Type)
	}
}

func (g *Generator) generateClauseDocument(ctx context.Context, ref string) (*Report, error) {
	clause := clauses.Extract(strings.TrimSpace(ref))
	if clause == "" {
		return nil, ErrMissingClause
	}

	data, err := g.provider.GetClauseData(ctx, clause)
	if err != nil {
		return nil, fmt.Errorf("loading clause %s: %w", clause, err)
	}
	if data == nil {
		data = &ClauseData{}
	}

	now := g.now()
	doc := populate(templateFor(clause), data.Gap)
	doc = injectAfterTitle(doc, g.snapshot(clause, data, now))

	return &Report{
		Type:        ReportTypeClause,
		Format:      FormatMarkdown,
		Title:       "ISO 27001 Clause " + clause,
		GeneratedAt: now,
		Data:        []byte(g.applyOrganization(doc)),
		Filename:    fmt.Sprintf("ISO27001-Clause-%s.md", clause),
		MimeType:    MimeMarkdown,
	}, nil
}

func (g *Generator) snapshot(clause string, data *ClauseData, now time.Time) string {
	var sb strings.Builder

	sb.WriteString("## Assessment Snapshot\n\n")
	sb.WriteString("| Field | Value |\n")
	sb.WriteString("|---|---|\n")
	field := func(name, value string) {
		if value != "" {
			fmt.Fprintf(&sb, "| %s | %s |\n", name, escapePipes(value))
		}
	}
	field("Clause", clause)

	gap := data.Gap
	if gap != nil {
		field("Standard Reference", gap.StandardRef)
		field("Category", gap.Category)
		field("Section", gap.Section)
		field("Compliance", string(gap.Compliance))
		field("Target Date", formatDate(gap.TargetDate))
	}
	field("Generated", now.Format(models.DateLayout))

	if gap != nil && gap.AssessmentQuestion != "" {
		sb.WriteString("\n### Assessment Question\n\n")
		sb.WriteString("> " + escapePipes(gap.AssessmentQuestion) + "\n")
	}
	if gap != nil && gap.Notes != "" {
		sb.WriteString("\n### Notes\n\n")
		sb.WriteString(escapePipes(gap.Notes) + "\n")
	}

	if m := data.Maturity; m != nil && (m.CurrentMaturityLevel != "" || m.TargetMaturityLevel != "") {
		sb.WriteString("\n### Maturity (optional)\n\n")
		bullet := func(name, value string) {
			if value != "" {
				fmt.Fprintf(&sb, "- **%s**: %s\n", name, escapePipes(value))
			}
		}
		bullet("Current maturity", m.CurrentMaturityLevel)
		bullet("Target maturity", m.TargetMaturityLevel)
		bullet("Current comments", m.CurrentMaturityComments)
		bullet("Target comments", m.TargetMaturityComments)
	}

	if len(data.ActionItems) == 0 && len(data.Evidence) == 0 && len(data.Risks) == 0 {
		return sb.String()
	}

	sb.WriteString("\n## Linked Records\n")

	if len(data.ActionItems) > 0 {
		sb.WriteString("\n### Action Items\n\n")
		sb.WriteString("| ID | Title | Status | Priority | Assigned To | Due Date |\n")
		sb.WriteString("|---:|---|---|---|---|---|\n")
		for _, it := range data.ActionItems {
			writeRow(&sb, fmt.Sprint(it.ID), it.Title, string(it.Status), string(it.Priority), it.AssignedTo, formatDate(it.DueDate))
		}
	}

	if len(data.Evidence) > 0 {
		sb.WriteString("\n### Evidence\n\n")
		sb.WriteString("| ID | Title | File Name | Type | Uploaded By | Uploaded At |\n")
		sb.WriteString("|---:|---|---|---|---|---|\n")
		for _, ev := range data.Evidence {
			uploaded := ""
			if !ev.UploadedAt.IsZero() {
				uploaded = ev.UploadedAt.Format("2006-01-02 15:04")
			}
			writeRow(&sb, fmt.Sprint(ev.ID), ev.Title, ev.FileName, ev.FileType, ev.UploadedBy, uploaded)
		}
	}

	if len(data.Risks) > 0 {
		sb.WriteString("\n### Risks\n\n")
		sb.WriteString("| Risk ID | Title | Risk Level | Treatment Status | Owner | Target Date |\n")
		sb.WriteString("|---|---|---|---|---|---|\n")
		for _, r := range data.Risks {
			writeRow(&sb, r.RiskID, r.Title, string(r.RiskLevel), string(r.TreatmentStatus), r.Owner, formatDate(r.TargetDate))
		}
	}

	return sb.String()
}

// SoARow is one line of the control applicability matrix.
type SoARow struct {
	ControlGroup  string
	Ref           string
	Name          string
	Control       string
	Applicable    string
	Justification string
	Status        string
	Comment       string
}

var soaHeaders = []string{
	"Control Group", "Ref", "Name", "Control", "Applicable (Yes/No)",
	"Justification for any exclusion", "Implementation Status", "Comment",
}

// BuildSoARows takes the first gap assessment per standard reference and
// derives its applicability row. Rows come back in clause order.
func BuildSoARows(gaps []models.GapAssessment) []SoARow {
	first := make(map[string]models.GapAssessment)
	var refs []string
	for _, gap := range gaps {
		if gap.StandardRef == "" {
			continue
		}
		if _, ok := first[gap.StandardRef]; ok {
			continue
		}
		first[gap.StandardRef] = gap
		refs = append(refs, gap.StandardRef)
	}

	sort.SliceStable(refs, func(i, j int) bool {
		if c := clauses.Compare(clauses.Extract(refs[i]), clauses.Extract(refs[j])); c != 0 {
			return c < 0
		}
		return refs[i] < refs[j]
	})

	rows := make([]SoARow, 0, len(refs))
	for _, ref := range refs {
		gap := first[ref]

		applicable := "Yes"
		justification := "Required based on risk assessment"
		if gap.Compliance == models.ComplianceNotApplicable {
			applicable = "No"
			justification = "Not applicable to our business context"
		}
		if gap.Notes != "" {
			justification = truncate(justification+"; "+gap.Notes, 80)
		}

		rows = append(rows, SoARow{
			ControlGroup:  controlGroup(ref),
			Ref:           ref,
			Name:          "[Control Name]",
			Control:       truncate(gap.AssessmentQuestion, 50),
			Applicable:    applicable,
			Justification: justification,
			Status:        implementationStatus(gap.Compliance),
			Comment:       "[Comment]",
		})
	}
	return rows
}

func implementationStatus(c models.Compliance) string {
	switch c {
	case models.ComplianceFull:
		return "Implemented"
	case models.CompliancePartial:
		return "Partially Implemented"
	default:
		return "Planned"
	}
}

// controlGroups is checked in order; the first prefix contained in the ref
// wins.
var controlGroups = []struct {
	prefixes []string
	group    string
}{
	{[]string{"A.6"}, "Human Resource Controls"},
	{[]string{"A.7"}, "Physical Controls"},
	{[]string{"A.8"}, "Technological Controls"},
	{[]string{"A.9"}, "Access Control"},
	{[]string{"A.10", "A.11", "A.12"}, "Cryptographic & Operations Controls"},
	{[]string{"A.13"}, "Communications Security"},
	{[]string{"A.14"}, "System Acquisition & Development"},
	{[]string{"A.15"}, "Supplier Relationships"},
	{[]string{"A.16"}, "Incident Management"},
	{[]string{"A.17"}, "Business Continuity"},
	{[]string{"A.18"}, "Compliance"},
}

func controlGroup(ref string) string {
	for _, cg := range controlGroups {
		for _, p := range cg.prefixes {
			if strings.Contains(ref, p) {
				return cg.group
			}
		}
	}
	return "Organisational Controls"
}

func (g *Generator) generateSoA(ctx context.Context, format ReportFormat) (*Report, error) {
	gaps, err := g.provider.GetGapAssessments(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading gap assessments: %w", err)
	}

	now := g.now()
	rows := BuildSoARows(gaps)
	base := fmt.Sprintf("ISO27001-Statement-of-Applicability-%s", now.Format(models.DateLayout))

	report := &Report{
		Type:        ReportTypeSoA,
		Title:       "Statement of Applicability",
		GeneratedAt: now,
	}

	switch format {
	case "", FormatMarkdown:
		report.Format = FormatMarkdown
		report.Data = []byte(g.applyOrganization(soaMarkdown(rows, now)))
		report.Filename = base + ".md"
		report.MimeType = MimeMarkdown
	case FormatCSV:
		data, err := soaCSV(rows)
		if err != nil {
			return nil, err
		}
		report.Format = FormatCSV
		report.Data = data
		report.Filename = base + ".csv"
		report.MimeType = MimeCSV
	case FormatPDF:
		data, err := g.soaPDF(rows, now)
		if err != nil {
			return nil, err
		}
		report.Format = FormatPDF
		report.Data = data
		report.Filename = base + ".pdf"
		report.MimeType = MimePDF
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	return report, nil
}

func soaMarkdown(rows []SoARow, now time.Time) string {
	var sb strings.Builder
	today := now.Format(models.DateLayout)

	sb.WriteString("# STATEMENT OF APPLICABILITY (SoA)\n\n")
	sb.WriteString("**Classification:** Internal\n")
	sb.WriteString("This document should not be shared outside of [Company Name] without the written permission of the owner.\n\n")

	sb.WriteString("| Version | Approved By | Owner | Date Last Updated | Review Frequency | Next Review | Comments |\n")
	sb.WriteString("|---------|-------------|-------|-------------------|------------------|-------------|----------|\n")
	fmt.Fprintf(&sb, "| 1.0 | [Name] | [Name] | %s | Annually | [Date] | |\n\n", today)

	sb.WriteString("## Purpose\n")
	sb.WriteString("This Statement of Applicability lists the Annex A controls that apply to the ISMS and justifies each inclusion or exclusion, as Clause 6.1.3 of ISO 27001:2022 requires.\n\n")

	sb.WriteString("## Control Applicability Matrix\n\n")
	sb.WriteString("| " + strings.Join(soaHeaders, " | ") + " |\n")
	sb.WriteString("|---------------|-----|------|---------|---------------------|--------------------------------|----------------------|---------|\n")
	for _, r := range rows {
		writeRow(&sb, r.ControlGroup, r.Ref, r.Name, r.Control, r.Applicable, r.Justification, r.Status, r.Comment)
	}

	sb.WriteString("\n## Notes\n")
	sb.WriteString("- Derived from the current gap assessment results\n")
	sb.WriteString("- Controls marked 'Not Applicable' are excluded with a documented justification\n")
	sb.WriteString("- Reviewed at least annually or after significant change\n")
	sb.WriteString("- Implementation status reflects the most recent assessment\n\n")

	sb.WriteString("## Approval\n")
	sb.WriteString("- **Prepared by:** [Name]\n")
	sb.WriteString("- **Reviewed by:** [Name]\n")
	sb.WriteString("- **Approved by:** [Name]\n")
	fmt.Fprintf(&sb, "- **Date:** %s\n", today)

	return sb.String()
}

func soaCSV(rows []SoARow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(soaHeaders); err != nil {
		return nil, err
	}
	for _, r := range rows {
		record := []string{r.ControlGroup, r.Ref, r.Name, r.Control, r.Applicable, r.Justification, r.Status, r.Comment}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *Generator) soaPDF(rows []SoARow, now time.Time) ([]byte, error) {
	title := "Statement of Applicability"
	if g.organization != "" {
		title = g.organization + " - " + title
	}
	pdf := NewPDFReport(title, now)

	counts := make(map[string]int)
	notApplicable := 0
	for _, r := range rows {
		counts[r.Status]++
		if r.Applicable == "No" {
			notApplicable++
		}
	}

	pdf.AddParagraph(fmt.Sprintf("Applicability of the %d ISO/IEC 27001:2022 Annex A controls assessed, "+
		"with implementation status taken from the gap assessment as of %s.", len(rows), now.Format(time.DateOnly)))
	pdf.AddSection("Summary")
	pdf.AddSummaryTable([][2]string{
		{"Controls assessed", fmt.Sprint(len(rows))},
		{"Not applicable", fmt.Sprint(notApplicable)},
		{"Implemented", fmt.Sprint(counts["Implemented"])},
		{"Partially implemented", fmt.Sprint(counts["Partially Implemented"])},
		{"Planned", fmt.Sprint(counts["Planned"])},
	})

	table := make([][]string, 0, len(rows))
	for _, r := range rows {
		table = append(table, []string{r.ControlGroup, r.Ref, r.Name, r.Control, r.Applicable, r.Justification, r.Status, r.Comment})
	}
	pdf.AddSection("Control Applicability Matrix")
	pdf.AddTable(soaHeaders, []float64{42, 28, 22, 55, 18, 60, 30, 18}, table)
	pdf.AddFooter("ISO 27001 Statement of Applicability")

	return pdf.Output()
}

func (g *Generator) generateNotionExport(ctx context.Context) (*Report, error) {
	gaps, err := g.provider.GetGapAssessments(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading gap assessments: %w", err)
	}
	maturity, err := g.provider.GetMaturityAssessments(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading maturity assessments: %w", err)
	}

	now := g.now()
	var sb strings.Builder

	sb.WriteString("# ISO 27001 Assessment Export\n\n")
	fmt.Fprintf(&sb, "**Export Date:** %s\n\n", now.Format("2006-01-02 15:04:05"))

	sb.WriteString("## Gap Assessment Summary\n\n")
	sb.WriteString("| Clause | Assessment Question | Compliance Status | Notes |\n")
	sb.WriteString("|--------|---------------------|-------------------|-------|\n")
	for _, a := range gaps {
		writeRow(&sb, a.StandardRef, truncate(a.AssessmentQuestion, 80), string(a.Compliance), a.Notes)
	}

	sb.WriteString("\n## Maturity Assessment Summary\n\n")
	sb.WriteString("| Clause | Assessment Question | Current Level | Target Level |\n")
	sb.WriteString("|--------|---------------------|---------------|--------------|\n")
	for _, m := range maturity {
		writeRow(&sb, m.StandardRef, truncate(m.AssessmentQuestion, 80), m.CurrentMaturityLevel, m.TargetMaturityLevel)
	}

	return &Report{
		Type:        ReportTypeNotionExport,
		Format:      FormatMarkdown,
		Title:       "ISO 27001 Assessment Export",
		GeneratedAt: now,
		Data:        []byte(sb.String()),
		Filename:    fmt.Sprintf("ISO27001-Notion-Export-%s.md", now.Format(models.DateLayout)),
		MimeType:    MimeMarkdown,
	}, nil
}

func (g *Generator) applyOrganization(doc string) string {
	if g.organization == "" {
		return doc
	}
	return strings.ReplaceAll(doc, "[Company Name]", g.organization)
}

func writeRow(sb *strings.Builder, cells ...string) {
	sb.WriteString("|")
	for _, c := range cells {
		sb.WriteString(" ")
		sb.WriteString(escapePipes(c))
		sb.WriteString(" |")
	}
	sb.WriteString("\n")
}

// escapePipes keeps cell text from breaking Markdown table columns.
func escapePipes(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

func formatDate(d *models.Date) string {
	if d == nil || d.IsZero() {
		return ""
	}
	return d.String()
}

// truncate cuts s to n runes and marks the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
