package render

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/iso27001/tracker/internal/models"
)

// RowState reports the selection and in-flight state of a row.
type RowState func(id int64) (selected, updating bool)

func marker(state RowState, id int64) string {
	if state == nil {
		return " "
	}
	return Marker(state(id))
}

func id(v int64) string { return strconv.FormatInt(v, 10) }

func GapAssessments(w io.Writer, items []models.GapAssessment, state RowState) error {
	rows := make([][]string, 0, len(items))
	for _, g := range items {
		rows = append(rows, []string{
			marker(state, g.ID),
			id(g.ID),
			orDash(g.Section),
			g.StandardRef,
			truncate(g.AssessmentQuestion, 60),
			Compliance(g.Compliance),
			Due(g.TargetDate, false),
		})
	}
	return Table(w, []string{"", "ID", "Section", "Ref", "Question", "Compliance", "Target"}, rows)
}

func MaturityAssessments(w io.Writer, items []models.MaturityAssessment, state RowState) error {
	rows := make([][]string, 0, len(items))
	for _, m := range items {
		rows = append(rows, []string{
			marker(state, m.ID),
			id(m.ID),
			orDash(m.Section),
			m.StandardRef,
			orDash(m.CurrentMaturityLevel),
			score(m.CurrentMaturityScore),
			orDash(m.TargetMaturityLevel),
			score(m.TargetMaturityScore),
		})
	}
	return Table(w, []string{"", "ID", "Section", "Ref", "Current", "Score", "Target", "Score"}, rows)
}

func score(p *int) string {
	if p == nil {
		return "-"
	}
	return strconv.Itoa(*p)
}

// GapLookup resolves a linked gap assessment id.
type GapLookup func(id *int64) (models.GapAssessment, bool)

func linked(lookup GapLookup, ref *int64) string {
	if lookup == nil || ref == nil {
		return "-"
	}
	if g, ok := lookup(ref); ok {
		return g.StandardRef
	}
	return "#" + id(*ref)
}

func ActionItems(w io.Writer, items []models.ActionItem, lookup GapLookup, now time.Time) error {
	rows := make([][]string, 0, len(items))
	for _, a := range items {
		rows = append(rows, []string{
			id(a.ID),
			truncate(a.Title, 50),
			Status(a.Status),
			Priority(a.Priority),
			orDash(a.AssignedTo),
			Due(a.DueDate, a.Overdue(now)),
			linked(lookup, a.GapAssessmentID),
		})
	}
	return Table(w, []string{"ID", "Title", "Status", "Priority", "Assigned To", "Due", "Gap"}, rows)
}

func Evidence(w io.Writer, items []models.Evidence, lookup GapLookup, size func(*int64) string) error {
	rows := make([][]string, 0, len(items))
	for _, e := range items {
		rows = append(rows, []string{
			id(e.ID),
			truncate(e.Title, 50),
			orDash(e.ClauseReference),
			orDash(e.FileName),
			orDash(size(e.FileSize)),
			orDash(e.UploadedBy),
			linked(lookup, e.GapAssessmentID),
		})
	}
	return Table(w, []string{"ID", "Title", "Clause", "File", "Size", "Uploaded By", "Gap"}, rows)
}

func Risks(w io.Writer, items []models.RiskRegister, now time.Time) error {
	rows := make([][]string, 0, len(items))
	for _, r := range items {
		rows = append(rows, []string{
			id(r.ID),
			r.RiskID,
			truncate(r.Title, 40),
			string(r.Likelihood),
			string(r.Impact),
			RiskLevel(r.RiskLevel),
			string(r.TreatmentStatus),
			orDash(r.Owner),
			Due(r.TargetDate, r.Overdue(now)),
		})
	}
	return Table(w, []string{"ID", "Risk ID", "Title", "Likelihood", "Impact", "Level", "Treatment", "Owner", "Target"}, rows)
}

// Record writes one record as a two-column field/value table.
func Record(w io.Writer, fields [][2]string) error {
	rows := make([][]string, 0, len(fields))
	for _, f := range fields {
		rows = append(rows, []string{f[0], orDash(f[1])})
	}
	return Table(w, []string{"Field", "Value"}, rows)
}

func Percent(p float64) string {
	return fmt.Sprintf("%.1f%%", p)
}
