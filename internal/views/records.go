package views

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/iso27001/tracker/internal/clauses"
	"github.com/iso27001/tracker/internal/models"
)

// gapLinks is the gap assessment list that record pages load alongside
// their own collection to resolve gap_assessment_id.
type gapLinks struct {
	Gaps *List[models.GapAssessment]
}

func newGapLinks(coll Collection[models.GapAssessment], logger *slog.Logger) gapLinks {
	return gapLinks{Gaps: NewList(coll, func(g models.GapAssessment) int64 { return g.ID }, logger)}
}

// LinkedGap resolves a gap assessment reference against the loaded gaps.
func (g gapLinks) LinkedGap(id *int64) (models.GapAssessment, bool) {
	if id == nil {
		return models.GapAssessment{}, false
	}
	return g.Gaps.Find(*id)
}

type ActionFilter struct {
	Status   string
	Priority string
}

func (f ActionFilter) Match(a models.ActionItem) bool {
	return matches(f.Status, string(a.Status)) && matches(f.Priority, string(a.Priority))
}

type ActionItemView struct {
	*List[models.ActionItem]
	gapLinks
	Filter ActionFilter
	now    func() time.Time
}

func NewActionItemView(coll Collection[models.ActionItem], gaps Collection[models.GapAssessment], logger *slog.Logger) *ActionItemView {
	return &ActionItemView{
		List:     NewList(coll, func(a models.ActionItem) int64 { return a.ID }, logger),
		gapLinks: newGapLinks(gaps, logger),
		now:      time.Now,
	}
}

// Refresh loads the action items and the gap assessments together.
func (v *ActionItemView) Refresh(ctx context.Context) error {
	return refreshAll(ctx, v.List.Refresh, v.Gaps.Refresh)
}

func (v *ActionItemView) Visible() []models.ActionItem {
	return FilterItems(v.Items(), v.Filter.Match)
}

// Overdue is the visible items past their due date.
func (v *ActionItemView) Overdue() []models.ActionItem {
	now := v.now()
	return FilterItems(v.Visible(), func(a models.ActionItem) bool { return a.Overdue(now) })
}

func (v *ActionItemView) SetStatus(ctx context.Context, id int64, status models.ActionStatus) error {
	if !oneOf(status, models.ActionStatusValues) {
		return fmt.Errorf("invalid status %q", status)
	}
	today := models.DateOf(v.now())
	return v.InlineUpdate(ctx, id, func(a *models.ActionItem) {
		a.Status = status
		a.CompletedDate = completedDate(status, today)
	})
}

func (v *ActionItemView) Submit(ctx context.Context, editingID int64, f ActionItemForm) (*models.ActionItem, error) {
	rec, err := f.Record(v.now())
	if err != nil {
		return nil, err
	}
	return v.Save(ctx, editingID, rec)
}

func completedDate(status models.ActionStatus, today models.Date) *models.Date {
	if status != models.ActionCompleted {
		return nil
	}
	return &today
}

type ActionItemForm struct {
	Title           string
	Description     string
	Status          string
	Priority        string
	AssignedTo      string
	DueDate         string
	GapAssessmentID string
	Category        string
	FileName        string
	FilePath        string
	FileSize        string
	FileType        string
	ClauseReference string
	AnnexReference  string
}

func NewActionItemForm() ActionItemForm {
	return ActionItemForm{
		Status:   string(models.ActionNotStarted),
		Priority: string(models.PriorityMedium),
	}
}

func ActionItemFormFrom(a models.ActionItem) ActionItemForm {
	return ActionItemForm{
		Title:           a.Title,
		Description:     a.Description,
		Status:          string(a.Status),
		Priority:        string(a.Priority),
		AssignedTo:      a.AssignedTo,
		DueDate:         dateString(a.DueDate),
		GapAssessmentID: int64String(a.GapAssessmentID),
		Category:        a.Category,
		FileName:        stringValue(a.FileName),
		FilePath:        stringValue(a.FilePath),
		FileSize:        int64String(a.FileSize),
		FileType:        stringValue(a.FileType),
		ClauseReference: stringValue(a.ClauseReference),
		AnnexReference:  stringValue(a.AnnexReference),
	}
}

// Record builds the item to send. completed_date is stamped with today's
// date when the status is Completed and cleared otherwise.
func (f ActionItemForm) Record(now time.Time) (*models.ActionItem, error) {
	if err := required("title", f.Title); err != nil {
		return nil, err
	}
	status := models.ActionStatus(f.Status)
	if status == "" {
		status = models.ActionNotStarted
	}
	if !oneOf(status, models.ActionStatusValues) {
		return nil, fmt.Errorf("invalid status %q", f.Status)
	}
	priority := models.Priority(f.Priority)
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !oneOf(priority, models.PriorityValues) {
		return nil, fmt.Errorf("invalid priority %q", f.Priority)
	}
	due, err := optionalDate("due_date", f.DueDate)
	if err != nil {
		return nil, err
	}
	gapID, err := optionalInt64("gap_assessment_id", f.GapAssessmentID)
	if err != nil {
		return nil, err
	}
	size, err := optionalInt64("file_size", f.FileSize)
	if err != nil {
		return nil, err
	}
	return &models.ActionItem{
		Title:           strings.TrimSpace(f.Title),
		Description:     f.Description,
		Status:          status,
		Priority:        priority,
		AssignedTo:      strings.TrimSpace(f.AssignedTo),
		DueDate:         due,
		CompletedDate:   completedDate(status, models.DateOf(now)),
		GapAssessmentID: gapID,
		Category:        strings.TrimSpace(f.Category),
		FileName:        optionalString(f.FileName),
		FilePath:        optionalString(f.FilePath),
		FileSize:        size,
		FileType:        optionalString(f.FileType),
		ClauseReference: optionalString(f.ClauseReference),
		AnnexReference:  optionalString(f.AnnexReference),
	}, nil
}

type EvidenceFilter struct {
	Clause string
}

func (f EvidenceFilter) Match(e models.Evidence) bool {
	return matches(f.Clause, e.ClauseReference)
}

type EvidenceView struct {
	*List[models.Evidence]
	gapLinks
	Filter EvidenceFilter
}

func NewEvidenceView(coll Collection[models.Evidence], gaps Collection[models.GapAssessment], logger *slog.Logger) *EvidenceView {
	return &EvidenceView{
		List:     NewList(coll, func(e models.Evidence) int64 { return e.ID }, logger),
		gapLinks: newGapLinks(gaps, logger),
	}
}

func (v *EvidenceView) Refresh(ctx context.Context) error {
	return refreshAll(ctx, v.List.Refresh, v.Gaps.Refresh)
}

func (v *EvidenceView) Visible() []models.Evidence {
	return FilterItems(v.Items(), v.Filter.Match)
}

// Clauses is the filter options: the distinct non-empty clause references as
// stored, in clause order.
func (v *EvidenceView) Clauses() []string {
	seen := make(map[string]struct{})
	var refs []string
	for _, e := range v.Items() {
		ref := e.ClauseReference
		if ref == "" {
			continue
		}
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		refs = append(refs, ref)
	}
	sort.SliceStable(refs, func(i, j int) bool {
		if c := clauses.Compare(clauses.Extract(refs[i]), clauses.Extract(refs[j])); c != 0 {
			return c < 0
		}
		return refs[i] < refs[j]
	})
	return refs
}

func (v *EvidenceView) Submit(ctx context.Context, editingID int64, f EvidenceForm) (*models.Evidence, error) {
	rec, err := f.Record()
	if err != nil {
		return nil, err
	}
	return v.Save(ctx, editingID, rec)
}

type EvidenceForm struct {
	Title           string
	Description     string
	FileName        string
	FilePath        string
	FileSize        string
	FileType        string
	GapAssessmentID string
	ClauseReference string
	AnnexReference  string
	UploadedBy      string
}

func EvidenceFormFrom(e models.Evidence) EvidenceForm {
	return EvidenceForm{
		Title:           e.Title,
		Description:     e.Description,
		FileName:        e.FileName,
		FilePath:        e.FilePath,
		FileSize:        int64String(e.FileSize),
		FileType:        e.FileType,
		GapAssessmentID: int64String(e.GapAssessmentID),
		ClauseReference: e.ClauseReference,
		AnnexReference:  e.AnnexReference,
		UploadedBy:      e.UploadedBy,
	}
}

func (f EvidenceForm) Record() (*models.Evidence, error) {
	if err := required("title", f.Title); err != nil {
		return nil, err
	}
	size, err := optionalInt64("file_size", f.FileSize)
	if err != nil {
		return nil, err
	}
	gapID, err := optionalInt64("gap_assessment_id", f.GapAssessmentID)
	if err != nil {
		return nil, err
	}
	return &models.Evidence{
		Title:           strings.TrimSpace(f.Title),
		Description:     f.Description,
		FileName:        strings.TrimSpace(f.FileName),
		FilePath:        strings.TrimSpace(f.FilePath),
		FileSize:        size,
		FileType:        strings.TrimSpace(f.FileType),
		GapAssessmentID: gapID,
		ClauseReference: strings.TrimSpace(f.ClauseReference),
		AnnexReference:  strings.TrimSpace(f.AnnexReference),
		UploadedBy:      strings.TrimSpace(f.UploadedBy),
	}, nil
}

type RiskFilter struct {
	Status string
	Level  string
}

func (f RiskFilter) Match(r models.RiskRegister) bool {
	return matches(f.Status, string(r.TreatmentStatus)) && matches(f.Level, string(r.RiskLevel))
}

type RiskView struct {
	*List[models.RiskRegister]
	gapLinks
	Filter RiskFilter
	now    func() time.Time
}

func NewRiskView(coll Collection[models.RiskRegister], gaps Collection[models.GapAssessment], logger *slog.Logger) *RiskView {
	return &RiskView{
		List:     NewList(coll, func(r models.RiskRegister) int64 { return r.ID }, logger),
		gapLinks: newGapLinks(gaps, logger),
		now:      time.Now,
	}
}

func (v *RiskView) Refresh(ctx context.Context) error {
	return refreshAll(ctx, v.List.Refresh, v.Gaps.Refresh)
}

func (v *RiskView) Visible() []models.RiskRegister {
	return FilterItems(v.Items(), v.Filter.Match)
}

// NewForm is a blank risk form with a generated risk identifier.
func (v *RiskView) NewForm() RiskForm {
	f := RiskForm{
		RiskID:          models.DefaultRiskID(v.now()),
		TreatmentStatus: string(models.TreatmentOpen),
	}
	f.SetLikelihood(models.RatingMedium)
	f.SetImpact(models.RatingMedium)
	return f
}

func (v *RiskView) SetTreatmentStatus(ctx context.Context, id int64, status models.TreatmentStatus) error {
	if !oneOf(status, models.TreatmentStatusValues) {
		return fmt.Errorf("invalid treatment status %q", status)
	}
	return v.InlineUpdate(ctx, id, func(r *models.RiskRegister) {
		r.TreatmentStatus = status
	})
}

func (v *RiskView) Submit(ctx context.Context, editingID int64, f RiskForm) (*models.RiskRegister, error) {
	rec, err := f.Record()
	if err != nil {
		return nil, err
	}
	return v.Save(ctx, editingID, rec)
}

// RiskForm re-derives RiskLevel whenever likelihood or impact changes. The
// level can still be set directly afterwards.
type RiskForm struct {
	RiskID          string
	Title           string
	Description     string
	Category        string
	Likelihood      models.Rating
	Impact          models.Rating
	RiskLevel       models.RiskLevel
	CurrentControls string
	TreatmentPlan   string
	TreatmentStatus string
	Owner           string
	TargetDate      string
	GapAssessmentID string
	AnnexAControls  string
}

func RiskFormFrom(r models.RiskRegister) RiskForm {
	return RiskForm{
		RiskID:          r.RiskID,
		Title:           r.Title,
		Description:     r.Description,
		Category:        r.Category,
		Likelihood:      r.Likelihood,
		Impact:          r.Impact,
		RiskLevel:       r.RiskLevel,
		CurrentControls: r.CurrentControls,
		TreatmentPlan:   r.TreatmentPlan,
		TreatmentStatus: string(r.TreatmentStatus),
		Owner:           r.Owner,
		TargetDate:      dateString(r.TargetDate),
		GapAssessmentID: int64String(r.GapAssessmentID),
		AnnexAControls:  r.AnnexAControls,
	}
}

func (f *RiskForm) SetLikelihood(r models.Rating) {
	f.Likelihood = r
	f.RiskLevel = models.CalculateRiskLevel(f.Likelihood, f.Impact)
}

func (f *RiskForm) SetImpact(r models.Rating) {
	f.Impact = r
	f.RiskLevel = models.CalculateRiskLevel(f.Likelihood, f.Impact)
}

func (f RiskForm) Record() (*models.RiskRegister, error) {
	if err := required("risk_id", f.RiskID); err != nil {
		return nil, err
	}
	if err := required("title", f.Title); err != nil {
		return nil, err
	}
	likelihood, impact := f.Likelihood, f.Impact
	if likelihood == "" {
		likelihood = models.RatingMedium
	}
	if impact == "" {
		impact = models.RatingMedium
	}
	if !oneOf(likelihood, models.RatingValues) {
		return nil, fmt.Errorf("invalid likelihood %q", likelihood)
	}
	if !oneOf(impact, models.RatingValues) {
		return nil, fmt.Errorf("invalid impact %q", impact)
	}
	// The matrix only supplies a default; a level chosen by the user wins.
	level := f.RiskLevel
	if level == "" {
		level = models.CalculateRiskLevel(likelihood, impact)
	}
	if !oneOf(level, models.RiskLevelValues) {
		return nil, fmt.Errorf("invalid risk level %q", f.RiskLevel)
	}
	status := models.TreatmentStatus(f.TreatmentStatus)
	if status == "" {
		status = models.TreatmentOpen
	}
	if !oneOf(status, models.TreatmentStatusValues) {
		return nil, fmt.Errorf("invalid treatment status %q", f.TreatmentStatus)
	}
	target, err := optionalDate("target_date", f.TargetDate)
	if err != nil {
		return nil, err
	}
	gapID, err := optionalInt64("gap_assessment_id", f.GapAssessmentID)
	if err != nil {
		return nil, err
	}
	return &models.RiskRegister{
		RiskID:          strings.TrimSpace(f.RiskID),
		Title:           strings.TrimSpace(f.Title),
		Description:     f.Description,
		Category:        strings.TrimSpace(f.Category),
		Likelihood:      likelihood,
		Impact:          impact,
		RiskLevel:       level,
		CurrentControls: f.CurrentControls,
		TreatmentPlan:   f.TreatmentPlan,
		TreatmentStatus: status,
		Owner:           strings.TrimSpace(f.Owner),
		TargetDate:      target,
		GapAssessmentID: gapID,
		AnnexAControls:  strings.TrimSpace(f.AnnexAControls),
	}, nil
}

func oneOf[T comparable](v T, allowed []T) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

// FormatFileSize renders a byte count as B, KB or MB with one decimal.
func FormatFileSize(size *int64) string {
	if size == nil {
		return ""
	}
	n := *size
	switch {
	case n < 1024:
		return fmt.Sprintf("%d B", n)
	case n < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(n)/1024)
	default:
		return fmt.Sprintf("%.1f MB", float64(n)/(1024*1024))
	}
}
