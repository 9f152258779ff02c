package views

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/iso27001/tracker/internal/models"
)

type GapFilter struct {
	Section    string
	Category   string
	Compliance string
}

func (f GapFilter) Match(g models.GapAssessment) bool {
	return matches(f.Section, g.Section) &&
		matches(f.Category, g.Category) &&
		matches(f.Compliance, string(g.Compliance))
}

// GapView is the gap assessment page.
type GapView struct {
	*List[models.GapAssessment]
	Filter GapFilter
}

func NewGapView(coll Collection[models.GapAssessment], logger *slog.Logger) *GapView {
	return &GapView{
		List: NewList(coll, func(g models.GapAssessment) int64 { return g.ID }, logger),
	}
}

// Visible is the filtered list as displayed.
func (v *GapView) Visible() []models.GapAssessment {
	return FilterItems(v.Items(), v.Filter.Match)
}

// SelectAllVisible toggles selection of every record in the filtered view.
func (v *GapView) SelectAllVisible() {
	v.SelectAll(v.Visible())
}

// SetCompliance is the inline edit of one row's compliance status.
func (v *GapView) SetCompliance(ctx context.Context, id int64, c models.Compliance) error {
	if !c.Valid() {
		return fmt.Errorf("invalid compliance %q", c)
	}
	return v.InlineUpdate(ctx, id, func(g *models.GapAssessment) {
		g.Compliance = c
	})
}

func (v *GapView) BulkSetCompliance(ctx context.Context, c models.Compliance) (int, error) {
	if !c.Valid() {
		return 0, fmt.Errorf("invalid compliance %q", c)
	}
	return v.BulkUpdate(ctx, func(g *models.GapAssessment) {
		g.Compliance = c
	})
}

// GapForm is the create/edit dialog for a gap assessment.
type GapForm struct {
	Category           string
	Section            string
	StandardRef        string
	AssessmentQuestion string
	Compliance         string
	Notes              string
	TargetDate         string
	ActionItemID       string
}

func NewGapForm() GapForm {
	return GapForm{Compliance: string(models.ComplianceNone)}
}

func GapFormFrom(g models.GapAssessment) GapForm {
	return GapForm{
		Category:           g.Category,
		Section:            g.Section,
		StandardRef:        g.StandardRef,
		AssessmentQuestion: g.AssessmentQuestion,
		Compliance:         string(g.Compliance),
		Notes:              g.Notes,
		TargetDate:         dateString(g.TargetDate),
		ActionItemID:       int64String(g.ActionItemID),
	}
}

func (f GapForm) Record() (*models.GapAssessment, error) {
	if err := required("standard_ref", f.StandardRef); err != nil {
		return nil, err
	}
	compliance := models.Compliance(f.Compliance)
	if compliance == "" {
		compliance = models.ComplianceNone
	}
	if !compliance.Valid() {
		return nil, fmt.Errorf("invalid compliance %q", f.Compliance)
	}
	target, err := optionalDate("target_date", f.TargetDate)
	if err != nil {
		return nil, err
	}
	actionItemID, err := optionalInt64("action_item_id", f.ActionItemID)
	if err != nil {
		return nil, err
	}
	return &models.GapAssessment{
		Category:           strings.TrimSpace(f.Category),
		Section:            strings.TrimSpace(f.Section),
		StandardRef:        strings.TrimSpace(f.StandardRef),
		AssessmentQuestion: f.AssessmentQuestion,
		Compliance:         compliance,
		Notes:              f.Notes,
		TargetDate:         target,
		ActionItemID:       actionItemID,
	}, nil
}

// Submit validates the form and saves it. editingID 0 creates.
func (v *GapView) Submit(ctx context.Context, editingID int64, f GapForm) (*models.GapAssessment, error) {
	rec, err := f.Record()
	if err != nil {
		return nil, err
	}
	return v.Save(ctx, editingID, rec)
}

type MaturityFilter struct {
	Section      string
	Category     string
	CurrentLevel string
}

func (f MaturityFilter) Match(m models.MaturityAssessment) bool {
	return matches(f.Section, m.Section) &&
		matches(f.Category, m.Category) &&
		matches(f.CurrentLevel, m.CurrentMaturityLevel)
}

// MaturityView is the maturity assessment page.
type MaturityView struct {
	*List[models.MaturityAssessment]
	Filter MaturityFilter
}

func NewMaturityView(coll Collection[models.MaturityAssessment], logger *slog.Logger) *MaturityView {
	return &MaturityView{
		List: NewList(coll, func(m models.MaturityAssessment) int64 { return m.ID }, logger),
	}
}

func (v *MaturityView) Visible() []models.MaturityAssessment {
	return FilterItems(v.Items(), v.Filter.Match)
}

func (v *MaturityView) SelectAllVisible() {
	v.SelectAll(v.Visible())
}

// SetLevels is the inline edit of a row's maturity levels. An empty level
// leaves that side unchanged. Scores are re-derived from the labels.
func (v *MaturityView) SetLevels(ctx context.Context, id int64, current, target string) error {
	if current == "" && target == "" {
		return fmt.Errorf("%w: current or target level", ErrRequiredField)
	}
	return v.InlineUpdate(ctx, id, levelSetter(current, target))
}

// BulkSetLevels applies the same levels to every selected record. At least
// one of current and target must be set.
func (v *MaturityView) BulkSetLevels(ctx context.Context, current, target string) (int, error) {
	if current == "" && target == "" {
		return 0, fmt.Errorf("%w: current or target level", ErrRequiredField)
	}
	return v.BulkUpdate(ctx, levelSetter(current, target))
}

func levelSetter(current, target string) func(*models.MaturityAssessment) {
	return func(m *models.MaturityAssessment) {
		if current != "" {
			m.SetCurrentLevel(current)
		}
		if target != "" {
			m.SetTargetLevel(target)
		}
	}
}

type MaturityForm struct {
	Category                string
	Section                 string
	StandardRef             string
	AssessmentQuestion      string
	CurrentMaturityLevel    string
	CurrentMaturityScore    *int
	CurrentMaturityComments string
	TargetMaturityLevel     string
	TargetMaturityScore     *int
	TargetMaturityComments  string
}

func MaturityFormFrom(m models.MaturityAssessment) MaturityForm {
	return MaturityForm{
		Category:                m.Category,
		Section:                 m.Section,
		StandardRef:             m.StandardRef,
		AssessmentQuestion:      m.AssessmentQuestion,
		CurrentMaturityLevel:    m.CurrentMaturityLevel,
		CurrentMaturityScore:    models.MaturityScore(m.CurrentMaturityLevel),
		CurrentMaturityComments: m.CurrentMaturityComments,
		TargetMaturityLevel:     m.TargetMaturityLevel,
		TargetMaturityScore:     models.MaturityScore(m.TargetMaturityLevel),
		TargetMaturityComments:  m.TargetMaturityComments,
	}
}

// SetCurrentLevel changes the level and recomputes its score.
func (f *MaturityForm) SetCurrentLevel(level string) {
	f.CurrentMaturityLevel = level
	f.CurrentMaturityScore = models.MaturityScore(level)
}

func (f *MaturityForm) SetTargetLevel(level string) {
	f.TargetMaturityLevel = level
	f.TargetMaturityScore = models.MaturityScore(level)
}

func (f MaturityForm) Record() (*models.MaturityAssessment, error) {
	if err := required("standard_ref", f.StandardRef); err != nil {
		return nil, err
	}
	m := &models.MaturityAssessment{
		Category:                strings.TrimSpace(f.Category),
		Section:                 strings.TrimSpace(f.Section),
		StandardRef:             strings.TrimSpace(f.StandardRef),
		AssessmentQuestion:      f.AssessmentQuestion,
		CurrentMaturityComments: f.CurrentMaturityComments,
		TargetMaturityComments:  f.TargetMaturityComments,
	}
	m.SetCurrentLevel(f.CurrentMaturityLevel)
	m.SetTargetLevel(f.TargetMaturityLevel)
	return m, nil
}

func (v *MaturityView) Submit(ctx context.Context, editingID int64, f MaturityForm) (*models.MaturityAssessment, error) {
	rec, err := f.Record()
	if err != nil {
		return nil, err
	}
	return v.Save(ctx, editingID, rec)
}
