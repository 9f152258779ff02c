package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/iso27001/tracker/internal/models"
)

var now = time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)

type staticList[T any] struct {
	items []T
	err   error
}

func (s staticList[T]) List(ctx context.Context) ([]T, error) {
	return s.items, s.err
}

func maturity(section, ref, current, target string) models.MaturityAssessment {
	m := models.MaturityAssessment{Section: section, StandardRef: ref}
	m.SetCurrentLevel(current)
	m.SetTargetLevel(target)
	return m
}

func date(y int, m time.Month, d int) *models.Date {
	v := models.NewDate(y, m, d)
	return &v
}

func sampleGaps() []models.GapAssessment {
	return []models.GapAssessment{
		{ID: 1, Section: "10. Improvement", StandardRef: "Clause-10.1", Compliance: models.ComplianceFull},
		{ID: 2, Section: "4. Context", StandardRef: "Clause-4.2", Compliance: models.CompliancePartial},
		{ID: 3, Section: "4. Context", StandardRef: "Clause-4.1", Compliance: models.ComplianceFull},
		{ID: 4, Section: "Annex A", StandardRef: "A.5.1", Compliance: models.ComplianceNone},
	}
}

func TestCompute_Empty(t *testing.T) {
	s := Compute(nil, nil, nil, now)

	if !s.Empty() {
		t.Error("expected empty summary")
	}
	if s.Compliance.CompliancePercent != 0 {
		t.Errorf("CompliancePercent = %v, want 0", s.Compliance.CompliancePercent)
	}
	for _, c := range s.Compliance.Counts {
		if c.Count != 0 || c.Percent != 0 {
			t.Errorf("count %s = %d (%v%%), want 0", c.Label, c.Count, c.Percent)
		}
	}
	if s.Maturity.AvgCurrent != 0 || s.Maturity.AvgTarget != 0 || s.Maturity.Progress != 0 {
		t.Errorf("maturity = %+v, want zeros", s.Maturity)
	}
	if len(s.Sections) != 0 || s.Actions.Total != 0 || len(s.Actions.Recent) != 0 {
		t.Errorf("expected no sections or actions, got %+v", s)
	}
}

func TestCompute_Compliance(t *testing.T) {
	gaps := append(sampleGaps(), models.GapAssessment{ID: 5, Section: "5. Leadership", Compliance: "Unknown"})
	s := Compute(gaps, nil, nil, now)

	if s.Compliance.Total != 5 {
		t.Fatalf("Total = %d, want 5", s.Compliance.Total)
	}
	if got := s.Compliance.CompliancePercent; got != 40 {
		t.Errorf("CompliancePercent = %v, want 40", got)
	}
	if got := s.Compliance.Of(models.ComplianceFull); got != 2 {
		t.Errorf("Fully Compliant = %d, want 2", got)
	}
	if got := s.Compliance.Of(models.ComplianceNotApplicable); got != 0 {
		t.Errorf("Not Applicable = %d, want 0", got)
	}
	last := s.Compliance.Counts[len(s.Compliance.Counts)-1]
	if last.Label != "Unknown" || last.Count != 1 || last.Percent != 20 {
		t.Errorf("unexpected value entry = %+v", last)
	}
}

func TestCompute_Maturity(t *testing.T) {
	items := []models.MaturityAssessment{
		maturity("6. Planning", "Clause-6.1", models.MaturityLevel1, models.MaturityLevel4),
		maturity("6. Planning", "Clause-6.2", models.MaturityLevel3, models.MaturityLevel4),
		maturity("7. Support", "Clause-7.2", models.MaturityLevel1, models.MaturityNotApplicable),
		maturity("7. Support", "Clause-7.3", "", ""),
	}
	s := Compute(nil, items, nil, now)

	if s.Maturity.Total != 4 {
		t.Fatalf("Total = %d, want 4", s.Maturity.Total)
	}
	// (1+3+1+0)/4 and (4+4+0+0)/4
	if s.Maturity.AvgCurrent != 1.25 || s.Maturity.AvgTarget != 2 {
		t.Errorf("averages = %v / %v, want 1.25 / 2", s.Maturity.AvgCurrent, s.Maturity.AvgTarget)
	}
	if s.Maturity.Progress != 62.5 {
		t.Errorf("Progress = %v, want 62.5", s.Maturity.Progress)
	}

	first := s.Maturity.Distribution[0]
	if first.Level != models.MaturityLevel1 || first.Count != 2 || first.Label != "1 - Ad hoc" {
		t.Errorf("top level = %+v", first)
	}
	var notSet bool
	for _, d := range s.Maturity.Distribution {
		if d.Level == NotSet && d.Count == 1 {
			notSet = true
		}
	}
	if !notSet {
		t.Errorf("missing %q bucket in %+v", NotSet, s.Maturity.Distribution)
	}
}

func TestCompute_ProgressWithoutTargets(t *testing.T) {
	items := []models.MaturityAssessment{
		maturity("8. Operation", "Clause-8.1", models.MaturityLevel2, ""),
	}
	s := Compute(nil, items, nil, now)
	if s.Maturity.Progress != 0 {
		t.Errorf("Progress = %v, want 0 when no target is set", s.Maturity.Progress)
	}
	if s.Sections[0].MaturityProgress != 0 {
		t.Errorf("section progress = %v, want 0", s.Sections[0].MaturityProgress)
	}
}

func TestShortLabel(t *testing.T) {
	tests := []struct {
		level string
		want  string
	}{
		{models.MaturityLevel1, "1 - Ad hoc"},
		{models.MaturityLevel2, "2 - Documented (inconsistent)"},
		{models.MaturityLevel3, "3 - Consistent (no metrics)"},
		{models.MaturityLevel4, "4 - Consistent (with metrics)"},
		{models.MaturityLevel5, "5 - Optimized"},
		{"3 - Yes, Consistent but no metrics", "3 - Consistent (no metrics)"},
		{models.MaturityLevel0, "0 - No"},
		{models.MaturityNotApplicable, "NA - Not Applicable"},
		{NotSet, NotSet},
		{"Level 9", "Level 9"},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			if got := ShortLabel(tt.level); got != tt.want {
				t.Errorf("ShortLabel(%q) = %q, want %q", tt.level, got, tt.want)
			}
		})
	}
}

func TestCompute_Sections(t *testing.T) {
	items := []models.MaturityAssessment{
		maturity("4. Context", "Clause-4.3", models.MaturityLevel2, models.MaturityLevel4),
		maturity("6. Planning", "Clause-6.1", models.MaturityLevel1, models.MaturityLevel3),
	}
	s := Compute(sampleGaps(), items, nil, now)

	var order []string
	for _, p := range s.Sections {
		order = append(order, p.Section)
	}
	want := []string{"4. Context", "6. Planning", "10. Improvement", "Annex A"}
	if len(order) != len(want) {
		t.Fatalf("sections = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("sections = %v, want %v", order, want)
		}
	}

	ctx := s.Sections[0]
	if ctx.GapTotal != 2 || ctx.FullyCompliant != 1 || ctx.PartiallyCompliant != 1 {
		t.Errorf("context gap stats = %+v", ctx)
	}
	if ctx.CompliancePercent != 50 {
		t.Errorf("context compliance = %v, want 50", ctx.CompliancePercent)
	}
	if ctx.MaturityTotal != 1 || ctx.MaturityProgress != 50 {
		t.Errorf("context maturity = %d / %v", ctx.MaturityTotal, ctx.MaturityProgress)
	}
	refs := ctx.StandardRefs
	if len(refs) != 3 || refs[0] != "Clause-4.1" || refs[2] != "Clause-4.3" {
		t.Errorf("context refs = %v", refs)
	}

	planning := s.Sections[1]
	if planning.GapTotal != 0 || planning.CompliancePercent != 0 {
		t.Errorf("planning gap stats = %+v", planning)
	}
}

func TestCompute_Actions(t *testing.T) {
	items := []models.ActionItem{
		{ID: 1, Title: "undated", Status: models.ActionNotStarted},
		{ID: 2, Title: "late", Status: models.ActionInProgress, DueDate: date(2026, 5, 1)},
		{ID: 3, Title: "done late", Status: models.ActionCompleted, DueDate: date(2026, 4, 1)},
		{ID: 4, Title: "future", Status: models.ActionNotStarted, DueDate: date(2026, 6, 1)},
		{ID: 5, Title: "also late", Status: models.ActionOnHold, DueDate: date(2026, 3, 1)},
		{ID: 6, Title: "due today", Status: models.ActionNotStarted, DueDate: date(2026, 5, 20)},
		{ID: 7, Title: "later", Status: models.ActionNotStarted, DueDate: date(2026, 12, 1)},
	}
	s := Compute(nil, nil, items, now)

	a := s.Actions
	if a.Total != 7 || a.Completed != 1 || a.InProgress != 1 {
		t.Errorf("counts = %+v", a)
	}
	// late, also late and due today (midnight is before noon)
	if a.Overdue != 3 {
		t.Errorf("Overdue = %d, want 3", a.Overdue)
	}

	var ids []int64
	for _, r := range a.Recent {
		ids = append(ids, r.ID)
	}
	want := []int64{1, 5, 3, 2, 6}
	if len(ids) != len(want) {
		t.Fatalf("recent = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("recent = %v, want %v", ids, want)
		}
	}
	if items[1].ID != 2 {
		t.Error("input slice was reordered")
	}
}

func TestCompute_InlineEditShiftsCounts(t *testing.T) {
	gaps := sampleGaps()
	before := Compute(gaps, nil, nil, now)

	gaps[3].Compliance = models.ComplianceFull
	after := Compute(gaps, nil, nil, now)

	if after.Compliance.Of(models.ComplianceFull) != before.Compliance.Of(models.ComplianceFull)+1 {
		t.Errorf("Fully Compliant did not move: %d -> %d",
			before.Compliance.Of(models.ComplianceFull), after.Compliance.Of(models.ComplianceFull))
	}
	if after.Compliance.Of(models.ComplianceNone) != 0 {
		t.Errorf("Not Compliant = %d, want 0", after.Compliance.Of(models.ComplianceNone))
	}
	if after.Compliance.CompliancePercent != 75 {
		t.Errorf("CompliancePercent = %v, want 75", after.Compliance.CompliancePercent)
	}
}

func TestLoad_FailedSourceIsIsolated(t *testing.T) {
	src := Sources{
		Gaps:     staticList[models.GapAssessment]{items: sampleGaps()},
		Maturity: staticList[models.MaturityAssessment]{err: errors.New("502 bad gateway")},
		Actions: staticList[models.ActionItem]{items: []models.ActionItem{
			{ID: 1, Status: models.ActionCompleted},
		}},
	}
	s := Load(context.Background(), src, now, nil)

	if len(s.Errors) != 1 || s.Errors[0].Source != "maturity assessments" {
		t.Fatalf("Errors = %+v", s.Errors)
	}
	if s.Compliance.Total != 4 {
		t.Errorf("gap total = %d, want 4", s.Compliance.Total)
	}
	if s.Maturity.Total != 0 || s.Maturity.Progress != 0 {
		t.Errorf("maturity = %+v, want empty", s.Maturity)
	}
	if s.Actions.Completed != 1 {
		t.Errorf("completed = %d, want 1", s.Actions.Completed)
	}
	if s.Empty() {
		t.Error("summary with gap data should not be empty")
	}
}
