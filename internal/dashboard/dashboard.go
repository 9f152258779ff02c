// Package dashboard aggregates gap assessments, maturity assessments and
// action items into the figures shown on the overview page.
package dashboard

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/iso27001/tracker/internal/clauses"
	"github.com/iso27001/tracker/internal/models"
)

// RecentLimit is how many action items the summary lists.
const RecentLimit = 5

// NotSet labels maturity records without a current level.
const NotSet = "Not Set"

// Lister is a read-only collection endpoint.
type Lister[T any] interface {
	List(ctx context.Context) ([]T, error)
}

// Sources are the three collections the dashboard reads.
type Sources struct {
	Gaps     Lister[models.GapAssessment]
	Maturity Lister[models.MaturityAssessment]
	Actions  Lister[models.ActionItem]
}

// SourceError records a collection that could not be fetched.
type SourceError struct {
	Source string
	Err    error
}

type Count struct {
	Label   string
	Count   int
	Percent float64
}

type ComplianceStats struct {
	Total int
	// Counts holds every compliance value in display order, followed by any
	// unexpected values in the order first seen.
	Counts            []Count
	CompliancePercent float64
}

// Of returns the count for a compliance value.
func (s ComplianceStats) Of(c models.Compliance) int {
	for _, n := range s.Counts {
		if n.Label == string(c) {
			return n.Count
		}
	}
	return 0
}

type LevelCount struct {
	Level string
	Label string
	Count int
}

type MaturityStats struct {
	Total int
	// Distribution is ordered by count, highest first.
	Distribution []LevelCount
	AvgCurrent   float64
	AvgTarget    float64
	Progress     float64
}

type SectionProgress struct {
	Section      string
	StandardRefs []string

	GapTotal           int
	FullyCompliant     int
	PartiallyCompliant int
	NotCompliant       int
	NotApplicable      int
	CompliancePercent  float64

	MaturityTotal    int
	AvgCurrent       float64
	AvgTarget        float64
	MaturityProgress float64
}

type ActionSummary struct {
	Total      int
	Completed  int
	InProgress int
	Overdue    int
	OverdueIDs []int64
	Recent     []models.ActionItem
}

type Summary struct {
	Compliance ComplianceStats
	Maturity   MaturityStats
	Sections   []SectionProgress
	Actions    ActionSummary
	Errors     []SourceError
}

// Empty is true when there is neither gap nor maturity data to show.
func (s *Summary) Empty() bool {
	return s.Compliance.Total == 0 && s.Maturity.Total == 0
}

// Load fetches the three collections concurrently and computes the summary.
// A collection that fails to load counts as empty and is listed in Errors;
// the others are unaffected.
func Load(ctx context.Context, src Sources, now time.Time, logger *slog.Logger) *Summary {
	if logger == nil {
		logger = slog.Default()
	}

	var (
		g        errgroup.Group
		mu       sync.Mutex
		gaps     []models.GapAssessment
		maturity []models.MaturityAssessment
		actions  []models.ActionItem
		errs     []SourceError
	)
	// Each fetch records its own failure and returns nil so one broken
	// endpoint never hides the others.
	fail := func(source string, err error) {
		logger.Warn("dashboard source failed", "source", source, "error", err)
		mu.Lock()
		errs = append(errs, SourceError{Source: source, Err: err})
		mu.Unlock()
	}

	g.Go(func() error {
		items, err := src.Gaps.List(ctx)
		if err != nil {
			fail("gap assessments", err)
			return nil
		}
		gaps = items
		return nil
	})
	g.Go(func() error {
		items, err := src.Maturity.List(ctx)
		if err != nil {
			fail("maturity assessments", err)
			return nil
		}
		maturity = items
		return nil
	})
	g.Go(func() error {
		items, err := src.Actions.List(ctx)
		if err != nil {
			fail("action items", err)
			return nil
		}
		actions = items
		return nil
	})
	_ = g.Wait()

	s := Compute(gaps, maturity, actions, now)
	sort.Slice(errs, func(i, j int) bool { return errs[i].Source < errs[j].Source })
	s.Errors = errs
	return s
}

// Compute derives every dashboard figure from the raw collections.
func Compute(gaps []models.GapAssessment, maturity []models.MaturityAssessment, actions []models.ActionItem, now time.Time) *Summary {
	return &Summary{
		Compliance: complianceStats(gaps),
		Maturity:   maturityStats(maturity),
		Sections:   sectionProgress(gaps, maturity),
		Actions:    actionSummary(actions, now),
	}
}

func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) * 100 / float64(total)
}

func complianceStats(gaps []models.GapAssessment) ComplianceStats {
	counts := make(map[string]int)
	var extra []string
	for _, g := range gaps {
		c := string(g.Compliance)
		if _, seen := counts[c]; !seen && !g.Compliance.Valid() {
			extra = append(extra, c)
		}
		counts[c]++
	}

	total := len(gaps)
	stats := ComplianceStats{Total: total}
	labels := make([]string, 0, len(models.ComplianceValues)+len(extra))
	for _, c := range models.ComplianceValues {
		labels = append(labels, string(c))
	}
	labels = append(labels, extra...)
	for _, l := range labels {
		stats.Counts = append(stats.Counts, Count{Label: l, Count: counts[l], Percent: percent(counts[l], total)})
	}
	stats.CompliancePercent = percent(counts[string(models.ComplianceFull)], total)
	return stats
}

var shortLabels = []struct {
	prefix string
	label  string
}{
	{"NA - Not Applicable", "NA - Not Applicable"},
	{"0 - No", "0 - No"},
	{"1 - Yes, but ad", "1 - Ad hoc"},
	{"2 - Yes, documented but", "2 - Documented (inconsistent)"},
	{"3 - Yes, Consistent but no met", "3 - Consistent (no metrics)"},
	{"4 - Yes, Consistent with met", "4 - Consistent (with metrics)"},
	{"5 - Yes, Optimized", "5 - Optimized"},
}

// ShortLabel shortens a maturity level label for charts. Labels are matched
// by prefix with en dashes read as hyphens; anything else is returned as is.
func ShortLabel(level string) string {
	norm := strings.ReplaceAll(level, "–", "-")
	for _, s := range shortLabels {
		if strings.HasPrefix(norm, s.prefix) {
			return s.label
		}
	}
	return level
}

func scoreOf(p *int) float64 {
	if p == nil {
		return 0
	}
	return float64(*p)
}

// averages treats a missing score as 0.
func averages(items []models.MaturityAssessment) (current, target, progress float64) {
	if len(items) == 0 {
		return 0, 0, 0
	}
	for _, m := range items {
		current += scoreOf(m.CurrentMaturityScore)
		target += scoreOf(m.TargetMaturityScore)
	}
	n := float64(len(items))
	current /= n
	target /= n
	if target > 0 {
		progress = current / target * 100
	}
	return current, target, progress
}

func maturityStats(items []models.MaturityAssessment) MaturityStats {
	stats := MaturityStats{Total: len(items)}
	stats.AvgCurrent, stats.AvgTarget, stats.Progress = averages(items)

	index := make(map[string]int)
	for _, m := range items {
		level := m.CurrentMaturityLevel
		if level == "" {
			level = NotSet
		}
		i, ok := index[level]
		if !ok {
			i = len(stats.Distribution)
			index[level] = i
			stats.Distribution = append(stats.Distribution, LevelCount{Level: level, Label: ShortLabel(level)})
		}
		stats.Distribution[i].Count++
	}
	sort.SliceStable(stats.Distribution, func(i, j int) bool {
		return stats.Distribution[i].Count > stats.Distribution[j].Count
	})
	return stats
}

type sectionAcc struct {
	refs     map[string]struct{}
	gaps     []models.GapAssessment
	maturity []models.MaturityAssessment
}

func sectionProgress(gaps []models.GapAssessment, maturity []models.MaturityAssessment) []SectionProgress {
	var order []string
	acc := make(map[string]*sectionAcc)
	get := func(section string) *sectionAcc {
		a, ok := acc[section]
		if !ok {
			a = &sectionAcc{refs: make(map[string]struct{})}
			acc[section] = a
			order = append(order, section)
		}
		return a
	}
	for _, g := range gaps {
		a := get(g.Section)
		a.gaps = append(a.gaps, g)
		a.refs[g.StandardRef] = struct{}{}
	}
	for _, m := range maturity {
		a := get(m.Section)
		a.maturity = append(a.maturity, m)
		a.refs[m.StandardRef] = struct{}{}
	}

	out := make([]SectionProgress, 0, len(order))
	for _, section := range order {
		a := acc[section]
		p := SectionProgress{
			Section:       section,
			GapTotal:      len(a.gaps),
			MaturityTotal: len(a.maturity),
		}
		for ref := range a.refs {
			p.StandardRefs = append(p.StandardRefs, ref)
		}
		sort.Strings(p.StandardRefs)
		for _, g := range a.gaps {
			switch g.Compliance {
			case models.ComplianceFull:
				p.FullyCompliant++
			case models.CompliancePartial:
				p.PartiallyCompliant++
			case models.ComplianceNone:
				p.NotCompliant++
			case models.ComplianceNotApplicable:
				p.NotApplicable++
			}
		}
		p.CompliancePercent = percent(p.FullyCompliant, p.GapTotal)
		p.AvgCurrent, p.AvgTarget, p.MaturityProgress = averages(a.maturity)
		out = append(out, p)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return sectionKey(out[i].Section) < sectionKey(out[j].Section)
	})
	return out
}

// sectionKey orders sections by their leading number, unnumbered last.
func sectionKey(section string) int {
	if n, ok := clauses.SectionNumber(section); ok {
		return n
	}
	return int(^uint(0) >> 1)
}

func actionSummary(items []models.ActionItem, now time.Time) ActionSummary {
	s := ActionSummary{Total: len(items)}
	for _, a := range items {
		switch a.Status {
		case models.ActionCompleted:
			s.Completed++
		case models.ActionInProgress:
			s.InProgress++
		}
		if a.Overdue(now) {
			s.Overdue++
			s.OverdueIDs = append(s.OverdueIDs, a.ID)
		}
	}
	s.Recent = recent(items, RecentLimit)
	return s
}

// recent orders the dated items by due date within the positions they
// already occupy, leaves undated items where they are, and keeps the first n.
func recent(items []models.ActionItem, n int) []models.ActionItem {
	out := make([]models.ActionItem, len(items))
	copy(out, items)

	var slots []int
	var dated []models.ActionItem
	for i, a := range out {
		if a.DueDate != nil {
			slots = append(slots, i)
			dated = append(dated, a)
		}
	}
	sort.SliceStable(dated, func(i, j int) bool {
		return dated[i].DueDate.Before(dated[j].DueDate.Time)
	})
	for k, i := range slots {
		out[i] = dated[k]
	}
	if len(out) > n {
		out = out[:n]
	}
	return out
}
