package render

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iso27001/tracker/internal/dashboard"
	"github.com/iso27001/tracker/internal/models"
)

func init() {
	DisableColor()
}

func TestBar(t *testing.T) {
	tests := []struct {
		percent float64
		width   int
		want    string
	}{
		{0, 4, "░░░░"},
		{50, 4, "██░░"},
		{100, 4, "████"},
		{250, 4, "████"},
		{-10, 2, "░░"},
		{50, 0, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Bar(tt.percent, tt.width), "Bar(%v, %d)", tt.percent, tt.width)
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abc...", truncate("abcdef", 3))
	assert.Equal(t, "two lines", truncate("two\nlines", 20))
}

func TestActionItems_MarksOverdue(t *testing.T) {
	due := models.NewDate(2026, 1, 10)
	gapID := int64(7)
	items := []models.ActionItem{
		{ID: 1, Title: "Draft ISMS scope", Status: models.ActionInProgress, Priority: models.PriorityHigh, DueDate: &due, GapAssessmentID: &gapID},
		{ID: 2, Title: "Close finding", Status: models.ActionCompleted, Priority: models.PriorityLow, DueDate: &due},
	}
	lookup := func(id *int64) (models.GapAssessment, bool) {
		return models.GapAssessment{ID: *id, StandardRef: "Clause-4.3"}, true
	}

	var buf bytes.Buffer
	require.NoError(t, ActionItems(&buf, items, lookup, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)))

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "(overdue)"))
	assert.Contains(t, out, "Draft ISMS scope")
	assert.Contains(t, out, "Clause-4.3")
}

func TestGapAssessments_RowMarkers(t *testing.T) {
	items := []models.GapAssessment{
		{ID: 1, StandardRef: "Clause-4.1", Compliance: models.ComplianceFull},
		{ID: 2, StandardRef: "Clause-4.2", Compliance: models.ComplianceNone},
	}
	state := func(id int64) (bool, bool) { return id == 1, id == 2 }

	var buf bytes.Buffer
	require.NoError(t, GapAssessments(&buf, items, state))
	assert.Contains(t, buf.String(), "*")
	assert.Contains(t, buf.String(), "~")
	assert.Contains(t, buf.String(), "Not Compliant")
}

func TestDashboard(t *testing.T) {
	t.Run("empty state", func(t *testing.T) {
		s := dashboard.Compute(nil, nil, nil, time.Now())
		s.Errors = []dashboard.SourceError{{Source: "maturity assessments", Err: errors.New("timeout")}}

		var buf bytes.Buffer
		require.NoError(t, Dashboard(&buf, s))
		assert.Contains(t, buf.String(), "maturity assessments could not be loaded: timeout")
		assert.Contains(t, buf.String(), "No Data Available")
	})

	t.Run("with data", func(t *testing.T) {
		gaps := []models.GapAssessment{
			{Section: "4. Context", StandardRef: "Clause-4.1", Compliance: models.ComplianceFull},
			{Section: "4. Context", StandardRef: "Clause-4.2", Compliance: models.ComplianceNone},
		}
		actions := []models.ActionItem{{ID: 1, Title: "Scope statement", Status: models.ActionNotStarted}}
		s := dashboard.Compute(gaps, nil, actions, time.Now())

		var buf bytes.Buffer
		require.NoError(t, Dashboard(&buf, s))
		out := buf.String()
		assert.Contains(t, out, "50.0%")
		assert.Contains(t, out, "Clause-4.1")
		assert.Contains(t, out, "Scope statement")
		assert.NotContains(t, out, "No Data Available")
	})
}

func TestPanic(t *testing.T) {
	var buf bytes.Buffer
	Panic(&buf, "runtime error: index out of range", []byte("goroutine 1 [running]"))
	assert.Contains(t, buf.String(), "index out of range")
	assert.Contains(t, buf.String(), "goroutine 1")
	assert.Contains(t, buf.String(), "Re-run")
}
