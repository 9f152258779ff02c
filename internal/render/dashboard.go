package render

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/iso27001/tracker/internal/dashboard"
	"github.com/iso27001/tracker/internal/models"
)

const barWidth = 30

// Dashboard writes the overview page.
func Dashboard(w io.Writer, s *dashboard.Summary) error {
	Title(w, "ISO 27001 Assessment Dashboard")

	for _, e := range s.Errors {
		fmt.Fprintf(w, "%s %s could not be loaded: %v\n", yellow("!"), e.Source, e.Err)
	}
	if len(s.Errors) > 0 {
		fmt.Fprintln(w)
	}

	if s.Empty() {
		fmt.Fprintln(w, bold("No Data Available"))
		fmt.Fprintln(w, "Please ensure the API server is running and data has been imported.")
		return nil
	}

	fmt.Fprintf(w, "Overall compliance  %s %s\n", Bar(s.Compliance.CompliancePercent, barWidth), Percent(s.Compliance.CompliancePercent))
	fmt.Fprintf(w, "Maturity progress   %s %s\n", Bar(s.Maturity.Progress, barWidth), Percent(s.Maturity.Progress))
	fmt.Fprintf(w, "Average maturity    %.2f current / %.2f target\n\n", s.Maturity.AvgCurrent, s.Maturity.AvgTarget)

	rows := make([][]string, 0, len(s.Compliance.Counts))
	for _, c := range s.Compliance.Counts {
		rows = append(rows, []string{
			Compliance(models.Compliance(c.Label)),
			strconv.Itoa(c.Count),
			Bar(c.Percent, 20) + " " + Percent(c.Percent),
		})
	}
	if err := Table(w, []string{"Compliance", "Count", "Share"}, rows); err != nil {
		return err
	}

	if len(s.Maturity.Distribution) > 0 {
		fmt.Fprintln(w)
		rows = rows[:0]
		for _, d := range s.Maturity.Distribution {
			rows = append(rows, []string{d.Label, strconv.Itoa(d.Count)})
		}
		if err := Table(w, []string{"Current Maturity", "Count"}, rows); err != nil {
			return err
		}
	}

	if len(s.Sections) > 0 {
		fmt.Fprintln(w)
		rows = rows[:0]
		for _, p := range s.Sections {
			rows = append(rows, []string{
				orDash(p.Section),
				strings.Join(p.StandardRefs, ", "),
				fmt.Sprintf("%d/%d", p.FullyCompliant, p.GapTotal),
				Percent(p.CompliancePercent),
				fmt.Sprintf("%.2f / %.2f", p.AvgCurrent, p.AvgTarget),
				Percent(p.MaturityProgress),
			})
		}
		if err := Table(w, []string{"Section", "Refs", "Compliant", "Compliance", "Maturity", "Progress"}, rows); err != nil {
			return err
		}
	}

	a := s.Actions
	fmt.Fprintf(w, "\nAction items: %d total, %s, %s, %s\n",
		a.Total,
		green(fmt.Sprintf("%d completed", a.Completed)),
		yellow(fmt.Sprintf("%d in progress", a.InProgress)),
		overdueCount(a.Overdue),
	)
	if len(a.Recent) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	rows = rows[:0]
	for _, it := range a.Recent {
		rows = append(rows, []string{
			truncate(it.Title, 50),
			Status(it.Status),
			Priority(it.Priority),
			Due(it.DueDate, isOverdue(a, it)),
			orDash(it.AssignedTo),
		})
	}
	return Table(w, []string{"Title", "Status", "Priority", "Due Date", "Assigned To"}, rows)
}

func overdueCount(n int) string {
	s := fmt.Sprintf("%d overdue", n)
	if n > 0 {
		return alert(s)
	}
	return s
}

func isOverdue(a dashboard.ActionSummary, it models.ActionItem) bool {
	for _, id := range a.OverdueIDs {
		if id == it.ID {
			return true
		}
	}
	return false
}
