// Package render draws tracker data on a terminal: tables through
// tablewriter, status colouring through fatih/color.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/iso27001/tracker/internal/models"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	faint  = color.New(color.Faint).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
	alert  = color.New(color.FgRed, color.Bold).SprintFunc()
)

// DisableColor turns colouring off for every writer, e.g. for --no-color or
// when output is not a terminal.
func DisableColor() {
	color.NoColor = true
}

// Table writes rows under headers.
func Table(w io.Writer, headers []string, rows [][]string) error {
	t := tablewriter.NewWriter(w)
	t.Header(toAny(headers)...)
	for _, r := range rows {
		if err := t.Append(toAny(r)...); err != nil {
			return fmt.Errorf("appending row: %w", err)
		}
	}
	return t.Render()
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// Title writes a bold heading followed by a blank line.
func Title(w io.Writer, title string) {
	fmt.Fprintf(w, "%s\n\n", bold(title))
}

// Bar draws a percentage as a fixed-width bar.
func Bar(percent float64, width int) string {
	if width <= 0 {
		return ""
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := int(percent/100*float64(width) + 0.5)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func Compliance(c models.Compliance) string {
	switch c {
	case models.ComplianceFull:
		return green(string(c))
	case models.CompliancePartial:
		return yellow(string(c))
	case models.ComplianceNone:
		return red(string(c))
	default:
		return faint(string(c))
	}
}

func Status(s models.ActionStatus) string {
	switch s {
	case models.ActionCompleted:
		return green(string(s))
	case models.ActionInProgress:
		return yellow(string(s))
	case models.ActionOnHold:
		return faint(string(s))
	default:
		return string(s)
	}
}

func Priority(p models.Priority) string {
	switch p {
	case models.PriorityCritical:
		return alert(string(p))
	case models.PriorityHigh:
		return red(string(p))
	case models.PriorityMedium:
		return yellow(string(p))
	default:
		return string(p)
	}
}

func RiskLevel(l models.RiskLevel) string {
	switch l {
	case models.RiskCritical:
		return alert(string(l))
	case models.RiskVeryHigh, models.RiskHigh:
		return red(string(l))
	case models.RiskMedium:
		return yellow(string(l))
	default:
		return green(string(l))
	}
}

// Due renders a due date, highlighted when overdue.
func Due(d *models.Date, overdue bool) string {
	if d == nil {
		return "-"
	}
	if overdue {
		return alert(d.String() + " (overdue)")
	}
	return d.String()
}

// Marker is the leading cell of a selectable row: "*" when selected, "~"
// while an update is in flight.
func Marker(selected, updating bool) string {
	switch {
	case updating:
		return yellow("~")
	case selected:
		return bold("*")
	default:
		return " "
	}
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// Panic writes the error panel shown when a command crashes.
func Panic(w io.Writer, msg string, stack []byte) {
	fmt.Fprintln(w, alert("Something went wrong"))
	fmt.Fprintln(w, msg)
	if len(stack) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, faint(string(stack)))
	}
	fmt.Fprintln(w, "Re-run the command; if it keeps failing, run it again with --verbose and report the output.")
}
