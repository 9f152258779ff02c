package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iso27001/tracker/internal/models"
	"github.com/iso27001/tracker/internal/render"
	"github.com/iso27001/tracker/internal/views"
)

func gapFields(f *views.GapForm) []field {
	return []field{
		{"category", "category", &f.Category},
		{"section", "section label, e.g. \"4. Context\"", &f.Section},
		{"standard-ref", "standard reference, e.g. Clause-4.1 (required)", &f.StandardRef},
		{"question", "assessment question", &f.AssessmentQuestion},
		{"compliance", "compliance status", &f.Compliance},
		{"notes", "notes", &f.Notes},
		{"target-date", "target date (YYYY-MM-DD)", &f.TargetDate},
		{"action-item", "linked action item id", &f.ActionItemID},
	}
}

func bindGapFilter(cmd *cobra.Command, f *views.GapFilter) {
	cmd.Flags().StringVar(&f.Section, "section", views.All, "filter by section")
	cmd.Flags().StringVar(&f.Category, "category", views.All, "filter by category")
	cmd.Flags().StringVar(&f.Compliance, "compliance", views.All, "filter by compliance status")
}

func newGapCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "gaps",
		Aliases: []string{"gap"},
		Short:   "Gap assessments",
	}

	newView := func() *views.GapView {
		return views.NewGapView(app.client.GapAssessments(), app.logger)
	}

	var filter views.GapFilter
	list := &cobra.Command{
		Use:   "list",
		Short: "List gap assessments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := newView()
			if err := refreshed(cmd.Context(), v.Refresh); err != nil {
				return err
			}
			v.Filter = filter
			return render.GapAssessments(cmd.OutOrStdout(), v.Visible(), nil)
		},
	}
	bindGapFilter(list, &filter)

	show := &cobra.Command{
		Use:   "show ID",
		Short: "Show one gap assessment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			g, err := app.client.GapAssessments().Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			return render.Record(cmd.OutOrStdout(), [][2]string{
				{"ID", fmt.Sprint(g.ID)},
				{"Category", g.Category},
				{"Section", g.Section},
				{"Standard Ref", g.StandardRef},
				{"Question", g.AssessmentQuestion},
				{"Compliance", render.Compliance(g.Compliance)},
				{"Notes", g.Notes},
				{"Target Date", dateOrEmpty(g.TargetDate)},
			})
		},
	}

	addForm := views.NewGapForm()
	add := &cobra.Command{
		Use:   "add",
		Short: "Create a gap assessment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := newView().Submit(cmd.Context(), 0, addForm)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created gap assessment %d (%s)\n", g.ID, g.StandardRef)
			return nil
		},
	}
	bindFields(add, gapFields(&addForm))

	var editIn views.GapForm
	edit := &cobra.Command{
		Use:   "edit ID",
		Short: "Update fields of a gap assessment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			v := newView()
			if err := refreshed(cmd.Context(), v.Refresh); err != nil {
				return err
			}
			rec, err := find(v.List, id)
			if err != nil {
				return err
			}
			f := views.GapFormFrom(rec)
			applyChanged(cmd, gapFields(&editIn), gapFields(&f))
			if _, err := v.Submit(cmd.Context(), id, f); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated gap assessment %d\n", id)
			return nil
		},
	}
	bindFields(edit, gapFields(&editIn))

	var yes bool
	del := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a gap assessment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			v := newView()
			if err := v.Delete(cmd.Context(), id, confirm(cmd, yes, fmt.Sprintf("gap assessment %d", id))); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted gap assessment %d\n", id)
			return nil
		},
	}
	del.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")

	setCompliance := &cobra.Command{
		Use:   "set-compliance ID STATUS",
		Short: "Change the compliance status of one gap assessment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			v := newView()
			if err := refreshed(cmd.Context(), v.Refresh); err != nil {
				return err
			}
			if err := v.SetCompliance(cmd.Context(), id, models.Compliance(args[1])); err != nil {
				return err
			}
			g, _ := v.Find(id)
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", g.StandardRef, render.Compliance(g.Compliance))
			return nil
		},
	}

	var (
		bulkSel    selection
		bulkFilter views.GapFilter
	)
	bulk := &cobra.Command{
		Use:   "bulk-compliance STATUS",
		Short: "Set the compliance status of several gap assessments at once",
		Long:  "Set the compliance status of the records given by --ids, or of every record matching the filter flags with --all (minus --except).",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v := newView()
			if err := refreshed(cmd.Context(), v.Refresh); err != nil {
				return err
			}
			v.Filter = bulkFilter
			if err := selectTargets(v.List, bulkSel, v.Visible); err != nil {
				return err
			}
			n, err := v.BulkSetCompliance(cmd.Context(), models.Compliance(args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %d gap assessments to %s\n", n, args[0])
			return nil
		},
	}
	bulkSel.bind(bulk)
	bindGapFilter(bulk, &bulkFilter)

	cmd.AddCommand(list, show, add, edit, del, setCompliance, bulk)
	return cmd
}

func maturityFields(f *views.MaturityForm) []field {
	return []field{
		{"category", "category", &f.Category},
		{"section", "section label", &f.Section},
		{"standard-ref", "standard reference (required)", &f.StandardRef},
		{"question", "assessment question", &f.AssessmentQuestion},
		{"current", "current maturity level", &f.CurrentMaturityLevel},
		{"current-comments", "comments on the current level", &f.CurrentMaturityComments},
		{"target", "target maturity level", &f.TargetMaturityLevel},
		{"target-comments", "comments on the target level", &f.TargetMaturityComments},
	}
}

func bindMaturityFilter(cmd *cobra.Command, f *views.MaturityFilter) {
	cmd.Flags().StringVar(&f.Section, "section", views.All, "filter by section")
	cmd.Flags().StringVar(&f.Category, "category", views.All, "filter by category")
	cmd.Flags().StringVar(&f.CurrentLevel, "level", views.All, "filter by current maturity level")
}

// maturityLevel accepts a full level label or its leading token ("3", "NA").
func maturityLevel(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	for _, l := range models.MaturityLevels {
		if l == s || strings.EqualFold(strings.Fields(l)[0], s) {
			return l, nil
		}
	}
	return "", fmt.Errorf("unknown maturity level %q", s)
}

func newMaturityCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "maturity",
		Short: "Maturity assessments",
	}

	newView := func() *views.MaturityView {
		return views.NewMaturityView(app.client.MaturityAssessments(), app.logger)
	}

	var filter views.MaturityFilter
	list := &cobra.Command{
		Use:   "list",
		Short: "List maturity assessments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := newView()
			if err := refreshed(cmd.Context(), v.Refresh); err != nil {
				return err
			}
			v.Filter = filter
			return render.MaturityAssessments(cmd.OutOrStdout(), v.Visible(), nil)
		},
	}
	bindMaturityFilter(list, &filter)

	levels := &cobra.Command{
		Use:   "levels",
		Short: "List the maturity levels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := make([][]string, 0, len(models.MaturityLevels))
			for _, l := range models.MaturityLevels {
				score := "-"
				if s := models.MaturityScore(l); s != nil {
					score = fmt.Sprint(*s)
				}
				rows = append(rows, []string{strings.Fields(l)[0], l, score})
			}
			return render.Table(cmd.OutOrStdout(), []string{"Key", "Level", "Score"}, rows)
		},
	}

	var addForm views.MaturityForm
	add := &cobra.Command{
		Use:   "add",
		Short: "Create a maturity assessment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := addForm
			if err := resolveLevels(&f); err != nil {
				return err
			}
			m, err := newView().Submit(cmd.Context(), 0, f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created maturity assessment %d (%s)\n", m.ID, m.StandardRef)
			return nil
		},
	}
	bindFields(add, maturityFields(&addForm))

	var editIn views.MaturityForm
	edit := &cobra.Command{
		Use:   "edit ID",
		Short: "Update fields of a maturity assessment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			v := newView()
			if err := refreshed(cmd.Context(), v.Refresh); err != nil {
				return err
			}
			rec, err := find(v.List, id)
			if err != nil {
				return err
			}
			f := views.MaturityFormFrom(rec)
			applyChanged(cmd, maturityFields(&editIn), maturityFields(&f))
			if err := resolveLevels(&f); err != nil {
				return err
			}
			if _, err := v.Submit(cmd.Context(), id, f); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated maturity assessment %d\n", id)
			return nil
		},
	}
	bindFields(edit, maturityFields(&editIn))

	var yes bool
	del := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a maturity assessment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := newView().Delete(cmd.Context(), id, confirm(cmd, yes, fmt.Sprintf("maturity assessment %d", id))); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted maturity assessment %d\n", id)
			return nil
		},
	}
	del.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")

	var setCurrent, setTarget string
	setLevels := &cobra.Command{
		Use:   "set-levels ID",
		Short: "Change the current and/or target level of one maturity assessment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			current, target, err := levelPair(setCurrent, setTarget)
			if err != nil {
				return err
			}
			v := newView()
			if err := refreshed(cmd.Context(), v.Refresh); err != nil {
				return err
			}
			if err := v.SetLevels(cmd.Context(), id, current, target); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated maturity assessment %d\n", id)
			return nil
		},
	}
	setLevels.Flags().StringVar(&setCurrent, "current", "", "current level (label or key such as 3)")
	setLevels.Flags().StringVar(&setTarget, "target", "", "target level (label or key such as 4)")

	var (
		bulkSel              selection
		bulkFilter           views.MaturityFilter
		bulkCurrent, bulkTgt string
	)
	bulk := &cobra.Command{
		Use:   "bulk-levels",
		Short: "Set maturity levels on several assessments at once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			current, target, err := levelPair(bulkCurrent, bulkTgt)
			if err != nil {
				return err
			}
			v := newView()
			if err := refreshed(cmd.Context(), v.Refresh); err != nil {
				return err
			}
			v.Filter = bulkFilter
			if err := selectTargets(v.List, bulkSel, v.Visible); err != nil {
				return err
			}
			n, err := v.BulkSetLevels(cmd.Context(), current, target)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %d maturity assessments\n", n)
			return nil
		},
	}
	bulkSel.bind(bulk)
	bulk.Flags().StringVar(&bulkCurrent, "current", "", "current level")
	bulk.Flags().StringVar(&bulkTgt, "target", "", "target level")
	bindMaturityFilter(bulk, &bulkFilter)

	cmd.AddCommand(list, levels, add, edit, del, setLevels, bulk)
	return cmd
}

func levelPair(current, target string) (string, string, error) {
	c, err := maturityLevel(current)
	if err != nil {
		return "", "", err
	}
	t, err := maturityLevel(target)
	if err != nil {
		return "", "", err
	}
	return c, t, nil
}

func resolveLevels(f *views.MaturityForm) error {
	current, target, err := levelPair(f.CurrentMaturityLevel, f.TargetMaturityLevel)
	if err != nil {
		return err
	}
	f.SetCurrentLevel(current)
	f.SetTargetLevel(target)
	return nil
}

func dateOrEmpty(d *models.Date) string {
	if d == nil {
		return ""
	}
	return d.String()
}
