package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iso27001/tracker/internal/models"
	"github.com/iso27001/tracker/internal/render"
	"github.com/iso27001/tracker/internal/views"
)

func actionFields(f *views.ActionItemForm) []field {
	return []field{
		{"title", "title (required)", &f.Title},
		{"description", "description", &f.Description},
		{"status", "status", &f.Status},
		{"priority", "priority", &f.Priority},
		{"assigned-to", "assignee", &f.AssignedTo},
		{"due-date", "due date (YYYY-MM-DD)", &f.DueDate},
		{"gap", "linked gap assessment id", &f.GapAssessmentID},
		{"category", "category", &f.Category},
		{"file-name", "attached file name", &f.FileName},
		{"file-path", "attached file path", &f.FilePath},
		{"file-size", "attached file size in bytes", &f.FileSize},
		{"file-type", "attached file type", &f.FileType},
		{"clause", "clause reference", &f.ClauseReference},
		{"annex", "Annex A reference", &f.AnnexReference},
	}
}

func newActionCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "actions",
		Aliases: []string{"action"},
		Short:   "Action items",
	}

	newView := func() *views.ActionItemView {
		return views.NewActionItemView(app.client.ActionItems(), app.client.GapAssessments(), app.logger)
	}

	var (
		filter      views.ActionFilter
		overdueOnly bool
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List action items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := newView()
			if err := v.Refresh(cmd.Context()); err != nil {
				if v.Err() != nil {
					return fmt.Errorf("loading action items: %w", v.Err())
				}
				app.logger.Warn("linked gap assessments unavailable", "error", err)
			}
			v.Filter = filter
			items := v.Visible()
			if overdueOnly {
				items = v.Overdue()
			}
			return render.ActionItems(cmd.OutOrStdout(), items, v.LinkedGap, app.now())
		},
	}
	list.Flags().StringVar(&filter.Status, "status", views.All, "filter by status")
	list.Flags().StringVar(&filter.Priority, "priority", views.All, "filter by priority")
	list.Flags().BoolVar(&overdueOnly, "overdue", false, "only overdue items")

	addForm := views.NewActionItemForm()
	add := &cobra.Command{
		Use:   "add",
		Short: "Create an action item",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newView().Submit(cmd.Context(), 0, addForm)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created action item %d\n", a.ID)
			return nil
		},
	}
	bindFields(add, actionFields(&addForm))

	var editIn views.ActionItemForm
	edit := &cobra.Command{
		Use:   "edit ID",
		Short: "Update fields of an action item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			v := newView()
			if err := refreshed(cmd.Context(), v.List.Refresh); err != nil {
				return err
			}
			rec, err := find(v.List, id)
			if err != nil {
				return err
			}
			f := views.ActionItemFormFrom(rec)
			applyChanged(cmd, actionFields(&editIn), actionFields(&f))
			if _, err := v.Submit(cmd.Context(), id, f); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated action item %d\n", id)
			return nil
		},
	}
	bindFields(edit, actionFields(&editIn))

	setStatus := &cobra.Command{
		Use:   "set-status ID STATUS",
		Short: "Change the status of an action item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			v := newView()
			if err := refreshed(cmd.Context(), v.List.Refresh); err != nil {
				return err
			}
			if err := v.SetStatus(cmd.Context(), id, models.ActionStatus(args[1])); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Action item %d is now %s\n", id, render.Status(models.ActionStatus(args[1])))
			return nil
		},
	}

	var yes bool
	del := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete an action item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := newView().Delete(cmd.Context(), id, confirm(cmd, yes, fmt.Sprintf("action item %d", id))); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted action item %d\n", id)
			return nil
		},
	}
	del.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")

	cmd.AddCommand(list, add, edit, setStatus, del)
	return cmd
}

func evidenceFields(f *views.EvidenceForm) []field {
	return []field{
		{"title", "title (required)", &f.Title},
		{"description", "description", &f.Description},
		{"file-name", "file name", &f.FileName},
		{"file-path", "file path", &f.FilePath},
		{"file-size", "file size in bytes", &f.FileSize},
		{"file-type", "file type", &f.FileType},
		{"gap", "linked gap assessment id", &f.GapAssessmentID},
		{"clause", "clause reference", &f.ClauseReference},
		{"annex", "Annex A reference", &f.AnnexReference},
		{"uploaded-by", "uploader", &f.UploadedBy},
	}
}

func newEvidenceCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evidence",
		Short: "Evidence records",
	}

	newView := func() *views.EvidenceView {
		return views.NewEvidenceView(app.client.Evidence(), app.client.GapAssessments(), app.logger)
	}

	var filter views.EvidenceFilter
	list := &cobra.Command{
		Use:   "list",
		Short: "List evidence",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := newView()
			if err := v.Refresh(cmd.Context()); err != nil {
				if v.Err() != nil {
					return fmt.Errorf("loading evidence: %w", v.Err())
				}
				app.logger.Warn("linked gap assessments unavailable", "error", err)
			}
			v.Filter = filter
			return render.Evidence(cmd.OutOrStdout(), v.Visible(), v.LinkedGap, views.FormatFileSize)
		},
	}
	list.Flags().StringVar(&filter.Clause, "clause", views.All, "filter by clause reference")

	clauseList := &cobra.Command{
		Use:   "clauses",
		Short: "List the clause references evidence is filed under",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := newView()
			if err := refreshed(cmd.Context(), v.List.Refresh); err != nil {
				return err
			}
			for _, c := range v.Clauses() {
				fmt.Fprintln(cmd.OutOrStdout(), c)
			}
			return nil
		},
	}

	var addForm views.EvidenceForm
	add := &cobra.Command{
		Use:   "add",
		Short: "Record a piece of evidence",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newView().Submit(cmd.Context(), 0, addForm)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created evidence %d\n", e.ID)
			return nil
		},
	}
	bindFields(add, evidenceFields(&addForm))

	var editIn views.EvidenceForm
	edit := &cobra.Command{
		Use:   "edit ID",
		Short: "Update fields of an evidence record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			v := newView()
			if err := refreshed(cmd.Context(), v.List.Refresh); err != nil {
				return err
			}
			rec, err := find(v.List, id)
			if err != nil {
				return err
			}
			f := views.EvidenceFormFrom(rec)
			applyChanged(cmd, evidenceFields(&editIn), evidenceFields(&f))
			if _, err := v.Submit(cmd.Context(), id, f); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated evidence %d\n", id)
			return nil
		},
	}
	bindFields(edit, evidenceFields(&editIn))

	var yes bool
	del := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete an evidence record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := newView().Delete(cmd.Context(), id, confirm(cmd, yes, fmt.Sprintf("evidence %d", id))); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted evidence %d\n", id)
			return nil
		},
	}
	del.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")

	cmd.AddCommand(list, clauseList, add, edit, del)
	return cmd
}

// riskFields leaves likelihood, impact and level out; they go through
// ratingFlags so a rating change re-derives the level before an explicit
// --level is applied.
func riskFields(f *views.RiskForm) []field {
	return []field{
		{"risk-id", "risk identifier (generated when empty)", &f.RiskID},
		{"title", "title (required)", &f.Title},
		{"description", "description", &f.Description},
		{"category", "category", &f.Category},
		{"controls", "current controls", &f.CurrentControls},
		{"treatment-plan", "treatment plan", &f.TreatmentPlan},
		{"treatment", "treatment status", &f.TreatmentStatus},
		{"owner", "risk owner", &f.Owner},
		{"target-date", "treatment target date (YYYY-MM-DD)", &f.TargetDate},
		{"gap", "linked gap assessment id", &f.GapAssessmentID},
		{"annex-controls", "Annex A controls", &f.AnnexAControls},
	}
}

type ratingFlags struct {
	likelihood string
	impact     string
	level      string
}

func (r *ratingFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&r.likelihood, "likelihood", "", "likelihood (Very Low..Very High)")
	cmd.Flags().StringVar(&r.impact, "impact", "", "impact (Very Low..Very High)")
	cmd.Flags().StringVar(&r.level, "level", "", "risk level override (Very Low..Critical)")
}

func (r *ratingFlags) apply(cmd *cobra.Command, f *views.RiskForm) {
	if cmd.Flags().Changed("likelihood") {
		f.SetLikelihood(models.Rating(r.likelihood))
	}
	if cmd.Flags().Changed("impact") {
		f.SetImpact(models.Rating(r.impact))
	}
	if cmd.Flags().Changed("level") {
		f.RiskLevel = models.RiskLevel(r.level)
	}
}

func newRiskCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "risks",
		Aliases: []string{"risk"},
		Short:   "Risk register",
	}

	newView := func() *views.RiskView {
		return views.NewRiskView(app.client.Risks(), app.client.GapAssessments(), app.logger)
	}

	var filter views.RiskFilter
	list := &cobra.Command{
		Use:   "list",
		Short: "List risks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := newView()
			if err := refreshed(cmd.Context(), v.List.Refresh); err != nil {
				return err
			}
			v.Filter = filter
			return render.Risks(cmd.OutOrStdout(), v.Visible(), app.now())
		},
	}
	list.Flags().StringVar(&filter.Status, "status", views.All, "filter by treatment status")
	list.Flags().StringVar(&filter.Level, "level", views.All, "filter by risk level")

	score := &cobra.Command{
		Use:   "score LIKELIHOOD IMPACT",
		Short: "Show the risk level for a likelihood and impact",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, i := models.Rating(args[0]), models.Rating(args[1])
			fmt.Fprintf(cmd.OutOrStdout(), "%s x %s = %d -> %s\n", l, i,
				models.RatingValue(l)*models.RatingValue(i), render.RiskLevel(models.CalculateRiskLevel(l, i)))
			return nil
		},
	}

	var (
		addForm    views.RiskForm
		addRatings ratingFlags
	)
	add := &cobra.Command{
		Use:   "add",
		Short: "Register a risk",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := newView()
			f := v.NewForm()
			applyChanged(cmd, riskFields(&addForm), riskFields(&f))
			addRatings.apply(cmd, &f)
			r, err := v.Submit(cmd.Context(), 0, f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created risk %s (%s)\n", r.RiskID, render.RiskLevel(r.RiskLevel))
			return nil
		},
	}
	bindFields(add, riskFields(&addForm))
	addRatings.bind(add)

	var (
		editIn      views.RiskForm
		editRatings ratingFlags
	)
	edit := &cobra.Command{
		Use:   "edit ID",
		Short: "Update fields of a risk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			v := newView()
			if err := refreshed(cmd.Context(), v.List.Refresh); err != nil {
				return err
			}
			rec, err := find(v.List, id)
			if err != nil {
				return err
			}
			f := views.RiskFormFrom(rec)
			applyChanged(cmd, riskFields(&editIn), riskFields(&f))
			editRatings.apply(cmd, &f)
			if _, err := v.Submit(cmd.Context(), id, f); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated risk %d (%s)\n", id, render.RiskLevel(f.RiskLevel))
			return nil
		},
	}
	bindFields(edit, riskFields(&editIn))
	editRatings.bind(edit)

	setTreatment := &cobra.Command{
		Use:   "set-treatment ID STATUS",
		Short: "Change the treatment status of a risk",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			v := newView()
			if err := refreshed(cmd.Context(), v.List.Refresh); err != nil {
				return err
			}
			if err := v.SetTreatmentStatus(cmd.Context(), id, models.TreatmentStatus(args[1])); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Risk %d treatment is now %s\n", id, args[1])
			return nil
		},
	}

	var yes bool
	del := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a risk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := newView().Delete(cmd.Context(), id, confirm(cmd, yes, fmt.Sprintf("risk %d", id))); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted risk %d\n", id)
			return nil
		},
	}
	del.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")

	cmd.AddCommand(list, score, add, edit, setTreatment, del)
	return cmd
}
