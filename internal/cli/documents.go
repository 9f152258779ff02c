package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iso27001/tracker/internal/client"
	"github.com/iso27001/tracker/internal/dashboard"
	"github.com/iso27001/tracker/internal/render"
	"github.com/iso27001/tracker/internal/views"
)

func newDashboardCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show compliance, maturity and action item progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := dashboard.Load(cmd.Context(), dashboard.Sources{
				Gaps:     app.client.GapAssessments(),
				Maturity: app.client.MaturityAssessments(),
				Actions:  app.client.ActionItems(),
			}, app.now(), app.logger)
			return render.Dashboard(cmd.OutOrStdout(), s)
		},
	}
}

func newHealthCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the API and its database are reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.client.Health(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "API at %s is healthy\n", app.client.BaseURL())
			return nil
		},
	}
}

func newDocsCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "docs",
		Aliases: []string{"generate"},
		Short:   "Generate ISO 27001 documents",
	}

	var outDir string
	cmd.PersistentFlags().StringVarP(&outDir, "out", "o", ".", "directory to write documents to")

	newView := func() *views.DocumentView {
		return views.NewDocumentView(app.client, app.client.GapAssessments(), outDir, app.logger)
	}

	clauseList := &cobra.Command{
		Use:   "clauses",
		Short: "List the clauses a document can be generated for",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := newView()
			if err := v.Refresh(cmd.Context()); err != nil {
				app.logger.Warn("clause list may be incomplete", "error", err)
			}
			templates := make(map[string]bool)
			for _, t := range v.Templates() {
				templates[t] = true
			}
			rows := make([][]string, 0)
			for _, c := range v.Clauses() {
				source := "assessment"
				if templates[c] {
					source = "template"
				}
				rows = append(rows, []string{c, source})
			}
			if len(rows) == 0 {
				return fmt.Errorf("no clauses available; is the API running at %s?", app.client.BaseURL())
			}
			return render.Table(cmd.OutOrStdout(), []string{"Clause", "Source"}, rows)
		},
	}

	generate := func(kind client.DocumentKind, clause string) func(*cobra.Command) error {
		return func(cmd *cobra.Command) error {
			path, err := newView().Generate(cmd.Context(), kind, clause)
			if err != nil {
				return fmt.Errorf("generating document: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		}
	}

	clause := &cobra.Command{
		Use:   "clause CLAUSE",
		Short: "Generate the document for one clause, e.g. 6.1.3",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return generate(client.DocumentClause, args[0])(cmd)
		},
	}

	var format string
	soa := &cobra.Command{
		Use:   "soa",
		Short: "Generate the Statement of Applicability",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var kind client.DocumentKind
			switch strings.ToLower(format) {
			case "", "md", "markdown":
				kind = client.DocumentSoA
			case "csv":
				kind = client.DocumentSoACSV
			case "pdf":
				kind = client.DocumentSoAPDF
			default:
				return fmt.Errorf("unsupported format %q (md, csv or pdf)", format)
			}
			return generate(kind, "")(cmd)
		},
	}
	soa.Flags().StringVarP(&format, "format", "f", "md", "md, csv or pdf")

	notion := &cobra.Command{
		Use:   "notion",
		Short: "Generate the Notion export of all assessments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return generate(client.DocumentNotionExport, "")(cmd)
		},
	}

	cmd.AddCommand(clauseList, clause, soa, notion)
	return cmd
}
