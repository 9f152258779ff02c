package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/iso27001/tracker/internal/render"
	"github.com/iso27001/tracker/internal/scheduler"
)

func newJobsCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and trigger the server's scheduled jobs",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List scheduled jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jobs, err := app.client.Jobs(cmd.Context())
			if err != nil {
				return err
			}
			if len(jobs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No scheduled jobs")
				return nil
			}
			rows := make([][]string, 0, len(jobs))
			for _, j := range jobs {
				rows = append(rows, []string{j.Name, string(j.Type), j.Schedule, timeOrDash(j.NextRun), timeOrDash(j.LastRun)})
			}
			return render.Table(cmd.OutOrStdout(), []string{"Name", "Type", "Schedule", "Next Run", "Last Run"}, rows)
		},
	}

	run := &cobra.Command{
		Use:   "run NAME",
		Short: "Run a job now and wait for the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			exec, err := app.client.RunJob(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if exec.Status == scheduler.StatusFailed {
				return fmt.Errorf("job %s failed: %s", args[0], exec.Error)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %s\n", args[0], exec.Status, exec.Summary)
			return nil
		},
	}

	var limit int
	history := &cobra.Command{
		Use:   "history NAME",
		Short: "Show recent runs of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			execs, err := app.client.JobExecutions(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(execs))
			for _, e := range execs {
				result := e.Summary
				if e.Error != "" {
					result = e.Error
				}
				rows = append(rows, []string{e.StartedAt.Local().Format(time.DateTime), string(e.Status), duration(e), result})
			}
			return render.Table(cmd.OutOrStdout(), []string{"Started", "Status", "Took", "Result"}, rows)
		},
	}
	history.Flags().IntVarP(&limit, "limit", "n", 10, "number of runs to show")

	cmd.AddCommand(list, run, history)
	return cmd
}

func timeOrDash(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format(time.DateTime)
}

func duration(e scheduler.JobExecution) string {
	if e.CompletedAt == nil {
		return "-"
	}
	return e.CompletedAt.Sub(e.StartedAt).Round(time.Millisecond).String()
}
