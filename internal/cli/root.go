// Package cli is the tracker's command-line front end. Each command drives a
// view from internal/views against the REST API and renders the result.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/iso27001/tracker/internal/client"
	"github.com/iso27001/tracker/internal/render"
)

// ErrPanicked is returned by a command that crashed; the error panel has
// already been written.
var ErrPanicked = errors.New("command panicked")

// App is the state shared by every command.
type App struct {
	Version string

	apiURL  string
	envFile string
	timeout time.Duration
	verbose bool
	noColor bool

	client *client.Client
	logger *slog.Logger
	now    func() time.Time
}

func NewApp(version string) *App {
	return &App{Version: version, now: time.Now}
}

// Execute runs the command line and returns the process exit status.
func Execute(ctx context.Context, app *App, args []string, stdout, stderr io.Writer) int {
	root := NewRootCommand(app)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, ErrPanicked) {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func NewRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "tracker",
		Short:         "ISO 27001 compliance tracker",
		Long:          "Track gap and maturity assessments, action items, evidence and risks, and generate ISO 27001 documents.",
		Version:       app.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.setup(cmd.ErrOrStderr())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&app.apiURL, "api-url", "", "API base URL (default $"+client.EnvBaseURL+" or "+client.DefaultBaseURL+")")
	flags.StringVar(&app.envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	flags.DurationVar(&app.timeout, "timeout", 30*time.Second, "HTTP timeout per request")
	flags.BoolVarP(&app.verbose, "verbose", "v", false, "debug logging on stderr")
	flags.BoolVar(&app.noColor, "no-color", false, "disable coloured output")

	root.AddCommand(
		newDashboardCommand(app),
		newGapCommand(app),
		newMaturityCommand(app),
		newActionCommand(app),
		newEvidenceCommand(app),
		newRiskCommand(app),
		newDocsCommand(app),
		newHealthCommand(app),
		newJobsCommand(app),
	)
	guardAll(root)
	return root
}

func (a *App) setup(stderr io.Writer) error {
	level := slog.LevelWarn
	if a.verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	if a.envFile != "" {
		if err := godotenv.Load(a.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			a.logger.Warn("loading env file failed", "path", a.envFile, "error", err)
		}
	}
	if a.noColor {
		render.DisableColor()
	}

	baseURL := a.apiURL
	if baseURL == "" {
		baseURL = client.BaseURLFromEnv()
	}
	a.client = client.New(baseURL, client.WithTimeout(a.timeout))
	a.logger.Debug("api client ready", "base_url", a.client.BaseURL())
	return nil
}

// guardAll wraps every runnable command so a panic prints the error panel
// and fails the command instead of crashing the process.
func guardAll(cmd *cobra.Command) {
	if cmd.RunE != nil {
		cmd.RunE = guard(cmd.RunE)
	}
	for _, c := range cmd.Commands() {
		guardAll(c)
	}
}

func guard(run func(*cobra.Command, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		defer func() {
			if r := recover(); r != nil {
				render.Panic(cmd.ErrOrStderr(), fmt.Sprint(r), debug.Stack())
				err = ErrPanicked
			}
		}()
		return run(cmd, args)
	}
}

// confirm returns the delete confirmation: --yes skips the prompt, otherwise
// the user must answer y.
func confirm(cmd *cobra.Command, yes bool, what string) func() bool {
	return func() bool {
		if yes {
			return true
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Delete %s? [y/N] ", what)
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return false
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes"
	}
}
