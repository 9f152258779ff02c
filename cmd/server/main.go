package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/iso27001/tracker/internal/api"
	"github.com/iso27001/tracker/internal/config"
	"github.com/iso27001/tracker/internal/lock"
	"github.com/iso27001/tracker/internal/notifications"
	"github.com/iso27001/tracker/internal/scheduler"
	"github.com/iso27001/tracker/internal/store"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

type options struct {
	configPath  string
	runJob      string
	showVersion bool
}

// parseFlags reads the command line. Call it after loadDotEnv so CONFIG_PATH
// from .env feeds the -config default.
func parseFlags(args []string) (*options, error) {
	var o options
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.StringVar(&o.configPath, "config", envOr("CONFIG_PATH", "config.yaml"), "Path to configuration file")
	fs.StringVar(&o.runJob, "run-job", "", "Run the named scheduled job once and exit")
	fs.BoolVar(&o.showVersion, "version", false, "Show version information")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return &o, nil
}

// loadDotEnv loads path into the environment; a missing file is fine.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func main() {
	if err := loadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read .env: %v\n", err)
		os.Exit(1)
	}

	opts, err := parseFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		os.Exit(2)
	}

	if opts.showVersion {
		fmt.Printf("ISO 27001 tracker v%s (built %s)\n", version, buildTime)
		os.Exit(0)
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, opts.runJob); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, runJob string) error {
	st, err := store.New(store.Config{
		DSN:          cfg.Database.DSN(),
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		return err
	}
	defer st.Close()

	if cfg.Database.ShouldMigrate() {
		if err := st.Migrate(); err != nil {
			return err
		}
		logger.Info("database schema up to date")
	}
	if err := st.Seed(ctx, cfg.Database.SeedDir, logger); err != nil {
		return err
	}

	var jobs *scheduler.Scheduler
	if cfg.Scheduler.Enabled || runJob != "" {
		jobs, err = newScheduler(cfg, st, logger)
		if err != nil {
			return err
		}
	}

	if runJob != "" {
		exec, err := jobs.RunJobNow(ctx, runJob)
		if err != nil {
			return err
		}
		logger.Info("job finished", "job_name", runJob, "status", exec.Status, "summary", exec.Summary)
		if exec.Status == scheduler.StatusFailed {
			return fmt.Errorf("job %s failed: %s", runJob, exec.Error)
		}
		return nil
	}

	opts := []api.ServerOption{api.WithLogger(logger)}
	if jobs != nil {
		jobs.Start()
		defer func() {
			<-jobs.Stop().Done()
			logger.Info("scheduler stopped")
		}()
		opts = append(opts, api.WithScheduler(jobs))
	}

	server := api.NewServer(cfg, st, opts...)
	logger.Info("starting ISO 27001 tracker", "version", version, "host", cfg.Server.Host, "port", cfg.Server.Port)
	return server.Run(ctx)
}

func newScheduler(cfg *config.Config, st *store.Store, logger *slog.Logger) (*scheduler.Scheduler, error) {
	notifier := notifications.NewService(cfg.Notifications, logger)

	opts := []scheduler.Option{
		scheduler.WithFailureHook(func(ctx context.Context, job string, err error) {
			if !notifier.Enabled() {
				return
			}
			if nerr := notifier.NotifyJobFailed(ctx, job, err); nerr != nil {
				logger.Warn("failed to send job failure notification", "job_name", job, "error", nerr)
			}
		}),
	}
	if cfg.Redis.Enabled {
		locker, err := lock.New(lock.Config{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, err
		}
		opts = append(opts, scheduler.WithLocker(locker, cfg.Scheduler.LockTTL))
	}

	s := scheduler.NewScheduler(scheduler.NewPostgresStore(st.DB()), logger, opts...)
	(&scheduler.Handlers{
		Source:    st,
		Notifier:  notifier,
		Generator: api.NewReportGenerator(st, cfg.Reports.Organization, time.Now),
		OutputDir: cfg.Reports.OutputDir,
	}).Register(s)

	if err := s.Load(cfg.Scheduler.Jobs); err != nil {
		return nil, fmt.Errorf("loading scheduled jobs: %w", err)
	}
	return s, nil
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
