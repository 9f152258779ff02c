// Package scheduler runs the tracker's periodic jobs on cron schedules and
// records every run in job_executions.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/robfig/cron/v3"

	"github.com/iso27001/tracker/internal/config"
	"github.com/iso27001/tracker/internal/lock"
)

type JobType string

const (
	JobOverdueDigest JobType = "overdue_digest"
	JobSoASnapshot   JobType = "soa_snapshot"
)

var ErrJobNotFound = errors.New("job not found")

// Job is a configured job. Jobs come from the config file, not the database.
type Job struct {
	Name     string            `json:"name"`
	Type     JobType           `json:"type"`
	Schedule string            `json:"schedule"`
	Options  map[string]string `json:"options,omitempty"`
	LastRun  *time.Time        `json:"last_run,omitempty"`
	NextRun  *time.Time        `json:"next_run,omitempty"`
}

// Option returns a job option or def when it is unset.
func (j *Job) Option(key, def string) string {
	if v, ok := j.Options[key]; ok && v != "" {
		return v
	}
	return def
}

type ExecutionStatus string

const (
	StatusRunning   ExecutionStatus = "running"
	StatusCompleted ExecutionStatus = "completed"
	StatusFailed    ExecutionStatus = "failed"
	StatusSkipped   ExecutionStatus = "skipped"
)

type JobExecution struct {
	ID          string          `json:"id" db:"id"`
	JobName     string          `json:"job_name" db:"job_name"`
	JobType     JobType         `json:"job_type" db:"job_type"`
	Status      ExecutionStatus `json:"status" db:"status"`
	StartedAt   time.Time       `json:"started_at" db:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty" db:"completed_at"`
	Error       string          `json:"error,omitempty" db:"error"`
	Summary     string          `json:"summary,omitempty" db:"summary"`
}

// JobHandler runs one job and returns a one-line summary of what it did.
type JobHandler func(ctx context.Context, job *Job) (string, error)

type Store interface {
	CreateExecution(ctx context.Context, exec *JobExecution) error
	UpdateExecution(ctx context.Context, exec *JobExecution) error
	ListExecutions(ctx context.Context, jobName string, limit int) ([]JobExecution, error)
}

var (
	jobRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "isms_scheduler_job_runs_total",
			Help: "Scheduled job runs, by job name and outcome.",
		},
		[]string{"job", "status"},
	)

	jobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "isms_scheduler_job_duration_seconds",
			Help:    "Scheduled job run time, by job name.",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		},
		[]string{"job"},
	)
)

type Option func(*Scheduler)

// WithLocker guards every run with a lock held for at most ttl.
func WithLocker(l lock.Locker, ttl time.Duration) Option {
	return func(s *Scheduler) {
		s.locker = l
		s.lockTTL = ttl
	}
}

// WithFailureHook is called after a run fails.
func WithFailureHook(fn func(ctx context.Context, job string, err error)) Option {
	return func(s *Scheduler) {
		s.onFailure = fn
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

type Scheduler struct {
	cron      *cron.Cron
	parser    cron.Parser
	store     Store
	handlers  map[JobType]JobHandler
	jobs      map[string]*Job
	entries   map[string]cron.EntryID
	mu        sync.RWMutex
	logger    *slog.Logger
	locker    lock.Locker
	lockTTL   time.Duration
	onFailure func(ctx context.Context, job string, err error)
	now       func() time.Time
}

func NewScheduler(store Store, logger *slog.Logger, opts ...Option) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}

	parser := cron.NewParser(
		cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
	)
	s := &Scheduler{
		cron:     cron.New(cron.WithParser(parser)),
		parser:   parser,
		store:    store,
		handlers: make(map[JobType]JobHandler),
		jobs:     make(map[string]*Job),
		entries:  make(map[string]cron.EntryID),
		logger:   logger,
		locker:   lock.Local{},
		lockTTL:  5 * time.Minute,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scheduler) RegisterHandler(jobType JobType, handler JobHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[jobType] = handler
}

// Load schedules the enabled jobs from the config. Handlers must be
// registered first.
func (s *Scheduler) Load(cfgs []config.JobConfig) error {
	for _, c := range cfgs {
		if !c.IsEnabled() {
			s.logger.Info("job disabled", "job_name", c.Name)
			continue
		}
		job := &Job{
			Name:     c.Name,
			Type:     JobType(c.Type),
			Schedule: c.Schedule,
			Options:  c.Options,
		}
		if err := s.AddJob(job); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) AddJob(job *Job) error {
	if job.Name == "" {
		return errors.New("job name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[job.Name]; ok {
		return fmt.Errorf("job %s: duplicate name", job.Name)
	}
	if _, ok := s.handlers[job.Type]; !ok {
		return fmt.Errorf("job %s: unknown type %q", job.Name, job.Type)
	}

	sched, err := s.parser.Parse(job.Schedule)
	if err != nil {
		return fmt.Errorf("job %s: invalid cron expression: %w", job.Name, err)
	}

	entryID := s.cron.Schedule(sched, cron.FuncJob(func() {
		s.executeJob(context.Background(), job)
	}))
	s.entries[job.Name] = entryID
	s.jobs[job.Name] = job

	s.logger.Info("scheduled job",
		"job_name", job.Name,
		"job_type", job.Type,
		"schedule", job.Schedule)
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.mu.RLock()
	n := len(s.jobs)
	s.mu.RUnlock()
	s.logger.Info("scheduler started", "jobs_count", n)
}

// Stop stops scheduling. The returned context is done once running jobs
// finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// Jobs returns the configured jobs sorted by name, with their next run.
func (s *Scheduler) Jobs() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Job, 0, len(s.jobs))
	for name, job := range s.jobs {
		j := *job
		if entry := s.cron.Entry(s.entries[name]); entry.ID != 0 && !entry.Next.IsZero() {
			next := entry.Next
			j.NextRun = &next
		}
		out = append(out, j)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Name < out[k].Name })
	return out
}

func (s *Scheduler) Executions(ctx context.Context, name string, limit int) ([]JobExecution, error) {
	s.mu.RLock()
	_, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrJobNotFound
	}
	return s.store.ListExecutions(ctx, name, limit)
}

// RunJobNow runs a job synchronously, outside its schedule.
func (s *Scheduler) RunJobNow(ctx context.Context, name string) (*JobExecution, error) {
	s.mu.RLock()
	job, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrJobNotFound
	}
	return s.executeJob(ctx, job), nil
}

// GetNextRuns returns the next count run times of a job.
func (s *Scheduler) GetNextRuns(name string, count int) []time.Time {
	s.mu.RLock()
	entryID, ok := s.entries[name]
	s.mu.RUnlock()
	if !ok {
		return nil
	}

	entry := s.cron.Entry(entryID)
	if entry.ID == 0 {
		return nil
	}

	runs := make([]time.Time, 0, count)
	next := entry.Next
	if next.IsZero() {
		next = entry.Schedule.Next(s.now())
	}
	for i := 0; i < count; i++ {
		runs = append(runs, next)
		next = entry.Schedule.Next(next)
	}
	return runs
}

func (s *Scheduler) executeJob(ctx context.Context, job *Job) *JobExecution {
	startTime := s.now()
	exec := &JobExecution{
		ID:        uuid.NewString(),
		JobName:   job.Name,
		JobType:   job.Type,
		Status:    StatusRunning,
		StartedAt: startTime,
	}

	release, ok, err := s.locker.Acquire(ctx, job.Name, s.lockTTL)
	if err != nil {
		s.logger.Error("acquiring job lock", "job_name", job.Name, "error", err)
		if cerr := s.store.CreateExecution(ctx, exec); cerr != nil {
			s.logger.Error("failed to create execution record", "job_name", job.Name, "error", cerr)
		}
		s.finish(ctx, job, exec, "", err)
		return exec
	}
	if !ok {
		exec.Status = StatusSkipped
		jobRunsTotal.WithLabelValues(job.Name, string(StatusSkipped)).Inc()
		s.logger.Info("job already running elsewhere, skipped", "job_name", job.Name)
		return exec
	}
	defer func() {
		if err := release(context.Background()); err != nil {
			s.logger.Warn("releasing job lock", "job_name", job.Name, "error", err)
		}
	}()

	if err := s.store.CreateExecution(ctx, exec); err != nil {
		s.logger.Error("failed to create execution record", "job_name", job.Name, "error", err)
	}

	s.logger.Info("executing job", "job_name", job.Name, "execution_id", exec.ID)

	s.mu.RLock()
	handler, ok := s.handlers[job.Type]
	s.mu.RUnlock()
	if !ok {
		s.finish(ctx, job, exec, "", fmt.Errorf("no handler registered for job type: %s", job.Type))
		return exec
	}

	summary, err := handler(ctx, job)
	s.finish(ctx, job, exec, summary, err)
	return exec
}

func (s *Scheduler) finish(ctx context.Context, job *Job, exec *JobExecution, summary string, err error) {
	endTime := s.now()
	exec.CompletedAt = &endTime
	exec.Summary = summary
	duration := endTime.Sub(exec.StartedAt)

	if err != nil {
		exec.Status = StatusFailed
		exec.Error = err.Error()
		s.logger.Error("job execution failed",
			"job_name", job.Name,
			"error", err,
			"duration", duration)
	} else {
		exec.Status = StatusCompleted
		s.logger.Info("job execution completed",
			"job_name", job.Name,
			"summary", summary,
			"duration", duration)
	}

	jobRunsTotal.WithLabelValues(job.Name, string(exec.Status)).Inc()
	jobDuration.WithLabelValues(job.Name).Observe(duration.Seconds())

	if uerr := s.store.UpdateExecution(ctx, exec); uerr != nil {
		s.logger.Error("failed to update execution record", "job_name", job.Name, "error", uerr)
	}

	s.mu.Lock()
	job.LastRun = &exec.StartedAt
	s.mu.Unlock()

	if err != nil && s.onFailure != nil {
		s.onFailure(ctx, job.Name, err)
	}
}
