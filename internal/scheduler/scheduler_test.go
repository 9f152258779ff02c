package scheduler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iso27001/tracker/internal/config"
	"github.com/iso27001/tracker/internal/models"
	"github.com/iso27001/tracker/internal/notifications"
	"github.com/iso27001/tracker/internal/reports"
)

var now = time.Date(2026, 5, 20, 9, 0, 0, 0, time.UTC)

type memStore struct {
	mu    sync.Mutex
	execs map[string]JobExecution
	order []string
}

func newMemStore() *memStore {
	return &memStore{execs: make(map[string]JobExecution)}
}

func (m *memStore) CreateExecution(ctx context.Context, exec *JobExecution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.execs[exec.ID] = *exec
	m.order = append(m.order, exec.ID)
	return nil
}

func (m *memStore) UpdateExecution(ctx context.Context, exec *JobExecution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.execs[exec.ID] = *exec
	return nil
}

func (m *memStore) ListExecutions(ctx context.Context, jobName string, limit int) ([]JobExecution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []JobExecution
	for i := len(m.order) - 1; i >= 0 && len(out) < limit; i-- {
		if e := m.execs[m.order[i]]; e.JobName == jobName {
			out = append(out, e)
		}
	}
	return out, nil
}

type denyLocker struct{}

func (denyLocker) Acquire(context.Context, string, time.Duration) (func(context.Context) error, bool, error) {
	return nil, false, nil
}

func newTestScheduler(store Store, opts ...Option) *Scheduler {
	opts = append([]Option{WithClock(func() time.Time { return now })}, opts...)
	return NewScheduler(store, nil, opts...)
}

func boolPtr(b bool) *bool { return &b }

func TestLoad(t *testing.T) {
	s := newTestScheduler(newMemStore())
	s.RegisterHandler(JobOverdueDigest, func(ctx context.Context, job *Job) (string, error) { return "", nil })

	err := s.Load([]config.JobConfig{
		{Name: "weekly-digest", Type: "overdue_digest", Schedule: "0 8 * * MON"},
		{Name: "off", Type: "overdue_digest", Schedule: "@daily", Enabled: boolPtr(false)},
	})
	require.NoError(t, err)

	jobs := s.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "weekly-digest", jobs[0].Name)

	runs := s.GetNextRuns("weekly-digest", 3)
	require.Len(t, runs, 3)
	for _, r := range runs {
		assert.Equal(t, time.Monday, r.Weekday())
		assert.Equal(t, 8, r.Hour())
	}
	assert.Equal(t, 7*24*time.Hour, runs[1].Sub(runs[0]))
	assert.Nil(t, s.GetNextRuns("missing", 3))
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		jobs []config.JobConfig
		want string
	}{
		{"unknown type", []config.JobConfig{{Name: "x", Type: "scan_all", Schedule: "@daily"}}, `unknown type "scan_all"`},
		{"bad schedule", []config.JobConfig{{Name: "x", Type: "overdue_digest", Schedule: "every day"}}, "invalid cron expression"},
		{"duplicate", []config.JobConfig{
			{Name: "x", Type: "overdue_digest", Schedule: "@daily"},
			{Name: "x", Type: "overdue_digest", Schedule: "@weekly"},
		}, "duplicate name"},
		{"no name", []config.JobConfig{{Type: "overdue_digest", Schedule: "@daily"}}, "name is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestScheduler(newMemStore())
			s.RegisterHandler(JobOverdueDigest, func(ctx context.Context, job *Job) (string, error) { return "", nil })
			err := s.Load(tt.jobs)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRunJobNow(t *testing.T) {
	store := newMemStore()
	var failed []string
	s := newTestScheduler(store, WithFailureHook(func(ctx context.Context, job string, err error) {
		failed = append(failed, job)
	}))

	calls := 0
	s.RegisterHandler(JobOverdueDigest, func(ctx context.Context, job *Job) (string, error) {
		calls++
		if calls == 2 {
			return "", errors.New("smtp down")
		}
		return "2 overdue action items, 0 overdue risks", nil
	})
	require.NoError(t, s.AddJob(&Job{Name: "digest", Type: JobOverdueDigest, Schedule: "@daily"}))

	exec, err := s.RunJobNow(context.Background(), "digest")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, exec.Status)
	assert.Equal(t, "2 overdue action items, 0 overdue risks", exec.Summary)
	require.NotNil(t, exec.CompletedAt)

	exec, err = s.RunJobNow(context.Background(), "digest")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, exec.Status)
	assert.Equal(t, "smtp down", exec.Error)
	assert.Equal(t, []string{"digest"}, failed)

	history, err := s.Executions(context.Background(), "digest", 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, StatusFailed, history[0].Status)
	assert.Equal(t, StatusCompleted, history[1].Status)

	require.NotNil(t, s.Jobs()[0].LastRun)

	_, err = s.RunJobNow(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
	_, err = s.Executions(context.Background(), "missing", 10)
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestRunSkippedWhenLocked(t *testing.T) {
	store := newMemStore()
	s := newTestScheduler(store, WithLocker(denyLocker{}, time.Minute))
	s.RegisterHandler(JobSoASnapshot, func(ctx context.Context, job *Job) (string, error) {
		t.Fatal("handler must not run without the lock")
		return "", nil
	})
	require.NoError(t, s.AddJob(&Job{Name: "soa", Type: JobSoASnapshot, Schedule: "@daily"}))

	exec, err := s.RunJobNow(context.Background(), "soa")
	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, exec.Status)
	assert.Empty(t, store.execs)
}

type fakeSource struct {
	actions []models.ActionItem
	risks   []models.RiskRegister
	err     error
}

func (f *fakeSource) ListActionItems(ctx context.Context) ([]models.ActionItem, error) {
	return f.actions, f.err
}

func (f *fakeSource) ListRisks(ctx context.Context) ([]models.RiskRegister, error) {
	return f.risks, nil
}

type fakeNotifier struct {
	got []notifications.OverdueDigest
}

func (f *fakeNotifier) NotifyOverdueDigest(ctx context.Context, d notifications.OverdueDigest) error {
	f.got = append(f.got, d)
	return nil
}

func date(y int, m time.Month, d int) *models.Date {
	v := models.NewDate(y, m, d)
	return &v
}

func TestOverdueDigestHandler(t *testing.T) {
	src := &fakeSource{
		actions: []models.ActionItem{
			{ID: 1, Title: "late", Status: models.ActionInProgress, DueDate: date(2026, 5, 10)},
			{ID: 2, Title: "done", Status: models.ActionCompleted, DueDate: date(2026, 5, 1)},
			{ID: 3, Title: "later", Status: models.ActionNotStarted, DueDate: date(2026, 6, 1)},
			{ID: 4, Title: "oldest", Status: models.ActionOnHold, DueDate: date(2026, 4, 2)},
			{ID: 5, Title: "undated", Status: models.ActionNotStarted},
		},
		risks: []models.RiskRegister{
			{RiskID: "RISK-1", TreatmentStatus: models.TreatmentOpen, TargetDate: date(2026, 5, 1)},
			{RiskID: "RISK-2", TreatmentStatus: models.TreatmentMitigated, TargetDate: date(2026, 5, 1)},
		},
	}
	notifier := &fakeNotifier{}
	handler := OverdueDigestHandler(src, notifier, func() time.Time { return now })

	summary, err := handler(context.Background(), &Job{Name: "digest"})
	require.NoError(t, err)
	assert.Equal(t, "2 overdue action items, 1 overdue risks", summary)
	require.Len(t, notifier.got, 1)
	d := notifier.got[0]
	require.Len(t, d.ActionItems, 2)
	assert.Equal(t, int64(4), d.ActionItems[0].ID)
	assert.Equal(t, int64(1), d.ActionItems[1].ID)
	require.Len(t, d.Risks, 1)
	assert.Equal(t, "RISK-1", d.Risks[0].RiskID)

	summary, err = handler(context.Background(), &Job{Name: "digest", Options: map[string]string{"include_risks": "false"}})
	require.NoError(t, err)
	assert.Equal(t, "2 overdue action items, 0 overdue risks", summary)

	_, err = handler(context.Background(), &Job{Options: map[string]string{"include_risks": "maybe"}})
	assert.Error(t, err)

	src.err = errors.New("db down")
	_, err = handler(context.Background(), &Job{})
	assert.ErrorContains(t, err, "listing action items")
}

type fakeGenerator struct {
	req *reports.ReportRequest
}

func (f *fakeGenerator) Generate(ctx context.Context, req *reports.ReportRequest) (*reports.Report, error) {
	f.req = req
	if req.Format == "docx" {
		return nil, reports.ErrUnsupportedFormat
	}
	return &reports.Report{
		Filename: "ISO27001-Statement-of-Applicability-2026-05-20.csv",
		Data:     []byte("Control,Applicable\n"),
	}, nil
}

func TestSoASnapshotHandler(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "snapshots")
	gen := &fakeGenerator{}
	handler := SoASnapshotHandler(gen, dir)

	summary, err := handler(context.Background(), &Job{Options: map[string]string{"format": "csv"}})
	require.NoError(t, err)
	assert.Equal(t, reports.ReportTypeSoA, gen.req.Type)
	assert.Equal(t, reports.FormatCSV, gen.req.Format)

	path := filepath.Join(dir, "ISO27001-Statement-of-Applicability-2026-05-20.csv")
	assert.Equal(t, "wrote "+path, summary)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Control,Applicable\n", string(data))

	_, err = handler(context.Background(), &Job{Options: map[string]string{"format": "docx"}})
	assert.ErrorIs(t, err, reports.ErrUnsupportedFormat)
}

func TestHandlersRegister(t *testing.T) {
	s := newTestScheduler(newMemStore())
	(&Handlers{Generator: &fakeGenerator{}, OutputDir: t.TempDir()}).Register(s)

	assert.NoError(t, s.AddJob(&Job{Name: "soa", Type: JobSoASnapshot, Schedule: "@daily"}))
	assert.Error(t, s.AddJob(&Job{Name: "digest", Type: JobOverdueDigest, Schedule: "@daily"}),
		"overdue digest needs a source and a notifier")
}

func TestPostgresStore(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := NewPostgresStore(sqlx.NewDb(db, "postgres"))
	ctx := context.Background()

	exec := &JobExecution{JobName: "soa", JobType: JobSoASnapshot, Status: StatusRunning, StartedAt: now}
	mock.ExpectExec("INSERT INTO job_executions").
		WithArgs(sqlmock.AnyArg(), "soa", "soa_snapshot", "running", now, "", "").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, store.CreateExecution(ctx, exec))
	assert.NotEmpty(t, exec.ID)

	done := now.Add(time.Second)
	exec.Status, exec.CompletedAt, exec.Summary = StatusCompleted, &done, "wrote soa.md"
	mock.ExpectExec("UPDATE job_executions SET").
		WithArgs(exec.ID, "completed", done, "", "wrote soa.md").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, store.UpdateExecution(ctx, exec))

	mock.ExpectQuery("SELECT (.+) FROM job_executions").
		WithArgs("soa", 20).
		WillReturnRows(sqlmock.NewRows([]string{"id", "job_name", "job_type", "status", "started_at", "completed_at", "error", "summary"}).
			AddRow(exec.ID, "soa", "soa_snapshot", "completed", now, done, "", "wrote soa.md"))
	execs, err := store.ListExecutions(ctx, "soa", 0)
	require.NoError(t, err)
	require.Len(t, execs, 1)
	assert.Equal(t, StatusCompleted, execs[0].Status)
	assert.Equal(t, JobSoASnapshot, execs[0].JobType)

	assert.NoError(t, mock.ExpectationsWereMet())
}
