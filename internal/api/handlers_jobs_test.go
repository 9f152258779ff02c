package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/iso27001/tracker/internal/config"
	"github.com/iso27001/tracker/internal/scheduler"
)

type fakeJobs struct {
	skip bool
}

func (f *fakeJobs) Jobs() []scheduler.Job {
	return []scheduler.Job{{Name: "weekly-digest", Type: scheduler.JobOverdueDigest, Schedule: "0 8 * * MON"}}
}

func (f *fakeJobs) Executions(ctx context.Context, name string, limit int) ([]scheduler.JobExecution, error) {
	if name != "weekly-digest" {
		return nil, scheduler.ErrJobNotFound
	}
	return []scheduler.JobExecution{{ID: "e1", JobName: name, Status: scheduler.StatusCompleted, StartedAt: testNow}}, nil
}

func (f *fakeJobs) RunJobNow(ctx context.Context, name string) (*scheduler.JobExecution, error) {
	if name != "weekly-digest" {
		return nil, scheduler.ErrJobNotFound
	}
	exec := &scheduler.JobExecution{ID: "e2", JobName: name, Status: scheduler.StatusCompleted, Summary: "0 overdue action items, 0 overdue risks"}
	if f.skip {
		exec.Status = scheduler.StatusSkipped
	}
	return exec, nil
}

func TestJobEndpoints(t *testing.T) {
	jobs := &fakeJobs{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := NewServer(&config.Config{}, newMemStore(), WithLogger(logger), WithScheduler(jobs),
		WithClock(func() time.Time { return testNow }))

	rec := doRequest(t, s, http.MethodGet, "/api/jobs", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var listed []scheduler.Job
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(listed) != 1 || listed[0].Name != "weekly-digest" {
		t.Errorf("Unexpected jobs %+v", listed)
	}

	rec = doRequest(t, s, http.MethodPost, "/api/jobs/weekly-digest/run", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}

	jobs.skip = true
	rec = doRequest(t, s, http.MethodPost, "/api/jobs/weekly-digest/run", nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("Expected 409 for a skipped run, got %d", rec.Code)
	}

	rec = doRequest(t, s, http.MethodGet, "/api/jobs/weekly-digest/executions?limit=5", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}

	rec = doRequest(t, s, http.MethodGet, "/api/jobs/weekly-digest/executions?limit=0", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for a bad limit, got %d", rec.Code)
	}

	rec = doRequest(t, s, http.MethodPost, "/api/jobs/nightly/run", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}

func TestJobEndpointsWithoutScheduler(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/api/jobs", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", rec.Code)
	}
}
