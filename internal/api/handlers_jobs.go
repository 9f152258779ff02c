package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/iso27001/tracker/internal/scheduler"
)

// JobRunner is the scheduler surface the job endpoints use.
type JobRunner interface {
	Jobs() []scheduler.Job
	Executions(ctx context.Context, name string, limit int) ([]scheduler.JobExecution, error)
	RunJobNow(ctx context.Context, name string) (*scheduler.JobExecution, error)
}

// WithScheduler enables the /api/jobs endpoints.
func WithScheduler(jobs JobRunner) ServerOption {
	return func(s *Server) {
		s.jobs = jobs
	}
}

func (s *Server) requireScheduler(w http.ResponseWriter) bool {
	if s.jobs == nil {
		respondError(w, http.StatusServiceUnavailable, "scheduler_disabled", "Scheduler is not enabled")
		return false
	}
	return true
}

func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	if !s.requireScheduler(w) {
		return
	}
	respondList(w, s.jobs.Jobs())
}

func (s *Server) runJobNow(w http.ResponseWriter, r *http.Request) {
	if !s.requireScheduler(w) {
		return
	}
	name := chi.URLParam(r, "name")

	exec, err := s.jobs.RunJobNow(r.Context(), name)
	if err != nil {
		s.respondJobError(w, err)
		return
	}

	if exec.Status == scheduler.StatusSkipped {
		respondError(w, http.StatusConflict, "job_running", "Job is already running on another instance")
		return
	}
	respondJSON(w, http.StatusOK, exec)
}

func (s *Server) listJobExecutions(w http.ResponseWriter, r *http.Request) {
	if !s.requireScheduler(w) {
		return
	}
	name := chi.URLParam(r, "name")

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondValidation(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	execs, err := s.jobs.Executions(r.Context(), name, limit)
	if err != nil {
		s.respondJobError(w, err)
		return
	}
	respondList(w, execs)
}

func (s *Server) respondJobError(w http.ResponseWriter, err error) {
	if errors.Is(err, scheduler.ErrJobNotFound) {
		respondError(w, http.StatusNotFound, "not_found", "Job not found")
		return
	}
	s.logger.Error("job request failed", "error", err)
	respondError(w, http.StatusInternalServerError, "job_error", err.Error())
}
