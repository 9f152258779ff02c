package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iso27001/tracker/internal/scheduler"
)

func TestJobs(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/jobs":
			_, _ = io.WriteString(w, `[{"name":"weekly-digest","type":"overdue_digest","schedule":"0 8 * * MON"}]`)
		case r.Method == http.MethodPost && r.URL.Path == "/api/jobs/weekly-digest/run":
			_, _ = io.WriteString(w, `{"id":"e1","job_name":"weekly-digest","status":"completed","summary":"1 overdue action items, 0 overdue risks"}`)
		case r.URL.Path == "/api/jobs/weekly-digest/executions":
			assert.Equal(t, "5", r.URL.Query().Get("limit"))
			_, _ = io.WriteString(w, `[{"id":"e1","status":"failed","error":"smtp down"}]`)
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"error":{"code":"not_found","message":"Job not found"}}`)
		}
	})
	ctx := context.Background()

	jobs, err := c.Jobs(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, scheduler.JobOverdueDigest, jobs[0].Type)

	exec, err := c.RunJob(ctx, "weekly-digest")
	require.NoError(t, err)
	assert.Equal(t, scheduler.StatusCompleted, exec.Status)

	execs, err := c.JobExecutions(ctx, "weekly-digest", 5)
	require.NoError(t, err)
	require.Len(t, execs, 1)
	assert.Equal(t, "smtp down", execs[0].Error)

	_, err = c.RunJob(ctx, "nightly")
	assert.True(t, IsNotFound(err))
	var apiErr *APIError
	assert.True(t, errors.As(err, &apiErr))
}
