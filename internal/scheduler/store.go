package scheduler

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// PostgresStore keeps execution history in the job_executions table.
type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateExecution(ctx context.Context, exec *JobExecution) error {
	if exec.ID == "" {
		exec.ID = uuid.NewString()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO job_executions (id, job_name, job_type, status, started_at, error, summary)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, exec.ID, exec.JobName, string(exec.JobType), string(exec.Status), exec.StartedAt, exec.Error, exec.Summary)
	return err
}

func (s *PostgresStore) UpdateExecution(ctx context.Context, exec *JobExecution) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE job_executions SET status = $2, completed_at = $3, error = $4, summary = $5
		WHERE id = $1
	`, exec.ID, string(exec.Status), exec.CompletedAt, exec.Error, exec.Summary)
	return err
}

// ListExecutions returns the most recent runs of a job, newest first.
func (s *PostgresStore) ListExecutions(ctx context.Context, jobName string, limit int) ([]JobExecution, error) {
	if limit <= 0 {
		limit = 20
	}
	execs := []JobExecution{}
	err := s.db.SelectContext(ctx, &execs, `
		SELECT id, job_name, job_type, status, started_at, completed_at, error, summary
		FROM job_executions
		WHERE job_name = $1
		ORDER BY started_at DESC
		LIMIT $2
	`, jobName, limit)
	return execs, err
}
