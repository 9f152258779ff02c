package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iso27001/tracker/internal/models"
)

const actionItemColumns = `id, title, description, status, priority, assigned_to, due_date, completed_date,
	gap_assessment_id, maturity_assessment_id, category, file_name, file_path, file_size, file_type,
	clause_reference, annex_reference, created_at, updated_at`

// priorityRank orders priorities by urgency rather than alphabetically.
const priorityRank = `CASE priority WHEN 'Critical' THEN 4 WHEN 'High' THEN 3 WHEN 'Medium' THEN 2 WHEN 'Low' THEN 1 ELSE 0 END`

func (s *Store) ListActionItems(ctx context.Context) ([]models.ActionItem, error) {
	items := []models.ActionItem{}
	query := `SELECT ` + actionItemColumns + ` FROM action_items
		ORDER BY due_date NULLS LAST, ` + priorityRank + ` DESC, created_at DESC`
	err := s.db.SelectContext(ctx, &items, query)
	return items, err
}

func (s *Store) GetActionItem(ctx context.Context, id int64) (*models.ActionItem, error) {
	var item models.ActionItem
	query := `SELECT ` + actionItemColumns + ` FROM action_items WHERE id = $1`
	err := s.db.GetContext(ctx, &item, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return &item, err
}

func (s *Store) CreateActionItem(ctx context.Context, item *models.ActionItem) error {
	query := `
		INSERT INTO action_items (
			title, description, status, priority, assigned_to, due_date, completed_date,
			gap_assessment_id, maturity_assessment_id, category, file_name, file_path, file_size,
			file_type, clause_reference, annex_reference
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id, created_at, updated_at
	`
	return s.db.QueryRowxContext(ctx, query, actionItemArgs(item)...).
		Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
}

func (s *Store) UpdateActionItem(ctx context.Context, item *models.ActionItem) error {
	query := `
		UPDATE action_items
		SET title = $1, description = $2, status = $3, priority = $4, assigned_to = $5,
			due_date = $6, completed_date = $7, gap_assessment_id = $8, maturity_assessment_id = $9,
			category = $10, file_name = $11, file_path = $12, file_size = $13, file_type = $14,
			clause_reference = $15, annex_reference = $16, updated_at = NOW()
		WHERE id = $17
		RETURNING created_at, updated_at
	`
	args := append(actionItemArgs(item), item.ID)
	err := s.db.QueryRowxContext(ctx, query, args...).Scan(&item.CreatedAt, &item.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (s *Store) DeleteActionItem(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM action_items WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

func actionItemArgs(item *models.ActionItem) []interface{} {
	return []interface{}{
		item.Title,
		item.Description,
		item.Status,
		item.Priority,
		item.AssignedTo,
		item.DueDate,
		item.CompletedDate,
		item.GapAssessmentID,
		item.MaturityAssessmentID,
		item.Category,
		item.FileName,
		item.FilePath,
		item.FileSize,
		item.FileType,
		item.ClauseReference,
		item.AnnexReference,
	}
}

const evidenceColumns = `id, title, description, file_name, file_path, file_size, file_type,
	gap_assessment_id, maturity_assessment_id, clause_reference, annex_reference,
	uploaded_by, uploaded_at, created_at, updated_at`

func (s *Store) ListEvidence(ctx context.Context) ([]models.Evidence, error) {
	evidence := []models.Evidence{}
	query := `SELECT ` + evidenceColumns + ` FROM evidence ORDER BY created_at DESC`
	err := s.db.SelectContext(ctx, &evidence, query)
	return evidence, err
}

func (s *Store) GetEvidence(ctx context.Context, id int64) (*models.Evidence, error) {
	var e models.Evidence
	query := `SELECT ` + evidenceColumns + ` FROM evidence WHERE id = $1`
	err := s.db.GetContext(ctx, &e, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return &e, err
}

func (s *Store) CreateEvidence(ctx context.Context, e *models.Evidence) error {
	query := `
		INSERT INTO evidence (
			title, description, file_name, file_path, file_size, file_type,
			gap_assessment_id, maturity_assessment_id, clause_reference, annex_reference, uploaded_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, uploaded_at, created_at, updated_at
	`
	return s.db.QueryRowxContext(ctx, query, evidenceArgs(e)...).
		Scan(&e.ID, &e.UploadedAt, &e.CreatedAt, &e.UpdatedAt)
}

func (s *Store) UpdateEvidence(ctx context.Context, e *models.Evidence) error {
	query := `
		UPDATE evidence
		SET title = $1, description = $2, file_name = $3, file_path = $4, file_size = $5,
			file_type = $6, gap_assessment_id = $7, maturity_assessment_id = $8,
			clause_reference = $9, annex_reference = $10, uploaded_by = $11, updated_at = NOW()
		WHERE id = $12
		RETURNING uploaded_at, created_at, updated_at
	`
	args := append(evidenceArgs(e), e.ID)
	err := s.db.QueryRowxContext(ctx, query, args...).Scan(&e.UploadedAt, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (s *Store) DeleteEvidence(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM evidence WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

func evidenceArgs(e *models.Evidence) []interface{} {
	return []interface{}{
		e.Title,
		e.Description,
		e.FileName,
		e.FilePath,
		e.FileSize,
		e.FileType,
		e.GapAssessmentID,
		e.MaturityAssessmentID,
		e.ClauseReference,
		e.AnnexReference,
		e.UploadedBy,
	}
}
