package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iso27001/tracker/internal/models"
)

const gapColumns = `id, category, section, standard_ref, assessment_question, compliance,
	notes, target_date, action_item_id, created_at, updated_at`

func (s *Store) ListGapAssessments(ctx context.Context) ([]models.GapAssessment, error) {
	assessments := []models.GapAssessment{}
	query := `SELECT ` + gapColumns + ` FROM gap_assessments ORDER BY id`
	err := s.db.SelectContext(ctx, &assessments, query)
	return assessments, err
}

func (s *Store) GetGapAssessment(ctx context.Context, id int64) (*models.GapAssessment, error) {
	var a models.GapAssessment
	query := `SELECT ` + gapColumns + ` FROM gap_assessments WHERE id = $1`
	err := s.db.GetContext(ctx, &a, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return &a, err
}

func (s *Store) CreateGapAssessment(ctx context.Context, a *models.GapAssessment) error {
	query := `
		INSERT INTO gap_assessments (category, section, standard_ref, assessment_question, compliance, notes, target_date, action_item_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`
	return s.db.QueryRowxContext(ctx, query,
		a.Category,
		a.Section,
		a.StandardRef,
		a.AssessmentQuestion,
		a.Compliance,
		a.Notes,
		a.TargetDate,
		a.ActionItemID,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
}

func (s *Store) UpdateGapAssessment(ctx context.Context, a *models.GapAssessment) error {
	query := `
		UPDATE gap_assessments
		SET category = $1, section = $2, standard_ref = $3, assessment_question = $4,
			compliance = $5, notes = $6, target_date = $7, action_item_id = $8, updated_at = NOW()
		WHERE id = $9
		RETURNING created_at, updated_at
	`
	err := s.db.QueryRowxContext(ctx, query,
		a.Category,
		a.Section,
		a.StandardRef,
		a.AssessmentQuestion,
		a.Compliance,
		a.Notes,
		a.TargetDate,
		a.ActionItemID,
		a.ID,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (s *Store) DeleteGapAssessment(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM gap_assessments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

const maturityColumns = `id, category, section, standard_ref, assessment_question,
	current_maturity_level, current_maturity_score, current_maturity_comments,
	target_maturity_level, target_maturity_score, target_maturity_comments,
	created_at, updated_at`

func (s *Store) ListMaturityAssessments(ctx context.Context) ([]models.MaturityAssessment, error) {
	assessments := []models.MaturityAssessment{}
	query := `SELECT ` + maturityColumns + ` FROM maturity_assessments ORDER BY id`
	err := s.db.SelectContext(ctx, &assessments, query)
	return assessments, err
}

func (s *Store) GetMaturityAssessment(ctx context.Context, id int64) (*models.MaturityAssessment, error) {
	var a models.MaturityAssessment
	query := `SELECT ` + maturityColumns + ` FROM maturity_assessments WHERE id = $1`
	err := s.db.GetContext(ctx, &a, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return &a, err
}

// CreateMaturityAssessment stores the assessment. Scores are always derived
// from the level labels so stored rows never disagree with their levels.
func (s *Store) CreateMaturityAssessment(ctx context.Context, a *models.MaturityAssessment) error {
	a.SetCurrentLevel(a.CurrentMaturityLevel)
	a.SetTargetLevel(a.TargetMaturityLevel)

	query := `
		INSERT INTO maturity_assessments (
			category, section, standard_ref, assessment_question,
			current_maturity_level, current_maturity_score, current_maturity_comments,
			target_maturity_level, target_maturity_score, target_maturity_comments
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`
	return s.db.QueryRowxContext(ctx, query,
		a.Category,
		a.Section,
		a.StandardRef,
		a.AssessmentQuestion,
		a.CurrentMaturityLevel,
		a.CurrentMaturityScore,
		a.CurrentMaturityComments,
		a.TargetMaturityLevel,
		a.TargetMaturityScore,
		a.TargetMaturityComments,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
}

func (s *Store) UpdateMaturityAssessment(ctx context.Context, a *models.MaturityAssessment) error {
	a.SetCurrentLevel(a.CurrentMaturityLevel)
	a.SetTargetLevel(a.TargetMaturityLevel)

	query := `
		UPDATE maturity_assessments
		SET category = $1, section = $2, standard_ref = $3, assessment_question = $4,
			current_maturity_level = $5, current_maturity_score = $6, current_maturity_comments = $7,
			target_maturity_level = $8, target_maturity_score = $9, target_maturity_comments = $10,
			updated_at = NOW()
		WHERE id = $11
		RETURNING created_at, updated_at
	`
	err := s.db.QueryRowxContext(ctx, query,
		a.Category,
		a.Section,
		a.StandardRef,
		a.AssessmentQuestion,
		a.CurrentMaturityLevel,
		a.CurrentMaturityScore,
		a.CurrentMaturityComments,
		a.TargetMaturityLevel,
		a.TargetMaturityScore,
		a.TargetMaturityComments,
		a.ID,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (s *Store) DeleteMaturityAssessment(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM maturity_assessments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffected(res)
}
