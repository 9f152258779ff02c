package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iso27001/tracker/internal/models"
)

const riskColumns = `id, risk_id, title, description, category, likelihood, impact, risk_level,
	current_controls, treatment_plan, treatment_status, owner, target_date, gap_assessment_id,
	annex_a_controls, created_at, updated_at`

const riskLevelRank = `CASE risk_level WHEN 'Critical' THEN 6 WHEN 'Very High' THEN 5 WHEN 'High' THEN 4
	WHEN 'Medium' THEN 3 WHEN 'Low' THEN 2 WHEN 'Very Low' THEN 1 ELSE 0 END`

func (s *Store) ListRisks(ctx context.Context) ([]models.RiskRegister, error) {
	risks := []models.RiskRegister{}
	query := `SELECT ` + riskColumns + ` FROM risk_register ORDER BY ` + riskLevelRank + ` DESC, created_at DESC`
	err := s.db.SelectContext(ctx, &risks, query)
	return risks, err
}

func (s *Store) GetRisk(ctx context.Context, id int64) (*models.RiskRegister, error) {
	var r models.RiskRegister
	query := `SELECT ` + riskColumns + ` FROM risk_register WHERE id = $1`
	err := s.db.GetContext(ctx, &r, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return &r, err
}

func (s *Store) CreateRisk(ctx context.Context, r *models.RiskRegister) error {
	query := `
		INSERT INTO risk_register (
			risk_id, title, description, category, likelihood, impact, risk_level,
			current_controls, treatment_plan, treatment_status, owner, target_date,
			gap_assessment_id, annex_a_controls
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at, updated_at
	`
	err := s.db.QueryRowxContext(ctx, query, riskArgs(r)...).Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateRiskID
	}
	return err
}

func (s *Store) UpdateRisk(ctx context.Context, r *models.RiskRegister) error {
	query := `
		UPDATE risk_register
		SET risk_id = $1, title = $2, description = $3, category = $4, likelihood = $5, impact = $6,
			risk_level = $7, current_controls = $8, treatment_plan = $9, treatment_status = $10,
			owner = $11, target_date = $12, gap_assessment_id = $13, annex_a_controls = $14,
			updated_at = NOW()
		WHERE id = $15
		RETURNING created_at, updated_at
	`
	args := append(riskArgs(r), r.ID)
	err := s.db.QueryRowxContext(ctx, query, args...).Scan(&r.CreatedAt, &r.UpdatedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return ErrNotFound
	case isUniqueViolation(err):
		return ErrDuplicateRiskID
	}
	return err
}

func (s *Store) DeleteRisk(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM risk_register WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

func riskArgs(r *models.RiskRegister) []interface{} {
	return []interface{}{
		r.RiskID,
		r.Title,
		r.Description,
		r.Category,
		r.Likelihood,
		r.Impact,
		r.RiskLevel,
		r.CurrentControls,
		r.TreatmentPlan,
		r.TreatmentStatus,
		r.Owner,
		r.TargetDate,
		r.GapAssessmentID,
		r.AnnexAControls,
	}
}
