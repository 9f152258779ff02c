package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iso27001/tracker/internal/models"
)

// ClauseRecords is everything recorded against one clause: the best
// matching gap and maturity assessments plus the records linked to the gap.
type ClauseRecords struct {
	Gap         *models.GapAssessment
	Maturity    *models.MaturityAssessment
	ActionItems []models.ActionItem
	Evidence    []models.Evidence
	Risks       []models.RiskRegister
}

// clauseMatch ranks "Clause-6.1" over "Clause 6.1" over any ref containing
// 6.1, shortest first, so 6.1 does not resolve to 6.1.3.
const clauseMatch = `
	WHERE standard_ref = $1 OR standard_ref = $2 OR standard_ref ILIKE $3
	ORDER BY
		CASE
			WHEN standard_ref = $1 THEN 0
			WHEN standard_ref = $2 THEN 1
			ELSE 2
		END,
		length(standard_ref) ASC
	LIMIT 1`

func (s *Store) FindClauseRecords(ctx context.Context, clause string) (*ClauseRecords, error) {
	exactDash := "Clause-" + clause
	exactSpace := "Clause " + clause
	like := "%" + clause + "%"

	records := &ClauseRecords{}

	var gap models.GapAssessment
	err := s.db.GetContext(ctx, &gap, `SELECT `+gapColumns+` FROM gap_assessments`+clauseMatch, exactDash, exactSpace, like)
	switch {
	case err == nil:
		records.Gap = &gap
	case !errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("finding gap assessment: %w", err)
	}

	var maturity models.MaturityAssessment
	err = s.db.GetContext(ctx, &maturity, `SELECT `+maturityColumns+` FROM maturity_assessments`+clauseMatch, exactDash, exactSpace, like)
	switch {
	case err == nil:
		records.Maturity = &maturity
	case !errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("finding maturity assessment: %w", err)
	}

	if records.Gap == nil {
		return records, nil
	}

	err = s.db.SelectContext(ctx, &records.ActionItems,
		`SELECT `+actionItemColumns+` FROM action_items
		WHERE gap_assessment_id = $1 OR clause_reference ILIKE $2
		ORDER BY due_date NULLS LAST, `+priorityRank+` DESC, created_at DESC`,
		records.Gap.ID, like)
	if err != nil {
		return nil, fmt.Errorf("listing linked action items: %w", err)
	}

	err = s.db.SelectContext(ctx, &records.Evidence,
		`SELECT `+evidenceColumns+` FROM evidence
		WHERE gap_assessment_id = $1 OR clause_reference ILIKE $2
		ORDER BY uploaded_at DESC`,
		records.Gap.ID, like)
	if err != nil {
		return nil, fmt.Errorf("listing linked evidence: %w", err)
	}

	err = s.db.SelectContext(ctx, &records.Risks,
		`SELECT `+riskColumns+` FROM risk_register
		WHERE gap_assessment_id = $1
		ORDER BY `+riskLevelRank+` DESC, created_at DESC`,
		records.Gap.ID)
	if err != nil {
		return nil, fmt.Errorf("listing linked risks: %w", err)
	}

	return records, nil
}
