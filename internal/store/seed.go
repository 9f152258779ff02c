package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/iso27001/tracker/internal/models"
)

const (
	GapSeedFile      = "sample_gap_data.json"
	MaturitySeedFile = "sample_maturity_data.json"
)

// Seed loads the sample gap and maturity assessments from dir into tables
// that are still empty. A missing seed file is logged and skipped.
func (s *Store) Seed(ctx context.Context, dir string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	empty, err := s.tableEmpty(ctx, "gap_assessments")
	if err != nil {
		return err
	}
	if empty {
		var gaps []models.GapAssessment
		if err := readSeedFile(filepath.Join(dir, GapSeedFile), &gaps); err != nil {
			logger.Warn("skipping gap assessment seed", "error", err)
		} else if err := s.seedGapAssessments(ctx, gaps); err != nil {
			return fmt.Errorf("seeding gap_assessments: %w", err)
		} else {
			logger.Info("seeded gap assessments", "count", len(gaps))
		}
	}

	empty, err = s.tableEmpty(ctx, "maturity_assessments")
	if err != nil {
		return err
	}
	if empty {
		var maturity []models.MaturityAssessment
		if err := readSeedFile(filepath.Join(dir, MaturitySeedFile), &maturity); err != nil {
			logger.Warn("skipping maturity assessment seed", "error", err)
		} else if err := s.seedMaturityAssessments(ctx, maturity); err != nil {
			return fmt.Errorf("seeding maturity_assessments: %w", err)
		} else {
			logger.Info("seeded maturity assessments", "count", len(maturity))
		}
	}

	return nil
}

func (s *Store) tableEmpty(ctx context.Context, table string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s)`, table))
	if err != nil {
		return false, fmt.Errorf("checking %s: %w", table, err)
	}
	return !exists, nil
}

func readSeedFile(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s not found", path)
		}
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func (s *Store) seedGapAssessments(ctx context.Context, gaps []models.GapAssessment) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO gap_assessments (category, section, standard_ref, assessment_question, compliance, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, g := range gaps {
		if _, err := stmt.ExecContext(ctx, g.Category, g.Section, g.StandardRef, g.AssessmentQuestion, g.Compliance, g.Notes); err != nil {
			return fmt.Errorf("inserting %s: %w", g.StandardRef, err)
		}
	}

	return tx.Commit()
}

func (s *Store) seedMaturityAssessments(ctx context.Context, rows []models.MaturityAssessment) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO maturity_assessments (
			category, section, standard_ref, assessment_question,
			current_maturity_level, current_maturity_score, current_maturity_comments,
			target_maturity_level, target_maturity_score, target_maturity_comments
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, m := range rows {
		m.SetCurrentLevel(m.CurrentMaturityLevel)
		m.SetTargetLevel(m.TargetMaturityLevel)
		_, err := stmt.ExecContext(ctx,
			m.Category, m.Section, m.StandardRef, m.AssessmentQuestion,
			m.CurrentMaturityLevel, m.CurrentMaturityScore, m.CurrentMaturityComments,
			m.TargetMaturityLevel, m.TargetMaturityScore, m.TargetMaturityComments,
		)
		if err != nil {
			return fmt.Errorf("inserting %s: %w", m.StandardRef, err)
		}
	}

	return tx.Commit()
}
