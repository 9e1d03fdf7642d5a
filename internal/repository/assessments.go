package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mr1hm/go-disaster-impact/internal/models"
)

// SaveAssessment appends a; assessments are never updated. The disaster must exist.
func (s *SQLiteDB) SaveAssessment(ctx context.Context, a *models.ImpactAssessment) error {
	body, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encoding assessment %s: %w", a.ID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO impact_assessments (id, disaster_id, assessed_at, affected_population, estimated_loss, vulnerability_score, body)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.DisasterID, a.AssessedAt.UTC(), a.AffectedPopulation, a.EstimatedLoss, a.VulnerabilityScore, string(body),
	)
	if err != nil {
		return fmt.Errorf("error inserting assessment %s: %w", a.ID, err)
	}
	return nil
}

// ListAssessments returns a disaster's assessments, newest first.
func (s *SQLiteDB) ListAssessments(ctx context.Context, disasterID string, limit int) ([]models.ImpactAssessment, error) {
	query := `SELECT body FROM impact_assessments WHERE disaster_id = ? ORDER BY assessed_at DESC, id`
	args := []any{disasterID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing assessments: %w", err)
	}
	defer rows.Close()

	var out []models.ImpactAssessment
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var a models.ImpactAssessment
		if err := json.Unmarshal([]byte(body), &a); err != nil {
			return nil, fmt.Errorf("decoding assessment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
