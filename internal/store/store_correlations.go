package store

import (
	"context"
	"encoding/json"

	"github.com/skywatch/drone-ops/pkg/types"
)

// =============================================================================
// CORRELATIONS
// =============================================================================

// AddDroneCorrelation appends a correlation row. Duplicates by
// (drone_identifier, operator_identifier, method) are permitted; queries
// deduplicate by taking the max confidence per key.
func (s *Store) AddDroneCorrelation(ctx context.Context, c *types.Correlation) error {
	evidenceJSON, err := json.Marshal(c.Evidence)
	if err != nil {
		return err
	}

	return s.pool.QueryRow(ctx, `
		INSERT INTO drone_correlations (drone_identifier, operator_identifier, method, confidence, evidence, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, created_at
	`, c.DroneIdentifier, c.OperatorIdentifier, c.Method, c.Confidence, evidenceJSON,
	).Scan(&c.ID, &c.CreatedAt)
}

// ListDroneCorrelations returns correlations at or above minConfidence,
// deduplicated by (drone_identifier, operator_identifier, method) keeping
// the highest-confidence row per key (the most recent among ties), ordered
// by that key.
func (s *Store) ListDroneCorrelations(ctx context.Context, minConfidence float64, limit int) ([]types.Correlation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT ON (drone_identifier, operator_identifier, method)
			id, drone_identifier, operator_identifier, method, confidence, evidence, created_at
		FROM drone_correlations
		WHERE confidence >= $1
		ORDER BY drone_identifier, operator_identifier, method, confidence DESC, created_at DESC
		LIMIT $2
	`, minConfidence, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var correlations []types.Correlation
	for rows.Next() {
		var c types.Correlation
		var evidenceJSON []byte
		if err := rows.Scan(&c.ID, &c.DroneIdentifier, &c.OperatorIdentifier, &c.Method, &c.Confidence, &evidenceJSON, &c.CreatedAt); err != nil {
			return nil, err
		}
		if len(evidenceJSON) > 0 {
			json.Unmarshal(evidenceJSON, &c.Evidence)
		}
		correlations = append(correlations, c)
	}
	return correlations, rows.Err()
}
