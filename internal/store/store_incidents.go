package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/skywatch/drone-ops/pkg/types"
)

// =============================================================================
// INCIDENTS
// =============================================================================

// CreateDroneIncident inserts a new incident with status forced to open.
func (s *Store) CreateDroneIncident(ctx context.Context, inc *types.Incident) error {
	metadataJSON, err := json.Marshal(inc.Metadata)
	if err != nil {
		return err
	}

	return s.pool.QueryRow(ctx, `
		INSERT INTO drone_incidents (title, severity, status, opened_by, summary, metadata, opened_at)
		VALUES ($1, $2, 'open', $3, $4, $5, NOW())
		RETURNING id, status, opened_at
	`, inc.Title, inc.Severity, inc.OpenedBy, inc.Summary, metadataJSON,
	).Scan(&inc.ID, &inc.Status, &inc.OpenedAt)
}

// GetDroneIncident retrieves an incident by ID, with its artifacts.
func (s *Store) GetDroneIncident(ctx context.Context, id int64) (*types.Incident, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, title, severity, status, opened_by, opened_at, closed_at, summary, metadata
		FROM drone_incidents WHERE id = $1
	`, id)

	inc, err := scanIncident(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	artifacts, err := s.ListDroneIncidentArtifacts(ctx, id)
	if err != nil {
		return nil, err
	}
	inc.Artifacts = artifacts
	return inc, nil
}

// IncidentUpdate carries the subset of mutable incident fields supplied by
// a caller; nil fields are left unchanged.
type IncidentUpdate struct {
	Status   *types.IncidentStatus
	Severity *types.IncidentSeverity
	Summary  *string
	Metadata map[string]any
}

// UpdateDroneIncident applies a partial update. Transitioning status to
// closed also sets closed_at. The store applies any update to a closed
// incident; Service.UpdateIncident refuses everything but metadata once an
// incident is closed.
func (s *Store) UpdateDroneIncident(ctx context.Context, id int64, update IncidentUpdate) (*types.Incident, error) {
	sets := []string{}
	args := []any{}

	if update.Status != nil {
		args = append(args, *update.Status)
		sets = append(sets, fmt.Sprintf("status = $%d", len(args)))
		if *update.Status == types.IncidentClosed {
			sets = append(sets, "closed_at = NOW()")
		}
	}
	if update.Severity != nil {
		args = append(args, *update.Severity)
		sets = append(sets, fmt.Sprintf("severity = $%d", len(args)))
	}
	if update.Summary != nil {
		args = append(args, *update.Summary)
		sets = append(sets, fmt.Sprintf("summary = $%d", len(args)))
	}
	if update.Metadata != nil {
		metadataJSON, err := json.Marshal(update.Metadata)
		if err != nil {
			return nil, err
		}
		args = append(args, metadataJSON)
		sets = append(sets, fmt.Sprintf("metadata = $%d", len(args)))
	}

	if len(sets) == 0 {
		return s.GetDroneIncident(ctx, id)
	}

	args = append(args, id)
	query := fmt.Sprintf(`
		UPDATE drone_incidents SET %s WHERE id = $%d
		RETURNING id
	`, joinComma(sets), len(args))

	var updatedID int64
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&updatedID); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return s.GetDroneIncident(ctx, updatedID)
}

// IncidentListParams filters incident listing.
type IncidentListParams struct {
	Status types.IncidentStatus
	Limit  int
}

// ListDroneIncidents returns incidents, most recently opened first.
func (s *Store) ListDroneIncidents(ctx context.Context, params IncidentListParams) ([]types.Incident, error) {
	query := `
		SELECT id, title, severity, status, opened_by, opened_at, closed_at, summary, metadata
		FROM drone_incidents
	`
	args := []any{}
	if params.Status != "" {
		args = append(args, params.Status)
		query += fmt.Sprintf(" WHERE status = $%d", len(args))
	}
	args = append(args, params.Limit)
	query += fmt.Sprintf(" ORDER BY opened_at DESC LIMIT $%d", len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var incidents []types.Incident
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			return nil, err
		}
		incidents = append(incidents, *inc)
	}
	return incidents, rows.Err()
}

func scanIncident(row rowScanner) (*types.Incident, error) {
	var inc types.Incident
	var summary *string
	var metadataJSON []byte
	if err := row.Scan(
		&inc.ID, &inc.Title, &inc.Severity, &inc.Status, &inc.OpenedBy,
		&inc.OpenedAt, &inc.ClosedAt, &summary, &metadataJSON,
	); err != nil {
		return nil, err
	}
	if summary != nil {
		inc.Summary = *summary
	}
	if len(metadataJSON) > 0 {
		json.Unmarshal(metadataJSON, &inc.Metadata)
	}
	return &inc, nil
}

// =============================================================================
// INCIDENT ARTIFACTS
// =============================================================================

// AddDroneIncidentArtifact appends an artifact to an incident.
func (s *Store) AddDroneIncidentArtifact(ctx context.Context, a *types.IncidentArtifact) error {
	metadataJSON, err := json.Marshal(a.Metadata)
	if err != nil {
		return err
	}

	return s.pool.QueryRow(ctx, `
		INSERT INTO drone_incident_artifacts (incident_id, artifact_type, artifact_ref, added_by, metadata, added_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, added_at
	`, a.IncidentID, a.ArtifactType, a.ArtifactRef, a.AddedBy, metadataJSON,
	).Scan(&a.ID, &a.AddedAt)
}

// ListDroneIncidentArtifacts returns all artifacts for an incident, oldest first.
func (s *Store) ListDroneIncidentArtifacts(ctx context.Context, incidentID int64) ([]types.IncidentArtifact, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, incident_id, artifact_type, artifact_ref, added_by, added_at, metadata
		FROM drone_incident_artifacts WHERE incident_id = $1 ORDER BY added_at ASC
	`, incidentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var artifacts []types.IncidentArtifact
	for rows.Next() {
		var a types.IncidentArtifact
		var metadataJSON []byte
		if err := rows.Scan(&a.ID, &a.IncidentID, &a.ArtifactType, &a.ArtifactRef, &a.AddedBy, &a.AddedAt, &metadataJSON); err != nil {
			return nil, err
		}
		if len(metadataJSON) > 0 {
			json.Unmarshal(metadataJSON, &a.Metadata)
		}
		artifacts = append(artifacts, a)
	}
	return artifacts, rows.Err()
}

func joinComma(parts []string) string {
	out := parts[0]
	for _, p := range parts[1:] {
		out += ", " + p
	}
	return out
}
