package store

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/skywatch/drone-ops/pkg/types"
)

// =============================================================================
// EVIDENCE MANIFESTS
// =============================================================================

// CreateEvidenceManifest persists a manifest. The manifest body and its
// integrity digest are computed by the manifest builder before this call;
// the store only stores what it's given.
func (s *Store) CreateEvidenceManifest(ctx context.Context, m *types.EvidenceManifest) error {
	manifestJSON, err := json.Marshal(m.Manifest)
	if err != nil {
		return err
	}

	var signature *string
	if m.Signature != "" {
		signature = &m.Signature
	}

	return s.pool.QueryRow(ctx, `
		INSERT INTO evidence_manifests (incident_id, manifest, hash_algo, digest, signature, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id, created_at
	`, m.IncidentID, manifestJSON, m.HashAlgo, m.Digest, signature, m.CreatedBy,
	).Scan(&m.ID, &m.CreatedAt)
}

// GetEvidenceManifest retrieves a manifest by ID.
func (s *Store) GetEvidenceManifest(ctx context.Context, id int64) (*types.EvidenceManifest, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, incident_id, manifest, hash_algo, digest, signature, created_by, created_at
		FROM evidence_manifests WHERE id = $1
	`, id)

	m, err := scanEvidenceManifest(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return m, err
}

// ListEvidenceManifests returns manifests for an incident, most recent first.
func (s *Store) ListEvidenceManifests(ctx context.Context, incidentID int64, limit int) ([]types.EvidenceManifest, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, incident_id, manifest, hash_algo, digest, signature, created_by, created_at
		FROM evidence_manifests WHERE incident_id = $1
		ORDER BY created_at DESC LIMIT $2
	`, incidentID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var manifests []types.EvidenceManifest
	for rows.Next() {
		m, err := scanEvidenceManifest(rows)
		if err != nil {
			return nil, err
		}
		manifests = append(manifests, *m)
	}
	return manifests, rows.Err()
}

func scanEvidenceManifest(row rowScanner) (*types.EvidenceManifest, error) {
	var m types.EvidenceManifest
	var manifestJSON []byte
	var signature *string
	if err := row.Scan(&m.ID, &m.IncidentID, &manifestJSON, &m.HashAlgo, &m.Digest, &signature, &m.CreatedBy, &m.CreatedAt); err != nil {
		return nil, err
	}
	if signature != nil {
		m.Signature = *signature
	}
	if len(manifestJSON) > 0 {
		json.Unmarshal(manifestJSON, &m.Manifest)
	}
	m.Integrity = types.ManifestIntegrity{Algorithm: m.HashAlgo, Digest: m.Digest}
	return &m, nil
}
