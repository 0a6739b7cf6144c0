package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"

	"github.com/skywatch/drone-ops/internal/apierr"
	"github.com/skywatch/drone-ops/internal/config"
	"github.com/skywatch/drone-ops/internal/secrets"
	"github.com/skywatch/drone-ops/internal/store"
	"github.com/skywatch/drone-ops/pkg/types"
)

// GenerateEvidenceManifest assembles a point-in-time snapshot of an
// incident's artifacts, action requests, and audit trail, hashes it for
// tamper evidence, signs the digest with the control plane's manifest
// signing key, and persists it. Returns nil, nil if the incident does not
// exist: a manifest for a nonexistent incident is not an error, it is
// simply nothing to generate.
func (s *Service) GenerateEvidenceManifest(ctx context.Context, incidentID int64, createdBy string) (*types.EvidenceManifest, error) {
	incident, err := s.store.GetDroneIncident(ctx, incidentID)
	if err != nil {
		return nil, apierr.Internal("loading incident", err)
	}
	if incident == nil {
		return nil, nil
	}

	requests, err := s.store.ListActionRequests(ctx, store.ActionRequestListParams{IncidentID: &incidentID, Limit: config.MaxPaginationLimit * 2})
	if err != nil {
		return nil, apierr.Internal("listing action requests for manifest", err)
	}

	var auditLogs []types.ActionAuditLog
	for _, request := range requests {
		entries, err := s.store.ListActionAuditLogs(ctx, &request.ID, config.MaxAuditEntriesPerRequest)
		if err != nil {
			return nil, apierr.Internal("listing action audit logs for manifest", err)
		}
		auditLogs = append(auditLogs, entries...)
	}

	core := map[string]any{
		"generated_at": nowUTCISO(),
		"incident": map[string]any{
			"id":        incident.ID,
			"title":     incident.Title,
			"status":    incident.Status,
			"severity":  incident.Severity,
			"opened_at": incident.OpenedAt,
			"closed_at": incident.ClosedAt,
		},
		"artifact_count":        len(incident.Artifacts),
		"action_request_count":  len(requests),
		"audit_event_count":     len(auditLogs),
		"artifacts":             incident.Artifacts,
		"action_requests":       requests,
		"action_audit":          auditLogs,
	}

	digest, canonical, err := canonicalDigest(core)
	if err != nil {
		return nil, apierr.Internal("hashing evidence manifest", err)
	}
	canonical["integrity"] = map[string]any{"algorithm": config.DefaultHashAlgorithm, "digest": digest}

	signature, err := s.signDigest(ctx, digest)
	if err != nil {
		return nil, apierr.Internal("signing evidence manifest", err)
	}

	manifest := &types.EvidenceManifest{
		IncidentID: incidentID,
		Manifest:   canonical,
		HashAlgo:   config.DefaultHashAlgorithm,
		Digest:     digest,
		Signature:  signature,
		CreatedBy:  createdBy,
	}
	if err := s.store.CreateEvidenceManifest(ctx, manifest); err != nil {
		return nil, apierr.Internal("persisting evidence manifest", err)
	}

	s.bus.Emit(types.EventEvidenceManifestCreated, map[string]any{"manifest": manifest})
	return manifest, nil
}

// canonicalDigest marshals core to compact JSON, then round-trips it through
// an untyped map so any struct-typed values inside (incident, action
// requests, audit entries) flatten to plain map[string]any. Go's
// encoding/json sorts map[string]any keys by raw byte order at every nesting
// level (matching json.dumps(..., sort_keys=True, separators=(',', ':'))),
// but only for values it already sees as maps: a struct field keeps its
// declaration order on the first marshal. Re-marshaling the round-tripped
// form is what actually gets hashed, so the digest matches what a verifier
// computes by re-marshaling the persisted manifest body, at every level, not
// just the top one.
func canonicalDigest(core map[string]any) (string, map[string]any, error) {
	raw, err := json.Marshal(core)
	if err != nil {
		return "", nil, err
	}

	var roundTripped map[string]any
	if err := json.Unmarshal(raw, &roundTripped); err != nil {
		return "", nil, err
	}

	canonical, err := json.Marshal(roundTripped)
	if err != nil {
		return "", nil, err
	}
	sum := sha256.Sum256(canonical)

	return hex.EncodeToString(sum[:]), roundTripped, nil
}

// GetEvidenceManifest loads a single manifest by ID.
func (s *Service) GetEvidenceManifest(ctx context.Context, id int64) (*types.EvidenceManifest, error) {
	manifest, err := s.store.GetEvidenceManifest(ctx, id)
	if err != nil {
		return nil, apierr.Internal("loading evidence manifest", err)
	}
	if manifest == nil {
		return nil, apierr.NotFound("evidence manifest %d not found", id)
	}
	return manifest, nil
}

// ListEvidenceManifests returns manifests generated for an incident.
func (s *Service) ListEvidenceManifests(ctx context.Context, incidentID int64, limit int) ([]types.EvidenceManifest, error) {
	manifests, err := s.store.ListEvidenceManifests(ctx, incidentID, limit)
	if err != nil {
		return nil, apierr.Internal("listing evidence manifests", err)
	}
	return manifests, nil
}

// signDigest produces a detached, base64-encoded signature over the
// manifest digest using the control plane's manifest signing key. With no
// signing key store configured, manifests are persisted unsigned.
func (s *Service) signDigest(ctx context.Context, digest string) (string, error) {
	if s.keys == nil {
		return "", nil
	}

	key, err := s.keys.GetOrCreateSigningKey(ctx)
	if err != nil {
		return "", err
	}
	signer, err := secrets.ParsePrivateKey(key.PrivateKey)
	if err != nil {
		return "", err
	}
	sig, err := signer.Sign(rand.Reader, []byte(digest))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sig.Blob), nil
}
