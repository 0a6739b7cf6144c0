package service

import (
	"context"
	"testing"
)

// Two independent manifest generations over the same incident and
// dependent-row state each yield a 64-hex-char SHA-256 digest. The digests
// themselves differ because generated_at is part of the hashed body;
// byte-level determinism is covered by TestCanonicalDigest_DeterministicForIdenticalInput.
func TestGenerateEvidenceManifest_WellFormedDigest(t *testing.T) {
	ctx := context.Background()
	s := newTestService()
	inc := mustIncident(t, s)

	if _, err := s.AddIncidentArtifact(ctx, inc.ID, "capture", "s3://evidence/a.pcap", "operator-a", nil); err != nil {
		t.Fatalf("AddIncidentArtifact: %v", err)
	}
	req, err := s.RequestAction(ctx, inc.ID, "passive_spectrum_capture", "operator-a", nil)
	if err != nil {
		t.Fatalf("RequestAction: %v", err)
	}
	s.ArmActions("operator-a", "test", inc.ID, 300)
	if _, err := s.ApproveAction(ctx, req.ID, "supervisor-a", "approved", ""); err != nil {
		t.Fatalf("ApproveAction: %v", err)
	}

	first, err := s.GenerateEvidenceManifest(ctx, inc.ID, "analyst-a")
	if err != nil {
		t.Fatalf("GenerateEvidenceManifest: %v", err)
	}
	if first == nil {
		t.Fatal("expected a manifest for an existing incident")
	}
	if len(first.Digest) != 64 {
		t.Fatalf("expected a 64-hex-char digest, got %d chars", len(first.Digest))
	}
	if first.HashAlgo != "sha256" {
		t.Fatalf("expected hash_algo sha256, got %s", first.HashAlgo)
	}

	// A second call against the unchanged incident still yields a fresh,
	// well-formed digest (generated_at legitimately varies call to call,
	// per the spec's reproducibility carve-out — see TestCanonicalDigest_
	// DeterministicForIdenticalInput below for the actual determinism
	// property, isolated from wall-clock input).
	second, err := s.GenerateEvidenceManifest(ctx, inc.ID, "analyst-b")
	if err != nil {
		t.Fatalf("GenerateEvidenceManifest (second): %v", err)
	}
	if len(second.Digest) != 64 {
		t.Fatalf("expected a 64-hex-char digest, got %d chars", len(second.Digest))
	}
}

// TestCanonicalDigest_DeterministicForIdenticalInput isolates the hashing
// step from wall-clock input: identical manifest bodies must always produce
// byte-identical canonical JSON and therefore identical digests.
func TestCanonicalDigest_DeterministicForIdenticalInput(t *testing.T) {
	core := map[string]any{
		"generated_at":         "2026-01-01T00:00:00Z",
		"incident":             map[string]any{"id": int64(1), "title": "test", "status": "open"},
		"artifact_count":       1,
		"action_request_count": 0,
		"audit_event_count":    0,
	}

	digest1, canonical1, err := canonicalDigest(core)
	if err != nil {
		t.Fatalf("canonicalDigest: %v", err)
	}
	digest2, canonical2, err := canonicalDigest(core)
	if err != nil {
		t.Fatalf("canonicalDigest: %v", err)
	}
	if digest1 != digest2 {
		t.Fatalf("expected identical digests for identical input, got %s vs %s", digest1, digest2)
	}
	if len(digest1) != 64 {
		t.Fatalf("expected a 64-hex-char digest, got %d chars", len(digest1))
	}
	if canonical1["incident"] == nil || canonical2["incident"] == nil {
		t.Fatal("expected the round-tripped map to preserve nested fields")
	}
}

func TestGenerateEvidenceManifest_UnknownIncidentReturnsNil(t *testing.T) {
	s := newTestService()
	manifest, err := s.GenerateEvidenceManifest(context.Background(), 999, "analyst-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if manifest != nil {
		t.Fatal("expected nil manifest for a nonexistent incident")
	}
}
