package types

import "time"

// ManifestIntegrity is the tamper-evidence block appended to a manifest body
// after hashing; it is never itself part of the hashed bytes.
type ManifestIntegrity struct {
	Algorithm string `json:"algorithm"`
	Digest    string `json:"digest"`
}

// EvidenceManifest is a point-in-time snapshot of an incident's artifacts,
// action requests, and audit trail, hashed for tamper evidence.
type EvidenceManifest struct {
	ID         int64             `json:"id"`
	IncidentID int64             `json:"incident_id"`
	Manifest   map[string]any    `json:"manifest"`
	HashAlgo   string            `json:"hash_algo"`
	Digest     string            `json:"digest"`
	Signature  string            `json:"signature,omitempty"`
	CreatedBy  string            `json:"created_by"`
	CreatedAt  time.Time         `json:"created_at"`
	Integrity  ManifestIntegrity `json:"-"`
}
