package types

import "time"

// IncidentSeverity is the operator-assessed severity of an incident.
type IncidentSeverity string

const (
	SeverityLow      IncidentSeverity = "low"
	SeverityMedium   IncidentSeverity = "medium"
	SeverityHigh     IncidentSeverity = "high"
	SeverityCritical IncidentSeverity = "critical"
)

// IncidentStatus is the incident lifecycle state.
type IncidentStatus string

const (
	IncidentOpen       IncidentStatus = "open"
	IncidentMonitoring IncidentStatus = "monitoring"
	IncidentContained  IncidentStatus = "contained"
	IncidentClosed     IncidentStatus = "closed"
)

// Incident is a human-tracked drone encounter. Initial status is always
// IncidentOpen; setting status to IncidentClosed sets ClosedAt and forbids
// any further mutation except Metadata.
type Incident struct {
	ID        int64              `json:"id"`
	Title     string             `json:"title"`
	Severity  IncidentSeverity   `json:"severity"`
	Status    IncidentStatus     `json:"status"`
	OpenedBy  string             `json:"opened_by"`
	OpenedAt  time.Time          `json:"opened_at"`
	ClosedAt  *time.Time         `json:"closed_at,omitempty"`
	Summary   string             `json:"summary,omitempty"`
	Metadata  map[string]any     `json:"metadata,omitempty"`
	Artifacts []IncidentArtifact `json:"artifacts,omitempty"`
}

// IncidentArtifact is an append-only reference attached to an incident
// (evidence file, capture, log bundle, anything identified by a ref string).
type IncidentArtifact struct {
	ID           int64          `json:"id"`
	IncidentID   int64          `json:"incident_id"`
	ArtifactType string         `json:"artifact_type"`
	ArtifactRef  string         `json:"artifact_ref"`
	AddedBy      string         `json:"added_by"`
	AddedAt      time.Time      `json:"added_at"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}
