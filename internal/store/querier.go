package store

import (
	"context"

	"github.com/skywatch/drone-ops/pkg/types"
)

// Querier is the store surface internal/service depends on. *Store
// satisfies it against Postgres; tests satisfy it with an in-memory fake
// so the action workflow's invariants can be exercised without a database.
type Querier interface {
	// Sessions
	CreateDroneSession(ctx context.Context, session *types.Session) error
	GetActiveDroneSession(ctx context.Context) (*types.Session, error)
	GetDroneSession(ctx context.Context, id int64) (*types.Session, error)
	ListDroneSessions(ctx context.Context, limit int, activeOnly bool) ([]types.Session, error)
	StopDroneSession(ctx context.Context, id int64, summary map[string]any) (*types.Session, error)
	CountDroneDetectionsInSession(ctx context.Context, sessionID int64) (int, error)

	// Detections & tracks
	UpsertDroneDetection(ctx context.Context, d *types.Detection) error
	GetDroneDetection(ctx context.Context, id int64) (*types.Detection, error)
	ListDroneDetections(ctx context.Context, params DetectionListParams) ([]types.Detection, error)
	AppendDroneTrack(ctx context.Context, t *types.Track) error
	ListDroneTracks(ctx context.Context, params TrackListParams) ([]types.Track, error)

	// Correlations
	AddDroneCorrelation(ctx context.Context, c *types.Correlation) error
	ListDroneCorrelations(ctx context.Context, minConfidence float64, limit int) ([]types.Correlation, error)

	// Incidents & artifacts
	CreateDroneIncident(ctx context.Context, inc *types.Incident) error
	GetDroneIncident(ctx context.Context, id int64) (*types.Incident, error)
	UpdateDroneIncident(ctx context.Context, id int64, update IncidentUpdate) (*types.Incident, error)
	ListDroneIncidents(ctx context.Context, params IncidentListParams) ([]types.Incident, error)
	AddDroneIncidentArtifact(ctx context.Context, a *types.IncidentArtifact) error
	ListDroneIncidentArtifacts(ctx context.Context, incidentID int64) ([]types.IncidentArtifact, error)

	// Action workflow
	CreateActionRequest(ctx context.Context, r *types.ActionRequest) error
	GetActionRequest(ctx context.Context, id int64) (*types.ActionRequest, error)
	ListActionRequests(ctx context.Context, params ActionRequestListParams) ([]types.ActionRequest, error)
	UpdateActionRequestStatus(ctx context.Context, id int64, status types.ActionStatus, executedBy string) error
	AddActionApproval(ctx context.Context, requestID int64, approval types.ActionApproval) error
	HasActionApproval(ctx context.Context, requestID int64, approver string) (bool, error)
	ListActionApprovals(ctx context.Context, requestID int64) ([]types.ActionApproval, error)
	AddActionAuditLog(ctx context.Context, entry *types.ActionAuditLog) error
	ListActionAuditLogs(ctx context.Context, requestID *int64, limit int) ([]types.ActionAuditLog, error)

	// Evidence manifests
	CreateEvidenceManifest(ctx context.Context, m *types.EvidenceManifest) error
	GetEvidenceManifest(ctx context.Context, id int64) (*types.EvidenceManifest, error)
	ListEvidenceManifests(ctx context.Context, incidentID int64, limit int) ([]types.EvidenceManifest, error)
}

var _ Querier = (*Store)(nil)
