// Package storetest provides an in-memory store.Querier fake shared across
// package test suites, the same split the teacher repo uses for its rollout
// engine's mockStore: every Service and Server method gets exercised against
// plain maps instead of a live Postgres instance.
package storetest

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/skywatch/drone-ops/internal/store"
	"github.com/skywatch/drone-ops/pkg/types"
)

// MemQuerier is an in-memory store.Querier.
type MemQuerier struct {
	mu sync.Mutex

	sessions   map[int64]*types.Session
	detections map[int64]*types.Detection
	tracks     []types.Track
	corrs      []types.Correlation
	incidents  map[int64]*types.Incident
	artifacts  map[int64][]types.IncidentArtifact
	requests   map[int64]*types.ActionRequest
	approvals  map[int64][]types.ActionApproval
	audit      []types.ActionAuditLog
	manifests  map[int64]*types.EvidenceManifest

	nextID int64
}

// New returns an empty MemQuerier.
func New() *MemQuerier {
	return &MemQuerier{
		sessions:   make(map[int64]*types.Session),
		detections: make(map[int64]*types.Detection),
		incidents:  make(map[int64]*types.Incident),
		artifacts:  make(map[int64][]types.IncidentArtifact),
		requests:   make(map[int64]*types.ActionRequest),
		approvals:  make(map[int64][]types.ActionApproval),
		manifests:  make(map[int64]*types.EvidenceManifest),
	}
}

func (m *MemQuerier) id() int64 {
	m.nextID++
	return m.nextID
}

// --- sessions ---

func (m *MemQuerier) CreateDroneSession(ctx context.Context, session *types.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.Active() {
			*session = *s
			return nil
		}
	}
	session.ID = m.id()
	session.StartedAt = time.Now()
	m.sessions[session.ID] = session
	return nil
}

func (m *MemQuerier) GetActiveDroneSession(ctx context.Context) (*types.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.Active() {
			return s, nil
		}
	}
	return nil, nil
}

func (m *MemQuerier) GetDroneSession(ctx context.Context, id int64) (*types.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[id], nil
}

func (m *MemQuerier) ListDroneSessions(ctx context.Context, limit int, activeOnly bool) ([]types.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.Session
	for _, s := range m.sessions {
		if activeOnly && !s.Active() {
			continue
		}
		out = append(out, *s)
	}
	return out, nil
}

func (m *MemQuerier) StopDroneSession(ctx context.Context, id int64, summary map[string]any) (*types.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	now := time.Now()
	s.StoppedAt = &now
	s.Summary = summary
	return s, nil
}

func (m *MemQuerier) CountDroneDetectionsInSession(ctx context.Context, sessionID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, d := range m.detections {
		if d.SessionID != nil && *d.SessionID == sessionID {
			n++
		}
	}
	return n, nil
}

// --- detections & tracks ---

func (m *MemQuerier) UpsertDroneDetection(ctx context.Context, d *types.Detection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.detections {
		if sameSession(existing.SessionID, d.SessionID) && existing.Source == d.Source && existing.Identifier == d.Identifier {
			existing.Classification = d.Classification
			if d.Confidence > existing.Confidence {
				existing.Confidence = d.Confidence
			}
			existing.Payload = d.Payload
			existing.RemoteID = d.RemoteID
			existing.LastSeen = time.Now()
			*d = *existing
			return nil
		}
	}
	d.ID = m.id()
	d.FirstSeen = time.Now()
	d.LastSeen = d.FirstSeen
	m.detections[d.ID] = d
	return nil
}

func sameSession(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (m *MemQuerier) GetDroneDetection(ctx context.Context, id int64) (*types.Detection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.detections[id], nil
}

func (m *MemQuerier) ListDroneDetections(ctx context.Context, params store.DetectionListParams) ([]types.Detection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.Detection
	for _, d := range m.detections {
		if d.Confidence < params.MinConfidence {
			continue
		}
		if params.Source != "" && string(d.Source) != params.Source {
			continue
		}
		if params.SessionID != nil && (d.SessionID == nil || *d.SessionID != *params.SessionID) {
			continue
		}
		out = append(out, *d)
	}
	return out, nil
}

func (m *MemQuerier) AppendDroneTrack(ctx context.Context, t *types.Track) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = m.id()
	t.Timestamp = time.Now()
	m.tracks = append(m.tracks, *t)
	return nil
}

func (m *MemQuerier) ListDroneTracks(ctx context.Context, params store.TrackListParams) ([]types.Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.Track
	for _, t := range m.tracks {
		if params.DetectionID != nil && t.DetectionID != *params.DetectionID {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// --- correlations ---

func (m *MemQuerier) AddDroneCorrelation(ctx context.Context, c *types.Correlation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = m.id()
	c.CreatedAt = time.Now()
	m.corrs = append(m.corrs, *c)
	return nil
}

func (m *MemQuerier) ListDroneCorrelations(ctx context.Context, minConfidence float64, limit int) ([]types.Correlation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	best := make(map[string]types.Correlation)
	for _, c := range m.corrs {
		if c.Confidence < minConfidence {
			continue
		}
		key := strings.ToUpper(c.DroneIdentifier) + "|" + strings.ToUpper(c.OperatorIdentifier) + "|" + string(c.Method)
		if existing, ok := best[key]; !ok || c.Confidence > existing.Confidence {
			best[key] = c
		}
	}
	var out []types.Correlation
	for _, c := range best {
		out = append(out, c)
	}
	return out, nil
}

// --- incidents & artifacts ---

func (m *MemQuerier) CreateDroneIncident(ctx context.Context, inc *types.Incident) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inc.ID = m.id()
	inc.Status = types.IncidentOpen
	inc.OpenedAt = time.Now()
	m.incidents[inc.ID] = inc
	return nil
}

func (m *MemQuerier) GetDroneIncident(ctx context.Context, id int64) (*types.Incident, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inc, ok := m.incidents[id]
	if !ok {
		return nil, nil
	}
	cp := *inc
	cp.Artifacts = append([]types.IncidentArtifact(nil), m.artifacts[id]...)
	return &cp, nil
}

func (m *MemQuerier) UpdateDroneIncident(ctx context.Context, id int64, update store.IncidentUpdate) (*types.Incident, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inc, ok := m.incidents[id]
	if !ok {
		return nil, nil
	}
	if update.Status != nil {
		inc.Status = *update.Status
		if *update.Status == types.IncidentClosed {
			now := time.Now()
			inc.ClosedAt = &now
		}
	}
	if update.Severity != nil {
		inc.Severity = *update.Severity
	}
	if update.Summary != nil {
		inc.Summary = *update.Summary
	}
	if update.Metadata != nil {
		inc.Metadata = update.Metadata
	}
	cp := *inc
	cp.Artifacts = append([]types.IncidentArtifact(nil), m.artifacts[id]...)
	return &cp, nil
}

func (m *MemQuerier) ListDroneIncidents(ctx context.Context, params store.IncidentListParams) ([]types.Incident, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.Incident
	for _, inc := range m.incidents {
		if params.Status != "" && inc.Status != params.Status {
			continue
		}
		out = append(out, *inc)
	}
	return out, nil
}

func (m *MemQuerier) AddDroneIncidentArtifact(ctx context.Context, a *types.IncidentArtifact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = m.id()
	a.AddedAt = time.Now()
	m.artifacts[a.IncidentID] = append(m.artifacts[a.IncidentID], *a)
	return nil
}

func (m *MemQuerier) ListDroneIncidentArtifacts(ctx context.Context, incidentID int64) ([]types.IncidentArtifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]types.IncidentArtifact(nil), m.artifacts[incidentID]...), nil
}

// --- action workflow ---

func (m *MemQuerier) CreateActionRequest(ctx context.Context, r *types.ActionRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = m.id()
	r.Status = types.ActionPending
	r.RequestedAt = time.Now()
	r.UpdatedAt = r.RequestedAt
	cp := *r
	m.requests[r.ID] = &cp
	return nil
}

func (m *MemQuerier) GetActionRequest(ctx context.Context, id int64) (*types.ActionRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	cp.Approvals = append([]types.ActionApproval(nil), m.approvals[id]...)
	return &cp, nil
}

func (m *MemQuerier) ListActionRequests(ctx context.Context, params store.ActionRequestListParams) ([]types.ActionRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.ActionRequest
	for id, r := range m.requests {
		if params.IncidentID != nil && r.IncidentID != *params.IncidentID {
			continue
		}
		if params.Status != "" && r.Status != params.Status {
			continue
		}
		cp := *r
		cp.Approvals = append([]types.ActionApproval(nil), m.approvals[id]...)
		out = append(out, cp)
	}
	return out, nil
}

func (m *MemQuerier) UpdateActionRequestStatus(ctx context.Context, id int64, status types.ActionStatus, executedBy string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return nil
	}
	r.Status = status
	if executedBy != "" {
		r.ExecutedBy = executedBy
	}
	r.UpdatedAt = time.Now()
	return nil
}

func (m *MemQuerier) AddActionApproval(ctx context.Context, requestID int64, approval types.ActionApproval) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	approval.DecidedAt = time.Now()
	m.approvals[requestID] = append(m.approvals[requestID], approval)
	return nil
}

func (m *MemQuerier) HasActionApproval(ctx context.Context, requestID int64, approver string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.approvals[requestID] {
		if strings.EqualFold(a.ApprovedBy, approver) {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemQuerier) ListActionApprovals(ctx context.Context, requestID int64) ([]types.ActionApproval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]types.ActionApproval(nil), m.approvals[requestID]...), nil
}

func (m *MemQuerier) AddActionAuditLog(ctx context.Context, entry *types.ActionAuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry.ID = m.id()
	entry.CreatedAt = time.Now()
	m.audit = append(m.audit, *entry)
	return nil
}

func (m *MemQuerier) ListActionAuditLogs(ctx context.Context, requestID *int64, limit int) ([]types.ActionAuditLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.ActionAuditLog
	for _, e := range m.audit {
		if requestID != nil && e.RequestID != *requestID {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// --- evidence manifests ---

func (m *MemQuerier) CreateEvidenceManifest(ctx context.Context, manifest *types.EvidenceManifest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	manifest.ID = m.id()
	manifest.CreatedAt = time.Now()
	cp := *manifest
	m.manifests[manifest.ID] = &cp
	return nil
}

func (m *MemQuerier) GetEvidenceManifest(ctx context.Context, id int64) (*types.EvidenceManifest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.manifests[id], nil
}

func (m *MemQuerier) ListEvidenceManifests(ctx context.Context, incidentID int64, limit int) ([]types.EvidenceManifest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.EvidenceManifest
	for _, mf := range m.manifests {
		if mf.IncidentID == incidentID {
			out = append(out, *mf)
		}
	}
	return out, nil
}

var _ store.Querier = (*MemQuerier)(nil)
