package service

import (
	"context"

	"github.com/skywatch/drone-ops/internal/apierr"
	"github.com/skywatch/drone-ops/internal/store"
	"github.com/skywatch/drone-ops/pkg/types"
)

// CreateIncident opens a new incident, always in IncidentOpen status.
func (s *Service) CreateIncident(ctx context.Context, title string, severity types.IncidentSeverity, openedBy, summary string, metadata map[string]any) (*types.Incident, error) {
	incident := &types.Incident{
		Title:    title,
		Severity: severity,
		OpenedBy: openedBy,
		Summary:  summary,
		Metadata: metadata,
	}
	if err := s.store.CreateDroneIncident(ctx, incident); err != nil {
		return nil, apierr.Internal("creating incident", err)
	}

	s.bus.Emit(types.EventIncidentCreated, map[string]any{"incident": incident})
	return incident, nil
}

// GetIncident loads an incident with its artifacts attached.
func (s *Service) GetIncident(ctx context.Context, id int64) (*types.Incident, error) {
	incident, err := s.store.GetDroneIncident(ctx, id)
	if err != nil {
		return nil, apierr.Internal("loading incident", err)
	}
	if incident == nil {
		return nil, apierr.NotFound("incident %d not found", id)
	}
	return incident, nil
}

// ListIncidents returns incidents, optionally filtered by status.
func (s *Service) ListIncidents(ctx context.Context, params store.IncidentListParams) ([]types.Incident, error) {
	incidents, err := s.store.ListDroneIncidents(ctx, params)
	if err != nil {
		return nil, apierr.Internal("listing incidents", err)
	}
	return incidents, nil
}

// UpdateIncident applies a partial update and emits incident_updated. Once an
// incident is closed, only its metadata may change.
func (s *Service) UpdateIncident(ctx context.Context, id int64, update store.IncidentUpdate) (*types.Incident, error) {
	current, err := s.GetIncident(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == types.IncidentClosed && (update.Status != nil || update.Severity != nil || update.Summary != nil) {
		return nil, apierr.Validation("incident %d is closed; only metadata may change", id)
	}

	incident, err := s.store.UpdateDroneIncident(ctx, id, update)
	if err != nil {
		return nil, apierr.Internal("updating incident", err)
	}
	if incident == nil {
		return nil, apierr.NotFound("incident %d not found", id)
	}

	s.bus.Emit(types.EventIncidentUpdated, map[string]any{"incident": incident})
	return incident, nil
}

// AddIncidentArtifact attaches an evidence reference to an incident and
// emits incident_artifact_added.
func (s *Service) AddIncidentArtifact(ctx context.Context, incidentID int64, artifactType, artifactRef, addedBy string, metadata map[string]any) (*types.IncidentArtifact, error) {
	artifact := &types.IncidentArtifact{
		IncidentID:   incidentID,
		ArtifactType: artifactType,
		ArtifactRef:  artifactRef,
		AddedBy:      addedBy,
		Metadata:     metadata,
	}
	if err := s.store.AddDroneIncidentArtifact(ctx, artifact); err != nil {
		return nil, apierr.Internal("adding incident artifact", err)
	}

	s.bus.Emit(types.EventIncidentArtifactAdded, map[string]any{"artifact": artifact})
	return artifact, nil
}
