// Package service orchestrates the control plane: sessions and ingestion,
// the policy engine, incidents, the action workflow, evidence manifests,
// and correlation refresh. It is the one place that holds locks across a
// request — and even there, only the bus's subscriber-set lock and the
// policy engine's own lock, both released before any store call.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/skywatch/drone-ops/internal/apierr"
	"github.com/skywatch/drone-ops/internal/bus"
	"github.com/skywatch/drone-ops/internal/cache"
	"github.com/skywatch/drone-ops/internal/config"
	"github.com/skywatch/drone-ops/internal/correlation"
	"github.com/skywatch/drone-ops/internal/detector"
	"github.com/skywatch/drone-ops/internal/geolocation"
	"github.com/skywatch/drone-ops/internal/policy"
	"github.com/skywatch/drone-ops/internal/remoteid"
	"github.com/skywatch/drone-ops/internal/secrets"
	"github.com/skywatch/drone-ops/internal/store"
	"github.com/skywatch/drone-ops/pkg/types"
)

// Service is the process-wide singleton orchestrating Drone Ops state. All
// methods are safe for concurrent callers.
type Service struct {
	store      store.Querier
	bus        *bus.Bus
	policy     *policy.Engine
	devices    *cache.DeviceCache
	geo        geolocation.Estimator
	pairSource correlation.PairSource
	keys       secrets.SigningKeyStore
	logger     *slog.Logger
}

// NewService constructs a Service from its collaborators. keys may be nil,
// in which case evidence manifests are persisted unsigned.
func NewService(st store.Querier, eventBus *bus.Bus, devices *cache.DeviceCache, geo geolocation.Estimator, pairSource correlation.PairSource, keys secrets.SigningKeyStore, logger *slog.Logger) *Service {
	return &Service{
		store:      st,
		bus:        eventBus,
		policy:     policy.New(),
		devices:    devices,
		geo:        geo,
		keys:       keys,
		pairSource: pairSource,
		logger:     logger,
	}
}

// Bus returns the event bus, for wiring the SSE handler.
func (s *Service) Bus() *bus.Bus {
	return s.bus
}

// =============================================================================
// POLICY
// =============================================================================

// PolicyState returns the current arming snapshot.
func (s *Service) PolicyState() types.PolicyState {
	return s.policy.State()
}

// ArmActions arms the action plane for a bounded duration and emits
// policy_armed.
func (s *Service) ArmActions(actor, reason string, incidentID int64, durationSeconds int) types.PolicyState {
	state := s.policy.Arm(actor, reason, incidentID, secondsToDuration(durationSeconds))
	s.bus.Emit(types.EventPolicyArmed, map[string]any{
		"actor": actor, "reason": reason, "incident_id": incidentID, "state": state,
	})
	return state
}

// DisarmActions clears all arming state and emits policy_disarmed.
func (s *Service) DisarmActions(actor, reason string) types.PolicyState {
	state := s.policy.Disarm()
	s.bus.Emit(types.EventPolicyDisarmed, map[string]any{
		"actor": actor, "reason": reason, "state": state,
	})
	return state
}

// RequiredApprovals reports how many approvals an action type needs.
func (s *Service) RequiredApprovals(actionType string) int {
	return policy.RequiredApprovals(actionType)
}

// =============================================================================
// SESSIONS
// =============================================================================

// StartSession starts a session, or returns the already-active one
// unchanged (idempotent start).
func (s *Service) StartSession(ctx context.Context, mode types.SessionMode, label, operator string, metadata map[string]any) (*types.Session, error) {
	if mode == "" {
		mode = types.SessionModePassive
	}

	session := &types.Session{Mode: mode, Label: label, Operator: operator, Metadata: metadata}
	if err := s.store.CreateDroneSession(ctx, session); err != nil {
		return nil, apierr.Internal("creating session", err)
	}

	s.bus.Emit(types.EventSessionStarted, map[string]any{"session": session})
	return session, nil
}

// StopSession stops the target session (explicit sessionID, or the current
// active one) and returns it. Returns nil, nil if there is no session to stop.
func (s *Service) StopSession(ctx context.Context, operator string, sessionID *int64, summary map[string]any) (*types.Session, error) {
	targetID := sessionID
	if targetID == nil {
		active, err := s.store.GetActiveDroneSession(ctx)
		if err != nil {
			return nil, apierr.Internal("loading active session", err)
		}
		if active == nil {
			return nil, nil
		}
		targetID = &active.ID
	}

	if summary == nil {
		count, err := s.store.CountDroneDetectionsInSession(ctx, *targetID)
		if err != nil {
			return nil, apierr.Internal("counting session detections", err)
		}
		summary = map[string]any{
			"operator":   operator,
			"stopped_at": nowUTCISO(),
			"detections": count,
		}
	}

	session, err := s.store.StopDroneSession(ctx, *targetID, summary)
	if err != nil {
		return nil, apierr.Internal("stopping session", err)
	}
	if session == nil {
		return nil, nil
	}

	s.bus.Emit(types.EventSessionStopped, map[string]any{"session": session})
	return session, nil
}

// ListSessions returns sessions, most recently started first.
func (s *Service) ListSessions(ctx context.Context, limit int, activeOnly bool) ([]types.Session, error) {
	sessions, err := s.store.ListDroneSessions(ctx, limit, activeOnly)
	if err != nil {
		return nil, apierr.Internal("listing sessions", err)
	}
	return sessions, nil
}

// =============================================================================
// STATUS
// =============================================================================

// StatusSnapshot is the GET /drone-ops/status payload.
type StatusSnapshot struct {
	ActiveSession *types.Session  `json:"active_session"`
	Policy        types.PolicyState `json:"policy"`
	Counts        StatusCounts    `json:"counts"`
}

// StatusCounts are the three counters the status endpoint reports,
// each capped internally at config.StatusCountCap.
type StatusCounts struct {
	Detections     int `json:"detections"`
	IncidentsOpen  int `json:"incidents_open"`
	ActionsPending int `json:"actions_pending"`
}

// GetStatus assembles the status snapshot. The three counters are capped at
// config.StatusCountCap: large deployments get an approximate count rather
// than an unbounded table scan on every poll.
func (s *Service) GetStatus(ctx context.Context) (*StatusSnapshot, error) {
	active, err := s.store.GetActiveDroneSession(ctx)
	if err != nil {
		return nil, apierr.Internal("loading active session", err)
	}

	detections, err := s.store.ListDroneDetections(ctx, store.DetectionListParams{Limit: config.StatusCountCap})
	if err != nil {
		return nil, apierr.Internal("counting detections", err)
	}

	incidents, err := s.store.ListDroneIncidents(ctx, store.IncidentListParams{Status: types.IncidentOpen, Limit: config.StatusCountCap})
	if err != nil {
		return nil, apierr.Internal("counting open incidents", err)
	}

	requests, err := s.store.ListActionRequests(ctx, store.ActionRequestListParams{Status: types.ActionPending, Limit: config.StatusCountCap})
	if err != nil {
		return nil, apierr.Internal("counting pending actions", err)
	}

	return &StatusSnapshot{
		ActiveSession: active,
		Policy:        s.PolicyState(),
		Counts: StatusCounts{
			Detections:     len(detections),
			IncidentsOpen:  len(incidents),
			ActionsPending: len(requests),
		},
	}, nil
}

// =============================================================================
// INGESTION
// =============================================================================

// IngestEvent dispatches a raw sensor event to the signature detectors and
// persists whatever it finds. Detector failures and individual persistence
// failures are logged and skipped: one malformed packet never stops the
// ingest of the rest of the batch.
func (s *Service) IngestEvent(ctx context.Context, mode string, event map[string]any, eventType string) {
	results := detector.DetectFromEvent(mode, event, eventType)
	if len(results) == 0 {
		return
	}

	active, err := s.store.GetActiveDroneSession(ctx)
	if err != nil {
		s.logger.Warn("ingest: loading active session failed", "error", err)
	}
	var sessionID *int64
	if active != nil {
		sessionID = &active.ID
	}

	for _, result := range results {
		if err := s.persistDetection(ctx, mode, eventType, sessionID, result); err != nil {
			s.logger.Warn("ingest: dropping detection", "error", err, "source", result.Source, "identifier", result.Identifier)
			continue
		}
	}
}

func (s *Service) persistDetection(ctx context.Context, mode, eventType string, sessionID *int64, result detector.Result) error {
	detection := &types.Detection{
		SessionID:      sessionID,
		Source:         types.DetectionSource(result.Source),
		Identifier:     result.Identifier,
		Classification: result.Classification,
		Confidence:     result.Confidence,
		Payload:        result.Payload,
		RemoteID:       result.RemoteID,
	}
	if err := s.store.UpsertDroneDetection(ctx, detection); err != nil {
		return fmt.Errorf("upserting detection: %w", err)
	}

	if result.Track != nil {
		quality := result.Track.Quality
		track := &types.Track{
			DetectionID: detection.ID,
			Lat:         result.Track.Lat,
			Lon:         result.Track.Lon,
			AltitudeM:   result.Track.AltitudeM,
			SpeedMPS:    result.Track.SpeedMPS,
			HeadingDeg:  result.Track.HeadingDeg,
			Quality:     &quality,
			Source:      result.Track.Source,
		}
		if err := s.store.AppendDroneTrack(ctx, track); err != nil {
			s.logger.Warn("ingest: dropping track", "error", err, "detection_id", detection.ID)
		}
	}

	if result.RemoteID != nil && result.RemoteID.UASID != nil && result.RemoteID.OperatorID != nil {
		correlationRow := &types.Correlation{
			DroneIdentifier:    *result.RemoteID.UASID,
			OperatorIdentifier: *result.RemoteID.OperatorID,
			Method:             types.MethodRemoteIDBinding,
			Confidence:         remoteIDBindingConfidence(result.RemoteID),
			Evidence: map[string]any{
				"source":       result.Source,
				"event_type":   eventType,
				"detection_id": detection.ID,
			},
		}
		if err := s.store.AddDroneCorrelation(ctx, correlationRow); err != nil {
			s.logger.Warn("ingest: dropping remote-id correlation", "error", err, "detection_id", detection.ID)
		}
	}

	s.bus.Emit(types.EventDetection, map[string]any{
		"mode": mode, "event_type": eventType, "detection": detection,
	})
	return nil
}

func remoteIDBindingConfidence(record *types.RemoteIDRecord) float64 {
	if record.Confidence > 0 {
		return record.Confidence
	}
	return 0.8
}

// DecodeRemoteID decodes an explicit Remote-ID payload and emits
// remote_id_decoded.
func (s *Service) DecodeRemoteID(payload remoteid.Payload) *types.RemoteIDRecord {
	decoded := remoteid.Decode(payload)
	s.bus.Emit(types.EventRemoteIDDecoded, map[string]any{"decoded": decoded})
	return decoded
}

// =============================================================================
// QUERIES
// =============================================================================

// ListDetections returns detections matching the given filters.
func (s *Service) ListDetections(ctx context.Context, params store.DetectionListParams) ([]types.Detection, error) {
	detections, err := s.store.ListDroneDetections(ctx, params)
	if err != nil {
		return nil, apierr.Internal("listing detections", err)
	}
	return detections, nil
}

// ListTracks returns track points matching the given filters.
func (s *Service) ListTracks(ctx context.Context, params store.TrackListParams) ([]types.Track, error) {
	tracks, err := s.store.ListDroneTracks(ctx, params)
	if err != nil {
		return nil, apierr.Internal("listing tracks", err)
	}
	return tracks, nil
}

// EstimateGeolocation resolves a location estimate from observations.
// Estimator errors (too few observations, degenerate input) surface as
// validation errors, not internal ones: the trilateration collaborator is
// out of scope but the HTTP surface must still answer with a 400.
func (s *Service) EstimateGeolocation(observations []geolocation.Observation, environment string) (*geolocation.Estimate, error) {
	estimate, err := s.geo.Estimate(observations, environment)
	if err != nil {
		return nil, apierr.Validation("%s", err.Error())
	}
	return estimate, nil
}
