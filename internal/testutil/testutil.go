// Package testutil provides testing utilities and fixtures for the control
// plane.
//
// This package contains:
//   - Test helper functions (loggers)
//   - Fixture factories for domain types (sessions, detections, incidents,
//     action requests, evidence manifests)
//   - Common test patterns and utilities
//
// # Usage
//
// Fixtures use functional options for customization:
//
//	incident := testutil.FixtureIncident()
//	incident := testutil.FixtureIncident(func(i *types.Incident) {
//		i.Severity = types.SeverityCritical
//	})
package testutil

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/skywatch/drone-ops/pkg/types"
)

// NewTestLogger returns a logger that discards all output.
// Use for tests where logging output is not needed.
func NewTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewVerboseTestLogger returns a logger that writes to stderr.
// Use for debugging test failures.
func NewVerboseTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// =============================================================================
// SESSION FIXTURES
// =============================================================================

// FixtureSession creates a test session with sensible defaults.
func FixtureSession(overrides ...func(*types.Session)) *types.Session {
	session := &types.Session{
		Mode:      types.SessionModePassive,
		Label:     "test-session-" + uuid.New().String()[:8],
		Operator:  "test-operator",
		StartedAt: time.Now(),
	}

	for _, override := range overrides {
		override(session)
	}

	return session
}

// FixtureSessionStopped creates a session that has already been stopped.
func FixtureSessionStopped(overrides ...func(*types.Session)) *types.Session {
	return FixtureSession(append([]func(*types.Session){
		func(s *types.Session) {
			s.StoppedAt = TimeAgoPtr(5 * time.Minute)
			s.Summary = map[string]any{"detections": 0}
		},
	}, overrides...)...)
}

// FixtureSessionActive creates an active (armed-eligible) session.
func FixtureSessionActive(overrides ...func(*types.Session)) *types.Session {
	return FixtureSession(append([]func(*types.Session){
		func(s *types.Session) {
			s.Mode = types.SessionModeActive
		},
	}, overrides...)...)
}

// =============================================================================
// DETECTION FIXTURES
// =============================================================================

// FixtureDetection creates a test WiFi detection with sensible defaults.
func FixtureDetection(overrides ...func(*types.Detection)) *types.Detection {
	detection := &types.Detection{
		Source:         types.SourceWiFi,
		Identifier:     "AA:BB:CC:DD:EE:FF",
		Classification: "remote_id_beacon",
		Confidence:     0.8,
		Payload:        map[string]any{"rssi": -55},
		FirstSeen:      time.Now(),
		LastSeen:       time.Now(),
	}

	for _, override := range overrides {
		override(detection)
	}

	return detection
}

// FixtureDetectionBluetooth creates a Bluetooth-sourced detection.
func FixtureDetectionBluetooth(overrides ...func(*types.Detection)) *types.Detection {
	return FixtureDetection(append([]func(*types.Detection){
		func(d *types.Detection) {
			d.Source = types.SourceBluetooth
			d.Identifier = "11:22:33:44:55:66"
		},
	}, overrides...)...)
}

// FixtureDetectionWithRemoteID attaches a decoded Remote ID record.
func FixtureDetectionWithRemoteID(overrides ...func(*types.Detection)) *types.Detection {
	return FixtureDetection(append([]func(*types.Detection){
		func(d *types.Detection) {
			d.RemoteID = FixtureRemoteIDRecord()
		},
	}, overrides...)...)
}

// FixtureRemoteIDRecord creates a decoded Remote ID record with a position.
func FixtureRemoteIDRecord(overrides ...func(*types.RemoteIDRecord)) *types.RemoteIDRecord {
	record := &types.RemoteIDRecord{
		Detected:     true,
		SourceFormat: types.RemoteIDFormatJSON,
		UASID:        Ptr("UAS-12345"),
		OperatorID:   Ptr("OP-67890"),
		Lat:          Ptr(37.7749),
		Lon:          Ptr(-122.4194),
		AltitudeM:    Ptr(120.5),
		SpeedMPS:     Ptr(8.2),
		Confidence:   0.9,
	}

	for _, override := range overrides {
		override(record)
	}

	return record
}

// FixtureTrack creates a geospatial track point tied to a detection.
func FixtureTrack(detectionID int64, overrides ...func(*types.Track)) *types.Track {
	track := &types.Track{
		DetectionID: detectionID,
		Lat:         37.7749,
		Lon:         -122.4194,
		AltitudeM:   Ptr(120.5),
		Quality:     Ptr(0.85),
		Source:      "remote_id",
		Timestamp:   time.Now(),
	}

	for _, override := range overrides {
		override(track)
	}

	return track
}

// FixtureCorrelation creates a drone/operator correlation.
func FixtureCorrelation(overrides ...func(*types.Correlation)) *types.Correlation {
	correlation := &types.Correlation{
		DroneIdentifier:    "AA:BB:CC:DD:EE:FF",
		OperatorIdentifier: "11:22:33:44:55:66",
		Method:             types.MethodWiFiBTCorrelation,
		Confidence:         0.65,
		Evidence:           map[string]any{"wifi_mac": "AA:BB:CC:DD:EE:FF", "bt_mac": "11:22:33:44:55:66"},
		CreatedAt:          time.Now(),
	}

	for _, override := range overrides {
		override(correlation)
	}

	return correlation
}

// =============================================================================
// INCIDENT FIXTURES
// =============================================================================

// FixtureIncident creates a test incident with sensible defaults.
func FixtureIncident(overrides ...func(*types.Incident)) *types.Incident {
	incident := &types.Incident{
		Title:    "unauthorized drone over perimeter",
		Severity: types.SeverityMedium,
		Status:   types.IncidentOpen,
		OpenedBy: "test-operator",
		OpenedAt: time.Now(),
		Summary:  "drone detected near restricted zone",
	}

	for _, override := range overrides {
		override(incident)
	}

	return incident
}

// FixtureIncidentClosed creates an incident already closed out.
func FixtureIncidentClosed(overrides ...func(*types.Incident)) *types.Incident {
	return FixtureIncident(append([]func(*types.Incident){
		func(i *types.Incident) {
			i.Status = types.IncidentClosed
			i.ClosedAt = TimeAgoPtr(time.Hour)
		},
	}, overrides...)...)
}

// FixtureIncidentArtifact creates an artifact attached to an incident.
func FixtureIncidentArtifact(incidentID int64, overrides ...func(*types.IncidentArtifact)) *types.IncidentArtifact {
	artifact := &types.IncidentArtifact{
		IncidentID:   incidentID,
		ArtifactType: "capture",
		ArtifactRef:  "s3://evidence/capture-" + uuid.New().String()[:8] + ".pcap",
		AddedBy:      "test-operator",
		AddedAt:      time.Now(),
	}

	for _, override := range overrides {
		override(artifact)
	}

	return artifact
}

// =============================================================================
// ACTION WORKFLOW FIXTURES
// =============================================================================

// FixtureActionRequest creates a pending action request against an incident.
func FixtureActionRequest(incidentID int64, overrides ...func(*types.ActionRequest)) *types.ActionRequest {
	request := &types.ActionRequest{
		IncidentID:  incidentID,
		ActionType:  "passive_track",
		RequestedBy: "test-operator",
		Status:      types.ActionPending,
		RequestedAt: time.Now(),
		UpdatedAt:   time.Now(),
	}

	for _, override := range overrides {
		override(request)
	}

	return request
}

// FixtureActionRequestActive creates a request requiring the two-person
// quorum (any action_type not prefixed "passive_").
func FixtureActionRequestActive(incidentID int64, overrides ...func(*types.ActionRequest)) *types.ActionRequest {
	return FixtureActionRequest(incidentID, append([]func(*types.ActionRequest){
		func(r *types.ActionRequest) {
			r.ActionType = "rf_jam"
		},
	}, overrides...)...)
}

// FixtureActionApproval creates an approval decision.
func FixtureActionApproval(overrides ...func(*types.ActionApproval)) types.ActionApproval {
	approval := types.ActionApproval{
		ApprovedBy: "test-supervisor",
		Decision:   types.DecisionApproved,
		DecidedAt:  time.Now(),
	}

	for _, override := range overrides {
		override(&approval)
	}

	return approval
}

// FixtureActionAuditLog creates an audit log entry for a request.
func FixtureActionAuditLog(requestID int64, overrides ...func(*types.ActionAuditLog)) *types.ActionAuditLog {
	entry := &types.ActionAuditLog{
		RequestID: requestID,
		EventType: types.AuditRequested,
		Actor:     "test-operator",
		CreatedAt: time.Now(),
	}

	for _, override := range overrides {
		override(entry)
	}

	return entry
}

// =============================================================================
// EVIDENCE MANIFEST FIXTURES
// =============================================================================

// FixtureEvidenceManifest creates a generated evidence manifest.
func FixtureEvidenceManifest(incidentID int64, overrides ...func(*types.EvidenceManifest)) *types.EvidenceManifest {
	manifest := &types.EvidenceManifest{
		IncidentID: incidentID,
		Manifest:   map[string]any{"generated_at": time.Now().UTC().Format(time.RFC3339)},
		HashAlgo:   "sha256",
		Digest:     "0000000000000000000000000000000000000000000000000000000000000000",
		CreatedBy:  "test-analyst",
	}

	for _, override := range overrides {
		override(manifest)
	}

	return manifest
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// Ptr returns a pointer to the given value.
// Useful for setting optional fields in fixtures.
func Ptr[T any](v T) *T {
	return &v
}

// TimeAgo returns a time in the past by the given duration.
func TimeAgo(d time.Duration) time.Time {
	return time.Now().Add(-d)
}

// TimeAgoPtr returns a pointer to a time in the past.
func TimeAgoPtr(d time.Duration) *time.Time {
	t := time.Now().Add(-d)
	return &t
}
