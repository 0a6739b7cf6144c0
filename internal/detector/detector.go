// Package detector implements the WiFi, Bluetooth, and RF signature
// detectors plus the opportunistic Remote-ID probe, dispatching on the
// sensor mode string.
package detector

import (
	"strings"

	"github.com/skywatch/drone-ops/internal/remoteid"
	"github.com/skywatch/drone-ops/pkg/types"
)

// TrackCandidate is a pre-persistence track point attached to a detection
// when its Remote-ID record carries a lat/lon fix.
type TrackCandidate struct {
	Lat        float64
	Lon        float64
	AltitudeM  *float64
	SpeedMPS   *float64
	HeadingDeg *float64
	Quality    float64
	Source     string
}

// Result is one detector emission, pre-persistence: source, identifier,
// classification, confidence, free-form payload, and an optional Remote-ID
// record / track candidate.
type Result struct {
	Source         types.DetectionSource
	Identifier     string
	Classification string
	Confidence     float64
	Payload        map[string]any
	RemoteID       *types.RemoteIDRecord
	Track          *TrackCandidate
}

// DetectFromEvent dispatches a normalized sensor event to the appropriate
// carrier detector by mode prefix, falling back to an opportunistic
// Remote-ID probe for unrecognized modes.
func DetectFromEvent(mode string, event map[string]any, eventType string) []Result {
	modeLower := strings.ToLower(strings.TrimSpace(mode))

	switch {
	case strings.HasPrefix(modeLower, "wifi"):
		return detectWiFi(event)
	case strings.HasPrefix(modeLower, "bluetooth"), strings.HasPrefix(modeLower, "bt"):
		return detectBluetooth(event)
	case isRFMode(modeLower):
		return detectRF(event)
	}

	record := remoteid.Decode(remoteid.Dict(event))
	if !record.Detected {
		return nil
	}

	identifier := "remote_id"
	if record.UASID != nil && *record.UASID != "" {
		identifier = *record.UASID
	} else if record.OperatorID != nil && *record.OperatorID != "" {
		identifier = *record.OperatorID
	}

	source := types.DetectionSource(modeLower)
	if modeLower == "" {
		source = "unknown"
	}

	confidence := record.Confidence
	if confidence == 0 {
		confidence = 0.6
	}

	return []Result{{
		Source:         source,
		Identifier:     identifier,
		Classification: "remote_id_detected",
		Confidence:     confidence,
		Payload:        map[string]any{"event": event, "event_type": eventType},
		RemoteID:       record,
		Track:          trackFromRemoteID(record, string(source)),
	}}
}

func isRFMode(mode string) bool {
	switch mode {
	case "subghz", "listening_scanner", "waterfall", "listening":
		return true
	default:
		return false
	}
}

func trackFromRemoteID(record *types.RemoteIDRecord, source string) *TrackCandidate {
	if record == nil || !record.Detected || !record.HasPosition() {
		return nil
	}
	return &TrackCandidate{
		Lat:        *record.Lat,
		Lon:        *record.Lon,
		AltitudeM:  record.AltitudeM,
		SpeedMPS:   record.SpeedMPS,
		HeadingDeg: record.HeadingDeg,
		Quality:    record.Confidence,
		Source:     source,
	}
}

func normalizeMAC(value any) string {
	text := strings.ToUpper(strings.TrimSpace(asString(value)))
	text = strings.ReplaceAll(text, "-", ":")
	if len(text) >= 8 {
		return text
	}
	return ""
}

func asString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return ""
	}
}

func asMap(value any) map[string]any {
	if m, ok := value.(map[string]any); ok {
		return m
	}
	return nil
}
