package detector

import (
	"strings"

	"github.com/skywatch/drone-ops/internal/remoteid"
	"github.com/skywatch/drone-ops/pkg/types"
)

func extractBTEvent(event map[string]any) map[string]any {
	if event == nil {
		return nil
	}
	if device := asMap(event["device"]); device != nil {
		return device
	}
	for _, key := range []string{"device_id", "address", "name", "manufacturer_name", "service_uuids"} {
		if _, ok := event[key]; ok {
			return event
		}
	}
	return nil
}

func detectBluetooth(event map[string]any) []Result {
	device := extractBTEvent(event)
	if device == nil {
		return nil
	}

	address := normalizeMAC(firstNonEmpty(device["address"], device["mac"]))
	deviceID := strings.TrimSpace(asString(device["device_id"]))
	name := strings.TrimSpace(asString(device["name"]))
	manufacturer := strings.TrimSpace(asString(device["manufacturer_name"]))
	identifier := address
	if identifier == "" {
		identifier = deviceID
	}
	if identifier == "" {
		identifier = name
	}
	if identifier == "" {
		return nil
	}

	score := 0.0
	var reasons []string

	haystack := strings.TrimSpace(name + " " + manufacturer)
	if haystack != "" {
		for _, pattern := range btNamePatterns {
			if pattern.MatchString(haystack) {
				score += 0.55
				reasons = append(reasons, "name_or_vendor_pattern")
				break
			}
		}
	}

	for _, uuid := range asStringSlice(device["service_uuids"]) {
		cleaned := strings.ToLower(strings.ReplaceAll(uuid, "-", ""))
		if len(cleaned) >= 4 && remoteIDUUIDHints[cleaned[len(cleaned)-4:]] {
			score = maxFloat(score, 0.7)
			reasons = append(reasons, "remote_id_service_uuid")
			break
		}
	}

	if tracker := asMap(device["tracker"]); tracker != nil {
		isTracker, _ := tracker["is_tracker"].(bool)
		trackerType := strings.ToLower(asString(tracker["type"]))
		if isTracker && strings.Contains(trackerType, "drone") {
			score = maxFloat(score, 0.7)
			reasons = append(reasons, "tracker_engine_drone_label")
		}
	}

	record := remoteid.Decode(remoteid.Dict(device))
	if record.Detected {
		score = maxFloat(score, 0.75)
		reasons = append(reasons, "remote_id_payload")
	}

	if score < 0.55 {
		return nil
	}

	confidence := minFloat(1.0, roundTo3(score))
	classification := "bluetooth_drone_signature"
	if record.Detected {
		classification = "bluetooth_drone_remote_id"
	}

	result := Result{
		Source:         types.SourceBluetooth,
		Identifier:     identifier,
		Classification: classification,
		Confidence:     confidence,
		Payload: map[string]any{
			"device":  device,
			"reasons": reasons,
		},
	}
	if record.Detected {
		result.RemoteID = record
		result.Track = trackFromRemoteID(record, "bluetooth")
	}
	return []Result{result}
}

func asStringSlice(value any) []string {
	slice, ok := value.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(slice))
	for _, v := range slice {
		out = append(out, asString(v))
	}
	return out
}
