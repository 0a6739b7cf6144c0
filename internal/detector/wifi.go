package detector

import (
	"strings"

	"github.com/skywatch/drone-ops/internal/remoteid"
	"github.com/skywatch/drone-ops/pkg/types"
)

func extractWiFiEvent(event map[string]any) map[string]any {
	if event == nil {
		return nil
	}
	if network := asMap(event["network"]); network != nil {
		return network
	}
	if _, hasBSSID := event["bssid"]; hasBSSID {
		return event
	}
	if _, hasESSID := event["essid"]; hasESSID {
		return event
	}
	if _, hasSSID := event["ssid"]; hasSSID {
		return event
	}
	return nil
}

func detectWiFi(event map[string]any) []Result {
	network := extractWiFiEvent(event)
	if network == nil {
		return nil
	}

	bssid := normalizeMAC(firstNonEmpty(network["bssid"], network["mac"], network["id"]))
	ssid := strings.TrimSpace(asString(firstNonEmpty(network["essid"], network["ssid"], network["display_name"])))
	identifier := bssid
	if identifier == "" {
		identifier = ssid
	}
	if identifier == "" {
		return nil
	}

	score := 0.0
	var reasons []string

	if ssid != "" {
		for _, pattern := range ssidPatterns {
			if pattern.MatchString(ssid) {
				score += 0.45
				reasons = append(reasons, "ssid_pattern")
				break
			}
		}
	}

	var brandHint string
	if len(bssid) >= 8 {
		prefix := bssid[:8]
		if brand, ok := droneOUIPrefixes[prefix]; ok {
			score += 0.45
			reasons = append(reasons, "known_oui:"+brand)
			brandHint = brand
		}
	}

	record := remoteid.Decode(remoteid.Dict(network))
	if record.Detected {
		score = maxFloat(score, 0.75)
		reasons = append(reasons, "remote_id_payload")
	}

	if score < 0.5 {
		return nil
	}

	confidence := minFloat(1.0, roundTo3(score))
	classification := "wifi_drone_signature"
	if record.Detected {
		classification = "wifi_drone_remote_id"
	}

	payload := map[string]any{
		"network": network,
		"reasons": reasons,
	}
	if brandHint != "" {
		payload["brand_hint"] = brandHint
	}

	result := Result{
		Source:         types.SourceWiFi,
		Identifier:     identifier,
		Classification: classification,
		Confidence:     confidence,
		Payload:        payload,
	}
	if record.Detected {
		result.RemoteID = record
		result.Track = trackFromRemoteID(record, "wifi")
	}
	return []Result{result}
}

func firstNonEmpty(values ...any) any {
	for _, v := range values {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		return v
	}
	return nil
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func roundTo3(v float64) float64 {
	return float64(int64(v*1000+0.5)) / 1000
}
