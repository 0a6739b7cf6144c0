package detector

import (
	"math"
	"testing"

	"github.com/skywatch/drone-ops/pkg/types"
)

// Scenario 1 from spec.md §8: SSID + OUI match clears the 0.5 WiFi
// threshold with both signals stacked.
func TestDetectFromEvent_WiFiSignature(t *testing.T) {
	results := DetectFromEvent("wifi", map[string]any{
		"bssid": "60:60:1F:AA:BB:CC",
		"ssid":  "DJI-OPS-TEST",
	}, "network_update")

	if len(results) != 1 {
		t.Fatalf("expected exactly one detection, got %d", len(results))
	}
	r := results[0]
	if r.Source != types.SourceWiFi {
		t.Errorf("source = %s, want wifi", r.Source)
	}
	if r.Classification != "wifi_drone_signature" {
		t.Errorf("classification = %s, want wifi_drone_signature", r.Classification)
	}
	if r.Confidence < 0.9 {
		t.Errorf("confidence = %v, want >= 0.9", r.Confidence)
	}
	if r.Identifier != "60:60:1F:AA:BB:CC" {
		t.Errorf("identifier = %s, want normalized BSSID", r.Identifier)
	}
}

func TestDetectFromEvent_WiFiBelowThreshold(t *testing.T) {
	results := DetectFromEvent("wifi", map[string]any{
		"bssid": "AA:BB:CC:DD:EE:FF",
		"ssid":  "HomeNetwork",
	}, "")
	if len(results) != 0 {
		t.Fatalf("expected no detections for an unrelated network, got %d", len(results))
	}
}

func TestDetectFromEvent_WiFiRemoteIDPayloadWins(t *testing.T) {
	results := DetectFromEvent("wifi", map[string]any{
		"bssid":   "11:22:33:44:55:66",
		"ssid":    "open-network",
		"uas_id":  "RID-1",
		"lat":     35.0,
		"lon":     -115.0,
	}, "")
	if len(results) != 1 {
		t.Fatalf("expected one detection, got %d", len(results))
	}
	if results[0].Classification != "wifi_drone_remote_id" {
		t.Errorf("classification = %s, want wifi_drone_remote_id", results[0].Classification)
	}
	if results[0].Track == nil {
		t.Error("expected a track candidate from the decoded remote-id position")
	}
}

// Scenario 5 from spec.md §8: 868.5MHz is 0.5MHz off the 868 hint.
func TestDetectFromEvent_RFBandMatch(t *testing.T) {
	results := DetectFromEvent("subghz", map[string]any{"frequency_mhz": 868.5}, "")
	if len(results) != 1 {
		t.Fatalf("expected one RF detection, got %d", len(results))
	}
	r := results[0]
	if r.Source != types.SourceRF {
		t.Errorf("source = %s, want rf", r.Source)
	}
	if math.Abs(r.Confidence-0.845) > 0.01 {
		t.Errorf("confidence = %v, want ~0.845", r.Confidence)
	}
}

func TestDetectFromEvent_RFOutOfBand(t *testing.T) {
	results := DetectFromEvent("subghz", map[string]any{"frequency_mhz": 3000.0}, "")
	if len(results) != 0 {
		t.Fatalf("expected no detection far from any known band, got %d", len(results))
	}
}

func TestDetectFromEvent_BluetoothRemoteIDServiceUUID(t *testing.T) {
	results := DetectFromEvent("bluetooth", map[string]any{
		"address": "AA:BB:CC:11:22:33",
		"name":    "unlabeled",
		"service_uuids": []any{
			"0000fffa-0000-1000-8000-00805f9bfffa",
		},
	}, "")
	if len(results) != 1 {
		t.Fatalf("expected one BT detection, got %d", len(results))
	}
	if results[0].Classification != "bluetooth_drone_signature" {
		t.Errorf("classification = %s, want bluetooth_drone_signature", results[0].Classification)
	}
}

func TestDetectFromEvent_BluetoothBelowThreshold(t *testing.T) {
	results := DetectFromEvent("bluetooth", map[string]any{
		"address": "AA:BB:CC:11:22:33",
		"name":    "random-earbuds",
	}, "")
	if len(results) != 0 {
		t.Fatalf("expected no detection for an unrelated BT device, got %d", len(results))
	}
}

func TestDetectFromEvent_UnknownModeOpportunisticProbe(t *testing.T) {
	results := DetectFromEvent("other", map[string]any{
		"uas_id": "RID-99",
		"lat":    1.0,
		"lon":    2.0,
	}, "")
	if len(results) != 1 {
		t.Fatalf("expected one opportunistic detection, got %d", len(results))
	}
	if results[0].Identifier != "RID-99" {
		t.Errorf("identifier = %s, want RID-99", results[0].Identifier)
	}
}

func TestDetectFromEvent_UnknownModeNoSignal(t *testing.T) {
	results := DetectFromEvent("other", map[string]any{"foo": "bar"}, "")
	if len(results) != 0 {
		t.Fatalf("expected no detection when nothing decodes, got %d", len(results))
	}
}
