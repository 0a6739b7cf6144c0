package types

import "time"

// DetectionSource is the sensing carrier a detection was derived from.
type DetectionSource string

const (
	SourceWiFi      DetectionSource = "wifi"
	SourceBluetooth DetectionSource = "bluetooth"
	SourceRF        DetectionSource = "rf"
)

// Detection is a normalized drone/operator sighting produced by a signature
// detector. Upsert key is (SessionID, Source, Identifier); an upsert refreshes
// LastSeen and may only widen Confidence, never shrink it.
type Detection struct {
	ID             int64           `json:"id"`
	SessionID      *int64          `json:"session_id,omitempty"`
	Source         DetectionSource `json:"source"`
	Identifier     string          `json:"identifier"`
	Classification string          `json:"classification"`
	Confidence     float64         `json:"confidence"`
	Payload        map[string]any  `json:"payload,omitempty"`
	RemoteID       *RemoteIDRecord `json:"remote_id,omitempty"`
	FirstSeen      time.Time       `json:"first_seen"`
	LastSeen       time.Time       `json:"last_seen"`
}

// Track is one append-only geospatial observation tied to a detection.
// Created only when both Lat and Lon are present.
type Track struct {
	ID          int64     `json:"id"`
	DetectionID int64     `json:"detection_id"`
	Lat         float64   `json:"lat"`
	Lon         float64   `json:"lon"`
	AltitudeM   *float64  `json:"altitude_m,omitempty"`
	SpeedMPS    *float64  `json:"speed_mps,omitempty"`
	HeadingDeg  *float64  `json:"heading_deg,omitempty"`
	Quality     *float64  `json:"quality,omitempty"`
	Source      string    `json:"source"`
	Timestamp   time.Time `json:"timestamp"`
}

// CorrelationMethod names how a Correlation was derived.
type CorrelationMethod string

const (
	MethodRemoteIDBinding   CorrelationMethod = "remote_id_binding"
	MethodWiFiBTCorrelation CorrelationMethod = "wifi_bt_correlation"
)

// Correlation links a drone-side identifier to an operator-side identifier.
// Append-only; duplicates are permitted in storage but deduplicated in
// queries by (DroneIdentifier, OperatorIdentifier, Method) keeping max
// confidence.
type Correlation struct {
	ID                 int64             `json:"id"`
	DroneIdentifier    string            `json:"drone_identifier"`
	OperatorIdentifier string            `json:"operator_identifier"`
	Method             CorrelationMethod `json:"method"`
	Confidence         float64           `json:"confidence"`
	Evidence           map[string]any    `json:"evidence,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
}
