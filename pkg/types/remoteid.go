package types

// RemoteIDSourceFormat records which normalization branch produced a
// RemoteIDRecord, for observability and round-trip testing.
type RemoteIDSourceFormat string

const (
	RemoteIDFormatDict  RemoteIDSourceFormat = "dict"
	RemoteIDFormatJSON  RemoteIDSourceFormat = "json"
	RemoteIDFormatRaw   RemoteIDSourceFormat = "raw"
	RemoteIDFormatEmpty RemoteIDSourceFormat = "empty"
)

// RemoteIDRecord is the fixed-shape output of the Remote-ID decoder.
type RemoteIDRecord struct {
	Detected     bool                 `json:"detected"`
	SourceFormat RemoteIDSourceFormat `json:"source_format"`
	UASID        *string              `json:"uas_id,omitempty"`
	OperatorID   *string              `json:"operator_id,omitempty"`
	Lat          *float64             `json:"lat,omitempty"`
	Lon          *float64             `json:"lon,omitempty"`
	AltitudeM    *float64             `json:"altitude_m,omitempty"`
	SpeedMPS     *float64             `json:"speed_mps,omitempty"`
	HeadingDeg   *float64             `json:"heading_deg,omitempty"`
	Confidence   float64              `json:"confidence"`
	Raw          map[string]any       `json:"raw"`
}

// HasPosition reports whether both Lat and Lon were extracted.
func (r *RemoteIDRecord) HasPosition() bool {
	return r != nil && r.Lat != nil && r.Lon != nil
}
