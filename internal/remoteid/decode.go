package remoteid

import (
	"encoding/json"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/skywatch/drone-ops/pkg/types"
)

var (
	uasIDKeys      = []string{"uas_id", "drone_id", "serial_number", "serial", "id", "uasId"}
	operatorIDKeys = []string{"operator_id", "pilot_id", "operator", "operatorId"}
	latKeys        = []string{"lat", "latitude"}
	lonKeys        = []string{"lon", "lng", "longitude"}
	altKeys        = []string{"alt", "altitude", "altitude_m", "height"}
	speedKeys      = []string{"speed", "speed_mps", "ground_speed"}
	headingKeys    = []string{"heading", "heading_deg", "course"}
)

// Decode normalizes payload into a fixed-shape RemoteIDRecord per the
// normalization rules: mappings pass through as-is, byte/string payloads are
// UTF-8 decoded and trimmed, then JSON-parsed when possible, falling back to
// an opaque raw string.
func Decode(payload Payload) *types.RemoteIDRecord {
	data, format := normalize(payload)

	uasID := pick(data, uasIDKeys, "remote_id", "message", "uas")
	operatorID := pick(data, operatorIDKeys, "remote_id", "message", "operator")
	lat := coerceFloat(pick(data, latKeys, "remote_id", "message", "position"))
	lon := coerceFloat(pick(data, lonKeys, "remote_id", "message", "position"))
	altitude := coerceFloat(pick(data, altKeys, "remote_id", "message", "position"))
	speed := coerceFloat(pick(data, speedKeys, "remote_id", "message", "position"))
	heading := coerceFloat(pick(data, headingKeys, "remote_id", "message", "position"))

	confidence := 0.0
	uasIDStr := stringify(uasID)
	if uasIDStr != "" {
		confidence += 0.35
	}
	if lat != nil && lon != nil {
		confidence += 0.35
	}
	if altitude != nil {
		confidence += 0.15
	}
	operatorIDStr := stringify(operatorID)
	if operatorIDStr != "" {
		confidence += 0.15
	}
	confidence = roundTo(confidence, 3)
	if confidence > 1.0 {
		confidence = 1.0
	}

	detected := uasIDStr != "" || (lat != nil && lon != nil && confidence >= 0.35)

	record := &types.RemoteIDRecord{
		Detected:     detected,
		SourceFormat: format,
		Lat:          lat,
		Lon:          lon,
		AltitudeM:    altitude,
		SpeedMPS:     speed,
		HeadingDeg:   heading,
		Confidence:   confidence,
		Raw:          data,
	}
	if uasIDStr != "" {
		record.UASID = &uasIDStr
	}
	if operatorIDStr != "" {
		record.OperatorID = &operatorIDStr
	}
	return record
}

// normalize applies the input-normalization rules and returns the working
// map and the source_format tag.
func normalize(payload Payload) (map[string]any, types.RemoteIDSourceFormat) {
	switch p := payload.(type) {
	case Dict:
		return map[string]any(p), types.RemoteIDFormatDict
	case JSON:
		return normalizeText(string(p))
	case Bytes:
		return normalizeText(decodeUTF8(p))
	case Raw:
		return normalizeText(string(p))
	default:
		return map[string]any{}, types.RemoteIDFormatEmpty
	}
}

func decodeUTF8(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	return strings.ToValidUTF8(string(b), "�")
}

func normalizeText(text string) (map[string]any, types.RemoteIDSourceFormat) {
	text = strings.TrimSpace(text)
	if text == "" {
		return map[string]any{}, types.RemoteIDFormatEmpty
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(text), &parsed); err == nil && parsed != nil {
		return parsed, types.RemoteIDFormatJSON
	}

	return map[string]any{"raw": text}, types.RemoteIDFormatRaw
}

// pick probes keys at the top level, then under each nested prefix in order.
func pick(data map[string]any, keys []string, nestedPrefixes ...string) any {
	for _, key := range keys {
		if v, ok := data[key]; ok {
			return v
		}
	}
	for _, prefix := range nestedPrefixes {
		for _, key := range keys {
			if v, ok := getNested(data, prefix+"."+key); ok {
				return v
			}
		}
	}
	return nil
}

func getNested(data map[string]any, path string) (any, bool) {
	parts := strings.Split(path, ".")
	var current any = data
	for _, part := range parts {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		v, ok := m[part]
		if !ok {
			return nil, false
		}
		current = v
	}
	return current, true
}

func coerceFloat(value any) *float64 {
	switch v := value.(type) {
	case nil:
		return nil
	case float64:
		return &v
	case float32:
		f := float64(v)
		return &f
	case int:
		f := float64(v)
		return &f
	case int64:
		f := float64(v)
		return &f
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return nil
		}
		return &f
	case string:
		if v == "" {
			return nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil
		}
		return &f
	default:
		return nil
	}
}

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	default:
		return strings.TrimSpace(jsonScalarString(v))
	}
}

// jsonScalarString renders a non-string scalar (numbers, bools) the way the
// original's str() coercion would, without pulling in fmt's default verbs
// for floats that would introduce trailing zeros.
func jsonScalarString(v any) string {
	switch n := v.(type) {
	case float64:
		return strconv.FormatFloat(n, 'g', -1, 64)
	case int:
		return strconv.Itoa(n)
	case int64:
		return strconv.FormatInt(n, 10)
	case bool:
		return strconv.FormatBool(n)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func roundTo(value float64, places int) float64 {
	mult := 1.0
	for i := 0; i < places; i++ {
		mult *= 10
	}
	return float64(int64(value*mult+0.5)) / mult
}
