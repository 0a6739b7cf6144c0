// Package remoteid decodes heterogeneous Remote-ID payloads (structured
// mappings, JSON text, raw bytes, or opaque strings) into a normalized
// record with a confidence score.
package remoteid

// Payload is the open-unioned input to Decode: a mapping, JSON text, raw
// bytes, or an opaque string. Exactly one constructor should be used per
// call.
type Payload interface {
	payload()
}

// Dict wraps an already-parsed mapping (source_format = "dict").
type Dict map[string]any

func (Dict) payload() {}

// JSON wraps a JSON-encoded string to be parsed (source_format = "json" on
// success, "raw" if it doesn't parse to an object).
type JSON string

func (JSON) payload() {}

// Bytes wraps a raw byte payload, decoded as UTF-8 with replacement on
// invalid sequences before further normalization.
type Bytes []byte

func (Bytes) payload() {}

// Raw wraps an opaque string payload with no assumed structure.
type Raw string

func (Raw) payload() {}
