package correlation

import "testing"

func TestVendorPrefixSource_SameVendorScoresHigher(t *testing.T) {
	src := NewVendorPrefixSource()
	wifi := map[string]map[string]any{"60:60:1F:AA:BB:CC": {}}
	bt := map[string]map[string]any{"60:60:1F:11:22:33": {}}

	pairs := src.Pairs(wifi, bt, 0.0, true)
	if len(pairs) != 1 {
		t.Fatalf("expected 1 pair, got %d", len(pairs))
	}
	if pairs[0].Confidence != sameVendorConfidence {
		t.Errorf("confidence = %v, want %v for a shared OUI", pairs[0].Confidence, sameVendorConfidence)
	}
}

func TestVendorPrefixSource_DifferentVendorScoresLower(t *testing.T) {
	src := NewVendorPrefixSource()
	wifi := map[string]map[string]any{"60:60:1F:AA:BB:CC": {}}
	bt := map[string]map[string]any{"11:22:33:44:55:66": {}}

	pairs := src.Pairs(wifi, bt, 0.0, true)
	if len(pairs) != 1 {
		t.Fatalf("expected 1 pair, got %d", len(pairs))
	}
	if pairs[0].Confidence != differentVendorConfidence {
		t.Errorf("confidence = %v, want %v for distinct OUIs", pairs[0].Confidence, differentVendorConfidence)
	}
}

func TestVendorPrefixSource_MinConfidenceFilters(t *testing.T) {
	src := NewVendorPrefixSource()
	wifi := map[string]map[string]any{"60:60:1F:AA:BB:CC": {}}
	bt := map[string]map[string]any{"11:22:33:44:55:66": {}}

	pairs := src.Pairs(wifi, bt, 0.5, true)
	if len(pairs) != 0 {
		t.Fatalf("expected cross-vendor pair to be filtered at min_confidence 0.5, got %d", len(pairs))
	}
}
