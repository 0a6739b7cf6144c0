package geolocation

import "testing"

func TestEstimate_RequiresMinimumObservations(t *testing.T) {
	e := NewCentroidEstimator()
	_, err := e.Estimate([]Observation{{Lat: 1, Lon: 1}, {Lat: 2, Lon: 2}}, "")
	if err == nil {
		t.Fatal("expected an error with fewer than 3 observations")
	}
}

func TestEstimate_WeightedCentroid(t *testing.T) {
	e := NewCentroidEstimator()
	estimate, err := e.Estimate([]Observation{
		{Lat: 10.0, Lon: 20.0, Quality: 1.0},
		{Lat: 10.0, Lon: 20.0, Quality: 1.0},
		{Lat: 10.0, Lon: 20.0, Quality: 1.0},
	}, "")
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	if estimate.Lat != 10.0 || estimate.Lon != 20.0 {
		t.Errorf("expected centroid of identical fixes to equal the fix, got (%v, %v)", estimate.Lat, estimate.Lon)
	}
	if estimate.Environment != "outdoor" {
		t.Errorf("expected default environment outdoor, got %s", estimate.Environment)
	}
	if estimate.Confidence != 1.0 {
		t.Errorf("expected confidence 1.0 for identical fixes, got %v", estimate.Confidence)
	}
}

func TestEstimate_IndoorDeratesConfidence(t *testing.T) {
	e := NewCentroidEstimator()
	obs := []Observation{
		{Lat: 10.0, Lon: 20.0, Quality: 1.0},
		{Lat: 10.0, Lon: 20.0, Quality: 1.0},
		{Lat: 10.0, Lon: 20.0, Quality: 1.0},
	}
	outdoor, err := e.Estimate(obs, "outdoor")
	if err != nil {
		t.Fatalf("Estimate (outdoor): %v", err)
	}
	indoor, err := e.Estimate(obs, "indoor")
	if err != nil {
		t.Fatalf("Estimate (indoor): %v", err)
	}
	if indoor.Confidence >= outdoor.Confidence {
		t.Errorf("expected indoor confidence (%v) to be lower than outdoor (%v)", indoor.Confidence, outdoor.Confidence)
	}
}
