package detector

import (
	"fmt"
	"strconv"

	"github.com/skywatch/drone-ops/pkg/types"
)

func extractFrequencyMHz(event map[string]any) *float64 {
	if event == nil {
		return nil
	}

	candidates := []any{event["frequency_mhz"], event["frequency"]}
	if hz, ok := event["frequency_hz"]; ok {
		if f := toFloat(hz); f != nil {
			mhz := *f / 1_000_000.0
			candidates = append(candidates, mhz)
		}
	}

	for _, c := range candidates {
		f := toFloat(c)
		if f == nil {
			continue
		}
		freq := *f
		if freq > 100000 {
			freq = freq / 1_000_000.0
		}
		if freq >= 1.0 && freq <= 7000.0 {
			rounded := roundToN(freq, 6)
			return &rounded
		}
	}

	text := asString(event["text"])
	if text == "" {
		text = asString(event["message"])
	}
	if text != "" {
		if match := rfFreqTextPattern.FindStringSubmatch(text); match != nil {
			if f, err := strconv.ParseFloat(match[1], 64); err == nil {
				return &f
			}
		}
	}

	return nil
}

func closestFreqDelta(freqMHz float64) float64 {
	min := -1.0
	for _, hint := range rfFreqHintsMHz {
		d := freqMHz - hint
		if d < 0 {
			d = -d
		}
		if min < 0 || d < min {
			min = d
		}
	}
	return min
}

func detectRF(event map[string]any) []Result {
	freqMHz := extractFrequencyMHz(event)
	if freqMHz == nil {
		return nil
	}

	delta := closestFreqDelta(*freqMHz)
	if delta > 35.0 {
		return nil
	}

	score := maxFloat(0.5, 0.85-(delta/100.0))
	confidence := minFloat(1.0, roundTo3(score))

	eventID := asString(event["capture_id"])
	if eventID == "" {
		eventID = asString(event["id"])
	}
	if eventID == "" {
		eventID = fmt.Sprintf("%.3fMHz", *freqMHz)
	}
	identifier := "rf:" + eventID

	payload := map[string]any{
		"event":                      event,
		"frequency_mhz":              *freqMHz,
		"delta_from_known_band_mhz":  roundToN(delta, 3),
		"known_bands_mhz":            rfFreqHintsMHz,
	}

	return []Result{{
		Source:         types.SourceRF,
		Identifier:     identifier,
		Classification: "rf_drone_link_activity",
		Confidence:     confidence,
		Payload:        payload,
	}}
}

func toFloat(value any) *float64 {
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

func roundToN(v float64, places int) float64 {
	mult := 1.0
	for i := 0; i < places; i++ {
		mult *= 10
	}
	return float64(int64(v*mult+0.5)) / mult
}
