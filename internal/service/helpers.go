package service

import "time"

// secondsToDuration converts an API-supplied duration_seconds into a
// time.Duration. Zero means "use the policy engine's default" — the engine
// itself clamps and defaults non-positive durations, so this is a type
// conversion, not a validation step.
func secondsToDuration(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}

// nowUTCISO formats the current instant the way synthesized summaries
// embed timestamps into free-form metadata maps.
func nowUTCISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}
