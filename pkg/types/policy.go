package types

import "time"

// PolicyState is the process-local (never persisted) armed/disarmed state
// of the action plane. Armed is true iff ArmedUntil is non-nil and in the
// future; the zero value is always disarmed.
type PolicyState struct {
	Armed         bool       `json:"armed"`
	ArmedBy       string     `json:"armed_by,omitempty"`
	ArmReason     string     `json:"arm_reason,omitempty"`
	ArmIncidentID *int64     `json:"arm_incident_id,omitempty"`
	ArmedUntil    *time.Time `json:"armed_until,omitempty"`
}
