// Package types defines the core domain types shared between the service
// layer, the store, and the HTTP API.
//
// # Design Principles
//
// 1. Simplicity: Types represent the domain model directly, no ORM abstractions
// 2. Serialization: All types are JSON-serializable for API transport
// 3. Identity: Entity IDs are monotonic integers assigned by the store, never
//    client-supplied
package types

import "time"

// SessionMode distinguishes a surveillance session that only observes from
// one that may progress to an armed action.
type SessionMode string

const (
	SessionModePassive SessionMode = "passive"
	SessionModeActive  SessionMode = "active"
)

// Session is an operator-initiated surveillance window. At most one session
// with StoppedAt == nil may exist at a time.
type Session struct {
	ID        int64          `json:"id"`
	Mode      SessionMode    `json:"mode"`
	Label     string         `json:"label,omitempty"`
	Operator  string         `json:"operator"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	StartedAt time.Time      `json:"started_at"`
	StoppedAt *time.Time     `json:"stopped_at,omitempty"`
	Summary   map[string]any `json:"summary,omitempty"`
}

// Active reports whether the session has not yet been stopped.
func (s *Session) Active() bool {
	return s.StoppedAt == nil
}
