// Package policy implements the time-bounded arming state machine: a
// single lock guards the armed/disarmed state, expiry is recomputed lazily
// on every read rather than via a timer goroutine.
package policy

import (
	"strings"
	"sync"
	"time"

	"github.com/skywatch/drone-ops/pkg/types"
)

const (
	minArmDuration     = 60 * time.Second
	maxArmDuration     = 7200 * time.Second
	defaultArmDuration = 900 * time.Second
)

// Engine holds the in-memory, process-local arming state behind a single
// mutex. The zero value is ready to use and starts disarmed.
type Engine struct {
	mu sync.Mutex

	armedUntil    *time.Time
	armedBy       string
	armReason     string
	armIncidentID *int64
}

// New returns a disarmed Engine.
func New() *Engine {
	return &Engine{}
}

// State returns the current policy snapshot, lazily clearing expired arming.
func (e *Engine) State() types.PolicyState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateLocked()
}

func (e *Engine) stateLocked() types.PolicyState {
	armed := e.armedUntil != nil && time.Now().Before(*e.armedUntil)
	if !armed {
		e.armedUntil = nil
		e.armedBy = ""
		e.armReason = ""
		e.armIncidentID = nil
	}

	state := types.PolicyState{Armed: armed}
	if armed {
		state.ArmedBy = e.armedBy
		state.ArmReason = e.armReason
		state.ArmIncidentID = e.armIncidentID
		state.ArmedUntil = e.armedUntil
	}
	return state
}

// Arm sets the armed window to duration (clamped to [60s, 7200s], defaulting
// to 900s when duration <= 0) starting now.
func (e *Engine) Arm(actor, reason string, incidentID int64, duration time.Duration) types.PolicyState {
	duration = clampDuration(duration)

	e.mu.Lock()
	defer e.mu.Unlock()

	until := time.Now().Add(duration)
	e.armedUntil = &until
	e.armedBy = actor
	e.armReason = reason
	e.armIncidentID = &incidentID

	return e.stateLocked()
}

// Disarm clears the armed window immediately.
func (e *Engine) Disarm() types.PolicyState {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.armedUntil = nil
	e.armedBy = ""
	e.armReason = ""
	e.armIncidentID = nil

	return e.stateLocked()
}

func clampDuration(d time.Duration) time.Duration {
	if d <= 0 {
		d = defaultArmDuration
	}
	if d < minArmDuration {
		return minArmDuration
	}
	if d > maxArmDuration {
		return maxArmDuration
	}
	return d
}

// RequiredApprovals returns the approval quorum for actionType: 1 for any
// type (trimmed, lower-cased) starting with "passive_", else 2.
func RequiredApprovals(actionType string) int {
	action := strings.ToLower(strings.TrimSpace(actionType))
	if strings.HasPrefix(action, "passive_") {
		return 1
	}
	return 2
}
