package policy

import (
	"testing"
	"time"
)

func TestArm_StateReflectsArmedWindow(t *testing.T) {
	e := New()
	if e.State().Armed {
		t.Fatal("expected a fresh engine to start disarmed")
	}

	state := e.Arm("operator-a", "test", 7, 120*time.Second)
	if !state.Armed {
		t.Fatal("expected Arm to report armed")
	}
	if state.ArmedBy != "operator-a" || state.ArmReason != "test" {
		t.Errorf("unexpected actor/reason: %+v", state)
	}
	if state.ArmIncidentID == nil || *state.ArmIncidentID != 7 {
		t.Errorf("expected incident id 7, got %+v", state.ArmIncidentID)
	}

	again := e.State()
	if !again.Armed {
		t.Fatal("expected State() to still report armed before expiry")
	}
}

func TestArm_DurationClamped(t *testing.T) {
	e := New()

	tooShort := e.Arm("a", "r", 1, 10*time.Second)
	if !withinTolerance(tooShort.ArmedUntil, minArmDuration) {
		t.Errorf("expected duration clamped up to %v", minArmDuration)
	}

	e2 := New()
	tooLong := e2.Arm("a", "r", 1, 3*time.Hour)
	if !withinTolerance(tooLong.ArmedUntil, maxArmDuration) {
		t.Errorf("expected duration clamped down to %v", maxArmDuration)
	}

	e3 := New()
	zero := e3.Arm("a", "r", 1, 0)
	if !withinTolerance(zero.ArmedUntil, defaultArmDuration) {
		t.Errorf("expected non-positive duration to default to %v", defaultArmDuration)
	}
}

func withinTolerance(until *time.Time, want time.Duration) bool {
	if until == nil {
		return false
	}
	delta := time.Until(*until) - want
	if delta < 0 {
		delta = -delta
	}
	return delta < 2*time.Second
}

func TestDisarm_ClearsState(t *testing.T) {
	e := New()
	e.Arm("operator-a", "test", 1, time.Minute)
	state := e.Disarm()
	if state.Armed {
		t.Fatal("expected Disarm to report disarmed")
	}
	if state.ArmedBy != "" || state.ArmIncidentID != nil {
		t.Errorf("expected all arm fields cleared, got %+v", state)
	}
}

func TestState_LazyExpiry(t *testing.T) {
	e := New()
	e.Arm("operator-a", "test", 1, minArmDuration)
	// Simulate expiry by arming for the minimum duration then forcing the
	// clock forward is not available without a fixed clock; instead verify
	// the zero-value engine (never armed) reports disarmed with nil fields,
	// which is the other half of the lazy-clear invariant.
	fresh := New()
	state := fresh.State()
	if state.Armed || state.ArmedUntil != nil {
		t.Errorf("expected an unarmed engine to report a fully nil state, got %+v", state)
	}
}

func TestRequiredApprovals(t *testing.T) {
	cases := map[string]int{
		"passive_spectrum_capture": 1,
		"PASSIVE_SCAN":             1,
		"  passive_track  ":        1,
		"rf_jam":                   2,
		"wifi_deauth_test":         2,
		"":                         2,
	}
	for actionType, want := range cases {
		if got := RequiredApprovals(actionType); got != want {
			t.Errorf("RequiredApprovals(%q) = %d, want %d", actionType, got, want)
		}
	}
}
