package apierr

import (
	"errors"
	"fmt"
	"testing"
)

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", Validation("bad %s", "input"), 400},
		{"authorization", Authorization("forbidden", "supervisor", "viewer"), 403},
		{"policy armed-gate", Policy(403, "action plane is not armed", nil), 403},
		{"policy insufficient approvals", Policy(400, "insufficient approvals (1/2)", nil), 400},
		{"not found", NotFound("incident %d not found", 7), 404},
		{"internal", Internal("boom", errors.New("db down")), 500},
		{"unclassified", errors.New("plain error"), 500},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Status(tc.err); got != tc.want {
				t.Errorf("Status() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestPolicyDefaultsExtraMap(t *testing.T) {
	err := Policy(403, "not armed", nil)
	if err.Extra == nil {
		t.Fatal("expected Extra to be initialized")
	}
	if err.Extra["_status"] != 403 {
		t.Errorf("expected _status 403, got %v", err.Extra["_status"])
	}
}

func TestAuthorizationExtraFields(t *testing.T) {
	err := Authorization("insufficient role", "operator", "viewer")
	if err.Extra["required_role"] != "operator" {
		t.Errorf("expected required_role 'operator', got %v", err.Extra["required_role"])
	}
	if err.Extra["current_role"] != "viewer" {
		t.Errorf("expected current_role 'viewer', got %v", err.Extra["current_role"])
	}
}

func TestErrorMessageWrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Internal("loading incident", cause)
	want := fmt.Sprintf("loading incident: %v", cause)
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, cause) {
		t.Error("expected Internal error to unwrap to its cause")
	}
}

func TestAsExtractsTypedError(t *testing.T) {
	var wrapped error = Validation("missing field")

	var apiErr *Error
	if !As(wrapped, &apiErr) {
		t.Fatal("expected As to succeed on a *Error")
	}
	if apiErr.Kind != KindValidation {
		t.Errorf("expected KindValidation, got %s", apiErr.Kind)
	}
}

func TestAsFailsOnPlainError(t *testing.T) {
	var apiErr *Error
	if As(errors.New("plain"), &apiErr) {
		t.Error("expected As to fail on a plain error")
	}
}
