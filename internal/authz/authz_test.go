package authz

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/skywatch/drone-ops/pkg/types"
)

func TestHasRole_TotalOrder(t *testing.T) {
	cases := []struct {
		role, required Role
		want           bool
	}{
		{RoleViewer, RoleViewer, true},
		{RoleViewer, RoleAnalyst, false},
		{RoleSupervisor, RoleOperator, true},
		{RoleOperator, RoleSupervisor, false},
		{RoleAdmin, RoleAdmin, true},
	}
	for _, c := range cases {
		if got := HasRole(c.role, c.required); got != c.want {
			t.Errorf("HasRole(%s, %s) = %v, want %v", c.role, c.required, got, c.want)
		}
	}
}

func TestCurrentRole_DefaultsToViewer(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if CurrentRole(req) != RoleViewer {
		t.Errorf("expected a missing role header to default to viewer")
	}

	req.Header.Set(RoleHeader, "bogus")
	if CurrentRole(req) != RoleViewer {
		t.Errorf("expected an unrecognized role header to default to viewer")
	}

	req.Header.Set(RoleHeader, "Supervisor")
	if CurrentRole(req) != RoleSupervisor {
		t.Errorf("expected role header to be case-insensitive")
	}
}

func TestRequireRole_RejectsInsufficientRole(t *testing.T) {
	called := false
	handler := RequireRole(RoleOperator, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set(RoleHeader, "viewer")
	rec := httptest.NewRecorder()
	handler(rec, req)

	if called {
		t.Fatal("expected the wrapped handler not to run")
	}
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response body: %v", err)
	}
	if body["required_role"] != string(RoleOperator) {
		t.Errorf("expected required_role in body, got %v", body["required_role"])
	}
	if body["current_role"] != string(RoleViewer) {
		t.Errorf("expected current_role in body, got %v", body["current_role"])
	}
}

func TestRequireRole_AllowsSufficientRole(t *testing.T) {
	called := false
	handler := RequireRole(RoleOperator, func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set(RoleHeader, "supervisor")
	rec := httptest.NewRecorder()
	handler(rec, req)

	if !called {
		t.Fatal("expected the wrapped handler to run")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

type fakePolicyProvider struct{ state types.PolicyState }

func (f fakePolicyProvider) PolicyState() types.PolicyState { return f.state }

func TestRequireArmed_RejectsWhenDisarmed(t *testing.T) {
	handler := RequireArmed(fakePolicyProvider{}, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("expected handler not to run while disarmed")
	})
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestRequireArmed_AllowsWhenArmed(t *testing.T) {
	called := false
	handler := RequireArmed(fakePolicyProvider{state: types.PolicyState{Armed: true}}, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)
	if !called {
		t.Fatal("expected handler to run while armed")
	}
}
