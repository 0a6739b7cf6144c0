// Package authz implements role-level and arming-gated access control for
// the HTTP surface: a minimum-role middleware and an armed-gate middleware,
// both rejecting with a JSON 403 body rather than the bare http.Error text
// the teacher uses for its API-key check, since this taxonomy (§7) needs
// structured required_role/current_role and policy fields in the body.
package authz

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/skywatch/drone-ops/pkg/types"
)

// Role is a session's privilege level. Levels are totally ordered:
// viewer < analyst < operator < supervisor < admin.
type Role string

const (
	RoleViewer     Role = "viewer"
	RoleAnalyst    Role = "analyst"
	RoleOperator   Role = "operator"
	RoleSupervisor Role = "supervisor"
	RoleAdmin      Role = "admin"
)

var roleLevels = map[Role]int{
	RoleViewer:     10,
	RoleAnalyst:    20,
	RoleOperator:   30,
	RoleSupervisor: 40,
	RoleAdmin:      50,
}

// Header names the caller's identity and role are read from. There is no
// session store in this control plane: the edge authenticator (out of
// scope) is expected to set these after verifying the caller.
const (
	RoleHeader = "X-Drone-Ops-Role"
	UserHeader = "X-Drone-Ops-User"
)

// CurrentRole returns the caller's role, defaulting to RoleViewer for a
// missing or unrecognized value.
func CurrentRole(r *http.Request) Role {
	role := Role(strings.ToLower(strings.TrimSpace(r.Header.Get(RoleHeader))))
	if _, ok := roleLevels[role]; !ok {
		return RoleViewer
	}
	return role
}

// CurrentUser returns the caller's username, defaulting to "anonymous".
func CurrentUser(r *http.Request) string {
	user := strings.TrimSpace(r.Header.Get(UserHeader))
	if user == "" {
		return "anonymous"
	}
	return user
}

// HasRole reports whether role satisfies the required minimum.
func HasRole(role, required Role) bool {
	actual, ok := roleLevels[role]
	if !ok {
		actual = roleLevels[RoleViewer]
	}
	requiredLevel, ok := roleLevels[required]
	if !ok {
		requiredLevel = roleLevels[RoleAdmin]
	}
	return actual >= requiredLevel
}

// RequireRole wraps a handler so it 403s with a typed body when the
// caller's role is below required.
func RequireRole(required Role, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role := CurrentRole(r)
		if !HasRole(role, required) {
			writeForbidden(w, string(required)+" role required", map[string]any{
				"required_role": required,
				"current_role":  role,
			})
			return
		}
		next(w, r)
	}
}

// PolicyStateProvider is satisfied by *service.Service. Defined here rather
// than imported to avoid authz depending on service: service never needs to
// depend on authz, so there is no cycle either way, but this keeps the
// dependency direction obviously one-way.
type PolicyStateProvider interface {
	PolicyState() types.PolicyState
}

// RequireArmed wraps a handler so it 403s with the current policy snapshot
// when the action plane is not armed.
func RequireArmed(provider PolicyStateProvider, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := provider.PolicyState()
		if !state.Armed {
			writeForbidden(w, "action plane is not armed", map[string]any{"policy": state})
			return
		}
		next(w, r)
	}
}

func writeForbidden(w http.ResponseWriter, message string, extra map[string]any) {
	body := map[string]any{"status": "error", "message": message}
	for k, v := range extra {
		body[k] = v
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	_ = json.NewEncoder(w).Encode(body)
}
