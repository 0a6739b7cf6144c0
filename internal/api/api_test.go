package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/skywatch/drone-ops/internal/authz"
	"github.com/skywatch/drone-ops/internal/bus"
	"github.com/skywatch/drone-ops/internal/service"
	"github.com/skywatch/drone-ops/internal/storetest"
	"github.com/skywatch/drone-ops/internal/testutil"
)

func newTestServer() *Server {
	svc := service.NewService(storetest.New(), bus.New(), nil, nil, nil, nil, testutil.NewTestLogger())
	return NewServer(svc, nil, testutil.NewTestLogger())
}

func doRequest(t *testing.T, srv *Server, method, path, role string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshaling request body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set(authz.RoleHeader, role)
		req.Header.Set(authz.UserHeader, role+"-user")
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response body (%s): %v", rec.Body.String(), err)
	}
	return body
}

func TestStatusEndpoint_DefaultsToViewerRole(t *testing.T) {
	srv := newTestServer()
	rec := doRequest(t, srv, http.MethodGet, "/drone-ops/status", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for an unauthenticated (viewer) status read, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSessionStart_RequiresOperatorRole(t *testing.T) {
	srv := newTestServer()
	rec := doRequest(t, srv, http.MethodPost, "/drone-ops/session/start", "viewer", map[string]any{
		"mode":     "passive",
		"operator": "viewer-user",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for a viewer starting a session, got %d", rec.Code)
	}
}

func TestSessionLifecycle_HTTP(t *testing.T) {
	srv := newTestServer()

	startRec := doRequest(t, srv, http.MethodPost, "/drone-ops/session/start", "operator", map[string]any{
		"mode":     "passive",
		"operator": "operator-user",
	})
	if startRec.Code != http.StatusOK {
		t.Fatalf("expected 200 starting a session, got %d: %s", startRec.Code, startRec.Body.String())
	}
	started := decodeBody(t, startRec)
	session, ok := started["session"].(map[string]any)
	if !ok {
		t.Fatalf("expected a session object in the response, got %v", started)
	}
	if session["stopped_at"] != nil {
		t.Errorf("expected a freshly started session to have no stopped_at, got %v", session["stopped_at"])
	}

	listRec := doRequest(t, srv, http.MethodGet, "/drone-ops/sessions", "viewer", nil)
	if listRec.Code != http.StatusOK {
		t.Fatalf("expected 200 listing sessions, got %d", listRec.Code)
	}
	listed := decodeBody(t, listRec)
	sessions, ok := listed["sessions"].([]any)
	if !ok || len(sessions) != 1 {
		t.Fatalf("expected exactly 1 session listed, got %v", listed["sessions"])
	}

	stopRec := doRequest(t, srv, http.MethodPost, "/drone-ops/session/stop", "operator", map[string]any{})
	if stopRec.Code != http.StatusOK {
		t.Fatalf("expected 200 stopping the active session, got %d: %s", stopRec.Code, stopRec.Body.String())
	}
}

func TestIncidentLifecycle_HTTP(t *testing.T) {
	srv := newTestServer()

	createRec := doRequest(t, srv, http.MethodPost, "/drone-ops/incidents", "operator", map[string]any{
		"title":    "unauthorized drone over perimeter",
		"severity": "medium",
	})
	if createRec.Code != http.StatusOK {
		t.Fatalf("expected 200 creating an incident, got %d: %s", createRec.Code, createRec.Body.String())
	}
	created := decodeBody(t, createRec)["incident"].(map[string]any)
	id := int64(created["id"].(float64))

	getRec := doRequest(t, srv, http.MethodGet, pathWithID("/drone-ops/incidents/%d", id), "viewer", nil)
	if getRec.Code != http.StatusOK {
		t.Fatalf("expected 200 fetching the incident, got %d", getRec.Code)
	}

	updateRec := doRequest(t, srv, http.MethodPut, pathWithID("/drone-ops/incidents/%d", id), "operator", map[string]any{
		"status": "monitoring",
	})
	if updateRec.Code != http.StatusOK {
		t.Fatalf("expected 200 updating the incident, got %d: %s", updateRec.Code, updateRec.Body.String())
	}
	updated := decodeBody(t, updateRec)["incident"].(map[string]any)
	if updated["status"] != "monitoring" {
		t.Errorf("status = %v, want monitoring", updated["status"])
	}
}

func TestIncidentCreate_MissingTitleIsRejected(t *testing.T) {
	srv := newTestServer()
	rec := doRequest(t, srv, http.MethodPost, "/drone-ops/incidents", "operator", map[string]any{
		"severity": "low",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a missing title, got %d", rec.Code)
	}
}

func TestActionWorkflow_HTTP_PassiveSingleApproval(t *testing.T) {
	srv := newTestServer()

	incRec := doRequest(t, srv, http.MethodPost, "/drone-ops/incidents", "operator", map[string]any{
		"title":    "unauthorized drone over perimeter",
		"severity": "medium",
	})
	inc := decodeBody(t, incRec)["incident"].(map[string]any)
	incidentID := int64(inc["id"].(float64))

	armRec := doRequest(t, srv, http.MethodPost, "/drone-ops/actions/arm", "operator", map[string]any{
		"reason":      "pursuing active track",
		"incident_id": incidentID,
	})
	if armRec.Code != http.StatusOK {
		t.Fatalf("expected 200 arming, got %d: %s", armRec.Code, armRec.Body.String())
	}

	reqRec := doRequest(t, srv, http.MethodPost, "/drone-ops/actions/request", "operator", map[string]any{
		"incident_id": incidentID,
		"action_type": "passive_spectrum_capture",
	})
	if reqRec.Code != http.StatusOK {
		t.Fatalf("expected 200 requesting an action, got %d: %s", reqRec.Code, reqRec.Body.String())
	}
	request := decodeBody(t, reqRec)["request"].(map[string]any)
	requestID := int64(request["id"].(float64))

	execBeforeApproval := doRequest(t, srv, http.MethodPost, pathWithID("/drone-ops/actions/execute/%d", requestID), "operator", nil)
	if execBeforeApproval.Code == http.StatusOK {
		t.Fatal("expected execute before approval to fail")
	}

	approveRec := doRequest(t, srv, http.MethodPost, pathWithID("/drone-ops/actions/approve/%d", requestID), "supervisor", map[string]any{
		"decision": "approved",
	})
	if approveRec.Code != http.StatusOK {
		t.Fatalf("expected 200 approving, got %d: %s", approveRec.Code, approveRec.Body.String())
	}

	execRec := doRequest(t, srv, http.MethodPost, pathWithID("/drone-ops/actions/execute/%d", requestID), "operator", nil)
	if execRec.Code != http.StatusOK {
		t.Fatalf("expected 200 executing, got %d: %s", execRec.Code, execRec.Body.String())
	}
	executed := decodeBody(t, execRec)["request"].(map[string]any)
	if executed["status"] != "executed" {
		t.Errorf("status = %v, want executed", executed["status"])
	}
}

func TestActionExecute_RequiresArmedPolicy(t *testing.T) {
	srv := newTestServer()

	incRec := doRequest(t, srv, http.MethodPost, "/drone-ops/incidents", "operator", map[string]any{
		"title":    "unauthorized drone over perimeter",
		"severity": "medium",
	})
	inc := decodeBody(t, incRec)["incident"].(map[string]any)
	incidentID := int64(inc["id"].(float64))

	reqRec := doRequest(t, srv, http.MethodPost, "/drone-ops/actions/request", "operator", map[string]any{
		"incident_id": incidentID,
		"action_type": "passive_spectrum_capture",
	})
	request := decodeBody(t, reqRec)["request"].(map[string]any)
	requestID := int64(request["id"].(float64))

	doRequest(t, srv, http.MethodPost, pathWithID("/drone-ops/actions/approve/%d", requestID), "supervisor", map[string]any{
		"decision": "approved",
	})

	// Never armed: execute must 403 regardless of approval state.
	execRec := doRequest(t, srv, http.MethodPost, pathWithID("/drone-ops/actions/execute/%d", requestID), "operator", nil)
	if execRec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 executing while disarmed, got %d: %s", execRec.Code, execRec.Body.String())
	}
}

func TestCORSPreflight_RespondsOK(t *testing.T) {
	srv := newTestServer()
	req := httptest.NewRequest(http.MethodOptions, "/drone-ops/status", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for an OPTIONS preflight, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("expected a permissive CORS origin header")
	}
}

func pathWithID(format string, id int64) string {
	return fmt.Sprintf(format, id)
}
