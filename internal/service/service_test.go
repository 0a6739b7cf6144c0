package service

import (
	"context"
	"testing"
	"time"

	"github.com/skywatch/drone-ops/internal/bus"
	"github.com/skywatch/drone-ops/internal/store"
	"github.com/skywatch/drone-ops/internal/storetest"
	"github.com/skywatch/drone-ops/internal/testutil"
	"github.com/skywatch/drone-ops/pkg/types"
)

func newTestService() *Service {
	return NewService(storetest.New(), bus.New(), nil, nil, nil, nil, testutil.NewTestLogger())
}

func mustIncident(t *testing.T, s *Service) *types.Incident {
	t.Helper()
	inc, err := s.CreateIncident(context.Background(), "unauthorized drone over perimeter", types.SeverityMedium, "operator-a", "", nil)
	if err != nil {
		t.Fatalf("CreateIncident: %v", err)
	}
	return inc
}

// Scenario 3 from spec.md §8: a two-approval action type must be armed and
// carry two distinct approvals before it may execute.
func TestActionWorkflow_TwoApprovalGate(t *testing.T) {
	ctx := context.Background()
	s := newTestService()
	inc := mustIncident(t, s)

	req, err := s.RequestAction(ctx, inc.ID, "wifi_deauth_test", "operator-a", nil)
	if err != nil {
		t.Fatalf("RequestAction: %v", err)
	}
	if req.Status != types.ActionPending {
		t.Fatalf("expected pending, got %s", req.Status)
	}

	if _, err := s.ExecuteAction(ctx, req.ID, "operator-a"); err == nil {
		t.Fatal("expected execute-before-arm to fail")
	}

	s.ArmActions("operator-a", "test arm", inc.ID, 300)

	if _, err := s.ExecuteAction(ctx, req.ID, "operator-a"); err == nil {
		t.Fatal("expected execute with zero approvals to fail")
	}

	req, err = s.ApproveAction(ctx, req.ID, "supervisor-a", types.DecisionApproved, "")
	if err != nil {
		t.Fatalf("ApproveAction: %v", err)
	}
	if req.Status != types.ActionPending {
		t.Fatalf("expected still pending after 1/2 approvals, got %s", req.Status)
	}

	if _, err := s.ExecuteAction(ctx, req.ID, "operator-a"); err == nil {
		t.Fatal("expected execute with 1/2 approvals to fail")
	}

	req, err = s.ApproveAction(ctx, req.ID, "supervisor-b", types.DecisionApproved, "")
	if err != nil {
		t.Fatalf("ApproveAction: %v", err)
	}
	if req.Status != types.ActionApproved {
		t.Fatalf("expected approved after 2/2 approvals, got %s", req.Status)
	}

	executed, err := s.ExecuteAction(ctx, req.ID, "operator-a")
	if err != nil {
		t.Fatalf("ExecuteAction: %v", err)
	}
	if executed.Status != types.ActionExecuted {
		t.Fatalf("expected executed, got %s", executed.Status)
	}

	logs, err := s.ListActionAuditLogs(ctx, &req.ID, 0)
	if err != nil {
		t.Fatalf("ListActionAuditLogs: %v", err)
	}
	wantSeq := []types.AuditEventType{types.AuditRequested, types.AuditApproval, types.AuditApproval, types.AuditExecuted}
	if len(logs) != len(wantSeq) {
		t.Fatalf("expected %d audit entries, got %d", len(wantSeq), len(logs))
	}
	for i, want := range wantSeq {
		if logs[i].EventType != want {
			t.Errorf("audit[%d] = %s, want %s", i, logs[i].EventType, want)
		}
	}
}

// Scenario 4: passive_* action types only need one approval.
func TestActionWorkflow_PassiveSingleApproval(t *testing.T) {
	ctx := context.Background()
	s := newTestService()
	inc := mustIncident(t, s)

	req, err := s.RequestAction(ctx, inc.ID, "passive_spectrum_capture", "operator-a", nil)
	if err != nil {
		t.Fatalf("RequestAction: %v", err)
	}

	s.ArmActions("operator-a", "test arm", inc.ID, 300)

	req, err = s.ApproveAction(ctx, req.ID, "supervisor-a", types.DecisionApproved, "")
	if err != nil {
		t.Fatalf("ApproveAction: %v", err)
	}
	if req.Status != types.ActionApproved {
		t.Fatalf("expected approved after single approval on passive action, got %s", req.Status)
	}

	executed, err := s.ExecuteAction(ctx, req.ID, "operator-a")
	if err != nil {
		t.Fatalf("ExecuteAction: %v", err)
	}
	if executed.Status != types.ActionExecuted {
		t.Fatalf("expected executed, got %s", executed.Status)
	}
}

func TestApproveAction_RejectionIsTerminal(t *testing.T) {
	ctx := context.Background()
	s := newTestService()
	inc := mustIncident(t, s)

	req, _ := s.RequestAction(ctx, inc.ID, "rf_jam", "operator-a", nil)
	req, err := s.ApproveAction(ctx, req.ID, "supervisor-a", types.DecisionRejected, "bad idea")
	if err != nil {
		t.Fatalf("ApproveAction: %v", err)
	}
	if req.Status != types.ActionRejected {
		t.Fatalf("expected rejected, got %s", req.Status)
	}

	// A subsequent approval cannot resurrect a rejected request.
	if _, err := s.ApproveAction(ctx, req.ID, "supervisor-b", types.DecisionApproved, ""); err != nil {
		t.Fatalf("ApproveAction: %v", err)
	}
	req, err = s.GetActionRequest(ctx, req.ID)
	if err != nil {
		t.Fatalf("GetActionRequest: %v", err)
	}
	if req.Status != types.ActionRejected {
		t.Fatalf("expected rejected request to stay rejected, got %s", req.Status)
	}
}

func TestApproveAction_SameApproverIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestService()
	inc := mustIncident(t, s)

	req, _ := s.RequestAction(ctx, inc.ID, "rf_jam", "operator-a", nil)
	if _, err := s.ApproveAction(ctx, req.ID, "Supervisor-A", types.DecisionApproved, ""); err != nil {
		t.Fatalf("ApproveAction: %v", err)
	}
	// Same approver, different case — must be a no-op, not a second approval.
	again, err := s.ApproveAction(ctx, req.ID, "supervisor-a", types.DecisionApproved, "")
	if err != nil {
		t.Fatalf("ApproveAction (re-approve): %v", err)
	}
	if again.ApprovedCount() != 1 {
		t.Fatalf("expected ApprovedCount()==1 after duplicate approver, got %d", again.ApprovedCount())
	}
}

func TestExecuteAction_AlreadyExecutedFails(t *testing.T) {
	ctx := context.Background()
	s := newTestService()
	inc := mustIncident(t, s)

	req, _ := s.RequestAction(ctx, inc.ID, "passive_spectrum_capture", "operator-a", nil)
	s.ArmActions("operator-a", "test", inc.ID, 300)
	s.ApproveAction(ctx, req.ID, "supervisor-a", types.DecisionApproved, "")
	if _, err := s.ExecuteAction(ctx, req.ID, "operator-a"); err != nil {
		t.Fatalf("first ExecuteAction: %v", err)
	}
	if _, err := s.ExecuteAction(ctx, req.ID, "operator-a"); err == nil {
		t.Fatal("expected second execute to fail")
	}
}

func TestRequestAction_UnknownIncidentNotFound(t *testing.T) {
	s := newTestService()
	if _, err := s.RequestAction(context.Background(), 999, "passive_scan", "operator-a", nil); err == nil {
		t.Fatal("expected not-found error for unknown incident")
	}
}

func TestIncidentLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestService()
	inc := mustIncident(t, s)
	if inc.Status != types.IncidentOpen {
		t.Fatalf("expected new incident to be open, got %s", inc.Status)
	}

	art, err := s.AddIncidentArtifact(ctx, inc.ID, "capture", "s3://evidence/x.pcap", "operator-a", nil)
	if err != nil {
		t.Fatalf("AddIncidentArtifact: %v", err)
	}
	if art.ArtifactType == "" || art.ArtifactRef == "" {
		t.Fatal("expected artifact type/ref to be preserved")
	}

	closedStatus := types.IncidentClosed
	updated, err := s.UpdateIncident(ctx, inc.ID, updateWithStatus(closedStatus))
	if err != nil {
		t.Fatalf("UpdateIncident: %v", err)
	}
	if updated.Status != types.IncidentClosed {
		t.Fatalf("expected closed status, got %s", updated.Status)
	}
	if updated.ClosedAt == nil {
		t.Fatal("expected ClosedAt to be set on close")
	}
	if len(updated.Artifacts) != 1 {
		t.Fatalf("expected 1 artifact attached, got %d", len(updated.Artifacts))
	}
}

func TestSession_SingleActiveInvariant(t *testing.T) {
	ctx := context.Background()
	s := newTestService()

	first, err := s.StartSession(ctx, types.SessionModePassive, "", "operator-a", nil)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	second, err := s.StartSession(ctx, types.SessionModeActive, "", "operator-b", nil)
	if err != nil {
		t.Fatalf("StartSession (second): %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected idempotent start to return the existing session, got a new one")
	}

	stopped, err := s.StopSession(ctx, "operator-a", nil, nil)
	if err != nil {
		t.Fatalf("StopSession: %v", err)
	}
	if stopped == nil || stopped.ID != first.ID {
		t.Fatal("expected the active session to be stopped")
	}

	none, err := s.StopSession(ctx, "operator-a", nil, nil)
	if err != nil {
		t.Fatalf("StopSession (none active): %v", err)
	}
	if none != nil {
		t.Fatal("expected nil when no session is active")
	}
}

func TestIngestEvent_PersistsDetectionAndEmits(t *testing.T) {
	ctx := context.Background()
	s := newTestService()

	sub, cancel := s.Bus().Stream(ctx, time.Minute)
	defer cancel()

	s.IngestEvent(ctx, "wifi", map[string]any{
		"bssid": "60:60:1F:AA:BB:CC",
		"ssid":  "DJI-OPS-TEST",
	}, "network_update")

	select {
	case ev := <-sub:
		if ev.Type != types.EventDetection {
			t.Fatalf("expected detection event, got %s", ev.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a detection event to be emitted")
	}

	detections, err := s.ListDetections(ctx, detectionParams())
	if err != nil {
		t.Fatalf("ListDetections: %v", err)
	}
	if len(detections) != 1 {
		t.Fatalf("expected 1 persisted detection, got %d", len(detections))
	}
}

func TestIngestEvent_NoDetectionIsSilent(t *testing.T) {
	ctx := context.Background()
	s := newTestService()
	s.IngestEvent(ctx, "wifi", map[string]any{"ssid": "HomeNetwork"}, "")
	detections, _ := s.ListDetections(ctx, detectionParams())
	if len(detections) != 0 {
		t.Fatalf("expected no detections for an unrelated SSID, got %d", len(detections))
	}
}

func updateWithStatus(status types.IncidentStatus) store.IncidentUpdate {
	return store.IncidentUpdate{Status: &status}
}

func detectionParams() store.DetectionListParams {
	return store.DetectionListParams{Limit: 100}
}
