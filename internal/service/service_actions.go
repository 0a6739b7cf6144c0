package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/skywatch/drone-ops/internal/apierr"
	"github.com/skywatch/drone-ops/internal/store"
	"github.com/skywatch/drone-ops/pkg/types"
)

// RequestAction opens an action request against an incident, pending
// approval, and writes the opening audit entry.
func (s *Service) RequestAction(ctx context.Context, incidentID int64, actionType, requestedBy string, payload map[string]any) (*types.ActionRequest, error) {
	if _, err := s.GetIncident(ctx, incidentID); err != nil {
		return nil, err
	}

	request := &types.ActionRequest{
		IncidentID:  incidentID,
		ActionType:  actionType,
		RequestedBy: requestedBy,
		Payload:     payload,
	}
	if err := s.store.CreateActionRequest(ctx, request); err != nil {
		return nil, apierr.Internal("creating action request", err)
	}

	if err := s.store.AddActionAuditLog(ctx, &types.ActionAuditLog{
		RequestID: request.ID,
		EventType: types.AuditRequested,
		Actor:     requestedBy,
		Details:   map[string]any{"payload": payload},
	}); err != nil {
		return nil, apierr.Internal("writing action audit log", err)
	}

	request, err := s.reloadActionRequest(ctx, request.ID)
	if err != nil {
		return nil, err
	}

	s.bus.Emit(types.EventActionRequested, map[string]any{
		"request": request, "required_approvals": s.RequiredApprovals(actionType),
	})
	return request, nil
}

// GetActionRequest loads a request with its approvals attached.
func (s *Service) GetActionRequest(ctx context.Context, id int64) (*types.ActionRequest, error) {
	return s.reloadActionRequest(ctx, id)
}

func (s *Service) reloadActionRequest(ctx context.Context, id int64) (*types.ActionRequest, error) {
	request, err := s.store.GetActionRequest(ctx, id)
	if err != nil {
		return nil, apierr.Internal("loading action request", err)
	}
	if request == nil {
		return nil, apierr.NotFound("action request %d not found", id)
	}
	return request, nil
}

// ListActionRequests returns requests matching the given filters.
func (s *Service) ListActionRequests(ctx context.Context, params store.ActionRequestListParams) ([]types.ActionRequest, error) {
	requests, err := s.store.ListActionRequests(ctx, params)
	if err != nil {
		return nil, apierr.Internal("listing action requests", err)
	}
	return requests, nil
}

// ApproveAction records an approver's decision. Re-approving by the same
// approver (case-insensitively) is a no-op: the current request is returned
// unchanged and no audit entry is written.
func (s *Service) ApproveAction(ctx context.Context, requestID int64, approver string, decision types.ApprovalDecision, notes string) (*types.ActionRequest, error) {
	request, err := s.reloadActionRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	already, err := s.store.HasActionApproval(ctx, requestID, approver)
	if err != nil {
		return nil, apierr.Internal("checking existing approval", err)
	}
	if already {
		return request, nil
	}

	if err := s.store.AddActionApproval(ctx, requestID, types.ActionApproval{
		ApprovedBy: approver, Decision: decision, Notes: notes,
	}); err != nil {
		return nil, apierr.Internal("recording approval", err)
	}
	if err := s.store.AddActionAuditLog(ctx, &types.ActionAuditLog{
		RequestID: requestID,
		EventType: types.AuditApproval,
		Actor:     approver,
		Details:   map[string]any{"decision": decision, "notes": notes},
	}); err != nil {
		return nil, apierr.Internal("writing action audit log", err)
	}

	request, err = s.reloadActionRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	required := s.RequiredApprovals(request.ActionType)
	switch {
	case strings.EqualFold(string(decision), string(types.DecisionRejected)):
		if err := s.store.UpdateActionRequestStatus(ctx, requestID, types.ActionRejected, ""); err != nil {
			return nil, apierr.Internal("rejecting action request", err)
		}
	case request.ApprovedCount() >= required && request.Status != types.ActionExecuted && request.Status != types.ActionRejected:
		if err := s.store.UpdateActionRequestStatus(ctx, requestID, types.ActionApproved, ""); err != nil {
			return nil, apierr.Internal("approving action request", err)
		}
	}

	request, err = s.reloadActionRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	s.bus.Emit(types.EventActionApproved, map[string]any{
		"request": request, "approved_count": request.ApprovedCount(), "required_approvals": required,
	})
	return request, nil
}

// ExecuteAction dispatches an action request. It requires the policy engine
// to be armed and the approval quorum met; executing an already-executed
// request is rejected rather than silently repeated.
func (s *Service) ExecuteAction(ctx context.Context, requestID int64, actor string) (*types.ActionRequest, error) {
	request, err := s.reloadActionRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if request.Status == types.ActionExecuted {
		return nil, apierr.Policy(400, "action request already executed", nil)
	}
	if request.Status == types.ActionRejected {
		return nil, apierr.Policy(400, "action request was rejected", nil)
	}

	policyState := s.PolicyState()
	if !policyState.Armed {
		return nil, apierr.Policy(403, "action plane is not armed", map[string]any{"policy": policyState})
	}

	required := s.RequiredApprovals(request.ActionType)
	approved := request.ApprovedCount()
	if approved < required {
		return nil, apierr.Policy(400, insufficientApprovalsMessage(approved, required), map[string]any{
			"approved_count": approved, "required_approvals": required,
		})
	}

	if err := s.store.UpdateActionRequestStatus(ctx, requestID, types.ActionExecuted, actor); err != nil {
		return nil, apierr.Internal("executing action request", err)
	}
	if err := s.store.AddActionAuditLog(ctx, &types.ActionAuditLog{
		RequestID: requestID,
		EventType: types.AuditExecuted,
		Actor:     actor,
		Details: map[string]any{
			"dispatch": "framework",
			"note":     "Execution recorded. Attach route-specific handlers per action_type.",
		},
	}); err != nil {
		return nil, apierr.Internal("writing action audit log", err)
	}

	request, err = s.reloadActionRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	s.bus.Emit(types.EventActionExecuted, map[string]any{
		"request": request, "approved_count": request.ApprovedCount(), "required_approvals": required,
	})
	return request, nil
}

func insufficientApprovalsMessage(approved, required int) string {
	return fmt.Sprintf("insufficient approvals (%d/%d)", approved, required)
}

// ListActionAuditLogs returns audit entries, optionally filtered to one
// request.
func (s *Service) ListActionAuditLogs(ctx context.Context, requestID *int64, limit int) ([]types.ActionAuditLog, error) {
	logs, err := s.store.ListActionAuditLogs(ctx, requestID, limit)
	if err != nil {
		return nil, apierr.Internal("listing action audit logs", err)
	}
	return logs, nil
}
