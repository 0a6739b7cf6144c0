package api

import (
	"net/http"

	"github.com/skywatch/drone-ops/internal/authz"
	"github.com/skywatch/drone-ops/internal/config"
	"github.com/skywatch/drone-ops/internal/store"
	"github.com/skywatch/drone-ops/pkg/types"
)

type armRequest struct {
	Reason          string `json:"reason"`
	IncidentID      int64  `json:"incident_id"`
	DurationSeconds any    `json:"duration_seconds,omitempty"`
}

func (s *Server) handleArm(w http.ResponseWriter, r *http.Request) {
	var req armRequest
	if err := s.readJSON(r, &req); err != nil {
		s.writeAPIError(w, err)
		return
	}
	if req.Reason == "" {
		s.writeValidationError(w, "reason is required")
		return
	}

	state := s.svc.ArmActions(authz.CurrentUser(r), req.Reason, req.IncidentID, durationSecondsFromJSON(req.DurationSeconds))
	s.writeSuccess(w, http.StatusOK, map[string]any{"policy": state})
}

// durationSecondsFromJSON coerces a decoded duration_seconds field to an
// int, treating anything that isn't a whole JSON number (a float with a
// fractional part, a string, absent) as unset so the arm window falls back
// to its default.
func durationSecondsFromJSON(v any) int {
	n, ok := v.(float64)
	if !ok {
		return 0
	}
	if n != float64(int(n)) {
		return 0
	}
	return int(n)
}

type disarmRequest struct {
	Reason string `json:"reason,omitempty"`
}

func (s *Server) handleDisarm(w http.ResponseWriter, r *http.Request) {
	var req disarmRequest
	_ = s.readJSON(r, &req)

	state := s.svc.DisarmActions(authz.CurrentUser(r), req.Reason)
	s.writeSuccess(w, http.StatusOK, map[string]any{"policy": state})
}

type requestActionRequest struct {
	IncidentID int64          `json:"incident_id"`
	ActionType string         `json:"action_type"`
	Payload    map[string]any `json:"payload,omitempty"`
}

func (s *Server) handleRequestAction(w http.ResponseWriter, r *http.Request) {
	var req requestActionRequest
	if err := s.readJSON(r, &req); err != nil {
		s.writeAPIError(w, err)
		return
	}
	if req.ActionType == "" {
		s.writeValidationError(w, "action_type is required")
		return
	}

	request, err := s.svc.RequestAction(r.Context(), req.IncidentID, req.ActionType, authz.CurrentUser(r), req.Payload)
	if err != nil {
		s.writeAPIError(w, err)
		return
	}
	s.writeSuccess(w, http.StatusOK, map[string]any{"request": request, "required_approvals": s.svc.RequiredApprovals(req.ActionType)})
}

type approveActionRequest struct {
	Decision types.ApprovalDecision `json:"decision"`
	Notes    string                 `json:"notes,omitempty"`
}

func (s *Server) handleApproveAction(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDPathValue(r, "id")
	if err != nil {
		s.writeValidationError(w, err.Error())
		return
	}

	var req approveActionRequest
	if err := s.readJSON(r, &req); err != nil {
		s.writeAPIError(w, err)
		return
	}
	if req.Decision == "" {
		req.Decision = types.DecisionApproved
	}

	request, err := s.svc.ApproveAction(r.Context(), id, authz.CurrentUser(r), req.Decision, req.Notes)
	if err != nil {
		s.writeAPIError(w, err)
		return
	}
	s.writeSuccess(w, http.StatusOK, map[string]any{"request": request})
}

func (s *Server) handleExecuteAction(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDPathValue(r, "id")
	if err != nil {
		s.writeValidationError(w, err.Error())
		return
	}

	request, err := s.svc.ExecuteAction(r.Context(), id, authz.CurrentUser(r))
	if err != nil {
		s.writeAPIError(w, err)
		return
	}
	s.writeSuccess(w, http.StatusOK, map[string]any{"request": request})
}

func (s *Server) handleListActionRequests(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	params := store.ActionRequestListParams{
		Status: types.ActionStatus(query.Get("status")),
		Limit:  parseLimit(r, config.DefaultPaginationLimit, config.MaxPaginationLimit),
	}
	if raw := query.Get("incident_id"); raw != "" {
		if id, err := parseIDQueryValue(raw); err == nil {
			params.IncidentID = &id
		}
	}

	requests, err := s.svc.ListActionRequests(r.Context(), params)
	if err != nil {
		s.writeAPIError(w, err)
		return
	}
	s.writeSuccess(w, http.StatusOK, map[string]any{"requests": requests})
}

func (s *Server) handleGetActionRequest(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDPathValue(r, "id")
	if err != nil {
		s.writeValidationError(w, err.Error())
		return
	}

	request, err := s.svc.GetActionRequest(r.Context(), id)
	if err != nil {
		s.writeAPIError(w, err)
		return
	}
	s.writeSuccess(w, http.StatusOK, map[string]any{"request": request})
}

func (s *Server) handleListActionAudit(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	var requestID *int64
	if raw := query.Get("request_id"); raw != "" {
		if id, err := parseIDQueryValue(raw); err == nil {
			requestID = &id
		}
	}
	limit := parseLimit(r, config.DefaultPaginationLimit, config.MaxAuditPaginationLimit)

	logs, err := s.svc.ListActionAuditLogs(r.Context(), requestID, limit)
	if err != nil {
		s.writeAPIError(w, err)
		return
	}
	s.writeSuccess(w, http.StatusOK, map[string]any{"audit": logs})
}
