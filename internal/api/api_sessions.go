package api

import (
	"net/http"
	"strconv"

	"github.com/skywatch/drone-ops/internal/config"
	"github.com/skywatch/drone-ops/pkg/types"
)

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, config.DefaultPaginationLimit, config.MaxPaginationLimit)
	activeOnly := r.URL.Query().Get("active_only") == "true"

	sessions, err := s.svc.ListSessions(r.Context(), limit, activeOnly)
	if err != nil {
		s.writeAPIError(w, err)
		return
	}
	s.writeSuccess(w, http.StatusOK, map[string]any{"sessions": sessions})
}

type startSessionRequest struct {
	Mode     types.SessionMode `json:"mode"`
	Label    string            `json:"label,omitempty"`
	Operator string            `json:"operator"`
	Metadata map[string]any    `json:"metadata,omitempty"`
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := s.readJSON(r, &req); err != nil {
		s.writeAPIError(w, err)
		return
	}

	session, err := s.svc.StartSession(r.Context(), req.Mode, req.Label, req.Operator, req.Metadata)
	if err != nil {
		s.writeAPIError(w, err)
		return
	}
	s.writeSuccess(w, http.StatusOK, map[string]any{"session": session})
}

type stopSessionRequest struct {
	ID      *int64         `json:"id,omitempty"`
	Summary map[string]any `json:"summary,omitempty"`
}

func (s *Server) handleStopSession(w http.ResponseWriter, r *http.Request) {
	var req stopSessionRequest
	if err := s.readJSON(r, &req); err != nil {
		s.writeAPIError(w, err)
		return
	}

	operator := r.URL.Query().Get("operator")
	session, err := s.svc.StopSession(r.Context(), operator, req.ID, req.Summary)
	if err != nil {
		s.writeAPIError(w, err)
		return
	}
	if session == nil {
		s.writeAPIError(w, notFoundNoActiveSession())
		return
	}
	s.writeSuccess(w, http.StatusOK, map[string]any{"session": session})
}

// parseLimit reads and bounds a "limit" query parameter, falling back to
// def on an absent or malformed value.
func parseLimit(r *http.Request, def, max int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
