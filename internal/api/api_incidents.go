package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/skywatch/drone-ops/internal/authz"
	"github.com/skywatch/drone-ops/internal/config"
	"github.com/skywatch/drone-ops/internal/store"
	"github.com/skywatch/drone-ops/pkg/types"
)

func (s *Server) handleListIncidents(w http.ResponseWriter, r *http.Request) {
	params := store.IncidentListParams{
		Status: types.IncidentStatus(r.URL.Query().Get("status")),
		Limit:  parseLimit(r, config.DefaultPaginationLimit, config.MaxPaginationLimit),
	}

	incidents, err := s.svc.ListIncidents(r.Context(), params)
	if err != nil {
		s.writeAPIError(w, err)
		return
	}
	s.writeSuccess(w, http.StatusOK, map[string]any{"incidents": incidents})
}

type createIncidentRequest struct {
	Title    string                 `json:"title"`
	Severity types.IncidentSeverity `json:"severity"`
	Summary  string                 `json:"summary,omitempty"`
	Metadata map[string]any         `json:"metadata,omitempty"`
}

func (s *Server) handleCreateIncident(w http.ResponseWriter, r *http.Request) {
	var req createIncidentRequest
	if err := s.readJSON(r, &req); err != nil {
		s.writeAPIError(w, err)
		return
	}
	if req.Title == "" {
		s.writeValidationError(w, "title is required")
		return
	}

	incident, err := s.svc.CreateIncident(r.Context(), req.Title, req.Severity, authz.CurrentUser(r), req.Summary, req.Metadata)
	if err != nil {
		s.writeAPIError(w, err)
		return
	}
	s.writeSuccess(w, http.StatusOK, map[string]any{"incident": incident})
}

func (s *Server) handleGetIncident(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDPathValue(r, "id")
	if err != nil {
		s.writeValidationError(w, err.Error())
		return
	}

	incident, err := s.svc.GetIncident(r.Context(), id)
	if err != nil {
		s.writeAPIError(w, err)
		return
	}
	s.writeSuccess(w, http.StatusOK, map[string]any{"incident": incident})
}

type updateIncidentRequest struct {
	Status   *types.IncidentStatus   `json:"status,omitempty"`
	Severity *types.IncidentSeverity `json:"severity,omitempty"`
	Summary  *string                 `json:"summary,omitempty"`
	Metadata map[string]any          `json:"metadata,omitempty"`
}

func (s *Server) handleUpdateIncident(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDPathValue(r, "id")
	if err != nil {
		s.writeValidationError(w, err.Error())
		return
	}

	var req updateIncidentRequest
	if err := s.readJSON(r, &req); err != nil {
		s.writeAPIError(w, err)
		return
	}

	incident, err := s.svc.UpdateIncident(r.Context(), id, store.IncidentUpdate{
		Status:   req.Status,
		Severity: req.Severity,
		Summary:  req.Summary,
		Metadata: req.Metadata,
	})
	if err != nil {
		s.writeAPIError(w, err)
		return
	}
	s.writeSuccess(w, http.StatusOK, map[string]any{"incident": incident})
}

type addIncidentArtifactRequest struct {
	ArtifactType string         `json:"artifact_type"`
	ArtifactRef  string         `json:"artifact_ref"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

func (s *Server) handleAddIncidentArtifact(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDPathValue(r, "id")
	if err != nil {
		s.writeValidationError(w, err.Error())
		return
	}

	var req addIncidentArtifactRequest
	if err := s.readJSON(r, &req); err != nil {
		s.writeAPIError(w, err)
		return
	}
	if req.ArtifactType == "" || req.ArtifactRef == "" {
		s.writeValidationError(w, "artifact_type and artifact_ref are required")
		return
	}

	artifact, err := s.svc.AddIncidentArtifact(r.Context(), id, req.ArtifactType, req.ArtifactRef, authz.CurrentUser(r), req.Metadata)
	if err != nil {
		s.writeAPIError(w, err)
		return
	}
	s.writeSuccess(w, http.StatusOK, map[string]any{"artifact": artifact})
}

// parseIDPathValue extracts a required int64 path parameter.
func parseIDPathValue(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return id, nil
}
