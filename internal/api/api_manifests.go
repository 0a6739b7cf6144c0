package api

import (
	"net/http"

	"github.com/skywatch/drone-ops/internal/apierr"
	"github.com/skywatch/drone-ops/internal/authz"
	"github.com/skywatch/drone-ops/internal/config"
)

func (s *Server) handleGenerateManifest(w http.ResponseWriter, r *http.Request) {
	incidentID, err := parseIDPathValue(r, "incident_id")
	if err != nil {
		s.writeValidationError(w, err.Error())
		return
	}

	manifest, err := s.svc.GenerateEvidenceManifest(r.Context(), incidentID, authz.CurrentUser(r))
	if err != nil {
		s.writeAPIError(w, err)
		return
	}
	if manifest == nil {
		s.writeAPIError(w, apierr.NotFound("incident %d not found", incidentID))
		return
	}
	s.writeSuccess(w, http.StatusOK, map[string]any{"manifest": manifest})
}

func (s *Server) handleGetManifest(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDPathValue(r, "id")
	if err != nil {
		s.writeValidationError(w, err.Error())
		return
	}

	manifest, err := s.svc.GetEvidenceManifest(r.Context(), id)
	if err != nil {
		s.writeAPIError(w, err)
		return
	}
	s.writeSuccess(w, http.StatusOK, map[string]any{"manifest": manifest})
}

func (s *Server) handleListManifests(w http.ResponseWriter, r *http.Request) {
	incidentID, err := parseIDPathValue(r, "incident_id")
	if err != nil {
		s.writeValidationError(w, err.Error())
		return
	}
	limit := parseLimit(r, config.DefaultPaginationLimit, config.MaxPaginationLimit)

	manifests, err := s.svc.ListEvidenceManifests(r.Context(), incidentID, limit)
	if err != nil {
		s.writeAPIError(w, err)
		return
	}
	s.writeSuccess(w, http.StatusOK, map[string]any{"manifests": manifests})
}
