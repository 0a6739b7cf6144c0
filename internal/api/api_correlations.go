package api

import (
	"net/http"

	"github.com/skywatch/drone-ops/internal/config"
)

// handleGetCorrelations serves GET /drone-ops/correlations. refresh=true (the
// default) runs a correlation pass and is rate-limited; refresh=false reads
// the short-TTL response cache.
func (s *Server) handleGetCorrelations(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	minConfidence := parseFloat(query.Get("min_confidence"), config.DefaultCorrelationMinConfidence)
	refresh := query.Get("refresh") != "false"

	if refresh && !s.correlationLimiter.Allow() {
		s.writeRateLimited(w, "correlation refresh rate limit exceeded")
		return
	}

	correlations, err := s.svc.GetCorrelations(r.Context(), minConfidence, refresh)
	if err != nil {
		s.writeAPIError(w, err)
		return
	}
	s.writeSuccess(w, http.StatusOK, map[string]any{"correlations": correlations})
}
