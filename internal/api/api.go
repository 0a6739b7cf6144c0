// Package api provides the HTTP surface for the drone operations control
// plane.
//
// # Endpoints
//
//   - GET  /drone-ops/health                       - process + dependency health
//   - GET  /drone-ops/status                        - active session, policy, counts
//   - GET  /drone-ops/sessions                      - list sessions
//   - POST /drone-ops/session/start                 - start (or resume) a session
//   - POST /drone-ops/session/stop                  - stop a session
//   - GET  /drone-ops/detections                    - list detections
//   - GET  /drone-ops/tracks                        - list track points
//   - GET  /drone-ops/stream                        - SSE event stream
//   - POST /drone-ops/ingest                        - push a sensor event
//   - POST /drone-ops/remote-id/decode              - decode a Remote-ID payload
//   - POST /drone-ops/geolocate/estimate             - estimate a location
//   - GET  /drone-ops/correlations                  - list/refresh correlations
//   - GET  /drone-ops/incidents                     - list incidents
//   - POST /drone-ops/incidents                     - create an incident
//   - GET  /drone-ops/incidents/{id}                - get an incident
//   - PUT  /drone-ops/incidents/{id}                - update an incident
//   - POST /drone-ops/incidents/{id}/artifacts      - attach an artifact
//   - POST /drone-ops/actions/arm                   - arm the action plane
//   - POST /drone-ops/actions/disarm                - disarm the action plane
//   - POST /drone-ops/actions/request                - open an action request
//   - POST /drone-ops/actions/approve/{id}           - approve/reject a request
//   - POST /drone-ops/actions/execute/{id}           - execute a request
//   - GET  /drone-ops/actions/requests               - list action requests
//   - GET  /drone-ops/actions/requests/{id}          - get an action request
//   - GET  /drone-ops/actions/audit                  - list audit events
//   - POST /drone-ops/evidence/{incident_id}/manifest - generate a manifest
//   - GET  /drone-ops/evidence/manifests/{id}        - get a manifest
//   - GET  /drone-ops/evidence/{incident_id}/manifests - list manifests
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/skywatch/drone-ops/internal/apierr"
	"github.com/skywatch/drone-ops/internal/authz"
	"github.com/skywatch/drone-ops/internal/config"
	"github.com/skywatch/drone-ops/internal/health"
	"github.com/skywatch/drone-ops/internal/service"
)

// Server is the HTTP API server.
type Server struct {
	svc                *service.Service
	healthCollector    *health.Collector
	logger             *slog.Logger
	mux                *http.ServeMux
	ingestLimiter      *rate.Limiter
	correlationLimiter *rate.Limiter
}

// NewServer creates a new API server wired to its collaborators.
func NewServer(svc *service.Service, healthCollector *health.Collector, logger *slog.Logger) *Server {
	s := &Server{
		svc:                svc,
		healthCollector:    healthCollector,
		logger:             logger,
		mux:                http.NewServeMux(),
		ingestLimiter:      rate.NewLimiter(rate.Limit(config.IngestRateLimitPerSecond), config.IngestRateLimitBurst),
		correlationLimiter: rate.NewLimiter(rate.Limit(config.CorrelationRateLimitPerSecond), config.CorrelationRateLimitBurst),
	}
	s.registerRoutes()
	return s
}

// Mux returns the underlying ServeMux for registering additional routes.
func (s *Server) Mux() *http.ServeMux {
	return s.mux
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+authz.RoleHeader+", "+authz.UserHeader)

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	requestID := uuid.New().String()
	w.Header().Set("X-Request-ID", requestID)

	start := time.Now()
	s.mux.ServeHTTP(w, r)
	s.logger.Debug("request",
		"request_id", requestID,
		"method", r.Method,
		"path", r.URL.Path,
		"duration", time.Since(start),
	)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /drone-ops/health", s.handleHealth)
	s.mux.HandleFunc("GET /drone-ops/status", authz.RequireRole(authz.RoleViewer, s.handleStatus))

	s.mux.HandleFunc("GET /drone-ops/sessions", authz.RequireRole(authz.RoleViewer, s.handleListSessions))
	s.mux.HandleFunc("POST /drone-ops/session/start", authz.RequireRole(authz.RoleOperator, s.handleStartSession))
	s.mux.HandleFunc("POST /drone-ops/session/stop", authz.RequireRole(authz.RoleOperator, s.handleStopSession))

	s.mux.HandleFunc("GET /drone-ops/detections", authz.RequireRole(authz.RoleViewer, s.handleListDetections))
	s.mux.HandleFunc("GET /drone-ops/tracks", authz.RequireRole(authz.RoleViewer, s.handleListTracks))
	s.mux.HandleFunc("GET /drone-ops/stream", authz.RequireRole(authz.RoleViewer, s.handleStream))
	s.mux.HandleFunc("POST /drone-ops/ingest", authz.RequireRole(authz.RoleOperator, s.handleIngest))

	s.mux.HandleFunc("POST /drone-ops/remote-id/decode", authz.RequireRole(authz.RoleAnalyst, s.handleDecodeRemoteID))
	s.mux.HandleFunc("POST /drone-ops/geolocate/estimate", authz.RequireRole(authz.RoleAnalyst, s.handleEstimateGeolocation))
	s.mux.HandleFunc("GET /drone-ops/correlations", authz.RequireRole(authz.RoleAnalyst, s.handleGetCorrelations))

	s.mux.HandleFunc("GET /drone-ops/incidents", authz.RequireRole(authz.RoleViewer, s.handleListIncidents))
	s.mux.HandleFunc("POST /drone-ops/incidents", authz.RequireRole(authz.RoleOperator, s.handleCreateIncident))
	s.mux.HandleFunc("GET /drone-ops/incidents/{id}", authz.RequireRole(authz.RoleViewer, s.handleGetIncident))
	s.mux.HandleFunc("PUT /drone-ops/incidents/{id}", authz.RequireRole(authz.RoleOperator, s.handleUpdateIncident))
	s.mux.HandleFunc("POST /drone-ops/incidents/{id}/artifacts", authz.RequireRole(authz.RoleOperator, s.handleAddIncidentArtifact))

	s.mux.HandleFunc("POST /drone-ops/actions/arm", authz.RequireRole(authz.RoleOperator, s.handleArm))
	s.mux.HandleFunc("POST /drone-ops/actions/disarm", authz.RequireRole(authz.RoleOperator, s.handleDisarm))
	s.mux.HandleFunc("POST /drone-ops/actions/request", authz.RequireRole(authz.RoleOperator, s.handleRequestAction))
	s.mux.HandleFunc("POST /drone-ops/actions/approve/{id}", authz.RequireRole(authz.RoleSupervisor, s.handleApproveAction))
	s.mux.HandleFunc("POST /drone-ops/actions/execute/{id}", authz.RequireRole(authz.RoleOperator, authz.RequireArmed(s.svc, s.handleExecuteAction)))
	s.mux.HandleFunc("GET /drone-ops/actions/requests", authz.RequireRole(authz.RoleViewer, s.handleListActionRequests))
	s.mux.HandleFunc("GET /drone-ops/actions/requests/{id}", authz.RequireRole(authz.RoleViewer, s.handleGetActionRequest))
	s.mux.HandleFunc("GET /drone-ops/actions/audit", authz.RequireRole(authz.RoleViewer, s.handleListActionAudit))

	s.mux.HandleFunc("POST /drone-ops/evidence/{incident_id}/manifest", authz.RequireRole(authz.RoleAnalyst, s.handleGenerateManifest))
	s.mux.HandleFunc("GET /drone-ops/evidence/manifests/{id}", authz.RequireRole(authz.RoleViewer, s.handleGetManifest))
	s.mux.HandleFunc("GET /drone-ops/evidence/{incident_id}/manifests", authz.RequireRole(authz.RoleViewer, s.handleListManifests))
}

// =============================================================================
// HEALTH & STATUS
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeSuccess(w, http.StatusOK, map[string]any{"health": s.healthCollector.Collect(r.Context())})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.svc.GetStatus(r.Context())
	if err != nil {
		s.writeAPIError(w, err)
		return
	}
	s.writeSuccess(w, http.StatusOK, map[string]any{
		"active_session": status.ActiveSession,
		"policy":         status.Policy,
		"counts":         status.Counts,
	})
}

// =============================================================================
// JSON HELPERS
// =============================================================================

func (s *Server) readJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return apierr.Validation("invalid request body: %s", err.Error())
	}
	return nil
}

func (s *Server) writeSuccess(w http.ResponseWriter, status int, fields map[string]any) {
	body := map[string]any{"status": "success"}
	for k, v := range fields {
		body[k] = v
	}
	s.writeJSON(w, status, body)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// writeAPIError renders any error through the apierr taxonomy, logging
// internal ones and passing authorization/policy extras through untouched.
func (s *Server) writeAPIError(w http.ResponseWriter, err error) {
	status := apierr.Status(err)

	var apiErr *apierr.Error
	body := map[string]any{"status": "error"}
	if apierr.As(err, &apiErr) {
		body["message"] = apiErr.Message
		for k, v := range apiErr.Extra {
			if k == "_status" {
				continue
			}
			body[k] = v
		}
		if apiErr.Kind == apierr.KindInternal {
			s.logger.Error("internal error", "error", apiErr.Err, "message", apiErr.Message)
		}
	} else {
		body["message"] = err.Error()
		s.logger.Error("unclassified error", "error", err)
	}

	s.writeJSON(w, status, body)
}

func (s *Server) writeValidationError(w http.ResponseWriter, message string) {
	s.writeAPIError(w, apierr.Validation("%s", message))
}

func (s *Server) writeRateLimited(w http.ResponseWriter, message string) {
	s.writeJSON(w, http.StatusTooManyRequests, map[string]any{"status": "error", "message": message})
}
