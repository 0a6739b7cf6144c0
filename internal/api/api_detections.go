package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/skywatch/drone-ops/internal/config"
	"github.com/skywatch/drone-ops/internal/geolocation"
	"github.com/skywatch/drone-ops/internal/remoteid"
	"github.com/skywatch/drone-ops/internal/store"
)

func (s *Server) handleListDetections(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	params := store.DetectionListParams{
		Source:        query.Get("source"),
		MinConfidence: parseFloat(query.Get("min_confidence"), 0),
		Limit:         parseLimit(r, config.DefaultPaginationLimit, config.MaxDetectionPaginationLimit),
	}
	if raw := query.Get("session_id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			params.SessionID = &id
		}
	}

	detections, err := s.svc.ListDetections(r.Context(), params)
	if err != nil {
		s.writeAPIError(w, err)
		return
	}
	s.writeSuccess(w, http.StatusOK, map[string]any{"detections": detections})
}

func (s *Server) handleListTracks(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	params := store.TrackListParams{
		Identifier: query.Get("identifier"),
		Limit:      parseLimit(r, config.DefaultPaginationLimit, config.MaxPaginationLimit),
	}
	if raw := query.Get("detection_id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			params.DetectionID = &id
		}
	}

	tracks, err := s.svc.ListTracks(r.Context(), params)
	if err != nil {
		s.writeAPIError(w, err)
		return
	}
	s.writeSuccess(w, http.StatusOK, map[string]any{"tracks": tracks})
}

type ingestRequest struct {
	Mode      string         `json:"mode"`
	Event     map[string]any `json:"event"`
	EventType string         `json:"event_type,omitempty"`
}

// handleIngest drives ingest_event over HTTP for push-style sensor
// collaborators. Per-event failures are swallowed inside the service the
// same way the internal ingest path swallows them: this endpoint always
// acknowledges receipt.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := s.readJSON(r, &req); err != nil {
		s.writeAPIError(w, err)
		return
	}
	if req.Mode == "" {
		s.writeValidationError(w, "mode is required")
		return
	}

	if !s.ingestLimiter.Allow() {
		s.writeRateLimited(w, "ingest rate limit exceeded")
		return
	}

	s.svc.IngestEvent(r.Context(), req.Mode, req.Event, req.EventType)
	s.writeSuccess(w, http.StatusOK, map[string]any{"message": "accepted"})
}

type decodeRemoteIDRequest struct {
	Payload json.RawMessage `json:"payload"`
}

func (s *Server) handleDecodeRemoteID(w http.ResponseWriter, r *http.Request) {
	var req decodeRemoteIDRequest
	if err := s.readJSON(r, &req); err != nil {
		s.writeAPIError(w, err)
		return
	}

	payload := parseRemoteIDPayload(req.Payload)
	decoded := s.svc.DecodeRemoteID(payload)
	s.writeSuccess(w, http.StatusOK, map[string]any{"decoded": decoded})
}

// parseRemoteIDPayload maps a JSON request value onto the decoder's tagged
// union: an object becomes Dict, a string becomes JSON (the common case — a
// JSON-encoded Remote-ID record embedded as a string field), anything else
// becomes Raw.
func parseRemoteIDPayload(raw json.RawMessage) remoteid.Payload {
	var dict map[string]any
	if err := json.Unmarshal(raw, &dict); err == nil {
		return remoteid.Dict(dict)
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return remoteid.JSON(text)
	}

	return remoteid.Raw(string(raw))
}

type estimateGeolocationRequest struct {
	Observations []geolocation.Observation `json:"observations"`
	Environment  string                    `json:"environment,omitempty"`
}

func (s *Server) handleEstimateGeolocation(w http.ResponseWriter, r *http.Request) {
	var req estimateGeolocationRequest
	if err := s.readJSON(r, &req); err != nil {
		s.writeAPIError(w, err)
		return
	}

	estimate, err := s.svc.EstimateGeolocation(req.Observations, req.Environment)
	if err != nil {
		s.writeAPIError(w, err)
		return
	}
	s.writeSuccess(w, http.StatusOK, map[string]any{"location": estimate})
}

func parseFloat(raw string, def float64) float64 {
	if raw == "" {
		return def
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return value
}
