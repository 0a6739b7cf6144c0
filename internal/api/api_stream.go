package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/skywatch/drone-ops/internal/apierr"
	"github.com/skywatch/drone-ops/internal/config"
)

// handleStream serves the live event feed as Server-Sent Events: detections,
// session/incident/action/policy transitions, keepalives. Subscribers are
// deregistered on client disconnect.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeAPIError(w, apierr.Internal("streaming not supported", nil))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events, cancel := s.svc.Bus().Stream(r.Context(), config.StreamKeepaliveInterval)
	defer cancel()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				s.logger.Error("failed to marshal stream event", "error", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\n", event.Type)
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
