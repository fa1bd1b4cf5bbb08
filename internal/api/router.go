package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/kobayashi-signals/internal/session"
)

const healthCheckTimeout = 2 * time.Second

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status     string `json:"status"`
	Connection string `json:"connection"`
	Transport  string `json:"transport,omitempty"`
	Role       string `json:"role"`
	ClientID   string `json:"client_id,omitempty"`
	Version    string `json:"version"`
}

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(withRequestID, s.accessLog, s.recoverPanics)

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return r
}

// handleHealth reports the connection state; anything but connected is degraded.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	state := s.state.State()

	resp := HealthResponse{
		Status:     "ok",
		Connection: state.String(),
		Role:       s.role,
		ClientID:   s.clientID,
		Version:    s.version,
	}

	healthy := state == session.StateConnected
	if s.transport != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()
		if err := s.transport.HealthCheck(ctx); err != nil {
			resp.Transport = err.Error()
			healthy = false
		} else {
			resp.Transport = "ok"
		}
	}

	status := http.StatusOK
	if !healthy {
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, resp)
}
