package api

import (
	"context"
	"log"
	"net/http"
	"time"
)

const healthCheckTimeout = 2 * time.Second

// HealthResponse represents the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Backend string `json:"backend"`
}

// HandleHealth reports whether the store answers a ping
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	if err := h.pinger.Ping(ctx); err != nil {
		log.Printf("WARN: Health check failed for backend '%s': %v", h.backend, err)
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unhealthy", Backend: h.backend})
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy", Backend: h.backend})
}
