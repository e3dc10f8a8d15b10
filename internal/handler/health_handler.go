package handler

import (
	"net/http"

	"github.com/hoyun5295-ctrl/targetup/internal/service"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	healthService *service.HealthChecker
}

// NewHealthHandler creates a new HealthHandler instance
func NewHealthHandler(healthService *service.HealthChecker) *HealthHandler {
	return &HealthHandler{
		healthService: healthService,
	}
}

// HandleHealth handles GET requests to the /health endpoint
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	healthStatus, err := h.healthService.CheckHealth()
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to perform health check")
		return
	}

	// degraded (optional broker down, data not yet loaded) still serves
	status := http.StatusOK
	if healthStatus.Status == "unhealthy" {
		status = http.StatusServiceUnavailable
	}

	WriteJSON(w, status, healthStatus)
}
