package api

import (
	"net/http"

	"medinotes/internal/application/dto"
	"medinotes/internal/port/inbound"
)

// HealthHandler handles the health check endpoint.
type HealthHandler struct {
	healthService inbound.HealthService
	errorHandler  ErrorHandler
}

// NewHealthHandler creates the health handler.
func NewHealthHandler(healthService inbound.HealthService, errorHandler ErrorHandler) *HealthHandler {
	return &HealthHandler{
		healthService: healthService,
		errorHandler:  errorHandler,
	}
}

// GetHealth handles GET /health. Degraded dependencies still return 200
// so load balancers keep the instance in rotation; only total failure
// returns 503.
func (h *HealthHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	health, err := h.healthService.GetHealth(r.Context())
	if err != nil {
		h.errorHandler.HandleServiceError(w, r, err)
		return
	}

	status := http.StatusOK
	if health.Status == string(dto.HealthStatusUnhealthy) {
		status = http.StatusServiceUnavailable
	}
	_ = WriteJSON(w, status, health)
}
