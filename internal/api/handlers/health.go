package handlers

import (
	"evacuation-dashboard/internal/api/dto"
	"net/http"
)

// Health provides a minimal liveness check endpoint.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, dto.HealthResponse{Status: "ok", Message: "Server is running"})
}
