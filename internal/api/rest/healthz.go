package rest

import (
	"net/http"

	"github.com/RishithDsouza/Hackethon/internal/api/middleware"
)

// StatusMessage is the banner served on GET /.
const StatusMessage = "Aadhaar Intelligence System API Running"

// Status handles GET /
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": StatusMessage})
}

// Live handles GET /health - liveness probe (process is alive)
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready handles GET /ready - readiness probe (dataset snapshot installed)
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.runner == nil || h.runner.Dataset() == nil {
		respondStructuredError(w, http.StatusServiceUnavailable, ErrCodeNotReady,
			"dataset not loaded", middleware.RequestIDFromContext(r.Context()))
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":  "ready",
		"dataset": h.runner.Dataset().Info(),
	})
}
