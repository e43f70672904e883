package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"time"
)

// HealthHandler answers liveness and readiness checks.
type HealthHandler struct {
	DB *sql.DB
}

// Root reports that the service is up. It does not touch the database.
func (h *HealthHandler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "online",
		"message": "asset service running in secure mode",
	})
}

// Ready returns 200 when the database answers a ping within two seconds, else 503.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.DB.PingContext(ctx); err != nil {
		JSONError(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
