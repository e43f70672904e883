package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/crucial707/asset-vault/internal/repo"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 200
)

// AuditHandler serves audit log endpoints.
type AuditHandler struct {
	Repo *repo.AuditRepo
	Log  zerolog.Logger
}

// ListAudit returns recent audit log entries. Query: limit (default 50, max 200), offset (default 0).
func (h *AuditHandler) ListAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := queryInt(q.Get("limit"), defaultAuditLimit)
	if err != nil {
		JSONValidationError(w, "validation failed", map[string]string{"limit": err.Error()}, http.StatusBadRequest)
		return
	}
	switch {
	case limit == 0:
		limit = defaultAuditLimit
	case limit > maxAuditLimit:
		limit = maxAuditLimit
	}
	offset, err := queryInt(q.Get("offset"), 0)
	if err != nil {
		JSONValidationError(w, "validation failed", map[string]string{"offset": err.Error()}, http.StatusBadRequest)
		return
	}

	entries, err := h.Repo.List(r.Context(), limit, offset)
	if err != nil {
		h.Log.Error().Err(err).Msg("list audit log")
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, entries)
}
