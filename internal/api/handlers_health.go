package api

import (
	"net/http"

	"github.com/shohag/cimonitor/internal/storage"
)

type HealthHandler struct {
	store storage.Storage
}

func NewHealthHandler(store storage.Storage) *HealthHandler {
	return &HealthHandler{store: store}
}

// Health reports ok when the event log can be read.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	all, err := h.store.ReadAll(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":  "degraded",
			"service": "cimonitor",
			"error":   err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"service": "cimonitor",
		"events":  len(all),
	})
}
