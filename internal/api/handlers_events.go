package api

import (
	"net/http"
	"strconv"

	"github.com/shohag/cimonitor/internal/events"
)

type EventsHandler struct {
	events *events.Service
}

func NewEventsHandler(svc *events.Service) *EventsHandler {
	return &EventsHandler{events: svc}
}

func (h *EventsHandler) Recent(w http.ResponseWriter, r *http.Request) {
	limit := events.DefaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = n
	}

	recent, err := h.events.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read events")
		return
	}
	writeJSON(w, http.StatusOK, recent)
}

func (h *EventsHandler) Workflows(w http.ResponseWriter, r *http.Request) {
	status, err := h.events.WorkflowStatus(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read events")
		return
	}
	writeJSON(w, http.StatusOK, status)
}
