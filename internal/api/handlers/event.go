package handlers

import (
	"net/http"

	"github.com/Harshitk-cp/quorum/internal/domain"
	"github.com/google/uuid"
)

const defaultEventLimit = 50

type EventHandler struct {
	events domain.EventStore
}

func NewEventHandler(events domain.EventStore) *EventHandler {
	return &EventHandler{events: events}
}

func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, defaultEventLimit)

	if raw := r.URL.Query().Get("expert_id"); raw != "" {
		expertID, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid expert_id")
			return
		}
		events, err := h.events.ListByExpert(r.Context(), expertID, limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to list events")
			return
		}
		writeJSON(w, http.StatusOK, events)
		return
	}

	events, err := h.events.List(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	writeJSON(w, http.StatusOK, events)
}
