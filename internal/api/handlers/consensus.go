package handlers

import (
	"errors"
	"net/http"

	"github.com/Harshitk-cp/quorum/internal/service"
	"github.com/Harshitk-cp/quorum/internal/store"
	"github.com/go-chi/chi/v5"
)

type ConsensusHandler struct {
	consensus *service.ConsensusService
}

func NewConsensusHandler(consensus *service.ConsensusService) *ConsensusHandler {
	return &ConsensusHandler{consensus: consensus}
}

func (h *ConsensusHandler) Aggregate(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "gameID")
	category := chi.URLParam(r, "category")
	if gameID == "" || category == "" {
		writeError(w, http.StatusBadRequest, "gameID and category are required")
		return
	}

	result, err := h.consensus.Aggregate(r.Context(), gameID, category)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoCouncil):
			writeError(w, http.StatusConflict, "no valid council to aggregate votes from")
		case errors.Is(err, service.ErrEmptyCouncil):
			writeError(w, http.StatusConflict, "council has no members with predictions for this game")
		default:
			writeError(w, http.StatusInternalServerError, "failed to aggregate consensus")
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *ConsensusHandler) Latest(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "gameID")
	category := chi.URLParam(r, "category")

	result, err := h.consensus.Latest(r.Context(), gameID, category)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no consensus recorded for this game and category")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load consensus")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
