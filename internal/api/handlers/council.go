package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Harshitk-cp/quorum/internal/domain"
	"github.com/Harshitk-cp/quorum/internal/service"
	"github.com/Harshitk-cp/quorum/internal/store"
)

type CouncilHandler struct {
	selector *service.SelectorService
	councils domain.CouncilStore
}

func NewCouncilHandler(selector *service.SelectorService, councils domain.CouncilStore) *CouncilHandler {
	return &CouncilHandler{selector: selector, councils: councils}
}

type rotateCouncilRequest struct {
	Category string `json:"category,omitempty"`
}

func (h *CouncilHandler) Rotate(w http.ResponseWriter, r *http.Request) {
	var req rotateCouncilRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	snapshot, err := h.selector.SelectCouncil(r.Context(), req.Category)
	if err != nil {
		if errors.Is(err, service.ErrNoCandidates) {
			writeError(w, http.StatusConflict, "no eligible experts to form a council")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to rotate council")
		return
	}

	writeJSON(w, http.StatusCreated, snapshot)
}

func (h *CouncilHandler) Current(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")

	snapshot, err := h.councils.Current(r.Context(), category, time.Now().UTC())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no valid council")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load council")
		return
	}

	writeJSON(w, http.StatusOK, snapshot)
}
