package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/Harshitk-cp/quorum/internal/domain"
	"github.com/Harshitk-cp/quorum/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const defaultSimilarLimit = 5

type MemoryHandler struct {
	memories *service.MemoryService
	decay    *service.DecayService
}

func NewMemoryHandler(memories *service.MemoryService, decay *service.DecayService) *MemoryHandler {
	return &MemoryHandler{memories: memories, decay: decay}
}

type similarMemoriesRequest struct {
	Situation domain.Situation `json:"situation"`
	Limit     int              `json:"limit,omitempty"`
}

func (h *MemoryHandler) Similar(w http.ResponseWriter, r *http.Request) {
	expertID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid expert id")
		return
	}

	var req similarMemoriesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultSimilarLimit
	}

	memories, err := h.memories.RetrieveSimilar(r.Context(), expertID, &req.Situation, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to retrieve memories")
		return
	}

	writeJSON(w, http.StatusOK, memories)
}

// RunDecay runs a full decay pass on demand; the background worker does the
// same thing on its interval.
func (h *MemoryHandler) RunDecay(w http.ResponseWriter, r *http.Request) {
	result := h.decay.RunDecay(r.Context())
	writeJSON(w, http.StatusOK, result)
}

func (h *MemoryHandler) RunConsolidation(w http.ResponseWriter, r *http.Request) {
	result := h.decay.RunConsolidation(r.Context())
	writeJSON(w, http.StatusOK, result)
}

func parseLimit(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
