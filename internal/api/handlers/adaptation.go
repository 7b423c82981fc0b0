package handlers

import (
	"net/http"

	"github.com/Harshitk-cp/quorum/internal/service"
)

type AdaptationHandler struct {
	engine *service.AdaptationEngine
}

func NewAdaptationHandler(engine *service.AdaptationEngine) *AdaptationHandler {
	return &AdaptationHandler{engine: engine}
}

// Sweep evaluates every expert once, outside the worker schedule.
func (h *AdaptationHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	result, err := h.engine.RunSweep(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to run adaptation sweep")
		return
	}
	writeJSON(w, http.StatusOK, result)
}
