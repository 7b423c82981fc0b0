package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Harshitk-cp/quorum/internal/domain"
	"github.com/Harshitk-cp/quorum/internal/service"
	"github.com/Harshitk-cp/quorum/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type ExpertHandler struct {
	experts domain.ExpertStore
	tracker *service.TrackerService
	trend   *service.TrendAnalyzer
}

func NewExpertHandler(experts domain.ExpertStore, tracker *service.TrackerService, trend *service.TrendAnalyzer) *ExpertHandler {
	return &ExpertHandler{experts: experts, tracker: tracker, trend: trend}
}

type registerExpertRequest struct {
	Name        string   `json:"name"`
	Specialties []string `json:"specialties,omitempty"`
}

func (h *ExpertHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerExpertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	expert := &domain.Expert{
		Name:        req.Name,
		Specialties: req.Specialties,
		Status:      domain.StatusProvisional,
	}
	if err := h.experts.Create(r.Context(), expert); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to register expert")
		return
	}

	writeJSON(w, http.StatusCreated, expert)
}

func (h *ExpertHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid expert id")
		return
	}

	expert, err := h.experts.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "expert not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get expert")
		return
	}

	writeJSON(w, http.StatusOK, expert)
}

func (h *ExpertHandler) List(w http.ResponseWriter, r *http.Request) {
	experts, err := h.experts.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list experts")
		return
	}
	writeJSON(w, http.StatusOK, experts)
}

func (h *ExpertHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid expert id")
		return
	}

	profile, err := h.tracker.Profile(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrExpertNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to compute profile")
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

func (h *ExpertHandler) GetTrend(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid expert id")
		return
	}
	category := chi.URLParam(r, "category")

	report, err := h.trend.Analyze(r.Context(), id, category)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to analyze trend")
		return
	}

	writeJSON(w, http.StatusOK, report)
}
