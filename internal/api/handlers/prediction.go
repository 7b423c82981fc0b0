package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Harshitk-cp/quorum/internal/domain"
	"github.com/Harshitk-cp/quorum/internal/service"
	"github.com/google/uuid"
)

type PredictionHandler struct {
	tracker *service.TrackerService
}

func NewPredictionHandler(tracker *service.TrackerService) *PredictionHandler {
	return &PredictionHandler{tracker: tracker}
}

type submitPredictionRequest struct {
	ExpertID         string   `json:"expert_id"`
	GameID           string   `json:"game_id"`
	Category         string   `json:"category"`
	PredictedValue   string   `json:"predicted_value"`
	PredictedNumeric *float64 `json:"predicted_numeric,omitempty"`
	Confidence       float32  `json:"confidence"`
}

func (h *PredictionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitPredictionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	expertID, err := uuid.Parse(req.ExpertID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid expert_id")
		return
	}
	if req.GameID == "" || req.Category == "" || req.PredictedValue == "" {
		writeError(w, http.StatusBadRequest, "game_id, category and predicted_value are required")
		return
	}
	if req.Confidence < 0 || req.Confidence > 1 {
		writeError(w, http.StatusBadRequest, "confidence must be between 0 and 1")
		return
	}

	record := &domain.PredictionRecord{
		ExpertID:         expertID,
		GameID:           req.GameID,
		Category:         req.Category,
		PredictedValue:   req.PredictedValue,
		PredictedNumeric: req.PredictedNumeric,
		Confidence:       req.Confidence,
	}
	if err := h.tracker.SubmitPrediction(r.Context(), record); err != nil {
		switch {
		case errors.Is(err, service.ErrDuplicateRecord):
			writeError(w, http.StatusConflict, "prediction already submitted for this game and category")
		case errors.Is(err, service.ErrExpertNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to submit prediction")
		}
		return
	}

	writeJSON(w, http.StatusCreated, record)
}

type recordOutcomeRequest struct {
	GameID        string     `json:"game_id"`
	Category      string     `json:"category"`
	ActualValue   string     `json:"actual_value"`
	ActualNumeric *float64   `json:"actual_numeric,omitempty"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty"`
}

func (h *PredictionHandler) RecordOutcome(w http.ResponseWriter, r *http.Request) {
	var req recordOutcomeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.GameID == "" || req.Category == "" || req.ActualValue == "" {
		writeError(w, http.StatusBadRequest, "game_id, category and actual_value are required")
		return
	}

	resolvedAt := time.Now().UTC()
	if req.ResolvedAt != nil {
		resolvedAt = req.ResolvedAt.UTC()
	}

	outcome := &domain.OutcomeRecord{
		GameID:        req.GameID,
		Category:      req.Category,
		ActualValue:   req.ActualValue,
		ActualNumeric: req.ActualNumeric,
		ResolvedAt:    resolvedAt,
	}
	result, err := h.tracker.RecordOutcome(r.Context(), outcome)
	if err != nil {
		if errors.Is(err, service.ErrDuplicateRecord) {
			writeError(w, http.StatusConflict, "outcome already recorded for this game and category")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to record outcome")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
