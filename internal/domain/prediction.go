package domain

import (
	"time"

	"github.com/google/uuid"
)

// CategoryKind determines which correctness rule applies when an outcome
// resolves a prediction.
type CategoryKind string

const (
	KindCategorical CategoryKind = "categorical"
	KindExactScore  CategoryKind = "exact_score"
	KindMargin      CategoryKind = "margin"
	KindYardage     CategoryKind = "yardage"
	KindCounting    CategoryKind = "counting"
)

func ValidCategoryKind(k string) bool {
	switch CategoryKind(k) {
	case KindCategorical, KindExactScore, KindMargin, KindYardage, KindCounting:
		return true
	}
	return false
}

// Category is a registered prediction type. Outcomes for categories without
// a registry entry are stored but never counted toward accuracy.
type Category struct {
	Name string       `json:"name"`
	Kind CategoryKind `json:"kind"`
}

type PredictionRecord struct {
	ID               uuid.UUID  `json:"id"`
	ExpertID         uuid.UUID  `json:"expert_id"`
	GameID           string     `json:"game_id"`
	Category         string     `json:"category"`
	PredictedValue   string     `json:"predicted_value"`
	PredictedNumeric *float64   `json:"predicted_numeric,omitempty"`
	Confidence       float32    `json:"confidence"`
	Correct          *bool      `json:"correct,omitempty"`
	Verified         bool       `json:"verified"`
	CreatedAt        time.Time  `json:"created_at"`
	ResolvedAt       *time.Time `json:"resolved_at,omitempty"`
}

// Resolved reports whether an outcome has been applied to this record.
func (p *PredictionRecord) Resolved() bool {
	return p.ResolvedAt != nil
}

type OutcomeRecord struct {
	GameID        string    `json:"game_id"`
	Category      string    `json:"category"`
	ActualValue   string    `json:"actual_value"`
	ActualNumeric *float64  `json:"actual_numeric,omitempty"`
	ResolvedAt    time.Time `json:"resolved_at"`
}
