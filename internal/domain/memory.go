package domain

import (
	"time"

	"github.com/google/uuid"
)

type MemoryType string

const (
	MemoryOutcome            MemoryType = "outcome"
	MemoryPattern            MemoryType = "pattern"
	MemoryUpset              MemoryType = "upset"
	MemoryConsensusDeviation MemoryType = "consensus_deviation"
	MemoryLearningMoment     MemoryType = "learning_moment"
	MemoryFailure            MemoryType = "failure"
)

func ValidMemoryType(t string) bool {
	switch MemoryType(t) {
	case MemoryOutcome, MemoryPattern, MemoryUpset, MemoryConsensusDeviation,
		MemoryLearningMoment, MemoryFailure:
		return true
	}
	return false
}

// Memory is one episodic experience record. Vividness only increases through
// explicit reinforcement on retrieval; decay passes can only lower it.
type Memory struct {
	ID                 uuid.UUID         `json:"id"`
	ExpertID           uuid.UUID         `json:"expert_id"`
	GameID             string            `json:"game_id"`
	Type               MemoryType        `json:"type"`
	EmotionalIntensity float32           `json:"emotional_intensity"`
	Vividness          float32           `json:"vividness"`
	DecayRate          float32           `json:"decay_rate"`
	ContextualFactors  map[string]string `json:"contextual_factors,omitempty"`
	LessonsLearned     []string          `json:"lessons_learned,omitempty"`
	RetrievalCount     int               `json:"retrieval_count"`
	// DecayRetrievalCount is the retrieval count observed by the last decay
	// pass; a rise since then counts as reinforcement and skips decay.
	DecayRetrievalCount int       `json:"-"`
	ContextVector       []float32 `json:"-"`
	CreatedAt           time.Time `json:"created_at"`
}

type MemoryWithScore struct {
	Memory
	Score float64 `json:"score"`
}

// Situation describes the context a caller wants similar memories for.
type Situation struct {
	GameID       string            `json:"game_id,omitempty"`
	Participants []string          `json:"participants,omitempty"`
	Line         *float64          `json:"line,omitempty"`
	Confidence   float32           `json:"confidence,omitempty"`
	Factors      map[string]string `json:"factors,omitempty"`
}
