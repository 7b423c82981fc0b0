package domain

import (
	"time"

	"github.com/google/uuid"
)

type CouncilMember struct {
	ExpertID uuid.UUID `json:"expert_id"`
	Weight   float64   `json:"weight"`
	Position int       `json:"position"`
}

// CouncilSnapshot is an immutable record of one council formation. Members
// are ordered by position and their weights sum to 1 within 1e-6. Re-ranking
// always writes a new snapshot; an in-flight snapshot is never mutated.
type CouncilSnapshot struct {
	ID         uuid.UUID       `json:"id"`
	Category   string          `json:"category,omitempty"`
	Members    []CouncilMember `json:"members"`
	Degraded   bool            `json:"degraded"`
	FormedAt   time.Time       `json:"formed_at"`
	ValidUntil time.Time       `json:"valid_until"`
}

// MemberVote is one council member's contribution to a consensus, with the
// renormalised weight actually used during aggregation.
type MemberVote struct {
	ExpertID         uuid.UUID `json:"expert_id"`
	PredictedValue   string    `json:"predicted_value"`
	PredictedNumeric *float64  `json:"predicted_numeric,omitempty"`
	Confidence       float32   `json:"confidence"`
	Weight           float64   `json:"weight"`
}

type ConsensusResult struct {
	ID                  uuid.UUID    `json:"id"`
	GameID              string       `json:"game_id"`
	Category            string       `json:"category"`
	AggregatedValue     string       `json:"aggregated_value"`
	AggregatedNumeric   *float64     `json:"aggregated_numeric,omitempty"`
	ConsensusConfidence float64      `json:"consensus_confidence"`
	MemberBreakdown     []MemberVote `json:"member_breakdown"`
	SnapshotID          uuid.UUID    `json:"snapshot_id"`
	Incomplete          bool         `json:"incomplete"`
	CreatedAt           time.Time    `json:"created_at"`
}
