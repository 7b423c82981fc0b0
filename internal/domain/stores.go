package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type ExpertStore interface {
	Create(ctx context.Context, e *Expert) error
	GetByID(ctx context.Context, id uuid.UUID) (*Expert, error)
	List(ctx context.Context) ([]Expert, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status ExpertStatus, suspendedAt, reinstateAfter *time.Time) error
	UpdateRank(ctx context.Context, id uuid.UUID, rank int, councilPosition *int) error
}

type PredictionStore interface {
	CreatePrediction(ctx context.Context, p *PredictionRecord) error
	// CreateOutcome fails with ErrDuplicate when an outcome for the same
	// (game_id, category) was already recorded.
	CreateOutcome(ctx context.Context, o *OutcomeRecord) error
	GetOutcome(ctx context.Context, gameID, category string) (*OutcomeRecord, error)
	ListPending(ctx context.Context, gameID, category string) ([]PredictionRecord, error)
	ListByGameCategory(ctx context.Context, gameID, category string) ([]PredictionRecord, error)
	Resolve(ctx context.Context, id uuid.UUID, correct *bool, verified bool, resolvedAt time.Time) error
	// ListResolvedByExpert returns verified records ordered most recent first.
	ListResolvedByExpert(ctx context.Context, expertID uuid.UUID, limit int) ([]PredictionRecord, error)
	// ListResolvedByExpertCategory returns verified records in time order,
	// oldest first, as the trend analyzer expects.
	ListResolvedByExpertCategory(ctx context.Context, expertID uuid.UUID, category string, limit int) ([]PredictionRecord, error)
}

type MemoryStore interface {
	Create(ctx context.Context, m *Memory) error
	FindSimilar(ctx context.Context, expertID uuid.UUID, vector []float32, limit int) ([]MemoryWithScore, error)
	ListByExpert(ctx context.Context, expertID uuid.UUID) ([]Memory, error)
	ListExpertIDs(ctx context.Context) ([]uuid.UUID, error)
	CountByExpert(ctx context.Context, expertID uuid.UUID) (int, error)
	// IncrementRetrieval bumps retrieval_count and applies the reinforcement
	// vividness boost; this is the only path that raises vividness.
	IncrementRetrieval(ctx context.Context, id uuid.UUID, boost float32) error
	// UpdateDecay lowers vividness and records the retrieval count the decay
	// pass observed.
	UpdateDecay(ctx context.Context, id uuid.UUID, vividness float32, retrievalCount int) error
	Archive(ctx context.Context, id uuid.UUID) error
}

type CouncilStore interface {
	CreateSnapshot(ctx context.Context, s *CouncilSnapshot) error
	GetByID(ctx context.Context, id uuid.UUID) (*CouncilSnapshot, error)
	// Current returns the newest snapshot for the category scope whose
	// validity window covers now.
	Current(ctx context.Context, category string, now time.Time) (*CouncilSnapshot, error)
}

type ConsensusStore interface {
	Create(ctx context.Context, r *ConsensusResult) error
	Get(ctx context.Context, gameID, category string) (*ConsensusResult, error)
}

type EventStore interface {
	Create(ctx context.Context, e *AdaptationEvent) error
	List(ctx context.Context, limit int) ([]AdaptationEvent, error)
	ListByExpert(ctx context.Context, expertID uuid.UUID, limit int) ([]AdaptationEvent, error)
}

// AlertSink receives adaptation events for the external alerting surface.
type AlertSink interface {
	Notify(ctx context.Context, e *AdaptationEvent) error
}

// PredictionProvider is the external collaborator that generates raw
// predictions. The engine only ever asks it to adjust after an event; it is
// opaque otherwise.
type PredictionProvider interface {
	RequestAdjustment(ctx context.Context, e *AdaptationEvent) error
}
