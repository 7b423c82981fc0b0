package store

import (
	"context"

	"github.com/Harshitk-cp/quorum/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type EventStore struct {
	db *pgxpool.Pool
}

func NewEventStore(db *pgxpool.Pool) *EventStore {
	return &EventStore{db: db}
}

func (s *EventStore) Create(ctx context.Context, e *domain.AdaptationEvent) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO adaptation_events (expert_id, category, severity, kind, message)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		e.ExpertID, e.Category, e.Severity, e.Kind, e.Message,
	).Scan(&e.ID, &e.CreatedAt)
}

func (s *EventStore) List(ctx context.Context, limit int) ([]domain.AdaptationEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.list(ctx,
		`SELECT id, expert_id, category, severity, kind, message, created_at
		 FROM adaptation_events ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
}

func (s *EventStore) ListByExpert(ctx context.Context, expertID uuid.UUID, limit int) ([]domain.AdaptationEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.list(ctx,
		`SELECT id, expert_id, category, severity, kind, message, created_at
		 FROM adaptation_events WHERE expert_id = $1
		 ORDER BY created_at DESC LIMIT $2`,
		expertID, limit,
	)
}

func (s *EventStore) list(ctx context.Context, query string, args ...any) ([]domain.AdaptationEvent, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.AdaptationEvent
	for rows.Next() {
		var e domain.AdaptationEvent
		if err := rows.Scan(&e.ID, &e.ExpertID, &e.Category, &e.Severity, &e.Kind, &e.Message, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
