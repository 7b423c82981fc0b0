package store

import (
	"context"
	"errors"
	"time"

	"github.com/Harshitk-cp/quorum/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ExpertStore struct {
	db *pgxpool.Pool
}

func NewExpertStore(db *pgxpool.Pool) *ExpertStore {
	return &ExpertStore{db: db}
}

func (s *ExpertStore) Create(ctx context.Context, e *domain.Expert) error {
	if e.Status == "" {
		e.Status = domain.StatusProvisional
	}
	return s.db.QueryRow(ctx,
		`INSERT INTO experts (name, specialties, status)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at, updated_at`,
		e.Name, e.Specialties, e.Status,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
}

func (s *ExpertStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Expert, error) {
	e := &domain.Expert{}
	err := s.db.QueryRow(ctx,
		`SELECT id, name, specialties, status, current_rank, council_position, suspended_at, reinstate_after, created_at, updated_at
		 FROM experts WHERE id = $1`,
		id,
	).Scan(&e.ID, &e.Name, &e.Specialties, &e.Status, &e.CurrentRank, &e.CouncilPosition, &e.SuspendedAt, &e.ReinstateAfter, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (s *ExpertStore) List(ctx context.Context) ([]domain.Expert, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, name, specialties, status, current_rank, council_position, suspended_at, reinstate_after, created_at, updated_at
		 FROM experts ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var experts []domain.Expert
	for rows.Next() {
		var e domain.Expert
		if err := rows.Scan(&e.ID, &e.Name, &e.Specialties, &e.Status, &e.CurrentRank, &e.CouncilPosition, &e.SuspendedAt, &e.ReinstateAfter, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		experts = append(experts, e)
	}
	return experts, rows.Err()
}

func (s *ExpertStore) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ExpertStatus, suspendedAt, reinstateAfter *time.Time) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE experts SET status = $1, suspended_at = $2, reinstate_after = $3, updated_at = NOW() WHERE id = $4`,
		status, suspendedAt, reinstateAfter, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *ExpertStore) UpdateRank(ctx context.Context, id uuid.UUID, rank int, councilPosition *int) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE experts SET current_rank = $1, council_position = $2, updated_at = NOW() WHERE id = $3`,
		rank, councilPosition, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
