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

type CouncilStore struct {
	db *pgxpool.Pool
}

func NewCouncilStore(db *pgxpool.Pool) *CouncilStore {
	return &CouncilStore{db: db}
}

// CreateSnapshot writes the snapshot and its members in one transaction.
// Snapshots are never updated afterwards.
func (s *CouncilStore) CreateSnapshot(ctx context.Context, snap *domain.CouncilSnapshot) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx,
		`INSERT INTO council_snapshots (category, degraded, formed_at, valid_until)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		snap.Category, snap.Degraded, snap.FormedAt, snap.ValidUntil,
	).Scan(&snap.ID)
	if err != nil {
		return err
	}

	for _, m := range snap.Members {
		_, err = tx.Exec(ctx,
			`INSERT INTO council_members (snapshot_id, expert_id, weight, position)
			 VALUES ($1, $2, $3, $4)`,
			snap.ID, m.ExpertID, m.Weight, m.Position,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (s *CouncilStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.CouncilSnapshot, error) {
	snap := &domain.CouncilSnapshot{}
	err := s.db.QueryRow(ctx,
		`SELECT id, category, degraded, formed_at, valid_until
		 FROM council_snapshots WHERE id = $1`,
		id,
	).Scan(&snap.ID, &snap.Category, &snap.Degraded, &snap.FormedAt, &snap.ValidUntil)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := s.loadMembers(ctx, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *CouncilStore) Current(ctx context.Context, category string, now time.Time) (*domain.CouncilSnapshot, error) {
	snap := &domain.CouncilSnapshot{}
	err := s.db.QueryRow(ctx,
		`SELECT id, category, degraded, formed_at, valid_until
		 FROM council_snapshots
		 WHERE category = $1 AND formed_at <= $2 AND valid_until > $2
		 ORDER BY formed_at DESC
		 LIMIT 1`,
		category, now,
	).Scan(&snap.ID, &snap.Category, &snap.Degraded, &snap.FormedAt, &snap.ValidUntil)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := s.loadMembers(ctx, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *CouncilStore) loadMembers(ctx context.Context, snap *domain.CouncilSnapshot) error {
	rows, err := s.db.Query(ctx,
		`SELECT expert_id, weight, position
		 FROM council_members WHERE snapshot_id = $1
		 ORDER BY position ASC`,
		snap.ID,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var m domain.CouncilMember
		if err := rows.Scan(&m.ExpertID, &m.Weight, &m.Position); err != nil {
			return err
		}
		snap.Members = append(snap.Members, m)
	}
	return rows.Err()
}
