package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/Harshitk-cp/quorum/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ConsensusStore struct {
	db *pgxpool.Pool
}

func NewConsensusStore(db *pgxpool.Pool) *ConsensusStore {
	return &ConsensusStore{db: db}
}

func (s *ConsensusStore) Create(ctx context.Context, r *domain.ConsensusResult) error {
	breakdown, err := json.Marshal(r.MemberBreakdown)
	if err != nil {
		return err
	}

	return s.db.QueryRow(ctx,
		`INSERT INTO consensus_results (game_id, category, aggregated_value, aggregated_numeric, consensus_confidence, member_breakdown, snapshot_id, incomplete)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at`,
		r.GameID, r.Category, r.AggregatedValue, r.AggregatedNumeric, r.ConsensusConfidence, breakdown, r.SnapshotID, r.Incomplete,
	).Scan(&r.ID, &r.CreatedAt)
}

func (s *ConsensusStore) Get(ctx context.Context, gameID, category string) (*domain.ConsensusResult, error) {
	r := &domain.ConsensusResult{}
	var breakdown []byte
	err := s.db.QueryRow(ctx,
		`SELECT id, game_id, category, aggregated_value, aggregated_numeric, consensus_confidence, member_breakdown, snapshot_id, incomplete, created_at
		 FROM consensus_results
		 WHERE game_id = $1 AND category = $2
		 ORDER BY created_at DESC
		 LIMIT 1`,
		gameID, category,
	).Scan(&r.ID, &r.GameID, &r.Category, &r.AggregatedValue, &r.AggregatedNumeric, &r.ConsensusConfidence, &breakdown, &r.SnapshotID, &r.Incomplete, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(breakdown, &r.MemberBreakdown); err != nil {
		return nil, err
	}
	return r, nil
}
