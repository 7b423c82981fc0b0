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

type PredictionStore struct {
	db *pgxpool.Pool
}

func NewPredictionStore(db *pgxpool.Pool) *PredictionStore {
	return &PredictionStore{db: db}
}

const predictionColumns = `id, expert_id, game_id, category, predicted_value, predicted_numeric, confidence, correct, verified, created_at, resolved_at`

func scanPrediction(row pgx.Row, p *domain.PredictionRecord) error {
	return row.Scan(&p.ID, &p.ExpertID, &p.GameID, &p.Category, &p.PredictedValue, &p.PredictedNumeric, &p.Confidence, &p.Correct, &p.Verified, &p.CreatedAt, &p.ResolvedAt)
}

func (s *PredictionStore) CreatePrediction(ctx context.Context, p *domain.PredictionRecord) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO prediction_records (expert_id, game_id, category, predicted_value, predicted_numeric, confidence)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		p.ExpertID, p.GameID, p.Category, p.PredictedValue, p.PredictedNumeric, p.Confidence,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil && isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (s *PredictionStore) CreateOutcome(ctx context.Context, o *domain.OutcomeRecord) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO outcome_records (game_id, category, actual_value, actual_numeric, resolved_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		o.GameID, o.Category, o.ActualValue, o.ActualNumeric, o.ResolvedAt,
	)
	if err != nil && isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (s *PredictionStore) GetOutcome(ctx context.Context, gameID, category string) (*domain.OutcomeRecord, error) {
	o := &domain.OutcomeRecord{}
	err := s.db.QueryRow(ctx,
		`SELECT game_id, category, actual_value, actual_numeric, resolved_at
		 FROM outcome_records WHERE game_id = $1 AND category = $2`,
		gameID, category,
	).Scan(&o.GameID, &o.Category, &o.ActualValue, &o.ActualNumeric, &o.ResolvedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return o, nil
}

func (s *PredictionStore) ListPending(ctx context.Context, gameID, category string) ([]domain.PredictionRecord, error) {
	return s.list(ctx,
		`SELECT `+predictionColumns+`
		 FROM prediction_records
		 WHERE game_id = $1 AND category = $2 AND resolved_at IS NULL
		 ORDER BY created_at ASC`,
		gameID, category,
	)
}

func (s *PredictionStore) ListByGameCategory(ctx context.Context, gameID, category string) ([]domain.PredictionRecord, error) {
	return s.list(ctx,
		`SELECT `+predictionColumns+`
		 FROM prediction_records
		 WHERE game_id = $1 AND category = $2
		 ORDER BY created_at ASC`,
		gameID, category,
	)
}

func (s *PredictionStore) Resolve(ctx context.Context, id uuid.UUID, correct *bool, verified bool, resolvedAt time.Time) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE prediction_records
		 SET correct = $1, verified = $2, resolved_at = $3
		 WHERE id = $4 AND resolved_at IS NULL`,
		correct, verified, resolvedAt, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDuplicate
	}
	return nil
}

func (s *PredictionStore) ListResolvedByExpert(ctx context.Context, expertID uuid.UUID, limit int) ([]domain.PredictionRecord, error) {
	return s.list(ctx,
		`SELECT `+predictionColumns+`
		 FROM prediction_records
		 WHERE expert_id = $1 AND verified = TRUE
		 ORDER BY resolved_at DESC
		 LIMIT $2`,
		expertID, limit,
	)
}

func (s *PredictionStore) ListResolvedByExpertCategory(ctx context.Context, expertID uuid.UUID, category string, limit int) ([]domain.PredictionRecord, error) {
	return s.list(ctx,
		`SELECT `+predictionColumns+`
		 FROM prediction_records
		 WHERE expert_id = $1 AND category = $2 AND verified = TRUE
		 ORDER BY resolved_at ASC
		 LIMIT $3`,
		expertID, category, limit,
	)
}

func (s *PredictionStore) list(ctx context.Context, query string, args ...any) ([]domain.PredictionRecord, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.PredictionRecord
	for rows.Next() {
		var p domain.PredictionRecord
		if err := scanPrediction(rows, &p); err != nil {
			return nil, err
		}
		records = append(records, p)
	}
	return records, rows.Err()
}
