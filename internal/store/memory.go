package store

import (
	"context"
	"fmt"

	"github.com/Harshitk-cp/quorum/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
)

type MemoryStore struct {
	db *pgxpool.Pool
}

func NewMemoryStore(db *pgxpool.Pool) *MemoryStore {
	return &MemoryStore{db: db}
}

func (s *MemoryStore) Create(ctx context.Context, m *domain.Memory) error {
	var vector *pgvector.Vector
	if len(m.ContextVector) > 0 {
		v := pgvector.NewVector(m.ContextVector)
		vector = &v
	}

	if m.DecayRate == 0 {
		m.DecayRate = 0.05
	}

	return s.db.QueryRow(ctx,
		`INSERT INTO memories (expert_id, game_id, type, emotional_intensity, vividness, decay_rate, contextual_factors, lessons_learned, context_vector, retrieval_count, decay_retrieval_count)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0, 0)
		 RETURNING id, created_at`,
		m.ExpertID, m.GameID, m.Type, m.EmotionalIntensity, m.Vividness, m.DecayRate, m.ContextualFactors, m.LessonsLearned, vector,
	).Scan(&m.ID, &m.CreatedAt)
}

// FindSimilar returns the nearest candidates by context vector. The service
// layer re-ranks these with the full similarity formula; this query only
// narrows the field.
func (s *MemoryStore) FindSimilar(ctx context.Context, expertID uuid.UUID, vector []float32, limit int) ([]domain.MemoryWithScore, error) {
	if limit <= 0 {
		limit = 10
	}
	vec := pgvector.NewVector(vector)

	rows, err := s.db.Query(ctx,
		`SELECT id, expert_id, game_id, type, emotional_intensity, vividness, decay_rate, contextual_factors, lessons_learned, retrieval_count, decay_retrieval_count, created_at,
		        1 - (context_vector <=> $1) AS score
		 FROM memories
		 WHERE expert_id = $2 AND context_vector IS NOT NULL
		 ORDER BY context_vector <=> $1
		 LIMIT $3`,
		vec, expertID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("find similar query: %w", err)
	}
	defer rows.Close()

	var results []domain.MemoryWithScore
	for rows.Next() {
		var ms domain.MemoryWithScore
		err := rows.Scan(
			&ms.ID, &ms.ExpertID, &ms.GameID, &ms.Type, &ms.EmotionalIntensity, &ms.Vividness, &ms.DecayRate,
			&ms.ContextualFactors, &ms.LessonsLearned, &ms.RetrievalCount, &ms.DecayRetrievalCount, &ms.CreatedAt,
			&ms.Score,
		)
		if err != nil {
			return nil, fmt.Errorf("scan find similar row: %w", err)
		}
		results = append(results, ms)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find similar rows: %w", err)
	}

	return results, nil
}

func (s *MemoryStore) ListByExpert(ctx context.Context, expertID uuid.UUID) ([]domain.Memory, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, expert_id, game_id, type, emotional_intensity, vividness, decay_rate, contextual_factors, lessons_learned, retrieval_count, decay_retrieval_count, created_at
		 FROM memories WHERE expert_id = $1`,
		expertID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var memories []domain.Memory
	for rows.Next() {
		var m domain.Memory
		if err := rows.Scan(&m.ID, &m.ExpertID, &m.GameID, &m.Type, &m.EmotionalIntensity, &m.Vividness, &m.DecayRate, &m.ContextualFactors, &m.LessonsLearned, &m.RetrievalCount, &m.DecayRetrievalCount, &m.CreatedAt); err != nil {
			return nil, err
		}
		memories = append(memories, m)
	}
	return memories, rows.Err()
}

func (s *MemoryStore) ListExpertIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := s.db.Query(ctx, `SELECT DISTINCT expert_id FROM memories`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expertIDs []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		expertIDs = append(expertIDs, id)
	}
	return expertIDs, rows.Err()
}

func (s *MemoryStore) CountByExpert(ctx context.Context, expertID uuid.UUID) (int, error) {
	var count int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM memories WHERE expert_id = $1`,
		expertID,
	).Scan(&count)
	return count, err
}

func (s *MemoryStore) IncrementRetrieval(ctx context.Context, id uuid.UUID, boost float32) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE memories
		 SET retrieval_count = retrieval_count + 1,
		     vividness = LEAST(vividness + $2, 1.0)
		 WHERE id = $1`,
		id, boost,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MemoryStore) UpdateDecay(ctx context.Context, id uuid.UUID, vividness float32, retrievalCount int) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE memories SET vividness = $1, decay_retrieval_count = $2 WHERE id = $3`,
		vividness, retrievalCount, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MemoryStore) Archive(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM memories WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
