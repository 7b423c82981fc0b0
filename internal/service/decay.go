package service

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/Harshitk-cp/quorum/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultDecayInterval = 1 * time.Hour

	// VividnessFloor keeps decayed memories addressable until archived.
	VividnessFloor = 0.05

	// ArchiveVividness is the threshold below which a memory is dropped
	// during decay.
	ArchiveVividness = 0.1

	// retentionRetrievalWeight rewards frequently retrieved memories when
	// consolidation must evict beyond the cap.
	retentionRetrievalWeight = 0.1
)

type DecayResult struct {
	Decayed    int `json:"decayed"`
	Reinforced int `json:"reinforced"`
	Archived   int `json:"archived"`
}

type ConsolidateResult struct {
	Evicted int `json:"evicted"`
	Kept    int `json:"kept"`
}

// DecayService runs the periodic vividness decay and per-expert
// consolidation. Both are explicit batch operations so behaviour stays
// deterministic under test; the worker only schedules them.
type DecayService struct {
	memories domain.MemoryStore
	logger   *zap.Logger

	ageThreshold time.Duration
	capPerExpert int

	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewDecayService(ms domain.MemoryStore, ageThreshold time.Duration, capPerExpert int, logger *zap.Logger) *DecayService {
	return &DecayService{
		memories:     ms,
		logger:       logger,
		ageThreshold: ageThreshold,
		capPerExpert: capPerExpert,
		interval:     defaultDecayInterval,
		stopCh:       make(chan struct{}),
	}
}

func (s *DecayService) SetInterval(d time.Duration) {
	s.interval = d
}

func (s *DecayService) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info("decay worker started", zap.Duration("interval", s.interval))

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
				s.RunDecay(ctx)
				s.RunConsolidation(ctx)
				cancel()
			case <-s.stopCh:
				s.logger.Info("decay worker stopped")
				return
			}
		}
	}()
}

func (s *DecayService) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

// RunDecay processes one expert's memory set at a time so cancellation never
// leaves an expert half-decayed across passes.
func (s *DecayService) RunDecay(ctx context.Context) *DecayResult {
	total := &DecayResult{}

	expertIDs, err := s.memories.ListExpertIDs(ctx)
	if err != nil {
		s.logger.Error("failed to list experts for decay", zap.Error(err))
		return total
	}

	for _, expertID := range expertIDs {
		if ctx.Err() != nil {
			s.logger.Warn("decay cancelled", zap.Error(ctx.Err()))
			return total
		}
		result, err := s.DecayExpert(ctx, expertID)
		if err != nil {
			s.logger.Error("decay failed for expert",
				zap.String("expert_id", expertID.String()),
				zap.Error(err))
			continue
		}
		total.Decayed += result.Decayed
		total.Reinforced += result.Reinforced
		total.Archived += result.Archived
	}

	return total
}

// DecayExpert applies one decay pass to a single expert. Memories younger
// than the age threshold are untouched; memories retrieved since the last
// pass are reinforced (marked, not decayed); the rest lose vividness by
// their decay rate, and anything below the archive threshold is dropped.
func (s *DecayService) DecayExpert(ctx context.Context, expertID uuid.UUID) (*DecayResult, error) {
	result := &DecayResult{}
	now := time.Now()

	memories, err := s.memories.ListByExpert(ctx, expertID)
	if err != nil {
		return nil, err
	}

	for _, m := range memories {
		if now.Sub(m.CreatedAt) < s.ageThreshold {
			continue
		}

		if m.RetrievalCount > m.DecayRetrievalCount {
			if err := s.memories.UpdateDecay(ctx, m.ID, m.Vividness, m.RetrievalCount); err != nil {
				s.logger.Warn("failed to mark reinforcement", zap.Error(err))
				continue
			}
			result.Reinforced++
			continue
		}

		newVividness := m.Vividness * (1 - m.DecayRate)
		if newVividness < VividnessFloor {
			newVividness = VividnessFloor
		}

		if newVividness <= ArchiveVividness {
			if err := s.memories.Archive(ctx, m.ID); err != nil {
				s.logger.Warn("failed to archive memory", zap.Error(err))
				continue
			}
			result.Archived++
			continue
		}

		if err := s.memories.UpdateDecay(ctx, m.ID, newVividness, m.RetrievalCount); err != nil {
			s.logger.Warn("failed to update vividness", zap.Error(err))
			continue
		}
		result.Decayed++
	}

	return result, nil
}

// RunConsolidation enforces the per-expert memory cap across all experts.
func (s *DecayService) RunConsolidation(ctx context.Context) *ConsolidateResult {
	total := &ConsolidateResult{}

	expertIDs, err := s.memories.ListExpertIDs(ctx)
	if err != nil {
		s.logger.Error("failed to list experts for consolidation", zap.Error(err))
		return total
	}

	for _, expertID := range expertIDs {
		if ctx.Err() != nil {
			return total
		}
		result, err := s.Consolidate(ctx, expertID)
		if err != nil {
			s.logger.Error("consolidation failed for expert",
				zap.String("expert_id", expertID.String()),
				zap.Error(err))
			continue
		}
		total.Evicted += result.Evicted
		total.Kept += result.Kept
	}

	return total
}

// Consolidate evicts the lowest-retention memories beyond the cap. Retention
// favours vividness, with a retrieval bonus so well-used memories survive a
// vividness dip.
func (s *DecayService) Consolidate(ctx context.Context, expertID uuid.UUID) (*ConsolidateResult, error) {
	count, err := s.memories.CountByExpert(ctx, expertID)
	if err != nil {
		return nil, err
	}
	if count <= s.capPerExpert {
		return &ConsolidateResult{Kept: count}, nil
	}

	memories, err := s.memories.ListByExpert(ctx, expertID)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(memories, func(i, j int) bool {
		return retentionScore(&memories[i]) < retentionScore(&memories[j])
	})

	evict := len(memories) - s.capPerExpert
	result := &ConsolidateResult{Kept: len(memories) - evict}
	for _, m := range memories[:evict] {
		if err := s.memories.Archive(ctx, m.ID); err != nil {
			s.logger.Warn("failed to evict memory", zap.Error(err))
			continue
		}
		result.Evicted++
	}

	s.logger.Info("consolidation complete for expert",
		zap.String("expert_id", expertID.String()),
		zap.Int("evicted", result.Evicted),
		zap.Int("kept", result.Kept))

	return result, nil
}

func retentionScore(m *domain.Memory) float64 {
	return float64(m.Vividness) + retentionRetrievalWeight*math.Log1p(float64(m.RetrievalCount))
}
