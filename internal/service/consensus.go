package service

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/Harshitk-cp/quorum/internal/domain"
	"github.com/Harshitk-cp/quorum/internal/store"
	"go.uber.org/zap"
)

var (
	ErrEmptyCouncil    = errors.New("council snapshot has no usable members")
	ErrNoCouncil       = errors.New("no current council snapshot")
	ErrIncompleteVotes = errors.New("some council members did not vote")
)

// ConsensusService aggregates the current council's predictions into one
// auditable result per (game, category).
type ConsensusService struct {
	council     domain.CouncilStore
	results     domain.ConsensusStore
	predictions domain.PredictionStore
	registry    *CategoryRegistry
	selector    *SelectorService
	logger      *zap.Logger
}

func NewConsensusService(cs domain.CouncilStore, rs domain.ConsensusStore, ps domain.PredictionStore, registry *CategoryRegistry, selector *SelectorService, logger *zap.Logger) *ConsensusService {
	return &ConsensusService{
		council:     cs,
		results:     rs,
		predictions: ps,
		registry:    registry,
		selector:    selector,
		logger:      logger,
	}
}

// Aggregate forms a consensus for the game and category from the current
// snapshot. Missing member votes are non-fatal: remaining weights are
// renormalised and the result is flagged incomplete.
func (s *ConsensusService) Aggregate(ctx context.Context, gameID, category string) (*domain.ConsensusResult, error) {
	snap, err := s.currentSnapshot(ctx, category)
	if err != nil {
		return nil, err
	}
	if len(snap.Members) == 0 {
		return nil, ErrEmptyCouncil
	}

	records, err := s.predictions.ListByGameCategory(ctx, gameID, category)
	if err != nil {
		return nil, err
	}

	votes, missing := s.collectVotes(ctx, snap, category, records)
	if len(votes) == 0 {
		return nil, ErrEmptyCouncil
	}
	if missing > 0 {
		s.logger.Warn("aggregating with incomplete votes",
			zap.String("game_id", gameID),
			zap.String("category", category),
			zap.Int("missing", missing))
	}

	normalizeWeights(votes)

	cat, known := s.registry.Lookup(category)
	numeric := known && cat.Kind != domain.KindCategorical

	result := &domain.ConsensusResult{
		GameID:          gameID,
		Category:        category,
		MemberBreakdown: votes,
		SnapshotID:      snap.ID,
		Incomplete:      missing > 0,
	}

	var agreement float64
	if numeric {
		agreement = s.aggregateNumeric(result, votes)
	} else {
		agreement = s.aggregateCategorical(result, votes)
	}

	weightedConf := 0.0
	for _, v := range votes {
		weightedConf += v.Weight * float64(v.Confidence)
	}
	result.ConsensusConfidence = agreement * weightedConf

	if err := s.results.Create(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *ConsensusService) Latest(ctx context.Context, gameID, category string) (*domain.ConsensusResult, error) {
	return s.results.Get(ctx, gameID, category)
}

// currentSnapshot prefers a category-scoped council, falling back to the
// overall one.
func (s *ConsensusService) currentSnapshot(ctx context.Context, category string) (*domain.CouncilSnapshot, error) {
	now := time.Now()
	snap, err := s.council.Current(ctx, category, now)
	if err == nil {
		return snap, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	snap, err = s.council.Current(ctx, "", now)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNoCouncil
		}
		return nil, err
	}
	return snap, nil
}

// collectVotes matches the snapshot's members against submitted predictions.
// Vote weight is the composite formula recomputed for this category, so a
// member's influence differs by bet type; the snapshot weight is the
// fallback when no ranking data exists.
func (s *ConsensusService) collectVotes(ctx context.Context, snap *domain.CouncilSnapshot, category string, records []domain.PredictionRecord) ([]domain.MemberVote, int) {
	byExpert := make(map[string]*domain.PredictionRecord, len(records))
	for i := range records {
		byExpert[records[i].ExpertID.String()] = &records[i]
	}

	composites := make(map[string]float64)
	if s.selector != nil {
		if ranked, err := s.selector.RankExperts(ctx, category); err != nil {
			s.logger.Warn("per-category weight recompute failed, using snapshot weights", zap.Error(err))
		} else {
			for _, r := range ranked {
				composites[r.Expert.ID.String()] = r.Composite
			}
		}
	}

	var votes []domain.MemberVote
	missing := 0
	for _, m := range snap.Members {
		rec, ok := byExpert[m.ExpertID.String()]
		if !ok {
			missing++
			continue
		}
		weight := m.Weight
		if c, ok := composites[m.ExpertID.String()]; ok && c > 0 {
			weight = c
		}
		votes = append(votes, domain.MemberVote{
			ExpertID:         m.ExpertID,
			PredictedValue:   rec.PredictedValue,
			PredictedNumeric: rec.PredictedNumeric,
			Confidence:       rec.Confidence,
			Weight:           weight,
		})
	}
	return votes, missing
}

func normalizeWeights(votes []domain.MemberVote) {
	total := 0.0
	for _, v := range votes {
		total += v.Weight
	}
	if total == 0 {
		for i := range votes {
			votes[i].Weight = 1.0 / float64(len(votes))
		}
		return
	}
	for i := range votes {
		votes[i].Weight /= total
	}
}

// aggregateNumeric computes the weighted mean and returns the agreement as
// 1 − normalised spread around it.
func (s *ConsensusService) aggregateNumeric(result *domain.ConsensusResult, votes []domain.MemberVote) float64 {
	mean := 0.0
	usable := 0.0
	for _, v := range votes {
		if v.PredictedNumeric == nil {
			continue
		}
		mean += v.Weight * *v.PredictedNumeric
		usable += v.Weight
	}
	if usable == 0 {
		// No numeric payloads; treat the values as labels instead.
		return s.aggregateCategorical(result, votes)
	}
	mean /= usable

	variance := 0.0
	for _, v := range votes {
		if v.PredictedNumeric == nil {
			continue
		}
		d := *v.PredictedNumeric - mean
		variance += (v.Weight / usable) * d * d
	}
	spread := math.Sqrt(variance) / math.Max(math.Abs(mean), 1)

	agreement := 1 - spread
	if agreement < 0 {
		agreement = 0
	}

	value := mean
	result.AggregatedNumeric = &value
	result.AggregatedValue = formatNumeric(mean)
	return agreement
}

// aggregateCategorical runs a weighted plurality. Ties break on the highest
// single weighted vote, then on the highest average confidence among the
// tied options.
func (s *ConsensusService) aggregateCategorical(result *domain.ConsensusResult, votes []domain.MemberVote) float64 {
	type option struct {
		label      string
		weight     float64
		maxSingle  float64
		confSum    float64
		confVoters int
	}
	options := make(map[string]*option)

	for _, v := range votes {
		key := strings.ToLower(strings.TrimSpace(v.PredictedValue))
		o, ok := options[key]
		if !ok {
			o = &option{label: strings.TrimSpace(v.PredictedValue)}
			options[key] = o
		}
		o.weight += v.Weight
		if v.Weight > o.maxSingle {
			o.maxSingle = v.Weight
		}
		o.confSum += float64(v.Confidence)
		o.confVoters++
	}

	var winner *option
	for _, o := range options {
		if winner == nil {
			winner = o
			continue
		}
		switch {
		case o.weight > winner.weight:
			winner = o
		case o.weight == winner.weight:
			if o.maxSingle > winner.maxSingle {
				winner = o
			} else if o.maxSingle == winner.maxSingle {
				if o.confSum/float64(o.confVoters) > winner.confSum/float64(winner.confVoters) {
					winner = o
				}
			}
		}
	}

	result.AggregatedValue = winner.label
	return winner.weight
}

func formatNumeric(v float64) string {
	return strings.TrimRight(strings.TrimRight(strconv.FormatFloat(v, 'f', 2, 64), "0"), ".")
}
