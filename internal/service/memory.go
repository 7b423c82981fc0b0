package service

import (
	"context"
	"errors"
	"hash/fnv"
	"sort"
	"strconv"
	"strings"

	"github.com/Harshitk-cp/quorum/internal/domain"
	"github.com/Harshitk-cp/quorum/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// contextVectorDims is the hashed feature-vector width used for the
	// similarity prefilter.
	contextVectorDims = 16

	// retrievalBoost is the vividness reinforcement applied when a memory is
	// returned from retrieval. This is the only path that raises vividness.
	retrievalBoost = 0.02

	// prefilterMultiple controls how many vector candidates the store hands
	// back for re-ranking per requested result.
	prefilterMultiple = 4

	similarityWeightParticipants = 0.4
	similarityWeightNumeric      = 0.3
	similarityWeightFactors      = 0.3
	vividnessBonusWeight         = 0.2

	failureConfidence = 0.75
	upsetConfidence   = 0.35
)

// MemoryService maintains each expert's decaying episodic memory. Creation
// happens synchronously with outcome resolution; retrieval is read-mostly
// and tolerates slightly stale vividness.
type MemoryService struct {
	memories  domain.MemoryStore
	experts   domain.ExpertStore
	consensus domain.ConsensusStore
	logger    *zap.Logger
}

func NewMemoryService(ms domain.MemoryStore, es domain.ExpertStore, cs domain.ConsensusStore, logger *zap.Logger) *MemoryService {
	return &MemoryService{memories: ms, experts: es, consensus: cs, logger: logger}
}

// CreateFromResolution classifies and stores one resolved prediction as a
// memory. extraFactors lets the caller attach game context (weather, rest
// days, injuries) that later drives retrieval overlap.
func (s *MemoryService) CreateFromResolution(ctx context.Context, p *domain.PredictionRecord, o *domain.OutcomeRecord, correct bool, extraFactors map[string]string) (*domain.Memory, error) {
	errNorm := normalizedError(p, o, correct)

	factors := map[string]string{
		"category":   p.Category,
		"predicted":  p.PredictedValue,
		"actual":     o.ActualValue,
		"confidence": strconv.FormatFloat(float64(p.Confidence), 'f', 2, 64),
	}
	for k, v := range extraFactors {
		factors[k] = v
	}

	memType := s.classify(ctx, p, correct)
	intensity := emotionalIntensity(p.Confidence, errNorm, correct)

	m := &domain.Memory{
		ExpertID:           p.ExpertID,
		GameID:             p.GameID,
		Type:               memType,
		EmotionalIntensity: intensity,
		Vividness:          intensity,
		ContextualFactors:  factors,
		LessonsLearned:     seedLessons(memType, p),
		ContextVector:      factorVector(factors, nil, float64(p.Confidence)),
	}

	if err := s.memories.Create(ctx, m); err != nil {
		return nil, err
	}

	s.logger.Debug("memory created",
		zap.String("expert_id", p.ExpertID.String()),
		zap.String("game_id", p.GameID),
		zap.String("type", string(memType)),
		zap.Float32("vividness", m.Vividness))

	return m, nil
}

// classify applies the simple rule set: a confident miss is a failure, a
// diffident hit is an upset, a hit that went against a standing consensus is
// a consensus deviation, everything else is a plain outcome.
func (s *MemoryService) classify(ctx context.Context, p *domain.PredictionRecord, correct bool) domain.MemoryType {
	if !correct {
		if p.Confidence >= failureConfidence {
			return domain.MemoryFailure
		}
		return domain.MemoryLearningMoment
	}

	if s.consensus != nil {
		if r, err := s.consensus.Get(ctx, p.GameID, p.Category); err == nil {
			if !strings.EqualFold(strings.TrimSpace(r.AggregatedValue), strings.TrimSpace(p.PredictedValue)) {
				return domain.MemoryConsensusDeviation
			}
		}
	}

	if p.Confidence <= upsetConfidence {
		return domain.MemoryUpset
	}
	return domain.MemoryOutcome
}

// RetrieveSimilar returns the top memories for a situation, most similar
// first, recency breaking ties. An empty history is the normal cold-start
// case and returns an empty slice.
func (s *MemoryService) RetrieveSimilar(ctx context.Context, expertID uuid.UUID, situation *domain.Situation, limit int) ([]domain.MemoryWithScore, error) {
	if limit <= 0 {
		limit = 5
	}
	if _, err := s.experts.GetByID(ctx, expertID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrExpertNotFound
		}
		return nil, err
	}

	vec := factorVector(situation.Factors, situation.Participants, float64(situation.Confidence))
	candidates, err := s.memories.FindSimilar(ctx, expertID, vec, limit*prefilterMultiple)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return []domain.MemoryWithScore{}, nil
	}

	for i := range candidates {
		c := &candidates[i]
		c.Score = similarity(situation, &c.Memory) + vividnessBonusWeight*float64(c.Vividness)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].CreatedAt.After(candidates[j].CreatedAt)
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	// Retrieval reinforces: bump the count and vividness of what came back.
	for _, c := range candidates {
		if err := s.memories.IncrementRetrieval(ctx, c.ID, retrievalBoost); err != nil {
			s.logger.Warn("failed to reinforce memory", zap.String("memory_id", c.ID.String()), zap.Error(err))
		}
	}

	return candidates, nil
}

// similarity is the weighted sum of participant overlap, numeric proximity
// of line/confidence, and contextual factor overlap.
func similarity(sit *domain.Situation, m *domain.Memory) float64 {
	participants := splitList(m.ContextualFactors["participants"])
	pOverlap := jaccard(sit.Participants, participants)

	numeric := 0.0
	if sit.Line != nil {
		if stored, err := strconv.ParseFloat(m.ContextualFactors["line"], 64); err == nil {
			d := abs(*sit.Line - stored)
			numeric = 1 / (1 + d/10)
		}
	} else if sit.Confidence > 0 {
		if stored, err := strconv.ParseFloat(m.ContextualFactors["confidence"], 64); err == nil {
			numeric = 1 - abs(float64(sit.Confidence)-stored)
		}
	}

	fOverlap := factorOverlap(sit.Factors, m.ContextualFactors)

	return similarityWeightParticipants*pOverlap +
		similarityWeightNumeric*numeric +
		similarityWeightFactors*fOverlap
}

func jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]bool, len(a))
	for _, s := range a {
		set[strings.ToLower(strings.TrimSpace(s))] = true
	}
	inter := 0
	union := len(set)
	for _, s := range b {
		key := strings.ToLower(strings.TrimSpace(s))
		if set[key] {
			inter++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func factorOverlap(query, stored map[string]string) float64 {
	if len(query) == 0 || len(stored) == 0 {
		return 0
	}
	matches := 0
	for k, v := range query {
		if sv, ok := stored[k]; ok && strings.EqualFold(strings.TrimSpace(sv), strings.TrimSpace(v)) {
			matches++
		}
	}
	return float64(matches) / float64(len(query))
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// normalizedError maps the prediction-vs-actual distance onto [0,1].
func normalizedError(p *domain.PredictionRecord, o *domain.OutcomeRecord, correct bool) float64 {
	pred, okP := numericValue(p.PredictedNumeric, p.PredictedValue)
	actual, okA := numericValue(o.ActualNumeric, o.ActualValue)
	if okP && okA {
		e := abs(pred-actual) / maxFloat(abs(actual), 1)
		if e > 1 {
			e = 1
		}
		return e
	}
	if correct {
		return 0
	}
	return 1
}

// emotionalIntensity rises with surprise: confident misses and diffident
// hits both burn hotter than expected results.
func emotionalIntensity(confidence float32, errNorm float64, correct bool) float32 {
	surprise := float64(confidence)
	if correct {
		surprise = 1 - float64(confidence)
	}
	v := 0.25 + 0.5*surprise + 0.25*errNorm
	if v > 1 {
		v = 1
	}
	if v < 0 {
		v = 0
	}
	return float32(v)
}

func seedLessons(t domain.MemoryType, p *domain.PredictionRecord) []string {
	switch t {
	case domain.MemoryFailure:
		return []string{"overconfidence:" + p.Category}
	case domain.MemoryUpset:
		return []string{"underconfidence:" + p.Category}
	case domain.MemoryConsensusDeviation:
		return []string{"contrarian_win:" + p.Category}
	default:
		return nil
	}
}

// factorVector hashes situation features into a fixed-width vector for the
// store's nearest-neighbour prefilter. Deterministic by construction.
func factorVector(factors map[string]string, participants []string, confidence float64) []float32 {
	vec := make([]float32, contextVectorDims)

	add := func(token string, weight float32) {
		if token == "" {
			return
		}
		h := fnv.New32a()
		_, _ = h.Write([]byte(strings.ToLower(token)))
		vec[h.Sum32()%contextVectorDims] += weight
	}

	for k, v := range factors {
		add(k+"="+v, 1)
		if k == "participants" {
			for _, p := range splitList(v) {
				add("participant:"+p, 1)
			}
		}
	}
	for _, p := range participants {
		add("participant:"+p, 1)
	}
	vec[0] += float32(confidence)

	return vec
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
