package service

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"
	"time"

	"github.com/Harshitk-cp/quorum/internal/domain"
	"github.com/Harshitk-cp/quorum/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrDuplicateRecord = errors.New("outcome already recorded for game and category")
	ErrUnknownCategory = errors.New("category is not registered")
	ErrExpertNotFound  = errors.New("expert not found")
)

const (
	// profileHistoryLimit bounds how many resolved records a profile read
	// pulls; oldest history beyond it no longer moves the averages.
	profileHistoryLimit = 500

	trackerLockStripes = 64
)

type ResolveResult struct {
	Resolved int  `json:"resolved"`
	Correct  int  `json:"correct"`
	Verified bool `json:"verified"`
}

// TrackerService records prediction outcomes and serves performance
// profiles. Counters are derived from resolved prediction records, so
// correct + incorrect always equals total and nothing can mutate them
// outside RecordOutcome.
type TrackerService struct {
	predictions domain.PredictionStore
	experts     domain.ExpertStore
	registry    *CategoryRegistry
	memories    *MemoryService
	logger      *zap.Logger

	minSample    int
	recentWindow int

	// Striped per-(expert, category) locks guard the read-modify-write when
	// a full slate of outcomes resolves concurrently.
	locks [trackerLockStripes]sync.Mutex
}

func NewTrackerService(ps domain.PredictionStore, es domain.ExpertStore, registry *CategoryRegistry, memories *MemoryService, minSample int, logger *zap.Logger) *TrackerService {
	return &TrackerService{
		predictions:  ps,
		experts:      es,
		registry:     registry,
		memories:     memories,
		logger:       logger,
		minSample:    minSample,
		recentWindow: 20,
	}
}

func (s *TrackerService) lockFor(expertID uuid.UUID, category string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write(expertID[:])
	_, _ = h.Write([]byte(category))
	return &s.locks[h.Sum32()%trackerLockStripes]
}

// SubmitPrediction stores a raw prediction from the prediction provider.
// Replays of (expert, game, category) are rejected as duplicates.
func (s *TrackerService) SubmitPrediction(ctx context.Context, p *domain.PredictionRecord) error {
	if p.Confidence < 0 || p.Confidence > 1 {
		return errors.New("confidence must be in [0,1]")
	}
	if _, err := s.experts.GetByID(ctx, p.ExpertID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrExpertNotFound
		}
		return err
	}
	if err := s.predictions.CreatePrediction(ctx, p); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return ErrDuplicateRecord
		}
		return err
	}
	return nil
}

// RecordOutcome resolves every pending prediction for the outcome's game and
// category. Duplicate outcomes are idempotent: the error is returned for the
// caller to log, and no counter changes. Unknown categories resolve their
// predictions unverified and report ErrUnknownCategory.
func (s *TrackerService) RecordOutcome(ctx context.Context, o *domain.OutcomeRecord) (*ResolveResult, error) {
	if o.ResolvedAt.IsZero() {
		o.ResolvedAt = time.Now()
	}

	cat, known := s.registry.Lookup(o.Category)

	if err := s.predictions.CreateOutcome(ctx, o); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			s.logger.Info("duplicate outcome ignored",
				zap.String("game_id", o.GameID),
				zap.String("category", o.Category))
			return nil, ErrDuplicateRecord
		}
		return nil, err
	}

	pending, err := s.predictions.ListPending(ctx, o.GameID, o.Category)
	if err != nil {
		return nil, err
	}

	result := &ResolveResult{Verified: known}
	for i := range pending {
		p := &pending[i]
		if err := s.resolveOne(ctx, p, o, cat, known, result); err != nil {
			s.logger.Error("failed to resolve prediction",
				zap.String("prediction_id", p.ID.String()),
				zap.Error(err))
		}
	}

	if !known {
		s.logger.Warn("outcome for unregistered category stored unverified",
			zap.String("category", o.Category),
			zap.Int("predictions", len(pending)))
		return result, ErrUnknownCategory
	}

	return result, nil
}

func (s *TrackerService) resolveOne(ctx context.Context, p *domain.PredictionRecord, o *domain.OutcomeRecord, cat domain.Category, known bool, result *ResolveResult) error {
	mu := s.lockFor(p.ExpertID, p.Category)
	mu.Lock()
	defer mu.Unlock()

	var correctPtr *bool
	verified := false
	correct := false

	if known {
		var verifiable bool
		correct, verifiable = s.registry.Judge(cat.Kind, p, o)
		if verifiable {
			verified = true
			correctPtr = &correct
		}
	}

	if err := s.predictions.Resolve(ctx, p.ID, correctPtr, verified, o.ResolvedAt); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			// Already resolved by a concurrent replay; counters untouched.
			return nil
		}
		return err
	}

	result.Resolved++
	if verified && correct {
		result.Correct++
	}

	// Memory creation is synchronous with resolution so no resolved
	// prediction is ever lost to a crash between the two writes.
	if verified && s.memories != nil {
		if _, err := s.memories.CreateFromResolution(ctx, p, o, correct, nil); err != nil {
			s.logger.Error("failed to create memory for resolution",
				zap.String("prediction_id", p.ID.String()),
				zap.Error(err))
		}
	}

	return nil
}

// Profile computes the read-side performance view for one expert.
func (s *TrackerService) Profile(ctx context.Context, expertID uuid.UUID) (*domain.Profile, error) {
	expert, err := s.experts.GetByID(ctx, expertID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrExpertNotFound
		}
		return nil, err
	}

	records, err := s.predictions.ListResolvedByExpert(ctx, expertID, profileHistoryLimit)
	if err != nil {
		return nil, err
	}

	profile := &domain.Profile{
		ExpertID:   expertID,
		Status:     expert.Status,
		ByCategory: make(map[string]domain.CategoryAccuracy),
	}

	correct := 0
	recentCorrect := 0
	recentTotal := 0
	for i, r := range records {
		if r.Correct == nil {
			continue
		}
		profile.TotalResolved++
		c := profile.ByCategory[r.Category]
		c.Total++
		if *r.Correct {
			correct++
			c.Correct++
		}
		profile.ByCategory[r.Category] = c

		// Records arrive most recent first.
		if i < s.recentWindow {
			recentTotal++
			if *r.Correct {
				recentCorrect++
			}
		}
	}

	if profile.TotalResolved == 0 {
		profile.OverallAccuracy = 0.5
		profile.RecentAccuracy = 0.5
		profile.CalibrationScore = 0.5
		profile.Provisional = true
		return profile, nil
	}

	profile.OverallAccuracy = float64(correct) / float64(profile.TotalResolved)
	if recentTotal > 0 {
		profile.RecentAccuracy = float64(recentCorrect) / float64(recentTotal)
	}
	profile.CalibrationScore = calibrationScore(records)
	profile.Provisional = profile.TotalResolved < s.minSample

	return profile, nil
}

// calibrationScore buckets verified records into confidence deciles and
// inverts the mean |stated confidence − realized accuracy| gap into a [0,1]
// score.
func calibrationScore(records []domain.PredictionRecord) float64 {
	type bin struct {
		confSum float64
		correct int
		total   int
	}
	var bins [10]bin

	for _, r := range records {
		if r.Correct == nil {
			continue
		}
		idx := int(r.Confidence * 10)
		if idx > 9 {
			idx = 9
		}
		if idx < 0 {
			idx = 0
		}
		bins[idx].confSum += float64(r.Confidence)
		bins[idx].total++
		if *r.Correct {
			bins[idx].correct++
		}
	}

	gapSum := 0.0
	used := 0
	for _, b := range bins {
		if b.total == 0 {
			continue
		}
		avgConf := b.confSum / float64(b.total)
		acc := float64(b.correct) / float64(b.total)
		gap := avgConf - acc
		if gap < 0 {
			gap = -gap
		}
		gapSum += gap
		used++
	}
	if used == 0 {
		return 0.5
	}

	score := 1 - gapSum/float64(used)
	if score < 0 {
		return 0
	}
	return score
}

// History returns the time-ordered (timestamp, correct, confidence) sequence
// the trend analyzer consumes for one expert and category.
func (s *TrackerService) History(ctx context.Context, expertID uuid.UUID, category string) ([]TrendPoint, error) {
	records, err := s.predictions.ListResolvedByExpertCategory(ctx, expertID, category, profileHistoryLimit)
	if err != nil {
		return nil, err
	}

	points := make([]TrendPoint, 0, len(records))
	for _, r := range records {
		if r.Correct == nil || r.ResolvedAt == nil {
			continue
		}
		points = append(points, TrendPoint{
			At:         *r.ResolvedAt,
			Correct:    *r.Correct,
			Confidence: r.Confidence,
		})
	}
	return points, nil
}
