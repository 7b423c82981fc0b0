package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Harshitk-cp/quorum/internal/domain"
	"go.uber.org/zap"
)

var ErrNoCandidates = errors.New("no experts available for council selection")

// Composite weights for ranking. Category accuracy dominates so that a
// council formed for one bet type favours its specialists.
const (
	weightCategoryAccuracy = 0.4
	weightOverallAccuracy  = 0.3
	weightTrend            = 0.2
	weightCalibration      = 0.1

	compositeEpsilon = 1e-9
)

type RankedExpert struct {
	Expert           domain.Expert      `json:"expert"`
	Profile          domain.Profile     `json:"profile"`
	Trend            domain.TrendReport `json:"trend"`
	CategoryAccuracy float64            `json:"category_accuracy"`
	Composite        float64            `json:"composite"`
}

// SelectorService ranks experts and forms council snapshots. Snapshots are
// immutable once written; rotation always creates a new one.
type SelectorService struct {
	experts domain.ExpertStore
	council domain.CouncilStore
	tracker *TrackerService
	trend   *TrendAnalyzer
	logger  *zap.Logger

	councilSize int
	validity    time.Duration

	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewSelectorService(es domain.ExpertStore, cs domain.CouncilStore, tracker *TrackerService, trend *TrendAnalyzer, councilSize int, validity time.Duration, logger *zap.Logger) *SelectorService {
	return &SelectorService{
		experts:     es,
		council:     cs,
		tracker:     tracker,
		trend:       trend,
		logger:      logger,
		councilSize: councilSize,
		validity:    validity,
		interval:    validity,
		stopCh:      make(chan struct{}),
	}
}

func (s *SelectorService) SetInterval(d time.Duration) {
	s.interval = d
}

// Start runs periodic council rotation for the overall scope. Rotation is
// also externally triggerable through SelectCouncil.
func (s *SelectorService) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info("council rotation worker started", zap.Duration("interval", s.interval))

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
				if _, err := s.SelectCouncil(ctx, ""); err != nil && !errors.Is(err, ErrNoCandidates) {
					s.logger.Error("scheduled council rotation failed", zap.Error(err))
				}
				cancel()
			case <-s.stopCh:
				s.logger.Info("council rotation worker stopped")
				return
			}
		}
	}()
}

func (s *SelectorService) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

// RankExperts scores every expert for the given category. The ordering is
// deterministic: composite desc, then overall accuracy desc, then volatility
// asc, then expert id.
func (s *SelectorService) RankExperts(ctx context.Context, category string) ([]RankedExpert, error) {
	experts, err := s.experts.List(ctx)
	if err != nil {
		return nil, err
	}

	ranked := make([]RankedExpert, 0, len(experts))
	for _, e := range experts {
		profile, err := s.tracker.Profile(ctx, e.ID)
		if err != nil {
			return nil, err
		}
		trend, err := s.trend.Analyze(ctx, e.ID, category)
		if err != nil {
			return nil, err
		}
		ranked = append(ranked, RankedExpert{Expert: e, Profile: *profile, Trend: *trend})
	}

	// Population mean stands in when an expert has no data for the category,
	// so missing data never zeroes a composite.
	popMean := populationCategoryMean(ranked, category)

	for i := range ranked {
		r := &ranked[i]
		catAcc := popMean
		if c, ok := r.Profile.ByCategory[category]; ok && c.Total > 0 {
			catAcc = c.Accuracy()
		}
		r.CategoryAccuracy = catAcc
		r.Composite = weightCategoryAccuracy*catAcc +
			weightOverallAccuracy*r.Profile.OverallAccuracy +
			weightTrend*r.Trend.Class.Score() +
			weightCalibration*r.Profile.CalibrationScore
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if d := a.Composite - b.Composite; d > compositeEpsilon || d < -compositeEpsilon {
			return a.Composite > b.Composite
		}
		if a.Profile.OverallAccuracy != b.Profile.OverallAccuracy {
			return a.Profile.OverallAccuracy > b.Profile.OverallAccuracy
		}
		if a.Trend.Volatility != b.Trend.Volatility {
			return a.Trend.Volatility < b.Trend.Volatility
		}
		return a.Expert.ID.String() < b.Expert.ID.String()
	})

	return ranked, nil
}

func populationCategoryMean(ranked []RankedExpert, category string) float64 {
	sum := 0.0
	n := 0
	for _, r := range ranked {
		if c, ok := r.Profile.ByCategory[category]; ok && c.Total > 0 {
			sum += c.Accuracy()
			n++
		}
	}
	if n == 0 {
		return 0.5
	}
	return sum / float64(n)
}

// SelectCouncil forms and persists a new snapshot for the category scope.
// When fewer than K experts are eligible, the best remaining provisional
// experts fill the gap and the snapshot is flagged degraded.
func (s *SelectorService) SelectCouncil(ctx context.Context, category string) (*domain.CouncilSnapshot, error) {
	ranked, err := s.RankExperts(ctx, category)
	if err != nil {
		return nil, err
	}

	var chosen []RankedExpert
	var substitutes []RankedExpert
	for _, r := range ranked {
		switch {
		case r.Expert.Status.Eligible():
			if len(chosen) < s.councilSize {
				chosen = append(chosen, r)
			}
		case r.Expert.Status == domain.StatusProvisional:
			substitutes = append(substitutes, r)
		}
	}

	degraded := false
	for len(chosen) < s.councilSize && len(substitutes) > 0 {
		chosen = append(chosen, substitutes[0])
		substitutes = substitutes[1:]
		degraded = true
	}

	if len(chosen) == 0 {
		return nil, ErrNoCandidates
	}

	now := time.Now()
	snap := &domain.CouncilSnapshot{
		Category:   category,
		Degraded:   degraded,
		FormedAt:   now,
		ValidUntil: now.Add(s.validity),
	}

	totalComposite := 0.0
	for _, c := range chosen {
		totalComposite += c.Composite
	}
	for i, c := range chosen {
		weight := 1.0 / float64(len(chosen))
		if totalComposite > 0 {
			weight = c.Composite / totalComposite
		}
		snap.Members = append(snap.Members, domain.CouncilMember{
			ExpertID: c.Expert.ID,
			Weight:   weight,
			Position: i,
		})
	}

	if err := s.council.CreateSnapshot(ctx, snap); err != nil {
		return nil, err
	}

	s.applyStatuses(ctx, ranked, snap)

	s.logger.Info("council snapshot formed",
		zap.String("snapshot_id", snap.ID.String()),
		zap.String("category", category),
		zap.Int("members", len(snap.Members)),
		zap.Bool("degraded", degraded))

	return snap, nil
}

// applyStatuses updates ranks and flips active⇄council_member. Provisional
// substitutes keep their status; suspension is never touched here.
func (s *SelectorService) applyStatuses(ctx context.Context, ranked []RankedExpert, snap *domain.CouncilSnapshot) {
	seats := make(map[string]int, len(snap.Members))
	for _, m := range snap.Members {
		seats[m.ExpertID.String()] = m.Position
	}

	for rank, r := range ranked {
		e := r.Expert
		var position *int
		if p, onCouncil := seats[e.ID.String()]; onCouncil {
			pos := p
			position = &pos
		}

		if err := s.experts.UpdateRank(ctx, e.ID, rank+1, position); err != nil {
			s.logger.Warn("failed to update expert rank", zap.String("expert_id", e.ID.String()), zap.Error(err))
			continue
		}

		var next domain.ExpertStatus
		switch {
		case position != nil && e.Status == domain.StatusActive:
			next = domain.StatusCouncilMember
		case position == nil && e.Status == domain.StatusCouncilMember:
			next = domain.StatusActive
		default:
			continue
		}

		if err := s.experts.UpdateStatus(ctx, e.ID, next, e.SuspendedAt, e.ReinstateAfter); err != nil {
			s.logger.Warn("failed to update expert status",
				zap.String("expert_id", e.ID.String()),
				zap.String("status", string(next)),
				zap.Error(err))
		}
	}
}
