package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Harshitk-cp/quorum/internal/domain"
	"go.uber.org/zap"
)

const defaultSweepInterval = 15 * time.Minute

// AdaptationThresholds are the tunable trip wires for intervention events.
type AdaptationThresholds struct {
	EmergencyAccuracy      float64
	CriticalCalibrationGap float64
	SuspendAccuracy        float64
	Cooldown               time.Duration
	MinSample              int
}

type SweepResult struct {
	Evaluated  int `json:"evaluated"`
	Events     int `json:"events"`
	Promoted   int `json:"promoted"`
	Suspended  int `json:"suspended"`
	Reinstated int `json:"reinstated"`
}

// AdaptationEngine watches tracker profiles, raises typed intervention
// events, and drives the expert status state machine. It never performs the
// correction itself; that belongs to the prediction provider.
type AdaptationEngine struct {
	experts  domain.ExpertStore
	events   domain.EventStore
	tracker  *TrackerService
	trend    *TrendAnalyzer
	sink     domain.AlertSink
	provider domain.PredictionProvider
	logger   *zap.Logger

	thresholds AdaptationThresholds

	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewAdaptationEngine(es domain.ExpertStore, ev domain.EventStore, tracker *TrackerService, trend *TrendAnalyzer, sink domain.AlertSink, provider domain.PredictionProvider, thresholds AdaptationThresholds, logger *zap.Logger) *AdaptationEngine {
	return &AdaptationEngine{
		experts:    es,
		events:     ev,
		tracker:    tracker,
		trend:      trend,
		sink:       sink,
		provider:   provider,
		logger:     logger,
		thresholds: thresholds,
		interval:   defaultSweepInterval,
		stopCh:     make(chan struct{}),
	}
}

func (e *AdaptationEngine) SetInterval(d time.Duration) {
	e.interval = d
}

func (e *AdaptationEngine) Start() {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ticker := time.NewTicker(e.interval)
		defer ticker.Stop()

		e.logger.Info("adaptation worker started", zap.Duration("interval", e.interval))

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
				if _, err := e.RunSweep(ctx); err != nil {
					e.logger.Error("adaptation sweep failed", zap.Error(err))
				}
				cancel()
			case <-e.stopCh:
				e.logger.Info("adaptation worker stopped")
				return
			}
		}
	}()
}

func (e *AdaptationEngine) Stop() {
	close(e.stopCh)
	e.wg.Wait()
}

// RunSweep evaluates every expert once. Reinstatement is handled here too,
// lazily: a suspended expert whose cool-down has elapsed re-enters as
// provisional on the next sweep.
func (e *AdaptationEngine) RunSweep(ctx context.Context) (*SweepResult, error) {
	experts, err := e.experts.List(ctx)
	if err != nil {
		return nil, err
	}

	result := &SweepResult{}
	now := time.Now()

	for i := range experts {
		expert := &experts[i]
		result.Evaluated++

		if expert.Status == domain.StatusSuspended {
			if expert.ReinstateAfter != nil && !now.Before(*expert.ReinstateAfter) {
				e.reinstate(ctx, expert, result)
			}
			continue
		}

		profile, err := e.tracker.Profile(ctx, expert.ID)
		if err != nil {
			e.logger.Error("failed to load profile for sweep",
				zap.String("expert_id", expert.ID.String()),
				zap.Error(err))
			continue
		}

		// Below minimum sample size nothing fires: small samples are a
		// normal state, not a signal.
		if profile.TotalResolved < e.thresholds.MinSample {
			continue
		}

		if expert.Status == domain.StatusProvisional {
			e.promote(ctx, expert, result)
		}

		e.evaluate(ctx, expert, profile, now, result)
	}

	return result, nil
}

func (e *AdaptationEngine) evaluate(ctx context.Context, expert *domain.Expert, profile *domain.Profile, now time.Time, result *SweepResult) {
	calibrationGap := 1 - profile.CalibrationScore

	if profile.OverallAccuracy < e.thresholds.SuspendAccuracy {
		e.suspend(ctx, expert, now, result)
		e.emit(ctx, expert, "", domain.SeverityEmergency, "suspension",
			fmt.Sprintf("accuracy %.3f below suspension floor %.3f, expert suspended",
				profile.OverallAccuracy, e.thresholds.SuspendAccuracy), result)
		return
	}

	if profile.OverallAccuracy < e.thresholds.EmergencyAccuracy {
		e.emit(ctx, expert, worstCategory(profile), domain.SeverityEmergency, "accuracy_collapse",
			fmt.Sprintf("accuracy %.3f below emergency threshold %.3f",
				profile.OverallAccuracy, e.thresholds.EmergencyAccuracy), result)
	}

	if calibrationGap > e.thresholds.CriticalCalibrationGap {
		e.emit(ctx, expert, "", domain.SeverityCritical, "calibration_drift",
			fmt.Sprintf("calibration gap %.3f above threshold %.3f",
				calibrationGap, e.thresholds.CriticalCalibrationGap), result)
	}

	for category, acc := range profile.ByCategory {
		if acc.Total < e.thresholds.MinSample {
			continue
		}
		report, err := e.trend.Analyze(ctx, expert.ID, category)
		if err != nil {
			continue
		}
		if report.Class == domain.TrendStronglyDeclining {
			e.emit(ctx, expert, category, domain.SeverityWarning, "strong_decline",
				fmt.Sprintf("category %s strongly declining (slope %.4f, p %.3f)",
					category, report.Slope, report.PValue), result)
		}
	}
}

func (e *AdaptationEngine) promote(ctx context.Context, expert *domain.Expert, result *SweepResult) {
	if err := e.experts.UpdateStatus(ctx, expert.ID, domain.StatusActive, nil, nil); err != nil {
		e.logger.Error("failed to promote expert", zap.String("expert_id", expert.ID.String()), zap.Error(err))
		return
	}
	expert.Status = domain.StatusActive
	result.Promoted++
	e.emit(ctx, expert, "", domain.SeverityInfo, "promotion", "minimum sample reached, promoted to active", result)
}

func (e *AdaptationEngine) suspend(ctx context.Context, expert *domain.Expert, now time.Time, result *SweepResult) {
	reinstate := now.Add(e.thresholds.Cooldown)
	if err := e.experts.UpdateStatus(ctx, expert.ID, domain.StatusSuspended, &now, &reinstate); err != nil {
		e.logger.Error("failed to suspend expert", zap.String("expert_id", expert.ID.String()), zap.Error(err))
		return
	}
	expert.Status = domain.StatusSuspended
	result.Suspended++
}

func (e *AdaptationEngine) reinstate(ctx context.Context, expert *domain.Expert, result *SweepResult) {
	if err := e.experts.UpdateStatus(ctx, expert.ID, domain.StatusProvisional, nil, nil); err != nil {
		e.logger.Error("failed to reinstate expert", zap.String("expert_id", expert.ID.String()), zap.Error(err))
		return
	}
	expert.Status = domain.StatusProvisional
	result.Reinstated++
	e.emit(ctx, expert, "", domain.SeverityInfo, "reinstatement", "cool-down elapsed, reinstated as provisional", result)
}

func (e *AdaptationEngine) emit(ctx context.Context, expert *domain.Expert, category string, severity domain.EventSeverity, kind, message string, result *SweepResult) {
	event := &domain.AdaptationEvent{
		ExpertID: expert.ID,
		Category: category,
		Severity: severity,
		Kind:     kind,
		Message:  message,
	}

	if err := e.events.Create(ctx, event); err != nil {
		e.logger.Error("failed to persist adaptation event", zap.Error(err))
		return
	}
	result.Events++

	if e.sink != nil {
		if err := e.sink.Notify(ctx, event); err != nil {
			e.logger.Warn("alert sink failed", zap.Error(err))
		}
	}

	// Only actionable severities reach the provider; info stays internal.
	if e.provider != nil && (severity == domain.SeverityCritical || severity == domain.SeverityEmergency) {
		if err := e.provider.RequestAdjustment(ctx, event); err != nil {
			e.logger.Warn("prediction provider adjustment request failed", zap.Error(err))
		}
	}

	e.logger.Info("adaptation event",
		zap.String("expert_id", expert.ID.String()),
		zap.String("severity", string(severity)),
		zap.String("kind", kind),
		zap.String("category", category))
}

func worstCategory(profile *domain.Profile) string {
	worst := ""
	worstAcc := 2.0
	for category, acc := range profile.ByCategory {
		if acc.Total == 0 {
			continue
		}
		if a := acc.Accuracy(); a < worstAcc {
			worstAcc = a
			worst = category
		}
	}
	return worst
}
