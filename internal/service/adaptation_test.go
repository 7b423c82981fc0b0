package service

import (
	"context"
	"testing"
	"time"

	"github.com/Harshitk-cp/quorum/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func newTestEngine() (*AdaptationEngine, *mockExpertStore, *mockPredictionStore, *mockEventStore, *mockAlertSink, *mockProvider) {
	logger := zap.NewNop()
	es := newMockExpertStore()
	ps := newMockPredictionStore()
	ev := newMockEventStore()
	sink := &mockAlertSink{}
	provider := &mockProvider{}
	registry := DefaultCategoryRegistry(DefaultTolerances())
	tracker := NewTrackerService(ps, es, registry, nil, 20, logger)
	trend := NewTrendAnalyzer(tracker, logger)
	thresholds := AdaptationThresholds{
		EmergencyAccuracy:      0.5,
		CriticalCalibrationGap: 0.2,
		SuspendAccuracy:        0.35,
		Cooldown:               7 * 24 * time.Hour,
		MinSample:              20,
	}
	engine := NewAdaptationEngine(es, ev, tracker, trend, sink, provider, thresholds, logger)
	return engine, es, ps, ev, sink, provider
}

// seedAccuracy writes n resolved winner records with the given hit count at a
// fixed confidence, spread over recent hours.
func seedAccuracy(ps *mockPredictionStore, expertID uuid.UUID, n, hits int, confidence float32) {
	now := time.Now()
	for i := 0; i < n; i++ {
		seedResolvedRecord(ps, expertID, uuid.NewString(), "winner", "chiefs",
			i < hits, confidence, now.Add(-time.Duration(n-i)*time.Hour))
	}
}

func TestRunSweep_BelowMinSampleNothingFires(t *testing.T) {
	engine, es, ps, ev, _, _ := newTestEngine()
	ctx := context.Background()

	expert := createActiveExpert(t, es)
	seedAccuracy(ps, expert.ID, 10, 1, 0.5)

	result, err := engine.RunSweep(ctx)
	if err != nil {
		t.Fatalf("RunSweep failed: %v", err)
	}

	if result.Evaluated != 1 {
		t.Errorf("Evaluated = %d, want 1", result.Evaluated)
	}
	if result.Suspended != 0 || result.Events != 0 {
		t.Errorf("small sample fired interventions: %+v", result)
	}
	if len(ev.events) != 0 {
		t.Errorf("expected no events, got %d", len(ev.events))
	}
}

func TestRunSweep_PromotesProvisionalAtMinSample(t *testing.T) {
	engine, es, ps, ev, _, provider := newTestEngine()
	ctx := context.Background()

	expert := &domain.Expert{Name: "rookie", Status: domain.StatusProvisional}
	if err := es.Create(ctx, expert); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	// 12 of 20 correct at matching confidence keeps calibration clean.
	now := time.Now()
	for i := 0; i < 20; i++ {
		seedResolvedRecord(ps, expert.ID, uuid.NewString(), "winner", "chiefs",
			i%5 < 3, 0.6, now.Add(-time.Duration(20-i)*time.Hour))
	}

	result, err := engine.RunSweep(ctx)
	if err != nil {
		t.Fatalf("RunSweep failed: %v", err)
	}

	if result.Promoted != 1 {
		t.Errorf("Promoted = %d, want 1", result.Promoted)
	}
	stored, _ := es.GetByID(ctx, expert.ID)
	if stored.Status != domain.StatusActive {
		t.Errorf("status = %v, want active", stored.Status)
	}

	promotions := ev.byKind("promotion")
	if len(promotions) != 1 || promotions[0].Severity != domain.SeverityInfo {
		t.Errorf("expected one info promotion event, got %+v", promotions)
	}
	// Info events never reach the provider.
	if len(provider.requests) != 0 {
		t.Errorf("provider received %d requests for info events", len(provider.requests))
	}
}

func TestRunSweep_SuspendsBelowFloor(t *testing.T) {
	engine, es, ps, ev, sink, provider := newTestEngine()
	ctx := context.Background()

	expert := createActiveExpert(t, es)
	seedAccuracy(ps, expert.ID, 20, 5, 0.5)

	result, err := engine.RunSweep(ctx)
	if err != nil {
		t.Fatalf("RunSweep failed: %v", err)
	}

	if result.Suspended != 1 {
		t.Errorf("Suspended = %d, want 1", result.Suspended)
	}

	stored, _ := es.GetByID(ctx, expert.ID)
	if stored.Status != domain.StatusSuspended {
		t.Fatalf("status = %v, want suspended", stored.Status)
	}
	if stored.ReinstateAfter == nil {
		t.Fatal("ReinstateAfter not set")
	}
	cooldown := time.Until(*stored.ReinstateAfter)
	if cooldown < 6*24*time.Hour || cooldown > 8*24*time.Hour {
		t.Errorf("cool-down %v not near 7 days", cooldown)
	}

	suspensions := ev.byKind("suspension")
	if len(suspensions) != 1 || suspensions[0].Severity != domain.SeverityEmergency {
		t.Fatalf("expected one emergency suspension event, got %+v", suspensions)
	}
	if len(sink.events) != 1 {
		t.Errorf("sink received %d events, want 1", len(sink.events))
	}
	// Emergency events request an adjustment from the provider.
	if len(provider.requests) != 1 {
		t.Errorf("provider received %d requests, want 1", len(provider.requests))
	}
}

func TestRunSweep_EmergencyWithoutSuspension(t *testing.T) {
	engine, es, ps, ev, _, _ := newTestEngine()
	ctx := context.Background()

	expert := createActiveExpert(t, es)
	seedAccuracy(ps, expert.ID, 20, 8, 0.5)

	if _, err := engine.RunSweep(ctx); err != nil {
		t.Fatalf("RunSweep failed: %v", err)
	}

	stored, _ := es.GetByID(ctx, expert.ID)
	if stored.Status == domain.StatusSuspended {
		t.Fatal("0.4 accuracy should not suspend")
	}

	collapses := ev.byKind("accuracy_collapse")
	if len(collapses) != 1 || collapses[0].Severity != domain.SeverityEmergency {
		t.Fatalf("expected one emergency accuracy_collapse event, got %+v", collapses)
	}
	if collapses[0].Category == "" {
		t.Error("accuracy_collapse should name the worst category")
	}
}

func TestRunSweep_CalibrationDrift(t *testing.T) {
	engine, es, ps, ev, _, provider := newTestEngine()
	ctx := context.Background()

	expert := createActiveExpert(t, es)
	// 55% accuracy stated at 90% confidence: a 0.35 calibration gap.
	seedAccuracy(ps, expert.ID, 20, 11, 0.9)

	if _, err := engine.RunSweep(ctx); err != nil {
		t.Fatalf("RunSweep failed: %v", err)
	}

	drifts := ev.byKind("calibration_drift")
	if len(drifts) != 1 || drifts[0].Severity != domain.SeverityCritical {
		t.Fatalf("expected one critical calibration_drift event, got %+v", drifts)
	}
	// Critical events reach the provider too.
	if len(provider.requests) != 1 {
		t.Errorf("provider received %d requests, want 1", len(provider.requests))
	}
}

func TestRunSweep_StrongDeclineWarning(t *testing.T) {
	engine, es, ps, ev, _, provider := newTestEngine()
	ctx := context.Background()

	expert := createActiveExpert(t, es)
	// A clean run followed by a collapse, one game a day for a month.
	now := time.Now()
	for i := 0; i < 30; i++ {
		seedResolvedRecord(ps, expert.ID, uuid.NewString(), "winner", "chiefs",
			i < 15, 0.5, now.Add(-time.Duration(30-i)*24*time.Hour))
	}

	if _, err := engine.RunSweep(ctx); err != nil {
		t.Fatalf("RunSweep failed: %v", err)
	}

	declines := ev.byKind("strong_decline")
	if len(declines) != 1 || declines[0].Severity != domain.SeverityWarning {
		t.Fatalf("expected one warning strong_decline event, got %+v", declines)
	}
	if declines[0].Category != "winner" {
		t.Errorf("event category = %q, want winner", declines[0].Category)
	}
	// Warnings stay out of the provider.
	if len(provider.requests) != 0 {
		t.Errorf("provider received %d requests for warning events", len(provider.requests))
	}
}

func TestRunSweep_ReinstatesAfterCooldown(t *testing.T) {
	engine, es, _, ev, _, _ := newTestEngine()
	ctx := context.Background()

	past := time.Now().Add(-time.Hour)
	suspendedAt := past.Add(-7 * 24 * time.Hour)
	expert := &domain.Expert{
		Name:           "benched",
		Status:         domain.StatusSuspended,
		SuspendedAt:    &suspendedAt,
		ReinstateAfter: &past,
	}
	if err := es.Create(ctx, expert); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	result, err := engine.RunSweep(ctx)
	if err != nil {
		t.Fatalf("RunSweep failed: %v", err)
	}

	if result.Reinstated != 1 {
		t.Errorf("Reinstated = %d, want 1", result.Reinstated)
	}
	stored, _ := es.GetByID(ctx, expert.ID)
	if stored.Status != domain.StatusProvisional {
		t.Errorf("status = %v, want provisional", stored.Status)
	}
	if len(ev.byKind("reinstatement")) != 1 {
		t.Error("expected a reinstatement event")
	}
}

func TestRunSweep_SuspendedInsideCooldownUntouched(t *testing.T) {
	engine, es, _, ev, _, _ := newTestEngine()
	ctx := context.Background()

	future := time.Now().Add(3 * 24 * time.Hour)
	now := time.Now()
	expert := &domain.Expert{
		Name:           "benched",
		Status:         domain.StatusSuspended,
		SuspendedAt:    &now,
		ReinstateAfter: &future,
	}
	if err := es.Create(ctx, expert); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	result, err := engine.RunSweep(ctx)
	if err != nil {
		t.Fatalf("RunSweep failed: %v", err)
	}

	if result.Reinstated != 0 {
		t.Errorf("Reinstated = %d, want 0", result.Reinstated)
	}
	stored, _ := es.GetByID(ctx, expert.ID)
	if stored.Status != domain.StatusSuspended {
		t.Errorf("status = %v, want suspended", stored.Status)
	}
	if len(ev.events) != 0 {
		t.Errorf("expected no events, got %d", len(ev.events))
	}
}
