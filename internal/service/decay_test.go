package service

import (
	"context"
	"testing"
	"time"

	"github.com/Harshitk-cp/quorum/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func newTestDecay(ageThreshold time.Duration, cap int) (*DecayService, *mockMemoryStore) {
	ms := newMockMemoryStore()
	svc := NewDecayService(ms, ageThreshold, cap, zap.NewNop())
	return svc, ms
}

func seedMemory(ms *mockMemoryStore, expertID uuid.UUID, vividness, decayRate float32, age time.Duration, retrievals, decayRetrievals int) *domain.Memory {
	m := &domain.Memory{
		ID:                  uuid.New(),
		ExpertID:            expertID,
		GameID:              uuid.NewString(),
		Type:                domain.MemoryOutcome,
		Vividness:           vividness,
		DecayRate:           decayRate,
		RetrievalCount:      retrievals,
		DecayRetrievalCount: decayRetrievals,
		CreatedAt:           time.Now().Add(-age),
	}
	_ = ms.Create(context.Background(), m)
	return m
}

func TestDecayExpert_LowersVividness(t *testing.T) {
	svc, ms := newTestDecay(24*time.Hour, 100)
	expertID := uuid.New()

	m := seedMemory(ms, expertID, 0.8, 0.1, 48*time.Hour, 0, 0)

	result, err := svc.DecayExpert(context.Background(), expertID)
	if err != nil {
		t.Fatalf("DecayExpert failed: %v", err)
	}

	if result.Decayed != 1 {
		t.Errorf("Decayed = %d, want 1", result.Decayed)
	}
	stored := ms.memories[m.ID]
	if diff := float64(stored.Vividness) - 0.72; diff > 1e-6 || diff < -1e-6 {
		t.Errorf("Vividness = %v, want 0.72", stored.Vividness)
	}
}

func TestDecayExpert_YoungMemoriesUntouched(t *testing.T) {
	svc, ms := newTestDecay(30*24*time.Hour, 100)
	expertID := uuid.New()

	m := seedMemory(ms, expertID, 0.8, 0.5, time.Hour, 0, 0)

	result, err := svc.DecayExpert(context.Background(), expertID)
	if err != nil {
		t.Fatalf("DecayExpert failed: %v", err)
	}

	if result.Decayed != 0 || result.Archived != 0 {
		t.Errorf("young memory was touched: %+v", result)
	}
	if ms.memories[m.ID].Vividness != 0.8 {
		t.Errorf("Vividness changed to %v", ms.memories[m.ID].Vividness)
	}
}

func TestDecayExpert_RetrievalSkipsDecay(t *testing.T) {
	svc, ms := newTestDecay(24*time.Hour, 100)
	expertID := uuid.New()

	// Retrieved since the last pass: retrieval count moved past the mark.
	m := seedMemory(ms, expertID, 0.8, 0.5, 48*time.Hour, 3, 1)

	result, err := svc.DecayExpert(context.Background(), expertID)
	if err != nil {
		t.Fatalf("DecayExpert failed: %v", err)
	}

	if result.Reinforced != 1 {
		t.Errorf("Reinforced = %d, want 1", result.Reinforced)
	}
	stored := ms.memories[m.ID]
	if stored.Vividness != 0.8 {
		t.Errorf("reinforced memory lost vividness: %v", stored.Vividness)
	}
	// The mark catches up so the next pass decays again.
	if stored.DecayRetrievalCount != 3 {
		t.Errorf("DecayRetrievalCount = %d, want 3", stored.DecayRetrievalCount)
	}
}

func TestDecayExpert_ArchivesBelowThreshold(t *testing.T) {
	svc, ms := newTestDecay(24*time.Hour, 100)
	expertID := uuid.New()

	m := seedMemory(ms, expertID, 0.12, 0.5, 48*time.Hour, 0, 0)

	result, err := svc.DecayExpert(context.Background(), expertID)
	if err != nil {
		t.Fatalf("DecayExpert failed: %v", err)
	}

	if result.Archived != 1 {
		t.Errorf("Archived = %d, want 1", result.Archived)
	}
	if !ms.archived[m.ID] {
		t.Error("memory not archived in store")
	}
}

func TestDecayExpert_VividnessNeverRises(t *testing.T) {
	svc, ms := newTestDecay(24*time.Hour, 100)
	expertID := uuid.New()

	vividnesses := []float32{0.9, 0.6, 0.4, 0.25}
	var ids []uuid.UUID
	for _, v := range vividnesses {
		m := seedMemory(ms, expertID, v, 0.2, 48*time.Hour, 0, 0)
		ids = append(ids, m.ID)
	}

	if _, err := svc.DecayExpert(context.Background(), expertID); err != nil {
		t.Fatalf("DecayExpert failed: %v", err)
	}

	for i, id := range ids {
		stored, ok := ms.memories[id]
		if !ok {
			continue // archived
		}
		if stored.Vividness > vividnesses[i] {
			t.Errorf("memory %d rose from %v to %v", i, vividnesses[i], stored.Vividness)
		}
	}
}

func TestRunDecay_CoversAllExperts(t *testing.T) {
	svc, ms := newTestDecay(24*time.Hour, 100)

	a := uuid.New()
	b := uuid.New()
	seedMemory(ms, a, 0.8, 0.1, 48*time.Hour, 0, 0)
	seedMemory(ms, b, 0.8, 0.1, 48*time.Hour, 0, 0)

	result := svc.RunDecay(context.Background())
	if result.Decayed != 2 {
		t.Errorf("Decayed = %d, want 2", result.Decayed)
	}
}

func TestConsolidate_EvictsLowestRetention(t *testing.T) {
	svc, ms := newTestDecay(24*time.Hour, 2)
	expertID := uuid.New()

	weak := seedMemory(ms, expertID, 0.2, 0.1, time.Hour, 0, 0)
	mid := seedMemory(ms, expertID, 0.5, 0.1, time.Hour, 0, 0)
	strong := seedMemory(ms, expertID, 0.9, 0.1, time.Hour, 0, 0)

	result, err := svc.Consolidate(context.Background(), expertID)
	if err != nil {
		t.Fatalf("Consolidate failed: %v", err)
	}

	if result.Evicted != 1 || result.Kept != 2 {
		t.Errorf("result = %+v, want 1 evicted 2 kept", result)
	}
	if !ms.archived[weak.ID] {
		t.Error("weakest memory should be evicted")
	}
	if _, ok := ms.memories[mid.ID]; !ok {
		t.Error("middle memory should survive")
	}
	if _, ok := ms.memories[strong.ID]; !ok {
		t.Error("strongest memory should survive")
	}
}

func TestConsolidate_RetrievalsProtectDimMemories(t *testing.T) {
	svc, ms := newTestDecay(24*time.Hour, 1)
	expertID := uuid.New()

	// Dim but heavily used beats fresher vividness.
	used := seedMemory(ms, expertID, 0.3, 0.1, time.Hour, 50, 0)
	unused := seedMemory(ms, expertID, 0.5, 0.1, time.Hour, 0, 0)

	result, err := svc.Consolidate(context.Background(), expertID)
	if err != nil {
		t.Fatalf("Consolidate failed: %v", err)
	}

	if result.Evicted != 1 {
		t.Fatalf("Evicted = %d, want 1", result.Evicted)
	}
	if !ms.archived[unused.ID] {
		t.Error("the unused memory should be the one evicted")
	}
	if _, ok := ms.memories[used.ID]; !ok {
		t.Error("the heavily retrieved memory should survive")
	}
}

func TestConsolidate_UnderCapIsNoop(t *testing.T) {
	svc, ms := newTestDecay(24*time.Hour, 10)
	expertID := uuid.New()
	seedMemory(ms, expertID, 0.5, 0.1, time.Hour, 0, 0)

	result, err := svc.Consolidate(context.Background(), expertID)
	if err != nil {
		t.Fatalf("Consolidate failed: %v", err)
	}
	if result.Evicted != 0 || result.Kept != 1 {
		t.Errorf("result = %+v, want 0 evicted 1 kept", result)
	}
}
