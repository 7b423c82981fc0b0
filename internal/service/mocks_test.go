package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Harshitk-cp/quorum/internal/domain"
	"github.com/Harshitk-cp/quorum/internal/store"
	"github.com/google/uuid"
)

type mockExpertStore struct {
	mu      sync.Mutex
	experts map[uuid.UUID]*domain.Expert
	order   []uuid.UUID
}

func newMockExpertStore() *mockExpertStore {
	return &mockExpertStore{experts: make(map[uuid.UUID]*domain.Expert)}
}

func (m *mockExpertStore) Create(_ context.Context, e *domain.Expert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.CreatedAt = time.Now()
	cp := *e
	m.experts[e.ID] = &cp
	m.order = append(m.order, e.ID)
	return nil
}

func (m *mockExpertStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Expert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.experts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *mockExpertStore) List(_ context.Context) ([]domain.Expert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Expert, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.experts[id])
	}
	return out, nil
}

func (m *mockExpertStore) UpdateStatus(_ context.Context, id uuid.UUID, status domain.ExpertStatus, suspendedAt, reinstateAfter *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.experts[id]
	if !ok {
		return store.ErrNotFound
	}
	e.Status = status
	e.SuspendedAt = suspendedAt
	e.ReinstateAfter = reinstateAfter
	return nil
}

func (m *mockExpertStore) UpdateRank(_ context.Context, id uuid.UUID, rank int, councilPosition *int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.experts[id]
	if !ok {
		return store.ErrNotFound
	}
	e.CurrentRank = rank
	e.CouncilPosition = councilPosition
	return nil
}

type mockPredictionStore struct {
	mu          sync.Mutex
	predictions []domain.PredictionRecord
	outcomes    map[string]*domain.OutcomeRecord
}

func newMockPredictionStore() *mockPredictionStore {
	return &mockPredictionStore{outcomes: make(map[string]*domain.OutcomeRecord)}
}

func outcomeKey(gameID, category string) string {
	return gameID + "|" + category
}

func (m *mockPredictionStore) CreatePrediction(_ context.Context, p *domain.PredictionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.predictions {
		if existing.ExpertID == p.ExpertID && existing.GameID == p.GameID && existing.Category == p.Category {
			return store.ErrDuplicate
		}
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	m.predictions = append(m.predictions, *p)
	return nil
}

func (m *mockPredictionStore) CreateOutcome(_ context.Context, o *domain.OutcomeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := outcomeKey(o.GameID, o.Category)
	if _, exists := m.outcomes[key]; exists {
		return store.ErrDuplicate
	}
	cp := *o
	m.outcomes[key] = &cp
	return nil
}

func (m *mockPredictionStore) GetOutcome(_ context.Context, gameID, category string) (*domain.OutcomeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.outcomes[outcomeKey(gameID, category)]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockPredictionStore) ListPending(_ context.Context, gameID, category string) ([]domain.PredictionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.PredictionRecord
	for _, p := range m.predictions {
		if p.GameID == gameID && p.Category == category && p.ResolvedAt == nil {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockPredictionStore) ListByGameCategory(_ context.Context, gameID, category string) ([]domain.PredictionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.PredictionRecord
	for _, p := range m.predictions {
		if p.GameID == gameID && p.Category == category {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockPredictionStore) Resolve(_ context.Context, id uuid.UUID, correct *bool, verified bool, resolvedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.predictions {
		if m.predictions[i].ID != id {
			continue
		}
		if m.predictions[i].ResolvedAt != nil {
			return store.ErrDuplicate
		}
		m.predictions[i].Correct = correct
		m.predictions[i].Verified = verified
		at := resolvedAt
		m.predictions[i].ResolvedAt = &at
		return nil
	}
	return store.ErrNotFound
}

func (m *mockPredictionStore) ListResolvedByExpert(_ context.Context, expertID uuid.UUID, limit int) ([]domain.PredictionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.PredictionRecord
	for _, p := range m.predictions {
		if p.ExpertID == expertID && p.ResolvedAt != nil && p.Verified {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ResolvedAt.After(*out[j].ResolvedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockPredictionStore) ListResolvedByExpertCategory(_ context.Context, expertID uuid.UUID, category string, limit int) ([]domain.PredictionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.PredictionRecord
	for _, p := range m.predictions {
		if p.ExpertID == expertID && p.Category == category && p.ResolvedAt != nil && p.Verified {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ResolvedAt.Before(*out[j].ResolvedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type mockMemoryStore struct {
	mu       sync.Mutex
	memories map[uuid.UUID]*domain.Memory
	order    []uuid.UUID
	archived map[uuid.UUID]bool
}

func newMockMemoryStore() *mockMemoryStore {
	return &mockMemoryStore{
		memories: make(map[uuid.UUID]*domain.Memory),
		archived: make(map[uuid.UUID]bool),
	}
}

func (m *mockMemoryStore) Create(_ context.Context, mem *domain.Memory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mem.ID == uuid.Nil {
		mem.ID = uuid.New()
	}
	if mem.CreatedAt.IsZero() {
		mem.CreatedAt = time.Now()
	}
	cp := *mem
	m.memories[mem.ID] = &cp
	m.order = append(m.order, mem.ID)
	return nil
}

func (m *mockMemoryStore) FindSimilar(_ context.Context, expertID uuid.UUID, _ []float32, limit int) ([]domain.MemoryWithScore, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.MemoryWithScore
	for _, id := range m.order {
		mem, ok := m.memories[id]
		if !ok || mem.ExpertID != expertID {
			continue
		}
		out = append(out, domain.MemoryWithScore{Memory: *mem})
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *mockMemoryStore) ListByExpert(_ context.Context, expertID uuid.UUID) ([]domain.Memory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Memory
	for _, id := range m.order {
		mem, ok := m.memories[id]
		if ok && mem.ExpertID == expertID {
			out = append(out, *mem)
		}
	}
	return out, nil
}

func (m *mockMemoryStore) ListExpertIDs(_ context.Context) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[uuid.UUID]bool)
	var out []uuid.UUID
	for _, id := range m.order {
		mem, ok := m.memories[id]
		if ok && !seen[mem.ExpertID] {
			seen[mem.ExpertID] = true
			out = append(out, mem.ExpertID)
		}
	}
	return out, nil
}

func (m *mockMemoryStore) CountByExpert(_ context.Context, expertID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, mem := range m.memories {
		if mem.ExpertID == expertID {
			count++
		}
	}
	return count, nil
}

func (m *mockMemoryStore) IncrementRetrieval(_ context.Context, id uuid.UUID, boost float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mem, ok := m.memories[id]
	if !ok {
		return store.ErrNotFound
	}
	mem.RetrievalCount++
	mem.Vividness += boost
	if mem.Vividness > 1 {
		mem.Vividness = 1
	}
	return nil
}

func (m *mockMemoryStore) UpdateDecay(_ context.Context, id uuid.UUID, vividness float32, retrievalCount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mem, ok := m.memories[id]
	if !ok {
		return store.ErrNotFound
	}
	mem.Vividness = vividness
	mem.DecayRetrievalCount = retrievalCount
	return nil
}

func (m *mockMemoryStore) Archive(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.memories[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.memories, id)
	m.archived[id] = true
	return nil
}

type mockCouncilStore struct {
	mu        sync.Mutex
	snapshots []domain.CouncilSnapshot
}

func newMockCouncilStore() *mockCouncilStore {
	return &mockCouncilStore{}
}

func (m *mockCouncilStore) CreateSnapshot(_ context.Context, s *domain.CouncilSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	m.snapshots = append(m.snapshots, *s)
	return nil
}

func (m *mockCouncilStore) GetByID(_ context.Context, id uuid.UUID) (*domain.CouncilSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.snapshots {
		if m.snapshots[i].ID == id {
			cp := m.snapshots[i]
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *mockCouncilStore) Current(_ context.Context, category string, now time.Time) (*domain.CouncilSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.snapshots) - 1; i >= 0; i-- {
		s := m.snapshots[i]
		if s.Category == category && !now.Before(s.FormedAt) && now.Before(s.ValidUntil) {
			cp := s
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

type mockConsensusStore struct {
	mu      sync.Mutex
	results map[string]*domain.ConsensusResult
}

func newMockConsensusStore() *mockConsensusStore {
	return &mockConsensusStore{results: make(map[string]*domain.ConsensusResult)}
}

func (m *mockConsensusStore) Create(_ context.Context, r *domain.ConsensusResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	cp := *r
	m.results[outcomeKey(r.GameID, r.Category)] = &cp
	return nil
}

func (m *mockConsensusStore) Get(_ context.Context, gameID, category string) (*domain.ConsensusResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.results[outcomeKey(gameID, category)]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

type mockEventStore struct {
	mu     sync.Mutex
	events []domain.AdaptationEvent
}

func newMockEventStore() *mockEventStore {
	return &mockEventStore{}
}

func (m *mockEventStore) Create(_ context.Context, e *domain.AdaptationEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	m.events = append(m.events, *e)
	return nil
}

func (m *mockEventStore) List(_ context.Context, limit int) ([]domain.AdaptationEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.AdaptationEvent, len(m.events))
	copy(out, m.events)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockEventStore) ListByExpert(_ context.Context, expertID uuid.UUID, limit int) ([]domain.AdaptationEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.AdaptationEvent
	for _, e := range m.events {
		if e.ExpertID == expertID {
			out = append(out, e)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockEventStore) byKind(kind string) []domain.AdaptationEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.AdaptationEvent
	for _, e := range m.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

type mockAlertSink struct {
	mu     sync.Mutex
	events []domain.AdaptationEvent
}

func (m *mockAlertSink) Notify(_ context.Context, e *domain.AdaptationEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, *e)
	return nil
}

type mockProvider struct {
	mu       sync.Mutex
	requests []domain.AdaptationEvent
}

func (m *mockProvider) RequestAdjustment(_ context.Context, e *domain.AdaptationEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, *e)
	return nil
}

// seedResolvedRecord inserts an already-resolved prediction directly into the
// mock store, bypassing the tracker.
func seedResolvedRecord(ps *mockPredictionStore, expertID uuid.UUID, gameID, category, value string, correct bool, confidence float32, resolvedAt time.Time) {
	c := correct
	at := resolvedAt
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.predictions = append(ps.predictions, domain.PredictionRecord{
		ID:             uuid.New(),
		ExpertID:       expertID,
		GameID:         gameID,
		Category:       category,
		PredictedValue: value,
		Confidence:     confidence,
		Correct:        &c,
		Verified:       true,
		CreatedAt:      resolvedAt.Add(-time.Hour),
		ResolvedAt:     &at,
	})
}
