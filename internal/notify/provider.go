package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/Harshitk-cp/quorum/internal/domain"
)

// WebhookProvider forwards adjustment requests to the upstream prediction
// generator over HTTP. The generator is expected to recalibrate the named
// expert's strategy; its response body is ignored.
type WebhookProvider struct {
	url    string
	client *http.Client
}

func NewWebhookProvider(url string) *WebhookProvider {
	return &WebhookProvider{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *WebhookProvider) RequestAdjustment(ctx context.Context, e *domain.AdaptationEvent) error {
	body, err := json.Marshal(map[string]any{
		"expert_id": e.ExpertID,
		"category":  e.Category,
		"severity":  e.Severity,
		"kind":      e.Kind,
		"message":   e.Message,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("provider returned status %d", resp.StatusCode)
	}
	return nil
}

// MockProvider records adjustment requests in memory for tests.
type MockProvider struct {
	mu       sync.Mutex
	requests []domain.AdaptationEvent
}

func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

func (p *MockProvider) RequestAdjustment(_ context.Context, e *domain.AdaptationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, *e)
	return nil
}

func (p *MockProvider) Requests() []domain.AdaptationEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.AdaptationEvent, len(p.requests))
	copy(out, p.requests)
	return out
}
