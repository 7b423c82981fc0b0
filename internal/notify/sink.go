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
	"go.uber.org/zap"
)

// NewSink builds the configured alert sink.
// Valid kinds: log, webhook, mock.
func NewSink(kind, webhookURL string, logger *zap.Logger) (domain.AlertSink, error) {
	switch kind {
	case "log", "":
		return NewLogSink(logger), nil
	case "webhook":
		if webhookURL == "" {
			return nil, fmt.Errorf("webhook sink requires ALERT_WEBHOOK_URL")
		}
		return NewWebhookSink(webhookURL), nil
	case "mock":
		return NewMockSink(), nil
	default:
		return nil, fmt.Errorf("unknown alert sink %q", kind)
	}
}

// LogSink writes events to the structured log. The default sink.
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Notify(_ context.Context, e *domain.AdaptationEvent) error {
	s.logger.Warn("adaptation alert",
		zap.String("expert_id", e.ExpertID.String()),
		zap.String("severity", string(e.Severity)),
		zap.String("kind", e.Kind),
		zap.String("category", e.Category),
		zap.String("message", e.Message))
	return nil
}

// WebhookSink POSTs each event as JSON to an external alerting endpoint.
type WebhookSink struct {
	url    string
	client *http.Client
}

func NewWebhookSink(url string) *WebhookSink {
	return &WebhookSink{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *WebhookSink) Notify(ctx context.Context, e *domain.AdaptationEvent) error {
	body, err := json.Marshal(e)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// MockSink records events in memory for tests.
type MockSink struct {
	mu     sync.Mutex
	events []domain.AdaptationEvent
}

func NewMockSink() *MockSink {
	return &MockSink{}
}

func (s *MockSink) Notify(_ context.Context, e *domain.AdaptationEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, *e)
	return nil
}

func (s *MockSink) Events() []domain.AdaptationEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.AdaptationEvent, len(s.events))
	copy(out, s.events)
	return out
}
