package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Harshitk-cp/quorum/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func testEvent() *domain.AdaptationEvent {
	return &domain.AdaptationEvent{
		ID:       uuid.New(),
		ExpertID: uuid.New(),
		Severity: domain.SeverityEmergency,
		Kind:     "suspension",
		Message:  "accuracy below floor",
	}
}

func TestNewSink_Factory(t *testing.T) {
	logger := zap.NewNop()

	sink, err := NewSink("log", "", logger)
	assert.NoError(t, err)
	assert.IsType(t, &LogSink{}, sink)

	sink, err = NewSink("", "", logger)
	assert.NoError(t, err)
	assert.IsType(t, &LogSink{}, sink)

	sink, err = NewSink("mock", "", logger)
	assert.NoError(t, err)
	assert.IsType(t, &MockSink{}, sink)

	sink, err = NewSink("webhook", "http://alerts.local/hook", logger)
	assert.NoError(t, err)
	assert.IsType(t, &WebhookSink{}, sink)

	_, err = NewSink("webhook", "", logger)
	assert.Error(t, err)

	_, err = NewSink("carrier-pigeon", "", logger)
	assert.Error(t, err)
}

func TestMockSink_RecordsEvents(t *testing.T) {
	sink := NewMockSink()
	e := testEvent()

	assert.NoError(t, sink.Notify(context.Background(), e))
	assert.NoError(t, sink.Notify(context.Background(), e))

	events := sink.Events()
	assert.Len(t, events, 2)
	assert.Equal(t, e.Kind, events[0].Kind)
}

func TestWebhookSink_PostsJSON(t *testing.T) {
	var received domain.AdaptationEvent
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sink := NewWebhookSink(srv.URL)
	e := testEvent()

	assert.NoError(t, sink.Notify(context.Background(), e))
	assert.Equal(t, e.ID, received.ID)
	assert.Equal(t, e.Message, received.Message)
}

func TestWebhookSink_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	sink := NewWebhookSink(srv.URL)
	assert.Error(t, sink.Notify(context.Background(), testEvent()))
}

func TestWebhookProvider_PostsAdjustmentRequest(t *testing.T) {
	var payload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	provider := NewWebhookProvider(srv.URL)
	e := testEvent()

	assert.NoError(t, provider.RequestAdjustment(context.Background(), e))
	assert.Equal(t, e.ExpertID.String(), payload["expert_id"])
	assert.Equal(t, "suspension", payload["kind"])
}

func TestMockProvider_RecordsRequests(t *testing.T) {
	provider := NewMockProvider()
	e := testEvent()

	assert.NoError(t, provider.RequestAdjustment(context.Background(), e))
	assert.Len(t, provider.Requests(), 1)
}
