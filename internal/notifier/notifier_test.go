package notifier

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/streamop/switchwatch/pkg/models"
)

type mockRepository struct {
	mu         sync.Mutex
	webhooks   []*models.Webhook
	deliveries []*models.WebhookDelivery
}

func (m *mockRepository) GetWebhooksByEvent(ctx context.Context, event string) ([]*models.Webhook, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var subscribed []*models.Webhook
	for _, wh := range m.webhooks {
		if wh.Events.Subscribed(event) {
			subscribed = append(subscribed, wh)
		}
	}
	return subscribed, nil
}

func (m *mockRepository) CreateDelivery(ctx context.Context, delivery *models.WebhookDelivery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deliveries = append(m.deliveries, delivery)
	return nil
}

func (m *mockRepository) UpdateDelivery(ctx context.Context, delivery *models.WebhookDelivery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, d := range m.deliveries {
		if d.ID == delivery.ID {
			m.deliveries[i] = delivery
			return nil
		}
	}
	return nil
}

func (m *mockRepository) GetPendingDeliveries(ctx context.Context, limit int) ([]*models.WebhookDelivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deliveries, nil
}

func (m *mockRepository) deliveryCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.deliveries)
}

func TestNotifyDecision(t *testing.T) {
	var mu sync.Mutex
	receivedPayload := ""
	receivedEvent := ""
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		receivedPayload = string(body)
		receivedEvent = r.Header.Get("X-Webhook-Event")
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	repo := &mockRepository{
		webhooks: []*models.Webhook{
			{
				ID:  "webhook-1",
				URL: server.URL,
				Events: models.WebhookEvents{
					StreamOffline: true,
				},
				IsActive: true,
			},
		},
	}

	service := NewService(repo, nil)

	event := &models.SwitchEvent{
		ID:         "evt-1",
		ServerID:   "srv-1",
		ServerName: "main ingest",
		Previous:   models.SwitchNormal,
		Decision:   models.SwitchOffline,
		Timestamp:  time.Now(),
	}

	err := service.NotifyDecision(context.Background(), event)
	assert.NoError(t, err)

	// Wait a bit for async delivery
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, 1, repo.deliveryCount())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, models.WebhookEventStreamOffline, receivedEvent)
	assert.Contains(t, receivedPayload, "srv-1")
}

func TestNotifyDecisionPreviousSkipped(t *testing.T) {
	repo := &mockRepository{
		webhooks: []*models.Webhook{
			{
				ID:       "webhook-1",
				URL:      "http://localhost:1",
				Events:   models.WebhookEvents{StreamOffline: true, StreamLow: true, StreamNormal: true},
				IsActive: true,
			},
		},
	}

	service := NewService(repo, nil)

	event := &models.SwitchEvent{
		ID:       "evt-1",
		ServerID: "srv-1",
		Decision: models.SwitchPrevious,
	}

	err := service.NotifyDecision(context.Background(), event)
	assert.NoError(t, err)
	assert.Equal(t, 0, repo.deliveryCount())
}

func TestNotifySkipsUnsubscribed(t *testing.T) {
	repo := &mockRepository{
		webhooks: []*models.Webhook{
			{
				ID:       "webhook-1",
				URL:      "http://localhost:1",
				Events:   models.WebhookEvents{StreamOffline: true},
				IsActive: true,
			},
		},
	}

	service := NewService(repo, nil)

	err := service.Notify(context.Background(), models.WebhookEventStreamLow, nil)
	assert.NoError(t, err)
	assert.Equal(t, 0, repo.deliveryCount())
}

func TestNotifySignatureHeader(t *testing.T) {
	var mu sync.Mutex
	receivedSignature := ""
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		receivedSignature = r.Header.Get("X-Webhook-Signature")
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	repo := &mockRepository{
		webhooks: []*models.Webhook{
			{
				ID:       "webhook-1",
				URL:      server.URL,
				Secret:   "test-secret",
				Events:   models.WebhookEvents{StreamNormal: true},
				IsActive: true,
			},
		},
	}

	service := NewService(repo, nil)

	err := service.Notify(context.Background(), models.WebhookEventStreamNormal, map[string]string{"server_id": "srv-1"})
	assert.NoError(t, err)

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, receivedSignature, "sha256=")
}

func TestGenerateSignature(t *testing.T) {
	service := NewService(&mockRepository{}, nil)

	payload := []byte(`{"event":"test"}`)
	secret := "test-secret"

	signature := service.generateSignature(payload, secret)
	assert.NotEmpty(t, signature)
	assert.Contains(t, signature, "sha256=")

	// Same inputs must produce the same signature
	assert.Equal(t, signature, service.generateSignature(payload, secret))

	// A different secret must produce a different signature
	assert.NotEqual(t, signature, service.generateSignature(payload, "other-secret"))
}

func TestFailedDeliveryScheduledForRetry(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	repo := &mockRepository{
		webhooks: []*models.Webhook{
			{
				ID:       "webhook-1",
				URL:      server.URL,
				Events:   models.WebhookEvents{StreamOffline: true},
				IsActive: true,
			},
		},
	}

	service := NewService(repo, nil)

	err := service.Notify(context.Background(), models.WebhookEventStreamOffline, nil)
	assert.NoError(t, err)

	time.Sleep(100 * time.Millisecond)

	repo.mu.Lock()
	defer repo.mu.Unlock()
	if assert.Len(t, repo.deliveries, 1) {
		delivery := repo.deliveries[0]
		assert.Equal(t, models.WebhookDeliveryStatusPending, delivery.Status)
		assert.Equal(t, 1, delivery.RetryCount)
		assert.NotNil(t, delivery.NextRetryAt)
	}
}
