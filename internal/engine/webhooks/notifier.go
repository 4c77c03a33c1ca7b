package webhooks

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"sentinel/internal/pkg/metrics"
	"sentinel/internal/platform/config"
	"sentinel/internal/platform/models"
	"sentinel/internal/platform/repositories"
)

// Notifier fans events out to subscribed webhook endpoints. Deliveries run
// in their own goroutines with a bounded retry budget; the scheduler never
// waits on them.
type Notifier struct {
	repo    *repositories.WebhookRepository
	cfg     config.WebhooksConfig
	metrics *metrics.Metrics

	// sleep is swapped out in tests to skip real backoff waits.
	sleep func(time.Duration)
}

func NewNotifier(repo *repositories.WebhookRepository, cfg config.WebhooksConfig, m *metrics.Metrics) *Notifier {
	return &Notifier{
		repo:    repo,
		cfg:     cfg,
		metrics: m,
		sleep:   time.Sleep,
	}
}

// Notify fires eventType to every active webhook subscribed to it.
func (n *Notifier) Notify(eventType string, data interface{}) {
	configs, err := n.repo.ListByEvent(eventType)
	if err != nil {
		log.Error().Err(err).Str("event", eventType).Msg("failed to load webhooks for event")
		return
	}
	if len(configs) == 0 {
		return
	}

	event := &models.WebhookEvent{
		ID:        "evt_" + uuid.New().String(),
		Event:     eventType,
		Timestamp: time.Now().Unix(),
		Data:      data,
	}

	for _, cfg := range configs {
		go n.deliver(cfg, event)
	}
}

// deliver posts the event to one endpoint, retrying with exponential backoff
// up to the webhook's retry_count. One WebhookDelivery row is written per
// attempt, success or failure.
func (n *Notifier) deliver(webhook *models.WebhookConfig, event *models.WebhookEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("webhook_id", webhook.ID).Msg("failed to marshal webhook event")
		return
	}

	maxAttempts := webhook.RetryCount
	if maxAttempts <= 0 {
		maxAttempts = n.cfg.DefaultRetryCount
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		status, err := n.post(webhook, event, payload)

		delivery := &models.WebhookDelivery{
			WebhookID: webhook.ID,
			EventID:   event.ID,
			EventType: event.Event,
			Attempt:   attempt,
		}
		now := time.Now().Unix()
		if status > 0 {
			delivery.ResponseStatus = &status
		}

		if err == nil {
			delivery.DeliveredAt = &now
			if recErr := n.repo.RecordDelivery(delivery); recErr != nil {
				log.Error().Err(recErr).Str("webhook_id", webhook.ID).Msg("failed to record webhook delivery")
			}
			n.metrics.WebhookDeliveries.WithLabelValues("delivered").Inc()
			return
		}

		delivery.FailedAt = &now
		delivery.ErrorMessage = err.Error()
		if recErr := n.repo.RecordDelivery(delivery); recErr != nil {
			log.Error().Err(recErr).Str("webhook_id", webhook.ID).Msg("failed to record webhook delivery")
		}
		n.metrics.WebhookDeliveries.WithLabelValues("failed").Inc()

		log.Warn().Err(err).
			Str("webhook_id", webhook.ID).
			Str("event_id", event.ID).
			Int("attempt", attempt).
			Msg("webhook delivery failed")

		if attempt < maxAttempts {
			n.sleep(n.backoff(attempt))
		}
	}
}

func (n *Notifier) post(webhook *models.WebhookConfig, event *models.WebhookEvent, payload []byte) (int, error) {
	req, err := http.NewRequest(http.MethodPost, webhook.URL, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Sentinel-Event", event.Event)
	req.Header.Set("X-Sentinel-Delivery", event.ID)
	for k, v := range webhook.Headers {
		req.Header.Set(k, v)
	}
	if webhook.Secret != "" {
		req.Header.Set("X-Sentinel-Signature", Sign(webhook.Secret, payload))
	}

	timeout := time.Duration(webhook.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = time.Duration(n.cfg.DefaultTimeoutSeconds) * time.Second
	}
	client := &http.Client{Timeout: timeout}

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return resp.StatusCode, nil
}

func (n *Notifier) backoff(attempt int) time.Duration {
	d := time.Second << uint(attempt-1)
	if d > n.cfg.MaxBackoff {
		d = n.cfg.MaxBackoff
	}
	return d
}
