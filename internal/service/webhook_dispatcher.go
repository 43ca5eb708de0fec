package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"payment-api-gateway/internal/core/domain"
	"payment-api-gateway/internal/core/ports"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// retryBackoff holds the delay before attempt 2 and attempt 3.
var retryBackoff = []time.Duration{30 * time.Second, 5 * time.Minute, 30 * time.Minute}

var webhookDeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "gateway_webhook_deliveries_total",
	Help: "Webhook delivery attempts by outcome (delivered, retry, exhausted).",
}, []string{"outcome"})

const maxStoredResponseBody = 1024

// WebhookDispatcher drains the delivery queue in the background. Deliveries
// are at-least-once; consumers dedupe on X-Webhook-Id.
type WebhookDispatcher struct {
	deliveryRepo   ports.WebhookDeliveryRepository
	crypto         ports.Crypto
	clock          ports.Clock
	client         *http.Client
	attemptTimeout time.Duration
	pollInterval   time.Duration
	batchSize      int
	log            zerolog.Logger
}

// NewWebhookDispatcher creates a WebhookDispatcher.
func NewWebhookDispatcher(
	deliveryRepo ports.WebhookDeliveryRepository,
	crypto ports.Crypto,
	clock ports.Clock,
	attemptTimeout time.Duration,
	pollInterval time.Duration,
	batchSize int,
	log zerolog.Logger,
) *WebhookDispatcher {
	return &WebhookDispatcher{
		deliveryRepo:   deliveryRepo,
		crypto:         crypto,
		clock:          clock,
		client:         &http.Client{Timeout: attemptTimeout},
		attemptTimeout: attemptTimeout,
		pollInterval:   pollInterval,
		batchSize:      batchSize,
		log:            log.With().Str("component", "webhook_dispatcher").Logger(),
	}
}

// Run polls for due deliveries until ctx is canceled.
func (d *WebhookDispatcher) Run(ctx context.Context) {
	d.log.Info().
		Dur("poll_interval", d.pollInterval).
		Int("batch_size", d.batchSize).
		Msg("webhook dispatcher started")

	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.log.Info().Msg("webhook dispatcher stopped")
			return
		case <-ticker.C:
			d.DispatchDue(ctx)
		}
	}
}

// DispatchDue processes one batch of due deliveries.
func (d *WebhookDispatcher) DispatchDue(ctx context.Context) {
	due, err := d.deliveryRepo.Due(ctx, d.clock.Now(), d.batchSize)
	if err != nil {
		d.log.Error().Err(err).Msg("failed to fetch due deliveries")
		return
	}
	for i := range due {
		d.dispatch(ctx, &due[i])
	}
}

func (d *WebhookDispatcher) dispatch(ctx context.Context, delivery *domain.WebhookDelivery) {
	status, respBody, err := d.post(ctx, delivery)
	now := d.clock.Now()
	delivery.UpdatedAt = now

	if err == nil && status >= 200 && status < 300 {
		delivery.Delivered = true
		delivery.DeliveredAt = &now
		delivery.StatusCode = &status
		delivery.Error = nil
		webhookDeliveriesTotal.WithLabelValues("delivered").Inc()
	} else {
		if status > 0 {
			delivery.StatusCode = &status
		}
		if len(respBody) > 0 {
			truncated := string(respBody[:min(len(respBody), maxStoredResponseBody)])
			delivery.ResponseBody = &truncated
		}
		if err != nil {
			msg := err.Error()
			delivery.Error = &msg
		}
		failed := delivery.Attempt
		delivery.Attempt++
		if !delivery.Exhausted() {
			delivery.NextRetryAt = now.Add(backoff(failed))
			webhookDeliveriesTotal.WithLabelValues("retry").Inc()
		} else {
			webhookDeliveriesTotal.WithLabelValues("exhausted").Inc()
			d.log.Warn().
				Str("delivery_id", delivery.ID.String()).
				Str("url", delivery.EndpointURL).
				Msg("webhook delivery exhausted all attempts")
		}
	}

	if err := d.deliveryRepo.Update(ctx, delivery); err != nil {
		d.log.Error().Err(err).
			Str("delivery_id", delivery.ID.String()).
			Msg("failed to persist delivery state")
	}
}

// post sends one signed attempt and returns the HTTP status and response
// body. Network failures return a zero status with the error.
func (d *WebhookDispatcher) post(ctx context.Context, delivery *domain.WebhookDelivery) (int, []byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, d.attemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, delivery.EndpointURL, bytes.NewReader(delivery.Payload))
	if err != nil {
		return 0, nil, fmt.Errorf("build webhook request: %w", err)
	}

	ts := strconv.FormatInt(d.clock.Now().Unix(), 10)
	signed := make([]byte, 0, len(ts)+1+len(delivery.Payload))
	signed = append(signed, ts...)
	signed = append(signed, '.')
	signed = append(signed, delivery.Payload...)

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Event", delivery.EventType)
	req.Header.Set("X-Webhook-Id", delivery.EventID.String())
	req.Header.Set("X-Webhook-Timestamp", ts)
	req.Header.Set("X-Webhook-Signature", fmt.Sprintf("t=%s, v1=%s", ts, d.crypto.SignHMAC(delivery.Secret, signed)))

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxStoredResponseBody))
	return resp.StatusCode, body, nil
}

// backoff returns the delay after a failed attempt (1-based).
func backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > len(retryBackoff) {
		attempt = len(retryBackoff)
	}
	return retryBackoff[attempt-1]
}
