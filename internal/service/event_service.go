package service

import (
	"context"

	"payment-api-gateway/internal/core/domain"
	"payment-api-gateway/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// EventEmitterImpl implements ports.EventEmitter. It snapshots the object,
// fans out to subscribed webhooks and queues one delivery per endpoint.
// Everything here is best-effort: a failed emit is logged and swallowed so it
// can never roll back the payment operation that triggered it.
type EventEmitterImpl struct {
	webhookRepo  ports.WebhookRepository
	deliveryRepo ports.WebhookDeliveryRepository
	clock        ports.Clock
	log          zerolog.Logger
}

// NewEventEmitter creates an EventEmitterImpl.
func NewEventEmitter(
	webhookRepo ports.WebhookRepository,
	deliveryRepo ports.WebhookDeliveryRepository,
	clock ports.Clock,
	log zerolog.Logger,
) *EventEmitterImpl {
	return &EventEmitterImpl{
		webhookRepo:  webhookRepo,
		deliveryRepo: deliveryRepo,
		clock:        clock,
		log:          log,
	}
}

// Emit builds the event envelope and queues deliveries for every active
// webhook subscribed to eventType.
func (e *EventEmitterImpl) Emit(ctx context.Context, merchantID uuid.UUID, eventType string, object any) {
	now := e.clock.Now()
	event, err := domain.NewEvent(eventType, object, now)
	if err != nil {
		e.log.Error().Err(err).Str("event_type", eventType).Msg("failed to build event payload")
		return
	}

	webhooks, err := e.webhookRepo.ListActive(ctx, merchantID)
	if err != nil {
		e.log.Error().Err(err).
			Str("merchant_id", merchantID.String()).
			Str("event_type", eventType).
			Msg("failed to list webhooks for event")
		return
	}

	payload, err := event.Payload()
	if err != nil {
		e.log.Error().Err(err).Str("event_type", eventType).Msg("failed to marshal event")
		return
	}

	var deliveries []*domain.WebhookDelivery
	for _, wh := range webhooks {
		if !wh.Subscribed(eventType) {
			continue
		}
		deliveries = append(deliveries, &domain.WebhookDelivery{
			ID:          uuid.New(),
			MerchantID:  merchantID,
			EventType:   eventType,
			EventID:     event.ID,
			EndpointURL: wh.URL,
			Secret:      wh.Secret,
			Payload:     payload,
			Attempt:     1,
			MaxAttempts: domain.DeliveryMaxAttempts,
			NextRetryAt: now,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	if len(deliveries) == 0 {
		return
	}

	if err := e.deliveryRepo.CreateBatch(ctx, deliveries); err != nil {
		e.log.Error().Err(err).
			Str("event_type", eventType).
			Int("deliveries", len(deliveries)).
			Msg("failed to queue webhook deliveries")
		return
	}

	e.log.Debug().
		Str("event_id", event.ID.String()).
		Str("event_type", eventType).
		Int("deliveries", len(deliveries)).
		Msg("event emitted")
}
