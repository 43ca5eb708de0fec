package service

import (
	"context"
	"fmt"
	"net/url"

	"payment-api-gateway/internal/core/domain"
	"payment-api-gateway/internal/core/ports"
	"payment-api-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// webhookSecretPrefix marks webhook signing secrets, shown once at creation.
const webhookSecretPrefix = "whsec_"

// WebhookServiceImpl implements ports.WebhookService.
type WebhookServiceImpl struct {
	webhookRepo ports.WebhookRepository
	crypto      ports.Crypto
	clock       ports.Clock
	log         zerolog.Logger
}

// NewWebhookService creates a WebhookServiceImpl.
func NewWebhookService(webhookRepo ports.WebhookRepository, crypto ports.Crypto, clock ports.Clock, log zerolog.Logger) *WebhookServiceImpl {
	return &WebhookServiceImpl{webhookRepo: webhookRepo, crypto: crypto, clock: clock, log: log}
}

// Create registers a webhook endpoint and mints its signing secret.
func (s *WebhookServiceImpl) Create(ctx context.Context, merchantID uuid.UUID, rawURL string, events []string) (*domain.Webhook, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, apperror.ValidationParam("url must be a valid http(s) URL", "url")
	}
	if len(events) == 0 {
		events = []string{"*"}
	}

	secret, err := s.crypto.RandomToken(webhookSecretPrefix, 24)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("generate webhook secret: %w", err))
	}

	now := s.clock.Now()
	webhook := &domain.Webhook{
		ID:         uuid.New(),
		MerchantID: merchantID,
		URL:        rawURL,
		Secret:     secret,
		Events:     events,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.webhookRepo.Create(ctx, webhook); err != nil {
		return nil, apperror.Internal(fmt.Errorf("create webhook: %w", err))
	}

	s.log.Info().
		Str("webhook_id", webhook.ID.String()).
		Str("merchant_id", merchantID.String()).
		Msg("webhook endpoint registered")
	return webhook, nil
}

// Get fetches one webhook, merchant-scoped.
func (s *WebhookServiceImpl) Get(ctx context.Context, merchantID, id uuid.UUID) (*domain.Webhook, error) {
	webhook, err := s.webhookRepo.GetByID(ctx, merchantID, id)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("get webhook: %w", err))
	}
	if webhook == nil {
		return nil, apperror.ErrNotFound("webhook")
	}
	return webhook, nil
}

// List returns all of the merchant's webhooks.
func (s *WebhookServiceImpl) List(ctx context.Context, merchantID uuid.UUID) ([]domain.Webhook, error) {
	webhooks, err := s.webhookRepo.ListByMerchant(ctx, merchantID)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("list webhooks: %w", err))
	}
	return webhooks, nil
}

// Delete removes a webhook endpoint. Queued deliveries are unaffected.
func (s *WebhookServiceImpl) Delete(ctx context.Context, merchantID, id uuid.UUID) error {
	deleted, err := s.webhookRepo.Delete(ctx, merchantID, id)
	if err != nil {
		return apperror.Internal(fmt.Errorf("delete webhook: %w", err))
	}
	if !deleted {
		return apperror.ErrNotFound("webhook")
	}
	return nil
}
