package postgres

import (
	"context"
	"errors"
	"fmt"

	"payment-api-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const webhookColumns = `id, merchant_id, url, secret, events, is_active, created_at, updated_at`

// WebhookRepo implements ports.WebhookRepository.
type WebhookRepo struct {
	pool Pool
}

// NewWebhookRepo creates a new WebhookRepo.
func NewWebhookRepo(pool Pool) *WebhookRepo {
	return &WebhookRepo{pool: pool}
}

// Create inserts a new webhook endpoint.
func (r *WebhookRepo) Create(ctx context.Context, webhook *domain.Webhook) error {
	query := `INSERT INTO webhooks (` + webhookColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, query,
		webhook.ID, webhook.MerchantID, webhook.URL, webhook.Secret,
		webhook.Events, webhook.IsActive, webhook.CreatedAt, webhook.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert webhook: %w", err)
	}
	return nil
}

// GetByID fetches a webhook scoped to one merchant.
func (r *WebhookRepo) GetByID(ctx context.Context, merchantID, id uuid.UUID) (*domain.Webhook, error) {
	query := `SELECT ` + webhookColumns + ` FROM webhooks WHERE merchant_id = $1 AND id = $2`
	return scanWebhook(r.pool.QueryRow(ctx, query, merchantID, id))
}

// ListByMerchant returns all of the merchant's webhooks, newest first.
func (r *WebhookRepo) ListByMerchant(ctx context.Context, merchantID uuid.UUID) ([]domain.Webhook, error) {
	query := `SELECT ` + webhookColumns + ` FROM webhooks WHERE merchant_id = $1 ORDER BY created_at DESC`
	return r.queryWebhooks(ctx, query, merchantID)
}

// ListActive returns the merchant's active webhooks, used for event fan-out.
func (r *WebhookRepo) ListActive(ctx context.Context, merchantID uuid.UUID) ([]domain.Webhook, error) {
	query := `SELECT ` + webhookColumns + ` FROM webhooks WHERE merchant_id = $1 AND is_active ORDER BY created_at`
	return r.queryWebhooks(ctx, query, merchantID)
}

// Delete removes a webhook endpoint, reporting whether a row existed.
func (r *WebhookRepo) Delete(ctx context.Context, merchantID, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM webhooks WHERE merchant_id = $1 AND id = $2`, merchantID, id)
	if err != nil {
		return false, fmt.Errorf("delete webhook: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *WebhookRepo) queryWebhooks(ctx context.Context, query string, args ...any) ([]domain.Webhook, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list webhooks: %w", err)
	}
	defer rows.Close()

	var webhooks []domain.Webhook
	for rows.Next() {
		webhook, err := scanWebhook(rows)
		if err != nil {
			return nil, err
		}
		webhooks = append(webhooks, *webhook)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate webhook rows: %w", err)
	}
	return webhooks, nil
}

func scanWebhook(row pgx.Row) (*domain.Webhook, error) {
	webhook := &domain.Webhook{}
	err := row.Scan(
		&webhook.ID, &webhook.MerchantID, &webhook.URL, &webhook.Secret,
		&webhook.Events, &webhook.IsActive, &webhook.CreatedAt, &webhook.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan webhook row: %w", err)
	}
	return webhook, nil
}
