package postgres

import (
	"context"
	"fmt"
	"time"

	"payment-api-gateway/internal/core/domain"
)

const deliveryColumns = `id, merchant_id, event_type, event_id, endpoint_url, secret, payload,
	attempt, max_attempts, status_code, response_body, error, next_retry_at,
	delivered, delivered_at, created_at, updated_at`

// WebhookDeliveryRepo implements ports.WebhookDeliveryRepository.
type WebhookDeliveryRepo struct {
	pool Pool
}

// NewWebhookDeliveryRepo creates a new WebhookDeliveryRepo.
func NewWebhookDeliveryRepo(pool Pool) *WebhookDeliveryRepo {
	return &WebhookDeliveryRepo{pool: pool}
}

// CreateBatch queues a batch of deliveries in one round trip.
func (r *WebhookDeliveryRepo) CreateBatch(ctx context.Context, deliveries []*domain.WebhookDelivery) error {
	if len(deliveries) == 0 {
		return nil
	}

	query := `INSERT INTO webhook_deliveries (` + deliveryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delivery batch: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, d := range deliveries {
		if _, err := tx.Exec(ctx, query,
			d.ID, d.MerchantID, d.EventType, d.EventID, d.EndpointURL, d.Secret, d.Payload,
			d.Attempt, d.MaxAttempts, d.StatusCode, d.ResponseBody, d.Error, d.NextRetryAt,
			d.Delivered, d.DeliveredAt, d.CreatedAt, d.UpdatedAt,
		); err != nil {
			return fmt.Errorf("insert webhook delivery: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit delivery batch: %w", err)
	}
	return nil
}

// Due returns undelivered, unexhausted deliveries whose retry time has
// passed, oldest first.
func (r *WebhookDeliveryRepo) Due(ctx context.Context, now time.Time, limit int) ([]domain.WebhookDelivery, error) {
	query := `SELECT ` + deliveryColumns + ` FROM webhook_deliveries
		WHERE NOT delivered AND attempt <= max_attempts AND next_retry_at <= $1
		ORDER BY next_retry_at ASC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list due deliveries: %w", err)
	}
	defer rows.Close()

	var deliveries []domain.WebhookDelivery
	for rows.Next() {
		d := domain.WebhookDelivery{}
		if err := rows.Scan(
			&d.ID, &d.MerchantID, &d.EventType, &d.EventID, &d.EndpointURL, &d.Secret, &d.Payload,
			&d.Attempt, &d.MaxAttempts, &d.StatusCode, &d.ResponseBody, &d.Error, &d.NextRetryAt,
			&d.Delivered, &d.DeliveredAt, &d.CreatedAt, &d.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan delivery row: %w", err)
		}
		deliveries = append(deliveries, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate delivery rows: %w", err)
	}
	return deliveries, nil
}

// Update persists attempt state after one dispatch.
func (r *WebhookDeliveryRepo) Update(ctx context.Context, d *domain.WebhookDelivery) error {
	query := `UPDATE webhook_deliveries SET attempt = $1, status_code = $2, response_body = $3, error = $4,
		next_retry_at = $5, delivered = $6, delivered_at = $7, updated_at = $8
		WHERE id = $9`

	tag, err := r.pool.Exec(ctx, query,
		d.Attempt, d.StatusCode, d.ResponseBody, d.Error,
		d.NextRetryAt, d.Delivered, d.DeliveredAt, d.UpdatedAt, d.ID,
	)
	if err != nil {
		return fmt.Errorf("update webhook delivery: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("webhook delivery not found: %s", d.ID)
	}
	return nil
}
