package postgres

import (
	"context"
	"fmt"

	"payment-api-gateway/internal/core/domain"
)

// AccessLogRepo implements ports.AccessLogRepository.
type AccessLogRepo struct {
	pool Pool
}

// NewAccessLogRepo creates a new AccessLogRepo.
func NewAccessLogRepo(pool Pool) *AccessLogRepo {
	return &AccessLogRepo{pool: pool}
}

// Create appends one request audit record.
func (r *AccessLogRepo) Create(ctx context.Context, entry *domain.AccessLog) error {
	query := `INSERT INTO access_logs (id, merchant_id, request_id, method, path, status_code, client_ip, user_agent, idempotency_key, latency_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.pool.Exec(ctx, query,
		entry.ID, entry.MerchantID, entry.RequestID, entry.Method, entry.Path,
		entry.StatusCode, entry.ClientIP, entry.UserAgent, entry.IdempotencyKey,
		entry.LatencyMS, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert access log: %w", err)
	}
	return nil
}
