package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"payment-api-gateway/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// IdempotencyStore implements ports.IdempotencyStore on a table keyed by
// scope. Used when Redis is disabled. Claims race through a conditional
// upsert; expired rows are overwritten in place instead of vacuumed.
type IdempotencyStore struct {
	pool Pool
}

// NewIdempotencyStore creates a new IdempotencyStore.
func NewIdempotencyStore(pool Pool) *IdempotencyStore {
	return &IdempotencyStore{pool: pool}
}

// Get returns the record for a scope, or nil when absent or expired.
func (s *IdempotencyStore) Get(ctx context.Context, scope string) (*domain.IdempotencyRecord, error) {
	query := `SELECT key, merchant_id, endpoint, request_hash, status_code, response, headers, created_at, expires_at
		FROM idempotency_records WHERE scope = $1 AND expires_at > NOW()`

	record := &domain.IdempotencyRecord{}
	var headers []byte
	err := s.pool.QueryRow(ctx, query, scope).Scan(
		&record.Key, &record.MerchantID, &record.Endpoint, &record.RequestHash,
		&record.StatusCode, &record.Response, &headers, &record.CreatedAt, &record.ExpiresAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get idempotency record: %w", err)
	}
	if len(headers) > 0 {
		if err := json.Unmarshal(headers, &record.Headers); err != nil {
			return nil, fmt.Errorf("decode idempotency headers: %w", err)
		}
	}
	return record, nil
}

// PutInFlight claims the scope. A live row, in flight or completed, blocks
// the claim; an expired row is reclaimed.
func (s *IdempotencyStore) PutInFlight(ctx context.Context, record *domain.IdempotencyRecord, ttl time.Duration) (bool, error) {
	scope := domain.IdempotencyScope(record.MerchantID, record.Endpoint, record.Key)
	record.ExpiresAt = record.CreatedAt.Add(ttl)

	query := `INSERT INTO idempotency_records (scope, key, merchant_id, endpoint, request_hash, status_code, response, headers, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (scope) DO UPDATE SET
			key = EXCLUDED.key,
			merchant_id = EXCLUDED.merchant_id,
			endpoint = EXCLUDED.endpoint,
			request_hash = EXCLUDED.request_hash,
			status_code = EXCLUDED.status_code,
			response = EXCLUDED.response,
			headers = EXCLUDED.headers,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at
		WHERE idempotency_records.expires_at <= NOW()`

	headers, err := encodeHeaders(record.Headers)
	if err != nil {
		return false, err
	}
	tag, err := s.pool.Exec(ctx, query, scope,
		record.Key, record.MerchantID, record.Endpoint, record.RequestHash,
		record.StatusCode, record.Response, headers, record.CreatedAt, record.ExpiresAt,
	)
	if err != nil {
		return false, fmt.Errorf("claim idempotency scope: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Complete stores the final response against an in-flight record.
func (s *IdempotencyStore) Complete(ctx context.Context, record *domain.IdempotencyRecord, ttl time.Duration) error {
	scope := domain.IdempotencyScope(record.MerchantID, record.Endpoint, record.Key)
	record.ExpiresAt = record.CreatedAt.Add(ttl)

	query := `UPDATE idempotency_records SET status_code = $1, response = $2, headers = $3, expires_at = $4 WHERE scope = $5`
	headers, err := encodeHeaders(record.Headers)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, query, record.StatusCode, record.Response, headers, record.ExpiresAt, scope)
	if err != nil {
		return fmt.Errorf("complete idempotency record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("complete idempotency record: scope %s not found", scope)
	}
	return nil
}

func encodeHeaders(h map[string]string) ([]byte, error) {
	if len(h) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(h)
	if err != nil {
		return nil, fmt.Errorf("encode idempotency headers: %w", err)
	}
	return data, nil
}

// Release drops an in-flight claim so the client can retry.
func (s *IdempotencyStore) Release(ctx context.Context, scope string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM idempotency_records WHERE scope = $1`, scope); err != nil {
		return fmt.Errorf("release idempotency scope: %w", err)
	}
	return nil
}
