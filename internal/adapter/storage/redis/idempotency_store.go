package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"payment-api-gateway/internal/core/domain"

	goredis "github.com/redis/go-redis/v9"
)

// IdempotencyStore implements ports.IdempotencyStore using Redis. The
// in-flight claim is a SET NX, so exactly one of two racing requests with the
// same key wins; everything expires with the record TTL.
type IdempotencyStore struct {
	client *goredis.Client
	prefix string
}

// NewIdempotencyStore creates a new Redis-backed idempotency store.
func NewIdempotencyStore(client *goredis.Client) *IdempotencyStore {
	return &IdempotencyStore{
		client: client,
		prefix: "idempotency:",
	}
}

// Get retrieves a stored record by scope. Returns nil, nil when absent.
func (s *IdempotencyStore) Get(ctx context.Context, scope string) (*domain.IdempotencyRecord, error) {
	val, err := s.client.Get(ctx, s.prefix+scope).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis idempotency get: %w", err)
	}

	record := &domain.IdempotencyRecord{}
	if err := json.Unmarshal(val, record); err != nil {
		return nil, fmt.Errorf("unmarshal idempotency record: %w", err)
	}
	return record, nil
}

// PutInFlight claims the scope with SET NX.
func (s *IdempotencyStore) PutInFlight(ctx context.Context, record *domain.IdempotencyRecord, ttl time.Duration) (bool, error) {
	scope := domain.IdempotencyScope(record.MerchantID, record.Endpoint, record.Key)
	record.ExpiresAt = record.CreatedAt.Add(ttl)

	val, err := json.Marshal(record)
	if err != nil {
		return false, fmt.Errorf("marshal idempotency record: %w", err)
	}

	claimed, err := s.client.SetNX(ctx, s.prefix+scope, val, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis idempotency claim: %w", err)
	}
	return claimed, nil
}

// Complete stores the final response against an in-flight record.
func (s *IdempotencyStore) Complete(ctx context.Context, record *domain.IdempotencyRecord, ttl time.Duration) error {
	scope := domain.IdempotencyScope(record.MerchantID, record.Endpoint, record.Key)
	record.ExpiresAt = record.CreatedAt.Add(ttl)

	val, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal idempotency record: %w", err)
	}
	if err := s.client.Set(ctx, s.prefix+scope, val, ttl).Err(); err != nil {
		return fmt.Errorf("redis idempotency complete: %w", err)
	}
	return nil
}

// Release drops an in-flight claim so the client can retry.
func (s *IdempotencyStore) Release(ctx context.Context, scope string) error {
	if err := s.client.Del(ctx, s.prefix+scope).Err(); err != nil {
		return fmt.Errorf("redis idempotency release: %w", err)
	}
	return nil
}
