package redis

import (
	"context"
	"fmt"
	"time"

	"payment-api-gateway/internal/core/ports"

	goredis "github.com/redis/go-redis/v9"
)

// RateLimitStore implements ports.RateLimitStore with a fixed-window counter:
// INCR + EXPIRE on a key scoped by windowID.
type RateLimitStore struct {
	client *goredis.Client
	clock  ports.Clock
	prefix string
}

// NewRateLimitStore creates a new Redis-backed rate limit store.
func NewRateLimitStore(client *goredis.Client, clock ports.Clock) *RateLimitStore {
	return &RateLimitStore{
		client: client,
		clock:  clock,
		prefix: "ratelimit:",
	}
}

// Incr bumps the counter for key in the current window.
func (s *RateLimitStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	now := s.clock.Now()
	windowSecs := int64(window.Seconds())
	windowID := now.Unix() / windowSecs
	redisKey := fmt.Sprintf("%s%s:%d", s.prefix, key, windowID)

	count, err := s.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("redis rate limit incr: %w", err)
	}

	// Set expiry only on first increment (new window)
	if count == 1 {
		s.client.Expire(ctx, redisKey, window+time.Second) // +1s safety margin
	}

	reset := time.Unix((windowID+1)*windowSecs, 0).Sub(now)
	return count, reset, nil
}
