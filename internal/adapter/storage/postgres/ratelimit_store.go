package postgres

import (
	"context"
	"fmt"
	"time"

	"payment-api-gateway/internal/core/ports"

	"github.com/rs/zerolog"
)

// RateLimitStore implements ports.RateLimitStore on a counter table. Used
// when Redis is disabled; one upsert per request.
type RateLimitStore struct {
	pool  Pool
	clock ports.Clock
	log   zerolog.Logger
}

// NewRateLimitStore creates a new RateLimitStore.
func NewRateLimitStore(pool Pool, clock ports.Clock, log zerolog.Logger) *RateLimitStore {
	return &RateLimitStore{
		pool:  pool,
		clock: clock,
		log:   log.With().Str("component", "pg_rate_limit_store").Logger(),
	}
}

// Incr bumps the counter for key in the current fixed window.
func (s *RateLimitStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	now := s.clock.Now()
	windowSecs := int64(window.Seconds())
	windowStart := now.Unix() / windowSecs * windowSecs

	query := `INSERT INTO rate_limit_counters (key, window_start, count)
		VALUES ($1, $2, 1)
		ON CONFLICT (key, window_start) DO UPDATE SET count = rate_limit_counters.count + 1
		RETURNING count`

	var count int64
	if err := s.pool.QueryRow(ctx, query, key, windowStart).Scan(&count); err != nil {
		return 0, 0, fmt.Errorf("bump rate limit counter: %w", err)
	}

	// First hit in a fresh window: drop the key's stale windows. Best effort.
	if count == 1 {
		if _, err := s.pool.Exec(ctx, `DELETE FROM rate_limit_counters WHERE key = $1 AND window_start < $2`, key, windowStart); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("failed to prune stale rate limit windows")
		}
	}

	reset := time.Unix(windowStart+windowSecs, 0).Sub(now)
	return count, reset, nil
}
