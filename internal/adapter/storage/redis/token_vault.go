package redis

import (
	"context"
	"fmt"
	"time"

	"payment-api-gateway/internal/adapter/storage/cardcrypt"
	"payment-api-gateway/internal/core/domain"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// TokenVault implements ports.CardTokenVault using Redis. Card details only
// ever reach Redis as ChaCha20-Poly1305 ciphertext; expiry is enforced by the
// key TTL.
type TokenVault struct {
	client *goredis.Client
	sealer *cardcrypt.Sealer
	prefix string
}

// NewTokenVault creates a new Redis-backed card token vault.
func NewTokenVault(client *goredis.Client, sealer *cardcrypt.Sealer) *TokenVault {
	return &TokenVault{
		client: client,
		sealer: sealer,
		prefix: "cardtoken:",
	}
}

func (v *TokenVault) key(merchantID uuid.UUID, token string) string {
	return fmt.Sprintf("%s%s:%s", v.prefix, merchantID, token)
}

// Put stores a sealed card under the merchant-scoped token.
func (v *TokenVault) Put(ctx context.Context, merchantID uuid.UUID, token string, card *domain.Card, ttl time.Duration) error {
	sealed, err := v.sealer.Seal(card)
	if err != nil {
		return fmt.Errorf("seal card: %w", err)
	}
	if err := v.client.Set(ctx, v.key(merchantID, token), sealed, ttl).Err(); err != nil {
		return fmt.Errorf("redis card token set: %w", err)
	}
	return nil
}

// Get returns the card behind a token. Returns nil, nil when absent or expired.
func (v *TokenVault) Get(ctx context.Context, merchantID uuid.UUID, token string) (*domain.Card, error) {
	sealed, err := v.client.Get(ctx, v.key(merchantID, token)).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis card token get: %w", err)
	}
	return v.sealer.Open(sealed)
}

// Delete removes a token after redemption.
func (v *TokenVault) Delete(ctx context.Context, merchantID uuid.UUID, token string) error {
	if err := v.client.Del(ctx, v.key(merchantID, token)).Err(); err != nil {
		return fmt.Errorf("redis card token delete: %w", err)
	}
	return nil
}
