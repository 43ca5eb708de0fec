package postgres

import (
	"context"
	"fmt"
	"time"

	"payment-api-gateway/internal/adapter/storage/cardcrypt"
	"payment-api-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TokenVault implements ports.CardTokenVault on a table of sealed entries.
// Used when Redis is disabled. Card details only ever touch the table as
// ChaCha20-Poly1305 ciphertext, and rows past expires_at are dead even if
// not yet deleted.
type TokenVault struct {
	pool   Pool
	sealer *cardcrypt.Sealer
}

// NewTokenVault creates a new TokenVault.
func NewTokenVault(pool Pool, sealer *cardcrypt.Sealer) *TokenVault {
	return &TokenVault{pool: pool, sealer: sealer}
}

// Put stores a sealed card under the merchant-scoped token.
func (v *TokenVault) Put(ctx context.Context, merchantID uuid.UUID, token string, card *domain.Card, ttl time.Duration) error {
	sealed, err := v.sealer.Seal(card)
	if err != nil {
		return fmt.Errorf("seal card: %w", err)
	}

	query := `INSERT INTO card_tokens (merchant_id, token, card_sealed, expires_at)
		VALUES ($1, $2, $3, $4)`
	if _, err := v.pool.Exec(ctx, query, merchantID, token, sealed, time.Now().Add(ttl)); err != nil {
		return fmt.Errorf("insert card token: %w", err)
	}
	return nil
}

// Get returns the card behind a token, or nil when absent or expired.
func (v *TokenVault) Get(ctx context.Context, merchantID uuid.UUID, token string) (*domain.Card, error) {
	query := `SELECT card_sealed FROM card_tokens
		WHERE merchant_id = $1 AND token = $2 AND expires_at > NOW()`

	var sealed []byte
	if err := v.pool.QueryRow(ctx, query, merchantID, token).Scan(&sealed); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get card token: %w", err)
	}
	return v.sealer.Open(sealed)
}

// Delete removes a token after redemption.
func (v *TokenVault) Delete(ctx context.Context, merchantID uuid.UUID, token string) error {
	if _, err := v.pool.Exec(ctx, `DELETE FROM card_tokens WHERE merchant_id = $1 AND token = $2`, merchantID, token); err != nil {
		return fmt.Errorf("delete card token: %w", err)
	}
	return nil
}
