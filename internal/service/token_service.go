package service

import (
	"context"
	"fmt"
	"time"

	"payment-api-gateway/internal/core/domain"
	"payment-api-gateway/internal/core/ports"
	"payment-api-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CardTokenPrefix marks single-use card tokens on the wire.
const CardTokenPrefix = "tok_"

// CardTokenServiceImpl implements ports.CardTokenService. Tokens are
// single-use references into the vault with a short TTL; the card never
// touches the database.
type CardTokenServiceImpl struct {
	vault  ports.CardTokenVault
	crypto ports.Crypto
	ttl    time.Duration
	log    zerolog.Logger
}

// NewCardTokenService creates a CardTokenServiceImpl.
func NewCardTokenService(vault ports.CardTokenVault, crypto ports.Crypto, ttl time.Duration, log zerolog.Logger) *CardTokenServiceImpl {
	return &CardTokenServiceImpl{vault: vault, crypto: crypto, ttl: ttl, log: log}
}

// Tokenize stores the card in the vault and returns the token plus the
// display summary.
func (s *CardTokenServiceImpl) Tokenize(ctx context.Context, merchantID uuid.UUID, card *domain.Card) (string, domain.PaymentMethodSummary, error) {
	if !card.ValidLuhn() {
		return "", domain.PaymentMethodSummary{}, apperror.ValidationParam("invalid card number", "number")
	}

	token, err := s.crypto.RandomToken(CardTokenPrefix, 18)
	if err != nil {
		return "", domain.PaymentMethodSummary{}, apperror.Internal(fmt.Errorf("generate card token: %w", err))
	}
	if err := s.vault.Put(ctx, merchantID, token, card, s.ttl); err != nil {
		return "", domain.PaymentMethodSummary{}, apperror.Internal(fmt.Errorf("store card token: %w", err))
	}

	summary := card.Summary()
	summary.TokenRef = &token
	return token, summary, nil
}

// Redeem fetches and consumes a token. A token can be redeemed exactly once.
func (s *CardTokenServiceImpl) Redeem(ctx context.Context, merchantID uuid.UUID, token string) (*domain.Card, error) {
	card, err := s.vault.Get(ctx, merchantID, token)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("fetch card token: %w", err))
	}
	if card == nil {
		return nil, apperror.ErrInvalidToken()
	}
	if err := s.vault.Delete(ctx, merchantID, token); err != nil {
		// best-effort: TTL still bounds the token's lifetime
		s.log.Warn().Err(err).Str("merchant_id", merchantID.String()).Msg("failed to consume card token")
	}
	return card, nil
}
