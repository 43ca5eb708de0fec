package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"payment-api-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// APIKeyRepo implements ports.APIKeyRepository.
type APIKeyRepo struct {
	pool Pool
}

// NewAPIKeyRepo creates a new APIKeyRepo.
func NewAPIKeyRepo(pool Pool) *APIKeyRepo {
	return &APIKeyRepo{pool: pool}
}

// GetByValue fetches an active API key by its stored value: the verbatim key
// for public keys, the SHA-256 hex digest for secret keys.
func (r *APIKeyRepo) GetByValue(ctx context.Context, value string) (*domain.APIKey, error) {
	query := `SELECT id, merchant_id, kind, value, is_active, last_used_at, created_at
		FROM api_keys WHERE value = $1`

	key := &domain.APIKey{}
	err := r.pool.QueryRow(ctx, query, value).Scan(
		&key.ID, &key.MerchantID, &key.Kind, &key.Value,
		&key.IsActive, &key.LastUsedAt, &key.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get api key: %w", err)
	}
	return key, nil
}

// Touch records when the key was last used.
func (r *APIKeyRepo) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE api_keys SET last_used_at = $1 WHERE id = $2`, at, id)
	if err != nil {
		return fmt.Errorf("touch api key: %w", err)
	}
	return nil
}
