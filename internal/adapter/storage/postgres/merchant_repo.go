package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"payment-api-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// MerchantRepo implements ports.MerchantRepository. The merchants table is
// owned by the onboarding system; the gateway reads only what routing needs.
type MerchantRepo struct {
	pool Pool
}

// NewMerchantRepo creates a new MerchantRepo.
func NewMerchantRepo(pool Pool) *MerchantRepo {
	return &MerchantRepo{pool: pool}
}

// GetByID fetches a merchant by its UUID.
func (r *MerchantRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Merchant, error) {
	query := `SELECT id, name, routing_config, created_at FROM merchants WHERE id = $1`

	m := &domain.Merchant{}
	var routingConfig []byte
	err := r.pool.QueryRow(ctx, query, id).Scan(&m.ID, &m.Name, &routingConfig, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get merchant by id: %w", err)
	}
	if len(routingConfig) > 0 {
		if err := json.Unmarshal(routingConfig, &m.RoutingConfig); err != nil {
			return nil, fmt.Errorf("unmarshal routing config: %w", err)
		}
	}
	return m, nil
}
