package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"payment-api-gateway/internal/core/domain"
	"payment-api-gateway/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const refundColumns = `id, merchant_id, charge_id, amount, currency, reason, status, acquirer_reference,
	metadata, created_at, updated_at`

// RefundRepo implements ports.RefundRepository.
type RefundRepo struct {
	pool Pool
}

// NewRefundRepo creates a new RefundRepo.
func NewRefundRepo(pool Pool) *RefundRepo {
	return &RefundRepo{pool: pool}
}

// Create inserts a new refund.
func (r *RefundRepo) Create(ctx context.Context, refund *domain.Refund) error {
	query := `INSERT INTO refunds (` + refundColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	metadata, err := marshalMetadata(refund.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	_, err = r.pool.Exec(ctx, query,
		refund.ID, refund.MerchantID, refund.ChargeID,
		refund.Amount, refund.Currency, refund.Reason, refund.Status,
		refund.AcquirerReference, metadata, refund.CreatedAt, refund.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert refund: %w", err)
	}
	return nil
}

// GetByID fetches a refund scoped to one merchant.
func (r *RefundRepo) GetByID(ctx context.Context, merchantID, id uuid.UUID) (*domain.Refund, error) {
	query := `SELECT ` + refundColumns + ` FROM refunds WHERE merchant_id = $1 AND id = $2`
	return scanRefund(r.pool.QueryRow(ctx, query, merchantID, id))
}

// ListByCharge returns all refunds issued against one charge, oldest first.
func (r *RefundRepo) ListByCharge(ctx context.Context, chargeID uuid.UUID) ([]domain.Refund, error) {
	query := `SELECT ` + refundColumns + ` FROM refunds WHERE charge_id = $1 ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, chargeID)
	if err != nil {
		return nil, fmt.Errorf("list refunds by charge: %w", err)
	}
	defer rows.Close()

	return collectRefunds(rows)
}

// List fetches refunds with filtering and pagination, newest first.
func (r *RefundRepo) List(ctx context.Context, params ports.RefundListParams) ([]domain.Refund, int64, error) {
	var conditions []string
	var args []any
	argIdx := 1

	conditions = append(conditions, fmt.Sprintf("merchant_id = $%d", argIdx))
	args = append(args, params.MerchantID)
	argIdx++

	if params.ChargeID != nil {
		conditions = append(conditions, fmt.Sprintf("charge_id = $%d", argIdx))
		args = append(args, *params.ChargeID)
		argIdx++
	}

	where := "WHERE " + strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM refunds %s", where)
	var total int64
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count refunds: %w", err)
	}

	dataQuery := fmt.Sprintf(`SELECT %s FROM refunds %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		refundColumns, where, argIdx, argIdx+1)
	args = append(args, params.Limit, params.Offset)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list refunds: %w", err)
	}
	defer rows.Close()

	refunds, err := collectRefunds(rows)
	if err != nil {
		return nil, 0, err
	}
	return refunds, total, nil
}

// UpdateStatus sets a refund's final status and acquirer reference.
func (r *RefundRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.RefundStatus, acquirerRef *string) error {
	query := `UPDATE refunds SET status = $1, acquirer_reference = COALESCE($2, acquirer_reference), updated_at = NOW()
		WHERE id = $3`

	tag, err := r.pool.Exec(ctx, query, status, acquirerRef, id)
	if err != nil {
		return fmt.Errorf("update refund status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("refund not found: %s", id)
	}
	return nil
}

func scanRefund(row pgx.Row) (*domain.Refund, error) {
	refund := &domain.Refund{}
	var metadata []byte
	err := row.Scan(
		&refund.ID, &refund.MerchantID, &refund.ChargeID,
		&refund.Amount, &refund.Currency, &refund.Reason, &refund.Status,
		&refund.AcquirerReference, &metadata, &refund.CreatedAt, &refund.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan refund row: %w", err)
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &refund.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	return refund, nil
}

func collectRefunds(rows pgx.Rows) ([]domain.Refund, error) {
	var refunds []domain.Refund
	for rows.Next() {
		refund, err := scanRefund(rows)
		if err != nil {
			return nil, err
		}
		refunds = append(refunds, *refund)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate refund rows: %w", err)
	}
	return refunds, nil
}
