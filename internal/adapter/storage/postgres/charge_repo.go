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

const chargeColumns = `id, merchant_id, payment_intent_id, amount_authorized, amount_captured, amount_refunded,
	currency, status, acquirer_name, acquirer_reference, authorization_code, network, processor_response,
	created_at, updated_at`

// ChargeRepo implements ports.ChargeRepository.
type ChargeRepo struct {
	pool Pool
}

// NewChargeRepo creates a new ChargeRepo.
func NewChargeRepo(pool Pool) *ChargeRepo {
	return &ChargeRepo{pool: pool}
}

// Create inserts a new charge.
func (r *ChargeRepo) Create(ctx context.Context, charge *domain.Charge) error {
	query := `INSERT INTO charges (` + chargeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	processor, err := marshalNullable(charge.Processor)
	if err != nil {
		return fmt.Errorf("marshal processor response: %w", err)
	}

	_, err = r.pool.Exec(ctx, query,
		charge.ID, charge.MerchantID, charge.PaymentIntentID,
		charge.AmountAuthorized, charge.AmountCaptured, charge.AmountRefunded,
		charge.Currency, charge.Status, charge.AcquirerName,
		charge.AcquirerReference, charge.AuthorizationCode, charge.Network,
		processor, charge.CreatedAt, charge.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert charge: %w", err)
	}
	return nil
}

// GetByID fetches a charge scoped to one merchant.
func (r *ChargeRepo) GetByID(ctx context.Context, merchantID, id uuid.UUID) (*domain.Charge, error) {
	query := `SELECT ` + chargeColumns + ` FROM charges WHERE merchant_id = $1 AND id = $2`
	return scanCharge(r.pool.QueryRow(ctx, query, merchantID, id))
}

// GetByIntentID fetches the most recent charge created for an intent.
func (r *ChargeRepo) GetByIntentID(ctx context.Context, intentID uuid.UUID) (*domain.Charge, error) {
	query := `SELECT ` + chargeColumns + ` FROM charges WHERE payment_intent_id = $1
		ORDER BY created_at DESC LIMIT 1`
	return scanCharge(r.pool.QueryRow(ctx, query, intentID))
}

// List fetches charges with filtering and pagination, newest first.
func (r *ChargeRepo) List(ctx context.Context, params ports.ChargeListParams) ([]domain.Charge, int64, error) {
	var conditions []string
	var args []any
	argIdx := 1

	conditions = append(conditions, fmt.Sprintf("merchant_id = $%d", argIdx))
	args = append(args, params.MerchantID)
	argIdx++

	if params.PaymentIntentID != nil {
		conditions = append(conditions, fmt.Sprintf("payment_intent_id = $%d", argIdx))
		args = append(args, *params.PaymentIntentID)
		argIdx++
	}
	if params.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *params.Status)
		argIdx++
	}

	where := "WHERE " + strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM charges %s", where)
	var total int64
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count charges: %w", err)
	}

	dataQuery := fmt.Sprintf(`SELECT %s FROM charges %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		chargeColumns, where, argIdx, argIdx+1)
	args = append(args, params.Limit, params.Offset)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list charges: %w", err)
	}
	defer rows.Close()

	var charges []domain.Charge
	for rows.Next() {
		charge, err := scanChargeRow(rows)
		if err != nil {
			return nil, 0, err
		}
		charges = append(charges, *charge)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate charge rows: %w", err)
	}
	return charges, total, nil
}

// UpdateIfStatus writes mutable charge fields only while the stored row still
// carries the expected status.
func (r *ChargeRepo) UpdateIfStatus(ctx context.Context, charge *domain.Charge, expected domain.ChargeStatus) (bool, error) {
	query := `UPDATE charges SET amount_captured = $1, amount_refunded = $2, status = $3, updated_at = $4
		WHERE merchant_id = $5 AND id = $6 AND status = $7`

	tag, err := r.pool.Exec(ctx, query,
		charge.AmountCaptured, charge.AmountRefunded, charge.Status, charge.UpdatedAt,
		charge.MerchantID, charge.ID, expected,
	)
	if err != nil {
		return false, fmt.Errorf("update charge: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ApplyRefund adds amount to amount_refunded and derives the new status in a
// single guarded statement, so concurrent refunds can never overdraw the
// captured amount. Returns (nil, nil) when the guard rejects the increment.
func (r *ChargeRepo) ApplyRefund(ctx context.Context, chargeID uuid.UUID, amount int64) (*domain.Charge, error) {
	query := `UPDATE charges SET
			amount_refunded = amount_refunded + $1,
			status = CASE WHEN amount_refunded + $1 >= amount_captured THEN 'refunded' ELSE 'partially_refunded' END,
			updated_at = NOW()
		WHERE id = $2
			AND status IN ('captured', 'partially_refunded')
			AND amount_refunded + $1 <= amount_captured
		RETURNING ` + chargeColumns

	charge, err := scanCharge(r.pool.QueryRow(ctx, query, amount, chargeID))
	if err != nil {
		return nil, fmt.Errorf("apply refund: %w", err)
	}
	return charge, nil
}

func scanCharge(row pgx.Row) (*domain.Charge, error) {
	charge := &domain.Charge{}
	var processor []byte
	err := row.Scan(
		&charge.ID, &charge.MerchantID, &charge.PaymentIntentID,
		&charge.AmountAuthorized, &charge.AmountCaptured, &charge.AmountRefunded,
		&charge.Currency, &charge.Status, &charge.AcquirerName,
		&charge.AcquirerReference, &charge.AuthorizationCode, &charge.Network,
		&processor, &charge.CreatedAt, &charge.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan charge row: %w", err)
	}
	if len(processor) > 0 {
		charge.Processor = &domain.ProcessorResponse{}
		if err := json.Unmarshal(processor, charge.Processor); err != nil {
			return nil, fmt.Errorf("unmarshal processor response: %w", err)
		}
	}
	return charge, nil
}

func scanChargeRow(row pgx.Row) (*domain.Charge, error) {
	charge, err := scanCharge(row)
	if err != nil {
		return nil, err
	}
	if charge == nil {
		return nil, pgx.ErrNoRows
	}
	return charge, nil
}
