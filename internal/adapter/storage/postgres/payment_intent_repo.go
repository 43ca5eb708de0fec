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

const intentColumns = `id, merchant_id, customer_id, amount, currency, capture_method, confirmation_method,
	status, payment_method, routing, three_ds, description, metadata, created_at, updated_at`

// PaymentIntentRepo implements ports.PaymentIntentRepository.
type PaymentIntentRepo struct {
	pool Pool
}

// NewPaymentIntentRepo creates a new PaymentIntentRepo.
func NewPaymentIntentRepo(pool Pool) *PaymentIntentRepo {
	return &PaymentIntentRepo{pool: pool}
}

// Create inserts a new payment intent.
func (r *PaymentIntentRepo) Create(ctx context.Context, intent *domain.PaymentIntent) error {
	query := `INSERT INTO payment_intents (` + intentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	paymentMethod, routing, threeDS, metadata, err := marshalIntentJSON(intent)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, query,
		intent.ID, intent.MerchantID, intent.CustomerID,
		intent.Amount, intent.Currency, intent.CaptureMethod, intent.ConfirmationMethod,
		intent.Status, paymentMethod, routing, threeDS,
		intent.Description, metadata, intent.CreatedAt, intent.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payment intent: %w", err)
	}
	return nil
}

// GetByID fetches a payment intent scoped to one merchant.
func (r *PaymentIntentRepo) GetByID(ctx context.Context, merchantID, id uuid.UUID) (*domain.PaymentIntent, error) {
	query := `SELECT ` + intentColumns + ` FROM payment_intents WHERE merchant_id = $1 AND id = $2`
	return scanIntent(r.pool.QueryRow(ctx, query, merchantID, id))
}

// List fetches payment intents with filtering and pagination, newest first.
func (r *PaymentIntentRepo) List(ctx context.Context, params ports.IntentListParams) ([]domain.PaymentIntent, int64, error) {
	var conditions []string
	var args []any
	argIdx := 1

	conditions = append(conditions, fmt.Sprintf("merchant_id = $%d", argIdx))
	args = append(args, params.MerchantID)
	argIdx++

	if params.CustomerID != nil {
		conditions = append(conditions, fmt.Sprintf("customer_id = $%d", argIdx))
		args = append(args, *params.CustomerID)
		argIdx++
	}
	if params.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *params.Status)
		argIdx++
	}

	where := "WHERE " + strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM payment_intents %s", where)
	var total int64
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count payment intents: %w", err)
	}

	dataQuery := fmt.Sprintf(`SELECT %s FROM payment_intents %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		intentColumns, where, argIdx, argIdx+1)
	args = append(args, params.Limit, params.Offset)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list payment intents: %w", err)
	}
	defer rows.Close()

	var intents []domain.PaymentIntent
	for rows.Next() {
		intent, err := scanIntentRow(rows)
		if err != nil {
			return nil, 0, err
		}
		intents = append(intents, *intent)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate payment intent rows: %w", err)
	}
	return intents, total, nil
}

// Update writes the full intent row unconditionally.
func (r *PaymentIntentRepo) Update(ctx context.Context, intent *domain.PaymentIntent) error {
	tag, err := r.exec(ctx, intent, "")
	if err != nil {
		return err
	}
	if tag == 0 {
		return fmt.Errorf("payment intent not found: %s", intent.ID)
	}
	return nil
}

// UpdateIfStatus writes the intent only while the stored row still carries
// the expected status, serialising concurrent state transitions.
func (r *PaymentIntentRepo) UpdateIfStatus(ctx context.Context, intent *domain.PaymentIntent, expected domain.IntentStatus) (bool, error) {
	tag, err := r.exec(ctx, intent, expected)
	if err != nil {
		return false, err
	}
	return tag > 0, nil
}

func (r *PaymentIntentRepo) exec(ctx context.Context, intent *domain.PaymentIntent, expected domain.IntentStatus) (int64, error) {
	paymentMethod, routing, threeDS, metadata, err := marshalIntentJSON(intent)
	if err != nil {
		return 0, err
	}

	query := `UPDATE payment_intents SET amount = $1, currency = $2, status = $3, payment_method = $4,
		routing = $5, three_ds = $6, description = $7, metadata = $8, updated_at = $9
		WHERE merchant_id = $10 AND id = $11`
	args := []any{
		intent.Amount, intent.Currency, intent.Status, paymentMethod,
		routing, threeDS, intent.Description, metadata, intent.UpdatedAt,
		intent.MerchantID, intent.ID,
	}
	if expected != "" {
		query += " AND status = $12"
		args = append(args, expected)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("update payment intent: %w", err)
	}
	return tag.RowsAffected(), nil
}

func marshalIntentJSON(intent *domain.PaymentIntent) (paymentMethod, routing, threeDS, metadata []byte, err error) {
	if paymentMethod, err = marshalNullable(intent.PaymentMethod); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal payment method: %w", err)
	}
	if routing, err = marshalNullable(intent.Routing); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal routing: %w", err)
	}
	if threeDS, err = marshalNullable(intent.ThreeDS); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal 3ds state: %w", err)
	}
	if metadata, err = marshalMetadata(intent.Metadata); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal metadata: %w", err)
	}
	return paymentMethod, routing, threeDS, metadata, nil
}

func scanIntent(row pgx.Row) (*domain.PaymentIntent, error) {
	intent, err := scanIntentRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return intent, nil
}

func scanIntentRow(row pgx.Row) (*domain.PaymentIntent, error) {
	intent := &domain.PaymentIntent{}
	var paymentMethod, routing, threeDS, metadata []byte
	err := row.Scan(
		&intent.ID, &intent.MerchantID, &intent.CustomerID,
		&intent.Amount, &intent.Currency, &intent.CaptureMethod, &intent.ConfirmationMethod,
		&intent.Status, &paymentMethod, &routing, &threeDS,
		&intent.Description, &metadata, &intent.CreatedAt, &intent.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan payment intent row: %w", err)
	}

	if err := unmarshalNullable(paymentMethod, &intent.PaymentMethod); err != nil {
		return nil, fmt.Errorf("unmarshal payment method: %w", err)
	}
	if err := unmarshalNullable(routing, &intent.Routing); err != nil {
		return nil, fmt.Errorf("unmarshal routing: %w", err)
	}
	if err := unmarshalNullable(threeDS, &intent.ThreeDS); err != nil {
		return nil, fmt.Errorf("unmarshal 3ds state: %w", err)
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &intent.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	return intent, nil
}

// marshalNullable renders a possibly-nil pointer as SQL NULL instead of the
// JSON literal "null".
func marshalNullable[T any](v *T) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func marshalMetadata(m map[string]string) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func unmarshalNullable[T any](raw []byte, dst **T) error {
	if len(raw) == 0 {
		return nil
	}
	v := new(T)
	if err := json.Unmarshal(raw, v); err != nil {
		return err
	}
	*dst = v
	return nil
}
