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

const customerColumns = `id, merchant_id, email, name, phone, metadata, created_at, updated_at`

// CustomerRepo implements ports.CustomerRepository.
type CustomerRepo struct {
	pool Pool
}

// NewCustomerRepo creates a new CustomerRepo.
func NewCustomerRepo(pool Pool) *CustomerRepo {
	return &CustomerRepo{pool: pool}
}

// Create inserts a new customer.
func (r *CustomerRepo) Create(ctx context.Context, customer *domain.Customer) error {
	query := `INSERT INTO customers (` + customerColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	metadata, err := marshalMetadata(customer.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	_, err = r.pool.Exec(ctx, query,
		customer.ID, customer.MerchantID, customer.Email, customer.Name,
		customer.Phone, metadata, customer.CreatedAt, customer.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert customer: %w", err)
	}
	return nil
}

// GetByID fetches a customer scoped to one merchant.
func (r *CustomerRepo) GetByID(ctx context.Context, merchantID, id uuid.UUID) (*domain.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE merchant_id = $1 AND id = $2`
	return scanCustomer(r.pool.QueryRow(ctx, query, merchantID, id))
}

// Update writes the customer's mutable fields.
func (r *CustomerRepo) Update(ctx context.Context, customer *domain.Customer) error {
	query := `UPDATE customers SET email = $1, name = $2, phone = $3, metadata = $4, updated_at = $5
		WHERE merchant_id = $6 AND id = $7`

	metadata, err := marshalMetadata(customer.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	tag, err := r.pool.Exec(ctx, query,
		customer.Email, customer.Name, customer.Phone, metadata, customer.UpdatedAt,
		customer.MerchantID, customer.ID,
	)
	if err != nil {
		return fmt.Errorf("update customer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("customer not found: %s", customer.ID)
	}
	return nil
}

// Delete removes a customer, reporting whether a row existed.
func (r *CustomerRepo) Delete(ctx context.Context, merchantID, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM customers WHERE merchant_id = $1 AND id = $2`, merchantID, id)
	if err != nil {
		return false, fmt.Errorf("delete customer: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// List fetches the merchant's customers, newest first. A non-empty search
// query matches email, name and phone case-insensitively.
func (r *CustomerRepo) List(ctx context.Context, merchantID uuid.UUID, search string, limit, offset int) ([]domain.Customer, int64, error) {
	where := `WHERE merchant_id = $1`
	args := []any{merchantID}
	if search != "" {
		where += ` AND (email ILIKE $2 OR name ILIKE $2 OR phone ILIKE $2)`
		args = append(args, "%"+search+"%")
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM customers `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count customers: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM customers %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		customerColumns, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	var customers []domain.Customer
	for rows.Next() {
		customer, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, err
		}
		customers = append(customers, *customer)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate customer rows: %w", err)
	}
	return customers, total, nil
}

func scanCustomer(row pgx.Row) (*domain.Customer, error) {
	customer := &domain.Customer{}
	var metadata []byte
	err := row.Scan(
		&customer.ID, &customer.MerchantID, &customer.Email, &customer.Name,
		&customer.Phone, &metadata, &customer.CreatedAt, &customer.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan customer row: %w", err)
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &customer.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	return customer, nil
}
