package postgres

import (
	"context"
	"errors"
	"fmt"

	"payment-api-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// BalanceRepo implements ports.BalanceRepository. The ledger is append-only;
// the summary is derived by aggregation.
type BalanceRepo struct {
	pool Pool
}

// NewBalanceRepo creates a new BalanceRepo.
func NewBalanceRepo(pool Pool) *BalanceRepo {
	return &BalanceRepo{pool: pool}
}

// CreateTransaction appends one ledger entry.
func (r *BalanceRepo) CreateTransaction(ctx context.Context, tx *domain.BalanceTransaction) error {
	query := `INSERT INTO balance_transactions (id, merchant_id, type, source_id, amount, currency, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		tx.ID, tx.MerchantID, tx.Type, tx.SourceID, tx.Amount, tx.Currency, tx.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert balance transaction: %w", err)
	}
	return nil
}

// GetTransaction fetches one ledger entry scoped to a merchant.
func (r *BalanceRepo) GetTransaction(ctx context.Context, merchantID, id uuid.UUID) (*domain.BalanceTransaction, error) {
	query := `SELECT id, merchant_id, type, source_id, amount, currency, created_at
		FROM balance_transactions WHERE merchant_id = $1 AND id = $2`

	tx := &domain.BalanceTransaction{}
	err := r.pool.QueryRow(ctx, query, merchantID, id).Scan(
		&tx.ID, &tx.MerchantID, &tx.Type, &tx.SourceID, &tx.Amount, &tx.Currency, &tx.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get balance transaction: %w", err)
	}
	return tx, nil
}

// Summary returns the merchant's net balance per currency.
func (r *BalanceRepo) Summary(ctx context.Context, merchantID uuid.UUID) ([]domain.BalanceSummary, error) {
	query := `SELECT currency, COALESCE(SUM(amount), 0) FROM balance_transactions
		WHERE merchant_id = $1 GROUP BY currency ORDER BY currency`

	rows, err := r.pool.Query(ctx, query, merchantID)
	if err != nil {
		return nil, fmt.Errorf("summarize balance: %w", err)
	}
	defer rows.Close()

	var summary []domain.BalanceSummary
	for rows.Next() {
		s := domain.BalanceSummary{}
		if err := rows.Scan(&s.Currency, &s.Amount); err != nil {
			return nil, fmt.Errorf("scan balance summary row: %w", err)
		}
		summary = append(summary, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate balance summary rows: %w", err)
	}
	return summary, nil
}

// ListTransactions returns ledger entries, newest first.
func (r *BalanceRepo) ListTransactions(ctx context.Context, merchantID uuid.UUID, limit, offset int) ([]domain.BalanceTransaction, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM balance_transactions WHERE merchant_id = $1`, merchantID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count balance transactions: %w", err)
	}

	query := `SELECT id, merchant_id, type, source_id, amount, currency, created_at
		FROM balance_transactions WHERE merchant_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, merchantID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list balance transactions: %w", err)
	}
	defer rows.Close()

	var txs []domain.BalanceTransaction
	for rows.Next() {
		tx := domain.BalanceTransaction{}
		if err := rows.Scan(&tx.ID, &tx.MerchantID, &tx.Type, &tx.SourceID, &tx.Amount, &tx.Currency, &tx.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan balance transaction row: %w", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate balance transaction rows: %w", err)
	}
	return txs, total, nil
}
