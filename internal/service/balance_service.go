package service

import (
	"context"
	"fmt"

	"payment-api-gateway/internal/core/domain"
	"payment-api-gateway/internal/core/ports"
	"payment-api-gateway/pkg/apperror"

	"github.com/google/uuid"
)

// BalanceServiceImpl implements ports.BalanceService over the ledger.
type BalanceServiceImpl struct {
	balanceRepo ports.BalanceRepository
}

// NewBalanceService creates a BalanceServiceImpl.
func NewBalanceService(balanceRepo ports.BalanceRepository) *BalanceServiceImpl {
	return &BalanceServiceImpl{balanceRepo: balanceRepo}
}

// Summary returns the merchant's per-currency net position.
func (s *BalanceServiceImpl) Summary(ctx context.Context, merchantID uuid.UUID) ([]domain.BalanceSummary, error) {
	summary, err := s.balanceRepo.Summary(ctx, merchantID)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("balance summary: %w", err))
	}
	return summary, nil
}

// GetTransaction fetches one ledger entry, merchant-scoped.
func (s *BalanceServiceImpl) GetTransaction(ctx context.Context, merchantID, id uuid.UUID) (*domain.BalanceTransaction, error) {
	tx, err := s.balanceRepo.GetTransaction(ctx, merchantID, id)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("get balance transaction: %w", err))
	}
	if tx == nil {
		return nil, apperror.ErrNotFound("balance_transaction")
	}
	return tx, nil
}

// ListTransactions returns ledger entries, newest first.
func (s *BalanceServiceImpl) ListTransactions(ctx context.Context, merchantID uuid.UUID, limit, offset int) ([]domain.BalanceTransaction, int64, error) {
	txs, total, err := s.balanceRepo.ListTransactions(ctx, merchantID, limit, offset)
	if err != nil {
		return nil, 0, apperror.Internal(fmt.Errorf("list balance transactions: %w", err))
	}
	return txs, total, nil
}
