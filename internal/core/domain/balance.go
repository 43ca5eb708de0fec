package domain

import (
	"time"

	"github.com/google/uuid"
)

// BalanceTransactionType classifies a ledger entry.
type BalanceTransactionType string

const (
	BalanceTxCharge BalanceTransactionType = "charge"
	BalanceTxRefund BalanceTransactionType = "refund"
)

// BalanceTransaction is one immutable ledger entry. Captures post positive
// amounts, refunds negative.
type BalanceTransaction struct {
	ID         uuid.UUID              `json:"id"`
	MerchantID uuid.UUID              `json:"-"`
	Type       BalanceTransactionType `json:"type"`
	SourceID   uuid.UUID              `json:"source_id"` // charge or refund id
	Amount     int64                  `json:"amount"`
	Currency   string                 `json:"currency"`
	CreatedAt  time.Time              `json:"created_at"`
}

// BalanceSummary is the per-currency net position of a merchant.
type BalanceSummary struct {
	Currency string `json:"currency"`
	Amount   int64  `json:"amount"`
}
