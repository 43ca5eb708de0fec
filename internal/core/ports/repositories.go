package ports

import (
	"context"
	"time"

	"payment-api-gateway/internal/core/domain"

	"github.com/google/uuid"
)

// Repositories return (nil, nil) when the requested row does not exist;
// callers translate that into their own not-found errors.

// PaymentIntentRepository defines persistence for payment intents.
type PaymentIntentRepository interface {
	Create(ctx context.Context, intent *domain.PaymentIntent) error
	GetByID(ctx context.Context, merchantID, id uuid.UUID) (*domain.PaymentIntent, error)
	List(ctx context.Context, params IntentListParams) ([]domain.PaymentIntent, int64, error)
	Update(ctx context.Context, intent *domain.PaymentIntent) error
	// UpdateIfStatus writes the intent only while the stored row still has the
	// expected status. Returns false when another writer got there first.
	UpdateIfStatus(ctx context.Context, intent *domain.PaymentIntent, expected domain.IntentStatus) (bool, error)
}

// IntentListParams holds filter + pagination for listing payment intents.
type IntentListParams struct {
	MerchantID uuid.UUID
	CustomerID *uuid.UUID
	Status     *domain.IntentStatus
	Limit      int
	Offset     int
}

// ChargeRepository defines persistence for charges.
type ChargeRepository interface {
	Create(ctx context.Context, charge *domain.Charge) error
	GetByID(ctx context.Context, merchantID, id uuid.UUID) (*domain.Charge, error)
	GetByIntentID(ctx context.Context, intentID uuid.UUID) (*domain.Charge, error)
	List(ctx context.Context, params ChargeListParams) ([]domain.Charge, int64, error)
	// UpdateIfStatus writes the charge only while the stored row still has the
	// expected status. Returns false when another writer got there first.
	UpdateIfStatus(ctx context.Context, charge *domain.Charge, expected domain.ChargeStatus) (bool, error)
	// ApplyRefund atomically adds amount to amount_refunded and flips the
	// status to refunded or partially_refunded in one statement. Returns
	// (nil, nil) when the increment would exceed the captured amount.
	ApplyRefund(ctx context.Context, chargeID uuid.UUID, amount int64) (*domain.Charge, error)
}

// ChargeListParams holds filter + pagination for listing charges.
type ChargeListParams struct {
	MerchantID      uuid.UUID
	PaymentIntentID *uuid.UUID
	Status          *domain.ChargeStatus
	Limit           int
	Offset          int
}

// RefundRepository defines persistence for refunds.
type RefundRepository interface {
	Create(ctx context.Context, refund *domain.Refund) error
	GetByID(ctx context.Context, merchantID, id uuid.UUID) (*domain.Refund, error)
	ListByCharge(ctx context.Context, chargeID uuid.UUID) ([]domain.Refund, error)
	List(ctx context.Context, params RefundListParams) ([]domain.Refund, int64, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.RefundStatus, acquirerRef *string) error
}

// RefundListParams holds filter + pagination for listing refunds.
type RefundListParams struct {
	MerchantID uuid.UUID
	ChargeID   *uuid.UUID
	Limit      int
	Offset     int
}

// MerchantRepository defines read access to merchant records.
type MerchantRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Merchant, error)
}

// APIKeyRepository defines lookup for API keys. Secret keys are looked up by
// their SHA-256 hex digest, public keys by verbatim value.
type APIKeyRepository interface {
	GetByValue(ctx context.Context, value string) (*domain.APIKey, error)
	Touch(ctx context.Context, id uuid.UUID, at time.Time) error
}

// CustomerRepository defines persistence for customers.
type CustomerRepository interface {
	Create(ctx context.Context, customer *domain.Customer) error
	GetByID(ctx context.Context, merchantID, id uuid.UUID) (*domain.Customer, error)
	Update(ctx context.Context, customer *domain.Customer) error
	Delete(ctx context.Context, merchantID, id uuid.UUID) (bool, error)
	// List returns the merchant's customers, newest first. A non-empty query
	// matches against email, name and phone.
	List(ctx context.Context, merchantID uuid.UUID, query string, limit, offset int) ([]domain.Customer, int64, error)
}

// WebhookRepository defines persistence for webhook endpoints.
type WebhookRepository interface {
	Create(ctx context.Context, webhook *domain.Webhook) error
	GetByID(ctx context.Context, merchantID, id uuid.UUID) (*domain.Webhook, error)
	ListByMerchant(ctx context.Context, merchantID uuid.UUID) ([]domain.Webhook, error)
	ListActive(ctx context.Context, merchantID uuid.UUID) ([]domain.Webhook, error)
	Delete(ctx context.Context, merchantID, id uuid.UUID) (bool, error)
}

// WebhookDeliveryRepository defines persistence for the delivery queue.
type WebhookDeliveryRepository interface {
	CreateBatch(ctx context.Context, deliveries []*domain.WebhookDelivery) error
	// Due returns undelivered, unexhausted deliveries whose next_retry_at has
	// passed, oldest first, capped at limit.
	Due(ctx context.Context, now time.Time, limit int) ([]domain.WebhookDelivery, error)
	Update(ctx context.Context, delivery *domain.WebhookDelivery) error
}

// BalanceRepository defines the merchant ledger.
type BalanceRepository interface {
	CreateTransaction(ctx context.Context, tx *domain.BalanceTransaction) error
	GetTransaction(ctx context.Context, merchantID, id uuid.UUID) (*domain.BalanceTransaction, error)
	Summary(ctx context.Context, merchantID uuid.UUID) ([]domain.BalanceSummary, error)
	ListTransactions(ctx context.Context, merchantID uuid.UUID, limit, offset int) ([]domain.BalanceTransaction, int64, error)
}

// AccessLogRepository defines persistence for request audit records.
type AccessLogRepository interface {
	Create(ctx context.Context, entry *domain.AccessLog) error
}
