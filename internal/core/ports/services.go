package ports

import (
	"context"
	"time"

	"payment-api-gateway/internal/core/domain"

	"github.com/google/uuid"
)

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// Crypto abstracts randomness and digests so services stay deterministic
// under test.
type Crypto interface {
	// RandomToken returns prefix followed by n random bytes encoded URL-safe
	// without padding.
	RandomToken(prefix string, n int) (string, error)
	// SHA256Hex returns the lowercase hex SHA-256 digest of data.
	SHA256Hex(data []byte) string
	// SignHMAC returns the lowercase hex HMAC-SHA256 of payload under secret.
	SignHMAC(secret string, payload []byte) string
}

// --- Key-value stores (Redis-backed, with Postgres fallbacks) ---

// RateLimitStore counts requests inside a fixed window.
type RateLimitStore interface {
	// Incr bumps the counter for key in the current window and returns the
	// new count plus the time until the window resets.
	Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// IdempotencyStore persists request outcomes keyed by idempotency scope.
type IdempotencyStore interface {
	Get(ctx context.Context, scope string) (*domain.IdempotencyRecord, error)
	// PutInFlight claims the scope atomically. Returns false when another
	// request already holds it.
	PutInFlight(ctx context.Context, record *domain.IdempotencyRecord, ttl time.Duration) (bool, error)
	// Complete stores the final response against an in-flight record.
	Complete(ctx context.Context, record *domain.IdempotencyRecord, ttl time.Duration) error
	// Release drops an in-flight claim after a handler panic or 5xx so the
	// client can retry.
	Release(ctx context.Context, scope string) error
}

// CardTokenVault holds full card details for a short window between
// tokenization and confirmation. Contents are sealed at rest.
type CardTokenVault interface {
	Put(ctx context.Context, merchantID uuid.UUID, token string, card *domain.Card, ttl time.Duration) error
	Get(ctx context.Context, merchantID uuid.UUID, token string) (*domain.Card, error)
	Delete(ctx context.Context, merchantID uuid.UUID, token string) error
}

// --- Service ports (business logic) ---

// Router resolves which acquirer handles a payment intent.
type Router interface {
	PickRoute(ctx context.Context, merchant *domain.Merchant, intent *domain.PaymentIntent) (*domain.SelectedRoute, error)
}

// PaymentOrchestrator drives the payment intent state machine.
type PaymentOrchestrator interface {
	CreateIntent(ctx context.Context, params CreateIntentParams) (*domain.PaymentIntent, error)
	GetIntent(ctx context.Context, merchantID, id uuid.UUID) (*domain.PaymentIntent, error)
	ListIntents(ctx context.Context, params IntentListParams) ([]domain.PaymentIntent, int64, error)
	UpdateIntent(ctx context.Context, params UpdateIntentParams) (*domain.PaymentIntent, error)
	Confirm(ctx context.Context, params ConfirmParams) (*domain.PaymentIntent, error)
	CompleteAuthentication(ctx context.Context, params CompleteAuthParams) (*domain.PaymentIntent, error)
	Capture(ctx context.Context, params CaptureParams) (*domain.PaymentIntent, error)
	Cancel(ctx context.Context, merchantID, id uuid.UUID) (*domain.PaymentIntent, error)

	CreateRefund(ctx context.Context, params RefundParams) (*domain.Refund, error)
	GetRefund(ctx context.Context, merchantID, id uuid.UUID) (*domain.Refund, error)
	ListRefunds(ctx context.Context, params RefundListParams) ([]domain.Refund, int64, error)

	GetCharge(ctx context.Context, merchantID, id uuid.UUID) (*domain.Charge, error)
	ListCharges(ctx context.Context, params ChargeListParams) ([]domain.Charge, int64, error)
}

// CreateIntentParams holds validated input for creating a payment intent.
type CreateIntentParams struct {
	MerchantID         uuid.UUID
	Amount             int64
	Currency           string
	CaptureMethod      domain.CaptureMethod
	ConfirmationMethod domain.ConfirmationMethod
	CustomerID         *uuid.UUID
	Description        *string
	Metadata           map[string]string
}

// UpdateIntentParams holds validated input for PATCHing an intent.
type UpdateIntentParams struct {
	MerchantID  uuid.UUID
	IntentID    uuid.UUID
	Amount      *int64
	Currency    *string
	Description *string
	Metadata    map[string]string
}

// ConfirmParams holds validated input for confirming an intent. Exactly one
// of Card or Token is set.
type ConfirmParams struct {
	MerchantID uuid.UUID
	IntentID   uuid.UUID
	Card       *domain.Card
	Token      string
	Billing    *BillingDetails
	ReturnURL  string
}

// BillingDetails is optional cardholder context forwarded to the acquirer.
type BillingDetails struct {
	Name    string
	Email   string
	Phone   string
	Address *BillingAddress
}

// BillingAddress is the cardholder address block.
type BillingAddress struct {
	Line1      string
	City       string
	State      string
	Country    string
	PostalCode string
}

// CompleteAuthParams holds the 3DS return-leg input posted back by the ACS.
type CompleteAuthParams struct {
	MerchantID    uuid.UUID
	IntentID      uuid.UUID
	PaRes         string
	TransactionID string
	MD            string
}

// CaptureParams holds validated input for capturing an authorized intent.
type CaptureParams struct {
	MerchantID uuid.UUID
	IntentID   uuid.UUID
	Amount     *int64 // nil = full authorized amount
}

// RefundParams holds validated input for refunding a charge.
type RefundParams struct {
	MerchantID uuid.UUID
	ChargeID   uuid.UUID
	Amount     *int64 // nil = remaining captured amount
	Reason     *string
	Metadata   map[string]string
}

// EventEmitter records an event and fans it out to subscribed webhooks.
// Emission is best-effort; failures are logged, never surfaced to the caller.
type EventEmitter interface {
	Emit(ctx context.Context, merchantID uuid.UUID, eventType string, object any)
}

// CardTokenService issues single-use card tokens backed by the vault.
type CardTokenService interface {
	Tokenize(ctx context.Context, merchantID uuid.UUID, card *domain.Card) (string, domain.PaymentMethodSummary, error)
	// Redeem returns the card for a token and consumes it.
	Redeem(ctx context.Context, merchantID uuid.UUID, token string) (*domain.Card, error)
}

// CustomerService defines customer CRUD.
type CustomerService interface {
	Create(ctx context.Context, customer *domain.Customer) (*domain.Customer, error)
	Get(ctx context.Context, merchantID, id uuid.UUID) (*domain.Customer, error)
	Update(ctx context.Context, customer *domain.Customer) (*domain.Customer, error)
	Delete(ctx context.Context, merchantID, id uuid.UUID) error
	List(ctx context.Context, merchantID uuid.UUID, query string, limit, offset int) ([]domain.Customer, int64, error)
}

// WebhookService defines webhook endpoint management.
type WebhookService interface {
	Create(ctx context.Context, merchantID uuid.UUID, url string, events []string) (*domain.Webhook, error)
	Get(ctx context.Context, merchantID, id uuid.UUID) (*domain.Webhook, error)
	List(ctx context.Context, merchantID uuid.UUID) ([]domain.Webhook, error)
	Delete(ctx context.Context, merchantID, id uuid.UUID) error
}

// BalanceService exposes the merchant ledger.
type BalanceService interface {
	Summary(ctx context.Context, merchantID uuid.UUID) ([]domain.BalanceSummary, error)
	GetTransaction(ctx context.Context, merchantID, id uuid.UUID) (*domain.BalanceTransaction, error)
	ListTransactions(ctx context.Context, merchantID uuid.UUID, limit, offset int) ([]domain.BalanceTransaction, int64, error)
}

// AccessLogService records request audit entries off the hot path.
type AccessLogService interface {
	Record(entry *domain.AccessLog)
}
