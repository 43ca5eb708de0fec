package domain

import (
	"time"

	"github.com/google/uuid"
)

// IntentStatus represents the lifecycle state of a payment intent.
type IntentStatus string

const (
	IntentStatusRequiresPaymentMethod IntentStatus = "requires_payment_method"
	IntentStatusRequiresAction        IntentStatus = "requires_action"
	IntentStatusProcessing            IntentStatus = "processing"
	IntentStatusSucceeded             IntentStatus = "succeeded"
	IntentStatusCanceled              IntentStatus = "canceled"
	IntentStatusFailed                IntentStatus = "failed"
)

// CaptureMethod controls whether an authorization is captured immediately.
type CaptureMethod string

const (
	CaptureAutomatic CaptureMethod = "automatic"
	CaptureManual    CaptureMethod = "manual"
)

// ConfirmationMethod controls who triggers confirmation.
type ConfirmationMethod string

const (
	ConfirmationAutomatic ConfirmationMethod = "automatic"
	ConfirmationManual    ConfirmationMethod = "manual"
)

// PaymentMethodSummary is the at-rest, display-only view of a card. It can
// never carry a PAN or CVV; the repository write path only accepts this type.
type PaymentMethodSummary struct {
	Type     string  `json:"type"` // "card"
	Brand    string  `json:"brand,omitempty"`
	Network  string  `json:"network,omitempty"`
	Last4    string  `json:"last4"`
	ExpMonth int     `json:"exp_month"`
	ExpYear  int     `json:"exp_year"`
	TokenRef *string `json:"token_ref,omitempty"` // opaque vault reference, if tokenized
}

// SelectedRoute is the acquirer route resolved for an intent, persisted after
// the first adapter call so retries and 3DS continuation hit the same acquirer.
type SelectedRoute struct {
	Adapter     string            `json:"adapter"`
	MerchantRef string            `json:"merchant_ref,omitempty"` // merchant id at the acquirer
	Config      map[string]string `json:"config,omitempty"`
}

// ThreeDSState holds the continuation data stored while an intent waits on
// issuer authentication.
type ThreeDSState struct {
	Flow              string            `json:"flow,omitempty"` // "redirect" or "challenge"
	RedirectURL       string            `json:"redirect_url,omitempty"`
	MethodURL         string            `json:"method_url,omitempty"`
	AcquirerReference string            `json:"acquirer_reference,omitempty"`
	Data              map[string]string `json:"data,omitempty"`
}

// PaymentIntent is the merchant-scoped orchestration record for one logical
// payment.
type PaymentIntent struct {
	ID                 uuid.UUID             `json:"id"`
	MerchantID         uuid.UUID             `json:"-"`
	CustomerID         *uuid.UUID            `json:"customer_id,omitempty"`
	Amount             int64                 `json:"amount"` // ISO-4217 minor units
	Currency           string                `json:"currency"`
	CaptureMethod      CaptureMethod         `json:"capture_method"`
	ConfirmationMethod ConfirmationMethod    `json:"confirmation_method"`
	Status             IntentStatus          `json:"status"`
	PaymentMethod      *PaymentMethodSummary `json:"payment_method,omitempty"`
	Routing            *SelectedRoute        `json:"-"`
	ThreeDS            *ThreeDSState         `json:"-"`
	Description        *string               `json:"description,omitempty"`
	Metadata           map[string]string     `json:"metadata,omitempty"`
	CreatedAt          time.Time             `json:"created_at"`
	UpdatedAt          time.Time             `json:"updated_at"`
}

// IsTerminal reports whether the intent accepts no further non-refund mutations.
func (p *PaymentIntent) IsTerminal() bool {
	return p.Status == IntentStatusSucceeded || p.Status == IntentStatusCanceled
}

// CanConfirm reports whether a confirm call is valid from the current state.
func (p *PaymentIntent) CanConfirm() bool {
	return p.Status == IntentStatusRequiresPaymentMethod
}

// CanCancel reports whether the intent may still be canceled.
func (p *PaymentIntent) CanCancel() bool {
	return p.Status != IntentStatusSucceeded && p.Status != IntentStatusCanceled
}

// CanUpdate reports whether PATCH mutations are allowed.
func (p *PaymentIntent) CanUpdate() bool {
	return !p.IsTerminal() && p.Status != IntentStatusFailed
}
