package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ChargeStatus represents the lifecycle state of a charge.
type ChargeStatus string

const (
	ChargeStatusAuthorized        ChargeStatus = "authorized"
	ChargeStatusCaptured          ChargeStatus = "captured"
	ChargeStatusPartiallyRefunded ChargeStatus = "partially_refunded"
	ChargeStatusRefunded          ChargeStatus = "refunded"
	ChargeStatusVoided            ChargeStatus = "voided"
	ChargeStatusFailed            ChargeStatus = "failed"
)

// ProcessorResponse is the normalised acquirer verdict attached to a charge.
type ProcessorResponse struct {
	Code    string          `json:"code,omitempty"`
	Message string          `json:"message,omitempty"`
	AVS     string          `json:"avs,omitempty"`
	CVC     string          `json:"cvc,omitempty"`
	Raw     json.RawMessage `json:"-"` // vendor blob, stored but never echoed
}

// Charge is the canonical record of a single authorize/capture attempt
// against a payment intent.
type Charge struct {
	ID                uuid.UUID          `json:"id"`
	MerchantID        uuid.UUID          `json:"-"`
	PaymentIntentID   uuid.UUID          `json:"payment_intent_id"`
	AmountAuthorized  int64              `json:"amount_authorized"`
	AmountCaptured    int64              `json:"amount_captured"`
	AmountRefunded    int64              `json:"amount_refunded"`
	Currency          string             `json:"currency"`
	Status            ChargeStatus       `json:"status"`
	AcquirerName      string             `json:"acquirer_name"`
	AcquirerReference *string            `json:"acquirer_reference,omitempty"`
	AuthorizationCode *string            `json:"authorization_code,omitempty"`
	Network           *string            `json:"network,omitempty"`
	Processor         *ProcessorResponse `json:"processor_response,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// Refundable returns how much of the captured amount is still refundable.
func (c *Charge) Refundable() int64 {
	return c.AmountCaptured - c.AmountRefunded
}

// CanCapture reports whether an explicit capture is valid.
func (c *Charge) CanCapture() bool {
	return c.Status == ChargeStatusAuthorized
}

// CanRefund reports whether a refund may be issued against this charge.
func (c *Charge) CanRefund() bool {
	return c.Status == ChargeStatusCaptured || c.Status == ChargeStatusPartiallyRefunded
}

// CanVoid reports whether the authorization may still be reversed.
func (c *Charge) CanVoid() bool {
	return c.Status == ChargeStatusAuthorized
}
