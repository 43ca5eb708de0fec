// Package acquirer defines the canonical contract between the payment
// orchestrator and acquirer integrations, plus the process-wide registry
// adapters register into at startup.
package acquirer

import (
	"context"
	"encoding/json"
	"net/http"
)

// Outcome is the normalised verdict of an acquirer operation.
type Outcome string

const (
	// Authorize outcomes.
	OutcomeAuthorized     Outcome = "authorized"
	OutcomeRequiresAction Outcome = "requires_action"
	// Capture/refund/void outcomes.
	OutcomeSucceeded Outcome = "succeeded"
	OutcomePending   Outcome = "pending"
	// Shared failure outcome.
	OutcomeFailed Outcome = "failed"
)

// ProcessorResponse carries the acquirer's raw verdict codes.
type ProcessorResponse struct {
	Code    string
	Message string
	AVS     string
	CVV     string
}

// CardInput is the payment method handed to an adapter. Number and CVV are
// present only for direct processing and never leave process memory.
type CardInput struct {
	Number   string
	CVV      string
	ExpMonth int
	ExpYear  int
	Network  string
	Brand    string
	Last4    string
}

// CustomerInput is the optional buyer attached to an authorization.
type CustomerInput struct {
	ID    string
	Email string
	Name  string
}

// BillingAddress is the optional billing address attached to an authorization.
type BillingAddress struct {
	Line1      string
	Line2      string
	City       string
	State      string
	PostalCode string
	Country    string
}

// Route identifies which adapter handles an operation and the merchant's
// account there.
type Route struct {
	Adapter     string
	MerchantRef string
	Config      map[string]string
}

// ThreeDSHints carries authentication results supplied by an upstream 3DS
// provider, forwarded to the acquirer with the authorization.
type ThreeDSHints struct {
	CAVV string
	ECI  string
	XID  string
}

// ThreeDSAction is the continuation data returned when an issuer demands
// authentication.
type ThreeDSAction struct {
	Flow        string
	RedirectURL string
	MethodURL   string
	Data        map[string]string
}

// AuthorizeInput is the canonical authorization request.
type AuthorizeInput struct {
	RequestID           string
	MerchantID          string
	PaymentIntentID     string
	Amount              int64 // minor units
	Currency            string
	Card                CardInput
	Customer            *CustomerInput
	Billing             *BillingAddress
	ThreeDS             *ThreeDSHints
	Route               Route
	StatementDescriptor string
	Metadata            map[string]string
}

// AuthorizeOutput is the canonical authorization result. The populated
// fields depend on Outcome as described on each field.
type AuthorizeOutput struct {
	Outcome           Outcome
	AmountAuthorized  int64  // authorized only
	AcquirerReference string // authorized, requires_action
	AuthorizationCode string // authorized only
	Network           string
	Processor         ProcessorResponse
	ThreeDS           *ThreeDSAction // requires_action only
	Raw               json.RawMessage
}

// CaptureInput is the canonical capture request.
type CaptureInput struct {
	RequestID         string
	AcquirerReference string
	Amount            int64
	Currency          string
	Route             Route
}

// CaptureOutput is the canonical capture result.
type CaptureOutput struct {
	Outcome           Outcome
	AcquirerReference string
	Processor         ProcessorResponse
	Raw               json.RawMessage
}

// RefundInput is the canonical refund request.
type RefundInput struct {
	RequestID         string
	AcquirerReference string
	Amount            int64
	Currency          string
	Route             Route
}

// RefundOutput is the canonical refund result.
type RefundOutput struct {
	Outcome           Outcome
	AcquirerReference string
	Processor         ProcessorResponse
	Raw               json.RawMessage
}

// VoidInput is the canonical authorization-reversal request.
type VoidInput struct {
	RequestID         string
	AcquirerReference string
	Route             Route
}

// VoidOutput is the canonical authorization-reversal result.
type VoidOutput struct {
	Outcome           Outcome
	AcquirerReference string
	Processor         ProcessorResponse
	Raw               json.RawMessage
}

// ContinueInput is the 3DS return-leg request.
type ContinueInput struct {
	RequestID         string
	AcquirerReference string
	PaRes             string
	TransactionID     string
	MD                string
	Amount            int64
	Currency          string
	Route             Route
}

// CanonicalEvent is a normalised acquirer-originated notification.
type CanonicalEvent struct {
	Type              string
	AcquirerReference string
	Raw               json.RawMessage
}

// Adapter is the mandatory capability set every acquirer integration
// implements.
type Adapter interface {
	Name() string
	Authorize(ctx context.Context, in AuthorizeInput) (*AuthorizeOutput, error)
	Capture(ctx context.Context, in CaptureInput) (*CaptureOutput, error)
	Refund(ctx context.Context, in RefundInput) (*RefundOutput, error)
}

// Voider is implemented by adapters that can reverse an authorization.
type Voider interface {
	Void(ctx context.Context, in VoidInput) (*VoidOutput, error)
}

// ThreeDSAuthorizer is implemented by adapters supporting deferred 3DS
// authorization.
type ThreeDSAuthorizer interface {
	AuthorizeWith3DS(ctx context.Context, in ContinueInput) (*AuthorizeOutput, error)
}

// WebhookHandler is implemented by adapters that can parse acquirer
// notifications.
type WebhookHandler interface {
	HandleWebhook(ctx context.Context, body []byte, headers http.Header) ([]CanonicalEvent, error)
}
