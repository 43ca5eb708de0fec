package dto

import (
	"encoding/json"
	"fmt"

	"payment-api-gateway/internal/core/domain"

	"github.com/google/uuid"
)

// CreateIntentRequest is the request body for POST /payment_intents.
type CreateIntentRequest struct {
	Amount             int64             `json:"amount" binding:"required,gt=0"`
	Currency           string            `json:"currency" binding:"required,currency"`
	CaptureMethod      string            `json:"capture_method" binding:"omitempty,oneof=automatic manual"`
	ConfirmationMethod string            `json:"confirmation_method" binding:"omitempty,oneof=automatic manual"`
	CustomerID         *uuid.UUID        `json:"customer_id,omitempty"`
	Description        *string           `json:"description,omitempty" binding:"omitempty,max=500"`
	Metadata           map[string]string `json:"metadata,omitempty"`
}

// UpdateIntentRequest is the request body for PATCH /payment_intents/:id.
type UpdateIntentRequest struct {
	Amount      *int64            `json:"amount,omitempty" binding:"omitempty,gt=0"`
	Currency    *string           `json:"currency,omitempty" binding:"omitempty,currency"`
	Description *string           `json:"description,omitempty" binding:"omitempty,max=500"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// CardRequest carries full card details. It only ever lives in the request
// path; nothing downstream persists it.
type CardRequest struct {
	Number   string `json:"number" binding:"required,min=12,max=19"`
	ExpMonth int    `json:"exp_month" binding:"required,min=1,max=12"`
	ExpYear  int    `json:"exp_year" binding:"required,min=2000,max=2100"`
	CVC      string `json:"cvc" binding:"required,min=3,max=4"`
	Name     string `json:"name,omitempty"`
}

// Domain converts the request card into the domain type.
func (r *CardRequest) Domain() *domain.Card {
	return &domain.Card{
		Number:   r.Number,
		ExpMonth: r.ExpMonth,
		ExpYear:  r.ExpYear,
		CVC:      r.CVC,
		Name:     r.Name,
	}
}

// PaymentMethod is the polymorphic payment_method field on confirm: either a
// single-use token string ("tok_...") or an object with a card.
type PaymentMethod struct {
	Token string
	Card  *CardRequest
}

// UnmarshalJSON accepts either a JSON string (token) or an object holding a
// card.
func (p *PaymentMethod) UnmarshalJSON(data []byte) error {
	var token string
	if err := json.Unmarshal(data, &token); err == nil {
		p.Token = token
		return nil
	}

	var obj struct {
		Card *CardRequest `json:"card"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("payment_method must be a token string or an object with a card")
	}
	p.Card = obj.Card
	return nil
}

// BillingDetails is optional cardholder context on confirm.
type BillingDetails struct {
	Name    string          `json:"name,omitempty"`
	Email   string          `json:"email,omitempty" binding:"omitempty,email"`
	Phone   string          `json:"phone,omitempty"`
	Address *BillingAddress `json:"address,omitempty"`
}

// BillingAddress is the cardholder address block.
type BillingAddress struct {
	Line1      string `json:"line1,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	Country    string `json:"country,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
}

// ConfirmIntentRequest is the request body for POST /payment_intents/:id/confirm.
type ConfirmIntentRequest struct {
	PaymentMethod  PaymentMethod   `json:"payment_method" binding:"required"`
	BillingDetails *BillingDetails `json:"billing_details,omitempty"`
	ReturnURL      string          `json:"return_url,omitempty" binding:"omitempty,http_url"`
}

// CompleteAuthRequest is the 3DS return-leg body for
// POST /payment_intents/:id/complete_authentication.
type CompleteAuthRequest struct {
	PaRes         string `json:"pares,omitempty"`
	TransactionID string `json:"transaction_id,omitempty"`
	MD            string `json:"md,omitempty"`
}

// CaptureIntentRequest is the request body for POST /payment_intents/:id/capture.
type CaptureIntentRequest struct {
	AmountToCapture *int64 `json:"amount_to_capture,omitempty" binding:"omitempty,gt=0"`
}

// CreateRefundRequest is the request body for POST /refunds.
type CreateRefundRequest struct {
	ChargeID uuid.UUID         `json:"charge_id" binding:"required"`
	Amount   *int64            `json:"amount,omitempty" binding:"omitempty,gt=0"`
	Reason   *string           `json:"reason,omitempty" binding:"omitempty,max=500"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// CustomerRequest is the request body for customer create and update.
type CustomerRequest struct {
	Email    *string           `json:"email,omitempty" binding:"omitempty,email"`
	Name     *string           `json:"name,omitempty" binding:"omitempty,max=200"`
	Phone    *string           `json:"phone,omitempty" binding:"omitempty,max=50"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// CreateWebhookRequest is the request body for POST /webhooks.
type CreateWebhookRequest struct {
	URL    string   `json:"url" binding:"required"`
	Events []string `json:"events,omitempty"`
}

// TokenizeRequest is the request body for POST /tokens.
type TokenizeRequest struct {
	Card CardRequest `json:"card" binding:"required"`
}

// TokenResponse is the response for POST /tokens.
type TokenResponse struct {
	Object string                      `json:"object"` // always "token"
	Token  string                      `json:"token"`
	Card   domain.PaymentMethodSummary `json:"card"`
}

// NextAction tells the client how to continue a requires_action intent.
type NextAction struct {
	Type          string              `json:"type"` // "redirect_to_url"
	RedirectToURL *NextActionRedirect `json:"redirect_to_url,omitempty"`
}

// NextActionRedirect carries the issuer authentication redirect.
type NextActionRedirect struct {
	URL       string `json:"url"`
	ReturnURL string `json:"return_url,omitempty"`
}

// IntentResponse decorates a payment intent with the API object tag and, when
// authentication is pending, the next_action block.
type IntentResponse struct {
	*domain.PaymentIntent
	Object     string      `json:"object"` // always "payment_intent"
	NextAction *NextAction `json:"next_action,omitempty"`
}

// NewIntentResponse renders an intent; requires_action intents expose their
// redirect.
func NewIntentResponse(intent *domain.PaymentIntent, returnURL string) IntentResponse {
	resp := IntentResponse{PaymentIntent: intent, Object: "payment_intent"}
	if intent.Status == domain.IntentStatusRequiresAction && intent.ThreeDS != nil && intent.ThreeDS.RedirectURL != "" {
		resp.NextAction = &NextAction{
			Type: "redirect_to_url",
			RedirectToURL: &NextActionRedirect{
				URL:       intent.ThreeDS.RedirectURL,
				ReturnURL: returnURL,
			},
		}
	}
	return resp
}

// WebhookResponse renders a webhook endpoint. The signing secret is included
// only on creation.
type WebhookResponse struct {
	*domain.Webhook
	Object string `json:"object"` // always "webhook_endpoint"
	Secret string `json:"secret,omitempty"`
}
