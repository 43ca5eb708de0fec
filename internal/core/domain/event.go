package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the gateway.
const (
	EventPaymentIntentCreated        = "payment_intent.created"
	EventPaymentIntentProcessing     = "payment_intent.processing"
	EventPaymentIntentRequiresAction = "payment_intent.requires_action"
	EventPaymentIntentSucceeded      = "payment_intent.succeeded"
	EventPaymentIntentFailed         = "payment_intent.failed"
	EventPaymentIntentCanceled       = "payment_intent.canceled"

	EventChargeAuthorized = "charge.authorized"
	EventChargeCaptured   = "charge.captured"
	EventChargeFailed     = "charge.failed"
	EventChargeVoided     = "charge.voided"

	EventRefundCreated   = "refund.created"
	EventRefundSucceeded = "refund.succeeded"
	EventRefundFailed    = "refund.failed"

	EventCustomerCreated = "customer.created"
	EventCustomerUpdated = "customer.updated"
	EventCustomerDeleted = "customer.deleted"
)

// EventData wraps the resource snapshot carried by an event.
type EventData struct {
	Object json.RawMessage `json:"object"`
}

// Event is the envelope delivered to merchant webhooks.
type Event struct {
	ID      uuid.UUID `json:"id"`
	Type    string    `json:"type"`
	Created time.Time `json:"created"`
	Data    EventData `json:"data"`
}

// Payload renders the wire form delivered to webhooks; created is expressed
// in unix seconds.
func (e *Event) Payload() ([]byte, error) {
	return json.Marshal(struct {
		ID      uuid.UUID `json:"id"`
		Type    string    `json:"type"`
		Created int64     `json:"created"`
		Data    EventData `json:"data"`
	}{e.ID, e.Type, e.Created.Unix(), e.Data})
}

// NewEvent snapshots object into a fresh event envelope. The snapshot is
// taken at emit time, not delivery time.
func NewEvent(eventType string, object any, now time.Time) (*Event, error) {
	raw, err := json.Marshal(object)
	if err != nil {
		return nil, err
	}
	return &Event{
		ID:      uuid.New(),
		Type:    eventType,
		Created: now,
		Data:    EventData{Object: raw},
	}, nil
}
