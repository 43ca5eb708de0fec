package domain

import (
	"time"

	"github.com/google/uuid"
)

// Webhook is a merchant-registered delivery endpoint.
type Webhook struct {
	ID         uuid.UUID `json:"id"`
	MerchantID uuid.UUID `json:"-"`
	URL        string    `json:"url"`
	Secret     string    `json:"-"`      // HMAC signing secret, shown once at creation
	Events     []string  `json:"events"` // event types, or "*" for all
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Subscribed reports whether this webhook wants eventType.
func (w *Webhook) Subscribed(eventType string) bool {
	for _, e := range w.Events {
		if e == "*" || e == eventType {
			return true
		}
	}
	return false
}

// DeliveryMaxAttempts is how many times one delivery is tried before it is
// marked terminally failed.
const DeliveryMaxAttempts = 3

// WebhookDelivery is one queued delivery of an event to one endpoint. It
// carries the endpoint URL and merchant rather than a webhook foreign key, so
// deleting a webhook cannot orphan in-flight deliveries.
type WebhookDelivery struct {
	ID           uuid.UUID  `json:"id"`
	MerchantID   uuid.UUID  `json:"-"`
	EventType    string     `json:"event_type"`
	EventID      uuid.UUID  `json:"event_id"`
	EndpointURL  string     `json:"endpoint_url"`
	Secret       string     `json:"-"`
	Payload      []byte     `json:"-"`
	Attempt      int        `json:"attempt"`
	MaxAttempts  int        `json:"max_attempts"`
	StatusCode   *int       `json:"status_code,omitempty"`
	ResponseBody *string    `json:"response_body,omitempty"`
	Error        *string    `json:"error,omitempty"`
	NextRetryAt  time.Time  `json:"next_retry_at"`
	Delivered    bool       `json:"delivered"`
	DeliveredAt  *time.Time `json:"delivered_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Exhausted reports whether every allowed attempt has been spent. Attempt
// numbers the next pending attempt, so a delivery is exhausted once it moves
// past MaxAttempts.
func (d *WebhookDelivery) Exhausted() bool {
	return d.Attempt > d.MaxAttempts
}
