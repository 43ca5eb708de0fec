package domain

import (
	"time"

	"github.com/google/uuid"
)

// RefundStatus represents the lifecycle state of a refund.
type RefundStatus string

const (
	RefundStatusPending   RefundStatus = "pending"
	RefundStatusSucceeded RefundStatus = "succeeded"
	RefundStatusFailed    RefundStatus = "failed"
)

// Refund is a child record of a charge returning captured funds.
type Refund struct {
	ID                uuid.UUID         `json:"id"`
	MerchantID        uuid.UUID         `json:"-"`
	ChargeID          uuid.UUID         `json:"charge_id"`
	Amount            int64             `json:"amount"`
	Currency          string            `json:"currency"`
	Reason            *string           `json:"reason,omitempty"`
	Status            RefundStatus      `json:"status"`
	AcquirerReference *string           `json:"acquirer_reference,omitempty"`
	Metadata          map[string]string `json:"metadata,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}
