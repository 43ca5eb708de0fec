package domain

import (
	"time"

	"github.com/google/uuid"
)

// Customer is a merchant-scoped buyer record that payment intents may
// reference.
type Customer struct {
	ID         uuid.UUID         `json:"id"`
	MerchantID uuid.UUID         `json:"-"`
	Email      *string           `json:"email,omitempty"`
	Name       *string           `json:"name,omitempty"`
	Phone      *string           `json:"phone,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}
