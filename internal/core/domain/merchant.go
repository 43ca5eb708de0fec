package domain

import (
	"time"

	"github.com/google/uuid"
)

// RoutingStrategy names how an acquirer is chosen for a merchant's payments.
// Only "default" is implemented; "rules" and "smart" are reserved and fall
// back to the default path.
type RoutingStrategy string

const (
	RoutingStrategyDefault RoutingStrategy = "default"
	RoutingStrategyRules   RoutingStrategy = "rules"
	RoutingStrategySmart   RoutingStrategy = "smart"
)

// AdapterAccount is a merchant's account at one acquirer.
type AdapterAccount struct {
	Enabled     bool              `json:"enabled"`
	MerchantRef string            `json:"merchant_ref,omitempty"`
	Config      map[string]string `json:"config,omitempty"`
}

// RoutingConfig is the merchant-level acquirer routing preference, stored as
// JSON on the merchants row.
type RoutingConfig struct {
	Strategy       RoutingStrategy           `json:"strategy,omitempty"`
	DefaultAdapter string                    `json:"default_adapter,omitempty"`
	Adapters       map[string]AdapterAccount `json:"adapters,omitempty"`
}

// Merchant is the external aggregate root; the gateway consumes only the
// fields it needs for routing.
type Merchant struct {
	ID            uuid.UUID     `json:"id"`
	Name          string        `json:"name"`
	RoutingConfig RoutingConfig `json:"routing_config"`
	CreatedAt     time.Time     `json:"created_at"`
}

// APIKeyKind distinguishes publishable from secret keys.
type APIKeyKind string

const (
	// APIKeyPublic keys are stored verbatim and looked up by value.
	APIKeyPublic APIKeyKind = "public"
	// APIKeySecret keys are stored as hex(sha256(key)) and looked up by hash.
	APIKeySecret APIKeyKind = "secret"
)

// APIKey authenticates a merchant on the public API.
type APIKey struct {
	ID         uuid.UUID  `json:"id"`
	MerchantID uuid.UUID  `json:"merchant_id"`
	Kind       APIKeyKind `json:"kind"`
	// Value holds the verbatim key for public keys and the SHA-256 hex
	// digest for secret keys. The plaintext secret key is never stored.
	Value      string     `json:"-"`
	IsActive   bool       `json:"is_active"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
