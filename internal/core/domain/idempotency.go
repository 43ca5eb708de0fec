package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// IdempotencyRecord is the stored outcome of a key-protected request. A
// record with a zero StatusCode marks a request still in flight.
type IdempotencyRecord struct {
	Key         string    `json:"key"`
	MerchantID  uuid.UUID `json:"merchant_id"`
	Endpoint    string    `json:"endpoint"`
	RequestHash string    `json:"request_hash"` // hex sha256 of the raw body
	StatusCode  int       `json:"status_code"`
	Response    []byte    `json:"response"`
	// Headers are the response headers to replay alongside the body.
	// Set-Cookie is never stored.
	Headers   map[string]string `json:"headers,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	ExpiresAt time.Time         `json:"expires_at"`
}

// InFlight reports whether the original request has not finished yet.
func (r *IdempotencyRecord) InFlight() bool {
	return r.StatusCode == 0
}

// IdempotencyScope builds the storage key. Keys are scoped per merchant and
// endpoint, so the same Idempotency-Key on two endpoints never collides.
func IdempotencyScope(merchantID uuid.UUID, endpoint, key string) string {
	return fmt.Sprintf("%s:%s:%s", merchantID, endpoint, key)
}
