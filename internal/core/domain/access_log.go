package domain

import (
	"time"

	"github.com/google/uuid"
)

// AccessLog is one API request record kept for merchant-facing audit trails.
type AccessLog struct {
	ID             uuid.UUID  `json:"id"`
	MerchantID     *uuid.UUID `json:"merchant_id,omitempty"` // nil for unauthenticated requests
	RequestID      string     `json:"request_id"`
	Method         string     `json:"method"`
	Path           string     `json:"path"`
	StatusCode     int        `json:"status_code"`
	ClientIP       string     `json:"client_ip"`
	UserAgent      string     `json:"user_agent,omitempty"`
	IdempotencyKey string     `json:"idempotency_key,omitempty"`
	LatencyMS      int64      `json:"latency_ms"`
	CreatedAt      time.Time  `json:"created_at"`
}
