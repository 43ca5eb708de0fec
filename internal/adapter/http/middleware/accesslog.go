package middleware

import (
	"time"

	"payment-api-gateway/internal/core/domain"
	"payment-api-gateway/internal/core/ports"
	"payment-api-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AccessLog records one audit entry per request, fire-and-forget, after the
// handler has finished.
func AccessLog(svc ports.AccessLogService, clock ports.Clock) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		var merchantID *uuid.UUID
		if id, ok := MerchantID(c); ok {
			merchantID = &id
		}

		svc.Record(&domain.AccessLog{
			ID:             uuid.New(),
			MerchantID:     merchantID,
			RequestID:      response.RequestID(c),
			Method:         c.Request.Method,
			Path:           c.Request.URL.Path,
			StatusCode:     c.Writer.Status(),
			ClientIP:       c.ClientIP(),
			UserAgent:      c.Request.UserAgent(),
			IdempotencyKey: c.GetHeader(HeaderIdempotencyKey),
			LatencyMS:      time.Since(start).Milliseconds(),
			CreatedAt:      clock.Now(),
		})
	}
}
