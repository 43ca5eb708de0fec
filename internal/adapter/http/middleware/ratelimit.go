package middleware

import (
	"fmt"
	"strconv"
	"time"

	"payment-api-gateway/internal/core/ports"
	"payment-api-gateway/pkg/apperror"
	"payment-api-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RateLimit enforces a fixed-window per-merchant limit keyed by method and
// path. A store failure fails open: the request proceeds without headers.
func RateLimit(store ports.RateLimitStore, max int64, window time.Duration, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		merchantID, ok := MerchantID(c)
		if !ok {
			c.Next()
			return
		}
		key := fmt.Sprintf("%s:%s:%s", merchantID, c.Request.Method, c.FullPath())

		count, reset, err := store.Incr(c.Request.Context(), key, window)
		if err != nil {
			log.Warn().Err(err).Msg("rate limit check failed, allowing request")
			c.Next()
			return
		}

		remaining := max - count
		if remaining < 0 {
			remaining = 0
		}
		resetAt := time.Now().Add(reset).Unix()

		c.Header("X-RateLimit-Limit", strconv.FormatInt(max, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(resetAt, 10))

		if count > max {
			retryAfter := int64(reset.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
			response.Error(c, apperror.ErrRateLimited())
			c.Abort()
			return
		}

		c.Next()
	}
}
