package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"payment-api-gateway/internal/core/domain"
	"payment-api-gateway/internal/core/ports"
	"payment-api-gateway/pkg/apperror"
	"payment-api-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// Context keys populated by the pipeline.
	CtxMerchantID = "merchant_id"
	CtxAPIKeyID   = "api_key_id"
	CtxKeyKind    = "key_kind"

	// HeaderRequestID is echoed on every response.
	HeaderRequestID = "X-Request-ID"
)

// RequestID reads X-Request-ID or mints a fresh req_ identifier, stores it in
// the context and echoes it on the response.
func RequestID(crypto ports.Crypto) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			// 18 random bytes encode to 24 URL-safe characters
			generated, err := crypto.RandomToken("req_", 18)
			if err == nil {
				id = generated
			} else {
				id = "req_unavailable"
			}
		}
		c.Set(response.CtxRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// Auth authenticates Bearer API keys. Secret keys (sk_) are looked up by
// SHA-256 hex digest so the verbatim secret never reaches storage; public
// keys (pk_) are looked up as-is. last_used_at is bumped best-effort.
func Auth(apiKeyRepo ports.APIKeyRepository, crypto ports.Crypto, clock ports.Clock, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			response.Error(c, apperror.ErrMissingAPIKey())
			c.Abort()
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))

		var lookup string
		switch {
		case strings.HasPrefix(token, "sk_"):
			lookup = crypto.SHA256Hex([]byte(token))
		case strings.HasPrefix(token, "pk_"):
			lookup = token
		default:
			response.Error(c, apperror.ErrInvalidAPIKey())
			c.Abort()
			return
		}

		key, err := apiKeyRepo.GetByValue(c.Request.Context(), lookup)
		if err != nil {
			log.Error().Err(err).Msg("api key lookup failed")
			response.Error(c, apperror.Internal(err))
			c.Abort()
			return
		}
		if key == nil || !key.IsActive {
			response.Error(c, apperror.ErrInvalidAPIKey())
			c.Abort()
			return
		}

		c.Set(CtxMerchantID, key.MerchantID)
		c.Set(CtxAPIKeyID, key.ID)
		c.Set(CtxKeyKind, key.Kind)

		// Fire and forget; a failed bump never blocks the request.
		go func(id uuid.UUID, at time.Time) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := apiKeyRepo.Touch(ctx, id, at); err != nil {
				log.Warn().Err(err).Str("api_key_id", id.String()).Msg("failed to bump api key last_used_at")
			}
		}(key.ID, clock.Now())

		c.Next()
	}
}

// RequestLogger logs every HTTP request at a level derived from the status.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		} else if status >= http.StatusBadRequest {
			event = log.Warn()
		}

		event.
			Str("request_id", response.RequestID(c)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP()).
			Msg("http request")
	}
}

// Recovery converts panics into the standard error envelope.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().
					Interface("panic", r).
					Str("request_id", response.RequestID(c)).
					Str("path", c.Request.URL.Path).
					Msg("panic recovered")
				response.Error(c, apperror.Internal(nil))
				c.Abort()
			}
		}()
		c.Next()
	}
}

// RequireSecretKey rejects requests authenticated with a publishable key.
// Publishable keys only reach the tokenization endpoint.
func RequireSecretKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		v, exists := c.Get(CtxKeyKind)
		if !exists || v != domain.APIKeySecret {
			response.Error(c, apperror.New(apperror.TypeAuthentication,
				"This endpoint requires a secret API key", http.StatusForbidden))
			c.Abort()
			return
		}
		c.Next()
	}
}

// MerchantID returns the authenticated merchant from the context.
func MerchantID(c *gin.Context) (uuid.UUID, bool) {
	v, exists := c.Get(CtxMerchantID)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}
