package middleware

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"payment-api-gateway/internal/core/domain"
	"payment-api-gateway/internal/core/ports"
	"payment-api-gateway/pkg/apperror"
	"payment-api-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// HeaderIdempotencyKey is the request header carrying the client's key.
const HeaderIdempotencyKey = "Idempotency-Key"

// HeaderIdempotencyReplayed marks a response served from the idempotency
// store instead of the handler.
const HeaderIdempotencyReplayed = "Idempotency-Replayed"

// captureWriter tees the response body so it can be stored for replay.
type captureWriter struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency makes POST and PATCH requests replay-safe. A request carrying
// an Idempotency-Key is recorded with its body hash; repeating the key with
// the same body replays the stored response, repeating it with a different
// body is a conflict. The handler never runs when the replay check itself
// fails.
func Idempotency(store ports.IdempotencyStore, crypto ports.Crypto, clock ports.Clock, ttl time.Duration, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost && c.Request.Method != http.MethodPatch {
			c.Next()
			return
		}
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		merchantID, ok := MerchantID(c)
		if !ok {
			c.Next()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			response.Error(c, apperror.Validation("cannot read request body"))
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		endpoint := c.Request.Method + " " + c.FullPath()
		scope := domain.IdempotencyScope(merchantID, endpoint, key)
		bodyHash := crypto.SHA256Hex(body)

		existing, err := store.Get(c.Request.Context(), scope)
		if err != nil {
			log.Error().Err(err).Str("scope", scope).Msg("idempotency lookup failed")
			response.Error(c, apperror.Internal(err))
			c.Abort()
			return
		}
		if existing != nil {
			serveExisting(c, existing, bodyHash)
			return
		}

		record := &domain.IdempotencyRecord{
			Key:         key,
			MerchantID:  merchantID,
			Endpoint:    endpoint,
			RequestHash: bodyHash,
			CreatedAt:   clock.Now(),
		}
		claimed, err := store.PutInFlight(c.Request.Context(), record, ttl)
		if err != nil {
			log.Error().Err(err).Str("scope", scope).Msg("idempotency claim failed")
			response.Error(c, apperror.Internal(err))
			c.Abort()
			return
		}
		if !claimed {
			// Lost the race; the winner's record decides what happens.
			existing, err := store.Get(c.Request.Context(), scope)
			if err != nil || existing == nil {
				response.Error(c, errInFlight())
				c.Abort()
				return
			}
			serveExisting(c, existing, bodyHash)
			return
		}

		writer := &captureWriter{ResponseWriter: c.Writer}
		c.Writer = writer
		c.Next()

		status := writer.Status()
		if status >= http.StatusInternalServerError {
			// Free the key so the client can retry after our failure.
			if err := store.Release(c.Request.Context(), scope); err != nil {
				log.Warn().Err(err).Str("scope", scope).Msg("failed to release idempotency claim")
			}
			return
		}

		record.StatusCode = status
		record.Response = writer.buf.Bytes()
		record.Headers = replayableHeaders(writer.Header())
		if err := store.Complete(c.Request.Context(), record, ttl); err != nil {
			log.Warn().Err(err).Str("scope", scope).Msg("failed to store idempotency record")
		}
	}
}

func serveExisting(c *gin.Context, record *domain.IdempotencyRecord, bodyHash string) {
	if record.RequestHash != bodyHash {
		response.Error(c, apperror.ErrIdempotencyConflict())
		c.Abort()
		return
	}
	if record.InFlight() {
		response.Error(c, errInFlight())
		c.Abort()
		return
	}
	contentType := "application/json"
	for name, value := range record.Headers {
		if http.CanonicalHeaderKey(name) == "Content-Type" {
			contentType = value
			continue
		}
		c.Header(name, value)
	}
	c.Header(HeaderIdempotencyReplayed, "true")
	c.Data(record.StatusCode, contentType, record.Response)
	c.Abort()
}

// replayableHeaders snapshots the response headers worth serving again on a
// replay. Set-Cookie is session-bound and never stored.
func replayableHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		if name == "Set-Cookie" || len(values) == 0 {
			continue
		}
		out[name] = values[0]
	}
	return out
}

func errInFlight() *apperror.AppError {
	return apperror.New(apperror.TypeIdempotencyConflict,
		"A request with this Idempotency-Key is still being processed", http.StatusConflict)
}
