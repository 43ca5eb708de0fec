package cybersource

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"payment-api-gateway/internal/core/ports"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// Config carries the connection settings for one CyberSource account.
type Config struct {
	MerchantID string
	KeyID      string
	SecretKey  string // base64
	Endpoint   string // e.g. https://apitest.cybersource.com
	Host       string // Host header value; derived from Endpoint when empty
}

// client performs signed REST calls with a circuit breaker in front, so a
// flapping acquirer sheds load fast instead of tying up request handlers.
type client struct {
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker
	signer   *Signer
	endpoint string
	host     string
	merchant string
	clock    ports.Clock
	logger   zerolog.Logger
}

type apiResponse struct {
	status int
	body   []byte
}

func newClient(cfg Config, clock ports.Clock, logger zerolog.Logger) (*client, error) {
	host := cfg.Host
	if host == "" {
		u, err := url.Parse(cfg.Endpoint)
		if err != nil {
			return nil, fmt.Errorf("parse cybersource endpoint: %w", err)
		}
		host = u.Host
	}
	signer, err := NewSigner(Credentials{
		MerchantID: cfg.MerchantID,
		KeyID:      cfg.KeyID,
		SecretKey:  cfg.SecretKey,
		Host:       host,
	})
	if err != nil {
		return nil, err
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "cybersource",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	})

	return &client{
		http:     &http.Client{Timeout: 30 * time.Second},
		breaker:  breaker,
		signer:   signer,
		endpoint: cfg.Endpoint,
		host:     host,
		merchant: cfg.MerchantID,
		clock:    clock,
		logger:   logger,
	}, nil
}

// post sends body (already compact JSON) to path and returns the HTTP status
// and raw response body. Non-2xx statuses are returned to the caller for
// mapping, not treated as transport errors.
func (c *client) post(ctx context.Context, path string, body []byte) (int, []byte, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.do(ctx, path, body)
	})
	if err != nil {
		return 0, nil, err
	}
	resp := result.(*apiResponse)
	return resp.status, resp.body, nil
}

func (c *client) do(ctx context.Context, path string, body []byte) (*apiResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build cybersource request: %w", err)
	}

	digest := Digest(body)
	date := c.clock.Now().UTC().Format(http.TimeFormat)

	req.Host = c.host
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("v-c-merchant-id", c.merchant)
	req.Header.Set("Date", date)
	req.Header.Set("Digest", digest)
	req.Header.Set("Signature", c.signer.Sign(http.MethodPost, path, date, digest))

	start := c.clock.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cybersource request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read cybersource response: %w", err)
	}

	c.logger.Debug().
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("latency", c.clock.Now().Sub(start)).
		Msg("cybersource call")

	// 5xx means the acquirer itself is unhealthy; let the breaker count it.
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("cybersource returned %d", resp.StatusCode)
	}
	return &apiResponse{status: resp.StatusCode, body: raw}, nil
}
