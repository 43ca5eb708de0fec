package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"payment-api-gateway/config"
	"payment-api-gateway/internal/core/domain"
	"payment-api-gateway/internal/core/ports"
	"payment-api-gateway/internal/core/ports/mocks"
	"payment-api-gateway/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// routerKeyRepo is a hand-written stub so the Auth middleware's background
// last_used_at bump cannot race a mock controller teardown.
type routerKeyRepo struct {
	keys map[string]*domain.APIKey
}

func (r *routerKeyRepo) GetByValue(_ context.Context, value string) (*domain.APIKey, error) {
	return r.keys[value], nil
}

func (r *routerKeyRepo) Touch(context.Context, uuid.UUID, time.Time) error { return nil }

type routerRateLimit struct{}

func (routerRateLimit) Incr(context.Context, string, time.Duration) (int64, time.Duration, error) {
	return 1, time.Minute, nil
}

type routerNoopAccessLog struct{}

func (routerNoopAccessLog) Record(*domain.AccessLog) {}

type routerFixture struct {
	router    *gin.Engine
	secretKey string
	publicKey string
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	crypto := service.NewCryptoService()
	merchantID := uuid.New()

	secretKey := "sk_test_abc123"
	publicKey := "pk_test_abc123"
	keyRepo := &routerKeyRepo{keys: map[string]*domain.APIKey{
		crypto.SHA256Hex([]byte(secretKey)): {
			ID: uuid.New(), MerchantID: merchantID, Kind: domain.APIKeySecret, IsActive: true,
		},
		publicKey: {
			ID: uuid.New(), MerchantID: merchantID, Kind: domain.APIKeyPublic, IsActive: true,
		},
	}}

	orchestrator := mocks.NewMockPaymentOrchestrator(ctrl)
	orchestrator.EXPECT().
		ListIntents(gomock.Any(), gomock.Any()).
		Return([]domain.PaymentIntent{}, int64(0), nil).
		AnyTimes()

	tokens := mocks.NewMockCardTokenService(ctrl)
	tokens.EXPECT().
		Tokenize(gomock.Any(), merchantID, gomock.Any()).
		Return("tok_abc123", domain.PaymentMethodSummary{Type: "card", Last4: "4242"}, nil).
		AnyTimes()

	idempotency := mocks.NewMockIdempotencyStore(ctrl)
	idempotency.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()
	idempotency.EXPECT().PutInFlight(gomock.Any(), gomock.Any(), gomock.Any()).Return(true, nil).AnyTimes()
	idempotency.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	idempotency.EXPECT().Release(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	cfg := &config.Config{}
	cfg.Server.Mode = gin.TestMode
	cfg.Server.Environment = "test"
	cfg.RateLimit.Max = 60
	cfg.RateLimit.Window = time.Minute
	cfg.Idempotency.TTL = 24 * time.Hour

	r := SetupRouter(RouterDeps{
		Config:       cfg,
		Log:          zerolog.Nop(),
		Orchestrator: orchestrator,
		Customers:    mocks.NewMockCustomerService(ctrl),
		Webhooks:     mocks.NewMockWebhookService(ctrl),
		Balance:      mocks.NewMockBalanceService(ctrl),
		Tokens:       tokens,
		AccessLogs:   routerNoopAccessLog{},
		APIKeys:      keyRepo,
		RateLimits:   routerRateLimit{},
		Idempotency:  idempotency,
		Crypto:       crypto,
		Clock:        service.NewRealClock(),
	})
	return &routerFixture{router: r, secretKey: secretKey, publicKey: publicKey}
}

func (f *routerFixture) do(method, path, bearer, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestRouter_HealthReportsEnvironment(t *testing.T) {
	f := newRouterFixture(t)

	w := f.do(http.MethodGet, "/", "", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"environment":"test"`)
}

func TestRouter_UnauthenticatedRequestRejected(t *testing.T) {
	f := newRouterFixture(t)

	w := f.do(http.MethodGet, "/api/v1/payment_intents", "", "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "authentication_error")
}

func TestRouter_SecretKeyReachesPaymentIntents(t *testing.T) {
	f := newRouterFixture(t)

	w := f.do(http.MethodGet, "/api/v1/payment_intents", f.secretKey, "")

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_PublishableKeyOnlyTokenizes(t *testing.T) {
	f := newRouterFixture(t)

	w := f.do(http.MethodPost, "/api/v1/tokens", f.publicKey,
		`{"card":{"number":"4242424242424242","exp_month":12,"exp_year":2030,"cvc":"123"}}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"token":"tok_abc123"`)

	w = f.do(http.MethodGet, "/api/v1/payment_intents", f.publicKey, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRouter_EchoesRequestID(t *testing.T) {
	f := newRouterFixture(t)

	w := f.do(http.MethodGet, "/", "", "")

	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRouter_MetricsExposed(t *testing.T) {
	f := newRouterFixture(t)

	w := f.do(http.MethodGet, "/metrics", "", "")

	assert.Equal(t, http.StatusOK, w.Code)
}

var _ ports.AccessLogService = routerNoopAccessLog{}
