package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"payment-api-gateway/internal/adapter/http/middleware"
	"payment-api-gateway/internal/core/domain"
	"payment-api-gateway/internal/core/ports/mocks"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newWebhookHarness(t *testing.T) (*gin.Engine, *mocks.MockWebhookService, uuid.UUID) {
	t.Helper()
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockWebhookService(ctrl)
	merchantID := uuid.New()

	h := NewWebhookHandler(svc)
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set(middleware.CtxMerchantID, merchantID) })
	r.POST("/api/v1/webhooks", h.Create)
	r.GET("/api/v1/webhooks", h.List)
	r.GET("/api/v1/webhooks/:id", h.Get)
	r.DELETE("/api/v1/webhooks/:id", h.Delete)
	return r, svc, merchantID
}

func TestWebhookCreate_SecretShownOnce(t *testing.T) {
	r, svc, merchantID := newWebhookHarness(t)
	webhookID := uuid.New()

	svc.EXPECT().
		Create(gomock.Any(), merchantID, "https://merchant.example.com/hooks", []string{"payment_intent.succeeded"}).
		Return(&domain.Webhook{
			ID:       webhookID,
			URL:      "https://merchant.example.com/hooks",
			Secret:   "whsec_abc123",
			Events:   []string{"payment_intent.succeeded"},
			IsActive: true,
		}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks",
		strings.NewReader(`{"url":"https://merchant.example.com/hooks","events":["payment_intent.succeeded"]}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"secret":"whsec_abc123"`)

	// Reads never expose the secret again.
	svc.EXPECT().
		Get(gomock.Any(), merchantID, webhookID).
		Return(&domain.Webhook{ID: webhookID, URL: "https://merchant.example.com/hooks", Secret: "whsec_abc123"}, nil)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/webhooks/"+webhookID.String(), nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "whsec_abc123")
}

func TestWebhookList(t *testing.T) {
	r, svc, merchantID := newWebhookHarness(t)

	svc.EXPECT().
		List(gomock.Any(), merchantID).
		Return([]domain.Webhook{
			{ID: uuid.New(), URL: "https://a.example.com", Secret: "whsec_a"},
			{ID: uuid.New(), URL: "https://b.example.com", Secret: "whsec_b"},
		}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/webhooks", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Object     string            `json:"object"`
		Data       []json.RawMessage `json:"data"`
		TotalCount int64             `json:"total_count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "list", body.Object)
	assert.Len(t, body.Data, 2)
	assert.NotContains(t, w.Body.String(), "whsec_")
}

func TestWebhookDelete(t *testing.T) {
	r, svc, merchantID := newWebhookHarness(t)
	id := uuid.New()

	svc.EXPECT().Delete(gomock.Any(), merchantID, id).Return(nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/webhooks/"+id.String(), nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"deleted":true`)
}
