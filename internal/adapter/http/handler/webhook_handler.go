package handler

import (
	"net/http"

	"payment-api-gateway/internal/adapter/http/dto"
	"payment-api-gateway/internal/core/ports"
	"payment-api-gateway/pkg/apperror"
	"payment-api-gateway/pkg/response"

	"github.com/gin-gonic/gin"
)

// WebhookHandler serves the /webhooks endpoint management API.
type WebhookHandler struct {
	svc ports.WebhookService
}

// NewWebhookHandler creates a webhook handler.
func NewWebhookHandler(svc ports.WebhookService) *WebhookHandler {
	return &WebhookHandler{svc: svc}
}

// Create handles POST /webhooks. The response is the only place the signing
// secret ever appears.
func (h *WebhookHandler) Create(c *gin.Context) {
	mid, ok := merchantID(c)
	if !ok {
		return
	}

	var req dto.CreateWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	webhook, err := h.svc.Create(c.Request.Context(), mid, req.URL, req.Events)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.WebhookResponse{
		Webhook: webhook,
		Object:  "webhook_endpoint",
		Secret:  webhook.Secret,
	})
}

// Get handles GET /webhooks/:id.
func (h *WebhookHandler) Get(c *gin.Context) {
	mid, ok := merchantID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	webhook, err := h.svc.Get(c.Request.Context(), mid, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.WebhookResponse{Webhook: webhook, Object: "webhook_endpoint"})
}

// List handles GET /webhooks.
func (h *WebhookHandler) List(c *gin.Context) {
	mid, ok := merchantID(c)
	if !ok {
		return
	}

	webhooks, err := h.svc.List(c.Request.Context(), mid)
	if err != nil {
		response.Error(c, err)
		return
	}

	data := make([]dto.WebhookResponse, 0, len(webhooks))
	for i := range webhooks {
		data = append(data, dto.WebhookResponse{Webhook: &webhooks[i], Object: "webhook_endpoint"})
	}
	response.OK(c, response.NewList(data, false, int64(len(data))))
}

// Delete handles DELETE /webhooks/:id.
func (h *WebhookHandler) Delete(c *gin.Context) {
	mid, ok := merchantID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), mid, id); err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "object": "webhook_endpoint", "deleted": true})
}
