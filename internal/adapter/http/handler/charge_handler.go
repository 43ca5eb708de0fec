package handler

import (
	"payment-api-gateway/internal/core/domain"
	"payment-api-gateway/internal/core/ports"
	"payment-api-gateway/pkg/response"

	"github.com/gin-gonic/gin"
)

// ChargeHandler serves the read-only /charges endpoints. Charges are created
// by the orchestrator during confirm, never directly.
type ChargeHandler struct {
	orchestrator ports.PaymentOrchestrator
}

// NewChargeHandler creates a charge handler.
func NewChargeHandler(orchestrator ports.PaymentOrchestrator) *ChargeHandler {
	return &ChargeHandler{orchestrator: orchestrator}
}

// Get handles GET /charges/:id.
func (h *ChargeHandler) Get(c *gin.Context) {
	mid, ok := merchantID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	charge, err := h.orchestrator.GetCharge(c.Request.Context(), mid, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, charge)
}

// List handles GET /charges.
func (h *ChargeHandler) List(c *gin.Context) {
	mid, ok := merchantID(c)
	if !ok {
		return
	}
	limit, offset, ok := pagination(c)
	if !ok {
		return
	}
	intentID, ok := queryID(c, "payment_intent_id")
	if !ok {
		return
	}

	var status *domain.ChargeStatus
	if raw := c.Query("status"); raw != "" {
		s := domain.ChargeStatus(raw)
		status = &s
	}

	charges, total, err := h.orchestrator.ListCharges(c.Request.Context(), ports.ChargeListParams{
		MerchantID:      mid,
		PaymentIntentID: intentID,
		Status:          status,
		Limit:           limit,
		Offset:          offset,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, response.NewList(charges, hasMore(total, limit, offset, len(charges)), total))
}
