package handler

import (
	"payment-api-gateway/internal/adapter/http/dto"
	"payment-api-gateway/internal/core/ports"
	"payment-api-gateway/pkg/apperror"
	"payment-api-gateway/pkg/response"

	"github.com/gin-gonic/gin"
)

// RefundHandler serves the /refunds endpoints.
type RefundHandler struct {
	orchestrator ports.PaymentOrchestrator
}

// NewRefundHandler creates a refund handler.
func NewRefundHandler(orchestrator ports.PaymentOrchestrator) *RefundHandler {
	return &RefundHandler{orchestrator: orchestrator}
}

// Create handles POST /refunds.
func (h *RefundHandler) Create(c *gin.Context) {
	mid, ok := merchantID(c)
	if !ok {
		return
	}

	var req dto.CreateRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	refund, err := h.orchestrator.CreateRefund(c.Request.Context(), ports.RefundParams{
		MerchantID: mid,
		ChargeID:   req.ChargeID,
		Amount:     req.Amount,
		Reason:     req.Reason,
		Metadata:   req.Metadata,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, refund)
}

// Get handles GET /refunds/:id.
func (h *RefundHandler) Get(c *gin.Context) {
	mid, ok := merchantID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	refund, err := h.orchestrator.GetRefund(c.Request.Context(), mid, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, refund)
}

// List handles GET /refunds.
func (h *RefundHandler) List(c *gin.Context) {
	mid, ok := merchantID(c)
	if !ok {
		return
	}
	limit, offset, ok := pagination(c)
	if !ok {
		return
	}
	chargeID, ok := queryID(c, "charge_id")
	if !ok {
		return
	}

	refunds, total, err := h.orchestrator.ListRefunds(c.Request.Context(), ports.RefundListParams{
		MerchantID: mid,
		ChargeID:   chargeID,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, response.NewList(refunds, hasMore(total, limit, offset, len(refunds)), total))
}
