package handler

import (
	"payment-api-gateway/internal/core/ports"
	"payment-api-gateway/pkg/response"

	"github.com/gin-gonic/gin"
)

// BalanceHandler serves the read-only /balance endpoints.
type BalanceHandler struct {
	svc ports.BalanceService
}

// NewBalanceHandler creates a balance handler.
func NewBalanceHandler(svc ports.BalanceService) *BalanceHandler {
	return &BalanceHandler{svc: svc}
}

// Summary handles GET /balance/summary.
func (h *BalanceHandler) Summary(c *gin.Context) {
	mid, ok := merchantID(c)
	if !ok {
		return
	}

	summary, err := h.svc.Summary(c.Request.Context(), mid)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"object": "balance", "available": summary})
}

// ListTransactions handles GET /balance/transactions.
func (h *BalanceHandler) ListTransactions(c *gin.Context) {
	mid, ok := merchantID(c)
	if !ok {
		return
	}
	limit, offset, ok := pagination(c)
	if !ok {
		return
	}

	txs, total, err := h.svc.ListTransactions(c.Request.Context(), mid, limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, response.NewList(txs, hasMore(total, limit, offset, len(txs)), total))
}

// GetTransaction handles GET /balance/transactions/:id.
func (h *BalanceHandler) GetTransaction(c *gin.Context) {
	mid, ok := merchantID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	tx, err := h.svc.GetTransaction(c.Request.Context(), mid, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, tx)
}
