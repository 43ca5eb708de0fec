package handler

import (
	"payment-api-gateway/internal/adapter/http/dto"
	"payment-api-gateway/internal/core/ports"
	"payment-api-gateway/pkg/apperror"
	"payment-api-gateway/pkg/response"

	"github.com/gin-gonic/gin"
)

// TokenHandler serves POST /tokens, the single-use card tokenization endpoint.
// It is the only endpoint reachable with a publishable key.
type TokenHandler struct {
	svc ports.CardTokenService
}

// NewTokenHandler creates a token handler.
func NewTokenHandler(svc ports.CardTokenService) *TokenHandler {
	return &TokenHandler{svc: svc}
}

// Create handles POST /tokens. Card details pass through to the vault and are
// never echoed back beyond the display summary.
func (h *TokenHandler) Create(c *gin.Context) {
	mid, ok := merchantID(c)
	if !ok {
		return
	}

	var req dto.TokenizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	token, summary, err := h.svc.Tokenize(c.Request.Context(), mid, req.Card.Domain())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.TokenResponse{Object: "token", Token: token, Card: summary})
}
