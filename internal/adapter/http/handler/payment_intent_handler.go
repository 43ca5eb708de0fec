package handler

import (
	"payment-api-gateway/internal/adapter/http/dto"
	"payment-api-gateway/internal/core/domain"
	"payment-api-gateway/internal/core/ports"
	"payment-api-gateway/pkg/apperror"
	"payment-api-gateway/pkg/response"

	"github.com/gin-gonic/gin"
)

// PaymentIntentHandler serves the /payment_intents endpoints.
type PaymentIntentHandler struct {
	orchestrator ports.PaymentOrchestrator
}

// NewPaymentIntentHandler creates a payment intent handler.
func NewPaymentIntentHandler(orchestrator ports.PaymentOrchestrator) *PaymentIntentHandler {
	return &PaymentIntentHandler{orchestrator: orchestrator}
}

// Create handles POST /payment_intents.
func (h *PaymentIntentHandler) Create(c *gin.Context) {
	mid, ok := merchantID(c)
	if !ok {
		return
	}

	var req dto.CreateIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	intent, err := h.orchestrator.CreateIntent(c.Request.Context(), ports.CreateIntentParams{
		MerchantID:         mid,
		Amount:             req.Amount,
		Currency:           req.Currency,
		CaptureMethod:      domain.CaptureMethod(req.CaptureMethod),
		ConfirmationMethod: domain.ConfirmationMethod(req.ConfirmationMethod),
		CustomerID:         req.CustomerID,
		Description:        req.Description,
		Metadata:           req.Metadata,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.NewIntentResponse(intent, ""))
}

// Get handles GET /payment_intents/:id.
func (h *PaymentIntentHandler) Get(c *gin.Context) {
	mid, ok := merchantID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	intent, err := h.orchestrator.GetIntent(c.Request.Context(), mid, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewIntentResponse(intent, ""))
}

// List handles GET /payment_intents.
func (h *PaymentIntentHandler) List(c *gin.Context) {
	mid, ok := merchantID(c)
	if !ok {
		return
	}
	limit, offset, ok := pagination(c)
	if !ok {
		return
	}
	customerID, ok := queryID(c, "customer_id")
	if !ok {
		return
	}

	var status *domain.IntentStatus
	if raw := c.Query("status"); raw != "" {
		s := domain.IntentStatus(raw)
		status = &s
	}

	intents, total, err := h.orchestrator.ListIntents(c.Request.Context(), ports.IntentListParams{
		MerchantID: mid,
		CustomerID: customerID,
		Status:     status,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	data := make([]dto.IntentResponse, 0, len(intents))
	for i := range intents {
		data = append(data, dto.NewIntentResponse(&intents[i], ""))
	}
	response.OK(c, response.NewList(data, hasMore(total, limit, offset, len(intents)), total))
}

// Update handles PATCH /payment_intents/:id.
func (h *PaymentIntentHandler) Update(c *gin.Context) {
	mid, ok := merchantID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	intent, err := h.orchestrator.UpdateIntent(c.Request.Context(), ports.UpdateIntentParams{
		MerchantID:  mid,
		IntentID:    id,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Description: req.Description,
		Metadata:    req.Metadata,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewIntentResponse(intent, ""))
}

// Confirm handles POST /payment_intents/:id/confirm.
func (h *PaymentIntentHandler) Confirm(c *gin.Context) {
	mid, ok := merchantID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req dto.ConfirmIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	if (req.PaymentMethod.Token == "") == (req.PaymentMethod.Card == nil) {
		response.Error(c, apperror.ValidationParam(
			"provide either a card token or card details, not both", "payment_method"))
		return
	}

	params := ports.ConfirmParams{
		MerchantID: mid,
		IntentID:   id,
		Token:      req.PaymentMethod.Token,
		Billing:    billingParams(req.BillingDetails),
		ReturnURL:  req.ReturnURL,
	}
	if req.PaymentMethod.Card != nil {
		params.Card = req.PaymentMethod.Card.Domain()
	}

	intent, err := h.orchestrator.Confirm(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewIntentResponse(intent, req.ReturnURL))
}

func billingParams(b *dto.BillingDetails) *ports.BillingDetails {
	if b == nil {
		return nil
	}
	out := &ports.BillingDetails{Name: b.Name, Email: b.Email, Phone: b.Phone}
	if a := b.Address; a != nil {
		out.Address = &ports.BillingAddress{
			Line1:      a.Line1,
			City:       a.City,
			State:      a.State,
			Country:    a.Country,
			PostalCode: a.PostalCode,
		}
	}
	return out
}

// CompleteAuthentication handles POST /payment_intents/:id/complete_authentication,
// the return leg after issuer 3DS.
func (h *PaymentIntentHandler) CompleteAuthentication(c *gin.Context) {
	mid, ok := merchantID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req dto.CompleteAuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	intent, err := h.orchestrator.CompleteAuthentication(c.Request.Context(), ports.CompleteAuthParams{
		MerchantID:    mid,
		IntentID:      id,
		PaRes:         req.PaRes,
		TransactionID: req.TransactionID,
		MD:            req.MD,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewIntentResponse(intent, ""))
}

// Capture handles POST /payment_intents/:id/capture.
func (h *PaymentIntentHandler) Capture(c *gin.Context) {
	mid, ok := merchantID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	// Capture accepts an empty body for full-amount captures.
	var req dto.CaptureIntentRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, apperror.Validation(err.Error()))
			return
		}
	}

	intent, err := h.orchestrator.Capture(c.Request.Context(), ports.CaptureParams{
		MerchantID: mid,
		IntentID:   id,
		Amount:     req.AmountToCapture,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewIntentResponse(intent, ""))
}

// Cancel handles POST /payment_intents/:id/cancel.
func (h *PaymentIntentHandler) Cancel(c *gin.Context) {
	mid, ok := merchantID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	intent, err := h.orchestrator.Cancel(c.Request.Context(), mid, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewIntentResponse(intent, ""))
}
