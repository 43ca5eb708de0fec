package handler

import (
	"net/http"

	"payment-api-gateway/internal/adapter/http/dto"
	"payment-api-gateway/internal/core/domain"
	"payment-api-gateway/internal/core/ports"
	"payment-api-gateway/pkg/apperror"
	"payment-api-gateway/pkg/response"

	"github.com/gin-gonic/gin"
)

// CustomerHandler serves the /customers endpoints.
type CustomerHandler struct {
	svc ports.CustomerService
}

// NewCustomerHandler creates a customer handler.
func NewCustomerHandler(svc ports.CustomerService) *CustomerHandler {
	return &CustomerHandler{svc: svc}
}

// Create handles POST /customers.
func (h *CustomerHandler) Create(c *gin.Context) {
	mid, ok := merchantID(c)
	if !ok {
		return
	}

	var req dto.CustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	customer, err := h.svc.Create(c.Request.Context(), &domain.Customer{
		MerchantID: mid,
		Email:      req.Email,
		Name:       req.Name,
		Phone:      req.Phone,
		Metadata:   req.Metadata,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, customer)
}

// Get handles GET /customers/:id.
func (h *CustomerHandler) Get(c *gin.Context) {
	mid, ok := merchantID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	customer, err := h.svc.Get(c.Request.Context(), mid, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, customer)
}

// Update handles PATCH /customers/:id.
func (h *CustomerHandler) Update(c *gin.Context) {
	mid, ok := merchantID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req dto.CustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	customer, err := h.svc.Update(c.Request.Context(), &domain.Customer{
		ID:         id,
		MerchantID: mid,
		Email:      req.Email,
		Name:       req.Name,
		Phone:      req.Phone,
		Metadata:   req.Metadata,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, customer)
}

// Delete handles DELETE /customers/:id.
func (h *CustomerHandler) Delete(c *gin.Context) {
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
	c.JSON(http.StatusOK, gin.H{"id": id, "object": "customer", "deleted": true})
}

// List handles GET /customers. The optional query parameter matches against
// email, name, and phone.
func (h *CustomerHandler) List(c *gin.Context) {
	mid, ok := merchantID(c)
	if !ok {
		return
	}
	limit, offset, ok := pagination(c)
	if !ok {
		return
	}

	customers, total, err := h.svc.List(c.Request.Context(), mid, c.Query("query"), limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, response.NewList(customers, hasMore(total, limit, offset, len(customers)), total))
}
