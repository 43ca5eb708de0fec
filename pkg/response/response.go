package response

import (
	"errors"
	"net/http"

	"payment-api-gateway/pkg/apperror"

	"github.com/gin-gonic/gin"
)

// CtxRequestID is the gin context key under which the request-id middleware
// stores the request identifier.
const CtxRequestID = "request_id"

// ErrorBody is the error envelope returned on every failed request.
type ErrorBody struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Code      string `json:"code,omitempty"`
	Param     string `json:"param,omitempty"`
	RequestID string `json:"request_id"`
}

// ErrorResponse wraps ErrorBody under the "error" key.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// List is the envelope for paginated collections.
type List struct {
	Object     string `json:"object"` // always "list"
	Data       any    `json:"data"`
	HasMore    bool   `json:"has_more"`
	TotalCount int64  `json:"total_count"`
}

// NewList builds a list envelope. data must be a slice; a nil slice is
// rendered as an empty JSON array.
func NewList(data any, hasMore bool, total int64) List {
	return List{Object: "list", Data: data, HasMore: hasMore, TotalCount: total}
}

// OK sends a 200 response with the object as the body.
func OK(c *gin.Context, obj any) {
	c.JSON(http.StatusOK, obj)
}

// Created sends a 201 response with the object as the body.
func Created(c *gin.Context, obj any) {
	c.JSON(http.StatusCreated, obj)
}

// Error maps err to the error envelope. *apperror.AppError values keep their
// taxonomy and status; anything else becomes a generic api_error.
func Error(c *gin.Context, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		c.JSON(appErr.HTTPStatus, ErrorResponse{Error: ErrorBody{
			Type:      string(appErr.Type),
			Message:   appErr.Message,
			Code:      appErr.Code,
			Param:     appErr.Param,
			RequestID: RequestID(c),
		}})
		return
	}

	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: ErrorBody{
		Type:      string(apperror.TypeAPI),
		Message:   "An internal error occurred",
		RequestID: RequestID(c),
	}})
}

// RequestID retrieves the request id assigned by the middleware.
func RequestID(c *gin.Context) string {
	if id, exists := c.Get(CtxRequestID); exists {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}
