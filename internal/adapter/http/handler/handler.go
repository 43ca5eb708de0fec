package handler

import (
	"strconv"

	"payment-api-gateway/internal/adapter/http/middleware"
	"payment-api-gateway/pkg/apperror"
	"payment-api-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	defaultListLimit = 10
	maxListLimit     = 100
)

// merchantID pulls the authenticated merchant from the context. Auth runs
// before every handler, so a miss is a wiring bug and maps to api_error.
func merchantID(c *gin.Context) (uuid.UUID, bool) {
	id, ok := middleware.MerchantID(c)
	if !ok {
		response.Error(c, apperror.Internal(nil))
		return uuid.Nil, false
	}
	return id, true
}

// pathID parses the named path parameter as a UUID.
func pathID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		response.Error(c, apperror.ValidationParam("must be a valid identifier", param))
		return uuid.Nil, false
	}
	return id, true
}

// queryID parses an optional UUID query parameter. A present but malformed
// value is a validation error.
func queryID(c *gin.Context, param string) (*uuid.UUID, bool) {
	raw := c.Query(param)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		response.Error(c, apperror.ValidationParam("must be a valid identifier", param))
		return nil, false
	}
	return &id, true
}

// pagination reads limit/offset query parameters with the API defaults.
func pagination(c *gin.Context) (limit, offset int, ok bool) {
	limit = defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxListLimit {
			response.Error(c, apperror.ValidationParam("must be an integer between 1 and 100", "limit"))
			return 0, 0, false
		}
		limit = n
	}
	if raw := c.Query("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			response.Error(c, apperror.ValidationParam("must be a non-negative integer", "offset"))
			return 0, 0, false
		}
		offset = n
	}
	return limit, offset, true
}

// hasMore reports whether another page exists past the current one.
func hasMore(total int64, limit, offset, returned int) bool {
	return int64(offset+returned) < total && returned == limit
}
