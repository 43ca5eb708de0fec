package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"payment-api-gateway/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestContext() (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Set(CtxRequestID, "req_test123")
	return c, w
}

func TestOK(t *testing.T) {
	c, w := newTestContext()
	OK(c, map[string]string{"id": "pi_1"})

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "pi_1", body["id"])
}

func TestError_AppError(t *testing.T) {
	c, w := newTestContext()
	Error(c, apperror.ErrCardDeclined("05", "Do not honor"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "invalid_request_error", resp.Error.Type)
	assert.Equal(t, "05", resp.Error.Code)
	assert.Equal(t, "Do not honor", resp.Error.Message)
	assert.Equal(t, "req_test123", resp.Error.RequestID)
}

func TestError_Wrapped(t *testing.T) {
	c, w := newTestContext()
	Error(c, errors.Join(errors.New("outer"), apperror.ErrNotFound("charge")))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestError_Unknown(t *testing.T) {
	c, w := newTestContext()
	Error(c, errors.New("pg down"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "api_error", resp.Error.Type)
	// Internal detail never leaks.
	assert.NotContains(t, resp.Error.Message, "pg down")
}

func TestNewList(t *testing.T) {
	l := NewList([]int{1, 2}, true, 10)
	assert.Equal(t, "list", l.Object)
	assert.True(t, l.HasMore)
	assert.Equal(t, int64(10), l.TotalCount)
}
