package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/club19/salesos/internal/domain/shared"
	"github.com/club19/salesos/internal/interfaces/http/dto"
	"github.com/club19/salesos/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestGetRequestIDAndOperator(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	assert.Empty(t, getRequestID(c))
	assert.Equal(t, "api", getOperator(c))

	c.Request.Header.Set(middleware.RequestIDHeader, "hdr-1")
	assert.Equal(t, "hdr-1", getRequestID(c))
	c.Set(requestIDKey, "ctx-1")
	assert.Equal(t, "ctx-1", getRequestID(c))

	c.Set(middleware.JWTOperatorKey, "Sam Ops")
	assert.Equal(t, "Sam Ops", getOperator(c))
}

func TestBaseHandler_HandleError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{"sale not found", shared.NewDomainError("SALE_NOT_FOUND", "Sale not found"), http.StatusNotFound, dto.ErrCodeNotFound, "Sale not found"},
		{"wrapped conflict", fmt.Errorf("save: %w", shared.ErrConcurrencyConflict), http.StatusConflict, dto.ErrCodeConcurrencyConflict, shared.ErrConcurrencyConflict.Message},
		{"already resolved", shared.NewDomainError("ALREADY_RESOLVED", "Error already resolved"), http.StatusUnprocessableEntity, dto.ErrCodeAlreadyResolved, "Error already resolved"},
		{"invalid status", shared.NewDomainError("INVALID_STATUS", "Unknown status"), http.StatusBadRequest, dto.ErrCodeInvalidStatus, "Unknown status"},
		{"plain error hidden", fmt.Errorf("dial tcp: refused"), http.StatusInternalServerError, dto.ErrCodeInternal, "An unexpected error occurred"},
	}

	h := &BaseHandler{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			c.Set(requestIDKey, "req-7")

			h.HandleError(c, tt.err)

			assert.Equal(t, tt.status, w.Code)
			resp := decodeResponse(t, w)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.Equal(t, tt.message, resp.Error.Message)
			assert.Equal(t, "req-7", resp.Error.RequestID)
		})
	}

	t.Run("nil writes nothing", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		h.HandleError(c, nil)
		assert.Empty(t, w.Body.String())
	})
}

func TestBaseHandler_ParseIDParam(t *testing.T) {
	h := &BaseHandler{}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Params = gin.Params{{Key: "id", Value: "not-a-uuid"}}

	_, ok := h.parseIDParam(c, "id")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeInvalidInput, decodeResponse(t, w).Error.Code)
}

func TestBaseHandler_SuccessWithMeta(t *testing.T) {
	h := &BaseHandler{}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	h.SuccessWithMeta(c, []string{"a"}, 21, 2, 10)

	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, 3, resp.Meta.TotalPages)
}
