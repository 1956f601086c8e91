package handler

import (
	"errors"
	"net/http"

	"github.com/club19/salesos/internal/domain/shared"
	"github.com/club19/salesos/internal/interfaces/http/dto"
	"github.com/club19/salesos/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// requestIDKey is where middleware.RequestID leaves the id
const requestIDKey = "request_id"

// anonymousOperator is recorded when a change arrives without a token
const anonymousOperator = "api"

// BaseHandler writes the dto.Response envelope for the ledger handlers
type BaseHandler struct{}

func getRequestID(c *gin.Context) string {
	if id := c.GetString(requestIDKey); id != "" {
		return id
	}
	return c.GetHeader(middleware.RequestIDHeader)
}

// getOperator names the caller in audit fields
func getOperator(c *gin.Context) string {
	if op := middleware.Operator(c); op != "" {
		return op
	}
	return anonymousOperator
}

func (h *BaseHandler) parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidInput, "Invalid "+name+" format")
		return uuid.Nil, false
	}
	return id, true
}

// Success writes 200 with data
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.OK(data))
}

// SuccessWithMeta writes 200 with one page of a list
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.Paged(data, total, page, pageSize))
}

// Error writes an error envelope with an explicit status
func (h *BaseHandler) Error(c *gin.Context, status int, code, message string) {
	c.JSON(status, dto.Fail(code, message, getRequestID(c)))
}

// UnprocessableEntity writes 422, used when a request is well formed but the
// sale cannot accept it
func (h *BaseHandler) UnprocessableEntity(c *gin.Context, code, message string) {
	h.Error(c, http.StatusUnprocessableEntity, code, message)
}

// HandleError maps a DomainError anywhere in err's chain to its status and
// code. Any other error becomes a 500 whose message hides the cause.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	var domainErr *shared.DomainError
	if !errors.As(err, &domainErr) {
		h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, "An unexpected error occurred")
		return
	}
	code := dto.NormalizeErrorCode(domainErr.Code)
	h.Error(c, dto.GetHTTPStatus(code), code, domainErr.Message)
}
