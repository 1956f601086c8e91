package handler

import (
	"context"
	"time"

	"github.com/club19/salesos/internal/domain/ledger"
	"github.com/club19/salesos/internal/domain/shared"
	"github.com/club19/salesos/internal/interfaces/http/dto"
	"github.com/club19/salesos/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ErrorLog is the error log surface exposed to operators
type ErrorLog interface {
	Get(ctx context.Context, id uuid.UUID) (*ledger.ErrorEntry, error)
	List(ctx context.Context, filter ledger.ErrorFilter) (shared.Paginated[ledger.ErrorEntry], error)
	Resolve(ctx context.Context, id uuid.UUID, by string) error
}

// ErrorLogHandler lists and resolves error log entries
type ErrorLogHandler struct {
	BaseHandler
	errors ErrorLog
}

// NewErrorLogHandler creates a new ErrorLogHandler
func NewErrorLogHandler(errors ErrorLog) *ErrorLogHandler {
	return &ErrorLogHandler{errors: errors}
}

// ListErrorsQuery holds error log filters
type ListErrorsQuery struct {
	dto.PageQuery
	Source   string     `form:"source" binding:"omitempty,error_source"`
	Severity string     `form:"severity" binding:"omitempty,severity"`
	Resolved *bool      `form:"resolved"`
	SaleID   string     `form:"sale_id" binding:"omitempty,uuid"`
	Since    *time.Time `form:"since" time_format:"2006-01-02T15:04:05Z07:00"`
}

func (q ListErrorsQuery) toFilter() ledger.ErrorFilter {
	f := ledger.ErrorFilter{
		Filter: q.PageQuery.Filter(),
		Resolved: q.Resolved,
		Since:    q.Since,
	}
	if q.Source != "" {
		source := ledger.ErrorSource(q.Source)
		f.Source = &source
	}
	if q.Severity != "" {
		severity := ledger.Severity(q.Severity)
		f.Severity = &severity
	}
	if q.SaleID != "" {
		if id, err := uuid.Parse(q.SaleID); err == nil {
			f.SaleID = &id
		}
	}
	return f
}

// List godoc
// @ID           listErrors
// @Summary      List error log entries
// @Tags         errors
// @Produce      json
// @Param        source     query  string  false  "Error source"  Enums(security, validation, lifecycle, reconciliation, credential)
// @Param        severity   query  string  false  "Severity"      Enums(low, medium, high, critical)
// @Param        resolved   query  bool    false  "Resolution state"
// @Param        sale_id    query  string  false  "Sale ID" format(uuid)
// @Param        since      query  string  false  "Created at or after (RFC3339)"
// @Param        page       query  int     false  "Page number"  default(1)
// @Param        page_size  query  int     false  "Page size"    default(20)
// @Success      200 {object}  APIResponse[[]ErrorEntryResponse]
// @Failure      400 {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /errors [get]
func (h *ErrorLogHandler) List(c *gin.Context) {
	var q ListErrorsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		middleware.AbortInvalid(c, err)
		return
	}

	page, err := h.errors.List(c.Request.Context(), q.toFilter())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	items := make([]ErrorEntryResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, toErrorEntryResponse(&page.Items[i]))
	}
	h.SuccessWithMeta(c, items, page.Total, page.Page, page.PageSize)
}

// Get godoc
// @ID           getError
// @Summary      Get an error log entry
// @Tags         errors
// @Produce      json
// @Param        id  path  string  true  "Entry ID" format(uuid)
// @Success      200 {object}  APIResponse[ErrorEntryResponse]
// @Failure      404 {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /errors/{id} [get]
func (h *ErrorLogHandler) Get(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	entry, err := h.errors.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toErrorEntryResponse(entry))
}

// Resolve godoc
// @ID           resolveError
// @Summary      Mark an error log entry resolved
// @Description  The authenticated operator is recorded as the resolver. Entries resolve once.
// @Tags         errors
// @Produce      json
// @Param        id  path  string  true  "Entry ID" format(uuid)
// @Success      200 {object}  APIResponse[ErrorEntryResponse]
// @Failure      404 {object}  ErrorResponse
// @Failure      422 {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /errors/{id}/resolve [post]
func (h *ErrorLogHandler) Resolve(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if err := h.errors.Resolve(ctx, id, getOperator(c)); err != nil {
		h.HandleError(c, err)
		return
	}

	entry, err := h.errors.Get(ctx, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toErrorEntryResponse(entry))
}
