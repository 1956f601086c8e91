package handler

import (
	"context"
	"time"

	appledger "github.com/club19/salesos/internal/application/ledger"
	"github.com/club19/salesos/internal/domain/ledger"
	"github.com/club19/salesos/internal/domain/shared"
	"github.com/club19/salesos/internal/interfaces/http/dto"
	"github.com/club19/salesos/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SaleReader is the read side used by SaleHandler
type SaleReader interface {
	Get(ctx context.Context, id uuid.UUID) (*ledger.Sale, error)
	List(ctx context.Context, filter ledger.SaleFilter) (shared.Paginated[ledger.Sale], error)
}

// SaleTransitioner runs lifecycle transitions
type SaleTransitioner interface {
	Transition(ctx context.Context, req appledger.TransitionRequest) (*ledger.TransitionResult, error)
	Advance(ctx context.Context, req appledger.TransitionRequest) (*appledger.AdvanceResult, error)
}

// SaleHandler serves the sales ledger to operators
type SaleHandler struct {
	BaseHandler
	reader    SaleReader
	lifecycle SaleTransitioner
}

// NewSaleHandler creates a new SaleHandler
func NewSaleHandler(reader SaleReader, lifecycle SaleTransitioner) *SaleHandler {
	return &SaleHandler{reader: reader, lifecycle: lifecycle}
}

// ListSalesQuery holds the sale list filters
type ListSalesQuery struct {
	dto.PageQuery
	Status          string `form:"status" binding:"omitempty,ledger_status"`
	Source          string `form:"source" binding:"omitempty,oneof=internal xero_import allocated"`
	NeedsAllocation *bool  `form:"needs_allocation"`
	HasError        *bool  `form:"has_error"`
}

func (q ListSalesQuery) toFilter() ledger.SaleFilter {
	f := ledger.SaleFilter{
		Filter: q.PageQuery.Filter(),
		NeedsAllocation: q.NeedsAllocation,
		HasError:        q.HasError,
	}
	if q.Status != "" {
		status := ledger.Status(q.Status)
		f.Status = &status
	}
	if q.Source != "" {
		source := ledger.Source(q.Source)
		f.Source = &source
	}
	return f
}

// TransitionRequest asks for a lifecycle move
// @Description Lifecycle transition request. With advance set, intermediate statuses are stepped through.
type TransitionRequest struct {
	Status   string     `json:"status" binding:"required,ledger_status" example:"paid"`
	PaidDate *time.Time `json:"paid_date,omitempty"`
	Reason   string     `json:"reason,omitempty" binding:"max=500" example:"Confirmed bank transfer"`
	Advance  bool       `json:"advance" example:"false"`
}

// Get godoc
// @ID           getSale
// @Summary      Get a sale
// @Tags         sales
// @Produce      json
// @Param        id  path      string  true  "Sale ID" format(uuid)
// @Success      200 {object}  APIResponse[SaleResponse]
// @Failure      400 {object}  ErrorResponse
// @Failure      404 {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /sales/{id} [get]
func (h *SaleHandler) Get(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	sale, err := h.reader.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toSaleResponse(sale))
}

// List godoc
// @ID           listSales
// @Summary      List sales
// @Description  Lists sales, optionally only those awaiting allocation or carrying error flags
// @Tags         sales
// @Produce      json
// @Param        status            query  string  false  "Lifecycle status"
// @Param        source            query  string  false  "Record source"  Enums(internal, xero_import, allocated)
// @Param        needs_allocation  query  bool    false  "Only sales awaiting allocation"
// @Param        has_error         query  bool    false  "Only sales with error flags"
// @Param        page              query  int     false  "Page number"  default(1)
// @Param        page_size         query  int     false  "Page size"    default(20)
// @Param        order_by          query  string  false  "Sort field"
// @Param        order_dir         query  string  false  "Sort direction"  Enums(asc, desc)
// @Success      200 {object}  APIResponse[[]SaleResponse]
// @Failure      400 {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /sales [get]
func (h *SaleHandler) List(c *gin.Context) {
	var q ListSalesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		middleware.AbortInvalid(c, err)
		return
	}

	page, err := h.reader.List(c.Request.Context(), q.toFilter())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	items := make([]SaleResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, toSaleResponse(&page.Items[i]))
	}
	h.SuccessWithMeta(c, items, page.Total, page.Page, page.PageSize)
}

// Transition godoc
// @ID           transitionSale
// @Summary      Move a sale through its lifecycle
// @Description  Applies one transition, or with advance set walks forward to the target.
// @Description  A rejected transition answers 422 and is also flagged on the sale and in the error log.
// @Tags         sales
// @Accept       json
// @Produce      json
// @Param        id       path  string             true  "Sale ID" format(uuid)
// @Param        request  body  TransitionRequest  true  "Target status"
// @Success      200 {object}  APIResponse[TransitionResponse]
// @Failure      400 {object}  ErrorResponse
// @Failure      404 {object}  ErrorResponse
// @Failure      409 {object}  ErrorResponse
// @Failure      422 {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /sales/{id}/transition [post]
func (h *SaleHandler) Transition(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortInvalid(c, err)
		return
	}

	ctx := c.Request.Context()
	appReq := appledger.TransitionRequest{
		SaleID:           id,
		Target:           ledger.Status(req.Status),
		ExternalPaidDate: req.PaidDate,
		Actor:            getOperator(c),
		Reason:           req.Reason,
	}

	resp := TransitionResponse{}
	if req.Advance {
		out, err := h.lifecycle.Advance(ctx, appReq)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		resp.AlreadyReached = out.AlreadyReached
		resp.Steps = toTransitionSteps(out.Steps)
		if failed := out.Failed(); failed != nil {
			h.UnprocessableEntity(c, dto.ErrCodeInvalidState, failed.Error)
			return
		}
		resp.OK = true
		if out.Sale != nil {
			sale := toSaleResponse(out.Sale)
			resp.Sale = &sale
		}
		h.Success(c, resp)
		return
	}

	result, err := h.lifecycle.Transition(ctx, appReq)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if !result.OK {
		h.UnprocessableEntity(c, dto.ErrCodeInvalidState, result.Error)
		return
	}
	resp.OK = true
	resp.Steps = toTransitionSteps([]ledger.TransitionResult{*result})
	if sale, err := h.reader.Get(ctx, id); err == nil {
		view := toSaleResponse(sale)
		resp.Sale = &view
	}
	h.Success(c, resp)
}
