package ledger

import (
	"context"

	"github.com/club19/salesos/internal/domain/ledger"
	"github.com/club19/salesos/internal/domain/shared"
	"github.com/google/uuid"
)

// SaleQueryService serves read-only sale lookups for the ops API
type SaleQueryService struct {
	sales ledger.SaleRepository
}

// NewSaleQueryService creates a new SaleQueryService
func NewSaleQueryService(sales ledger.SaleRepository) *SaleQueryService {
	return &SaleQueryService{sales: sales}
}

// Get returns a sale. Deleted sales are reported as not found.
func (s *SaleQueryService) Get(ctx context.Context, id uuid.UUID) (*ledger.Sale, error) {
	sale, err := s.sales.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sale == nil || sale.IsDeleted() {
		return nil, ErrSaleNotFound
	}
	return sale, nil
}

// List returns a page of sales
func (s *SaleQueryService) List(ctx context.Context, filter ledger.SaleFilter) (shared.Paginated[ledger.Sale], error) {
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	sales, total, err := s.sales.List(ctx, filter)
	if err != nil {
		return shared.Paginated[ledger.Sale]{}, err
	}
	return shared.NewPaginated(sales, total, filter.Page, filter.PageSize), nil
}
