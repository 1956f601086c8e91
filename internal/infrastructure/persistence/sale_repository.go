package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/club19/salesos/internal/domain/ledger"
	"github.com/club19/salesos/internal/domain/shared"
	"github.com/club19/salesos/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrExternalInvoiceIDRequired is returned when the create-or-get path is
// called for a sale that has no external invoice id to conflict on.
var ErrExternalInvoiceIDRequired = errors.New("persistence: external invoice id is required")

// GormSaleRepository implements ledger.SaleRepository using GORM
type GormSaleRepository struct {
	db *gorm.DB
}

// NewGormSaleRepository creates a new GormSaleRepository
func NewGormSaleRepository(db *gorm.DB) *GormSaleRepository {
	return &GormSaleRepository{db: db}
}

// FindByID finds a sale by its ID, including soft-deleted sales
func (r *GormSaleRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Sale, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindByExternalInvoiceID finds a sale by its accounting-platform invoice id
func (r *GormSaleRepository) FindByExternalInvoiceID(ctx context.Context, externalID string) (*ledger.Sale, error) {
	if externalID == "" {
		return nil, nil
	}
	return r.findOne(ctx, "external_invoice_id = ?", externalID)
}

// FindByInvoiceNumber finds a sale by its accounting-platform invoice number
func (r *GormSaleRepository) FindByInvoiceNumber(ctx context.Context, number string) (*ledger.Sale, error) {
	if number == "" {
		return nil, nil
	}
	return r.findOne(ctx, "invoice_number = ?", number)
}

func (r *GormSaleRepository) findOne(ctx context.Context, query string, args ...any) (*ledger.Sale, error) {
	var model models.SaleModel
	if err := r.db.WithContext(ctx).Where(query, args...).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// List returns a page of live sales and the total count matching the filter
func (r *GormSaleRepository) List(ctx context.Context, filter ledger.SaleFilter) ([]ledger.Sale, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.SaleModel{}).Where("deleted_at IS NULL")

	if filter.Status != nil {
		query = query.Where("status = ?", string(*filter.Status))
	}
	if filter.NeedsAllocation != nil {
		query = query.Where("needs_allocation = ?", *filter.NeedsAllocation)
	}
	if filter.HasError != nil {
		query = query.Where("has_error = ?", *filter.HasError)
	}
	if filter.Source != nil {
		query = query.Where("source = ?", string(*filter.Source))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Scopes(saleSort.orderBy(filter.OrderBy, filter.OrderDir))

	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var saleModels []models.SaleModel
	if err := query.Find(&saleModels).Error; err != nil {
		return nil, 0, err
	}

	sales := make([]ledger.Sale, len(saleModels))
	for i := range saleModels {
		sales[i] = *saleModels[i].ToDomain()
	}
	return sales, total, nil
}

// Save inserts or fully updates a sale without a version check
func (r *GormSaleRepository) Save(ctx context.Context, sale *ledger.Sale) error {
	model := models.SaleModelFromDomain(sale)
	return r.db.WithContext(ctx).Save(model).Error
}

// SaveWithLock writes every column of the sale only if the stored version
// still equals sale.Version, then advances sale.Version.
// Returns shared.ErrConcurrencyConflict when another writer got there first.
func (r *GormSaleRepository) SaveWithLock(ctx context.Context, sale *ledger.Sale) error {
	model := models.SaleModelFromDomain(sale)
	model.Version = sale.Version + 1
	model.UpdatedAt = time.Now()

	result := r.db.WithContext(ctx).
		Model(&models.SaleModel{}).
		Where("id = ? AND version = ?", sale.ID, sale.Version).
		Select("*").
		Omit("id", "created_at").
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}

	sale.Version = model.Version
	sale.UpdatedAt = model.UpdatedAt
	return nil
}

// CreateOrGetByExternalInvoiceID inserts the sale unless a row already holds
// its external invoice id. Concurrent creators for the same invoice all end
// up with the single stored row.
func (r *GormSaleRepository) CreateOrGetByExternalInvoiceID(ctx context.Context, sale *ledger.Sale) (*ledger.Sale, bool, error) {
	externalID := sale.ExternalID()
	if externalID == "" {
		return nil, false, ErrExternalInvoiceIDRequired
	}

	model := models.SaleModelFromDomain(sale)
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_invoice_id"}},
			DoNothing: true,
		}).
		Create(model)
	if result.Error != nil {
		return nil, false, result.Error
	}
	if result.RowsAffected > 0 {
		return sale, true, nil
	}

	existing, err := r.FindByExternalInvoiceID(ctx, externalID)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, fmt.Errorf("persistence: sale for external invoice %s conflicted but was not found", externalID)
	}
	return existing, false, nil
}

// Ensure GormSaleRepository implements ledger.SaleRepository
var _ ledger.SaleRepository = (*GormSaleRepository)(nil)
