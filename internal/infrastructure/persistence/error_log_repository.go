package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/club19/salesos/internal/domain/ledger"
	"github.com/club19/salesos/internal/domain/shared"
	"github.com/club19/salesos/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrErrorEntryAlreadyResolved is returned when resolving an entry twice
var ErrErrorEntryAlreadyResolved = shared.NewDomainError("ALREADY_RESOLVED", "Error entry is already resolved")

// GormErrorLogRepository implements the append-only ledger.ErrorLogRepository
type GormErrorLogRepository struct {
	db *gorm.DB
}

// NewGormErrorLogRepository creates a new GormErrorLogRepository
func NewGormErrorLogRepository(db *gorm.DB) *GormErrorLogRepository {
	return &GormErrorLogRepository{db: db}
}

// Append inserts a new entry. Existing entries are never overwritten.
func (r *GormErrorLogRepository) Append(ctx context.Context, entry *ledger.ErrorEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	return r.db.WithContext(ctx).Create(models.ErrorLogModelFromDomain(entry)).Error
}

// FindByID finds an entry by ID; returns nil, nil when absent
func (r *GormErrorLogRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.ErrorEntry, error) {
	var model models.ErrorLogModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// List returns a page of entries, newest first unless the filter says otherwise
func (r *GormErrorLogRepository) List(ctx context.Context, filter ledger.ErrorFilter) ([]ledger.ErrorEntry, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ErrorLogModel{})

	if filter.Source != nil {
		query = query.Where("source = ?", string(*filter.Source))
	}
	if filter.Severity != nil {
		query = query.Where("severity = ?", string(*filter.Severity))
	}
	if filter.Resolved != nil {
		query = query.Where("resolved = ?", *filter.Resolved)
	}
	if filter.SaleID != nil {
		query = query.Where("sale_id = ?", *filter.SaleID)
	}
	if filter.Since != nil {
		query = query.Where("created_at >= ?", *filter.Since)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Scopes(errorLogSort.orderBy(filter.OrderBy, filter.OrderDir))

	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var entryModels []models.ErrorLogModel
	if err := query.Find(&entryModels).Error; err != nil {
		return nil, 0, err
	}

	entries := make([]ledger.ErrorEntry, len(entryModels))
	for i := range entryModels {
		entries[i] = *entryModels[i].ToDomain()
	}
	return entries, total, nil
}

// MarkResolved is the only mutation an entry ever receives
func (r *GormErrorLogRepository) MarkResolved(ctx context.Context, id uuid.UUID, by string, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.ErrorLogModel{}).
		Where("id = ? AND resolved = ?", id, false).
		Updates(map[string]any{
			"resolved":    true,
			"resolved_at": at,
			"resolved_by": by,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	existing, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return shared.ErrNotFound
	}
	return ErrErrorEntryAlreadyResolved
}

// Ensure GormErrorLogRepository implements ledger.ErrorLogRepository
var _ ledger.ErrorLogRepository = (*GormErrorLogRepository)(nil)
