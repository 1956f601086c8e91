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

// GormCounterpartyRepository implements ledger.CounterpartyRepository using GORM
type GormCounterpartyRepository struct {
	db *gorm.DB
}

// NewGormCounterpartyRepository creates a new GormCounterpartyRepository
func NewGormCounterpartyRepository(db *gorm.DB) *GormCounterpartyRepository {
	return &GormCounterpartyRepository{db: db}
}

// FindByNormalizedName finds a counterparty by its normalised lookup key
func (r *GormCounterpartyRepository) FindByNormalizedName(ctx context.Context, kind ledger.CounterpartyKind, normalized string) (*ledger.Counterparty, error) {
	if normalized == "" {
		return nil, nil
	}
	return r.findOne(ctx, "kind = ? AND normalized_name = ?", string(kind), normalized)
}

// FindByExternalContactID finds a counterparty by its platform contact id
func (r *GormCounterpartyRepository) FindByExternalContactID(ctx context.Context, kind ledger.CounterpartyKind, contactID string) (*ledger.Counterparty, error) {
	if contactID == "" {
		return nil, nil
	}
	return r.findOne(ctx, "kind = ? AND external_contact_id = ?", string(kind), contactID)
}

func (r *GormCounterpartyRepository) findOne(ctx context.Context, query string, args ...any) (*ledger.Counterparty, error) {
	var model models.CounterpartyModel
	if err := r.db.WithContext(ctx).Where(query, args...).Order("created_at ASC").First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates a counterparty.
// A second counterparty with the same (kind, normalized name) yields shared.ErrAlreadyExists.
func (r *GormCounterpartyRepository) Save(ctx context.Context, c *ledger.Counterparty) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	c.UpdatedAt = time.Now()

	if err := r.db.WithContext(ctx).Save(models.CounterpartyModelFromDomain(c)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// Ensure GormCounterpartyRepository implements ledger.CounterpartyRepository
var _ ledger.CounterpartyRepository = (*GormCounterpartyRepository)(nil)

// GormIntroducerRepository implements ledger.IntroducerRepository using GORM
type GormIntroducerRepository struct {
	db *gorm.DB
}

// NewGormIntroducerRepository creates a new GormIntroducerRepository
func NewGormIntroducerRepository(db *gorm.DB) *GormIntroducerRepository {
	return &GormIntroducerRepository{db: db}
}

// FindByID finds an introducer by ID; returns nil, nil when absent
func (r *GormIntroducerRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Introducer, error) {
	var model models.IntroducerModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates an introducer
func (r *GormIntroducerRepository) Save(ctx context.Context, introducer *ledger.Introducer) error {
	if introducer.ID == uuid.Nil {
		introducer.ID = uuid.New()
	}
	if introducer.CreatedAt.IsZero() {
		introducer.CreatedAt = time.Now()
	}
	introducer.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Save(models.IntroducerModelFromDomain(introducer)).Error
}

// Ensure GormIntroducerRepository implements ledger.IntroducerRepository
var _ ledger.IntroducerRepository = (*GormIntroducerRepository)(nil)
