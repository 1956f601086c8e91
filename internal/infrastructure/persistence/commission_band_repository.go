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
)

const bandLockPrefix = "commission_bands:"

// GormCommissionBandRepository implements ledger.CommissionBandRepository using GORM
type GormCommissionBandRepository struct {
	db *gorm.DB
}

// NewGormCommissionBandRepository creates a new GormCommissionBandRepository
func NewGormCommissionBandRepository(db *gorm.DB) *GormCommissionBandRepository {
	return &GormCommissionBandRepository{db: db}
}

// FindByType returns the bands of a type ordered by min threshold
func (r *GormCommissionBandRepository) FindByType(ctx context.Context, bandType string) ([]ledger.CommissionBand, error) {
	var bandModels []models.CommissionBandModel
	if err := r.db.WithContext(ctx).
		Where("band_type = ?", bandType).
		Order("min_threshold ASC").
		Find(&bandModels).Error; err != nil {
		return nil, err
	}

	bands := make([]ledger.CommissionBand, len(bandModels))
	for i := range bandModels {
		bands[i] = bandModels[i].ToDomain()
	}
	return bands, nil
}

// Save validates the band against every other band of its type and stores it.
// On PostgreSQL a transaction-scoped advisory lock per band type serialises
// concurrent saves, so two overlapping bands cannot both pass validation.
func (r *GormCommissionBandRepository) Save(ctx context.Context, band *ledger.CommissionBand) error {
	if band.ID == uuid.Nil {
		band.ID = uuid.New()
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if tx.Dialector.Name() == "postgres" {
			if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", bandLockPrefix+band.BandType).Error; err != nil {
				return fmt.Errorf("acquire band lock: %w", err)
			}
		}

		var existing []models.CommissionBandModel
		if err := tx.Where("band_type = ?", band.BandType).Find(&existing).Error; err != nil {
			return err
		}

		set := make([]ledger.CommissionBand, 0, len(existing)+1)
		var stored *models.CommissionBandModel
		for i := range existing {
			if existing[i].ID == band.ID {
				stored = &existing[i]
				continue
			}
			set = append(set, existing[i].ToDomain())
		}
		set = append(set, *band)

		if err := ledger.ValidateBands(set); err != nil {
			return shared.NewDomainError("INVALID_COMMISSION_BANDS", err.Error())
		}

		model := models.CommissionBandModelFromDomain(band)
		if stored != nil {
			model.CreatedAt = stored.CreatedAt
			model.UpdatedAt = time.Now()
		}
		return tx.Save(model).Error
	})
}

// FindByID finds a band by ID; returns nil, nil when absent
func (r *GormCommissionBandRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.CommissionBand, error) {
	var model models.CommissionBandModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	band := model.ToDomain()
	return &band, nil
}

// Ensure GormCommissionBandRepository implements ledger.CommissionBandRepository
var _ ledger.CommissionBandRepository = (*GormCommissionBandRepository)(nil)
