package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/club19/salesos/internal/domain/integration"
	"github.com/club19/salesos/internal/domain/shared"
	"github.com/club19/salesos/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCredentialRepository implements integration.CredentialRepository using GORM
type GormCredentialRepository struct {
	db     *gorm.DB
	sealer *TokenSealer
}

// CredentialRepositoryOption configures a GormCredentialRepository
type CredentialRepositoryOption func(*GormCredentialRepository)

// WithTokenSealer encrypts the access and refresh token columns
func WithTokenSealer(sealer *TokenSealer) CredentialRepositoryOption {
	return func(r *GormCredentialRepository) {
		r.sealer = sealer
	}
}

// NewGormCredentialRepository creates a new GormCredentialRepository
func NewGormCredentialRepository(db *gorm.DB, opts ...CredentialRepositoryOption) *GormCredentialRepository {
	r := &GormCredentialRepository{db: db}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *GormCredentialRepository) sealTokens(access, refresh string) (string, string, error) {
	sealedAccess, err := r.sealer.Seal(access)
	if err != nil {
		return "", "", err
	}
	sealedRefresh, err := r.sealer.Seal(refresh)
	if err != nil {
		return "", "", err
	}
	return sealedAccess, sealedRefresh, nil
}

// FindByIdentity returns the credential or nil, nil when not connected
func (r *GormCredentialRepository) FindByIdentity(ctx context.Context, identity string) (*integration.Credential, error) {
	var model models.CredentialModel
	if err := r.db.WithContext(ctx).Where("identity = ?", identity).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	cred := model.ToDomain()
	var err error
	if cred.AccessToken, err = r.sealer.Open(cred.AccessToken); err != nil {
		return nil, err
	}
	if cred.RefreshToken, err = r.sealer.Open(cred.RefreshToken); err != nil {
		return nil, err
	}
	return cred, nil
}

// Create stores the first credential for an identity.
// A second row for the same identity yields shared.ErrAlreadyExists.
func (r *GormCredentialRepository) Create(ctx context.Context, cred *integration.Credential) error {
	if cred.ID == uuid.Nil {
		cred.ID = uuid.New()
	}
	if cred.Version == 0 {
		cred.Version = 1
	}
	model := models.CredentialModelFromDomain(cred)
	model.UpdatedAt = time.Now()
	var err error
	if model.AccessToken, model.RefreshToken, err = r.sealTokens(cred.AccessToken, cred.RefreshToken); err != nil {
		return err
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// UpdateTokens writes the rotated token set in a single statement, guarded by
// the version cred was read with. The row is locked for the duration of the
// transaction so a concurrent writer waits instead of interleaving.
func (r *GormCredentialRepository) UpdateTokens(ctx context.Context, cred *integration.Credential) error {
	access, refresh, err := r.sealTokens(cred.AccessToken, cred.RefreshToken)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.CredentialModel
		err := tx.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
			Where("identity = ?", cred.Identity).
			First(&current).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return shared.ErrNotFound
			}
			return err
		}
		if current.Version != cred.Version {
			return shared.ErrConcurrencyConflict
		}

		next := cred.Version + 1
		result := tx.Model(&models.CredentialModel{}).
			Where("id = ? AND version = ?", current.ID, cred.Version).
			Updates(map[string]any{
				"access_token":  access,
				"refresh_token": refresh,
				"expires_at":    cred.ExpiresAt,
				"tenant_id":     cred.TenantID,
				"refreshed_at":  cred.RefreshedAt,
				"version":       next,
				"updated_at":    time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}
		cred.Version = next
		return nil
	})
}

// Ensure GormCredentialRepository implements integration.CredentialRepository
var _ integration.CredentialRepository = (*GormCredentialRepository)(nil)
