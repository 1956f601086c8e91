package models

import (
	"time"

	"github.com/club19/salesos/internal/domain/integration"
	"github.com/google/uuid"
)

// CredentialModel is the persistence model for the integration credential.
// There is exactly one row per integration identity.
type CredentialModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Identity     string    `gorm:"type:varchar(100);not null;uniqueIndex:uq_integration_credentials_identity"`
	AccessToken  string    `gorm:"type:text;not null"`
	RefreshToken string    `gorm:"type:text;not null"`
	ExpiresAt    time.Time `gorm:"not null"`
	TenantID     string    `gorm:"type:varchar(100)"`
	ConnectedAt  time.Time `gorm:"not null"`
	RefreshedAt  *time.Time
	Version      int       `gorm:"not null;default:1"`
	UpdatedAt    time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CredentialModel) TableName() string {
	return "integration_credentials"
}

// ToDomain converts the model to a domain Credential
func (m *CredentialModel) ToDomain() *integration.Credential {
	return &integration.Credential{
		ID:           m.ID,
		Identity:     m.Identity,
		AccessToken:  m.AccessToken,
		RefreshToken: m.RefreshToken,
		ExpiresAt:    m.ExpiresAt,
		TenantID:     m.TenantID,
		ConnectedAt:  m.ConnectedAt,
		RefreshedAt:  m.RefreshedAt,
		Version:      m.Version,
	}
}

// CredentialModelFromDomain creates a model from a domain Credential
func CredentialModelFromDomain(c *integration.Credential) *CredentialModel {
	return &CredentialModel{
		ID:           c.ID,
		Identity:     c.Identity,
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		ExpiresAt:    c.ExpiresAt,
		TenantID:     c.TenantID,
		ConnectedAt:  c.ConnectedAt,
		RefreshedAt:  c.RefreshedAt,
		Version:      c.Version,
	}
}
