package models

import (
	"time"

	"github.com/club19/salesos/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CommissionBandModel is the persistence model for a commission band
type CommissionBandModel struct {
	BaseModel
	BandType     string           `gorm:"type:varchar(50);not null;index"`
	MinThreshold decimal.Decimal  `gorm:"type:decimal(18,2);not null"`
	MaxThreshold *decimal.Decimal `gorm:"type:decimal(18,2)"`
	Percent      decimal.Decimal  `gorm:"type:decimal(6,2);not null"`
}

// TableName returns the table name for GORM
func (CommissionBandModel) TableName() string {
	return "commission_bands"
}

// ToDomain converts the model to a domain CommissionBand
func (m *CommissionBandModel) ToDomain() ledger.CommissionBand {
	return ledger.CommissionBand{
		ID:           m.ID,
		BandType:     m.BandType,
		MinThreshold: m.MinThreshold,
		MaxThreshold: m.MaxThreshold,
		Percent:      m.Percent,
	}
}

// CommissionBandModelFromDomain creates a model from a domain band
func CommissionBandModelFromDomain(b *ledger.CommissionBand) *CommissionBandModel {
	now := time.Now()
	return &CommissionBandModel{
		BaseModel:    BaseModel{ID: b.ID, CreatedAt: now, UpdatedAt: now},
		BandType:     b.BandType,
		MinThreshold: b.MinThreshold,
		MaxThreshold: b.MaxThreshold,
		Percent:      b.Percent,
	}
}

// IntroducerModel is the persistence model for an introducer
type IntroducerModel struct {
	BaseModel
	Name              string          `gorm:"type:varchar(255);not null"`
	CommissionPercent decimal.Decimal `gorm:"type:decimal(6,2);not null;default:0"`
}

// TableName returns the table name for GORM
func (IntroducerModel) TableName() string {
	return "introducers"
}

// ToDomain converts the model to a domain Introducer
func (m *IntroducerModel) ToDomain() *ledger.Introducer {
	return &ledger.Introducer{
		ID:                m.ID,
		Name:              m.Name,
		CommissionPercent: m.CommissionPercent,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

// IntroducerModelFromDomain creates a model from a domain Introducer
func IntroducerModelFromDomain(i *ledger.Introducer) *IntroducerModel {
	return &IntroducerModel{
		BaseModel:         BaseModel{ID: i.ID, CreatedAt: i.CreatedAt, UpdatedAt: i.UpdatedAt},
		Name:              i.Name,
		CommissionPercent: i.CommissionPercent,
	}
}

// CounterpartyModel is the persistence model for a buyer or supplier.
// (kind, normalized_name) is unique so name resolution cannot fork a duplicate.
type CounterpartyModel struct {
	BaseModel
	Kind              string `gorm:"type:varchar(20);not null;uniqueIndex:uq_counterparties_kind_name,priority:1;index:idx_counterparties_kind_contact,priority:1"`
	Name              string `gorm:"type:varchar(255);not null"`
	NormalizedName    string `gorm:"type:varchar(255);not null;uniqueIndex:uq_counterparties_kind_name,priority:2"`
	ExternalContactID string `gorm:"type:varchar(100);index:idx_counterparties_kind_contact,priority:2"`
	RequiresReview    bool   `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (CounterpartyModel) TableName() string {
	return "counterparties"
}

// ToDomain converts the model to a domain Counterparty
func (m *CounterpartyModel) ToDomain() *ledger.Counterparty {
	return &ledger.Counterparty{
		ID:                m.ID,
		Kind:              ledger.CounterpartyKind(m.Kind),
		Name:              m.Name,
		NormalizedName:    m.NormalizedName,
		ExternalContactID: m.ExternalContactID,
		RequiresReview:    m.RequiresReview,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

// CounterpartyModelFromDomain creates a model from a domain Counterparty
func CounterpartyModelFromDomain(c *ledger.Counterparty) *CounterpartyModel {
	return &CounterpartyModel{
		BaseModel:         BaseModel{ID: c.ID, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt},
		Kind:              string(c.Kind),
		Name:              c.Name,
		NormalizedName:    c.NormalizedName,
		ExternalContactID: c.ExternalContactID,
		RequiresReview:    c.RequiresReview,
	}
}

// ErrorLogModel is the persistence model for an error log entry
type ErrorLogModel struct {
	ID         uuid.UUID         `gorm:"type:uuid;primaryKey"`
	Severity   string            `gorm:"type:varchar(20);not null;index"`
	Source     string            `gorm:"type:varchar(30);not null;index"`
	Messages   []string          `gorm:"type:text;serializer:json"`
	SaleID     *uuid.UUID        `gorm:"type:uuid;index"`
	Context    map[string]string `gorm:"type:text;serializer:json"`
	CreatedAt  time.Time         `gorm:"not null;index"`
	Resolved   bool              `gorm:"not null;default:false;index"`
	ResolvedAt *time.Time
	ResolvedBy string `gorm:"type:varchar(100)"`
}

// TableName returns the table name for GORM
func (ErrorLogModel) TableName() string {
	return "error_logs"
}

// ToDomain converts the model to a domain ErrorEntry
func (m *ErrorLogModel) ToDomain() *ledger.ErrorEntry {
	ctx := m.Context
	if ctx == nil {
		ctx = make(map[string]string)
	}
	return &ledger.ErrorEntry{
		ID:         m.ID,
		Severity:   ledger.Severity(m.Severity),
		Source:     ledger.ErrorSource(m.Source),
		Messages:   m.Messages,
		SaleID:     m.SaleID,
		Context:    ctx,
		CreatedAt:  m.CreatedAt,
		Resolved:   m.Resolved,
		ResolvedAt: m.ResolvedAt,
		ResolvedBy: m.ResolvedBy,
	}
}

// ErrorLogModelFromDomain creates a model from a domain ErrorEntry
func ErrorLogModelFromDomain(e *ledger.ErrorEntry) *ErrorLogModel {
	return &ErrorLogModel{
		ID:         e.ID,
		Severity:   string(e.Severity),
		Source:     string(e.Source),
		Messages:   e.Messages,
		SaleID:     e.SaleID,
		Context:    e.Context,
		CreatedAt:  e.CreatedAt,
		Resolved:   e.Resolved,
		ResolvedAt: e.ResolvedAt,
		ResolvedBy: e.ResolvedBy,
	}
}
