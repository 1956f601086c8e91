package models

import (
	"time"

	"github.com/club19/salesos/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SaleModel is the persistence model for the Sale aggregate
type SaleModel struct {
	AggregateModel
	Reference     string     `gorm:"type:varchar(100);not null;index"`
	SaleDate      time.Time  `gorm:"not null;index"`
	BuyerID       *uuid.UUID `gorm:"type:uuid;index"`
	BuyerName     string     `gorm:"type:varchar(255)"`
	SupplierID    *uuid.UUID `gorm:"type:uuid;index"`
	ShopperID     *uuid.UUID `gorm:"type:uuid;index"`
	IntroducerID  *uuid.UUID `gorm:"type:uuid"`
	Brand         string     `gorm:"type:varchar(100)"`
	ItemTitle     string     `gorm:"type:varchar(255)"`
	Currency      string     `gorm:"type:varchar(3);not null;default:'GBP'"`
	BrandingTheme string     `gorm:"type:varchar(100)"`

	AmountIncTax decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	BuyPrice     decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	CardFees     decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	ShippingCost decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	ImportVAT    decimal.Decimal `gorm:"column:import_vat;type:decimal(18,2);not null;default:0"`
	ImportDuty   decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`

	AmountExTax          decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	DirectCosts          decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	GrossMargin          decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	CommissionableMargin decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`

	CommissionAmount          decimal.Decimal  `gorm:"type:decimal(18,2);not null;default:0"`
	CommissionShopperShare    decimal.Decimal  `gorm:"type:decimal(18,2);not null;default:0"`
	CommissionIntroducerShare decimal.Decimal  `gorm:"type:decimal(18,2);not null;default:0"`
	CommissionBandID          *uuid.UUID       `gorm:"type:uuid"`
	OverridePercent           *decimal.Decimal `gorm:"type:decimal(6,2)"`
	OverrideNotes             string           `gorm:"type:text"`
	CommissionLocked          bool             `gorm:"not null;default:false"`
	CommissionLockedAt        *time.Time
	CommissionPaid            bool `gorm:"not null;default:false"`
	CommissionPaidAt          *time.Time

	ExternalInvoiceID *string    `gorm:"type:varchar(100);uniqueIndex:uq_sales_external_invoice_id"`
	InvoiceNumber     string     `gorm:"type:varchar(50);index"`
	InvoiceURL        string     `gorm:"column:invoice_url;type:text"`
	ExternalStatus    string     `gorm:"type:varchar(20)"`
	ExternalPaidDate  *time.Time

	Status          string     `gorm:"type:varchar(20);not null;default:'draft';index"`
	PaidDate        *time.Time
	Source          string     `gorm:"type:varchar(20);not null;default:'internal'"`
	NeedsAllocation bool       `gorm:"not null;default:false;index"`
	DeletedAt       *time.Time `gorm:"index"`
	HasError        bool       `gorm:"not null;default:false"`
	ErrorMessages   []string   `gorm:"type:text;serializer:json"`
}

// TableName returns the table name for GORM
func (SaleModel) TableName() string {
	return "sales"
}

// ToDomain converts the persistence model to a domain Sale
func (m *SaleModel) ToDomain() *ledger.Sale {
	messages := m.ErrorMessages
	if messages == nil {
		messages = []string{}
	}
	return &ledger.Sale{
		BaseAggregateRoot: m.aggregate(),
		Reference:         m.Reference,
		SaleDate:          m.SaleDate,
		BuyerID:           m.BuyerID,
		BuyerName:         m.BuyerName,
		SupplierID:        m.SupplierID,
		ShopperID:         m.ShopperID,
		IntroducerID:      m.IntroducerID,
		Brand:             m.Brand,
		ItemTitle:         m.ItemTitle,
		Currency:          m.Currency,
		BrandingTheme:     m.BrandingTheme,

		AmountIncTax: m.AmountIncTax,
		BuyPrice:     m.BuyPrice,
		CardFees:     m.CardFees,
		ShippingCost: m.ShippingCost,
		ImportVAT:    m.ImportVAT,
		ImportDuty:   m.ImportDuty,

		AmountExTax:          m.AmountExTax,
		DirectCosts:          m.DirectCosts,
		GrossMargin:          m.GrossMargin,
		CommissionableMargin: m.CommissionableMargin,

		CommissionAmount:          m.CommissionAmount,
		CommissionShopperShare:    m.CommissionShopperShare,
		CommissionIntroducerShare: m.CommissionIntroducerShare,
		CommissionBandID:          m.CommissionBandID,
		OverridePercent:           m.OverridePercent,
		OverrideNotes:             m.OverrideNotes,
		CommissionLocked:          m.CommissionLocked,
		CommissionLockedAt:        m.CommissionLockedAt,
		CommissionPaid:            m.CommissionPaid,
		CommissionPaidAt:          m.CommissionPaidAt,

		ExternalInvoiceID: m.ExternalInvoiceID,
		InvoiceNumber:     m.InvoiceNumber,
		InvoiceURL:        m.InvoiceURL,
		ExternalStatus:    m.ExternalStatus,
		ExternalPaidDate:  m.ExternalPaidDate,

		Status:          ledger.Status(m.Status),
		PaidDate:        m.PaidDate,
		Source:          ledger.Source(m.Source),
		NeedsAllocation: m.NeedsAllocation,
		DeletedAt:       m.DeletedAt,
		HasError:        m.HasError,
		ErrorMessages:   messages,
	}
}

// SaleModelFromDomain creates a persistence model from a domain Sale
func SaleModelFromDomain(s *ledger.Sale) *SaleModel {
	m := &SaleModel{
		Reference:     s.Reference,
		SaleDate:      s.SaleDate,
		BuyerID:       s.BuyerID,
		BuyerName:     s.BuyerName,
		SupplierID:    s.SupplierID,
		ShopperID:     s.ShopperID,
		IntroducerID:  s.IntroducerID,
		Brand:         s.Brand,
		ItemTitle:     s.ItemTitle,
		Currency:      s.Currency,
		BrandingTheme: s.BrandingTheme,

		AmountIncTax: s.AmountIncTax,
		BuyPrice:     s.BuyPrice,
		CardFees:     s.CardFees,
		ShippingCost: s.ShippingCost,
		ImportVAT:    s.ImportVAT,
		ImportDuty:   s.ImportDuty,

		AmountExTax:          s.AmountExTax,
		DirectCosts:          s.DirectCosts,
		GrossMargin:          s.GrossMargin,
		CommissionableMargin: s.CommissionableMargin,

		CommissionAmount:          s.CommissionAmount,
		CommissionShopperShare:    s.CommissionShopperShare,
		CommissionIntroducerShare: s.CommissionIntroducerShare,
		CommissionBandID:          s.CommissionBandID,
		OverridePercent:           s.OverridePercent,
		OverrideNotes:             s.OverrideNotes,
		CommissionLocked:          s.CommissionLocked,
		CommissionLockedAt:        s.CommissionLockedAt,
		CommissionPaid:            s.CommissionPaid,
		CommissionPaidAt:          s.CommissionPaidAt,

		ExternalInvoiceID: s.ExternalInvoiceID,
		InvoiceNumber:     s.InvoiceNumber,
		InvoiceURL:        s.InvoiceURL,
		ExternalStatus:    s.ExternalStatus,
		ExternalPaidDate:  s.ExternalPaidDate,

		Status:          string(s.Status),
		PaidDate:        s.PaidDate,
		Source:          string(s.Source),
		NeedsAllocation: s.NeedsAllocation,
		DeletedAt:       s.DeletedAt,
		HasError:        s.HasError,
		ErrorMessages:   s.ErrorMessages,
	}
	m.AggregateModel = aggregateRow(s.BaseAggregateRoot)
	return m
}
