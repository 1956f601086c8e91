package ledger

import (
	"strings"
	"time"

	"github.com/club19/salesos/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Source records how a Sale row originated
type Source string

const (
	SourceInternal   Source = "internal"
	SourceXeroImport Source = "xero_import"
	SourceAllocated  Source = "allocated"
)

// IsValid checks if the source is known
func (s Source) IsValid() bool {
	switch s {
	case SourceInternal, SourceXeroImport, SourceAllocated:
		return true
	}
	return false
}

// Sale is the ledger record of one deal
type Sale struct {
	shared.BaseAggregateRoot
	Reference     string
	SaleDate      time.Time
	BuyerID       *uuid.UUID
	BuyerName     string
	SupplierID    *uuid.UUID
	ShopperID     *uuid.UUID
	IntroducerID  *uuid.UUID
	Brand         string
	ItemTitle     string
	Currency      string
	BrandingTheme string

	// Money inputs
	AmountIncTax decimal.Decimal
	BuyPrice     decimal.Decimal
	CardFees     decimal.Decimal
	ShippingCost decimal.Decimal
	ImportVAT    decimal.Decimal
	ImportDuty   decimal.Decimal

	// Derived by the economics calculator only
	AmountExTax          decimal.Decimal
	DirectCosts          decimal.Decimal
	GrossMargin          decimal.Decimal
	CommissionableMargin decimal.Decimal

	// Commission
	CommissionAmount          decimal.Decimal
	CommissionShopperShare    decimal.Decimal
	CommissionIntroducerShare decimal.Decimal
	CommissionBandID          *uuid.UUID
	OverridePercent           *decimal.Decimal
	OverrideNotes             string
	CommissionLocked          bool
	CommissionLockedAt        *time.Time
	CommissionPaid            bool
	CommissionPaidAt          *time.Time

	// External accounting platform
	ExternalInvoiceID *string
	InvoiceNumber     string
	InvoiceURL        string
	ExternalStatus    string
	ExternalPaidDate  *time.Time

	Status          Status
	PaidDate        *time.Time
	Source          Source
	NeedsAllocation bool
	DeletedAt       *time.Time
	HasError        bool
	ErrorMessages   []string
}

// NewSale creates an internally entered sale in draft status
func NewSale(reference string, saleDate time.Time) (*Sale, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, shared.NewDomainError("INVALID_REFERENCE", "Sale reference cannot be empty")
	}
	return &Sale{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Reference:         reference,
		SaleDate:          saleDate,
		Currency:          "GBP",
		Status:            StatusDraft,
		Source:            SourceInternal,
		AmountIncTax:      decimal.Zero,
		BuyPrice:          decimal.Zero,
		CardFees:          decimal.Zero,
		ShippingCost:      decimal.Zero,
		ImportVAT:         decimal.Zero,
		ImportDuty:        decimal.Zero,
		CommissionAmount:  decimal.Zero,
		ErrorMessages:     []string{},
	}, nil
}

// ImportedInvoice carries the fields an external sales invoice actually knows
type ImportedInvoice struct {
	ExternalInvoiceID string
	InvoiceNumber     string
	InvoiceURL        string
	ExternalStatus    string
	Date              time.Time
	BuyerID           *uuid.UUID
	BuyerName         string
	Currency          string
	BrandingTheme     string
	AmountIncTax      decimal.Decimal
	Reference         string
}

// NewImportedSale creates a Sale for an external invoice that matched nothing
// in the ledger. Buy price, supplier and shopper are unknown and stay zero or
// empty until the sale is allocated.
func NewImportedSale(inv ImportedInvoice, initial Status) (*Sale, error) {
	if strings.TrimSpace(inv.ExternalInvoiceID) == "" {
		return nil, shared.NewDomainError("INVALID_EXTERNAL_ID", "External invoice ID cannot be empty")
	}
	if initial != StatusDraft && initial != StatusInvoiced {
		return nil, shared.NewDomainError("INVALID_STATE", "Imported sales start as draft or invoiced")
	}

	reference := inv.Reference
	if reference == "" {
		reference = inv.InvoiceNumber
	}
	if reference == "" {
		reference = inv.ExternalInvoiceID
	}

	sale, err := NewSale(reference, inv.Date)
	if err != nil {
		return nil, err
	}

	externalID := inv.ExternalInvoiceID
	sale.ExternalInvoiceID = &externalID
	sale.InvoiceNumber = inv.InvoiceNumber
	sale.InvoiceURL = inv.InvoiceURL
	sale.ExternalStatus = inv.ExternalStatus
	sale.BuyerID = inv.BuyerID
	sale.BuyerName = inv.BuyerName
	sale.BrandingTheme = inv.BrandingTheme
	sale.AmountIncTax = RoundMoney(inv.AmountIncTax)
	if inv.Currency != "" {
		sale.Currency = inv.Currency
	}
	sale.Status = initial
	sale.Source = SourceXeroImport
	sale.NeedsAllocation = true

	sale.AddDomainEvent(NewSaleImportedEvent(sale))
	return sale, nil
}

// EconomicsInput builds the calculator input from the sale's money fields
func (s *Sale) EconomicsInput() EconomicsInput {
	return EconomicsInput{
		AmountIncTax: s.AmountIncTax,
		BuyPrice:     s.BuyPrice,
		CardFees:     s.CardFees,
		ShippingCost: s.ShippingCost,
		ImportVAT:    s.ImportVAT,
		ImportDuty:   s.ImportDuty,
		SchemeTag:    s.BrandingTheme,
	}
}

// ApplyEconomics stores the derived margin figures
func (s *Sale) ApplyEconomics(e Economics) {
	s.AmountExTax = e.AmountExTax
	s.DirectCosts = e.DirectCosts
	s.GrossMargin = e.GrossMargin
	s.CommissionableMargin = e.CommissionableMargin
	s.Touch(time.Now())
}

// ApplyCommission stores the commission outcome. It is refused once commission is locked.
func (s *Sale) ApplyCommission(r CommissionResult) error {
	if s.CommissionLocked {
		return shared.NewDomainError("COMMISSION_LOCKED", "Commission is locked and cannot be recalculated")
	}
	s.CommissionAmount = r.Amount
	s.CommissionShopperShare = r.ShopperShare
	s.CommissionIntroducerShare = r.IntroducerShare
	s.CommissionBandID = r.BandID
	if msgs := r.Messages(); len(msgs) > 0 && (!r.OK || r.Amount.IsZero()) {
		s.RecordError(msgs...)
	}
	s.Touch(time.Now())
	return nil
}

// SetOverride records an administrative commission override
func (s *Sale) SetOverride(percent decimal.Decimal, notes string) {
	s.OverridePercent = &percent
	s.OverrideNotes = notes
	s.Touch(time.Now())
}

// ApplyExternalState mirrors the platform's view of the invoice. Only
// externally sourced fields are touched; it reports whether anything changed.
func (s *Sale) ApplyExternalState(status string, paidDate *time.Time, number, url string) bool {
	changed := false
	if status != "" && status != s.ExternalStatus {
		s.ExternalStatus = status
		changed = true
	}
	if paidDate != nil && s.ExternalPaidDate == nil {
		d := *paidDate
		s.ExternalPaidDate = &d
		changed = true
	}
	if s.InvoiceNumber == "" && number != "" {
		s.InvoiceNumber = number
		changed = true
	}
	if s.InvoiceURL == "" && url != "" {
		s.InvoiceURL = url
		changed = true
	}
	if changed {
		s.Touch(time.Now())
	}
	return changed
}

// LinkExternalInvoice attaches an external invoice id to a sale matched by
// invoice number. An existing link is never replaced.
func (s *Sale) LinkExternalInvoice(externalID string) bool {
	if s.ExternalInvoiceID != nil || strings.TrimSpace(externalID) == "" {
		return false
	}
	s.ExternalInvoiceID = &externalID
	s.Touch(time.Now())
	return true
}

// RecordError flags the sale and appends messages
func (s *Sale) RecordError(messages ...string) {
	if len(messages) == 0 {
		return
	}
	s.HasError = true
	s.ErrorMessages = append(s.ErrorMessages, messages...)
	s.Touch(time.Now())
}

// SoftDelete marks the sale deleted. Sales are never hard-deleted.
func (s *Sale) SoftDelete() {
	if s.DeletedAt != nil {
		return
	}
	now := time.Now()
	s.DeletedAt = &now
	s.UpdatedAt = now
}

// IsDeleted reports whether the sale has been soft-deleted
func (s *Sale) IsDeleted() bool {
	return s.DeletedAt != nil
}

// ExternalID returns the external invoice id or the empty string
func (s *Sale) ExternalID() string {
	if s.ExternalInvoiceID == nil {
		return ""
	}
	return *s.ExternalInvoiceID
}
