package handler

import (
	"time"

	"github.com/club19/salesos/internal/domain/ledger"
	"github.com/club19/salesos/internal/interfaces/http/dto"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// APIResponse represents a generic API response for OpenAPI documentation
// @Description Standard API response wrapper with typed data field
type APIResponse[T any] struct {
	Success bool           `json:"success"`
	Data    T              `json:"data,omitempty"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
	Meta    *dto.Meta      `json:"meta,omitempty"`
}

// ErrorResponse represents an error API response for OpenAPI documentation
// @Description Standard error response
type ErrorResponse struct {
	Success bool           `json:"success" example:"false"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
}

// SaleResponse is the API view of a sale
// @Description Sale ledger record with derived economics and commission
type SaleResponse struct {
	ID            uuid.UUID  `json:"id"`
	Reference     string     `json:"reference" example:"C19-2026-0001"`
	SaleDate      time.Time  `json:"sale_date"`
	Status        string     `json:"status" example:"invoiced"`
	Source        string     `json:"source" example:"internal"`
	BuyerID       *uuid.UUID `json:"buyer_id,omitempty"`
	BuyerName     string     `json:"buyer_name,omitempty" example:"Jane Doe"`
	SupplierID    *uuid.UUID `json:"supplier_id,omitempty"`
	ShopperID     *uuid.UUID `json:"shopper_id,omitempty"`
	IntroducerID  *uuid.UUID `json:"introducer_id,omitempty"`
	Brand         string     `json:"brand,omitempty" example:"Hermes"`
	ItemTitle     string     `json:"item_title,omitempty" example:"Birkin 30 Togo"`
	Currency      string     `json:"currency" example:"GBP"`
	BrandingTheme string     `json:"branding_theme,omitempty"`

	AmountIncTax         decimal.Decimal `json:"amount_inc_tax" swaggertype:"string" example:"12000.00"`
	AmountExTax          decimal.Decimal `json:"amount_ex_tax" swaggertype:"string" example:"10000.00"`
	BuyPrice             decimal.Decimal `json:"buy_price" swaggertype:"string" example:"8000.00"`
	CardFees             decimal.Decimal `json:"card_fees" swaggertype:"string"`
	ShippingCost         decimal.Decimal `json:"shipping_cost" swaggertype:"string"`
	ImportVAT            decimal.Decimal `json:"import_vat" swaggertype:"string"`
	ImportDuty           decimal.Decimal `json:"import_duty" swaggertype:"string"`
	DirectCosts          decimal.Decimal `json:"direct_costs" swaggertype:"string"`
	GrossMargin          decimal.Decimal `json:"gross_margin" swaggertype:"string" example:"2000.00"`
	CommissionableMargin decimal.Decimal `json:"commissionable_margin" swaggertype:"string"`

	CommissionAmount          decimal.Decimal  `json:"commission_amount" swaggertype:"string"`
	CommissionShopperShare    decimal.Decimal  `json:"commission_shopper_share" swaggertype:"string"`
	CommissionIntroducerShare decimal.Decimal  `json:"commission_introducer_share" swaggertype:"string"`
	CommissionBandID          *uuid.UUID       `json:"commission_band_id,omitempty"`
	OverridePercent           *decimal.Decimal `json:"override_percent,omitempty" swaggertype:"string"`
	OverrideNotes             string           `json:"override_notes,omitempty"`
	CommissionLocked          bool             `json:"commission_locked"`
	CommissionLockedAt        *time.Time       `json:"commission_locked_at,omitempty"`
	CommissionPaid            bool             `json:"commission_paid"`
	CommissionPaidAt          *time.Time       `json:"commission_paid_at,omitempty"`

	ExternalInvoiceID *string    `json:"external_invoice_id,omitempty"`
	InvoiceNumber     string     `json:"invoice_number,omitempty" example:"INV-0042"`
	InvoiceURL        string     `json:"invoice_url,omitempty"`
	ExternalStatus    string     `json:"external_status,omitempty" example:"AUTHORISED"`
	PaidDate          *time.Time `json:"paid_date,omitempty"`

	NeedsAllocation bool      `json:"needs_allocation"`
	HasError        bool      `json:"has_error"`
	ErrorMessages   []string  `json:"error_messages,omitempty"`
	Version         int       `json:"version"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func toSaleResponse(s *ledger.Sale) SaleResponse {
	return SaleResponse{
		ID:            s.ID,
		Reference:     s.Reference,
		SaleDate:      s.SaleDate,
		Status:        string(s.Status),
		Source:        string(s.Source),
		BuyerID:       s.BuyerID,
		BuyerName:     s.BuyerName,
		SupplierID:    s.SupplierID,
		ShopperID:     s.ShopperID,
		IntroducerID:  s.IntroducerID,
		Brand:         s.Brand,
		ItemTitle:     s.ItemTitle,
		Currency:      s.Currency,
		BrandingTheme: s.BrandingTheme,

		AmountIncTax:         s.AmountIncTax,
		AmountExTax:          s.AmountExTax,
		BuyPrice:             s.BuyPrice,
		CardFees:             s.CardFees,
		ShippingCost:         s.ShippingCost,
		ImportVAT:            s.ImportVAT,
		ImportDuty:           s.ImportDuty,
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
		PaidDate:          s.PaidDate,

		NeedsAllocation: s.NeedsAllocation,
		HasError:        s.HasError,
		ErrorMessages:   s.ErrorMessages,
		Version:         s.Version,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

// ErrorEntryResponse is the API view of an error log entry
// @Description Error log entry
type ErrorEntryResponse struct {
	ID         uuid.UUID         `json:"id"`
	Severity   string            `json:"severity" example:"high"`
	Source     string            `json:"source" example:"reconciliation"`
	Messages   []string          `json:"messages"`
	SaleID     *uuid.UUID        `json:"sale_id,omitempty"`
	Context    map[string]string `json:"context,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	Resolved   bool              `json:"resolved"`
	ResolvedAt *time.Time        `json:"resolved_at,omitempty"`
	ResolvedBy string            `json:"resolved_by,omitempty"`
}

func toErrorEntryResponse(e *ledger.ErrorEntry) ErrorEntryResponse {
	return ErrorEntryResponse{
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

// TransitionStep is one attempted lifecycle step
type TransitionStep struct {
	OK    bool   `json:"ok"`
	From  string `json:"from" example:"invoiced"`
	To    string `json:"to" example:"paid"`
	Error string `json:"error,omitempty"`
}

// TransitionResponse describes the outcome of a transition request
// @Description Lifecycle transition outcome. A rejected step is not an HTTP error.
type TransitionResponse struct {
	OK             bool             `json:"ok"`
	AlreadyReached bool             `json:"already_reached"`
	Steps          []TransitionStep `json:"steps"`
	Sale           *SaleResponse    `json:"sale,omitempty"`
}

func toTransitionSteps(results []ledger.TransitionResult) []TransitionStep {
	steps := make([]TransitionStep, 0, len(results))
	for _, r := range results {
		steps = append(steps, TransitionStep{OK: r.OK, From: string(r.From), To: string(r.To), Error: r.Error})
	}
	return steps
}
