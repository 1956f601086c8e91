package ledger

import (
	"github.com/club19/salesos/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeSale = "Sale"

// Event type constants
const (
	EventTypeSaleImported      = "SaleImported"
	EventTypeSaleStatusChanged = "SaleStatusChanged"
)

// SaleImportedEvent is raised when reconciliation creates a sale from an unmatched invoice
type SaleImportedEvent struct {
	shared.BaseDomainEvent
	SaleID            uuid.UUID       `json:"sale_id"`
	ExternalInvoiceID string          `json:"external_invoice_id"`
	InvoiceNumber     string          `json:"invoice_number"`
	BuyerName         string          `json:"buyer_name"`
	AmountIncTax      decimal.Decimal `json:"amount_inc_tax"`
}

// NewSaleImportedEvent creates a new SaleImportedEvent
func NewSaleImportedEvent(s *Sale) *SaleImportedEvent {
	return &SaleImportedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeSaleImported, AggregateTypeSale, s.ID),
		SaleID:            s.ID,
		ExternalInvoiceID: s.ExternalID(),
		InvoiceNumber:     s.InvoiceNumber,
		BuyerName:         s.BuyerName,
		AmountIncTax:      s.AmountIncTax,
	}
}

// EventType returns the event type name
func (e *SaleImportedEvent) EventType() string {
	return EventTypeSaleImported
}

// SaleStatusChangedEvent is raised on every successful lifecycle transition
type SaleStatusChangedEvent struct {
	shared.BaseDomainEvent
	SaleID    uuid.UUID `json:"sale_id"`
	Reference string    `json:"reference"`
	From      Status    `json:"from"`
	To        Status    `json:"to"`
	Actor     string    `json:"actor,omitempty"`
}

// NewSaleStatusChangedEvent creates a new SaleStatusChangedEvent
func NewSaleStatusChangedEvent(s *Sale, from, to Status, actor string) *SaleStatusChangedEvent {
	return &SaleStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSaleStatusChanged, AggregateTypeSale, s.ID),
		SaleID:          s.ID,
		Reference:       s.Reference,
		From:            from,
		To:              to,
		Actor:           actor,
	}
}

// EventType returns the event type name
func (e *SaleStatusChangedEvent) EventType() string {
	return EventTypeSaleStatusChanged
}
