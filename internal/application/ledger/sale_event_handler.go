package ledger

import (
	"context"
	"fmt"

	"github.com/club19/salesos/internal/domain/ledger"
	"github.com/club19/salesos/internal/domain/shared"
	"go.uber.org/zap"
)

// AllocationNotifier tells operators that an imported sale needs its buy
// side allocated
type AllocationNotifier interface {
	NotifyNeedsAllocation(ctx context.Context, notification AllocationNotification) error
}

// AllocationNotification describes a sale waiting for allocation
type AllocationNotification struct {
	SaleID            string `json:"sale_id"`
	ExternalInvoiceID string `json:"external_invoice_id"`
	InvoiceNumber     string `json:"invoice_number"`
	BuyerName         string `json:"buyer_name"`
	AmountIncTax      string `json:"amount_inc_tax"`
}

// SaleEventHandler reacts to sale events published after a sale is stored
type SaleEventHandler struct {
	logger   *zap.Logger
	notifier AllocationNotifier
}

// NewSaleEventHandler creates a new SaleEventHandler
func NewSaleEventHandler(logger *zap.Logger) *SaleEventHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SaleEventHandler{logger: logger}
}

// WithNotifier sets the notifier used for imported sales
func (h *SaleEventHandler) WithNotifier(notifier AllocationNotifier) *SaleEventHandler {
	h.notifier = notifier
	return h
}

// EventTypes returns the event types this handler is interested in
func (h *SaleEventHandler) EventTypes() []string {
	return []string{ledger.EventTypeSaleImported, ledger.EventTypeSaleStatusChanged}
}

// Handle processes sale events
func (h *SaleEventHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *ledger.SaleImportedEvent:
		return h.handleImported(ctx, e)
	case *ledger.SaleStatusChangedEvent:
		h.logger.Info("sale status changed",
			zap.String("sale_id", e.SaleID.String()),
			zap.String("reference", e.Reference),
			zap.String("from", e.From.String()),
			zap.String("to", e.To.String()),
			zap.String("actor", e.Actor),
		)
		return nil
	default:
		h.logger.Error("unexpected event type", zap.String("actual", event.EventType()))
		return fmt.Errorf("unexpected event type: %s", event.EventType())
	}
}

func (h *SaleEventHandler) handleImported(ctx context.Context, e *ledger.SaleImportedEvent) error {
	h.logger.Info("sale imported from external invoice",
		zap.String("sale_id", e.SaleID.String()),
		zap.String("external_invoice_id", e.ExternalInvoiceID),
		zap.String("invoice_number", e.InvoiceNumber),
	)
	if h.notifier == nil {
		return nil
	}

	notification := AllocationNotification{
		SaleID:            e.SaleID.String(),
		ExternalInvoiceID: e.ExternalInvoiceID,
		InvoiceNumber:     e.InvoiceNumber,
		BuyerName:         e.BuyerName,
		AmountIncTax:      e.AmountIncTax.StringFixed(ledger.MoneyPlaces),
	}
	if err := h.notifier.NotifyNeedsAllocation(ctx, notification); err != nil {
		// notification failure does not fail the event
		h.logger.Error("failed to send allocation notification",
			zap.String("sale_id", notification.SaleID),
			zap.Error(err),
		)
	}
	return nil
}

// Ensure SaleEventHandler implements shared.EventHandler
var _ shared.EventHandler = (*SaleEventHandler)(nil)

// LoggingAllocationNotifier logs allocation notifications
type LoggingAllocationNotifier struct {
	logger *zap.Logger
}

// NewLoggingAllocationNotifier creates a new logging notifier
func NewLoggingAllocationNotifier(logger *zap.Logger) *LoggingAllocationNotifier {
	return &LoggingAllocationNotifier{logger: logger}
}

// NotifyNeedsAllocation logs the notification
func (n *LoggingAllocationNotifier) NotifyNeedsAllocation(_ context.Context, notification AllocationNotification) error {
	n.logger.Warn("SALE NEEDS ALLOCATION",
		zap.String("sale_id", notification.SaleID),
		zap.String("invoice_number", notification.InvoiceNumber),
		zap.String("buyer", notification.BuyerName),
		zap.String("amount_inc_tax", notification.AmountIncTax),
	)
	return nil
}

var _ AllocationNotifier = (*LoggingAllocationNotifier)(nil)
