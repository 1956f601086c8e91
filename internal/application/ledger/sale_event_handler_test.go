package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/club19/salesos/internal/domain/ledger"
	"github.com/club19/salesos/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockAllocationNotifier struct {
	notifications []AllocationNotification
	returnError   error
}

func (m *mockAllocationNotifier) NotifyNeedsAllocation(ctx context.Context, n AllocationNotification) error {
	if m.returnError != nil {
		return m.returnError
	}
	m.notifications = append(m.notifications, n)
	return nil
}

type unrelatedEvent struct {
	shared.BaseDomainEvent
}

func TestSaleEventHandler_EventTypes(t *testing.T) {
	handler := NewSaleEventHandler(zap.NewNop())
	assert.ElementsMatch(t, []string{ledger.EventTypeSaleImported, ledger.EventTypeSaleStatusChanged}, handler.EventTypes())
}

func TestSaleEventHandler_Handle(t *testing.T) {
	ctx := context.Background()

	sale, err := ledger.NewImportedSale(ledger.ImportedInvoice{
		ExternalInvoiceID: "inv-77",
		InvoiceNumber:     "INV-0077",
		Date:              time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		BuyerName:         "Jane Doe",
		AmountIncTax:      decimal.RequireFromString("500"),
	}, ledger.StatusInvoiced)
	require.NoError(t, err)

	t.Run("imported sale notifies operators", func(t *testing.T) {
		notifier := &mockAllocationNotifier{}
		handler := NewSaleEventHandler(zap.NewNop()).WithNotifier(notifier)

		require.NoError(t, handler.Handle(ctx, ledger.NewSaleImportedEvent(sale)))
		require.Len(t, notifier.notifications, 1)
		n := notifier.notifications[0]
		assert.Equal(t, sale.ID.String(), n.SaleID)
		assert.Equal(t, "INV-0077", n.InvoiceNumber)
		assert.Equal(t, "500.00", n.AmountIncTax)
	})

	t.Run("notifier failure does not fail the event", func(t *testing.T) {
		notifier := &mockAllocationNotifier{returnError: errors.New("smtp down")}
		handler := NewSaleEventHandler(zap.NewNop()).WithNotifier(notifier)
		assert.NoError(t, handler.Handle(ctx, ledger.NewSaleImportedEvent(sale)))
	})

	t.Run("status change is accepted", func(t *testing.T) {
		handler := NewSaleEventHandler(zap.NewNop()).WithNotifier(NewLoggingAllocationNotifier(zap.NewNop()))
		event := ledger.NewSaleStatusChangedEvent(sale, ledger.StatusInvoiced, ledger.StatusPaid, "reconciliation")
		assert.NoError(t, handler.Handle(ctx, event))
	})

	t.Run("unexpected event type", func(t *testing.T) {
		handler := NewSaleEventHandler(zap.NewNop())
		event := &unrelatedEvent{BaseDomainEvent: shared.NewBaseDomainEvent("Other", "Other", uuid.New())}
		assert.Error(t, handler.Handle(ctx, event))
	})
}
