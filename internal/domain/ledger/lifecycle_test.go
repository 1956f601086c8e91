package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSale(t *testing.T, status Status) *Sale {
	t.Helper()
	sale, err := NewSale("C19-0001", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	sale.Status = status
	return sale
}

func fixedNow(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}

func TestTransition_InvalidLeavesStatusUnchanged(t *testing.T) {
	for _, from := range AllStatuses() {
		for _, to := range AllStatuses() {
			if CanTransition(from, to) {
				continue
			}
			t.Run(string(from)+"->"+string(to), func(t *testing.T) {
				sale := newTestSale(t, from)
				before := *sale

				res := Transition(sale, to, TransitionContext{})

				assert.False(t, res.OK)
				assert.Equal(t, from, sale.Status)
				assert.True(t, sale.HasError)
				assert.Len(t, sale.ErrorMessages, 1)
				require.NotNil(t, res.ErrorEntry)
				assert.Equal(t, SeverityMedium, res.ErrorEntry.Severity)
				assert.Equal(t, ErrorSourceLifecycle, res.ErrorEntry.Source)
				assert.Equal(t, sale.ID, *res.ErrorEntry.SaleID)

				// Only error fields moved
				assert.Equal(t, before.PaidDate, sale.PaidDate)
				assert.Equal(t, before.CommissionLocked, sale.CommissionLocked)
				assert.Equal(t, before.CommissionPaid, sale.CommissionPaid)
				assert.Empty(t, sale.GetDomainEvents())
			})
		}
	}
}

func TestTransition_PaidToCommissionPaidSkippingLocked(t *testing.T) {
	sale := newTestSale(t, StatusPaid)

	res := Transition(sale, StatusCommissionPaid, TransitionContext{Actor: "ops"})

	assert.False(t, res.OK)
	assert.Equal(t, StatusPaid, sale.Status)
	assert.False(t, sale.CommissionPaid)
	require.NotNil(t, res.ErrorEntry)
	assert.Equal(t, SeverityMedium, res.ErrorEntry.Severity)
	assert.Equal(t, "ops", res.ErrorEntry.Context["actor"])
	assert.Contains(t, res.Error, "paid -> commission_paid")
}

func TestTransition_SideEffects(t *testing.T) {
	now := time.Date(2025, 4, 2, 10, 0, 0, 0, time.UTC)

	t.Run("paid uses external paid date", func(t *testing.T) {
		sale := newTestSale(t, StatusInvoiced)
		external := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

		res := Transition(sale, StatusPaid, TransitionContext{ExternalPaidDate: &external, Now: fixedNow(now)})

		require.True(t, res.OK)
		assert.Equal(t, StatusPaid, sale.Status)
		require.NotNil(t, sale.PaidDate)
		assert.Equal(t, external, *sale.PaidDate)
	})

	t.Run("paid falls back to now", func(t *testing.T) {
		sale := newTestSale(t, StatusOngoing)

		res := Transition(sale, StatusPaid, TransitionContext{Now: fixedNow(now)})

		require.True(t, res.OK)
		require.NotNil(t, sale.PaidDate)
		assert.Equal(t, now, *sale.PaidDate)
	})

	t.Run("locked sets commission lock", func(t *testing.T) {
		sale := newTestSale(t, StatusPaid)

		res := Transition(sale, StatusLocked, TransitionContext{Now: fixedNow(now)})

		require.True(t, res.OK)
		assert.True(t, sale.CommissionLocked)
		assert.Equal(t, now, *sale.CommissionLockedAt)
	})

	t.Run("commission_paid sets commission paid", func(t *testing.T) {
		sale := newTestSale(t, StatusLocked)

		res := Transition(sale, StatusCommissionPaid, TransitionContext{Now: fixedNow(now)})

		require.True(t, res.OK)
		assert.True(t, sale.CommissionPaid)
		assert.Equal(t, now, *sale.CommissionPaidAt)
		assert.True(t, IsTerminal(sale.Status))
	})

	t.Run("invoiced and ongoing have no side effects", func(t *testing.T) {
		sale := newTestSale(t, StatusDraft)
		require.True(t, Transition(sale, StatusInvoiced, TransitionContext{}).OK)
		require.True(t, Transition(sale, StatusOngoing, TransitionContext{}).OK)

		assert.Nil(t, sale.PaidDate)
		assert.False(t, sale.CommissionLocked)
		assert.False(t, sale.CommissionPaid)
	})
}

func TestTransition_RaisesStatusChangedEvent(t *testing.T) {
	sale := newTestSale(t, StatusDraft)

	res := Transition(sale, StatusInvoiced, TransitionContext{Actor: "reconciliation"})

	require.True(t, res.OK)
	events := sale.GetDomainEvents()
	require.Len(t, events, 1)
	evt, ok := events[0].(*SaleStatusChangedEvent)
	require.True(t, ok)
	assert.Equal(t, StatusDraft, evt.From)
	assert.Equal(t, StatusInvoiced, evt.To)
	assert.Equal(t, "reconciliation", evt.Actor)
	assert.Equal(t, EventTypeSaleStatusChanged, evt.EventType())
}
