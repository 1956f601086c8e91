package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus_IsValid(t *testing.T) {
	for _, s := range AllStatuses() {
		assert.True(t, s.IsValid(), s)
	}
	assert.False(t, Status("refunded").IsValid())
	assert.False(t, Status("").IsValid())
}

func TestCanTransition(t *testing.T) {
	allowed := map[[2]Status]bool{
		{StatusDraft, StatusInvoiced}:        true,
		{StatusInvoiced, StatusPaid}:         true,
		{StatusInvoiced, StatusOngoing}:      true,
		{StatusOngoing, StatusPaid}:          true,
		{StatusPaid, StatusLocked}:           true,
		{StatusLocked, StatusCommissionPaid}: true,
	}

	for _, from := range AllStatuses() {
		for _, to := range AllStatuses() {
			t.Run(string(from)+"->"+string(to), func(t *testing.T) {
				assert.Equal(t, allowed[[2]Status{from, to}], CanTransition(from, to))
				assert.Equal(t, allowed[[2]Status{from, to}], from.CanTransitionTo(to))
			})
		}
	}
}

func TestValidNextStates(t *testing.T) {
	assert.Equal(t, []Status{StatusInvoiced}, ValidNextStates(StatusDraft))
	assert.ElementsMatch(t, []Status{StatusPaid, StatusOngoing}, ValidNextStates(StatusInvoiced))
	assert.Empty(t, ValidNextStates(StatusCommissionPaid))
	assert.Empty(t, ValidNextStates(Status("unknown")))

	// returned slice is a copy
	next := ValidNextStates(StatusDraft)
	next[0] = StatusLocked
	assert.Equal(t, []Status{StatusInvoiced}, ValidNextStates(StatusDraft))
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, IsTerminal(StatusCommissionPaid))
	for _, s := range []Status{StatusDraft, StatusInvoiced, StatusOngoing, StatusPaid, StatusLocked} {
		assert.False(t, IsTerminal(s), s)
	}
	assert.False(t, IsTerminal(Status("unknown")))
}

func TestStatus_HasReached(t *testing.T) {
	tests := []struct {
		status Status
		target Status
		want   bool
	}{
		{StatusDraft, StatusInvoiced, false},
		{StatusInvoiced, StatusInvoiced, true},
		{StatusPaid, StatusInvoiced, true},
		{StatusPaid, StatusPaid, true},
		{StatusOngoing, StatusPaid, false},
		{StatusLocked, StatusPaid, true},
		{StatusCommissionPaid, StatusPaid, true},
		{StatusPaid, StatusOngoing, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.status)+"/"+string(tt.target), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.HasReached(tt.target))
		})
	}
}
