package ledger

import (
	"fmt"
	"time"
)

// TransitionContext carries caller-supplied data for a transition
type TransitionContext struct {
	// ExternalPaidDate, when set, is used as the paid date instead of now.
	ExternalPaidDate *time.Time
	Actor            string
	Reason           string
	Now              func() time.Time
}

func (c TransitionContext) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// TransitionResult is the outcome of Transition. It never carries a panic or
// an error value; failures are described by OK=false and Error.
type TransitionResult struct {
	OK    bool
	From  Status
	To    Status
	Error string
	// ErrorEntry is set on failure and must be appended to the error log by the caller.
	ErrorEntry *ErrorEntry
}

type sideEffect func(s *Sale, at time.Time, c TransitionContext)

// sideEffects maps a target status to the fields it sets. Statuses absent
// from the table have no side effects.
var sideEffects = map[Status]sideEffect{
	StatusPaid: func(s *Sale, at time.Time, c TransitionContext) {
		paid := at
		if c.ExternalPaidDate != nil {
			paid = *c.ExternalPaidDate
		}
		s.PaidDate = &paid
	},
	StatusLocked: func(s *Sale, at time.Time, _ TransitionContext) {
		s.CommissionLocked = true
		s.CommissionLockedAt = &at
	},
	StatusCommissionPaid: func(s *Sale, at time.Time, _ TransitionContext) {
		s.CommissionPaid = true
		s.CommissionPaidAt = &at
	},
}

// Transition moves sale to next when the lifecycle table allows it.
// An invalid transition leaves the status untouched, flags the sale and
// returns a medium-severity lifecycle ErrorEntry for the caller to persist.
func Transition(sale *Sale, next Status, c TransitionContext) TransitionResult {
	from := sale.Status
	res := TransitionResult{From: from, To: next}

	if !CanTransition(from, next) {
		msg := fmt.Sprintf("invalid status transition %s -> %s for sale %s", from, next, sale.Reference)
		sale.RecordError(msg)
		res.Error = msg
		res.ErrorEntry = NewErrorEntry(SeverityMedium, ErrorSourceLifecycle, msg).
			ForSale(sale.ID).
			WithContext("from", from.String()).
			WithContext("to", next.String())
		if c.Actor != "" {
			res.ErrorEntry.WithContext("actor", c.Actor)
		}
		return res
	}

	at := c.now()
	sale.Status = next
	if apply, ok := sideEffects[next]; ok {
		apply(sale, at, c)
	}
	sale.UpdatedAt = at
	sale.AddDomainEvent(NewSaleStatusChangedEvent(sale, from, next, c.Actor))

	res.OK = true
	return res
}
