package ledger

// Status represents the lifecycle status of a Sale
type Status string

const (
	StatusDraft          Status = "draft"
	StatusInvoiced       Status = "invoiced"
	StatusPaid           Status = "paid"
	StatusOngoing        Status = "ongoing"
	StatusLocked         Status = "locked"
	StatusCommissionPaid Status = "commission_paid"
)

// transitions is the complete lifecycle graph. No transition outside this table exists.
var transitions = map[Status][]Status{
	StatusDraft:          {StatusInvoiced},
	StatusInvoiced:       {StatusPaid, StatusOngoing},
	StatusOngoing:        {StatusPaid},
	StatusPaid:           {StatusLocked},
	StatusLocked:         {StatusCommissionPaid},
	StatusCommissionPaid: {},
}

// rank orders statuses along the graph. ongoing sits between invoiced and paid.
var rank = map[Status]int{
	StatusDraft:          0,
	StatusInvoiced:       1,
	StatusOngoing:        2,
	StatusPaid:           3,
	StatusLocked:         4,
	StatusCommissionPaid: 5,
}

// IsValid checks if the status is a known lifecycle status
func (s Status) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can move to the target status
func (s Status) CanTransitionTo(target Status) bool {
	return CanTransition(s, target)
}

// CanTransition reports whether (current, next) is an edge of the lifecycle graph.
func CanTransition(current, next Status) bool {
	for _, s := range transitions[current] {
		if s == next {
			return true
		}
	}
	return false
}

// ValidNextStates returns the statuses reachable in one step from s.
func ValidNextStates(s Status) []Status {
	next := transitions[s]
	out := make([]Status, len(next))
	copy(out, next)
	return out
}

// IsTerminal reports whether s has no outgoing transitions.
func IsTerminal(s Status) bool {
	next, ok := transitions[s]
	return ok && len(next) == 0
}

// HasReached reports whether s is at or beyond target along the graph.
// Used to make external redeliveries no-ops.
func (s Status) HasReached(target Status) bool {
	if s == target {
		return true
	}
	return rank[s] >= rank[target] && !(s == StatusPaid && target == StatusOngoing)
}

// AllStatuses returns every lifecycle status in graph order
func AllStatuses() []Status {
	return []Status{StatusDraft, StatusInvoiced, StatusOngoing, StatusPaid, StatusLocked, StatusCommissionPaid}
}
