package ledger

import (
	"context"
	"time"

	"github.com/club19/salesos/internal/domain/shared"
	"github.com/google/uuid"
)

// Severity of an error log entry
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// IsValid checks if the severity is known
func (s Severity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// ErrorSource identifies the component that detected a fault
type ErrorSource string

const (
	ErrorSourceSecurity       ErrorSource = "security"
	ErrorSourceValidation     ErrorSource = "validation"
	ErrorSourceLifecycle      ErrorSource = "lifecycle"
	ErrorSourceReconciliation ErrorSource = "reconciliation"
	ErrorSourceCredential     ErrorSource = "credential"
)

// IsValid checks if the source is known
func (s ErrorSource) IsValid() bool {
	switch s {
	case ErrorSourceSecurity, ErrorSourceValidation, ErrorSourceLifecycle,
		ErrorSourceReconciliation, ErrorSourceCredential:
		return true
	}
	return false
}

// ErrorEntry is an append-only record of a pipeline fault.
// Once written it changes only through Resolve.
type ErrorEntry struct {
	ID         uuid.UUID
	Severity   Severity
	Source     ErrorSource
	Messages   []string
	SaleID     *uuid.UUID
	Context    map[string]string
	CreatedAt  time.Time
	Resolved   bool
	ResolvedAt *time.Time
	ResolvedBy string
}

// NewErrorEntry creates a new unresolved error entry
func NewErrorEntry(severity Severity, source ErrorSource, messages ...string) *ErrorEntry {
	return &ErrorEntry{
		ID:        uuid.New(),
		Severity:  severity,
		Source:    source,
		Messages:  messages,
		Context:   make(map[string]string),
		CreatedAt: time.Now(),
	}
}

// ForSale links the entry to a sale
func (e *ErrorEntry) ForSale(saleID uuid.UUID) *ErrorEntry {
	e.SaleID = &saleID
	return e
}

// WithContext attaches a key/value pair useful for manual follow-up
func (e *ErrorEntry) WithContext(key, value string) *ErrorEntry {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = value
	return e
}

// Resolve marks the entry as resolved
func (e *ErrorEntry) Resolve(by string) error {
	if e.Resolved {
		return shared.NewDomainError("ALREADY_RESOLVED", "Error entry is already resolved")
	}
	now := time.Now()
	e.Resolved = true
	e.ResolvedAt = &now
	e.ResolvedBy = by
	return nil
}

// ErrorRecorder is the single write path into the error log
type ErrorRecorder interface {
	Record(ctx context.Context, entry *ErrorEntry) error
}
