package ledger

import (
	"context"
	"time"

	"github.com/club19/salesos/internal/domain/shared"
	"github.com/google/uuid"
)

// SaleFilter narrows sale listings
type SaleFilter struct {
	shared.Filter
	Status          *Status
	NeedsAllocation *bool
	HasError        *bool
	Source          *Source
}

// SaleRepository defines the interface for sale persistence
type SaleRepository interface {
	// FindByID finds a sale by ID; returns nil, nil when absent
	FindByID(ctx context.Context, id uuid.UUID) (*Sale, error)

	// FindByExternalInvoiceID finds a sale by its external invoice id
	FindByExternalInvoiceID(ctx context.Context, externalID string) (*Sale, error)

	// FindByInvoiceNumber finds a sale by its external invoice number
	FindByInvoiceNumber(ctx context.Context, number string) (*Sale, error)

	// List returns a page of sales and the total count
	List(ctx context.Context, filter SaleFilter) ([]Sale, int64, error)

	// Save inserts or fully updates a sale without a version check
	Save(ctx context.Context, sale *Sale) error

	// SaveWithLock updates a sale only if its version is unchanged since it was read
	SaveWithLock(ctx context.Context, sale *Sale) error

	// CreateOrGetByExternalInvoiceID inserts sale unless a row with the same
	// external invoice id exists, in which case the existing row is returned
	// and created is false.
	CreateOrGetByExternalInvoiceID(ctx context.Context, sale *Sale) (stored *Sale, created bool, err error)
}

// CommissionBandRepository defines the interface for commission band persistence
type CommissionBandRepository interface {
	// FindByType returns bands of a type ordered by min threshold
	FindByType(ctx context.Context, bandType string) ([]CommissionBand, error)

	// Save validates the full band set for the type and stores the band
	Save(ctx context.Context, band *CommissionBand) error
}

// IntroducerRepository defines the interface for introducer persistence
type IntroducerRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Introducer, error)
	Save(ctx context.Context, introducer *Introducer) error
}

// CounterpartyRepository defines the interface for buyer/supplier persistence
type CounterpartyRepository interface {
	FindByNormalizedName(ctx context.Context, kind CounterpartyKind, normalized string) (*Counterparty, error)
	FindByExternalContactID(ctx context.Context, kind CounterpartyKind, contactID string) (*Counterparty, error)
	Save(ctx context.Context, c *Counterparty) error
}

// ErrorFilter narrows error log listings
type ErrorFilter struct {
	shared.Filter
	Source   *ErrorSource
	Severity *Severity
	Resolved *bool
	SaleID   *uuid.UUID
	Since    *time.Time
}

// ErrorLogRepository is append-only: entries are never updated except to be
// marked resolved, and never deleted.
type ErrorLogRepository interface {
	Append(ctx context.Context, entry *ErrorEntry) error
	FindByID(ctx context.Context, id uuid.UUID) (*ErrorEntry, error)
	List(ctx context.Context, filter ErrorFilter) ([]ErrorEntry, int64, error)
	MarkResolved(ctx context.Context, id uuid.UUID, by string, at time.Time) error
}
