package integration

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// AccountingPlatform Errors
// ---------------------------------------------------------------------------

var (
	ErrPlatformNotConfigured   = errors.New("integration: platform not configured")
	ErrPlatformUnavailable     = errors.New("integration: platform temporarily unavailable")
	ErrPlatformRequestFailed   = errors.New("integration: platform request failed")
	ErrPlatformInvalidResponse = errors.New("integration: invalid platform response")
	ErrPlatformRateLimited     = errors.New("integration: platform rate limited")
	// ErrUnauthorized is returned by platform calls that got HTTP 401.
	// WithAuth reacts to it with a single forced refresh.
	ErrUnauthorized            = errors.New("integration: platform rejected access token")
	ErrInvoiceNotFound         = errors.New("integration: invoice not found")
	ErrContactNotFound         = errors.New("integration: contact not found")
	ErrNotConnected            = errors.New("integration: not connected")
	ErrRefreshFailed           = errors.New("integration: token refresh failed")
	ErrProbeFailed             = errors.New("integration: token probe failed")
	ErrWriterLockHeld          = errors.New("integration: credential refresh already in progress")
	ErrReauthorizationRequired = errors.New("integration: reauthorization required")
)

// ---------------------------------------------------------------------------
// Invoice
// ---------------------------------------------------------------------------

// InvoiceType distinguishes sales invoices from purchase bills
type InvoiceType string

const (
	// InvoiceTypeSales is an accounts-receivable invoice issued to a client
	InvoiceTypeSales InvoiceType = "ACCREC"
	// InvoiceTypeBill is an accounts-payable bill received from a supplier
	InvoiceTypeBill InvoiceType = "ACCPAY"
)

// InvoiceStatus is the platform's invoice status
type InvoiceStatus string

const (
	InvoiceStatusDraft      InvoiceStatus = "DRAFT"
	InvoiceStatusSubmitted  InvoiceStatus = "SUBMITTED"
	InvoiceStatusAuthorised InvoiceStatus = "AUTHORISED"
	InvoiceStatusPaid       InvoiceStatus = "PAID"
	InvoiceStatusVoided     InvoiceStatus = "VOIDED"
	InvoiceStatusDeleted    InvoiceStatus = "DELETED"
)

// NormalizeInvoiceStatus upper-cases and trims a raw status string
func NormalizeInvoiceStatus(raw string) InvoiceStatus {
	return InvoiceStatus(strings.ToUpper(strings.TrimSpace(raw)))
}

// IsPaid reports whether the status means the invoice is fully paid
func (s InvoiceStatus) IsPaid() bool {
	return s == InvoiceStatusPaid
}

// IsCancelled reports whether the invoice was voided or deleted
func (s InvoiceStatus) IsCancelled() bool {
	return s == InvoiceStatusVoided || s == InvoiceStatusDeleted
}

// Invoice is the canonical invoice as returned by the platform
type Invoice struct {
	InvoiceID       string
	InvoiceNumber   string
	Type            InvoiceType
	Status          InvoiceStatus
	Reference       string
	Contact         Contact
	Date            time.Time
	DueDate         *time.Time
	FullyPaidOnDate *time.Time
	CurrencyCode    string
	SubTotal        decimal.Decimal
	TotalTax        decimal.Decimal
	Total           decimal.Decimal
	AmountPaid      decimal.Decimal
	AmountDue       decimal.Decimal
	BrandingThemeID string
	URL             string
	UpdatedAt       time.Time
}

// IsSalesInvoice reports whether the invoice is issued to a client
func (i *Invoice) IsSalesInvoice() bool {
	return i.Type == InvoiceTypeSales
}

// Contact is a platform contact (client or supplier)
type Contact struct {
	ContactID    string
	Name         string
	EmailAddress string
}

// ---------------------------------------------------------------------------
// Tokens
// ---------------------------------------------------------------------------

// TokenSet is the result of a token endpoint exchange
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	TenantID     string
}

// ---------------------------------------------------------------------------
// AccountingPlatform port
// ---------------------------------------------------------------------------

// AccountingPlatform is the port to the external accounting platform.
// Every call is bounded by a request timeout and returns a wrapped sentinel
// error on failure; a 401 always wraps ErrUnauthorized.
type AccountingPlatform interface {
	// GetInvoice fetches an invoice by platform id
	GetInvoice(ctx context.Context, cred *Credential, invoiceID string) (*Invoice, error)

	// FindContactByName returns the first contact whose name matches ignoring case
	FindContactByName(ctx context.Context, cred *Credential, name string) (*Contact, error)

	// GetContact fetches a contact by platform id
	GetContact(ctx context.Context, cred *Credential, contactID string) (*Contact, error)

	// CreateContact creates a contact with the given name
	CreateContact(ctx context.Context, cred *Credential, name string) (*Contact, error)

	// RefreshToken redeems refreshToken at the token endpoint.
	// A 400 or 401 response wraps ErrReauthorizationRequired.
	RefreshToken(ctx context.Context, refreshToken string) (*TokenSet, error)

	// Probe performs a cheap authenticated call to confirm an access token works
	// and returns the tenant id it is connected to.
	Probe(ctx context.Context, accessToken string) (string, error)
}
