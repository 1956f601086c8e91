package xero

import (
	"regexp"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// InvoicesResponse is the envelope returned by GET /Invoices/{id}
type InvoicesResponse struct {
	Invoices []Invoice `json:"Invoices"`
}

// Invoice mirrors the subset of the Xero invoice resource the ledger reads
type Invoice struct {
	InvoiceID       string          `json:"InvoiceID"`
	InvoiceNumber   string          `json:"InvoiceNumber"`
	Type            string          `json:"Type"`
	Status          string          `json:"Status"`
	Reference       string          `json:"Reference"`
	Contact         Contact         `json:"Contact"`
	Date            string          `json:"Date"`
	DateString      string          `json:"DateString"`
	DueDate         string          `json:"DueDate"`
	FullyPaidOnDate string          `json:"FullyPaidOnDate"`
	CurrencyCode    string          `json:"CurrencyCode"`
	SubTotal        decimal.Decimal `json:"SubTotal"`
	TotalTax        decimal.Decimal `json:"TotalTax"`
	Total           decimal.Decimal `json:"Total"`
	AmountPaid      decimal.Decimal `json:"AmountPaid"`
	AmountDue       decimal.Decimal `json:"AmountDue"`
	BrandingThemeID string          `json:"BrandingThemeID"`
	URL             string          `json:"Url"`
	UpdatedDateUTC  string          `json:"UpdatedDateUTC"`
}

// ContactsResponse is the envelope for contact reads and writes
type ContactsResponse struct {
	Contacts []Contact `json:"Contacts"`
}

// Contact mirrors the subset of the Xero contact resource the ledger reads
type Contact struct {
	ContactID    string `json:"ContactID,omitempty"`
	Name         string `json:"Name"`
	EmailAddress string `json:"EmailAddress,omitempty"`
}

// Connection is one entry of the connections endpoint
type Connection struct {
	ID         string `json:"id"`
	TenantID   string `json:"tenantId"`
	TenantType string `json:"tenantType"`
	TenantName string `json:"tenantName"`
}

// TokenResponse is the OAuth2 token endpoint response
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
}

// ErrorResponse is returned by the API on validation and auth failures
type ErrorResponse struct {
	Title        string `json:"Title"`
	Detail       string `json:"Detail"`
	Message      string `json:"Message"`
	Error        string `json:"error"`
	ErrorDetails string `json:"error_description"`
}

var msDatePattern = regexp.MustCompile(`^/Date\((-?\d+)([+-]\d{4})?\)/$`)

const isoDateLayout = "2006-01-02T15:04:05"

// parseDate accepts both the "/Date(ms+zone)/" form and the ISO DateString form.
// Empty or unparseable input yields nil.
func parseDate(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	if m := msDatePattern.FindStringSubmatch(raw); m != nil {
		ms, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return nil
		}
		t := time.UnixMilli(ms).UTC()
		return &t
	}
	for _, layout := range []string{isoDateLayout, time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
