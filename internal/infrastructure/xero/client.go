package xero

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/club19/salesos/internal/domain/integration"
)

// maxResponseSize is the maximum allowed response size from the Xero API (10MB)
const maxResponseSize = 10 * 1024 * 1024

// errResourceNotFound is mapped by callers onto the resource-specific sentinel
var errResourceNotFound = errors.New("xero: resource not found")

// Client implements integration.AccountingPlatform against the Xero API
type Client struct {
	config     *Config
	httpClient *http.Client
	now        func() time.Time
}

// Ensure Client implements AccountingPlatform
var _ integration.AccountingPlatform = (*Client)(nil)

// NewClient creates a new Xero client with the given configuration
func NewClient(config *Config) (*Client, error) {
	if config == nil {
		return nil, integration.ErrPlatformNotConfigured
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout(),
		},
		now: time.Now,
	}, nil
}

// ---------------------------------------------------------------------------
// Invoice Operations
// ---------------------------------------------------------------------------

// GetInvoice retrieves a single invoice by its Xero id
func (c *Client) GetInvoice(ctx context.Context, cred *integration.Credential, invoiceID string) (*integration.Invoice, error) {
	if strings.TrimSpace(invoiceID) == "" {
		return nil, fmt.Errorf("%w: empty invoice id", integration.ErrInvoiceNotFound)
	}

	endpoint := c.config.APIBaseURL + "/Invoices/" + url.PathEscape(invoiceID)
	body, err := c.doRequest(ctx, http.MethodGet, endpoint, cred, nil)
	if err != nil {
		if errors.Is(err, errResourceNotFound) {
			return nil, fmt.Errorf("%w: %s", integration.ErrInvoiceNotFound, invoiceID)
		}
		return nil, err
	}

	var resp InvoicesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse invoice: %v", integration.ErrPlatformInvalidResponse, err)
	}
	if len(resp.Invoices) == 0 {
		return nil, fmt.Errorf("%w: %s", integration.ErrInvoiceNotFound, invoiceID)
	}

	inv := convertInvoice(&resp.Invoices[0])
	return &inv, nil
}

// ---------------------------------------------------------------------------
// Contact Operations
// ---------------------------------------------------------------------------

// FindContactByName returns the first contact whose name matches ignoring case.
// It returns integration.ErrContactNotFound when there is none.
func (c *Client) FindContactByName(ctx context.Context, cred *integration.Credential, name string) (*integration.Contact, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", integration.ErrContactNotFound)
	}

	query := url.Values{}
	query.Set("where", fmt.Sprintf(`Name=="%s"`, strings.ReplaceAll(name, `"`, `\"`)))
	endpoint := c.config.APIBaseURL + "/Contacts?" + query.Encode()

	body, err := c.doRequest(ctx, http.MethodGet, endpoint, cred, nil)
	if err != nil {
		if errors.Is(err, errResourceNotFound) {
			return nil, fmt.Errorf("%w: %s", integration.ErrContactNotFound, name)
		}
		return nil, err
	}

	var resp ContactsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse contacts: %v", integration.ErrPlatformInvalidResponse, err)
	}
	for _, ct := range resp.Contacts {
		if strings.EqualFold(strings.TrimSpace(ct.Name), name) {
			contact := convertContact(&ct)
			return &contact, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", integration.ErrContactNotFound, name)
}

// GetContact retrieves a contact by its Xero id
func (c *Client) GetContact(ctx context.Context, cred *integration.Credential, contactID string) (*integration.Contact, error) {
	endpoint := c.config.APIBaseURL + "/Contacts/" + url.PathEscape(contactID)
	body, err := c.doRequest(ctx, http.MethodGet, endpoint, cred, nil)
	if err != nil {
		if errors.Is(err, errResourceNotFound) {
			return nil, fmt.Errorf("%w: %s", integration.ErrContactNotFound, contactID)
		}
		return nil, err
	}

	var resp ContactsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse contact: %v", integration.ErrPlatformInvalidResponse, err)
	}
	if len(resp.Contacts) == 0 {
		return nil, fmt.Errorf("%w: %s", integration.ErrContactNotFound, contactID)
	}
	contact := convertContact(&resp.Contacts[0])
	return &contact, nil
}

// CreateContact creates a contact with the given name
func (c *Client) CreateContact(ctx context.Context, cred *integration.Credential, name string) (*integration.Contact, error) {
	payload, err := json.Marshal(ContactsResponse{Contacts: []Contact{{Name: name}}})
	if err != nil {
		return nil, fmt.Errorf("xero: failed to encode contact: %w", err)
	}

	endpoint := c.config.APIBaseURL + "/Contacts"
	body, err := c.doRequest(ctx, http.MethodPost, endpoint, cred, payload)
	if err != nil {
		return nil, err
	}

	var resp ContactsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse contact: %v", integration.ErrPlatformInvalidResponse, err)
	}
	if len(resp.Contacts) == 0 || resp.Contacts[0].ContactID == "" {
		return nil, fmt.Errorf("%w: contact not returned", integration.ErrPlatformInvalidResponse)
	}
	contact := convertContact(&resp.Contacts[0])
	return &contact, nil
}

// ---------------------------------------------------------------------------
// Token Operations
// ---------------------------------------------------------------------------

// RefreshToken redeems a refresh token with the refresh_token grant.
// 400 and 401 mean the grant was rejected and a human has to reauthorize.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*integration.TokenSet, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("xero: failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.config.ClientID, c.config.ClientSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrRefreshFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read token response: %v", integration.ErrRefreshFailed, err)
	}

	switch {
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("%w: HTTP %d %s", integration.ErrReauthorizationRequired, resp.StatusCode, describeError(body))
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("%w: HTTP %d %s", integration.ErrRefreshFailed, resp.StatusCode, describeError(body))
	}

	var tok TokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return nil, fmt.Errorf("%w: failed to parse token response: %v", integration.ErrRefreshFailed, err)
	}
	if tok.AccessToken == "" || tok.RefreshToken == "" {
		return nil, fmt.Errorf("%w: token response missing tokens", integration.ErrRefreshFailed)
	}

	return &integration.TokenSet{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    c.now().Add(time.Duration(tok.ExpiresIn) * time.Second).UTC(),
	}, nil
}

// Probe lists connections with the access token and returns the organisation tenant id
func (c *Client) Probe(ctx context.Context, accessToken string) (string, error) {
	body, err := c.doRequest(ctx, http.MethodGet, c.config.ConnectionsURL, &integration.Credential{AccessToken: accessToken}, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", integration.ErrProbeFailed, err)
	}

	var conns []Connection
	if err := json.Unmarshal(body, &conns); err != nil {
		return "", fmt.Errorf("%w: failed to parse connections: %v", integration.ErrProbeFailed, err)
	}
	if len(conns) == 0 {
		return "", fmt.Errorf("%w: no connected tenants", integration.ErrProbeFailed)
	}
	for _, conn := range conns {
		if strings.EqualFold(conn.TenantType, "ORGANISATION") {
			return conn.TenantID, nil
		}
	}
	return conns[0].TenantID, nil
}

// ---------------------------------------------------------------------------
// Helper Methods
// ---------------------------------------------------------------------------

// doRequest performs an authenticated request against the Xero API
func (c *Client) doRequest(ctx context.Context, method, endpoint string, cred *integration.Credential, payload []byte) ([]byte, error) {
	if cred == nil || cred.AccessToken == "" {
		return nil, integration.ErrNotConnected
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("xero: failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+cred.AccessToken)
	req.Header.Set("Accept", "application/json")
	if cred.TenantID != "" {
		req.Header.Set("xero-tenant-id", cred.TenantID)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrPlatformUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("xero: failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("%w: %s", integration.ErrUnauthorized, describeError(body))
	case resp.StatusCode == http.StatusNotFound:
		return nil, errResourceNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: retry after %s", integration.ErrPlatformRateLimited, resp.Header.Get("Retry-After"))
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: HTTP %d", integration.ErrPlatformUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("%w: HTTP %d %s", integration.ErrPlatformRequestFailed, resp.StatusCode, describeError(body))
	}

	return body, nil
}

// describeError extracts a human-readable message from an error body
func describeError(body []byte) string {
	var e ErrorResponse
	if err := json.Unmarshal(body, &e); err != nil {
		return ""
	}
	for _, s := range []string{e.Detail, e.Message, e.ErrorDetails, e.Error, e.Title} {
		if s != "" {
			return s
		}
	}
	return ""
}

func convertInvoice(x *Invoice) integration.Invoice {
	inv := integration.Invoice{
		InvoiceID:       x.InvoiceID,
		InvoiceNumber:   x.InvoiceNumber,
		Type:            integration.InvoiceType(strings.ToUpper(x.Type)),
		Status:          integration.NormalizeInvoiceStatus(x.Status),
		Reference:       x.Reference,
		Contact:         convertContact(&x.Contact),
		DueDate:         parseDate(x.DueDate),
		FullyPaidOnDate: parseDate(x.FullyPaidOnDate),
		CurrencyCode:    x.CurrencyCode,
		SubTotal:        x.SubTotal,
		TotalTax:        x.TotalTax,
		Total:           x.Total,
		AmountPaid:      x.AmountPaid,
		AmountDue:       x.AmountDue,
		BrandingThemeID: x.BrandingThemeID,
		URL:             x.URL,
	}
	if d := parseDate(x.DateString); d != nil {
		inv.Date = *d
	} else if d := parseDate(x.Date); d != nil {
		inv.Date = *d
	}
	if u := parseDate(x.UpdatedDateUTC); u != nil {
		inv.UpdatedAt = *u
	}
	return inv
}

func convertContact(x *Contact) integration.Contact {
	return integration.Contact{
		ContactID:    x.ContactID,
		Name:         strings.TrimSpace(x.Name),
		EmailAddress: x.EmailAddress,
	}
}
