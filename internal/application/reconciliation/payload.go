package reconciliation

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Event categories and types sent by the platform
const (
	EventCategoryInvoice = "INVOICE"
	EventCategoryContact = "CONTACT"

	EventTypeCreate = "CREATE"
	EventTypeUpdate = "UPDATE"
)

// WebhookPayload is the body of one webhook delivery
type WebhookPayload struct {
	Events             []WebhookEvent `json:"events"`
	FirstEventSequence int64          `json:"firstEventSequence"`
	LastEventSequence  int64          `json:"lastEventSequence"`
	Entropy            string         `json:"entropy"`
}

// IsHandshake reports whether the delivery is the intent-to-receive check,
// which carries no events
func (p *WebhookPayload) IsHandshake() bool {
	return len(p.Events) == 0
}

// WebhookEvent is a single change notification. It names a resource but
// carries none of its data; the resource is fetched separately.
type WebhookEvent struct {
	ResourceURL   string `json:"resourceUrl"`
	ResourceID    string `json:"resourceId"`
	EventDateUTC  string `json:"eventDateUtc"`
	EventType     string `json:"eventType"`
	EventCategory string `json:"eventCategory"`
	TenantID      string `json:"tenantId"`
	TenantType    string `json:"tenantType"`
}

// IsInvoice reports whether the event concerns an invoice
func (e WebhookEvent) IsInvoice() bool {
	return strings.EqualFold(e.EventCategory, EventCategoryInvoice)
}

// Key identifies the event for idempotency checks
func (e WebhookEvent) Key() string {
	return strings.Join([]string{"event", e.TenantID, e.ResourceID, strings.ToUpper(e.EventType), e.EventDateUTC}, ":")
}

// ParsePayload decodes a delivery body
func ParsePayload(body []byte) (*WebhookPayload, error) {
	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseablePayload, err)
	}
	return &payload, nil
}
