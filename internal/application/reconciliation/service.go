package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	appledger "github.com/club19/salesos/internal/application/ledger"
	"github.com/club19/salesos/internal/domain/integration"
	"github.com/club19/salesos/internal/domain/ledger"
	"github.com/club19/salesos/internal/domain/shared"
	"github.com/club19/salesos/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Reconciliation errors
var (
	ErrInvalidSignature   = errors.New("reconciliation: invalid webhook signature")
	ErrPayloadTooLarge    = errors.New("reconciliation: webhook payload too large")
	ErrUnparseablePayload = errors.New("reconciliation: unparseable webhook payload")
	ErrEventPanicked      = errors.New("reconciliation: event processing panicked")
)

const (
	// DefaultMaxPayloadBytes bounds a delivery body
	DefaultMaxPayloadBytes int64 = 1 << 20
	// DefaultIdempotencyTTL is how long delivery and event keys are remembered
	DefaultIdempotencyTTL = 24 * time.Hour

	reconciliationActor = "reconciliation"
	maxSaveAttempts     = 3
)

// DeliveryArchive stores raw delivery bodies for manual replay
type DeliveryArchive interface {
	Archive(ctx context.Context, deliveryID string, receivedAt time.Time, body []byte) (string, error)
}

// SaleAdvancer moves a sale forward along the lifecycle
type SaleAdvancer interface {
	Advance(ctx context.Context, req appledger.TransitionRequest) (*appledger.AdvanceResult, error)
}

// SalePricer derives economics and commission for a sale
type SalePricer interface {
	Price(ctx context.Context, sale *ledger.Sale) (*appledger.PricingResult, error)
}

// WebhookDelivery is one inbound HTTP delivery
type WebhookDelivery struct {
	Body      []byte
	Signature string
	// EventID is the delivery id header, if the platform sent one
	EventID string
}

// ReconciliationResult summarises one delivery
type ReconciliationResult struct {
	Received     int    `json:"received_events"`
	Processed    int    `json:"processed"`
	Created      int    `json:"created"`
	Updated      int    `json:"updated"`
	Transitioned int    `json:"transitioned"`
	Skipped      int    `json:"skipped"`
	Failed       int    `json:"failed"`
	Handshake    bool   `json:"handshake"`
	Duplicate    bool   `json:"duplicate"`
	Unparseable  bool   `json:"unparseable"`
	ArchiveKey   string `json:"archive_key,omitempty"`
}

// eventOutcome is what processing a single event did
type eventOutcome struct {
	skipped      bool
	created      bool
	updated      bool
	transitioned bool
	saleID       *uuid.UUID
}

// ReconciliationService keeps the ledger consistent with the accounting
// platform. Deliveries only name changed invoices, so every event is
// followed by a fetch of the current invoice state.
type ReconciliationService struct {
	verifier    *SignatureVerifier
	sales       ledger.SaleRepository
	platform    integration.AccountingPlatform
	auth        Authenticator
	resolver    *ContactResolver
	lifecycle   SaleAdvancer
	pricer      SalePricer
	recorder    ledger.ErrorRecorder
	publisher   shared.EventPublisher
	idempotency shared.IdempotencyStore
	archive     DeliveryArchive
	metrics     *telemetry.LedgerMetrics
	logger      *zap.Logger

	idempotencyTTL  time.Duration
	maxPayloadBytes int64
	now             func() time.Time
}

// ReconciliationServiceConfig holds dependencies for the ReconciliationService
type ReconciliationServiceConfig struct {
	WebhookKey string
	Sales      ledger.SaleRepository
	Platform   integration.AccountingPlatform
	Auth       Authenticator
	Resolver   *ContactResolver
	Lifecycle  SaleAdvancer
	Pricer     SalePricer
	Recorder   ledger.ErrorRecorder
	// Publisher, Idempotency, Archive and Metrics are optional
	Publisher       shared.EventPublisher
	Idempotency     shared.IdempotencyStore
	Archive         DeliveryArchive
	Metrics         *telemetry.LedgerMetrics
	Logger          *zap.Logger
	IdempotencyTTL  time.Duration
	MaxPayloadBytes int64
	Now             func() time.Time
}

// NewReconciliationService creates a new ReconciliationService
func NewReconciliationService(cfg ReconciliationServiceConfig) *ReconciliationService {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := cfg.IdempotencyTTL
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	maxBytes := cfg.MaxPayloadBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxPayloadBytes
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &ReconciliationService{
		verifier:        NewSignatureVerifier(cfg.WebhookKey),
		sales:           cfg.Sales,
		platform:        cfg.Platform,
		auth:            cfg.Auth,
		resolver:        cfg.Resolver,
		lifecycle:       cfg.Lifecycle,
		pricer:          cfg.Pricer,
		recorder:        cfg.Recorder,
		publisher:       cfg.Publisher,
		idempotency:     cfg.Idempotency,
		archive:         cfg.Archive,
		metrics:         cfg.Metrics,
		logger:          logger,
		idempotencyTTL:  ttl,
		maxPayloadBytes: maxBytes,
		now:             now,
	}
}

// MaxPayloadBytes returns the largest accepted delivery body
func (s *ReconciliationService) MaxPayloadBytes() int64 {
	return s.maxPayloadBytes
}

// HandleWebhook authenticates and processes one delivery. Only an
// authentication failure or an oversized body is returned as an error;
// everything else is reported in the result so the platform does not retry.
func (s *ReconciliationService) HandleWebhook(ctx context.Context, delivery WebhookDelivery) (*ReconciliationResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "reconciliation", "handle_webhook",
		telemetry.WithAttribute(telemetry.SpanAttrEventID, delivery.EventID))
	defer span.End()

	if int64(len(delivery.Body)) > s.maxPayloadBytes {
		s.metrics.RecordWebhook(ctx, telemetry.WebhookRejected)
		return nil, ErrPayloadTooLarge
	}

	if !s.verifier.Verify(delivery.Body, delivery.Signature) {
		s.metrics.RecordWebhook(ctx, telemetry.WebhookRejected)
		s.logger.Warn("Webhook signature verification failed",
			zap.String("event_id", delivery.EventID),
			zap.Int("body_size", len(delivery.Body)),
			zap.Bool("signature_present", delivery.Signature != ""))
		s.record(ctx, ledger.NewErrorEntry(ledger.SeverityHigh, ledger.ErrorSourceSecurity,
			"webhook signature verification failed").
			WithContext("event_id", delivery.EventID).
			WithContext("body_size", strconv.Itoa(len(delivery.Body))))
		telemetry.RecordError(span, ErrInvalidSignature)
		return nil, ErrInvalidSignature
	}

	result := &ReconciliationResult{}

	deliveryKey := ""
	if delivery.EventID != "" {
		deliveryKey = "delivery:" + delivery.EventID
		if s.seen(ctx, deliveryKey) {
			result.Duplicate = true
			s.metrics.RecordWebhook(ctx, telemetry.WebhookDuplicate)
			s.logger.Info("Duplicate webhook delivery ignored", zap.String("event_id", delivery.EventID))
			return result, nil
		}
	}

	result.ArchiveKey = s.archiveDelivery(ctx, delivery)

	payload, err := ParsePayload(delivery.Body)
	if err != nil {
		result.Unparseable = true
		s.metrics.RecordWebhook(ctx, telemetry.WebhookUnparseable)
		s.logger.Warn("Unparseable webhook payload", zap.String("event_id", delivery.EventID), zap.Error(err))
		s.record(ctx, ledger.NewErrorEntry(ledger.SeverityMedium, ledger.ErrorSourceReconciliation,
			"unparseable webhook payload", err.Error()).
			WithContext("event_id", delivery.EventID).
			WithContext("archive_key", result.ArchiveKey))
		return result, nil
	}

	if payload.IsHandshake() {
		result.Handshake = true
		s.metrics.RecordWebhook(ctx, telemetry.WebhookHandshake)
		s.logger.Debug("Webhook handshake accepted")
		return result, nil
	}

	result.Received = len(payload.Events)
	telemetry.SetAttribute(span, telemetry.SpanAttrEventCount, result.Received)

	for _, event := range payload.Events {
		outcome, err := s.processEventSafely(ctx, event)
		if err != nil {
			result.Failed++
			s.eventFailed(ctx, event, outcome.saleID, err)
			continue
		}
		switch {
		case outcome.skipped:
			result.Skipped++
		default:
			result.Processed++
			if outcome.created {
				result.Created++
			}
			if outcome.updated {
				result.Updated++
			}
			if outcome.transitioned {
				result.Transitioned++
			}
		}
	}

	if deliveryKey != "" && result.Failed == 0 {
		s.remember(ctx, deliveryKey)
	}

	s.metrics.RecordWebhook(ctx, telemetry.WebhookAccepted)
	s.metrics.RecordEvents(ctx, "processed", result.Processed)
	s.metrics.RecordEvents(ctx, "skipped", result.Skipped)
	s.metrics.RecordEvents(ctx, "failed", result.Failed)
	s.metrics.RecordEvents(ctx, "created", result.Created)

	s.logger.Info("Webhook delivery reconciled",
		zap.String("event_id", delivery.EventID),
		zap.Int("received", result.Received),
		zap.Int("processed", result.Processed),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("transitioned", result.Transitioned),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed))
	return result, nil
}

// processEventSafely isolates one event so a panic fails only that event
func (s *ReconciliationService) processEventSafely(ctx context.Context, event WebhookEvent) (outcome eventOutcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrEventPanicked, r)
		}
	}()
	return s.processEvent(ctx, event)
}

func (s *ReconciliationService) processEvent(ctx context.Context, event WebhookEvent) (eventOutcome, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "reconciliation", "process_event",
		telemetry.WithAttribute(telemetry.SpanAttrEventType, event.EventType),
		telemetry.WithAttribute(telemetry.SpanAttrResourceID, event.ResourceID))
	defer span.End()

	if !event.IsInvoice() {
		return eventOutcome{skipped: true}, nil
	}
	if event.ResourceID == "" {
		return eventOutcome{}, fmt.Errorf("invoice event without resource id")
	}
	eventKey := event.Key()
	if s.seen(ctx, eventKey) {
		return eventOutcome{skipped: true}, nil
	}

	invoice, err := s.fetchInvoice(ctx, event.ResourceID)
	if err != nil {
		telemetry.RecordError(span, err)
		return eventOutcome{}, err
	}
	telemetry.SetAttribute(span, telemetry.SpanAttrInvoiceNumber, invoice.InvoiceNumber)

	sale, err := s.match(ctx, invoice)
	if err != nil {
		return eventOutcome{}, err
	}

	var outcome eventOutcome
	switch {
	case sale != nil && sale.IsDeleted():
		s.logger.Info("Invoice matches a deleted sale, ignoring",
			zap.String("sale_id", sale.ID.String()),
			zap.String("invoice_id", invoice.InvoiceID))
		outcome = eventOutcome{skipped: true, saleID: &sale.ID}
	case sale != nil:
		outcome, err = s.reconcileMatched(ctx, sale, invoice)
	case !invoice.IsSalesInvoice():
		s.logger.Debug("Unmatched purchase bill skipped",
			zap.String("invoice_id", invoice.InvoiceID),
			zap.String("type", string(invoice.Type)))
		outcome = eventOutcome{skipped: true}
	case invoice.Status.IsCancelled():
		s.logger.Debug("Unmatched cancelled invoice skipped",
			zap.String("invoice_id", invoice.InvoiceID),
			zap.String("status", string(invoice.Status)))
		outcome = eventOutcome{skipped: true}
	default:
		outcome, err = s.importInvoice(ctx, invoice)
	}
	if err != nil {
		return outcome, err
	}

	s.remember(ctx, eventKey)
	return outcome, nil
}

func (s *ReconciliationService) fetchInvoice(ctx context.Context, invoiceID string) (*integration.Invoice, error) {
	var invoice *integration.Invoice
	err := s.auth.WithAuth(ctx, func(ctx context.Context, cred *integration.Credential) error {
		inv, err := s.platform.GetInvoice(ctx, cred, invoiceID)
		if err != nil {
			return err
		}
		invoice = inv
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch invoice %s: %w", invoiceID, err)
	}
	return invoice, nil
}

// match finds the ledger sale for an invoice by external id, then by number.
// The number fallback only applies to sales invoices and never claims a sale
// already linked to a different external invoice.
func (s *ReconciliationService) match(ctx context.Context, invoice *integration.Invoice) (*ledger.Sale, error) {
	sale, err := s.sales.FindByExternalInvoiceID(ctx, invoice.InvoiceID)
	if err != nil {
		return nil, fmt.Errorf("match by external id: %w", err)
	}
	if sale != nil || invoice.InvoiceNumber == "" || !invoice.IsSalesInvoice() {
		return sale, nil
	}
	sale, err = s.sales.FindByInvoiceNumber(ctx, invoice.InvoiceNumber)
	if err != nil {
		return nil, fmt.Errorf("match by invoice number: %w", err)
	}
	if sale != nil && sale.ExternalInvoiceID != nil && *sale.ExternalInvoiceID != invoice.InvoiceID {
		s.logger.Warn("Invoice number already linked to another invoice",
			zap.String("sale_id", sale.ID.String()),
			zap.String("invoice_id", invoice.InvoiceID),
			zap.String("linked_invoice_id", *sale.ExternalInvoiceID),
			zap.String("invoice_number", invoice.InvoiceNumber))
		return nil, nil
	}
	return sale, nil
}

func (s *ReconciliationService) reconcileMatched(ctx context.Context, sale *ledger.Sale, invoice *integration.Invoice) (eventOutcome, error) {
	outcome := eventOutcome{saleID: &sale.ID}

	updated, err := s.applyExternalState(ctx, sale, invoice)
	if err != nil {
		return outcome, err
	}
	outcome.updated = updated
	outcome.transitioned = s.advance(ctx, sale.ID, invoice)
	return outcome, nil
}

// applyExternalState writes the platform-owned fields under the version
// lock, reloading the sale on a conflict
func (s *ReconciliationService) applyExternalState(ctx context.Context, sale *ledger.Sale, invoice *integration.Invoice) (bool, error) {
	var paidDate *time.Time
	if invoice.Status.IsPaid() {
		paidDate = invoice.FullyPaidOnDate
	}

	for attempt := 1; ; attempt++ {
		linked := sale.LinkExternalInvoice(invoice.InvoiceID)
		changed := sale.ApplyExternalState(string(invoice.Status), paidDate, invoice.InvoiceNumber, invoice.URL)
		if !linked && !changed {
			return false, nil
		}

		err := s.sales.SaveWithLock(ctx, sale)
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, shared.ErrConcurrencyConflict) || attempt >= maxSaveAttempts {
			return false, fmt.Errorf("save external state: %w", err)
		}

		reloaded, ferr := s.sales.FindByID(ctx, sale.ID)
		if ferr != nil {
			return false, ferr
		}
		if reloaded == nil {
			return false, appledger.ErrSaleNotFound
		}
		*sale = *reloaded
	}
}

// targetStatus maps the platform's invoice status onto the lifecycle
func targetStatus(status integration.InvoiceStatus) (ledger.Status, bool) {
	switch status {
	case integration.InvoiceStatusAuthorised:
		return ledger.StatusInvoiced, true
	case integration.InvoiceStatusPaid:
		return ledger.StatusPaid, true
	}
	return "", false
}

// advance moves the sale towards the status implied by the invoice. A
// failure is recorded but never fails the event.
func (s *ReconciliationService) advance(ctx context.Context, saleID uuid.UUID, invoice *integration.Invoice) bool {
	target, ok := targetStatus(invoice.Status)
	if !ok || s.lifecycle == nil {
		return false
	}

	req := appledger.TransitionRequest{
		SaleID: saleID,
		Target: target,
		Actor:  reconciliationActor,
		Reason: "external invoice " + string(invoice.Status),
	}
	if target == ledger.StatusPaid {
		req.ExternalPaidDate = invoice.FullyPaidOnDate
	}

	result, err := s.lifecycle.Advance(ctx, req)
	if err != nil {
		s.logger.Warn("Lifecycle advance failed",
			zap.String("sale_id", saleID.String()),
			zap.String("target", target.String()),
			zap.Error(err))
		s.record(ctx, ledger.NewErrorEntry(ledger.SeverityMedium, ledger.ErrorSourceReconciliation,
			"lifecycle advance failed", err.Error()).
			ForSale(saleID).
			WithContext("target", target.String()).
			WithContext("invoice_id", invoice.InvoiceID))
		return false
	}
	return result.Transitioned()
}

// importInvoice creates a needs-allocation sale for an unmatched sales invoice
func (s *ReconciliationService) importInvoice(ctx context.Context, invoice *integration.Invoice) (eventOutcome, error) {
	imported := ledger.ImportedInvoice{
		ExternalInvoiceID: invoice.InvoiceID,
		InvoiceNumber:     invoice.InvoiceNumber,
		InvoiceURL:        invoice.URL,
		ExternalStatus:    string(invoice.Status),
		Date:              invoice.Date,
		BuyerName:         invoice.Contact.Name,
		Currency:          invoice.CurrencyCode,
		BrandingTheme:     schemeTag(invoice),
		AmountIncTax:      invoice.Total,
		Reference:         invoice.Reference,
	}
	if imported.Date.IsZero() {
		imported.Date = s.now()
	}

	if s.resolver != nil {
		buyer, err := s.resolver.ResolveBuyer(ctx, invoice.Contact)
		if err != nil {
			return eventOutcome{}, err
		}
		if buyer != nil {
			imported.BuyerID = &buyer.ID
			if imported.BuyerName == "" {
				imported.BuyerName = buyer.Name
			}
		}
	}

	initial := ledger.StatusInvoiced
	if invoice.Status == integration.InvoiceStatusDraft || invoice.Status == integration.InvoiceStatusSubmitted {
		initial = ledger.StatusDraft
	}

	sale, err := ledger.NewImportedSale(imported, initial)
	if err != nil {
		return eventOutcome{}, err
	}
	if invoice.Status.IsPaid() {
		sale.ApplyExternalState("", invoice.FullyPaidOnDate, "", "")
	}

	var pricing *appledger.PricingResult
	if s.pricer != nil {
		if pricing, err = s.pricer.Price(ctx, sale); err != nil {
			return eventOutcome{}, fmt.Errorf("price imported sale: %w", err)
		}
	}

	stored, created, err := s.sales.CreateOrGetByExternalInvoiceID(ctx, sale)
	if err != nil {
		return eventOutcome{}, fmt.Errorf("create imported sale: %w", err)
	}
	if !created {
		// A concurrent delivery created it first; reconcile against that row.
		return s.reconcileMatched(ctx, stored, invoice)
	}

	outcome := eventOutcome{created: true, saleID: &stored.ID}
	if pricing != nil && pricing.ErrorEntry != nil {
		s.record(ctx, pricing.ErrorEntry)
	}
	s.publish(ctx, sale)

	s.logger.Info("Sale imported from unmatched invoice",
		zap.String("sale_id", stored.ID.String()),
		zap.String("invoice_id", invoice.InvoiceID),
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("buyer", invoice.Contact.Name),
		zap.String("amount_inc_tax", stored.AmountIncTax.StringFixed(ledger.MoneyPlaces)))

	if invoice.Status.IsPaid() {
		outcome.transitioned = s.advance(ctx, stored.ID, invoice)
	}
	return outcome, nil
}

// schemeTag derives the tax scheme of an imported invoice. Branding theme ids
// carry no scheme, so an invoice without tax is treated as zero-rated.
func schemeTag(invoice *integration.Invoice) string {
	if invoice.TotalTax.IsZero() && invoice.Total.IsPositive() {
		return string(ledger.TaxSchemeZeroRated)
	}
	return string(ledger.TaxSchemeStandard)
}

func (s *ReconciliationService) eventFailed(ctx context.Context, event WebhookEvent, saleID *uuid.UUID, err error) {
	s.logger.Warn("Webhook event failed",
		zap.String("event_type", event.EventType),
		zap.String("event_category", event.EventCategory),
		zap.String("resource_id", event.ResourceID),
		zap.String("tenant_id", event.TenantID),
		zap.Error(err))

	severity := ledger.SeverityMedium
	if errors.Is(err, integration.ErrNotConnected) || errors.Is(err, integration.ErrReauthorizationRequired) {
		severity = ledger.SeverityHigh
	}
	entry := ledger.NewErrorEntry(severity, ledger.ErrorSourceReconciliation, err.Error()).
		WithContext("event_type", event.EventType).
		WithContext("event_category", event.EventCategory).
		WithContext("resource_id", event.ResourceID).
		WithContext("tenant_id", event.TenantID)
	if saleID != nil {
		entry.ForSale(*saleID)
	}
	s.record(ctx, entry)
}

func (s *ReconciliationService) archiveDelivery(ctx context.Context, delivery WebhookDelivery) string {
	if s.archive == nil {
		return ""
	}
	id := delivery.EventID
	if id == "" {
		id = uuid.NewString()
	}
	key, err := s.archive.Archive(ctx, id, s.now(), delivery.Body)
	if err != nil {
		s.logger.Warn("Failed to archive webhook delivery", zap.String("event_id", id), zap.Error(err))
		return ""
	}
	return key
}

func (s *ReconciliationService) seen(ctx context.Context, key string) bool {
	if s.idempotency == nil {
		return false
	}
	processed, err := s.idempotency.IsProcessed(ctx, key)
	if err != nil {
		s.logger.Warn("Idempotency check failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return processed
}

func (s *ReconciliationService) remember(ctx context.Context, key string) {
	if s.idempotency == nil {
		return
	}
	if _, err := s.idempotency.MarkProcessed(ctx, key, s.idempotencyTTL); err != nil {
		s.logger.Warn("Failed to record idempotency key", zap.String("key", key), zap.Error(err))
	}
}

func (s *ReconciliationService) record(ctx context.Context, entry *ledger.ErrorEntry) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.Record(ctx, entry); err != nil {
		s.logger.Error("Failed to record error log entry", zap.Error(err))
	}
}

func (s *ReconciliationService) publish(ctx context.Context, sale *ledger.Sale) {
	events := sale.GetDomainEvents()
	sale.ClearDomainEvents()
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Error("Failed to publish sale events", zap.Error(err))
	}
}
