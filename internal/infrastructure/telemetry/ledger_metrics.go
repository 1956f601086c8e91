package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// LedgerMetrics tracks webhook intake, reconciliation outcomes, lifecycle
// transitions and credential health. All methods are safe on a nil receiver
// so services can run without telemetry.
type LedgerMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	webhookTotal      *Counter
	eventTotal        *Counter
	transitionTotal   *Counter
	refreshTotal      *Counter
	credentialExpires *Gauge
	unresolvedErrors  *Gauge

	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	stateProvider LedgerStateProvider
}

// LedgerStateProvider supplies point-in-time values for the periodic gauges.
type LedgerStateProvider interface {
	// CredentialExpiresIn returns the time until the access token expires.
	// connected is false when no credential exists.
	CredentialExpiresIn(ctx context.Context) (d time.Duration, connected bool, err error)

	// UnresolvedErrorCount returns the number of unresolved error log entries
	UnresolvedErrorCount(ctx context.Context) (int64, error)
}

// LedgerMetricsConfig holds configuration for ledger metrics.
type LedgerMetricsConfig struct {
	Meter         metric.Meter
	Logger        *zap.Logger
	StateProvider LedgerStateProvider
}

// NewLedgerMetrics creates a new LedgerMetrics instance.
func NewLedgerMetrics(cfg LedgerMetricsConfig) (*LedgerMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	lm := &LedgerMetrics{
		meter:         cfg.Meter,
		logger:        logger,
		stopChan:      make(chan struct{}),
		stateProvider: cfg.StateProvider,
	}

	var err error
	if lm.webhookTotal, err = NewCounter(cfg.Meter,
		"salesos_webhook_deliveries_total",
		"Webhook deliveries by outcome",
		"{deliveries}",
	); err != nil {
		return nil, err
	}
	if lm.eventTotal, err = NewCounter(cfg.Meter,
		"salesos_reconciliation_events_total",
		"Reconciliation events by outcome",
		"{events}",
	); err != nil {
		return nil, err
	}
	if lm.transitionTotal, err = NewCounter(cfg.Meter,
		"salesos_lifecycle_transitions_total",
		"Lifecycle transition attempts",
		"{transitions}",
	); err != nil {
		return nil, err
	}
	if lm.refreshTotal, err = NewCounter(cfg.Meter,
		"salesos_credential_refresh_total",
		"Credential refresh attempts by outcome",
		"{refreshes}",
	); err != nil {
		return nil, err
	}
	if lm.credentialExpires, err = NewGauge(cfg.Meter,
		"salesos_credential_expires_in_seconds",
		"Seconds until the integration access token expires",
		"s",
	); err != nil {
		return nil, err
	}
	if lm.unresolvedErrors, err = NewGauge(cfg.Meter,
		"salesos_error_log_unresolved",
		"Unresolved error log entries",
		"{entries}",
	); err != nil {
		return nil, err
	}

	return lm, nil
}

// =============================================================================
// Webhook and Reconciliation Metrics
// =============================================================================

// WebhookOutcome labels a webhook delivery
type WebhookOutcome string

const (
	WebhookAccepted    WebhookOutcome = "accepted"
	WebhookRejected    WebhookOutcome = "rejected"
	WebhookDuplicate   WebhookOutcome = "duplicate"
	WebhookHandshake   WebhookOutcome = "handshake"
	WebhookUnparseable WebhookOutcome = "unparseable"
)

// RecordWebhook records one webhook delivery
func (lm *LedgerMetrics) RecordWebhook(ctx context.Context, outcome WebhookOutcome) {
	if lm == nil {
		return
	}
	lm.webhookTotal.Inc(ctx, AttrOutcome.String(string(outcome)))
}

// RecordEvents adds count events with the given outcome label
func (lm *LedgerMetrics) RecordEvents(ctx context.Context, outcome string, count int) {
	if lm == nil || count <= 0 {
		return
	}
	lm.eventTotal.Add(ctx, int64(count), AttrOutcome.String(outcome))
}

// RecordTransition records a lifecycle transition attempt
func (lm *LedgerMetrics) RecordTransition(ctx context.Context, from, to string, ok bool) {
	if lm == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "rejected"
	}
	lm.transitionTotal.Inc(ctx,
		AttrStatusFrom.String(from),
		AttrStatusTo.String(to),
		AttrOutcome.String(outcome),
	)
}

// RecordRefresh records a credential refresh attempt
func (lm *LedgerMetrics) RecordRefresh(ctx context.Context, outcome string) {
	if lm == nil {
		return
	}
	lm.refreshTotal.Inc(ctx, AttrOutcome.String(outcome))
}

// =============================================================================
// Periodic Collection
// =============================================================================

// StartPeriodicCollection starts collecting the gauge metrics every interval
// (default: 1 minute). It is non-blocking; use Stop to end collection.
func (lm *LedgerMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	if lm == nil {
		return
	}
	lm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = time.Minute
		}
		go lm.runPeriodicCollection(ctx, interval)
	})
}

func (lm *LedgerMetrics) runPeriodicCollection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lm.collect(ctx)

	for {
		select {
		case <-lm.stopChan:
			lm.logger.Info("Stopping periodic ledger metrics collection")
			return
		case <-ctx.Done():
			lm.logger.Info("Context cancelled, stopping periodic ledger metrics collection")
			return
		case <-ticker.C:
			lm.collect(ctx)
		}
	}
}

func (lm *LedgerMetrics) collect(ctx context.Context) {
	if lm.stateProvider == nil {
		lm.logger.Debug("No state provider configured, skipping ledger gauge collection")
		return
	}

	if d, connected, err := lm.stateProvider.CredentialExpiresIn(ctx); err != nil {
		lm.logger.Warn("Failed to read credential expiry for metrics", zap.Error(err))
	} else if connected {
		lm.credentialExpires.Record(ctx, int64(d.Seconds()))
	}

	if n, err := lm.stateProvider.UnresolvedErrorCount(ctx); err != nil {
		lm.logger.Warn("Failed to count unresolved errors for metrics", zap.Error(err))
	} else {
		lm.unresolvedErrors.Record(ctx, n)
	}
}

// Stop stops the periodic collection.
func (lm *LedgerMetrics) Stop() {
	if lm == nil {
		return
	}
	lm.stopOnce.Do(func() {
		close(lm.stopChan)
	})
}

// =============================================================================
// Error Types
// =============================================================================

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewLedgerMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
