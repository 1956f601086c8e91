package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/club19/salesos/internal/domain/ledger"
	"github.com/club19/salesos/internal/domain/shared"
	"github.com/club19/salesos/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultMaxSaveAttempts bounds the reload-and-retry loop on version conflicts
const DefaultMaxSaveAttempts = 3

// ErrSaleNotFound is returned when a transition names an unknown sale
var ErrSaleNotFound = shared.NewDomainError("SALE_NOT_FOUND", "Sale not found")

// TransitionRequest asks for one lifecycle step
type TransitionRequest struct {
	SaleID           uuid.UUID
	Target           ledger.Status
	ExternalPaidDate *time.Time
	Actor            string
	Reason           string
}

// AdvanceResult describes how a sale was moved towards a target status
type AdvanceResult struct {
	Sale           *ledger.Sale
	Steps          []ledger.TransitionResult
	AlreadyReached bool
}

// Transitioned reports whether at least one step succeeded
func (r *AdvanceResult) Transitioned() bool {
	for _, step := range r.Steps {
		if step.OK {
			return true
		}
	}
	return false
}

// Failed returns the first failed step, if any
func (r *AdvanceResult) Failed() *ledger.TransitionResult {
	for i := range r.Steps {
		if !r.Steps[i].OK {
			return &r.Steps[i]
		}
	}
	return nil
}

// LifecycleService loads a sale, runs the lifecycle state machine on it,
// saves it under the version lock and then publishes the resulting events.
// Rejected transitions are persisted as error flags on the sale and as an
// error log entry.
type LifecycleService struct {
	sales       ledger.SaleRepository
	recorder    ledger.ErrorRecorder
	publisher   shared.EventPublisher
	metrics     *telemetry.LedgerMetrics
	logger      *zap.Logger
	maxAttempts int
	now         func() time.Time
}

// LifecycleServiceConfig holds dependencies for the LifecycleService
type LifecycleServiceConfig struct {
	Sales         ledger.SaleRepository
	ErrorRecorder ledger.ErrorRecorder
	// Publisher is optional
	Publisher   shared.EventPublisher
	Metrics     *telemetry.LedgerMetrics
	Logger      *zap.Logger
	MaxAttempts int
	Now         func() time.Time
}

// NewLifecycleService creates a new LifecycleService
func NewLifecycleService(cfg LifecycleServiceConfig) *LifecycleService {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxSaveAttempts
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &LifecycleService{
		sales:       cfg.Sales,
		recorder:    cfg.ErrorRecorder,
		publisher:   cfg.Publisher,
		metrics:     cfg.Metrics,
		logger:      logger,
		maxAttempts: attempts,
		now:         now,
	}
}

// Transition applies exactly one step. An edge missing from the lifecycle
// table is not a Go error: the result has OK=false and the failure is
// recorded on the sale and in the error log.
func (s *LifecycleService) Transition(ctx context.Context, req TransitionRequest) (*ledger.TransitionResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "lifecycle", "transition",
		telemetry.WithAttribute(telemetry.SpanAttrSaleID, req.SaleID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrStatusTo, req.Target.String()))
	defer span.End()

	if !req.Target.IsValid() {
		return nil, shared.NewDomainError("INVALID_STATUS", fmt.Sprintf("Unknown status %q", req.Target))
	}

	var result ledger.TransitionResult
	sale, err := s.withRetry(ctx, req.SaleID, func(sale *ledger.Sale) bool {
		result = ledger.Transition(sale, req.Target, s.transitionContext(req))
		return true
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.afterSave(ctx, sale, []ledger.TransitionResult{result})
	return &result, nil
}

// Advance moves the sale forward along the lifecycle graph until it reaches
// target, stepping through intermediate statuses (draft -> invoiced -> paid).
// A sale already at or beyond target is left untouched, which makes external
// redeliveries no-ops.
func (s *LifecycleService) Advance(ctx context.Context, req TransitionRequest) (*AdvanceResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "lifecycle", "advance",
		telemetry.WithAttribute(telemetry.SpanAttrSaleID, req.SaleID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrStatusTo, req.Target.String()))
	defer span.End()

	if !req.Target.IsValid() {
		return nil, shared.NewDomainError("INVALID_STATUS", fmt.Sprintf("Unknown status %q", req.Target))
	}

	out := &AdvanceResult{}
	sale, err := s.withRetry(ctx, req.SaleID, func(sale *ledger.Sale) bool {
		out.Steps = out.Steps[:0]
		out.AlreadyReached = false

		if sale.Status.HasReached(req.Target) {
			out.AlreadyReached = true
			return false
		}

		path := PathTo(sale.Status, req.Target)
		if len(path) == 0 {
			path = []ledger.Status{req.Target}
		}
		tc := s.transitionContext(req)
		for _, next := range path {
			step := ledger.Transition(sale, next, tc)
			out.Steps = append(out.Steps, step)
			if !step.OK {
				break
			}
		}
		return true
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	out.Sale = sale
	if !out.AlreadyReached {
		s.afterSave(ctx, sale, out.Steps)
	}
	return out, nil
}

// withRetry loads the sale, applies mutate and saves under the version lock,
// reloading and reapplying on a version conflict. mutate reports whether the
// sale needs saving.
func (s *LifecycleService) withRetry(ctx context.Context, saleID uuid.UUID, mutate func(*ledger.Sale) bool) (*ledger.Sale, error) {
	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		sale, err := s.sales.FindByID(ctx, saleID)
		if err != nil {
			return nil, err
		}
		if sale == nil || sale.IsDeleted() {
			return nil, ErrSaleNotFound
		}

		if !mutate(sale) {
			return sale, nil
		}

		err = s.sales.SaveWithLock(ctx, sale)
		if err == nil {
			return sale, nil
		}
		if !errors.Is(err, shared.ErrConcurrencyConflict) {
			return nil, err
		}
		lastErr = err
		s.logger.Debug("Sale modified concurrently, retrying transition",
			zap.String("sale_id", saleID.String()),
			zap.Int("attempt", attempt))
	}
	return nil, fmt.Errorf("lifecycle: giving up after %d attempts: %w", s.maxAttempts, lastErr)
}

// afterSave records failures, counts attempts and publishes events once the
// sale is durably stored.
func (s *LifecycleService) afterSave(ctx context.Context, sale *ledger.Sale, steps []ledger.TransitionResult) {
	for _, step := range steps {
		s.metrics.RecordTransition(ctx, step.From.String(), step.To.String(), step.OK)
		if step.OK {
			s.logger.Info("Sale status changed",
				zap.String("sale_id", sale.ID.String()),
				zap.String("reference", sale.Reference),
				zap.String("from", step.From.String()),
				zap.String("to", step.To.String()))
			continue
		}
		s.logger.Warn("Sale transition rejected",
			zap.String("sale_id", sale.ID.String()),
			zap.String("from", step.From.String()),
			zap.String("to", step.To.String()),
			zap.String("error", step.Error))
		if s.recorder != nil && step.ErrorEntry != nil {
			if err := s.recorder.Record(ctx, step.ErrorEntry); err != nil {
				s.logger.Error("Failed to record lifecycle error", zap.Error(err))
			}
		}
	}

	events := sale.GetDomainEvents()
	sale.ClearDomainEvents()
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Error("Failed to publish sale events", zap.Error(err))
	}
}

func (s *LifecycleService) transitionContext(req TransitionRequest) ledger.TransitionContext {
	return ledger.TransitionContext{
		ExternalPaidDate: req.ExternalPaidDate,
		Actor:            req.Actor,
		Reason:           req.Reason,
		Now:              s.now,
	}
}

// PathTo returns the shortest sequence of statuses leading from one status
// to another, excluding from itself. It is empty when target is unreachable.
func PathTo(from, target ledger.Status) []ledger.Status {
	if from == target {
		return nil
	}
	prev := map[ledger.Status]ledger.Status{}
	visited := map[ledger.Status]bool{from: true}
	queue := []ledger.Status{from}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, next := range ledger.ValidNextStates(current) {
			if visited[next] {
				continue
			}
			visited[next] = true
			prev[next] = current
			if next == target {
				var path []ledger.Status
				for s := target; s != from; s = prev[s] {
					path = append([]ledger.Status{s}, path...)
				}
				return path
			}
			queue = append(queue, next)
		}
	}
	return nil
}
