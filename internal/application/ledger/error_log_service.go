package ledger

import (
	"context"
	"time"

	"github.com/club19/salesos/internal/domain/ledger"
	"github.com/club19/salesos/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrorLogService is the single write path into the error log. Every
// component that detects a fault records it here instead of writing to the
// repository directly.
type ErrorLogService struct {
	repo   ledger.ErrorLogRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewErrorLogService creates a new ErrorLogService
func NewErrorLogService(repo ledger.ErrorLogRepository, logger *zap.Logger) *ErrorLogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ErrorLogService{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// Record appends entry to the error log. A nil entry is ignored.
func (s *ErrorLogService) Record(ctx context.Context, entry *ledger.ErrorEntry) error {
	if entry == nil {
		return nil
	}
	if !entry.Severity.IsValid() {
		entry.Severity = ledger.SeverityMedium
	}
	if !entry.Source.IsValid() {
		return shared.NewDomainError("INVALID_ERROR_SOURCE", "Unknown error source: "+string(entry.Source))
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}

	if err := s.repo.Append(ctx, entry); err != nil {
		s.logger.Error("Failed to append error log entry",
			zap.String("source", string(entry.Source)),
			zap.String("severity", string(entry.Severity)),
			zap.Strings("messages", entry.Messages),
			zap.Error(err))
		return err
	}

	fields := []zap.Field{
		zap.String("error_id", entry.ID.String()),
		zap.String("source", string(entry.Source)),
		zap.String("severity", string(entry.Severity)),
		zap.Strings("messages", entry.Messages),
	}
	if entry.SaleID != nil {
		fields = append(fields, zap.String("sale_id", entry.SaleID.String()))
	}
	s.logger.Debug("Error log entry recorded", fields...)
	return nil
}

// Get returns one entry
func (s *ErrorLogService) Get(ctx context.Context, id uuid.UUID) (*ledger.ErrorEntry, error) {
	entry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, shared.ErrNotFound
	}
	return entry, nil
}

// List returns a page of entries
func (s *ErrorLogService) List(ctx context.Context, filter ledger.ErrorFilter) (shared.Paginated[ledger.ErrorEntry], error) {
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return shared.Paginated[ledger.ErrorEntry]{}, err
	}
	return shared.NewPaginated(entries, total, filter.Page, filter.PageSize), nil
}

// Resolve marks an entry resolved by an operator
func (s *ErrorLogService) Resolve(ctx context.Context, id uuid.UUID, by string) error {
	if by == "" {
		return shared.NewDomainError("INVALID_RESOLVER", "Resolver cannot be empty")
	}
	if err := s.repo.MarkResolved(ctx, id, by, s.now()); err != nil {
		return err
	}
	s.logger.Info("Error log entry resolved",
		zap.String("error_id", id.String()),
		zap.String("resolved_by", by))
	return nil
}

// UnresolvedErrorCount feeds the unresolved errors gauge
func (s *ErrorLogService) UnresolvedErrorCount(ctx context.Context) (int64, error) {
	resolved := false
	_, total, err := s.repo.List(ctx, ledger.ErrorFilter{
		Filter:   shared.Filter{Page: 1, PageSize: 1},
		Resolved: &resolved,
	})
	return total, err
}

// Ensure ErrorLogService implements ledger.ErrorRecorder
var _ ledger.ErrorRecorder = (*ErrorLogService)(nil)
