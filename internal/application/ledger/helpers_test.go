package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/club19/salesos/internal/domain/ledger"
	"github.com/club19/salesos/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// memorySaleRepo is an in-memory SaleRepository with version checks.
// conflicts makes the next N SaveWithLock calls lose a race.
type memorySaleRepo struct {
	mu        sync.Mutex
	sales     map[uuid.UUID]ledger.Sale
	conflicts int
	saves     int
}

func newMemorySaleRepo(sales ...*ledger.Sale) *memorySaleRepo {
	r := &memorySaleRepo{sales: make(map[uuid.UUID]ledger.Sale)}
	for _, s := range sales {
		r.sales[s.ID] = cloneSale(s)
	}
	return r
}

func cloneSale(s *ledger.Sale) ledger.Sale {
	c := *s
	c.ErrorMessages = append([]string(nil), s.ErrorMessages...)
	c.ClearDomainEvents()
	return c
}

func (r *memorySaleRepo) get(id uuid.UUID) ledger.Sale {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sales[id]
}

func (r *memorySaleRepo) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Sale, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sales[id]
	if !ok {
		return nil, nil
	}
	c := cloneSale(&s)
	return &c, nil
}

func (r *memorySaleRepo) FindByExternalInvoiceID(ctx context.Context, externalID string) (*ledger.Sale, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sales {
		if externalID != "" && s.ExternalID() == externalID {
			c := cloneSale(&s)
			return &c, nil
		}
	}
	return nil, nil
}

func (r *memorySaleRepo) FindByInvoiceNumber(ctx context.Context, number string) (*ledger.Sale, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sales {
		if number != "" && s.InvoiceNumber == number {
			c := cloneSale(&s)
			return &c, nil
		}
	}
	return nil, nil
}

func (r *memorySaleRepo) List(ctx context.Context, filter ledger.SaleFilter) ([]ledger.Sale, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ledger.Sale, 0, len(r.sales))
	for _, s := range r.sales {
		if s.IsDeleted() {
			continue
		}
		if filter.Status != nil && s.Status != *filter.Status {
			continue
		}
		out = append(out, cloneSale(&s))
	}
	return out, int64(len(out)), nil
}

func (r *memorySaleRepo) Save(ctx context.Context, sale *ledger.Sale) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sales[sale.ID] = cloneSale(sale)
	r.saves++
	return nil
}

func (r *memorySaleRepo) SaveWithLock(ctx context.Context, sale *ledger.Sale) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.sales[sale.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if r.conflicts > 0 {
		r.conflicts--
		stored.Version++
		r.sales[sale.ID] = stored
		return shared.ErrConcurrencyConflict
	}
	if stored.Version != sale.Version {
		return shared.ErrConcurrencyConflict
	}
	sale.Version++
	r.sales[sale.ID] = cloneSale(sale)
	r.saves++
	return nil
}

func (r *memorySaleRepo) CreateOrGetByExternalInvoiceID(ctx context.Context, sale *ledger.Sale) (*ledger.Sale, bool, error) {
	if existing, _ := r.FindByExternalInvoiceID(ctx, sale.ExternalID()); existing != nil {
		return existing, false, nil
	}
	return sale, true, r.Save(ctx, sale)
}

// recordingRecorder captures error entries
type recordingRecorder struct {
	mu      sync.Mutex
	entries []*ledger.ErrorEntry
}

func (r *recordingRecorder) Record(ctx context.Context, entry *ledger.ErrorEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

// MockEventPublisher is a mock implementation of shared.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

// MockErrorLogRepository is a mock implementation of ErrorLogRepository
type MockErrorLogRepository struct {
	mock.Mock
}

func (m *MockErrorLogRepository) Append(ctx context.Context, entry *ledger.ErrorEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockErrorLogRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.ErrorEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.ErrorEntry), args.Error(1)
}

func (m *MockErrorLogRepository) List(ctx context.Context, filter ledger.ErrorFilter) ([]ledger.ErrorEntry, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]ledger.ErrorEntry), args.Get(1).(int64), args.Error(2)
}

func (m *MockErrorLogRepository) MarkResolved(ctx context.Context, id uuid.UUID, by string, at time.Time) error {
	args := m.Called(ctx, id, by, at)
	return args.Error(0)
}
