package cache

import (
	"context"
	"sync"
	"time"

	"github.com/club19/salesos/internal/domain/shared"
)

const defaultSweepInterval = 5 * time.Minute

// InMemoryDeliveryStore remembers webhook delivery ids in process memory.
// Single-instance deployments and tests only: a second server replica
// would not see the ids recorded here.
type InMemoryDeliveryStore struct {
	mu       sync.Mutex
	expiries map[string]time.Time
	now      func() time.Time

	stop      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryDeliveryStore creates the store and starts its expiry sweeper
func NewInMemoryDeliveryStore() *InMemoryDeliveryStore {
	return newInMemoryDeliveryStore(time.Now, defaultSweepInterval)
}

func newInMemoryDeliveryStore(now func() time.Time, sweep time.Duration) *InMemoryDeliveryStore {
	s := &InMemoryDeliveryStore{
		expiries: make(map[string]time.Time),
		now:      now,
		stop:     make(chan struct{}),
	}
	s.wg.Add(1)
	go s.sweepLoop(sweep)
	return s
}

// MarkProcessed records key until ttl elapses. It returns false when the key
// is already recorded and still live.
func (s *InMemoryDeliveryStore) MarkProcessed(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if exp, ok := s.expiries[key]; ok && now.Before(exp) {
		return false, nil
	}
	s.expiries[key] = now.Add(ttl)
	return true, nil
}

// IsProcessed reports whether key is recorded and live
func (s *InMemoryDeliveryStore) IsProcessed(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.expiries[key]
	return ok && s.now().Before(exp), nil
}

// Close stops the sweeper. Safe to call more than once.
func (s *InMemoryDeliveryStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stop)
		s.wg.Wait()
	})
	return nil
}

// Len returns the number of recorded keys, live or not yet swept
func (s *InMemoryDeliveryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.expiries)
}

func (s *InMemoryDeliveryStore) sweepLoop(interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *InMemoryDeliveryStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, exp := range s.expiries {
		if !now.Before(exp) {
			delete(s.expiries, key)
		}
	}
}

var _ shared.IdempotencyStore = (*InMemoryDeliveryStore)(nil)
