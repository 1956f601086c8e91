package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers webhook delivery ids so a redelivery is
// recognised before any work is repeated
type IdempotencyStore interface {
	// MarkProcessed records key for ttl. It reports false when key was
	// already recorded.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)
	IsProcessed(ctx context.Context, key string) (bool, error)
	Close() error
}
