package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/club19/salesos/internal/domain/integration"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrLockNotOwned = errors.New("cache: lock not owned by caller")

// releaseScript deletes the key only if it still holds the caller's token,
// so a holder whose TTL lapsed cannot release a lock taken over by another.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisWriterLock is a SETNX lease shared by every refresher replica
type RedisWriterLock struct {
	client redis.UniversalClient
}

// NewRedisWriterLock creates a lock backed by client
func NewRedisWriterLock(client redis.UniversalClient) *RedisWriterLock {
	return &RedisWriterLock{client: client}
}

// Acquire takes the lease for ttl. ok is false when another holder has it.
func (l *RedisWriterLock) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// Release drops the lease if token still owns it
func (l *RedisWriterLock) Release(ctx context.Context, key, token string) error {
	n, err := releaseScript.Run(ctx, l.client, []string{key}, token).Int64()
	if err != nil {
		return fmt.Errorf("failed to release lock %s: %w", key, err)
	}
	if n == 0 {
		return ErrLockNotOwned
	}
	return nil
}

var _ integration.WriterLock = (*RedisWriterLock)(nil)
