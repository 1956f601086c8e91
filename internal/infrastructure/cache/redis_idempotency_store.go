package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/club19/salesos/internal/domain/shared"
	"github.com/redis/go-redis/v9"
)

// DeliveryKeyPrefix namespaces webhook delivery ids in Redis
const DeliveryKeyPrefix = "salesos:webhook:delivery:"

// RedisDeliveryStore remembers webhook delivery ids in Redis so that every
// server replica sees the same set.
type RedisDeliveryStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisDeliveryStore wraps an existing client. The client is not closed by Close.
func NewRedisDeliveryStore(client redis.UniversalClient, keyPrefix string) *RedisDeliveryStore {
	if keyPrefix == "" {
		keyPrefix = DeliveryKeyPrefix
	}
	return &RedisDeliveryStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// MarkProcessed records key with SETNX so concurrent deliveries of the same id
// agree on a single winner.
func (s *RedisDeliveryStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.keyPrefix+key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to record delivery %s: %w", key, err)
	}
	return ok, nil
}

// IsProcessed reports whether key is recorded
func (s *RedisDeliveryStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, s.keyPrefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to look up delivery %s: %w", key, err)
	}
	return n > 0, nil
}

// Close is a no-op; the client belongs to whoever built it
func (s *RedisDeliveryStore) Close() error {
	return nil
}

var _ shared.IdempotencyStore = (*RedisDeliveryStore)(nil)
