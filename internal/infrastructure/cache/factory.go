package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/club19/salesos/internal/domain/integration"
	"github.com/club19/salesos/internal/domain/shared"
	"github.com/club19/salesos/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const pingTimeout = 5 * time.Second

// Backends groups the coordination primitives a process needs.
// Lock is nil when Redis is not in use.
type Backends struct {
	Deliveries shared.IdempotencyStore
	Lock       integration.WriterLock

	client redis.UniversalClient
}

// Close releases the delivery store and the Redis client
func (b *Backends) Close() error {
	var firstErr error
	if b.Deliveries != nil {
		firstErr = b.Deliveries.Close()
	}
	if b.client != nil {
		if err := b.client.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// BackendsFactory builds Backends from configuration
type BackendsFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// BackendsFactoryOption is a functional option for configuring the factory
type BackendsFactoryOption func(*BackendsFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) BackendsFactoryOption {
	return func(f *BackendsFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis degrades to
// in-process state instead of failing startup. Default is true.
func WithInMemoryFallback(allow bool) BackendsFactoryOption {
	return func(f *BackendsFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewBackendsFactory creates a new factory
func NewBackendsFactory(cfg config.RedisConfig, opts ...BackendsFactoryOption) *BackendsFactory {
	f := &BackendsFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// NewRedisClient connects and pings
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr(), err)
	}
	return client, nil
}

// Create returns Redis-backed stores when Redis is enabled and reachable,
// in-memory ones otherwise.
func (f *BackendsFactory) Create(ctx context.Context) (*Backends, error) {
	if !f.redisConfig.Enabled {
		f.logger.Info("Redis disabled, using in-memory delivery store and no distributed writer lock")
		return &Backends{Deliveries: NewInMemoryDeliveryStore()}, nil
	}

	client, err := NewRedisClient(ctx, f.redisConfig)
	if err == nil {
		f.logger.Info("Using Redis for delivery idempotency and writer lock", zap.String("addr", f.redisConfig.Addr()))
		return &Backends{
			Deliveries: NewRedisDeliveryStore(client, DeliveryKeyPrefix),
			Lock:       NewRedisWriterLock(client),
			client:     client,
		}, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory delivery store. "+
		"Redeliveries to other replicas will not be recognised.",
		zap.Error(err))
	return &Backends{Deliveries: NewInMemoryDeliveryStore()}, nil
}
