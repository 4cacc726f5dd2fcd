package core

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/redis/go-redis/v9"
	"go.lumeweb.com/portal-plugin-payments/internal/config"
	"go.lumeweb.com/portal-plugin-payments/internal/metrics"
	"go.uber.org/zap"
)

func OpenRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

// CacheHealth publishes whether the cache is reachable. Cached storage calls consult it before
// touching redis.
type CacheHealth struct {
	available atomic.Bool
	client    redis.UniversalClient
	cfg       config.RedisConfig
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

func NewCacheHealth(client redis.UniversalClient, cfg config.RedisConfig, m *metrics.Metrics, logger *zap.Logger) *CacheHealth {
	h := &CacheHealth{
		client:  client,
		cfg:     cfg,
		metrics: m,
		logger:  logger.Named("cache_health"),
	}
	h.set(true)
	return h
}

func (h *CacheHealth) Available() bool {
	return h.available.Load()
}

// MarkUnavailable flips the flag without probing. The cached store calls it when a redis call
// fails to connect; the next successful Check sets it again.
func (h *CacheHealth) MarkUnavailable() {
	h.set(false)
}

func (h *CacheHealth) set(available bool) {
	if prev := h.available.Swap(available); prev != available {
		h.logger.Info("cache availability changed", zap.Bool("available", available))
	}
	if h.metrics != nil {
		h.metrics.CacheAvailable(available)
	}
}

// Check pings the cache. On failure the flag is cleared and the ping is retried with exponential
// backoff; the flag is set again as soon as one attempt succeeds.
func (h *CacheHealth) Check(ctx context.Context) error {
	err := h.client.Ping(ctx).Err()
	if err == nil {
		h.set(true)
		return nil
	}

	h.logger.Warn("cache ping failed", zap.Error(err))
	h.set(false)

	attempts := h.cfg.ReconnectAttempts
	if attempts == 0 {
		attempts = 1
	}
	delay := h.cfg.ReconnectDelay
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}

	err = retry.Do(
		func() error {
			return h.client.Ping(ctx).Err()
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			h.logger.Debug("cache reconnect attempt failed", zap.Uint("attempt", n+1), zap.Error(err))
		}),
	)
	if err != nil {
		return fmt.Errorf("cache unavailable: %w", err)
	}

	h.set(true)
	return nil
}
