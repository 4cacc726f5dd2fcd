package tasks

import (
	"context"

	"go.lumeweb.com/portal-plugin-payments/internal/core"
	"go.lumeweb.com/portal-plugin-payments/internal/drainer"
	"go.uber.org/zap"
)

const (
	TaskCacheHealthCheck = "cache-health-check"
	TaskDrainStreams     = "drain-streams"
)

// CacheHealthCheck pings the cache and updates the availability flag the cached storage scheme
// checks before every call.
func CacheHealthCheck(ctx context.Context, health *core.CacheHealth) error {
	return health.Check(ctx)
}

// DrainStreams applies pending change stream entries to the relational store.
func DrainStreams(ctx context.Context, d *drainer.Drainer, logger *zap.Logger) error {
	applied, err := d.DrainOnce(ctx)
	if applied > 0 {
		logger.Debug("drained stream entries", zap.Int("applied", applied))
	}
	return err
}
