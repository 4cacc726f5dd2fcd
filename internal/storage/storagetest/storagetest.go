// Package storagetest builds a Store backed by an in-memory sqlite database and miniredis.
package storagetest

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.lumeweb.com/portal-plugin-payments/internal/config"
	"go.lumeweb.com/portal-plugin-payments/internal/db"
	"go.lumeweb.com/portal-plugin-payments/internal/metrics"
	"go.lumeweb.com/portal-plugin-payments/internal/storage"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Health is a settable cache health flag.
type Health struct {
	down atomic.Bool
}

func (h *Health) Available() bool { return !h.down.Load() }
func (h *Health) Set(available bool) { h.down.Store(!available) }
func (h *Health) MarkUnavailable() { h.Set(false) }

type Env struct {
	Store     *storage.Store
	DB        *gorm.DB
	Redis     *redis.Client
	Miniredis *miniredis.Miniredis
	Health    *Health
	Metrics   *metrics.Metrics
	Drainer   config.DrainerConfig
}

func DrainerConfig() config.DrainerConfig {
	return config.DrainerConfig{
		StreamName:    "drainer_stream",
		NumPartitions: 4,
		ConsumerGroup: "drainer",
		ConsumerName:  "drainer-test",
		BatchSize:     100,
	}
}

func OpenDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, gdb.AutoMigrate(db.Models()...))
	return gdb
}

func New(t testing.TB) *Env {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	env := &Env{
		DB:        OpenDB(t),
		Redis:     client,
		Miniredis: mr,
		Health:    &Health{},
		Metrics:   metrics.New(),
		Drainer:   DrainerConfig(),
	}
	env.Store = storage.NewStore(env.DB, client, env.Health, env.Drainer, env.Metrics, zaptest.NewLogger(t))

	return env
}
