package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.lumeweb.com/portal-plugin-payments/internal/client/connector"
	"go.lumeweb.com/portal-plugin-payments/internal/config"
	"go.lumeweb.com/portal-plugin-payments/internal/core"
	"go.lumeweb.com/portal-plugin-payments/internal/events"
	"go.uber.org/zap/zaptest"
)

// Config is a complete configuration for tests. Nothing in it points at a real service.
func Config() *config.Config {
	return &config.Config{
		Log:     config.LogConfig{Level: "debug"},
		Server:  config.ServerConfig{Addr: "127.0.0.1:0", RequestTimeout: 5 * time.Second},
		Redis:   config.RedisConfig{HealthCheckInterval: time.Second, ReconnectAttempts: 1},
		Drainer: DrainerConfig(),
		Payments: config.PaymentsConfig{
			DefaultStorageScheme: config.StorageSchemeStrict,
			IDLength:             20,
			MerchantCacheTTL:     time.Minute,
		},
		Connector: config.ConnectorConfig{Default: connector.DummyName},
	}
}

// NewContext builds a core.Context over sqlite and miniredis. publisher may be nil.
func NewContext(t testing.TB, cfg *config.Config, publisher events.Publisher) (*core.Context, *miniredis.Miniredis) {
	t.Helper()

	if cfg == nil {
		cfg = Config()
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	ctx, err := core.NewContext(context.Background(), cfg, zaptest.NewLogger(t),
		core.WithDB(OpenDB(t)),
		core.WithRedis(client),
		core.WithPublisher(publisher))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return ctx, mr
}
