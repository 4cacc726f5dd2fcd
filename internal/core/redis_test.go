package core

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lumeweb.com/portal-plugin-payments/internal/config"
	"go.lumeweb.com/portal-plugin-payments/internal/metrics"
	"go.uber.org/zap/zaptest"
)

func TestCacheHealth_Check(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := config.RedisConfig{ReconnectAttempts: 2, ReconnectDelay: 5 * time.Millisecond}
	health := NewCacheHealth(client, cfg, metrics.New(), zaptest.NewLogger(t))

	require.NoError(t, health.Check(context.Background()))
	assert.True(t, health.Available())

	mr.SetError("LOADING")
	assert.Error(t, health.Check(context.Background()))
	assert.False(t, health.Available())

	mr.SetError("")
	require.NoError(t, health.Check(context.Background()))
	assert.True(t, health.Available())
}

func TestCacheHealth_MarkUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	health := NewCacheHealth(client, config.RedisConfig{}, nil, zaptest.NewLogger(t))
	health.MarkUnavailable()
	assert.False(t, health.Available())
}
