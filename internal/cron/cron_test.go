package cron

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lumeweb.com/portal-plugin-payments/internal/db"
	"go.lumeweb.com/portal-plugin-payments/internal/cron/tasks"
	"go.lumeweb.com/portal-plugin-payments/internal/drainer"
	"go.lumeweb.com/portal-plugin-payments/internal/storage"
	"go.lumeweb.com/portal-plugin-payments/internal/storage/storagetest"
)

func TestCron_DrainsCachedWrites(t *testing.T) {
	cfg := storagetest.Config()
	cfg.Drainer.Enabled = true
	cfg.Drainer.PollInterval = 20 * time.Millisecond
	cfg.Redis.HealthCheckInterval = 20 * time.Millisecond

	ctx, _ := storagetest.NewContext(t, cfg, nil)
	store := storage.New(ctx)

	c, err := NewCron(ctx, drainer.New(ctx))
	require.NoError(t, err)
	require.NoError(t, c.RegisterTasks())
	c.Start()
	t.Cleanup(func() { assert.NoError(t, c.Stop()) })

	now := db.Now()
	_, err = store.InsertPaymentIntent(context.Background(), db.PaymentIntent{
		MerchantID: "merchant_1",
		PaymentID:  "pay_cron_1",
		Status:     db.IntentStatusRequiresPaymentMethod,
		Amount:     100,
		Currency:   "USD",
		CreatedAt:  now,
		ModifiedAt: now,
	}, db.StorageSchemeCached)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		_, err := store.FindPaymentIntentByPaymentIDMerchantID(context.Background(), "pay_cron_1", "merchant_1", db.StorageSchemeStrict)
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
}

func TestCron_TracksCacheHealth(t *testing.T) {
	cfg := storagetest.Config()
	cfg.Redis.HealthCheckInterval = 20 * time.Millisecond

	ctx, mr := storagetest.NewContext(t, cfg, nil)

	c, err := NewCron(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, c.RegisterTasks())
	c.Start()
	t.Cleanup(func() { assert.NoError(t, c.Stop()) })

	mr.Close()
	assert.Eventually(t, func() bool { return !ctx.CacheHealth().Available() }, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, mr.Restart())
	assert.Eventually(t, func() bool { return ctx.CacheHealth().Available() }, 2*time.Second, 20*time.Millisecond)
}

func TestCron_DrainerDisabled(t *testing.T) {
	ctx, _ := storagetest.NewContext(t, nil, nil)

	c, err := NewCron(ctx, drainer.New(ctx))
	require.NoError(t, err)
	require.NoError(t, c.RegisterTasks())

	jobs := c.scheduler.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, tasks.TaskCacheHealthCheck, jobs[0].Name())
	require.NoError(t, c.Stop())
}
