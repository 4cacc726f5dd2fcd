package drainer

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lumeweb.com/portal-plugin-payments/internal/db"
	"go.lumeweb.com/portal-plugin-payments/internal/storage"
	"go.lumeweb.com/portal-plugin-payments/internal/storage/storagetest"
	"go.uber.org/zap/zaptest"
)

func newTestDrainer(t *testing.T) (*Drainer, *storagetest.Env) {
	t.Helper()
	env := storagetest.New(t)
	return NewDrainer(env.Redis, env.DB, env.Drainer, env.Metrics, zaptest.NewLogger(t)), env
}

func insertIntent(t *testing.T, env *storagetest.Env, paymentID string) *db.PaymentIntent {
	t.Helper()
	now := db.Now()
	intent, err := env.Store.InsertPaymentIntent(context.Background(), db.PaymentIntent{
		MerchantID: "M1",
		PaymentID:  paymentID,
		Status:     db.IntentStatusRequiresPaymentMethod,
		Amount:     6540,
		Currency:   "USD",
		CreatedAt:  now,
		ModifiedAt: now,
	}, db.StorageSchemeCached)
	require.NoError(t, err)
	return intent
}

func relationalIntent(t *testing.T, env *storagetest.Env, paymentID string) *db.PaymentIntent {
	t.Helper()
	intent, err := env.Store.FindPaymentIntentByPaymentIDMerchantID(context.Background(), paymentID, "M1", db.StorageSchemeStrict)
	require.NoError(t, err)
	return intent
}

func TestDrainer_AppliesInsertAndUpdates(t *testing.T) {
	d, env := newTestDrainer(t)
	ctx := context.Background()

	intent := insertIntent(t, env, "pay_1")
	u1, err := env.Store.UpdatePaymentIntent(ctx, *intent, db.PaymentIntentStatusUpdate{Status: db.IntentStatusRequiresConfirmation}, db.StorageSchemeCached)
	require.NoError(t, err)
	_, err = env.Store.UpdatePaymentIntent(ctx, *u1, db.PaymentIntentStatusUpdate{Status: db.IntentStatusProcessing}, db.StorageSchemeCached)
	require.NoError(t, err)

	applied, err := d.DrainOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, applied)

	assert.Equal(t, db.IntentStatusProcessing, relationalIntent(t, env, "pay_1").Status)

	stream := storage.StreamName(env.Drainer.StreamName, storage.ShardKey("M1", "pay_1", env.Drainer.NumPartitions))
	length, err := env.Redis.XLen(ctx, stream).Result()
	require.NoError(t, err)
	assert.Zero(t, length)

	applied, err = d.DrainOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, applied)
}

func TestDrainer_RedeliversAfterCrash(t *testing.T) {
	d, env := newTestDrainer(t)
	ctx := context.Background()

	insertIntent(t, env, "pay_crash")
	stream := storage.StreamName(env.Drainer.StreamName, storage.ShardKey("M1", "pay_crash", env.Drainer.NumPartitions))

	require.NoError(t, d.ensureGroup(ctx, stream))

	// Deliver without acknowledging, as a consumer that died mid-batch would.
	_, err := env.Redis.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    env.Drainer.ConsumerGroup,
		Consumer: env.Drainer.ConsumerName,
		Streams:  []string{stream, ">"},
		Count:    10,
		Block:    -1,
	}).Result()
	require.NoError(t, err)

	applied, err := d.DrainOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, applied)
	assert.Equal(t, int64(6540), relationalIntent(t, env, "pay_crash").Amount)

	pending, err := env.Redis.XPending(ctx, stream, env.Drainer.ConsumerGroup).Result()
	require.NoError(t, err)
	assert.Zero(t, pending.Count)
}

func TestDrainer_ReplayDoesNotDuplicate(t *testing.T) {
	d, env := newTestDrainer(t)
	ctx := context.Background()

	intent := insertIntent(t, env, "pay_replay")
	stream := storage.StreamName(env.Drainer.StreamName, storage.ShardKey("M1", "pay_replay", env.Drainer.NumPartitions))

	msgs, err := env.Redis.XRange(ctx, stream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	_, err = d.DrainOnce(ctx)
	require.NoError(t, err)

	// Push the same insert again, as an at-least-once producer might.
	require.NoError(t, env.Redis.XAdd(ctx, &redis.XAddArgs{Stream: stream, Values: msgs[0].Values}).Err())
	_, err = env.Store.UpdatePaymentIntent(ctx, *intent, db.PaymentIntentMetadataUpdate{Metadata: map[string]any{"k": "v"}}, db.StorageSchemeCached)
	require.NoError(t, err)

	_, err = d.DrainOnce(ctx)
	require.NoError(t, err)

	var count int64
	require.NoError(t, env.DB.Model(&db.PaymentIntent{}).Where("payment_id = ?", "pay_replay").Count(&count).Error)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, "v", relationalIntent(t, env, "pay_replay").Metadata["k"])
}

func TestDrainer_StopsShardAtFirstFailure(t *testing.T) {
	d, env := newTestDrainer(t)
	ctx := context.Background()

	insertIntent(t, env, "pay_bad")
	stream := storage.StreamName(env.Drainer.StreamName, storage.ShardKey("M1", "pay_bad", env.Drainer.NumPartitions))

	_, err := d.DrainOnce(ctx)
	require.NoError(t, err)

	require.NoError(t, env.Redis.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: []string{"op", "update", "table", "widgets", "row", "{}"},
	}).Err())

	intent := relationalIntent(t, env, "pay_bad")
	_, err = env.Store.UpdatePaymentIntent(ctx, *intent, db.PaymentIntentStatusUpdate{Status: db.IntentStatusCancelled}, db.StorageSchemeCached)
	require.NoError(t, err)

	_, err = d.DrainOnce(ctx)
	require.Error(t, err)

	assert.Equal(t, db.IntentStatusRequiresPaymentMethod, relationalIntent(t, env, "pay_bad").Status)

	length, err := env.Redis.XLen(ctx, stream).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(2), length)
}

func TestDrainer_Streams(t *testing.T) {
	d, env := newTestDrainer(t)
	streams := d.Streams()
	require.Len(t, streams, int(env.Drainer.NumPartitions))
	assert.Equal(t, "{shard_0}_drainer_stream", streams[0])
}
