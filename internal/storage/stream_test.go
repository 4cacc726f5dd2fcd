package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lumeweb.com/portal-plugin-payments/internal/db"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, gdb.AutoMigrate(db.Models()...))
	return gdb
}

func TestShardKey(t *testing.T) {
	a := ShardKey("M1", "pay_1", 64)
	assert.Equal(t, a, ShardKey("M1", "pay_1", 64))
	assert.Less(t, a, uint64(64))

	assert.Equal(t, uint64(0), ShardKey("M1", "pay_1", 1))
	assert.Equal(t, uint64(0), ShardKey("M1", "pay_1", 0))
}

func TestStreamName(t *testing.T) {
	assert.Equal(t, "{shard_7}_drainer_stream", StreamName("drainer_stream", 7))
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "pi:pay_1_M1", CacheKey(db.TablePaymentIntent, "pay_1", "M1"))
	assert.Equal(t, "ref:ref_1_M1", CacheKey(db.TableRefund, "ref_1", "M1"))
}

func TestStreamEntry_ValuesParse(t *testing.T) {
	intent := &db.PaymentIntent{MerchantID: "M1", PaymentID: "pay_1", Status: db.IntentStatusProcessing}
	entry, err := newStreamEntry(OpUpdate, "status_update", intent)
	require.NoError(t, err)

	values := entry.Values()
	asMap := make(map[string]any, len(values)/2)
	for i := 0; i < len(values); i += 2 {
		asMap[values[i]] = values[i+1]
	}

	parsed, err := ParseStreamEntry(asMap)
	require.NoError(t, err)
	assert.Equal(t, entry.Table, parsed.Table)
	assert.Equal(t, entry.Changeset, parsed.Changeset)
	assert.Equal(t, "pay_1", parsed.PaymentID)
	assert.True(t, entry.PushedAt.Equal(parsed.PushedAt))

	row, err := parsed.DecodeRow()
	require.NoError(t, err)
	assert.Equal(t, db.IntentStatusProcessing, row.(*db.PaymentIntent).Status)
}

func TestParseStreamEntry_Invalid(t *testing.T) {
	_, err := ParseStreamEntry(map[string]any{"op": "delete", "table": "refund", "row": "{}"})
	assert.Error(t, err)

	_, err = ParseStreamEntry(map[string]any{"op": "insert"})
	assert.Error(t, err)

	entry, err := ParseStreamEntry(map[string]any{"op": "insert", "table": "widgets", "row": "{}"})
	require.NoError(t, err)
	_, err = entry.DecodeRow()
	assert.Error(t, err)
}

func TestApplyStreamEntry_Idempotent(t *testing.T) {
	gdb := openTestDB(t)
	ctx := context.Background()
	now := db.Now()

	intent := &db.PaymentIntent{
		MerchantID: "M1",
		PaymentID:  "pay_1",
		Status:     db.IntentStatusRequiresPaymentMethod,
		Amount:     100,
		Currency:   "USD",
		Metadata:   db.Metadata(nil),
		CreatedAt:  now,
		ModifiedAt: now,
	}

	insert, err := newStreamEntry(OpInsert, "", intent)
	require.NoError(t, err)

	next := db.ApplyPaymentIntentUpdate(*intent, db.PaymentIntentStatusUpdate{Status: db.IntentStatusCancelled}, now)
	update, err := newStreamEntry(OpUpdate, "status_update", &next)
	require.NoError(t, err)

	for _, e := range []StreamEntry{insert, insert, update, update, insert} {
		require.NoError(t, ApplyStreamEntry(ctx, gdb, e))
	}

	var rows []db.PaymentIntent
	require.NoError(t, gdb.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, db.IntentStatusCancelled, rows[0].Status)
}
