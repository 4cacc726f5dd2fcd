package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/redis/go-redis/v9"
	"go.lumeweb.com/portal-plugin-payments/internal/config"
	"go.lumeweb.com/portal-plugin-payments/internal/core"
	"go.lumeweb.com/portal-plugin-payments/internal/db"
	"go.uber.org/zap"
)

// Health reports whether the cache may be used. Connection failures seen by the store clear the
// flag until the next successful health check.
type Health interface {
	Available() bool
	MarkUnavailable()
}

var _ Health = (*core.CacheHealth)(nil)

var keyspaces = map[string]string{
	db.TablePaymentIntent:     "pi",
	db.TablePaymentAttempt:    "pa",
	db.TableConnectorResponse: "cr",
	db.TableRefund:            "ref",
}

// CacheKey is the cache key of a row: {keyspace}:{business_id}_{merchant_id}.
func CacheKey(table, businessID, merchantID string) string {
	return fmt.Sprintf("%s:%s_%s", keyspaces[table], businessID, merchantID)
}

func refundIndexKey(paymentID, merchantID string) string {
	return fmt.Sprintf("ref_idx:%s_%s", paymentID, merchantID)
}

type kvStore struct {
	client  redis.UniversalClient
	health  Health
	drainer config.DrainerConfig
	logger  *zap.Logger
}

func (s *kvStore) ready() error {
	if s.health != nil && !s.health.Available() {
		return ErrCacheUnavailable
	}
	return nil
}

// observe clears the health flag when err means redis could not be reached.
func (s *kvStore) observe(err error) error {
	if err == nil || s.health == nil || !isConnError(err) {
		return err
	}
	s.logger.Warn("cache connection failed, marking unavailable", zap.Error(err))
	s.health.MarkUnavailable()
	return err
}

func isConnError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) || errors.Is(err, io.EOF) || errors.Is(err, redis.ErrClosed)
}

// push appends the replication entry for row to its shard stream. A failure here leaves the row
// in the cache without a path to the relational store, so it is reported as a consistency error.
func (s *kvStore) push(ctx context.Context, op, changeset string, row db.Row) error {
	entry, err := newStreamEntry(op, changeset, row)
	if err != nil {
		return core.NewConsistencyError(err, "%s %s written to cache but not queued", row.TableName(), row.BusinessRef())
	}

	stream := StreamName(s.drainer.StreamName, ShardKey(row.MerchantRef(), row.PaymentRef(), s.drainer.NumPartitions))

	err = s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		ID:     "*",
		Values: entry.Values(),
	}).Err()
	if err = s.observe(err); err != nil {
		s.logger.Error("failed to push to drainer stream",
			zap.String("stream", stream),
			zap.String("table", entry.Table),
			zap.String("business_id", entry.BusinessID),
			zap.String("merchant_id", entry.MerchantID),
			zap.Error(err))
		return core.NewConsistencyError(err, "%s %s written to cache but not queued", row.TableName(), row.BusinessRef())
	}

	return nil
}

func kvInsert(ctx context.Context, s *kvStore, row db.Row) error {
	if err := s.ready(); err != nil {
		return err
	}

	data, err := json.Marshal(row)
	if err != nil {
		return core.NewInternalError(err, "marshal %s", row.TableName())
	}

	key := CacheKey(row.TableName(), row.BusinessRef(), row.MerchantRef())
	ok, err := s.client.SetNX(ctx, key, data, 0).Result()
	if err = s.observe(err); err != nil {
		return core.NewInternalError(err, "cache insert %s", key)
	}
	if !ok {
		return core.NewDuplicateRecordError("%s %s already exists", row.TableName(), row.BusinessRef())
	}

	// Once SETNX succeeds the row must reach the stream before anything else can fail.
	if err := s.push(ctx, OpInsert, "", row); err != nil {
		return err
	}

	if refund, isRefund := row.(*db.Refund); isRefund {
		err := s.client.SAdd(ctx, refundIndexKey(refund.PaymentID, refund.MerchantID), refund.RefundID).Err()
		if err = s.observe(err); err != nil {
			return core.NewConsistencyError(err, "refund %s queued but not indexed under payment %s", refund.RefundID, refund.PaymentID)
		}
	}

	return nil
}

// kvUpdate writes through unconditionally; the last writer wins at the cache.
func kvUpdate(ctx context.Context, s *kvStore, changeset string, row db.Row) error {
	if err := s.ready(); err != nil {
		return err
	}

	data, err := json.Marshal(row)
	if err != nil {
		return core.NewInternalError(err, "marshal %s", row.TableName())
	}

	key := CacheKey(row.TableName(), row.BusinessRef(), row.MerchantRef())
	if err := s.observe(s.client.Set(ctx, key, data, 0).Err()); err != nil {
		return core.NewInternalError(err, "cache update %s", key)
	}

	return s.push(ctx, OpUpdate, changeset, row)
}

// kvFind reads the cache only. A miss is NotFound even if the relational store has the row.
func kvFind[T any, PT rowPtr[T]](ctx context.Context, s *kvStore, merchantID, businessID string) (PT, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	row := PT(new(T))
	key := CacheKey(row.TableName(), businessID, merchantID)

	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, core.NewNotFoundError("%s %s not found", row.TableName(), businessID)
	}
	if err = s.observe(err); err != nil {
		return nil, core.NewInternalError(err, "cache find %s", key)
	}

	if err := json.Unmarshal(data, row); err != nil {
		return nil, core.NewInternalError(err, "decode %s", key)
	}
	return row, nil
}

func kvFindRefundsByPayment(ctx context.Context, s *kvStore, merchantID, paymentID string) ([]db.Refund, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	ids, err := s.client.SMembers(ctx, refundIndexKey(paymentID, merchantID)).Result()
	if err = s.observe(err); err != nil {
		return nil, core.NewInternalError(err, "list refunds of %s", paymentID)
	}
	if len(ids) == 0 {
		return []db.Refund{}, nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, CacheKey(db.TableRefund, id, merchantID))
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err = s.observe(err); err != nil {
		return nil, core.NewInternalError(err, "load refunds of %s", paymentID)
	}

	refunds := make([]db.Refund, 0, len(values))
	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			s.logger.Warn("refund index references missing key", zap.String("key", keys[i]))
			continue
		}
		var refund db.Refund
		if err := json.Unmarshal([]byte(raw), &refund); err != nil {
			return nil, core.NewInternalError(err, "decode %s", keys[i])
		}
		refunds = append(refunds, refund)
	}

	return refunds, nil
}
