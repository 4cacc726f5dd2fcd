package drainer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/redis/go-redis/v9"
	"go.lumeweb.com/portal-plugin-payments/internal/config"
	"go.lumeweb.com/portal-plugin-payments/internal/core"
	"go.lumeweb.com/portal-plugin-payments/internal/metrics"
	"go.lumeweb.com/portal-plugin-payments/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Drainer replays the shard change streams into the relational store. Entries of a shard are
// applied strictly in stream order and acknowledged only after they were applied, so a crash
// leaves them pending and they are delivered again on the next run.
type Drainer struct {
	client  redis.UniversalClient
	db      *gorm.DB
	cfg     config.DrainerConfig
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func New(ctx *core.Context) *Drainer {
	return NewDrainer(ctx.Redis(), ctx.DB(), ctx.Config().Drainer, ctx.Metrics(), ctx.Logger())
}

func NewDrainer(client redis.UniversalClient, gdb *gorm.DB, cfg config.DrainerConfig, m *metrics.Metrics, logger *zap.Logger) *Drainer {
	if cfg.NumPartitions == 0 {
		cfg.NumPartitions = 1
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &Drainer{
		client:  client,
		db:      gdb,
		cfg:     cfg,
		metrics: m,
		logger:  logger.Named("drainer"),
	}
}

func (d *Drainer) Streams() []string {
	streams := make([]string, 0, d.cfg.NumPartitions)
	for shard := uint64(0); shard < uint64(d.cfg.NumPartitions); shard++ {
		streams = append(streams, storage.StreamName(d.cfg.StreamName, shard))
	}
	return streams
}

// DrainOnce drains every shard once and returns the number of applied entries. A failing shard
// does not stop the others; their errors are aggregated.
func (d *Drainer) DrainOnce(ctx context.Context) (int, error) {
	var (
		applied int
		result  *multierror.Error
	)

	for _, stream := range d.Streams() {
		n, err := d.drainShard(ctx, stream)
		applied += n
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", stream, err))
		}
	}

	return applied, result.ErrorOrNil()
}

// Run drains on every poll interval until ctx is done.
func (d *Drainer) Run(ctx context.Context) error {
	interval := d.cfg.PollInterval
	if interval <= 0 {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	d.logger.Info("drainer started", zap.Int("shards", int(d.cfg.NumPartitions)))

	for {
		if _, err := d.DrainOnce(ctx); err != nil {
			d.logger.Error("drain failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			d.logger.Info("drainer stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func (d *Drainer) ensureGroup(ctx context.Context, stream string) error {
	err := d.client.XGroupCreateMkStream(ctx, stream, d.cfg.ConsumerGroup, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group: %w", err)
	}
	return nil
}

func (d *Drainer) read(ctx context.Context, stream, id string) ([]redis.XMessage, error) {
	res, err := d.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    d.cfg.ConsumerGroup,
		Consumer: d.cfg.ConsumerName,
		Streams:  []string{stream, id},
		Count:    d.cfg.BatchSize,
		Block:    -1,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read group: %w", err)
	}

	var messages []redis.XMessage
	for _, s := range res {
		messages = append(messages, s.Messages...)
	}
	return messages, nil
}

func (d *Drainer) drainShard(ctx context.Context, stream string) (int, error) {
	if err := d.ensureGroup(ctx, stream); err != nil {
		return 0, err
	}

	// Entries delivered to this consumer before a crash come first.
	messages, err := d.read(ctx, stream, "0")
	if err != nil {
		return 0, err
	}
	if len(messages) == 0 {
		messages, err = d.read(ctx, stream, ">")
		if err != nil {
			return 0, err
		}
	}

	applied := 0
	for _, msg := range messages {
		if err := d.apply(ctx, stream, msg); err != nil {
			return applied, err
		}
		applied++
	}

	if d.metrics != nil {
		if lag, err := d.client.XLen(ctx, stream).Result(); err == nil {
			d.metrics.DrainerLag(stream, lag)
		}
	}

	return applied, nil
}

func (d *Drainer) apply(ctx context.Context, stream string, msg redis.XMessage) error {
	entry, err := storage.ParseStreamEntry(msg.Values)
	if err != nil {
		d.observe("unknown", "unknown", err)
		return fmt.Errorf("entry %s: %w", msg.ID, err)
	}

	if err := storage.ApplyStreamEntry(ctx, d.db, entry); err != nil {
		d.observe(entry.Table, entry.Op, err)
		d.logger.Error("failed to apply stream entry",
			zap.String("stream", stream),
			zap.String("id", msg.ID),
			zap.String("table", entry.Table),
			zap.String("business_id", entry.BusinessID),
			zap.Error(err))
		return fmt.Errorf("entry %s: %w", msg.ID, err)
	}

	if err := d.client.XAck(ctx, stream, d.cfg.ConsumerGroup, msg.ID).Err(); err != nil {
		return fmt.Errorf("ack %s: %w", msg.ID, err)
	}
	if err := d.client.XDel(ctx, stream, msg.ID).Err(); err != nil {
		d.logger.Warn("failed to delete drained entry", zap.String("stream", stream), zap.String("id", msg.ID), zap.Error(err))
	}

	d.observe(entry.Table, entry.Op, nil)
	d.logger.Debug("stream entry applied",
		zap.String("stream", stream),
		zap.String("table", entry.Table),
		zap.String("op", entry.Op),
		zap.String("business_id", entry.BusinessID))

	return nil
}

func (d *Drainer) observe(table, op string, err error) {
	if d.metrics == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	d.metrics.DrainerEntry(table, op, result)
}
