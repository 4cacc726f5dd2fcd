package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/redis/go-redis/v9"
	"go.lumeweb.com/portal-plugin-payments/internal/config"
	"go.lumeweb.com/portal-plugin-payments/internal/events"
	"go.lumeweb.com/portal-plugin-payments/internal/metrics"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Context holds the process-wide handles shared by every pipeline run. It is built once at
// startup and passed by reference; nothing in it is mutated per request.
type Context struct {
	context.Context

	config    *config.Config
	logger    *zap.Logger
	db        *gorm.DB
	redis     redis.UniversalClient
	health    *CacheHealth
	metrics   *metrics.Metrics
	publisher events.Publisher
}

type ContextOption func(*Context)

func WithDB(db *gorm.DB) ContextOption {
	return func(c *Context) {
		c.db = db
	}
}

func WithRedis(client redis.UniversalClient) ContextOption {
	return func(c *Context) {
		c.redis = client
	}
}

func WithPublisher(publisher events.Publisher) ContextOption {
	return func(c *Context) {
		c.publisher = publisher
	}
}

// NewContext opens every handle the configuration asks for unless an option already supplied it.
func NewContext(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...ContextOption) (*Context, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}

	c := &Context{
		Context: ctx,
		config:  cfg,
		logger:  logger,
		metrics: metrics.New(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.db == nil {
		db, err := OpenDatabase(cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		c.db = db
	}

	if c.redis == nil {
		c.redis = OpenRedis(cfg.Redis)
	}

	if c.publisher == nil {
		if cfg.Events.Enabled {
			c.publisher = events.NewKafkaPublisher(cfg.Events.Brokers, cfg.Events.Topic, cfg.Events.WriteTimeout, logger.Named("events"))
		} else {
			c.publisher = events.NopPublisher{}
		}
	}

	c.health = NewCacheHealth(c.redis, cfg.Redis, c.metrics, logger)

	return c, nil
}

func (c *Context) Config() *config.Config {
	return c.config
}

func (c *Context) Logger() *zap.Logger {
	return c.logger
}

func (c *Context) DB() *gorm.DB {
	return c.db
}

func (c *Context) Redis() redis.UniversalClient {
	return c.redis
}

func (c *Context) CacheHealth() *CacheHealth {
	return c.health
}

func (c *Context) Metrics() *metrics.Metrics {
	return c.metrics
}

func (c *Context) Publisher() events.Publisher {
	return c.publisher
}

// Close releases the handles owned by the context.
func (c *Context) Close() error {
	var result *multierror.Error

	if c.publisher != nil {
		if err := c.publisher.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close publisher: %w", err))
		}
	}

	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close redis: %w", err))
		}
	}

	if c.db != nil {
		if sqlDB, err := c.db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				result = multierror.Append(result, fmt.Errorf("close database: %w", err))
			}
		}
	}

	return result.ErrorOrNil()
}
