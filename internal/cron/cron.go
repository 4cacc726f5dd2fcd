package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.lumeweb.com/portal-plugin-payments/internal/core"
	"go.lumeweb.com/portal-plugin-payments/internal/cron/tasks"
	"go.lumeweb.com/portal-plugin-payments/internal/drainer"
	"go.uber.org/zap"
)

// Cron runs the periodic background tasks of the payments server.
type Cron struct {
	ctx       *core.Context
	drainer   *drainer.Drainer
	scheduler gocron.Scheduler
	logger    *zap.Logger
	runCtx    context.Context
	cancel    context.CancelFunc
}

// NewCron builds the scheduler. d may be nil when the server does not drain in-process.
func NewCron(ctx *core.Context, d *drainer.Drainer) (*Cron, error) {
	logger := ctx.Logger().Named("cron")

	scheduler, err := gocron.NewScheduler(gocron.WithLogger(&schedulerLogger{logger: logger.Sugar()}))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	return &Cron{
		ctx:       ctx,
		drainer:   d,
		scheduler: scheduler,
		logger:    logger,
		runCtx:    runCtx,
		cancel:    cancel,
	}, nil
}

func (c *Cron) RegisterTasks() error {
	redisCfg := c.ctx.Config().Redis
	err := c.register(tasks.TaskCacheHealthCheck, redisCfg.HealthCheckInterval, func(ctx context.Context) error {
		return tasks.CacheHealthCheck(ctx, c.ctx.CacheHealth())
	})
	if err != nil {
		return err
	}

	drainerCfg := c.ctx.Config().Drainer
	if !drainerCfg.Enabled || c.drainer == nil {
		return nil
	}

	return c.register(tasks.TaskDrainStreams, drainerCfg.PollInterval, func(ctx context.Context) error {
		return tasks.DrainStreams(ctx, c.drainer, c.logger)
	})
}

func (c *Cron) register(name string, interval time.Duration, task func(context.Context) error) error {
	if interval <= 0 {
		interval = time.Second
	}

	_, err := c.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if err := task(c.runCtx); err != nil {
				c.logger.Error("task failed", zap.String("task", name), zap.Error(err))
			}
		}),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("failed to register task %s: %w", name, err)
	}

	c.logger.Debug("registered task", zap.String("task", name), zap.Duration("interval", interval))
	return nil
}

func (c *Cron) Start() {
	c.scheduler.Start()
}

// Stop cancels running tasks and waits for them to return.
func (c *Cron) Stop() error {
	c.cancel()
	return c.scheduler.Shutdown()
}

type schedulerLogger struct {
	logger *zap.SugaredLogger
}

func (l *schedulerLogger) Debug(msg string, args ...any) { l.logger.Debugw(msg, args...) }
func (l *schedulerLogger) Error(msg string, args ...any) { l.logger.Errorw(msg, args...) }
func (l *schedulerLogger) Info(msg string, args ...any)  { l.logger.Infow(msg, args...) }
func (l *schedulerLogger) Warn(msg string, args ...any)  { l.logger.Warnw(msg, args...) }
