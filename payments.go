package payments

import (
	"fmt"
	"net/http"

	"go.lumeweb.com/portal-plugin-payments/internal/api"
	"go.lumeweb.com/portal-plugin-payments/internal/client/connector"
	"go.lumeweb.com/portal-plugin-payments/internal/core"
	"go.lumeweb.com/portal-plugin-payments/internal/cron"
	pluginDb "go.lumeweb.com/portal-plugin-payments/internal/db"
	"go.lumeweb.com/portal-plugin-payments/internal/drainer"
	"go.lumeweb.com/portal-plugin-payments/internal/service"
	"go.lumeweb.com/portal-plugin-payments/internal/storage"
	"go.uber.org/zap"
)

const pluginName = "payments"

// Payments wires the storage layer, connectors, services and background tasks of one process.
type Payments struct {
	ctx        *core.Context
	store      *storage.Store
	connectors *connector.Registry
	services   map[string]any
	api        *api.API
	drainer    *drainer.Drainer
	cron       *cron.Cron
	logger     *zap.Logger
}

func New(ctx *core.Context) (*Payments, error) {
	p := &Payments{
		ctx:        ctx,
		store:      storage.New(ctx),
		connectors: connector.NewRegistry(ctx.Config().Connector, ctx.Metrics(), ctx.Logger()),
		drainer:    drainer.New(ctx),
		logger:     ctx.Logger().Named(pluginName),
	}

	if _, err := p.connectors.Get(p.connectors.Default()); err != nil {
		return nil, fmt.Errorf("default connector: %w", err)
	}

	merchants := service.NewMerchantManager(ctx, p.store)
	payments := service.NewPaymentService(ctx, p.store, p.connectors)
	refunds := service.NewRefundService(ctx, p.store, p.connectors)
	customers := service.NewCustomerService(ctx, p.store)
	webhooks := service.NewWebhookService(ctx, merchants, payments, refunds, p.connectors)

	p.services = map[string]any{
		service.MERCHANT_SERVICE: merchants,
		service.PAYMENT_SERVICE:  payments,
		service.REFUND_SERVICE:   refunds,
		service.CUSTOMER_SERVICE: customers,
		service.WEBHOOK_SERVICE:  webhooks,
	}

	p.api = api.NewAPI(ctx, api.Services{
		Merchants: merchants,
		Payments:  payments,
		Refunds:   refunds,
		Customers: customers,
		Webhooks:  webhooks,
	})

	c, err := cron.NewCron(ctx, p.drainer)
	if err != nil {
		return nil, err
	}
	if err := c.RegisterTasks(); err != nil {
		return nil, err
	}
	p.cron = c

	return p, nil
}

// Models lists every table the service owns, for migrations.
func Models() []any {
	return pluginDb.Models()
}

// Migrate creates or updates the tables of every model.
func Migrate(ctx *core.Context) error {
	if err := ctx.DB().AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}

// Service returns a service by its id, or nil.
func (p *Payments) Service(id string) any {
	return p.services[id]
}

func (p *Payments) Merchants() service.MerchantManager {
	return p.services[service.MERCHANT_SERVICE].(service.MerchantManager)
}

func (p *Payments) Handler() http.Handler {
	return p.api.Handler()
}

func (p *Payments) Drainer() *drainer.Drainer {
	return p.drainer
}

func (p *Payments) Connectors() []string {
	return p.connectors.Names()
}

// Start starts the background tasks.
func (p *Payments) Start() {
	p.logger.Info("starting background tasks",
		zap.Bool("drainer", p.ctx.Config().Drainer.Enabled),
		zap.Strings("connectors", p.connectors.Names()))
	p.cron.Start()
}

func (p *Payments) Stop() error {
	return p.cron.Stop()
}
