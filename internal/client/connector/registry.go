package connector

import (
	"context"
	"sort"

	"github.com/samber/lo"
	"go.lumeweb.com/portal-plugin-payments/internal/config"
	"go.lumeweb.com/portal-plugin-payments/internal/core"
	"go.lumeweb.com/portal-plugin-payments/internal/metrics"
	"go.uber.org/zap"
)

// Registry resolves connectors by name.
type Registry struct {
	connectors map[string]Connector
	cfg        config.ConnectorConfig
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// NewRegistry registers the dummy connector and one HTTP connector per configured endpoint.
func NewRegistry(cfg config.ConnectorConfig, m *metrics.Metrics, logger *zap.Logger) *Registry {
	r := &Registry{
		connectors: make(map[string]Connector),
		cfg:        cfg,
		metrics:    m,
		logger:     logger.Named("connector"),
	}

	r.Register(NewDummy())
	for name, endpoint := range cfg.Endpoints {
		r.Register(NewHTTPConnector(name, endpoint, r.logger))
	}

	return r
}

func (r *Registry) Register(c Connector) {
	r.connectors[c.Name()] = c
}

// Get returns the named connector. Unknown names are a validation error since they come from requests.
func (r *Registry) Get(name string) (Connector, error) {
	c, ok := r.connectors[name]
	if !ok {
		return nil, core.NewValidationError("unknown connector %q", name)
	}
	return &instrumented{Connector: c, metrics: r.metrics}, nil
}

func (r *Registry) Default() string {
	return r.cfg.Default
}

// Select picks the connector for a payment: the requested one, then the merchant's default, then
// the configured default.
func (r *Registry) Select(requested, merchantDefault string) string {
	switch {
	case requested != "":
		return requested
	case merchantDefault != "":
		return merchantDefault
	default:
		return r.cfg.Default
	}
}

// Fallback returns the first configured fallback connector not in tried.
func (r *Registry) Fallback(tried ...string) (string, bool) {
	for _, name := range r.cfg.Fallback {
		if lo.Contains(tried, name) {
			continue
		}
		if _, ok := r.connectors[name]; ok {
			return name, true
		}
	}
	return "", false
}

func (r *Registry) WebhookSecret(name string) string {
	return r.cfg.Endpoints[name].WebhookSecret
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.connectors))
	for name := range r.connectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type instrumented struct {
	Connector
	metrics *metrics.Metrics
}

func (i *instrumented) Submit(ctx context.Context, action Action, req *Request) (*Outcome, error) {
	outcome, err := i.Connector.Submit(ctx, action, req)
	if i.metrics != nil {
		result := "ok"
		if err != nil {
			result = core.KindName(err)
		} else if outcome.Declined() {
			result = "declined"
		}
		i.metrics.ConnectorCall(i.Name(), string(action), result)
	}
	return outcome, err
}
