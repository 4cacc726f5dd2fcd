package config

import (
	"fmt"
	"time"
)

var _ Defaults = (*ConnectorConfig)(nil)
var _ Validator = (*ConnectorConfig)(nil)

type ConnectorConfig struct {
	Default   string                       `config:"default"`
	Fallback  []string                     `config:"fallback"`
	Endpoints map[string]ConnectorEndpoint `config:"endpoints"`
}

type ConnectorEndpoint struct {
	BaseURL        string        `config:"base_url"`
	APIKey         string        `config:"api_key"`
	WebhookSecret  string        `config:"webhook_secret"`
	MaxRetries     int           `config:"max_retries"`
	RetryDelay     time.Duration `config:"retry_delay"`
	RequestTimeout time.Duration `config:"request_timeout"`
}

func (c ConnectorConfig) Defaults() map[string]any {
	return map[string]any{
		"default":  "dummy",
		"fallback": []string{},
	}
}

func (c ConnectorConfig) Validate() error {
	if c.Default == "" {
		return fmt.Errorf("connector.default is required")
	}

	for name, endpoint := range c.Endpoints {
		if endpoint.BaseURL == "" {
			return fmt.Errorf("connector.endpoints.%s.base_url is required", name)
		}

		if endpoint.APIKey == "" {
			return fmt.Errorf("connector.endpoints.%s.api_key is required", name)
		}

		if endpoint.MaxRetries < 0 {
			return fmt.Errorf("connector.endpoints.%s.max_retries must not be negative", name)
		}
	}

	return nil
}
