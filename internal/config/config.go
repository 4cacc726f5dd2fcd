package config

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "PAYMENTS_"

// Defaults is implemented by every config section. Keys are relative to the section.
type Defaults interface {
	Defaults() map[string]any
}

// Validator is implemented by sections that can reject a loaded configuration.
type Validator interface {
	Validate() error
}

var _ Defaults = (*Config)(nil)
var _ Validator = (*Config)(nil)

type Config struct {
	Log       LogConfig       `config:"log"`
	Server    ServerConfig    `config:"server"`
	Database  DatabaseConfig  `config:"database"`
	Redis     RedisConfig     `config:"redis"`
	Drainer   DrainerConfig   `config:"drainer"`
	Payments  PaymentsConfig  `config:"payments"`
	Connector ConnectorConfig `config:"connector"`
	Events    EventsConfig    `config:"events"`
}

func (c Config) sections() map[string]Defaults {
	return map[string]Defaults{
		"log":       c.Log,
		"server":    c.Server,
		"database":  c.Database,
		"redis":     c.Redis,
		"drainer":   c.Drainer,
		"payments":  c.Payments,
		"connector": c.Connector,
		"events":    c.Events,
	}
}

func (c Config) Defaults() map[string]any {
	defaults := make(map[string]any)
	for name, section := range c.sections() {
		for key, value := range section.Defaults() {
			defaults[name+"."+key] = value
		}
	}
	return defaults
}

func (c Config) Validate() error {
	var result *multierror.Error
	for name, section := range c.sections() {
		v, ok := section.(Validator)
		if !ok {
			continue
		}
		if err := v.Validate(); err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", name, err))
		}
	}
	return result.ErrorOrNil()
}

// Load builds the configuration from section defaults, an optional YAML file and PAYMENTS_
// environment variables, in that order of precedence. A double underscore in a variable name
// separates sections: PAYMENTS_REDIS__ADDR sets redis.addr.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := &Config{}

	if err := k.Load(confmap.Provider(cfg.Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load config defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load environment config: %w", err)
	}

	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "config"}); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
