package config

import (
	"errors"
	"time"
)

var _ Defaults = (*ServerConfig)(nil)
var _ Validator = (*ServerConfig)(nil)

type ServerConfig struct {
	Addr           string        `config:"addr"`
	AllowedOrigins []string      `config:"allowed_origins"`
	RequestTimeout time.Duration `config:"request_timeout"`
}

func (c ServerConfig) Defaults() map[string]any {
	return map[string]any{
		"addr":            ":8080",
		"allowed_origins": []string{"*"},
		"request_timeout": 30 * time.Second,
	}
}

func (c ServerConfig) Validate() error {
	if c.Addr == "" {
		return errors.New("server.addr is required")
	}
	return nil
}
