package config

import (
	"errors"
	"time"
)

var _ Defaults = (*RedisConfig)(nil)
var _ Validator = (*RedisConfig)(nil)

type RedisConfig struct {
	Addr                string        `config:"addr"`
	Password            string        `config:"password"`
	DB                  int           `config:"db"`
	PoolSize            int           `config:"pool_size"`
	HealthCheckInterval time.Duration `config:"health_check_interval"`
	ReconnectAttempts   uint          `config:"reconnect_attempts"`
	ReconnectDelay      time.Duration `config:"reconnect_delay"`
}

func (c RedisConfig) Defaults() map[string]any {
	return map[string]any{
		"addr":                  "localhost:6379",
		"password":              "",
		"db":                    0,
		"pool_size":             10,
		"health_check_interval": 5 * time.Second,
		"reconnect_attempts":    5,
		"reconnect_delay":       500 * time.Millisecond,
	}
}

func (c RedisConfig) Validate() error {
	if c.Addr == "" {
		return errors.New("redis.addr is required")
	}

	if c.HealthCheckInterval <= 0 {
		return errors.New("redis.health_check_interval must be positive")
	}

	return nil
}
