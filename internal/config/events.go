package config

import (
	"errors"
	"time"
)

var _ Defaults = (*EventsConfig)(nil)
var _ Validator = (*EventsConfig)(nil)

type EventsConfig struct {
	Enabled      bool          `config:"enabled"`
	Brokers      []string      `config:"brokers"`
	Topic        string        `config:"topic"`
	WriteTimeout time.Duration `config:"write_timeout"`
}

func (c EventsConfig) Defaults() map[string]any {
	return map[string]any{
		"enabled":       false,
		"brokers":       []string{"localhost:9092"},
		"topic":         "payment_events",
		"write_timeout": 5 * time.Second,
	}
}

func (c EventsConfig) Validate() error {
	if !c.Enabled {
		return nil
	}

	if len(c.Brokers) == 0 {
		return errors.New("events.brokers is required")
	}

	if c.Topic == "" {
		return errors.New("events.topic is required")
	}

	return nil
}
