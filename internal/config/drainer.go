package config

import (
	"errors"
	"time"
)

var _ Defaults = (*DrainerConfig)(nil)
var _ Validator = (*DrainerConfig)(nil)

type DrainerConfig struct {
	Enabled       bool          `config:"enabled"`
	StreamName    string        `config:"stream_name"`
	NumPartitions uint8         `config:"num_partitions"`
	ConsumerGroup string        `config:"consumer_group"`
	ConsumerName  string        `config:"consumer_name"`
	BatchSize     int64         `config:"batch_size"`
	PollInterval  time.Duration `config:"poll_interval"`
}

func (c DrainerConfig) Defaults() map[string]any {
	return map[string]any{
		"enabled":        false,
		"stream_name":    "drainer_stream",
		"num_partitions": 64,
		"consumer_group": "drainer",
		"consumer_name":  "drainer-0",
		"batch_size":     100,
		"poll_interval":  time.Second,
	}
}

func (c DrainerConfig) Validate() error {
	if c.NumPartitions == 0 {
		return errors.New("drainer.num_partitions must be at least 1")
	}

	if c.StreamName == "" {
		return errors.New("drainer.stream_name is required")
	}

	if c.BatchSize <= 0 {
		return errors.New("drainer.batch_size must be positive")
	}

	return nil
}
