package config

import (
	"errors"

	"github.com/samber/lo"
)

var _ Defaults = (*LogConfig)(nil)
var _ Validator = (*LogConfig)(nil)

type LogConfig struct {
	Level  string `config:"level"`
	Format string `config:"format"`
}

func (c LogConfig) Defaults() map[string]any {
	return map[string]any{
		"level":  "info",
		"format": "json",
	}
}

func (c LogConfig) Validate() error {
	if !lo.Contains([]string{"json", "console"}, c.Format) {
		return errors.New("log.format must be json or console")
	}
	return nil
}
