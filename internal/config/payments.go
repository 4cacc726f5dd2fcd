package config

import (
	"errors"
	"time"

	"github.com/samber/lo"
)

var _ Defaults = (*PaymentsConfig)(nil)
var _ Validator = (*PaymentsConfig)(nil)

const (
	StorageSchemeStrict = "postgres_only"
	StorageSchemeCached = "redis_kv"
)

type PaymentsConfig struct {
	DefaultStorageScheme string        `config:"default_storage_scheme"`
	IDLength             int           `config:"id_length"`
	MerchantCacheTTL     time.Duration `config:"merchant_cache_ttl"`
}

func (c PaymentsConfig) Defaults() map[string]any {
	return map[string]any{
		"default_storage_scheme": StorageSchemeStrict,
		"id_length":              20,
		"merchant_cache_ttl":     5 * time.Minute,
	}
}

func (c PaymentsConfig) Validate() error {
	if !lo.Contains([]string{StorageSchemeStrict, StorageSchemeCached}, c.DefaultStorageScheme) {
		return errors.New("payments.default_storage_scheme must be postgres_only or redis_kv")
	}

	if c.IDLength < 8 || c.IDLength > 48 {
		return errors.New("payments.id_length must be between 8 and 48")
	}

	return nil
}
