package db

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"gorm.io/gorm/schema"
)

var _ schema.Tabler = (*MerchantAccount)(nil)

type MerchantAccount struct {
	MerchantID       string        `gorm:"primaryKey;size:64" json:"merchant_id"`
	MerchantName     string        `json:"merchant_name"`
	APIKeyHash       string        `gorm:"size:64;uniqueIndex" json:"-"`
	StorageScheme    StorageScheme `gorm:"size:16" json:"storage_scheme"`
	DefaultConnector string        `gorm:"size:64" json:"default_connector"`
	WebhookSecret    string        `json:"-"`
	CreatedAt        time.Time     `gorm:"autoCreateTime:false" json:"created_at"`
	ModifiedAt       time.Time     `json:"modified_at"`
}

func (m *MerchantAccount) TableName() string {
	return "merchant_account"
}

// HashAPIKey is how API keys are stored and looked up.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

type MerchantAccountStorageSchemeUpdate struct {
	StorageScheme StorageScheme
}

func ApplyMerchantAccountStorageSchemeUpdate(prior MerchantAccount, update MerchantAccountStorageSchemeUpdate, now time.Time) MerchantAccount {
	prior.StorageScheme = update.StorageScheme
	prior.ModifiedAt = now
	return prior
}
