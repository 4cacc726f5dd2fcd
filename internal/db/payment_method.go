package db

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm/schema"
)

var _ schema.Tabler = (*PaymentMethod)(nil)

type PaymentMethod struct {
	MerchantID        string            `gorm:"primaryKey;size:64;uniqueIndex:idx_payment_method_token" json:"merchant_id"`
	PaymentMethodID   string            `gorm:"primaryKey;size:64" json:"payment_method_id"`
	CustomerID        string            `gorm:"size:64;index" json:"customer_id"`
	Token             string            `gorm:"size:128;uniqueIndex:idx_payment_method_token" json:"token"`
	PaymentMethod     string            `gorm:"size:32" json:"payment_method"`
	PaymentMethodType string            `gorm:"size:32" json:"payment_method_type"`
	Data              datatypes.JSONMap `json:"data"`
	CreatedAt         time.Time         `gorm:"autoCreateTime:false" json:"created_at"`
}

func (p *PaymentMethod) TableName() string {
	return "payment_methods"
}
