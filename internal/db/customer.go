package db

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm/schema"
)

var _ schema.Tabler = (*Customer)(nil)

type Customer struct {
	MerchantID       string            `gorm:"primaryKey;size:64" json:"merchant_id"`
	CustomerID       string            `gorm:"primaryKey;size:64" json:"customer_id"`
	Name             string            `json:"name"`
	Email            string            `json:"email"`
	Phone            string            `gorm:"size:32" json:"phone"`
	PhoneCountryCode string            `gorm:"size:8" json:"phone_country_code"`
	Description      string            `json:"description"`
	Metadata         datatypes.JSONMap `json:"metadata"`
	CreatedAt        time.Time         `gorm:"autoCreateTime:false" json:"created_at"`
	ModifiedAt       time.Time         `json:"modified_at"`
}

func (c *Customer) TableName() string {
	return "customers"
}

// CustomerUpdate carries the fields a customer update may change. Empty fields are kept.
type CustomerUpdate struct {
	Name             string
	Email            string
	Phone            string
	PhoneCountryCode string
	Description      string
	Metadata         map[string]any
}

func ApplyCustomerUpdate(prior Customer, update CustomerUpdate, now time.Time) Customer {
	if update.Name != "" {
		prior.Name = update.Name
	}
	if update.Email != "" {
		prior.Email = update.Email
	}
	if update.Phone != "" {
		prior.Phone = update.Phone
	}
	if update.PhoneCountryCode != "" {
		prior.PhoneCountryCode = update.PhoneCountryCode
	}
	if update.Description != "" {
		prior.Description = update.Description
	}
	if update.Metadata != nil {
		prior.Metadata = Metadata(update.Metadata)
	}
	prior.ModifiedAt = now
	return prior
}

// RedactCustomer clears personal data while keeping the row for referential integrity.
func RedactCustomer(prior Customer, now time.Time) Customer {
	prior.Name = "Redacted"
	prior.Email = "redacted@example.com"
	prior.Phone = ""
	prior.PhoneCountryCode = ""
	prior.Description = ""
	prior.Metadata = datatypes.JSONMap{}
	prior.ModifiedAt = now
	return prior
}
