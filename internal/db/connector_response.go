package db

import (
	"time"

	"gorm.io/gorm/schema"
)

const TableConnectorResponse = "connector_response"

var _ schema.Tabler = (*ConnectorResponse)(nil)
var _ Row = (*ConnectorResponse)(nil)

// ConnectorResponse holds connector-side data for one attempt. It is created empty alongside the
// attempt and filled in once the connector answers.
type ConnectorResponse struct {
	MerchantID             string    `gorm:"primaryKey;size:64" json:"merchant_id"`
	AttemptID              string    `gorm:"primaryKey;size:80" json:"attempt_id"`
	PaymentID              string    `gorm:"size:64;index" json:"payment_id"`
	ConnectorName          string    `gorm:"size:64" json:"connector_name"`
	ConnectorTransactionID string    `gorm:"size:128" json:"connector_transaction_id"`
	AuthenticationData     string    `json:"authentication_data"`
	EncodedData            string    `json:"encoded_data"`
	CreatedAt              time.Time `gorm:"autoCreateTime:false" json:"created_at"`
	ModifiedAt             time.Time `json:"modified_at"`
}

func (c *ConnectorResponse) TableName() string {
	return TableConnectorResponse
}

func (c *ConnectorResponse) MerchantRef() string { return c.MerchantID }
func (c *ConnectorResponse) BusinessRef() string { return c.AttemptID }
func (c *ConnectorResponse) PaymentRef() string  { return c.PaymentID }

type ConnectorResponseUpdate interface {
	Name() string
	applyConnectorResponse(c ConnectorResponse) ConnectorResponse
}

func ApplyConnectorResponseUpdate(prior ConnectorResponse, update ConnectorResponseUpdate, now time.Time) ConnectorResponse {
	next := update.applyConnectorResponse(prior)
	next.ModifiedAt = now
	return next
}

type ConnectorResponseResponseUpdate struct {
	ConnectorName          string
	ConnectorTransactionID string
	AuthenticationData     string
	EncodedData            string
}

func (u ConnectorResponseResponseUpdate) Name() string { return "response_update" }

func (u ConnectorResponseResponseUpdate) applyConnectorResponse(c ConnectorResponse) ConnectorResponse {
	if u.ConnectorName != "" {
		c.ConnectorName = u.ConnectorName
	}
	if u.ConnectorTransactionID != "" {
		c.ConnectorTransactionID = u.ConnectorTransactionID
	}
	if u.AuthenticationData != "" {
		c.AuthenticationData = u.AuthenticationData
	}
	if u.EncodedData != "" {
		c.EncodedData = u.EncodedData
	}
	return c
}
