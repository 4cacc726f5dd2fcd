package db

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm/schema"
)

const TableRefund = "refund"

var _ schema.Tabler = (*Refund)(nil)
var _ Row = (*Refund)(nil)

type Refund struct {
	MerchantID             string            `gorm:"primaryKey;size:64" json:"merchant_id"`
	RefundID               string            `gorm:"primaryKey;size:64" json:"refund_id"`
	PaymentID              string            `gorm:"size:64;index" json:"payment_id"`
	AttemptID              string            `gorm:"size:80" json:"attempt_id"`
	ConnectorTransactionID string            `gorm:"size:128" json:"connector_transaction_id"`
	ConnectorRefundID      string            `gorm:"size:128" json:"connector_refund_id"`
	Connector              string            `gorm:"size:64" json:"connector"`
	RefundType             RefundType        `gorm:"size:16" json:"refund_type"`
	TotalAmount            int64             `json:"total_amount"`
	RefundAmount           int64             `json:"refund_amount"`
	Currency               string            `gorm:"size:3" json:"currency"`
	Status                 RefundStatus      `gorm:"size:16;index" json:"status"`
	Reason                 string            `json:"reason"`
	Metadata               datatypes.JSONMap `json:"metadata"`
	ErrorCode              string            `gorm:"size:64" json:"error_code"`
	ErrorMessage           string            `json:"error_message"`
	CreatedAt              time.Time         `gorm:"autoCreateTime:false;index" json:"created_at"`
	ModifiedAt             time.Time         `json:"modified_at"`
}

func (r *Refund) TableName() string {
	return TableRefund
}

func (r *Refund) MerchantRef() string { return r.MerchantID }
func (r *Refund) BusinessRef() string { return r.RefundID }
func (r *Refund) PaymentRef() string  { return r.PaymentID }

type RefundUpdate interface {
	Name() string
	applyRefund(r Refund) Refund
}

func ApplyRefundUpdate(prior Refund, update RefundUpdate, now time.Time) Refund {
	next := update.applyRefund(prior)
	next.ModifiedAt = now
	return next
}

func NextRefundStatus(prior Refund, update RefundUpdate) RefundStatus {
	return update.applyRefund(prior).Status
}

type RefundStatusUpdate struct {
	Status            RefundStatus
	ConnectorRefundID string
}

func (u RefundStatusUpdate) Name() string { return "status_update" }

func (u RefundStatusUpdate) applyRefund(r Refund) Refund {
	r.Status = u.Status
	if u.ConnectorRefundID != "" {
		r.ConnectorRefundID = u.ConnectorRefundID
	}
	return r
}

type RefundErrorUpdate struct {
	Status       RefundStatus
	ErrorCode    string
	ErrorMessage string
}

func (u RefundErrorUpdate) Name() string { return "error_update" }

func (u RefundErrorUpdate) applyRefund(r Refund) Refund {
	r.Status = u.Status
	r.ErrorCode = u.ErrorCode
	r.ErrorMessage = u.ErrorMessage
	return r
}

type RefundMetadataUpdate struct {
	Reason   string
	Metadata map[string]any
}

func (u RefundMetadataUpdate) Name() string { return "metadata_update" }

func (u RefundMetadataUpdate) applyRefund(r Refund) Refund {
	if u.Reason != "" {
		r.Reason = u.Reason
	}
	if u.Metadata != nil {
		r.Metadata = Metadata(u.Metadata)
	}
	return r
}
