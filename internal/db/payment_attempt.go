package db

import (
	"time"

	"gorm.io/gorm/schema"
)

const TablePaymentAttempt = "payment_attempt"

var _ schema.Tabler = (*PaymentAttempt)(nil)
var _ Row = (*PaymentAttempt)(nil)

type PaymentAttempt struct {
	MerchantID             string        `gorm:"primaryKey;size:64" json:"merchant_id"`
	AttemptID              string        `gorm:"primaryKey;size:80" json:"attempt_id"`
	PaymentID              string        `gorm:"size:64;index" json:"payment_id"`
	TxnID                  string        `gorm:"size:64" json:"txn_id"`
	Status                 AttemptStatus `gorm:"size:32" json:"status"`
	Amount                 int64         `json:"amount"`
	Currency               string        `gorm:"size:3" json:"currency"`
	AmountToCapture        int64         `json:"amount_to_capture"`
	Connector              string        `gorm:"size:64" json:"connector"`
	ConnectorTransactionID string        `gorm:"size:128" json:"connector_transaction_id"`
	PaymentMethod          string        `gorm:"size:32" json:"payment_method"`
	PaymentMethodType      string        `gorm:"size:32" json:"payment_method_type"`
	PaymentToken           string        `gorm:"size:128" json:"payment_token"`
	Confirm                bool          `json:"confirm"`
	MandateID              string        `gorm:"size:64" json:"mandate_id"`
	CancellationReason     string        `json:"cancellation_reason"`
	ErrorCode              string        `gorm:"size:64" json:"error_code"`
	ErrorMessage           string        `json:"error_message"`
	CreatedAt              time.Time     `gorm:"autoCreateTime:false" json:"created_at"`
	ModifiedAt             time.Time     `json:"modified_at"`
	LastSynced             time.Time     `json:"last_synced"`
}

func (p *PaymentAttempt) TableName() string {
	return TablePaymentAttempt
}

func (p *PaymentAttempt) MerchantRef() string { return p.MerchantID }
func (p *PaymentAttempt) BusinessRef() string { return p.AttemptID }
func (p *PaymentAttempt) PaymentRef() string  { return p.PaymentID }

// PaymentAttemptUpdate is the closed set of changesets that can be applied to an attempt.
type PaymentAttemptUpdate interface {
	Name() string
	applyAttempt(p PaymentAttempt) PaymentAttempt
}

func ApplyPaymentAttemptUpdate(prior PaymentAttempt, update PaymentAttemptUpdate, now time.Time) PaymentAttempt {
	next := update.applyAttempt(prior)
	next.ModifiedAt = now
	return next
}

func NextAttemptStatus(prior PaymentAttempt, update PaymentAttemptUpdate) AttemptStatus {
	return update.applyAttempt(prior).Status
}

type PaymentAttemptStatusUpdate struct {
	Status AttemptStatus
}

func (u PaymentAttemptStatusUpdate) Name() string { return "status_update" }

func (u PaymentAttemptStatusUpdate) applyAttempt(p PaymentAttempt) PaymentAttempt {
	p.Status = u.Status
	return p
}

type PaymentAttemptConfirmUpdate struct {
	Amount            int64
	Currency          string
	Status            AttemptStatus
	Connector         string
	PaymentMethod     string
	PaymentMethodType string
	PaymentToken      string
	Confirm           bool
}

func (u PaymentAttemptConfirmUpdate) Name() string { return "confirm_update" }

func (u PaymentAttemptConfirmUpdate) applyAttempt(p PaymentAttempt) PaymentAttempt {
	if u.Amount > 0 {
		p.Amount = u.Amount
	}
	if u.Currency != "" {
		p.Currency = u.Currency
	}
	if u.Status != "" {
		p.Status = u.Status
	}
	if u.Connector != "" {
		p.Connector = u.Connector
	}
	if u.PaymentMethod != "" {
		p.PaymentMethod = u.PaymentMethod
	}
	if u.PaymentMethodType != "" {
		p.PaymentMethodType = u.PaymentMethodType
	}
	if u.PaymentToken != "" {
		p.PaymentToken = u.PaymentToken
	}
	p.Confirm = p.Confirm || u.Confirm
	return p
}

type PaymentAttemptCaptureUpdate struct {
	AmountToCapture int64
	Status          AttemptStatus
}

func (u PaymentAttemptCaptureUpdate) Name() string { return "capture_update" }

func (u PaymentAttemptCaptureUpdate) applyAttempt(p PaymentAttempt) PaymentAttempt {
	p.AmountToCapture = u.AmountToCapture
	p.Status = u.Status
	return p
}

type PaymentAttemptVoidUpdate struct {
	Status             AttemptStatus
	CancellationReason string
}

func (u PaymentAttemptVoidUpdate) Name() string { return "void_update" }

func (u PaymentAttemptVoidUpdate) applyAttempt(p PaymentAttempt) PaymentAttempt {
	p.Status = u.Status
	p.CancellationReason = u.CancellationReason
	return p
}

type PaymentAttemptResponseUpdate struct {
	Status                 AttemptStatus
	ConnectorTransactionID string
	ErrorCode              string
	ErrorMessage           string
	LastSynced             time.Time
}

func (u PaymentAttemptResponseUpdate) Name() string { return "response_update" }

func (u PaymentAttemptResponseUpdate) applyAttempt(p PaymentAttempt) PaymentAttempt {
	p.Status = u.Status
	if u.ConnectorTransactionID != "" {
		p.ConnectorTransactionID = u.ConnectorTransactionID
	}
	p.ErrorCode = u.ErrorCode
	p.ErrorMessage = u.ErrorMessage
	if !u.LastSynced.IsZero() {
		p.LastSynced = u.LastSynced
	}
	return p
}

type PaymentAttemptErrorUpdate struct {
	Status       AttemptStatus
	ErrorCode    string
	ErrorMessage string
}

func (u PaymentAttemptErrorUpdate) Name() string { return "error_update" }

func (u PaymentAttemptErrorUpdate) applyAttempt(p PaymentAttempt) PaymentAttempt {
	p.Status = u.Status
	p.ErrorCode = u.ErrorCode
	p.ErrorMessage = u.ErrorMessage
	return p
}
