package db

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm/schema"
)

const TablePaymentIntent = "payment_intent"

var _ schema.Tabler = (*PaymentIntent)(nil)
var _ Row = (*PaymentIntent)(nil)

type PaymentIntent struct {
	MerchantID       string            `gorm:"primaryKey;size:64" json:"merchant_id"`
	PaymentID        string            `gorm:"primaryKey;size:64" json:"payment_id"`
	Status           IntentStatus      `gorm:"size:32;index" json:"status"`
	Amount           int64             `json:"amount"`
	Currency         string            `gorm:"size:3" json:"currency"`
	AmountCaptured   int64             `json:"amount_captured"`
	CaptureMethod    string            `gorm:"size:16" json:"capture_method"`
	CustomerID       string            `gorm:"size:64;index" json:"customer_id"`
	Description      string            `json:"description"`
	ReturnURL        string            `json:"return_url"`
	ClientSecret     string            `gorm:"size:128" json:"client_secret"`
	ConnectorID      string            `gorm:"size:64" json:"connector_id"`
	ActiveAttemptID  string            `gorm:"size:80" json:"active_attempt_id"`
	AttemptCount     int               `json:"attempt_count"`
	SetupFutureUsage string            `gorm:"size:32" json:"setup_future_usage"`
	OffSession       bool              `json:"off_session"`
	Metadata         datatypes.JSONMap `json:"metadata"`
	CreatedAt        time.Time         `gorm:"autoCreateTime:false;index" json:"created_at"`
	ModifiedAt       time.Time         `json:"modified_at"`
	LastSynced       time.Time         `json:"last_synced"`
}

func (p *PaymentIntent) TableName() string {
	return TablePaymentIntent
}

func (p *PaymentIntent) MerchantRef() string { return p.MerchantID }
func (p *PaymentIntent) BusinessRef() string { return p.PaymentID }
func (p *PaymentIntent) PaymentRef() string  { return p.PaymentID }

// PaymentIntentUpdate is the closed set of changesets that can be applied to an intent.
type PaymentIntentUpdate interface {
	Name() string
	applyIntent(p PaymentIntent) PaymentIntent
}

// ApplyPaymentIntentUpdate returns the row that results from applying update to prior at now.
// Both storage schemes build the persisted row through this function.
func ApplyPaymentIntentUpdate(prior PaymentIntent, update PaymentIntentUpdate, now time.Time) PaymentIntent {
	next := update.applyIntent(prior)
	next.ModifiedAt = now
	return next
}

// NextIntentStatus is the status an intent would have after update, used for FSM checks.
func NextIntentStatus(prior PaymentIntent, update PaymentIntentUpdate) IntentStatus {
	return update.applyIntent(prior).Status
}

type PaymentIntentStatusUpdate struct {
	Status IntentStatus
}

func (u PaymentIntentStatusUpdate) Name() string { return "status_update" }

func (u PaymentIntentStatusUpdate) applyIntent(p PaymentIntent) PaymentIntent {
	p.Status = u.Status
	return p
}

type PaymentIntentReturnURLUpdate struct {
	ReturnURL  string
	Status     IntentStatus
	CustomerID string
}

func (u PaymentIntentReturnURLUpdate) Name() string { return "return_url_update" }

func (u PaymentIntentReturnURLUpdate) applyIntent(p PaymentIntent) PaymentIntent {
	if u.ReturnURL != "" {
		p.ReturnURL = u.ReturnURL
	}
	if u.Status != "" {
		p.Status = u.Status
	}
	if u.CustomerID != "" {
		p.CustomerID = u.CustomerID
	}
	return p
}

type PaymentIntentMetadataUpdate struct {
	Metadata map[string]any
}

func (u PaymentIntentMetadataUpdate) Name() string { return "metadata_update" }

func (u PaymentIntentMetadataUpdate) applyIntent(p PaymentIntent) PaymentIntent {
	p.Metadata = Metadata(u.Metadata)
	return p
}

type PaymentIntentAttemptUpdate struct {
	ActiveAttemptID string
	AttemptCount    int
	Status          IntentStatus
	ConnectorID     string
}

func (u PaymentIntentAttemptUpdate) Name() string { return "attempt_update" }

func (u PaymentIntentAttemptUpdate) applyIntent(p PaymentIntent) PaymentIntent {
	p.ActiveAttemptID = u.ActiveAttemptID
	p.AttemptCount = u.AttemptCount
	if u.Status != "" {
		p.Status = u.Status
	}
	if u.ConnectorID != "" {
		p.ConnectorID = u.ConnectorID
	}
	return p
}

type PaymentIntentResponseUpdate struct {
	Status         IntentStatus
	AmountCaptured int64
	LastSynced     time.Time
}

func (u PaymentIntentResponseUpdate) Name() string { return "response_update" }

func (u PaymentIntentResponseUpdate) applyIntent(p PaymentIntent) PaymentIntent {
	p.Status = u.Status
	if u.AmountCaptured > 0 {
		p.AmountCaptured = u.AmountCaptured
	}
	if !u.LastSynced.IsZero() {
		p.LastSynced = u.LastSynced
	}
	return p
}

type PaymentIntentAmountUpdate struct {
	Amount           int64
	Currency         string
	CustomerID       string
	Description      string
	ReturnURL        string
	SetupFutureUsage string
	Metadata         map[string]any
	Status           IntentStatus
}

func (u PaymentIntentAmountUpdate) Name() string { return "update" }

func (u PaymentIntentAmountUpdate) applyIntent(p PaymentIntent) PaymentIntent {
	if u.Amount > 0 {
		p.Amount = u.Amount
	}
	if u.Currency != "" {
		p.Currency = u.Currency
	}
	if u.CustomerID != "" {
		p.CustomerID = u.CustomerID
	}
	if u.Description != "" {
		p.Description = u.Description
	}
	if u.ReturnURL != "" {
		p.ReturnURL = u.ReturnURL
	}
	if u.SetupFutureUsage != "" {
		p.SetupFutureUsage = u.SetupFutureUsage
	}
	if u.Metadata != nil {
		p.Metadata = Metadata(u.Metadata)
	}
	if u.Status != "" {
		p.Status = u.Status
	}
	return p
}
