package connector

import (
	"context"

	"go.lumeweb.com/portal-plugin-payments/internal/db"
)

type Action string

const (
	ActionAuthorize  Action = "authorize"
	ActionCapture    Action = "capture"
	ActionVoid       Action = "void"
	ActionSync       Action = "sync"
	ActionRefund     Action = "refund"
	ActionRefundSync Action = "refund_sync"
)

const (
	CaptureMethodAutomatic = "automatic"
	CaptureMethodManual    = "manual"
)

// Connector submits one action to a downstream processor and normalizes its answer.
type Connector interface {
	Name() string
	// Submit returns a core.ErrDownstream error when the processor could not be reached or
	// rejected the call outright. A processed decline is an Outcome with a failure status.
	Submit(ctx context.Context, action Action, req *Request) (*Outcome, error)
}

type Request struct {
	MerchantID             string
	PaymentID              string
	AttemptID              string
	RefundID               string
	Amount                 int64
	Currency               string
	CaptureMethod          string
	ConnectorTransactionID string
	ConnectorRefundID      string
	PaymentMethod          string
	PaymentMethodType      string
	PaymentToken           string
	PaymentMethodData      map[string]any
	CustomerID             string
	CancellationReason     string
	Reason                 string
	OffSession             bool
}

// Outcome is the normalized processor answer. Payment actions fill AttemptStatus, refund actions
// fill RefundStatus.
type Outcome struct {
	AttemptStatus          db.AttemptStatus
	RefundStatus           db.RefundStatus
	ConnectorTransactionID string
	ConnectorRefundID      string
	AmountCaptured         int64
	ErrorCode              string
	ErrorMessage           string
	AuthenticationData     string
	EncodedData            string
}

// Declined reports whether the processor answered but refused the payment.
func (o *Outcome) Declined() bool {
	return o.AttemptStatus.IsFailure()
}
