package connector

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.lumeweb.com/portal-plugin-payments/internal/core"
	"go.lumeweb.com/portal-plugin-payments/internal/db"
)

const DummyName = "dummy"

// Tokens with these prefixes steer the dummy connector.
const (
	DummyTokenDecline = "tok_decline"
	DummyTokenPending = "tok_pending"
	DummyTokenError   = "tok_error"
)

var _ Connector = (*Dummy)(nil)

// Dummy is an in-process connector with deterministic answers. It remembers the last status of
// every transaction and refund so that sync actions report what was decided earlier.
type Dummy struct {
	mu           sync.Mutex
	transactions map[string]db.AttemptStatus
	refunds      map[string]db.RefundStatus
}

func NewDummy() *Dummy {
	return &Dummy{
		transactions: make(map[string]db.AttemptStatus),
		refunds:      make(map[string]db.RefundStatus),
	}
}

func (d *Dummy) Name() string {
	return DummyName
}

func (d *Dummy) Submit(_ context.Context, action Action, req *Request) (*Outcome, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch action {
	case ActionAuthorize:
		return d.authorize(req)
	case ActionCapture:
		return d.transition(req.ConnectorTransactionID, db.AttemptStatusAuthorized, db.AttemptStatusCharged, req.Amount)
	case ActionVoid:
		return d.transition(req.ConnectorTransactionID, db.AttemptStatusAuthorized, db.AttemptStatusVoided, 0)
	case ActionSync:
		status, ok := d.transactions[req.ConnectorTransactionID]
		if !ok {
			return nil, core.NewDownstreamError(nil, "dummy: unknown transaction %q", req.ConnectorTransactionID)
		}
		return &Outcome{AttemptStatus: status, ConnectorTransactionID: req.ConnectorTransactionID}, nil
	case ActionRefund:
		if _, ok := d.transactions[req.ConnectorTransactionID]; !ok {
			return nil, core.NewDownstreamError(nil, "dummy: unknown transaction %q", req.ConnectorTransactionID)
		}
		status := db.RefundStatusSucceeded
		if strings.Contains(req.Reason, "review") {
			status = db.RefundStatusReview
		}
		id := "dref_" + uuid.NewString()
		d.refunds[id] = status
		return &Outcome{RefundStatus: status, ConnectorRefundID: id}, nil
	case ActionRefundSync:
		status, ok := d.refunds[req.ConnectorRefundID]
		if !ok {
			return nil, core.NewDownstreamError(nil, "dummy: unknown refund %q", req.ConnectorRefundID)
		}
		if status == db.RefundStatusReview {
			status = db.RefundStatusSucceeded
			d.refunds[req.ConnectorRefundID] = status
		}
		return &Outcome{RefundStatus: status, ConnectorRefundID: req.ConnectorRefundID}, nil
	default:
		return nil, core.NewValidationError("dummy connector does not support action %s", action)
	}
}

func (d *Dummy) authorize(req *Request) (*Outcome, error) {
	switch {
	case strings.HasPrefix(req.PaymentToken, DummyTokenError):
		return nil, core.NewDownstreamError(nil, "dummy: processor unavailable")
	case strings.HasPrefix(req.PaymentToken, DummyTokenDecline):
		return &Outcome{
			AttemptStatus: db.AttemptStatusFailure,
			ErrorCode:     "card_declined",
			ErrorMessage:  "The card was declined",
		}, nil
	}

	id := "dtxn_" + uuid.NewString()
	outcome := &Outcome{ConnectorTransactionID: id}

	switch {
	case strings.HasPrefix(req.PaymentToken, DummyTokenPending):
		outcome.AttemptStatus = db.AttemptStatusPending
	case req.CaptureMethod == CaptureMethodManual:
		outcome.AttemptStatus = db.AttemptStatusAuthorized
	default:
		outcome.AttemptStatus = db.AttemptStatusCharged
		outcome.AmountCaptured = req.Amount
	}

	final := outcome.AttemptStatus
	if final == db.AttemptStatusPending {
		// The next sync settles the payment.
		final = db.AttemptStatusCharged
	}
	d.transactions[id] = final

	return outcome, nil
}

func (d *Dummy) transition(txn string, from, to db.AttemptStatus, captured int64) (*Outcome, error) {
	status, ok := d.transactions[txn]
	if !ok {
		return nil, core.NewDownstreamError(nil, "dummy: unknown transaction %q", txn)
	}
	if status != from {
		return &Outcome{
			AttemptStatus:          db.AttemptStatusFailure,
			ConnectorTransactionID: txn,
			ErrorCode:              "invalid_state",
			ErrorMessage:           "transaction is " + string(status),
		}, nil
	}
	d.transactions[txn] = to
	return &Outcome{AttemptStatus: to, ConnectorTransactionID: txn, AmountCaptured: captured}, nil
}
