package operations

import (
	"go.lumeweb.com/portal-plugin-payments/internal/client/connector"
	"go.lumeweb.com/portal-plugin-payments/internal/db"
)

type Flow string

const (
	FlowCreate       Flow = "create"
	FlowUpdate       Flow = "update"
	FlowConfirm      Flow = "confirm"
	FlowCapture      Flow = "capture"
	FlowCancel       Flow = "cancel"
	FlowVerify       Flow = "verify"
	FlowSync         Flow = "sync"
	FlowRefundCreate Flow = "refund_create"
	FlowRefundSync   Flow = "refund_sync"
	FlowRefundUpdate Flow = "refund_update"
)

type MandateTxnType string

const (
	MandateTxnNone      MandateTxnType = ""
	MandateTxnNew       MandateTxnType = "new_mandate"
	MandateTxnRecurring MandateTxnType = "recurring_mandate"
)

const SetupFutureUsageOffSession = "off_session"

// ValidateResult is what stage one hands to the later stages.
type ValidateResult struct {
	MerchantID         string
	BusinessID         string
	StorageScheme      db.StorageScheme
	RequestedConnector string
	MandateType        MandateTxnType
}

type CustomerDetails struct {
	CustomerID       string
	Name             string
	Email            string
	Phone            string
	PhoneCountryCode string
}

type MandateData struct {
	CustomerAcceptance string
	MandateType        string
	Amount             int64
	Currency           string
}

type PaymentsRequest struct {
	PaymentID         string
	MerchantID        string
	Amount            int64
	Currency          string
	CaptureMethod     string
	Confirm           bool
	CustomerID        string
	Customer          *CustomerDetails
	Description       string
	ReturnURL         string
	SetupFutureUsage  string
	OffSession        bool
	Connector         string
	PaymentMethod     string
	PaymentMethodType string
	PaymentToken      string
	PaymentMethodData map[string]any
	MandateID         string
	MandateData       *MandateData
	Metadata          map[string]any
}

func (r *PaymentsRequest) hasPaymentMethod() bool {
	return r.PaymentToken != "" || len(r.PaymentMethodData) > 0
}

type PaymentsCaptureRequest struct {
	PaymentID       string
	MerchantID      string
	AmountToCapture int64
}

type PaymentsCancelRequest struct {
	PaymentID          string
	MerchantID         string
	CancellationReason string
}

type PaymentsRetrieveRequest struct {
	PaymentID  string
	MerchantID string
	ForceSync  bool
}

type VerifyRequest struct {
	PaymentID         string
	MerchantID        string
	Currency          string
	CustomerID        string
	Customer          *CustomerDetails
	ReturnURL         string
	Connector         string
	PaymentMethod     string
	PaymentMethodType string
	PaymentToken      string
	PaymentMethodData map[string]any
	MandateData       *MandateData
	SetupFutureUsage  string
}

type RefundRequest struct {
	RefundID   string
	PaymentID  string
	MerchantID string
	Amount     int64
	Reason     string
	RefundType db.RefundType
	Metadata   map[string]any
}

type RefundsRetrieveRequest struct {
	RefundID   string
	MerchantID string
	ForceSync  bool
}

type RefundUpdateRequest struct {
	RefundID   string
	MerchantID string
	Reason     string
	Metadata   map[string]any
}

// PaymentMethodData is the resolved payment method of a run, from a stored token or inline data.
type PaymentMethodData struct {
	PaymentMethod     string
	PaymentMethodType string
	Token             string
	Data              map[string]any
}

// PaymentData is the tracker state of a payment flow.
type PaymentData struct {
	Intent            db.PaymentIntent
	Attempt           db.PaymentAttempt
	ConnectorResponse *db.ConnectorResponse
	Refunds           []db.Refund
	PaymentMethod     *PaymentMethodData
	Customer          *db.Customer
	Connector         string
	Confirm           bool
	MandateType       MandateTxnType
	StorageScheme     db.StorageScheme

	// CallConnector is the action the caller must dispatch after the run, if any.
	CallConnector connector.Action

	requestedPaymentMethod *PaymentMethodData
	requirePaymentMethod   bool
	update                 *PaymentsRequest
	amountToCapture        int64
	cancellationReason     string
}

// RefundData is the tracker state of a refund flow.
type RefundData struct {
	Intent        db.PaymentIntent
	Attempt       db.PaymentAttempt
	Refund        db.Refund
	StorageScheme db.StorageScheme
	CallConnector connector.Action

	metadataUpdate *RefundUpdateRequest
}
