package connector

import "fmt"

// PaymentRequest is the body of an authorize call.
type PaymentRequest struct {
	MerchantID        string         `json:"merchant_id"`
	PaymentID         string         `json:"payment_id"`
	AttemptID         string         `json:"attempt_id"`
	Amount            int64          `json:"amount"`
	Currency          string         `json:"currency"`
	CaptureMethod     string         `json:"capture_method,omitempty"`
	CustomerID        string         `json:"customer_id,omitempty"`
	PaymentMethod     string         `json:"payment_method,omitempty"`
	PaymentMethodType string         `json:"payment_method_type,omitempty"`
	PaymentToken      string         `json:"payment_token,omitempty"`
	PaymentMethodData map[string]any `json:"payment_method_data,omitempty"`
	OffSession        bool           `json:"off_session,omitempty"`
}

type CaptureRequest struct {
	AmountToCapture int64 `json:"amount_to_capture"`
}

type CancelRequest struct {
	CancellationReason string `json:"cancellation_reason,omitempty"`
}

type RefundRequest struct {
	MerchantID             string `json:"merchant_id"`
	RefundID               string `json:"refund_id"`
	PaymentID              string `json:"payment_id"`
	ConnectorTransactionID string `json:"connector_transaction_id"`
	Amount                 int64  `json:"amount"`
	Currency               string `json:"currency"`
	Reason                 string `json:"reason,omitempty"`
}

// PaymentResponse is returned by every payment endpoint of the processor.
type PaymentResponse struct {
	TransactionID      string `json:"transaction_id"`
	Status             string `json:"status"`
	AmountCaptured     int64  `json:"amount_captured"`
	ErrorCode          string `json:"error_code,omitempty"`
	ErrorMessage       string `json:"error_message,omitempty"`
	AuthenticationData string `json:"authentication_data,omitempty"`
}

type RefundResponse struct {
	RefundID     string `json:"refund_id"`
	Status       string `json:"status"`
	ErrorCode    string `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// APIError is a non-2xx answer from the processor.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("connector API error (status %d): %s", e.StatusCode, e.Message)
}
