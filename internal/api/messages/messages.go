package messages

import (
	"github.com/go-openapi/strfmt"
)

type PaymentRequest struct {
	PaymentID         string           `json:"payment_id,omitempty"`
	MerchantID        string           `json:"merchant_id,omitempty"`
	Amount            int64            `json:"amount"`
	Currency          string           `json:"currency"`
	CaptureMethod     string           `json:"capture_method,omitempty"`
	Confirm           bool             `json:"confirm"`
	CustomerID        string           `json:"customer_id,omitempty"`
	Customer          *CustomerDetails `json:"customer,omitempty"`
	Description       string           `json:"description,omitempty"`
	ReturnURL         string           `json:"return_url,omitempty"`
	SetupFutureUsage  string           `json:"setup_future_usage,omitempty"`
	OffSession        bool             `json:"off_session"`
	Connector         string           `json:"connector,omitempty"`
	PaymentMethod     string           `json:"payment_method,omitempty"`
	PaymentMethodType string           `json:"payment_method_type,omitempty"`
	PaymentToken      string           `json:"payment_token,omitempty"`
	PaymentMethodData map[string]any   `json:"payment_method_data,omitempty"`
	MandateID         string           `json:"mandate_id,omitempty"`
	MandateData       *MandateData     `json:"mandate_data,omitempty"`
	Metadata          map[string]any   `json:"metadata,omitempty"`
}

type CustomerDetails struct {
	ID               string `json:"id"`
	Name             string `json:"name,omitempty"`
	Email            string `json:"email,omitempty"`
	Phone            string `json:"phone,omitempty"`
	PhoneCountryCode string `json:"phone_country_code,omitempty"`
}

type MandateData struct {
	CustomerAcceptance string `json:"customer_acceptance,omitempty"`
	MandateType        string `json:"mandate_type,omitempty"`
	Amount             int64  `json:"amount,omitempty"`
	Currency           string `json:"currency,omitempty"`
}

type CaptureRequest struct {
	AmountToCapture int64 `json:"amount_to_capture,omitempty"`
}

type CancelRequest struct {
	CancellationReason string `json:"cancellation_reason,omitempty"`
}

type VerifyRequest struct {
	PaymentID         string           `json:"payment_id,omitempty"`
	MerchantID        string           `json:"merchant_id,omitempty"`
	Currency          string           `json:"currency,omitempty"`
	CustomerID        string           `json:"customer_id,omitempty"`
	Customer          *CustomerDetails `json:"customer,omitempty"`
	ReturnURL         string           `json:"return_url,omitempty"`
	Connector         string           `json:"connector,omitempty"`
	PaymentMethod     string           `json:"payment_method,omitempty"`
	PaymentMethodType string           `json:"payment_method_type,omitempty"`
	PaymentToken      string           `json:"payment_token,omitempty"`
	PaymentMethodData map[string]any   `json:"payment_method_data,omitempty"`
	MandateData       *MandateData     `json:"mandate_data,omitempty"`
	SetupFutureUsage  string           `json:"setup_future_usage,omitempty"`
}

type PaymentResponse struct {
	PaymentID              string           `json:"payment_id"`
	MerchantID             string           `json:"merchant_id"`
	Status                 string           `json:"status"`
	Amount                 int64            `json:"amount"`
	AmountCaptured         int64            `json:"amount_captured"`
	Currency               string           `json:"currency"`
	CaptureMethod          string           `json:"capture_method"`
	CustomerID             string           `json:"customer_id,omitempty"`
	Description            string           `json:"description,omitempty"`
	ReturnURL              string           `json:"return_url,omitempty"`
	ClientSecret           string           `json:"client_secret"`
	Connector              string           `json:"connector,omitempty"`
	AttemptID              string           `json:"attempt_id"`
	AttemptStatus          string           `json:"attempt_status"`
	AttemptCount           int              `json:"attempt_count"`
	ConnectorTransactionID string           `json:"connector_transaction_id,omitempty"`
	PaymentMethod          string           `json:"payment_method,omitempty"`
	PaymentMethodType      string           `json:"payment_method_type,omitempty"`
	ErrorCode              string           `json:"error_code,omitempty"`
	ErrorMessage           string           `json:"error_message,omitempty"`
	SetupFutureUsage       string           `json:"setup_future_usage,omitempty"`
	Metadata               map[string]any   `json:"metadata,omitempty"`
	Refunds                []RefundResponse `json:"refunds,omitempty"`
	Created                strfmt.DateTime  `json:"created"`
	Modified               strfmt.DateTime  `json:"modified"`
}

type PaymentListResponse struct {
	Count int               `json:"count"`
	Data  []PaymentResponse `json:"data"`
}

type RefundRequest struct {
	RefundID   string         `json:"refund_id,omitempty"`
	PaymentID  string         `json:"payment_id"`
	MerchantID string         `json:"merchant_id,omitempty"`
	Amount     int64          `json:"amount,omitempty"`
	Reason     string         `json:"reason,omitempty"`
	RefundType string         `json:"refund_type,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

type RefundUpdateRequest struct {
	Reason   string         `json:"reason,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type RefundResponse struct {
	RefundID          string          `json:"refund_id"`
	PaymentID         string          `json:"payment_id"`
	Amount            int64           `json:"amount"`
	Currency          string          `json:"currency"`
	Status            string          `json:"status"`
	RefundType        string          `json:"refund_type"`
	Reason            string          `json:"reason,omitempty"`
	Connector         string          `json:"connector,omitempty"`
	ConnectorRefundID string          `json:"connector_refund_id,omitempty"`
	ErrorCode         string          `json:"error_code,omitempty"`
	ErrorMessage      string          `json:"error_message,omitempty"`
	Metadata          map[string]any  `json:"metadata,omitempty"`
	Created           strfmt.DateTime `json:"created"`
	Modified          strfmt.DateTime `json:"modified"`
}

type RefundListResponse struct {
	Count int              `json:"count"`
	Data  []RefundResponse `json:"data"`
}

type CustomerRequest struct {
	CustomerID       string         `json:"customer_id,omitempty"`
	Name             string         `json:"name,omitempty"`
	Email            string         `json:"email,omitempty"`
	Phone            string         `json:"phone,omitempty"`
	PhoneCountryCode string         `json:"phone_country_code,omitempty"`
	Description      string         `json:"description,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

type CustomerResponse struct {
	CustomerID       string          `json:"customer_id"`
	Name             string          `json:"name,omitempty"`
	Email            string          `json:"email,omitempty"`
	Phone            string          `json:"phone,omitempty"`
	PhoneCountryCode string          `json:"phone_country_code,omitempty"`
	Description      string          `json:"description,omitempty"`
	Metadata         map[string]any  `json:"metadata,omitempty"`
	Created          strfmt.DateTime `json:"created"`
}

type PaymentMethodRequest struct {
	CustomerID        string         `json:"customer_id,omitempty"`
	Token             string         `json:"payment_token,omitempty"`
	PaymentMethod     string         `json:"payment_method"`
	PaymentMethodType string         `json:"payment_method_type,omitempty"`
	Data              map[string]any `json:"payment_method_data,omitempty"`
}

type PaymentMethodResponse struct {
	PaymentMethodID   string          `json:"payment_method_id"`
	PaymentToken      string          `json:"payment_token"`
	CustomerID        string          `json:"customer_id,omitempty"`
	PaymentMethod     string          `json:"payment_method"`
	PaymentMethodType string          `json:"payment_method_type,omitempty"`
	Created           strfmt.DateTime `json:"created"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

type ErrorBody struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status         string `json:"status"`
	Database       string `json:"database"`
	CacheAvailable bool   `json:"cache_available"`
}
