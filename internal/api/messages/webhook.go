package messages

const (
	WebhookPaymentPrefix = "payment."
	WebhookRefundPrefix  = "refund."
)

// WebhookEvent is a connector notification. Only the ids matter; the status is always re-read
// from the connector.
type WebhookEvent struct {
	Type    string      `json:"type"`
	Data    WebhookData `json:"data"`
	Created int64       `json:"created"`
}

type WebhookData struct {
	PaymentID              string            `json:"payment_id"`
	RefundID               string            `json:"refund_id,omitempty"`
	ConnectorTransactionID string            `json:"connector_transaction_id,omitempty"`
	Status                 string            `json:"status"`
	ErrorMessage           string            `json:"error_message,omitempty"`
	Metadata               map[string]string `json:"metadata"`
}
