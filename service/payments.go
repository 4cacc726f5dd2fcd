package service

import (
	"go.lumeweb.com/portal-plugin-payments/internal/service"
)

const (
	MERCHANT_SERVICE = service.MERCHANT_SERVICE
	PAYMENT_SERVICE  = service.PAYMENT_SERVICE
	REFUND_SERVICE   = service.REFUND_SERVICE
	CUSTOMER_SERVICE = service.CUSTOMER_SERVICE
	WEBHOOK_SERVICE  = service.WEBHOOK_SERVICE
)

type (
	MerchantManager       = service.MerchantManager
	CreateMerchantRequest = service.CreateMerchantRequest
	PaymentService        = service.PaymentService
	RefundService         = service.RefundService
	CustomerService       = service.CustomerService
	CustomerRequest       = service.CustomerRequest
	PaymentMethodRequest  = service.PaymentMethodRequest
	WebhookService        = service.WebhookService
)

var (
	_ MerchantManager = (*service.MerchantManagerDefault)(nil)
	_ PaymentService  = (*service.PaymentServiceDefault)(nil)
	_ RefundService   = (*service.RefundServiceDefault)(nil)
	_ CustomerService = (*service.CustomerServiceDefault)(nil)
	_ WebhookService  = (*service.WebhookServiceDefault)(nil)
)

// VerifyWebhookSignature checks a hex HMAC-SHA512 signature of a webhook payload.
func VerifyWebhookSignature(payload []byte, signature, secret string) error {
	return service.VerifyWebhookSignature(payload, signature, secret)
}
