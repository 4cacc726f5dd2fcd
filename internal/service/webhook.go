package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"

	"go.lumeweb.com/portal-plugin-payments/internal/api/messages"
	"go.lumeweb.com/portal-plugin-payments/internal/client/connector"
	"go.lumeweb.com/portal-plugin-payments/internal/core"
	"go.lumeweb.com/portal-plugin-payments/internal/operations"
	"go.uber.org/zap"
)

const WEBHOOK_SERVICE = "webhook"

// ErrInvalidSignature is returned for a webhook whose signature does not match its payload.
var ErrInvalidSignature = &core.Error{Kind: core.ErrValidation, Message: "webhook signature mismatch"}

var _ WebhookService = (*WebhookServiceDefault)(nil)

type WebhookService interface {
	// HandleWebhook verifies a connector notification and syncs the payment or refund it names.
	HandleWebhook(ctx context.Context, merchantID, connectorName string, payload []byte, signature string) error
}

type WebhookServiceDefault struct {
	merchants  MerchantManager
	payments   PaymentService
	refunds    RefundService
	connectors *connector.Registry
	logger     *zap.Logger
}

func NewWebhookService(ctx *core.Context, merchants MerchantManager, payments PaymentService, refunds RefundService, connectors *connector.Registry) *WebhookServiceDefault {
	return &WebhookServiceDefault{
		merchants:  merchants,
		payments:   payments,
		refunds:    refunds,
		connectors: connectors,
		logger:     ctx.Logger().Named("webhooks"),
	}
}

func (w *WebhookServiceDefault) HandleWebhook(ctx context.Context, merchantID, connectorName string, payload []byte, signature string) error {
	// Unknown merchants and unconfigured secrets answer exactly like a bad signature.
	merchant, err := w.merchants.GetMerchant(ctx, merchantID)
	if errors.Is(err, core.ErrNotFound) {
		w.logger.Warn("rejected webhook for unknown merchant",
			zap.String("merchant_id", merchantID),
			zap.String("connector", connectorName))
		return ErrInvalidSignature
	}
	if err != nil {
		return err
	}

	secret := merchant.WebhookSecret
	if secret == "" {
		secret = w.connectors.WebhookSecret(connectorName)
	}
	if secret == "" {
		w.logger.Error("webhook secret not configured",
			zap.String("merchant_id", merchantID),
			zap.String("connector", connectorName))
		return ErrInvalidSignature
	}

	if err := VerifyWebhookSignature(payload, signature, secret); err != nil {
		w.logger.Warn("rejected webhook",
			zap.String("merchant_id", merchantID),
			zap.String("connector", connectorName))
		return err
	}

	var event messages.WebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return core.NewValidationError("malformed webhook payload: %v", err)
	}

	logger := w.logger.With(
		zap.String("merchant_id", merchantID),
		zap.String("connector", connectorName),
		zap.String("event_type", event.Type))

	switch {
	case strings.HasPrefix(event.Type, messages.WebhookPaymentPrefix):
		if event.Data.PaymentID == "" {
			return core.NewValidationError("payment webhook without payment_id")
		}
		_, err = w.payments.RetrievePayment(ctx, merchant, &operations.PaymentsRetrieveRequest{
			PaymentID: event.Data.PaymentID,
			ForceSync: true,
		})
	case strings.HasPrefix(event.Type, messages.WebhookRefundPrefix):
		if event.Data.RefundID == "" {
			return core.NewValidationError("refund webhook without refund_id")
		}
		_, err = w.refunds.RetrieveRefund(ctx, merchant, &operations.RefundsRetrieveRequest{
			RefundID:  event.Data.RefundID,
			ForceSync: true,
		})
	default:
		logger.Info("ignoring webhook event")
		return nil
	}

	if err != nil {
		logger.Error("failed to apply webhook", zap.Error(err))
		return err
	}

	logger.Debug("webhook applied")
	return nil
}

// VerifyWebhookSignature checks a hex HMAC-SHA512 of the raw payload.
func VerifyWebhookSignature(payload []byte, signature string, secretKey string) error {
	mac := hmac.New(sha512.New, []byte(secretKey))
	mac.Write(payload)
	expectedSignature := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(signature), []byte(expectedSignature)) {
		return ErrInvalidSignature
	}
	return nil
}
