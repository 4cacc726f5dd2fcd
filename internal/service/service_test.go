package service_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lumeweb.com/portal-plugin-payments/internal/api/messages"
	"go.lumeweb.com/portal-plugin-payments/internal/client/connector"
	"go.lumeweb.com/portal-plugin-payments/internal/config"
	"go.lumeweb.com/portal-plugin-payments/internal/core"
	"go.lumeweb.com/portal-plugin-payments/internal/db"
	"go.lumeweb.com/portal-plugin-payments/internal/events"
	"go.lumeweb.com/portal-plugin-payments/internal/operations"
	"go.lumeweb.com/portal-plugin-payments/internal/service"
	"go.lumeweb.com/portal-plugin-payments/internal/storage"
	"go.lumeweb.com/portal-plugin-payments/internal/storage/storagetest"
)

const webhookSecret = "whsec_test"

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// alwaysCharges is a second connector that charges every authorization.
type alwaysCharges struct{ name string }

func (a *alwaysCharges) Name() string { return a.name }

func (a *alwaysCharges) Submit(_ context.Context, action connector.Action, req *connector.Request) (*connector.Outcome, error) {
	if action != connector.ActionAuthorize {
		return nil, core.NewDownstreamError(nil, "unsupported action %s", action)
	}
	return &connector.Outcome{
		AttemptStatus:          db.AttemptStatusCharged,
		ConnectorTransactionID: "backup_" + req.AttemptID,
		AmountCaptured:         req.Amount,
	}, nil
}

type harness struct {
	ctx       *core.Context
	store     *storage.Store
	merchants *service.MerchantManagerDefault
	payments  *service.PaymentServiceDefault
	refunds   *service.RefundServiceDefault
	customers *service.CustomerServiceDefault
	webhooks  *service.WebhookServiceDefault
	publisher *recordingPublisher
	merchant  *db.MerchantAccount
	apiKey    string
}

func newHarness(t *testing.T, scheme db.StorageScheme, mutate func(*config.Config)) *harness {
	t.Helper()

	cfg := storagetest.Config()
	if mutate != nil {
		mutate(cfg)
	}

	h := &harness{publisher: &recordingPublisher{}}
	h.ctx, _ = storagetest.NewContext(t, cfg, h.publisher)
	h.store = storage.New(h.ctx)

	connectors := connector.NewRegistry(cfg.Connector, h.ctx.Metrics(), h.ctx.Logger())
	connectors.Register(&alwaysCharges{name: "backup"})

	h.merchants = service.NewMerchantManager(h.ctx, h.store)
	h.payments = service.NewPaymentService(h.ctx, h.store, connectors)
	h.refunds = service.NewRefundService(h.ctx, h.store, connectors)
	h.customers = service.NewCustomerService(h.ctx, h.store)
	h.webhooks = service.NewWebhookService(h.ctx, h.merchants, h.payments, h.refunds, connectors)

	var err error
	h.merchant, h.apiKey, err = h.merchants.CreateMerchant(context.Background(), service.CreateMerchantRequest{
		MerchantID:    "merchant_1",
		MerchantName:  "Test Merchant",
		StorageScheme: scheme,
		WebhookSecret: webhookSecret,
	})
	require.NoError(t, err)

	return h
}

func (h *harness) token(t *testing.T, token string) {
	t.Helper()
	_, err := h.customers.CreatePaymentMethod(context.Background(), h.merchant, &service.PaymentMethodRequest{
		Token:         token,
		PaymentMethod: "card",
		Data:          map[string]any{"last4": "4242"},
	})
	require.NoError(t, err)
}

func (h *harness) pay(t *testing.T, token string) (*operations.PaymentData, error) {
	t.Helper()
	return h.payments.CreatePayment(context.Background(), h.merchant, &operations.PaymentsRequest{
		Amount:       5000,
		Currency:     "USD",
		Confirm:      true,
		PaymentToken: token,
	})
}

func sign(payload []byte) string {
	mac := hmac.New(sha512.New, []byte(webhookSecret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestPaymentService_ChargesOnCreate(t *testing.T) {
	for _, scheme := range []db.StorageScheme{db.StorageSchemeStrict, db.StorageSchemeCached} {
		t.Run(string(scheme), func(t *testing.T) {
			h := newHarness(t, scheme, nil)
			h.token(t, "tok_visa")

			data, err := h.pay(t, "tok_visa")
			require.NoError(t, err)

			assert.Equal(t, db.IntentStatusSucceeded, data.Intent.Status)
			assert.Equal(t, int64(5000), data.Intent.AmountCaptured)
			assert.Equal(t, db.AttemptStatusCharged, data.Attempt.Status)
			assert.NotEmpty(t, data.Attempt.ConnectorTransactionID)
			assert.Contains(t, h.publisher.types(), events.TypePaymentUpdated)

			stored, err := h.payments.RetrievePayment(context.Background(), h.merchant, &operations.PaymentsRetrieveRequest{PaymentID: data.Intent.PaymentID})
			require.NoError(t, err)
			assert.Equal(t, db.IntentStatusSucceeded, stored.Intent.Status)
		})
	}
}

func TestPaymentService_DeclineWithoutFallback(t *testing.T) {
	h := newHarness(t, db.StorageSchemeStrict, nil)
	h.token(t, "tok_decline_1")

	data, err := h.pay(t, "tok_decline_1")
	require.NoError(t, err)

	assert.Equal(t, db.IntentStatusFailed, data.Intent.Status)
	assert.Equal(t, db.AttemptStatusFailure, data.Attempt.Status)
	assert.Equal(t, "card_declined", data.Attempt.ErrorCode)
	assert.Equal(t, 1, data.Intent.AttemptCount)
}

func TestPaymentService_DeclineMovesToFallback(t *testing.T) {
	h := newHarness(t, db.StorageSchemeStrict, func(cfg *config.Config) {
		cfg.Connector.Fallback = []string{"backup"}
	})
	h.token(t, "tok_decline_1")

	data, err := h.pay(t, "tok_decline_1")
	require.NoError(t, err)

	pid := data.Intent.PaymentID
	assert.Equal(t, db.IntentStatusSucceeded, data.Intent.Status)
	assert.Equal(t, 2, data.Intent.AttemptCount)
	assert.Equal(t, pid+"_2", data.Intent.ActiveAttemptID)
	assert.Equal(t, "backup", data.Intent.ConnectorID)
	assert.Equal(t, "backup", data.Attempt.Connector)
	assert.Equal(t, db.AttemptStatusCharged, data.Attempt.Status)

	first, err := h.store.FindPaymentAttemptByAttemptIDMerchantID(context.Background(), pid+"_1", h.merchant.MerchantID, h.merchant.StorageScheme)
	require.NoError(t, err)
	assert.Equal(t, db.AttemptStatusFailure, first.Status)
	assert.Equal(t, "card_declined", first.ErrorCode)
}

func TestPaymentService_ConnectorErrorFailsPayment(t *testing.T) {
	h := newHarness(t, db.StorageSchemeStrict, nil)
	h.token(t, "tok_error_1")

	_, err := h.pay(t, "tok_error_1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrDownstream))

	intents, err := h.payments.ListPayments(context.Background(), h.merchant, storage.PaymentIntentConstraints{})
	require.NoError(t, err)
	require.Len(t, intents, 1)
	assert.Equal(t, db.IntentStatusFailed, intents[0].Status)
}

func TestPaymentService_PendingSettlesOnForceSync(t *testing.T) {
	h := newHarness(t, db.StorageSchemeCached, nil)
	h.token(t, "tok_pending_1")

	data, err := h.pay(t, "tok_pending_1")
	require.NoError(t, err)
	require.Equal(t, db.AttemptStatusPending, data.Attempt.Status)

	synced, err := h.payments.RetrievePayment(context.Background(), h.merchant, &operations.PaymentsRetrieveRequest{
		PaymentID: data.Intent.PaymentID,
		ForceSync: true,
	})
	require.NoError(t, err)
	assert.Equal(t, db.AttemptStatusCharged, synced.Attempt.Status)
	assert.Equal(t, db.IntentStatusSucceeded, synced.Intent.Status)
}

func TestPaymentService_UnknownConnectorRejectedUpFront(t *testing.T) {
	h := newHarness(t, db.StorageSchemeStrict, nil)

	_, err := h.payments.CreatePayment(context.Background(), h.merchant, &operations.PaymentsRequest{
		Amount:    100,
		Currency:  "USD",
		Connector: "nope",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrValidation))

	intents, err := h.payments.ListPayments(context.Background(), h.merchant, storage.PaymentIntentConstraints{})
	require.NoError(t, err)
	assert.Empty(t, intents)
}

func TestRefundService_ReviewSettlesOnSync(t *testing.T) {
	h := newHarness(t, db.StorageSchemeStrict, nil)
	h.token(t, "tok_visa")

	data, err := h.pay(t, "tok_visa")
	require.NoError(t, err)

	refund, err := h.refunds.CreateRefund(context.Background(), h.merchant, &operations.RefundRequest{
		PaymentID: data.Intent.PaymentID,
		Amount:    2000,
		Reason:    "manual review requested",
	})
	require.NoError(t, err)
	assert.Equal(t, db.RefundStatusReview, refund.Status)
	assert.NotEmpty(t, refund.ConnectorRefundID)

	synced, err := h.refunds.RetrieveRefund(context.Background(), h.merchant, &operations.RefundsRetrieveRequest{
		RefundID:  refund.RefundID,
		ForceSync: true,
	})
	require.NoError(t, err)
	assert.Equal(t, db.RefundStatusSucceeded, synced.Status)

	listed, err := h.refunds.ListRefunds(context.Background(), h.merchant, storage.RefundConstraints{PaymentID: data.Intent.PaymentID})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, db.RefundStatusSucceeded, listed[0].Status)
}

func TestWebhookService(t *testing.T) {
	h := newHarness(t, db.StorageSchemeStrict, nil)
	h.token(t, "tok_pending_1")

	data, err := h.pay(t, "tok_pending_1")
	require.NoError(t, err)

	payload, err := json.Marshal(messages.WebhookEvent{
		Type: "payment.succeeded",
		Data: messages.WebhookData{PaymentID: data.Intent.PaymentID},
	})
	require.NoError(t, err)

	t.Run("bad signature", func(t *testing.T) {
		err := h.webhooks.HandleWebhook(context.Background(), "merchant_1", connector.DummyName, payload, "deadbeef")
		assert.ErrorIs(t, err, service.ErrInvalidSignature)
	})

	t.Run("unknown merchant", func(t *testing.T) {
		err := h.webhooks.HandleWebhook(context.Background(), "merchant_2", connector.DummyName, payload, sign(payload))
		assert.ErrorIs(t, err, service.ErrInvalidSignature)

		// Same answer as a known merchant with a bad signature.
		unsigned := h.webhooks.HandleWebhook(context.Background(), "merchant_2", connector.DummyName, payload, "deadbeef")
		known := h.webhooks.HandleWebhook(context.Background(), "merchant_1", connector.DummyName, payload, "deadbeef")
		assert.Equal(t, known, unsigned)
	})

	t.Run("ignored type", func(t *testing.T) {
		other := []byte(`{"type":"dispute.opened","data":{}}`)
		assert.NoError(t, h.webhooks.HandleWebhook(context.Background(), "merchant_1", connector.DummyName, other, sign(other)))
	})

	t.Run("syncs payment", func(t *testing.T) {
		require.NoError(t, h.webhooks.HandleWebhook(context.Background(), "merchant_1", connector.DummyName, payload, sign(payload)))

		stored, err := h.payments.RetrievePayment(context.Background(), h.merchant, &operations.PaymentsRetrieveRequest{PaymentID: data.Intent.PaymentID})
		require.NoError(t, err)
		assert.Equal(t, db.IntentStatusSucceeded, stored.Intent.Status)
	})
}

func TestVerifyWebhookSignature(t *testing.T) {
	payload := []byte(`{"type":"payment.succeeded"}`)

	assert.NoError(t, service.VerifyWebhookSignature(payload, sign(payload), webhookSecret))
	assert.ErrorIs(t, service.VerifyWebhookSignature(payload, sign(payload), "other"), service.ErrInvalidSignature)
	assert.ErrorIs(t, service.VerifyWebhookSignature(payload, "", webhookSecret), service.ErrInvalidSignature)
}

func TestMerchantManager(t *testing.T) {
	h := newHarness(t, db.StorageSchemeStrict, func(cfg *config.Config) {
		cfg.Payments.MerchantCacheTTL = 300 * time.Millisecond
	})
	ctx := context.Background()

	t.Run("api key", func(t *testing.T) {
		assert.Regexp(t, `^snd_[A-Za-z0-9_-]{32}$`, h.apiKey)
		assert.NotEqual(t, h.apiKey, h.merchant.APIKeyHash)

		merchant, err := h.merchants.Authenticate(ctx, h.apiKey)
		require.NoError(t, err)
		assert.Equal(t, "merchant_1", merchant.MerchantID)

		_, err = h.merchants.Authenticate(ctx, "snd_wrong")
		assert.ErrorIs(t, err, core.ErrNotFound)

		_, err = h.merchants.Authenticate(ctx, "")
		assert.ErrorIs(t, err, core.ErrValidation)
	})

	t.Run("duplicate", func(t *testing.T) {
		_, _, err := h.merchants.CreateMerchant(ctx, service.CreateMerchantRequest{MerchantID: "merchant_1"})
		assert.ErrorIs(t, err, core.ErrDuplicateRecord)
	})

	t.Run("scheme change invalidates cache", func(t *testing.T) {
		_, err := h.merchants.GetMerchant(ctx, "merchant_1")
		require.NoError(t, err)

		updated, err := h.merchants.UpdateStorageScheme(ctx, "merchant_1", db.StorageSchemeCached)
		require.NoError(t, err)
		assert.Equal(t, db.StorageSchemeCached, updated.StorageScheme)

		merchant, err := h.merchants.GetMerchant(ctx, "merchant_1")
		require.NoError(t, err)
		assert.Equal(t, db.StorageSchemeCached, merchant.StorageScheme)

		_, err = h.merchants.UpdateStorageScheme(ctx, "merchant_1", "eventual")
		assert.ErrorIs(t, err, core.ErrValidation)
	})

	t.Run("cache expires", func(t *testing.T) {
		merchant, err := h.merchants.GetMerchant(ctx, "merchant_1")
		require.NoError(t, err)

		// Change the row behind the cache's back.
		_, err = h.store.UpdateMerchantAccount(ctx, *merchant, db.MerchantAccountStorageSchemeUpdate{StorageScheme: db.StorageSchemeStrict})
		require.NoError(t, err)

		cached, err := h.merchants.GetMerchant(ctx, "merchant_1")
		require.NoError(t, err)
		assert.Equal(t, db.StorageSchemeCached, cached.StorageScheme)

		assert.Eventually(t, func() bool {
			fresh, err := h.merchants.GetMerchant(ctx, "merchant_1")
			return err == nil && fresh.StorageScheme == db.StorageSchemeStrict
		}, 2*time.Second, 20*time.Millisecond)
	})
}

func TestCustomerService(t *testing.T) {
	h := newHarness(t, db.StorageSchemeStrict, nil)
	ctx := context.Background()

	customer, err := h.customers.CreateCustomer(ctx, h.merchant, &service.CustomerRequest{
		Name:  "Ada",
		Email: "ada@example.com",
	})
	require.NoError(t, err)
	assert.Regexp(t, `^cus_`, customer.CustomerID)

	updated, err := h.customers.UpdateCustomer(ctx, h.merchant, &service.CustomerRequest{
		CustomerID: customer.CustomerID,
		Phone:      "5550100",
	})
	require.NoError(t, err)
	assert.Equal(t, "Ada", updated.Name)
	assert.Equal(t, "5550100", updated.Phone)

	pm, err := h.customers.CreatePaymentMethod(ctx, h.merchant, &service.PaymentMethodRequest{
		CustomerID:    customer.CustomerID,
		PaymentMethod: "card",
	})
	require.NoError(t, err)
	assert.Regexp(t, `^tok_`, pm.Token)

	_, err = h.customers.CreatePaymentMethod(ctx, h.merchant, &service.PaymentMethodRequest{
		CustomerID:    "cus_missing",
		PaymentMethod: "card",
	})
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = h.customers.CreatePaymentMethod(ctx, h.merchant, &service.PaymentMethodRequest{
		Token:         "not-a-token",
		PaymentMethod: "card",
	})
	assert.ErrorIs(t, err, core.ErrValidation)

	redacted, err := h.customers.DeleteCustomer(ctx, h.merchant, customer.CustomerID)
	require.NoError(t, err)
	assert.NotEqual(t, "Ada", redacted.Name)
	assert.NotEqual(t, "ada@example.com", redacted.Email)

	assert.Contains(t, h.publisher.types(), events.TypeCustomer)
}
