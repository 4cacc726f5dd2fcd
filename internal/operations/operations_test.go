package operations_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lumeweb.com/portal-plugin-payments/internal/client/connector"
	"go.lumeweb.com/portal-plugin-payments/internal/config"
	"go.lumeweb.com/portal-plugin-payments/internal/core"
	"go.lumeweb.com/portal-plugin-payments/internal/db"
	"go.lumeweb.com/portal-plugin-payments/internal/operations"
	"go.lumeweb.com/portal-plugin-payments/internal/storage"
	"go.lumeweb.com/portal-plugin-payments/internal/storage/storagetest"
	"go.uber.org/zap/zaptest"
)

var schemes = []db.StorageScheme{db.StorageSchemeStrict, db.StorageSchemeCached}

type fixture struct {
	env      *storagetest.Env
	state    *operations.State
	merchant *db.MerchantAccount
}

func newFixture(t *testing.T, scheme db.StorageScheme) *fixture {
	t.Helper()

	env := storagetest.New(t)
	f := &fixture{
		env: env,
		state: &operations.State{
			Store:            env.Store,
			Config:           config.PaymentsConfig{IDLength: 20},
			DefaultConnector: connector.DummyName,
			Metrics:          env.Metrics,
			Logger:           zaptest.NewLogger(t),
		},
		merchant: &db.MerchantAccount{MerchantID: "merchant_1", StorageScheme: scheme},
	}

	_, err := env.Store.InsertPaymentMethod(context.Background(), db.PaymentMethod{
		MerchantID:        "merchant_1",
		PaymentMethodID:   "pm_1",
		Token:             "tok_visa",
		PaymentMethod:     "card",
		PaymentMethodType: "credit",
		Data:              db.Metadata(map[string]any{"last4": "4242"}),
		CreatedAt:         db.Now(),
	})
	require.NoError(t, err)

	return f
}

func (f *fixture) create(ctx context.Context, req *operations.PaymentsRequest) (*operations.PaymentData, error) {
	return operations.Run[operations.PaymentsRequest, operations.PaymentData](ctx, f.state, &operations.PaymentCreate{IDLength: 20}, req, f.merchant)
}

func (f *fixture) refund(ctx context.Context, req *operations.RefundRequest) (*operations.RefundData, error) {
	return operations.Run[operations.RefundRequest, operations.RefundData](ctx, f.state, &operations.RefundCreate{IDLength: 20}, req, f.merchant)
}

// succeeded creates a confirmed payment and settles it as charged.
func (f *fixture) succeeded(t *testing.T, amount int64) *operations.PaymentData {
	t.Helper()
	ctx := context.Background()

	data, err := f.create(ctx, &operations.PaymentsRequest{
		Amount:       amount,
		Currency:     "usd",
		Confirm:      true,
		PaymentToken: "tok_visa",
	})
	require.NoError(t, err)
	require.Equal(t, connector.ActionAuthorize, data.CallConnector)

	require.NoError(t, operations.ApplyPaymentOutcome(ctx, f.state, data, &connector.Outcome{
		AttemptStatus:          db.AttemptStatusCharged,
		ConnectorTransactionID: "txn_" + data.Intent.PaymentID,
	}))
	require.Equal(t, db.IntentStatusSucceeded, data.Intent.Status)

	return data
}

func TestGenerateID(t *testing.T) {
	id, err := operations.GenerateID(operations.PrefixPayment, 20)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(id, "pay_"))
	assert.Len(t, id, len("pay_")+20)

	other, err := operations.GenerateID(operations.PrefixPayment, 20)
	require.NoError(t, err)
	assert.NotEqual(t, id, other)
}

func TestPaymentCreate_CreatesTrackers(t *testing.T) {
	for _, scheme := range schemes {
		t.Run(string(scheme), func(t *testing.T) {
			f := newFixture(t, scheme)
			ctx := context.Background()

			data, err := f.create(ctx, &operations.PaymentsRequest{Amount: 6540, Currency: "usd"})
			require.NoError(t, err)

			paymentID := data.Intent.PaymentID
			assert.True(t, strings.HasPrefix(paymentID, "pay_"))
			assert.Len(t, paymentID, 24)
			assert.Equal(t, "USD", data.Intent.Currency)
			assert.Equal(t, db.IntentStatusRequiresPaymentMethod, data.Intent.Status)
			assert.True(t, strings.HasPrefix(data.Intent.ClientSecret, paymentID+"_secret_"))
			assert.Equal(t, paymentID+"_1", data.Intent.ActiveAttemptID)
			assert.Equal(t, db.AttemptStatusStarted, data.Attempt.Status)
			assert.Equal(t, connector.DummyName, data.Attempt.Connector)
			assert.Empty(t, data.CallConnector)

			intent, err := f.env.Store.FindPaymentIntentByPaymentIDMerchantID(ctx, paymentID, "merchant_1", scheme)
			require.NoError(t, err)
			assert.Equal(t, data.Intent.ClientSecret, intent.ClientSecret)

			_, err = f.env.Store.FindConnectorResponseByAttemptIDMerchantID(ctx, paymentID+"_1", "merchant_1", scheme)
			require.NoError(t, err)
		})
	}
}

func TestPaymentCreate_ConfirmWithToken(t *testing.T) {
	for _, scheme := range schemes {
		t.Run(string(scheme), func(t *testing.T) {
			f := newFixture(t, scheme)

			data, err := f.create(context.Background(), &operations.PaymentsRequest{
				Amount:       1000,
				Currency:     "EUR",
				Confirm:      true,
				PaymentToken: "tok_visa",
			})
			require.NoError(t, err)

			assert.Equal(t, db.IntentStatusProcessing, data.Intent.Status)
			assert.Equal(t, db.AttemptStatusPending, data.Attempt.Status)
			assert.Equal(t, "card", data.Attempt.PaymentMethod)
			assert.True(t, data.Attempt.Confirm)
			assert.Equal(t, connector.ActionAuthorize, data.CallConnector)
			require.NotNil(t, data.PaymentMethod)
			assert.Equal(t, "4242", data.PaymentMethod.Data["last4"])
		})
	}
}

func TestPaymentCreate_UnknownToken(t *testing.T) {
	f := newFixture(t, db.StorageSchemeStrict)

	_, err := f.create(context.Background(), &operations.PaymentsRequest{
		Amount:       1000,
		Currency:     "EUR",
		Confirm:      true,
		PaymentToken: "tok_missing",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrValidation)

	var fe *operations.FlowError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, operations.StageDomain, fe.Stage)
}

func TestPaymentCreate_UnknownTokenLeavesPaymentConfirmable(t *testing.T) {
	for _, scheme := range schemes {
		t.Run(string(scheme), func(t *testing.T) {
			f := newFixture(t, scheme)
			ctx := context.Background()

			_, err := f.create(ctx, &operations.PaymentsRequest{
				PaymentID:    "pay_retry",
				Amount:       1000,
				Currency:     "EUR",
				Confirm:      true,
				PaymentToken: "tok_missing",
			})
			require.ErrorIs(t, err, core.ErrValidation)

			intent, err := f.env.Store.FindPaymentIntentByPaymentIDMerchantID(ctx, "pay_retry", "merchant_1", scheme)
			require.NoError(t, err)
			assert.Equal(t, db.IntentStatusRequiresConfirmation, intent.Status)

			data, err := operations.Run[operations.PaymentsRequest, operations.PaymentData](ctx, f.state, &operations.PaymentConfirm{},
				&operations.PaymentsRequest{PaymentID: "pay_retry", PaymentToken: "tok_visa"}, f.merchant)
			require.NoError(t, err)
			assert.Equal(t, db.IntentStatusProcessing, data.Intent.Status)
			assert.Equal(t, db.AttemptStatusPending, data.Attempt.Status)
			assert.Equal(t, connector.ActionAuthorize, data.CallConnector)
		})
	}
}

func TestPaymentCreate_UnknownTokenThenCancel(t *testing.T) {
	f := newFixture(t, db.StorageSchemeStrict)
	ctx := context.Background()

	_, err := f.create(ctx, &operations.PaymentsRequest{
		PaymentID:    "pay_abandon",
		Amount:       1000,
		Currency:     "EUR",
		Confirm:      true,
		PaymentToken: "tok_missing",
	})
	require.ErrorIs(t, err, core.ErrValidation)

	data, err := operations.Run[operations.PaymentsCancelRequest, operations.PaymentData](ctx, f.state, &operations.PaymentCancel{},
		&operations.PaymentsCancelRequest{PaymentID: "pay_abandon"}, f.merchant)
	require.NoError(t, err)
	assert.Equal(t, db.IntentStatusCancelled, data.Intent.Status)
}

func TestPaymentCreate_LongestPaymentID(t *testing.T) {
	for _, scheme := range schemes {
		t.Run(string(scheme), func(t *testing.T) {
			f := newFixture(t, scheme)
			ctx := context.Background()

			paymentID := strings.Repeat("a", 64)
			data, err := f.create(ctx, &operations.PaymentsRequest{
				PaymentID:    paymentID,
				Amount:       1000,
				Currency:     "USD",
				Confirm:      true,
				PaymentToken: "tok_visa",
			})
			require.NoError(t, err)
			assert.Equal(t, paymentID+"_1", data.Intent.ActiveAttemptID)
			assert.Equal(t, data.Intent.ActiveAttemptID, data.Attempt.AttemptID)

			_, err = f.create(ctx, &operations.PaymentsRequest{PaymentID: paymentID + "a", Amount: 1000, Currency: "USD"})
			assert.ErrorIs(t, err, core.ErrValidation)
		})
	}
}

func TestPaymentCreate_ValidationNeverTouchesStorage(t *testing.T) {
	f := newFixture(t, db.StorageSchemeStrict)
	ctx := context.Background()

	cases := map[string]*operations.PaymentsRequest{
		"merchant mismatch": {PaymentID: "pay_a", MerchantID: "other", Amount: 100, Currency: "USD"},
		"zero amount":       {PaymentID: "pay_a", Amount: 0, Currency: "USD"},
		"bad currency":      {PaymentID: "pay_a", Amount: 100, Currency: "dollars"},
		"bad id":            {PaymentID: "pay a!", Amount: 100, Currency: "USD"},
		"mandate conflict":  {PaymentID: "pay_a", Amount: 100, Currency: "USD", CustomerID: "c", MandateID: "m", MandateData: &operations.MandateData{}},
		"mandate usage":     {PaymentID: "pay_a", Amount: 100, Currency: "USD", CustomerID: "c", MandateData: &operations.MandateData{}},
		"mandate customer":  {PaymentID: "pay_a", Amount: 100, Currency: "USD", MandateID: "m"},
	}

	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.create(ctx, req)
			assert.ErrorIs(t, err, core.ErrValidation)

			var fe *operations.FlowError
			assert.False(t, errors.As(err, &fe))
		})
	}

	var count int64
	require.NoError(t, f.env.DB.Model(&db.PaymentIntent{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestPaymentCreate_ConcurrentDuplicate(t *testing.T) {
	for _, scheme := range schemes {
		t.Run(string(scheme), func(t *testing.T) {
			f := newFixture(t, scheme)
			ctx := context.Background()

			const runs = 8
			var wg sync.WaitGroup
			errs := make([]error, runs)

			for i := 0; i < runs; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_, errs[i] = f.create(ctx, &operations.PaymentsRequest{PaymentID: "pay_same", Amount: 100, Currency: "USD"})
				}(i)
			}
			wg.Wait()

			var ok, dup int
			for _, err := range errs {
				switch {
				case err == nil:
					ok++
				case errors.Is(err, core.ErrDuplicateRecord):
					dup++
				default:
					t.Fatalf("unexpected error: %v", err)
				}
			}
			assert.Equal(t, 1, ok)
			assert.Equal(t, runs-1, dup)
		})
	}
}

func TestPaymentCreate_PartialWrite(t *testing.T) {
	f := newFixture(t, db.StorageSchemeCached)
	ctx := context.Background()

	taken := storage.CacheKey(db.TablePaymentAttempt, "pay_partial_1", "merchant_1")
	require.NoError(t, f.env.Redis.Set(ctx, taken, "{}", 0).Err())

	_, err := f.create(ctx, &operations.PaymentsRequest{PaymentID: "pay_partial", Amount: 100, Currency: "USD"})
	require.Error(t, err)
	assert.ErrorIs(t, err, operations.ErrPartialWrite)
	assert.ErrorIs(t, err, core.ErrDuplicateRecord)

	var pw *operations.PartialWriteError
	require.ErrorAs(t, err, &pw)
	assert.Equal(t, []string{db.TablePaymentIntent}, pw.Committed)
	assert.Equal(t, db.TablePaymentAttempt, pw.Failed)

	// The intent stays committed.
	_, err = f.env.Store.FindPaymentIntentByPaymentIDMerchantID(ctx, "pay_partial", "merchant_1", db.StorageSchemeCached)
	require.NoError(t, err)
}

func TestPaymentFlows_ManualCaptureLifecycle(t *testing.T) {
	for _, scheme := range schemes {
		t.Run(string(scheme), func(t *testing.T) {
			f := newFixture(t, scheme)
			ctx := context.Background()

			data, err := f.create(ctx, &operations.PaymentsRequest{Amount: 5000, Currency: "USD", CaptureMethod: "manual"})
			require.NoError(t, err)
			paymentID := data.Intent.PaymentID

			data, err = operations.Run[operations.PaymentsRequest, operations.PaymentData](ctx, f.state, &operations.PaymentUpdate{},
				&operations.PaymentsRequest{PaymentID: paymentID, Amount: 4000, Description: "resized"}, f.merchant)
			require.NoError(t, err)
			assert.Equal(t, int64(4000), data.Intent.Amount)
			assert.Equal(t, int64(4000), data.Attempt.Amount)

			data, err = operations.Run[operations.PaymentsRequest, operations.PaymentData](ctx, f.state, &operations.PaymentConfirm{},
				&operations.PaymentsRequest{PaymentID: paymentID, PaymentToken: "tok_visa", ReturnURL: "https://shop.example/done"}, f.merchant)
			require.NoError(t, err)
			assert.Equal(t, db.IntentStatusProcessing, data.Intent.Status)
			assert.Equal(t, "https://shop.example/done", data.Intent.ReturnURL)
			assert.Equal(t, db.AttemptStatusPending, data.Attempt.Status)

			require.NoError(t, operations.ApplyPaymentOutcome(ctx, f.state, data, &connector.Outcome{
				AttemptStatus:          db.AttemptStatusAuthorized,
				ConnectorTransactionID: "txn_1",
			}))
			assert.Equal(t, db.IntentStatusRequiresCapture, data.Intent.Status)

			_, err = operations.Run[operations.PaymentsCaptureRequest, operations.PaymentData](ctx, f.state, &operations.PaymentCapture{},
				&operations.PaymentsCaptureRequest{PaymentID: paymentID, AmountToCapture: 4001}, f.merchant)
			assert.ErrorIs(t, err, core.ErrValidation)

			data, err = operations.Run[operations.PaymentsCaptureRequest, operations.PaymentData](ctx, f.state, &operations.PaymentCapture{},
				&operations.PaymentsCaptureRequest{PaymentID: paymentID, AmountToCapture: 3000}, f.merchant)
			require.NoError(t, err)
			assert.Equal(t, connector.ActionCapture, data.CallConnector)
			assert.Equal(t, db.AttemptStatusCaptureInitiated, data.Attempt.Status)
			assert.Equal(t, int64(3000), operations.ConnectorRequest(data).Amount)

			require.NoError(t, operations.ApplyPaymentOutcome(ctx, f.state, data, &connector.Outcome{AttemptStatus: db.AttemptStatusCharged}))
			assert.Equal(t, db.IntentStatusSucceeded, data.Intent.Status)
			assert.Equal(t, int64(3000), data.Intent.AmountCaptured)

			data, err = operations.Run[operations.PaymentsRetrieveRequest, operations.PaymentData](ctx, f.state, &operations.PaymentStatus{},
				&operations.PaymentsRetrieveRequest{PaymentID: paymentID, ForceSync: true}, f.merchant)
			require.NoError(t, err)
			assert.Empty(t, data.CallConnector)
			assert.Equal(t, "txn_1", data.ConnectorResponse.ConnectorTransactionID)
		})
	}
}

func TestPaymentCancel(t *testing.T) {
	for _, scheme := range schemes {
		t.Run(string(scheme), func(t *testing.T) {
			f := newFixture(t, scheme)
			ctx := context.Background()

			data, err := f.create(ctx, &operations.PaymentsRequest{Amount: 100, Currency: "USD"})
			require.NoError(t, err)

			data, err = operations.Run[operations.PaymentsCancelRequest, operations.PaymentData](ctx, f.state, &operations.PaymentCancel{},
				&operations.PaymentsCancelRequest{PaymentID: data.Intent.PaymentID, CancellationReason: "duplicate"}, f.merchant)
			require.NoError(t, err)

			assert.Empty(t, data.CallConnector)
			assert.Equal(t, db.AttemptStatusVoided, data.Attempt.Status)
			assert.Equal(t, "duplicate", data.Attempt.CancellationReason)
			assert.Equal(t, db.IntentStatusCancelled, data.Intent.Status)

			// A cancelled payment is terminal.
			err = operations.ApplyPaymentOutcome(ctx, f.state, data, &connector.Outcome{AttemptStatus: db.AttemptStatusCharged})
			assert.ErrorIs(t, err, core.ErrValidation)
			var te *db.TransitionError
			assert.ErrorAs(t, err, &te)

			_, err = operations.Run[operations.PaymentsCancelRequest, operations.PaymentData](ctx, f.state, &operations.PaymentCancel{},
				&operations.PaymentsCancelRequest{PaymentID: data.Intent.PaymentID}, f.merchant)
			assert.ErrorIs(t, err, core.ErrValidation)
		})
	}
}

func TestPaymentCancel_AuthorizedWaitsForConnector(t *testing.T) {
	f := newFixture(t, db.StorageSchemeStrict)
	ctx := context.Background()

	data, err := f.create(ctx, &operations.PaymentsRequest{Amount: 100, Currency: "USD", CaptureMethod: "manual", Confirm: true, PaymentToken: "tok_visa"})
	require.NoError(t, err)
	require.NoError(t, operations.ApplyPaymentOutcome(ctx, f.state, data, &connector.Outcome{AttemptStatus: db.AttemptStatusAuthorized, ConnectorTransactionID: "txn_9"}))

	data, err = operations.Run[operations.PaymentsCancelRequest, operations.PaymentData](ctx, f.state, &operations.PaymentCancel{},
		&operations.PaymentsCancelRequest{PaymentID: data.Intent.PaymentID}, f.merchant)
	require.NoError(t, err)
	assert.Equal(t, connector.ActionVoid, data.CallConnector)
	assert.Equal(t, db.AttemptStatusVoidInitiated, data.Attempt.Status)
	assert.Equal(t, db.IntentStatusRequiresCapture, data.Intent.Status)

	require.NoError(t, operations.ApplyPaymentOutcome(ctx, f.state, data, &connector.Outcome{AttemptStatus: db.AttemptStatusVoided}))
	assert.Equal(t, db.IntentStatusCancelled, data.Intent.Status)
}

func TestPaymentMethodValidate(t *testing.T) {
	for _, scheme := range schemes {
		t.Run(string(scheme), func(t *testing.T) {
			f := newFixture(t, scheme)
			ctx := context.Background()

			data, err := operations.Run[operations.VerifyRequest, operations.PaymentData](ctx, f.state, &operations.PaymentMethodValidate{IDLength: 20},
				&operations.VerifyRequest{CustomerID: "cus_1", PaymentToken: "tok_visa", ReturnURL: "https://shop.example"}, f.merchant)
			require.NoError(t, err)

			assert.True(t, strings.HasPrefix(data.Intent.PaymentID, "val_"))
			assert.Zero(t, data.Intent.Amount)
			assert.Equal(t, db.IntentStatusProcessing, data.Intent.Status)
			assert.Equal(t, "https://shop.example", data.Intent.ReturnURL)
			assert.Equal(t, db.AttemptStatusPending, data.Attempt.Status)
			assert.True(t, data.Attempt.Confirm)
			require.NotNil(t, data.Customer)
			assert.Equal(t, "cus_1", data.Customer.CustomerID)
		})
	}
}

func TestPaymentMethodValidate_WrapsTrackerFailure(t *testing.T) {
	for _, scheme := range schemes {
		t.Run(string(scheme), func(t *testing.T) {
			f := newFixture(t, scheme)
			ctx := context.Background()

			req := func() *operations.VerifyRequest {
				return &operations.VerifyRequest{PaymentID: "val_fixed", PaymentToken: "tok_visa"}
			}

			_, err := operations.Run[operations.VerifyRequest, operations.PaymentData](ctx, f.state, &operations.PaymentMethodValidate{}, req(), f.merchant)
			require.NoError(t, err)

			_, err = operations.Run[operations.VerifyRequest, operations.PaymentData](ctx, f.state, &operations.PaymentMethodValidate{}, req(), f.merchant)
			require.Error(t, err)

			var fe *operations.FlowError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, operations.FlowVerify, fe.Flow)
			assert.Equal(t, operations.StageGetTrackers, fe.Stage)
			assert.Equal(t, operations.VerificationFailedCode, fe.Code)
			assert.ErrorIs(t, err, core.ErrDuplicateRecord)
		})
	}
}

func TestRefundCreate(t *testing.T) {
	for _, scheme := range schemes {
		t.Run(string(scheme), func(t *testing.T) {
			f := newFixture(t, scheme)
			ctx := context.Background()
			payment := f.succeeded(t, 1000)
			paymentID := payment.Intent.PaymentID

			first, err := f.refund(ctx, &operations.RefundRequest{PaymentID: paymentID, Amount: 400, Reason: "damaged"})
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(first.Refund.RefundID, "ref_"))
			assert.Equal(t, db.RefundStatusPending, first.Refund.Status)
			assert.Equal(t, "txn_"+paymentID, first.Refund.ConnectorTransactionID)
			assert.Equal(t, connector.ActionRefund, first.CallConnector)

			_, err = f.refund(ctx, &operations.RefundRequest{PaymentID: paymentID, Amount: 601})
			assert.ErrorIs(t, err, core.ErrValidation)

			refunds, err := f.env.Store.FindRefundsByMerchantIDPaymentID(ctx, "merchant_1", paymentID, scheme)
			require.NoError(t, err)
			assert.Len(t, refunds, 1)

			_, err = f.refund(ctx, &operations.RefundRequest{RefundID: first.Refund.RefundID, PaymentID: paymentID, Amount: 1})
			assert.ErrorIs(t, err, core.ErrDuplicateRecord)

			// A failed refund no longer counts against the captured amount.
			require.NoError(t, operations.ApplyRefundOutcome(ctx, f.state, first, &connector.Outcome{RefundStatus: db.RefundStatusFailed, ErrorCode: "insufficient_funds"}))
			assert.Equal(t, "insufficient_funds", first.Refund.ErrorCode)

			rest, err := f.refund(ctx, &operations.RefundRequest{PaymentID: paymentID})
			require.NoError(t, err)
			assert.Equal(t, int64(1000), rest.Refund.RefundAmount)

			_, err = f.refund(ctx, &operations.RefundRequest{PaymentID: paymentID})
			assert.ErrorIs(t, err, core.ErrValidation)
		})
	}
}

func TestRefundCreate_RequiresSucceededPayment(t *testing.T) {
	f := newFixture(t, db.StorageSchemeStrict)
	ctx := context.Background()

	data, err := f.create(ctx, &operations.PaymentsRequest{Amount: 100, Currency: "USD"})
	require.NoError(t, err)

	_, err = f.refund(ctx, &operations.RefundRequest{PaymentID: data.Intent.PaymentID, Amount: 10})
	assert.ErrorIs(t, err, core.ErrValidation)

	var count int64
	require.NoError(t, f.env.DB.Model(&db.Refund{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestRefundSyncAndUpdate(t *testing.T) {
	for _, scheme := range schemes {
		t.Run(string(scheme), func(t *testing.T) {
			f := newFixture(t, scheme)
			ctx := context.Background()
			payment := f.succeeded(t, 1000)

			created, err := f.refund(ctx, &operations.RefundRequest{PaymentID: payment.Intent.PaymentID, Amount: 100})
			require.NoError(t, err)
			refundID := created.Refund.RefundID

			updated, err := operations.Run[operations.RefundUpdateRequest, operations.RefundData](ctx, f.state, &operations.RefundUpdate{},
				&operations.RefundUpdateRequest{RefundID: refundID, Reason: "late delivery", Metadata: map[string]any{"ticket": "T-9"}}, f.merchant)
			require.NoError(t, err)
			assert.Equal(t, "late delivery", updated.Refund.Reason)
			assert.Equal(t, "T-9", updated.Refund.Metadata["ticket"])

			synced, err := operations.Run[operations.RefundsRetrieveRequest, operations.RefundData](ctx, f.state, &operations.RefundSync{},
				&operations.RefundsRetrieveRequest{RefundID: refundID, ForceSync: true}, f.merchant)
			require.NoError(t, err)
			assert.Equal(t, connector.ActionRefundSync, synced.CallConnector)
			assert.Equal(t, payment.Attempt.AttemptID, synced.Attempt.AttemptID)

			require.NoError(t, operations.ApplyRefundOutcome(ctx, f.state, synced, &connector.Outcome{RefundStatus: db.RefundStatusSucceeded, ConnectorRefundID: "rf_1"}))

			synced, err = operations.Run[operations.RefundsRetrieveRequest, operations.RefundData](ctx, f.state, &operations.RefundSync{},
				&operations.RefundsRetrieveRequest{RefundID: refundID, ForceSync: true}, f.merchant)
			require.NoError(t, err)
			assert.Empty(t, synced.CallConnector)
			assert.Equal(t, db.RefundStatusSucceeded, synced.Refund.Status)
			assert.Equal(t, "rf_1", synced.Refund.ConnectorRefundID)

			// Succeeded is terminal.
			err = operations.ApplyRefundOutcome(ctx, f.state, synced, &connector.Outcome{RefundStatus: db.RefundStatusPending})
			assert.ErrorIs(t, err, core.ErrValidation)
		})
	}
}

func TestCreateFallbackAttempt(t *testing.T) {
	for _, scheme := range schemes {
		t.Run(string(scheme), func(t *testing.T) {
			f := newFixture(t, scheme)
			ctx := context.Background()

			data, err := f.create(ctx, &operations.PaymentsRequest{Amount: 100, Currency: "USD", Confirm: true, PaymentToken: "tok_visa"})
			require.NoError(t, err)
			paymentID := data.Intent.PaymentID

			declined := &connector.Outcome{AttemptStatus: db.AttemptStatusFailure, ErrorCode: "card_declined"}
			require.NoError(t, operations.CreateFallbackAttempt(ctx, f.state, data, declined, "backup"))

			assert.Equal(t, paymentID+"_2", data.Intent.ActiveAttemptID)
			assert.Equal(t, 2, data.Intent.AttemptCount)
			assert.Equal(t, "backup", data.Intent.ConnectorID)
			assert.Equal(t, db.IntentStatusProcessing, data.Intent.Status)
			assert.Equal(t, db.AttemptStatusPending, data.Attempt.Status)
			assert.Equal(t, "backup", data.Attempt.Connector)

			old, err := f.env.Store.FindPaymentAttemptByAttemptIDMerchantID(ctx, paymentID+"_1", "merchant_1", scheme)
			require.NoError(t, err)
			assert.Equal(t, db.AttemptStatusFailure, old.Status)
			assert.Equal(t, "card_declined", old.ErrorCode)

			_, err = f.env.Store.FindConnectorResponseByAttemptIDMerchantID(ctx, paymentID+"_2", "merchant_1", scheme)
			require.NoError(t, err)
		})
	}
}

func TestGetOrCreateCustomer_Race(t *testing.T) {
	f := newFixture(t, db.StorageSchemeStrict)
	ctx := context.Background()
	details := &operations.CustomerDetails{CustomerID: "cus_race", Email: "race@example.com"}

	const runs = 6
	var wg sync.WaitGroup
	errs := make([]error, runs)
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = operations.GetOrCreateCustomer(ctx, f.env.Store, "merchant_1", details)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	var count int64
	require.NoError(t, f.env.DB.Model(&db.Customer{}).Where("customer_id = ?", "cus_race").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
