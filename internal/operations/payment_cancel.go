package operations

import (
	"context"

	"go.lumeweb.com/portal-plugin-payments/internal/client/connector"
	"go.lumeweb.com/portal-plugin-payments/internal/db"
)

var _ Operation[PaymentsCancelRequest, PaymentData] = (*PaymentCancel)(nil)

// PaymentCancel voids a payment that has not been captured. An authorized attempt is voided at its
// connector first; the intent follows once the connector answers.
type PaymentCancel struct {
	trackerDomain
}

func (o *PaymentCancel) Flow() Flow {
	return FlowCancel
}

func (o *PaymentCancel) ValidateRequest(_ context.Context, req *PaymentsCancelRequest, merchant *db.MerchantAccount) (*ValidateResult, error) {
	if err := validateMerchantID(req.MerchantID, merchant); err != nil {
		return nil, err
	}
	if err := requireBusinessID(req.PaymentID, "payment_id"); err != nil {
		return nil, err
	}

	return &ValidateResult{
		MerchantID:    merchant.MerchantID,
		BusinessID:    req.PaymentID,
		StorageScheme: merchant.StorageScheme,
	}, nil
}

func (o *PaymentCancel) GetTrackers(ctx context.Context, state *State, vr *ValidateResult, merchant *db.MerchantAccount, _ string, req *PaymentsCancelRequest) (*PaymentData, *CustomerDetails, error) {
	data, err := loadPayment(ctx, state, vr.StorageScheme, vr.BusinessID, merchant.MerchantID)
	if err != nil {
		return nil, nil, err
	}

	err = requireIntentStatus(data.Intent, "cancel",
		db.IntentStatusRequiresPaymentMethod,
		db.IntentStatusRequiresConfirmation,
		db.IntentStatusRequiresCapture,
	)
	if err != nil {
		return nil, nil, err
	}

	data.cancellationReason = req.CancellationReason
	return data, nil, nil
}

func (o *PaymentCancel) UpdateTrackers(ctx context.Context, state *State, _ *ValidateResult, data *PaymentData, _ *db.Customer, _ *db.MerchantAccount) (*PaymentData, error) {
	if data.Attempt.Status == db.AttemptStatusAuthorized {
		err := updateAttempt(ctx, state, data, db.PaymentAttemptVoidUpdate{
			Status:             db.AttemptStatusVoidInitiated,
			CancellationReason: data.cancellationReason,
		})
		if err != nil {
			return nil, err
		}

		data.CallConnector = connector.ActionVoid
		return data, nil
	}

	err := updateAttempt(ctx, state, data, db.PaymentAttemptVoidUpdate{
		Status:             db.AttemptStatusVoided,
		CancellationReason: data.cancellationReason,
	})
	if err != nil {
		return nil, err
	}

	if err := updateIntent(ctx, state, data, db.PaymentIntentStatusUpdate{Status: db.IntentStatusCancelled}); err != nil {
		return nil, err
	}

	return data, nil
}
