package operations

import (
	"context"

	"go.lumeweb.com/portal-plugin-payments/internal/client/connector"
	"go.lumeweb.com/portal-plugin-payments/internal/core"
	"go.lumeweb.com/portal-plugin-payments/internal/db"
)

var _ Operation[PaymentsCaptureRequest, PaymentData] = (*PaymentCapture)(nil)

// PaymentCapture captures an authorized payment, fully or in part.
type PaymentCapture struct {
	trackerDomain
}

func (o *PaymentCapture) Flow() Flow {
	return FlowCapture
}

func (o *PaymentCapture) ValidateRequest(_ context.Context, req *PaymentsCaptureRequest, merchant *db.MerchantAccount) (*ValidateResult, error) {
	if err := validateMerchantID(req.MerchantID, merchant); err != nil {
		return nil, err
	}
	if err := requireBusinessID(req.PaymentID, "payment_id"); err != nil {
		return nil, err
	}
	if req.AmountToCapture < 0 {
		return nil, core.NewValidationError("amount_to_capture must not be negative")
	}

	return &ValidateResult{
		MerchantID:    merchant.MerchantID,
		BusinessID:    req.PaymentID,
		StorageScheme: merchant.StorageScheme,
	}, nil
}

func (o *PaymentCapture) GetTrackers(ctx context.Context, state *State, vr *ValidateResult, merchant *db.MerchantAccount, _ string, req *PaymentsCaptureRequest) (*PaymentData, *CustomerDetails, error) {
	data, err := loadPayment(ctx, state, vr.StorageScheme, vr.BusinessID, merchant.MerchantID)
	if err != nil {
		return nil, nil, err
	}

	if err := requireIntentStatus(data.Intent, "capture", db.IntentStatusRequiresCapture); err != nil {
		return nil, nil, err
	}

	amount := req.AmountToCapture
	if amount == 0 {
		amount = data.Intent.Amount
	}
	if amount > data.Intent.Amount {
		return nil, nil, core.NewValidationError("amount_to_capture %d exceeds the payment amount %d", amount, data.Intent.Amount)
	}
	data.amountToCapture = amount

	return data, nil, nil
}

func (o *PaymentCapture) UpdateTrackers(ctx context.Context, state *State, _ *ValidateResult, data *PaymentData, _ *db.Customer, _ *db.MerchantAccount) (*PaymentData, error) {
	err := updateAttempt(ctx, state, data, db.PaymentAttemptCaptureUpdate{
		AmountToCapture: data.amountToCapture,
		Status:          db.AttemptStatusCaptureInitiated,
	})
	if err != nil {
		return nil, err
	}

	if err := updateIntent(ctx, state, data, db.PaymentIntentStatusUpdate{Status: db.IntentStatusProcessing}); err != nil {
		return nil, err
	}

	data.CallConnector = connector.ActionCapture
	return data, nil
}
