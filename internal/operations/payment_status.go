package operations

import (
	"context"

	"go.lumeweb.com/portal-plugin-payments/internal/client/connector"
	"go.lumeweb.com/portal-plugin-payments/internal/db"
)

var _ Operation[PaymentsRetrieveRequest, PaymentData] = (*PaymentStatus)(nil)

// PaymentStatus reads a payment. With ForceSync it asks the caller to sync a non-terminal attempt
// with its connector.
type PaymentStatus struct {
	trackerDomain
}

func (o *PaymentStatus) Flow() Flow {
	return FlowSync
}

func (o *PaymentStatus) ValidateRequest(_ context.Context, req *PaymentsRetrieveRequest, merchant *db.MerchantAccount) (*ValidateResult, error) {
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

func (o *PaymentStatus) GetTrackers(ctx context.Context, state *State, vr *ValidateResult, merchant *db.MerchantAccount, _ string, req *PaymentsRetrieveRequest) (*PaymentData, *CustomerDetails, error) {
	data, err := loadPayment(ctx, state, vr.StorageScheme, vr.BusinessID, merchant.MerchantID)
	if err != nil {
		return nil, nil, err
	}

	refunds, err := state.Store.FindRefundsByMerchantIDPaymentID(ctx, merchant.MerchantID, vr.BusinessID, vr.StorageScheme)
	if err != nil {
		return nil, nil, err
	}
	data.Refunds = refunds

	if req.ForceSync && !data.Attempt.Status.IsTerminal() && data.Attempt.Status != db.AttemptStatusStarted {
		data.CallConnector = connector.ActionSync
	}

	return data, nil, nil
}

func (o *PaymentStatus) UpdateTrackers(_ context.Context, _ *State, _ *ValidateResult, data *PaymentData, _ *db.Customer, _ *db.MerchantAccount) (*PaymentData, error) {
	return data, nil
}
