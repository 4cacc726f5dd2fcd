package operations

import (
	"context"

	"go.lumeweb.com/portal-plugin-payments/internal/client/connector"
	"go.lumeweb.com/portal-plugin-payments/internal/db"
)

var _ Operation[RefundsRetrieveRequest, RefundData] = (*RefundSync)(nil)

// RefundSync reads a refund, asking for a connector sync when forced and still open.
type RefundSync struct {
	refundDomain
}

func (o *RefundSync) Flow() Flow {
	return FlowRefundSync
}

func (o *RefundSync) ValidateRequest(_ context.Context, req *RefundsRetrieveRequest, merchant *db.MerchantAccount) (*ValidateResult, error) {
	if err := validateMerchantID(req.MerchantID, merchant); err != nil {
		return nil, err
	}
	if err := requireBusinessID(req.RefundID, "refund_id"); err != nil {
		return nil, err
	}

	return &ValidateResult{
		MerchantID:    merchant.MerchantID,
		BusinessID:    req.RefundID,
		StorageScheme: merchant.StorageScheme,
	}, nil
}

func (o *RefundSync) GetTrackers(ctx context.Context, state *State, vr *ValidateResult, merchant *db.MerchantAccount, _ string, req *RefundsRetrieveRequest) (*RefundData, *CustomerDetails, error) {
	refund, err := state.Store.FindRefundByMerchantIDRefundID(ctx, merchant.MerchantID, vr.BusinessID, vr.StorageScheme)
	if err != nil {
		return nil, nil, err
	}

	data := &RefundData{Refund: *refund, StorageScheme: vr.StorageScheme}

	if req.ForceSync && !refund.Status.IsTerminal() {
		intent, err := state.Store.FindPaymentIntentByPaymentIDMerchantID(ctx, refund.PaymentID, merchant.MerchantID, vr.StorageScheme)
		if err != nil {
			return nil, nil, err
		}
		attempt, err := state.Store.FindPaymentAttemptByAttemptIDMerchantID(ctx, refund.AttemptID, merchant.MerchantID, vr.StorageScheme)
		if err != nil {
			return nil, nil, err
		}

		data.Intent = *intent
		data.Attempt = *attempt
		data.CallConnector = connector.ActionRefundSync
	}

	return data, nil, nil
}

func (o *RefundSync) UpdateTrackers(_ context.Context, _ *State, _ *ValidateResult, data *RefundData, _ *db.Customer, _ *db.MerchantAccount) (*RefundData, error) {
	return data, nil
}
