package operations

import (
	"context"

	"go.lumeweb.com/portal-plugin-payments/internal/core"
	"go.lumeweb.com/portal-plugin-payments/internal/db"
)

var _ Operation[RefundUpdateRequest, RefundData] = (*RefundUpdate)(nil)

// RefundUpdate changes the reason or metadata of a refund.
type RefundUpdate struct {
	refundDomain
}

func (o *RefundUpdate) Flow() Flow {
	return FlowRefundUpdate
}

func (o *RefundUpdate) ValidateRequest(_ context.Context, req *RefundUpdateRequest, merchant *db.MerchantAccount) (*ValidateResult, error) {
	if err := validateMerchantID(req.MerchantID, merchant); err != nil {
		return nil, err
	}
	if err := requireBusinessID(req.RefundID, "refund_id"); err != nil {
		return nil, err
	}
	if req.Reason == "" && req.Metadata == nil {
		return nil, core.NewValidationError("reason or metadata is required")
	}

	return &ValidateResult{
		MerchantID:    merchant.MerchantID,
		BusinessID:    req.RefundID,
		StorageScheme: merchant.StorageScheme,
	}, nil
}

func (o *RefundUpdate) GetTrackers(ctx context.Context, state *State, vr *ValidateResult, merchant *db.MerchantAccount, _ string, req *RefundUpdateRequest) (*RefundData, *CustomerDetails, error) {
	refund, err := state.Store.FindRefundByMerchantIDRefundID(ctx, merchant.MerchantID, vr.BusinessID, vr.StorageScheme)
	if err != nil {
		return nil, nil, err
	}

	return &RefundData{
		Refund:         *refund,
		StorageScheme:  vr.StorageScheme,
		metadataUpdate: req,
	}, nil, nil
}

func (o *RefundUpdate) UpdateTrackers(ctx context.Context, state *State, _ *ValidateResult, data *RefundData, _ *db.Customer, _ *db.MerchantAccount) (*RefundData, error) {
	err := updateRefund(ctx, state, data, db.RefundMetadataUpdate{
		Reason:   data.metadataUpdate.Reason,
		Metadata: data.metadataUpdate.Metadata,
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}
