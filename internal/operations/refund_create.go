package operations

import (
	"context"
	"errors"

	"github.com/samber/lo"
	"go.lumeweb.com/portal-plugin-payments/internal/client/connector"
	"go.lumeweb.com/portal-plugin-payments/internal/core"
	"go.lumeweb.com/portal-plugin-payments/internal/db"
)

var _ Operation[RefundRequest, RefundData] = (*RefundCreate)(nil)

// RefundCreate refunds part or all of a succeeded payment.
type RefundCreate struct {
	refundDomain
	IDLength int
}

func (o *RefundCreate) Flow() Flow {
	return FlowRefundCreate
}

func (o *RefundCreate) ValidateRequest(_ context.Context, req *RefundRequest, merchant *db.MerchantAccount) (*ValidateResult, error) {
	if err := validateMerchantID(req.MerchantID, merchant); err != nil {
		return nil, err
	}
	if err := requireBusinessID(req.PaymentID, "payment_id"); err != nil {
		return nil, err
	}
	if req.Amount < 0 {
		return nil, core.NewValidationError("refund amount must not be negative")
	}

	switch req.RefundType {
	case "":
		req.RefundType = db.RefundTypeInstant
	case db.RefundTypeInstant, db.RefundTypeScheduled:
	default:
		return nil, core.NewValidationError("refund_type must be instant or scheduled")
	}

	refundID, err := businessID(req.RefundID, PrefixRefund, idLength(o.IDLength), "refund_id")
	if err != nil {
		return nil, err
	}
	req.RefundID = refundID

	return &ValidateResult{
		MerchantID:    merchant.MerchantID,
		BusinessID:    refundID,
		StorageScheme: merchant.StorageScheme,
	}, nil
}

func (o *RefundCreate) GetTrackers(ctx context.Context, state *State, vr *ValidateResult, merchant *db.MerchantAccount, _ string, req *RefundRequest) (*RefundData, *CustomerDetails, error) {
	scheme := vr.StorageScheme

	intent, err := state.Store.FindPaymentIntentByPaymentIDMerchantID(ctx, req.PaymentID, merchant.MerchantID, scheme)
	if err != nil {
		return nil, nil, err
	}
	if err := requireIntentStatus(*intent, "refund", db.IntentStatusSucceeded); err != nil {
		return nil, nil, err
	}

	attempt, err := state.Store.FindPaymentAttemptByAttemptIDMerchantID(ctx, intent.ActiveAttemptID, merchant.MerchantID, scheme)
	if err != nil {
		return nil, nil, err
	}

	_, err = state.Store.FindRefundByMerchantIDRefundID(ctx, merchant.MerchantID, vr.BusinessID, scheme)
	switch {
	case err == nil:
		return nil, nil, core.NewDuplicateRecordError("refund %s already exists", vr.BusinessID)
	case !errors.Is(err, core.ErrNotFound):
		return nil, nil, err
	}

	existing, err := state.Store.FindRefundsByMerchantIDPaymentID(ctx, merchant.MerchantID, req.PaymentID, scheme)
	if err != nil {
		return nil, nil, err
	}

	remaining := intent.AmountCaptured - refundedAmount(existing)

	amount := req.Amount
	if amount == 0 {
		amount = remaining
	}
	if amount <= 0 || amount > remaining {
		return nil, nil, core.NewValidationError("refund amount %d exceeds the refundable amount %d of payment %s", amount, remaining, intent.PaymentID)
	}

	now := db.Now()
	refund, err := state.Store.InsertRefund(ctx, db.Refund{
		MerchantID:             merchant.MerchantID,
		RefundID:               vr.BusinessID,
		PaymentID:              intent.PaymentID,
		AttemptID:              attempt.AttemptID,
		ConnectorTransactionID: attempt.ConnectorTransactionID,
		Connector:              attempt.Connector,
		RefundType:             req.RefundType,
		TotalAmount:            intent.AmountCaptured,
		RefundAmount:           amount,
		Currency:               intent.Currency,
		Status:                 db.RefundStatusPending,
		Reason:                 req.Reason,
		Metadata:               db.Metadata(req.Metadata),
		CreatedAt:              now,
		ModifiedAt:             now,
	}, scheme)
	if err != nil {
		return nil, nil, err
	}

	return &RefundData{
		Intent:        *intent,
		Attempt:       *attempt,
		Refund:        *refund,
		StorageScheme: scheme,
		CallConnector: connector.ActionRefund,
	}, nil, nil
}

func (o *RefundCreate) UpdateTrackers(_ context.Context, _ *State, _ *ValidateResult, data *RefundData, _ *db.Customer, _ *db.MerchantAccount) (*RefundData, error) {
	return data, nil
}

// refundedAmount sums the refunds that still count against the captured amount.
func refundedAmount(refunds []db.Refund) int64 {
	live := lo.Filter(refunds, func(r db.Refund, _ int) bool {
		return r.Status != db.RefundStatusFailed
	})
	return lo.SumBy(live, func(r db.Refund) int64 {
		return r.RefundAmount
	})
}
