package operations

import (
	"context"

	"go.lumeweb.com/portal-plugin-payments/internal/core"
	"go.lumeweb.com/portal-plugin-payments/internal/db"
)

var _ Operation[PaymentsRequest, PaymentData] = (*PaymentUpdate)(nil)

// PaymentUpdate changes an unconfirmed payment.
type PaymentUpdate struct {
	paymentDomain
}

func (o *PaymentUpdate) Flow() Flow {
	return FlowUpdate
}

func (o *PaymentUpdate) ValidateRequest(_ context.Context, req *PaymentsRequest, merchant *db.MerchantAccount) (*ValidateResult, error) {
	if err := validateMerchantID(req.MerchantID, merchant); err != nil {
		return nil, err
	}
	if err := requireBusinessID(req.PaymentID, "payment_id"); err != nil {
		return nil, err
	}

	if req.Amount < 0 {
		return nil, core.NewValidationError("amount must not be negative")
	}
	if req.Confirm {
		return nil, core.NewValidationError("confirm is not accepted on update, use the confirm endpoint")
	}

	currency, err := normalizeCurrency(req.Currency, false)
	if err != nil {
		return nil, err
	}
	req.Currency = currency

	mandateType, err := validateMandate(req.MandateID, req.MandateData, req.CustomerID, req.SetupFutureUsage)
	if err != nil {
		return nil, err
	}

	return &ValidateResult{
		MerchantID:         merchant.MerchantID,
		BusinessID:         req.PaymentID,
		StorageScheme:      merchant.StorageScheme,
		RequestedConnector: req.Connector,
		MandateType:        mandateType,
	}, nil
}

func (o *PaymentUpdate) GetTrackers(ctx context.Context, state *State, vr *ValidateResult, merchant *db.MerchantAccount, _ string, req *PaymentsRequest) (*PaymentData, *CustomerDetails, error) {
	data, err := loadPayment(ctx, state, vr.StorageScheme, vr.BusinessID, merchant.MerchantID)
	if err != nil {
		return nil, nil, err
	}

	if err := requireIntentStatus(data.Intent, "update", db.IntentStatusRequiresPaymentMethod, db.IntentStatusRequiresConfirmation); err != nil {
		return nil, nil, err
	}

	data.update = req
	data.MandateType = vr.MandateType
	data.requestedPaymentMethod = requestedPaymentMethod(req.PaymentMethod, req.PaymentMethodType, req.PaymentToken, req.PaymentMethodData)

	return data, customerDetails(req.CustomerID, req.Customer), nil
}

func (o *PaymentUpdate) UpdateTrackers(ctx context.Context, state *State, _ *ValidateResult, data *PaymentData, _ *db.Customer, _ *db.MerchantAccount) (*PaymentData, error) {
	req := data.update

	var status db.IntentStatus
	if data.PaymentMethod != nil && data.Intent.Status == db.IntentStatusRequiresPaymentMethod {
		status = db.IntentStatusRequiresConfirmation
	}

	err := updateIntent(ctx, state, data, db.PaymentIntentAmountUpdate{
		Amount:           req.Amount,
		Currency:         req.Currency,
		CustomerID:       req.CustomerID,
		Description:      req.Description,
		ReturnURL:        req.ReturnURL,
		SetupFutureUsage: req.SetupFutureUsage,
		Metadata:         req.Metadata,
		Status:           status,
	})
	if err != nil {
		return nil, err
	}

	if data.Attempt.Status != db.AttemptStatusStarted {
		return data, nil
	}
	if req.Amount == 0 && req.Currency == "" && data.PaymentMethod == nil {
		return data, nil
	}

	update := db.PaymentAttemptConfirmUpdate{
		Amount:   req.Amount,
		Currency: req.Currency,
	}
	if data.PaymentMethod != nil {
		update.PaymentMethod = data.PaymentMethod.PaymentMethod
		update.PaymentMethodType = data.PaymentMethod.PaymentMethodType
		update.PaymentToken = data.PaymentMethod.Token
	}

	if err := updateAttempt(ctx, state, data, update); err != nil {
		return nil, err
	}

	return data, nil
}
