package operations

import (
	"context"

	"go.lumeweb.com/portal-plugin-payments/internal/client/connector"
	"go.lumeweb.com/portal-plugin-payments/internal/db"
)

var _ Operation[PaymentsRequest, PaymentData] = (*PaymentConfirm)(nil)

// PaymentConfirm hands an unconfirmed payment to its connector.
type PaymentConfirm struct {
	paymentDomain
}

func (o *PaymentConfirm) Flow() Flow {
	return FlowConfirm
}

func (o *PaymentConfirm) ValidateRequest(_ context.Context, req *PaymentsRequest, merchant *db.MerchantAccount) (*ValidateResult, error) {
	if err := validateMerchantID(req.MerchantID, merchant); err != nil {
		return nil, err
	}
	if err := requireBusinessID(req.PaymentID, "payment_id"); err != nil {
		return nil, err
	}

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

func (o *PaymentConfirm) GetTrackers(ctx context.Context, state *State, vr *ValidateResult, merchant *db.MerchantAccount, connectorName string, req *PaymentsRequest) (*PaymentData, *CustomerDetails, error) {
	data, err := loadPayment(ctx, state, vr.StorageScheme, vr.BusinessID, merchant.MerchantID)
	if err != nil {
		return nil, nil, err
	}

	if err := requireIntentStatus(data.Intent, "confirm", db.IntentStatusRequiresPaymentMethod, db.IntentStatusRequiresConfirmation); err != nil {
		return nil, nil, err
	}

	if vr.RequestedConnector != "" || data.Connector == "" {
		data.Connector = connectorName
	}

	data.update = req
	data.Confirm = true
	data.MandateType = vr.MandateType
	data.requirePaymentMethod = true
	data.requestedPaymentMethod = requestedPaymentMethod(req.PaymentMethod, req.PaymentMethodType, req.PaymentToken, req.PaymentMethodData)

	customerID := req.CustomerID
	if customerID == "" {
		customerID = data.Intent.CustomerID
	}

	return data, customerDetails(customerID, req.Customer), nil
}

func (o *PaymentConfirm) UpdateTrackers(ctx context.Context, state *State, _ *ValidateResult, data *PaymentData, customer *db.Customer, _ *db.MerchantAccount) (*PaymentData, error) {
	err := updateAttempt(ctx, state, data, db.PaymentAttemptConfirmUpdate{
		Status:            db.AttemptStatusPending,
		Connector:         data.Connector,
		PaymentMethod:     data.PaymentMethod.PaymentMethod,
		PaymentMethodType: data.PaymentMethod.PaymentMethodType,
		PaymentToken:      data.PaymentMethod.Token,
		Confirm:           true,
	})
	if err != nil {
		return nil, err
	}

	var customerID string
	if customer != nil && customer.CustomerID != data.Intent.CustomerID {
		customerID = customer.CustomerID
	}

	var update db.PaymentIntentUpdate = db.PaymentIntentStatusUpdate{Status: db.IntentStatusProcessing}
	if data.update.ReturnURL != "" || customerID != "" {
		update = db.PaymentIntentReturnURLUpdate{
			ReturnURL:  data.update.ReturnURL,
			Status:     db.IntentStatusProcessing,
			CustomerID: customerID,
		}
	}

	if err := updateIntent(ctx, state, data, update); err != nil {
		return nil, err
	}

	data.CallConnector = connector.ActionAuthorize
	return data, nil
}
