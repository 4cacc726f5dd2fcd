package operations

import (
	"context"

	"github.com/google/uuid"
	"go.lumeweb.com/portal-plugin-payments/internal/client/connector"
	"go.lumeweb.com/portal-plugin-payments/internal/core"
	"go.lumeweb.com/portal-plugin-payments/internal/db"
)

var _ Operation[PaymentsRequest, PaymentData] = (*PaymentCreate)(nil)

// PaymentCreate originates a payment: intent, first attempt and its connector response.
type PaymentCreate struct {
	paymentDomain
	IDLength int
}

func (o *PaymentCreate) Flow() Flow {
	return FlowCreate
}

func (o *PaymentCreate) ValidateRequest(_ context.Context, req *PaymentsRequest, merchant *db.MerchantAccount) (*ValidateResult, error) {
	if err := validateMerchantID(req.MerchantID, merchant); err != nil {
		return nil, err
	}

	if req.Amount <= 0 {
		return nil, core.NewValidationError("amount must be greater than zero")
	}

	currency, err := normalizeCurrency(req.Currency, true)
	if err != nil {
		return nil, err
	}
	req.Currency = currency

	if err := validateCaptureMethod(req.CaptureMethod); err != nil {
		return nil, err
	}

	mandateType, err := validateMandate(req.MandateID, req.MandateData, req.CustomerID, req.SetupFutureUsage)
	if err != nil {
		return nil, err
	}

	paymentID, err := businessID(req.PaymentID, PrefixPayment, idLength(o.IDLength), "payment_id")
	if err != nil {
		return nil, err
	}
	req.PaymentID = paymentID

	return &ValidateResult{
		MerchantID:         merchant.MerchantID,
		BusinessID:         paymentID,
		StorageScheme:      merchant.StorageScheme,
		RequestedConnector: req.Connector,
		MandateType:        mandateType,
	}, nil
}

func (o *PaymentCreate) GetTrackers(ctx context.Context, state *State, vr *ValidateResult, merchant *db.MerchantAccount, connectorName string, req *PaymentsRequest) (*PaymentData, *CustomerDetails, error) {
	now := db.Now()

	secret, err := generateClientSecret(vr.BusinessID, idLength(o.IDLength))
	if err != nil {
		return nil, nil, err
	}

	captureMethod := req.CaptureMethod
	if captureMethod == "" {
		captureMethod = connector.CaptureMethodAutomatic
	}

	// A confirming create only reaches Processing in UpdateTrackers, after the payment method
	// resolved. Until then it stays confirmable.
	status := db.IntentStatusFSM(req.hasPaymentMethod(), req.Confirm)
	if status == db.IntentStatusProcessing {
		status = db.IntentStatusRequiresConfirmation
	}

	intent := db.PaymentIntent{
		MerchantID:       merchant.MerchantID,
		PaymentID:        vr.BusinessID,
		Status:           status,
		Amount:           req.Amount,
		Currency:         req.Currency,
		CaptureMethod:    captureMethod,
		CustomerID:       req.CustomerID,
		Description:      req.Description,
		ReturnURL:        req.ReturnURL,
		ClientSecret:     secret,
		ConnectorID:      connectorName,
		ActiveAttemptID:  attemptID(vr.BusinessID, 1),
		AttemptCount:     1,
		SetupFutureUsage: req.SetupFutureUsage,
		OffSession:       req.OffSession,
		Metadata:         db.Metadata(req.Metadata),
		CreatedAt:        now,
		ModifiedAt:       now,
	}

	attempt := db.PaymentAttempt{
		MerchantID:        merchant.MerchantID,
		AttemptID:         intent.ActiveAttemptID,
		PaymentID:         vr.BusinessID,
		TxnID:             uuid.NewString(),
		Status:            db.AttemptStatusStarted,
		Amount:            req.Amount,
		Currency:          req.Currency,
		Connector:         connectorName,
		PaymentMethod:     req.PaymentMethod,
		PaymentMethodType: req.PaymentMethodType,
		PaymentToken:      req.PaymentToken,
		MandateID:         req.MandateID,
		CreatedAt:         now,
		ModifiedAt:        now,
	}

	response := db.ConnectorResponse{
		MerchantID:    merchant.MerchantID,
		AttemptID:     attempt.AttemptID,
		PaymentID:     vr.BusinessID,
		ConnectorName: connectorName,
		CreatedAt:     now,
		ModifiedAt:    now,
	}

	data, err := insertTrackers(ctx, state, vr.StorageScheme, intent, attempt, response)
	if err != nil {
		return nil, nil, err
	}

	data.Connector = connectorName
	data.Confirm = req.Confirm
	data.MandateType = vr.MandateType
	data.requestedPaymentMethod = requestedPaymentMethod(req.PaymentMethod, req.PaymentMethodType, req.PaymentToken, req.PaymentMethodData)

	return data, customerDetails(req.CustomerID, req.Customer), nil
}

func (o *PaymentCreate) UpdateTrackers(ctx context.Context, state *State, _ *ValidateResult, data *PaymentData, _ *db.Customer, _ *db.MerchantAccount) (*PaymentData, error) {
	if !data.Confirm || data.PaymentMethod == nil {
		return data, nil
	}

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

	if err := updateIntent(ctx, state, data, db.PaymentIntentStatusUpdate{Status: db.IntentStatusProcessing}); err != nil {
		return nil, err
	}

	data.CallConnector = connector.ActionAuthorize
	return data, nil
}
