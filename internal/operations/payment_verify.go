package operations

import (
	"context"

	"github.com/google/uuid"
	"go.lumeweb.com/portal-plugin-payments/internal/client/connector"
	"go.lumeweb.com/portal-plugin-payments/internal/core"
	"go.lumeweb.com/portal-plugin-payments/internal/db"
)

// VerificationFailedCode is the FlowError code of every storage failure in the verify flow.
const VerificationFailedCode = "verification_failed"

var _ Operation[VerifyRequest, PaymentData] = (*PaymentMethodValidate)(nil)

// PaymentMethodValidate runs a zero-amount verification of a payment method as a standalone
// payment.
type PaymentMethodValidate struct {
	paymentDomain
	IDLength int
}

func (o *PaymentMethodValidate) Flow() Flow {
	return FlowVerify
}

func (o *PaymentMethodValidate) ValidateRequest(_ context.Context, req *VerifyRequest, merchant *db.MerchantAccount) (*ValidateResult, error) {
	if err := validateMerchantID(req.MerchantID, merchant); err != nil {
		return nil, err
	}

	if req.PaymentToken == "" && len(req.PaymentMethodData) == 0 {
		return nil, core.NewValidationError("payment_token or payment_method_data is required")
	}

	currency, err := normalizeCurrency(req.Currency, false)
	if err != nil {
		return nil, err
	}
	req.Currency = currency

	mandateType, err := validateMandate("", req.MandateData, req.CustomerID, req.SetupFutureUsage)
	if err != nil {
		return nil, err
	}

	paymentID, err := businessID(req.PaymentID, PrefixVerify, idLength(o.IDLength), "payment_id")
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

func (o *PaymentMethodValidate) GetTrackers(ctx context.Context, state *State, vr *ValidateResult, merchant *db.MerchantAccount, connectorName string, req *VerifyRequest) (*PaymentData, *CustomerDetails, error) {
	now := db.Now()

	intent := db.PaymentIntent{
		MerchantID:       merchant.MerchantID,
		PaymentID:        vr.BusinessID,
		Status:           db.IntentStatusRequiresConfirmation,
		Currency:         req.Currency,
		CaptureMethod:    connector.CaptureMethodAutomatic,
		CustomerID:       req.CustomerID,
		ConnectorID:      connectorName,
		ActiveAttemptID:  attemptID(vr.BusinessID, 1),
		AttemptCount:     1,
		SetupFutureUsage: req.SetupFutureUsage,
		Metadata:         db.Metadata(nil),
		CreatedAt:        now,
		ModifiedAt:       now,
	}

	attempt := db.PaymentAttempt{
		MerchantID:        merchant.MerchantID,
		AttemptID:         intent.ActiveAttemptID,
		PaymentID:         vr.BusinessID,
		TxnID:             uuid.NewString(),
		Status:            db.AttemptStatusPending,
		Currency:          req.Currency,
		Connector:         connectorName,
		PaymentMethod:     req.PaymentMethod,
		PaymentMethodType: req.PaymentMethodType,
		PaymentToken:      req.PaymentToken,
		Confirm:           true,
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
		return nil, nil, verificationFailed(StageGetTrackers, err)
	}

	data.Connector = connectorName
	data.Confirm = true
	data.MandateType = vr.MandateType
	data.requirePaymentMethod = true
	data.requestedPaymentMethod = requestedPaymentMethod(req.PaymentMethod, req.PaymentMethodType, req.PaymentToken, req.PaymentMethodData)
	data.update = &PaymentsRequest{ReturnURL: req.ReturnURL}

	return data, customerDetails(req.CustomerID, req.Customer), nil
}

func (o *PaymentMethodValidate) UpdateTrackers(ctx context.Context, state *State, _ *ValidateResult, data *PaymentData, customer *db.Customer, _ *db.MerchantAccount) (*PaymentData, error) {
	var customerID string
	if customer != nil {
		customerID = customer.CustomerID
	}

	err := updateIntent(ctx, state, data, db.PaymentIntentReturnURLUpdate{
		ReturnURL:  data.update.ReturnURL,
		Status:     db.IntentStatusProcessing,
		CustomerID: customerID,
	})
	if err != nil {
		return nil, verificationFailed(StageUpdateTrackers, err)
	}

	data.CallConnector = connector.ActionAuthorize
	return data, nil
}

func verificationFailed(stage string, err error) error {
	return &FlowError{Flow: FlowVerify, Stage: stage, Code: VerificationFailedCode, Err: err}
}
