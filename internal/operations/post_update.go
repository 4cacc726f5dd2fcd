package operations

import (
	"context"
	"fmt"

	"go.lumeweb.com/portal-plugin-payments/internal/client/connector"
	"go.lumeweb.com/portal-plugin-payments/internal/core"
	"go.lumeweb.com/portal-plugin-payments/internal/db"
)

// ConnectorRequest builds the connector call for the action a payment run asked for.
func ConnectorRequest(data *PaymentData) *connector.Request {
	req := &connector.Request{
		MerchantID:             data.Intent.MerchantID,
		PaymentID:              data.Intent.PaymentID,
		AttemptID:              data.Attempt.AttemptID,
		Amount:                 data.Attempt.Amount,
		Currency:               data.Attempt.Currency,
		CaptureMethod:          data.Intent.CaptureMethod,
		ConnectorTransactionID: data.Attempt.ConnectorTransactionID,
		PaymentMethod:          data.Attempt.PaymentMethod,
		PaymentMethodType:      data.Attempt.PaymentMethodType,
		PaymentToken:           data.Attempt.PaymentToken,
		CustomerID:             data.Intent.CustomerID,
		CancellationReason:     data.Attempt.CancellationReason,
		OffSession:             data.Intent.OffSession,
	}

	if data.CallConnector == connector.ActionCapture {
		req.Amount = data.Attempt.AmountToCapture
	}
	if data.PaymentMethod != nil {
		req.PaymentMethodData = data.PaymentMethod.Data
	}

	return req
}

// RefundConnectorRequest builds the connector call for a refund run.
func RefundConnectorRequest(data *RefundData) *connector.Request {
	return &connector.Request{
		MerchantID:             data.Refund.MerchantID,
		PaymentID:              data.Refund.PaymentID,
		AttemptID:              data.Refund.AttemptID,
		RefundID:               data.Refund.RefundID,
		Amount:                 data.Refund.RefundAmount,
		Currency:               data.Refund.Currency,
		ConnectorTransactionID: data.Refund.ConnectorTransactionID,
		ConnectorRefundID:      data.Refund.ConnectorRefundID,
		Reason:                 data.Refund.Reason,
	}
}

// ApplyPaymentOutcome records a connector answer on the attempt, its intent and its connector
// response, in that order.
func ApplyPaymentOutcome(ctx context.Context, state *State, data *PaymentData, outcome *connector.Outcome) error {
	now := db.Now()

	status := outcome.AttemptStatus
	if status == "" {
		status = data.Attempt.Status
	}

	err := updateAttempt(ctx, state, data, db.PaymentAttemptResponseUpdate{
		Status:                 status,
		ConnectorTransactionID: outcome.ConnectorTransactionID,
		ErrorCode:              outcome.ErrorCode,
		ErrorMessage:           outcome.ErrorMessage,
		LastSynced:             now,
	})
	if err != nil {
		return err
	}

	var captured int64
	if status == db.AttemptStatusCharged {
		captured = capturedAmount(data, outcome)
	}

	err = updateIntent(ctx, state, data, db.PaymentIntentResponseUpdate{
		Status:         db.AttemptToIntentStatus(status),
		AmountCaptured: captured,
		LastSynced:     now,
	})
	if err != nil {
		return err
	}

	if data.ConnectorResponse == nil {
		return nil
	}

	response, err := state.Store.UpdateConnectorResponse(ctx, *data.ConnectorResponse, db.ConnectorResponseResponseUpdate{
		ConnectorName:          data.Attempt.Connector,
		ConnectorTransactionID: outcome.ConnectorTransactionID,
		AuthenticationData:     outcome.AuthenticationData,
		EncodedData:            outcome.EncodedData,
	}, data.StorageScheme)
	if err != nil {
		return fmt.Errorf("update connector response: %w", err)
	}
	data.ConnectorResponse = response

	return nil
}

func capturedAmount(data *PaymentData, outcome *connector.Outcome) int64 {
	switch {
	case outcome.AmountCaptured > 0:
		return outcome.AmountCaptured
	case data.Attempt.AmountToCapture > 0:
		return data.Attempt.AmountToCapture
	default:
		return data.Attempt.Amount
	}
}

// ApplyPaymentError fails the attempt and its intent after a connector error on authorization.
// Errors of other actions leave the trackers as they are so a later sync can settle them.
func ApplyPaymentError(ctx context.Context, state *State, data *PaymentData, cause error) error {
	if data.CallConnector != connector.ActionAuthorize {
		return nil
	}

	err := updateAttempt(ctx, state, data, db.PaymentAttemptErrorUpdate{
		Status:       db.AttemptStatusFailure,
		ErrorCode:    core.KindName(cause),
		ErrorMessage: cause.Error(),
	})
	if err != nil {
		return err
	}

	return updateIntent(ctx, state, data, db.PaymentIntentStatusUpdate{Status: db.IntentStatusFailed})
}

// ApplyRefundOutcome records a connector answer on the refund.
func ApplyRefundOutcome(ctx context.Context, state *State, data *RefundData, outcome *connector.Outcome) error {
	status := outcome.RefundStatus
	if status == "" {
		status = data.Refund.Status
	}

	var update db.RefundUpdate = db.RefundStatusUpdate{
		Status:            status,
		ConnectorRefundID: outcome.ConnectorRefundID,
	}
	if status == db.RefundStatusFailed {
		update = db.RefundErrorUpdate{
			Status:       status,
			ErrorCode:    outcome.ErrorCode,
			ErrorMessage: outcome.ErrorMessage,
		}
	}

	return updateRefund(ctx, state, data, update)
}

// ApplyRefundError fails a refund the connector could not process.
func ApplyRefundError(ctx context.Context, state *State, data *RefundData, cause error) error {
	if data.CallConnector != connector.ActionRefund {
		return nil
	}

	return updateRefund(ctx, state, data, db.RefundErrorUpdate{
		Status:       db.RefundStatusFailed,
		ErrorCode:    core.KindName(cause),
		ErrorMessage: cause.Error(),
	})
}
