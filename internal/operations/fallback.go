package operations

import (
	"context"

	"github.com/google/uuid"
	"go.lumeweb.com/portal-plugin-payments/internal/client/connector"
	"go.lumeweb.com/portal-plugin-payments/internal/db"
)

// CreateFallbackAttempt retires the declined active attempt and moves the payment to a new attempt
// on connectorName. The intent keeps its status; only its active attempt changes.
func CreateFallbackAttempt(ctx context.Context, state *State, data *PaymentData, declined *connector.Outcome, connectorName string) error {
	err := updateAttempt(ctx, state, data, db.PaymentAttemptResponseUpdate{
		Status:                 db.AttemptStatusFailure,
		ConnectorTransactionID: declined.ConnectorTransactionID,
		ErrorCode:              declined.ErrorCode,
		ErrorMessage:           declined.ErrorMessage,
		LastSynced:             db.Now(),
	})
	if err != nil {
		return err
	}

	now := db.Now()
	count := data.Intent.AttemptCount + 1
	prior := data.Attempt

	attempt, err := state.Store.InsertPaymentAttempt(ctx, db.PaymentAttempt{
		MerchantID:        prior.MerchantID,
		AttemptID:         attemptID(prior.PaymentID, count),
		PaymentID:         prior.PaymentID,
		TxnID:             uuid.NewString(),
		Status:            db.AttemptStatusPending,
		Amount:            prior.Amount,
		Currency:          prior.Currency,
		Connector:         connectorName,
		PaymentMethod:     prior.PaymentMethod,
		PaymentMethodType: prior.PaymentMethodType,
		PaymentToken:      prior.PaymentToken,
		Confirm:           true,
		MandateID:         prior.MandateID,
		CreatedAt:         now,
		ModifiedAt:        now,
	}, data.StorageScheme)
	if err != nil {
		return err
	}

	response, err := state.Store.InsertConnectorResponse(ctx, db.ConnectorResponse{
		MerchantID:    attempt.MerchantID,
		AttemptID:     attempt.AttemptID,
		PaymentID:     attempt.PaymentID,
		ConnectorName: connectorName,
		CreatedAt:     now,
		ModifiedAt:    now,
	}, data.StorageScheme)
	if err != nil {
		return &PartialWriteError{Committed: []string{db.TablePaymentAttempt}, Failed: db.TableConnectorResponse, Err: err}
	}

	data.Attempt = *attempt
	data.ConnectorResponse = response
	data.Connector = connectorName

	return updateIntent(ctx, state, data, db.PaymentIntentAttemptUpdate{
		ActiveAttemptID: attempt.AttemptID,
		AttemptCount:    count,
		ConnectorID:     connectorName,
	})
}
