package operations

import (
	"context"
	"errors"
	"time"

	"go.lumeweb.com/portal-plugin-payments/internal/config"
	"go.lumeweb.com/portal-plugin-payments/internal/core"
	"go.lumeweb.com/portal-plugin-payments/internal/db"
	"go.lumeweb.com/portal-plugin-payments/internal/metrics"
	"go.lumeweb.com/portal-plugin-payments/internal/storage"
	"go.uber.org/zap"
)

// State is shared by every run. It holds handles only; runs never mutate it.
type State struct {
	Store            storage.Interface
	Config           config.PaymentsConfig
	DefaultConnector string
	Metrics          *metrics.Metrics
	Logger           *zap.Logger
}

// Operation is one flow variant. Run calls the stages in this order and stops at the first error.
type Operation[Req any, D any] interface {
	Flow() Flow

	// ValidateRequest checks the request against the authenticated merchant. It never touches storage.
	ValidateRequest(ctx context.Context, req *Req, merchant *db.MerchantAccount) (*ValidateResult, error)

	// GetTrackers resolves or creates the records the flow works on.
	GetTrackers(ctx context.Context, state *State, vr *ValidateResult, merchant *db.MerchantAccount, connectorName string, req *Req) (*D, *CustomerDetails, error)

	// Domain resolves the customer and payment method of the run.
	Domain(ctx context.Context, state *State, data *D, customer *CustomerDetails, merchant *db.MerchantAccount) (*db.Customer, error)

	// UpdateTrackers persists the status changes of the run, one named changeset per entity.
	UpdateTrackers(ctx context.Context, state *State, vr *ValidateResult, data *D, customer *db.Customer, merchant *db.MerchantAccount) (*D, error)
}

// Run drives op through its four stages for req.
func Run[Req any, D any](ctx context.Context, state *State, op Operation[Req, D], req *Req, merchant *db.MerchantAccount) (data *D, err error) {
	flow := op.Flow()
	started := time.Now()
	logger := state.Logger.With(zap.String("flow", string(flow)), zap.String("merchant_id", merchant.MerchantID))

	defer func() {
		result := "ok"
		if err != nil {
			result = core.KindName(err)
		}
		if state.Metrics != nil {
			state.Metrics.ObserveOperation(string(flow), result, started)
		}
		if err != nil {
			logger.Info("operation failed", zap.String("result", result), zap.Duration("elapsed", time.Since(started)), zap.Error(err))
			return
		}
		logger.Info("operation finished", zap.Duration("elapsed", time.Since(started)))
	}()

	vr, err := op.ValidateRequest(ctx, req, merchant)
	if err != nil {
		return nil, err
	}
	if vr.StorageScheme == "" {
		vr.StorageScheme = merchant.StorageScheme
	}

	logger = logger.With(zap.String("business_id", vr.BusinessID))
	logger.Debug("operation started", zap.String("storage_scheme", string(vr.StorageScheme)))

	connectorName := selectConnector(state, vr.RequestedConnector, merchant)

	data, customerDetails, err := op.GetTrackers(ctx, state, vr, merchant, connectorName, req)
	if err != nil {
		return nil, wrapStage(flow, StageGetTrackers, err)
	}

	customer, err := op.Domain(ctx, state, data, customerDetails, merchant)
	if err != nil {
		return nil, wrapStage(flow, StageDomain, err)
	}

	data, err = op.UpdateTrackers(ctx, state, vr, data, customer, merchant)
	if err != nil {
		return nil, wrapStage(flow, StageUpdateTrackers, err)
	}

	return data, nil
}

func selectConnector(state *State, requested string, merchant *db.MerchantAccount) string {
	switch {
	case requested != "":
		return requested
	case merchant.DefaultConnector != "":
		return merchant.DefaultConnector
	default:
		return state.DefaultConnector
	}
}

func wrapStage(flow Flow, stage string, err error) error {
	var fe *FlowError
	if errors.As(err, &fe) {
		return err
	}
	return &FlowError{Flow: flow, Stage: stage, Code: core.KindName(err), Err: err}
}
