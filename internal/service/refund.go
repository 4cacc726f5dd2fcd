package service

import (
	"context"

	"go.lumeweb.com/portal-plugin-payments/internal/client/connector"
	"go.lumeweb.com/portal-plugin-payments/internal/core"
	"go.lumeweb.com/portal-plugin-payments/internal/db"
	"go.lumeweb.com/portal-plugin-payments/internal/events"
	"go.lumeweb.com/portal-plugin-payments/internal/operations"
	"go.lumeweb.com/portal-plugin-payments/internal/storage"
	"go.uber.org/zap"
)

const REFUND_SERVICE = "refund"

var _ RefundService = (*RefundServiceDefault)(nil)

type RefundService interface {
	CreateRefund(ctx context.Context, merchant *db.MerchantAccount, req *operations.RefundRequest) (*db.Refund, error)
	RetrieveRefund(ctx context.Context, merchant *db.MerchantAccount, req *operations.RefundsRetrieveRequest) (*db.Refund, error)
	UpdateRefund(ctx context.Context, merchant *db.MerchantAccount, req *operations.RefundUpdateRequest) (*db.Refund, error)
	ListRefunds(ctx context.Context, merchant *db.MerchantAccount, constraints storage.RefundConstraints) ([]db.Refund, error)
}

type RefundServiceDefault struct {
	state      *operations.State
	connectors *connector.Registry
	publisher  events.Publisher
	idLength   int
	logger     *zap.Logger
}

func NewRefundService(ctx *core.Context, store storage.Interface, connectors *connector.Registry) *RefundServiceDefault {
	logger := ctx.Logger().Named("refunds")
	return &RefundServiceDefault{
		state:      newState(ctx, store, connectors, logger),
		connectors: connectors,
		publisher:  ctx.Publisher(),
		idLength:   ctx.Config().Payments.IDLength,
		logger:     logger,
	}
}

func (r *RefundServiceDefault) CreateRefund(ctx context.Context, merchant *db.MerchantAccount, req *operations.RefundRequest) (*db.Refund, error) {
	data, err := operations.Run[operations.RefundRequest, operations.RefundData](ctx, r.state, &operations.RefundCreate{IDLength: r.idLength}, req, merchant)
	if err != nil {
		return nil, err
	}

	return r.finish(ctx, operations.FlowRefundCreate, data)
}

func (r *RefundServiceDefault) RetrieveRefund(ctx context.Context, merchant *db.MerchantAccount, req *operations.RefundsRetrieveRequest) (*db.Refund, error) {
	data, err := operations.Run[operations.RefundsRetrieveRequest, operations.RefundData](ctx, r.state, &operations.RefundSync{}, req, merchant)
	if err != nil {
		return nil, err
	}

	if data.CallConnector == "" {
		return &data.Refund, nil
	}

	return r.finish(ctx, operations.FlowRefundSync, data)
}

func (r *RefundServiceDefault) UpdateRefund(ctx context.Context, merchant *db.MerchantAccount, req *operations.RefundUpdateRequest) (*db.Refund, error) {
	data, err := operations.Run[operations.RefundUpdateRequest, operations.RefundData](ctx, r.state, &operations.RefundUpdate{}, req, merchant)
	if err != nil {
		return nil, err
	}

	return r.finish(ctx, operations.FlowRefundUpdate, data)
}

// ListRefunds lists refunds of one payment under either scheme. Other filters need the strict
// scheme.
func (r *RefundServiceDefault) ListRefunds(ctx context.Context, merchant *db.MerchantAccount, constraints storage.RefundConstraints) ([]db.Refund, error) {
	if constraints.PaymentID != "" && len(constraints.Status) == 0 {
		return r.state.Store.FindRefundsByMerchantIDPaymentID(ctx, merchant.MerchantID, constraints.PaymentID, merchant.StorageScheme)
	}
	return r.state.Store.FilterRefundsByConstraints(ctx, merchant.MerchantID, constraints, merchant.StorageScheme)
}

func (r *RefundServiceDefault) finish(ctx context.Context, flow operations.Flow, data *operations.RefundData) (*db.Refund, error) {
	if err := r.dispatch(ctx, data); err != nil {
		return nil, err
	}

	events.PublishBestEffort(ctx, r.publisher, r.logger, events.Event{
		Type:       events.TypeRefundUpdated,
		Flow:       string(flow),
		MerchantID: data.Refund.MerchantID,
		PaymentID:  data.Refund.PaymentID,
		Data:       data.Refund,
		CreatedAt:  db.Now(),
	})

	return &data.Refund, nil
}

func (r *RefundServiceDefault) dispatch(ctx context.Context, data *operations.RefundData) error {
	if data.CallConnector == "" {
		return nil
	}

	conn, err := r.connectors.Get(data.Refund.Connector)
	if err != nil {
		return err
	}

	outcome, err := conn.Submit(ctx, data.CallConnector, operations.RefundConnectorRequest(data))
	if err != nil {
		r.logger.Warn("connector refund call failed",
			zap.String("refund_id", data.Refund.RefundID),
			zap.String("connector", data.Refund.Connector),
			zap.Error(err))

		if applyErr := operations.ApplyRefundError(ctx, r.state, data, err); applyErr != nil {
			r.logger.Error("failed to record connector error",
				zap.String("refund_id", data.Refund.RefundID),
				zap.Error(applyErr))
		}
		return err
	}

	return operations.ApplyRefundOutcome(ctx, r.state, data, outcome)
}
