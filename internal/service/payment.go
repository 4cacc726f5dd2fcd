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

const PAYMENT_SERVICE = "payment"

var _ PaymentService = (*PaymentServiceDefault)(nil)

type PaymentService interface {
	CreatePayment(ctx context.Context, merchant *db.MerchantAccount, req *operations.PaymentsRequest) (*operations.PaymentData, error)
	UpdatePayment(ctx context.Context, merchant *db.MerchantAccount, req *operations.PaymentsRequest) (*operations.PaymentData, error)
	ConfirmPayment(ctx context.Context, merchant *db.MerchantAccount, req *operations.PaymentsRequest) (*operations.PaymentData, error)
	CapturePayment(ctx context.Context, merchant *db.MerchantAccount, req *operations.PaymentsCaptureRequest) (*operations.PaymentData, error)
	CancelPayment(ctx context.Context, merchant *db.MerchantAccount, req *operations.PaymentsCancelRequest) (*operations.PaymentData, error)
	RetrievePayment(ctx context.Context, merchant *db.MerchantAccount, req *operations.PaymentsRetrieveRequest) (*operations.PaymentData, error)
	ListPayments(ctx context.Context, merchant *db.MerchantAccount, constraints storage.PaymentIntentConstraints) ([]db.PaymentIntent, error)
	VerifyPaymentMethod(ctx context.Context, merchant *db.MerchantAccount, req *operations.VerifyRequest) (*operations.PaymentData, error)
}

// PaymentServiceDefault runs payment flows and dispatches the connector call each flow asks for.
type PaymentServiceDefault struct {
	state      *operations.State
	connectors *connector.Registry
	publisher  events.Publisher
	idLength   int
	logger     *zap.Logger
}

func NewPaymentService(ctx *core.Context, store storage.Interface, connectors *connector.Registry) *PaymentServiceDefault {
	logger := ctx.Logger().Named("payments")
	return &PaymentServiceDefault{
		state:      newState(ctx, store, connectors, logger),
		connectors: connectors,
		publisher:  ctx.Publisher(),
		idLength:   ctx.Config().Payments.IDLength,
		logger:     logger,
	}
}

func newState(ctx *core.Context, store storage.Interface, connectors *connector.Registry, logger *zap.Logger) *operations.State {
	return &operations.State{
		Store:            store,
		Config:           ctx.Config().Payments,
		DefaultConnector: connectors.Default(),
		Metrics:          ctx.Metrics(),
		Logger:           logger,
	}
}

func (p *PaymentServiceDefault) CreatePayment(ctx context.Context, merchant *db.MerchantAccount, req *operations.PaymentsRequest) (*operations.PaymentData, error) {
	if err := p.checkConnector(req.Connector); err != nil {
		return nil, err
	}

	data, err := operations.Run[operations.PaymentsRequest, operations.PaymentData](ctx, p.state, &operations.PaymentCreate{IDLength: p.idLength}, req, merchant)
	if err != nil {
		return nil, err
	}

	return p.finish(ctx, operations.FlowCreate, data)
}

func (p *PaymentServiceDefault) UpdatePayment(ctx context.Context, merchant *db.MerchantAccount, req *operations.PaymentsRequest) (*operations.PaymentData, error) {
	data, err := operations.Run[operations.PaymentsRequest, operations.PaymentData](ctx, p.state, &operations.PaymentUpdate{}, req, merchant)
	if err != nil {
		return nil, err
	}

	return p.finish(ctx, operations.FlowUpdate, data)
}

func (p *PaymentServiceDefault) ConfirmPayment(ctx context.Context, merchant *db.MerchantAccount, req *operations.PaymentsRequest) (*operations.PaymentData, error) {
	if err := p.checkConnector(req.Connector); err != nil {
		return nil, err
	}

	data, err := operations.Run[operations.PaymentsRequest, operations.PaymentData](ctx, p.state, &operations.PaymentConfirm{}, req, merchant)
	if err != nil {
		return nil, err
	}

	return p.finish(ctx, operations.FlowConfirm, data)
}

func (p *PaymentServiceDefault) CapturePayment(ctx context.Context, merchant *db.MerchantAccount, req *operations.PaymentsCaptureRequest) (*operations.PaymentData, error) {
	data, err := operations.Run[operations.PaymentsCaptureRequest, operations.PaymentData](ctx, p.state, &operations.PaymentCapture{}, req, merchant)
	if err != nil {
		return nil, err
	}

	return p.finish(ctx, operations.FlowCapture, data)
}

func (p *PaymentServiceDefault) CancelPayment(ctx context.Context, merchant *db.MerchantAccount, req *operations.PaymentsCancelRequest) (*operations.PaymentData, error) {
	data, err := operations.Run[operations.PaymentsCancelRequest, operations.PaymentData](ctx, p.state, &operations.PaymentCancel{}, req, merchant)
	if err != nil {
		return nil, err
	}

	return p.finish(ctx, operations.FlowCancel, data)
}

func (p *PaymentServiceDefault) RetrievePayment(ctx context.Context, merchant *db.MerchantAccount, req *operations.PaymentsRetrieveRequest) (*operations.PaymentData, error) {
	data, err := operations.Run[operations.PaymentsRetrieveRequest, operations.PaymentData](ctx, p.state, &operations.PaymentStatus{}, req, merchant)
	if err != nil {
		return nil, err
	}

	if data.CallConnector == "" {
		return data, nil
	}

	return p.finish(ctx, operations.FlowSync, data)
}

func (p *PaymentServiceDefault) ListPayments(ctx context.Context, merchant *db.MerchantAccount, constraints storage.PaymentIntentConstraints) ([]db.PaymentIntent, error) {
	return p.state.Store.FilterPaymentIntentsByConstraints(ctx, merchant.MerchantID, constraints, merchant.StorageScheme)
}

func (p *PaymentServiceDefault) VerifyPaymentMethod(ctx context.Context, merchant *db.MerchantAccount, req *operations.VerifyRequest) (*operations.PaymentData, error) {
	if err := p.checkConnector(req.Connector); err != nil {
		return nil, err
	}

	data, err := operations.Run[operations.VerifyRequest, operations.PaymentData](ctx, p.state, &operations.PaymentMethodValidate{IDLength: p.idLength}, req, merchant)
	if err != nil {
		return nil, err
	}

	return p.finish(ctx, operations.FlowVerify, data)
}

func (p *PaymentServiceDefault) checkConnector(name string) error {
	if name == "" {
		return nil
	}
	_, err := p.connectors.Get(name)
	return err
}

// finish dispatches the pending connector action of a run and publishes the result.
func (p *PaymentServiceDefault) finish(ctx context.Context, flow operations.Flow, data *operations.PaymentData) (*operations.PaymentData, error) {
	if err := p.dispatch(ctx, data); err != nil {
		return nil, err
	}

	events.PublishBestEffort(ctx, p.publisher, p.logger, events.Event{
		Type:       events.TypePaymentUpdated,
		Flow:       string(flow),
		MerchantID: data.Intent.MerchantID,
		PaymentID:  data.Intent.PaymentID,
		Data:       data.Intent,
		Extra: map[string]any{
			"attempt_id":     data.Attempt.AttemptID,
			"attempt_status": data.Attempt.Status,
		},
		CreatedAt: db.Now(),
	})

	return data, nil
}

// dispatch submits the action a run asked for. A declined authorization moves to the next
// configured fallback connector until one answers or none is left.
func (p *PaymentServiceDefault) dispatch(ctx context.Context, data *operations.PaymentData) error {
	if data.CallConnector == "" {
		return nil
	}

	tried := []string{data.Connector}
	for {
		conn, err := p.connectors.Get(data.Connector)
		if err != nil {
			return err
		}

		outcome, err := conn.Submit(ctx, data.CallConnector, operations.ConnectorRequest(data))
		if err != nil {
			p.logger.Warn("connector call failed",
				zap.String("payment_id", data.Intent.PaymentID),
				zap.String("connector", data.Connector),
				zap.String("action", string(data.CallConnector)),
				zap.Error(err))

			if applyErr := operations.ApplyPaymentError(ctx, p.state, data, err); applyErr != nil {
				p.logger.Error("failed to record connector error",
					zap.String("payment_id", data.Intent.PaymentID),
					zap.Error(applyErr))
			}
			return err
		}

		if data.CallConnector == connector.ActionAuthorize && outcome.Declined() {
			if next, ok := p.connectors.Fallback(tried...); ok {
				p.logger.Info("connector declined, trying fallback",
					zap.String("payment_id", data.Intent.PaymentID),
					zap.String("declined_by", data.Connector),
					zap.String("fallback", next),
					zap.String("error_code", outcome.ErrorCode))

				if err := operations.CreateFallbackAttempt(ctx, p.state, data, outcome, next); err != nil {
					return err
				}
				tried = append(tried, next)
				continue
			}
		}

		return operations.ApplyPaymentOutcome(ctx, p.state, data, outcome)
	}
}
