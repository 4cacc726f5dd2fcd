package service

import (
	"context"
	"errors"
	"regexp"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.lumeweb.com/portal-plugin-payments/internal/core"
	"go.lumeweb.com/portal-plugin-payments/internal/db"
	"go.lumeweb.com/portal-plugin-payments/internal/events"
	"go.lumeweb.com/portal-plugin-payments/internal/operations"
	"go.lumeweb.com/portal-plugin-payments/internal/storage"
	"go.uber.org/zap"
)

const CUSTOMER_SERVICE = "customer"

var tokenPattern = regexp.MustCompile(`^tok_[A-Za-z0-9_-]{1,120}$`)

var _ CustomerService = (*CustomerServiceDefault)(nil)

type CustomerService interface {
	CreateCustomer(ctx context.Context, merchant *db.MerchantAccount, req *CustomerRequest) (*db.Customer, error)
	RetrieveCustomer(ctx context.Context, merchant *db.MerchantAccount, customerID string) (*db.Customer, error)
	UpdateCustomer(ctx context.Context, merchant *db.MerchantAccount, req *CustomerRequest) (*db.Customer, error)
	// DeleteCustomer redacts the personal fields of a customer. The row stays for the payments
	// that reference it.
	DeleteCustomer(ctx context.Context, merchant *db.MerchantAccount, customerID string) (*db.Customer, error)
	CreatePaymentMethod(ctx context.Context, merchant *db.MerchantAccount, req *PaymentMethodRequest) (*db.PaymentMethod, error)
}

type CustomerRequest struct {
	CustomerID       string
	Name             string
	Email            string
	Phone            string
	PhoneCountryCode string
	Description      string
	Metadata         map[string]any
}

type PaymentMethodRequest struct {
	CustomerID        string
	Token             string
	PaymentMethod     string
	PaymentMethodType string
	Data              map[string]any
}

type CustomerServiceDefault struct {
	store     storage.Interface
	publisher events.Publisher
	idLength  int
	logger    *zap.Logger
}

func NewCustomerService(ctx *core.Context, store storage.Interface) *CustomerServiceDefault {
	return &CustomerServiceDefault{
		store:     store,
		publisher: ctx.Publisher(),
		idLength:  ctx.Config().Payments.IDLength,
		logger:    ctx.Logger().Named("customers"),
	}
}

func (c *CustomerServiceDefault) CreateCustomer(ctx context.Context, merchant *db.MerchantAccount, req *CustomerRequest) (*db.Customer, error) {
	if req.CustomerID == "" {
		id, err := operations.GenerateID("cus", c.idLength)
		if err != nil {
			return nil, err
		}
		req.CustomerID = id
	}

	now := db.Now()
	customer, err := c.store.InsertCustomer(ctx, db.Customer{
		MerchantID:       merchant.MerchantID,
		CustomerID:       req.CustomerID,
		Name:             req.Name,
		Email:            req.Email,
		Phone:            req.Phone,
		PhoneCountryCode: req.PhoneCountryCode,
		Description:      req.Description,
		Metadata:         db.Metadata(req.Metadata),
		CreatedAt:        now,
		ModifiedAt:       now,
	})
	if err != nil {
		return nil, err
	}

	c.publish(ctx, "create", customer)
	return customer, nil
}

func (c *CustomerServiceDefault) RetrieveCustomer(ctx context.Context, merchant *db.MerchantAccount, customerID string) (*db.Customer, error) {
	return c.store.FindCustomerByCustomerIDMerchantID(ctx, customerID, merchant.MerchantID)
}

func (c *CustomerServiceDefault) UpdateCustomer(ctx context.Context, merchant *db.MerchantAccount, req *CustomerRequest) (*db.Customer, error) {
	existing, err := c.store.FindCustomerByCustomerIDMerchantID(ctx, req.CustomerID, merchant.MerchantID)
	if err != nil {
		return nil, err
	}

	customer, err := c.store.UpdateCustomer(ctx, *existing, db.CustomerUpdate{
		Name:             req.Name,
		Email:            req.Email,
		Phone:            req.Phone,
		PhoneCountryCode: req.PhoneCountryCode,
		Description:      req.Description,
		Metadata:         req.Metadata,
	})
	if err != nil {
		return nil, err
	}

	c.publish(ctx, "update", customer)
	return customer, nil
}

func (c *CustomerServiceDefault) DeleteCustomer(ctx context.Context, merchant *db.MerchantAccount, customerID string) (*db.Customer, error) {
	existing, err := c.store.FindCustomerByCustomerIDMerchantID(ctx, customerID, merchant.MerchantID)
	if err != nil {
		return nil, err
	}

	customer, err := c.store.RedactCustomer(ctx, *existing)
	if err != nil {
		return nil, err
	}

	c.publish(ctx, "delete", customer)
	return customer, nil
}

func (c *CustomerServiceDefault) CreatePaymentMethod(ctx context.Context, merchant *db.MerchantAccount, req *PaymentMethodRequest) (*db.PaymentMethod, error) {
	if req.PaymentMethod == "" {
		return nil, core.NewValidationError("payment_method is required")
	}

	if req.CustomerID != "" {
		_, err := c.store.FindCustomerByCustomerIDMerchantID(ctx, req.CustomerID, merchant.MerchantID)
		if errors.Is(err, core.ErrNotFound) {
			return nil, core.NewValidationError("customer %s does not exist", req.CustomerID)
		}
		if err != nil {
			return nil, err
		}
	}

	token := req.Token
	switch {
	case token == "":
		random, err := gonanoid.New(c.idLength)
		if err != nil {
			return nil, core.NewInternalError(err, "generate token")
		}
		token = "tok_" + random
	case !tokenPattern.MatchString(token):
		return nil, core.NewValidationError("token must look like tok_<id>")
	}

	id, err := operations.GenerateID("pm", c.idLength)
	if err != nil {
		return nil, err
	}

	return c.store.InsertPaymentMethod(ctx, db.PaymentMethod{
		MerchantID:        merchant.MerchantID,
		PaymentMethodID:   id,
		CustomerID:        req.CustomerID,
		Token:             token,
		PaymentMethod:     req.PaymentMethod,
		PaymentMethodType: req.PaymentMethodType,
		Data:              db.Metadata(req.Data),
		CreatedAt:         db.Now(),
	})
}

func (c *CustomerServiceDefault) publish(ctx context.Context, action string, customer *db.Customer) {
	events.PublishBestEffort(ctx, c.publisher, c.logger, events.Event{
		Type:       events.TypeCustomer,
		Flow:       action,
		MerchantID: customer.MerchantID,
		Data:       customer,
		Extra:      map[string]any{"customer_id": customer.CustomerID},
		CreatedAt:  db.Now(),
	})
}
