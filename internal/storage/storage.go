package storage

import (
	"context"
	"time"

	"go.lumeweb.com/portal-plugin-payments/internal/core"
	"go.lumeweb.com/portal-plugin-payments/internal/db"
)

var (
	// ErrNotSupported is returned by Cached calls the cache cannot answer, such as filtering.
	ErrNotSupported = &core.Error{Kind: core.ErrInternal, Message: "operation not supported by the cached storage scheme"}

	// ErrCacheUnavailable is returned by Cached calls while the cache health flag is down.
	ErrCacheUnavailable = &core.Error{Kind: core.ErrInternal, Message: "cache unavailable"}
)

// Interface is the only storage boundary the operation pipeline consumes. Calls on payment
// lifecycle entities take the merchant's storage scheme; the remaining entities are relational only.
type Interface interface {
	PaymentIntentInterface
	PaymentAttemptInterface
	ConnectorResponseInterface
	RefundInterface
	CustomerInterface
	PaymentMethodInterface
	MerchantAccountInterface
}

type PaymentIntentInterface interface {
	// InsertPaymentIntent fails with core.ErrDuplicateRecord when the payment id is taken.
	InsertPaymentIntent(ctx context.Context, intent db.PaymentIntent, scheme db.StorageScheme) (*db.PaymentIntent, error)
	// UpdatePaymentIntent writes the row produced by applying update to this.
	UpdatePaymentIntent(ctx context.Context, this db.PaymentIntent, update db.PaymentIntentUpdate, scheme db.StorageScheme) (*db.PaymentIntent, error)
	FindPaymentIntentByPaymentIDMerchantID(ctx context.Context, paymentID, merchantID string, scheme db.StorageScheme) (*db.PaymentIntent, error)
	// FilterPaymentIntentsByConstraints returns ErrNotSupported under the Cached scheme.
	FilterPaymentIntentsByConstraints(ctx context.Context, merchantID string, constraints PaymentIntentConstraints, scheme db.StorageScheme) ([]db.PaymentIntent, error)
}

type PaymentAttemptInterface interface {
	InsertPaymentAttempt(ctx context.Context, attempt db.PaymentAttempt, scheme db.StorageScheme) (*db.PaymentAttempt, error)
	UpdatePaymentAttempt(ctx context.Context, this db.PaymentAttempt, update db.PaymentAttemptUpdate, scheme db.StorageScheme) (*db.PaymentAttempt, error)
	FindPaymentAttemptByAttemptIDMerchantID(ctx context.Context, attemptID, merchantID string, scheme db.StorageScheme) (*db.PaymentAttempt, error)
	FindPaymentAttemptsByPaymentIDMerchantID(ctx context.Context, paymentID, merchantID string, scheme db.StorageScheme) ([]db.PaymentAttempt, error)
}

type ConnectorResponseInterface interface {
	InsertConnectorResponse(ctx context.Context, response db.ConnectorResponse, scheme db.StorageScheme) (*db.ConnectorResponse, error)
	UpdateConnectorResponse(ctx context.Context, this db.ConnectorResponse, update db.ConnectorResponseUpdate, scheme db.StorageScheme) (*db.ConnectorResponse, error)
	FindConnectorResponseByAttemptIDMerchantID(ctx context.Context, attemptID, merchantID string, scheme db.StorageScheme) (*db.ConnectorResponse, error)
}

type RefundInterface interface {
	InsertRefund(ctx context.Context, refund db.Refund, scheme db.StorageScheme) (*db.Refund, error)
	UpdateRefund(ctx context.Context, this db.Refund, update db.RefundUpdate, scheme db.StorageScheme) (*db.Refund, error)
	FindRefundByMerchantIDRefundID(ctx context.Context, merchantID, refundID string, scheme db.StorageScheme) (*db.Refund, error)
	FindRefundsByMerchantIDPaymentID(ctx context.Context, merchantID, paymentID string, scheme db.StorageScheme) ([]db.Refund, error)
	FilterRefundsByConstraints(ctx context.Context, merchantID string, constraints RefundConstraints, scheme db.StorageScheme) ([]db.Refund, error)
}

type CustomerInterface interface {
	InsertCustomer(ctx context.Context, customer db.Customer) (*db.Customer, error)
	FindCustomerByCustomerIDMerchantID(ctx context.Context, customerID, merchantID string) (*db.Customer, error)
	UpdateCustomer(ctx context.Context, this db.Customer, update db.CustomerUpdate) (*db.Customer, error)
	RedactCustomer(ctx context.Context, this db.Customer) (*db.Customer, error)
}

type PaymentMethodInterface interface {
	InsertPaymentMethod(ctx context.Context, pm db.PaymentMethod) (*db.PaymentMethod, error)
	FindPaymentMethodByToken(ctx context.Context, merchantID, token string) (*db.PaymentMethod, error)
}

type MerchantAccountInterface interface {
	InsertMerchantAccount(ctx context.Context, account db.MerchantAccount) (*db.MerchantAccount, error)
	FindMerchantAccountByMerchantID(ctx context.Context, merchantID string) (*db.MerchantAccount, error)
	FindMerchantAccountByAPIKey(ctx context.Context, apiKey string) (*db.MerchantAccount, error)
	UpdateMerchantAccount(ctx context.Context, this db.MerchantAccount, update db.MerchantAccountStorageSchemeUpdate) (*db.MerchantAccount, error)
}

type PaymentIntentConstraints struct {
	CustomerID    string
	Status        []db.IntentStatus
	CreatedAfter  time.Time
	CreatedBefore time.Time
	Limit         int
	Offset        int
}

type RefundConstraints struct {
	PaymentID string
	Status    []db.RefundStatus
	Limit     int
	Offset    int
}

const defaultListLimit = 100

func limitOrDefault(limit int) int {
	if limit <= 0 || limit > defaultListLimit {
		return defaultListLimit
	}
	return limit
}
