package storage

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.lumeweb.com/portal-plugin-payments/internal/config"
	"go.lumeweb.com/portal-plugin-payments/internal/core"
	"go.lumeweb.com/portal-plugin-payments/internal/db"
	"go.lumeweb.com/portal-plugin-payments/internal/metrics"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var _ Interface = (*Store)(nil)

// Store implements Interface over both storage schemes. Each call is routed by the scheme it is
// given; Strict goes to the relational store, Cached to redis plus the change stream.
type Store struct {
	db      *gorm.DB
	kv      *kvStore
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func New(ctx *core.Context) *Store {
	return NewStore(ctx.DB(), ctx.Redis(), ctx.CacheHealth(), ctx.Config().Drainer, ctx.Metrics(), ctx.Logger())
}

func NewStore(gdb *gorm.DB, client redis.UniversalClient, health Health, drainer config.DrainerConfig, m *metrics.Metrics, logger *zap.Logger) *Store {
	logger = logger.Named("storage")
	return &Store{
		db: gdb,
		kv: &kvStore{
			client:  client,
			health:  health,
			drainer: drainer,
			logger:  logger,
		},
		metrics: m,
		logger:  logger,
	}
}

func (s *Store) observe(table, op string, scheme db.StorageScheme, err error) {
	if s.metrics == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = core.KindName(err)
	}
	s.metrics.StorageCall(table, op, string(scheme), result)
}

func unknownScheme(scheme db.StorageScheme) error {
	return core.NewInternalError(nil, "unknown storage scheme %q", scheme)
}

func insertRow(ctx context.Context, s *Store, row db.Row, scheme db.StorageScheme) error {
	var err error
	switch scheme {
	case db.StorageSchemeCached:
		err = kvInsert(ctx, s.kv, row)
	case db.StorageSchemeStrict:
		err = sqlInsert(ctx, s.db, row.TableName(), row.BusinessRef(), row)
	default:
		err = unknownScheme(scheme)
	}
	s.observe(row.TableName(), OpInsert, scheme, err)
	return err
}

func updateRow(ctx context.Context, s *Store, changeset string, row db.Row, scheme db.StorageScheme) error {
	var err error
	switch scheme {
	case db.StorageSchemeCached:
		err = kvUpdate(ctx, s.kv, changeset, row)
	case db.StorageSchemeStrict:
		err = sqlUpdate(ctx, s.db, row.TableName(), row.BusinessRef(), row)
	default:
		err = unknownScheme(scheme)
	}
	s.observe(row.TableName(), OpUpdate, scheme, err)
	return err
}

func findRow[T any, PT rowPtr[T]](ctx context.Context, s *Store, merchantID, businessID string, scheme db.StorageScheme) (PT, error) {
	var (
		row PT
		err error
	)
	switch scheme {
	case db.StorageSchemeCached:
		row, err = kvFind[T, PT](ctx, s.kv, merchantID, businessID)
	case db.StorageSchemeStrict:
		row, err = sqlFind[T, PT](ctx, s.db, merchantID, businessID)
	default:
		err = unknownScheme(scheme)
	}
	s.observe(PT(new(T)).TableName(), "find", scheme, err)
	return row, err
}

func (s *Store) InsertPaymentIntent(ctx context.Context, intent db.PaymentIntent, scheme db.StorageScheme) (*db.PaymentIntent, error) {
	intent.Metadata = db.Metadata(intent.Metadata)
	if err := insertRow(ctx, s, &intent, scheme); err != nil {
		return nil, err
	}
	return &intent, nil
}

func (s *Store) UpdatePaymentIntent(ctx context.Context, this db.PaymentIntent, update db.PaymentIntentUpdate, scheme db.StorageScheme) (*db.PaymentIntent, error) {
	next := db.ApplyPaymentIntentUpdate(this, update, db.Now())
	if err := updateRow(ctx, s, update.Name(), &next, scheme); err != nil {
		return nil, err
	}
	return &next, nil
}

func (s *Store) FindPaymentIntentByPaymentIDMerchantID(ctx context.Context, paymentID, merchantID string, scheme db.StorageScheme) (*db.PaymentIntent, error) {
	return findRow[db.PaymentIntent](ctx, s, merchantID, paymentID, scheme)
}

func (s *Store) FilterPaymentIntentsByConstraints(ctx context.Context, merchantID string, constraints PaymentIntentConstraints, scheme db.StorageScheme) ([]db.PaymentIntent, error) {
	if scheme == db.StorageSchemeCached {
		return nil, ErrNotSupported
	}
	intents, err := sqlFilterPaymentIntents(ctx, s.db, merchantID, constraints)
	s.observe(db.TablePaymentIntent, "filter", scheme, err)
	return intents, err
}

func (s *Store) InsertPaymentAttempt(ctx context.Context, attempt db.PaymentAttempt, scheme db.StorageScheme) (*db.PaymentAttempt, error) {
	if err := insertRow(ctx, s, &attempt, scheme); err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (s *Store) UpdatePaymentAttempt(ctx context.Context, this db.PaymentAttempt, update db.PaymentAttemptUpdate, scheme db.StorageScheme) (*db.PaymentAttempt, error) {
	next := db.ApplyPaymentAttemptUpdate(this, update, db.Now())
	if err := updateRow(ctx, s, update.Name(), &next, scheme); err != nil {
		return nil, err
	}
	return &next, nil
}

func (s *Store) FindPaymentAttemptByAttemptIDMerchantID(ctx context.Context, attemptID, merchantID string, scheme db.StorageScheme) (*db.PaymentAttempt, error) {
	return findRow[db.PaymentAttempt](ctx, s, merchantID, attemptID, scheme)
}

// FindPaymentAttemptsByPaymentIDMerchantID is relational only; the cache has no per-payment index
// of attempts.
func (s *Store) FindPaymentAttemptsByPaymentIDMerchantID(ctx context.Context, paymentID, merchantID string, scheme db.StorageScheme) ([]db.PaymentAttempt, error) {
	if scheme == db.StorageSchemeCached {
		return nil, ErrNotSupported
	}
	attempts, err := sqlFindByPayment[db.PaymentAttempt](ctx, s.db, merchantID, paymentID)
	s.observe(db.TablePaymentAttempt, "list", scheme, err)
	return attempts, err
}

func (s *Store) InsertConnectorResponse(ctx context.Context, response db.ConnectorResponse, scheme db.StorageScheme) (*db.ConnectorResponse, error) {
	if err := insertRow(ctx, s, &response, scheme); err != nil {
		return nil, err
	}
	return &response, nil
}

func (s *Store) UpdateConnectorResponse(ctx context.Context, this db.ConnectorResponse, update db.ConnectorResponseUpdate, scheme db.StorageScheme) (*db.ConnectorResponse, error) {
	next := db.ApplyConnectorResponseUpdate(this, update, db.Now())
	if err := updateRow(ctx, s, update.Name(), &next, scheme); err != nil {
		return nil, err
	}
	return &next, nil
}

func (s *Store) FindConnectorResponseByAttemptIDMerchantID(ctx context.Context, attemptID, merchantID string, scheme db.StorageScheme) (*db.ConnectorResponse, error) {
	return findRow[db.ConnectorResponse](ctx, s, merchantID, attemptID, scheme)
}

func (s *Store) InsertRefund(ctx context.Context, refund db.Refund, scheme db.StorageScheme) (*db.Refund, error) {
	refund.Metadata = db.Metadata(refund.Metadata)
	if err := insertRow(ctx, s, &refund, scheme); err != nil {
		return nil, err
	}
	return &refund, nil
}

func (s *Store) UpdateRefund(ctx context.Context, this db.Refund, update db.RefundUpdate, scheme db.StorageScheme) (*db.Refund, error) {
	next := db.ApplyRefundUpdate(this, update, db.Now())
	if err := updateRow(ctx, s, update.Name(), &next, scheme); err != nil {
		return nil, err
	}
	return &next, nil
}

func (s *Store) FindRefundByMerchantIDRefundID(ctx context.Context, merchantID, refundID string, scheme db.StorageScheme) (*db.Refund, error) {
	return findRow[db.Refund](ctx, s, merchantID, refundID, scheme)
}

func (s *Store) FindRefundsByMerchantIDPaymentID(ctx context.Context, merchantID, paymentID string, scheme db.StorageScheme) ([]db.Refund, error) {
	var (
		refunds []db.Refund
		err     error
	)
	switch scheme {
	case db.StorageSchemeCached:
		refunds, err = kvFindRefundsByPayment(ctx, s.kv, merchantID, paymentID)
	case db.StorageSchemeStrict:
		refunds, err = sqlFindByPayment[db.Refund](ctx, s.db, merchantID, paymentID)
	default:
		err = unknownScheme(scheme)
	}
	s.observe(db.TableRefund, "list", scheme, err)
	return refunds, err
}

func (s *Store) FilterRefundsByConstraints(ctx context.Context, merchantID string, constraints RefundConstraints, scheme db.StorageScheme) ([]db.Refund, error) {
	if scheme == db.StorageSchemeCached {
		return nil, ErrNotSupported
	}
	refunds, err := sqlFilterRefunds(ctx, s.db, merchantID, constraints)
	s.observe(db.TableRefund, "filter", scheme, err)
	return refunds, err
}

func (s *Store) InsertCustomer(ctx context.Context, customer db.Customer) (*db.Customer, error) {
	customer.Metadata = db.Metadata(customer.Metadata)
	if err := sqlInsert(ctx, s.db, customer.TableName(), customer.CustomerID, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

func (s *Store) FindCustomerByCustomerIDMerchantID(ctx context.Context, customerID, merchantID string) (*db.Customer, error) {
	var customer db.Customer
	err := s.db.WithContext(ctx).
		Where(&db.Customer{MerchantID: merchantID, CustomerID: customerID}).
		First(&customer).Error
	if err != nil {
		return nil, translateSQLError(err, customer.TableName(), customerID)
	}
	return &customer, nil
}

func (s *Store) UpdateCustomer(ctx context.Context, this db.Customer, update db.CustomerUpdate) (*db.Customer, error) {
	next := db.ApplyCustomerUpdate(this, update, db.Now())
	if err := sqlUpdate(ctx, s.db, next.TableName(), next.CustomerID, &next); err != nil {
		return nil, err
	}
	return &next, nil
}

func (s *Store) RedactCustomer(ctx context.Context, this db.Customer) (*db.Customer, error) {
	next := db.RedactCustomer(this, db.Now())
	if err := sqlUpdate(ctx, s.db, next.TableName(), next.CustomerID, &next); err != nil {
		return nil, err
	}
	return &next, nil
}

func (s *Store) InsertPaymentMethod(ctx context.Context, pm db.PaymentMethod) (*db.PaymentMethod, error) {
	pm.Data = db.Metadata(pm.Data)
	if err := sqlInsert(ctx, s.db, pm.TableName(), pm.PaymentMethodID, &pm); err != nil {
		return nil, err
	}
	return &pm, nil
}

func (s *Store) FindPaymentMethodByToken(ctx context.Context, merchantID, token string) (*db.PaymentMethod, error) {
	var pm db.PaymentMethod
	err := s.db.WithContext(ctx).
		Where(&db.PaymentMethod{MerchantID: merchantID, Token: token}).
		First(&pm).Error
	if err != nil {
		return nil, translateSQLError(err, pm.TableName(), token)
	}
	return &pm, nil
}

func (s *Store) InsertMerchantAccount(ctx context.Context, account db.MerchantAccount) (*db.MerchantAccount, error) {
	if !account.StorageScheme.Valid() {
		return nil, core.NewValidationError("invalid storage scheme %q", account.StorageScheme)
	}
	if err := sqlInsert(ctx, s.db, account.TableName(), account.MerchantID, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

func (s *Store) FindMerchantAccountByMerchantID(ctx context.Context, merchantID string) (*db.MerchantAccount, error) {
	var account db.MerchantAccount
	err := s.db.WithContext(ctx).Where(&db.MerchantAccount{MerchantID: merchantID}).First(&account).Error
	if err != nil {
		return nil, translateSQLError(err, account.TableName(), merchantID)
	}
	return &account, nil
}

func (s *Store) FindMerchantAccountByAPIKey(ctx context.Context, apiKey string) (*db.MerchantAccount, error) {
	var account db.MerchantAccount
	err := s.db.WithContext(ctx).Where(&db.MerchantAccount{APIKeyHash: db.HashAPIKey(apiKey)}).First(&account).Error
	if err != nil {
		return nil, translateSQLError(err, account.TableName(), "by api key")
	}
	return &account, nil
}

func (s *Store) UpdateMerchantAccount(ctx context.Context, this db.MerchantAccount, update db.MerchantAccountStorageSchemeUpdate) (*db.MerchantAccount, error) {
	if !update.StorageScheme.Valid() {
		return nil, core.NewValidationError("invalid storage scheme %q", update.StorageScheme)
	}
	next := db.ApplyMerchantAccountStorageSchemeUpdate(this, update, db.Now())
	if err := sqlUpdate(ctx, s.db, next.TableName(), next.MerchantID, &next); err != nil {
		return nil, fmt.Errorf("update merchant account: %w", err)
	}
	return &next, nil
}
