package storage

import (
	"context"
	"errors"

	"go.lumeweb.com/portal-plugin-payments/internal/core"
	"go.lumeweb.com/portal-plugin-payments/internal/db"
	"gorm.io/gorm"
)

type rowPtr[T any] interface {
	*T
	db.Row
}

func translateSQLError(err error, table, id string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return core.NewDuplicateRecordError("%s %s already exists", table, id)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return core.NewNotFoundError("%s %s not found", table, id)
	default:
		return core.NewInternalError(err, "%s %s", table, id)
	}
}

func sqlInsert(ctx context.Context, gdb *gorm.DB, table, id string, row any) error {
	err := gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(row).Error
	})
	return translateSQLError(err, table, id)
}

// sqlUpdate writes every column of next. The primary key of next selects the row; a missing row
// is NotFound rather than an insert.
func sqlUpdate(ctx context.Context, gdb *gorm.DB, table, id string, next any) error {
	err := gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(next).Select("*").Updates(next)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	return translateSQLError(err, table, id)
}

func sqlFind[T any, PT rowPtr[T]](ctx context.Context, gdb *gorm.DB, merchantID, businessID string) (PT, error) {
	row := PT(new(T))
	cols := db.PrimaryKeyColumns(row.TableName())

	err := gdb.WithContext(ctx).
		Where(map[string]any{cols[0]: merchantID, cols[1]: businessID}).
		First(row).Error
	if err != nil {
		return nil, translateSQLError(err, row.TableName(), businessID)
	}
	return row, nil
}

func sqlFindByPayment[T any, PT rowPtr[T]](ctx context.Context, gdb *gorm.DB, merchantID, paymentID string) ([]T, error) {
	var rows []T
	table := PT(new(T)).TableName()

	err := gdb.WithContext(ctx).
		Where("merchant_id = ? AND payment_id = ?", merchantID, paymentID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, translateSQLError(err, table, paymentID)
	}
	return rows, nil
}

func sqlFilterPaymentIntents(ctx context.Context, gdb *gorm.DB, merchantID string, c PaymentIntentConstraints) ([]db.PaymentIntent, error) {
	query := gdb.WithContext(ctx).Model(&db.PaymentIntent{}).Where("merchant_id = ?", merchantID)

	if c.CustomerID != "" {
		query = query.Where("customer_id = ?", c.CustomerID)
	}
	if len(c.Status) > 0 {
		query = query.Where("status IN ?", c.Status)
	}
	if !c.CreatedAfter.IsZero() {
		query = query.Where("created_at >= ?", c.CreatedAfter.UTC())
	}
	if !c.CreatedBefore.IsZero() {
		query = query.Where("created_at < ?", c.CreatedBefore.UTC())
	}

	var intents []db.PaymentIntent
	err := query.Order("created_at DESC").Limit(limitOrDefault(c.Limit)).Offset(c.Offset).Find(&intents).Error
	if err != nil {
		return nil, translateSQLError(err, db.TablePaymentIntent, merchantID)
	}
	return intents, nil
}

func sqlFilterRefunds(ctx context.Context, gdb *gorm.DB, merchantID string, c RefundConstraints) ([]db.Refund, error) {
	query := gdb.WithContext(ctx).Model(&db.Refund{}).Where("merchant_id = ?", merchantID)

	if c.PaymentID != "" {
		query = query.Where("payment_id = ?", c.PaymentID)
	}
	if len(c.Status) > 0 {
		query = query.Where("status IN ?", c.Status)
	}

	var refunds []db.Refund
	err := query.Order("created_at DESC").Limit(limitOrDefault(c.Limit)).Offset(c.Offset).Find(&refunds).Error
	if err != nil {
		return nil, translateSQLError(err, db.TableRefund, merchantID)
	}
	return refunds, nil
}
