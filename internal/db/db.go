package db

import (
	"time"

	"gorm.io/datatypes"
)

// Row is implemented by every entity that can live in the cache and travel through the drainer
// stream. The payment reference decides the stream shard so all rows of one payment stay ordered.
type Row interface {
	TableName() string
	MerchantRef() string
	BusinessRef() string
	PaymentRef() string
}

// Now is the timestamp used for every created_at/modified_at. Microsecond precision survives a
// round trip through any of the supported SQL drivers unchanged.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// Metadata returns m, or an empty map so that cached and relational rows encode the same way.
func Metadata(m map[string]any) datatypes.JSONMap {
	if m == nil {
		return datatypes.JSONMap{}
	}
	return datatypes.JSONMap(m)
}

// NewRow returns a pointer to an empty row for a stream table, used when replaying entries.
func NewRow(table string) (Row, bool) {
	switch table {
	case TablePaymentIntent:
		return &PaymentIntent{}, true
	case TablePaymentAttempt:
		return &PaymentAttempt{}, true
	case TableConnectorResponse:
		return &ConnectorResponse{}, true
	case TableRefund:
		return &Refund{}, true
	default:
		return nil, false
	}
}

// PrimaryKeyColumns lists the conflict target used when replaying a stream entry.
func PrimaryKeyColumns(table string) []string {
	switch table {
	case TablePaymentIntent:
		return []string{"merchant_id", "payment_id"}
	case TablePaymentAttempt, TableConnectorResponse:
		return []string{"merchant_id", "attempt_id"}
	case TableRefund:
		return []string{"merchant_id", "refund_id"}
	default:
		return nil
	}
}

// Models lists every table managed by AutoMigrate.
func Models() []any {
	return []any{
		&MerchantAccount{},
		&Customer{},
		&PaymentMethod{},
		&PaymentIntent{},
		&PaymentAttempt{},
		&ConnectorResponse{},
		&Refund{},
	}
}
