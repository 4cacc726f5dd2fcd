package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.lumeweb.com/portal-plugin-payments/internal/db"
)

const (
	OpInsert = "insert"
	OpUpdate = "update"
)

// StreamEntry is one pending relational statement. The row is the full row after the mutation so
// the entry can be replayed without reading any other state.
type StreamEntry struct {
	Op         string
	Table      string
	Changeset  string
	MerchantID string
	BusinessID string
	PaymentID  string
	Row        json.RawMessage
	PushedAt   time.Time
}

func newStreamEntry(op, changeset string, row db.Row) (StreamEntry, error) {
	data, err := json.Marshal(row)
	if err != nil {
		return StreamEntry{}, fmt.Errorf("marshal %s row: %w", row.TableName(), err)
	}

	return StreamEntry{
		Op:         op,
		Table:      row.TableName(),
		Changeset:  changeset,
		MerchantID: row.MerchantRef(),
		BusinessID: row.BusinessRef(),
		PaymentID:  row.PaymentRef(),
		Row:        data,
		PushedAt:   time.Now().UTC(),
	}, nil
}

// Values returns the entry as XADD field/value pairs.
func (e StreamEntry) Values() []string {
	return []string{
		"op", e.Op,
		"table", e.Table,
		"changeset", e.Changeset,
		"merchant_id", e.MerchantID,
		"business_id", e.BusinessID,
		"payment_id", e.PaymentID,
		"row", string(e.Row),
		"pushed_at", e.PushedAt.Format(time.RFC3339Nano),
	}
}

func ParseStreamEntry(values map[string]any) (StreamEntry, error) {
	field := func(name string) string {
		v, _ := values[name].(string)
		return v
	}

	entry := StreamEntry{
		Op:         field("op"),
		Table:      field("table"),
		Changeset:  field("changeset"),
		MerchantID: field("merchant_id"),
		BusinessID: field("business_id"),
		PaymentID:  field("payment_id"),
		Row:        json.RawMessage(field("row")),
	}

	if entry.Op != OpInsert && entry.Op != OpUpdate {
		return StreamEntry{}, fmt.Errorf("invalid stream entry op %q", entry.Op)
	}
	if entry.Table == "" || len(entry.Row) == 0 {
		return StreamEntry{}, errors.New("stream entry is missing table or row")
	}

	if pushed := field("pushed_at"); pushed != "" {
		t, err := time.Parse(time.RFC3339Nano, pushed)
		if err != nil {
			return StreamEntry{}, fmt.Errorf("invalid stream entry pushed_at: %w", err)
		}
		entry.PushedAt = t
	}

	return entry, nil
}

// DecodeRow unmarshals the entry's row into the model for its table.
func (e StreamEntry) DecodeRow() (db.Row, error) {
	row, ok := db.NewRow(e.Table)
	if !ok {
		return nil, fmt.Errorf("unknown stream entry table %q", e.Table)
	}
	if err := json.Unmarshal(e.Row, row); err != nil {
		return nil, fmt.Errorf("decode %s row: %w", e.Table, err)
	}
	return row, nil
}

// ShardKey maps a payment to a stream partition. Every entity of a payment hashes the payment id
// so their mutations share a shard.
func ShardKey(merchantID, paymentID string, partitions uint8) uint64 {
	if partitions == 0 {
		partitions = 1
	}
	return xxhash.Sum64String(merchantID+"_"+paymentID) % uint64(partitions)
}

// StreamName is the redis stream of a shard. The hash tag keeps a shard on one cluster slot.
func StreamName(base string, shard uint64) string {
	return fmt.Sprintf("{shard_%d}_%s", shard, base)
}
