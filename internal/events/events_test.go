package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w, timeout: time.Second, logger: zaptest.NewLogger(t)}

	err := p.Publish(context.Background(), Event{
		Type:       TypePaymentUpdated,
		Flow:       "create",
		MerchantID: "M1",
		PaymentID:  "pay_1",
		Data:       map[string]any{"status": "processing"},
	})
	require.NoError(t, err)
	require.Len(t, w.messages, 1)
	assert.Equal(t, "pay_1", string(w.messages[0].Key))

	var decoded Event
	require.NoError(t, json.Unmarshal(w.messages[0].Value, &decoded))
	assert.Equal(t, "create", decoded.Flow)
	assert.False(t, decoded.CreatedAt.IsZero())
}

func TestKafkaPublisher_KeyFallsBackToMerchant(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w, logger: zaptest.NewLogger(t)}

	require.NoError(t, p.Publish(context.Background(), Event{Type: TypeCustomer, MerchantID: "M1"}))
	assert.Equal(t, "M1", string(w.messages[0].Key))
}

func TestPublishBestEffort_SwallowsErrors(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := &KafkaPublisher{writer: w, logger: zaptest.NewLogger(t)}

	assert.NotPanics(t, func() {
		PublishBestEffort(context.Background(), p, zaptest.NewLogger(t), Event{Type: TypeRefundUpdated, MerchantID: "M1"})
	})
	PublishBestEffort(context.Background(), nil, zaptest.NewLogger(t), Event{})
}
