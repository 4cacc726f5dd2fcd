package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	TypePaymentUpdated = "payment.updated"
	TypeRefundUpdated  = "refund.updated"
	TypeCustomer       = "customer.updated"
)

// Event is a lifecycle notification emitted after a flow completed.
type Event struct {
	Type       string         `json:"type"`
	Flow       string         `json:"flow"`
	MerchantID string         `json:"merchant_id"`
	PaymentID  string         `json:"payment_id,omitempty"`
	Data       any            `json:"data,omitempty"`
	Extra      map[string]any `json:"extra,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

var _ Publisher = (*NopPublisher)(nil)
var _ Publisher = (*KafkaPublisher)(nil)

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer  messageWriter
	timeout time.Duration
	logger  *zap.Logger
}

func NewKafkaPublisher(brokers []string, topic string, timeout time.Duration, logger *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
			WriteTimeout:           timeout,
		},
		timeout: timeout,
		logger:  logger,
	}
}

// Publish writes the event keyed by payment id so that events of one payment land on one partition.
func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event failed: %w", err)
	}

	key := event.PaymentID
	if key == "" {
		key = event.MerchantID
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: value}); err != nil {
		return fmt.Errorf("write event failed: %w", err)
	}

	p.logger.Debug("event published",
		zap.String("type", event.Type),
		zap.String("flow", event.Flow),
		zap.String("payment_id", event.PaymentID))

	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// PublishBestEffort publishes and only logs failures. Events never fail the operation that caused them.
func PublishBestEffort(ctx context.Context, publisher Publisher, logger *zap.Logger, event Event) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, event); err != nil {
		logger.Warn("failed to publish event",
			zap.String("type", event.Type),
			zap.String("merchant_id", event.MerchantID),
			zap.String("payment_id", event.PaymentID),
			zap.Error(err))
	}
}
