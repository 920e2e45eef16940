package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

const (
	TopicOrderCreated   = "order.created"
	TopicPaymentSettled = "payment.settled"
)

type OrderCreated struct {
	OrderID       string    `json:"order_id"`
	Reference     string    `json:"reference"`
	BuyerID       string    `json:"buyer_id"`
	VendorID      string    `json:"vendor_id"`
	PaymentMethod string    `json:"payment_method"`
	Total         int64     `json:"total"`
	Currency      string    `json:"currency"`
	CreatedAt     time.Time `json:"created_at"`
}

type PaymentSettled struct {
	OrderID        string    `json:"order_id"`
	Reference      string    `json:"reference"`
	TransactionID  uint      `json:"transaction_id"`
	Provider       string    `json:"provider"`
	Amount         int64     `json:"amount"`
	Currency       string    `json:"currency"`
	VendorAmount   int64     `json:"vendor_amount"`
	PlatformAmount int64     `json:"platform_amount"`
	SettledAt      time.Time `json:"settled_at"`
}

// Publisher emits domain events for downstream consumers (fulfillment,
// vendor payouts). Publishing failures never roll back the business write;
// callers log and move on.
type Publisher interface {
	PublishOrderCreated(ctx context.Context, event *OrderCreated) error
	PublishPaymentSettled(ctx context.Context, event *PaymentSettled) error
	Close() error
}

type kafkaPublisher struct {
	producer sarama.SyncProducer
	logger   *zap.Logger
}

func NewKafkaPublisher(brokers []string, logger *zap.Logger) (Publisher, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 3

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("new sync producer: %w", err)
	}

	return &kafkaPublisher{
		producer: producer,
		logger:   logger,
	}, nil
}

func (p *kafkaPublisher) PublishOrderCreated(_ context.Context, event *OrderCreated) error {
	return p.publish(TopicOrderCreated, event.Reference, event)
}

func (p *kafkaPublisher) PublishPaymentSettled(_ context.Context, event *PaymentSettled) error {
	return p.publish(TopicPaymentSettled, event.Reference, event)
}

// publish keys messages by order reference so per-order events stay ordered
// within a partition.
func (p *kafkaPublisher) publish(topic, key string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", topic, err)
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(data),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("send %s message: %w", topic, err)
	}

	p.logger.Debug("event published",
		zap.String("topic", topic),
		zap.String("key", key),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
	)

	return nil
}

func (p *kafkaPublisher) Close() error {
	return p.producer.Close()
}

// noopPublisher keeps the call sites unconditional when no brokers are
// configured.
type noopPublisher struct {
	logger *zap.Logger
}

func NewNoopPublisher(logger *zap.Logger) Publisher {
	return &noopPublisher{logger: logger}
}

func (p *noopPublisher) PublishOrderCreated(_ context.Context, event *OrderCreated) error {
	p.logger.Debug("event publishing disabled", zap.String("topic", TopicOrderCreated), zap.String("reference", event.Reference))
	return nil
}

func (p *noopPublisher) PublishPaymentSettled(_ context.Context, event *PaymentSettled) error {
	p.logger.Debug("event publishing disabled", zap.String("topic", TopicPaymentSettled), zap.String("reference", event.Reference))
	return nil
}

func (p *noopPublisher) Close() error {
	return nil
}
