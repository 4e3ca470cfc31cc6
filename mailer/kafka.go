package mailer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
)

// DefaultTopic receives code messages when no topic is configured.
const DefaultTopic = "gogate.mail.codes"

// KafkaMailer publishes one Message per code, keyed by email so that all
// codes for an address land on the same partition in send order.
type KafkaMailer struct {
	producer sarama.SyncProducer
	topic    string
	logger   *slog.Logger
	now      func() time.Time
}

// NewSyncProducer builds an idempotent producer that waits for all
// in-sync replicas.
func NewSyncProducer(brokers []string) (sarama.SyncProducer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers required")
	}

	cfg := sarama.NewConfig()
	cfg.Version = sarama.V3_7_0_0
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true
	cfg.Producer.Idempotent = true
	cfg.Net.MaxOpenRequests = 1
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Retry.Backoff = 250 * time.Millisecond

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return producer, nil
}

// NewKafkaMailer wraps producer. An empty topic selects DefaultTopic.
func NewKafkaMailer(producer sarama.SyncProducer, topic string, logger *slog.Logger) (*KafkaMailer, error) {
	if producer == nil {
		return nil, fmt.Errorf("kafka producer required")
	}
	if topic == "" {
		topic = DefaultTopic
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &KafkaMailer{producer: producer, topic: topic, logger: logger, now: time.Now}, nil
}

func (m *KafkaMailer) SendVerificationCode(ctx context.Context, email, username, code string) error {
	return m.publish(ctx, Message{Kind: KindVerification, Email: email, Username: username, Code: code})
}

func (m *KafkaMailer) SendPasswordResetCode(ctx context.Context, email, username, code string) error {
	return m.publish(ctx, Message{Kind: KindPasswordReset, Email: email, Username: username, Code: code})
}

func (m *KafkaMailer) publish(ctx context.Context, msg Message) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	msg.SentAt = m.now().UTC()
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal mail message: %w", err)
	}

	_, _, err = m.producer.SendMessage(&sarama.ProducerMessage{
		Topic: m.topic,
		Key:   sarama.StringEncoder(msg.Email),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("kind"), Value: []byte(msg.Kind)},
		},
	})
	if err != nil {
		m.logger.ErrorContext(ctx, "kafka publish failed", "topic", m.topic, "kind", msg.Kind, "error", err)
		return fmt.Errorf("kafka publish failed: %w", err)
	}
	return nil
}

// Close closes the underlying producer.
func (m *KafkaMailer) Close() error {
	return m.producer.Close()
}
