package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// Compile-time interface verification.
var _ Notifier = (*KafkaNotifier)(nil)

// KafkaConfig holds configuration for the Kafka notifier.
type KafkaConfig struct {
	// Brokers is the list of Kafka broker addresses.
	Brokers []string
	// Topic is the Kafka topic for author request events.
	Topic string
	// BatchSize is the number of messages buffered before a write.
	BatchSize int
	// BatchTimeout is the maximum wait before a partial batch is flushed.
	BatchTimeout time.Duration
	// WriteTimeout bounds each produce call.
	WriteTimeout time.Duration
}

// KafkaNotifier publishes lifecycle events to a Kafka topic. Downstream
// consumers (mailer, admin dashboard) fan the events out to their channels.
type KafkaNotifier struct {
	writer *kafka.Writer
	logger zerolog.Logger
}

// NewKafkaNotifier creates a Kafka-backed notifier.
func NewKafkaNotifier(cfg KafkaConfig, logger zerolog.Logger) *KafkaNotifier {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
		WriteTimeout: cfg.WriteTimeout,
		RequiredAcks: kafka.RequireOne,
	}

	return &KafkaNotifier{
		writer: writer,
		logger: logger.With().Str("component", "kafka_notifier").Logger(),
	}
}

// RequestSubmitted broadcasts a new-submission event to admins.
func (n *KafkaNotifier) RequestSubmitted(ctx context.Context, event RequestSubmittedEvent) error {
	return n.publish(ctx, EventRequestSubmitted, event.RequestID.String(), event)
}

// RequestApproved notifies the promoted user.
func (n *KafkaNotifier) RequestApproved(ctx context.Context, event RequestApprovedEvent) error {
	return n.publish(ctx, EventRequestApproved, event.RequestID.String(), event)
}

// RequestRejected notifies the user with the rejection reason.
func (n *KafkaNotifier) RequestRejected(ctx context.Context, event RequestRejectedEvent) error {
	return n.publish(ctx, EventRequestRejected, event.RequestID.String(), event)
}

// publish serializes the event envelope and produces it keyed by request ID,
// so all events for one request land on the same partition in order.
func (n *KafkaNotifier) publish(ctx context.Context, eventType, key string, payload interface{}) error {
	value, err := json.Marshal(envelope{
		EventType:  eventType,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", eventType, err)
	}

	err = n.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s event: %w", eventType, err)
	}

	n.logger.Debug().
		Str("event_type", eventType).
		Str("key", key).
		Msg("published notification event")

	return nil
}

// Close flushes and closes the Kafka writer.
func (n *KafkaNotifier) Close() error {
	n.logger.Info().Msg("closing kafka notifier")
	return n.writer.Close()
}
