package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/weather-alarm-service/internal/config"
	"github.com/couchcryptid/weather-alarm-service/internal/domain"
)

// Writer publishes notifications to a Kafka topic.
// It implements notify.Notifier.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured notification topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaNotifyTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger}
}

// Notify publishes n keyed by its ID.
func (w *Writer) Notify(ctx context.Context, n domain.Notification) error {
	msg, err := serializeToMessage(n)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish notification %s: %w", n.ID, err)
	}
	w.logger.Debug("notification published", "id", n.ID, "topic", w.writer.Topic)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a Notification into a Kafka message.
func serializeToMessage(n domain.Notification) (kafkago.Message, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize notification: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(n.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "kind", Value: []byte(n.Kind)},
			{Key: "created_at", Value: []byte(n.CreatedAt.Format(time.RFC3339))},
		},
	}, nil
}
