//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/weather-alarm-service/internal/adapter/kafka"
	"github.com/couchcryptid/weather-alarm-service/internal/config"
	"github.com/couchcryptid/weather-alarm-service/internal/domain"
	"github.com/couchcryptid/weather-alarm-service/internal/notify"
	"github.com/couchcryptid/weather-alarm-service/internal/observability"
)

const kafkaImage = "confluentinc/confluent-local:7.5.0"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node broker and returns its bootstrap address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, kafkaImage, tckafka.WithClusterID("weather-alarm-test"))
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("terminate kafka: %v", err)
		}
	})
	require.NoError(t, err, "start kafka container")

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

func newConsumer(broker, topic string) *kafkago.Reader {
	return kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       topic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
		MaxWait:     500 * time.Millisecond,
	})
}

type published struct {
	Notification domain.Notification
	Key          string
	Headers      map[string]string
}

func readPublished(ctx context.Context, t *testing.T, r *kafkago.Reader) published {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := r.ReadMessage(readCtx)
	require.NoError(t, err, "read notification")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var n domain.Notification
	require.NoError(t, json.Unmarshal(msg.Value, &n))
	return published{Notification: n, Key: string(msg.Key), Headers: headers}
}

// TestKafkaWriterPublishesNotification round-trips a briefing through a real
// broker and checks the key and headers consumers rely on.
func TestKafkaWriterPublishesNotification(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	const topic = "weather-notifications-test"
	createTopic(t, broker, topic)

	cfg := &config.Config{KafkaBrokers: []string{broker}, KafkaNotifyTopic: topic}
	writer := kafka.NewWriter(cfg, discardLogger())
	defer writer.Close()

	n := domain.NewNotification(domain.KindBriefing, "Today's weather briefing", "It is 18° with clear skies.")
	require.NoError(t, writer.Notify(ctx, n))

	consumer := newConsumer(broker, topic)
	defer consumer.Close()

	got := readPublished(ctx, t, consumer)
	assert.Equal(t, n.ID, got.Key)
	assert.Equal(t, domain.KindBriefing, got.Headers["kind"])
	assert.Equal(t, n.CreatedAt.Format(time.RFC3339), got.Headers["created_at"])
	assert.Equal(t, n.Body, got.Notification.Body)
	assert.True(t, n.CreatedAt.Equal(got.Notification.CreatedAt))
}

// TestFanoutDeliversToKafka checks that the fanout used by the daemon reaches
// the broker alongside the log sink.
func TestFanoutDeliversToKafka(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	const topic = "weather-fanout-test"
	createTopic(t, broker, topic)

	logger := discardLogger()
	writer := kafka.NewWriter(&config.Config{KafkaBrokers: []string{broker}, KafkaNotifyTopic: topic}, logger)
	defer writer.Close()

	fanout := notify.NewFanout(observability.NewMetricsForTesting(), logger,
		notify.Sink{Name: "log", Notifier: notify.NewLogNotifier(logger)},
		notify.Sink{Name: "kafka", Notifier: writer},
	)

	n := domain.NewNotification(domain.KindSmartAlert, "Umbrella alert", "Rain or snow is expected within 3 hours. Take an umbrella!")
	require.NoError(t, fanout.Notify(ctx, n))

	consumer := newConsumer(broker, topic)
	defer consumer.Close()

	got := readPublished(ctx, t, consumer)
	assert.Equal(t, n.ID, got.Notification.ID)
	assert.Equal(t, domain.KindSmartAlert, got.Headers["kind"])
}
