//go:build integration

package notifications

import (
	"context"
	"errors"
	"net"
	"strconv"
	"testing"
	"time"

	"reservo/internal/testutil"
	"reservo/pkg/kafka"
	kafka_config "reservo/pkg/kafka/config"
	"reservo/pkg/logger"

	kafkago "github.com/segmentio/kafka-go"
)

type channelMailer chan Email

func (m channelMailer) Send(_ context.Context, e Email) error {
	m <- e
	return nil
}

func createTopics(t *testing.T, brokers []string, topics ...string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", brokers[0])
	if err != nil {
		t.Fatalf("dial broker: %v", err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		t.Fatalf("find controller: %v", err)
	}
	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		t.Fatalf("dial controller: %v", err)
	}
	defer ctrl.Close()

	configs := make([]kafkago.TopicConfig, 0, len(topics))
	for _, topic := range topics {
		configs = append(configs, kafkago.TopicConfig{Topic: topic, NumPartitions: 1, ReplicationFactor: 1})
	}
	if err := ctrl.CreateTopics(configs...); err != nil {
		t.Fatalf("create topics: %v", err)
	}
}

func TestIntegration_KafkaRoundTrip(t *testing.T) {
	brokers := testutil.StartKafka(t)
	const topic, dlq = "booking-notifications", "dlq-booking-notifications"
	createTopics(t, brokers, topic, dlq)

	cfg := kafka_config.Default(brokers...)
	cfg.Producer.Compression = "none"
	cfg.Consumer.StartOffset = kafkago.FirstOffset
	log := logger.Discard()

	producer, err := kafka.NewProducer(cfg, log, topic, dlq)
	if err != nil {
		t.Fatal(err)
	}
	sink := NewKafkaSink(producer)
	defer sink.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := sink.Send(ctx, sample()); err != nil {
		t.Fatalf("publish: %v", err)
	}

	mailer := make(channelMailer, 1)
	consumer, err := kafka.NewConsumer(cfg, log, topic, "reservo-notifier-test", dlq, KafkaHandler(mailer, nil))
	if err != nil {
		t.Fatal(err)
	}
	done := make(chan error, 1)
	go func() { done <- consumer.Start(ctx) }()

	select {
	case email := <-mailer:
		if email.To != sample().ContactAddress {
			t.Errorf("unexpected recipient %q", email.To)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for the confirmation email")
	}

	cancel()
	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		t.Errorf("consumer stopped with %v", err)
	}
	if err := consumer.Close(); err != nil {
		t.Errorf("close consumer: %v", err)
	}
}
