package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"reservo/internal/notifications"
	"reservo/pkg/config"
	"reservo/pkg/kafka"
	kafka_config "reservo/pkg/kafka/config"
	kafka_middleware "reservo/pkg/kafka/middleware"
)

const ServiceName = "notifier"

func main() {
	cfg := config.Load(ServiceName)
	if cfg.RedisAddr != "" {
		cfg.Client.SetRedis(cfg.Log, cfg.RedisAddr, cfg.ConnTimeout)
	}
	defer cfg.GracefulShutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mailer := notifications.NewLogMailer(cfg.Log)

	var dedup notifications.Deduper
	if cfg.Client.Redis != nil {
		dedup = notifications.NewRedisDeduper(cfg.Client.Redis, cfg.NotificationDedupTTL)
		cfg.Log.Info("Notification dedup enabled", "ttl", cfg.NotificationDedupTTL)
	}

	cfg.Log.Info("Starting notifier", "sink", cfg.NotificationSink)

	var err error
	switch cfg.NotificationSink {
	case config.SinkKafka:
		err = runKafka(ctx, cfg, mailer, dedup)
	case config.SinkSQS:
		err = runSQS(ctx, cfg, mailer, dedup)
	default:
		cfg.Log.Fatal("Notifier needs a kafka or sqs sink", "sink", cfg.NotificationSink)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		cfg.GracefulShutdown()
		cfg.Log.Fatal("Notifier stopped with error", "error", err)
	}
	cfg.Log.Info("Notifier stopped")
}

func runKafka(ctx context.Context, cfg *config.Config, mailer notifications.Mailer, dedup notifications.Deduper) error {
	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		return err
	}
	kafkaCfg.LogConfiguration(cfg.Log)

	consumer, err := kafka.NewConsumer(kafkaCfg, cfg.Log,
		cfg.NotificationTopic, cfg.NotifierGroupID, cfg.NotificationDLQTopic,
		notifications.KafkaHandler(mailer, dedup),
	)
	if err != nil {
		return err
	}
	consumer.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))
	defer func() {
		if err := consumer.Close(); err != nil {
			cfg.Log.Error("Failed to close consumer", "error", err)
		}
	}()

	return consumer.Start(ctx)
}

func runSQS(ctx context.Context, cfg *config.Config, mailer notifications.Mailer, dedup notifications.Deduper) error {
	client, err := notifications.NewSQSClient(ctx)
	if err != nil {
		return err
	}
	return notifications.NewSQSReceiver(cfg.Log, client, cfg.NotificationQueueURL, mailer, dedup).Start(ctx)
}
