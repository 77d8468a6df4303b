package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	"reservo/pkg/config"
	"reservo/pkg/kafka"
	kafka_config "reservo/pkg/kafka/config"
	kafka_middleware "reservo/pkg/kafka/middleware"
	"reservo/pkg/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

const source = "reservo"

// Publisher is satisfied by *kafka.Producer.
type Publisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
	Close() error
}

type KafkaSink struct {
	producer Publisher
}

func NewKafkaSink(producer Publisher) *KafkaSink {
	return &KafkaSink{producer: producer}
}

func (s *KafkaSink) Send(ctx context.Context, n Notification) error {
	msg, err := kafka.NewMessage().
		WithKey(n.BookingID).
		WithValue(n).
		WithEventType(EventBookingConfirmed).
		WithSchemaVersion("1").
		WithSource(source).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build notification message: %w", err)
	}
	return s.producer.Publish(ctx, msg)
}

func (s *KafkaSink) Close() error {
	return s.producer.Close()
}

// SQSAPI is the part of *sqs.Client the SQS sink and receiver use.
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

type SQSSink struct {
	client   SQSAPI
	queueURL string
}

func NewSQSSink(client SQSAPI, queueURL string) *SQSSink {
	return &SQSSink{client: client, queueURL: queueURL}
}

func (s *SQSSink) Send(ctx context.Context, n Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	_, err = s.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(s.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			kafka.HeaderEventType: {DataType: aws.String("String"), StringValue: aws.String(EventBookingConfirmed)},
			kafka.HeaderSource:    {DataType: aws.String("String"), StringValue: aws.String(source)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send notification to SQS: %w", err)
	}
	return nil
}

func (s *SQSSink) Close() error { return nil }

// LogSink writes notifications to the log. The cancellation link is left
// out since it grants cancel rights to whoever holds it.
type LogSink struct {
	log *logger.Logger
}

func NewLogSink(log *logger.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Send(_ context.Context, n Notification) error {
	s.log.Info("booking confirmed",
		"booking_id", n.BookingID,
		"contact", n.ContactAddress,
		"slot_start", n.SlotStart,
		"slot_end", n.SlotEnd,
	)
	return nil
}

func (s *LogSink) Close() error { return nil }

// NewSQSClient loads the default AWS config chain (env, shared files, IMDS).
func NewSQSClient(ctx context.Context) (*sqs.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return sqs.NewFromConfig(awsCfg), nil
}

// NewSink builds the sink selected by cfg.NotificationSink. It returns nil
// for the "none" sink.
func NewSink(ctx context.Context, cfg *config.Config) (Sink, error) {
	switch cfg.NotificationSink {
	case config.SinkKafka:
		kafkaCfg, err := kafka_config.Load()
		if err != nil {
			return nil, err
		}
		kafkaCfg.LogConfiguration(cfg.Log)

		producer, err := kafka.NewProducer(kafkaCfg, cfg.Log, cfg.NotificationTopic, cfg.NotificationDLQTopic)
		if err != nil {
			return nil, fmt.Errorf("failed to create notification producer: %w", err)
		}
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
		return NewKafkaSink(producer), nil

	case config.SinkSQS:
		client, err := NewSQSClient(ctx)
		if err != nil {
			return nil, err
		}
		return NewSQSSink(client, cfg.NotificationQueueURL), nil

	case config.SinkLog:
		return NewLogSink(cfg.Log), nil

	case config.SinkNone:
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown notification sink %q", cfg.NotificationSink)
	}
}
