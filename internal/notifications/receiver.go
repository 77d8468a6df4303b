package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"reservo/pkg/kafka"
	"reservo/pkg/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

func decode(data []byte) (Notification, error) {
	var n Notification
	if err := json.Unmarshal(data, &n); err != nil {
		return n, err
	}
	if n.ContactAddress == "" || n.BookingID == "" {
		return n, fmt.Errorf("notification missing booking id or contact address")
	}
	return n, nil
}

// deliver mails n once per booking when dedup is set. A failed send
// forgets the claim so the redelivered event can try again.
func deliver(ctx context.Context, mailer Mailer, dedup Deduper, n Notification) (bool, error) {
	if dedup != nil {
		first, err := dedup.Claim(ctx, n.BookingID)
		if err != nil {
			return false, fmt.Errorf("dedup claim: %w", err)
		}
		if !first {
			return false, nil
		}
	}
	if err := mailer.Send(ctx, Compose(n)); err != nil {
		if dedup != nil {
			if forgetErr := dedup.Forget(ctx, n.BookingID); forgetErr != nil {
				err = fmt.Errorf("%w (forget: %v)", err, forgetErr)
			}
		}
		return false, err
	}
	return true, nil
}

// KafkaHandler renders booking.confirmed events to mailer. Undecodable
// payloads are permanent failures; mailer errors are retried. dedup may be nil.
func KafkaHandler(mailer Mailer, dedup Deduper) kafka.MessageHandler {
	return func(ctx context.Context, msg kafka.Message) error {
		if eventType := msg.GetEventType(); eventType != "" && eventType != EventBookingConfirmed {
			return nil
		}

		n, err := decode(msg.Value)
		if err != nil {
			return kafka.NewPermanentError("invalid notification payload", err)
		}
		if _, err := deliver(ctx, mailer, dedup, n); err != nil {
			return kafka.NewTransientError("failed to send confirmation", err)
		}
		return nil
	}
}

// SQSReceiver long-polls a queue and renders each notification to a Mailer.
// Messages that fail to send stay on the queue until their visibility
// timeout expires.
type SQSReceiver struct {
	client   SQSAPI
	queueURL string
	mailer   Mailer
	dedup    Deduper
	log      *logger.Logger
	waitTime int32
}

func NewSQSReceiver(log *logger.Logger, client SQSAPI, queueURL string, mailer Mailer, dedup Deduper) *SQSReceiver {
	return &SQSReceiver{
		client:   client,
		queueURL: queueURL,
		mailer:   mailer,
		dedup:    dedup,
		log:      log,
		waitTime: 20,
	}
}

func (r *SQSReceiver) Start(ctx context.Context) error {
	r.log.Info("SQS receiver started", "queue_url", r.queueURL)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.poll(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.log.Error("failed to receive SQS messages", "error", err)
			select {
			case <-time.After(5 * time.Second):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func (r *SQSReceiver) poll(ctx context.Context) error {
	out, err := r.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(r.queueURL),
		MaxNumberOfMessages: 10,
		WaitTimeSeconds:     r.waitTime,
		VisibilityTimeout:   60,
	})
	if err != nil {
		return err
	}

	for _, m := range out.Messages {
		id := aws.ToString(m.MessageId)

		n, err := decode([]byte(aws.ToString(m.Body)))
		if err != nil {
			r.log.Warn("discarding invalid SQS notification", "message_id", id, "error", err)
			r.delete(ctx, m.ReceiptHandle)
			continue
		}
		sent, err := deliver(ctx, r.mailer, r.dedup, n)
		if err != nil {
			r.log.Error("failed to send confirmation", "message_id", id, "booking_id", n.BookingID, "error", err)
			continue
		}
		if !sent {
			r.log.Debug("skipping duplicate notification", "message_id", id, "booking_id", n.BookingID)
		}
		r.delete(ctx, m.ReceiptHandle)
	}
	return nil
}

func (r *SQSReceiver) delete(ctx context.Context, receipt *string) {
	if receipt == nil {
		return
	}
	if _, err := r.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(r.queueURL),
		ReceiptHandle: receipt,
	}); err != nil {
		r.log.Error("failed to delete SQS message", "error", err)
	}
}
