package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"reservo/pkg/logger"

	"github.com/segmentio/kafka-go"
)

type fakeReader struct {
	mu        sync.Mutex
	pending   []kafka.Message
	committed []kafka.Message
	drained   chan struct{}
}

func newFakeReader(msgs ...kafka.Message) *fakeReader {
	return &fakeReader{pending: msgs, drained: make(chan struct{})}
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.pending) > 0 {
		km := r.pending[0]
		r.pending = r.pending[1:]
		r.mu.Unlock()
		return km, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	if len(r.pending) == 0 {
		select {
		case <-r.drained:
		default:
			close(r.drained)
		}
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func runConsumer(t *testing.T, c *Consumer, r *fakeReader) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	select {
	case <-r.drained:
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not drain the reader")
	}
	cancel()
	<-done
	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}

func TestConsumer_HandlesAndCommits(t *testing.T) {
	r := newFakeReader(kafka.Message{Key: []byte("a"), Value: []byte("1")}, kafka.Message{Key: []byte("b"), Value: []byte("2")})

	var mu sync.Mutex
	var keys []string
	c := NewConsumerWithReader(logger.Discard(), r, nil, "notifications", "notifier", 3, func(_ context.Context, msg Message) error {
		mu.Lock()
		keys = append(keys, msg.Key)
		mu.Unlock()
		return nil
	})

	runConsumer(t, c, r)

	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Errorf("unexpected handled keys %v", keys)
	}
	if len(r.committed) != 2 {
		t.Errorf("expected 2 commits, got %d", len(r.committed))
	}
}

func TestConsumer_RetriesTransientThenSucceeds(t *testing.T) {
	r := newFakeReader(kafka.Message{Key: []byte("a"), Value: []byte("1")})

	attempts := 0
	c := NewConsumerWithReader(logger.Discard(), r, nil, "notifications", "notifier", 3, func(_ context.Context, msg Message) error {
		attempts++
		if attempts < 3 {
			return NewTransientError("smtp down", errors.New("connection refused"))
		}
		if msg.GetRetryCount() != 2 {
			t.Errorf("expected retry count 2, got %d", msg.GetRetryCount())
		}
		return nil
	})
	c.backoff = time.Millisecond

	runConsumer(t, c, r)

	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestConsumer_PermanentFailureGoesToDLQ(t *testing.T) {
	r := newFakeReader(kafka.Message{Key: []byte("a"), Value: []byte("not json")})
	dlq := &fakeWriter{}

	attempts := 0
	c := NewConsumerWithReader(logger.Discard(), r, dlq, "notifications", "notifier", 3, func(context.Context, Message) error {
		attempts++
		return NewPermanentError("bad payload", nil)
	})

	runConsumer(t, c, r)

	if attempts != 1 {
		t.Errorf("permanent errors must not be retried, got %d attempts", attempts)
	}
	dead := dlq.written()
	if len(dead) != 1 {
		t.Fatalf("expected 1 DLQ message, got %d", len(dead))
	}
	if headerValue(dead[0], HeaderDLQGroup) != "notifier" {
		t.Errorf("expected consumer group header, got %q", headerValue(dead[0], HeaderDLQGroup))
	}
	if len(r.committed) != 1 {
		t.Errorf("dead-lettered message must still be committed")
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"nil", nil, ErrorTypeUnknown},
		{"explicit transient", NewTransientError("x", nil), ErrorTypeTransient},
		{"explicit permanent", NewPermanentError("x", errors.New("connection refused")), ErrorTypePermanent},
		{"deadline", context.DeadlineExceeded, ErrorTypeTransient},
		{"pattern", errors.New("dial tcp: i/o timeout"), ErrorTypeTransient},
		{"unknown", errors.New("invalid character"), ErrorTypePermanent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyError(tt.err); got != tt.want {
				t.Errorf("ClassifyError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestShouldRetry(t *testing.T) {
	transient := NewTransientError("x", nil)
	if !ShouldRetry(transient, 0, 3) {
		t.Error("first transient failure should retry")
	}
	if ShouldRetry(transient, 3, 3) {
		t.Error("retries must stop at maxRetries")
	}
	if ShouldRetry(NewPermanentError("x", nil), 0, 3) {
		t.Error("permanent failures must not retry")
	}
}
