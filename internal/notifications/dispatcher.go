package notifications

import (
	"context"
	"sync"
	"time"

	"reservo/pkg/logger"
)

// Dispatcher hands notifications to a Sink from a fixed set of workers.
// Notify never blocks the caller: when the queue is full the notification
// is dropped and logged.
type Dispatcher struct {
	sink    Sink
	queue   chan Notification
	timeout time.Duration
	log     *logger.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(log *logger.Logger, sink Sink, workers, buffer int, timeout time.Duration) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	d := &Dispatcher{
		sink:    sink,
		queue:   make(chan Notification, buffer),
		timeout: timeout,
		log:     log,
	}
	d.wg.Add(workers)
	for range workers {
		go d.work()
	}
	return d
}

func (d *Dispatcher) Notify(_ context.Context, n Notification) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.log.Warn("notification dropped, dispatcher closed", "booking_id", n.BookingID)
		return
	}

	select {
	case d.queue <- n:
	default:
		d.log.Warn("notification dropped, queue full", "booking_id", n.BookingID, "capacity", cap(d.queue))
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for n := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		if err := d.sink.Send(ctx, n); err != nil {
			d.log.Error("failed to send notification", "booking_id", n.BookingID, "error", err)
		} else {
			d.log.Debug("notification sent", "booking_id", n.BookingID)
		}
		cancel()
	}
}

// Close stops accepting notifications and waits for queued ones to be sent,
// or for ctx to expire. The sink is closed afterwards.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		d.log.Warn("notification queue not drained before shutdown", "remaining", len(d.queue))
		return ctx.Err()
	}
	return d.sink.Close()
}
