// Package collector batches post-scored events on their way to Kafka so the
// worker never waits on the broker while it scores.
package collector

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/resilience"
)

// BatchPublisher is the part of kafka.Producer the outbox needs.
type BatchPublisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// publishBackoff retries a failed batch briefly before it is dropped.
var publishBackoff = resilience.Backoff{Attempts: 3, Base: 250 * time.Millisecond, Cap: 2 * time.Second, Factor: 2, Jitter: 0.2}

// Outbox queues events in a bounded channel and publishes them in batches of
// up to size, at least every interval. Delivery is best effort: events are
// dropped when the queue is full or a batch keeps failing.
type Outbox struct {
	pub      BatchPublisher
	queue    chan kafka.Event
	size     int
	interval time.Duration
	backoff  resilience.Backoff

	published atomic.Int64
	dropped   atomic.Int64
	done      chan struct{}
	logger    *slog.Logger
}

// NewOutbox creates an Outbox holding up to four batches. Non-positive
// arguments fall back to 100 events and 5 seconds.
func NewOutbox(pub BatchPublisher, size int, interval time.Duration) *Outbox {
	if size <= 0 {
		size = 100
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Outbox{
		pub:      pub,
		queue:    make(chan kafka.Event, size*4),
		size:     size,
		interval: interval,
		backoff:  publishBackoff,
		done:     make(chan struct{}),
		logger:   slog.Default().With("component", "event-outbox"),
	}
}

// Track queues an event without blocking.
func (o *Outbox) Track(key, eventType string, value any) {
	select {
	case o.queue <- kafka.Event{Key: key, Type: eventType, Value: value}:
	default:
		if o.dropped.Add(1)%100 == 1 {
			o.logger.Warn("event queue full, dropping events", "dropped_total", o.dropped.Load())
		}
	}
}

// Start runs the publish loop in the background until ctx is done.
func (o *Outbox) Start(ctx context.Context) {
	go o.run(ctx)
	o.logger.Info("event outbox started", "batch_size", o.size, "interval", o.interval)
}

// Close blocks until the loop has published what was queued at shutdown.
func (o *Outbox) Close() {
	<-o.done
}

// Published is the number of events handed to Kafka.
func (o *Outbox) Published() int64 { return o.published.Load() }

// Dropped is the number of events discarded.
func (o *Outbox) Dropped() int64 { return o.dropped.Load() }

func (o *Outbox) run(ctx context.Context) {
	defer close(o.done)
	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()
	batch := make([]kafka.Event, 0, o.size)

	for {
		select {
		case ev := <-o.queue:
			batch = append(batch, ev)
			if len(batch) == o.size {
				batch = o.publish(ctx, batch)
			}
		case <-ticker.C:
			batch = o.publish(ctx, batch)
		case <-ctx.Done():
			o.drain(batch)
			return
		}
	}
}

// drain publishes the pending batch and whatever is still queued, with a
// fresh deadline since ctx is already cancelled.
func (o *Outbox) drain(batch []kafka.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case ev := <-o.queue:
			batch = append(batch, ev)
			if len(batch) == o.size {
				batch = o.publish(ctx, batch)
			}
		default:
			o.publish(ctx, batch)
			return
		}
	}
}

// publish sends batch and returns it emptied for reuse.
func (o *Outbox) publish(ctx context.Context, batch []kafka.Event) []kafka.Event {
	if len(batch) == 0 {
		return batch
	}
	out := make([]kafka.Event, len(batch))
	copy(out, batch)
	err := resilience.Retry(ctx, "publish scored events", o.backoff, func(ctx context.Context, _ int) error {
		return o.pub.PublishBatch(ctx, out)
	})
	if err != nil {
		o.dropped.Add(int64(len(out)))
		o.logger.Error("dropping event batch", "events", len(out), "error", err)
	} else {
		o.published.Add(int64(len(out)))
		o.logger.Debug("event batch published", "events", len(out))
	}
	return batch[:0]
}
