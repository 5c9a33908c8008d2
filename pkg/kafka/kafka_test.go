package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/resilience"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestProducerPublish(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, "post-ingest")
	err := p.Publish(context.Background(), Event{
		Key:     "post-1",
		Type:    "post.ingested",
		Value:   map[string]string{"id": "post-1"},
		Headers: map[string]string{"request-id": "abc"},
	})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(w.msgs))
	}
	got := fromKafka(w.msgs[0])
	if string(got.Key) != "post-1" {
		t.Errorf("key = %q", got.Key)
	}
	if string(got.Value) != `{"id":"post-1"}` {
		t.Errorf("value = %s", got.Value)
	}
	if got.Headers[HeaderEventType] != "post.ingested" || got.Headers["request-id"] != "abc" {
		t.Errorf("headers = %v", got.Headers)
	}
}

func TestProducerPublishErrors(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := NewProducerWithWriter(w, "post-scored")
	if err := p.Publish(context.Background(), Event{Key: "k", Value: 1}); err == nil {
		t.Error("expected write error")
	}
	if err := p.Publish(context.Background(), Event{Key: "k", Value: make(chan int)}); err == nil {
		t.Error("expected marshal error")
	}
}

func TestProducerPublishBatch(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, "post-scored")
	if err := p.PublishBatch(context.Background(), nil); err != nil {
		t.Fatalf("empty batch: %v", err)
	}
	events := []Event{{Key: "a", Value: 1}, {Key: "b", Value: 2}}
	if err := p.PublishBatch(context.Background(), events); err != nil {
		t.Fatalf("PublishBatch: %v", err)
	}
	if len(w.msgs) != 2 || string(w.msgs[1].Key) != "b" {
		t.Errorf("unexpected messages: %+v", w.msgs)
	}
	if err := p.Close(); err != nil || !w.closed {
		t.Error("expected writer to be closed")
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		ID string `json:"id"`
	}
	got, err := DecodeJSON[payload]([]byte(`{"id":"p1"}`))
	if err != nil || got.ID != "p1" {
		t.Fatalf("DecodeJSON = %+v, %v", got, err)
	}
	_, err = DecodeJSON[payload]([]byte(`{not json`))
	if !errors.Is(err, ErrPoison) {
		t.Errorf("expected ErrPoison, got %v", err)
	}
}

type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []int64
	closed    bool
	onCommit  func(n int)
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	f.mu.Lock()
	if len(f.queue) > 0 {
		m := f.queue[0]
		f.queue = f.queue[1:]
		f.mu.Unlock()
		return m, nil
	}
	f.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	for _, m := range msgs {
		f.committed = append(f.committed, m.Offset)
	}
	n := len(f.committed)
	f.mu.Unlock()
	if f.onCommit != nil {
		f.onCommit(n)
	}
	return nil
}

func (f *fakeReader) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeReader) commits() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.committed...)
}

func messages(n int) []kafka.Message {
	out := make([]kafka.Message, n)
	for i := range out {
		out[i] = kafka.Message{Partition: 0, Offset: int64(i), Key: []byte(fmt.Sprintf("post-%d", i))}
	}
	return out
}

func runConsumer(t *testing.T, c *Consumer, ctx context.Context) {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not stop")
	}
}

func TestConsumerRetriesFailedMessageInPlace(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := &fakeReader{queue: messages(3)}
	r.onCommit = func(n int) {
		if n == 3 {
			cancel()
		}
	}

	var mu sync.Mutex
	calls := map[int64]int{}
	var order []int64
	c := NewConsumerWithReader(r, func(_ context.Context, msg Message) error {
		mu.Lock()
		defer mu.Unlock()
		calls[msg.Offset]++
		order = append(order, msg.Offset)
		if msg.Offset == 1 && calls[1] < 3 {
			return errors.New("database down")
		}
		if msg.Offset == 2 {
			return fmt.Errorf("%w: bad payload", ErrPoison)
		}
		return nil
	})
	c.backoff = resilience.Backoff{Base: time.Millisecond, Cap: 2 * time.Millisecond}

	runConsumer(t, c, ctx)

	if got := r.commits(); len(got) != 3 || got[0] != 0 || got[1] != 1 || got[2] != 2 {
		t.Errorf("commits = %v, want [0 1 2]", got)
	}
	if calls[1] != 3 {
		t.Errorf("offset 1 handled %d times, want 3", calls[1])
	}
	want := []int64{0, 1, 1, 1, 2}
	if fmt.Sprint(order) != fmt.Sprint(want) {
		t.Errorf("handling order = %v, want %v", order, want)
	}
	if !r.closed {
		t.Error("reader not closed on shutdown")
	}
}

func TestConsumerNeverCommitsPastFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := &fakeReader{queue: messages(3)}

	var mu sync.Mutex
	var handled []int64
	c := NewConsumerWithReader(r, func(_ context.Context, msg Message) error {
		mu.Lock()
		defer mu.Unlock()
		handled = append(handled, msg.Offset)
		if msg.Offset == 1 {
			if len(handled) >= 5 {
				cancel()
			}
			return errors.New("database down")
		}
		return nil
	})
	c.backoff = resilience.Backoff{Base: time.Millisecond, Cap: 2 * time.Millisecond}

	runConsumer(t, c, ctx)

	if got := r.commits(); len(got) != 1 || got[0] != 0 {
		t.Errorf("commits = %v, want only offset 0", got)
	}
	mu.Lock()
	defer mu.Unlock()
	for _, off := range handled {
		if off == 2 {
			t.Fatalf("offset 2 handled before offset 1 succeeded: %v", handled)
		}
	}
}
