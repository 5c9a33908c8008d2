// Package kafka provides Kafka producer and consumer clients backed by
// segmentio/kafka-go. Producers serialise events as JSON and consumers hand
// each message to a Handler, committing the offset once it is processed.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/resilience"
)

// ErrPoison marks a message that can never be processed, such as malformed
// JSON. The consumer logs it and commits past it instead of leaving the
// offset behind.
var ErrPoison = errors.New("poison message")

// Message is the subset of a Kafka record a Handler needs.
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   map[string]string
}

// Handler processes one message. An error that wraps ErrPoison commits past
// the message; any other error makes the consumer call the handler again for
// the same message after a backoff.
type Handler func(ctx context.Context, msg Message) error

// Reader is the part of *kafka.Reader the consumer uses.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// redeliveryBackoff spaces out retries of a message whose handler failed.
var redeliveryBackoff = resilience.Backoff{Base: 500 * time.Millisecond, Cap: 30 * time.Second, Factor: 2, Jitter: 0.2}

// Consumer reads one topic as a member of a consumer group.
type Consumer struct {
	reader  Reader
	logger  *slog.Logger
	handler Handler
	backoff resilience.Backoff
}

// NewConsumer creates a Consumer for topic in consumer group groupID.
func NewConsumer(cfg config.KafkaConfig, topic, groupID string, handler Handler) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       topic,
		GroupID:     groupID,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.FirstOffset,
	})

	c := NewConsumerWithReader(r, handler)
	c.logger = c.logger.With("topic", topic, "group", groupID)
	return c
}

// NewConsumerWithReader creates a Consumer over an existing reader.
func NewConsumerWithReader(r Reader, handler Handler) *Consumer {
	return &Consumer{
		reader:  r,
		logger:  slog.Default().With("component", "kafka-consumer"),
		handler: handler,
		backoff: redeliveryBackoff,
	}
}

// Start fetches and handles messages until ctx is cancelled. Offsets are
// committed in order: a message is committed only once its handler succeeds
// or reports poison, and until then the partition does not move on. A
// message still failing at shutdown stays uncommitted and is redelivered.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started")
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("consumer stopping", "reason", ctx.Err())
			return c.reader.Close()
		default:
		}

		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			c.logger.Error("failed to fetch message", "error", err)
			continue
		}
		c.logger.Debug("message received",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"key", string(msg.Key),
			"value_size", len(msg.Value),
		)
		if !c.handle(ctx, msg) {
			continue
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("failed to commit message",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
		}
	}
}

// handle runs the handler until it succeeds or reports poison, backing off
// between attempts. It returns false if ctx ended first.
func (c *Consumer) handle(ctx context.Context, msg kafka.Message) bool {
	m := fromKafka(msg)
	for attempt := 1; ; attempt++ {
		err := c.handler(ctx, m)
		switch {
		case err == nil:
			return true
		case errors.Is(err, ErrPoison):
			c.logger.Warn("skipping poison message",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
			return true
		case ctx.Err() != nil:
			return false
		}
		wait := c.backoff.Wait(attempt)
		c.logger.Error("failed to process message, retrying",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"attempt", attempt,
			"retry_in", wait,
			"error", err,
		)
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return false
		case <-t.C:
		}
	}
}

// Close closes the underlying Kafka reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

func fromKafka(m kafka.Message) Message {
	headers := make(map[string]string, len(m.Headers))
	for _, h := range m.Headers {
		headers[h.Key] = string(h.Value)
	}
	return Message{
		Topic:     m.Topic,
		Partition: m.Partition,
		Offset:    m.Offset,
		Key:       m.Key,
		Value:     m.Value,
		Headers:   headers,
	}
}

// DecodeJSON unmarshals a message value into T. Decoding failures wrap
// ErrPoison.
func DecodeJSON[T any](value []byte) (T, error) {
	var result T
	if err := json.Unmarshal(value, &result); err != nil {
		return result, fmt.Errorf("%w: decoding kafka message: %v", ErrPoison, err)
	}
	return result, nil
}
