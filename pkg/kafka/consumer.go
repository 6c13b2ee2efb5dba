package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/search-bench/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/search-bench/pkg/resilience"
)

// MessageHandler processes one message. A returned error makes the consumer
// hand the same message over again; its offset is not committed until the
// handler succeeds.
type MessageHandler func(ctx context.Context, key []byte, value []byte) error

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type ConsumerOption func(*Consumer)

// WithRetry sets the backoff used while a message keeps failing.
func WithRetry(cfg resilience.RetryConfig) ConsumerOption {
	return func(c *Consumer) { c.retry = cfg }
}

type Consumer struct {
	reader  messageReader
	logger  *slog.Logger
	handler MessageHandler
	retry   resilience.RetryConfig
}

// NewConsumer joins cfg.ConsumerGroup on cfg.Topic. A new group starts from
// the oldest retained message so no published run is missed.
func NewConsumer(cfg config.KafkaConfig, handler MessageHandler, opts ...ConsumerOption) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.ConsumerGroup,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.FirstOffset,
	})
	c := newConsumer(r, handler, opts...)
	c.logger = c.logger.With("topic", cfg.Topic)
	return c
}

func newConsumer(r messageReader, handler MessageHandler, opts ...ConsumerOption) *Consumer {
	c := &Consumer{
		reader:  r,
		logger:  slog.Default().With("component", "kafka-consumer"),
		handler: handler,
		retry: resilience.RetryConfig{
			MaxAttempts:    5,
			InitialDelay:   500 * time.Millisecond,
			MaxDelay:       30 * time.Second,
			Multiplier:     2,
			JitterFraction: 0.1,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	// an open circuit is waited out rather than treated as final
	c.retry.Retryable = func(error) bool { return true }
	return c
}

// Start fetches and handles messages until ctx is cancelled. A message that
// fails is retried until it succeeds, so a later offset is never committed
// past it.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopping", "reason", ctx.Err())
				return nil
			}
			c.logger.Error("fetching message", "error", err)
			continue
		}
		c.logger.Debug("message received",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"key", string(msg.Key),
		)
		if err := c.deliver(ctx, msg); err != nil {
			c.logger.Info("consumer stopping", "reason", err, "uncommitted_offset", msg.Offset)
			return nil
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("committing message", "offset", msg.Offset, "error", err)
		}
	}
}

// deliver runs the handler on msg until it succeeds. It only gives up when
// ctx is done.
func (c *Consumer) deliver(ctx context.Context, msg kafka.Message) error {
	for round := 1; ; round++ {
		err := resilience.Retry(ctx, "handle message", c.retry, func(ctx context.Context) error {
			return c.handler(ctx, msg.Key, msg.Value)
		})
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Error("handling message",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"round", round,
			"error", err,
		)
		timer := time.NewTimer(c.retry.MaxDelay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

// DecodeJSON unmarshals a message value into T.
func DecodeJSON[T any](value []byte) (T, error) {
	var result T
	if err := json.Unmarshal(value, &result); err != nil {
		return result, fmt.Errorf("decoding kafka message: %w", err)
	}
	return result, nil
}
