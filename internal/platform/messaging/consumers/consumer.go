package consumers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/subscription-billing-ledger/internal/config"
)

const (
	defaultHandlerAttempts = 3
	defaultRetryBackoff    = time.Second
	defaultMaxBackoff      = 30 * time.Second
)

type MessageHandler func(ctx context.Context, key []byte, value []byte) error

// retryableError marks a handler failure that must not be committed
type retryableError struct {
	err error
}

func (e retryableError) Error() string { return e.err.Error() }
func (e retryableError) Unwrap() error { return e.err }

// Retryable marks err as transient. The consumer keeps retrying the message
// with backoff until the handler succeeds or ctx ends, and never commits it
// while it fails.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return retryableError{err: err}
}

// IsRetryable reports whether err was marked with Retryable
func IsRetryable(err error) bool {
	var r retryableError
	return errors.As(err, &r)
}

// Consumer defines the message queue consumer interface
type Consumer interface {
	Consume(ctx context.Context, handler MessageHandler) error
	Close() error
}

// messageReader is the subset of *kafka.Reader the consumer needs
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConsumer reads billing run requests from one topic as part of a consumer group
type KafkaConsumer struct {
	reader   messageReader
	logger   *slog.Logger
	topic    string
	groupID  string
	attempts   int
	backoff    time.Duration
	maxBackoff time.Duration
}

func NewKafkaConsumer(logger *slog.Logger, cfg *config.KafkaConfig) *KafkaConsumer {
	startOffset := cfg.StartOffset
	if startOffset != kafka.FirstOffset && startOffset != kafka.LastOffset {
		startOffset = kafka.FirstOffset
	}

	return &KafkaConsumer{
		logger:  logger,
		topic:   cfg.BillingRequestTopic,
		groupID: cfg.ConsumerGroup,
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     []string{cfg.Brokers},
			Topic:       cfg.BillingRequestTopic,
			GroupID:     cfg.ConsumerGroup,
			MinBytes:    cfg.MinBytes,
			MaxBytes:    cfg.MaxBytes,
			MaxWait:     cfg.MaxWait,
			StartOffset: startOffset,
		}),
		attempts:   defaultHandlerAttempts,
		backoff:    defaultRetryBackoff,
		maxBackoff: defaultMaxBackoff,
	}
}

// Consume blocks until ctx is canceled. A message is committed once the handler
// succeeds or has failed on every attempt; the handler owns dead-lettering.
// Retryable failures hold the partition until they clear.
func (c *KafkaConsumer) Consume(ctx context.Context, handler MessageHandler) error {
	c.logger.Info("Consuming Kafka topic",
		"topic", c.topic,
		"group_id", c.groupID,
	)

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				c.logger.Info("Context canceled, stopping consumer",
					"topic", c.topic,
					"group_id", c.groupID,
				)
				return nil
			}
			c.logger.Error("Failed to fetch message from Kafka",
				"topic", c.topic,
				"group_id", c.groupID,
				"error", err,
			)
			if !c.sleep(ctx) {
				return nil
			}
			continue
		}

		c.logger.Debug("Received message from Kafka",
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"key", string(msg.Key),
		)

		if !c.handle(ctx, msg, handler) {
			return nil
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("Failed to commit message",
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
				"key", string(msg.Key),
				"error", err,
			)
			continue
		}
		c.logger.Debug("Message committed successfully",
			"topic", msg.Topic,
			"offset", msg.Offset,
			"key", string(msg.Key),
		)
	}
}

// handle runs handler with retries. It returns false if ctx ended first.
// Plain failures get c.attempts tries; retryable ones are retried with
// doubling backoff, capped at maxBackoff, for as long as ctx lives.
func (c *KafkaConsumer) handle(ctx context.Context, msg kafka.Message, handler MessageHandler) bool {
	attempts := c.attempts
	if attempts <= 0 {
		attempts = 1
	}
	backoff := c.backoff

	for attempt := 1; ; attempt++ {
		err := handler(ctx, msg.Key, msg.Value)
		if err == nil {
			return true
		}
		if ctx.Err() != nil {
			return false
		}

		retryable := IsRetryable(err)
		c.logger.Error("Failed to process message",
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"key", string(msg.Key),
			"attempt", attempt,
			"retryable", retryable,
			"error", err,
		)

		if !retryable && attempt >= attempts {
			c.logger.Warn("Giving up on message after retries",
				"topic", msg.Topic,
				"offset", msg.Offset,
				"key", string(msg.Key),
			)
			return true
		}

		if !c.wait(ctx, backoff) {
			return false
		}
		if retryable {
			backoff = c.nextBackoff(backoff)
		}
	}
}

func (c *KafkaConsumer) nextBackoff(d time.Duration) time.Duration {
	next := d * 2
	if c.maxBackoff > 0 && next > c.maxBackoff {
		return c.maxBackoff
	}
	return next
}

func (c *KafkaConsumer) sleep(ctx context.Context) bool {
	return c.wait(ctx, c.backoff)
}

func (c *KafkaConsumer) wait(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (c *KafkaConsumer) Close() error {
	if c.reader != nil {
		return c.reader.Close()
	}
	return nil
}

var _ Consumer = (*KafkaConsumer)(nil)
