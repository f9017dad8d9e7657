package producers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker"

	"github.com/subscription-billing-ledger/internal/config"
	"github.com/subscription-billing-ledger/internal/domain/billing"
)

// ErrPublisherOpen is returned while the circuit breaker rejects writes
var ErrPublisherOpen = errors.New("result publisher circuit is open")

// FailureRecorder counts failed publishes
type FailureRecorder interface {
	IncrPublisherFailure(topic string)
}

// ResultProducer publishes billing run results behind a circuit breaker
type ResultProducer struct {
	logger   *slog.Logger
	writer   KafkaWriter
	breaker  *gobreaker.CircuitBreaker
	failures FailureRecorder
	topic    string
}

func NewResultProducer(logger *slog.Logger, cfg *config.KafkaConfig, breaker *gobreaker.CircuitBreaker, failures FailureRecorder) (*ResultProducer, error) {
	if cfg.BillingResultTopic == "" {
		return nil, fmt.Errorf("kafka billing result topic is not configured")
	}

	if err := EnsureTopic(logger, cfg, cfg.BillingResultTopic); err != nil {
		return nil, fmt.Errorf("failed to ensure billing result topic %s exists: %w", cfg.BillingResultTopic, err)
	}

	return &ResultProducer{
		logger:   logger,
		writer:   newSyncWriter(logger, cfg, cfg.BillingResultTopic),
		breaker:  breaker,
		failures: failures,
		topic:    cfg.BillingResultTopic,
	}, nil
}

// PublishResult writes the outcome of one run, keyed by owner
func (p *ResultProducer) PublishResult(ctx context.Context, result *billing.RunResultMessage) error {
	return p.Publish(ctx, result.OwnerID.String(), result)
}

func (p *ResultProducer) Publish(ctx context.Context, key string, value interface{}) error {
	msg, err := encodeMessage(key, value, kafka.Header{Key: "content-type", Value: []byte("application/json")})
	if err != nil {
		return fmt.Errorf("failed to marshal billing run result: %w", err)
	}

	_, err = p.breaker.Execute(func() (interface{}, error) {
		return nil, p.writer.WriteMessages(ctx, msg)
	})
	if err != nil {
		if p.failures != nil {
			p.failures.IncrPublisherFailure(p.topic)
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			p.logger.Warn("Result publisher circuit open, dropping write", "topic", p.topic, "key", key)
			return fmt.Errorf("%w: %v", ErrPublisherOpen, err)
		}
		p.logger.Error("Failed to publish billing run result",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish message to %s: %w", p.topic, err)
	}

	return nil
}

func (p *ResultProducer) Close() error {
	p.logger.Info("Closing billing result producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
