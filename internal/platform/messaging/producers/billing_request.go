package producers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/subscription-billing-ledger/internal/config"
	"github.com/subscription-billing-ledger/internal/domain/shared"
)

// BillingRunProducer enqueues billing run requests. Messages are keyed by owner,
// so every run of one owner lands on the same partition and is consumed in order.
type BillingRunProducer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
}

// NewBillingRunProducer ensures the request topic exists and opens a synchronous writer
func NewBillingRunProducer(logger *slog.Logger, cfg *config.KafkaConfig) (*BillingRunProducer, error) {
	if cfg.BillingRequestTopic == "" {
		return nil, fmt.Errorf("kafka billing request topic is not configured")
	}

	if err := EnsureTopic(logger, cfg, cfg.BillingRequestTopic); err != nil {
		return nil, fmt.Errorf("failed to ensure billing request topic %s exists: %w", cfg.BillingRequestTopic, err)
	}

	return &BillingRunProducer{
		logger: logger,
		writer: newSyncWriter(logger, cfg, cfg.BillingRequestTopic),
		topic:  cfg.BillingRequestTopic,
	}, nil
}

// PublishRunRequest writes req and returns once the brokers acknowledged it
func (p *BillingRunProducer) PublishRunRequest(ctx context.Context, req *shared.BillingRunRequest) error {
	return p.Publish(ctx, req.OwnerID.String(), req)
}

func (p *BillingRunProducer) Publish(ctx context.Context, key string, value interface{}) error {
	msg, err := encodeMessage(key, value)
	if err != nil {
		return fmt.Errorf("failed to marshal billing run request: %w", err)
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish billing run request",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish message to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published billing run request", "topic", p.topic, "key", key)
	return nil
}

func (p *BillingRunProducer) Close() error {
	p.logger.Info("Closing billing run request producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}

var (
	_ MessagePublisher = (*BillingRunProducer)(nil)
	_ KafkaWriter      = (*kafka.Writer)(nil)
)
