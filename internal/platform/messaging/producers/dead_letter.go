package producers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/subscription-billing-ledger/internal/config"
)

// ErrDLQDisabled is returned by a nil DLQProducer
var ErrDLQDisabled = errors.New("DLQ producer not initialized")

const (
	headerDLQReason      = "dlq-reason"
	headerDLQSourceTopic = "dlq-source-topic"
)

// DLQProducer parks billing run requests the processor refused to run
type DLQProducer struct {
	logger      *slog.Logger
	writer      KafkaWriter
	dlqTopic    string
	sourceTopic string
}

// deadLetter is the DLQ record. Value keeps the request verbatim so it can be
// replayed onto the source topic once fixed.
type deadLetter struct {
	SourceTopic string    `json:"source_topic"`
	Key         string    `json:"key"`
	Value       string    `json:"value"`
	Reason      string    `json:"reason"`
	RejectedAt  time.Time `json:"rejected_at"`
}

// NewDLQProducer returns a nil producer when no DLQ topic is configured.
// A nil *DLQProducer is usable and reports ErrDLQDisabled.
func NewDLQProducer(logger *slog.Logger, cfg *config.KafkaConfig) (*DLQProducer, error) {
	if cfg.DLQTopic == "" {
		logger.Info("DLQ topic is not configured, rejected billing requests will only be logged")
		return nil, nil
	}

	if err := EnsureTopic(logger, cfg, cfg.DLQTopic); err != nil {
		return nil, fmt.Errorf("failed to ensure DLQ topic %s exists: %w", cfg.DLQTopic, err)
	}

	return &DLQProducer{
		logger:      logger.With("topic", cfg.DLQTopic),
		writer:      newSyncWriter(logger, cfg, cfg.DLQTopic),
		dlqTopic:    cfg.DLQTopic,
		sourceTopic: cfg.BillingRequestTopic,
	}, nil
}

func (p *DLQProducer) PublishToDLQ(ctx context.Context, key string, value []byte, reason string) error {
	if p == nil || p.writer == nil {
		return ErrDLQDisabled
	}

	payload, err := json.Marshal(deadLetter{
		SourceTopic: p.sourceTopic,
		Key:         key,
		Value:       string(value),
		Reason:      reason,
		RejectedAt:  time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal dead letter: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: headerDLQReason, Value: []byte(reason)},
			{Key: headerDLQSourceTopic, Value: []byte(p.sourceTopic)},
		},
	})
	if err != nil {
		p.logger.Error("Failed to park billing request in DLQ", "key", key, "error", err)
		return fmt.Errorf("failed to publish message to DLQ %s: %w", p.dlqTopic, err)
	}

	p.logger.Warn("Billing request parked in DLQ", "key", key, "reason", reason)
	return nil
}

func (p *DLQProducer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close DLQ writer for topic %s: %w", p.dlqTopic, err)
	}
	return nil
}
