package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/subscription-billing-ledger/internal/billing_processor/service"
	"github.com/subscription-billing-ledger/internal/domain/billing"
	"github.com/subscription-billing-ledger/internal/domain/shared"
	"github.com/subscription-billing-ledger/internal/platform/messaging/consumers"
	"github.com/subscription-billing-ledger/internal/platform/messaging/producers"
)

// ResultPublisher publishes the outcome of a requested run
type ResultPublisher interface {
	PublishResult(ctx context.Context, result *billing.RunResultMessage) error
}

// BillingRequestHandler handles billing run requests from Kafka
type BillingRequestHandler struct {
	billingService service.BillingService
	validator      service.RunValidator
	results        ResultPublisher
	producer       producers.DeadLetterPublisher
	logger         *slog.Logger
}

func NewBillingRequestHandler(
	logger *slog.Logger,
	billingService service.BillingService,
	validator service.RunValidator,
	results ResultPublisher,
	producer producers.DeadLetterPublisher,
) *BillingRequestHandler {
	return &BillingRequestHandler{
		billingService: billingService,
		validator:      validator,
		results:        results,
		producer:       producer,
		logger:         logger,
	}
}

// HandleMessage runs one requested billing run. Malformed requests are dead-lettered
// and acknowledged. An unavailable store is returned so the request is retried.
func (h *BillingRequestHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var request shared.BillingRunRequest
	if err := json.Unmarshal(value, &request); err != nil {
		return h.deadLetter(ctx, key, value, "Failed to unmarshal billing run request", err)
	}

	targetDate, err := h.validator.Validate(&request)
	if err != nil {
		return h.deadLetter(ctx, key, value, "Invalid billing run request", err)
	}

	logger := h.logger.With("run_id", request.RunID.String(), "owner_id", request.OwnerID.String())
	if request.CorrelationID != "" {
		logger = logger.With("correlation_id", request.CorrelationID)
	}
	logger.Info("Received billing run request", "target_date", request.TargetDate)

	runCtx := service.ContextWithRun(ctx, request.RunID, request.CorrelationID)
	result, err := h.billingService.ProcessBilling(runCtx, request.OwnerID, targetDate)

	message := &billing.RunResultMessage{
		RunID:         request.RunID,
		OwnerID:       request.OwnerID,
		TargetDate:    request.TargetDate,
		CorrelationID: request.CorrelationID,
		Result:        result,
		CompletedAt:   time.Now().UTC(),
	}
	if err != nil {
		if errors.Is(err, shared.ErrStoreUnavailable) {
			logger.Error("Billing run failed, store unavailable", "error", err)
			return consumers.Retryable(fmt.Errorf("billing run %s failed: %w", request.RunID, err))
		}
		logger.Warn("Billing run rejected", "error", err)
		message.Error = err.Error()
	}

	if err := h.results.PublishResult(ctx, message); err != nil {
		logger.Error("Failed to publish billing run result", "error", err)
		return fmt.Errorf("failed to publish result of billing run %s: %w", request.RunID, err)
	}

	logger.Info("Billing run request handled")
	return nil
}

func (h *BillingRequestHandler) deadLetter(ctx context.Context, key, value []byte, reason string, cause error) error {
	h.logger.Error(reason, "error", cause, "message_key", string(key))
	if h.producer == nil {
		return nil
	}

	dlqReason := fmt.Sprintf("%s: %s", reason, cause.Error())
	if err := h.producer.PublishToDLQ(ctx, string(key), value, dlqReason); err != nil {
		if errors.Is(err, producers.ErrDLQDisabled) {
			h.logger.Warn("DLQ disabled, dropping unprocessable message", "message_key", string(key))
			return nil
		}
		h.logger.Error("Failed to publish message to DLQ",
			"dlq_error", err,
			"original_error", cause,
			"message_key", string(key),
		)
		return fmt.Errorf("failed to dead-letter message: %w", err)
	}

	h.logger.Info("Published unprocessable message to DLQ", "message_key", string(key), "reason", dlqReason)
	return nil
}
