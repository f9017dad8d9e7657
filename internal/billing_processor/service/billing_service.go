package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/panjf2000/ants/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/subscription-billing-ledger/internal/domain/asset"
	"github.com/subscription-billing-ledger/internal/domain/billing"
	"github.com/subscription-billing-ledger/internal/domain/shared"
	"github.com/subscription-billing-ledger/internal/domain/subscription"
	"github.com/subscription-billing-ledger/internal/platform/observability"
	"github.com/subscription-billing-ledger/internal/platform/persistence"
)

var tracer = otel.Tracer("github.com/subscription-billing-ledger/internal/billing_processor/service")

// maxChargeAttempts bounds retries of a contended charge within one run
const maxChargeAttempts = 2

type BillingServiceImpl struct {
	db         persistence.TxBeginner
	subs       DueLister
	applier    ChargeApplier
	groupPool  *ants.Pool
	metrics    RunRecorder
	runTimeout time.Duration
	logger     *slog.Logger
}

// NewBillingService wires the billing engine. Asset groups of one run are
// spread over groupPool; a nil pool bills them one after another.
func NewBillingService(
	db persistence.TxBeginner,
	subs DueLister,
	applier ChargeApplier,
	groupPool *ants.Pool,
	metrics RunRecorder,
	runTimeout time.Duration,
	logger *slog.Logger,
) *BillingServiceImpl {
	if metrics == nil {
		metrics = noopRecorder{}
	}
	return &BillingServiceImpl{
		db:         db,
		subs:       subs,
		applier:    applier,
		groupPool:  groupPool,
		metrics:    metrics,
		runTimeout: runTimeout,
		logger:     logger,
	}
}

// ProcessBilling bills every subscription of ownerID that is due on targetDate.
// Per-subscription failures are reported in the result. Only a store failure
// fails the call, and then no result is returned.
func (s *BillingServiceImpl) ProcessBilling(ctx context.Context, ownerID uuid.UUID, targetDate time.Time) (*billing.RunResult, error) {
	start := time.Now()
	if ownerID == uuid.Nil || targetDate.IsZero() {
		s.metrics.ObserveBillingRun(observability.RunStatusInvalid, time.Since(start))
		return nil, billing.ErrInvalidRun
	}
	targetDate = shared.DateOf(targetDate)
	run := runFromContext(ctx)

	ctx, span := tracer.Start(ctx, "BillingService.ProcessBilling", trace.WithAttributes(
		attribute.String("owner_id", ownerID.String()),
		attribute.String("run_id", run.ID.String()),
		attribute.String("target_date", shared.FormatDate(targetDate)),
	))
	defer span.End()

	if s.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.runTimeout)
		defer cancel()
	}

	logger := s.logger.With(
		"owner_id", ownerID.String(),
		"run_id", run.ID.String(),
		"target_date", shared.FormatDate(targetDate),
	)
	if run.CorrelationID != "" {
		logger = logger.With("correlation_id", run.CorrelationID)
	}

	due, err := s.subs.ListDue(ctx, ownerID, targetDate)
	if err != nil {
		logger.Error("Failed to select due subscriptions", "error", err)
		return nil, s.failRun(span, start, fmt.Errorf("%w: failed to select due subscriptions: %w", shared.ErrStoreUnavailable, err))
	}
	logger.Info("Selected due subscriptions", "count", len(due))

	results, err := s.chargeAll(ctx, run, ownerID, targetDate, due, logger)
	if err != nil {
		logger.Error("Billing run aborted", "error", err)
		return nil, s.failRun(span, start, fmt.Errorf("%w: %w", shared.ErrStoreUnavailable, err))
	}

	outcomes := make([]billing.Outcome, 0, len(results))
	for _, r := range results {
		if r == nil {
			continue
		}
		outcomes = append(outcomes, r.Outcome)
		if r.Outcome.Success {
			s.metrics.IncrCharge(observability.ChargeSucceeded)
			s.metrics.AddChargedAmount(r.Currency, r.Outcome.Amount.Float64())
		} else {
			s.metrics.IncrCharge(observability.ChargeFailed)
		}
	}
	result := billing.NewRunResult(targetDate, outcomes)

	span.SetAttributes(
		attribute.Int("billing.total", result.TotalProcessed),
		attribute.Int("billing.successful", result.Successful),
		attribute.Int("billing.failed", result.Failed),
	)
	s.metrics.ObserveBillingRun(observability.RunStatusCompleted, time.Since(start))
	logger.Info("Billing run completed",
		"total", result.TotalProcessed,
		"successful", result.Successful,
		"failed", result.Failed,
		"duration", time.Since(start).String(),
	)
	return result, nil
}

func (s *BillingServiceImpl) failRun(span trace.Span, start time.Time, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	s.metrics.ObserveBillingRun(observability.RunStatusUnavailable, time.Since(start))
	return err
}

// chargeAll bills the selection asset group by asset group. Groups run
// concurrently; charges within a group run in selection order. The returned
// slice is indexed like due, with nil for subscriptions that were skipped.
func (s *BillingServiceImpl) chargeAll(
	ctx context.Context,
	run runInfo,
	ownerID uuid.UUID,
	targetDate time.Time,
	due []*subscription.Subscription,
	logger *slog.Logger,
) ([]*ChargeResult, error) {
	results := make([]*ChargeResult, len(due))
	if len(due) == 0 {
		return results, nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		failOnce sync.Once
		fatal    error
	)
	for _, group := range groupByAsset(due) {
		group := group
		task := func() {
			defer wg.Done()
			for _, i := range group {
				if runCtx.Err() != nil {
					return
				}
				charge := Charge{
					RunID:          run.ID,
					OwnerID:        ownerID,
					SubscriptionID: due[i].ID,
					TargetDate:     targetDate,
					CorrelationID:  run.CorrelationID,
				}
				res, err := s.billOne(runCtx, charge, due[i], logger)
				if err != nil {
					failOnce.Do(func() {
						fatal = err
						cancel()
					})
					return
				}
				results[i] = res
			}
		}

		wg.Add(1)
		if s.groupPool == nil {
			task()
			continue
		}
		if err := s.groupPool.Submit(task); err != nil {
			logger.Warn("Failed to submit asset group to pool, billing inline", "error", err)
			task()
		}
	}
	wg.Wait()

	if fatal != nil {
		return nil, fatal
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// billOne charges one subscription, retrying once on contention. A nil
// result with a nil error means the subscription is no longer due.
func (s *BillingServiceImpl) billOne(ctx context.Context, charge Charge, selected *subscription.Subscription, logger *slog.Logger) (*ChargeResult, error) {
	logger = logger.With("subscription_id", charge.SubscriptionID.String())

	for attempt := 1; ; attempt++ {
		res, err := s.chargeInTx(ctx, charge)

		var declined billing.DeclinedError
		switch {
		case err == nil:
			return res, nil
		case errors.Is(err, subscription.ErrNotDue):
			logger.Info("Subscription no longer due after lock, skipping")
			return nil, nil
		case errors.As(err, &declined) && res != nil:
			logger.Info("Charge declined", "reason", declined.Message)
			return res, nil
		case isContention(err):
			if attempt < maxChargeAttempts {
				logger.Warn("Charge contended, retrying", "attempt", attempt, "error", err)
				continue
			}
			logger.Warn("Charge still contended, reporting failure", "attempt", attempt, "error", err)
			return &ChargeResult{Outcome: billing.Outcome{
				SubscriptionID:   selected.ID,
				SubscriptionName: selected.Name,
				Amount:           selected.Amount,
				AssetID:          selected.AssetID,
				Success:          false,
				Message:          billing.MessageConcurrentModified,
			}}, nil
		default:
			return nil, fmt.Errorf("failed to charge subscription %s: %w", charge.SubscriptionID, err)
		}
	}
}

func (s *BillingServiceImpl) chargeInTx(ctx context.Context, charge Charge) (*ChargeResult, error) {
	var res *ChargeResult
	err := persistence.RunInTx(ctx, s.db, func(tx pgx.Tx) error {
		var applyErr error
		res, applyErr = s.applier.Apply(ctx, tx, charge)
		return applyErr
	})
	return res, err
}

// groupByAsset partitions due by linked asset in order of first appearance.
// Subscriptions without an asset form singleton groups.
func groupByAsset(due []*subscription.Subscription) [][]int {
	var groups [][]int
	byAsset := make(map[uuid.UUID]int)
	for i, sub := range due {
		if sub.AssetID == nil {
			groups = append(groups, []int{i})
			continue
		}
		if g, ok := byAsset[*sub.AssetID]; ok {
			groups[g] = append(groups[g], i)
			continue
		}
		byAsset[*sub.AssetID] = len(groups)
		groups = append(groups, []int{i})
	}
	return groups
}

func isContention(err error) bool {
	return errors.Is(err, asset.ErrConcurrentModification{}) ||
		errors.Is(err, subscription.ErrConcurrentModification{})
}

type noopRecorder struct{}

func (noopRecorder) ObserveBillingRun(string, time.Duration) {}
func (noopRecorder) IncrCharge(string)                       {}
func (noopRecorder) AddChargedAmount(string, float64)        {}
