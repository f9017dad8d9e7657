package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/subscription-billing-ledger/internal/domain/billing"
	"github.com/subscription-billing-ledger/internal/domain/money"
	"github.com/subscription-billing-ledger/internal/domain/shared"
	"github.com/subscription-billing-ledger/internal/domain/transaction"
)

var (
	ErrInvalidMonth     = errors.New("month must be between 1 and 12")
	ErrInvalidDateRange = errors.New("start_date must not be after end_date")
)

// StatisticsServiceImpl implements the StatisticsService interface
type StatisticsServiceImpl struct {
	reader           billing.StatisticsReader
	percentagePlaces int32
	logger           *slog.Logger
}

func NewStatisticsService(logger *slog.Logger, reader billing.StatisticsReader, percentagePlaces int) StatisticsService {
	return &StatisticsServiceImpl{
		reader:           reader,
		percentagePlaces: int32(percentagePlaces),
		logger:           logger,
	}
}

func (s *StatisticsServiceImpl) MonthlySpending(ctx context.Context, ownerID uuid.UUID, year, month int) (*billing.MonthlySpending, error) {
	if month < 1 || month > 12 {
		return nil, ErrInvalidMonth
	}
	ctx, span := tracer.Start(ctx, "StatisticsService.MonthlySpending", monthAttrs(year, month))
	defer span.End()

	from, to := shared.MonthRange(year, time.Month(month))
	total, err := s.reader.SumExpenses(ctx, ownerID, from, to, nil)
	if err != nil {
		return nil, err
	}
	return &billing.MonthlySpending{Year: year, Month: month, TotalSpending: total}, nil
}

// CategorySpending groups expenses by category, largest first. The total is
// the exact sum of the returned groups.
func (s *StatisticsServiceImpl) CategorySpending(ctx context.Context, ownerID uuid.UUID, start, end time.Time) (*billing.CategorySpending, error) {
	start, end = shared.DateOf(start), shared.DateOf(end)
	if start.After(end) {
		return nil, ErrInvalidDateRange
	}
	ctx, span := tracer.Start(ctx, "StatisticsService.CategorySpending", trace.WithAttributes(
		attribute.String("start_date", shared.FormatDate(start)),
		attribute.String("end_date", shared.FormatDate(end)),
	))
	defer span.End()

	groups, err := s.reader.ExpensesByCategory(ctx, ownerID, start, end)
	if err != nil {
		return nil, err
	}
	if groups == nil {
		groups = []billing.CategoryAmount{}
	}

	sort.SliceStable(groups, func(i, j int) bool {
		if c := groups[i].Amount.Cmp(groups[j].Amount); c != 0 {
			return c > 0
		}
		return groups[i].Category < groups[j].Category
	})

	total := money.Zero
	for _, g := range groups {
		total = total.Add(g.Amount)
	}
	return &billing.CategorySpending{Categories: groups, Total: total}, nil
}

func (s *StatisticsServiceImpl) SubscriptionSpending(ctx context.Context, ownerID uuid.UUID, year, month int) (*billing.SubscriptionSpending, error) {
	if month < 1 || month > 12 {
		return nil, ErrInvalidMonth
	}
	ctx, span := tracer.Start(ctx, "StatisticsService.SubscriptionSpending", monthAttrs(year, month))
	defer span.End()

	from, to := shared.MonthRange(year, time.Month(month))
	category := transaction.CategorySubscription
	total, err := s.reader.SumExpenses(ctx, ownerID, from, to, &category)
	if err != nil {
		return nil, err
	}
	return &billing.SubscriptionSpending{Year: year, Month: month, TotalSubscriptionSpending: total}, nil
}

// AssetDistribution reports each balance as a share of the owner's total.
// Rounded percentages may not add up to 100.
func (s *StatisticsServiceImpl) AssetDistribution(ctx context.Context, ownerID uuid.UUID) (*billing.AssetDistribution, error) {
	ctx, span := tracer.Start(ctx, "StatisticsService.AssetDistribution")
	defer span.End()

	balances, err := s.reader.AssetBalances(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	total := money.Zero
	for _, b := range balances {
		total = total.Add(b.Balance)
	}

	shares := make([]billing.AssetShare, 0, len(balances))
	for _, b := range balances {
		shares = append(shares, billing.AssetShare{
			AssetBalance: b,
			Percentage:   money.Percentage(b.Balance, total, s.percentagePlaces),
		})
	}
	span.SetAttributes(attribute.Int("assets", len(shares)))
	return &billing.AssetDistribution{Assets: shares, TotalAssets: total}, nil
}

// Overview runs the four dashboard aggregations concurrently. Each is one
// statement with its own snapshot. Category spending covers the whole month.
func (s *StatisticsServiceImpl) Overview(ctx context.Context, ownerID uuid.UUID, year, month int) (*Overview, error) {
	if month < 1 || month > 12 {
		return nil, ErrInvalidMonth
	}
	ctx, span := tracer.Start(ctx, "StatisticsService.Overview", monthAttrs(year, month))
	defer span.End()

	var out Overview
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		out.MonthlySpending, err = s.MonthlySpending(gctx, ownerID, year, month)
		return err
	})
	g.Go(func() error {
		var err error
		out.SubscriptionSpending, err = s.SubscriptionSpending(gctx, ownerID, year, month)
		return err
	})
	g.Go(func() error {
		from, to := shared.MonthRange(year, time.Month(month))
		var err error
		out.CategorySpending, err = s.CategorySpending(gctx, ownerID, from, to)
		return err
	})
	g.Go(func() error {
		var err error
		out.AssetDistribution, err = s.AssetDistribution(gctx, ownerID)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("Failed to build statistics overview", "owner_id", ownerID.String(), "error", err)
		return nil, err
	}
	return &out, nil
}

func monthAttrs(year, month int) trace.SpanStartOption {
	return trace.WithAttributes(attribute.Int("year", year), attribute.Int("month", month))
}
