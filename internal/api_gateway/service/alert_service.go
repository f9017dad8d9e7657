package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/subscription-billing-ledger/internal/domain/billing"
	"github.com/subscription-billing-ledger/internal/domain/shared"
	"github.com/subscription-billing-ledger/internal/domain/subscription"
)

var tracer = otel.Tracer("github.com/subscription-billing-ledger/internal/api_gateway/service")

var ErrInvalidHorizon = errors.New("alert horizon must be a non-negative number of days")

// AlertServiceImpl implements the AlertService interface
type AlertServiceImpl struct {
	subscriptionRepo subscription.Repository
	defaultDays      int
	now              func() time.Time
	logger           *slog.Logger
}

// NewAlertService creates an alert service. now defaults to time.Now.
func NewAlertService(logger *slog.Logger, subscriptionRepo subscription.Repository, defaultDays int, now func() time.Time) AlertService {
	if now == nil {
		now = time.Now
	}
	return &AlertServiceImpl{
		subscriptionRepo: subscriptionRepo,
		defaultDays:      defaultDays,
		now:              now,
		logger:           logger,
	}
}

// GetAlerts lists active subscriptions billed within [today, today+days],
// ordered by billing date then subscription id
func (s *AlertServiceImpl) GetAlerts(ctx context.Context, ownerID uuid.UUID, days *int) ([]billing.Alert, error) {
	horizon := s.defaultDays
	if days != nil {
		horizon = *days
	}
	if horizon < 0 {
		return nil, ErrInvalidHorizon
	}

	ctx, span := tracer.Start(ctx, "AlertService.GetAlerts", trace.WithAttributes(
		attribute.Int("horizon_days", horizon),
	))
	defer span.End()

	today := shared.DateOf(s.now().UTC())
	upcoming, err := s.subscriptionRepo.ListUpcoming(ctx, ownerID, today, today.AddDate(0, 0, horizon))
	if err != nil {
		s.logger.Error("Failed to list upcoming subscriptions", "owner_id", ownerID.String(), "error", err)
		return nil, err
	}

	alerts := make([]billing.Alert, 0, len(upcoming))
	for _, u := range upcoming {
		sub := u.Subscription
		if sub.Status != subscription.StatusActive || sub.NextBillingDate.Before(today) {
			continue
		}
		alerts = append(alerts, billing.Alert{
			SubscriptionID:   sub.ID,
			SubscriptionName: sub.Name,
			Amount:           sub.Amount,
			BillingDate:      sub.NextBillingDate,
			AssetID:          sub.AssetID,
			AssetName:        u.AssetName,
			DaysUntilBilling: shared.DaysBetween(today, sub.NextBillingDate),
		})
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		if !alerts[i].BillingDate.Equal(alerts[j].BillingDate) {
			return alerts[i].BillingDate.Before(alerts[j].BillingDate)
		}
		return strings.Compare(alerts[i].SubscriptionID.String(), alerts[j].SubscriptionID.String()) < 0
	})

	span.SetAttributes(attribute.Int("alerts", len(alerts)))
	return alerts, nil
}
