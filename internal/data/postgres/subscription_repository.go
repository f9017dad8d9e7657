package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/subscription-billing-ledger/internal/domain/subscription"
	"github.com/subscription-billing-ledger/internal/platform/persistence"
)

const subscriptionColumns = `id, owner_id, name, category, amount, billing_cycle, next_billing_date, auto_renew, asset_id, status, version, created_at, updated_at`

// SubscriptionRepository implements the subscription.Repository interface for PostgreSQL
type SubscriptionRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewSubscriptionRepository(logger *slog.Logger, db *persistence.PostgresDB) subscription.Repository {
	return &SubscriptionRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *SubscriptionRepository) WithTx(tx pgx.Tx) subscription.Repository {
	return &SubscriptionRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func (r *SubscriptionRepository) Create(ctx context.Context, s *subscription.Subscription) error {
	query := `
		INSERT INTO subscriptions (id, owner_id, name, category, amount, billing_cycle, next_billing_date, auto_renew, asset_id, status, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.querier.Exec(ctx, query,
		s.ID,
		s.OwnerID,
		s.Name,
		s.Category,
		s.Amount,
		s.BillingCycle,
		s.NextBillingDate,
		s.AutoRenew,
		s.AssetID,
		s.Status,
		s.Version,
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create subscription", "subscription_id", s.ID.String(), "error", err)
		return fmt.Errorf("failed to create subscription: %w", err)
	}

	return nil
}

func (r *SubscriptionRepository) GetByID(ctx context.Context, ownerID, id uuid.UUID) (*subscription.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE id = $1 AND owner_id = $2
	`

	s, err := scanSubscription(r.querier.QueryRow(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, subscription.ErrSubscriptionNotFound{SubscriptionID: id}
		}
		r.logger.Error("Failed to get subscription", "subscription_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return s, nil
}

// List returns an owner's subscriptions, optionally narrowed to one status
func (r *SubscriptionRepository) List(ctx context.Context, ownerID uuid.UUID, status *subscription.Status) ([]*subscription.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE owner_id = $1
		ORDER BY next_billing_date ASC, id ASC
	`
	args := []any{ownerID}
	if status != nil {
		query = `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE owner_id = $1 AND status = $2
		ORDER BY next_billing_date ASC, id ASC
	`
		args = append(args, *status)
	}

	return r.query(ctx, "list subscriptions", query, args...)
}

func (r *SubscriptionRepository) Update(ctx context.Context, s *subscription.Subscription) error {
	query := `
		UPDATE subscriptions
		SET name = $1, category = $2, amount = $3, billing_cycle = $4, next_billing_date = $5,
			auto_renew = $6, asset_id = $7, status = $8, version = $9, updated_at = $10
		WHERE id = $11 AND owner_id = $12 AND version = $13
	`

	result, err := r.querier.Exec(ctx, query,
		s.Name,
		s.Category,
		s.Amount,
		s.BillingCycle,
		s.NextBillingDate,
		s.AutoRenew,
		s.AssetID,
		s.Status,
		s.Version,
		s.UpdatedAt,
		s.ID,
		s.OwnerID,
		s.Version-1, // Check previous version for optimistic locking
	)
	if err != nil {
		if isContention(err) {
			return subscription.ErrConcurrentModification{SubscriptionID: s.ID}
		}
		r.logger.Error("Failed to update subscription", "subscription_id", s.ID.String(), "error", err)
		return fmt.Errorf("failed to update subscription: %w", err)
	}

	if result.RowsAffected() == 0 {
		return subscription.ErrConcurrentModification{SubscriptionID: s.ID}
	}

	return nil
}

// Delete removes a subscription. Historical charges keep their subscription_id
// detached through ON DELETE SET NULL.
func (r *SubscriptionRepository) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	query := `
		DELETE FROM subscriptions
		WHERE id = $1 AND owner_id = $2
	`

	result, err := r.querier.Exec(ctx, query, id, ownerID)
	if err != nil {
		r.logger.Error("Failed to delete subscription", "subscription_id", id.String(), "error", err)
		return fmt.Errorf("failed to delete subscription: %w", err)
	}

	if result.RowsAffected() == 0 {
		return subscription.ErrSubscriptionNotFound{SubscriptionID: id}
	}

	return nil
}

func (r *SubscriptionRepository) ListDue(ctx context.Context, ownerID uuid.UUID, targetDate time.Time) ([]*subscription.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE owner_id = $1 AND status = $2 AND next_billing_date <= $3
		ORDER BY next_billing_date ASC, id ASC
	`

	return r.query(ctx, "list due subscriptions", query, ownerID, subscription.StatusActive, targetDate)
}

func (r *SubscriptionRepository) ListUpcoming(ctx context.Context, ownerID uuid.UUID, from, to time.Time) ([]*subscription.Upcoming, error) {
	query := `
		SELECT s.id, s.owner_id, s.name, s.category, s.amount, s.billing_cycle, s.next_billing_date,
			s.auto_renew, s.asset_id, s.status, s.version, s.created_at, s.updated_at, a.name
		FROM subscriptions s
		LEFT JOIN assets a ON a.id = s.asset_id
		WHERE s.owner_id = $1 AND s.status = $2 AND s.next_billing_date BETWEEN $3 AND $4
		ORDER BY s.next_billing_date ASC, s.id ASC
	`

	rows, err := r.querier.Query(ctx, query, ownerID, subscription.StatusActive, from, to)
	if err != nil {
		r.logger.Error("Failed to list upcoming subscriptions", "owner_id", ownerID.String(), "error", err)
		return nil, fmt.Errorf("failed to list upcoming subscriptions: %w", err)
	}
	defer rows.Close()

	upcoming := []*subscription.Upcoming{}
	for rows.Next() {
		var (
			s         subscription.Subscription
			assetName *string
		)
		err := rows.Scan(
			&s.ID,
			&s.OwnerID,
			&s.Name,
			&s.Category,
			&s.Amount,
			&s.BillingCycle,
			&s.NextBillingDate,
			&s.AutoRenew,
			&s.AssetID,
			&s.Status,
			&s.Version,
			&s.CreatedAt,
			&s.UpdatedAt,
			&assetName,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan upcoming subscription: %w", err)
		}
		upcoming = append(upcoming, &subscription.Upcoming{Subscription: &s, AssetName: assetName})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over upcoming subscriptions: %w", err)
	}

	return upcoming, nil
}

func (r *SubscriptionRepository) OwnersWithDue(ctx context.Context, targetDate time.Time) ([]uuid.UUID, error) {
	query := `
		SELECT DISTINCT owner_id
		FROM subscriptions
		WHERE status = $1 AND next_billing_date <= $2
		ORDER BY owner_id
	`

	rows, err := r.querier.Query(ctx, query, subscription.StatusActive, targetDate)
	if err != nil {
		r.logger.Error("Failed to list owners with due subscriptions", "error", err)
		return nil, fmt.Errorf("failed to list owners with due subscriptions: %w", err)
	}
	defer rows.Close()

	owners := []uuid.UUID{}
	for rows.Next() {
		var owner uuid.UUID
		if err := rows.Scan(&owner); err != nil {
			return nil, fmt.Errorf("failed to scan owner id: %w", err)
		}
		owners = append(owners, owner)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over owners: %w", err)
	}

	return owners, nil
}

// LockForUpdate obtains a row lock on the subscription and returns its current state
func (r *SubscriptionRepository) LockForUpdate(ctx context.Context, ownerID, id uuid.UUID) (*subscription.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE id = $1 AND owner_id = $2
		FOR UPDATE
	`

	s, err := scanSubscription(r.querier.QueryRow(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, subscription.ErrSubscriptionNotFound{SubscriptionID: id}
		}
		if isContention(err) {
			return nil, subscription.ErrConcurrentModification{SubscriptionID: id}
		}
		r.logger.Error("Failed to lock subscription for update", "subscription_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to lock subscription for update: %w", err)
	}

	return s, nil
}

func (r *SubscriptionRepository) query(ctx context.Context, op, query string, args ...any) ([]*subscription.Subscription, error) {
	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to "+op, "error", err)
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	defer rows.Close()

	subs := []*subscription.Subscription{}
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over subscriptions: %w", err)
	}

	return subs, nil
}

func scanSubscription(row pgx.Row) (*subscription.Subscription, error) {
	var s subscription.Subscription
	err := row.Scan(
		&s.ID,
		&s.OwnerID,
		&s.Name,
		&s.Category,
		&s.Amount,
		&s.BillingCycle,
		&s.NextBillingDate,
		&s.AutoRenew,
		&s.AssetID,
		&s.Status,
		&s.Version,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
