// Package mongo holds the MongoDB charge journal, a read model fed from the Postgres outbox.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/subscription-billing-ledger/internal/domain/journal"
)

const (
	// JournalCollectionName is the name of the charge journal collection in MongoDB
	JournalCollectionName = "charge_journal"
)

// JournalRepository implements the journal.Repository interface for MongoDB
type JournalRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewJournalRepository creates a new MongoDB journal repository
func NewJournalRepository(logger *slog.Logger, db *mongo.Database) *JournalRepository {
	return &JournalRepository{
		db:     db,
		logger: logger,
	}
}

// EnsureIndexes creates the unique transaction index and the owner listing indexes.
func (r *JournalRepository) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "transaction_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_transaction_id"),
		},
		{
			Keys:    bson.D{{Key: "owner_id", Value: 1}, {Key: "charged_at", Value: -1}},
			Options: options.Index().SetName("owner_charged_at"),
		},
		{
			Keys:    bson.D{{Key: "owner_id", Value: 1}, {Key: "subscription_id", Value: 1}, {Key: "charged_at", Value: -1}},
			Options: options.Index().SetName("owner_subscription_charged_at"),
		},
	}

	if _, err := r.db.Collection(JournalCollectionName).Indexes().CreateMany(ctx, models); err != nil {
		r.logger.Error("Failed to create journal indexes", "error", err)
		return fmt.Errorf("failed to create journal indexes: %w", err)
	}
	return nil
}

// Create stores a journal entry. A second entry for the same transaction
// returns ErrDuplicateEntry.
func (r *JournalRepository) Create(ctx context.Context, entry *journal.Entry) error {
	collection := r.db.Collection(JournalCollectionName)

	if entry.JournaledAt == nil {
		now := time.Now().UTC()
		entry.JournaledAt = &now
	}

	_, err := collection.InsertOne(ctx, entry)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return journal.ErrDuplicateEntry{TransactionID: entry.TransactionID}
		}
		r.logger.Error("Failed to create journal entry",
			"transaction_id", entry.TransactionID.String(),
			"error", err)
		return fmt.Errorf("failed to create journal entry: %w", err)
	}

	return nil
}

// GetByTransactionID retrieves a journal entry by its transaction ID.
// Returns ErrEntryNotFound if no entry exists for the given transaction.
func (r *JournalRepository) GetByTransactionID(ctx context.Context, transactionID uuid.UUID) (*journal.Entry, error) {
	collection := r.db.Collection(JournalCollectionName)

	filter := bson.M{"transaction_id": transactionID}
	var entry journal.Entry
	err := collection.FindOne(ctx, filter).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, journal.ErrEntryNotFound{TransactionID: transactionID}
		}
		r.logger.Error("Failed to get journal entry",
			"transaction_id", transactionID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get journal entry: %w", err)
	}

	return &entry, nil
}

// ListByOwner returns an owner's charges, newest first
func (r *JournalRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*journal.Entry, error) {
	return r.find(ctx, bson.M{"owner_id": ownerID}, limit, offset)
}

// ListBySubscription returns the charge history of one subscription, newest first
func (r *JournalRepository) ListBySubscription(ctx context.Context, ownerID, subscriptionID uuid.UUID, limit, offset int) ([]*journal.Entry, error) {
	return r.find(ctx, bson.M{"owner_id": ownerID, "subscription_id": subscriptionID}, limit, offset)
}

// CountByOwner counts the journal entries of an owner
func (r *JournalRepository) CountByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	collection := r.db.Collection(JournalCollectionName)

	count, err := collection.CountDocuments(ctx, bson.M{"owner_id": ownerID})
	if err != nil {
		r.logger.Error("Failed to count journal entries",
			"owner_id", ownerID.String(),
			"error", err)
		return 0, fmt.Errorf("failed to count journal entries: %w", err)
	}

	return count, nil
}

func (r *JournalRepository) find(ctx context.Context, filter bson.M, limit, offset int) ([]*journal.Entry, error) {
	collection := r.db.Collection(JournalCollectionName)

	opts := options.Find().
		SetSort(bson.D{{Key: "charged_at", Value: -1}, {Key: "transaction_id", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to get journal entries", "error", err)
		return nil, fmt.Errorf("failed to get journal entries: %w", err)
	}
	defer cursor.Close(ctx)

	entries := []*journal.Entry{}
	if err := cursor.All(ctx, &entries); err != nil {
		r.logger.Error("Failed to decode journal entries", "error", err)
		return nil, fmt.Errorf("failed to decode journal entries: %w", err)
	}

	return entries, nil
}
