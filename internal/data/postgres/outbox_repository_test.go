package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/subscription-billing-ledger/internal/domain/outbox"
	"github.com/subscription-billing-ledger/internal/domain/shared"
)

var outboxRowColumns = []string{"id", "transaction_id", "subscription_id", "owner_id", "payload", "status", "attempts", "created_at", "last_attempt_at"}

func testOutboxMessage() *outbox.Message {
	return &outbox.Message{
		TransactionID:  uuid.New(),
		SubscriptionID: uuid.New(),
		OwnerID:        uuid.New(),
		Payload:        json.RawMessage(`{"amount":"15.00"}`),
		Status:         shared.OutboxStatusPending,
		CreatedAt:      time.Now().UTC(),
	}
}

func TestOutboxRepository_Create(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &OutboxRepository{querier: mock, logger: newTestLogger()}
	msg := testOutboxMessage()
	query := `INSERT INTO charge_outbox \(transaction_id, subscription_id, owner_id, payload, status, attempts, created_at\) VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7\) RETURNING id`
	args := []any{msg.TransactionID, msg.SubscriptionID, msg.OwnerID, msg.Payload, msg.Status, msg.Attempts, msg.CreatedAt}

	t.Run("success assigns id", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(args...).WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))

		require.NoError(t, repo.Create(ctx, msg))
		assert.Equal(t, int64(7), msg.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate transaction", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(args...).WillReturnError(&pgconn.PgError{Code: pgUniqueViolation})

		err := repo.Create(ctx, msg)
		var dup outbox.ErrDuplicateMessage
		require.ErrorAs(t, err, &dup)
		assert.Equal(t, msg.TransactionID, dup.TransactionID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("db error")
		mock.ExpectQuery(query).WithArgs(args...).WillReturnError(dbErr)

		err := repo.Create(ctx, msg)
		assert.ErrorIs(t, err, dbErr)
		assert.Contains(t, err.Error(), "failed to create outbox message")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOutboxRepository_GetPending(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &OutboxRepository{querier: mock, logger: newTestLogger()}
	msg := testOutboxMessage()
	msg.ID = 3
	query := `FROM charge_outbox WHERE status = \$1 ORDER BY created_at ASC, id ASC LIMIT \$2`

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(shared.OutboxStatusPending, 10).
			WillReturnRows(pgxmock.NewRows(outboxRowColumns).
				AddRow(msg.ID, msg.TransactionID, msg.SubscriptionID, msg.OwnerID, msg.Payload, msg.Status, msg.Attempts, msg.CreatedAt, msg.LastAttemptAt))

		messages, err := repo.GetPending(ctx, 10)
		require.NoError(t, err)
		require.Len(t, messages, 1)
		assert.Equal(t, msg, messages[0])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query error", func(t *testing.T) {
		dbErr := errors.New("db error")
		mock.ExpectQuery(query).WithArgs(shared.OutboxStatusPending, 10).WillReturnError(dbErr)

		messages, err := repo.GetPending(ctx, 10)
		assert.Nil(t, messages)
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOutboxRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &OutboxRepository{querier: mock, logger: newTestLogger()}
	query := `UPDATE charge_outbox SET status = \$1, last_attempt_at = \$2 WHERE id = \$3`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(shared.OutboxStatusProcessed, pgxmock.AnyArg(), int64(3)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		assert.NoError(t, repo.UpdateStatus(ctx, 3, shared.OutboxStatusProcessed))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing message", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(shared.OutboxStatusFailedToPublish, pgxmock.AnyArg(), int64(9)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.UpdateStatus(ctx, 9, shared.OutboxStatusFailedToPublish)
		var notFound outbox.ErrMessageNotFound
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, int64(9), notFound.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOutboxRepository_RecordFailure(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &OutboxRepository{querier: mock, logger: newTestLogger()}
	query := `SET attempts = attempts \+ 1, last_attempt_at = \$1, status = CASE WHEN attempts \+ 1 >= \$2 THEN \$3 ELSE status END WHERE id = \$4 RETURNING status`

	t.Run("still pending", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(pgxmock.AnyArg(), 3, shared.OutboxStatusFailedToPublish, int64(4)).
			WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow(shared.OutboxStatusPending))

		status, err := repo.RecordFailure(ctx, 4, 3)
		require.NoError(t, err)
		assert.Equal(t, shared.OutboxStatusPending, status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("gives up", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(pgxmock.AnyArg(), 3, shared.OutboxStatusFailedToPublish, int64(5)).
			WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow(shared.OutboxStatusFailedToPublish))

		status, err := repo.RecordFailure(ctx, 5, 3)
		require.NoError(t, err)
		assert.Equal(t, shared.OutboxStatusFailedToPublish, status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing message", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(pgxmock.AnyArg(), 3, shared.OutboxStatusFailedToPublish, int64(9)).
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.RecordFailure(ctx, 9, 3)
		var notFound outbox.ErrMessageNotFound
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, int64(9), notFound.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("db error")
		mock.ExpectQuery(query).
			WithArgs(pgxmock.AnyArg(), 3, shared.OutboxStatusFailedToPublish, int64(6)).
			WillReturnError(dbErr)

		_, err := repo.RecordFailure(ctx, 6, 3)
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
