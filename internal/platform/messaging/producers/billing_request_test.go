package producers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/subscription-billing-ledger/internal/domain/shared"
)

func TestBillingRunProducer_PublishRunRequest(t *testing.T) {
	ctx := context.Background()
	req := &shared.BillingRunRequest{
		RunID:         uuid.New(),
		OwnerID:       uuid.New(),
		TargetDate:    "2024-01-31",
		CorrelationID: "corr-1",
		RequestedAt:   time.Now().UTC(),
	}

	t.Run("keyed by owner", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := &BillingRunProducer{logger: discardLogger(), writer: mockWriter, topic: "billing_run_requests"}

		mockWriter.On("WriteMessages", ctx, mock.MatchedBy(func(msgs []kafka.Message) bool {
			if len(msgs) != 1 || string(msgs[0].Key) != req.OwnerID.String() {
				return false
			}
			var decoded shared.BillingRunRequest
			if err := json.Unmarshal(msgs[0].Value, &decoded); err != nil {
				return false
			}
			return decoded.RunID == req.RunID && decoded.TargetDate == "2024-01-31"
		})).Return(nil).Once()

		require.NoError(t, producer.PublishRunRequest(ctx, req))
		mockWriter.AssertExpectations(t)
	})

	t.Run("writer error", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := &BillingRunProducer{logger: discardLogger(), writer: mockWriter, topic: "billing_run_requests"}
		writeErr := errors.New("leader not available")

		mockWriter.On("WriteMessages", ctx, mock.AnythingOfType("[]kafka.Message")).Return(writeErr).Once()

		err := producer.PublishRunRequest(ctx, req)
		assert.ErrorIs(t, err, writeErr)
		mockWriter.AssertExpectations(t)
	})
}

func TestBillingRunProducer_Close(t *testing.T) {
	mockWriter := new(MockKafkaWriter)
	producer := &BillingRunProducer{logger: discardLogger(), writer: mockWriter, topic: "billing_run_requests"}
	mockWriter.On("Close").Return(nil).Once()

	require.NoError(t, producer.Close())
	mockWriter.AssertExpectations(t)
}
