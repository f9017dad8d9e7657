package components

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/subscription-billing-ledger/internal/domain/billing"
	"github.com/subscription-billing-ledger/internal/domain/shared"
)

func TestRunValidator_Validate(t *testing.T) {
	validator := NewRunValidator()

	tests := []struct {
		name        string
		request     *shared.BillingRunRequest
		expected    time.Time
		expectedErr error
	}{
		{
			name: "valid request",
			request: &shared.BillingRunRequest{
				RunID:      uuid.New(),
				OwnerID:    uuid.New(),
				TargetDate: "2024-02-29",
			},
			expected: time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "missing run id",
			request: &shared.BillingRunRequest{
				OwnerID:    uuid.New(),
				TargetDate: "2024-02-29",
			},
			expectedErr: billing.ErrInvalidRun,
		},
		{
			name: "missing owner",
			request: &shared.BillingRunRequest{
				RunID:      uuid.New(),
				TargetDate: "2024-02-29",
			},
			expectedErr: shared.ErrInvalidOwner,
		},
		{
			name: "malformed date",
			request: &shared.BillingRunRequest{
				RunID:      uuid.New(),
				OwnerID:    uuid.New(),
				TargetDate: "2024-02-30",
			},
			expectedErr: shared.ErrInvalidDate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			date, err := validator.Validate(tt.request)
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				assert.ErrorIs(t, err, billing.ErrInvalidRun)
				assert.True(t, date.IsZero())
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, date)
		})
	}
}
