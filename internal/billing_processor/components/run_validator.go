package components

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/subscription-billing-ledger/internal/billing_processor/service"
	"github.com/subscription-billing-ledger/internal/domain/billing"
	"github.com/subscription-billing-ledger/internal/domain/shared"
)

type RunValidatorImpl struct{}

func NewRunValidator() service.RunValidator {
	return RunValidatorImpl{}
}

// Validate checks the owner and parses the target date of req
func (RunValidatorImpl) Validate(req *shared.BillingRunRequest) (time.Time, error) {
	if req.RunID == uuid.Nil {
		return time.Time{}, fmt.Errorf("%w: run id is required", billing.ErrInvalidRun)
	}
	if req.OwnerID == uuid.Nil {
		return time.Time{}, fmt.Errorf("%w: %w", billing.ErrInvalidRun, shared.ErrInvalidOwner)
	}
	date, err := shared.ParseDate(req.TargetDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %w", billing.ErrInvalidRun, err)
	}
	return date, nil
}
