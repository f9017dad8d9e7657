package service

import (
	"context"

	"github.com/google/uuid"
)

type runKey struct{}

type runInfo struct {
	ID            uuid.UUID
	CorrelationID string
}

// ContextWithRun tags ctx with the run ID and correlation ID of a requested run.
// Runs started without it get a fresh run ID.
func ContextWithRun(ctx context.Context, runID uuid.UUID, correlationID string) context.Context {
	return context.WithValue(ctx, runKey{}, runInfo{ID: runID, CorrelationID: correlationID})
}

func runFromContext(ctx context.Context) runInfo {
	info, _ := ctx.Value(runKey{}).(runInfo)
	if info.ID == uuid.Nil {
		info.ID = uuid.New()
	}
	return info
}
