package util

import (
	"context"

	"github.com/appbaseio/world-search/errors"
	"github.com/google/uuid"
)

type contextKey string

// runIDCtxKey is a key against which the id of the current reindex run is stored.
const runIDCtxKey = contextKey("run_id")

// NewRunID returns a fresh identifier for a reindex run.
func NewRunID() string {
	return uuid.New().String()
}

// NewRunIDContext returns a new context carrying the given run id.
func NewRunIDContext(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDCtxKey, runID)
}

// RunIDFromContext retrieves the run id stored in the context.
func RunIDFromContext(ctx context.Context) (string, error) {
	ctxRunID := ctx.Value(runIDCtxKey)
	if ctxRunID == nil {
		return "", errors.NewNotFoundInContextError("RunID")
	}
	runID, ok := ctxRunID.(string)
	if !ok {
		return "", errors.NewInvalidCastError("ctxRunID", "string")
	}
	return runID, nil
}
