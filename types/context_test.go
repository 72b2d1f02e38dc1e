package types

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()

	_, ok := RunID(ctx)
	assert.False(t, ok)

	ctx = WithRunID(ctx, "run-1")
	ctx = WithProfileID(ctx, "env1")
	ctx = WithTraceID(ctx, "trace-1")
	ctx = WithUserID(ctx, "u-1")

	runID, ok := RunID(ctx)
	assert.True(t, ok)
	assert.Equal(t, "run-1", runID)

	profileID, ok := ProfileID(ctx)
	assert.True(t, ok)
	assert.Equal(t, "env1", profileID)

	traceID, _ := TraceID(ctx)
	assert.Equal(t, "trace-1", traceID)

	userID, _ := UserID(ctx)
	assert.Equal(t, "u-1", userID)
}

func TestContextHelpers_EmptyValueIsAbsent(t *testing.T) {
	ctx := WithProfileID(context.Background(), "")
	_, ok := ProfileID(ctx)
	assert.False(t, ok)
}
