package shared

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTraceID(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	assert.Empty(t, GetTraceID(ctx), "no trace ID before SetTraceID")

	ctx = SetTraceID(ctx)
	traceID := GetTraceID(ctx)
	assert.Len(t, traceID, TraceIDLength*2, "trace ID is hex-encoded")

	// Each context gets its own ID
	other := GetTraceID(SetTraceID(context.Background()))
	assert.NotEqual(t, traceID, other)
}

func TestOwnerID(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	_, ok := GetOwnerID(ctx)
	assert.False(t, ok, "no owner ID before SetOwnerID")

	ctx = SetOwnerID(ctx, "user-1")
	ownerID, ok := GetOwnerID(ctx)
	assert.True(t, ok)
	assert.Equal(t, "user-1", ownerID)

	// An empty owner ID is treated as unset
	_, ok = GetOwnerID(SetOwnerID(context.Background(), ""))
	assert.False(t, ok)
}
