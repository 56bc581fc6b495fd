package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextWithLoggerIsStable(t *testing.T) {
	ctx, rlog := ContextWithLogger(context.Background())
	require.NotNil(t, rlog)

	requestID := RequestIDFromContext(ctx)
	assert.NotEmpty(t, requestID)

	// a second call reuses the existing logger and request id
	ctx2, rlog2 := ContextWithLogger(ctx)
	assert.Equal(t, ctx, ctx2)
	assert.Equal(t, rlog, rlog2)
	assert.Equal(t, requestID, RequestIDFromContext(ctx2))
}

func TestContextWithLoggerDevice(t *testing.T) {
	ctx, rlog := ContextWithLoggerDevice(context.Background(), "aa:bb:cc:dd:ee:ff")
	require.NotNil(t, rlog)
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", rlog.Data[deviceLoggerKey])

	// the request id survives the device annotation
	assert.NotEmpty(t, RequestIDFromContext(ctx))
	assert.Equal(t, rlog, FromContext(ctx))
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	assert.NotNil(t, FromContext(nil))
	assert.NotNil(t, FromContext(context.Background()))
	assert.Empty(t, RequestIDFromContext(context.Background()))
}
