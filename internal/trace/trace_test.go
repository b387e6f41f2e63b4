package trace

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledStartSpanIsNoop(t *testing.T) {
	t.Setenv("LOG_TRACING_ENABLED", "false")
	require.NoError(t, Init())
	assert.False(t, Enabled())

	ctx, span := StartSpan(context.Background(), "broker.Request")
	defer span.End()
	assert.False(t, span.SpanContext().IsValid())

	_, _, ok := GetTraceFields(ctx)
	assert.False(t, ok)
}

func TestEnabledExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, InitWithConfig(Config{Enabled: true, Output: &buf, Sync: true}))
	t.Cleanup(func() {
		_ = Shutdown(context.Background())
		enabled, tracer, tracerProvider = false, nil, nil
	})

	ctx, span := StartSpan(context.Background(), "broker.Connect")
	traceID, spanID, ok := GetTraceFields(ctx)
	require.True(t, ok)
	assert.Equal(t, span.SpanContext().TraceID().String(), traceID)
	assert.Equal(t, span.SpanContext().SpanID().String(), spanID)
	span.End()

	assert.Contains(t, buf.String(), "broker.Connect")
	assert.Contains(t, buf.String(), ServiceName)
}
