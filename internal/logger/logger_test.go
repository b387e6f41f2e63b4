package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"ibconn/internal/message"
)

func capture(t *testing.T, cfg LogConfig) *bytes.Buffer {
	t.Helper()
	prev := Logger()
	t.Cleanup(func() {
		mu.Lock()
		globalLogger = prev
		detailedLogging = false
		mu.Unlock()
		slog.SetDefault(prev)
	})
	var buf bytes.Buffer
	cfg.Output = &buf
	require.NoError(t, InitWithConfig(cfg))
	return &buf
}

func lastLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &out))
	return out
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"Warn":  slog.LevelWarn,
		"ERROR": slog.LevelError,
		"bogus": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLogLevel(in), in)
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_FORMAT", "pretty")
	t.Setenv("LOG_DETAILED", "true")

	cfg := LoadConfigFromEnv()
	assert.Equal(t, "DEBUG", cfg.Level)
	assert.Equal(t, "pretty", cfg.Format)
	assert.True(t, cfg.DetailedLogging)
}

func TestJSONLogging(t *testing.T) {
	buf := capture(t, LogConfig{Level: "INFO", Format: "json"})

	Info(context.Background(), "Connected to broker", "port", 7496)
	line := lastLine(t, buf)
	assert.Equal(t, "Connected to broker", line["msg"])
	assert.Equal(t, float64(7496), line["port"])

	ErrorWithErr(context.Background(), "Request failed", errors.New("boom"), "method", "reqIds")
	line = lastLine(t, buf)
	assert.Equal(t, "boom", line["error"])
	assert.Equal(t, "reqIds", line["method"])
}

func TestDebugNeedsDetailedLogging(t *testing.T) {
	buf := capture(t, LogConfig{Level: "DEBUG", Format: "json"})
	Debug(context.Background(), "hidden")
	assert.Empty(t, buf.String())

	buf = capture(t, LogConfig{Level: "DEBUG", Format: "json", DetailedLogging: true})
	DebugSkip(context.Background(), 0, "shown")
	line := lastLine(t, buf)
	assert.Equal(t, "shown", line["msg"])
	assert.Contains(t, line, "source")
}

func TestTraceIDsAdded(t *testing.T) {
	buf := capture(t, LogConfig{Level: "INFO", Format: "json"})
	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	Warn(ctx, "traced")
	line := lastLine(t, buf)
	assert.Equal(t, span.SpanContext().TraceID().String(), line["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), line["span_id"])
}

func TestMessage(t *testing.T) {
	buf := capture(t, LogConfig{Level: "INFO", Format: "json"})
	typ, ok := message.Default().Lookup("TickPrice")
	require.True(t, ok)
	msg, err := message.New(typ, message.Fields{"reqId": 1, "price": 101.5})
	require.NoError(t, err)

	Message(context.Background(), msg, "session_id", "s1")
	line := lastLine(t, buf)
	assert.Equal(t, "TickPrice", line["type"])
	assert.Equal(t, "tickPrice", line["method"])
	assert.Equal(t, 101.5, line["price"])
	assert.Equal(t, "s1", line["session_id"])
	assert.NotContains(t, line, "tickType")
}

func TestPrettyFormat(t *testing.T) {
	buf := capture(t, LogConfig{Level: "INFO", Format: "pretty"})
	Info(context.Background(), "Listening", "types", 3)
	assert.Contains(t, buf.String(), "Listening")
	assert.Contains(t, buf.String(), "types=3")
}
