package brokerobs

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"

	"ibconn/internal/broker"
	"ibconn/internal/logger"
	"ibconn/internal/trace"
)

// observableClient wraps a broker client with observability (logging & tracing)
type observableClient struct {
	client broker.Client
}

// Compile-time interface check
var _ broker.Client = (*observableClient)(nil)

// Wrap wraps a broker client with observability middleware
func Wrap(client broker.Client) broker.Client {
	return &observableClient{client: client}
}

// Unwrap returns the client underneath the middleware.
func Unwrap(client broker.Client) broker.Client {
	if oc, ok := client.(*observableClient); ok {
		return oc.client
	}
	return client
}

// Connect opens the session with observability
func (oc *observableClient) Connect(ctx context.Context, host string, port int, clientID int, w broker.Wrapper) error {
	ctx, span := trace.StartSpan(ctx, "broker.Connect", oteltrace.WithAttributes(
		attribute.String("host", host),
		attribute.Int("port", port),
		attribute.Int("client_id", clientID),
	))
	defer span.End()

	logger.InfoSkip(ctx, 1, "Connecting to broker", "host", host, "port", port, "client_id", clientID)

	if err := oc.client.Connect(ctx, host, port, clientID, w); err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to connect to broker", err, "host", host, "port", port)
		return err
	}

	logger.InfoSkip(ctx, 1, "Broker connected", "host", host, "port", port)
	return nil
}

// Disconnect closes the session with observability
func (oc *observableClient) Disconnect(ctx context.Context) error {
	ctx, span := trace.StartSpan(ctx, "broker.Disconnect")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Disconnecting from broker")
	if err := oc.client.Disconnect(ctx); err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to disconnect from broker", err)
		return fmt.Errorf("broker disconnect failed: %w", err)
	}
	return nil
}

func (oc *observableClient) IsConnected() bool {
	return oc.client.IsConnected()
}

// Request issues a request with observability
func (oc *observableClient) Request(ctx context.Context, method string, args ...any) error {
	ctx, span := trace.StartSpan(ctx, "broker."+method, oteltrace.WithAttributes(
		attribute.Int("args", len(args)),
	))
	defer span.End()

	logger.DebugSkip(ctx, 1, "Sending broker request", "method", method, "args", args)

	if err := oc.client.Request(ctx, method, args...); err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Broker request failed", err, "method", method)
		return err
	}

	logger.DebugSkip(ctx, 1, "Broker request sent", "method", method)
	return nil
}
