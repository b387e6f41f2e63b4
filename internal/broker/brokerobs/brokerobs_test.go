package brokerobs

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ibconn/internal/broker"
	"ibconn/internal/broker/brokertest"
	"ibconn/internal/dispatcher"
	"ibconn/internal/logger"
	"ibconn/internal/receiver"
)

func TestWrapDelegates(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, logger.InitWithConfig(logger.LogConfig{Level: "INFO", Format: "json", Output: &buf}))

	fake := &brokertest.Client{}
	c := Wrap(fake)
	assert.Same(t, fake, Unwrap(c))
	assert.Same(t, fake, Unwrap(fake))

	ctx := context.Background()
	require.NoError(t, c.Connect(ctx, "localhost", 7496, 1, receiver.New(dispatcher.New())))
	assert.True(t, c.IsConnected())
	assert.Contains(t, buf.String(), "Broker connected")

	require.NoError(t, c.Request(ctx, "reqIds", 1))
	require.Len(t, fake.Calls(), 1)
	assert.Equal(t, []any{1}, fake.Calls()[0].Args)

	require.NoError(t, c.Disconnect(ctx))
	assert.False(t, c.IsConnected())
}

func TestWrapPropagatesErrors(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, logger.InitWithConfig(logger.LogConfig{Level: "INFO", Format: "json", Output: &buf}))

	refused := errors.New("refused")
	c := Wrap(&brokertest.Client{
		ConnectErr: refused,
		RequestErr: map[string]error{"reqPositions": broker.ErrNotConnected},
	})

	ctx := context.Background()
	assert.Same(t, refused, c.Connect(ctx, "localhost", 7496, 0, nil))
	assert.Same(t, broker.ErrNotConnected, c.Request(ctx, "reqPositions"))
	assert.Contains(t, buf.String(), "Broker request failed")
}
