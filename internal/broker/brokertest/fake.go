// Package brokertest provides a scripted broker.Client for tests.
package brokertest

import (
	"context"
	"sync"

	"ibconn/internal/broker"
)

// Call records one Request.
type Call struct {
	Method string
	Args   []any
}

// Client records requests and returns the configured errors.
type Client struct {
	ConnectErr error
	RequestErr map[string]error
	// OnRequest runs before Request returns; it may drive the wrapper.
	OnRequest func(ctx context.Context, w broker.Wrapper, method string, args []any)

	mu        sync.Mutex
	connected bool
	wrapper   broker.Wrapper
	calls     []Call
	host      string
	port      int
	clientID  int
}

var _ broker.Client = (*Client)(nil)

func (c *Client) Connect(ctx context.Context, host string, port int, clientID int, w broker.Wrapper) error {
	if c.ConnectErr != nil {
		return c.ConnectErr
	}
	c.mu.Lock()
	c.connected = true
	c.wrapper = w
	c.host, c.port, c.clientID = host, port, clientID
	c.mu.Unlock()
	return nil
}

func (c *Client) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
	return nil
}

func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *Client) Request(ctx context.Context, method string, args ...any) error {
	c.mu.Lock()
	c.calls = append(c.calls, Call{Method: method, Args: args})
	w := c.wrapper
	c.mu.Unlock()

	if err := c.RequestErr[method]; err != nil {
		return err
	}
	if c.OnRequest != nil {
		c.OnRequest(ctx, w, method, args)
	}
	return nil
}

func (c *Client) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Call, len(c.calls))
	copy(out, c.calls)
	return out
}

// Endpoint returns what the last Connect was given.
func (c *Client) Endpoint() (host string, port, clientID int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.host, c.port, c.clientID
}

func (c *Client) Wrapper() broker.Wrapper {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wrapper
}
