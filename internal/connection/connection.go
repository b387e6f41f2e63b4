// Package connection is the single facade over a broker session: it owns a
// dispatcher, a receiver feeding it and a sender issuing requests.
package connection

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"ibconn/internal/broker"
	"ibconn/internal/broker/paper"
	"ibconn/internal/dispatcher"
	"ibconn/internal/message"
	"ibconn/internal/receiver"
	"ibconn/internal/sender"
)

const (
	DefaultHost     = "localhost"
	DefaultPort     = 7496
	DefaultClientID = 0
)

// AttributeError is returned by Call for names no component provides.
type AttributeError struct {
	Type string
	Name string
}

func (e *AttributeError) Error() string {
	return fmt.Sprintf("'%s' object has no attribute '%s'", e.Type, e.Name)
}

type Connection struct {
	host     string
	port     int
	clientID int

	sessionID  string
	log        *slog.Logger
	client     broker.Client
	dispatcher *dispatcher.Dispatcher
	receiver   *receiver.Receiver
	sender     *sender.Sender
}

type Option func(*Connection)

func WithHost(host string) Option { return func(c *Connection) { c.host = host } }

func WithPort(port int) Option { return func(c *Connection) { c.port = port } }

func WithClientID(id int) Option { return func(c *Connection) { c.clientID = id } }

func WithDispatcher(d *dispatcher.Dispatcher) Option {
	return func(c *Connection) { c.dispatcher = d }
}

func WithReceiver(r *receiver.Receiver) Option {
	return func(c *Connection) { c.receiver = r }
}

func WithSender(s *sender.Sender) Option {
	return func(c *Connection) { c.sender = s }
}

// WithClient sets the backend used when no sender is given.
func WithClient(client broker.Client) Option {
	return func(c *Connection) { c.client = client }
}

func WithLogger(log *slog.Logger) Option {
	return func(c *Connection) { c.log = log }
}

// Create assembles a connection. Parts not supplied are built from the
// others: the dispatcher first, then a receiver and a sender bound to it.
// Without a client the sender talks to an in-memory paper broker.
func Create(opts ...Option) *Connection {
	c := &Connection{
		host:      DefaultHost,
		port:      DefaultPort,
		clientID:  DefaultClientID,
		sessionID: uuid.NewString(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.log != nil {
		c.log = c.log.With("session_id", c.sessionID)
	}
	if c.dispatcher == nil {
		var dopts []dispatcher.Option
		if c.log != nil {
			dopts = append(dopts, dispatcher.WithLogger(c.log))
		}
		c.dispatcher = dispatcher.New(dopts...)
	}
	if c.receiver == nil {
		c.receiver = receiver.New(c.dispatcher)
	}
	if c.sender == nil {
		if c.client == nil {
			c.client = paper.New(paper.Params{})
		}
		var sopts []sender.Option
		if c.log != nil {
			sopts = append(sopts, sender.WithLogger(c.log))
		}
		c.sender = sender.New(c.client, c.dispatcher, sopts...)
	}
	return c
}

func (c *Connection) Host() string { return c.host }

func (c *Connection) Port() int { return c.port }

func (c *Connection) ClientID() int { return c.clientID }

// SessionID identifies this connection in logs and the journal.
func (c *Connection) SessionID() string { return c.sessionID }

func (c *Connection) Dispatcher() *dispatcher.Dispatcher { return c.dispatcher }

func (c *Connection) Receiver() *receiver.Receiver { return c.receiver }

func (c *Connection) Sender() *sender.Sender { return c.sender }

// Connect opens the session on the configured endpoint with the receiver
// handling callbacks.
func (c *Connection) Connect(ctx context.Context) (bool, error) {
	return c.sender.Connect(ctx, c.host, c.port, c.clientID, c.receiver)
}

func (c *Connection) Disconnect(ctx context.Context) error { return c.sender.Disconnect(ctx) }

func (c *Connection) IsConnected() bool { return c.sender.IsConnected() }

func (c *Connection) Register(l dispatcher.Listener, types ...string) error {
	return c.dispatcher.Register(l, types...)
}

func (c *Connection) Unregister(l dispatcher.Listener, types ...string) {
	c.dispatcher.Unregister(l, types...)
}

func (c *Connection) RegisterError(l dispatcher.Listener) { c.dispatcher.RegisterError(l) }

func (c *Connection) UnregisterError(l dispatcher.Listener) { c.dispatcher.UnregisterError(l) }

func (c *Connection) Dispatch(ctx context.Context, typeName string, fields message.Fields) error {
	return c.dispatcher.Dispatch(ctx, typeName, fields)
}

// Call invokes a broker method by name. Wrapper callbacks go to the
// receiver, client requests to the sender.
func (c *Connection) Call(ctx context.Context, name string, args ...any) error {
	switch {
	case c.receiver.Handles(name):
		return c.receiver.Receive(ctx, name, args...)
	case c.sender.Handles(name):
		return c.sender.Call(ctx, name, args...)
	}
	return &AttributeError{Type: "Connection", Name: name}
}
