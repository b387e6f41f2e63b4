// Package sender wraps a broker client so every request is bracketed by Pre
// and Post messages on the dispatcher.
package sender

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"ibconn/internal/broker"
	"ibconn/internal/dispatcher"
	"ibconn/internal/message"
)

var ErrNotRequest = errors.New("not a client request method")

type Sender struct {
	client     broker.Client
	dispatcher *dispatcher.Dispatcher
	log        *slog.Logger
}

type Option func(*Sender)

func WithLogger(log *slog.Logger) Option {
	return func(s *Sender) { s.log = log }
}

func New(client broker.Client, d *dispatcher.Dispatcher, opts ...Option) *Sender {
	s := &Sender{client: client, dispatcher: d}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sender) Client() broker.Client { return s.client }

// Connect opens the backend session with w receiving its callbacks.
// The backend's error is returned unchanged and left to the caller (or the
// brokerobs middleware) to log.
func (s *Sender) Connect(ctx context.Context, host string, port, clientID int, w broker.Wrapper) (bool, error) {
	if err := s.client.Connect(ctx, host, port, clientID, w); err != nil {
		return false, err
	}
	if s.log != nil {
		s.log.InfoContext(ctx, "Connected to broker", "host", host, "port", port, "client_id", clientID)
	}
	return true, nil
}

func (s *Sender) Disconnect(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Sender) IsConnected() bool {
	return s.client.IsConnected()
}

// Handles reports whether method is a request the sender can issue.
func (s *Sender) Handles(method string) bool {
	return s.dispatcher.Registry().IsRequest(method)
}

// Call issues a request: the Pre message is dispatched, the backend is
// called, and the Post message follows only if the backend accepted it.
func (s *Sender) Call(ctx context.Context, method string, args ...any) error {
	if !s.Handles(method) {
		return fmt.Errorf("call %s: %w", method, ErrNotRequest)
	}
	reg := s.dispatcher.Registry()
	pre, _ := reg.Variant(method, message.VariantPre)
	post, _ := reg.Variant(method, message.VariantPost)

	fields, err := pre.FromArgs(args...)
	if err != nil {
		return fmt.Errorf("call %s: %w", method, err)
	}
	if err := s.dispatcher.Dispatch(ctx, pre.Name, fields); err != nil {
		return err
	}
	if err := s.client.Request(ctx, method, args...); err != nil {
		return err
	}
	return s.dispatcher.Dispatch(ctx, post.Name, fields)
}
