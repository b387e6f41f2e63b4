// Package dispatcher routes broker messages to the listeners subscribed to
// their message type.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"ibconn/internal/message"
)

// AnyType is the wildcard bucket: its listeners receive every message.
const AnyType = "*"

var ErrUnknownType = errors.New("unknown message type")

// Listener receives dispatched messages. Implementations must be comparable
// (pointers, typically); they are subscribed and removed by identity.
type Listener interface {
	Handle(ctx context.Context, msg *message.Message) error
}

// FuncListener adapts a function to Listener. Keep the pointer returned by
// Func to unregister it later.
type FuncListener struct {
	fn func(ctx context.Context, msg *message.Message) error
}

// Func wraps fn in a listener with its own identity.
func Func(fn func(ctx context.Context, msg *message.Message) error) *FuncListener {
	return &FuncListener{fn: fn}
}

func (f *FuncListener) Handle(ctx context.Context, msg *message.Message) error {
	return f.fn(ctx, msg)
}

// listenerSet keeps insertion order so delivery order is stable.
type listenerSet struct {
	order []Listener
	index map[Listener]struct{}
}

func (s *listenerSet) add(l Listener) {
	if s.index == nil {
		s.index = make(map[Listener]struct{})
	}
	if _, ok := s.index[l]; ok {
		return
	}
	s.index[l] = struct{}{}
	s.order = append(s.order, l)
}

func (s *listenerSet) remove(l Listener) {
	if _, ok := s.index[l]; !ok {
		return
	}
	delete(s.index, l)
	for i, cur := range s.order {
		if cur == l {
			s.order = append(s.order[:i:i], s.order[i+1:]...)
			return
		}
	}
}

func (s *listenerSet) empty() bool { return len(s.order) == 0 }

// Dispatcher holds the subscriptions of one broker session.
type Dispatcher struct {
	registry *message.Registry
	log      *slog.Logger

	mu           sync.RWMutex
	listeners    map[string]*listenerSet
	errListeners listenerSet
}

type Option func(*Dispatcher)

// WithRegistry replaces the default message registry.
func WithRegistry(r *message.Registry) Option {
	return func(d *Dispatcher) { d.registry = r }
}

// WithLogger enables logging of dispatch failures.
func WithLogger(log *slog.Logger) Option {
	return func(d *Dispatcher) { d.log = log }
}

func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry:  message.Default(),
		listeners: make(map[string]*listenerSet),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) Registry() *message.Registry { return d.registry }

// Register subscribes l to each named message type, or to every known type
// when none is given. Registering twice has no further effect.
func (d *Dispatcher) Register(l Listener, types ...string) error {
	if len(types) == 0 {
		types = d.registry.TypeNames()
	}
	for _, name := range types {
		if name == AnyType {
			continue
		}
		if _, ok := d.registry.Lookup(name); !ok {
			return fmt.Errorf("register %s: %w", name, ErrUnknownType)
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for _, name := range types {
		set, ok := d.listeners[name]
		if !ok {
			set = &listenerSet{}
			d.listeners[name] = set
		}
		set.add(l)
	}
	return nil
}

// Unregister removes l from each named type, or from every type (the
// wildcard bucket included) when none is given. Types l was not subscribed
// to are ignored.
func (d *Dispatcher) Unregister(l Listener, types ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(types) == 0 {
		for name, set := range d.listeners {
			set.remove(l)
			if set.empty() {
				delete(d.listeners, name)
			}
		}
		return
	}
	for _, name := range types {
		set, ok := d.listeners[name]
		if !ok {
			continue
		}
		set.remove(l)
		if set.empty() {
			delete(d.listeners, name)
		}
	}
}

// RegisterError adds l to the error listeners, which also receive every
// Error message.
func (d *Dispatcher) RegisterError(l Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.errListeners.add(l)
}

func (d *Dispatcher) UnregisterError(l Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.errListeners.remove(l)
}

// Listeners returns the listeners subscribed to typeName.
func (d *Dispatcher) Listeners(typeName string) []Listener {
	d.mu.RLock()
	defer d.mu.RUnlock()

	set, ok := d.listeners[typeName]
	if !ok {
		return nil
	}
	out := make([]Listener, len(set.order))
	copy(out, set.order)
	return out
}

// Dispatch builds a message of typeName from fields and hands it to the
// listeners of that type, then the wildcard listeners, then (for Error)
// the error listeners. Each listener is called at most once. The first
// listener error stops delivery and is returned.
func (d *Dispatcher) Dispatch(ctx context.Context, typeName string, fields message.Fields) error {
	typ, ok := d.registry.Lookup(typeName)
	if !ok {
		err := fmt.Errorf("dispatch %s: %w", typeName, ErrUnknownType)
		d.logError(ctx, "Dispatch of unknown message type", err, typeName)
		return err
	}

	msg, err := message.New(typ, fields)
	if err != nil {
		err = fmt.Errorf("dispatch %s: %w", typeName, err)
		d.logError(ctx, "Failed to build message", err, typeName)
		return err
	}

	for _, l := range d.recipients(typ) {
		if err := l.Handle(ctx, msg); err != nil {
			err = fmt.Errorf("listener for %s: %w", typeName, err)
			d.logError(ctx, "Listener failed", err, typeName)
			return err
		}
	}
	return nil
}

// recipients snapshots the listeners for typ so they run outside the lock.
func (d *Dispatcher) recipients(typ *message.Type) []Listener {
	d.mu.RLock()
	defer d.mu.RUnlock()

	seen := make(map[Listener]struct{})
	var out []Listener
	collect := func(set *listenerSet) {
		if set == nil {
			return
		}
		for _, l := range set.order {
			if _, dup := seen[l]; dup {
				continue
			}
			seen[l] = struct{}{}
			out = append(out, l)
		}
	}

	collect(d.listeners[typ.Name])
	collect(d.listeners[AnyType])
	if typ.IsError {
		collect(&d.errListeners)
	}
	return out
}

func (d *Dispatcher) logError(ctx context.Context, msg string, err error, typeName string) {
	if d.log == nil {
		return
	}
	d.log.ErrorContext(ctx, msg, "error", err, "type", typeName)
}
