package message

import (
	"fmt"
	"sort"
	"strings"
)

// ErrorFields is the fixed field set of the Error message type.
var ErrorFields = []Field{
	{Name: "id", GoType: "int", Kind: KindInt},
	{Name: "errorCode", GoType: "int", Kind: KindInt},
	{Name: "errorMsg", GoType: "string", Kind: KindString},
	{Name: "advancedOrderRejectJson", GoType: "string", Kind: KindString},
}

// Registry maps broker API method names to the message types delivered
// for them. It is read-only once built.
type Registry struct {
	byMethod map[string][]*Type
	byName   map[string]*Type
	requests map[string]bool
	methods  []string
	names    []string
}

// Build derives every message type from the schema: one type per wrapper
// callback, a Pre and a Post type per client request, and the fixed Error.
func Build(s Schema) (*Registry, error) {
	r := &Registry{
		byMethod: make(map[string][]*Type),
		byName:   make(map[string]*Type),
		requests: make(map[string]bool),
	}

	for _, sig := range s.Callbacks() {
		if err := r.add(sig, VariantNone); err != nil {
			return nil, err
		}
	}
	for _, sig := range s.Requests() {
		if err := r.add(sig, VariantPre, VariantPost); err != nil {
			return nil, err
		}
		r.requests[sig.Name] = true
	}
	if err := r.add(Signature{Name: "error", Params: ErrorFields}, VariantNone); err != nil {
		return nil, err
	}
	r.byName["Error"].IsError = true

	for m := range r.byMethod {
		r.methods = append(r.methods, m)
	}
	sort.Strings(r.methods)
	for n := range r.byName {
		r.names = append(r.names, n)
	}
	sort.Strings(r.names)
	return r, nil
}

func (r *Registry) add(sig Signature, variants ...Variant) error {
	if _, ok := r.byMethod[sig.Name]; ok {
		return fmt.Errorf("method %s declared twice: %w", sig.Name, ErrSchema)
	}
	for _, v := range variants {
		fields := make([]Field, len(sig.Params))
		copy(fields, sig.Params)

		t := newType(toTypeName(sig.Name)+string(v), sig.Name, v, fields)
		if _, dup := r.byName[t.Name]; dup {
			return fmt.Errorf("type %s declared twice: %w", t.Name, ErrSchema)
		}
		r.byName[t.Name] = t
		r.byMethod[sig.Name] = append(r.byMethod[sig.Name], t)
	}
	return nil
}

func toTypeName(method string) string {
	if method == "" {
		return method
	}
	return strings.ToUpper(method[:1]) + method[1:]
}

// Types returns the message types registered for a method, in variant
// order (Pre before Post).
func (r *Registry) Types(method string) []*Type {
	return r.byMethod[method]
}

// Lookup finds a message type by its type name.
func (r *Registry) Lookup(typeName string) (*Type, bool) {
	t, ok := r.byName[typeName]
	return t, ok
}

// TypeNames returns every distinct message type name, sorted.
func (r *Registry) TypeNames() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Methods returns every registered method name, sorted.
func (r *Registry) Methods() []string {
	out := make([]string, len(r.methods))
	copy(out, r.methods)
	return out
}

// IsRequest reports whether method is a client request with Pre/Post types.
func (r *Registry) IsRequest(method string) bool {
	return r.requests[method]
}

// RequestMethods returns the client request method names, sorted.
func (r *Registry) RequestMethods() []string {
	out := make([]string, 0, len(r.requests))
	for _, m := range r.methods {
		if r.requests[m] {
			out = append(out, m)
		}
	}
	return out
}

// Variant returns the type registered for method with the given variant.
func (r *Registry) Variant(method string, v Variant) (*Type, bool) {
	for _, t := range r.byMethod[method] {
		if t.Variant == v {
			return t, true
		}
	}
	return nil, false
}

var defaultRegistry = mustLoadDefault()

func mustLoadDefault() *Registry {
	r, err := Load(embeddedSchema)
	if err != nil {
		panic(fmt.Sprintf("message: %v", err))
	}
	return r
}

// Load parses a schema document and builds its registry.
func Load(data []byte) (*Registry, error) {
	s, err := ParseSchema(data)
	if err != nil {
		return nil, err
	}
	return Build(s)
}

// Default returns the registry built from the embedded broker API schema.
func Default() *Registry {
	return defaultRegistry
}
