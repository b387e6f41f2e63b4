package message

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownField = errors.New("unknown message field")
	ErrFieldKind    = errors.New("field value has wrong kind")
	ErrTooManyArgs  = errors.New("too many arguments for message type")
)

// Variant marks the request message emitted before or after a client call.
type Variant string

const (
	VariantNone Variant = ""
	VariantPre  Variant = "Pre"
	VariantPost Variant = "Post"
)

// Fields holds named field values used to construct a Message.
type Fields map[string]any

// Type is a message type descriptor. Its field set is fixed at build time.
type Type struct {
	Name    string
	Method  string
	Variant Variant
	Fields  []Field
	IsError bool

	index map[string]int
}

func newType(name, method string, variant Variant, fields []Field) *Type {
	t := &Type{
		Name:    name,
		Method:  method,
		Variant: variant,
		Fields:  fields,
		index:   make(map[string]int, len(fields)),
	}
	for i, f := range fields {
		t.index[f.Name] = i
	}
	return t
}

// FieldNames returns the declared field names in order.
func (t *Type) FieldNames() []string {
	names := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		names[i] = f.Name
	}
	return names
}

// Has reports whether name is a declared field.
func (t *Type) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// FromArgs maps positional arguments onto the declared fields in order.
func (t *Type) FromArgs(args ...any) (Fields, error) {
	if len(args) > len(t.Fields) {
		return nil, fmt.Errorf("%s takes %d fields, got %d: %w", t.Name, len(t.Fields), len(args), ErrTooManyArgs)
	}
	fields := make(Fields, len(args))
	for i, v := range args {
		fields[t.Fields[i].Name] = v
	}
	return fields, nil
}

func (t *Type) String() string {
	return t.Name + "(" + strings.Join(t.FieldNames(), ", ") + ")"
}

// Message is one event record of a given Type.
type Message struct {
	typ    *Type
	values []any
}

// Item is a (field name, value) pair.
type Item struct {
	Key   string
	Value any
}

// New builds a message of type t. Only declared fields are accepted;
// fields not given stay nil.
func New(t *Type, fields Fields) (*Message, error) {
	m := &Message{typ: t, values: make([]any, len(t.Fields))}
	for name, v := range fields {
		i, ok := t.index[name]
		if !ok {
			return nil, fmt.Errorf("%s has no field %q: %w", t.Name, name, ErrUnknownField)
		}
		f := t.Fields[i]
		if !f.Kind.accepts(v) {
			return nil, fmt.Errorf("%s.%s wants %s, got %T: %w", t.Name, name, f.Kind, v, ErrFieldKind)
		}
		m.values[i] = v
	}
	return m, nil
}

func (m *Message) Type() *Type { return m.typ }

// TypeName is the name of the message type, e.g. "TickPrice".
func (m *Message) TypeName() string { return m.typ.Name }

// Method is the broker API method the message type was derived from.
func (m *Message) Method() string { return m.typ.Method }

func (m *Message) Keys() []string { return m.typ.FieldNames() }

func (m *Message) Values() []any {
	out := make([]any, len(m.values))
	copy(out, m.values)
	return out
}

func (m *Message) Items() []Item {
	items := make([]Item, len(m.values))
	for i, f := range m.typ.Fields {
		items[i] = Item{Key: f.Name, Value: m.values[i]}
	}
	return items
}

func (m *Message) Len() int { return len(m.values) }

// Get returns the value of a field. ok is false for undeclared fields.
func (m *Message) Get(name string) (any, bool) {
	i, ok := m.typ.index[name]
	if !ok {
		return nil, false
	}
	return m.values[i], true
}

// Int returns an integer field, 0 when unset or not an integer.
func (m *Message) Int(name string) int64 {
	v, _ := m.Get(name)
	switch n := v.(type) {
	case int:
		return int64(n)
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	case uint:
		return int64(n)
	case uint8:
		return int64(n)
	case uint16:
		return int64(n)
	case uint32:
		return int64(n)
	case uint64:
		return int64(n)
	}
	return 0
}

// Float returns a numeric field as float64, 0 when unset.
func (m *Message) Float(name string) float64 {
	v, _ := m.Get(name)
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	}
	if isInteger(v) {
		return float64(m.Int(name))
	}
	return 0
}

// Text returns a string field, "" when unset.
func (m *Message) Text(name string) string {
	v, _ := m.Get(name)
	s, _ := v.(string)
	return s
}

func (m *Message) Bool(name string) bool {
	v, _ := m.Get(name)
	b, _ := v.(bool)
	return b
}

// String renders "<TypeName k=v, ...>" with the fields that are set.
func (m *Message) String() string {
	parts := make([]string, 0, len(m.values))
	for _, it := range m.Items() {
		if it.Value == nil {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%v", it.Key, it.Value))
	}
	if len(parts) == 0 {
		return "<" + m.typ.Name + ">"
	}
	return "<" + m.typ.Name + " " + strings.Join(parts, ", ") + ">"
}

func (m *Message) MarshalJSON() ([]byte, error) {
	fields := make(map[string]any, len(m.values))
	for _, it := range m.Items() {
		fields[it.Key] = it.Value
	}
	return json.Marshal(struct {
		Type   string         `json:"type"`
		Method string         `json:"method"`
		Fields map[string]any `json:"fields"`
	}{m.typ.Name, m.typ.Method, fields})
}
