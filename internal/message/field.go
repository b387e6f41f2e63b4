package message

// Kind is the coarse value class of a message field.
type Kind int

const (
	KindAny Kind = iota
	KindInt
	KindFloat
	KindString
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	default:
		return "any"
	}
}

// Field describes one message field, taken from a method parameter.
type Field struct {
	Name   string
	GoType string
	Kind   Kind
}

// kindOf maps a parameter's Go type expression to its Kind.
func kindOf(goType string) Kind {
	switch goType {
	case "int", "int8", "int16", "int32", "int64",
		"uint", "uint8", "uint16", "uint32", "uint64":
		return KindInt
	case "float32", "float64":
		return KindFloat
	case "string":
		return KindString
	case "bool":
		return KindBool
	default:
		return KindAny
	}
}

// accepts reports whether v can be stored in a field of kind k.
// nil is always accepted and means "undefined".
func (k Kind) accepts(v any) bool {
	if v == nil {
		return true
	}
	switch k {
	case KindInt:
		return isInteger(v)
	case KindFloat:
		switch v.(type) {
		case float32, float64:
			return true
		}
		return isInteger(v)
	case KindString:
		_, ok := v.(string)
		return ok
	case KindBool:
		_, ok := v.(bool)
		return ok
	default:
		return true
	}
}

func isInteger(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}
