package broker

import (
	"errors"
	"fmt"
)

var ErrBadArgument = errors.New("bad request argument")

// Args reads the positional arguments of a Request. Missing optional
// arguments read as zero values; a present argument of the wrong type is
// an error.
type Args []any

func (a Args) get(i int) (any, bool) {
	if i >= len(a) || a[i] == nil {
		return nil, false
	}
	return a[i], true
}

func (a Args) Int(i int) (int, error) {
	v, ok := a.get(i)
	if !ok {
		return 0, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case uint32:
		return int(n), nil
	case float64:
		if n == float64(int(n)) {
			return int(n), nil
		}
	}
	return 0, badArg(i, "int", v)
}

func (a Args) String(i int) (string, error) {
	v, ok := a.get(i)
	if !ok {
		return "", nil
	}
	s, isStr := v.(string)
	if !isStr {
		return "", badArg(i, "string", v)
	}
	return s, nil
}

func (a Args) Bool(i int) (bool, error) {
	v, ok := a.get(i)
	if !ok {
		return false, nil
	}
	b, isBool := v.(bool)
	if !isBool {
		return false, badArg(i, "bool", v)
	}
	return b, nil
}

func (a Args) Contract(i int) (Contract, error) {
	v, ok := a.get(i)
	if !ok {
		return Contract{}, nil
	}
	switch c := v.(type) {
	case Contract:
		return c, nil
	case *Contract:
		return *c, nil
	}
	return Contract{}, badArg(i, "Contract", v)
}

func (a Args) Order(i int) (Order, error) {
	v, ok := a.get(i)
	if !ok {
		return Order{}, nil
	}
	switch o := v.(type) {
	case Order:
		return o, nil
	case *Order:
		return *o, nil
	}
	return Order{}, badArg(i, "Order", v)
}

func badArg(i int, want string, got any) error {
	return fmt.Errorf("argument %d: want %s, got %T: %w", i, want, got, ErrBadArgument)
}
