package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"ibconn/internal/broker"
	"ibconn/internal/message"
)

var ErrUnknownRequest = errors.New("unknown request")

// parseRequestArgs decodes command line JSON values into the Go types of
// the request's parameters. String parameters also take bare words.
func parseRequestArgs(reg *message.Registry, method string, raw []string) ([]any, error) {
	typ, ok := reg.Variant(method, message.VariantPre)
	if !ok {
		return nil, fmt.Errorf("%s: %w", method, ErrUnknownRequest)
	}
	if len(raw) > len(typ.Fields) {
		return nil, fmt.Errorf("%s takes %d arguments, got %d", method, len(typ.Fields), len(raw))
	}

	args := make([]any, len(raw))
	for i, r := range raw {
		f := typ.Fields[i]
		v, err := decodeArg(f.GoType, r)
		if err != nil {
			return nil, fmt.Errorf("argument %d (%s %s): %w", i, f.Name, f.GoType, err)
		}
		args[i] = v
	}
	return args, nil
}

func decodeArg(goType, raw string) (any, error) {
	switch goType {
	case "int":
		return decode[int](raw)
	case "int64":
		return decode[int64](raw)
	case "float64":
		return decode[float64](raw)
	case "bool":
		return decode[bool](raw)
	case "string":
		if v, err := decode[string](raw); err == nil {
			return v, nil
		}
		return raw, nil
	case "Contract":
		return decode[broker.Contract](raw)
	case "Order":
		return decode[broker.Order](raw)
	case "ExecutionFilter":
		return decode[broker.ExecutionFilter](raw)
	case "[]TagValue":
		return decode[[]broker.TagValue](raw)
	default:
		return decode[any](raw)
	}
}

func decode[T any](raw string) (T, error) {
	var v T
	err := json.Unmarshal([]byte(raw), &v)
	return v, err
}
