package message

import (
	_ "embed"
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/types"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrSchema = errors.New("invalid broker API schema")

//go:embed schema.yaml
var embeddedSchema []byte

// Signature is a method name with its formal parameters.
type Signature struct {
	Name   string
	Params []Field
}

// Surface is one side of the broker API, e.g. the callback wrapper.
type Surface struct {
	Name    string
	Methods []Signature
}

// Schema holds both API surfaces the registry is built from.
type Schema struct {
	Wrapper Surface
	Client  Surface
}

type surfaceDoc struct {
	Name    string   `yaml:"name"`
	Methods []string `yaml:"methods"`
}

type schemaDoc struct {
	Wrapper surfaceDoc `yaml:"wrapper"`
	Client  surfaceDoc `yaml:"client"`
}

// ParseSchema decodes a schema document. Every method entry is a signature
// such as "tickPrice(reqId int, price float64)".
func ParseSchema(data []byte) (Schema, error) {
	var doc schemaDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Schema{}, fmt.Errorf("failed to decode schema: %v: %w", err, ErrSchema)
	}
	if len(doc.Wrapper.Methods) == 0 || len(doc.Client.Methods) == 0 {
		return Schema{}, fmt.Errorf("schema needs wrapper and client methods: %w", ErrSchema)
	}

	wrapper, err := parseSurface(doc.Wrapper)
	if err != nil {
		return Schema{}, err
	}
	client, err := parseSurface(doc.Client)
	if err != nil {
		return Schema{}, err
	}
	return Schema{Wrapper: wrapper, Client: client}, nil
}

func parseSurface(doc surfaceDoc) (Surface, error) {
	s := Surface{Name: doc.Name, Methods: make([]Signature, 0, len(doc.Methods))}
	for _, line := range doc.Methods {
		sig, err := ParseSignature(line)
		if err != nil {
			return Surface{}, fmt.Errorf("%s: %w", doc.Name, err)
		}
		s.Methods = append(s.Methods, sig)
	}
	return s, nil
}

// ParseSignature parses "name(p1 T1, p2 T2)" using the Go parser.
func ParseSignature(line string) (Signature, error) {
	line = strings.TrimSpace(line)
	open := strings.IndexByte(line, '(')
	if open <= 0 || !strings.HasSuffix(line, ")") {
		return Signature{}, fmt.Errorf("malformed signature %q: %w", line, ErrSchema)
	}
	name := strings.TrimSpace(line[:open])

	expr, err := parser.ParseExpr("func" + line[open:])
	if err != nil {
		return Signature{}, fmt.Errorf("parse %q: %v: %w", line, err, ErrSchema)
	}
	fn, ok := expr.(*ast.FuncType)
	if !ok {
		return Signature{}, fmt.Errorf("signature %q is not a function: %w", line, ErrSchema)
	}

	sig := Signature{Name: name}
	for _, p := range fn.Params.List {
		if len(p.Names) == 0 {
			return Signature{}, fmt.Errorf("%s: unnamed parameter: %w", name, ErrSchema)
		}
		goType := types.ExprString(p.Type)
		for _, n := range p.Names {
			sig.Params = append(sig.Params, Field{Name: n.Name, GoType: goType, Kind: kindOf(goType)})
		}
	}
	return sig, nil
}

var (
	errorMethod   = regexp.MustCompile(`(?i)^error`)
	constructor   = regexp.MustCompile(`(?i)^(__init__|init|new)$`)
	requestMethod = regexp.MustCompile(`(?i)^(req|cancel|place)`)
)

// IsCallback reports whether a wrapper method becomes a message type.
func IsCallback(name string) bool {
	return !errorMethod.MatchString(name) && !constructor.MatchString(name)
}

// IsRequestName reports whether a client method becomes Pre/Post types.
func IsRequestName(name string) bool {
	return requestMethod.MatchString(name)
}

// Callbacks returns the wrapper signatures admitted as messages, by name.
func (s Schema) Callbacks() []Signature {
	return filterSorted(s.Wrapper.Methods, IsCallback)
}

// Requests returns the client signatures admitted as messages, by name.
func (s Schema) Requests() []Signature {
	return filterSorted(s.Client.Methods, IsRequestName)
}

func filterSorted(in []Signature, keep func(string) bool) []Signature {
	out := make([]Signature, 0, len(in))
	for _, sig := range in {
		if keep(sig.Name) {
			out = append(out, sig)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
