package decl

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yourorg/restspec/internal/schema"
	"github.com/yourorg/restspec/internal/schemaid"
)

var (
	ErrUnknownType = errors.New("unknown type")
	ErrInvalidType = errors.New("invalid type spec")
)

// Factory builds a type from the options of a type spec. opts is nil
// when the type is named without options.
type Factory func(l *Loader, opts *yaml.Node) (schema.Type, error)

func builtinTypes() map[string]Factory {
	return map[string]Factory{
		"string":          stringType,
		"integer":         integerType,
		"decimal":         decimalType,
		"decimal_string":  plain(schema.DecimalString{}),
		"boolean":         plain(schema.Boolean{}),
		"null":            plain(schema.Null{}),
		"date":            plain(schema.Date{}),
		"datetime":        plain(schema.DateTime{}),
		"email":           plain(schema.Email{}),
		"uuid":            plain(schema.UUID{}),
		"hash":            plain(schema.Hash{}),
		"one_of":          oneOfType,
		"array":           arrayType,
		"or":              orType,
		"embedded_schema": embeddedType,
		"schema_id":       schemaIDType,
	}
}

// ParseType turns a type spec into a type. A spec is a type name, a
// "a | b" union of names, or a single-key mapping from a type name to
// its options.
func (l *Loader) ParseType(node *yaml.Node) (schema.Type, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		if strings.Contains(node.Value, "|") {
			var alts []schema.Type
			for _, name := range strings.Split(node.Value, "|") {
				t, err := l.build(strings.TrimSpace(name), nil)
				if err != nil {
					return nil, err
				}
				alts = append(alts, t)
			}
			return schema.Or{Types: alts}, nil
		}
		return l.build(node.Value, nil)
	case yaml.MappingNode:
		if len(node.Content) != 2 {
			return nil, fmt.Errorf("line %d: a type spec names exactly one type: %w", node.Line, ErrInvalidType)
		}
		return l.build(node.Content[0].Value, node.Content[1])
	case 0:
		return nil, fmt.Errorf("no type given: %w", ErrInvalidType)
	default:
		return nil, fmt.Errorf("line %d: %w", node.Line, ErrInvalidType)
	}
}

func (l *Loader) build(name string, opts *yaml.Node) (schema.Type, error) {
	f, ok := l.types[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownType)
	}
	if opts != nil && opts.ShortTag() == "!!null" {
		opts = nil
	}
	t, err := f(l, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return t, nil
}

func plain(t schema.Type) Factory {
	return func(*Loader, *yaml.Node) (schema.Type, error) { return t, nil }
}

func decodeOpts(opts *yaml.Node, v any) error {
	if opts == nil {
		return nil
	}
	if opts.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: options must be a mapping: %w", opts.Line, ErrInvalidType)
	}
	return opts.Decode(v)
}

func stringType(_ *Loader, opts *yaml.Node) (schema.Type, error) {
	var o struct {
		MinLength int    `yaml:"min_length"`
		MaxLength int    `yaml:"max_length"`
		Format    string `yaml:"format"`
	}
	if err := decodeOpts(opts, &o); err != nil {
		return nil, err
	}
	if o.Format != "" && !schema.KnownFormat(o.Format) {
		return nil, fmt.Errorf("unknown format %q: %w", o.Format, ErrInvalidType)
	}
	if o.MaxLength > 0 && o.MinLength > o.MaxLength {
		return nil, fmt.Errorf("min_length %d exceeds max_length %d: %w", o.MinLength, o.MaxLength, ErrInvalidType)
	}
	return schema.String{MinLength: o.MinLength, MaxLength: o.MaxLength, Format: o.Format}, nil
}

func integerType(_ *Loader, opts *yaml.Node) (schema.Type, error) {
	var o struct {
		Min *int64 `yaml:"min"`
		Max *int64 `yaml:"max"`
	}
	if err := decodeOpts(opts, &o); err != nil {
		return nil, err
	}
	if o.Min != nil && o.Max != nil && *o.Min > *o.Max {
		return nil, fmt.Errorf("min %d exceeds max %d: %w", *o.Min, *o.Max, ErrInvalidType)
	}
	return schema.Integer{Min: o.Min, Max: o.Max}, nil
}

func decimalType(_ *Loader, opts *yaml.Node) (schema.Type, error) {
	var o struct {
		Min *float64 `yaml:"min"`
		Max *float64 `yaml:"max"`
	}
	if err := decodeOpts(opts, &o); err != nil {
		return nil, err
	}
	if o.Min != nil && o.Max != nil && *o.Min > *o.Max {
		return nil, fmt.Errorf("min %g exceeds max %g: %w", *o.Min, *o.Max, ErrInvalidType)
	}
	return schema.Decimal{Min: o.Min, Max: o.Max}, nil
}

func oneOfType(_ *Loader, opts *yaml.Node) (schema.Type, error) {
	if opts == nil || opts.Kind != yaml.SequenceNode || len(opts.Content) == 0 {
		return nil, fmt.Errorf("expected a list of values: %w", ErrInvalidType)
	}
	var values []any
	if err := opts.Decode(&values); err != nil {
		return nil, err
	}
	return schema.OneOf{Values: values}, nil
}

// arrayType takes the item type spec directly: `array: string`.
func arrayType(l *Loader, opts *yaml.Node) (schema.Type, error) {
	if opts == nil {
		return schema.Array{}, nil
	}
	of, err := l.ParseType(opts)
	if err != nil {
		return nil, err
	}
	return schema.Array{Of: of}, nil
}

func orType(l *Loader, opts *yaml.Node) (schema.Type, error) {
	if opts == nil || opts.Kind != yaml.SequenceNode || len(opts.Content) == 0 {
		return nil, fmt.Errorf("expected a list of type specs: %w", ErrInvalidType)
	}
	alts := make([]schema.Type, 0, len(opts.Content))
	for _, n := range opts.Content {
		t, err := l.ParseType(n)
		if err != nil {
			return nil, err
		}
		alts = append(alts, t)
	}
	return schema.Or{Types: alts}, nil
}

func embeddedType(l *Loader, opts *yaml.Node) (schema.Type, error) {
	if opts == nil || opts.Kind != yaml.ScalarNode || opts.Value == "" {
		return nil, fmt.Errorf("expected a schema name: %w", ErrInvalidType)
	}
	l.referenced = append(l.referenced, opts.Value)
	return schema.EmbeddedSchema{SchemaName: opts.Value, Store: l.registry.Schemas()}, nil
}

// schemaIDType accepts a schema name or the full option set.
func schemaIDType(l *Loader, opts *yaml.Node) (schema.Type, error) {
	if opts == nil {
		return nil, fmt.Errorf("expected a schema name or options: %w", ErrInvalidType)
	}
	if opts.Kind == yaml.ScalarNode {
		l.referenced = append(l.referenced, opts.Value)
		return schemaid.New(l.registry, schemaid.Options{SchemaName: opts.Value}, l.logger), nil
	}

	var o struct {
		Schema            string     `yaml:"schema"`
		FetchEndpoint     string     `yaml:"fetch_endpoint"`
		CreateEndpoint    string     `yaml:"create_endpoint"`
		CreateSchema      string     `yaml:"create_schema"`
		HardcodedFallback *yaml.Node `yaml:"hardcoded_fallback"`
		PerformValidation *bool      `yaml:"perform_validation"`
	}
	if err := decodeOpts(opts, &o); err != nil {
		return nil, err
	}
	if o.Schema == "" && o.FetchEndpoint == "" {
		return nil, fmt.Errorf("schema or fetch_endpoint is required: %w", ErrInvalidType)
	}
	so := schemaid.Options{
		SchemaName:     o.Schema,
		FetchEndpoint:  o.FetchEndpoint,
		CreateEndpoint: o.CreateEndpoint,
		CreateSchema:   o.CreateSchema,
		SkipValidation: o.PerformValidation != nil && !*o.PerformValidation,
	}
	if o.HardcodedFallback != nil {
		if err := o.HardcodedFallback.Decode(&so.HardcodedFallback); err != nil {
			return nil, err
		}
		so.HasFallback = true
	}
	if o.Schema != "" {
		l.referenced = append(l.referenced, o.Schema)
	}
	if o.CreateSchema != "" {
		l.referenced = append(l.referenced, o.CreateSchema)
	}
	for _, e := range []string{o.FetchEndpoint, o.CreateEndpoint} {
		if e != "" {
			l.endpointRefs = append(l.endpointRefs, e)
		}
	}
	return schemaid.New(l.registry, so, l.logger), nil
}
