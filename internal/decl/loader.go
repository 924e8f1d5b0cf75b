package decl

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yourorg/restspec/internal/endpoint"
	"github.com/yourorg/restspec/internal/logging"
	"github.com/yourorg/restspec/internal/schema"
)

// Expectation is what a check run asserts about one endpoint.
type Expectation struct {
	Endpoint string
	Status   int
	Schema   string
	Query    map[string]any
}

// Loader adds declarations to a registry. Types are looked up in a
// per-loader table that RegisterType extends.
type Loader struct {
	registry *endpoint.Registry
	logger   *slog.Logger
	types    map[string]Factory

	referenced   []string
	endpointRefs []string
}

// NewLoader returns a loader with the built-in types. A nil logger
// discards output.
func NewLoader(reg *endpoint.Registry, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Loader{registry: reg, logger: logger, types: builtinTypes()}
}

// RegisterType adds or replaces a named type.
func (l *Loader) RegisterType(name string, f Factory) {
	l.types[name] = f
}

func (l *Loader) Registry() *endpoint.Registry { return l.registry }

// LoadFile reads and loads a declarations file.
func (l *Loader) LoadFile(path string) ([]Expectation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read declarations: %w", err)
	}
	exps, err := l.Load(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return exps, nil
}

// Load parses data and registers its schemas and endpoints. References
// to schemas and endpoints are checked once everything is registered,
// so declarations may refer forward.
func (l *Loader) Load(data []byte) ([]Expectation, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse declarations: %w", err)
	}
	l.referenced, l.endpointRefs = nil, nil

	for _, entry := range doc.Schemas {
		s, err := l.buildSchema(entry.Key, entry.Value)
		if err != nil {
			return nil, err
		}
		if err := l.registry.Schemas().Add(s); err != nil {
			return nil, err
		}
	}

	var exps []Expectation
	for _, entry := range doc.Namespaces {
		ns := l.registry.Namespace(entry.Key)
		if entry.Value.BasePath != "" {
			ns.BasePath = entry.Value.BasePath
		}
		if entry.Value.Schema != "" {
			ns.SchemaName = entry.Value.Schema
			l.referenced = append(l.referenced, ns.SchemaName)
		}
		got, err := l.addEndpoints(ns, entry.Value.Endpoints)
		if err != nil {
			return nil, fmt.Errorf("namespace %s: %w", entry.Key, err)
		}
		exps = append(exps, got...)
	}
	got, err := l.addEndpoints(l.registry.Namespace(""), doc.Endpoints)
	if err != nil {
		return nil, err
	}
	exps = append(exps, got...)

	if err := l.checkReferences(); err != nil {
		return nil, err
	}
	l.logger.Debug("declarations loaded",
		"schemas", len(doc.Schemas),
		"namespaces", len(doc.Namespaces),
		"expectations", len(exps))
	return exps, nil
}

func (l *Loader) buildSchema(name string, d SchemaDecl) (*schema.Schema, error) {
	var opts []schema.Option
	switch {
	case d.Root.Key != "":
		opts = append(opts, schema.WithRoot(d.Root.Key))
	case d.Root.Self:
		opts = append(opts, schema.WithSelfRoot())
	}
	s := schema.New(name, opts...)

	for _, entry := range d.Attributes {
		attr, err := l.buildAttribute(entry.Key, entry.Value)
		if err != nil {
			return nil, fmt.Errorf("schema %s: attribute %s: %w", name, entry.Key, err)
		}
		if err := s.Add(attr); err != nil {
			return nil, fmt.Errorf("schema %s: %w", name, err)
		}
	}
	return s, nil
}

func (l *Loader) buildAttribute(name string, d AttributeDecl) (*schema.Attribute, error) {
	typ, err := l.ParseType(&d.Type)
	if err != nil {
		return nil, err
	}
	if d.Nullable {
		typ = schema.Nullable(typ)
	}

	var opts []schema.AttributeOption
	if d.Example != nil {
		var v any
		if err := d.Example.Decode(&v); err != nil {
			return nil, fmt.Errorf("example: %w", err)
		}
		opts = append(opts, schema.WithExample(v))
	}
	// An explicit empty list leaves the attribute with no abilities.
	if d.For != nil {
		abilities := make([]schema.Ability, 0, len(d.For))
		for _, f := range d.For {
			switch a := schema.Ability(strings.ToLower(f)); a {
			case schema.Response, schema.Payload:
				abilities = append(abilities, a)
			default:
				return nil, fmt.Errorf("unknown use %q, expected response or payload", f)
			}
		}
		opts = append(opts, schema.For(abilities...))
	}
	return schema.NewAttribute(name, typ, opts...), nil
}

func (l *Loader) addEndpoints(ns *endpoint.Namespace, decls Ordered[EndpointDecl]) ([]Expectation, error) {
	var exps []Expectation
	for _, entry := range decls {
		d := entry.Value
		method := d.Method
		if method == "" {
			method = "GET"
		}
		e := endpoint.New(entry.Key, method, d.Path)
		e.Without = d.Without
		for k, v := range d.Headers {
			e.Headers[k] = v
		}
		if d.Schema != "" {
			e.SetSchemaName(d.Schema)
			l.referenced = append(l.referenced, d.Schema)
		}
		for key, p := range d.URLParams {
			if p.From == "" {
				e.SetURLParam(key, endpoint.Literal(p.Value))
				continue
			}
			e.SetURLParam(key, l.responseField(p.From, p.Field))
			l.endpointRefs = append(l.endpointRefs, p.From)
		}
		ns.AddEndpoint(e)

		if d.Expect != nil {
			exp := Expectation{
				Endpoint: e.FullName(),
				Status:   d.Expect.Status,
				Schema:   d.Expect.Schema,
				Query:    d.Query,
			}
			if exp.Schema != "" {
				l.referenced = append(l.referenced, exp.Schema)
			}
			exps = append(exps, exp)
		}
	}
	return exps, nil
}

// responseField is a lazy URL param reading field from the response of
// the endpoint named from. That endpoint runs at most once, with a
// generated payload when its method carries one.
func (l *Loader) responseField(from, field string) endpoint.URLParam {
	return endpoint.Lazy(func(ctx context.Context) (any, error) {
		src, err := l.registry.LookupEndpoint(from)
		if err != nil {
			return nil, err
		}
		var p endpoint.Params
		if src.SendsPayload() && !src.Memoized() {
			body, err := src.Payload(ctx)
			if err != nil {
				return nil, err
			}
			p.Body = body
		}
		resp, err := src.ExecuteOnce(ctx, p, func() {
			l.logger.Debug("resolving url param", "from", from, "field", field)
		})
		if err != nil {
			return nil, err
		}
		v, ok := fieldOf(resp, field)
		if !ok {
			return nil, fmt.Errorf("%s responded %d without %q: %w", from, resp.Status, field, endpoint.ErrMissingURLParam)
		}
		return v, nil
	})
}

// fieldOf reads field from a response body, looking inside the schema
// root and at the first item of a collection.
func fieldOf(resp *endpoint.Response, field string) (any, bool) {
	body := resp.Unwrapped()
	if items, ok := body.([]any); ok {
		if len(items) == 0 {
			return nil, false
		}
		body = items[0]
	}
	obj, ok := body.(map[string]any)
	if !ok {
		return nil, false
	}
	v, ok := obj[field]
	return v, ok && v != nil
}

func (l *Loader) checkReferences() error {
	for _, name := range l.referenced {
		if _, err := l.registry.Schemas().Lookup(name); err != nil {
			return err
		}
	}
	for _, name := range l.endpointRefs {
		if _, err := l.registry.LookupEndpoint(name); err != nil {
			return err
		}
	}
	return nil
}
