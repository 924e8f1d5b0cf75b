// Package schemaid provides the schema_id attribute type: a reference to
// another resource whose valid values only exist on the server under
// test.
//
// Examples are taken from live data. The type lists the referenced
// resource and uses the first item's id; when the listing is empty it
// creates a resource with a generated payload and uses the new id; when
// that fails too it falls back to a configured value.
package schemaid

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/yourorg/restspec/internal/endpoint"
	"github.com/yourorg/restspec/internal/logging"
	"github.com/yourorg/restspec/internal/schema"
)

// Conventional endpoint names looked up in the namespace of a schema.
const (
	IndexEndpoint  = "index"
	CreateEndpoint = "create"
)

// Options configure a Type. With SchemaName set, the fetch and create
// endpoints are the index and create endpoints of the namespace bound to
// that schema; otherwise FetchEndpoint and CreateEndpoint name them as
// "namespace/endpoint".
type Options struct {
	SchemaName        string
	FetchEndpoint     string
	CreateEndpoint    string
	CreateSchema      string
	HardcodedFallback any
	HasFallback       bool
	// SkipValidation makes Valid accept any value without a network call.
	SkipValidation bool
}

// Type is the schema_id attribute type.
type Type struct {
	opts     Options
	registry *endpoint.Registry
	logger   *slog.Logger

	sampleID any
	sampled  bool
}

// New returns a Type resolving endpoints through reg. A nil logger
// discards output.
func New(reg *endpoint.Registry, opts Options, logger *slog.Logger) *Type {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Type{opts: opts, registry: reg, logger: logger}
}

// ForSchema is New with only a schema name.
func ForSchema(reg *endpoint.Registry, schemaName string) *Type {
	return New(reg, Options{SchemaName: schemaName}, nil)
}

func (t *Type) Name() string {
	if t.opts.SchemaName != "" {
		return "schema_id(" + t.opts.SchemaName + ")"
	}
	return "schema_id(" + t.opts.FetchEndpoint + ")"
}

// Options returns a copy of the configuration.
func (t *Type) Options() Options { return t.opts }

func (t *Type) ExampleFor(ctx context.Context, attr *schema.Attribute) (any, error) {
	id, ok, err := t.sample(ctx)
	if err != nil {
		return nil, err
	}
	if ok {
		return id, nil
	}

	id, ok, err = t.create(ctx)
	if err != nil {
		return nil, err
	}
	if ok {
		return id, nil
	}

	if t.opts.HasFallback {
		t.logger.Debug("using hardcoded fallback", "attribute", attr.Name(), "type", t.Name())
		return t.opts.HardcodedFallback, nil
	}
	return nil, fmt.Errorf("%s for %s: could not fetch or create a referenced resource: %w", t.Name(), attr.Name(), schema.ErrNoExample)
}

func (t *Type) Valid(ctx context.Context, _ *schema.Attribute, value any) (bool, error) {
	if t.opts.SkipValidation {
		return true, nil
	}
	items, err := t.fetchItems(ctx)
	if err != nil {
		return false, err
	}
	for _, item := range items {
		if id, ok := itemID(item); ok && schema.SameValue(id, value) {
			return true, nil
		}
	}
	return false, nil
}

// sample returns the id of the first listed item. A found id is kept
// for the lifetime of the type.
func (t *Type) sample(ctx context.Context) (any, bool, error) {
	if t.sampled {
		return t.sampleID, true, nil
	}
	items, err := t.fetchItems(ctx)
	if err != nil {
		return nil, false, err
	}
	if len(items) == 0 {
		return nil, false, nil
	}
	id, ok := itemID(items[0])
	if !ok {
		return nil, false, nil
	}
	t.sampleID, t.sampled = id, true
	return id, true, nil
}

func (t *Type) fetchItems(ctx context.Context) ([]any, error) {
	index, err := t.endpoint(IndexEndpoint, t.opts.FetchEndpoint)
	if err != nil {
		return nil, err
	}
	resp, err := index.Execute(ctx, endpoint.Params{})
	if err != nil {
		return nil, err
	}
	items, _ := resp.Items()
	return items, nil
}

func (t *Type) create(ctx context.Context) (any, bool, error) {
	create, err := t.endpoint(CreateEndpoint, t.opts.CreateEndpoint)
	if err != nil {
		return nil, false, err
	}
	payload, err := t.createPayload(ctx, create)
	if err != nil {
		return nil, false, err
	}
	resp, err := create.Execute(ctx, endpoint.Params{Body: payload})
	if err != nil {
		return nil, false, err
	}
	if resp.Status != http.StatusCreated {
		t.logger.Debug("create did not succeed", "endpoint", create.FullName(), "status", resp.Status)
		return nil, false, nil
	}
	id, ok := resp.ID()
	return id, ok, nil
}

func (t *Type) createPayload(ctx context.Context, create *endpoint.Endpoint) (map[string]any, error) {
	if t.opts.CreateSchema == "" {
		return create.Payload(ctx)
	}
	s, err := t.registry.Schemas().Lookup(t.opts.CreateSchema)
	if err != nil {
		return nil, err
	}
	return s.Example(ctx)
}

// endpoint resolves the conventional endpoint of the schema's namespace,
// or the explicitly configured one.
func (t *Type) endpoint(conventional, configured string) (*endpoint.Endpoint, error) {
	if t.opts.SchemaName != "" {
		ns, ok := t.registry.NamespaceBySchema(t.opts.SchemaName)
		if !ok {
			return nil, fmt.Errorf("no namespace for schema %q: %w", t.opts.SchemaName, endpoint.ErrUnknownEndpoint)
		}
		e, ok := ns.Endpoint(conventional)
		if !ok {
			return nil, fmt.Errorf("%s/%s: %w", ns.Name(), conventional, endpoint.ErrUnknownEndpoint)
		}
		return e, nil
	}
	if configured == "" {
		return nil, fmt.Errorf("%s: no %s endpoint configured: %w", t.Name(), conventional, endpoint.ErrNotConfigured)
	}
	return t.registry.LookupEndpoint(configured)
}

func itemID(item any) (any, bool) {
	obj, ok := item.(map[string]any)
	if !ok {
		return nil, false
	}
	id, ok := obj["id"]
	return id, ok && id != nil
}
