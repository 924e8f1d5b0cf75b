package endpoint

import (
	"context"
	"fmt"

	"github.com/yourorg/restspec/internal/network"
	"github.com/yourorg/restspec/internal/schema"
)

// Executor performs the network exchange for an endpoint.
type Executor interface {
	BaseURL() string
	Do(ctx context.Context, c network.Call) (*network.Message, error)
}

// Namespace groups endpoints under a base path and default schema. A
// namespace without a name is anonymous and never prefixes its base path.
type Namespace struct {
	name       string
	BasePath   string
	SchemaName string

	endpoints []*Endpoint
	registry  *Registry
}

func (n *Namespace) Name() string { return n.name }

func (n *Namespace) Anonymous() bool { return n.name == "" }

// FullPathPrefix is the prefix applied to member endpoint paths.
func (n *Namespace) FullPathPrefix() string {
	if n.Anonymous() {
		return ""
	}
	return n.BasePath
}

// AddEndpoint attaches e and points it back at n.
func (n *Namespace) AddEndpoint(e *Endpoint) {
	e.namespace = n
	n.endpoints = append(n.endpoints, e)
}

// Endpoint returns the first member named name.
func (n *Namespace) Endpoint(name string) (*Endpoint, bool) {
	for _, e := range n.endpoints {
		if e.Name == name {
			return e, true
		}
	}
	return nil, false
}

func (n *Namespace) Endpoints() []*Endpoint {
	return append([]*Endpoint(nil), n.endpoints...)
}

// Registry holds every declared namespace together with the schema
// store and executor their endpoints use.
type Registry struct {
	schemas    *schema.Store
	executor   Executor
	namespaces []*Namespace
}

func NewRegistry(schemas *schema.Store, exec Executor) *Registry {
	return &Registry{schemas: schemas, executor: exec}
}

func (r *Registry) Schemas() *schema.Store { return r.schemas }

func (r *Registry) Executor() Executor { return r.executor }

// Namespace returns the namespace called name, creating it on first use.
func (r *Registry) Namespace(name string) *Namespace {
	if ns, ok := r.Lookup(name); ok {
		return ns
	}
	ns := &Namespace{name: name, registry: r}
	r.namespaces = append(r.namespaces, ns)
	return ns
}

func (r *Registry) Lookup(name string) (*Namespace, bool) {
	for _, ns := range r.namespaces {
		if ns.name == name {
			return ns, true
		}
	}
	return nil, false
}

func (r *Registry) NamespaceBySchema(schemaName string) (*Namespace, bool) {
	for _, ns := range r.namespaces {
		if ns.SchemaName == schemaName {
			return ns, true
		}
	}
	return nil, false
}

func (r *Registry) Namespaces() []*Namespace {
	return append([]*Namespace(nil), r.namespaces...)
}

// Endpoints lists every endpoint, namespace by namespace.
func (r *Registry) Endpoints() []*Endpoint {
	var out []*Endpoint
	for _, ns := range r.namespaces {
		out = append(out, ns.endpoints...)
	}
	return out
}

// Endpoint finds an endpoint by its "namespace/name" full name.
func (r *Registry) Endpoint(fullName string) (*Endpoint, bool) {
	for _, e := range r.Endpoints() {
		if e.FullName() == fullName {
			return e, true
		}
	}
	return nil, false
}

// LookupEndpoint is Endpoint for callers that treat absence as an error.
func (r *Registry) LookupEndpoint(fullName string) (*Endpoint, error) {
	e, ok := r.Endpoint(fullName)
	if !ok {
		return nil, fmt.Errorf("%q: %w", fullName, ErrUnknownEndpoint)
	}
	return e, nil
}

// CloneEndpoint returns an independent copy of a registered endpoint.
func (r *Registry) CloneEndpoint(fullName string) (*Endpoint, bool) {
	e, ok := r.Endpoint(fullName)
	if !ok {
		return nil, false
	}
	return e.Clone(), true
}
