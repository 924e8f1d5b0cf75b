package endpoint

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/yourorg/restspec/internal/network"
	"github.com/yourorg/restspec/internal/schema"
)

// Params are the per-call inputs of Execute.
type Params struct {
	Body        any
	URLParams   map[string]any
	QueryParams map[string]any
}

// Request is what an endpoint sent.
type Request struct {
	Method   string
	URL      string
	Headers  map[string]string
	Body     any
	Endpoint *Endpoint
}

// Response is what an endpoint received.
type Response struct {
	Status   int
	Headers  map[string]string
	Body     any
	Request  *Request
	Endpoint *Endpoint
}

// Unwrapped returns the body with the endpoint schema's root wrapper
// removed. Bodies of endpoints without a rooted schema, or without the
// root key, are returned as they are.
func (r *Response) Unwrapped() any {
	if r.Endpoint == nil {
		return r.Body
	}
	s, err := r.Endpoint.Schema()
	if err != nil || !s.HasRoot() {
		return r.Body
	}
	if obj, ok := r.Body.(map[string]any); ok {
		if inner, ok := obj[s.RootName()]; ok {
			return inner
		}
	}
	return r.Body
}

// ID returns the "id" field of an unwrapped object body.
func (r *Response) ID() (any, bool) {
	obj, ok := r.Unwrapped().(map[string]any)
	if !ok {
		return nil, false
	}
	id, ok := obj["id"]
	return id, ok && id != nil
}

// Items returns the unwrapped body as a collection.
func (r *Response) Items() ([]any, bool) {
	items, ok := r.Unwrapped().([]any)
	return items, ok
}

// Endpoint is one declared HTTP operation.
type Endpoint struct {
	Name    string
	Method  string
	Path    string
	Headers map[string]string
	// Without lists schema attributes this endpoint does not use.
	Without []string

	schemaName string
	namespace  *Namespace
	rawParams  map[string]URLParam

	executedURL  string
	lastRequest  *Request
	lastResponse *Response
	saved        *Response
}

func New(name, method, path string) *Endpoint {
	return &Endpoint{
		Name:      name,
		Method:    strings.ToUpper(method),
		Path:      path,
		Headers:   map[string]string{},
		rawParams: map[string]URLParam{},
	}
}

func (e *Endpoint) Namespace() *Namespace { return e.namespace }

func (e *Endpoint) FullName() string {
	if e.namespace == nil {
		return "/" + e.Name
	}
	return e.namespace.Name() + "/" + e.Name
}

// FullPath is the path template prefixed with the namespace base path.
func (e *Endpoint) FullPath() string {
	if e.namespace == nil {
		return e.Path
	}
	return e.namespace.FullPathPrefix() + e.Path
}

func (e *Endpoint) SetURLParam(key string, p URLParam) {
	if e.rawParams == nil {
		e.rawParams = map[string]URLParam{}
	}
	e.rawParams[key] = p
}

func (e *Endpoint) RawURLParams() map[string]URLParam {
	return maps.Clone(e.rawParams)
}

// URLParams realizes the raw params in key order, calling every lazy one.
func (e *Endpoint) URLParams(ctx context.Context) (map[string]any, error) {
	out := make(map[string]any, len(e.rawParams))
	keys := make([]string, 0, len(e.rawParams))
	for k := range e.rawParams {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		v, err := e.rawParams[k].Resolve(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: url param %s: %w", e.FullName(), k, err)
		}
		out[k] = v
	}
	return out, nil
}

// SetSchemaName overrides the namespace schema for this endpoint.
func (e *Endpoint) SetSchemaName(name string) { e.schemaName = name }

func (e *Endpoint) SchemaName() string {
	if e.schemaName != "" || e.namespace == nil {
		return e.schemaName
	}
	return e.namespace.SchemaName
}

// Schema resolves the endpoint's schema, minus Without.
func (e *Endpoint) Schema() (*schema.Schema, error) {
	reg, err := e.registry()
	if err != nil {
		return nil, err
	}
	name := e.SchemaName()
	if name == "" {
		return nil, fmt.Errorf("%s has no schema: %w", e.FullName(), ErrNotConfigured)
	}
	s, err := reg.schemas.Lookup(name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", e.FullName(), err)
	}
	if len(e.Without) > 0 {
		s = s.ExtendWith(e.Without...)
	}
	return s, nil
}

// Payload generates an example request body from the endpoint schema.
func (e *Endpoint) Payload(ctx context.Context) (map[string]any, error) {
	s, err := e.Schema()
	if err != nil {
		return nil, err
	}
	return s.Example(ctx)
}

// SendsPayload reports whether the method carries a request body.
func (e *Endpoint) SendsPayload() bool {
	switch e.Method {
	case "POST", "PUT", "PATCH":
		return true
	}
	return false
}

func (e *Endpoint) registry() (*Registry, error) {
	if e.namespace == nil || e.namespace.registry == nil {
		return nil, fmt.Errorf("%s is not registered: %w", e.FullName(), ErrNotConfigured)
	}
	return e.namespace.registry, nil
}

// Execute performs a fresh exchange. p.URLParams override the
// endpoint's own params.
func (e *Endpoint) Execute(ctx context.Context, p Params) (*Response, error) {
	if e.Method == "" || e.FullPath() == "" {
		return nil, fmt.Errorf("%s: method and path are required: %w", e.FullName(), ErrNotConfigured)
	}
	reg, err := e.registry()
	if err != nil {
		return nil, err
	}
	if reg.executor == nil {
		return nil, fmt.Errorf("%s: no executor: %w", e.FullName(), ErrNotConfigured)
	}

	params, err := e.URLParams(ctx)
	if err != nil {
		return nil, err
	}
	for k, v := range p.URLParams {
		params[k] = v
	}
	fullURL, err := BuildURL(reg.executor.BaseURL(), e.FullPath(), params, p.QueryParams)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", e.FullName(), err)
	}

	req := &Request{
		Method:   e.Method,
		URL:      fullURL,
		Headers:  maps.Clone(e.Headers),
		Body:     p.Body,
		Endpoint: e,
	}
	e.lastRequest = req
	e.executedURL = fullURL

	msg, err := reg.executor.Do(ctx, network.Call{
		Endpoint: e.FullName(),
		Method:   req.Method,
		URL:      req.URL,
		Headers:  req.Headers,
		Body:     req.Body,
	})
	if err != nil {
		return nil, err
	}
	resp := &Response{
		Status:   msg.Status,
		Headers:  msg.Headers,
		Body:     msg.Body,
		Request:  req,
		Endpoint: e,
	}
	e.lastResponse = resp
	return resp, nil
}

// ExecuteOnce runs before (when set) and Execute on the first call only;
// later calls return that first response whatever their arguments,
// until Reset.
func (e *Endpoint) ExecuteOnce(ctx context.Context, p Params, before func()) (*Response, error) {
	if e.saved != nil {
		return e.saved, nil
	}
	if before != nil {
		before()
	}
	resp, err := e.Execute(ctx, p)
	if err != nil {
		return nil, err
	}
	e.saved = resp
	return resp, nil
}

// Memoized reports whether ExecuteOnce has a saved response.
func (e *Endpoint) Memoized() bool { return e.saved != nil }

// Reset forgets the response saved by ExecuteOnce.
func (e *Endpoint) Reset() {
	e.saved = nil
}

func (e *Endpoint) ExecutedURL() string { return e.executedURL }

func (e *Endpoint) LastRequest() *Request { return e.lastRequest }

func (e *Endpoint) LastResponse() *Response { return e.lastResponse }

// Clone copies e for independent mutation. The copy keeps the namespace
// back-reference but is not added to it and starts with no saved
// execution.
func (e *Endpoint) Clone() *Endpoint {
	c := *e
	c.Headers = maps.Clone(e.Headers)
	c.Without = append([]string(nil), e.Without...)
	c.rawParams = maps.Clone(e.rawParams)
	c.saved = nil
	c.lastRequest = nil
	c.lastResponse = nil
	c.executedURL = ""
	return &c
}
