// Package decl loads schema, namespace and endpoint declarations from
// YAML into an endpoint.Registry.
//
// A declarations file looks like:
//
//	schemas:
//	  team:
//	    attributes:
//	      id: {type: integer, for: [response]}
//	      name: {string: {min_length: 1}}
//	  member:
//	    root: true
//	    attributes:
//	      team_id: {schema_id: team}
//	      role: {one_of: [owner, member]}
//	      nickname: string | null
//
//	namespaces:
//	  teams:
//	    base_path: /teams
//	    schema: team
//	    endpoints:
//	      index: {method: GET, expect: {status: 200}}
//	      create: {method: POST, expect: {status: 201}}
//	      show:
//	        path: /:id
//	        url_params:
//	          id: {from: teams/create, field: id}
//	        expect: {status: 200}
package decl

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Document is the top level of a declarations file. Endpoints holds the
// members of the anonymous namespace.
type Document struct {
	Schemas    Ordered[SchemaDecl]    `yaml:"schemas"`
	Namespaces Ordered[NamespaceDecl] `yaml:"namespaces"`
	Endpoints  Ordered[EndpointDecl]  `yaml:"endpoints"`
}

// Entry is one key of an Ordered mapping.
type Entry[T any] struct {
	Key   string
	Value T
}

// Ordered decodes a YAML mapping in declaration order.
type Ordered[T any] []Entry[T]

func (o *Ordered[T]) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping", node.Line)
	}
	out := make(Ordered[T], 0, len(node.Content)/2)
	seen := make(map[string]struct{}, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i]
		if _, dup := seen[key.Value]; dup {
			return fmt.Errorf("line %d: %q declared twice", key.Line, key.Value)
		}
		seen[key.Value] = struct{}{}

		var v T
		if err := node.Content[i+1].Decode(&v); err != nil {
			return fmt.Errorf("%s: %w", key.Value, err)
		}
		out = append(out, Entry[T]{Key: key.Value, Value: v})
	}
	*o = out
	return nil
}

type SchemaDecl struct {
	Root       RootDecl              `yaml:"root"`
	Attributes Ordered[AttributeDecl] `yaml:"attributes"`
}

// RootDecl is either `root: true`, wrapping bodies under the schema name,
// or `root: key`.
type RootDecl struct {
	Self bool
	Key  string
}

func (r *RootDecl) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: root must be a boolean or a key", node.Line)
	}
	if node.ShortTag() == "!!bool" {
		return node.Decode(&r.Self)
	}
	r.Key = node.Value
	return nil
}

// AttributeDecl is either a bare type spec or a mapping with a "type"
// key plus options.
type AttributeDecl struct {
	Type     yaml.Node  `yaml:"type"`
	Example  *yaml.Node `yaml:"example"`
	For      []string   `yaml:"for"`
	Nullable bool       `yaml:"nullable"`
}

func (a *AttributeDecl) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode || !hasKey(node, "type") {
		a.Type = *node
		return nil
	}
	type alias AttributeDecl
	return node.Decode((*alias)(a))
}

type NamespaceDecl struct {
	BasePath  string                `yaml:"base_path"`
	Schema    string                `yaml:"schema"`
	Endpoints Ordered[EndpointDecl] `yaml:"endpoints"`
}

type EndpointDecl struct {
	Method    string               `yaml:"method"`
	Path      string               `yaml:"path"`
	Schema    string               `yaml:"schema"`
	Without   []string             `yaml:"without"`
	Headers   map[string]string    `yaml:"headers"`
	URLParams map[string]ParamDecl `yaml:"url_params"`
	Query     map[string]any       `yaml:"query"`
	Expect    *ExpectDecl          `yaml:"expect"`
}

// ParamDecl is a literal URL param value, or a reference to a field of
// another endpoint's response: `{from: teams/create, field: id}`.
type ParamDecl struct {
	Value any
	From  string
	Field string
}

func (p *ParamDecl) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode || !hasKey(node, "from") {
		return node.Decode(&p.Value)
	}
	var ref struct {
		From  string `yaml:"from"`
		Field string `yaml:"field"`
	}
	if err := node.Decode(&ref); err != nil {
		return err
	}
	p.From, p.Field = ref.From, ref.Field
	if p.Field == "" {
		p.Field = "id"
	}
	return nil
}

// ExpectDecl is what a check run asserts about an endpoint. An empty
// Schema means the endpoint's own schema.
type ExpectDecl struct {
	Status int    `yaml:"status"`
	Schema string `yaml:"schema"`
}

func hasKey(node *yaml.Node, key string) bool {
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return true
		}
	}
	return false
}
