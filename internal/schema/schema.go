package schema

import "fmt"

// Schema is a named, ordered set of attributes.
type Schema struct {
	name       string
	attributes []*Attribute
	rootSelf   bool
	rootName   string
	intention  Ability
}

type Option func(*Schema)

// WithSelfRoot wraps bodies under the schema's own name.
func WithSelfRoot() Option {
	return func(s *Schema) { s.rootSelf = true }
}

// WithRoot wraps bodies under key.
func WithRoot(key string) Option {
	return func(s *Schema) { s.rootName = key }
}

func New(name string, opts ...Option) *Schema {
	s := &Schema{name: name}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Schema) Name() string { return s.name }

// Add appends an attribute. Names are unique within a schema.
func (s *Schema) Add(attr *Attribute) error {
	if _, ok := s.Attribute(attr.Name()); ok {
		return fmt.Errorf("%s.%s: %w", s.name, attr.Name(), ErrDuplicateAttribute)
	}
	s.attributes = append(s.attributes, attr)
	return nil
}

func (s *Schema) Attribute(name string) (*Attribute, bool) {
	for _, a := range s.attributes {
		if a.Name() == name {
			return a, true
		}
	}
	return nil, false
}

// Attributes returns every attribute in declaration order.
func (s *Schema) Attributes() []*Attribute {
	return append([]*Attribute(nil), s.attributes...)
}

func (s *Schema) Intention() Ability { return s.intention }

// WithIntention returns a copy of s whose AttributesForIntention is
// filtered by i.
func (s *Schema) WithIntention(i Ability) *Schema {
	c := s.Clone()
	c.intention = i
	return c
}

// AttributesForIntention returns the attributes usable for the current
// intention, or all of them when no intention is set.
func (s *Schema) AttributesForIntention() []*Attribute {
	if s.intention == "" {
		return s.Attributes()
	}
	out := make([]*Attribute, 0, len(s.attributes))
	for _, a := range s.attributes {
		if a.Can(s.intention) {
			out = append(out, a)
		}
	}
	return out
}

// Clone copies the schema. Attributes are immutable and shared.
func (s *Schema) Clone() *Schema {
	c := *s
	c.attributes = s.Attributes()
	return &c
}

// ExtendWith returns a copy of s without the named attributes. s itself
// is never modified.
func (s *Schema) ExtendWith(without ...string) *Schema {
	c := s.Clone()
	drop := make(map[string]struct{}, len(without))
	for _, name := range without {
		drop[name] = struct{}{}
	}
	kept := c.attributes[:0]
	for _, a := range c.attributes {
		if _, ok := drop[a.Name()]; !ok {
			kept = append(kept, a)
		}
	}
	c.attributes = kept
	return c
}

// HasRoot reports whether bodies are wrapped under RootName.
func (s *Schema) HasRoot() bool {
	return s.rootSelf || s.rootName != ""
}

func (s *Schema) RootName() string {
	if s.rootName != "" {
		return s.rootName
	}
	if s.rootSelf {
		return s.name
	}
	return ""
}
