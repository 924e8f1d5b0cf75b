package schema

import (
	"context"
	"slices"
)

// Ability is a use an attribute can be put to. A schema's intention is
// expressed with the same values.
type Ability string

const (
	Response Ability = "response"
	Payload  Ability = "payload"
)

// Attribute is one named, typed field of a schema.
type Attribute struct {
	name      string
	typ       Type
	abilities []Ability

	example     any
	exampleFunc func() any
	hasExample  bool
	memoized    bool
}

type AttributeOption func(*Attribute)

// WithExample overrides the type's generator with a fixed value.
func WithExample(v any) AttributeOption {
	return func(a *Attribute) {
		a.example = v
		a.hasExample = true
	}
}

// WithExampleFunc overrides the type's generator with fn, which is called
// at most once.
func WithExampleFunc(fn func() any) AttributeOption {
	return func(a *Attribute) {
		a.exampleFunc = fn
		a.hasExample = true
	}
}

// For restricts what the attribute is used for. Without it an attribute
// is both checked in responses and generated in payloads.
func For(abilities ...Ability) AttributeOption {
	return func(a *Attribute) {
		a.abilities = append([]Ability(nil), abilities...)
	}
}

func NewAttribute(name string, typ Type, opts ...AttributeOption) *Attribute {
	a := &Attribute{
		name:      name,
		typ:       typ,
		abilities: []Ability{Response, Payload},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Attribute) Name() string {
	if a == nil {
		return ""
	}
	return a.name
}

func (a *Attribute) Type() Type { return a.typ }

func (a *Attribute) Abilities() []Ability {
	return append([]Ability(nil), a.abilities...)
}

// HasExample reports whether an example override was declared.
func (a *Attribute) HasExample() bool { return a.hasExample }

// Example returns the declared override, evaluating an override func on
// first access only.
func (a *Attribute) Example() any {
	if a.exampleFunc != nil && !a.memoized {
		a.example = a.exampleFunc()
		a.memoized = true
	}
	return a.example
}

// ExampleValue returns the override when declared and otherwise asks
// the attribute's type for an example.
func (a *Attribute) ExampleValue(ctx context.Context) (any, error) {
	if a.hasExample {
		return a.Example(), nil
	}
	return a.typ.ExampleFor(ctx, a)
}

func (a *Attribute) Can(ability Ability) bool {
	return slices.Contains(a.abilities, ability)
}

// CanBeChecked reports whether the attribute takes part in payloads.
func (a *Attribute) CanBeChecked() bool {
	return a.Can(Payload)
}
