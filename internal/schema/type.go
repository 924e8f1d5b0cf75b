package schema

import (
	"context"
	"errors"
)

var (
	ErrUnknownSchema      = errors.New("unknown schema")
	ErrDuplicateSchema    = errors.New("schema already registered")
	ErrDuplicateAttribute = errors.New("attribute already declared")
	ErrNoExample          = errors.New("no example could be produced")
)

// Type validates attribute values and produces example values for them.
//
// Valid reports false for a value that does not conform; a non-nil error
// means the check itself could not run. ExampleFor may have side effects.
type Type interface {
	Name() string
	Valid(ctx context.Context, attr *Attribute, value any) (bool, error)
	ExampleFor(ctx context.Context, attr *Attribute) (any, error)
}
