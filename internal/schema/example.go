package schema

import (
	"context"
	"fmt"
)

// Example generates a payload from the payload attributes of s, in
// declaration order, wrapped under the root key when s has one.
func (s *Schema) Example(ctx context.Context) (map[string]any, error) {
	obj, err := s.WithIntention(Payload).exampleObject(ctx)
	if err != nil {
		return nil, err
	}
	if s.HasRoot() {
		return map[string]any{s.RootName(): obj}, nil
	}
	return obj, nil
}

func (s *Schema) exampleObject(ctx context.Context) (map[string]any, error) {
	attrs := s.AttributesForIntention()
	out := make(map[string]any, len(attrs))
	for _, attr := range attrs {
		v, err := attr.ExampleValue(ctx)
		if err != nil {
			return nil, fmt.Errorf("example for %s.%s: %w", s.name, attr.Name(), err)
		}
		out[attr.Name()] = v
	}
	return out, nil
}
