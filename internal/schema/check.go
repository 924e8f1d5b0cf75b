package schema

import (
	"context"
	"fmt"
	"strings"
)

// Failure is one attribute that did not conform.
type Failure struct {
	Field    string `json:"field"`
	Expected string `json:"expected"`
	Value    any    `json:"value,omitempty"`
	Missing  bool   `json:"missing,omitempty"`
}

func (f *Failure) Error() string {
	if f.Missing {
		return fmt.Sprintf("%s: missing, expected %s", f.Field, f.Expected)
	}
	return fmt.Sprintf("%s: expected %s, got %#v", f.Field, f.Expected, f.Value)
}

// Result aggregates every failure found while checking one body.
type Result struct {
	Schema   string     `json:"schema"`
	Failures []*Failure `json:"failures,omitempty"`
}

func (r *Result) Valid() bool {
	return len(r.Failures) == 0
}

func (r *Result) add(f *Failure) {
	r.Failures = append(r.Failures, f)
}

// Messages renders each failure on its own line.
func (r *Result) Messages() []string {
	out := make([]string, len(r.Failures))
	for i, f := range r.Failures {
		out[i] = f.Error()
	}
	return out
}

func (r *Result) String() string {
	if r.Valid() {
		return r.Schema + ": ok"
	}
	return r.Schema + ": " + strings.Join(r.Messages(), "; ")
}

// Check validates a decoded response body against the response
// attributes of s. Collections are checked item by item. The returned
// error is only set when a type could not run its check.
func (s *Schema) Check(ctx context.Context, body any) (*Result, error) {
	checked := s.WithIntention(Response)
	res := &Result{Schema: s.name}

	if s.HasRoot() {
		obj, ok := body.(map[string]any)
		if !ok {
			res.add(&Failure{Field: s.RootName(), Expected: "object with root " + s.RootName(), Value: body})
			return res, nil
		}
		inner, ok := obj[s.RootName()]
		if !ok {
			res.add(&Failure{Field: s.RootName(), Expected: "root " + s.RootName(), Missing: true})
			return res, nil
		}
		body = inner
	}

	switch v := body.(type) {
	case map[string]any:
		if err := checked.checkObject(ctx, v, "", res); err != nil {
			return nil, err
		}
	case []any:
		for i, item := range v {
			prefix := fmt.Sprintf("[%d].", i)
			obj, ok := item.(map[string]any)
			if !ok {
				res.add(&Failure{Field: strings.TrimSuffix(prefix, "."), Expected: "object", Value: item})
				continue
			}
			if err := checked.checkObject(ctx, obj, prefix, res); err != nil {
				return nil, err
			}
		}
	default:
		res.add(&Failure{Expected: "object or array", Value: body})
	}
	return res, nil
}

func (s *Schema) checkObject(ctx context.Context, obj map[string]any, prefix string, res *Result) error {
	for _, attr := range s.AttributesForIntention() {
		field := prefix + attr.Name()
		value, present := obj[attr.Name()]
		if !present {
			res.add(&Failure{Field: field, Expected: attr.Type().Name(), Missing: true})
			continue
		}
		ok, err := attr.Type().Valid(ctx, attr, value)
		if err != nil {
			return fmt.Errorf("check %s.%s: %w", s.name, attr.Name(), err)
		}
		if !ok {
			res.add(&Failure{Field: field, Expected: attr.Type().Name(), Value: value})
		}
	}
	return nil
}
