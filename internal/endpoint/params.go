package endpoint

import "context"

// URLParam is either a literal value or a thunk evaluated when the URL
// is built, for values only known at execution time.
type URLParam struct {
	value any
	thunk func(context.Context) (any, error)
}

func Literal(v any) URLParam {
	return URLParam{value: v}
}

func Lazy(fn func(context.Context) (any, error)) URLParam {
	return URLParam{thunk: fn}
}

// IsLazy reports whether the param is computed at execution time.
func (p URLParam) IsLazy() bool { return p.thunk != nil }

// Resolve returns the literal value or calls the thunk.
func (p URLParam) Resolve(ctx context.Context) (any, error) {
	if p.thunk != nil {
		return p.thunk(ctx)
	}
	return p.value, nil
}
