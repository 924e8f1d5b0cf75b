package endpoint

import "errors"

var (
	ErrUnknownEndpoint = errors.New("unknown endpoint")
	ErrMissingURLParam = errors.New("missing url param")
	ErrNotConfigured   = errors.New("endpoint not configured")
)
