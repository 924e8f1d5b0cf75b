package network

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/yourorg/restspec/internal/config"
	"github.com/yourorg/restspec/internal/filter"
	"github.com/yourorg/restspec/internal/logging"
	"github.com/yourorg/restspec/pkg/types"
)

// Call is one request as issued by an endpoint.
type Call struct {
	Endpoint string
	Method   string
	URL      string
	Headers  map[string]string
	Body     any
}

// Recorder receives every exchange after redaction.
type Recorder interface {
	Record(ex types.Exchange) error
}

// Executor is the only component that talks to the Transport.
type Executor struct {
	transport Transport
	baseURL   string
	headers   map[string]string
	logger    *slog.Logger
	recorder  Recorder
	sanitize  config.SanitizeConfig
	seq       int
}

type Option func(*Executor)

func WithHeaders(h map[string]string) Option {
	return func(e *Executor) {
		for k, v := range h {
			e.headers[k] = v
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// WithRecorder journals every exchange, redacted with cfg first.
func WithRecorder(r Recorder, cfg config.SanitizeConfig) Option {
	return func(e *Executor) {
		e.recorder = r
		e.sanitize = cfg
	}
}

func NewExecutor(t Transport, baseURL string, opts ...Option) *Executor {
	e := &Executor{
		transport: t,
		baseURL:   baseURL,
		headers:   map[string]string{},
		logger:    logging.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// FromConfig builds an executor from the base URL and request headers
// of cfg.
func FromConfig(cfg *config.Config, t Transport, opts ...Option) *Executor {
	return NewExecutor(t, cfg.BaseURL, append([]Option{WithHeaders(cfg.Request.Headers)}, opts...)...)
}

func (e *Executor) BaseURL() string { return e.baseURL }

// Do sends c. Configured headers are sent unless c overrides them.
// Transport errors are returned wrapped, never retried.
func (e *Executor) Do(ctx context.Context, c Call) (*Message, error) {
	headers := make(map[string]string, len(e.headers)+len(c.Headers))
	for k, v := range e.headers {
		headers[k] = v
	}
	for k, v := range c.Headers {
		headers[k] = v
	}

	start := time.Now()
	msg, err := e.transport.Send(ctx, c.Method, c.URL, headers, c.Body)
	latency := time.Since(start)

	e.seq++
	if err != nil {
		e.logger.Warn("request failed", "endpoint", c.Endpoint, "method", c.Method, "url", c.URL, "error", err)
	} else {
		e.logger.Debug("exchange", "endpoint", c.Endpoint, "method", c.Method, "url", c.URL, "status", msg.Status, "latency", latency)
	}
	e.record(c, headers, msg, err, start, latency)

	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", c.Method, c.URL, err)
	}
	return msg, nil
}

func (e *Executor) record(c Call, headers map[string]string, msg *Message, sendErr error, start time.Time, latency time.Duration) {
	if e.recorder == nil {
		return
	}
	ex := types.Exchange{
		Seq:            e.seq,
		Timestamp:      start.UTC(),
		Endpoint:       c.Endpoint,
		Method:         strings.ToUpper(c.Method),
		URL:            c.URL,
		RequestHeaders: headers,
		RequestBody:    encode(c.Body),
		LatencyMs:      latency.Milliseconds(),
	}
	if sendErr != nil {
		ex.Error = sendErr.Error()
	}
	if msg != nil {
		ex.StatusCode = msg.Status
		ex.ResponseHeaders = msg.Headers
		ex.ResponseBody = encode(msg.Body)
	}
	ex = filter.SanitizeExchange(ex, e.sanitize)
	if err := e.recorder.Record(ex); err != nil {
		e.logger.Warn("journal write failed", "error", err)
	}
}

func encode(v any) string {
	switch b := v.(type) {
	case nil:
		return ""
	case string:
		return b
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
