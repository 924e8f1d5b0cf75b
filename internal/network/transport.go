package network

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Message is what a transport hands back for one request.
type Message struct {
	Status  int
	Headers map[string]string
	Body    any
}

// Transport sends one request and returns the decoded reply.
type Transport interface {
	Send(ctx context.Context, method, url string, headers map[string]string, body any) (*Message, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, method, url string, headers map[string]string, body any) (*Message, error)

func (f TransportFunc) Send(ctx context.Context, method, url string, headers map[string]string, body any) (*Message, error) {
	return f(ctx, method, url, headers, body)
}

// HTTPTransport sends JSON over net/http.
type HTTPTransport struct {
	Client *http.Client
}

func NewHTTPTransport(timeout time.Duration) *HTTPTransport {
	return &HTTPTransport{Client: &http.Client{Timeout: timeout}}
}

func (t *HTTPTransport) Send(ctx context.Context, method, url string, headers map[string]string, body any) (*Message, error) {
	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}

	var reader io.Reader
	if body != nil && method != http.MethodGet && method != http.MethodHead {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	out := &Message{
		Status:  resp.StatusCode,
		Headers: make(map[string]string, len(resp.Header)),
		Body:    decodeBody(data),
	}
	for k := range resp.Header {
		out.Headers[k] = resp.Header.Get(k)
	}
	return out, nil
}

// decodeBody decodes JSON payloads and keeps anything else as text.
func decodeBody(data []byte) any {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return strings.TrimSpace(string(data))
	}
	return v
}
