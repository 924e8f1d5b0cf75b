package network

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/restspec/internal/config"
	"github.com/yourorg/restspec/pkg/types"
)

type memRecorder struct {
	exchanges []types.Exchange
}

func (m *memRecorder) Record(ex types.Exchange) error {
	m.exchanges = append(m.exchanges, ex)
	return nil
}

func TestExecutorMergesHeaders(t *testing.T) {
	var gotHeaders map[string]string
	transport := TransportFunc(func(_ context.Context, method, url string, headers map[string]string, body any) (*Message, error) {
		gotHeaders = headers
		return &Message{Status: 200, Body: map[string]any{"ok": true}}, nil
	})
	exec := NewExecutor(transport, "http://api.test", WithHeaders(map[string]string{
		"Accept":        "application/json",
		"Authorization": "Bearer config",
	}))

	msg, err := exec.Do(context.Background(), Call{
		Method:  http.MethodGet,
		URL:     "http://api.test/users",
		Headers: map[string]string{"Authorization": "Bearer endpoint"},
	})
	require.NoError(t, err)
	assert.Equal(t, 200, msg.Status)
	assert.Equal(t, "application/json", gotHeaders["Accept"])
	assert.Equal(t, "Bearer endpoint", gotHeaders["Authorization"])
	assert.Equal(t, "http://api.test", exec.BaseURL())
}

func TestExecutorPassesTransportErrorsThrough(t *testing.T) {
	boom := errors.New("connection refused")
	rec := &memRecorder{}
	exec := NewExecutor(TransportFunc(func(context.Context, string, string, map[string]string, any) (*Message, error) {
		return nil, boom
	}), "http://api.test", WithRecorder(rec, config.SanitizeConfig{}))

	_, err := exec.Do(context.Background(), Call{Method: "GET", URL: "http://api.test/x"})
	require.ErrorIs(t, err, boom)
	require.Len(t, rec.exchanges, 1)
	assert.Equal(t, "connection refused", rec.exchanges[0].Error)
}

func TestExecutorJournalsRedactedExchanges(t *testing.T) {
	rec := &memRecorder{}
	cfg := &config.Config{}
	cfg.SetDefaults()
	cfg.BaseURL = "http://api.test"
	cfg.Request.Headers = map[string]string{"Authorization": "Bearer secret"}

	exec := FromConfig(cfg, TransportFunc(func(context.Context, string, string, map[string]string, any) (*Message, error) {
		return &Message{Status: 201, Body: map[string]any{"id": float64(7), "token": "t"}}, nil
	}), WithRecorder(rec, cfg.Sanitize))

	_, err := exec.Do(context.Background(), Call{Endpoint: "users/create", Method: "post", URL: "http://api.test/users", Body: map[string]any{"password": "p", "name": "n"}})
	require.NoError(t, err)
	_, err = exec.Do(context.Background(), Call{Endpoint: "users/index", Method: "GET", URL: "http://api.test/users"})
	require.NoError(t, err)

	require.Len(t, rec.exchanges, 2)
	first := rec.exchanges[0]
	assert.Equal(t, 1, first.Seq)
	assert.Equal(t, "POST", first.Method)
	assert.Equal(t, "users/create", first.Endpoint)
	assert.Equal(t, 201, first.StatusCode)
	assert.Equal(t, "***REDACTED***", first.RequestHeaders["Authorization"])
	assert.JSONEq(t, `{"password":"***REDACTED***","name":"n"}`, first.RequestBody)
	assert.JSONEq(t, `{"id":7,"token":"***REDACTED***"}`, first.ResponseBody)
	assert.Equal(t, 2, rec.exchanges[1].Seq)
	assert.Empty(t, rec.exchanges[1].RequestBody)
}

func TestHTTPTransportJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "yes", r.Header.Get("X-Test"))
		var in map[string]any
		_ = json.NewDecoder(r.Body).Decode(&in)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": 7, "name": in["name"]})
	}))
	defer srv.Close()

	tr := NewHTTPTransport(5 * time.Second)
	msg, err := tr.Send(context.Background(), http.MethodPost, srv.URL+"/users", map[string]string{"X-Test": "yes"}, map[string]any{"name": "ann"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, msg.Status)
	assert.Equal(t, "application/json", msg.Headers["Content-Type"])
	assert.Equal(t, map[string]any{"id": float64(7), "name": "ann"}, msg.Body)
}

func TestHTTPTransportNonJSONAndEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Empty(t, body, "GET must not carry a body")
		if r.URL.Path == "/empty" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		_, _ = w.Write([]byte("plain text\n"))
	}))
	defer srv.Close()

	tr := &HTTPTransport{}
	msg, err := tr.Send(context.Background(), http.MethodGet, srv.URL+"/text", nil, map[string]any{"ignored": true})
	require.NoError(t, err)
	assert.Equal(t, "plain text", msg.Body)

	msg, err = tr.Send(context.Background(), http.MethodDelete, srv.URL+"/empty", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, msg.Status)
	assert.Nil(t, msg.Body)
}
