package runner

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/restspec/internal/decl"
	"github.com/yourorg/restspec/internal/endpoint"
	"github.com/yourorg/restspec/internal/network"
	"github.com/yourorg/restspec/internal/schema"
	"github.com/yourorg/restspec/internal/store"
	"github.com/yourorg/restspec/pkg/types"
)

const declarations = `
schemas:
  user:
    attributes:
      id: {type: integer, for: [response]}
      name: string
      email: email

namespaces:
  users:
    base_path: /users
    schema: user
    endpoints:
      index: {expect: {status: 200}}
      create: {method: POST, expect: {status: 201}}
      show: {path: "/:id", url_params: {id: 1}, expect: {status: 200}}
      broken: {path: /broken, expect: {status: 200}}
`

type route func(body any) (*network.Message, error)

func setup(t *testing.T, routes map[string]route) (*endpoint.Registry, []decl.Expectation, *[]any) {
	t.Helper()
	var bodies []any
	transport := network.TransportFunc(func(_ context.Context, method, url string, _ map[string]string, body any) (*network.Message, error) {
		key := method + " " + strings.TrimPrefix(url, "http://api.test")
		bodies = append(bodies, body)
		if fn, ok := routes[key]; ok {
			return fn(body)
		}
		return &network.Message{Status: 404}, nil
	})
	reg := endpoint.NewRegistry(schema.NewStore(), network.NewExecutor(transport, "http://api.test"))
	exps, err := decl.NewLoader(reg, nil).Load([]byte(declarations))
	require.NoError(t, err)
	return reg, exps, &bodies
}

func reply(status int, body any) route {
	return func(any) (*network.Message, error) {
		return &network.Message{Status: status, Body: body}, nil
	}
}

func goodRoutes() map[string]route {
	return map[string]route{
		"GET /users": reply(200, []any{
			map[string]any{"id": float64(1), "name": "ada", "email": "ada@example.com"},
		}),
		"POST /users": func(body any) (*network.Message, error) {
			obj := body.(map[string]any)
			return &network.Message{Status: 201, Body: map[string]any{"id": float64(2), "name": obj["name"], "email": obj["email"]}}, nil
		},
		"GET /users/1": reply(200, map[string]any{"id": float64(1), "name": "ada", "email": "ada@example.com"}),
		"GET /users/broken": func(any) (*network.Message, error) {
			return nil, errors.New("connection refused")
		},
	}
}

func TestRunReportsEachExpectation(t *testing.T) {
	reg, exps, bodies := setup(t, goodRoutes())
	var stages []string
	rep, err := New(reg, WithProgress(func(s string) { stages = append(stages, s) })).Run(context.Background(), exps)
	require.NoError(t, err)

	require.Len(t, rep.Results, 4)
	assert.Equal(t, 3, rep.Passed)
	assert.Equal(t, 0, rep.Failed)
	assert.Equal(t, 1, rep.Errored)
	assert.False(t, rep.OK())
	assert.Equal(t, "1/4 users/index", stages[0])

	create := rep.Results[1]
	assert.Equal(t, types.CheckPassed, create.Status)
	assert.Equal(t, 201, create.Actual)
	payload, ok := (*bodies)[1].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, payload, "email")
	assert.NotContains(t, payload, "id")

	broken := rep.Results[3]
	assert.Equal(t, types.CheckError, broken.Status)
	assert.Contains(t, broken.ErrorMsg, "connection refused")
}

func TestCheckCollectsFailures(t *testing.T) {
	routes := goodRoutes()
	routes["GET /users"] = reply(200, []any{
		map[string]any{"id": float64(1), "name": "ada", "email": "not-an-email"},
		map[string]any{"id": "two", "name": "bob"},
	})
	routes["GET /users/1"] = reply(404, map[string]any{"error": "not found"})
	reg, exps, _ := setup(t, routes)
	r := New(reg)

	index := r.Check(context.Background(), exps[0])
	assert.Equal(t, types.CheckFailed, index.Status)
	assert.ElementsMatch(t, []string{
		`[0].email: expected email, got "not-an-email"`,
		`[1].id: expected integer, got "two"`,
		`[1].email: missing, expected email`,
	}, index.Failures)

	show := r.Check(context.Background(), exps[2])
	assert.Equal(t, types.CheckFailed, show.Status)
	assert.Equal(t, []string{"status: expected 200, got 404"}, show.Failures, "error bodies are not checked against the schema")
}

func TestCheckUnknownEndpoint(t *testing.T) {
	reg, _, _ := setup(t, goodRoutes())
	res := New(reg).Check(context.Background(), decl.Expectation{Endpoint: "users/nope", Status: 200})
	assert.Equal(t, types.CheckError, res.Status)
	assert.Contains(t, res.ErrorMsg, "unknown endpoint")
}

func TestRunJournalsResults(t *testing.T) {
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer st.Close()
	run, err := st.CreateRun("http://api.test", "restspec.yaml")
	require.NoError(t, err)

	reg, exps, _ := setup(t, goodRoutes())
	rep, err := New(reg, WithJournal(st, run.ID)).Run(context.Background(), exps)
	require.NoError(t, err)
	assert.Equal(t, run.ID, rep.RunID)

	results, err := st.GetResults(run.ID)
	require.NoError(t, err)
	assert.Len(t, results, 4)
	failed, err := st.GetFailedResults(run.ID)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "users/broken", failed[0].Endpoint)

	got, err := st.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, types.RunStatusFailed, got.Status)
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	reg, exps, bodies := setup(t, goodRoutes())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep, err := New(reg).Run(ctx, exps)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rep.Results)
	assert.Empty(t, *bodies)
}
