package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeAPI(t *testing.T, badEmail bool) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		email := "ada@example.com"
		if badEmail {
			email = "nope"
		}
		user := map[string]any{"id": 1, "name": "ada", "email": email}
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/users":
			_ = json.NewEncoder(w).Encode([]any{user})
		case r.Method == http.MethodPost && r.URL.Path == "/users":
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(user)
		case r.Method == http.MethodGet && r.URL.Path == "/users/1":
			_ = json.NewEncoder(w).Encode(user)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeFixtures(t *testing.T, baseURL string, journal bool) string {
	t.Helper()
	dir := t.TempDir()
	declPath := filepath.Join(dir, "restspec.yaml")
	require.NoError(t, os.WriteFile(declPath, []byte(exampleDeclarations), 0o644))
	cfg := fmt.Sprintf("base_url: %q\ndeclarations: %q\njournal:\n  enabled: %t\n  path: %q\nlog:\n  level: error\n",
		baseURL, declPath, journal, filepath.Join(dir, "journal", "journal.db"))
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))
	return cfgPath
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestCheckPasses(t *testing.T) {
	srv := fakeAPI(t, false)
	cfgPath := writeFixtures(t, srv.URL, false)

	out, err := run(t, "--config", cfgPath, "--verbose", "check")
	require.NoError(t, err)
	assert.Contains(t, out, "PASS  users/index (200)")
	assert.Contains(t, out, "PASS  users/create (201)")
	assert.Contains(t, out, "PASS  users/show (200)")
	assert.Contains(t, out, "3 passed, 0 failed, 0 errors")
}

func TestCheckFailsAndJournals(t *testing.T) {
	srv := fakeAPI(t, true)
	cfgPath := writeFixtures(t, srv.URL, true)

	out, err := run(t, "--config", cfgPath, "check", "--endpoint", "users/index")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1 checks did not pass")
	assert.Contains(t, out, "FAIL  users/index (200)")
	assert.Contains(t, out, `[0].email: expected email, got "nope"`)
	assert.Contains(t, out, "(run run_")

	out, err = run(t, "--config", cfgPath, "runs")
	require.NoError(t, err)
	assert.Contains(t, out, "failed")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	runID := strings.Fields(lines[1])[0]

	out, err = run(t, "--config", cfgPath, "show", "--run", runID, "--exchanges")
	require.NoError(t, err)
	assert.Contains(t, out, "users/index")
	assert.Contains(t, out, "GET")

	harPath := filepath.Join(t.TempDir(), "run.har")
	out, err = run(t, "--config", cfgPath, "export", "--run", runID, "-o", harPath)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 1 exchanges")
	data, err := os.ReadFile(harPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"comment": "users/index"`)

	out, err = run(t, "--config", cfgPath, "delete", "--run", runID)
	require.NoError(t, err)
	assert.Contains(t, out, "deleted "+runID)
	_, err = run(t, "--config", cfgPath, "show", "--run", runID)
	assert.Error(t, err)
}

func TestCheckUnknownEndpointFlag(t *testing.T) {
	srv := fakeAPI(t, false)
	cfgPath := writeFixtures(t, srv.URL, false)

	_, err := run(t, "--config", cfgPath, "check", "--endpoint", "users/nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "users/nope")

	cfgPath = writeFixtures(t, srv.URL, true)
	_, err = run(t, "--config", cfgPath, "check", "--endpoint", "users/nope")
	require.Error(t, err)
	out, err := run(t, "--config", cfgPath, "runs")
	require.NoError(t, err)
	assert.Contains(t, out, "failed")
	assert.NotContains(t, out, "running")
}

func TestExampleAndEndpoints(t *testing.T) {
	srv := fakeAPI(t, false)
	cfgPath := writeFixtures(t, srv.URL, false)

	out, err := run(t, "--config", cfgPath, "example", "user")
	require.NoError(t, err)
	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &payload))
	assert.Contains(t, payload, "name")
	assert.Contains(t, payload, "email")
	assert.NotContains(t, payload, "id")

	_, err = run(t, "--config", cfgPath, "example")
	assert.Error(t, err)

	out, err = run(t, "--config", cfgPath, "endpoints")
	require.NoError(t, err)
	assert.Contains(t, out, "users/show")
	assert.Contains(t, out, "/users/:id")
	assert.Contains(t, out, "id*")
}

func TestRunsWithoutJournal(t *testing.T) {
	cfgPath := writeFixtures(t, "http://localhost:1", false)
	_, err := run(t, "--config", cfgPath, "runs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no journal")
}
