package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetDefaults(t *testing.T) {
	c := &Config{}
	c.SetDefaults()
	assert.Equal(t, "http://localhost:3000", c.BaseURL)
	assert.Equal(t, "restspec.yaml", c.Declarations)
	assert.Equal(t, 30, c.Request.TimeoutSeconds)
	assert.NotNil(t, c.Request.Headers)
	assert.Equal(t, "info", c.Log.Level)
	assert.Equal(t, "***REDACTED***", c.Sanitize.Replacement)
}

func TestLoadFromYAML(t *testing.T) {
	tmp := t.TempDir()
	cfgPath := filepath.Join(tmp, "config.yaml")
	data := "base_url: https://api.example.com/v1\nrequest:\n  headers:\n    Accept: application/json\njournal:\n  enabled: true\n  path: " + filepath.Join(tmp, "j.db") + "\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(data), 0o644))

	cfg, err := Load(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/v1", cfg.BaseURL)
	assert.Equal(t, "application/json", cfg.Request.Headers["Accept"])
	assert.True(t, cfg.Journal.Enabled)
	assert.NoError(t, cfg.ValidateCheck())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000", cfg.BaseURL)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("RESTSPEC_BASE_URL", "http://127.0.0.1:9999")
	t.Setenv("RESTSPEC_REQUEST_TIMEOUT", "5")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:9999", cfg.BaseURL)
	assert.Equal(t, 5, cfg.Request.TimeoutSeconds)
}

func TestAuthTokenEnv(t *testing.T) {
	t.Setenv("RESTSPEC_AUTH_TOKEN", "s3cret")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "Bearer s3cret", cfg.Request.Headers["Authorization"])
}

func TestValidate(t *testing.T) {
	c := &Config{}
	c.SetDefaults()
	require.NoError(t, c.Validate())

	c.BaseURL = "ftp://example.com"
	assert.Error(t, c.Validate())

	c.BaseURL = "http://example.com"
	c.Declarations = " "
	assert.Error(t, c.ValidateCheck())
}
