package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const defaultConfigRelPath = ".restspec/config.yaml"

type RequestConfig struct {
	Headers        map[string]string `yaml:"headers"`
	TimeoutSeconds int               `yaml:"timeout_seconds"`
}

type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type SanitizeConfig struct {
	Headers     []string `yaml:"headers"`
	BodyFields  []string `yaml:"body_fields"`
	Replacement string   `yaml:"replacement"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Config struct {
	BaseURL      string         `yaml:"base_url"`
	Declarations string         `yaml:"declarations"`
	Request      RequestConfig  `yaml:"request"`
	Journal      JournalConfig  `yaml:"journal"`
	Sanitize     SanitizeConfig `yaml:"sanitize"`
	Log          LogConfig      `yaml:"log"`
}

// Load loads YAML config, then applies env overrides. A .env file in the
// working directory is read first; it never replaces variables already
// set.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		configPath = filepath.Join(home, defaultConfigRelPath)
	}

	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg.SetDefaults()
	_ = godotenv.Load()
	applyEnvOverrides(cfg)
	return cfg, nil
}

// DefaultDir is the per-user directory holding config and journal.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".restspec"), nil
}

func (c *Config) SetDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "http://localhost:3000"
	}
	if c.Declarations == "" {
		c.Declarations = "restspec.yaml"
	}
	if c.Request.Headers == nil {
		c.Request.Headers = map[string]string{}
	}
	if c.Request.TimeoutSeconds == 0 {
		c.Request.TimeoutSeconds = 30
	}
	if c.Journal.Path == "" {
		if dir, err := DefaultDir(); err == nil {
			c.Journal.Path = filepath.Join(dir, "journal.db")
		} else {
			c.Journal.Path = "restspec.db"
		}
	}
	if len(c.Sanitize.Headers) == 0 {
		c.Sanitize.Headers = []string{"Authorization", "Cookie", "Set-Cookie", "X-Api-Key", "X-Auth-Token"}
	}
	if len(c.Sanitize.BodyFields) == 0 {
		c.Sanitize.BodyFields = []string{"password", "secret", "token", "api_key", "access_token", "refresh_token", "credential"}
	}
	if c.Sanitize.Replacement == "" {
		c.Sanitize.Replacement = "***REDACTED***"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// RequestTimeout is the per-request transport timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Request.TimeoutSeconds) * time.Second
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return errors.New("base_url cannot be empty")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base_url must be http or https, got %q", c.BaseURL)
	}
	if c.Request.TimeoutSeconds < 0 {
		return errors.New("request.timeout_seconds cannot be negative")
	}
	return nil
}

// ValidateCheck enforces check-specific requirements.
func (c *Config) ValidateCheck() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Declarations) == "" {
		return errors.New("declarations cannot be empty")
	}
	if c.Journal.Enabled && strings.TrimSpace(c.Journal.Path) == "" {
		return errors.New("journal.path cannot be empty when the journal is enabled")
	}
	return nil
}

func applyEnvOverrides(c *Config) {
	setString(&c.BaseURL, "RESTSPEC_BASE_URL")
	setString(&c.Declarations, "RESTSPEC_DECLARATIONS")
	setInt(&c.Request.TimeoutSeconds, "RESTSPEC_REQUEST_TIMEOUT")
	setBool(&c.Journal.Enabled, "RESTSPEC_JOURNAL")
	setString(&c.Journal.Path, "RESTSPEC_JOURNAL_PATH")
	setString(&c.Log.Level, "RESTSPEC_LOG_LEVEL")
	setString(&c.Log.Format, "RESTSPEC_LOG_FORMAT")
	if token, ok := os.LookupEnv("RESTSPEC_AUTH_TOKEN"); ok && token != "" {
		c.Request.Headers["Authorization"] = "Bearer " + token
	}
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
