// Package config loads the infinity-mcp configuration.
//
// Values are layered: defaults, then an optional YAML (or JSON) file, then
// environment variables. Command-line flags are applied last by the caller.
package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/loopwork-ai/infinity-mcp/internal"
)

// Environment variables
const (
	EnvAPIURL    = "SQL_API_URL"
	EnvAuth      = "SQL_API_AUTH"
	EnvTimeout   = "SQL_API_TIMEOUT"
	EnvRetries   = "SQL_API_RETRIES"
	EnvLogLevel  = "LOG_LEVEL"
	EnvLogFormat = "LOG_FORMAT"
)

// DefaultAPIURL is used when no API URL is configured
const DefaultAPIURL = "http://localhost:7000"

// Config holds the runtime settings
type Config struct {
	// APIURL is the base URL of the SQL API
	APIURL string `yaml:"api_url"`

	// Auth is sent as the Authorization header; may be an op:// reference
	Auth string `yaml:"auth,omitempty"`

	Retries int           `yaml:"retries"`
	Timeout time.Duration `yaml:"timeout"`

	// RPS caps outbound requests per second; 0 disables the limit
	RPS int `yaml:"rps"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		APIURL:    DefaultAPIURL,
		Retries:   3,
		Timeout:   60 * time.Second,
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// LoadFile loads configuration from a file.
// An empty path or a missing file yields the defaults.
func LoadFile(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("error opening config file: %w", err)
	}
	defer f.Close()

	return Load(f)
}

// Load loads configuration from an io.Reader on top of the defaults.
// JSON documents are accepted as well, being valid YAML.
func Load(r io.Reader) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overrides settings from environment variables read through lookup
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvAPIURL); ok && v != "" {
		c.APIURL = v
	}
	if v, ok := lookup(EnvAuth); ok && v != "" {
		c.Auth = v
	}
	if v, ok := lookup(EnvTimeout); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvTimeout, err)
		}
		c.Timeout = d
	}
	if v, ok := lookup(EnvRetries); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvRetries, err)
		}
		c.Retries = n
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.LogLevel = v
	}
	if v, ok := lookup(EnvLogFormat); ok && v != "" {
		c.LogFormat = v
	}
	return nil
}

// Validate checks that the settings are usable
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil {
		return fmt.Errorf("invalid api_url %q: %w", c.APIURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid api_url %q: must be an http(s) URL", c.APIURL)
	}
	if c.Retries < 0 {
		return fmt.Errorf("retries must not be negative")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	if c.RPS < 0 {
		return fmt.Errorf("rps must not be negative")
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported log_format %q", c.LogFormat)
	}
	return nil
}

// Redacted returns a copy safe to print
func (c *Config) Redacted() *Config {
	out := *c
	if out.Auth != "" && !internal.IsSecretReference(out.Auth) {
		out.Auth = "REDACTED"
	}
	return &out
}

// Marshal renders the configuration as YAML
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("error marshaling config: %w", err)
	}
	return data, nil
}
