package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/dmitrijs2005/kefi/internal/client/password"
)

// Config holds runtime settings for the Kefi client.
//
// Fields:
//   - APIBaseURL: root of the authentication API, with a trailing slash.
//   - RequestTimeout: upper bound for a single HTTP exchange.
//   - StorePath: SQLite file backing the durable ("remember me") session.
//   - PasswordPolicy: preset name checked before sending new passwords.
//   - LogLevel, LogFormat: slog level and handler (text or json).
type Config struct {
	APIBaseURL     string
	RequestTimeout time.Duration
	StorePath      string
	PasswordPolicy string
	LogLevel       string
	LogFormat      string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "http://localhost:8000/api/auth/"
	c.RequestTimeout = 15 * time.Second
	c.StorePath = "kefi.db"
	c.PasswordPolicy = "standard"
	c.LogLevel = "info"
	c.LogFormat = "text"
}

// Validate reports the first setting the client cannot run with.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid api url %q", c.APIBaseURL)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %s", c.RequestTimeout)
	}
	if c.StorePath == "" {
		return fmt.Errorf("store path is empty")
	}
	if _, err := password.Named(c.PasswordPolicy); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return nil
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present), the environment and command-line flags (if present).
// Later sources take precedence over earlier ones. Invalid settings panic.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	if err := cfg.Validate(); err != nil {
		panic(err)
	}
	return cfg
}
