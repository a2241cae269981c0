// Package config loads the outreach server configuration and holds the
// provider credentials shared by every session.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"outreach/pkg/llm/middleware/circuit"
)

// Session backend names.
const (
	SessionBackendMemory = "memory"
	SessionBackendSQLite = "sqlite"
)

// Extra provider names accepted under providers.extra.
const (
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderOllama    = "ollama"
)

// Defaults.
const (
	DefaultAddr            = ":5000"
	DefaultEnvFile         = ".env"
	DefaultProviderTimeout = 60 * time.Second
	DefaultProbeTimeout    = 15 * time.Second
	DefaultSessionPath     = "outreach.db"
	DefaultMaxSessions     = 1024
)

// SessionConfig selects where conversation state lives between turns.
type SessionConfig struct {
	Backend     string `yaml:"backend"`      // "memory" or "sqlite"
	Path        string `yaml:"path"`         // SQLite database file
	MaxSessions int    `yaml:"max_sessions"` // LRU bound for the memory backend
}

// ExtraProvider is an optional provider tried after Groq.
type ExtraProvider struct {
	Name  string `yaml:"name"`
	Model string `yaml:"model,omitempty"`
	// BaseURL overrides the SDK default. For ollama it is the server URL.
	BaseURL string `yaml:"base_url,omitempty"`
}

// ProvidersConfig configures the chain.
type ProvidersConfig struct {
	Timeout      time.Duration   `yaml:"timeout"`
	ProbeTimeout time.Duration   `yaml:"probe_timeout"`
	Circuit      circuit.Config  `yaml:"circuit"`
	Extra        []ExtraProvider `yaml:"extra"`
}

// Config is the full server configuration.
type Config struct {
	Addr      string          `yaml:"addr"`
	EnvFile   string          `yaml:"env_file"`
	Session   SessionConfig   `yaml:"session"`
	Providers ProvidersConfig `yaml:"providers"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Addr:    DefaultAddr,
		EnvFile: DefaultEnvFile,
		Session: SessionConfig{
			Backend:     SessionBackendMemory,
			Path:        DefaultSessionPath,
			MaxSessions: DefaultMaxSessions,
		},
		Providers: ProvidersConfig{
			Timeout:      DefaultProviderTimeout,
			ProbeTimeout: DefaultProbeTimeout,
			Circuit:      circuit.DefaultConfig,
		},
	}
}

// Load reads path over the defaults, applies OUTREACH_ADDR, and validates.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if addr := os.Getenv(EnvAddr); addr != "" {
		cfg.Addr = addr
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the server cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.Addr == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	if c.EnvFile == "" {
		errs = append(errs, errors.New("env_file is required"))
	}
	if c.Providers.Timeout < 0 {
		errs = append(errs, fmt.Errorf("providers.timeout must not be negative, got %s", c.Providers.Timeout))
	}
	if c.Providers.ProbeTimeout < 0 {
		errs = append(errs, fmt.Errorf("providers.probe_timeout must not be negative, got %s", c.Providers.ProbeTimeout))
	}
	if c.Providers.Circuit.FailureThreshold < 1 {
		errs = append(errs, errors.New("providers.circuit.failure_threshold must be at least 1"))
	}

	switch c.Session.Backend {
	case SessionBackendMemory:
		if c.Session.MaxSessions < 1 {
			errs = append(errs, errors.New("session.max_sessions must be at least 1"))
		}
	case SessionBackendSQLite:
		if c.Session.Path == "" {
			errs = append(errs, errors.New("session.path is required for the sqlite backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown session backend %q", c.Session.Backend))
	}

	for i, p := range c.Providers.Extra {
		switch p.Name {
		case ProviderAnthropic, ProviderGemini, ProviderOllama:
		default:
			errs = append(errs, fmt.Errorf("providers.extra[%d]: unknown provider %q", i, p.Name))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
