package config

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/joho/godotenv"
)

// Credential environment variables. The DeepSeek key and base URL use the
// OpenAI names because DeepSeek is reached through the OpenAI wire format.
const (
	EnvDeepSeekKey  = "OPENAI_API_KEY"
	EnvDeepSeekBase = "OPENAI_API_BASE"
	EnvGroqKey      = "GROQ_API_KEY"
	EnvAnthropicKey = "ANTHROPIC_API_KEY"
	EnvGeminiKey    = "GEMINI_API_KEY"
	EnvOllamaHost   = "OLLAMA_HOST"
	EnvAddr         = "OUTREACH_ADDR"
)

// DefaultDeepSeekBase is used when no base URL is configured.
const DefaultDeepSeekBase = "https://api.deepseek.com/v1"

// Snapshot is an immutable copy of the credentials at one point in time.
type Snapshot struct {
	DeepSeekKey  string
	DeepSeekBase string
	GroqKey      string
	AnthropicKey string
	GeminiKey    string
	OllamaHost   string
}

// Credentials holds the provider keys shared by every session. Readers take
// a Snapshot; Update is the only writer.
type Credentials struct {
	mu      sync.RWMutex
	current Snapshot
}

// NewCredentials starts from snap. An empty DeepSeek base becomes the default.
func NewCredentials(snap Snapshot) *Credentials {
	if snap.DeepSeekBase == "" {
		snap.DeepSeekBase = DefaultDeepSeekBase
	}
	return &Credentials{current: snap}
}

// LoadCredentials reads the .env file at path, then lets the process
// environment override it. A missing file is not an error.
func LoadCredentials(path string) (*Credentials, error) {
	fileValues := map[string]string{}
	if path != "" {
		values, err := godotenv.Read(path)
		switch {
		case err == nil:
			fileValues = values
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read credentials from %s: %w", path, err)
		}
	}

	lookup := func(key string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return fileValues[key]
	}

	return NewCredentials(Snapshot{
		DeepSeekKey:  lookup(EnvDeepSeekKey),
		DeepSeekBase: lookup(EnvDeepSeekBase),
		GroqKey:      lookup(EnvGroqKey),
		AnthropicKey: lookup(EnvAnthropicKey),
		GeminiKey:    lookup(EnvGeminiKey),
		OllamaHost:   lookup(EnvOllamaHost),
	}), nil
}

// Snapshot returns the current credentials.
func (c *Credentials) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Update applies fn to a copy of the current credentials and publishes the
// result. Concurrent updates are serialized.
func (c *Credentials) Update(fn func(*Snapshot)) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := c.current
	fn(&next)
	if next.DeepSeekBase == "" {
		next.DeepSeekBase = DefaultDeepSeekBase
	}
	c.current = next
	return next
}
