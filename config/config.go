// Package config defines the effective engine configuration and its
// resolution rules. System defaults and caller overrides are merged field by
// field into one immutable Config; a separate diff decides whether the
// provider client has to be rebuilt after a change.
package config

import (
	"fmt"
	"time"
)

// Provider identifies the kind of model endpoint the engine talks to.
type Provider string

const (
	// ProviderHosted is a vendor-hosted API (OpenAI, Anthropic).
	ProviderHosted Provider = "hosted"
	// ProviderGateway is an enterprise gateway fronting a hosted API.
	ProviderGateway Provider = "gateway"
	// ProviderSelfHosted is a self-hosted OpenAI-compatible server (vLLM, Ollama, ...).
	ProviderSelfHosted Provider = "self-hosted"
)

// Valid reports whether p is one of the known provider kinds.
func (p Provider) Valid() bool {
	switch p {
	case ProviderHosted, ProviderGateway, ProviderSelfHosted:
		return true
	}
	return false
}

// Config is the fully resolved, per-engine configuration. Zero values never
// reach a provider call: Default() supplies every fallback and Merge only
// replaces fields the caller actually set.
type Config struct {
	Provider       Provider          `yaml:"provider"`
	Model          string            `yaml:"model"`
	Streaming      bool              `yaml:"streaming"`
	Temperature    float64           `yaml:"temperature"`
	MaxTokens      int               `yaml:"max_tokens"`
	Timeout        time.Duration     `yaml:"timeout"`
	APIKey         string            `yaml:"api_key"`
	Endpoint       string            `yaml:"endpoint"`
	SystemPrompt   string            `yaml:"system_prompt"`
	ResponseFormat string            `yaml:"response_format"`
	SafetyFilter   bool              `yaml:"safety_filter"`
	RetryAttempts  int               `yaml:"retry_attempts"`
	RetryDelay     time.Duration     `yaml:"retry_delay"`
	Headers        map[string]string `yaml:"headers"`
}

// Default returns the system default configuration.
func Default() Config {
	return Config{
		Provider:      ProviderHosted,
		Model:         "gpt-4o-mini",
		Streaming:     true,
		Temperature:   0.7,
		MaxTokens:     2048,
		Timeout:       60 * time.Second,
		RetryAttempts: 2,
		RetryDelay:    time.Second,
	}
}

// Validate checks field ranges. It is called on the merged configuration so
// an out-of-range override is rejected before any provider call.
func (c Config) Validate() error {
	if !c.Provider.Valid() {
		return fmt.Errorf("unsupported provider kind %q", c.Provider)
	}
	if c.Model == "" {
		return fmt.Errorf("model must not be empty")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature %.2f out of range [0.0, 2.0]", c.Temperature)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("max tokens must be positive, got %d", c.MaxTokens)
	}
	if c.Timeout < time.Second {
		return fmt.Errorf("timeout %s below minimum of 1s", c.Timeout)
	}
	if c.RetryAttempts < 0 {
		return fmt.Errorf("retry attempts must not be negative, got %d", c.RetryAttempts)
	}
	return nil
}

// Clone returns a deep copy so a resolved Config can be handed out without
// sharing the headers map.
func (c Config) Clone() Config {
	out := c
	if c.Headers != nil {
		out.Headers = make(map[string]string, len(c.Headers))
		for k, v := range c.Headers {
			out.Headers[k] = v
		}
	}
	return out
}
