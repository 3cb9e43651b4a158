package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors Config with durations as strings ("60s", "2m") since
// the YAML decoder has no native duration support. Pointer fields keep
// "absent" distinguishable from an explicit zero.
type fileConfig struct {
	Provider       *string           `yaml:"provider"`
	Model          *string           `yaml:"model"`
	Streaming      *bool             `yaml:"streaming"`
	Temperature    *float64          `yaml:"temperature"`
	MaxTokens      *int              `yaml:"max_tokens"`
	Timeout        *string           `yaml:"timeout"`
	APIKey         *string           `yaml:"api_key"`
	Endpoint       *string           `yaml:"endpoint"`
	SystemPrompt   *string           `yaml:"system_prompt"`
	ResponseFormat *string           `yaml:"response_format"`
	SafetyFilter   *bool             `yaml:"safety_filter"`
	RetryAttempts  *int              `yaml:"retry_attempts"`
	RetryDelay     *string           `yaml:"retry_delay"`
	Headers        map[string]string `yaml:"headers"`
}

// Load reads system defaults from a YAML file, layered over Default() so a
// partial file is fine. The result is validated before being returned.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML bytes over the built-in defaults.
func Parse(data []byte) (Config, error) {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg := Default()
	if fc.Provider != nil {
		cfg.Provider = Provider(*fc.Provider)
	}
	if fc.Model != nil {
		cfg.Model = *fc.Model
	}
	if fc.Streaming != nil {
		cfg.Streaming = *fc.Streaming
	}
	if fc.Temperature != nil {
		cfg.Temperature = *fc.Temperature
	}
	if fc.MaxTokens != nil {
		cfg.MaxTokens = *fc.MaxTokens
	}
	if fc.Timeout != nil {
		d, err := time.ParseDuration(*fc.Timeout)
		if err != nil {
			return Config{}, fmt.Errorf("parse config timeout: %w", err)
		}
		cfg.Timeout = d
	}
	if fc.APIKey != nil {
		cfg.APIKey = *fc.APIKey
	}
	if fc.Endpoint != nil {
		cfg.Endpoint = *fc.Endpoint
	}
	if fc.SystemPrompt != nil {
		cfg.SystemPrompt = *fc.SystemPrompt
	}
	if fc.ResponseFormat != nil {
		cfg.ResponseFormat = *fc.ResponseFormat
	}
	if fc.SafetyFilter != nil {
		cfg.SafetyFilter = *fc.SafetyFilter
	}
	if fc.RetryAttempts != nil {
		cfg.RetryAttempts = *fc.RetryAttempts
	}
	if fc.RetryDelay != nil {
		d, err := time.ParseDuration(*fc.RetryDelay)
		if err != nil {
			return Config{}, fmt.Errorf("parse config retry delay: %w", err)
		}
		cfg.RetryDelay = d
	}
	if len(fc.Headers) > 0 {
		cfg.Headers = fc.Headers
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func millis(ms int) time.Duration { return time.Duration(ms) * time.Millisecond }
