package config

// Overrides carries caller-supplied configuration overrides. Every field is a
// pointer (or nil-able map) so "absent" and "explicitly set to the zero
// value" stay distinguishable; only non-nil fields participate in the merge.
type Overrides struct {
	Provider       *Provider         `json:"provider,omitempty"`
	Model          *string           `json:"model,omitempty"`
	Streaming      *bool             `json:"streaming,omitempty"`
	Temperature    *float64          `json:"temperature,omitempty"`
	MaxTokens      *int              `json:"max_tokens,omitempty"`
	TimeoutMillis  *int              `json:"timeout_ms,omitempty"`
	APIKey         *string           `json:"api_key,omitempty"`
	Endpoint       *string           `json:"endpoint,omitempty"`
	SystemPrompt   *string           `json:"system_prompt,omitempty"`
	ResponseFormat *string           `json:"response_format,omitempty"`
	SafetyFilter   *bool             `json:"safety_filter,omitempty"`
	RetryAttempts  *int              `json:"retry_attempts,omitempty"`
	RetryDelayMs   *int              `json:"retry_delay_ms,omitempty"`
	Headers        map[string]string `json:"headers,omitempty"`
}

// IsZero reports whether no override field is set.
func (o Overrides) IsZero() bool {
	return o.Provider == nil && o.Model == nil && o.Streaming == nil &&
		o.Temperature == nil && o.MaxTokens == nil && o.TimeoutMillis == nil &&
		o.APIKey == nil && o.Endpoint == nil && o.SystemPrompt == nil &&
		o.ResponseFormat == nil && o.SafetyFilter == nil &&
		o.RetryAttempts == nil && o.RetryDelayMs == nil && len(o.Headers) == 0
}

// Merge resolves defaults plus overrides into a new effective Config. Each
// field is resolved independently; unset overrides fall back to the default.
func Merge(defaults Config, o Overrides) Config {
	c := defaults.Clone()
	if o.Provider != nil {
		c.Provider = *o.Provider
	}
	if o.Model != nil {
		c.Model = *o.Model
	}
	if o.Streaming != nil {
		c.Streaming = *o.Streaming
	}
	if o.Temperature != nil {
		c.Temperature = *o.Temperature
	}
	if o.MaxTokens != nil {
		c.MaxTokens = *o.MaxTokens
	}
	if o.TimeoutMillis != nil {
		c.Timeout = millis(*o.TimeoutMillis)
	}
	if o.APIKey != nil {
		c.APIKey = *o.APIKey
	}
	if o.Endpoint != nil {
		c.Endpoint = *o.Endpoint
	}
	if o.SystemPrompt != nil {
		c.SystemPrompt = *o.SystemPrompt
	}
	if o.ResponseFormat != nil {
		c.ResponseFormat = *o.ResponseFormat
	}
	if o.SafetyFilter != nil {
		c.SafetyFilter = *o.SafetyFilter
	}
	if o.RetryAttempts != nil {
		c.RetryAttempts = *o.RetryAttempts
	}
	if o.RetryDelayMs != nil {
		c.RetryDelay = millis(*o.RetryDelayMs)
	}
	if len(o.Headers) > 0 {
		if c.Headers == nil {
			c.Headers = make(map[string]string, len(o.Headers))
		}
		for k, v := range o.Headers {
			c.Headers[k] = v
		}
	}
	return c
}

// RequiresReinit compares two effective configurations and reports whether
// the provider client must be rebuilt. Only transport-relevant fields count:
// provider kind, credentials, endpoint and custom headers. Model, sampling
// and retry settings are applied per request and never force a rebuild.
func RequiresReinit(old, new Config) bool {
	if old.Provider != new.Provider {
		return true
	}
	if old.APIKey != new.APIKey {
		return true
	}
	if old.Endpoint != new.Endpoint {
		return true
	}
	return !headersEqual(old.Headers, new.Headers)
}

func headersEqual(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if bv, ok := b[k]; !ok || bv != v {
			return false
		}
	}
	return true
}
