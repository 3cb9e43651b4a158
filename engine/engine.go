package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shibata-rui-dn/OneAgent-sub001/config"
	"github.com/shibata-rui-dn/OneAgent-sub001/logging"
	"github.com/shibata-rui-dn/OneAgent-sub001/provider"
	"github.com/shibata-rui-dn/OneAgent-sub001/provider/anthropic"
	"github.com/shibata-rui-dn/OneAgent-sub001/provider/openai"
	"github.com/shibata-rui-dn/OneAgent-sub001/tool"
)

// selfHostedTimeoutFloor is the minimum provider timeout for self-hosted
// endpoints; local inference is materially slower than hosted APIs.
const selfHostedTimeoutFloor = 120 * time.Second

// Options are the per-invocation process options: selected tools,
// conversation history, caller auth context and configuration overrides.
type Options struct {
	// Tools lists the selected tool names, all of which must be registered.
	Tools []string
	// History is the prior conversation, oldest first.
	History []provider.Message
	// Auth identifies the caller; passed through untouched to tool execution.
	Auth *tool.AuthContext
	// Overrides are merged over the engine configuration before the call;
	// the merged result becomes the engine's current configuration for
	// subsequent requests as well.
	Overrides config.Overrides
}

// ClientFactory builds a provider client from an effective configuration.
// Replaceable for tests.
type ClientFactory func(cfg config.Config) (provider.Client, error)

// EngineOptions configure construction of an Engine.
type EngineOptions struct {
	Logger        logging.Logger
	ClientFactory ClientFactory
}

// Engine turns a user query plus a set of callable tools into a finished
// answer by driving a model provider, executing tool calls on its behalf and
// feeding results back for narration. One Engine may serve concurrent
// requests; per-call state is allocated fresh per invocation and telemetry
// counters are atomic.
type Engine struct {
	mu        sync.Mutex // guards cfg, client, clientErr
	cfg       config.Config
	client    provider.Client
	clientErr error

	registry  *tool.Registry
	logger    logging.Logger
	metrics   metrics
	newClient ClientFactory
}

// New creates an Engine with the given effective configuration and tool
// registry. Construction never fails: a configuration that cannot produce a
// working provider client stores the reason and every operation surfaces it
// until the engine is reconfigured.
func New(cfg config.Config, registry *tool.Registry, optFns ...func(o *EngineOptions)) *Engine {
	opts := EngineOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.ClientFactory == nil {
		opts.ClientFactory = BuildClient
	}
	e := &Engine{
		cfg:       cfg,
		registry:  registry,
		logger:    opts.Logger,
		newClient: opts.ClientFactory,
	}
	e.client, e.clientErr = e.initClient(cfg)
	return e
}

// WithLogger sets the engine logger.
func WithLogger(l logging.Logger) func(o *EngineOptions) {
	return func(o *EngineOptions) { o.Logger = l }
}

// WithClientFactory replaces the provider client factory.
func WithClientFactory(f ClientFactory) func(o *EngineOptions) {
	return func(o *EngineOptions) { o.ClientFactory = f }
}

// initClient wraps the factory so initialization never panics or errors out
// of construction. On failure the returned client is a provider.Unavailable
// that surfaces the stored reason on use, so e.client is never nil.
func (e *Engine) initClient(cfg config.Config) (provider.Client, error) {
	if err := cfg.Validate(); err != nil {
		return &provider.Unavailable{Reason: err}, err
	}
	client, err := e.newClient(cfg)
	if err != nil {
		e.logger.Warn("engine.client.unavailable", "provider", string(cfg.Provider), "reason", err.Error())
		return &provider.Unavailable{Reason: err}, err
	}
	e.logger.Info("engine.client.initialized", "provider", string(cfg.Provider), "model", cfg.Model)
	return client, nil
}

// BuildClient is the default provider client initializer. Provider kind and
// model id select the transport:
//
//	hosted       vendor API; claude* models route to Anthropic, others to OpenAI
//	gateway      enterprise gateway, OpenAI-compatible, endpoint + key required
//	self-hosted  OpenAI-compatible local server, endpoint required, key optional
func BuildClient(cfg config.Config) (provider.Client, error) {
	switch cfg.Provider {
	case config.ProviderHosted:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("hosted provider requires an API key")
		}
		if strings.HasPrefix(strings.ToLower(cfg.Model), "claude") {
			return anthropic.NewClient(func(o *anthropic.Options) {
				o.Model = cfg.Model
				o.Temperature = cfg.Temperature
				o.MaxTokens = int64(cfg.MaxTokens)
				o.APIKey = cfg.APIKey
				o.Timeout = cfg.Timeout
			}), nil
		}
		return openai.NewClient(func(o *openai.Options) {
			o.Model = cfg.Model
			o.Temperature = cfg.Temperature
			o.MaxTokens = int64(cfg.MaxTokens)
			o.APIKey = cfg.APIKey
			o.Headers = cfg.Headers
			o.Timeout = cfg.Timeout
		}), nil

	case config.ProviderGateway:
		if cfg.Endpoint == "" {
			return nil, fmt.Errorf("gateway provider requires an endpoint")
		}
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("gateway provider requires an API key")
		}
		return openai.NewClient(func(o *openai.Options) {
			o.Model = cfg.Model
			o.Temperature = cfg.Temperature
			o.MaxTokens = int64(cfg.MaxTokens)
			o.APIKey = cfg.APIKey
			o.BaseURL = cfg.Endpoint
			o.Headers = cfg.Headers
			o.Timeout = cfg.Timeout
		}), nil

	case config.ProviderSelfHosted:
		if cfg.Endpoint == "" {
			return nil, fmt.Errorf("self-hosted provider requires an endpoint")
		}
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = "not-needed"
		}
		timeout := cfg.Timeout
		if timeout < selfHostedTimeoutFloor {
			timeout = selfHostedTimeoutFloor
		}
		return openai.NewClient(func(o *openai.Options) {
			o.Model = cfg.Model
			o.Temperature = cfg.Temperature
			o.MaxTokens = int64(cfg.MaxTokens)
			o.APIKey = apiKey
			o.BaseURL = cfg.Endpoint
			o.Headers = cfg.Headers
			o.Timeout = timeout
		}), nil

	default:
		return nil, fmt.Errorf("unsupported provider kind %q", cfg.Provider)
	}
}

// resolve merges per-call overrides over the engine configuration and, when
// the diff touches transport-relevant fields, rebuilds the provider client.
// The resolved configuration becomes the engine's current one.
func (e *Engine) resolve(o config.Overrides) (config.Config, provider.Client, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if o.IsZero() {
		if e.clientErr != nil {
			return config.Config{}, nil, e.clientErr
		}
		return e.cfg.Clone(), e.client, nil
	}

	merged := config.Merge(e.cfg, o)
	if err := merged.Validate(); err != nil {
		return config.Config{}, nil, err
	}
	if config.RequiresReinit(e.cfg, merged) {
		e.logger.Info("engine.client.reinit", "provider", string(merged.Provider))
		e.client, e.clientErr = e.initClient(merged)
	}
	e.cfg = merged
	if e.clientErr != nil {
		return config.Config{}, nil, e.clientErr
	}
	return e.cfg.Clone(), e.client, nil
}

// Reconfigure applies overrides outside of any request.
func (e *Engine) Reconfigure(o config.Overrides) error {
	_, _, err := e.resolve(o)
	return err
}

// Config returns a copy of the current effective configuration.
func (e *Engine) Config() config.Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg.Clone()
}

// prepare resolves configuration and validates the selected tools before any
// provider call is made.
func (e *Engine) prepare(opts *Options) (config.Config, provider.Client, []tool.Tool, error) {
	if opts == nil {
		opts = &Options{}
	}
	cfg, client, err := e.resolve(opts.Overrides)
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	selected, err := e.registry.ListSelected(opts.Tools)
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	return cfg, client, selected, nil
}

// Stream executes a query in streaming mode. The returned channel delivers
// an ordered event sequence and is closed after a terminal EventEnd or
// EventError. Cancelling ctx aborts outstanding provider and tool calls;
// a caller that stops consuming must cancel ctx to release the stream.
//
// Tool validation and configuration errors are returned synchronously,
// before any provider traffic.
func (e *Engine) Stream(ctx context.Context, query string, opts *Options) (<-chan Event, error) {
	cfg, client, selected, err := e.prepare(opts)
	if err != nil {
		return nil, err
	}
	if opts == nil {
		opts = &Options{}
	}

	events := make(chan Event, 64)
	go func() {
		defer close(events)
		emit := func(ev Event) bool {
			select {
			case events <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}
		e.process(ctx, cfg, client, query, opts, selected, emit)
	}()
	return events, nil
}
