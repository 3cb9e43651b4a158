// Package oneagent provides a high-level façade over the execution engine,
// tool registry and configuration loader. Most applications interact with
// this package by:
//  1. Creating a OneAgent via New() (optionally loading a YAML configuration)
//  2. Registering one or more tools (typically via tool.NewFunctionTool)
//  3. Running queries asynchronously (Stream) or synchronously (Execute)
//
// The façade delegates orchestration to engine.Engine while keeping setup
// ergonomics concise. All defaults are safe for local development; production
// deployments typically supply a configuration file and a structured logger.
package oneagent

import (
	"context"

	"github.com/shibata-rui-dn/OneAgent-sub001/config"
	"github.com/shibata-rui-dn/OneAgent-sub001/engine"
	"github.com/shibata-rui-dn/OneAgent-sub001/logging"
	"github.com/shibata-rui-dn/OneAgent-sub001/tool"
)

// Options configures the OneAgent instance.
type Options struct {
	// Config is the engine's effective configuration.
	Config config.Config

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger

	// ClientFactory replaces the default provider client initializer.
	// Intended for tests and custom transports.
	ClientFactory engine.ClientFactory
}

// OneAgent is the high-level façade aggregating the engine and tool registry.
type OneAgent struct {
	engine   *engine.Engine
	registry *tool.Registry
}

// New creates a OneAgent instance with optional overrides. An unset
// configuration falls back to the built-in defaults; construction never
// fails, a misconfigured provider surfaces on first use.
func New(optFns ...func(o *Options)) *OneAgent {
	opts := Options{
		Config: config.Default(),
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	registry := tool.NewRegistry(opts.Logger)

	engineOpts := []func(o *engine.EngineOptions){engine.WithLogger(opts.Logger)}
	if opts.ClientFactory != nil {
		engineOpts = append(engineOpts, engine.WithClientFactory(opts.ClientFactory))
	}

	return &OneAgent{
		engine:   engine.New(opts.Config, registry, engineOpts...),
		registry: registry,
	}
}

// NewFromFile creates a OneAgent from a YAML configuration file. Optional
// overrides are applied after the file has been loaded.
func NewFromFile(path string, optFns ...func(o *Options)) (*OneAgent, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	all := append([]func(o *Options){func(o *Options) { o.Config = cfg }}, optFns...)
	return New(all...), nil
}

// WithConfig sets the engine configuration.
func WithConfig(cfg config.Config) func(o *Options) {
	return func(o *Options) { o.Config = cfg }
}

// WithLogger sets the logger used by the engine and tool registry.
func WithLogger(l logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = l }
}

// WithClientFactory replaces the provider client initializer.
func WithClientFactory(f engine.ClientFactory) func(o *Options) {
	return func(o *Options) { o.ClientFactory = f }
}

// RegisterTool adds a tool to the registry, compiling its parameter schema.
func (a *OneAgent) RegisterTool(t tool.Tool) error { return a.registry.Register(t) }

// MustRegisterTool registers a tool and panics on error. Intended for static
// wiring during startup.
func (a *OneAgent) MustRegisterTool(t tool.Tool) { a.registry.MustRegister(t) }

// Tools returns the names of all registered tools in sorted order.
func (a *OneAgent) Tools() []string { return a.registry.Names() }

// Stream runs a query and returns an ordered event channel. The channel is
// closed after a terminal event; cancel ctx to abandon the stream early.
func (a *OneAgent) Stream(ctx context.Context, query string, opts *engine.Options) (<-chan engine.Event, error) {
	return a.engine.Stream(ctx, query, opts)
}

// Execute runs a query synchronously and returns the consolidated result.
func (a *OneAgent) Execute(ctx context.Context, query string, opts *engine.Options) (*engine.Result, error) {
	return a.engine.Execute(ctx, query, opts)
}

// Reconfigure applies configuration overrides outside of any request.
func (a *OneAgent) Reconfigure(o config.Overrides) error { return a.engine.Reconfigure(o) }

// Config returns a copy of the current effective configuration.
func (a *OneAgent) Config() config.Config { return a.engine.Config() }

// Stats returns a snapshot of this instance's telemetry counters.
func (a *OneAgent) Stats() engine.Stats { return a.engine.Stats() }

// CheckHealth probes the configured provider with a minimal completion.
func (a *OneAgent) CheckHealth(ctx context.Context) engine.Health { return a.engine.CheckHealth(ctx) }
