package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/shibata-rui-dn/OneAgent-sub001/logging"
	"github.com/shibata-rui-dn/OneAgent-sub001/provider"
)

// ErrToolNotFound is returned when a requested tool name is not registered.
var ErrToolNotFound = errors.New("tool not found")

// Registry maps tool names to executable handlers and their schemas. It is
// safe for concurrent use; tools are registered once and then only read.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]Tool
	schemas map[string]*jsonschema.Schema
	logger  logging.Logger
}

// NewRegistry creates an empty registry. A nil logger disables logging.
func NewRegistry(logger logging.Logger) *Registry {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Registry{
		tools:   make(map[string]Tool),
		schemas: make(map[string]*jsonschema.Schema),
		logger:  logger,
	}
}

// Register adds a tool, compiling its parameter schema once. Registering a
// name twice replaces the previous tool.
func (r *Registry) Register(t Tool) error {
	compiled, err := compileSchema(t.Name(), t.Parameters())
	if err != nil {
		return fmt.Errorf("register %s: %w", t.Name(), err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
	r.schemas[t.Name()] = compiled
	r.logger.Debug("registry.tool.registered", "tool", t.Name())
	return nil
}

// MustRegister is Register that panics on schema compilation failure. Meant
// for static tool sets wired at startup.
func (r *Registry) MustRegister(tools ...Tool) {
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns all registered tool names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListSelected resolves an ordered list of tool names, failing with
// ErrToolNotFound if any name is unknown. Order of the input is preserved.
func (r *Registry) ListSelected(names []string) ([]Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(names))
	for _, name := range names {
		t, ok := r.tools[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
		}
		out = append(out, t)
	}
	return out, nil
}

// Definitions converts tools to provider-format definitions.
func Definitions(tools []Tool) []provider.ToolDefinition {
	defs := make([]provider.ToolDefinition, len(tools))
	for i, t := range tools {
		defs[i] = provider.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		}
	}
	return defs
}

// Execute validates args against the tool's schema and invokes it, returning
// the result rendered as text. Failures are *ToolError values so callers can
// branch on the code.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any, auth *AuthContext) (string, error) {
	r.mu.RLock()
	t, ok := r.tools[name]
	schema := r.schemas[name]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}

	if schema != nil {
		if err := schema.Validate(normalize(args)); err != nil {
			return "", &ToolError{
				Tool:    name,
				Message: fmt.Sprintf("parameter validation failed: %v", err),
				Code:    CodeValidation,
				Details: err,
			}
		}
	}

	toolCtx := NewContext(ctx, auth, "", r.logger)
	result, err := t.Call(toolCtx, args)
	if err != nil {
		var toolErr *ToolError
		if errors.As(err, &toolErr) {
			return "", toolErr
		}
		return "", &ToolError{Tool: name, Message: err.Error(), Code: CodeExecution}
	}
	return renderResult(result)
}

// renderResult flattens a tool result into text for the model.
func renderResult(result any) (string, error) {
	switch v := result.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("serialize tool result: %w", err)
		}
		return string(data), nil
	}
}

// compileSchema turns a parameters map into a compiled JSON schema. A nil
// map means the tool takes no arguments and skips validation.
func compileSchema(name string, params map[string]any) (*jsonschema.Schema, error) {
	if params == nil {
		return nil, nil
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return jsonschema.CompileString(name+".schema.json", string(raw))
}

// normalize round-trips args through JSON so integer literals typed as int
// validate against "number"/"integer" schemas the same way decoded input does.
func normalize(args map[string]any) any {
	raw, err := json.Marshal(args)
	if err != nil {
		return args
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return args
	}
	return out
}
