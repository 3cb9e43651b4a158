// Package tool implements the function / tool calling subsystem: a closed
// Tool interface, a registry mapping names to executable handlers and their
// schemas, and a generic adapter exposing plain Go functions as tools with
// schema validated arguments and consistent error codes.
package tool

import (
	"context"
	"fmt"

	"github.com/shibata-rui-dn/OneAgent-sub001/logging"
)

// Tool defines the interface for extending the engine with external functions.
//
// Tool implementations should:
//   - Provide clear, descriptive names and descriptions
//   - Define proper JSON schema for parameters
//   - Handle errors gracefully
//   - Be thread-safe if used concurrently
type Tool interface {
	// Name returns the unique identifier for this tool.
	// Names should be descriptive and follow function naming conventions (snake_case recommended).
	Name() string

	// Description returns a human-readable description of what this tool does.
	// This description is provided to the LLM to help it understand when and how to use the tool.
	Description() string

	// Parameters returns a JSON schema describing the expected input format.
	// This schema is used for parameter validation and LLM function calling.
	Parameters() map[string]any

	// Call executes the tool with already validated arguments and a Context
	// carrying the caller's auth context and the correlating call id.
	// The result can be any JSON-serializable Go value.
	Call(toolCtx *Context, args map[string]any) (any, error)
}

// AuthRequirer is an optional interface tools implement to declare that they
// only work for an authenticated caller. Tools without it are treated as
// requiring no authorization.
type AuthRequirer interface {
	RequiresAuth() bool
}

// AuthContext identifies the caller on whose behalf a tool executes. It is
// passed through the engine untouched.
type AuthContext struct {
	UserID   string   `json:"user_id,omitempty"`
	Username string   `json:"username,omitempty"`
	Email    string   `json:"email,omitempty"`
	Scopes   []string `json:"scopes,omitempty"`
}

// Context carries per-call execution state into a tool invocation.
type Context struct {
	ctx    context.Context
	auth   *AuthContext
	callID string
	logger logging.Logger
}

// NewContext builds a tool invocation context. A nil logger falls back to a
// no-op implementation.
func NewContext(ctx context.Context, auth *AuthContext, callID string, logger logging.Logger) *Context {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Context{ctx: ctx, auth: auth, callID: callID, logger: logger}
}

// Context returns the underlying context for cancellation and deadlines.
func (c *Context) Context() context.Context { return c.ctx }

// Auth returns the caller's auth context, or nil for anonymous calls.
func (c *Context) Auth() *AuthContext { return c.auth }

// CallID returns the correlating tool call identifier.
func (c *Context) CallID() string { return c.callID }

// Logger returns the logger bound to this invocation.
func (c *Context) Logger() logging.Logger { return c.logger }

// Error codes attached to ToolError for uniform downstream handling.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeExecution  = "EXECUTION_ERROR"
	CodePermission = "PERMISSION_ERROR"
	CodeNotFound   = "NOT_FOUND"
	CodeTimeout    = "TIMEOUT"
)

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`              // Name of the tool that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details any    `json:"details,omitempty"` // Additional error details
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{Tool: tool, Message: message, Code: code}
}
