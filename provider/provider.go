package provider

import (
	"context"
	"fmt"
)

// Message is one conversation turn in provider-neutral form. ToolCalls is
// populated on assistant turns that request tool execution; ToolCallID links
// a tool-role turn back to the call it answers.
type Message struct {
	Role       string     `json:"role"` // "system", "user", "assistant", "tool"
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall represents a complete function call request surfaced by a model.
// Unified across vendors so downstream logic does not need per-provider branching.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // JSON string of arguments
}

// ToolCallDelta is an incremental tool call fragment from a streaming
// response. Index identifies which call the fragment belongs to; ID, Name and
// Arguments may each be empty on any given fragment.
type ToolCallDelta struct {
	Index     int    `json:"index"`
	ID        string `json:"id,omitempty"`
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

// ToolDefinition declaratively exposes a callable function to the model.
// Parameters is a JSON Schema object (draft agnostic, minimal subset expected).
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request captures the normalized model input produced by the request builder.
type Request struct {
	Instructions   string           `json:"instructions"` // System prompt
	Messages       []Message        `json:"messages"`
	Tools          []ToolDefinition `json:"tools,omitempty"`
	Stream         bool             `json:"stream,omitempty"`
	Model          string           `json:"model,omitempty"`
	Temperature    float64          `json:"temperature,omitempty"`
	MaxTokens      int              `json:"max_tokens,omitempty"`
	ResponseFormat string           `json:"response_format,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add accumulates another usage report in place.
func (u *TokenUsage) Add(other TokenUsage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
}

// Finish reason values reported by Chunk. Providers are normalized to these
// three; anything else is passed through verbatim.
const (
	FinishStop      = "stop"
	FinishLength    = "length"
	FinishToolCalls = "tool_calls"
)

// Chunk is a (partial or final) piece of model output. In streaming mode a
// turn is a sequence of chunks ending with one that carries a FinishReason;
// in batch mode the turn is exactly one final chunk.
type Chunk struct {
	Text         string          `json:"text,omitempty"`
	ToolCalls    []ToolCallDelta `json:"tool_calls,omitempty"`
	FinishReason string          `json:"finish_reason,omitempty"` // empty until the turn ends
	Usage        *TokenUsage     `json:"usage,omitempty"`
}

// Info contains metadata about a provider client implementation.
type Info struct {
	Name     string `json:"name"`     // model identifier
	Provider string `json:"provider"` // "openai", "anthropic", ...
}

// Client is the minimal interface the engine requires to drive generation.
// Generate returns a chunk channel and an error channel; both are closed when
// the turn is over. Implementations must respect ctx cancellation.
type Client interface {
	Generate(ctx context.Context, req Request) (<-chan Chunk, <-chan error)

	// Info returns information about the client implementation.
	Info() Info
}

// Unavailable is a Client placeholder for an initializer that could not
// build a real transport. Construction never fails; the stored reason
// surfaces lazily on first use.
type Unavailable struct {
	Reason error
}

// Generate immediately reports the stored initialization failure.
func (u *Unavailable) Generate(ctx context.Context, req Request) (<-chan Chunk, <-chan error) {
	out := make(chan Chunk)
	errCh := make(chan error, 1)
	errCh <- fmt.Errorf("provider client unavailable: %w", u.Reason)
	close(out)
	close(errCh)
	return out, errCh
}

// Info implements Client.
func (u *Unavailable) Info() Info { return Info{Provider: "unavailable"} }
