// Package provider defines the transport-neutral contract between the
// execution engine and model backends: a flat conversation message shape,
// streaming chunks with tool call deltas, token usage accounting and the
// Client interface all adapters implement.
//
// Concrete adapters live in the subpackages openai (hosted non-Claude models,
// enterprise gateways and self-hosted OpenAI-compatible servers) and
// anthropic (hosted Claude models). MockClient supports tests and examples
// without network access.
package provider
