package engine

import (
	"fmt"
	"strings"

	"github.com/shibata-rui-dn/OneAgent-sub001/config"
	"github.com/shibata-rui-dn/OneAgent-sub001/provider"
	"github.com/shibata-rui-dn/OneAgent-sub001/tool"
)

const defaultSystemPrompt = "You are OneAgent, a capable AI assistant. Answer the user's question directly; when tools are available, use them whenever they produce a better answer than recalling from memory."

// errorRecoveryPolicy is the fixed instruction block telling the model how to
// react to tool failures. It is always appended when tools are selected.
const errorRecoveryPolicy = `When a tool call fails, follow this recovery policy:
1. If arguments were rejected, correct them using the error details and retry.
2. If an alternative tool is suggested, consider using it instead.
3. If required information is missing, ask the user for it.
4. If the failure cannot be worked around, explain what went wrong and suggest a next step.
Never pretend a failed tool call succeeded.`

// buildSystemPrompt assembles the system instructions: base prompt, caller
// identity, conversation continuity, safety declaration, tool catalogue and
// the error-recovery policy.
func buildSystemPrompt(cfg config.Config, opts *Options, tools []tool.Tool) string {
	var b strings.Builder

	base := cfg.SystemPrompt
	if base == "" {
		base = defaultSystemPrompt
	}
	b.WriteString(base)

	if auth := opts.Auth; auth != nil {
		b.WriteString("\n\n")
		name := auth.Username
		if name == "" {
			name = auth.UserID
		}
		if auth.Email != "" {
			fmt.Fprintf(&b, "You are assisting %s (%s).", name, auth.Email)
		} else {
			fmt.Fprintf(&b, "You are assisting %s.", name)
		}
		if len(auth.Scopes) > 0 {
			fmt.Fprintf(&b, " Granted scopes: %s.", strings.Join(auth.Scopes, ", "))
		}
	}

	if len(opts.History) > 0 {
		b.WriteString("\n\nThis conversation continues from earlier turns. Maintain context from the conversation history and do not repeat earlier answers verbatim.")
	}

	if cfg.SafetyFilter {
		b.WriteString("\n\nSafety filtering is enabled. Decline requests for harmful, dangerous or abusive content.")
	}

	if len(tools) > 0 {
		b.WriteString("\n\nAvailable tools:")
		for _, t := range tools {
			fmt.Fprintf(&b, "\n- %s: %s", t.Name(), t.Description())
		}
		b.WriteString("\n\n")
		b.WriteString(errorRecoveryPolicy)
	}

	if cfg.ResponseFormat == "json" {
		b.WriteString("\n\nRespond with a single valid JSON object and nothing else.")
	}

	return b.String()
}

// buildMessages produces the ordered message list: history with system turns
// filtered out, then the new query. If the last history entry is a user turn
// whose trimmed text equals the new query it is dropped, so the same text is
// never sent twice.
func buildMessages(history []provider.Message, query string) []provider.Message {
	messages := make([]provider.Message, 0, len(history)+1)
	for _, m := range history {
		if m.Role == "system" {
			continue
		}
		messages = append(messages, m)
	}
	if n := len(messages); n > 0 {
		last := messages[n-1]
		if last.Role == "user" && strings.TrimSpace(last.Content) == strings.TrimSpace(query) {
			messages = messages[:n-1]
		}
	}
	return append(messages, provider.Message{Role: "user", Content: query})
}

// buildRequest combines the three request artifacts for one provider call.
// With no tools selected the definitions list stays empty and the provider
// call omits tool choice entirely.
func buildRequest(cfg config.Config, query string, opts *Options, tools []tool.Tool, stream bool) provider.Request {
	return provider.Request{
		Instructions:   buildSystemPrompt(cfg, opts, tools),
		Messages:       buildMessages(opts.History, query),
		Tools:          tool.Definitions(tools),
		Stream:         stream,
		Model:          cfg.Model,
		Temperature:    cfg.Temperature,
		MaxTokens:      cfg.MaxTokens,
		ResponseFormat: cfg.ResponseFormat,
	}
}
