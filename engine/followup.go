package engine

import (
	"encoding/json"
	"fmt"

	"github.com/shibata-rui-dn/OneAgent-sub001/provider"
)

// failedResultPayload is the structured body of a tool-result turn for a
// failed outcome, so the model can reason about recovery instead of parsing
// prose.
type failedResultPayload struct {
	Error        string    `json:"error"`
	Kind         ErrorKind `json:"kind"`
	Suggestion   string    `json:"suggestion"`
	Recoverable  bool      `json:"recoverable"`
	Alternatives []string  `json:"alternatives,omitempty"`
}

// buildFollowupRequest extends the original request with the assistant turn
// carrying the accumulated tool calls and one tool-result turn per outcome,
// then asks for plain narration (no tools, so the model cannot recurse).
//
// Correlation ids must be unique across the tool-result turns. Duplicate ids
// from the provider are an anomaly, not something this engine produces; they
// are renamed deterministically with a suffix and reported through warn.
func buildFollowupRequest(
	base provider.Request,
	calls []provider.ToolCall,
	outcomes []ToolOutcome,
	warn func(string),
) provider.Request {
	seen := make(map[string]int, len(calls))
	uniqueCalls := make([]provider.ToolCall, len(calls))
	copy(uniqueCalls, calls)
	for i := range uniqueCalls {
		id := uniqueCalls[i].ID
		if n, dup := seen[id]; dup {
			renamed := fmt.Sprintf("%s_dup%d", id, n)
			seen[id] = n + 1
			warn(fmt.Sprintf("duplicate tool call id %q from provider; renamed to %q", id, renamed))
			uniqueCalls[i].ID = renamed
			seen[renamed] = 1
			continue
		}
		seen[id] = 1
	}

	messages := make([]provider.Message, 0, len(base.Messages)+1+len(outcomes))
	messages = append(messages, base.Messages...)
	messages = append(messages, provider.Message{Role: "assistant", ToolCalls: uniqueCalls})

	for i, outcome := range outcomes {
		content := outcome.Result
		if outcome.Status == OutcomeFailed {
			payload, err := json.Marshal(failedResultPayload{
				Error:        outcome.Message,
				Kind:         outcome.ErrorKind,
				Suggestion:   outcome.Suggestion,
				Recoverable:  outcome.Recoverable,
				Alternatives: outcome.Alternatives,
			})
			if err != nil {
				payload = []byte(fmt.Sprintf(`{"error":%q}`, outcome.Message))
			}
			content = string(payload)
		}
		id := outcome.CallID
		if i < len(uniqueCalls) {
			id = uniqueCalls[i].ID
		}
		messages = append(messages, provider.Message{
			Role:       "tool",
			Content:    content,
			ToolCallID: id,
		})
	}

	followup := base
	followup.Messages = messages
	followup.Tools = nil
	return followup
}
