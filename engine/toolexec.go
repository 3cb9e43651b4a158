package engine

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/shibata-rui-dn/OneAgent-sub001/provider"
	"github.com/shibata-rui-dn/OneAgent-sub001/tool"
)

// OutcomeStatus tags the lifecycle state of a ToolOutcome.
type OutcomeStatus string

const (
	// OutcomeSucceeded marks a tool call that returned a result.
	OutcomeSucceeded OutcomeStatus = "succeeded"
	// OutcomeFailed marks a tool call that could not produce a result.
	OutcomeFailed OutcomeStatus = "failed"
)

// ToolOutcome records one finished tool call. Outcomes live for exactly one
// request: they are created when an accumulator entry is finalized, consumed
// by the follow-up builder and then discarded.
type ToolOutcome struct {
	Status    OutcomeStatus `json:"status"`
	CallID    string        `json:"call_id"`
	Name      string        `json:"name"`
	Arguments string        `json:"arguments"`
	Result    string        `json:"result,omitempty"`

	ErrorKind    ErrorKind `json:"error_kind,omitempty"`
	Message      string    `json:"message,omitempty"`
	Recoverable  bool      `json:"recoverable,omitempty"`
	Suggestion   string    `json:"suggestion,omitempty"`
	Alternatives []string  `json:"alternatives,omitempty"`
}

// executeToolCalls runs every finalized tool call sequentially in provider
// order, classifying failures instead of aborting: parse and execution errors
// become failed outcomes the model can reason about in the follow-up turn.
// Caller cancellation is the exception: no further tool starts once ctx is
// done or the event stream has been abandoned.
func (e *Engine) executeToolCalls(
	ctx context.Context,
	opts *Options,
	selected []tool.Tool,
	calls []provider.ToolCall,
	emit func(Event) bool,
) []ToolOutcome {
	emit(newToolCallsStartEvent(len(calls)))

	byName := make(map[string]tool.Tool, len(selected))
	for _, t := range selected {
		byName[t.Name()] = t
	}

	outcomes := make([]ToolOutcome, 0, len(calls))
	successes, failures := 0, 0

	for _, call := range calls {
		if ctx.Err() != nil {
			e.logger.Warn("engine.tool.batch_cancelled", "remaining", len(calls)-len(outcomes))
			break
		}
		if !emit(newToolCallStartEvent(call.Name)) {
			break
		}
		start := time.Now()

		outcome := ToolOutcome{CallID: call.ID, Name: call.Name, Arguments: call.Arguments}

		args, parseErr := parseArguments(call.Arguments)
		if parseErr != nil {
			outcome.Status = OutcomeFailed
			outcome.ErrorKind = ErrKindParse
			outcome.Message = "tool arguments are not valid JSON: " + parseErr.Error()
			outcome.Recoverable = true
			outcome.Suggestion = "Emit the arguments again as one well-formed JSON object."
			failures++
			outcomes = append(outcomes, outcome)
			e.logger.Warn("engine.tool.parse_failed", "tool", call.Name, "error", parseErr.Error())
			emit(newToolCallErrorEvent(outcome))
			continue
		}

		result, err := e.registry.Execute(ctx, call.Name, args, opts.Auth)
		if err != nil {
			cls := classifyToolError(err)
			outcome.Status = OutcomeFailed
			outcome.ErrorKind = cls.Kind
			outcome.Message = err.Error()
			outcome.Recoverable = cls.Recoverable
			outcome.Suggestion = cls.Suggestion
			if failed, ok := byName[call.Name]; ok {
				outcome.Alternatives = alternativeTools(failed, cls.Kind, selected)
			}
			failures++
			outcomes = append(outcomes, outcome)
			e.logger.Error("engine.tool.failed", "tool", call.Name, "kind", string(cls.Kind), "duration_ms", time.Since(start).Milliseconds())
			emit(newToolCallErrorEvent(outcome))
			continue
		}

		outcome.Status = OutcomeSucceeded
		outcome.Result = result
		successes++
		outcomes = append(outcomes, outcome)
		e.logger.Info("engine.tool.succeeded", "tool", call.Name, "duration_ms", time.Since(start).Milliseconds())
		emit(newToolCallResultEvent(call.Name, result))
	}

	emit(newToolCallsEndEvent(successes, failures))
	return outcomes
}

// parseArguments decodes accumulated argument text. Empty text means a
// zero-argument call, not an error.
func parseArguments(text string) (map[string]any, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(trimmed), &args); err != nil {
		return nil, err
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}
