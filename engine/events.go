package engine

import (
	"time"

	"github.com/google/uuid"

	"github.com/shibata-rui-dn/OneAgent-sub001/provider"
)

// EventType discriminates the kinds of stream events the engine emits.
type EventType string

const (
	// EventInit is emitted once before the first provider call.
	EventInit EventType = "init"
	// EventText carries an incremental text delta.
	EventText EventType = "text"
	// EventToolCallsStart announces a batch of tool executions.
	EventToolCallsStart EventType = "tool_calls_start"
	// EventToolCallStart announces one tool execution.
	EventToolCallStart EventType = "tool_call_start"
	// EventToolCallResult carries a successful tool result.
	EventToolCallResult EventType = "tool_call_result"
	// EventToolCallError carries a classified tool failure.
	EventToolCallError EventType = "tool_call_error"
	// EventToolCallsEnd summarizes a finished tool batch.
	EventToolCallsEnd EventType = "tool_calls_end"
	// EventWarning carries a non-fatal condition (length cutoff, id collision).
	EventWarning EventType = "warning"
	// EventRetry is emitted before each provider call re-attempt.
	EventRetry EventType = "retry"
	// EventUsage reports token usage from the provider.
	EventUsage EventType = "usage"
	// EventError is terminal: the request failed.
	EventError EventType = "error"
	// EventEnd is terminal: the request completed.
	EventEnd EventType = "end"
)

// Event is one element of the ordered stream a caller consumes. Only the
// fields relevant to the Type are populated. After emission an Event is
// immutable.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	Text    string `json:"text,omitempty"`    // text delta (EventText)
	Message string `json:"message,omitempty"` // human-readable detail

	ToolName     string    `json:"tool_name,omitempty"`
	Result       string    `json:"result,omitempty"`
	ErrorKind    ErrorKind `json:"error_kind,omitempty"`
	Suggestion   string    `json:"suggestion,omitempty"`
	Recoverable  bool      `json:"recoverable,omitempty"`
	Alternatives []string  `json:"alternatives,omitempty"`

	Count        int `json:"count,omitempty"`         // tool calls in the batch
	SuccessCount int `json:"success_count,omitempty"` // EventToolCallsEnd
	ErrorCount   int `json:"error_count,omitempty"`   // EventToolCallsEnd
	Attempt      int `json:"attempt,omitempty"`       // EventRetry

	Usage *provider.TokenUsage `json:"usage,omitempty"`
}

func newEvent(t EventType) Event {
	return Event{ID: uuid.NewString(), Type: t, Timestamp: time.Now().UTC()}
}

func newTextEvent(delta string) Event {
	e := newEvent(EventText)
	e.Text = delta
	return e
}

func newMessageEvent(t EventType, msg string) Event {
	e := newEvent(t)
	e.Message = msg
	return e
}

func newRetryEvent(attempt int, msg string) Event {
	e := newEvent(EventRetry)
	e.Attempt = attempt
	e.Message = msg
	return e
}

func newUsageEvent(usage provider.TokenUsage) Event {
	e := newEvent(EventUsage)
	u := usage
	e.Usage = &u
	return e
}

func newToolCallsStartEvent(count int) Event {
	e := newEvent(EventToolCallsStart)
	e.Count = count
	return e
}

func newToolCallStartEvent(name string) Event {
	e := newEvent(EventToolCallStart)
	e.ToolName = name
	return e
}

func newToolCallResultEvent(name, result string) Event {
	e := newEvent(EventToolCallResult)
	e.ToolName = name
	e.Result = result
	return e
}

func newToolCallErrorEvent(outcome ToolOutcome) Event {
	e := newEvent(EventToolCallError)
	e.ToolName = outcome.Name
	e.Message = outcome.Message
	e.ErrorKind = outcome.ErrorKind
	e.Suggestion = outcome.Suggestion
	e.Recoverable = outcome.Recoverable
	e.Alternatives = outcome.Alternatives
	return e
}

func newToolCallsEndEvent(successes, failures int) Event {
	e := newEvent(EventToolCallsEnd)
	e.SuccessCount = successes
	e.ErrorCount = failures
	e.Count = successes + failures
	return e
}
