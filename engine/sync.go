package engine

import (
	"context"
	"fmt"

	"github.com/shibata-rui-dn/OneAgent-sub001/provider"
)

// Result is the consolidated answer of a non-streaming execution.
type Result struct {
	Text     string              `json:"text"`
	Outcomes []ToolOutcome       `json:"outcomes,omitempty"`
	Recovery *RecoveryInfo       `json:"recovery,omitempty"`
	Usage    provider.TokenUsage `json:"usage"`
}

// RecoveryInfo summarises the tool failures of a request so a caller can
// decide whether to retry, re-authenticate or reformulate. It is only present
// when at least one tool call failed.
type RecoveryInfo struct {
	FailedCalls      int                 `json:"failed_calls"`
	RecoverableCalls int                 `json:"recoverable_calls"`
	Suggestions      []string            `json:"suggestions,omitempty"`
	Alternatives     map[string][]string `json:"alternatives,omitempty"`
}

// Execute runs a query end to end and returns once the final answer is
// complete. It drives the same turn machinery as Stream with event emission
// disabled; tool calls still execute sequentially between the two turns.
func (e *Engine) Execute(ctx context.Context, query string, opts *Options) (*Result, error) {
	cfg, client, selected, err := e.prepare(opts)
	if err != nil {
		return nil, err
	}
	if opts == nil {
		opts = &Options{}
	}

	discard := func(Event) bool { return true }

	start := e.metrics.begin()
	res := &Result{}

	req := buildRequest(cfg, query, opts, selected, false)
	st, err := e.callWithRetry(ctx, cfg, client, req, discard)
	if err != nil {
		e.metrics.complete(start, false)
		return nil, err
	}
	turn, err := e.consumeTurn(st, maxPrimaryChunks, discard)
	if err != nil {
		e.metrics.complete(start, false)
		return nil, err
	}
	res.Text = turn.text
	res.Usage.Add(turn.usage)

	if turn.finish == provider.FinishToolCalls && len(turn.calls) > 0 {
		outcomes := e.executeToolCalls(ctx, opts, selected, turn.calls, discard)
		res.Outcomes = outcomes
		res.Recovery = buildRecoveryInfo(outcomes)

		followupReq := buildFollowupRequest(req, turn.calls, outcomes, func(msg string) {
			e.logger.Warn("engine.followup.id_collision", "detail", msg)
		})
		st, err := e.callWithRetry(ctx, cfg, client, followupReq, discard)
		if err != nil {
			e.metrics.complete(start, false)
			return nil, fmt.Errorf("follow-up call failed: %w", err)
		}
		followup, err := e.consumeTurn(st, maxFollowupChunks, discard)
		if err != nil {
			e.metrics.complete(start, false)
			return nil, fmt.Errorf("follow-up stream failed: %w", err)
		}
		res.Text = followup.text
		res.Usage.Add(followup.usage)
	}

	if res.Text == "" {
		res.Text = fallbackAnswer
	}

	e.metrics.complete(start, true)
	return res, nil
}

// buildRecoveryInfo condenses failed outcomes into a RecoveryInfo, or nil
// when every call succeeded.
func buildRecoveryInfo(outcomes []ToolOutcome) *RecoveryInfo {
	info := &RecoveryInfo{}
	for _, o := range outcomes {
		if o.Status != OutcomeFailed {
			continue
		}
		info.FailedCalls++
		if o.Recoverable {
			info.RecoverableCalls++
		}
		if o.Suggestion != "" {
			info.Suggestions = append(info.Suggestions, fmt.Sprintf("%s: %s", o.Name, o.Suggestion))
		}
		if len(o.Alternatives) > 0 {
			if info.Alternatives == nil {
				info.Alternatives = make(map[string][]string)
			}
			info.Alternatives[o.Name] = o.Alternatives
		}
	}
	if info.FailedCalls == 0 {
		return nil
	}
	return info
}
