package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/shibata-rui-dn/OneAgent-sub001/config"
	"github.com/shibata-rui-dn/OneAgent-sub001/provider"
	"github.com/shibata-rui-dn/OneAgent-sub001/tool"
)

// Chunk ceilings bounding pathological providers that never terminate. The
// follow-up turn gets a tighter budget since it only narrates tool results.
const (
	maxPrimaryChunks  = 2000
	maxFollowupChunks = 500
)

// fallbackAnswer is emitted when a turn produces neither text nor tool calls,
// so no request ever silently returns nothing.
const fallbackAnswer = "The model returned an empty response. Please check the provider configuration (model id, endpoint and credentials) and try again."

// accEntry accumulates partial tool-call fragments for one provider index.
// Name and argument text grow by concatenation; the id is assigned once and
// never reassigned.
type accEntry struct {
	id   string
	name string
	args strings.Builder
}

// accumulator reassembles streamed tool calls keyed by chunk-reported index.
type accumulator struct {
	entries map[int]*accEntry
}

func newAccumulator() *accumulator {
	return &accumulator{entries: make(map[int]*accEntry)}
}

// merge folds one delta into the accumulator.
func (a *accumulator) merge(d provider.ToolCallDelta) {
	entry, ok := a.entries[d.Index]
	if !ok {
		entry = &accEntry{}
		a.entries[d.Index] = entry
	}
	if entry.id == "" && d.ID != "" {
		entry.id = d.ID
	}
	entry.name += d.Name
	entry.args.WriteString(d.Arguments)
}

// finalize returns the completed tool calls in index order. Entries missing a
// provider id receive a generated one so follow-up correlation still works.
func (a *accumulator) finalize() []provider.ToolCall {
	if len(a.entries) == 0 {
		return nil
	}
	indices := make([]int, 0, len(a.entries))
	for idx := range a.entries {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	calls := make([]provider.ToolCall, 0, len(indices))
	for _, idx := range indices {
		entry := a.entries[idx]
		id := entry.id
		if id == "" {
			id = "call_" + uuid.NewString()
		}
		calls = append(calls, provider.ToolCall{ID: id, Name: entry.name, Arguments: entry.args.String()})
	}
	return calls
}

// turnResult is the consolidated outcome of consuming one provider turn.
type turnResult struct {
	text      string
	calls     []provider.ToolCall
	finish    string
	usage     provider.TokenUsage
	truncated bool // finish reason "length"
}

// consumeTurn drives one provider turn to completion: text deltas are
// forwarded verbatim, tool-call deltas merged into the accumulator, usage
// counted and re-emitted. It aborts once maxChunks is exceeded.
func (e *Engine) consumeTurn(st *turnStream, maxChunks int, emit func(Event) bool) (*turnResult, error) {
	defer st.cancel()

	res := &turnResult{}
	acc := newAccumulator()
	chunkCount := 0
	var text strings.Builder

	handle := func(ck provider.Chunk) error {
		chunkCount++
		if chunkCount > maxChunks {
			st.cancel()
			return fmt.Errorf("stream aborted: chunk safety limit of %d exceeded", maxChunks)
		}
		if ck.Text != "" {
			text.WriteString(ck.Text)
			if !emit(newTextEvent(ck.Text)) {
				return errStreamAbandoned
			}
		}
		for _, d := range ck.ToolCalls {
			acc.merge(d)
		}
		if ck.FinishReason != "" {
			res.finish = ck.FinishReason
		}
		if ck.Usage != nil {
			res.usage.Add(*ck.Usage)
			e.metrics.addTokens(int64(ck.Usage.TotalTokens))
			if !emit(newUsageEvent(*ck.Usage)) {
				return errStreamAbandoned
			}
		}
		return nil
	}

	if st.first != nil {
		if err := handle(*st.first); err != nil {
			return nil, err
		}
	}

	for st.chunks != nil || st.errs != nil {
		select {
		case ck, ok := <-st.chunks:
			if !ok {
				st.chunks = nil
				continue
			}
			if err := handle(ck); err != nil {
				return nil, err
			}
		case err, ok := <-st.errs:
			if !ok {
				st.errs = nil
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("provider stream error: %w", err)
			}
		}
	}

	res.text = text.String()
	res.calls = acc.finalize()
	res.truncated = res.finish == provider.FinishLength
	return res, nil
}

var errStreamAbandoned = fmt.Errorf("event stream abandoned by caller")

// process is the streaming state machine: primary turn, optional tool
// execution, optional follow-up turn, terminal event. Every exit path emits
// either EventEnd or EventError.
func (e *Engine) process(
	ctx context.Context,
	cfg config.Config,
	client provider.Client,
	query string,
	opts *Options,
	selected []tool.Tool,
	emit func(Event) bool,
) {
	start := e.metrics.begin()
	fail := func(err error) {
		e.metrics.complete(start, false)
		e.logger.Error("engine.request.failed", "error", err.Error())
		emit(newMessageEvent(EventError, err.Error()))
	}

	if !emit(newMessageEvent(EventInit, fmt.Sprintf("processing query with model %s", cfg.Model))) {
		e.metrics.complete(start, false)
		return
	}

	req := buildRequest(cfg, query, opts, selected, true)

	st, err := e.callWithRetry(ctx, cfg, client, req, emit)
	if err != nil {
		fail(err)
		return
	}
	res, err := e.consumeTurn(st, maxPrimaryChunks, emit)
	if err != nil {
		fail(err)
		return
	}

	if res.truncated {
		if !emit(newMessageEvent(EventWarning, "response truncated: maximum output tokens reached")) {
			e.metrics.complete(start, false)
			return
		}
	}

	if res.finish == provider.FinishToolCalls && len(res.calls) > 0 {
		outcomes := e.executeToolCalls(ctx, opts, selected, res.calls, emit)

		followupReq := buildFollowupRequest(req, res.calls, outcomes, func(msg string) {
			e.logger.Warn("engine.followup.id_collision", "detail", msg)
			emit(newMessageEvent(EventWarning, msg))
		})
		st, err := e.callWithRetry(ctx, cfg, client, followupReq, emit)
		if err != nil {
			fail(fmt.Errorf("follow-up call failed: %w", err))
			return
		}
		followup, err := e.consumeTurn(st, maxFollowupChunks, emit)
		if err != nil {
			fail(fmt.Errorf("follow-up stream failed: %w", err))
			return
		}
		if followup.text == "" && !emit(newTextEvent(fallbackAnswer)) {
			e.metrics.complete(start, false)
			return
		}
	} else if res.text == "" {
		// Neither text nor tool calls: never return silently empty.
		if !emit(newTextEvent(fallbackAnswer)) {
			e.metrics.complete(start, false)
			return
		}
	}

	e.metrics.complete(start, true)
	emit(newEvent(EventEnd))
}
