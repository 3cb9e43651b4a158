package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/shibata-rui-dn/OneAgent-sub001/config"
	"github.com/shibata-rui-dn/OneAgent-sub001/provider"
	"github.com/shibata-rui-dn/OneAgent-sub001/tool"
)

// mockTool lets expectations drive tool behavior per call.
type mockTool struct {
	mock.Mock
	name string
}

func (m *mockTool) Name() string               { return m.name }
func (m *mockTool) Description() string        { return "mock tool " + m.name }
func (m *mockTool) Parameters() map[string]any { return nil }

func (m *mockTool) Call(toolCtx *tool.Context, args map[string]any) (any, error) {
	result := m.Called(toolCtx, args)
	return result.Get(0), result.Error(1)
}

func newExecEngine(t *testing.T, tools ...tool.Tool) *Engine {
	t.Helper()
	registry := tool.NewRegistry(nil)
	registry.MustRegister(tools...)
	return New(testConfig(), registry, WithClientFactory(func(config.Config) (provider.Client, error) {
		return provider.NewMockClient("test-model"), nil
	}))
}

func TestExecuteToolCalls_SequentialOrder(t *testing.T) {
	var order []string
	first := &mockTool{name: "first"}
	first.On("Call", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		order = append(order, "first")
	}).Return("one", nil)
	second := &mockTool{name: "second"}
	second.On("Call", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		order = append(order, "second")
	}).Return("two", nil)

	e := newExecEngine(t, first, second)
	selected, err := e.registry.ListSelected([]string{"first", "second"})
	require.NoError(t, err)

	calls := []provider.ToolCall{
		{ID: "c1", Name: "first", Arguments: "{}"},
		{ID: "c2", Name: "second", Arguments: "{}"},
	}
	outcomes := e.executeToolCalls(context.Background(), &Options{}, selected, calls, func(Event) bool { return true })

	require.Len(t, outcomes, 2)
	assert.Equal(t, []string{"first", "second"}, order)
	assert.Equal(t, OutcomeSucceeded, outcomes[0].Status)
	assert.Equal(t, "one", outcomes[0].Result)
	assert.Equal(t, "two", outcomes[1].Result)
	first.AssertExpectations(t)
	second.AssertExpectations(t)
}

func TestExecuteToolCalls_FailureKeepsGoing(t *testing.T) {
	failing := &mockTool{name: "failing"}
	failing.On("Call", mock.Anything, mock.Anything).Return(nil, tool.NewToolError("failing", "record does not exist", tool.CodeNotFound))
	working := &mockTool{name: "working"}
	working.On("Call", mock.Anything, mock.Anything).Return("fine", nil)

	e := newExecEngine(t, failing, working)
	selected, err := e.registry.ListSelected([]string{"failing", "working"})
	require.NoError(t, err)

	calls := []provider.ToolCall{
		{ID: "c1", Name: "failing", Arguments: "{}"},
		{ID: "c2", Name: "working", Arguments: "{}"},
	}
	outcomes := e.executeToolCalls(context.Background(), &Options{}, selected, calls, func(Event) bool { return true })

	require.Len(t, outcomes, 2)
	assert.Equal(t, OutcomeFailed, outcomes[0].Status)
	assert.Equal(t, ErrKindNotFound, outcomes[0].ErrorKind)
	assert.Equal(t, OutcomeSucceeded, outcomes[1].Status)
	working.AssertNumberOfCalls(t, "Call", 1)
}

func TestExecuteToolCalls_AuthPassthrough(t *testing.T) {
	auth := &tool.AuthContext{UserID: "u1", Scopes: []string{"files:read"}}
	observer := &mockTool{name: "observer"}
	observer.On("Call", mock.MatchedBy(func(tc *tool.Context) bool {
		return tc.Auth() == auth
	}), mock.Anything).Return("ok", nil)

	e := newExecEngine(t, observer)
	selected, err := e.registry.ListSelected([]string{"observer"})
	require.NoError(t, err)

	calls := []provider.ToolCall{{ID: "c1", Name: "observer", Arguments: "{}"}}
	outcomes := e.executeToolCalls(context.Background(), &Options{Auth: auth}, selected, calls, func(Event) bool { return true })

	require.Len(t, outcomes, 1)
	assert.Equal(t, OutcomeSucceeded, outcomes[0].Status)
	observer.AssertExpectations(t)
}

func TestExecuteToolCalls_CancellationStopsBatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var order []string
	first := &mockTool{name: "first"}
	first.On("Call", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		order = append(order, "first")
		cancel() // caller gives up while the first tool is still running
	}).Return("one", nil)
	second := &mockTool{name: "second"}
	second.On("Call", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		order = append(order, "second")
	}).Return("two", nil)

	e := newExecEngine(t, first, second)
	selected, err := e.registry.ListSelected([]string{"first", "second"})
	require.NoError(t, err)

	calls := []provider.ToolCall{
		{ID: "c1", Name: "first", Arguments: "{}"},
		{ID: "c2", Name: "second", Arguments: "{}"},
	}
	outcomes := e.executeToolCalls(ctx, &Options{}, selected, calls, func(Event) bool { return true })

	// The second tool must never start once the context is cancelled.
	assert.Equal(t, []string{"first"}, order)
	assert.Len(t, outcomes, 1)
	second.AssertNumberOfCalls(t, "Call", 0)
}

func TestExecuteToolCalls_AbandonedStreamStopsBatch(t *testing.T) {
	first := &mockTool{name: "first"}
	first.On("Call", mock.Anything, mock.Anything).Return("one", nil)
	second := &mockTool{name: "second"}

	e := newExecEngine(t, first, second)
	selected, err := e.registry.ListSelected([]string{"first", "second"})
	require.NoError(t, err)

	calls := []provider.ToolCall{
		{ID: "c1", Name: "first", Arguments: "{}"},
		{ID: "c2", Name: "second", Arguments: "{}"},
	}
	// The consumer abandons the stream after the first tool's result; every
	// emit from then on reports failure, like Stream's emit after ctx.Done.
	abandoned := false
	emit := func(ev Event) bool {
		if abandoned {
			return false
		}
		if ev.Type == EventToolCallResult {
			abandoned = true
			return false
		}
		return true
	}
	outcomes := e.executeToolCalls(context.Background(), &Options{}, selected, calls, emit)

	assert.Len(t, outcomes, 1)
	second.AssertNumberOfCalls(t, "Call", 0)
}

func TestExecuteToolCalls_EmptyArgumentsMeanNoArgs(t *testing.T) {
	noArgs := &mockTool{name: "no_args"}
	noArgs.On("Call", mock.Anything, map[string]any{}).Return("done", nil)

	e := newExecEngine(t, noArgs)
	selected, err := e.registry.ListSelected([]string{"no_args"})
	require.NoError(t, err)

	calls := []provider.ToolCall{{ID: "c1", Name: "no_args", Arguments: ""}}
	outcomes := e.executeToolCalls(context.Background(), &Options{}, selected, calls, func(Event) bool { return true })

	require.Len(t, outcomes, 1)
	assert.Equal(t, OutcomeSucceeded, outcomes[0].Status)
	noArgs.AssertExpectations(t)
}
