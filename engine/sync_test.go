package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shibata-rui-dn/OneAgent-sub001/provider"
)

func TestExecute_TextOnly(t *testing.T) {
	mock := provider.NewMockClient("test-model")
	mock.QueueTurn(
		provider.Chunk{Text: "Hello."},
		provider.Chunk{FinishReason: provider.FinishStop, Usage: &provider.TokenUsage{TotalTokens: 7}},
	)
	e := newTestEngine(t, mock, testConfig())

	res, err := e.Execute(context.Background(), "greet me", nil)
	require.NoError(t, err)
	assert.Equal(t, "Hello.", res.Text)
	assert.Empty(t, res.Outcomes)
	assert.Nil(t, res.Recovery)
	assert.Equal(t, 7, res.Usage.TotalTokens)

	// Batch mode requests non-streaming turns.
	reqs := mock.Requests()
	require.Len(t, reqs, 1)
	assert.False(t, reqs[0].Stream)
}

func TestExecute_ToolCallsAndRecoveryInfo(t *testing.T) {
	mock := provider.NewMockClient("test-model")
	mock.QueueTurn(
		provider.Chunk{
			ToolCalls: []provider.ToolCallDelta{
				{Index: 0, ID: "c1", Name: "add_numbers", Arguments: `{"a": 1, "b": 2}`},
				{Index: 1, ID: "c2", Name: "add_numbers", Arguments: `{"a": "x", "b": 2}`},
			},
			FinishReason: provider.FinishToolCalls,
		},
	)
	mock.QueueTurn(provider.Chunk{Text: "One call worked, one did not.", FinishReason: provider.FinishStop})
	e := newTestEngine(t, mock, testConfig())

	res, err := e.Execute(context.Background(), "add things", &Options{Tools: []string{"add_numbers"}})
	require.NoError(t, err)

	assert.Equal(t, "One call worked, one did not.", res.Text)
	require.Len(t, res.Outcomes, 2)
	assert.Equal(t, OutcomeSucceeded, res.Outcomes[0].Status)
	assert.Equal(t, OutcomeFailed, res.Outcomes[1].Status)

	require.NotNil(t, res.Recovery)
	assert.Equal(t, 1, res.Recovery.FailedCalls)
	assert.Equal(t, 1, res.Recovery.RecoverableCalls)
	require.Len(t, res.Recovery.Suggestions, 1)
	assert.Contains(t, res.Recovery.Suggestions[0], "add_numbers")
}

func TestExecute_AllSucceededMeansNoRecovery(t *testing.T) {
	mock := provider.NewMockClient("test-model")
	mock.QueueTurn(
		provider.Chunk{
			ToolCalls:    []provider.ToolCallDelta{{Index: 0, ID: "c1", Name: "add_numbers", Arguments: `{"a": 1, "b": 2}`}},
			FinishReason: provider.FinishToolCalls,
		},
	)
	mock.QueueTurn(provider.Chunk{Text: "It is 3.", FinishReason: provider.FinishStop})
	e := newTestEngine(t, mock, testConfig())

	res, err := e.Execute(context.Background(), "add 1 and 2", &Options{Tools: []string{"add_numbers"}})
	require.NoError(t, err)
	assert.Nil(t, res.Recovery)
	require.Len(t, res.Outcomes, 1)
	assert.Equal(t, "3", res.Outcomes[0].Result)
}

func TestExecute_EmptyAnswerFallsBack(t *testing.T) {
	mock := provider.NewMockClient("test-model")
	mock.QueueTurn(provider.Chunk{FinishReason: provider.FinishStop})
	e := newTestEngine(t, mock, testConfig())

	res, err := e.Execute(context.Background(), "say nothing", nil)
	require.NoError(t, err)
	assert.Equal(t, fallbackAnswer, res.Text)
}

func TestExecute_ProviderFailureSurfaces(t *testing.T) {
	mock := provider.NewMockClient("test-model")
	for i := 0; i < 3; i++ {
		mock.QueueError(fmt.Errorf("upstream unavailable"))
	}
	e := newTestEngine(t, mock, testConfig())

	_, err := e.Execute(context.Background(), "hello", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")

	stats := e.Stats()
	assert.Equal(t, int64(1), stats.Failures)
}
