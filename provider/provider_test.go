package provider

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenUsage_Add(t *testing.T) {
	u := TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}
	u.Add(TokenUsage{PromptTokens: 2, CompletionTokens: 3, TotalTokens: 5})
	assert.Equal(t, TokenUsage{PromptTokens: 12, CompletionTokens: 8, TotalTokens: 20}, u)
}

func TestUnavailable_SurfacesReason(t *testing.T) {
	u := &Unavailable{Reason: fmt.Errorf("no api key")}

	chunks, errs := u.Generate(context.Background(), Request{})
	_, ok := <-chunks
	assert.False(t, ok)

	err := <-errs
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no api key")
}

func TestMockClient_ScriptedTurns(t *testing.T) {
	m := NewMockClient("test-model")
	m.QueueTurn(Chunk{Text: "a"}, Chunk{Text: "b", FinishReason: FinishStop})

	chunks, errs := m.Generate(context.Background(), Request{})
	var texts []string
	for ck := range chunks {
		texts = append(texts, ck.Text)
	}
	assert.Equal(t, []string{"a", "b"}, texts)
	assert.NoError(t, <-errs)
}

func TestMockClient_EchoesWhenExhausted(t *testing.T) {
	m := NewMockClient("test-model")

	chunks, _ := m.Generate(context.Background(), Request{Messages: []Message{
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "hi"},
	}})
	var all []Chunk
	for ck := range chunks {
		all = append(all, ck)
	}
	require.Len(t, all, 1)
	assert.Equal(t, "Mock response to: hello", all[0].Text)
	assert.Equal(t, FinishStop, all[0].FinishReason)

	reqs := m.Requests()
	require.Len(t, reqs, 1)
}
