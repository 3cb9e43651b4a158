package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shibata-rui-dn/OneAgent-sub001/config"
	"github.com/shibata-rui-dn/OneAgent-sub001/provider"
	"github.com/shibata-rui-dn/OneAgent-sub001/tool"
)

// -------------------- System Prompt Tests --------------------

func TestBuildSystemPrompt_Defaults(t *testing.T) {
	prompt := buildSystemPrompt(config.Default(), &Options{}, nil)
	assert.Contains(t, prompt, "You are OneAgent")
	assert.NotContains(t, prompt, "Available tools:")
	assert.NotContains(t, prompt, "recovery policy")
	assert.NotContains(t, prompt, "Safety filtering")
}

func TestBuildSystemPrompt_CustomBase(t *testing.T) {
	cfg := config.Default()
	cfg.SystemPrompt = "You are a pirate."
	prompt := buildSystemPrompt(cfg, &Options{}, nil)
	assert.Contains(t, prompt, "You are a pirate.")
	assert.NotContains(t, prompt, "You are OneAgent")
}

func TestBuildSystemPrompt_Identity(t *testing.T) {
	opts := &Options{Auth: &tool.AuthContext{
		UserID:   "u1",
		Username: "Riko",
		Email:    "riko@example.com",
		Scopes:   []string{"files:read", "files:write"},
	}}
	prompt := buildSystemPrompt(config.Default(), opts, nil)
	assert.Contains(t, prompt, "You are assisting Riko (riko@example.com).")
	assert.Contains(t, prompt, "Granted scopes: files:read, files:write.")

	// Without a username the user id stands in.
	opts.Auth = &tool.AuthContext{UserID: "u1"}
	prompt = buildSystemPrompt(config.Default(), opts, nil)
	assert.Contains(t, prompt, "You are assisting u1.")
}

func TestBuildSystemPrompt_ContinuityAndSafety(t *testing.T) {
	cfg := config.Default()
	cfg.SafetyFilter = true
	opts := &Options{History: []provider.Message{{Role: "user", Content: "hi"}}}

	prompt := buildSystemPrompt(cfg, opts, nil)
	assert.Contains(t, prompt, "continues from earlier turns")
	assert.Contains(t, prompt, "Safety filtering is enabled")
}

func TestBuildSystemPrompt_ToolCatalogueAndPolicy(t *testing.T) {
	tools := []tool.Tool{
		makeTool("read_file", "Read the contents of a file from disk", false),
		makeTool("add_numbers", "Calculate the sum of two numbers", false),
	}
	prompt := buildSystemPrompt(config.Default(), &Options{}, tools)
	assert.Contains(t, prompt, "Available tools:")
	assert.Contains(t, prompt, "- read_file: Read the contents of a file from disk")
	assert.Contains(t, prompt, "- add_numbers: Calculate the sum of two numbers")
	assert.Contains(t, prompt, "Never pretend a failed tool call succeeded.")
}

func TestBuildSystemPrompt_JSONFormatHint(t *testing.T) {
	cfg := config.Default()
	cfg.ResponseFormat = "json"
	prompt := buildSystemPrompt(cfg, &Options{}, nil)
	assert.Contains(t, prompt, "single valid JSON object")
}

// -------------------- Message List Tests --------------------

func TestBuildMessages_AppendsQuery(t *testing.T) {
	history := []provider.Message{
		{Role: "user", Content: "first question"},
		{Role: "assistant", Content: "first answer"},
	}
	messages := buildMessages(history, "second question")
	require.Len(t, messages, 3)
	assert.Equal(t, "second question", messages[2].Content)
	assert.Equal(t, "user", messages[2].Role)
}

func TestBuildMessages_FiltersSystemTurns(t *testing.T) {
	history := []provider.Message{
		{Role: "system", Content: "smuggled instructions"},
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "hi"},
	}
	messages := buildMessages(history, "next")
	require.Len(t, messages, 3)
	for _, m := range messages {
		assert.NotEqual(t, "system", m.Role)
	}
}

func TestBuildMessages_DropsDuplicateTrailingUserTurn(t *testing.T) {
	history := []provider.Message{
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "hi"},
		{Role: "user", Content: "  what time is it?  "},
	}
	messages := buildMessages(history, "what time is it?")
	require.Len(t, messages, 3)
	assert.Equal(t, "what time is it?", messages[2].Content)
	// The earlier user/assistant pair survives untouched.
	assert.Equal(t, "hello", messages[0].Content)
	assert.Equal(t, "hi", messages[1].Content)
}

func TestBuildMessages_KeepsDistinctTrailingUserTurn(t *testing.T) {
	history := []provider.Message{
		{Role: "user", Content: "what time is it?"},
	}
	messages := buildMessages(history, "and the date?")
	require.Len(t, messages, 2)
	assert.Equal(t, "what time is it?", messages[0].Content)
	assert.Equal(t, "and the date?", messages[1].Content)
}

func TestBuildMessages_DedupOnlyChecksLastTurn(t *testing.T) {
	// A matching user turn that is not last stays: only the trailing turn is
	// subject to deduplication.
	history := []provider.Message{
		{Role: "user", Content: "repeat me"},
		{Role: "assistant", Content: "ok"},
	}
	messages := buildMessages(history, "repeat me")
	require.Len(t, messages, 3)
}

// -------------------- Request Assembly Tests --------------------

func TestBuildRequest(t *testing.T) {
	cfg := config.Default()
	cfg.Model = "gpt-4o"
	cfg.Temperature = 0.3
	cfg.MaxTokens = 321

	tools := []tool.Tool{makeTool("read_file", "Read a file", false)}
	req := buildRequest(cfg, "hello", &Options{}, tools, true)

	assert.True(t, req.Stream)
	assert.Equal(t, "gpt-4o", req.Model)
	assert.Equal(t, 0.3, req.Temperature)
	assert.Equal(t, 321, req.MaxTokens)
	require.Len(t, req.Tools, 1)
	assert.Equal(t, "read_file", req.Tools[0].Name)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, "hello", req.Messages[0].Content)
}

func TestBuildRequest_NoToolsMeansNoDefinitions(t *testing.T) {
	req := buildRequest(config.Default(), "hello", &Options{}, nil, false)
	assert.Empty(t, req.Tools)
	assert.False(t, req.Stream)
}
