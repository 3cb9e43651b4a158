// Package anthropic provides a provider.Client implementation backed by the
// Anthropic Messages API, including streaming with tool use.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"

	"github.com/shibata-rui-dn/OneAgent-sub001/provider"
)

// Options configure the Anthropic client adapter (model id, temperature,
// max tokens, API key, timeout).
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int64
	APIKey      string
	Timeout     time.Duration
}

// Client wraps the Anthropic Messages API behind the generic provider.Client interface.
type Client struct {
	client *anthropic.Client
	opts   Options
}

// NewClient creates a new Anthropic-backed client.
func NewClient(optFns ...func(o *Options)) *Client {
	opts := Options{
		Model:       string(anthropic.ModelClaude3_5Sonnet20241022),
		Temperature: 0.7,
		MaxTokens:   2048,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	if opts.Timeout > 0 {
		clientOpts = append(clientOpts, option.WithRequestTimeout(opts.Timeout))
	}
	client := anthropic.NewClient(clientOpts...)
	return &Client{client: &client, opts: opts}
}

// NewClientFromSDK wraps an existing SDK client.
func NewClientFromSDK(client *anthropic.Client, optFns ...func(o *Options)) *Client {
	opts := Options{
		Model:       string(anthropic.ModelClaude3_5Sonnet20241022),
		Temperature: 0.7,
		MaxTokens:   2048,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Client{client: client, opts: opts}
}

// Generate implements unified streaming / non-streaming generation.
func (c *Client) Generate(ctx context.Context, req provider.Request) (<-chan provider.Chunk, <-chan error) {
	out := make(chan provider.Chunk, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		params := anthropic.MessageNewParams{
			Model:       c.model(req),
			Messages:    c.buildMessages(req.Messages),
			MaxTokens:   c.maxTokens(req),
			Temperature: anthropic.Float(c.temperature(req)),
		}
		if req.Instructions != "" {
			params.System = []anthropic.TextBlockParam{{Text: req.Instructions}}
		}
		if len(req.Tools) > 0 {
			params.Tools = c.buildTools(req.Tools)
		}

		if req.Stream {
			c.handleStreaming(ctx, params, out, errCh)
			return
		}
		c.handleNonStreaming(ctx, params, out, errCh)
	}()

	return out, errCh
}

func (c *Client) model(req provider.Request) anthropic.Model {
	if req.Model != "" {
		return anthropic.Model(req.Model)
	}
	return anthropic.Model(c.opts.Model)
}

func (c *Client) temperature(req provider.Request) float64 {
	if req.Temperature > 0 {
		return req.Temperature
	}
	return c.opts.Temperature
}

func (c *Client) maxTokens(req provider.Request) int64 {
	if req.MaxTokens > 0 {
		return int64(req.MaxTokens)
	}
	return c.opts.MaxTokens
}

// handleStreaming consumes Messages API stream events and adapts them to
// provider chunks. Tool use input JSON arrives as partial fragments which are
// forwarded as deltas; finish reason is derived from the message delta.
func (c *Client) handleStreaming(
	ctx context.Context,
	params anthropic.MessageNewParams,
	out chan<- provider.Chunk,
	errCh chan<- error,
) {
	stream := c.client.Messages.NewStreaming(ctx, params)

	emit := func(ck provider.Chunk) bool {
		select {
		case <-ctx.Done():
			return false
		case out <- ck:
			return true
		}
	}

	toolIndex := -1 // running tool_use block counter across the message
	sawToolUse := false
	var usage provider.TokenUsage
	finishReason := provider.FinishStop

	for stream.Next() {
		event := stream.Current()
		switch event.Type {
		case "message_start":
			messageStart := event.AsMessageStart()
			usage.PromptTokens = int(messageStart.Message.Usage.InputTokens)

		case "content_block_start":
			contentBlockStart := event.AsContentBlockStart()
			if contentBlockStart.ContentBlock.Type == "tool_use" {
				toolUse := contentBlockStart.ContentBlock.AsToolUse()
				toolIndex++
				sawToolUse = true
				if !emit(provider.Chunk{ToolCalls: []provider.ToolCallDelta{{
					Index: toolIndex,
					ID:    toolUse.ID,
					Name:  toolUse.Name,
				}}}) {
					return
				}
			}

		case "content_block_delta":
			delta := event.AsContentBlockDelta().Delta
			switch delta.Type {
			case "text_delta":
				if delta.Text != "" && !emit(provider.Chunk{Text: delta.Text}) {
					return
				}
			case "input_json_delta":
				if delta.PartialJSON != "" && !emit(provider.Chunk{ToolCalls: []provider.ToolCallDelta{{
					Index:     toolIndex,
					Arguments: delta.PartialJSON,
				}}}) {
					return
				}
			}

		case "message_delta":
			messageDelta := event.AsMessageDelta()
			usage.CompletionTokens = int(messageDelta.Usage.OutputTokens)
			switch messageDelta.Delta.StopReason {
			case "max_tokens":
				finishReason = provider.FinishLength
			case "tool_use":
				finishReason = provider.FinishToolCalls
			}

		case "message_stop":
			if sawToolUse && finishReason == provider.FinishStop {
				finishReason = provider.FinishToolCalls
			}
			usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
			emit(provider.Chunk{FinishReason: finishReason, Usage: &usage})
			return
		}
	}
	if err := stream.Err(); err != nil {
		errCh <- fmt.Errorf("anthropic streaming error: %w", err)
	}
}

// handleNonStreaming performs a single Messages API call emitting one final chunk.
func (c *Client) handleNonStreaming(
	ctx context.Context,
	params anthropic.MessageNewParams,
	out chan<- provider.Chunk,
	errCh chan<- error,
) {
	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		errCh <- fmt.Errorf("anthropic api error: %w", err)
		return
	}

	chunk := provider.Chunk{FinishReason: provider.FinishStop}
	toolIndex := 0
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			chunk.Text += block.AsText().Text
		case "tool_use":
			toolBlock := block.AsToolUse()
			args := ""
			if toolBlock.Input != nil {
				if argsBytes, err := json.Marshal(toolBlock.Input); err == nil {
					args = string(argsBytes)
				}
			}
			chunk.ToolCalls = append(chunk.ToolCalls, provider.ToolCallDelta{
				Index:     toolIndex,
				ID:        toolBlock.ID,
				Name:      toolBlock.Name,
				Arguments: args,
			})
			toolIndex++
		}
	}
	switch resp.StopReason {
	case "max_tokens":
		chunk.FinishReason = provider.FinishLength
	case "tool_use":
		chunk.FinishReason = provider.FinishToolCalls
	}
	chunk.Usage = &provider.TokenUsage{
		PromptTokens:     int(resp.Usage.InputTokens),
		CompletionTokens: int(resp.Usage.OutputTokens),
		TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
	}

	select {
	case <-ctx.Done():
		errCh <- ctx.Err()
	case out <- chunk:
	}
}

// buildMessages converts provider-neutral messages to Anthropic message params.
// Tool turns become tool_result blocks inside a user message, per the
// Messages API conversation shape.
func (c *Client) buildMessages(messages []provider.Message) []anthropic.MessageParam {
	var out []anthropic.MessageParam
	for _, m := range messages {
		switch m.Role {
		case "system":
			// System text is carried in params.System, never inline.
			continue
		case "user":
			if m.Content != "" {
				out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
			}
		case "assistant":
			var content []anthropic.ContentBlockParamUnion
			if m.Content != "" {
				content = append(content, anthropic.NewTextBlock(m.Content))
			}
			for _, tc := range m.ToolCalls {
				var input any
				if tc.Arguments != "" {
					if err := json.Unmarshal([]byte(tc.Arguments), &input); err != nil {
						input = tc.Arguments
					}
				}
				content = append(content, anthropic.NewToolUseBlock(tc.ID, input, tc.Name))
			}
			if len(content) > 0 {
				out = append(out, anthropic.NewAssistantMessage(content...))
			}
		case "tool":
			out = append(out, anthropic.NewUserMessage(
				anthropic.NewToolResultBlock(m.ToolCallID, m.Content, false),
			))
		default:
			if m.Content != "" {
				out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
			}
		}
	}
	return out
}

// buildTools converts neutral tool definitions to Anthropic tool params.
func (c *Client) buildTools(tools []provider.ToolDefinition) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, len(tools))
	for i, t := range tools {
		inputSchema := anthropic.ToolInputSchemaParam{
			Type: constant.Object("object"),
		}
		if t.Parameters != nil {
			if properties, exists := t.Parameters["properties"]; exists {
				inputSchema.Properties = properties
			}
			if required, exists := t.Parameters["required"]; exists {
				switch req := required.(type) {
				case []string:
					inputSchema.Required = req
				case []any:
					for _, r := range req {
						if s, ok := r.(string); ok {
							inputSchema.Required = append(inputSchema.Required, s)
						}
					}
				}
			}
		}
		out[i] = anthropic.ToolUnionParamOfTool(inputSchema, t.Name)
	}
	return out
}

// Info returns metadata describing this Anthropic client implementation.
func (c *Client) Info() provider.Info {
	return provider.Info{Name: c.opts.Model, Provider: "anthropic"}
}
