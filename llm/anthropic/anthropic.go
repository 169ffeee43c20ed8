// Package anthropic implements llm.Executor for the Anthropic Messages API.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"

	"github.com/skein-ai/skein/llm"
)

// Options configures the Anthropic executor (temperature, max tokens, API
// key). Per-prompt llm.Params override the defaults.
type Options struct {
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

// Executor wraps the Anthropic Messages API behind llm.Executor.
type Executor struct {
	client *anthropic.Client
	opts   Options
}

// NewExecutor creates an executor using the official client.
func NewExecutor(optFns ...func(o *Options)) *Executor {
	opts := Options{
		Temperature: 0.7,
		MaxTokens:   4096,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	client := anthropic.NewClient(clientOpts...)

	return &Executor{client: &client, opts: opts}
}

// NewExecutorFromClient creates an executor from an existing client.
func NewExecutorFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Executor {
	opts := Options{
		Temperature: 0.7,
		MaxTokens:   4096,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Executor{client: client, opts: opts}
}

// Execute implements llm.Executor.
func (e *Executor) Execute(ctx context.Context, prompt llm.Prompt, model llm.Model, tools []llm.ToolDefinition) ([]llm.Message, error) {
	params := e.buildParams(prompt, model, tools)

	resp, err := e.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic api error: %w", err)
	}

	finishReason := "stop"
	if resp.StopReason != "" {
		finishReason = string(resp.StopReason)
	}

	usage := &llm.TokenUsage{
		PromptTokens:     int(resp.Usage.InputTokens),
		CompletionTokens: int(resp.Usage.OutputTokens),
		TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
	}

	var out []llm.Message
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			text := block.AsText()
			if text.Text != "" {
				out = append(out, llm.AssistantMessage{
					Content:      text.Text,
					FinishReason: finishReason,
					Usage:        usage,
				})
			}
		case "tool_use":
			toolUse := block.AsToolUse()
			args := ""
			if toolUse.Input != nil {
				if raw, err := json.Marshal(toolUse.Input); err == nil {
					args = string(raw)
				}
			}
			out = append(out, llm.ToolCallMessage{
				ID:        toolUse.ID,
				Tool:      toolUse.Name,
				Arguments: args,
			})
		}
	}

	if len(out) == 0 {
		out = append(out, llm.AssistantMessage{FinishReason: finishReason, Usage: usage})
	}

	return out, nil
}

// ExecuteStreaming implements llm.Executor. The Messages API streaming shape
// is not wired yet; callers fall back to Execute.
//
// TODO: implement via client.Messages.NewStreaming once text-delta
// accumulation is needed by a consumer.
func (e *Executor) ExecuteStreaming(ctx context.Context, prompt llm.Prompt, model llm.Model) (<-chan string, <-chan error) {
	out := make(chan string)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		reply, err := e.Execute(ctx, prompt, model, nil)
		if err != nil {
			errCh <- err
			return
		}

		for _, m := range reply {
			if text := llm.TextOf(m); text != "" {
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case out <- text:
				}
			}
		}
	}()

	return out, errCh
}

func (e *Executor) buildParams(prompt llm.Prompt, model llm.Model, tools []llm.ToolDefinition) anthropic.MessageNewParams {
	temperature := e.opts.Temperature
	if prompt.Params.Temperature != nil {
		temperature = *prompt.Params.Temperature
	}

	maxTokens := e.opts.MaxTokens
	if prompt.Params.MaxTokens != nil {
		maxTokens = int64(*prompt.Params.MaxTokens)
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(model.ID),
		Messages:    buildMessages(prompt),
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(temperature),
	}

	if system := prompt.System(); system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	if len(tools) > 0 {
		params.Tools = buildTools(tools)
	}

	return params
}

// buildMessages converts prompt messages to the Anthropic message format.
// Tool results are delivered as user-role tool_result blocks per the API
// contract; system messages are handled separately.
func buildMessages(prompt llm.Prompt) []anthropic.MessageParam {
	var messages []anthropic.MessageParam

	for _, m := range prompt.Messages {
		switch msg := m.(type) {
		case llm.UserMessage:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		case llm.AssistantMessage:
			if msg.Content != "" {
				messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
			}
		case llm.ToolCallMessage:
			var input any
			if msg.Arguments != "" {
				if err := json.Unmarshal([]byte(msg.Arguments), &input); err != nil {
					input = msg.Arguments
				}
			}
			messages = append(messages, anthropic.NewAssistantMessage(
				anthropic.NewToolUseBlock(msg.ID, input, msg.Tool),
			))
		case llm.ToolResultMessage:
			messages = append(messages, anthropic.NewUserMessage(
				anthropic.NewToolResultBlock(msg.ID, msg.Content, msg.IsError),
			))
		}
	}

	return messages
}

func buildTools(tools []llm.ToolDefinition) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, len(tools))

	for i, td := range tools {
		schema := anthropic.ToolInputSchemaParam{
			Type: constant.Object("object"),
		}

		if td.Parameters != nil {
			if properties, ok := td.Parameters["properties"]; ok {
				schema.Properties = properties
			}
			if required, ok := td.Parameters["required"]; ok {
				switch req := required.(type) {
				case []string:
					schema.Required = req
				case []any:
					for _, r := range req {
						if s, ok := r.(string); ok {
							schema.Required = append(schema.Required, s)
						}
					}
				}
			}
		}

		out[i] = anthropic.ToolUnionParamOfTool(schema, td.Name)
	}

	return out
}
