// Package openai implements llm.Executor using the OpenAI Chat Completions
// API (including streaming and function/tool calling). It adapts Skein's
// role-based prompt messages into the SDK's message format and back.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"

	"github.com/skein-ai/skein/llm"
)

// Options configure the OpenAI executor. Fields mirror a subset of Chat
// Completion parameters intentionally kept minimal; per-prompt llm.Params
// override these defaults.
type Options struct {
	Temperature         float64
	MaxCompletionTokens int64
}

// Executor wraps the OpenAI Chat Completions API behind llm.Executor.
type Executor struct {
	client *openai.Client
	opts   Options
}

// NewExecutor creates an executor using the default client (API key from
// environment).
func NewExecutor(optFns ...func(o *Options)) *Executor {
	client := openai.NewClient()
	return NewExecutorFromClient(&client, optFns...)
}

// NewExecutorFromClient creates an executor from an existing client.
func NewExecutorFromClient(client *openai.Client, optFns ...func(o *Options)) *Executor {
	opts := Options{
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Executor{client: client, opts: opts}
}

// Execute implements llm.Executor.
func (e *Executor) Execute(ctx context.Context, prompt llm.Prompt, model llm.Model, tools []llm.ToolDefinition) ([]llm.Message, error) {
	params := e.buildParams(prompt, model, tools)

	resp, err := e.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai api error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai: no choices returned")
	}

	choice := resp.Choices[0]

	usage := &llm.TokenUsage{
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
		TotalTokens:      int(resp.Usage.TotalTokens),
	}

	var out []llm.Message
	if choice.Message.Content != "" || len(choice.Message.ToolCalls) == 0 {
		out = append(out, llm.AssistantMessage{
			Content:      choice.Message.Content,
			FinishReason: string(choice.FinishReason),
			Usage:        usage,
		})
	}

	for _, tc := range choice.Message.ToolCalls {
		out = append(out, llm.ToolCallMessage{
			ID:        tc.ID,
			Tool:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}

	return out, nil
}

// ExecuteStreaming implements llm.Executor; emits text deltas as they arrive.
func (e *Executor) ExecuteStreaming(ctx context.Context, prompt llm.Prompt, model llm.Model) (<-chan string, <-chan error) {
	out := make(chan string, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		params := e.buildParams(prompt, model, nil)
		stream := e.client.Chat.Completions.NewStreaming(ctx, params)

		for stream.Next() {
			chunk := stream.Current()
			for _, ch := range chunk.Choices {
				if ch.Delta.Content == "" {
					continue
				}
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case out <- ch.Delta.Content:
				}
			}
		}

		if err := stream.Err(); err != nil {
			errCh <- fmt.Errorf("openai streaming error: %w", err)
		}
	}()

	return out, errCh
}

// buildParams assembles request parameters including tool definitions.
func (e *Executor) buildParams(prompt llm.Prompt, model llm.Model, tools []llm.ToolDefinition) openai.ChatCompletionNewParams {
	temperature := e.opts.Temperature
	if prompt.Params.Temperature != nil {
		temperature = *prompt.Params.Temperature
	}

	maxTokens := e.opts.MaxCompletionTokens
	if prompt.Params.MaxTokens != nil {
		maxTokens = int64(*prompt.Params.MaxTokens)
	}

	params := openai.ChatCompletionNewParams{
		Messages:            buildMessages(prompt),
		Model:               model.ID,
		Temperature:         openai.Float(temperature),
		MaxCompletionTokens: openai.Int(maxTokens),
	}

	if len(tools) == 0 {
		return params
	}

	defs := make([]openai.ChatCompletionToolParam, len(tools))
	for i, td := range tools {
		defs[i] = openai.ChatCompletionToolParam{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        td.Name,
				Description: openai.String(td.Description),
				Parameters:  td.Parameters,
			},
		}
	}
	params.Tools = defs

	return params
}

// buildMessages converts prompt messages into OpenAI chat messages.
// Consecutive tool call messages collapse into a single assistant message,
// matching how the API expects a multi-call turn to be shaped.
func buildMessages(prompt llm.Prompt) []openai.ChatCompletionMessageParamUnion {
	var (
		messages     []openai.ChatCompletionMessageParamUnion
		pendingCalls []openai.ChatCompletionMessageToolCallParam
	)

	flushCalls := func() {
		if len(pendingCalls) == 0 {
			return
		}
		messages = append(messages, openai.ChatCompletionMessageParamUnion{
			OfAssistant: &openai.ChatCompletionAssistantMessageParam{
				Role:      "assistant",
				ToolCalls: pendingCalls,
			},
		})
		pendingCalls = nil
	}

	for _, m := range prompt.Messages {
		switch msg := m.(type) {
		case llm.SystemMessage:
			flushCalls()
			messages = append(messages, openai.SystemMessage(msg.Content))
		case llm.UserMessage:
			flushCalls()
			messages = append(messages, openai.UserMessage(msg.Content))
		case llm.AssistantMessage:
			flushCalls()
			messages = append(messages, openai.AssistantMessage(msg.Content))
		case llm.ToolCallMessage:
			pendingCalls = append(pendingCalls, openai.ChatCompletionMessageToolCallParam{
				ID:   msg.ID,
				Type: "function",
				Function: openai.ChatCompletionMessageToolCallFunctionParam{
					Name:      msg.Tool,
					Arguments: msg.Arguments,
				},
			})
		case llm.ToolResultMessage:
			flushCalls()
			messages = append(messages, openai.ToolMessage(msg.Content, msg.ID))
		}
	}

	flushCalls()

	return messages
}
