package server

import (
	"context"

	"github.com/google/uuid"

	"github.com/skein-ai/skein/a2a"
	"github.com/skein-ai/skein/agent"
	"github.com/skein-ai/skein/llm"
)

// AgentExecutor bridges a strategy-driven agent into the protocol surface:
// incoming message text is fed as run input and the run result comes back as
// an agent message.
type AgentExecutor struct {
	agent *agent.Agent
}

// NewAgentExecutor wraps an agent.
func NewAgentExecutor(a *agent.Agent) *AgentExecutor {
	return &AgentExecutor{agent: a}
}

// Execute implements Executor.
func (e *AgentExecutor) Execute(ctx context.Context, task a2a.Task, message a2a.Message) (a2a.Message, error) {
	text := message.Text()
	if text == "" {
		return a2a.Message{}, a2a.Errorf(a2a.CodeContentType, "message carries no text parts")
	}

	out, err := e.agent.Run(ctx, text)
	if err != nil {
		return a2a.Message{}, err
	}

	return a2a.Message{
		MessageID: uuid.NewString(),
		Role:      a2a.RoleAgent,
		Parts:     []a2a.Part{a2a.TextPart{Text: out}},
	}, nil
}

// StreamingAgentExecutor additionally streams model output chunk by chunk,
// bypassing the strategy graph for the streaming path: the incoming text is
// appended to the conversation and the model reply is streamed directly.
type StreamingAgentExecutor struct {
	AgentExecutor
	executor llm.Executor
}

// NewStreamingAgentExecutor wraps an agent together with the raw model
// executor used for the streaming path.
func NewStreamingAgentExecutor(a *agent.Agent, executor llm.Executor) *StreamingAgentExecutor {
	return &StreamingAgentExecutor{AgentExecutor: AgentExecutor{agent: a}, executor: executor}
}

// ExecuteStreaming implements StreamingExecutor.
func (e *StreamingAgentExecutor) ExecuteStreaming(ctx context.Context, task a2a.Task, message a2a.Message) (<-chan string, <-chan error) {
	chunks := make(chan string)
	errs := make(chan error, 1)

	text := message.Text()
	if text == "" {
		close(chunks)
		errs <- a2a.Errorf(a2a.CodeContentType, "message carries no text parts")
		close(errs)
		return chunks, errs
	}

	go func() {
		defer close(chunks)
		defer close(errs)

		err := e.agent.LLM().Write(ctx, func(s *agent.WriteSession) error {
			if err := s.AppendUserMessage(text); err != nil {
				return err
			}

			inner, innerErrs := e.executor.ExecuteStreaming(s.Context(), s.Prompt(), s.Model())

			var full string
			for chunk := range inner {
				full += chunk

				select {
				case chunks <- chunk:
				case <-ctx.Done():
					return ctx.Err()
				}
			}

			if err := <-innerErrs; err != nil {
				return err
			}

			return s.AppendMessages(llm.AssistantMessage{Content: full})
		})
		if err != nil {
			errs <- err
		}
	}()

	return chunks, errs
}
