package llm

import (
	"context"
	"fmt"
	"sync"
)

// MockExecutor is a lightweight in-memory Executor useful for tests and
// examples. Replies are selected by matching the text of the last
// user/tool-result message, so replaying the same prompt sequence yields the
// same reply sequence.
type MockExecutor struct {
	mu        sync.Mutex
	responses map[string][]Message
	calls     int
}

// NewMockExecutor constructs an empty MockExecutor. Unmatched inputs produce
// a deterministic echo reply.
func NewMockExecutor() *MockExecutor {
	return &MockExecutor{responses: map[string][]Message{}}
}

// AddResponse registers a canned text completion for an input.
func (m *MockExecutor) AddResponse(input, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.responses[input] = []Message{AssistantMessage{Content: response, FinishReason: "stop"}}
}

// AddToolCall registers a canned tool call reply for an input.
func (m *MockExecutor) AddToolCall(input, callID, tool, arguments string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.responses[input] = []Message{ToolCallMessage{ID: callID, Tool: tool, Arguments: arguments}}
}

// AddMessages registers an arbitrary canned reply for an input.
func (m *MockExecutor) AddMessages(input string, messages ...Message) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.responses[input] = messages
}

// Calls returns how many Execute/ExecuteStreaming turns have run.
func (m *MockExecutor) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.calls
}

// Execute implements Executor.
func (m *MockExecutor) Execute(ctx context.Context, prompt Prompt, _ Model, _ []ToolDefinition) ([]Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	input := lastInputText(prompt)
	if reply, ok := m.responses[input]; ok {
		out := make([]Message, len(reply))
		copy(out, reply)
		return out, nil
	}

	return []Message{AssistantMessage{
		Content:      fmt.Sprintf("Mock response to: %s", input),
		FinishReason: "stop",
	}}, nil
}

// ExecuteStreaming implements Executor; emits the canned reply rune by rune.
func (m *MockExecutor) ExecuteStreaming(ctx context.Context, prompt Prompt, model Model) (<-chan string, <-chan error) {
	out := make(chan string, 16)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		reply, err := m.Execute(ctx, prompt, model, nil)
		if err != nil {
			errCh <- err
			return
		}

		for _, msg := range reply {
			for _, r := range TextOf(msg) {
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case out <- string(r):
				}
			}
		}
	}()

	return out, errCh
}

// lastInputText extracts the text of the most recent message a model would
// respond to (user input or tool result).
func lastInputText(prompt Prompt) string {
	for i := len(prompt.Messages) - 1; i >= 0; i-- {
		switch msg := prompt.Messages[i].(type) {
		case UserMessage:
			return msg.Content
		case ToolResultMessage:
			return msg.Content
		}
	}

	return ""
}
