package llm

import "context"

// ToolDefinition declaratively exposes a callable function to the model.
// Parameters is a JSON Schema object (draft agnostic, minimal subset expected).
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Executor drives a model with a prompt and returns its reply messages.
//
// Implementations must:
//   - Respect context cancellation on all blocking paths
//   - Return the model's reply as one or more messages (an AssistantMessage,
//     ToolCallMessages, or both) preserving provider order
//   - Never mutate the supplied prompt
type Executor interface {
	// Execute performs a single model turn. When tools is non-empty the model
	// may reply with ToolCallMessages instead of (or in addition to) text.
	Execute(ctx context.Context, prompt Prompt, model Model, tools []ToolDefinition) ([]Message, error)

	// ExecuteStreaming performs a text-only model turn emitting incremental
	// chunks. Both channels are closed when the turn completes; a terminal
	// error (if any) is delivered on the error channel before close.
	ExecuteStreaming(ctx context.Context, prompt Prompt, model Model) (<-chan string, <-chan error)
}
