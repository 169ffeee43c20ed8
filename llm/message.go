package llm

// Role identifies the conversational origin of a message.
type Role string

const (
	// RoleSystem marks instructions that frame the whole conversation.
	RoleSystem Role = "system"
	// RoleUser marks end-user input.
	RoleUser Role = "user"
	// RoleAssistant marks model output, including tool call requests.
	RoleAssistant Role = "assistant"
	// RoleTool marks tool execution results fed back to the model.
	RoleTool Role = "tool"
)

// Message represents a polymorphic prompt entry. Concrete message types
// implement the unexported isMessage marker enabling a closed set.
type Message interface {
	isMessage()

	// Role returns the conversational role of the message.
	Role() Role
}

// SystemMessage carries system instructions.
type SystemMessage struct {
	Content string
}

func (SystemMessage) isMessage() {}

// Role implements Message.
func (SystemMessage) Role() Role { return RoleSystem }

// UserMessage carries end-user input.
type UserMessage struct {
	Content string
}

func (UserMessage) isMessage() {}

// Role implements Message.
func (UserMessage) Role() Role { return RoleUser }

// AssistantMessage carries model-produced text.
type AssistantMessage struct {
	Content string
	// FinishReason reports why generation stopped ("stop", "length",
	// "tool_calls", ...). Empty for synthetic messages.
	FinishReason string
	// Usage carries provider token accounting when available.
	Usage *TokenUsage
}

func (AssistantMessage) isMessage() {}

// Role implements Message.
func (AssistantMessage) Role() Role { return RoleAssistant }

// ToolCallMessage is a model request to invoke a named tool.
type ToolCallMessage struct {
	// ID correlates the call with its eventual ToolResultMessage.
	ID string
	// Tool is the registered tool name.
	Tool string
	// Arguments is the serialized (JSON) argument payload.
	Arguments string
}

func (ToolCallMessage) isMessage() {}

// Role implements Message.
func (ToolCallMessage) Role() Role { return RoleAssistant }

// ToolResultMessage feeds a tool execution outcome back to the model.
type ToolResultMessage struct {
	// ID matches the originating ToolCallMessage.
	ID string
	// Tool is the tool name the result belongs to.
	Tool string
	// Content is the serialized result (or error description).
	Content string
	// IsError marks the content as an error description rather than a result.
	IsError bool
}

func (ToolResultMessage) isMessage() {}

// Role implements Message.
func (ToolResultMessage) Role() Role { return RoleTool }

// TokenUsage captures token usage statistics for a model response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// TextOf returns the plain text carried by a message, or "" for tool calls.
func TextOf(m Message) string {
	switch v := m.(type) {
	case SystemMessage:
		return v.Content
	case UserMessage:
		return v.Content
	case AssistantMessage:
		return v.Content
	case ToolResultMessage:
		return v.Content
	default:
		return ""
	}
}

// ToolCallsOf returns the tool call messages contained in msgs preserving order.
func ToolCallsOf(msgs []Message) []ToolCallMessage {
	var calls []ToolCallMessage
	for _, m := range msgs {
		if tc, ok := m.(ToolCallMessage); ok {
			calls = append(calls, tc)
		}
	}

	return calls
}
