package agent

import (
	"fmt"

	"github.com/skein-ai/skein/llm"
)

// Prebuilt node functions and edge predicates covering the common
// request/execute/feedback shape of tool-calling agents. They operate on the
// shared LLMContext through write sessions, so graphs composed from them are
// safe to observe concurrently through read sessions.

// RequestLLMNode appends the incoming string input as a user message and
// performs one model turn offering the configured tools. The output is the
// reply message slice.
func RequestLLMNode(nc *NodeContext, input any) (any, error) {
	text, ok := input.(string)
	if !ok {
		return nil, fmt.Errorf("request llm node expects string input, got %T", input)
	}

	var responses []llm.Message

	err := nc.LLM().Write(nc.Context(), func(s *WriteSession) error {
		if err := s.AppendUserMessage(text); err != nil {
			return err
		}

		var err error
		responses, err = s.RequestLLMWithTools()

		return err
	})
	if err != nil {
		return nil, err
	}

	return responses, nil
}

// ExecuteToolsNode runs every tool call in the incoming message slice through
// the environment. The output is the result slice, positionally aligned with
// the calls.
func ExecuteToolsNode(nc *NodeContext, input any) (any, error) {
	messages, ok := input.([]llm.Message)
	if !ok {
		return nil, fmt.Errorf("execute tools node expects []llm.Message input, got %T", input)
	}

	calls := llm.ToolCallsOf(messages)
	if len(calls) == 0 {
		return nil, fmt.Errorf("execute tools node received no tool calls")
	}

	return nc.Environment().ExecuteTools(nc.Context(), calls)
}

// SendToolResultsNode appends tool results to the prompt and performs the
// next model turn with tools. The output is the new reply message slice.
func SendToolResultsNode(nc *NodeContext, input any) (any, error) {
	results, ok := input.([]ReceivedToolResult)
	if !ok {
		return nil, fmt.Errorf("send tool results node expects []ReceivedToolResult input, got %T", input)
	}

	feedback := make([]llm.Message, 0, len(results))
	for _, r := range results {
		feedback = append(feedback, r.Message())
	}

	var responses []llm.Message

	err := nc.LLM().Write(nc.Context(), func(s *WriteSession) error {
		if err := s.AppendMessages(feedback...); err != nil {
			return err
		}

		var err error
		responses, err = s.RequestLLMWithTools()

		return err
	})
	if err != nil {
		return nil, err
	}

	return responses, nil
}

// CompressHistoryNode folds the conversation into a summary and passes its
// input through unchanged. Useful on long-running loops before the context
// window fills up.
func CompressHistoryNode(nc *NodeContext, input any) (any, error) {
	err := nc.LLM().Write(nc.Context(), func(s *WriteSession) error {
		return s.CompressHistory()
	})
	if err != nil {
		return nil, err
	}

	return input, nil
}

// OnToolCall is an edge condition matching outputs that contain at least one
// tool call message.
func OnToolCall(output any) bool {
	messages, ok := output.([]llm.Message)
	if !ok {
		return false
	}

	return len(llm.ToolCallsOf(messages)) > 0
}

// OnFinalResponse is an edge condition matching outputs whose messages carry
// assistant text and no tool calls.
func OnFinalResponse(output any) bool {
	messages, ok := output.([]llm.Message)
	if !ok {
		return false
	}

	if len(llm.ToolCallsOf(messages)) > 0 {
		return false
	}

	for _, m := range messages {
		if _, ok := m.(llm.AssistantMessage); ok {
			return true
		}
	}

	return false
}

// ExtractText is an edge transform collapsing a reply message slice into its
// concatenated assistant text.
func ExtractText(output any) (any, error) {
	messages, ok := output.([]llm.Message)
	if !ok {
		return nil, fmt.Errorf("extract text expects []llm.Message, got %T", output)
	}

	var text string
	for _, m := range messages {
		if am, ok := m.(llm.AssistantMessage); ok {
			text += am.Content
		}
	}

	return text, nil
}

// SingleRunStrategy is one model turn with no tool loop: the input goes to
// the model and the assistant text comes back.
func SingleRunStrategy() *Strategy {
	return NewStrategy("single_run").
		Node("request", RequestLLMNode).
		Edge(StartNode, "request").
		Edge("request", FinishNode, WithTransform(ExtractText)).
		MustBuild()
}

// ToolLoopStrategy is the standard request/execute/feedback loop: the model
// is asked with tools, tool calls are executed and fed back, and the loop
// repeats until the model answers with plain text.
func ToolLoopStrategy() *Strategy {
	return NewStrategy("tool_loop").
		Node("request", RequestLLMNode).
		Node("execute", ExecuteToolsNode).
		Node("feedback", SendToolResultsNode).
		Edge(StartNode, "request").
		Edge("request", "execute", WithCondition(OnToolCall)).
		Edge("request", FinishNode, WithTransform(ExtractText)).
		Edge("execute", "feedback").
		Edge("feedback", "execute", WithCondition(OnToolCall)).
		Edge("feedback", FinishNode, WithTransform(ExtractText)).
		MustBuild()
}
