package agent

import "github.com/skein-ai/skein/llm"

// Lifecycle event payloads dispatched through the Pipeline. Every event
// carries the ExecutionInfo of the scope it belongs to; consumers correlate
// nesting via the parent-id chain.

// AgentStartingEvent fires once when a run begins.
type AgentStartingEvent struct {
	Execution ExecutionInfo
	AgentID   string
	Input     any
}

// AgentCompletedEvent fires once when a run finishes successfully.
type AgentCompletedEvent struct {
	Execution ExecutionInfo
	AgentID   string
	Result    any
}

// AgentFailedEvent fires once when a run terminates with an error.
type AgentFailedEvent struct {
	Execution ExecutionInfo
	AgentID   string
	Err       error
}

// StrategyStartingEvent fires when the strategy graph walk begins.
type StrategyStartingEvent struct {
	Execution ExecutionInfo
	Strategy  string
}

// StrategyCompletedEvent fires when the walk reaches the finish node.
type StrategyCompletedEvent struct {
	Execution ExecutionInfo
	Strategy  string
	Result    any
}

// StrategyFailedEvent fires when the walk aborts with an error.
type StrategyFailedEvent struct {
	Execution ExecutionInfo
	Strategy  string
	Err       error
}

// SubgraphStartingEvent fires when a nested subgraph node begins walking.
type SubgraphStartingEvent struct {
	Execution ExecutionInfo
	Subgraph  string
	Input     any
}

// SubgraphCompletedEvent fires when a subgraph's finish node is reached.
type SubgraphCompletedEvent struct {
	Execution ExecutionInfo
	Subgraph  string
	Output    any
}

// SubgraphFailedEvent fires when a subgraph walk aborts.
type SubgraphFailedEvent struct {
	Execution ExecutionInfo
	Subgraph  string
	Err       error
}

// NodeStartingEvent fires before a node's function runs.
type NodeStartingEvent struct {
	Execution ExecutionInfo
	Node      string
	Input     any
}

// NodeCompletedEvent fires after a node's function returns successfully.
type NodeCompletedEvent struct {
	Execution ExecutionInfo
	Node      string
	Input     any
	Output    any
}

// NodeFailedEvent fires when a node's function returns an error.
type NodeFailedEvent struct {
	Execution ExecutionInfo
	Node      string
	Err       error
}

// LLMCallStartingEvent fires before a model request.
type LLMCallStartingEvent struct {
	Execution ExecutionInfo
	Prompt    llm.Prompt
	Model     llm.Model
	Tools     []llm.ToolDefinition
}

// LLMCallCompletedEvent fires after a model reply is received.
type LLMCallCompletedEvent struct {
	Execution ExecutionInfo
	Prompt    llm.Prompt
	Model     llm.Model
	Responses []llm.Message
}

// LLMCallFailedEvent fires when a model request errors.
type LLMCallFailedEvent struct {
	Execution ExecutionInfo
	Prompt    llm.Prompt
	Model     llm.Model
	Err       error
}

// ToolCallStartingEvent fires before a tool executes.
type ToolCallStartingEvent struct {
	Execution ExecutionInfo
	CallID    string
	Tool      string
	Arguments string
}

// ToolCallCompletedEvent fires after a tool call produced a result of any
// kind, including failures and validation errors (inspect Result.Kind).
type ToolCallCompletedEvent struct {
	Execution ExecutionInfo
	CallID    string
	Tool      string
	Result    ReceivedToolResult
}

// ToolCallFailedEvent fires when tool dispatch itself broke down (panic,
// unknown tool); the wrapped error is also reflected in a Failure result.
type ToolCallFailedEvent struct {
	Execution ExecutionInfo
	CallID    string
	Tool      string
	Err       error
}
