// Package eventhandler adapts plain callbacks into a pipeline feature, for
// callers who want to observe a run without writing a full feature type.
package eventhandler

import (
	"context"

	"github.com/skein-ai/skein/agent"
)

// Handler bundles optional callbacks for run lifecycle events. Nil fields are
// simply not registered. A callback error aborts the operation that emitted
// the event.
type Handler struct {
	OnAgentStarting  func(ctx context.Context, ev agent.AgentStartingEvent) error
	OnAgentCompleted func(ctx context.Context, ev agent.AgentCompletedEvent) error
	OnAgentFailed    func(ctx context.Context, ev agent.AgentFailedEvent) error

	OnStrategyStarting  func(ctx context.Context, ev agent.StrategyStartingEvent) error
	OnStrategyCompleted func(ctx context.Context, ev agent.StrategyCompletedEvent) error
	OnStrategyFailed    func(ctx context.Context, ev agent.StrategyFailedEvent) error

	OnNodeStarting  func(ctx context.Context, ev agent.NodeStartingEvent) error
	OnNodeCompleted func(ctx context.Context, ev agent.NodeCompletedEvent) error
	OnNodeFailed    func(ctx context.Context, ev agent.NodeFailedEvent) error

	OnLLMCallStarting  func(ctx context.Context, ev agent.LLMCallStartingEvent) error
	OnLLMCallCompleted func(ctx context.Context, ev agent.LLMCallCompletedEvent) error
	OnLLMCallFailed    func(ctx context.Context, ev agent.LLMCallFailedEvent) error

	OnToolCallStarting  func(ctx context.Context, ev agent.ToolCallStartingEvent) error
	OnToolCallCompleted func(ctx context.Context, ev agent.ToolCallCompletedEvent) error
	OnToolCallFailed    func(ctx context.Context, ev agent.ToolCallFailedEvent) error
}

// New creates the feature from a handler configuration.
func New(fn func(h *Handler)) *Feature {
	var h Handler
	fn(&h)

	return &Feature{handler: h}
}

// Feature implements agent.Feature over a Handler.
type Feature struct {
	handler Handler
}

// Name implements agent.Feature.
func (f *Feature) Name() string { return "event_handler" }

// Install implements agent.Feature.
func (f *Feature) Install(i *agent.Interceptors) {
	h := f.handler

	if h.OnAgentStarting != nil {
		i.InterceptAgentStarting(h.OnAgentStarting)
	}
	if h.OnAgentCompleted != nil {
		i.InterceptAgentCompleted(h.OnAgentCompleted)
	}
	if h.OnAgentFailed != nil {
		i.InterceptAgentFailed(h.OnAgentFailed)
	}

	if h.OnStrategyStarting != nil {
		i.InterceptStrategyStarting(h.OnStrategyStarting)
	}
	if h.OnStrategyCompleted != nil {
		i.InterceptStrategyCompleted(h.OnStrategyCompleted)
	}
	if h.OnStrategyFailed != nil {
		i.InterceptStrategyFailed(h.OnStrategyFailed)
	}

	if h.OnNodeStarting != nil {
		i.InterceptNodeStarting(h.OnNodeStarting)
	}
	if h.OnNodeCompleted != nil {
		i.InterceptNodeCompleted(h.OnNodeCompleted)
	}
	if h.OnNodeFailed != nil {
		i.InterceptNodeFailed(h.OnNodeFailed)
	}

	if h.OnLLMCallStarting != nil {
		i.InterceptLLMCallStarting(h.OnLLMCallStarting)
	}
	if h.OnLLMCallCompleted != nil {
		i.InterceptLLMCallCompleted(h.OnLLMCallCompleted)
	}
	if h.OnLLMCallFailed != nil {
		i.InterceptLLMCallFailed(h.OnLLMCallFailed)
	}

	if h.OnToolCallStarting != nil {
		i.InterceptToolCallStarting(h.OnToolCallStarting)
	}
	if h.OnToolCallCompleted != nil {
		i.InterceptToolCallCompleted(h.OnToolCallCompleted)
	}
	if h.OnToolCallFailed != nil {
		i.InterceptToolCallFailed(h.OnToolCallFailed)
	}
}
