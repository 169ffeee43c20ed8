package agent

import "context"

// Feature is an installable extension observing (and optionally altering the
// fate of) agent execution through lifecycle event handlers. Features are
// installed once per agent; Install registers the handlers the feature needs.
type Feature interface {
	// Name identifies the feature in logs and diagnostics.
	Name() string

	// Install registers the feature's handlers on its interceptor set.
	Install(i *Interceptors)
}

// Interceptors is the per-feature registration surface. Each Intercept*
// method appends a handler to that feature's ordered list for the given event
// kind. Handlers run synchronously in registration order; a handler error
// aborts dispatch and propagates to the emitting call site, so features that
// must not disturb execution catch their own errors.
type Interceptors struct {
	agentStarting  []func(context.Context, AgentStartingEvent) error
	agentCompleted []func(context.Context, AgentCompletedEvent) error
	agentFailed    []func(context.Context, AgentFailedEvent) error

	strategyStarting  []func(context.Context, StrategyStartingEvent) error
	strategyCompleted []func(context.Context, StrategyCompletedEvent) error
	strategyFailed    []func(context.Context, StrategyFailedEvent) error

	subgraphStarting  []func(context.Context, SubgraphStartingEvent) error
	subgraphCompleted []func(context.Context, SubgraphCompletedEvent) error
	subgraphFailed    []func(context.Context, SubgraphFailedEvent) error

	nodeStarting  []func(context.Context, NodeStartingEvent) error
	nodeCompleted []func(context.Context, NodeCompletedEvent) error
	nodeFailed    []func(context.Context, NodeFailedEvent) error

	llmCallStarting  []func(context.Context, LLMCallStartingEvent) error
	llmCallCompleted []func(context.Context, LLMCallCompletedEvent) error
	llmCallFailed    []func(context.Context, LLMCallFailedEvent) error

	toolCallStarting  []func(context.Context, ToolCallStartingEvent) error
	toolCallCompleted []func(context.Context, ToolCallCompletedEvent) error
	toolCallFailed    []func(context.Context, ToolCallFailedEvent) error
}

// InterceptAgentStarting registers a handler for agent start events.
func (i *Interceptors) InterceptAgentStarting(fn func(context.Context, AgentStartingEvent) error) {
	i.agentStarting = append(i.agentStarting, fn)
}

// InterceptAgentCompleted registers a handler for agent completion events.
func (i *Interceptors) InterceptAgentCompleted(fn func(context.Context, AgentCompletedEvent) error) {
	i.agentCompleted = append(i.agentCompleted, fn)
}

// InterceptAgentFailed registers a handler for agent failure events.
func (i *Interceptors) InterceptAgentFailed(fn func(context.Context, AgentFailedEvent) error) {
	i.agentFailed = append(i.agentFailed, fn)
}

// InterceptStrategyStarting registers a handler for strategy start events.
func (i *Interceptors) InterceptStrategyStarting(fn func(context.Context, StrategyStartingEvent) error) {
	i.strategyStarting = append(i.strategyStarting, fn)
}

// InterceptStrategyCompleted registers a handler for strategy completion events.
func (i *Interceptors) InterceptStrategyCompleted(fn func(context.Context, StrategyCompletedEvent) error) {
	i.strategyCompleted = append(i.strategyCompleted, fn)
}

// InterceptStrategyFailed registers a handler for strategy failure events.
func (i *Interceptors) InterceptStrategyFailed(fn func(context.Context, StrategyFailedEvent) error) {
	i.strategyFailed = append(i.strategyFailed, fn)
}

// InterceptSubgraphStarting registers a handler for subgraph start events.
func (i *Interceptors) InterceptSubgraphStarting(fn func(context.Context, SubgraphStartingEvent) error) {
	i.subgraphStarting = append(i.subgraphStarting, fn)
}

// InterceptSubgraphCompleted registers a handler for subgraph completion events.
func (i *Interceptors) InterceptSubgraphCompleted(fn func(context.Context, SubgraphCompletedEvent) error) {
	i.subgraphCompleted = append(i.subgraphCompleted, fn)
}

// InterceptSubgraphFailed registers a handler for subgraph failure events.
func (i *Interceptors) InterceptSubgraphFailed(fn func(context.Context, SubgraphFailedEvent) error) {
	i.subgraphFailed = append(i.subgraphFailed, fn)
}

// InterceptNodeStarting registers a handler for node start events.
func (i *Interceptors) InterceptNodeStarting(fn func(context.Context, NodeStartingEvent) error) {
	i.nodeStarting = append(i.nodeStarting, fn)
}

// InterceptNodeCompleted registers a handler for node completion events.
func (i *Interceptors) InterceptNodeCompleted(fn func(context.Context, NodeCompletedEvent) error) {
	i.nodeCompleted = append(i.nodeCompleted, fn)
}

// InterceptNodeFailed registers a handler for node failure events.
func (i *Interceptors) InterceptNodeFailed(fn func(context.Context, NodeFailedEvent) error) {
	i.nodeFailed = append(i.nodeFailed, fn)
}

// InterceptLLMCallStarting registers a handler for model request events.
func (i *Interceptors) InterceptLLMCallStarting(fn func(context.Context, LLMCallStartingEvent) error) {
	i.llmCallStarting = append(i.llmCallStarting, fn)
}

// InterceptLLMCallCompleted registers a handler for model reply events.
func (i *Interceptors) InterceptLLMCallCompleted(fn func(context.Context, LLMCallCompletedEvent) error) {
	i.llmCallCompleted = append(i.llmCallCompleted, fn)
}

// InterceptLLMCallFailed registers a handler for model failure events.
func (i *Interceptors) InterceptLLMCallFailed(fn func(context.Context, LLMCallFailedEvent) error) {
	i.llmCallFailed = append(i.llmCallFailed, fn)
}

// InterceptToolCallStarting registers a handler for tool start events.
func (i *Interceptors) InterceptToolCallStarting(fn func(context.Context, ToolCallStartingEvent) error) {
	i.toolCallStarting = append(i.toolCallStarting, fn)
}

// InterceptToolCallCompleted registers a handler for tool result events.
func (i *Interceptors) InterceptToolCallCompleted(fn func(context.Context, ToolCallCompletedEvent) error) {
	i.toolCallCompleted = append(i.toolCallCompleted, fn)
}

// InterceptToolCallFailed registers a handler for tool breakdown events.
func (i *Interceptors) InterceptToolCallFailed(fn func(context.Context, ToolCallFailedEvent) error) {
	i.toolCallFailed = append(i.toolCallFailed, fn)
}

type featureEntry struct {
	feature      Feature
	interceptors Interceptors
}

// Pipeline dispatches lifecycle events to installed features. Features are
// iterated in install order and each feature's handlers in registration
// order; dispatch is synchronous on the emitting goroutine.
type Pipeline struct {
	features []*featureEntry
}

// NewPipeline constructs an empty pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{}
}

// Install registers a feature and lets it attach handlers. Installing the
// same feature twice attaches its handlers twice; callers own dedup.
func (p *Pipeline) Install(f Feature) {
	entry := &featureEntry{feature: f}
	f.Install(&entry.interceptors)
	p.features = append(p.features, entry)
}

// Features returns installed features in install order.
func (p *Pipeline) Features() []Feature {
	out := make([]Feature, len(p.features))
	for i, e := range p.features {
		out[i] = e.feature
	}

	return out
}

// emit walks features and handlers; stops on the first handler error.
func emit[E any](ctx context.Context, p *Pipeline, pick func(*Interceptors) []func(context.Context, E) error, ev E) error {
	for _, entry := range p.features {
		for _, fn := range pick(&entry.interceptors) {
			if err := fn(ctx, ev); err != nil {
				return err
			}
		}
	}

	return nil
}

func (p *Pipeline) onAgentStarting(ctx context.Context, ev AgentStartingEvent) error {
	return emit(ctx, p, func(i *Interceptors) []func(context.Context, AgentStartingEvent) error { return i.agentStarting }, ev)
}

func (p *Pipeline) onAgentCompleted(ctx context.Context, ev AgentCompletedEvent) error {
	return emit(ctx, p, func(i *Interceptors) []func(context.Context, AgentCompletedEvent) error { return i.agentCompleted }, ev)
}

func (p *Pipeline) onAgentFailed(ctx context.Context, ev AgentFailedEvent) error {
	return emit(ctx, p, func(i *Interceptors) []func(context.Context, AgentFailedEvent) error { return i.agentFailed }, ev)
}

func (p *Pipeline) onStrategyStarting(ctx context.Context, ev StrategyStartingEvent) error {
	return emit(ctx, p, func(i *Interceptors) []func(context.Context, StrategyStartingEvent) error { return i.strategyStarting }, ev)
}

func (p *Pipeline) onStrategyCompleted(ctx context.Context, ev StrategyCompletedEvent) error {
	return emit(ctx, p, func(i *Interceptors) []func(context.Context, StrategyCompletedEvent) error { return i.strategyCompleted }, ev)
}

func (p *Pipeline) onStrategyFailed(ctx context.Context, ev StrategyFailedEvent) error {
	return emit(ctx, p, func(i *Interceptors) []func(context.Context, StrategyFailedEvent) error { return i.strategyFailed }, ev)
}

func (p *Pipeline) onSubgraphStarting(ctx context.Context, ev SubgraphStartingEvent) error {
	return emit(ctx, p, func(i *Interceptors) []func(context.Context, SubgraphStartingEvent) error { return i.subgraphStarting }, ev)
}

func (p *Pipeline) onSubgraphCompleted(ctx context.Context, ev SubgraphCompletedEvent) error {
	return emit(ctx, p, func(i *Interceptors) []func(context.Context, SubgraphCompletedEvent) error { return i.subgraphCompleted }, ev)
}

func (p *Pipeline) onSubgraphFailed(ctx context.Context, ev SubgraphFailedEvent) error {
	return emit(ctx, p, func(i *Interceptors) []func(context.Context, SubgraphFailedEvent) error { return i.subgraphFailed }, ev)
}

func (p *Pipeline) onNodeStarting(ctx context.Context, ev NodeStartingEvent) error {
	return emit(ctx, p, func(i *Interceptors) []func(context.Context, NodeStartingEvent) error { return i.nodeStarting }, ev)
}

func (p *Pipeline) onNodeCompleted(ctx context.Context, ev NodeCompletedEvent) error {
	return emit(ctx, p, func(i *Interceptors) []func(context.Context, NodeCompletedEvent) error { return i.nodeCompleted }, ev)
}

func (p *Pipeline) onNodeFailed(ctx context.Context, ev NodeFailedEvent) error {
	return emit(ctx, p, func(i *Interceptors) []func(context.Context, NodeFailedEvent) error { return i.nodeFailed }, ev)
}

func (p *Pipeline) onLLMCallStarting(ctx context.Context, ev LLMCallStartingEvent) error {
	return emit(ctx, p, func(i *Interceptors) []func(context.Context, LLMCallStartingEvent) error { return i.llmCallStarting }, ev)
}

func (p *Pipeline) onLLMCallCompleted(ctx context.Context, ev LLMCallCompletedEvent) error {
	return emit(ctx, p, func(i *Interceptors) []func(context.Context, LLMCallCompletedEvent) error { return i.llmCallCompleted }, ev)
}

func (p *Pipeline) onLLMCallFailed(ctx context.Context, ev LLMCallFailedEvent) error {
	return emit(ctx, p, func(i *Interceptors) []func(context.Context, LLMCallFailedEvent) error { return i.llmCallFailed }, ev)
}

func (p *Pipeline) onToolCallStarting(ctx context.Context, ev ToolCallStartingEvent) error {
	return emit(ctx, p, func(i *Interceptors) []func(context.Context, ToolCallStartingEvent) error { return i.toolCallStarting }, ev)
}

func (p *Pipeline) onToolCallCompleted(ctx context.Context, ev ToolCallCompletedEvent) error {
	return emit(ctx, p, func(i *Interceptors) []func(context.Context, ToolCallCompletedEvent) error { return i.toolCallCompleted }, ev)
}

func (p *Pipeline) onToolCallFailed(ctx context.Context, ev ToolCallFailedEvent) error {
	return emit(ctx, p, func(i *Interceptors) []func(context.Context, ToolCallFailedEvent) error { return i.toolCallFailed }, ev)
}
