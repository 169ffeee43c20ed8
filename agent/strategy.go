package agent

import (
	"context"
	"fmt"

	"github.com/skein-ai/skein/logging"
	"github.com/skein-ai/skein/tool"
)

// Reserved node names delimiting every graph. Start receives the run input
// unchanged; reaching Finish ends the walk and yields the final output.
const (
	StartNode  = "__start__"
	FinishNode = "__finish__"
)

// NodeContext is handed to every node function. It exposes the shared
// conversation state, the tool environment and the ambient context of the
// walk.
type NodeContext struct {
	ctx         context.Context
	llm         *LLMContext
	environment Environment
	pipeline    *Pipeline
	logger      logging.Logger
	registry    *tool.Registry
}

// Context returns the walk's ambient context carrying the current
// ExecutionInfo.
func (nc *NodeContext) Context() context.Context { return nc.ctx }

// LLM returns the shared conversation state.
func (nc *NodeContext) LLM() *LLMContext { return nc.llm }

// Environment returns the tool execution environment.
func (nc *NodeContext) Environment() Environment { return nc.environment }

// Logger returns the run logger.
func (nc *NodeContext) Logger() logging.Logger { return nc.logger }

// Tools returns the tool registry, which may be nil.
func (nc *NodeContext) Tools() *tool.Registry { return nc.registry }

func (nc *NodeContext) withContext(ctx context.Context) *NodeContext {
	clone := *nc
	clone.ctx = ctx
	return &clone
}

// NodeFunc transforms a node input into its output.
type NodeFunc func(nc *NodeContext, input any) (any, error)

// node is a named unit of work in a strategy graph. A node either runs a
// NodeFunc or, for subgraph nodes, walks a nested strategy.
type node struct {
	name     string
	run      NodeFunc
	subgraph *Strategy
}

// edge connects two nodes. Condition and transform see the output of the
// source node; a nil condition always matches and a nil transform passes the
// value through.
type edge struct {
	from      string
	to        string
	condition func(output any) bool
	transform func(output any) (any, error)
}

// EdgeOptions configure a single edge.
type EdgeOptions struct {
	// Condition gates the edge. Nil matches everything.
	Condition func(output any) bool
	// Transform rewrites the value carried across the edge. Nil passes the
	// source output through unchanged.
	Transform func(output any) (any, error)
}

// WithCondition sets the edge predicate.
func WithCondition(fn func(output any) bool) func(o *EdgeOptions) {
	return func(o *EdgeOptions) {
		o.Condition = fn
	}
}

// WithTransform sets the edge value transform.
func WithTransform(fn func(output any) (any, error)) func(o *EdgeOptions) {
	return func(o *EdgeOptions) {
		o.Transform = fn
	}
}

// Strategy is an immutable directed graph of nodes. Edges out of a node are
// evaluated in registration order and the first whose condition accepts the
// output wins. Cycles are legal; runs are bounded by the walk's iteration
// limit, not by graph shape.
type Strategy struct {
	name  string
	nodes map[string]*node
	// edges preserves per-source registration order.
	edges map[string][]edge
}

// Name returns the strategy name.
func (s *Strategy) Name() string { return s.name }

// Nodes returns the user-defined node names (reserved ports excluded).
func (s *Strategy) Nodes() []string {
	names := make([]string, 0, len(s.nodes))
	for name := range s.nodes {
		names = append(names, name)
	}
	return names
}

// StrategyBuilder assembles a Strategy. Builders are single-use; Build
// validates the graph and freezes it.
type StrategyBuilder struct {
	name  string
	nodes map[string]*node
	// order preserves per-source edge registration order.
	edges map[string][]edge
	errs  []error
}

// NewStrategy opens a builder for a named graph.
func NewStrategy(name string) *StrategyBuilder {
	return &StrategyBuilder{
		name:  name,
		nodes: make(map[string]*node),
		edges: make(map[string][]edge),
	}
}

// Node registers a named node. Reserved and duplicate names are rejected at
// Build time.
func (b *StrategyBuilder) Node(name string, fn NodeFunc) *StrategyBuilder {
	b.addNode(&node{name: name, run: fn})
	return b
}

// Subgraph registers a nested strategy as a single node. From the outside
// only the node's input and output are visible; the inner walk emits its own
// node events under a subgraph scope.
func (b *StrategyBuilder) Subgraph(name string, sub *Strategy) *StrategyBuilder {
	b.addNode(&node{name: name, subgraph: sub})
	return b
}

func (b *StrategyBuilder) addNode(n *node) {
	if n.name == StartNode || n.name == FinishNode {
		b.errs = append(b.errs, fmt.Errorf("node name %q is reserved", n.name))
		return
	}
	if _, exists := b.nodes[n.name]; exists {
		b.errs = append(b.errs, fmt.Errorf("duplicate node %q", n.name))
		return
	}

	b.nodes[n.name] = n
}

// Edge connects from to to. Registration order is routing priority.
func (b *StrategyBuilder) Edge(from, to string, optFns ...func(o *EdgeOptions)) *StrategyBuilder {
	var opts EdgeOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	b.edges[from] = append(b.edges[from], edge{
		from:      from,
		to:        to,
		condition: opts.Condition,
		transform: opts.Transform,
	})

	return b
}

// Build validates the graph and returns the frozen strategy. Validation
// requires every edge endpoint to exist, at least one edge out of the start
// port, and a path requirement no stronger than that: unreachable nodes are
// reported, dead cycles are not.
func (b *StrategyBuilder) Build() (*Strategy, error) {
	errs := b.errs

	known := func(name string) bool {
		if name == StartNode || name == FinishNode {
			return true
		}
		_, ok := b.nodes[name]
		return ok
	}

	for from, outgoing := range b.edges {
		if !known(from) {
			errs = append(errs, fmt.Errorf("edge from unknown node %q", from))
		}
		for _, e := range outgoing {
			if !known(e.to) {
				errs = append(errs, fmt.Errorf("edge %s -> %s targets unknown node", e.from, e.to))
			}
			if e.to == StartNode {
				errs = append(errs, fmt.Errorf("edge %s -> %s targets the start port", e.from, e.to))
			}
			if e.from == FinishNode {
				errs = append(errs, fmt.Errorf("edge %s -> %s leaves the finish port", e.from, e.to))
			}
		}
	}

	if len(b.edges[StartNode]) == 0 {
		errs = append(errs, fmt.Errorf("strategy %q has no edge out of the start port", b.name))
	}

	if len(errs) > 0 {
		var combined error
		for _, err := range errs {
			if combined == nil {
				combined = err
				continue
			}
			combined = fmt.Errorf("%w; %w", combined, err)
		}
		return nil, fmt.Errorf("invalid strategy %q: %w", b.name, combined)
	}

	return &Strategy{name: b.name, nodes: b.nodes, edges: b.edges}, nil
}

// MustBuild is Build that panics on validation errors. Intended for
// statically assembled graphs.
func (b *StrategyBuilder) MustBuild() *Strategy {
	s, err := b.Build()
	if err != nil {
		panic(err)
	}
	return s
}

// walk runs the graph from the start port until the finish port is reached.
// Every step counts against limiter, which is the only loop bound.
func (s *Strategy) walk(nc *NodeContext, input any, limiter *CallLimiter) (any, error) {
	return s.walkFrom(nc, StartNode, input, limiter)
}

// walkFrom enters the graph at an arbitrary node, which is how checkpoint
// resumption re-enters a half-finished run.
func (s *Strategy) walkFrom(nc *NodeContext, current string, value any, limiter *CallLimiter) (any, error) {
	if current != StartNode {
		if _, ok := s.nodes[current]; !ok {
			return nil, fmt.Errorf("strategy %s: cannot resume at unknown node %q", s.name, current)
		}
	}

	for {
		if current == FinishNode {
			return value, nil
		}

		if current != StartNode {
			if err := limiter.Increment(); err != nil {
				return nil, fmt.Errorf("strategy %s: %w", s.name, err)
			}

			var err error
			value, err = s.runNode(nc, s.nodes[current], value)
			if err != nil {
				return nil, err
			}
		}

		next, err := s.route(current, value)
		if err != nil {
			return nil, err
		}

		value, err = next.transit(value)
		if err != nil {
			return nil, fmt.Errorf("strategy %s: edge %s -> %s transform: %w", s.name, next.from, next.to, err)
		}

		current = next.to
	}
}

// route picks the first edge out of current whose condition accepts output.
func (s *Strategy) route(current string, output any) (edge, error) {
	for _, e := range s.edges[current] {
		if e.condition == nil || e.condition(output) {
			return e, nil
		}
	}

	return edge{}, fmt.Errorf("strategy %s: no edge out of %q matched the output", s.name, current)
}

func (e edge) transit(value any) (any, error) {
	if e.transform == nil {
		return value, nil
	}
	return e.transform(value)
}

// runNode executes one node with lifecycle events. Subgraph nodes walk the
// nested strategy under a fresh subgraph scope sharing the same limiter via
// the caller.
func (s *Strategy) runNode(nc *NodeContext, n *node, input any) (any, error) {
	exec := ExecutionFrom(nc.ctx).Child()
	ctx := WithExecution(nc.ctx, exec)
	scoped := nc.withContext(ctx)

	if n.subgraph != nil {
		return s.runSubgraph(scoped, n, input)
	}

	if err := nc.pipeline.onNodeStarting(ctx, NodeStartingEvent{
		Execution: exec,
		Node:      n.name,
		Input:     input,
	}); err != nil {
		return nil, err
	}

	output, err := n.run(scoped, input)
	if err != nil {
		nc.logger.Error("node.failed", "strategy", s.name, "node", n.name, "error", err.Error())

		if emitErr := nc.pipeline.onNodeFailed(ctx, NodeFailedEvent{
			Execution: exec,
			Node:      n.name,
			Err:       err,
		}); emitErr != nil {
			return nil, emitErr
		}

		return nil, fmt.Errorf("strategy %s: node %s: %w", s.name, n.name, err)
	}

	nc.logger.Debug("node.completed", "strategy", s.name, "node", n.name)

	if err := nc.pipeline.onNodeCompleted(ctx, NodeCompletedEvent{
		Execution: exec,
		Node:      n.name,
		Input:     input,
		Output:    output,
	}); err != nil {
		return nil, err
	}

	return output, nil
}

func (s *Strategy) runSubgraph(nc *NodeContext, n *node, input any) (any, error) {
	ctx := nc.ctx
	exec := ExecutionFrom(ctx)

	if err := nc.pipeline.onSubgraphStarting(ctx, SubgraphStartingEvent{
		Execution: exec,
		Subgraph:  n.name,
		Input:     input,
	}); err != nil {
		return nil, err
	}

	// Subgraph steps draw from a fresh walk but share the parent's bound
	// through the limiter handed down by the agent runtime.
	output, err := n.subgraph.walk(nc, input, subgraphLimiterFrom(ctx))
	if err != nil {
		if emitErr := nc.pipeline.onSubgraphFailed(ctx, SubgraphFailedEvent{
			Execution: exec,
			Subgraph:  n.name,
			Err:       err,
		}); emitErr != nil {
			return nil, emitErr
		}

		return nil, err
	}

	if err := nc.pipeline.onSubgraphCompleted(ctx, SubgraphCompletedEvent{
		Execution: exec,
		Subgraph:  n.name,
		Output:    output,
	}); err != nil {
		return nil, err
	}

	return output, nil
}

type limiterCtxKey struct{}

// withSubgraphLimiter shares the run's step limiter with nested walks so a
// looping subgraph cannot escape the outer iteration bound.
func withSubgraphLimiter(ctx context.Context, l *CallLimiter) context.Context {
	return context.WithValue(ctx, limiterCtxKey{}, l)
}

func subgraphLimiterFrom(ctx context.Context) *CallLimiter {
	if l, ok := ctx.Value(limiterCtxKey{}).(*CallLimiter); ok {
		return l
	}
	return NewCallLimiter(0)
}
