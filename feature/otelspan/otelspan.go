// Package otelspan exports run lifecycle events as OpenTelemetry spans. Each
// scope (agent run, strategy, subgraph, node, model call, tool call) becomes
// one span; the span tree mirrors the execution id tree.
package otelspan

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/skein-ai/skein/agent"
)

const tracerName = "github.com/skein-ai/skein/feature/otelspan"

// Options configure the feature.
type Options struct {
	// TracerProvider supplies the tracer. Defaults to the global provider.
	TracerProvider trace.TracerProvider
}

// WithTracerProvider overrides the global tracer provider.
func WithTracerProvider(tp trace.TracerProvider) func(o *Options) {
	return func(o *Options) {
		o.TracerProvider = tp
	}
}

// Feature implements agent.Feature, tracking open spans by execution id.
type Feature struct {
	tracer trace.Tracer

	mu    sync.Mutex
	spans map[string]spanEntry
}

type spanEntry struct {
	ctx  context.Context
	span trace.Span
}

// New creates the feature.
func New(optFns ...func(o *Options)) *Feature {
	var opts Options
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.TracerProvider == nil {
		opts.TracerProvider = otel.GetTracerProvider()
	}

	return &Feature{
		tracer: opts.TracerProvider.Tracer(tracerName),
		spans:  make(map[string]spanEntry),
	}
}

// Name implements agent.Feature.
func (f *Feature) Name() string { return "otelspan" }

// start opens a span parented to the span of the parent execution id, when
// one is still open, and otherwise to the caller context.
func (f *Feature) start(ctx context.Context, exec agent.ExecutionInfo, name string, attrs ...attribute.KeyValue) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if parent, ok := f.spans[exec.ParentID]; ok {
		ctx = parent.ctx
	}

	spanCtx, span := f.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	f.spans[exec.ID] = spanEntry{ctx: spanCtx, span: span}
}

// end closes the span for an execution id, recording err when non-nil.
func (f *Feature) end(exec agent.ExecutionInfo, err error) {
	f.mu.Lock()
	entry, ok := f.spans[exec.ID]
	delete(f.spans, exec.ID)
	f.mu.Unlock()

	if !ok {
		return
	}

	if err != nil {
		entry.span.RecordError(err)
		entry.span.SetStatus(codes.Error, err.Error())
	} else {
		entry.span.SetStatus(codes.Ok, "")
	}

	entry.span.End()
}

// Install implements agent.Feature.
func (f *Feature) Install(i *agent.Interceptors) {
	i.InterceptAgentStarting(func(ctx context.Context, ev agent.AgentStartingEvent) error {
		f.start(ctx, ev.Execution, "invoke.agent", attribute.String("agent.id", ev.AgentID))
		return nil
	})
	i.InterceptAgentCompleted(func(ctx context.Context, ev agent.AgentCompletedEvent) error {
		f.end(ev.Execution, nil)
		return nil
	})
	i.InterceptAgentFailed(func(ctx context.Context, ev agent.AgentFailedEvent) error {
		f.end(ev.Execution, ev.Err)
		return nil
	})

	i.InterceptStrategyStarting(func(ctx context.Context, ev agent.StrategyStartingEvent) error {
		f.start(ctx, ev.Execution, "invoke.strategy", attribute.String("strategy.name", ev.Strategy))
		return nil
	})
	i.InterceptStrategyCompleted(func(ctx context.Context, ev agent.StrategyCompletedEvent) error {
		f.end(ev.Execution, nil)
		return nil
	})
	i.InterceptStrategyFailed(func(ctx context.Context, ev agent.StrategyFailedEvent) error {
		f.end(ev.Execution, ev.Err)
		return nil
	})

	i.InterceptSubgraphStarting(func(ctx context.Context, ev agent.SubgraphStartingEvent) error {
		f.start(ctx, ev.Execution, "invoke.subgraph", attribute.String("subgraph.name", ev.Subgraph))
		return nil
	})
	i.InterceptSubgraphCompleted(func(ctx context.Context, ev agent.SubgraphCompletedEvent) error {
		f.end(ev.Execution, nil)
		return nil
	})
	i.InterceptSubgraphFailed(func(ctx context.Context, ev agent.SubgraphFailedEvent) error {
		f.end(ev.Execution, ev.Err)
		return nil
	})

	i.InterceptNodeStarting(func(ctx context.Context, ev agent.NodeStartingEvent) error {
		f.start(ctx, ev.Execution, "invoke.node", attribute.String("node.name", ev.Node))
		return nil
	})
	i.InterceptNodeCompleted(func(ctx context.Context, ev agent.NodeCompletedEvent) error {
		f.end(ev.Execution, nil)
		return nil
	})
	i.InterceptNodeFailed(func(ctx context.Context, ev agent.NodeFailedEvent) error {
		f.end(ev.Execution, ev.Err)
		return nil
	})

	i.InterceptLLMCallStarting(func(ctx context.Context, ev agent.LLMCallStartingEvent) error {
		f.start(ctx, ev.Execution, "llm.request",
			attribute.String("llm.provider", string(ev.Model.Provider)),
			attribute.String("llm.model", ev.Model.ID),
			attribute.Int("llm.tools", len(ev.Tools)),
		)
		return nil
	})
	i.InterceptLLMCallCompleted(func(ctx context.Context, ev agent.LLMCallCompletedEvent) error {
		f.end(ev.Execution, nil)
		return nil
	})
	i.InterceptLLMCallFailed(func(ctx context.Context, ev agent.LLMCallFailedEvent) error {
		f.end(ev.Execution, ev.Err)
		return nil
	})

	i.InterceptToolCallStarting(func(ctx context.Context, ev agent.ToolCallStartingEvent) error {
		f.start(ctx, ev.Execution, "tool.execute",
			attribute.String("tool.name", ev.Tool),
			attribute.String("tool.call_id", ev.CallID),
		)
		return nil
	})
	i.InterceptToolCallCompleted(func(ctx context.Context, ev agent.ToolCallCompletedEvent) error {
		f.end(ev.Execution, nil)
		return nil
	})
	i.InterceptToolCallFailed(func(ctx context.Context, ev agent.ToolCallFailedEvent) error {
		// The matching completed event closes the span; record the error on
		// the still-open span here.
		f.mu.Lock()
		if entry, ok := f.spans[ev.Execution.ID]; ok {
			entry.span.RecordError(ev.Err)
		}
		f.mu.Unlock()
		return nil
	})
}
