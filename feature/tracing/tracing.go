// Package tracing writes one structured line per lifecycle event, giving a
// complete replayable record of a run. Lines are JSON objects carrying the
// event name, the execution id chain and an event-specific payload.
package tracing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/skein-ai/skein/agent"
	"github.com/skein-ai/skein/llm"
)

// Entry is one trace line.
type Entry struct {
	// Time is the emission timestamp in UTC.
	Time time.Time `json:"time"`
	// Event names the lifecycle event, e.g. "node.starting".
	Event string `json:"event"`
	// Execution correlates the entry with its scope.
	Execution agent.ExecutionInfo `json:"execution"`
	// Detail carries event-specific fields.
	Detail map[string]any `json:"detail,omitempty"`
}

// Options configure the tracing feature.
type Options struct {
	// IncludeMessages adds full prompt and response texts to LLM entries.
	// Off by default since prompts may carry sensitive content.
	IncludeMessages bool
}

// WithMessages enables full message capture in LLM-call entries.
func WithMessages() func(o *Options) {
	return func(o *Options) {
		o.IncludeMessages = true
	}
}

// Feature implements agent.Feature by streaming entries to a writer.
type Feature struct {
	mu   sync.Mutex
	w    io.Writer
	opts Options
}

// New creates a tracing feature writing JSON lines to w.
func New(w io.Writer, optFns ...func(o *Options)) *Feature {
	var opts Options
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Feature{w: w, opts: opts}
}

// Name implements agent.Feature.
func (f *Feature) Name() string { return "tracing" }

func (f *Feature) write(event string, exec agent.ExecutionInfo, detail map[string]any) error {
	entry := Entry{
		Time:      time.Now().UTC(),
		Event:     event,
		Execution: exec,
		Detail:    detail,
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("tracing: encode entry: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, err := f.w.Write(append(raw, '\n')); err != nil {
		return fmt.Errorf("tracing: write entry: %w", err)
	}

	return nil
}

// errDetail always returns a writable map so callers can add fields without
// checking for nil.
func errDetail(err error) map[string]any {
	detail := map[string]any{}
	if err != nil {
		detail["error"] = err.Error()
	}
	return detail
}

func (f *Feature) llmDetail(prompt llm.Prompt, model llm.Model, responses []llm.Message) map[string]any {
	detail := map[string]any{
		"model":    string(model.Provider) + "/" + model.ID,
		"messages": len(prompt.Messages),
	}

	if f.opts.IncludeMessages {
		var texts []string
		for _, m := range responses {
			texts = append(texts, llm.TextOf(m))
		}
		detail["responses"] = texts
	}

	return detail
}

// Install implements agent.Feature.
func (f *Feature) Install(i *agent.Interceptors) {
	i.InterceptAgentStarting(func(ctx context.Context, ev agent.AgentStartingEvent) error {
		return f.write("agent.starting", ev.Execution, map[string]any{"agent_id": ev.AgentID})
	})
	i.InterceptAgentCompleted(func(ctx context.Context, ev agent.AgentCompletedEvent) error {
		return f.write("agent.completed", ev.Execution, map[string]any{"agent_id": ev.AgentID})
	})
	i.InterceptAgentFailed(func(ctx context.Context, ev agent.AgentFailedEvent) error {
		return f.write("agent.failed", ev.Execution, errDetail(ev.Err))
	})

	i.InterceptStrategyStarting(func(ctx context.Context, ev agent.StrategyStartingEvent) error {
		return f.write("strategy.starting", ev.Execution, map[string]any{"strategy": ev.Strategy})
	})
	i.InterceptStrategyCompleted(func(ctx context.Context, ev agent.StrategyCompletedEvent) error {
		return f.write("strategy.completed", ev.Execution, map[string]any{"strategy": ev.Strategy})
	})
	i.InterceptStrategyFailed(func(ctx context.Context, ev agent.StrategyFailedEvent) error {
		return f.write("strategy.failed", ev.Execution, errDetail(ev.Err))
	})

	i.InterceptSubgraphStarting(func(ctx context.Context, ev agent.SubgraphStartingEvent) error {
		return f.write("subgraph.starting", ev.Execution, map[string]any{"subgraph": ev.Subgraph})
	})
	i.InterceptSubgraphCompleted(func(ctx context.Context, ev agent.SubgraphCompletedEvent) error {
		return f.write("subgraph.completed", ev.Execution, map[string]any{"subgraph": ev.Subgraph})
	})
	i.InterceptSubgraphFailed(func(ctx context.Context, ev agent.SubgraphFailedEvent) error {
		return f.write("subgraph.failed", ev.Execution, errDetail(ev.Err))
	})

	i.InterceptNodeStarting(func(ctx context.Context, ev agent.NodeStartingEvent) error {
		return f.write("node.starting", ev.Execution, map[string]any{"node": ev.Node})
	})
	i.InterceptNodeCompleted(func(ctx context.Context, ev agent.NodeCompletedEvent) error {
		return f.write("node.completed", ev.Execution, map[string]any{"node": ev.Node})
	})
	i.InterceptNodeFailed(func(ctx context.Context, ev agent.NodeFailedEvent) error {
		detail := errDetail(ev.Err)
		detail["node"] = ev.Node
		return f.write("node.failed", ev.Execution, detail)
	})

	i.InterceptLLMCallStarting(func(ctx context.Context, ev agent.LLMCallStartingEvent) error {
		detail := f.llmDetail(ev.Prompt, ev.Model, nil)
		detail["tools"] = len(ev.Tools)
		return f.write("llm.starting", ev.Execution, detail)
	})
	i.InterceptLLMCallCompleted(func(ctx context.Context, ev agent.LLMCallCompletedEvent) error {
		return f.write("llm.completed", ev.Execution, f.llmDetail(ev.Prompt, ev.Model, ev.Responses))
	})
	i.InterceptLLMCallFailed(func(ctx context.Context, ev agent.LLMCallFailedEvent) error {
		return f.write("llm.failed", ev.Execution, errDetail(ev.Err))
	})

	i.InterceptToolCallStarting(func(ctx context.Context, ev agent.ToolCallStartingEvent) error {
		return f.write("tool.starting", ev.Execution, map[string]any{
			"tool": ev.Tool, "call_id": ev.CallID,
		})
	})
	i.InterceptToolCallCompleted(func(ctx context.Context, ev agent.ToolCallCompletedEvent) error {
		return f.write("tool.completed", ev.Execution, map[string]any{
			"tool": ev.Tool, "call_id": ev.CallID, "kind": string(ev.Result.Kind),
		})
	})
	i.InterceptToolCallFailed(func(ctx context.Context, ev agent.ToolCallFailedEvent) error {
		detail := errDetail(ev.Err)
		detail["tool"] = ev.Tool
		return f.write("tool.failed", ev.Execution, detail)
	})
}
