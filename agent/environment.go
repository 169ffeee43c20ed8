package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/skein-ai/skein/llm"
	"github.com/skein-ai/skein/logging"
	"github.com/skein-ai/skein/tool"
)

// ToolResultKind tags a ReceivedToolResult.
type ToolResultKind string

const (
	// ToolResultSuccess marks a completed tool execution.
	ToolResultSuccess ToolResultKind = "success"
	// ToolResultFailure marks a tool that started but failed (including
	// recovered panics and unknown tool names).
	ToolResultFailure ToolResultKind = "failure"
	// ToolResultValidationError marks arguments rejected before execution;
	// callers may retry with corrected arguments.
	ToolResultValidationError ToolResultKind = "validation_error"
)

// ReceivedToolResult is the tagged outcome of one tool call.
type ReceivedToolResult struct {
	// ID matches the originating llm.ToolCallMessage.
	ID string `json:"id"`
	// Tool is the requested tool name.
	Tool string `json:"tool"`
	// Arguments echoes the raw serialized arguments.
	Arguments string `json:"arguments,omitempty"`
	// Kind discriminates the union.
	Kind ToolResultKind `json:"kind"`
	// Content is the serialized result, or the error description for the
	// failure kinds.
	Content string `json:"content"`
	// Result holds the structured result on success.
	Result any `json:"result,omitempty"`
	// Err holds the underlying error for the failure kinds.
	Err error `json:"-"`
}

// Message converts the result into the prompt message fed back to the model.
func (r ReceivedToolResult) Message() llm.ToolResultMessage {
	return llm.ToolResultMessage{
		ID:      r.ID,
		Tool:    r.Tool,
		Content: r.Content,
		IsError: r.Kind != ToolResultSuccess,
	}
}

// Environment executes tool calls on behalf of an agent and reports problems
// that occur outside any single call.
//
// Implementations must:
//   - Respect context cancellation
//   - Produce exactly one result per incoming call (batch results are
//     positionally aligned with the calls)
//   - Convert panics and unknown tools into Failure results rather than
//     crashing sibling calls
type Environment interface {
	// ExecuteTool runs a single tool call to completion.
	ExecuteTool(ctx context.Context, call llm.ToolCallMessage) ReceivedToolResult

	// ExecuteTools runs a batch. The returned slice always has len(calls)
	// entries unless the context was cancelled, which is the only condition
	// reported through the error return.
	ExecuteTools(ctx context.Context, calls []llm.ToolCallMessage) ([]ReceivedToolResult, error)

	// ReportProblem surfaces an error that is not attributable to one call.
	ReportProblem(ctx context.Context, err error)
}

// EnvironmentOptions configure the default tool environment.
type EnvironmentOptions struct {
	// MaxParallel bounds concurrent tool executions in a batch.
	// 0 or negative means one goroutine per call.
	MaxParallel int
	// Sequential forces in-order one-at-a-time execution.
	Sequential bool
	// Logger used for per-call diagnostics. Defaults to NoOp.
	Logger logging.Logger
	// Pipeline receives tool-call lifecycle events. Nil disables emission.
	Pipeline *Pipeline
}

// toolEnvironment is the default Environment over a tool.Registry.
type toolEnvironment struct {
	registry *tool.Registry
	opts     EnvironmentOptions
}

// NewEnvironment builds the default Environment dispatching into registry.
func NewEnvironment(registry *tool.Registry, optFns ...func(o *EnvironmentOptions)) Environment {
	opts := EnvironmentOptions{Logger: logging.NoOpLogger{}}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	return &toolEnvironment{registry: registry, opts: opts}
}

// ExecuteTool implements Environment.
func (e *toolEnvironment) ExecuteTool(ctx context.Context, call llm.ToolCallMessage) ReceivedToolResult {
	exec := ExecutionFrom(ctx).Child()
	callCtx := WithExecution(ctx, exec)

	e.emitStarting(callCtx, exec, call)

	start := time.Now()
	result := e.runTool(callCtx, call)

	e.opts.Logger.Info("tool.executed",
		"tool", call.Tool,
		"call_id", call.ID,
		"kind", string(result.Kind),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	e.emitCompleted(callCtx, exec, call, result)

	return result
}

// ExecuteTools implements Environment. Results are buffered per index so the
// output order matches the input order regardless of completion order. One
// tool's failure never blocks its siblings; only cancellation aborts the
// batch.
func (e *toolEnvironment) ExecuteTools(ctx context.Context, calls []llm.ToolCallMessage) ([]ReceivedToolResult, error) {
	n := len(calls)
	if n == 0 {
		return nil, nil
	}

	if n == 1 || e.opts.Sequential {
		results := make([]ReceivedToolResult, 0, n)
		for _, call := range calls {
			if err := ctx.Err(); err != nil {
				return results, err
			}
			results = append(results, e.ExecuteTool(ctx, call))
		}
		return results, nil
	}

	maxPar := e.opts.MaxParallel
	if maxPar <= 0 || maxPar > n {
		maxPar = n
	}

	results := make([]ReceivedToolResult, n)
	sem := make(chan struct{}, maxPar)

	var wg sync.WaitGroup
	for i := range calls {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, call llm.ToolCallMessage) {
			defer wg.Done()
			defer func() { <-sem }()

			if ctx.Err() != nil {
				return
			}

			results[idx] = e.ExecuteTool(ctx, call)
		}(i, calls[i])
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return results, err
	}

	return results, nil
}

// ReportProblem implements Environment.
func (e *toolEnvironment) ReportProblem(ctx context.Context, err error) {
	e.opts.Logger.Error("environment.problem", "error", err.Error())
}

// runTool performs lookup, argument parsing, validation and execution with
// panic containment.
func (e *toolEnvironment) runTool(ctx context.Context, call llm.ToolCallMessage) (result ReceivedToolResult) {
	result = ReceivedToolResult{ID: call.ID, Tool: call.Tool, Arguments: call.Arguments}

	defer func() {
		if r := recover(); r != nil {
			e.opts.Logger.Error("tool.panic", "tool", call.Tool, "recover", r)
			err := fmt.Errorf("tool %s panicked: %v\n%s", call.Tool, r, debug.Stack())
			result.Kind = ToolResultFailure
			result.Err = err
			result.Content = fmt.Sprintf("tool %s panicked: %v", call.Tool, r)
		}
	}()

	impl, ok := e.registry.Get(call.Tool)
	if !ok {
		err := fmt.Errorf("tool %q not found", call.Tool)
		result.Kind = ToolResultFailure
		result.Err = err
		result.Content = err.Error()
		return result
	}

	args := map[string]any{}
	if call.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			verr := fmt.Errorf("malformed tool arguments: %w", err)
			result.Kind = ToolResultValidationError
			result.Err = verr
			result.Content = verr.Error()
			return result
		}
	}

	value, err := impl.Call(ctx, args)
	if err != nil {
		var toolErr *tool.ToolError
		if errors.As(err, &toolErr) && toolErr.IsValidation() {
			result.Kind = ToolResultValidationError
		} else {
			result.Kind = ToolResultFailure
		}
		result.Err = err
		result.Content = err.Error()
		return result
	}

	result.Kind = ToolResultSuccess
	result.Result = value
	result.Content = serializeResult(value)

	return result
}

func (e *toolEnvironment) emitStarting(ctx context.Context, exec ExecutionInfo, call llm.ToolCallMessage) {
	if e.opts.Pipeline == nil {
		return
	}

	if err := e.opts.Pipeline.onToolCallStarting(ctx, ToolCallStartingEvent{
		Execution: exec,
		CallID:    call.ID,
		Tool:      call.Tool,
		Arguments: call.Arguments,
	}); err != nil {
		e.opts.Logger.Error("pipeline.tool_starting.handler_error", "tool", call.Tool, "error", err.Error())
	}
}

func (e *toolEnvironment) emitCompleted(ctx context.Context, exec ExecutionInfo, call llm.ToolCallMessage, result ReceivedToolResult) {
	if e.opts.Pipeline == nil {
		return
	}

	if result.Kind != ToolResultSuccess && result.Err != nil {
		if err := e.opts.Pipeline.onToolCallFailed(ctx, ToolCallFailedEvent{
			Execution: exec,
			CallID:    call.ID,
			Tool:      call.Tool,
			Err:       result.Err,
		}); err != nil {
			e.opts.Logger.Error("pipeline.tool_failed.handler_error", "tool", call.Tool, "error", err.Error())
		}
	}

	if err := e.opts.Pipeline.onToolCallCompleted(ctx, ToolCallCompletedEvent{
		Execution: exec,
		CallID:    call.ID,
		Tool:      call.Tool,
		Result:    result,
	}); err != nil {
		e.opts.Logger.Error("pipeline.tool_completed.handler_error", "tool", call.Tool, "error", err.Error())
	}
}

// serializeResult renders a tool return value for prompt feedback: strings
// pass through, everything else is JSON encoded.
func serializeResult(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(raw)
	}
}
