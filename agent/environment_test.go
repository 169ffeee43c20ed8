package agent

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skein-ai/skein/llm"
	"github.com/skein-ai/skein/tool"
)

func newTestRegistry(t *testing.T) *tool.Registry {
	t.Helper()

	sum := tool.NewFunctionTool("sum", "Adds two numbers.", map[string]any{
		"type": "object",
		"properties": map[string]any{
			"a": map[string]any{"type": "number"},
			"b": map[string]any{"type": "number"},
		},
		"required": []string{"a", "b"},
	}, func(ctx context.Context, args map[string]any) (any, error) {
		return args["a"].(float64) + args["b"].(float64), nil
	})

	boom := tool.NewFunctionTool("boom", "Always panics.", map[string]any{
		"type": "object", "properties": map[string]any{},
	}, func(ctx context.Context, args map[string]any) (any, error) {
		panic("kaboom")
	})

	fail := tool.NewFunctionTool("fail", "Always errors.", map[string]any{
		"type": "object", "properties": map[string]any{},
	}, func(ctx context.Context, args map[string]any) (any, error) {
		return nil, fmt.Errorf("upstream unavailable")
	})

	slow := tool.NewFunctionTool("slow", "Waits for cancellation.", map[string]any{
		"type": "object", "properties": map[string]any{},
	}, func(ctx context.Context, args map[string]any) (any, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(5 * time.Second):
			return "done", nil
		}
	})

	registry, err := tool.NewRegistry(sum, boom, fail, slow)
	require.NoError(t, err)

	return registry
}

func TestExecuteTool(t *testing.T) {
	env := NewEnvironment(newTestRegistry(t))

	t.Run("success", func(t *testing.T) {
		result := env.ExecuteTool(context.Background(), llm.ToolCallMessage{
			ID: "call-1", Tool: "sum", Arguments: `{"a": 2, "b": 3}`,
		})

		assert.Equal(t, ToolResultSuccess, result.Kind)
		assert.Equal(t, "5", result.Content)
		assert.Equal(t, "call-1", result.ID)
	})

	t.Run("unknown tool is a failure", func(t *testing.T) {
		result := env.ExecuteTool(context.Background(), llm.ToolCallMessage{
			ID: "call-2", Tool: "nope", Arguments: `{}`,
		})

		assert.Equal(t, ToolResultFailure, result.Kind)
		assert.Contains(t, result.Content, "not found")
	})

	t.Run("malformed arguments are a validation error", func(t *testing.T) {
		result := env.ExecuteTool(context.Background(), llm.ToolCallMessage{
			ID: "call-3", Tool: "sum", Arguments: `{not json`,
		})

		assert.Equal(t, ToolResultValidationError, result.Kind)
	})

	t.Run("missing required argument is a validation error", func(t *testing.T) {
		result := env.ExecuteTool(context.Background(), llm.ToolCallMessage{
			ID: "call-4", Tool: "sum", Arguments: `{"a": 2}`,
		})

		assert.Equal(t, ToolResultValidationError, result.Kind)
		assert.Error(t, result.Err)
	})

	t.Run("panic is contained as a failure", func(t *testing.T) {
		result := env.ExecuteTool(context.Background(), llm.ToolCallMessage{
			ID: "call-5", Tool: "boom", Arguments: `{}`,
		})

		assert.Equal(t, ToolResultFailure, result.Kind)
		assert.Contains(t, result.Content, "kaboom")
	})

	t.Run("result message flags non-success kinds", func(t *testing.T) {
		ok := ReceivedToolResult{ID: "a", Tool: "sum", Kind: ToolResultSuccess, Content: "5"}
		bad := ReceivedToolResult{ID: "b", Tool: "sum", Kind: ToolResultValidationError, Content: "nope"}

		assert.False(t, ok.Message().IsError)
		assert.True(t, bad.Message().IsError)
	})
}

func TestExecuteTools(t *testing.T) {
	env := NewEnvironment(newTestRegistry(t))

	t.Run("one result per call in input order", func(t *testing.T) {
		calls := []llm.ToolCallMessage{
			{ID: "c1", Tool: "sum", Arguments: `{"a": 1, "b": 1}`},
			{ID: "c2", Tool: "boom", Arguments: `{}`},
			{ID: "c3", Tool: "fail", Arguments: `{}`},
			{ID: "c4", Tool: "sum", Arguments: `{"a": 2, "b": 2}`},
		}

		results, err := env.ExecuteTools(context.Background(), calls)
		require.NoError(t, err)
		require.Len(t, results, len(calls))

		assert.Equal(t, "c1", results[0].ID)
		assert.Equal(t, ToolResultSuccess, results[0].Kind)
		assert.Equal(t, ToolResultFailure, results[1].Kind)
		assert.Equal(t, ToolResultFailure, results[2].Kind)
		assert.Equal(t, "4", results[3].Content)
	})

	t.Run("empty batch yields no results", func(t *testing.T) {
		results, err := env.ExecuteTools(context.Background(), nil)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("bounded parallelism preserves order", func(t *testing.T) {
		bounded := NewEnvironment(newTestRegistry(t), func(o *EnvironmentOptions) {
			o.MaxParallel = 2
		})

		calls := make([]llm.ToolCallMessage, 6)
		for i := range calls {
			calls[i] = llm.ToolCallMessage{
				ID:        fmt.Sprintf("c%d", i),
				Tool:      "sum",
				Arguments: fmt.Sprintf(`{"a": %d, "b": 0}`, i),
			}
		}

		results, err := bounded.ExecuteTools(context.Background(), calls)
		require.NoError(t, err)
		require.Len(t, results, 6)

		for i, r := range results {
			assert.Equal(t, fmt.Sprintf("c%d", i), r.ID)
			assert.Equal(t, fmt.Sprintf("%d", i), r.Content)
		}
	})

	t.Run("cancellation is the only batch error", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err := env.ExecuteTools(ctx, []llm.ToolCallMessage{
			{ID: "c1", Tool: "slow", Arguments: `{}`},
		})

		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("sequential mode runs in order", func(t *testing.T) {
		seq := NewEnvironment(newTestRegistry(t), func(o *EnvironmentOptions) {
			o.Sequential = true
		})

		results, err := seq.ExecuteTools(context.Background(), []llm.ToolCallMessage{
			{ID: "c1", Tool: "sum", Arguments: `{"a": 1, "b": 2}`},
			{ID: "c2", Tool: "sum", Arguments: `{"a": 3, "b": 4}`},
		})
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "3", results[0].Content)
		assert.Equal(t, "7", results[1].Content)
	})
}

func TestEnvironmentPipelineEvents(t *testing.T) {
	pipeline := NewPipeline()

	var starting []string
	var failed []string
	var completed []ToolResultKind

	pipeline.Install(featureFunc{
		name: "recorder",
		install: func(i *Interceptors) {
			i.InterceptToolCallStarting(func(ctx context.Context, ev ToolCallStartingEvent) error {
				starting = append(starting, ev.Tool)
				return nil
			})
			i.InterceptToolCallFailed(func(ctx context.Context, ev ToolCallFailedEvent) error {
				failed = append(failed, ev.Tool)
				return nil
			})
			i.InterceptToolCallCompleted(func(ctx context.Context, ev ToolCallCompletedEvent) error {
				completed = append(completed, ev.Result.Kind)
				return nil
			})
		},
	})

	env := NewEnvironment(newTestRegistry(t), func(o *EnvironmentOptions) {
		o.Pipeline = pipeline
		o.Sequential = true
	})

	_, err := env.ExecuteTools(context.Background(), []llm.ToolCallMessage{
		{ID: "c1", Tool: "sum", Arguments: `{"a": 1, "b": 1}`},
		{ID: "c2", Tool: "fail", Arguments: `{}`},
		{ID: "c3", Tool: "sum", Arguments: `{not json`},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"sum", "fail", "sum"}, starting)
	// Both failure kinds raise the failed event; every call still completes.
	assert.Equal(t, []string{"fail", "sum"}, failed)
	assert.Equal(t, []ToolResultKind{ToolResultSuccess, ToolResultFailure, ToolResultValidationError}, completed)
}

// featureFunc adapts closures into a Feature for tests.
type featureFunc struct {
	name    string
	install func(i *Interceptors)
}

func (f featureFunc) Name() string            { return f.name }
func (f featureFunc) Install(i *Interceptors) { f.install(i) }
