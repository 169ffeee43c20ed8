package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sumTool() *FunctionTool {
	return NewFunctionTool(
		"calculate_sum",
		"Calculate the sum of two numbers",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"a": map[string]any{"type": "number"},
				"b": map[string]any{"type": "number"},
			},
			"required": []string{"a", "b"},
		},
		func(_ context.Context, args map[string]any) (any, error) {
			return args["a"].(float64) + args["b"].(float64), nil
		},
	)
}

func TestFunctionTool_Call(t *testing.T) {
	result, err := sumTool().Call(context.Background(), map[string]any{"a": 2.0, "b": 3.0})
	require.NoError(t, err)
	assert.Equal(t, 5.0, result)
}

func TestFunctionTool_ValidationError(t *testing.T) {
	_, err := sumTool().Call(context.Background(), map[string]any{"a": 2.0})

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeValidation, toolErr.Code)
	assert.True(t, toolErr.IsValidation())
	assert.Equal(t, "calculate_sum", toolErr.Tool)
}

func TestFunctionTool_ExecutionError(t *testing.T) {
	failing := NewFunctionTool("fail", "always fails",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(context.Context, map[string]any) (any, error) {
			return nil, errors.New("backend unavailable")
		},
	)

	_, err := failing.Call(context.Background(), map[string]any{})

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeExecution, toolErr.Code)
	assert.False(t, toolErr.IsValidation())
}

func TestFunctionTool_CustomToolErrorPassesThrough(t *testing.T) {
	custom := NewFunctionTool("custom", "returns custom error",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(context.Context, map[string]any) (any, error) {
			return nil, NewToolError("custom", "rate limited", "RATE_LIMITED")
		},
	)

	_, err := custom.Call(context.Background(), map[string]any{})

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "RATE_LIMITED", toolErr.Code)
}

type echoArgs struct {
	Text string `json:"text" description:"Text to echo"`
}

func TestNewFunctionToolFromStruct(t *testing.T) {
	echo := NewFunctionToolFromStruct("echo", "Echo the input", echoArgs{},
		func(_ context.Context, args map[string]any) (any, error) {
			return args["text"], nil
		},
	)

	props, ok := echo.Parameters()["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "text")

	result, err := echo.Call(context.Background(), map[string]any{"text": "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hi", result)
}

func TestRegistry(t *testing.T) {
	r, err := NewRegistry(sumTool())
	require.NoError(t, err)

	t.Run("get", func(t *testing.T) {
		got, ok := r.Get("calculate_sum")
		assert.True(t, ok)
		assert.Equal(t, "calculate_sum", got.Name())

		_, ok = r.Get("missing")
		assert.False(t, ok)
	})

	t.Run("duplicate rejected", func(t *testing.T) {
		err := r.Register(sumTool())
		assert.Error(t, err)
	})

	t.Run("definitions preserve order", func(t *testing.T) {
		echo := NewFunctionToolFromStruct("echo", "Echo", echoArgs{},
			func(_ context.Context, args map[string]any) (any, error) { return args["text"], nil })
		require.NoError(t, r.Register(echo))

		defs := r.Definitions()
		require.Len(t, defs, 2)
		assert.Equal(t, "calculate_sum", defs[0].Name)
		assert.Equal(t, "echo", defs[1].Name)
	})
}

func TestRegistry_Merge(t *testing.T) {
	a := MustRegistry(sumTool())
	b := MustRegistry(NewFunctionToolFromStruct("echo", "Echo", echoArgs{},
		func(_ context.Context, args map[string]any) (any, error) { return args["text"], nil }))

	require.NoError(t, a.Merge(b))
	assert.Len(t, a.List(), 2)

	// Second merge collides.
	assert.Error(t, a.Merge(b))
}
