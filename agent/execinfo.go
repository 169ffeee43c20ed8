package agent

import (
	"context"

	"github.com/google/uuid"
)

// ExecutionInfo correlates nested executions (agent -> strategy -> node ->
// tool/LLM call) for event consumers. Each record has at most one parent, so
// the full set of records emitted during a run forms a tree.
type ExecutionInfo struct {
	// ID uniquely identifies this execution scope.
	ID string `json:"id"`
	// ParentID is the enclosing scope's ID, empty at the root.
	ParentID string `json:"parent_id,omitempty"`
}

// NewExecution creates a root execution record.
func NewExecution() ExecutionInfo {
	return ExecutionInfo{ID: uuid.NewString()}
}

// Child derives a nested execution record parented to e.
func (e ExecutionInfo) Child() ExecutionInfo {
	return ExecutionInfo{ID: uuid.NewString(), ParentID: e.ID}
}

type execCtxKey struct{}

// WithExecution attaches an execution record to the context so nested layers
// (environment, LLM sessions) can parent their own events correctly.
func WithExecution(ctx context.Context, info ExecutionInfo) context.Context {
	return context.WithValue(ctx, execCtxKey{}, info)
}

// ExecutionFrom returns the execution record attached to ctx, or a fresh root
// record when none is present.
func ExecutionFrom(ctx context.Context) ExecutionInfo {
	if info, ok := ctx.Value(execCtxKey{}).(ExecutionInfo); ok {
		return info
	}

	return NewExecution()
}
