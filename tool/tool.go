// Package tool implements the function / tool calling subsystem that lets
// agents invoke structured capabilities (APIs, computations, side effects)
// with schema validated arguments, consistent error handling and rich
// metadata for LLM guidance.
package tool

import (
	"context"
	"fmt"

	"github.com/skein-ai/skein/internal/schema"
)

// Tool defines the interface for extending agent capabilities with external
// functions.
//
// Tools are registered in a Registry and dispatched by name when a model
// requests a call. Implementations should:
//   - Provide clear, descriptive names and descriptions
//   - Define a proper JSON schema for parameters
//   - Handle errors gracefully
//   - Be safe for concurrent use
type Tool interface {
	// Name returns the unique identifier for this tool.
	// Names should follow function naming conventions (snake_case recommended).
	Name() string

	// Description returns a human-readable description of what this tool does.
	// It is provided to the LLM to help it decide when and how to use the tool.
	Description() string

	// Parameters returns a JSON schema describing the expected input format.
	Parameters() map[string]any

	// Call executes the tool with arguments parsed from the model's JSON
	// payload and validated against the tool's schema.
	Call(ctx context.Context, args map[string]any) (any, error)
}

// ValidationError reports a schema/argument mismatch.
type ValidationError = schema.ValidationError

// Error codes attached to ToolError for uniform downstream handling.
const (
	// CodeValidation marks a schema / argument mismatch. Callers may retry
	// with corrected arguments.
	CodeValidation = "VALIDATION_ERROR"
	// CodeExecution marks a failure inside the tool implementation.
	CodeExecution = "EXECUTION_ERROR"
)

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`              // Name of the tool that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details any    `json:"details,omitempty"` // Additional error details
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}

	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// IsValidation reports whether the error is an argument validation failure.
func (e *ToolError) IsValidation() bool { return e.Code == CodeValidation }

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{Tool: tool, Message: message, Code: code}
}
