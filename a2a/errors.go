package a2a

import (
	"fmt"
)

// JSON-RPC and protocol-specific error codes. The table is closed; unknown
// codes decode to a plain *Error without a matching sentinel.
const (
	CodeParseError        = -32700
	CodeInvalidRequest    = -32600
	CodeMethodNotFound    = -32601
	CodeInvalidParams     = -32602
	CodeInternalError     = -32603
	CodeTaskNotFound      = -32001
	CodeTaskNotCancelable = -32002
	CodePushUnsupported   = -32003
	CodeUnsupportedOp     = -32004
	CodeContentType       = -32005
	CodeInvalidResponse   = -32006
	CodeExtendedCard      = -32007
)

// Error is a protocol error with a fixed code. It serializes as the JSON-RPC
// error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("a2a: %s (code %d)", e.Message, e.Code)
}

// Is matches errors by code, so typed sentinels compare against decoded wire
// errors.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}

	return e.Code == other.Code
}

// defaultMessages maps each code to its canonical message.
var defaultMessages = map[int]string{
	CodeParseError:        "Invalid JSON payload",
	CodeInvalidRequest:    "Request payload validation error",
	CodeMethodNotFound:    "Method not found",
	CodeInvalidParams:     "Invalid parameters",
	CodeInternalError:     "Internal error",
	CodeTaskNotFound:      "Task not found",
	CodeTaskNotCancelable: "Task cannot be canceled",
	CodePushUnsupported:   "Push Notification is not supported",
	CodeUnsupportedOp:     "This operation is not supported",
	CodeContentType:       "Incompatible content types",
	CodeInvalidResponse:   "Invalid agent response",
	CodeExtendedCard:      "Authenticated Extended Card not configured",
}

// Typed sentinels for errors.Is comparisons.
var (
	ErrParse             = NewError(CodeParseError, "")
	ErrInvalidRequest    = NewError(CodeInvalidRequest, "")
	ErrMethodNotFound    = NewError(CodeMethodNotFound, "")
	ErrInvalidParams     = NewError(CodeInvalidParams, "")
	ErrInternal          = NewError(CodeInternalError, "")
	ErrTaskNotFound      = NewError(CodeTaskNotFound, "")
	ErrTaskNotCancelable = NewError(CodeTaskNotCancelable, "")
	ErrPushUnsupported   = NewError(CodePushUnsupported, "")
	ErrUnsupportedOp     = NewError(CodeUnsupportedOp, "")
	ErrContentType       = NewError(CodeContentType, "")
	ErrInvalidResponse   = NewError(CodeInvalidResponse, "")
	ErrExtendedCard      = NewError(CodeExtendedCard, "")
)

// NewError builds an error for a code. An empty message falls back to the
// code's canonical message.
func NewError(code int, message string) *Error {
	if message == "" {
		message = defaultMessages[code]
	}
	if message == "" {
		message = "Unknown error"
	}

	return &Error{Code: code, Message: message}
}

// Errorf builds an error with a formatted message.
func Errorf(code int, format string, args ...any) *Error {
	return NewError(code, fmt.Sprintf(format, args...))
}

// AsError coerces any error into a protocol error, wrapping unknown errors as
// internal.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}

	if pe, ok := err.(*Error); ok {
		return pe
	}

	return &Error{Code: CodeInternalError, Message: err.Error()}
}
