// Package tooling resolves tool names to executable capabilities
// (native, OpenAPI-derived, or remote tool-protocol), validates their
// arguments, and executes them — modeled on the teacher's
// agent.ToolRegistry/agent.Executor and agent/errors.go.
package tooling

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a tool-resolution or execution failure into one
// of the kinds spec.md §7 lists for tool-side errors — all "soft":
// delivered as a tool-result message rather than failing the event.
type ErrorKind string

const (
	KindNotFound   ErrorKind = "TOOL_NOT_FOUND"
	KindValidation ErrorKind = "VALIDATION_ERROR"
	KindExecution  ErrorKind = "EXECUTION_ERROR"
)

// ToolError is the structured error a TOOL_CALL diagnostic is built
// from, modeled on agent.ToolError.
type ToolError struct {
	Kind      ErrorKind
	ToolName  string
	Message   string
	Retryable bool
	Cause     error
}

func (e *ToolError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ToolError) Unwrap() error { return e.Cause }

// NewNotFoundError builds a KindNotFound ToolError.
func NewNotFoundError(toolName, message string) *ToolError {
	return &ToolError{Kind: KindNotFound, ToolName: toolName, Message: message}
}

// NewValidationError builds a KindValidation ToolError.
func NewValidationError(toolName string, cause error) *ToolError {
	return &ToolError{Kind: KindValidation, ToolName: toolName, Message: "argument validation failed", Cause: cause}
}

// NewExecutionError builds a KindExecution ToolError, classifying
// whether the failure looks retryable the way classifyToolError does
// in the teacher.
func NewExecutionError(toolName string, cause error) *ToolError {
	return &ToolError{
		Kind:      KindExecution,
		ToolName:  toolName,
		Message:   "tool execution failed",
		Cause:     cause,
		Retryable: isRetryable(cause),
	}
}

// isRetryable makes a best-effort guess from the error text, mirroring
// the teacher's string-pattern classifier. The result is only recorded
// on the ToolError; Executor.Run never retries a tool.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{"timeout", "deadline exceeded", "connection refused", "rate limit", "temporarily unavailable"} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// AsToolError unwraps err into a *ToolError, if any wraps it in the
// chain.
func AsToolError(err error) (*ToolError, bool) {
	var te *ToolError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}
