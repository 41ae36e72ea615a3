package models

import "context"

// ToolExecContext is passed to every tool executor alongside its
// arguments: (args, {db, assetStore, threadId, agentName, traceId}).
// AssetStore and DB are declared as `any` here to avoid an import cycle
// between pkg/models and internal/assets|internal/threads; callers type
// assert to the concrete interface they wired in.
type ToolExecContext struct {
	Context    context.Context
	DB         any
	AssetStore any
	ThreadID   string
	AgentName  string
	TraceID    string
}

// ToolDefinition is the shape advertised to an LLM provider for one
// resolvable tool: {type:"function", function:{name, description,
// parameters}}.
type ToolDefinition struct {
	Type     string             `json:"type"`
	Function ToolFunctionSchema `json:"function"`
}

// ToolFunctionSchema is the function-calling schema body of a
// ToolDefinition.
type ToolFunctionSchema struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Parameters  any    `json:"parameters,omitempty"`
}

// Executor is the uniform capability the core sees for any tool,
// regardless of whether it is native, OpenAPI-backed, or remote via a
// tool-protocol transport.
type Executor interface {
	Execute(args map[string]any, ectx ToolExecContext) (any, error)
}

// ExecutorFunc adapts a plain function to the Executor interface.
type ExecutorFunc func(args map[string]any, ectx ToolExecContext) (any, error)

// Execute implements Executor.
func (f ExecutorFunc) Execute(args map[string]any, ectx ToolExecContext) (any, error) {
	return f(args, ectx)
}

// Tool is the configuration for one resolvable tool key.
type Tool struct {
	Key          string
	Description  string
	InputSchema  any
	OutputSchema any
	Executor     Executor
}
