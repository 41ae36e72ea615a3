package tooling

import (
	"encoding/json"
	"fmt"

	"github.com/copilotzhq/copilotz/pkg/models"
)

// Executor resolves a tool call against a Registry, validates its
// arguments, and runs it — the single entry point a TOOL_CALL processor
// calls, modeled on the teacher's agent.Executor.Run.
type Executor struct {
	registry *Registry
	schemas  *schemaCache
}

// NewExecutor builds an Executor over registry.
func NewExecutor(registry *Registry) *Executor {
	return &Executor{registry: registry, schemas: newSchemaCache()}
}

// Run resolves name, validates args against its schema, and executes
// it. The returned error is always a *ToolError when non-nil, so a
// caller can type-assert to decide how to render a tool-result message.
func (e *Executor) Run(name string, args map[string]any, ectx models.ToolExecContext) (any, error) {
	if len(name) > MaxToolNameLength {
		return nil, NewValidationError(name, fmt.Errorf("tool name exceeds %d characters", MaxToolNameLength))
	}
	if raw, err := json.Marshal(args); err == nil && len(raw) > MaxToolParamsSize {
		return nil, NewValidationError(name, fmt.Errorf("tool arguments exceed %d bytes", MaxToolParamsSize))
	}

	tool, ok := e.registry.Get(name)
	if !ok {
		return nil, NewNotFoundError(name, e.registry.NotFoundDiagnostic(name))
	}

	if err := e.schemas.Validate(tool, args); err != nil {
		return nil, err
	}

	if tool.Executor == nil {
		return nil, NewExecutionError(name, fmt.Errorf("tool %q has no executor wired", name))
	}

	result, err := tool.Executor.Execute(args, ectx)
	if err != nil {
		if te, ok := AsToolError(err); ok {
			return nil, te
		}
		return nil, NewExecutionError(name, err)
	}
	return result, nil
}
