package tooling

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/copilotzhq/copilotz/pkg/models"
)

// schemaCache compiles a tool's InputSchema once and reuses it across
// calls, since jsonschema.Compile is not free and a tool's schema never
// changes within a run.
type schemaCache struct {
	mu     sync.Mutex
	byTool map[string]*jsonschema.Schema
}

func newSchemaCache() *schemaCache {
	return &schemaCache{byTool: make(map[string]*jsonschema.Schema)}
}

func (c *schemaCache) compile(tool models.Tool) (*jsonschema.Schema, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s, ok := c.byTool[tool.Key]; ok {
		return s, nil
	}
	if tool.InputSchema == nil {
		return nil, nil
	}

	raw, err := json.Marshal(tool.InputSchema)
	if err != nil {
		return nil, fmt.Errorf("marshal input schema for %q: %w", tool.Key, err)
	}

	compiler := jsonschema.NewCompiler()
	url := "mem://" + tool.Key + ".json"
	if err := compiler.AddResource(url, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("add schema resource for %q: %w", tool.Key, err)
	}
	schema, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile input schema for %q: %w", tool.Key, err)
	}

	c.byTool[tool.Key] = schema
	return schema, nil
}

// Validate checks args against tool.InputSchema, returning a
// *ToolError of KindValidation on any violation. A tool with no
// InputSchema accepts any arguments.
func (c *schemaCache) Validate(tool models.Tool, args map[string]any) error {
	schema, err := c.compile(tool)
	if err != nil {
		return NewValidationError(tool.Key, err)
	}
	if schema == nil {
		return nil
	}

	// jsonschema validates decoded JSON values (map[string]interface{},
	// []interface{}, json.Number, ...), so round-trip args through JSON
	// to normalize Go-native types (e.g. int vs float64) the same way
	// the tool call arguments would have come off the wire.
	raw, err := json.Marshal(args)
	if err != nil {
		return NewValidationError(tool.Key, err)
	}
	var decoded any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&decoded); err != nil {
		return NewValidationError(tool.Key, err)
	}

	if err := schema.Validate(decoded); err != nil {
		return NewValidationError(tool.Key, err)
	}
	return nil
}
