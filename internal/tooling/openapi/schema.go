package openapi

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
)

// callEnvelope is the fixed Go shape every lowered operation's
// arguments are reflected from. OpenAPI operations are arbitrary at
// runtime, so unlike internal/tooling/native's static per-tool
// schemas, there is no per-operation Go type to reflect; instead every
// operation shares this envelope and callArgsSchema annotates its
// pathParams/queryParams/body descriptions per operation.
type callEnvelope struct {
	PathParams  map[string]any `json:"pathParams,omitempty" jsonschema:"description=path parameters for this operation"`
	QueryParams map[string]any `json:"queryParams,omitempty" jsonschema:"description=query string parameters for this operation"`
	Headers     map[string]any `json:"headers,omitempty" jsonschema:"description=extra request headers"`
	Body        any            `json:"body,omitempty" jsonschema:"description=request body payload, if this operation accepts one"`
}

// envelopeSchema reflects callEnvelope into a flat object schema, the
// same generate-then-flatten approach the teacher's
// functiontool/schema.go generateSchema uses: reflect, marshal to a
// map, strip the reference/meta fields an LLM tool schema doesn't need.
func envelopeSchema() (map[string]any, error) {
	reflector := &jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		DoNotReference:             true,
	}
	schema := reflector.Reflect(&callEnvelope{})

	data, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("openapi: marshal envelope schema: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("openapi: unmarshal envelope schema: %w", err)
	}
	delete(out, "$schema")
	delete(out, "$id")
	return out, nil
}

// callArgsSchema builds the tool-facing InputSchema for op: the shared
// envelope shape, with pathParams/queryParams/body descriptions
// rewritten to name op's actual declared parameters, since the
// envelope's map[string]any properties carry no per-operation keys of
// their own.
func callArgsSchema(op Operation) (map[string]any, error) {
	schema, err := envelopeSchema()
	if err != nil {
		return nil, err
	}

	properties, _ := schema["properties"].(map[string]any)
	if properties == nil {
		return schema, nil
	}

	var pathNames, queryNames, headerNames []string
	for _, p := range op.Parameters {
		switch strings.ToLower(p.In) {
		case "path":
			pathNames = append(pathNames, describeParam(p))
		case "query":
			queryNames = append(queryNames, describeParam(p))
		case "header":
			headerNames = append(headerNames, describeParam(p))
		}
	}

	annotate(properties, "pathParams", pathNames)
	annotate(properties, "queryParams", queryNames)
	annotate(properties, "headers", headerNames)

	if op.RequestBody != nil {
		if body, ok := properties["body"].(map[string]any); ok {
			desc := op.RequestBody.Description
			if desc == "" {
				desc = "request body payload"
			}
			if op.RequestBody.Required {
				desc += " (required)"
			}
			body["description"] = desc
		}
	}

	return schema, nil
}

func describeParam(p Parameter) string {
	desc := p.Name
	if p.Required {
		desc += " (required)"
	}
	if p.Description != "" {
		desc += ": " + p.Description
	}
	return desc
}

func annotate(properties map[string]any, key string, names []string) {
	if len(names) == 0 {
		return
	}
	prop, ok := properties[key].(map[string]any)
	if !ok {
		return
	}
	prop["description"] = fmt.Sprintf("%s — fields: %s", prop["description"], strings.Join(names, "; "))
}
