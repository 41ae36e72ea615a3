// Package openapi lowers an OpenAPI 3.x document's operations into
// native.Dispatcher-independent tools: one models.Tool per operationId,
// keyed for the §4.5 resolution order's third tier. Grounded on the
// teacher's internal/skills/parser.go YAML-frontmatter pattern (a
// single yaml.Unmarshal handles both YAML specs and JSON specs, since
// JSON is valid YAML) and internal/tooling/native's schema-per-tool
// shape.
package openapi

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Document is the minimal OpenAPI 3.x surface Copilotz lowers into
// tools: servers, paths, and per-operation parameters/request bodies.
// Fields beyond this (components/$ref, security, callbacks) are out of
// scope — operations that need them should be registered as user tools
// instead.
type Document struct {
	OpenAPI string              `yaml:"openapi"`
	Info    Info                `yaml:"info"`
	Servers []Server            `yaml:"servers"`
	Paths   map[string]PathItem `yaml:"paths"`
}

// Info carries the document title/version, surfaced only for
// diagnostics.
type Info struct {
	Title   string `yaml:"title"`
	Version string `yaml:"version"`
}

// Server is one candidate base URL.
type Server struct {
	URL string `yaml:"url"`
}

// PathItem holds the operations declared for one path template (e.g.
// "/users/{id}").
type PathItem struct {
	Get    *Operation `yaml:"get"`
	Post   *Operation `yaml:"post"`
	Put    *Operation `yaml:"put"`
	Patch  *Operation `yaml:"patch"`
	Delete *Operation `yaml:"delete"`
}

// operations returns the path's declared {method, operation} pairs in
// a stable order.
func (p PathItem) operations() []struct {
	Method string
	Op     *Operation
} {
	return []struct {
		Method string
		Op     *Operation
	}{
		{"GET", p.Get},
		{"POST", p.Post},
		{"PUT", p.Put},
		{"PATCH", p.Patch},
		{"DELETE", p.Delete},
	}
}

// Operation is one OpenAPI operation: the unit a tool is built from.
type Operation struct {
	OperationID string      `yaml:"operationId"`
	Summary     string      `yaml:"summary"`
	Description string      `yaml:"description"`
	Parameters  []Parameter `yaml:"parameters"`
	RequestBody *RequestBody `yaml:"requestBody"`
}

// Parameter is one path/query/header parameter.
type Parameter struct {
	Name        string `yaml:"name"`
	In          string `yaml:"in"` // path | query | header
	Required    bool   `yaml:"required"`
	Description string `yaml:"description"`
}

// RequestBody describes whether an operation expects a body; the
// specific media-type schema is not modeled — the lowered tool accepts
// an opaque `body` value and forwards it as JSON.
type RequestBody struct {
	Required    bool   `yaml:"required"`
	Description string `yaml:"description"`
}

// Parse decodes an OpenAPI document from either YAML or JSON bytes —
// gopkg.in/yaml.v3 accepts both, since JSON is a YAML subset.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("openapi: parse document: %w", err)
	}
	if len(doc.Paths) == 0 {
		return nil, fmt.Errorf("openapi: document declares no paths")
	}
	return &doc, nil
}

// BaseURL returns the document's first declared server URL, or "" if
// none is declared.
func (d *Document) BaseURL() string {
	if len(d.Servers) == 0 {
		return ""
	}
	return d.Servers[0].URL
}
