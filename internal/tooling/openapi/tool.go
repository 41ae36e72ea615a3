package openapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/copilotzhq/copilotz/internal/tooling"
	"github.com/copilotzhq/copilotz/pkg/models"
)

// defaultTimeout bounds every OpenAPI-derived HTTP call, matching
// internal/tooling/native's http_request tool.
const defaultTimeout = 30 * time.Second

// maxResponseBytes caps how much of a response body is read back into
// the tool result, same bound as native's http_request.
const maxResponseBytes = 1 << 20

// Register lowers every operation in doc into a models.Tool keyed by
// operationId and adds it to reg as tooling.SourceOpenAPI (§4.5's
// third resolution tier). baseURL overrides doc.BaseURL() when set —
// useful when the document's declared server doesn't match where the
// API is actually reachable from this process. client defaults to
// an http.Client with defaultTimeout when nil.
func Register(reg *tooling.Registry, doc *Document, baseURL string, client *http.Client) error {
	if baseURL == "" {
		baseURL = doc.BaseURL()
	}
	if baseURL == "" {
		return fmt.Errorf("openapi: no base URL: document declares no servers and none was supplied")
	}
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}

	for path, item := range doc.Paths {
		for _, entry := range item.operations() {
			if entry.Op == nil {
				continue
			}
			if entry.Op.OperationID == "" {
				continue
			}
			tool, err := buildTool(baseURL, path, entry.Method, *entry.Op, client)
			if err != nil {
				return fmt.Errorf("openapi: build tool for %s: %w", entry.Op.OperationID, err)
			}
			reg.Register(tool, tooling.SourceOpenAPI)
		}
	}
	return nil
}

func buildTool(baseURL, path, method string, op Operation, client *http.Client) (models.Tool, error) {
	schema, err := callArgsSchema(op)
	if err != nil {
		return models.Tool{}, err
	}

	description := op.Description
	if description == "" {
		description = op.Summary
	}
	if description == "" {
		description = fmt.Sprintf("%s %s", method, path)
	}

	return models.Tool{
		Key:         op.OperationID,
		Description: description,
		InputSchema: schema,
		Executor:    models.ExecutorFunc(callExecutor(baseURL, path, method, client)),
	}, nil
}

// callExecutor returns a models.Executor that substitutes pathParams
// into path, appends queryParams, sets headers, sends body as JSON
// when present, and returns the decoded response (JSON object/array
// when the content-type says so, else raw text).
func callExecutor(baseURL, path, method string, client *http.Client) func(map[string]any, models.ToolExecContext) (any, error) {
	return func(args map[string]any, ectx models.ToolExecContext) (any, error) {
		url, err := resolveURL(baseURL, path, args)
		if err != nil {
			return nil, err
		}

		var bodyReader io.Reader
		if body, ok := args["body"]; ok && body != nil {
			b, err := json.Marshal(body)
			if err != nil {
				return nil, fmt.Errorf("encode request body: %w", err)
			}
			bodyReader = bytes.NewReader(b)
		}

		ctx := ectx.Context
		if ctx == nil {
			ctx = context.Background()
		}
		req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		if bodyReader != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if headers, ok := args["headers"].(map[string]any); ok {
			for k, v := range headers {
				if s, ok := v.(string); ok {
					req.Header.Set(k, s)
				}
			}
		}

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}

		result := map[string]any{"status": resp.StatusCode}
		if strings.Contains(resp.Header.Get("Content-Type"), "json") {
			var decoded any
			if err := json.Unmarshal(data, &decoded); err == nil {
				result["body"] = decoded
				return result, nil
			}
		}
		result["body"] = string(data)
		return result, nil
	}
}

// resolveURL substitutes {name} path-parameter placeholders from
// args["pathParams"] and appends args["queryParams"] as a query
// string.
func resolveURL(baseURL, path string, args map[string]any) (string, error) {
	if pathParams, ok := args["pathParams"].(map[string]any); ok {
		for name, value := range pathParams {
			placeholder := "{" + name + "}"
			path = strings.ReplaceAll(path, placeholder, fmt.Sprintf("%v", value))
		}
	}
	if strings.Contains(path, "{") {
		return "", fmt.Errorf("unresolved path parameter in %q", path)
	}

	full := strings.TrimRight(baseURL, "/") + path

	queryParams, _ := args["queryParams"].(map[string]any)
	if len(queryParams) == 0 {
		return full, nil
	}
	q := make([]string, 0, len(queryParams))
	for name, value := range queryParams {
		q = append(q, fmt.Sprintf("%s=%v", name, value))
	}
	return full + "?" + strings.Join(q, "&"), nil
}
