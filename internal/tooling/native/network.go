package native

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/copilotzhq/copilotz/pkg/models"
)

const httpToolTimeout = 30 * time.Second

// networkTools returns http_request and fetch_text. Both must be
// deterministic only in how they report success/failure (§4.5); the
// core never retries them.
func networkTools() []models.Tool {
	return []models.Tool{
		httpRequestTool(),
		fetchTextTool(),
	}
}

func httpRequestTool() models.Tool {
	return models.Tool{
		Key:         "http_request",
		Description: "issues an HTTP request and returns the status code, headers, and body",
		InputSchema: objectSchema([]string{"url"}, map[string]any{
			"url":    stringProp("absolute URL to request"),
			"method": stringProp("HTTP method, defaults to GET"),
			"body":   stringProp("optional request body"),
			"headers": map[string]any{
				"type":                 "object",
				"description":          "optional request headers",
				"additionalProperties": map[string]any{"type": "string"},
			},
		}),
		Executor: models.ExecutorFunc(func(args map[string]any, ectx models.ToolExecContext) (any, error) {
			url, _ := args["url"].(string)
			if url == "" {
				return nil, fmt.Errorf("url is required")
			}
			method, _ := args["method"].(string)
			if method == "" {
				method = http.MethodGet
			}
			body, _ := args["body"].(string)

			req, err := http.NewRequestWithContext(ectx.Context, method, url, strings.NewReader(body))
			if err != nil {
				return nil, fmt.Errorf("build request: %w", err)
			}
			if headers, ok := args["headers"].(map[string]any); ok {
				for k, v := range headers {
					if s, ok := v.(string); ok {
						req.Header.Set(k, s)
					}
				}
			}

			client := &http.Client{Timeout: httpToolTimeout}
			resp, err := client.Do(req)
			if err != nil {
				return nil, fmt.Errorf("%s %s: %w", method, url, err)
			}
			defer resp.Body.Close()

			const maxBody = 1 << 20
			data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
			if err != nil {
				return nil, fmt.Errorf("read response body: %w", err)
			}

			headers := map[string]string{}
			for k := range resp.Header {
				headers[k] = resp.Header.Get(k)
			}
			return map[string]any{
				"status":  resp.StatusCode,
				"headers": headers,
				"body":    string(data),
			}, nil
		}),
	}
}

func fetchTextTool() models.Tool {
	return models.Tool{
		Key:         "fetch_text",
		Description: "fetches a URL with GET and returns only its body as text",
		InputSchema: objectSchema([]string{"url"}, map[string]any{
			"url": stringProp("absolute URL to fetch"),
		}),
		Executor: models.ExecutorFunc(func(args map[string]any, ectx models.ToolExecContext) (any, error) {
			url, _ := args["url"].(string)
			if url == "" {
				return nil, fmt.Errorf("url is required")
			}

			req, err := http.NewRequestWithContext(ectx.Context, http.MethodGet, url, nil)
			if err != nil {
				return nil, fmt.Errorf("build request: %w", err)
			}

			client := &http.Client{Timeout: httpToolTimeout}
			resp, err := client.Do(req)
			if err != nil {
				return nil, fmt.Errorf("GET %s: %w", url, err)
			}
			defer resp.Body.Close()

			if resp.StatusCode >= 400 {
				return nil, fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
			}

			const maxBody = 1 << 20
			data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
			if err != nil {
				return nil, fmt.Errorf("read response body: %w", err)
			}
			return map[string]any{"url": url, "text": string(data)}, nil
		}),
	}
}
