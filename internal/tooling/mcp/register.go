package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/copilotzhq/copilotz/internal/tooling"
	"github.com/copilotzhq/copilotz/pkg/models"
)

// Manager owns one Client per configured remote server and is the
// thing callers keep alive for the lifetime of the process (so
// connections can be closed on shutdown).
type Manager struct {
	clients map[string]*Client
}

// Connect dials every server in cfgs and returns a Manager holding the
// live clients. A server that fails to connect is skipped with its
// error collected rather than aborting the others — grounded on the
// teacher's Manager.Start, which continues past a single server's
// connect failure.
func Connect(ctx context.Context, cfgs []ServerConfig) (*Manager, []error) {
	m := &Manager{clients: make(map[string]*Client, len(cfgs))}
	var errs []error
	for _, cfg := range cfgs {
		client := NewClient(cfg)
		if err := client.Connect(ctx); err != nil {
			errs = append(errs, fmt.Errorf("mcp: %s: %w", cfg.Name, err))
			continue
		}
		m.clients[cfg.Name] = client
	}
	return m, errs
}

// Close disconnects every connected server.
func (m *Manager) Close() {
	for _, c := range m.clients {
		_ = c.Close()
	}
}

// Register adds one models.Tool per tool advertised by every connected
// server to reg, keyed `<server-name>_<tool-name>` per §4.5's fourth
// resolution tier, at tooling.SourceRemote.
func (m *Manager) Register(reg *tooling.Registry) {
	for serverName, client := range m.clients {
		for _, t := range client.Tools() {
			reg.Register(buildTool(serverName, client, t), tooling.SourceRemote)
		}
	}
}

func buildTool(serverName string, client *Client, t *Tool) models.Tool {
	key := serverName + "_" + t.Name

	var schema any
	if len(t.InputSchema) > 0 {
		var parsed map[string]any
		if err := json.Unmarshal(t.InputSchema, &parsed); err == nil {
			schema = parsed
		}
	}

	return models.Tool{
		Key:         key,
		Description: t.Description,
		InputSchema: schema,
		Executor:    models.ExecutorFunc(callExecutor(client, t.Name)),
	}
}

func callExecutor(client *Client, toolName string) func(map[string]any, models.ToolExecContext) (any, error) {
	return func(args map[string]any, ectx models.ToolExecContext) (any, error) {
		ctx := ectx.Context
		if ctx == nil {
			ctx = context.Background()
		}

		result, err := client.CallTool(ctx, toolName, args)
		if err != nil {
			return nil, err
		}
		if result.IsError {
			return nil, fmt.Errorf("mcp: tool %q reported an error: %s", toolName, flattenText(result))
		}
		return flattenText(result), nil
	}
}

// flattenText joins a ToolCallResult's text content blocks, matching
// how internal/llm's tool-call protocol expects a plain string result
// body rather than MCP's structured content array.
func flattenText(result *ToolCallResult) string {
	var parts []string
	for _, c := range result.Content {
		if c.Type == "text" && c.Text != "" {
			parts = append(parts, c.Text)
		}
	}
	return strings.Join(parts, "\n")
}
