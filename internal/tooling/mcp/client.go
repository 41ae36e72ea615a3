package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Client connects to one remote tool-protocol server and caches its
// advertised tools.
type Client struct {
	cfg       ServerConfig
	transport *transport

	mu    sync.RWMutex
	tools []*Tool
	info  ServerInfo
}

// NewClient builds a Client for cfg; call Connect before use.
func NewClient(cfg ServerConfig) *Client {
	return &Client{cfg: cfg, transport: newTransport(cfg)}
}

// Connect dials the server, performs the initialize handshake, and
// refreshes the tool list.
func (c *Client) Connect(ctx context.Context) error {
	if err := c.transport.connect(ctx); err != nil {
		return err
	}

	result, err := c.transport.call(ctx, "initialize", map[string]any{
		"protocolVersion": "2024-11-05",
		"capabilities":    map[string]any{},
		"clientInfo":      map[string]any{"name": "copilotz", "version": "1.0.0"},
	})
	if err != nil {
		_ = c.transport.close()
		return fmt.Errorf("mcp: initialize %s: %w", c.cfg.Name, err)
	}

	var init InitializeResult
	if err := json.Unmarshal(result, &init); err != nil {
		_ = c.transport.close()
		return fmt.Errorf("mcp: parse initialize result from %s: %w", c.cfg.Name, err)
	}
	c.mu.Lock()
	c.info = init.ServerInfo
	c.mu.Unlock()

	if err := c.transport.notify("notifications/initialized", nil); err != nil {
		return fmt.Errorf("mcp: send initialized notification to %s: %w", c.cfg.Name, err)
	}

	return c.RefreshTools(ctx)
}

// Close disconnects from the server.
func (c *Client) Close() error {
	return c.transport.close()
}

// ServerInfo returns the connected server's identity.
func (c *Client) ServerInfo() ServerInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.info
}

// RefreshTools re-fetches the server's tool list.
func (c *Client) RefreshTools(ctx context.Context) error {
	result, err := c.transport.call(ctx, "tools/list", nil)
	if err != nil {
		return fmt.Errorf("mcp: tools/list on %s: %w", c.cfg.Name, err)
	}
	var resp ListToolsResult
	if err := json.Unmarshal(result, &resp); err != nil {
		return fmt.Errorf("mcp: parse tools/list result from %s: %w", c.cfg.Name, err)
	}
	c.mu.Lock()
	c.tools = resp.Tools
	c.mu.Unlock()
	return nil
}

// Tools returns the cached tool list.
func (c *Client) Tools() []*Tool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tools
}

// CallTool invokes name on the server with arguments.
func (c *Client) CallTool(ctx context.Context, name string, arguments map[string]any) (*ToolCallResult, error) {
	params := CallToolParams{Name: name}
	if arguments != nil {
		argsJSON, err := json.Marshal(arguments)
		if err != nil {
			return nil, fmt.Errorf("mcp: marshal arguments: %w", err)
		}
		params.Arguments = argsJSON
	}

	result, err := c.transport.call(ctx, "tools/call", params)
	if err != nil {
		return nil, err
	}
	var out ToolCallResult
	if err := json.Unmarshal(result, &out); err != nil {
		return nil, fmt.Errorf("mcp: parse tools/call result: %w", err)
	}
	return &out, nil
}
