// Package mcp resolves tools advertised by remote tool-protocol
// (MCP-style) servers over a websocket transport: §4.5's fourth and
// last resolution tier, keyed `<server-name>_<tool-name>`. Protocol
// shape is grounded on the teacher's internal/mcp package (JSON-RPC
// envelopes, initialize handshake, tools/list + tools/call), trimmed
// to the tools-only surface Copilotz needs — resources, prompts, and
// server-initiated sampling have no SPEC_FULL component to serve.
package mcp

import "encoding/json"

// ServerConfig names one remote tool-protocol server to connect to.
type ServerConfig struct {
	Name    string
	URL     string
	Headers map[string]string
}

// Tool describes one tool advertised by a remote server's tools/list.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// CallToolParams is the tools/call request body.
type CallToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// ToolCallResult is the tools/call response body.
type ToolCallResult struct {
	Content []ToolResultContent `json:"content"`
	IsError bool                `json:"isError,omitempty"`
}

// ToolResultContent is one piece of a tool call's result.
type ToolResultContent struct {
	Type string `json:"type"` // text | image | resource
	Text string `json:"text,omitempty"`
}

// ListToolsResult is the tools/list response body.
type ListToolsResult struct {
	Tools []*Tool `json:"tools"`
}

// ServerInfo identifies the remote server, returned from initialize.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// InitializeResult is the initialize response body.
type InitializeResult struct {
	ProtocolVersion string     `json:"protocolVersion"`
	ServerInfo      ServerInfo `json:"serverInfo"`
}

// jsonrpcRequest is a JSON-RPC 2.0 request frame.
type jsonrpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// jsonrpcResponse is a JSON-RPC 2.0 response frame.
type jsonrpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *jsonrpcError   `json:"error,omitempty"`
}

// jsonrpcNotification is a JSON-RPC 2.0 notification frame (no id, no
// response expected).
type jsonrpcNotification struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type jsonrpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *jsonrpcError) Error() string {
	return e.Message
}
