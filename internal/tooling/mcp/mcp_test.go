package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/copilotzhq/copilotz/internal/tooling"
	"github.com/copilotzhq/copilotz/pkg/models"
)

// fakeServer is a minimal MCP server: it answers initialize,
// tools/list (one "echo" tool), and tools/call by echoing back the
// "text" argument it was given.
func fakeServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var req jsonrpcRequest
			require.NoError(t, json.Unmarshal(data, &req))

			var result any
			switch req.Method {
			case "initialize":
				result = InitializeResult{
					ProtocolVersion: "2024-11-05",
					ServerInfo:      ServerInfo{Name: "fake", Version: "0.1"},
				}
			case "tools/list":
				result = ListToolsResult{Tools: []*Tool{
					{Name: "echo", Description: "echoes text back", InputSchema: json.RawMessage(`{"type":"object"}`)},
				}}
			case "tools/call":
				var params CallToolParams
				_ = json.Unmarshal(req.Params, &params)
				var args map[string]any
				_ = json.Unmarshal(params.Arguments, &args)
				result = ToolCallResult{Content: []ToolResultContent{
					{Type: "text", Text: "echo: " + args["text"].(string)},
				}}
			default:
				continue // notifications/initialized has no response
			}

			resultJSON, _ := json.Marshal(result)
			resp := jsonrpcResponse{JSONRPC: "2.0", ID: req.ID, Result: resultJSON}
			respJSON, _ := json.Marshal(resp)
			require.NoError(t, conn.WriteMessage(websocket.TextMessage, respJSON))
		}
	}))
}

func wsURL(httpURL string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http")
}

func TestClient_ConnectListsTools(t *testing.T) {
	srv := fakeServer(t)
	defer srv.Close()

	client := NewClient(ServerConfig{Name: "fake", URL: wsURL(srv.URL)})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, client.Connect(ctx))
	defer client.Close()

	require.Equal(t, "fake", client.ServerInfo().Name)
	tools := client.Tools()
	require.Len(t, tools, 1)
	require.Equal(t, "echo", tools[0].Name)
}

func TestClient_CallToolReturnsTextContent(t *testing.T) {
	srv := fakeServer(t)
	defer srv.Close()

	client := NewClient(ServerConfig{Name: "fake", URL: wsURL(srv.URL)})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, client.Connect(ctx))
	defer client.Close()

	result, err := client.CallTool(ctx, "echo", map[string]any{"text": "hi"})
	require.NoError(t, err)
	require.False(t, result.IsError)
	require.Equal(t, "echo: hi", result.Content[0].Text)
}

func TestManager_RegisterKeysToolsByServerAndName(t *testing.T) {
	srv := fakeServer(t)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	manager, errs := Connect(ctx, []ServerConfig{{Name: "fake", URL: wsURL(srv.URL)}})
	require.Empty(t, errs)
	defer manager.Close()

	reg := tooling.NewRegistry()
	manager.Register(reg)

	tool, ok := reg.Get("fake_echo")
	require.True(t, ok)
	require.Equal(t, "echoes text back", tool.Description)

	out, err := tool.Executor.Execute(map[string]any{"text": "world"}, models.ToolExecContext{Context: ctx})
	require.NoError(t, err)
	require.Equal(t, "echo: world", out)
}
