package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 45 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxPayload = 1 << 20
)

// transport owns one websocket connection to a remote tool-protocol
// server and correlates JSON-RPC requests with their responses. The
// read/write pump split and ping/pong deadline handling mirror the
// teacher's internal/gateway/ws_control_plane.go wsSession, adapted
// from a server accepting connections to a client dialing out.
type transport struct {
	cfg  ServerConfig
	conn *websocket.Conn

	mu      sync.Mutex
	pending map[string]chan *jsonrpcResponse
	send    chan []byte

	closeOnce sync.Once
	closed    chan struct{}
}

func newTransport(cfg ServerConfig) *transport {
	return &transport{
		cfg:     cfg,
		pending: make(map[string]chan *jsonrpcResponse),
		send:    make(chan []byte, 16),
		closed:  make(chan struct{}),
	}
}

func (t *transport) connect(ctx context.Context) error {
	header := http.Header{}
	for k, v := range t.cfg.Headers {
		header.Set(k, v)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, t.cfg.URL, header)
	if err != nil {
		return fmt.Errorf("mcp: dial %s: %w", t.cfg.Name, err)
	}
	t.conn = conn

	go t.readLoop()
	go t.writeLoop()
	go t.pingLoop()

	return nil
}

func (t *transport) close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.closed)
		err = t.conn.Close()
	})
	return err
}

func (t *transport) readLoop() {
	t.conn.SetReadLimit(maxPayload)
	_ = t.conn.SetReadDeadline(time.Now().Add(pongWait))
	t.conn.SetPongHandler(func(string) error {
		return t.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := t.conn.ReadMessage()
		if err != nil {
			t.failPending(err)
			return
		}

		var resp jsonrpcResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			continue
		}
		if resp.ID == "" {
			continue // notification; Copilotz's tool resolution has no use for server-pushed events
		}

		t.mu.Lock()
		ch, ok := t.pending[resp.ID]
		if ok {
			delete(t.pending, resp.ID)
		}
		t.mu.Unlock()
		if ok {
			ch <- &resp
		}
	}
}

func (t *transport) writeLoop() {
	for {
		select {
		case <-t.closed:
			return
		case msg := <-t.send:
			_ = t.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := t.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}
}

func (t *transport) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-t.closed:
			return
		case <-ticker.C:
			_ = t.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := t.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (t *transport) failPending(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, ch := range t.pending {
		ch <- &jsonrpcResponse{ID: id, Error: &jsonrpcError{Code: -1, Message: err.Error()}}
	}
	t.pending = make(map[string]chan *jsonrpcResponse)
}

// call sends a JSON-RPC request and blocks for its matching response.
func (t *transport) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	id := uuid.NewString()

	var raw json.RawMessage
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("mcp: marshal params: %w", err)
		}
		raw = b
	}

	req := jsonrpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: raw}
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("mcp: marshal request: %w", err)
	}

	ch := make(chan *jsonrpcResponse, 1)
	t.mu.Lock()
	t.pending[id] = ch
	t.mu.Unlock()

	select {
	case t.send <- data:
	case <-ctx.Done():
		t.mu.Lock()
		delete(t.pending, id)
		t.mu.Unlock()
		return nil, ctx.Err()
	case <-t.closed:
		return nil, fmt.Errorf("mcp: transport to %s closed", t.cfg.Name)
	}

	select {
	case resp := <-ch:
		if resp.Error != nil {
			return nil, fmt.Errorf("mcp: %s: %w", method, resp.Error)
		}
		return resp.Result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// notify sends a JSON-RPC notification; no response is expected.
func (t *transport) notify(method string, params any) error {
	var raw json.RawMessage
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return err
		}
		raw = b
	}
	data, err := json.Marshal(jsonrpcNotification{JSONRPC: "2.0", Method: method, Params: raw})
	if err != nil {
		return err
	}
	select {
	case t.send <- data:
		return nil
	case <-t.closed:
		return fmt.Errorf("mcp: transport to %s closed", t.cfg.Name)
	}
}
