package anthropic

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copilotzhq/copilotz/internal/llm"
	"github.com/copilotzhq/copilotz/pkg/models"
)

// sseEvents is the fixture shape grounded on the teacher's
// TestStreamingResponse: a message_start/content_block_delta/
// message_stop sequence over text/event-stream, flushed line by line.
func sseEvents(events []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher := w.(http.Flusher)
		for _, e := range events {
			fmt.Fprintln(w, e)
			flusher.Flush()
		}
	}
}

func TestStream_EmitsTextDeltasThenDone(t *testing.T) {
	server := httptest.NewServer(sseEvents([]string{
		`event: message_start`,
		`data: {"type":"message_start","message":{"id":"msg_1","type":"message","role":"assistant"}}`,
		``,
		`event: content_block_start`,
		`data: {"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`,
		``,
		`event: content_block_delta`,
		`data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hello"}}`,
		``,
		`event: content_block_delta`,
		`data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":" world"}}`,
		``,
		`event: content_block_stop`,
		`data: {"type":"content_block_stop","index":0}`,
		``,
		`event: message_delta`,
		`data: {"type":"message_delta","delta":{"stop_reason":"end_turn"}}`,
		``,
		`event: message_stop`,
		`data: {"type":"message_stop"}`,
		``,
	}))
	defer server.Close()

	adapter := New(Config{APIKey: "test-key", BaseURL: server.URL})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	chunks, errs := adapter.Stream(ctx, llm.Request{
		Model: "claude-3-opus",
		Messages: []models.ChatTurn{
			{Role: "system", Content: "be terse"},
			{Role: "user", Content: "hi"},
		},
	})

	var text strings.Builder
	var sawDone bool
	for c := range chunks {
		text.WriteString(c.Text)
		if c.Done {
			sawDone = true
		}
	}
	require.NoError(t, <-errs)
	assert.True(t, sawDone)
	assert.Equal(t, "Hello world", text.String())
}

func TestStream_ServerErrorReportsProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	adapter := New(Config{APIKey: "test-key", BaseURL: server.URL})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	chunks, errs := adapter.Stream(ctx, llm.Request{
		Model:    "claude-3-opus",
		Messages: []models.ChatTurn{{Role: "user", Content: "hi"}},
	})

	for range chunks {
	}
	err := <-errs
	require.Error(t, err)
	assert.ErrorIs(t, err, llm.ErrProvider)
}

func TestMaxTokensOrDefault(t *testing.T) {
	assert.Equal(t, 4096, maxTokensOrDefault(0))
	assert.Equal(t, 4096, maxTokensOrDefault(-5))
	assert.Equal(t, 200, maxTokensOrDefault(200))
}
