// Package llm defines the provider-facing interface the LLM_CALL
// processor drives, plus the tool-call text protocol that rides inside
// provider responses. Wire-format specifics (SSE vs line-delimited
// JSON) belong to each provider adapter in llm/anthropic and
// llm/openai; the core only sees decoded text chunks and completion.
package llm

import (
	"context"
	"errors"

	"github.com/copilotzhq/copilotz/pkg/models"
)

// ErrProvider wraps any error originating in a provider adapter so
// callers can attach the ProviderError kind (§7) without inspecting
// adapter-specific error types.
var ErrProvider = errors.New("llm: provider error")

// Chunk is one piece of a streamed completion.
type Chunk struct {
	Text string
	Done bool
}

// Request is a prepared provider request, translated from
// models.LLMCallPayload.
type Request struct {
	Model       string
	Messages    []models.ChatTurn
	Tools       []models.ToolDefinition
	Temperature float64
	TopP        float64
	MaxTokens   int
}

// Provider is the uniform streaming interface every adapter
// implements. Next-style chunk iteration is modeled as a channel rather
// than a Next() method, which is the idiomatic Go shape for the same
// "chunk iterator" abstraction spec.md §9 describes.
type Provider interface {
	// Stream starts a completion and returns a channel of chunks. The
	// channel is closed after a Chunk{Done:true} or on error; the
	// returned error channel reports the terminal error, if any.
	Stream(ctx context.Context, req Request) (<-chan Chunk, <-chan error)
}

// RequestFromPayload builds a provider Request from a prepared
// LLMCallPayload.
func RequestFromPayload(payload models.LLMCallPayload) Request {
	return Request{
		Model:       payload.Config.Model,
		Messages:    payload.Messages,
		Tools:       payload.Tools,
		Temperature: payload.Config.Temperature,
		TopP:        payload.Config.TopP,
		MaxTokens:   payload.Config.MaxTokens,
	}
}
