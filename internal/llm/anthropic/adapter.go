// Package anthropic adapts github.com/anthropics/anthropic-sdk-go's
// streaming messages API to the llm.Provider interface.
package anthropic

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/copilotzhq/copilotz/internal/llm"
)

// Config configures the Anthropic adapter.
type Config struct {
	APIKey  string
	BaseURL string
}

// Adapter implements llm.Provider over the Anthropic messages API.
type Adapter struct {
	client anthropic.Client
}

// New constructs an Adapter from cfg.
func New(cfg Config) *Adapter {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Adapter{client: anthropic.NewClient(opts...)}
}

// Stream implements llm.Provider.
func (a *Adapter) Stream(ctx context.Context, req llm.Request) (<-chan llm.Chunk, <-chan error) {
	chunks := make(chan llm.Chunk)
	errs := make(chan error, 1)

	go func() {
		defer close(chunks)
		defer close(errs)

		params := anthropic.MessageNewParams{
			Model:     anthropic.Model(req.Model),
			MaxTokens: int64(maxTokensOrDefault(req.MaxTokens)),
			Messages:  toAnthropicMessages(req.Messages),
		}
		if req.Temperature > 0 {
			params.Temperature = anthropic.Float(req.Temperature)
		}
		if system := systemTurn(req.Messages); system != "" {
			params.System = []anthropic.TextBlockParam{{Text: system}}
		}

		stream := a.client.Messages.NewStreaming(ctx, params)
		for stream.Next() {
			event := stream.Current()
			if delta, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent); ok {
				if text := delta.Delta.Text; text != "" {
					select {
					case chunks <- llm.Chunk{Text: text}:
					case <-ctx.Done():
						errs <- ctx.Err()
						return
					}
				}
			}
		}
		if err := stream.Err(); err != nil {
			errs <- fmt.Errorf("%w: %v", llm.ErrProvider, err)
			return
		}
		chunks <- llm.Chunk{Done: true}
	}()

	return chunks, errs
}

func maxTokensOrDefault(n int) int {
	if n <= 0 {
		return 4096
	}
	return n
}
