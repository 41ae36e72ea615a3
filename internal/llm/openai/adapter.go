// Package openai adapts github.com/sashabaranov/go-openai's streaming
// chat completion API to the llm.Provider interface.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"

	gopenai "github.com/sashabaranov/go-openai"

	"github.com/copilotzhq/copilotz/internal/llm"
	"github.com/copilotzhq/copilotz/pkg/models"
)

// Config configures the OpenAI adapter.
type Config struct {
	APIKey  string
	BaseURL string
}

// Adapter implements llm.Provider over the Chat Completions API.
type Adapter struct {
	client *gopenai.Client
}

// New constructs an Adapter from cfg.
func New(cfg Config) *Adapter {
	clientCfg := gopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Adapter{client: gopenai.NewClientWithConfig(clientCfg)}
}

// Stream implements llm.Provider.
func (a *Adapter) Stream(ctx context.Context, req llm.Request) (<-chan llm.Chunk, <-chan error) {
	chunks := make(chan llm.Chunk)
	errs := make(chan error, 1)

	go func() {
		defer close(chunks)
		defer close(errs)

		request := gopenai.ChatCompletionRequest{
			Model:       req.Model,
			Messages:    toOpenAIMessages(req.Messages),
			Stream:      true,
			Temperature: float32(req.Temperature),
			TopP:        float32(req.TopP),
		}
		if req.MaxTokens > 0 {
			request.MaxTokens = req.MaxTokens
		}

		stream, err := a.client.CreateChatCompletionStream(ctx, request)
		if err != nil {
			errs <- fmt.Errorf("%w: %v", llm.ErrProvider, err)
			return
		}
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				chunks <- llm.Chunk{Done: true}
				return
			}
			if err != nil {
				errs <- fmt.Errorf("%w: %v", llm.ErrProvider, err)
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			text := resp.Choices[0].Delta.Content
			if text == "" {
				continue
			}
			select {
			case chunks <- llm.Chunk{Text: text}:
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			}
		}
	}()

	return chunks, errs
}

func toOpenAIMessages(turns []models.ChatTurn) []gopenai.ChatCompletionMessage {
	out := make([]gopenai.ChatCompletionMessage, 0, len(turns))
	for _, t := range turns {
		text, ok := t.Content.(string)
		if !ok {
			text = renderParts(t.Content)
		}
		out = append(out, gopenai.ChatCompletionMessage{Role: t.Role, Content: text, Name: t.Name})
	}
	return out
}

func renderParts(content any) string {
	parts, ok := content.([]models.ContentPart)
	if !ok {
		return ""
	}
	var text string
	for _, p := range parts {
		if p.Kind == models.ContentText {
			text += p.Text
		}
	}
	return text
}
