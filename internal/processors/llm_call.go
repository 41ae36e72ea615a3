package processors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/copilotzhq/copilotz/internal/llm"
	"github.com/copilotzhq/copilotz/internal/queue"
	"github.com/copilotzhq/copilotz/internal/worker"
	"github.com/copilotzhq/copilotz/pkg/models"
)

// ErrCancelled marks an LLM_CALL event failed due to caller
// cancellation (§4.4 failure semantics).
var ErrCancelled = errors.New("processors: LLM_CALL cancelled")

// ProviderError wraps llm.ErrProvider with the provider/model that
// failed, attached as event metadata per §4.4/§7.
type ProviderError struct {
	Provider string
	Model    string
	Cause    error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error (%s/%s): %v", e.Provider, e.Model, e.Cause)
}

func (e *ProviderError) Unwrap() error { return e.Cause }

// Providers resolves an agent's configured provider name to a
// llm.Provider implementation.
type Providers map[string]llm.Provider

// LLMCall implements the LLM_CALL processor (§4.4): stream a
// completion, elide <tool_calls> blocks from the visible TOKEN stream,
// and produce exactly one NEW_MESSAGE carrying the parsed tool calls.
type LLMCall struct {
	Providers Providers
}

var _ worker.Processor = (*LLMCall)(nil)

// ShouldProcess always runs.
func (p *LLMCall) ShouldProcess(ctx context.Context, event *models.Event, deps worker.Deps) (bool, error) {
	return true, nil
}

// Process implements worker.Processor.
func (p *LLMCall) Process(ctx context.Context, event *models.Event, deps worker.Deps) ([]queue.EventSpec, error) {
	payload, ok := event.Payload.(models.LLMCallPayload)
	if !ok {
		return nil, fmt.Errorf("processors: LLM_CALL payload has unexpected type %T", event.Payload)
	}

	provider, ok := p.Providers[payload.Config.Provider]
	if !ok {
		return nil, &ProviderError{Provider: payload.Config.Provider, Model: payload.Config.Model,
			Cause: fmt.Errorf("no provider registered for %q", payload.Config.Provider)}
	}

	chunks, errs := provider.Stream(ctx, llm.RequestFromPayload(payload))
	filter := llm.NewToolCallFilter()
	var visibleText strings.Builder

	for chunk := range chunks {
		if chunk.Done {
			break
		}
		if visible := filter.Feed(chunk.Text); visible != "" {
			visibleText.WriteString(visible)
			deps.Sink.Emit(&models.Event{
				ThreadID: event.ThreadID,
				Type:     models.EventToken,
				Payload: models.TokenPayload{
					ThreadID:  event.ThreadID,
					AgentName: payload.AgentName,
					Token:     visible,
				},
			})
		}
	}

	if err := <-errs; err != nil {
		if ctx.Err() != nil {
			return nil, ErrCancelled
		}
		return nil, &ProviderError{Provider: payload.Config.Provider, Model: payload.Config.Model, Cause: err}
	}
	if ctx.Err() != nil {
		return nil, ErrCancelled
	}

	deps.Sink.Emit(&models.Event{
		ThreadID: event.ThreadID,
		Type:     models.EventToken,
		Payload: models.TokenPayload{
			ThreadID:   event.ThreadID,
			AgentName:  payload.AgentName,
			IsComplete: true,
		},
	})

	calls, parseErr := llm.ParseToolCalls(filter.Raw())
	metadata := map[string]any{}
	if parseErr != nil {
		metadata["parseError"] = parseErr.Error()
	}

	toolCalls := make([]models.ToolCallRequest, 0, len(calls))
	for _, c := range calls {
		var args map[string]any
		_ = json.Unmarshal([]byte(c.Function.Arguments), &args)
		toolCalls = append(toolCalls, models.ToolCallRequest{ID: c.ID, Name: c.Function.Name, Args: args})
	}

	return []queue.EventSpec{{
		ThreadID: event.ThreadID,
		Type:     models.EventNewMessage,
		Payload: models.NewMessagePayload{
			Content:   visibleText.String(),
			Sender:    models.Sender{Type: models.SenderAgent, Name: payload.AgentName, ID: payload.AgentName},
			ToolCalls: toolCalls,
			Metadata:  metadata,
		},
	}}, nil
}
