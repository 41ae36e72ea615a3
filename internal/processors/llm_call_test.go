package processors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copilotzhq/copilotz/internal/llm"
	"github.com/copilotzhq/copilotz/internal/worker"
	"github.com/copilotzhq/copilotz/pkg/models"
)

type scriptedProvider struct {
	chunks []string
	err    error
}

func (p *scriptedProvider) Stream(ctx context.Context, req llm.Request) (<-chan llm.Chunk, <-chan error) {
	chunks := make(chan llm.Chunk, len(p.chunks)+1)
	errs := make(chan error, 1)
	for _, c := range p.chunks {
		chunks <- llm.Chunk{Text: c}
	}
	chunks <- llm.Chunk{Done: true}
	close(chunks)
	errs <- p.err
	close(errs)
	return chunks, errs
}

type capturingSink struct {
	events []*models.Event
}

func (s *capturingSink) Emit(event *models.Event) {
	s.events = append(s.events, event)
}

func TestLLMCall_Process_EmitsTokensAndParsesToolCalls(t *testing.T) {
	provider := &scriptedProvider{chunks: []string{
		"Let me check. ",
		`<tool_calls>` + "\n" + `{"function":{"name":"get_current_time","arguments":"{}"}}` + "\n" + `</tool_calls>`,
	}}
	proc := &LLMCall{Providers: Providers{"anthropic": provider}}
	sink := &capturingSink{}

	event := &models.Event{ThreadID: "thread-1", Type: models.EventLLMCall, Payload: models.LLMCallPayload{
		AgentName: "Assistant",
		Config:    models.LLMConfig{Provider: "anthropic", Model: "claude"},
	}}
	deps := worker.Deps{Context: context.Background(), Sink: sink}

	produced, err := proc.Process(context.Background(), event, deps)
	require.NoError(t, err)
	require.Len(t, produced, 1)
	assert.Equal(t, models.EventNewMessage, produced[0].Type)

	msgPayload := produced[0].Payload.(models.NewMessagePayload)
	assert.Equal(t, "Let me check. ", msgPayload.Content)
	require.Len(t, msgPayload.ToolCalls, 1)
	assert.Equal(t, "get_current_time", msgPayload.ToolCalls[0].Name)

	var sawFinalToken bool
	for _, e := range sink.events {
		if tp, ok := e.Payload.(models.TokenPayload); ok && tp.IsComplete {
			sawFinalToken = true
		}
	}
	assert.True(t, sawFinalToken)
}

func TestLLMCall_Process_UnknownProviderReturnsProviderError(t *testing.T) {
	proc := &LLMCall{Providers: Providers{}}
	sink := &capturingSink{}

	event := &models.Event{ThreadID: "thread-1", Type: models.EventLLMCall, Payload: models.LLMCallPayload{
		AgentName: "Assistant",
		Config:    models.LLMConfig{Provider: "missing", Model: "x"},
	}}
	deps := worker.Deps{Context: context.Background(), Sink: sink}

	_, err := proc.Process(context.Background(), event, deps)
	require.Error(t, err)
	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "missing", perr.Provider)
}

func TestLLMCall_Process_MalformedToolCallLineSurfacesParseError(t *testing.T) {
	provider := &scriptedProvider{chunks: []string{
		`<tool_calls>` + "\n" + `not valid json` + "\n" + `</tool_calls>`,
	}}
	proc := &LLMCall{Providers: Providers{"anthropic": provider}}
	sink := &capturingSink{}

	event := &models.Event{ThreadID: "thread-1", Type: models.EventLLMCall, Payload: models.LLMCallPayload{
		AgentName: "Assistant",
		Config:    models.LLMConfig{Provider: "anthropic", Model: "claude"},
	}}
	deps := worker.Deps{Context: context.Background(), Sink: sink}

	produced, err := proc.Process(context.Background(), event, deps)
	require.NoError(t, err)
	require.Len(t, produced, 1)

	msgPayload := produced[0].Payload.(models.NewMessagePayload)
	assert.Empty(t, msgPayload.ToolCalls)
	assert.NotEmpty(t, msgPayload.Metadata["parseError"])
}
