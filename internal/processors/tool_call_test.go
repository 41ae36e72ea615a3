package processors

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copilotzhq/copilotz/internal/assets"
	"github.com/copilotzhq/copilotz/internal/tooling"
	"github.com/copilotzhq/copilotz/internal/tooling/native"
	"github.com/copilotzhq/copilotz/internal/worker"
	"github.com/copilotzhq/copilotz/pkg/models"
)

func newToolCallProcessor() *ToolCall {
	reg := tooling.NewRegistry()
	native.Register(reg, nil)
	store := assets.New(assets.NewMemoryBackend(), assets.DefaultConfig())
	return &ToolCall{Executor: tooling.NewExecutor(reg), AssetDB: store}
}

func TestToolCall_Process_ExecutesAndProducesToolResultMessage(t *testing.T) {
	proc := newToolCallProcessor()

	event := &models.Event{ThreadID: "thread-1", Type: models.EventToolCall, Payload: models.ToolCallPayload{
		AgentName: "Assistant",
		Call: models.ToolCallEnvelope{
			ID:       "call-1",
			Function: models.FunctionCall{Name: "get_current_time", Arguments: "{}"},
		},
	}}
	deps := worker.Deps{Context: context.Background()}

	produced, err := proc.Process(context.Background(), event, deps)
	require.NoError(t, err)
	require.Len(t, produced, 1)

	msgPayload, ok := produced[0].Payload.(models.NewMessagePayload)
	require.True(t, ok)
	assert.Equal(t, models.SenderTool, msgPayload.Sender.Type)
	assert.Equal(t, "Assistant", msgPayload.Metadata["respondingAgent"])
	assert.Contains(t, msgPayload.Content, "time")
}

func TestToolCall_Process_UnknownToolProducesNotFoundDiagnostic(t *testing.T) {
	proc := newToolCallProcessor()

	event := &models.Event{ThreadID: "thread-1", Type: models.EventToolCall, Payload: models.ToolCallPayload{
		AgentName: "Assistant",
		Call: models.ToolCallEnvelope{
			ID:       "call-1",
			Function: models.FunctionCall{Name: "nonexistent_tool", Arguments: "{}"},
		},
	}}
	deps := worker.Deps{Context: context.Background()}

	produced, err := proc.Process(context.Background(), event, deps)
	require.NoError(t, err)
	require.Len(t, produced, 1)

	msgPayload := produced[0].Payload.(models.NewMessagePayload)
	assert.Contains(t, msgPayload.Content, "TOOL_NOT_FOUND")
}

func TestToolCall_Process_VerbalPauseSuppressesFollowUp(t *testing.T) {
	proc := newToolCallProcessor()

	event := &models.Event{ThreadID: "thread-1", Type: models.EventToolCall, Payload: models.ToolCallPayload{
		AgentName: "Assistant",
		Call: models.ToolCallEnvelope{
			ID:       "call-1",
			Function: models.FunctionCall{Name: "verbal_pause", Arguments: "{}"},
		},
	}}
	deps := worker.Deps{Context: context.Background()}

	produced, err := proc.Process(context.Background(), event, deps)
	require.NoError(t, err)
	require.Len(t, produced, 1)

	msgPayload := produced[0].Payload.(models.NewMessagePayload)
	suppress, _ := msgPayload.Metadata["suppressFollowUp"].(bool)
	assert.True(t, suppress)
}

func TestToolCall_Process_MalformedArgumentsProduceValidationDiagnostic(t *testing.T) {
	proc := newToolCallProcessor()

	event := &models.Event{ThreadID: "thread-1", Type: models.EventToolCall, Payload: models.ToolCallPayload{
		AgentName: "Assistant",
		Call: models.ToolCallEnvelope{
			ID:       "call-1",
			Function: models.FunctionCall{Name: "read_file", Arguments: "{not json"},
		},
	}}
	deps := worker.Deps{Context: context.Background()}

	produced, err := proc.Process(context.Background(), event, deps)
	require.NoError(t, err)
	require.Len(t, produced, 1)

	msgPayload := produced[0].Payload.(models.NewMessagePayload)
	assert.Contains(t, msgPayload.Content, "VALIDATION_ERROR")
}

func TestNormalizedOutputValue_RoundTripsThroughJSON(t *testing.T) {
	normalized := assets.Normalized{Text: "hello"}
	v := normalizedOutputValue(normalized)
	b, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `"hello"`, string(b))
}
