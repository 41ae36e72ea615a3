package processors

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/copilotzhq/copilotz/internal/assets"
	"github.com/copilotzhq/copilotz/internal/queue"
	"github.com/copilotzhq/copilotz/internal/tooling"
	"github.com/copilotzhq/copilotz/internal/worker"
	"github.com/copilotzhq/copilotz/pkg/models"
)

// verbalPauseToolName is special-cased so its success suppresses the
// automatic follow-up LLM_CALL (§4.5).
const verbalPauseToolName = "verbal_pause"

// ToolCall implements the TOOL_CALL processor (§4.5): resolve, validate,
// execute one tool call, and produce a tool-result NEW_MESSAGE.
type ToolCall struct {
	Executor *tooling.Executor
	AssetDB  *assets.Store
	DB       any
}

var _ worker.Processor = (*ToolCall)(nil)

// ShouldProcess always runs.
func (p *ToolCall) ShouldProcess(ctx context.Context, event *models.Event, deps worker.Deps) (bool, error) {
	return true, nil
}

// Process implements worker.Processor.
func (p *ToolCall) Process(ctx context.Context, event *models.Event, deps worker.Deps) ([]queue.EventSpec, error) {
	payload, ok := event.Payload.(models.ToolCallPayload)
	if !ok {
		return nil, fmt.Errorf("processors: TOOL_CALL payload has unexpected type %T", event.Payload)
	}

	var args map[string]any
	if payload.Call.Function.Arguments != "" {
		if err := json.Unmarshal([]byte(payload.Call.Function.Arguments), &args); err != nil {
			return p.toolResultSpec(event, payload, nil, "failed", tooling.NewValidationError(payload.Call.Function.Name, err)), nil
		}
	}

	ectx := models.ToolExecContext{
		Context:    ctx,
		DB:         p.DB,
		AssetStore: p.AssetDB,
		ThreadID:   event.ThreadID,
		AgentName:  payload.AgentName,
		TraceID:    event.TraceID,
	}

	output, err := p.Executor.Run(payload.Call.Function.Name, args, ectx)
	if err != nil {
		return p.toolResultSpec(event, payload, nil, "failed", err), nil
	}

	normalized, err := assets.NormalizeContent(ctx, p.AssetDB, output)
	if err != nil {
		return nil, fmt.Errorf("processors: normalize tool output: %w", err)
	}

	produced := p.toolResultSpec(event, payload, normalizedOutputValue(normalized), "completed", nil)
	if payload.Call.Function.Name == verbalPauseToolName {
		if msgPayload, ok := produced[0].Payload.(models.NewMessagePayload); ok {
			msgPayload.Metadata = mergeSuppressFlag(msgPayload.Metadata)
			produced[0].Payload = msgPayload
		}
	}
	for _, created := range normalized.Created {
		produced = append(produced, assetCreatedSpec(event, created, payload.AgentName, payload.Call.Function.Name, payload.Call.ID))
	}

	return produced, nil
}

// toolResultSpec builds the one NEW_MESSAGE a tool call always
// produces, whether it succeeded, failed validation, or resolved to no
// tool at all.
func (p *ToolCall) toolResultSpec(event *models.Event, payload models.ToolCallPayload, output any, status string, callErr error) []queue.EventSpec {
	content := ""
	if callErr != nil {
		content = diagnosticFor(p.Executor, payload.Call.Function.Name, callErr)
	} else {
		if b, err := json.Marshal(output); err == nil {
			content = string(b)
		}
	}

	var args map[string]any
	if payload.Call.Function.Arguments != "" {
		_ = json.Unmarshal([]byte(payload.Call.Function.Arguments), &args)
	}

	return []queue.EventSpec{{
		ThreadID: event.ThreadID,
		Type:     models.EventNewMessage,
		Payload: models.NewMessagePayload{
			Content:    content,
			Sender:     models.Sender{Type: models.SenderTool, Name: payload.Call.Function.Name},
			ToolCallID: payload.Call.ID,
			Metadata: map[string]any{
				"toolCallId":      payload.Call.ID,
				"respondingAgent": payload.AgentName,
				"toolCalls": []map[string]any{{
					"id":     payload.Call.ID,
					"name":   payload.Call.Function.Name,
					"args":   args,
					"output": output,
					"status": status,
				}},
			},
		},
	}}
}

// diagnosticFor renders the TOOL_NOT_FOUND/VALIDATION_ERROR/
// EXECUTION_ERROR diagnostic text for a failed call.
func diagnosticFor(executor *tooling.Executor, toolName string, callErr error) string {
	te, ok := tooling.AsToolError(callErr)
	if !ok {
		return callErr.Error()
	}
	if te.Kind == tooling.KindNotFound {
		return te.Message
	}
	return te.Error()
}

// normalizedOutputValue returns the JSON-serializable normalized output
// shape: plain text when there were no attachments, or
// {text, attachments} otherwise.
func normalizedOutputValue(normalized assets.Normalized) any {
	if len(normalized.Attachments) == 0 {
		return normalized.Text
	}
	return map[string]any{"text": normalized.Text, "attachments": normalized.Attachments}
}

func mergeSuppressFlag(metadata map[string]any) map[string]any {
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadata["suppressFollowUp"] = true
	return metadata
}
