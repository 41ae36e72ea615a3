package processors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/copilotzhq/copilotz/internal/assets"
	"github.com/copilotzhq/copilotz/internal/queue"
	"github.com/copilotzhq/copilotz/internal/worker"
	"github.com/copilotzhq/copilotz/pkg/models"
)

// ErrInvalidInput is returned when a NEW_MESSAGE payload carries
// neither content nor tool calls (§4.3 input constraint).
var ErrInvalidInput = errors.New("processors: NEW_MESSAGE requires non-empty content or toolCalls")

// NewMessage implements the NEW_MESSAGE processor (§4.3): persist the
// incoming message, normalize any embedded binary, and decide whether
// a TOOL_CALL or LLM_CALL follows.
type NewMessage struct {
	AssetDB *assets.Store
	Builder *Builder
	Catalog Catalog
}

var _ worker.Processor = (*NewMessage)(nil)

// ShouldProcess always runs: every NEW_MESSAGE must be persisted.
func (p *NewMessage) ShouldProcess(ctx context.Context, event *models.Event, deps worker.Deps) (bool, error) {
	return true, nil
}

// Process implements worker.Processor.
func (p *NewMessage) Process(ctx context.Context, event *models.Event, deps worker.Deps) ([]queue.EventSpec, error) {
	payload, ok := event.Payload.(models.NewMessagePayload)
	if !ok {
		return nil, fmt.Errorf("processors: NEW_MESSAGE payload has unexpected type %T", event.Payload)
	}
	if isEmptyContent(payload.Content) && len(payload.ToolCalls) == 0 {
		return nil, ErrInvalidInput
	}

	thread := deps.Thread

	normalized, err := assets.NormalizeContent(ctx, p.AssetDB, payload.Content)
	if err != nil {
		return nil, fmt.Errorf("processors: normalize content: %w", err)
	}

	var produced []queue.EventSpec
	for _, created := range normalized.Created {
		produced = append(produced, assetCreatedSpec(event, created, payload.Sender.Name, "", ""))
	}

	toolCalls, err := p.normalizeToolCallOutputs(ctx, event, payload, &produced)
	if err != nil {
		return nil, err
	}

	msg := &models.Message{
		ThreadID:   thread.ID,
		SenderID:   senderID(payload.Sender),
		SenderType: payload.Sender.Type,
		Content:    normalized.Text,
		ToolCalls:  toolCalls,
		ToolCallID: payload.ToolCallID,
		Metadata:   mergeAttachments(payload.Metadata, normalized.Attachments),
		CreatedAt:  event.CreatedAt,
	}
	if err := deps.Threads.AppendMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("processors: append message: %w", err)
	}

	thread.AddParticipant(senderID(payload.Sender))
	if err := deps.Threads.UpdateThread(ctx, thread); err != nil {
		return nil, fmt.Errorf("processors: update thread participants: %w", err)
	}

	if len(payload.ToolCalls) > 0 {
		for _, call := range payload.ToolCalls {
			if call.Name == endThreadToolName {
				summary, _ := call.Args["summary"].(string)
				return p.archiveAndHalt(ctx, deps, thread, summary, produced)
			}
			produced = append(produced, toolCallSpec(event, thread.ID, senderID(payload.Sender), payload.Sender.Type, call))
		}
		return produced, nil
	}

	if suppress, _ := payload.Metadata["suppressFollowUp"].(bool); suppress {
		return produced, nil
	}

	responder := p.selectResponder(thread, payload)
	if responder == "" {
		return produced, nil
	}

	llmPayload, err := p.Builder.Build(ctx, thread.ID, responder)
	if err != nil {
		return nil, fmt.Errorf("processors: build LLM_CALL for %s: %w", responder, err)
	}
	produced = append(produced, queue.EventSpec{
		ThreadID: thread.ID,
		Type:     models.EventLLMCall,
		Payload:  llmPayload,
	})
	return produced, nil
}

const endThreadToolName = "end_thread"

func (p *NewMessage) archiveAndHalt(ctx context.Context, deps worker.Deps, thread *models.Thread, summary string, produced []queue.EventSpec) ([]queue.EventSpec, error) {
	thread.Status = models.ThreadStatusArchived
	thread.Summary = summary
	if err := deps.Threads.UpdateThread(ctx, thread); err != nil {
		return nil, fmt.Errorf("processors: archive thread: %w", err)
	}
	return produced, nil
}

// selectResponder implements spec.md §4.3 step 4: @mention first, then
// the two-participant fallback, then the agent-pauses-on-plain-text
// rule, else no responder.
func (p *NewMessage) selectResponder(thread *models.Thread, payload models.NewMessagePayload) string {
	if payload.Sender.Type == models.SenderTool {
		if agentName, _ := payload.Metadata["respondingAgent"].(string); agentName != "" {
			return agentName
		}
		return ""
	}

	others := thread.OtherParticipants(senderID(payload.Sender))
	if len(others) == 0 {
		return ""
	}

	if text, ok := payload.Content.(string); ok {
		for _, name := range others {
			if strings.Contains(text, "@"+name) {
				if _, isAgent := p.Catalog.Agents[name]; isAgent && p.senderCanAddress(payload.Sender, name) {
					return name
				}
			}
		}
	}

	if len(thread.Participants) == 2 {
		for _, name := range others {
			if _, isAgent := p.Catalog.Agents[name]; isAgent {
				return name
			}
		}
		return ""
	}

	if payload.Sender.Type == models.SenderAgent {
		return ""
	}
	return ""
}

// senderCanAddress reports whether sender is allowed to @mention
// target, per spec.md:296: mentions outside an agent sender's
// AllowedAgents resolve to no responder. Non-agent senders (user,
// system, tool) are unrestricted.
func (p *NewMessage) senderCanAddress(sender models.Sender, target string) bool {
	if sender.Type != models.SenderAgent {
		return true
	}
	agent, ok := p.Catalog.Agents[senderID(sender)]
	if !ok {
		return true
	}
	return agent.CanAddress(target)
}

func (p *NewMessage) normalizeToolCallOutputs(ctx context.Context, event *models.Event, payload models.NewMessagePayload, produced *[]queue.EventSpec) ([]models.ToolCallDescriptor, error) {
	if payload.Sender.Type != models.SenderTool {
		return toolCallDescriptors(payload.ToolCalls), nil
	}
	raw, ok := payload.Metadata["toolCalls"]
	if !ok {
		return nil, nil
	}
	entries, ok := raw.([]map[string]any)
	if !ok {
		return nil, nil
	}
	descriptors := make([]models.ToolCallDescriptor, 0, len(entries))
	for _, entry := range entries {
		id, _ := entry["id"].(string)
		name, _ := entry["name"].(string)
		args := "{}"
		if a, err := json.Marshal(entry["args"]); err == nil {
			args = string(a)
		}
		descriptors = append(descriptors, models.ToolCallDescriptor{ID: id, FunctionName: name, Arguments: args})

		output, ok := entry["output"]
		if !ok {
			continue
		}
		normalized, err := assets.NormalizeContent(ctx, p.AssetDB, output)
		if err != nil {
			return nil, fmt.Errorf("processors: normalize tool output: %w", err)
		}
		entry["output"] = normalized.Text
		for _, created := range normalized.Created {
			*produced = append(*produced, assetCreatedSpec(event, created, payload.Sender.Name, name, id))
		}
	}
	return descriptors, nil
}

func toolCallDescriptors(calls []models.ToolCallRequest) []models.ToolCallDescriptor {
	if len(calls) == 0 {
		return nil
	}
	out := make([]models.ToolCallDescriptor, 0, len(calls))
	for _, c := range calls {
		args := "{}"
		if c.Args != nil {
			if b, err := json.Marshal(c.Args); err == nil {
				args = string(b)
			}
		}
		out = append(out, models.ToolCallDescriptor{ID: c.ID, FunctionName: c.Name, Arguments: args})
	}
	return out
}

func toolCallSpec(event *models.Event, threadID, senderID string, senderType models.SenderType, call models.ToolCallRequest) queue.EventSpec {
	args := "{}"
	if call.Args != nil {
		if b, err := json.Marshal(call.Args); err == nil {
			args = string(b)
		}
	}
	return queue.EventSpec{
		ThreadID: threadID,
		Type:     models.EventToolCall,
		Payload: models.ToolCallPayload{
			AgentName:  senderID,
			SenderID:   senderID,
			SenderType: senderType,
			Call: models.ToolCallEnvelope{
				ID:       call.ID,
				Function: models.FunctionCall{Name: call.Name, Arguments: args},
			},
		},
	}
}

func assetCreatedSpec(event *models.Event, asset *models.Asset, by, tool, toolCallID string) queue.EventSpec {
	return queue.EventSpec{
		ThreadID: event.ThreadID,
		Type:     models.EventAssetCreated,
		Status:   models.StatusCompleted,
		Payload: models.AssetCreatedPayload{
			AssetID:    asset.ID,
			Ref:        assets.Ref(asset.ID),
			MimeType:   asset.MimeType,
			By:         by,
			Tool:       tool,
			ToolCallID: toolCallID,
		},
	}
}

func senderID(s models.Sender) string {
	if s.Name != "" {
		return s.Name
	}
	return s.ID
}

func isEmptyContent(content any) bool {
	switch v := content.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []models.ContentPart:
		return len(v) == 0
	default:
		return false
	}
}

func mergeAttachments(metadata map[string]any, attachments []models.Attachment) map[string]any {
	if len(attachments) == 0 {
		return metadata
	}
	out := make(map[string]any, len(metadata)+1)
	for k, v := range metadata {
		out[k] = v
	}
	out["attachments"] = attachments
	return out
}
