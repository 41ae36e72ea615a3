// Package processors implements the three built-in event processors
// (NEW_MESSAGE, LLM_CALL, TOOL_CALL) that drive a thread forward, and
// the LLM-call builder they share. Modeled on the teacher's
// internal/agent/loop.go turn cycle, re-expressed across the queue's
// three event types.
package processors

import (
	"context"
	"fmt"
	"sort"

	"github.com/copilotzhq/copilotz/internal/assets"
	"github.com/copilotzhq/copilotz/internal/llm"
	"github.com/copilotzhq/copilotz/internal/threads"
	"github.com/copilotzhq/copilotz/internal/tooling"
	"github.com/copilotzhq/copilotz/pkg/models"
)

// Catalog supplies the agent/tool configuration for a run — the engine
// treats agents and ad hoc tool registrations as in-memory config, not
// stored state (per pkg/models/agent.go).
type Catalog struct {
	Agents    map[string]models.Agent
	Registry  *tooling.Registry
	AssetDB   *assets.Store
	Threads   threads.Store
	History   int // max ancestor-chain messages gathered per LLM_CALL; 0 = DefaultHistoryLimit
}

// DefaultHistoryLimit bounds how many messages the builder gathers
// across a thread and its ancestors when History is unset.
const DefaultHistoryLimit = 50

// Builder assembles an LLMCallPayload for one agent's turn in one
// thread, per spec.md §4.4's "LLM-call builder" paragraph.
type Builder struct {
	Catalog Catalog
}

// NewBuilder constructs a Builder over catalog.
func NewBuilder(catalog Catalog) *Builder {
	return &Builder{Catalog: catalog}
}

// ancestorMessage pairs a gathered message with the depth of the
// thread it came from (0 = the thread itself, 1 = its parent, ...) so
// ties in creation time break parents-first per spec.md §4.4.
type ancestorMessage struct {
	msg   *models.Message
	depth int
}

// Build gathers history across threadID and its ancestors (filtered to
// threads where agentName is a participant), converts it to chat
// turns, substitutes inline attachment data, and prepends the system
// turn. Tools holds the registry's definitions for the agent's
// allowlisted keys; keys not in the registry are skipped.
func (b *Builder) Build(ctx context.Context, threadID, agentName string) (models.LLMCallPayload, error) {
	agent, ok := b.Catalog.Agents[agentName]
	if !ok {
		return models.LLMCallPayload{}, fmt.Errorf("processors: unknown agent %q", agentName)
	}

	limit := b.Catalog.History
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	gathered, err := b.gatherAncestry(ctx, threadID, agentName, limit)
	if err != nil {
		return models.LLMCallPayload{}, err
	}

	turns := make([]models.ChatTurn, 0, len(gathered)+1)
	turns = append(turns, models.ChatTurn{Role: "system", Content: b.systemTurn(agent)})
	for _, am := range gathered {
		turn, err := b.toChatTurn(ctx, am.msg, agentName)
		if err != nil {
			return models.LLMCallPayload{}, err
		}
		turns = append(turns, turn)
	}

	defs := b.Catalog.Registry.AsToolDefinitions(agent.AllowedTools)

	return models.LLMCallPayload{
		AgentName: agent.Name,
		AgentID:   agent.ID,
		Messages:  turns,
		Tools:     defs,
		Config:    agent.LLM,
	}, nil
}

// gatherAncestry walks threadID and its ancestors up toward the root,
// collecting messages from every thread where agentName participates,
// then sorts by creation time with ties broken by depth (parents
// first, i.e. higher depth sorts first on a tie).
func (b *Builder) gatherAncestry(ctx context.Context, threadID, agentName string, limit int) ([]ancestorMessage, error) {
	var all []ancestorMessage

	depth := 0
	currentID := threadID
	for currentID != "" {
		thread, err := b.Catalog.Threads.GetThread(ctx, currentID)
		if err != nil {
			return nil, fmt.Errorf("processors: load thread %s: %w", currentID, err)
		}
		if thread.HasParticipant(agentName) {
			msgs, err := b.Catalog.Threads.GetHistory(ctx, currentID, threads.ListOptions{Limit: limit})
			if err != nil {
				return nil, fmt.Errorf("processors: load history for %s: %w", currentID, err)
			}
			for _, m := range msgs {
				all = append(all, ancestorMessage{msg: m, depth: depth})
			}
		}
		currentID = thread.ParentID
		depth++
	}

	sort.SliceStable(all, func(i, j int) bool {
		if !all[i].msg.CreatedAt.Equal(all[j].msg.CreatedAt) {
			return all[i].msg.CreatedAt.Before(all[j].msg.CreatedAt)
		}
		return all[i].depth > all[j].depth
	})

	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

// toChatTurn converts a persisted message into the chat turn seen by
// agentName: its own messages become assistant turns; everyone else's
// become user turns. Plain-text content gets a sender-name or
// "[Tool Result]:" prefix; content-part lists carry the sender in Name
// instead.
func (b *Builder) toChatTurn(ctx context.Context, msg *models.Message, agentName string) (models.ChatTurn, error) {
	parts, err := b.resolveAttachments(ctx, msg)
	if err != nil {
		return models.ChatTurn{}, err
	}

	var content any = msg.Content
	if len(parts) > 0 {
		content = parts
	}

	if msg.SenderType == models.SenderAgent && msg.SenderID == agentName {
		return models.ChatTurn{Role: "assistant", Content: content}, nil
	}

	prefix := fmt.Sprintf("[%s]: ", msg.SenderID)
	if msg.SenderType == models.SenderTool {
		prefix = "[Tool Result]: "
	}
	if text, ok := content.(string); ok {
		return models.ChatTurn{Role: "user", Content: prefix + text}, nil
	}
	return models.ChatTurn{Role: "user", Content: content, Name: msg.SenderID}, nil
}

// resolveAttachments substitutes each of msg's metadata.attachments
// with provider-appropriate inline data, returning a content-part list
// only when there is at least one attachment; a plain-text message with
// no attachments returns nil so the caller keeps the bare string.
func (b *Builder) resolveAttachments(ctx context.Context, msg *models.Message) ([]models.ContentPart, error) {
	raw, ok := msg.Metadata["attachments"]
	if !ok {
		return nil, nil
	}
	atts, ok := raw.([]models.Attachment)
	if !ok {
		return nil, nil
	}
	if len(atts) == 0 {
		return nil, nil
	}

	parts := make([]models.ContentPart, 0, len(atts)+1)
	if msg.Content != "" {
		parts = append(parts, models.ContentPart{Kind: models.ContentText, Text: msg.Content})
	}
	for _, att := range atts {
		dataURL, err := assets.InlineForLLM(ctx, b.Catalog.AssetDB, assets.AttachmentRef{
			Kind:     string(att.Kind),
			AssetRef: att.AssetRef,
			DataURL:  att.DataURL,
		})
		if err != nil {
			return nil, err
		}
		part := models.ContentPart{Kind: att.Kind, MimeType: att.MimeType, FileName: att.FileName}
		if att.Kind == models.ContentAudio {
			part.DataBase64 = dataURL
		} else {
			part.DataURL = dataURL
		}
		parts = append(parts, part)
	}
	return parts, nil
}

// systemTurn composes the agent's instructions, its allowed peer/tool
// lists, and the fixed tool-calling preamble (§4.4/§6).
func (b *Builder) systemTurn(agent models.Agent) string {
	text := agent.Instructions
	if agent.Role != "" {
		text = fmt.Sprintf("You are %s, %s.\n\n%s", agent.Name, agent.Role, text)
	}
	if len(agent.AllowedAgents) > 0 {
		text += "\n\nYou may address: " + joinNames(agent.AllowedAgents)
	}
	if len(agent.AllowedTools) > 0 {
		text += "\n\nYou have access to these tools: " + joinNames(agent.AllowedTools)
	}
	return text + "\n\n" + llm.SystemPreamble
}

func joinNames(names []string) string {
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ", "
		}
		out += n
	}
	return out
}
