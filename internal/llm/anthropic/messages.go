package anthropic

import (
	"github.com/anthropics/anthropic-sdk-go"

	"github.com/copilotzhq/copilotz/pkg/models"
)

// systemTurn extracts the first "system" ChatTurn's text, since
// Anthropic's API takes system as a top-level field rather than a
// message-list entry.
func systemTurn(turns []models.ChatTurn) string {
	for _, t := range turns {
		if t.Role == "system" {
			if text, ok := t.Content.(string); ok {
				return text
			}
		}
	}
	return ""
}

// toAnthropicMessages converts chat turns (excluding the system turn)
// into Anthropic's message param shape.
func toAnthropicMessages(turns []models.ChatTurn) []anthropic.MessageParam {
	var out []anthropic.MessageParam
	for _, t := range turns {
		switch t.Role {
		case "system":
			continue
		case "assistant":
			text, _ := t.Content.(string)
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(text)))
		default:
			text, ok := t.Content.(string)
			if !ok {
				text = renderParts(t.Content)
			}
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(text)))
		}
	}
	return out
}

// renderParts concatenates the text of a content-part list's text
// parts; image, audio, file, and JSON parts are dropped.
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
