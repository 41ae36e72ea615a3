// Package runtime implements the public entry point (§4.6): Run(request)
// returns a RunHandle immediately after enqueuing the initial
// NEW_MESSAGE, then drives the affected thread to quiescence on a
// background goroutine, multiplexing every persisted/TOKEN/ASSET_CREATED
// event onto the handle's stream.
package runtime

import (
	"github.com/copilotzhq/copilotz/pkg/models"
)

// RunRequest is the only public input shape (§6).
type RunRequest struct {
	Message MessageInput
}

// MessageInput is the inbound message shape of a RunRequest.
type MessageInput struct {
	Content   any // string or []models.ContentPart
	Sender    models.Sender
	Thread    *models.ThreadRef
	ToolCalls []models.ToolCallRequest
	Metadata  map[string]any
}
