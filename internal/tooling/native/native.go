// Package native implements the built-in tool set every run registers
// before user-provided, OpenAPI-derived, or remote tools: the keys
// listed in spec.md §4.5's "Native registry" resolution tier. Modeled
// on the teacher's built-in tools under agent/tools (filesystem, http,
// shell) and tasks.Scheduler (wait/schedule semantics).
package native

import (
	"github.com/copilotzhq/copilotz/internal/tooling"
	"github.com/copilotzhq/copilotz/pkg/models"
)

// Dispatcher lets the four thread-aware native tools (ask_question,
// create_thread, end_thread, create_task) reach back into the queue and
// thread stores without importing internal/processors (which imports
// internal/tooling), avoiding an import cycle.
type Dispatcher interface {
	// CreateChildThread creates a thread under parentThreadID with the
	// given participants and returns its id.
	CreateChildThread(parentThreadID string, participants []models.Sender) (string, error)
	// SendAndAwaitReply enqueues a NEW_MESSAGE with content into
	// threadID and blocks until that thread's next agent message
	// arrives, returning its text.
	SendAndAwaitReply(threadID, content string) (string, error)
	// ArchiveThread marks threadID archived with the given summary.
	ArchiveThread(threadID, summary string) error
	// ScheduleTask enqueues a NEW_MESSAGE for threadID carrying runAt
	// (RFC3339) as its scheduled time. The message is enqueued at once;
	// delivery is not delayed until runAt.
	ScheduleTask(threadID, runAt, content string) error
}

// Register adds every native tool to reg. dispatcher may be nil in
// contexts (like schema introspection) that never execute
// thread-aware tools; Execute on those tools returns an
// EXECUTION_ERROR if called without one.
func Register(reg *tooling.Registry, dispatcher Dispatcher) {
	for _, t := range statelessTools() {
		reg.Register(t, tooling.SourceNative)
	}
	for _, t := range filesystemTools() {
		reg.Register(t, tooling.SourceNative)
	}
	for _, t := range networkTools() {
		reg.Register(t, tooling.SourceNative)
	}
	for _, t := range shellTools() {
		reg.Register(t, tooling.SourceNative)
	}
	for _, t := range threadAwareTools(dispatcher) {
		reg.Register(t, tooling.SourceNative)
	}
}

func objectSchema(required []string, properties map[string]any) map[string]any {
	return map[string]any{
		"type":                 "object",
		"required":             required,
		"additionalProperties": false,
		"properties":           properties,
	}
}

func stringProp(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}
