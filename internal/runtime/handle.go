package runtime

import (
	"context"

	"github.com/copilotzhq/copilotz/pkg/models"
)

// RunStatus mirrors the handle's status field (§4.6).
type RunStatus string

const (
	StatusQueued RunStatus = "queued"
)

// RunHandle is the caller-facing result of Run: an async pull stream,
// a one-shot completion signal, and cooperative cancellation.
type RunHandle struct {
	QueueID  string
	ThreadID string
	Status   RunStatus

	events chan *models.Event
	done   chan error
	cancel context.CancelFunc
}

// Events returns the handle's event stream: lazy, finite, and not
// restartable. It closes when the worker drains the thread.
func (h *RunHandle) Events() <-chan *models.Event {
	return h.events
}

// Done returns the one-shot completion signal: closed with a nil send
// on success, or an error value on worker failure.
func (h *RunHandle) Done() <-chan error {
	return h.done
}

// Cancel requests cooperative cancellation (§5). The worker stops
// after its current event; already-persisted events and already
// emitted tokens are not retracted.
func (h *RunHandle) Cancel() {
	h.cancel()
}

// handleSink forwards every emitted event onto the handle's bounded
// channel. Per §4.6, a full buffer blocks rather than drops.
type handleSink struct {
	events chan *models.Event
}

func (s *handleSink) Emit(event *models.Event) {
	s.events <- event
}
