package runtime

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/copilotzhq/copilotz/internal/queue"
	"github.com/copilotzhq/copilotz/pkg/models"
)

// eventsBufferSize bounds the handle's channel. A full buffer blocks
// the worker goroutine rather than drop events (§4.6).
const eventsBufferSize = 64

// Run enqueues request's initial NEW_MESSAGE and returns a RunHandle
// immediately (§4.6). The thread is driven to quiescence on a
// background goroutine; the handle's Events stream receives every
// persisted/TOKEN/ASSET_CREATED event as it is emitted, and Done
// resolves once the thread has no pending work left or the run is
// cancelled.
func (e *Engine) Run(ctx context.Context, request RunRequest) (*RunHandle, error) {
	thread, err := e.resolveThread(ctx, request.Message.Thread, request.Message.Sender)
	if err != nil {
		return nil, fmt.Errorf("runtime: resolve thread: %w", err)
	}

	spec := queue.EventSpec{
		ThreadID: thread.ID,
		Type:     models.EventNewMessage,
		Payload: models.NewMessagePayload{
			Content:   request.Message.Content,
			Sender:    request.Message.Sender,
			ToolCalls: request.Message.ToolCalls,
			Metadata:  request.Message.Metadata,
		},
	}
	enqueued, err := e.queue.AddToQueue(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("runtime: enqueue initial message: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	handle := &RunHandle{
		QueueID:  enqueued.ID,
		ThreadID: thread.ID,
		Status:   StatusQueued,
		events:   make(chan *models.Event, eventsBufferSize),
		done:     make(chan error, 1),
		cancel:   cancel,
	}

	sink := &handleSink{events: handle.events}
	w := e.newWorker(sink)
	traceID := uuid.NewString()

	go func() {
		defer close(handle.events)
		err := w.RunThread(runCtx, thread.ID, traceID)
		handle.done <- err
		close(handle.done)
	}()

	return handle, nil
}
