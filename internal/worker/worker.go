// Package worker implements the per-thread single-consumer loop that
// drives one thread to quiescence: dequeue, dispatch to a processor (or
// the override hook), enqueue produced events, repeat.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/copilotzhq/copilotz/internal/queue"
	"github.com/copilotzhq/copilotz/internal/threads"
	"github.com/copilotzhq/copilotz/pkg/models"
)

// ErrNoProcessor is returned when no processor is registered for an
// event's type and no override hook is configured.
var ErrNoProcessor = errors.New("worker: no processor registered for event type")

// Deps are the dependencies threaded through every Process call:
// {ops, db, thread, context} in spec.md §4.2 terms, generalized to Go's
// explicit-dependency idiom.
type Deps struct {
	Queue       queue.Store
	Threads     threads.Store
	Thread      *models.Thread
	Context     context.Context
	TraceID     string
	Sink        EventSink
	Builder     any // *processors.Builder, passed through to avoid an import cycle
	ToolContext any // shared tool-execution context, passed through
}

// EventSink receives every event the run handle should surface: every
// persisted event on transition into a terminal status, every TOKEN,
// and every ASSET_CREATED (§4.6).
type EventSink interface {
	Emit(event *models.Event)
}

// Processor is the default handler for one event type.
type Processor interface {
	// ShouldProcess lets a processor opt out of an event as a no-op
	// success without running Process.
	ShouldProcess(ctx context.Context, event *models.Event, deps Deps) (bool, error)
	// Process runs the event and returns the events it produces, in
	// order, to be enqueued by the worker.
	Process(ctx context.Context, event *models.Event, deps Deps) ([]queue.EventSpec, error)
}

// OverrideResult discriminates the four outcomes of an override hook
// call (§4.7).
type OverrideResult struct {
	// Unchanged, when true, means: run default; any events already
	// enqueued via the continuation stand.
	Unchanged bool
	// ProducedEvents, when non-nil, replaces the original: mark it
	// overwritten, enqueue these, skip default.
	ProducedEvents []queue.EventSpec
	// Drop, when true, marks the original overwritten and enqueues
	// nothing.
	Drop bool
	// Replacement, when non-nil, substitutes a new event and still
	// runs the default processor against it.
	Replacement *models.Event
}

// OverrideHook receives each non-TOKEN event before its default
// processor runs.
type OverrideHook func(ctx context.Context, event *models.Event, deps Deps) (OverrideResult, error)

// Registry maps event types to their default processors.
type Registry map[models.EventType]Processor

// Worker drives threads to quiescence one at a time.
type Worker struct {
	Queue      queue.Store
	Threads    threads.Store
	Processors Registry
	Override   OverrideHook
	Sink       EventSink
	Logger     *slog.Logger
}

// New constructs a Worker. A nil logger defaults to slog.Default().
func New(q queue.Store, th threads.Store, procs Registry, sink EventSink, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{Queue: q, Threads: th, Processors: procs, Sink: sink, Logger: logger}
}

// RunThread blocks until no pending events remain for threadID, or the
// context is cancelled.
//
//	1. If an event is already processing for the thread, return
//	   immediately — another worker holds it (I2).
//	2. Repeat: dequeue the next pending candidate, mark it processing,
//	   dispatch (override or default processor), enqueue produced
//	   events, persist completed/failed.
//	3. On cancellation, stop after the current event; do not dequeue
//	   the next one.
func (w *Worker) RunThread(ctx context.Context, threadID string, traceID string) error {
	processing, err := w.Queue.GetProcessingQueueItem(ctx, threadID)
	if err != nil {
		return fmt.Errorf("worker: check processing: %w", err)
	}
	if processing != nil {
		return nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		event, err := w.Queue.GetNextPendingQueueItem(ctx, threadID)
		if err != nil {
			return fmt.Errorf("worker: dequeue: %w", err)
		}
		if event == nil {
			return nil
		}

		if event.Status == models.StatusExpired {
			// GetNextPendingQueueItem already transitioned it; nothing
			// further to do for this row (P6).
			continue
		}

		if err := w.Queue.UpdateQueueItemStatus(ctx, event.ID, models.StatusProcessing); err != nil {
			return fmt.Errorf("worker: mark processing: %w", err)
		}

		thread, err := w.Threads.GetThread(ctx, threadID)
		if err != nil {
			w.fail(ctx, event, err)
			return fmt.Errorf("worker: load thread: %w", err)
		}

		deps := Deps{Queue: w.Queue, Threads: w.Threads, Thread: thread, Context: ctx, TraceID: traceID, Sink: w.Sink}

		produced, procErr := w.dispatch(ctx, event, deps)
		if procErr != nil {
			w.fail(ctx, event, procErr)
			return procErr
		}

		for _, spec := range produced {
			if spec.ThreadID == "" {
				spec.ThreadID = threadID
			}
			if spec.TraceID == "" {
				spec.TraceID = traceID
			}
			if spec.ParentEventID == "" {
				spec.ParentEventID = event.ID
			}
			if spec.Type == models.EventAssetCreated {
				// Surfaced on the sink only; never enqueued for processing.
				w.emit(&models.Event{ThreadID: spec.ThreadID, Type: spec.Type, Payload: spec.Payload,
					ParentEventID: spec.ParentEventID, TraceID: spec.TraceID, Status: models.StatusCompleted, Metadata: spec.Metadata})
				continue
			}
			enqueued, err := w.Queue.AddToQueue(ctx, spec)
			if err != nil {
				w.fail(ctx, event, err)
				return fmt.Errorf("worker: enqueue produced event: %w", err)
			}
			w.emit(enqueued)
		}

		finalStatus := models.StatusCompleted
		if current, err := w.Queue.Get(ctx, event.ID); err == nil && current.Status == models.StatusOverwritten {
			// The override hook replaced or dropped it; keep it overwritten.
			finalStatus = models.StatusOverwritten
		} else if err := w.Queue.UpdateQueueItemStatus(ctx, event.ID, models.StatusCompleted); err != nil {
			return fmt.Errorf("worker: mark completed: %w", err)
		}
		event.Status = finalStatus
		w.emit(event)
	}
}

// dispatch runs the override hook (if any and the event is not TOKEN),
// falling back to the registered processor.
func (w *Worker) dispatch(ctx context.Context, event *models.Event, deps Deps) ([]queue.EventSpec, error) {
	if w.Override != nil && event.Type != models.EventToken {
		result, err := w.safeOverride(ctx, event, deps)
		if err != nil {
			// Errors thrown by the hook are swallowed; the default path
			// runs (§4.7).
			w.Logger.Warn("override hook panicked or errored, running default", "error", err, "event_id", event.ID)
		} else {
			switch {
			case result.Drop:
				if err := w.Queue.MarkOverwritten(ctx, event.ID); err != nil {
					return nil, err
				}
				return nil, nil
			case result.ProducedEvents != nil:
				if err := w.Queue.MarkOverwritten(ctx, event.ID); err != nil {
					return nil, err
				}
				return result.ProducedEvents, nil
			case result.Replacement != nil:
				event = result.Replacement
			}
		}
	}

	proc, ok := w.Processors[event.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoProcessor, event.Type)
	}
	should, err := proc.ShouldProcess(ctx, event, deps)
	if err != nil {
		return nil, err
	}
	if !should {
		return nil, nil
	}
	return proc.Process(ctx, event, deps)
}

func (w *Worker) safeOverride(ctx context.Context, event *models.Event, deps Deps) (result OverrideResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("override hook panicked: %v", r)
		}
	}()
	return w.Override(ctx, event, deps)
}

func (w *Worker) fail(ctx context.Context, event *models.Event, cause error) {
	w.Logger.Error("event processing failed", "event_id", event.ID, "thread_id", event.ThreadID, "type", event.Type, "error", cause)
	if err := w.Queue.UpdateQueueItemStatus(ctx, event.ID, models.StatusFailed); err != nil {
		w.Logger.Error("failed to mark event failed", "event_id", event.ID, "error", err)
	}
	event.Status = models.StatusFailed
	w.emit(event)
}

func (w *Worker) emit(event *models.Event) {
	if w.Sink != nil {
		w.Sink.Emit(event)
	}
}
