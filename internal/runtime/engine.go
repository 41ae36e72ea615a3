package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/copilotzhq/copilotz/internal/processors"
	"github.com/copilotzhq/copilotz/internal/queue"
	"github.com/copilotzhq/copilotz/internal/threads"
	"github.com/copilotzhq/copilotz/internal/tooling"
	"github.com/copilotzhq/copilotz/internal/worker"
	"github.com/copilotzhq/copilotz/pkg/models"
)

// Config wires every dependency an Engine needs: the durable queue, the
// thread/message store, the agent/tool catalog, and the configured LLM
// providers. Catalog.Registry should already have native.Register
// called against it (with a runtime.Dispatcher for the thread-aware
// tools) before it is handed to New.
type Config struct {
	Queue     queue.Store
	Threads   threads.Store
	Catalog   processors.Catalog
	Providers processors.Providers
	Override  worker.OverrideHook
	Logger    *slog.Logger
}

// Engine is the long-lived object a host process builds once and calls
// Run against per inbound message. It also implements the queue/thread
// side of native.Dispatcher via the Dispatcher proxy.
type Engine struct {
	queue      queue.Store
	threads    threads.Store
	catalog    processors.Catalog
	processors worker.Registry
	override   worker.OverrideHook
	logger     *slog.Logger
}

// New constructs an Engine from cfg. A nil Logger defaults to
// slog.Default().
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	builder := processors.NewBuilder(cfg.Catalog)
	executor := tooling.NewExecutor(cfg.Catalog.Registry)

	procs := worker.Registry{
		models.EventNewMessage: &processors.NewMessage{AssetDB: cfg.Catalog.AssetDB, Builder: builder, Catalog: cfg.Catalog},
		models.EventLLMCall:    &processors.LLMCall{Providers: cfg.Providers},
		models.EventToolCall:   &processors.ToolCall{Executor: executor, AssetDB: cfg.Catalog.AssetDB},
	}

	return &Engine{
		queue:      cfg.Queue,
		threads:    cfg.Threads,
		catalog:    cfg.Catalog,
		processors: procs,
		override:   cfg.Override,
		logger:     logger,
	}
}

// Catalog returns the agent/tool catalog the engine was built with.
func (e *Engine) Catalog() processors.Catalog {
	return e.catalog
}

// newWorker builds a fresh Worker bound to sink, so that each Run call
// (and each internal dispatcher-driven sub-thread) gets its own event
// stream without the processors/registry needing to be rebuilt.
func (e *Engine) newWorker(sink worker.EventSink) *worker.Worker {
	w := worker.New(e.queue, e.threads, e.processors, sink, e.logger)
	w.Override = e.override
	return w
}

// resolveThread finds or creates the thread a RunRequest targets, per
// §6: an explicit id or externalId resolves an existing thread; a bare
// ThreadRef with participants/name creates a new one.
func (e *Engine) resolveThread(ctx context.Context, ref *models.ThreadRef, sender models.Sender) (*models.Thread, error) {
	if ref != nil && ref.ID != "" {
		return e.threads.GetThread(ctx, ref.ID)
	}
	if ref != nil && ref.ExternalID != "" {
		thread, err := e.threads.GetThreadByExternalID(ctx, ref.ExternalID)
		if err == nil {
			return thread, nil
		}
		if !errors.Is(err, threads.ErrThreadNotFound) {
			return nil, err
		}
	}

	thread := &models.Thread{
		ID:     uuid.NewString(),
		Mode:   models.ThreadModeImmediate,
		Status: models.ThreadStatusActive,
	}
	if ref != nil {
		thread.ExternalID = ref.ExternalID
		thread.Name = ref.Name
		thread.Description = ref.Description
		thread.Participants = append(thread.Participants, ref.Participants...)
		thread.Metadata = ref.Metadata
	}
	senderName := senderName(sender)
	if senderName != "" && !thread.HasParticipant(senderName) {
		thread.Participants = append(thread.Participants, senderName)
	}
	if (ref == nil || len(ref.Participants) == 0) && sender.Type == models.SenderUser {
		for name := range e.catalog.Agents {
			if !thread.HasParticipant(name) {
				thread.Participants = append(thread.Participants, name)
			}
		}
	}
	if err := e.threads.CreateThread(ctx, thread); err != nil {
		return nil, fmt.Errorf("runtime: create thread: %w", err)
	}
	return thread, nil
}

func senderName(s models.Sender) string {
	if s.Name != "" {
		return s.Name
	}
	return s.ID
}

// createChildThread implements the queue/thread half of
// native.Dispatcher.CreateChildThread.
func (e *Engine) createChildThread(ctx context.Context, parentThreadID string, participants []models.Sender) (string, error) {
	names := make([]string, 0, len(participants))
	for _, p := range participants {
		names = append(names, senderName(p))
	}
	thread := &models.Thread{
		ID:           uuid.NewString(),
		ParentID:     parentThreadID,
		Participants: names,
		Mode:         models.ThreadModeImmediate,
		Status:       models.ThreadStatusActive,
	}
	if err := e.threads.CreateThread(ctx, thread); err != nil {
		return "", err
	}
	return thread.ID, nil
}

// sendAndAwaitReply enqueues content as a system message into
// threadID, drives the thread to quiescence synchronously, and returns
// the content of the first agent message in the thread's history (the
// target agent's reply in a freshly created child thread). Used by ask_question
// (§4.5) to implement its blocking semantics: the calling tool
// execution is itself running inside a worker loop, so this recurses
// into a second, independent RunThread drive for the child thread.
func (e *Engine) sendAndAwaitReply(ctx context.Context, threadID, content string) (string, error) {
	if _, err := e.threads.GetThread(ctx, threadID); err != nil {
		return "", err
	}

	sink := &discardSink{}
	w := e.newWorker(sink)

	_, err := e.queue.AddToQueue(ctx, queue.EventSpec{
		ThreadID: threadID,
		Type:     models.EventNewMessage,
		Payload: models.NewMessagePayload{
			Content: content,
			Sender:  models.Sender{Type: models.SenderSystem, Name: "system"},
		},
	})
	if err != nil {
		return "", fmt.Errorf("runtime: enqueue question: %w", err)
	}

	if err := w.RunThread(ctx, threadID, uuid.NewString()); err != nil {
		return "", fmt.Errorf("runtime: drive child thread: %w", err)
	}

	history, err := e.threads.GetHistory(ctx, threadID, threads.ListOptions{})
	if err != nil {
		return "", err
	}
	for _, m := range history {
		if m.SenderType == models.SenderAgent {
			return m.Content, nil
		}
	}
	return "", fmt.Errorf("runtime: child thread %s produced no reply", threadID)
}

// archiveThread implements native.Dispatcher.ArchiveThread.
func (e *Engine) archiveThread(ctx context.Context, threadID, summary string) error {
	thread, err := e.threads.GetThread(ctx, threadID)
	if err != nil {
		return err
	}
	thread.Status = models.ThreadStatusArchived
	thread.Summary = summary
	return e.threads.UpdateThread(ctx, thread)
}

// scheduleTask implements native.Dispatcher.ScheduleTask. See the
// Dispatcher.ScheduleTask doc comment for the delayed-dispatch caveat.
func (e *Engine) scheduleTask(ctx context.Context, threadID, runAt, content string) error {
	if _, err := parseRunAt(runAt); err != nil {
		return fmt.Errorf("runtime: invalid runAt %q: %w", runAt, err)
	}
	_, err := e.queue.AddToQueue(ctx, queue.EventSpec{
		ThreadID: threadID,
		Type:     models.EventNewMessage,
		Payload: models.NewMessagePayload{
			Content:  content,
			Sender:   models.Sender{Type: models.SenderSystem, Name: "scheduler"},
			Metadata: map[string]any{"scheduledFor": runAt},
		},
	})
	return err
}

// discardSink drops every event; used for the side-channel worker
// drives performed by dispatcher operations, whose caller only cares
// about the final persisted state, not the token/asset stream.
type discardSink struct{}

func (discardSink) Emit(*models.Event) {}
