package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/copilotzhq/copilotz/internal/tooling/native"
	"github.com/copilotzhq/copilotz/pkg/models"
)

// Dispatcher adapts an Engine to native.Dispatcher. It is constructed
// before the Engine it will forward to, since the engine's registry
// must already reference it at native.Register time; callers call
// Bind once the Engine exists.
//
//	d := runtime.NewDispatcher()
//	reg := tooling.NewRegistry()
//	native.Register(reg, d)
//	engine := runtime.New(runtime.Config{Catalog: processors.Catalog{Registry: reg, ...}, ...})
//	d.Bind(engine)
type Dispatcher struct {
	engine *Engine
}

var _ native.Dispatcher = (*Dispatcher)(nil)

// NewDispatcher returns an unbound Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Bind attaches the dispatcher to engine. Must be called before any
// thread-aware native tool executes.
func (d *Dispatcher) Bind(engine *Engine) {
	d.engine = engine
}

func (d *Dispatcher) require() error {
	if d.engine == nil {
		return fmt.Errorf("runtime: dispatcher used before Bind")
	}
	return nil
}

// CreateChildThread creates threadID's child with the given
// participants and returns its id.
func (d *Dispatcher) CreateChildThread(parentThreadID string, participants []models.Sender) (string, error) {
	if err := d.require(); err != nil {
		return "", err
	}
	return d.engine.createChildThread(context.Background(), parentThreadID, participants)
}

// SendAndAwaitReply enqueues content into threadID and blocks the
// calling goroutine (a tool execution, itself running inside a
// worker loop) until the thread drains, returning the first agent
// message's content.
func (d *Dispatcher) SendAndAwaitReply(threadID, content string) (string, error) {
	if err := d.require(); err != nil {
		return "", err
	}
	return d.engine.sendAndAwaitReply(context.Background(), threadID, content)
}

// ArchiveThread marks threadID archived with summary.
func (d *Dispatcher) ArchiveThread(threadID, summary string) error {
	if err := d.require(); err != nil {
		return err
	}
	return d.engine.archiveThread(context.Background(), threadID, summary)
}

// ScheduleTask enqueues a NEW_MESSAGE for threadID carrying runAt as
// metadata. The queue has no delayed-dispatch primitive (only TTL
// expiry), so the message is enqueued immediately with
// metadata.scheduledFor recording the caller's intent; a future
// sweep-based scheduler would consume that field instead of running it
// inline (see DESIGN.md).
func (d *Dispatcher) ScheduleTask(threadID, runAt, content string) error {
	if err := d.require(); err != nil {
		return err
	}
	return d.engine.scheduleTask(context.Background(), threadID, runAt, content)
}

func parseRunAt(runAt string) (time.Time, error) {
	return time.Parse(time.RFC3339, runAt)
}
