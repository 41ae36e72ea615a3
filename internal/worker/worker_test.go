package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copilotzhq/copilotz/internal/queue"
	"github.com/copilotzhq/copilotz/internal/threads"
	"github.com/copilotzhq/copilotz/pkg/models"
)

type stubProcessor struct {
	produce []queue.EventSpec
	err     error
	skip    bool
	calls   int
}

func (p *stubProcessor) ShouldProcess(ctx context.Context, event *models.Event, deps Deps) (bool, error) {
	return !p.skip, nil
}

func (p *stubProcessor) Process(ctx context.Context, event *models.Event, deps Deps) ([]queue.EventSpec, error) {
	p.calls++
	return p.produce, p.err
}

type recordingSink struct {
	events []*models.Event
}

func (s *recordingSink) Emit(event *models.Event) {
	s.events = append(s.events, event)
}

func newTestWorker(t *testing.T, procs Registry, sink EventSink) (*Worker, string) {
	t.Helper()
	q := queue.NewMemoryStore(queue.DefaultConfig())
	th := threads.NewMemoryStore()

	thread := &models.Thread{ID: "thread-1", Participants: []string{"user-1", "Assistant"}, Mode: models.ThreadModeImmediate, Status: models.ThreadStatusActive}
	require.NoError(t, th.CreateThread(context.Background(), thread))

	return New(q, th, procs, sink, nil), thread.ID
}

func TestRunThread_DispatchesToRegisteredProcessorAndCompletesEvent(t *testing.T) {
	proc := &stubProcessor{}
	sink := &recordingSink{}
	w, threadID := newTestWorker(t, Registry{models.EventNewMessage: proc}, sink)

	_, err := w.Queue.AddToQueue(context.Background(), queue.EventSpec{
		ThreadID: threadID,
		Type:     models.EventNewMessage,
		Payload:  models.NewMessagePayload{Content: "hi"},
	})
	require.NoError(t, err)

	require.NoError(t, w.RunThread(context.Background(), threadID, "trace-1"))
	assert.Equal(t, 1, proc.calls)
	require.NotEmpty(t, sink.events)
	assert.Equal(t, models.StatusCompleted, sink.events[len(sink.events)-1].Status)
}

func TestRunThread_ChainsProducedEvents(t *testing.T) {
	second := &stubProcessor{}
	first := &stubProcessor{produce: []queue.EventSpec{{Type: models.EventLLMCall, Payload: models.LLMCallPayload{AgentName: "Assistant"}}}}
	sink := &recordingSink{}
	w, threadID := newTestWorker(t, Registry{
		models.EventNewMessage: first,
		models.EventLLMCall:    second,
	}, sink)

	_, err := w.Queue.AddToQueue(context.Background(), queue.EventSpec{
		ThreadID: threadID,
		Type:     models.EventNewMessage,
		Payload:  models.NewMessagePayload{Content: "hi"},
	})
	require.NoError(t, err)

	require.NoError(t, w.RunThread(context.Background(), threadID, "trace-1"))
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
}

func TestRunThread_MissingProcessorReturnsError(t *testing.T) {
	w, threadID := newTestWorker(t, Registry{}, nil)

	_, err := w.Queue.AddToQueue(context.Background(), queue.EventSpec{
		ThreadID: threadID,
		Type:     models.EventNewMessage,
		Payload:  models.NewMessagePayload{Content: "hi"},
	})
	require.NoError(t, err)

	err = w.RunThread(context.Background(), threadID, "trace-1")
	assert.ErrorIs(t, err, ErrNoProcessor)
}

func TestRunThread_ProcessorErrorMarksEventFailed(t *testing.T) {
	boom := errors.New("boom")
	proc := &stubProcessor{err: boom}
	w, threadID := newTestWorker(t, Registry{models.EventNewMessage: proc}, nil)

	event, err := w.Queue.AddToQueue(context.Background(), queue.EventSpec{
		ThreadID: threadID,
		Type:     models.EventNewMessage,
		Payload:  models.NewMessagePayload{Content: "hi"},
	})
	require.NoError(t, err)

	err = w.RunThread(context.Background(), threadID, "trace-1")
	require.ErrorIs(t, err, boom)

	got, err := w.Queue.Get(context.Background(), event.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, got.Status)
}

func TestDispatch_OverrideDropSkipsDefaultProcessor(t *testing.T) {
	proc := &stubProcessor{}
	w, threadID := newTestWorker(t, Registry{models.EventNewMessage: proc}, nil)
	w.Override = func(ctx context.Context, event *models.Event, deps Deps) (OverrideResult, error) {
		return OverrideResult{Drop: true}, nil
	}

	_, err := w.Queue.AddToQueue(context.Background(), queue.EventSpec{
		ThreadID: threadID,
		Type:     models.EventNewMessage,
		Payload:  models.NewMessagePayload{Content: "hi"},
	})
	require.NoError(t, err)

	require.NoError(t, w.RunThread(context.Background(), threadID, "trace-1"))
	assert.Equal(t, 0, proc.calls)
}

func TestDispatch_OverridePanicFallsBackToDefault(t *testing.T) {
	proc := &stubProcessor{}
	w, threadID := newTestWorker(t, Registry{models.EventNewMessage: proc}, nil)
	w.Override = func(ctx context.Context, event *models.Event, deps Deps) (OverrideResult, error) {
		panic("override exploded")
	}

	_, err := w.Queue.AddToQueue(context.Background(), queue.EventSpec{
		ThreadID: threadID,
		Type:     models.EventNewMessage,
		Payload:  models.NewMessagePayload{Content: "hi"},
	})
	require.NoError(t, err)

	require.NoError(t, w.RunThread(context.Background(), threadID, "trace-1"))
	assert.Equal(t, 1, proc.calls)
}
