package threads

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copilotzhq/copilotz/pkg/models"
)

func TestMemoryStore_CreateAndGetThread(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	thread := &models.Thread{Name: "demo", Participants: []string{"user-1", "agent-a"}}
	require.NoError(t, store.CreateThread(ctx, thread))
	assert.NotEmpty(t, thread.ID)

	got, err := store.GetThread(ctx, thread.ID)
	require.NoError(t, err)
	assert.Equal(t, "demo", got.Name)
	assert.Equal(t, models.ThreadStatusActive, got.Status)
}

func TestMemoryStore_GetThread_NotFound(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.GetThread(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrThreadNotFound)
}

func TestMemoryStore_AppendMessage_IsOrderedAndAppendOnly(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	thread := &models.Thread{Name: "demo"}
	require.NoError(t, store.CreateThread(ctx, thread))

	m1 := &models.Message{ThreadID: thread.ID, SenderType: models.SenderUser, Content: "hi"}
	m2 := &models.Message{ThreadID: thread.ID, SenderType: models.SenderAgent, Content: "hello"}
	require.NoError(t, store.AppendMessage(ctx, m1))
	require.NoError(t, store.AppendMessage(ctx, m2))

	history, err := store.GetHistory(ctx, thread.ID, ListOptions{})
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "hi", history[0].Content)
	assert.Equal(t, "hello", history[1].Content)
}

func TestMemoryStore_GetHistory_LimitTakesMostRecent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	thread := &models.Thread{Name: "demo"}
	require.NoError(t, store.CreateThread(ctx, thread))
	for i := 0; i < 5; i++ {
		require.NoError(t, store.AppendMessage(ctx, &models.Message{ThreadID: thread.ID, SenderType: models.SenderUser, Content: string(rune('a' + i))}))
	}
	history, err := store.GetHistory(ctx, thread.ID, ListOptions{Limit: 2})
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "d", history[0].Content)
	assert.Equal(t, "e", history[1].Content)
}

func TestMemoryStore_ChildThreads(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	parent := &models.Thread{Name: "parent"}
	require.NoError(t, store.CreateThread(ctx, parent))
	child := &models.Thread{Name: "child", ParentID: parent.ID}
	require.NoError(t, store.CreateThread(ctx, child))

	children, err := store.GetChildThreads(ctx, parent.ID)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, child.ID, children[0].ID)
}
