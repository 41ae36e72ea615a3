package queue

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/copilotzhq/copilotz/pkg/models"
)

func newMockStore(t *testing.T) (*sqlStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS copilotz_queue").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS copilotz_queue_thread_status").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS copilotz_queue_pending_order").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS copilotz_queue_status_expires").WillReturnResult(sqlmock.NewResult(0, 0))

	store, err := newSQLStore(db, dollarPlaceholder, DefaultConfig())
	require.NoError(t, err)
	return store, mock
}

func TestSQLStore_AddToQueue_Inserts(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectExec("UPDATE copilotz_queue SET status").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO copilotz_queue").WillReturnResult(sqlmock.NewResult(1, 1))

	event, err := store.AddToQueue(ctx, EventSpec{
		ThreadID: "thread-1",
		Type:     models.EventNewMessage,
		Payload:  models.NewMessagePayload{Content: "hi"},
	})
	require.NoError(t, err)
	require.Equal(t, models.StatusPending, event.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_GetNextPendingQueueItem_SkipsExpired(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	now := time.Now()
	expiredRow := sqlmock.NewRows([]string{
		"id", "thread_id", "event_type", "payload", "parent_event_id", "trace_id",
		"priority", "ttl_ms", "expires_at", "status", "metadata", "created_at", "updated_at",
	}).AddRow("ev-expired", "thread-1", "NEW_MESSAGE", `{"content":"x"}`, nil, nil,
		0, 1, now.Add(-time.Hour), "pending", nil, now.Add(-time.Hour), now.Add(-time.Hour))

	liveRow := sqlmock.NewRows([]string{
		"id", "thread_id", "event_type", "payload", "parent_event_id", "trace_id",
		"priority", "ttl_ms", "expires_at", "status", "metadata", "created_at", "updated_at",
	}).AddRow("ev-live", "thread-1", "NEW_MESSAGE", `{"content":"y"}`, nil, nil,
		0, 0, nil, "pending", nil, now, now)

	mock.ExpectQuery("SELECT .* FROM copilotz_queue WHERE thread_id").WillReturnRows(expiredRow)
	mock.ExpectExec("UPDATE copilotz_queue SET status").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT .* FROM copilotz_queue WHERE thread_id").WillReturnRows(liveRow)

	event, err := store.GetNextPendingQueueItem(ctx, "thread-1")
	require.NoError(t, err)
	require.NotNil(t, event)
	require.Equal(t, "ev-live", event.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
