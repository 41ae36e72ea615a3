package queue

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/copilotzhq/copilotz/pkg/models"
)

// placeholder builds the Nth bind placeholder for a dialect: "$1" for
// Postgres/CockroachDB, "?" for SQLite.
type placeholderFunc func(n int) string

func dollarPlaceholder(n int) string { return fmt.Sprintf("$%d", n) }
func questionPlaceholder(int) string { return "?" }

// sqlStore is the shared implementation behind PostgresStore and
// SQLiteStore; only the driver name, placeholder style, and a handful
// of type-affinity quirks differ between the two, mirroring how
// jobs.CockroachStore wraps database/sql directly rather than an ORM.
type sqlStore struct {
	db          *sql.DB
	ph          placeholderFunc
	cfg         Config
	upsertParam string // "ON CONFLICT" vs "ON CONFLICT" -- kept for clarity/extension
}

const queueSchema = `
CREATE TABLE IF NOT EXISTS copilotz_queue (
	id TEXT PRIMARY KEY,
	thread_id TEXT NOT NULL,
	event_type TEXT NOT NULL,
	payload TEXT,
	parent_event_id TEXT,
	trace_id TEXT,
	priority INTEGER NOT NULL DEFAULT 0,
	ttl_ms BIGINT NOT NULL DEFAULT 0,
	expires_at TIMESTAMP,
	status TEXT NOT NULL,
	metadata TEXT,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
`

// indexStatements mirrors the logical index set spec.md §6 requires:
// (threadId, status); a covering pending-order index on (threadId,
// priority desc, createdAt asc, id asc) for pending rows; and
// (status, expiresAt) for the sweeper.
var indexStatements = []string{
	`CREATE INDEX IF NOT EXISTS copilotz_queue_thread_status ON copilotz_queue (thread_id, status)`,
	`CREATE INDEX IF NOT EXISTS copilotz_queue_pending_order ON copilotz_queue (thread_id, priority DESC, created_at ASC, id ASC) WHERE status = 'pending'`,
	`CREATE INDEX IF NOT EXISTS copilotz_queue_status_expires ON copilotz_queue (status, expires_at)`,
}

func newSQLStore(db *sql.DB, ph placeholderFunc, cfg Config) (*sqlStore, error) {
	cfg.sanitize()
	if _, err := db.Exec(queueSchema); err != nil {
		return nil, fmt.Errorf("queue: create schema: %w", err)
	}
	for _, stmt := range indexStatements {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("queue: create index: %w", err)
		}
	}
	return &sqlStore{db: db, ph: ph, cfg: cfg}, nil
}

func (s *sqlStore) ps(args ...int) []string {
	out := make([]string, len(args))
	for i, n := range args {
		out[i] = s.ph(n)
	}
	return out
}

func (s *sqlStore) AddToQueue(ctx context.Context, spec EventSpec) (*models.Event, error) {
	if spec.ThreadID == "" {
		return nil, ErrThreadRequired
	}
	now := s.cfg.Now()
	if _, err := s.sweep(ctx, now); err != nil {
		return nil, err
	}

	id := spec.ID
	if id == "" {
		id = uuid.NewString()
	}
	status := spec.Status
	if status == "" {
		status = models.StatusPending
	}
	expiresAt := spec.ExpiresAt
	if expiresAt == nil && spec.TTLMs > 0 {
		t := now.Add(time.Duration(spec.TTLMs) * time.Millisecond)
		expiresAt = &t
	}
	payloadJSON, err := encodePayload(spec.Payload)
	if err != nil {
		return nil, err
	}
	metaJSON, err := encodeMetadata(spec.Metadata)
	if err != nil {
		return nil, err
	}

	cols := []string{"id", "thread_id", "event_type", "payload", "parent_event_id", "trace_id",
		"priority", "ttl_ms", "expires_at", "status", "metadata", "created_at", "updated_at"}
	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = s.ph(i + 1)
	}
	query := fmt.Sprintf(
		"INSERT INTO copilotz_queue (%s) VALUES (%s)",
		strings.Join(cols, ", "), strings.Join(placeholders, ", "),
	)
	_, err = s.db.ExecContext(ctx, query,
		id, spec.ThreadID, string(spec.Type), string(payloadJSON), nullableString(spec.ParentEventID),
		nullableString(spec.TraceID), spec.Priority, spec.TTLMs, nullTime(expiresAt), string(status),
		string(metaJSON), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("queue: insert event: %w", err)
	}
	return &models.Event{
		ID: id, ThreadID: spec.ThreadID, Type: spec.Type, Payload: spec.Payload,
		ParentEventID: spec.ParentEventID, TraceID: spec.TraceID, Priority: spec.Priority,
		TTLMs: spec.TTLMs, ExpiresAt: expiresAt, Status: status, Metadata: spec.Metadata,
		CreatedAt: now, UpdatedAt: now,
	}, nil
}

func (s *sqlStore) GetProcessingQueueItem(ctx context.Context, threadID string) (*models.Event, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM copilotz_queue WHERE thread_id = %s AND status = %s LIMIT 1",
		selectColumns, s.ph(1), s.ph(2),
	)
	row := s.db.QueryRowContext(ctx, query, threadID, string(models.StatusProcessing))
	event, err := scanEvent(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return event, nil
}

func (s *sqlStore) GetNextPendingQueueItem(ctx context.Context, threadID string) (*models.Event, error) {
	now := s.cfg.Now()
	for {
		query := fmt.Sprintf(
			"SELECT %s FROM copilotz_queue WHERE thread_id = %s AND status = %s "+
				"ORDER BY priority DESC, created_at ASC, id ASC LIMIT 1",
			selectColumns, s.ph(1), s.ph(2),
		)
		row := s.db.QueryRowContext(ctx, query, threadID, string(models.StatusPending))
		event, err := scanEvent(row)
		if err != nil {
			if err == sql.ErrNoRows {
				return nil, nil
			}
			return nil, err
		}
		if event == nil {
			return nil, nil
		}
		if event.Expired(now) {
			if err := s.UpdateQueueItemStatus(ctx, event.ID, models.StatusExpired); err != nil {
				return nil, err
			}
			continue
		}
		return event, nil
	}
}

func (s *sqlStore) UpdateQueueItemStatus(ctx context.Context, eventID string, status models.EventStatus) error {
	query := fmt.Sprintf(
		"UPDATE copilotz_queue SET status = %s, updated_at = %s WHERE id = %s",
		s.ph(1), s.ph(2), s.ph(3),
	)
	res, err := s.db.ExecContext(ctx, query, string(status), s.cfg.Now(), eventID)
	if err != nil {
		return fmt.Errorf("queue: update status: %w", err)
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrEventNotFound
	}
	return nil
}

func (s *sqlStore) MarkOverwritten(ctx context.Context, eventID string) error {
	return s.UpdateQueueItemStatus(ctx, eventID, models.StatusOverwritten)
}

func (s *sqlStore) Get(ctx context.Context, eventID string) (*models.Event, error) {
	query := fmt.Sprintf("SELECT %s FROM copilotz_queue WHERE id = %s", selectColumns, s.ph(1))
	row := s.db.QueryRowContext(ctx, query, eventID)
	event, err := scanEvent(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	if event == nil {
		return nil, ErrEventNotFound
	}
	return event, nil
}

func (s *sqlStore) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := s.cfg.Now().Add(-olderThan)
	query := fmt.Sprintf(
		"DELETE FROM copilotz_queue WHERE updated_at < %s AND status IN (%s, %s, %s, %s)",
		s.ph(1), s.ph(2), s.ph(3), s.ph(4), s.ph(5),
	)
	res, err := s.db.ExecContext(ctx, query, cutoff,
		string(models.StatusCompleted), string(models.StatusFailed),
		string(models.StatusExpired), string(models.StatusOverwritten),
	)
	if err != nil {
		return 0, fmt.Errorf("queue: prune: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// sweep marks up to cfg.SweepBatchSize long-expired pending rows as
// expired, bounding the cost of an insert under a large backlog.
func (s *sqlStore) sweep(ctx context.Context, now time.Time) (int64, error) {
	var query string
	if s.cfg.SweepBatchSize <= 0 {
		return 0, nil
	}
	query = fmt.Sprintf(
		"UPDATE copilotz_queue SET status = %s, updated_at = %s "+
			"WHERE id IN (SELECT id FROM copilotz_queue "+
			"WHERE status = %s AND expires_at IS NOT NULL AND expires_at <= %s LIMIT %d)",
		s.ph(1), s.ph(2), s.ph(3), s.ph(4), s.cfg.SweepBatchSize,
	)
	res, err := s.db.ExecContext(ctx, query, string(models.StatusExpired), now, string(models.StatusPending), now)
	if err != nil {
		return 0, fmt.Errorf("queue: sweep: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

const selectColumns = "id, thread_id, event_type, payload, parent_event_id, trace_id, " +
	"priority, ttl_ms, expires_at, status, metadata, created_at, updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*models.Event, error) {
	var (
		id, threadID, eventType, status         string
		payloadRaw, metaRaw                     sql.NullString
		parentEventID, traceID                  sql.NullString
		priority                                int
		ttlMs                                   int64
		expiresAt                               sql.NullTime
		createdAt, updatedAt                     time.Time
	)
	err := row.Scan(&id, &threadID, &eventType, &payloadRaw, &parentEventID, &traceID,
		&priority, &ttlMs, &expiresAt, &status, &metaRaw, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	payload, err := decodePayload(models.EventType(eventType), []byte(payloadRaw.String))
	if err != nil {
		return nil, err
	}
	metadata, err := decodeMetadata([]byte(metaRaw.String))
	if err != nil {
		return nil, err
	}
	event := &models.Event{
		ID: id, ThreadID: threadID, Type: models.EventType(eventType), Payload: payload,
		ParentEventID: parentEventID.String, TraceID: traceID.String, Priority: priority,
		TTLMs: ttlMs, Status: models.EventStatus(status), Metadata: metadata,
		CreatedAt: createdAt, UpdatedAt: updatedAt,
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		event.ExpiresAt = &t
	}
	return event, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
