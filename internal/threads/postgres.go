package threads

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/copilotzhq/copilotz/pkg/models"
)

const threadsSchema = `
CREATE TABLE IF NOT EXISTS copilotz_threads (
	id TEXT PRIMARY KEY,
	external_id TEXT UNIQUE,
	name TEXT,
	description TEXT,
	participants TEXT NOT NULL,
	mode TEXT NOT NULL,
	status TEXT NOT NULL,
	summary TEXT,
	parent_id TEXT,
	metadata TEXT,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS copilotz_messages (
	id TEXT PRIMARY KEY,
	thread_id TEXT NOT NULL,
	sender_id TEXT,
	sender_type TEXT NOT NULL,
	sender_user TEXT,
	content TEXT,
	tool_calls TEXT,
	tool_call_id TEXT,
	metadata TEXT,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS copilotz_messages_thread ON copilotz_messages (thread_id, created_at ASC);
CREATE INDEX IF NOT EXISTS copilotz_threads_parent ON copilotz_threads (parent_id);
`

// PostgresStore is a Store backed by Postgres/CockroachDB via lib/pq,
// modeled on jobs.CockroachStore's parameterized-SQL CRUD style.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStoreFromDSN opens a connection pool and ensures the
// threads/messages schema exists.
func NewPostgresStoreFromDSN(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("threads: open postgres: %w", err)
	}
	if _, err := db.Exec(threadsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("threads: create schema: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() error { return s.db.Close() }

// CreateThread implements Store.
func (s *PostgresStore) CreateThread(ctx context.Context, thread *models.Thread) error {
	if thread.ID == "" {
		thread.ID = uuid.NewString()
	}
	now := time.Now()
	if thread.CreatedAt.IsZero() {
		thread.CreatedAt = now
	}
	thread.UpdatedAt = now
	if thread.Status == "" {
		thread.Status = models.ThreadStatusActive
	}
	if thread.Mode == "" {
		thread.Mode = models.ThreadModeImmediate
	}
	participants, err := json.Marshal(thread.Participants)
	if err != nil {
		return err
	}
	meta, err := json.Marshal(thread.Metadata)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO copilotz_threads
			(id, external_id, name, description, participants, mode, status, summary, parent_id, metadata, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		thread.ID, nullableString(thread.ExternalID), thread.Name, thread.Description,
		string(participants), string(thread.Mode), string(thread.Status), thread.Summary,
		nullableString(thread.ParentID), string(meta), thread.CreatedAt, thread.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("threads: insert thread: %w", err)
	}
	return nil
}

// GetThread implements Store.
func (s *PostgresStore) GetThread(ctx context.Context, id string) (*models.Thread, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, external_id, name, description, participants, mode, status, summary, parent_id, metadata, created_at, updated_at
		FROM copilotz_threads WHERE id = $1`, id)
	return scanThread(row)
}

// GetThreadByExternalID implements Store.
func (s *PostgresStore) GetThreadByExternalID(ctx context.Context, externalID string) (*models.Thread, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, external_id, name, description, participants, mode, status, summary, parent_id, metadata, created_at, updated_at
		FROM copilotz_threads WHERE external_id = $1`, externalID)
	return scanThread(row)
}

// UpdateThread implements Store.
func (s *PostgresStore) UpdateThread(ctx context.Context, thread *models.Thread) error {
	thread.UpdatedAt = time.Now()
	participants, err := json.Marshal(thread.Participants)
	if err != nil {
		return err
	}
	meta, err := json.Marshal(thread.Metadata)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE copilotz_threads SET external_id=$1, name=$2, description=$3, participants=$4,
			mode=$5, status=$6, summary=$7, parent_id=$8, metadata=$9, updated_at=$10
		WHERE id=$11`,
		nullableString(thread.ExternalID), thread.Name, thread.Description, string(participants),
		string(thread.Mode), string(thread.Status), thread.Summary, nullableString(thread.ParentID),
		string(meta), thread.UpdatedAt, thread.ID,
	)
	if err != nil {
		return fmt.Errorf("threads: update thread: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrThreadNotFound
	}
	return nil
}

// AppendMessage implements Store.
func (s *PostgresStore) AppendMessage(ctx context.Context, message *models.Message) error {
	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}
	toolCalls, err := json.Marshal(message.ToolCalls)
	if err != nil {
		return err
	}
	meta, err := json.Marshal(message.Metadata)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO copilotz_messages
			(id, thread_id, sender_id, sender_type, sender_user, content, tool_calls, tool_call_id, metadata, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		message.ID, message.ThreadID, message.SenderID, string(message.SenderType), nullableString(message.SenderUser),
		message.Content, string(toolCalls), nullableString(message.ToolCallID), string(meta), message.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("threads: insert message: %w", err)
	}
	return nil
}

// GetHistory implements Store.
func (s *PostgresStore) GetHistory(ctx context.Context, threadID string, opts ListOptions) ([]*models.Message, error) {
	query := `
		SELECT id, thread_id, sender_id, sender_type, sender_user, content, tool_calls, tool_call_id, metadata, created_at
		FROM copilotz_messages WHERE thread_id = $1`
	args := []any{threadID}
	if opts.Before != "" {
		query += ` AND created_at < (SELECT created_at FROM copilotz_messages WHERE id = $2)`
		args = append(args, opts.Before)
	}
	if opts.Limit > 0 {
		// Keep the most recent Limit messages, returned oldest first.
		query = fmt.Sprintf(`SELECT * FROM (%s ORDER BY created_at DESC LIMIT %d) recent ORDER BY created_at ASC`, query, opts.Limit)
	} else {
		query += ` ORDER BY created_at ASC`
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("threads: query history: %w", err)
	}
	defer rows.Close()

	var out []*models.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// GetChildThreads implements Store.
func (s *PostgresStore) GetChildThreads(ctx context.Context, threadID string) ([]*models.Thread, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, external_id, name, description, participants, mode, status, summary, parent_id, metadata, created_at, updated_at
		FROM copilotz_threads WHERE parent_id = $1 ORDER BY created_at ASC`, threadID)
	if err != nil {
		return nil, fmt.Errorf("threads: query children: %w", err)
	}
	defer rows.Close()

	var out []*models.Thread
	for rows.Next() {
		t, err := scanThread(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanThread(row rowScanner) (*models.Thread, error) {
	var (
		id, name, description, mode, status, summary string
		externalID, parentID                         sql.NullString
		participantsRaw, metaRaw                      sql.NullString
		createdAt, updatedAt                          time.Time
	)
	err := row.Scan(&id, &externalID, &name, &description, &participantsRaw, &mode, &status,
		&summary, &parentID, &metaRaw, &createdAt, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrThreadNotFound
		}
		return nil, err
	}
	var participants []string
	if participantsRaw.Valid && participantsRaw.String != "" {
		if err := json.Unmarshal([]byte(participantsRaw.String), &participants); err != nil {
			return nil, err
		}
	}
	var meta map[string]any
	if metaRaw.Valid && metaRaw.String != "" {
		if err := json.Unmarshal([]byte(metaRaw.String), &meta); err != nil {
			return nil, err
		}
	}
	return &models.Thread{
		ID: id, ExternalID: externalID.String, Name: name, Description: description,
		Participants: participants, Mode: models.ThreadMode(mode), Status: models.ThreadStatus(status),
		Summary: summary, ParentID: parentID.String, Metadata: meta, CreatedAt: createdAt, UpdatedAt: updatedAt,
	}, nil
}

func scanMessage(row rowScanner) (*models.Message, error) {
	var (
		id, threadID, senderID, senderType, content string
		senderUser, toolCallID                      sql.NullString
		toolCallsRaw, metaRaw                       sql.NullString
		createdAt                                   time.Time
	)
	err := row.Scan(&id, &threadID, &senderID, &senderType, &senderUser, &content,
		&toolCallsRaw, &toolCallID, &metaRaw, &createdAt)
	if err != nil {
		return nil, err
	}
	var toolCalls []models.ToolCallDescriptor
	if toolCallsRaw.Valid && toolCallsRaw.String != "" && toolCallsRaw.String != "null" {
		if err := json.Unmarshal([]byte(toolCallsRaw.String), &toolCalls); err != nil {
			return nil, err
		}
	}
	var meta map[string]any
	if metaRaw.Valid && metaRaw.String != "" {
		if err := json.Unmarshal([]byte(metaRaw.String), &meta); err != nil {
			return nil, err
		}
	}
	return &models.Message{
		ID: id, ThreadID: threadID, SenderID: senderID, SenderType: models.SenderType(senderType),
		SenderUser: senderUser.String, Content: content, ToolCalls: toolCalls, ToolCallID: toolCallID.String,
		Metadata: meta, CreatedAt: createdAt,
	}, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
