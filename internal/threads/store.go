// Package threads persists Thread and Message rows: the conversation
// scope and its append-only log, modeled on the teacher's
// sessions.Store interface and jobs.CockroachStore's SQL pattern.
package threads

import (
	"context"
	"errors"

	"github.com/copilotzhq/copilotz/pkg/models"
)

// ErrThreadNotFound is returned when a thread lookup fails.
var ErrThreadNotFound = errors.New("threads: thread not found")

// ErrMessageNotFound is returned when a message lookup fails.
var ErrMessageNotFound = errors.New("threads: message not found")

// ListOptions bounds a message history query.
type ListOptions struct {
	Limit int
	// Before restricts results to messages created strictly before this
	// message id's creation time, for pagination.
	Before string
}

// Store persists threads and their messages.
type Store interface {
	// CreateThread inserts a new thread. If thread.ExternalID is set
	// and a row with that external id already exists, GetThreadByExternalID
	// should be used instead by the caller.
	CreateThread(ctx context.Context, thread *models.Thread) error
	// GetThread returns a thread by id.
	GetThread(ctx context.Context, id string) (*models.Thread, error)
	// GetThreadByExternalID returns a thread by its caller-assigned
	// external id, or ErrThreadNotFound.
	GetThreadByExternalID(ctx context.Context, externalID string) (*models.Thread, error)
	// UpdateThread persists mutations to participants, status, summary,
	// or metadata. Threads are never deleted by the core.
	UpdateThread(ctx context.Context, thread *models.Thread) error
	// AppendMessage inserts a message. Messages are append-only (I6).
	AppendMessage(ctx context.Context, message *models.Message) error
	// GetHistory returns a thread's messages in creation order, most
	// recent last, bounded by opts.
	GetHistory(ctx context.Context, threadID string, opts ListOptions) ([]*models.Message, error)
	// GetChildThreads returns threads whose ParentID is threadID —
	// the forward index that replaces materializing a parent-thread
	// ancestry graph (§9 design note).
	GetChildThreads(ctx context.Context, threadID string) ([]*models.Thread, error)
}
