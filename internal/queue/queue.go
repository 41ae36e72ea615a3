// Package queue implements the durable event queue: a per-thread
// pending-sorted store with TTL/expiry handling and a bounded-batch
// sweep, backed by memory, SQLite, or Postgres/CockroachDB.
package queue

import (
	"context"
	"errors"
	"time"

	"github.com/copilotzhq/copilotz/pkg/models"
)

// ErrEventNotFound is returned by Get when no event with the given id
// exists.
var ErrEventNotFound = errors.New("queue: event not found")

// ErrThreadRequired is returned when an EventSpec has no thread id
// (I1: every pending or processing event must reference an existing
// thread).
var ErrThreadRequired = errors.New("queue: event requires a thread id")

// EventSpec is the caller-supplied shape for AddToQueue; Status,
// ExpiresAt, CreatedAt, UpdatedAt, and ID are derived unless the caller
// sets them explicitly.
type EventSpec struct {
	ID            string
	ThreadID      string
	Type          models.EventType
	Payload       any
	ParentEventID string
	TraceID       string
	Priority      int
	TTLMs         int64
	ExpiresAt     *time.Time
	Status        models.EventStatus
	Metadata      map[string]any
}

// Config configures sweep and retention behavior shared by every Store
// implementation.
type Config struct {
	// SweepBatchSize bounds how many expired rows the sweep run by
	// AddToQueue will mark expired per call, so an insert is never
	// stalled by a large backlog of stale rows.
	// GetNextPendingQueueItem does not sweep; it only marks the
	// expired candidates it meets at the head of one thread's queue.
	SweepBatchSize int
	// Now overrides the wall clock, primarily for tests.
	Now func() time.Time
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		SweepBatchSize: 50,
		Now:            time.Now,
	}
}

func (c *Config) sanitize() {
	if c.SweepBatchSize <= 0 {
		c.SweepBatchSize = 50
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// Store persists events and serves a per-thread pending-sorted view
// with expiry handling. Implementations must honor (I1)-(I5).
type Store interface {
	// AddToQueue inserts an event with status=pending unless the spec
	// sets one explicitly. Opportunistically sweeps a bounded batch of
	// long-expired rows first.
	AddToQueue(ctx context.Context, spec EventSpec) (*models.Event, error)
	// GetProcessingQueueItem returns the single event in `processing`
	// for threadID, if any (I2).
	GetProcessingQueueItem(ctx context.Context, threadID string) (*models.Event, error)
	// GetNextPendingQueueItem returns the highest-ranked pending event
	// per (I4), skipping and marking expired ones per (I5), until a
	// live candidate is found or none remain.
	GetNextPendingQueueItem(ctx context.Context, threadID string) (*models.Event, error)
	// UpdateQueueItemStatus transitions status with no legality check;
	// the worker enforces (I3).
	UpdateQueueItemStatus(ctx context.Context, eventID string, status models.EventStatus) error
	// MarkOverwritten sets status to overwritten. Used by the override
	// hook.
	MarkOverwritten(ctx context.Context, eventID string) error
	// Get returns a single event by id.
	Get(ctx context.Context, eventID string) (*models.Event, error)
	// Prune removes completed/failed/expired/overwritten rows older
	// than olderThan. Supplements the core spec with explicit
	// retention, beyond the bounded sweep performed by AddToQueue.
	Prune(ctx context.Context, olderThan time.Duration) (int64, error)
}
