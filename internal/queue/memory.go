package queue

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/copilotzhq/copilotz/pkg/models"
)

// MemoryStore keeps the queue in memory, ordered per (I4) on read. It is
// suitable for single-process deployments and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	events map[string]*models.Event
	keys   []string
	cfg    Config
}

// NewMemoryStore returns a new in-memory event queue store.
func NewMemoryStore(cfg Config) *MemoryStore {
	cfg.sanitize()
	return &MemoryStore{
		events: make(map[string]*models.Event),
		cfg:    cfg,
	}
}

func cloneEvent(e *models.Event) *models.Event {
	if e == nil {
		return nil
	}
	clone := *e
	if e.ExpiresAt != nil {
		t := *e.ExpiresAt
		clone.ExpiresAt = &t
	}
	return &clone
}

// AddToQueue implements Store.
func (s *MemoryStore) AddToQueue(ctx context.Context, spec EventSpec) (*models.Event, error) {
	if spec.ThreadID == "" {
		return nil, ErrThreadRequired
	}
	now := s.cfg.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked(now)

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
	event := &models.Event{
		ID:            id,
		ThreadID:      spec.ThreadID,
		Type:          spec.Type,
		Payload:       spec.Payload,
		ParentEventID: spec.ParentEventID,
		TraceID:       spec.TraceID,
		Priority:      spec.Priority,
		TTLMs:         spec.TTLMs,
		ExpiresAt:     expiresAt,
		Status:        status,
		Metadata:      spec.Metadata,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if _, exists := s.events[id]; !exists {
		s.keys = append(s.keys, id)
	}
	s.events[id] = cloneEvent(event)
	return cloneEvent(event), nil
}

// GetProcessingQueueItem implements Store.
func (s *MemoryStore) GetProcessingQueueItem(ctx context.Context, threadID string) (*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.keys {
		e := s.events[id]
		if e != nil && e.ThreadID == threadID && e.Status == models.StatusProcessing {
			return cloneEvent(e), nil
		}
	}
	return nil, nil
}

// GetNextPendingQueueItem implements Store.
func (s *MemoryStore) GetNextPendingQueueItem(ctx context.Context, threadID string) (*models.Event, error) {
	now := s.cfg.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		var pending []*models.Event
		for _, id := range s.keys {
			e := s.events[id]
			if e != nil && e.ThreadID == threadID && e.Status == models.StatusPending {
				pending = append(pending, e)
			}
		}
		if len(pending) == 0 {
			return nil, nil
		}
		sort.Slice(pending, func(i, j int) bool {
			return pendingLess(pending[i], pending[j])
		})
		candidate := pending[0]
		if candidate.Expired(now) {
			candidate.Status = models.StatusExpired
			candidate.UpdatedAt = now
			s.events[candidate.ID] = candidate
			continue
		}
		return cloneEvent(candidate), nil
	}
}

// pendingLess implements (I4): priority descending, then createdAt
// ascending, then id ascending.
func pendingLess(a, b *models.Event) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// UpdateQueueItemStatus implements Store.
func (s *MemoryStore) UpdateQueueItemStatus(ctx context.Context, eventID string, status models.EventStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[eventID]
	if !ok {
		return ErrEventNotFound
	}
	e.Status = status
	e.UpdatedAt = s.cfg.Now()
	return nil
}

// MarkOverwritten implements Store.
func (s *MemoryStore) MarkOverwritten(ctx context.Context, eventID string) error {
	return s.UpdateQueueItemStatus(ctx, eventID, models.StatusOverwritten)
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, eventID string) (*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[eventID]
	if !ok {
		return nil, ErrEventNotFound
	}
	return cloneEvent(e), nil
}

// Prune removes terminal-status rows older than olderThan.
func (s *MemoryStore) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := s.cfg.Now().Add(-olderThan)

	s.mu.Lock()
	defer s.mu.Unlock()

	var pruned int64
	newKeys := s.keys[:0:0]
	for _, id := range s.keys {
		e := s.events[id]
		if e == nil {
			continue
		}
		if isTerminal(e.Status) && e.UpdatedAt.Before(cutoff) {
			delete(s.events, id)
			pruned++
			continue
		}
		newKeys = append(newKeys, id)
	}
	s.keys = newKeys
	return pruned, nil
}

func isTerminal(s models.EventStatus) bool {
	switch s {
	case models.StatusCompleted, models.StatusFailed, models.StatusExpired, models.StatusOverwritten:
		return true
	default:
		return false
	}
}

// sweepLocked marks up to cfg.SweepBatchSize long-expired pending rows
// as expired. Callers must hold s.mu.
func (s *MemoryStore) sweepLocked(now time.Time) {
	swept := 0
	for _, id := range s.keys {
		if swept >= s.cfg.SweepBatchSize {
			return
		}
		e := s.events[id]
		if e == nil || e.Status != models.StatusPending {
			continue
		}
		if e.Expired(now) {
			e.Status = models.StatusExpired
			e.UpdatedAt = now
			swept++
		}
	}
}
