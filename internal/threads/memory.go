package threads

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/copilotzhq/copilotz/pkg/models"
)

// MemoryStore keeps threads and messages in memory.
type MemoryStore struct {
	mu           sync.RWMutex
	threads      map[string]*models.Thread
	byExternalID map[string]string
	messages     map[string][]*models.Message // threadID -> ordered messages
	children     map[string][]string          // parentID -> child thread ids, insertion order
}

// NewMemoryStore returns a new in-memory thread/message store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		threads:      make(map[string]*models.Thread),
		byExternalID: make(map[string]string),
		messages:     make(map[string][]*models.Message),
		children:     make(map[string][]string),
	}
}

func cloneThread(t *models.Thread) *models.Thread {
	if t == nil {
		return nil
	}
	clone := *t
	clone.Participants = append([]string(nil), t.Participants...)
	return &clone
}

// CreateThread implements Store.
func (s *MemoryStore) CreateThread(ctx context.Context, thread *models.Thread) error {
	s.mu.Lock()
	defer s.mu.Unlock()

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
	s.threads[thread.ID] = cloneThread(thread)
	if thread.ExternalID != "" {
		s.byExternalID[thread.ExternalID] = thread.ID
	}
	if thread.ParentID != "" {
		s.children[thread.ParentID] = append(s.children[thread.ParentID], thread.ID)
	}
	return nil
}

// GetThread implements Store.
func (s *MemoryStore) GetThread(ctx context.Context, id string) (*models.Thread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.threads[id]
	if !ok {
		return nil, ErrThreadNotFound
	}
	return cloneThread(t), nil
}

// GetThreadByExternalID implements Store.
func (s *MemoryStore) GetThreadByExternalID(ctx context.Context, externalID string) (*models.Thread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byExternalID[externalID]
	if !ok {
		return nil, ErrThreadNotFound
	}
	return cloneThread(s.threads[id]), nil
}

// UpdateThread implements Store.
func (s *MemoryStore) UpdateThread(ctx context.Context, thread *models.Thread) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.threads[thread.ID]; !ok {
		return ErrThreadNotFound
	}
	thread.UpdatedAt = time.Now()
	s.threads[thread.ID] = cloneThread(thread)
	if thread.ExternalID != "" {
		s.byExternalID[thread.ExternalID] = thread.ID
	}
	return nil
}

// AppendMessage implements Store.
func (s *MemoryStore) AppendMessage(ctx context.Context, message *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}
	clone := *message
	s.messages[message.ThreadID] = append(s.messages[message.ThreadID], &clone)
	return nil
}

// GetHistory implements Store.
func (s *MemoryStore) GetHistory(ctx context.Context, threadID string, opts ListOptions) ([]*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.messages[threadID]

	var filtered []*models.Message
	cutoff := time.Time{}
	if opts.Before != "" {
		for _, m := range all {
			if m.ID == opts.Before {
				cutoff = m.CreatedAt
				break
			}
		}
	}
	for _, m := range all {
		if !cutoff.IsZero() && !m.CreatedAt.Before(cutoff) {
			continue
		}
		cp := *m
		filtered = append(filtered, &cp)
	}
	if opts.Limit > 0 && len(filtered) > opts.Limit {
		filtered = filtered[len(filtered)-opts.Limit:]
	}
	return filtered, nil
}

// GetChildThreads implements Store.
func (s *MemoryStore) GetChildThreads(ctx context.Context, threadID string) ([]*models.Thread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.children[threadID]
	out := make([]*models.Thread, 0, len(ids))
	for _, id := range ids {
		if t, ok := s.threads[id]; ok {
			out = append(out, cloneThread(t))
		}
	}
	return out, nil
}
