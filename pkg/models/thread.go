// Package models defines the shared entity types that flow through the
// queue, the worker, and the built-in processors: threads, messages,
// events, agents, tools, and assets.
package models

import "time"

// ThreadMode controls whether a thread is driven forward eagerly or only
// on explicit demand.
type ThreadMode string

const (
	ThreadModeImmediate  ThreadMode = "immediate"
	ThreadModeBackground ThreadMode = "background"
)

// ThreadStatus is the lifecycle state of a thread.
type ThreadStatus string

const (
	ThreadStatusActive   ThreadStatus = "active"
	ThreadStatusInactive ThreadStatus = "inactive"
	ThreadStatusArchived ThreadStatus = "archived"
)

// Thread is a conversation scope with a participant set and an
// append-only message log. Threads are never deleted by the core.
type Thread struct {
	ID          string         `json:"id"`
	ExternalID  string         `json:"externalId,omitempty"`
	Name        string         `json:"name,omitempty"`
	Description string         `json:"description,omitempty"`
	Participants []string      `json:"participants"`
	Mode        ThreadMode     `json:"mode"`
	Status      ThreadStatus   `json:"status"`
	Summary     string         `json:"summary,omitempty"`
	ParentID    string         `json:"parentId,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// HasParticipant reports whether name is already in the thread's
// participant set.
func (t *Thread) HasParticipant(name string) bool {
	for _, p := range t.Participants {
		if p == name {
			return true
		}
	}
	return false
}

// AddParticipant appends name to the participant set if it is not
// already present. It satisfies (I7): a thread's participant set always
// contains the sender of any message created in it.
func (t *Thread) AddParticipant(name string) {
	if name == "" || t.HasParticipant(name) {
		return
	}
	t.Participants = append(t.Participants, name)
}

// OtherParticipants returns the participant set minus sender, preserving
// order.
func (t *Thread) OtherParticipants(sender string) []string {
	out := make([]string, 0, len(t.Participants))
	for _, p := range t.Participants {
		if p != sender {
			out = append(out, p)
		}
	}
	return out
}
