package models

import "time"

// EventType discriminates the payload shape of an Event and selects the
// processor that handles it.
type EventType string

// Reserved event types. Implementations may register additional types
// provided they do not collide with these.
const (
	EventNewMessage   EventType = "NEW_MESSAGE"
	EventLLMCall      EventType = "LLM_CALL"
	EventToolCall     EventType = "TOOL_CALL"
	EventToken        EventType = "TOKEN"
	EventAssetCreated EventType = "ASSET_CREATED"
)

// EventStatus is the queue status machine. Legal transitions (I3):
// pending -> processing -> {completed, failed}; pending -> expired (by
// the sweeper); pending -> overwritten (by explicit override).
type EventStatus string

const (
	StatusPending     EventStatus = "pending"
	StatusProcessing  EventStatus = "processing"
	StatusCompleted   EventStatus = "completed"
	StatusFailed      EventStatus = "failed"
	StatusExpired     EventStatus = "expired"
	StatusOverwritten EventStatus = "overwritten"
)

// Event is the unit the engine schedules: one row in the durable queue.
type Event struct {
	ID            string         `json:"id"`
	ThreadID      string         `json:"threadId"`
	Type          EventType      `json:"type"`
	Payload       any            `json:"payload"`
	ParentEventID string         `json:"parentEventId,omitempty"`
	TraceID       string         `json:"traceId,omitempty"`
	Priority      int            `json:"priority,omitempty"`
	TTLMs         int64          `json:"ttlMs,omitempty"`
	ExpiresAt     *time.Time     `json:"expiresAt,omitempty"`
	Status        EventStatus    `json:"status"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// Expired reports whether the event's TTL has elapsed as of now (I5).
func (e *Event) Expired(now time.Time) bool {
	return e.ExpiresAt != nil && !e.ExpiresAt.After(now)
}

// NewMessagePayload is the payload of an EventNewMessage event: exactly
// the data needed to create one message and decide what happens next.
type NewMessagePayload struct {
	Content    any               `json:"content"` // string or []ContentPart
	Sender     Sender            `json:"sender"`
	Thread     *ThreadRef        `json:"thread,omitempty"`
	ToolCalls  []ToolCallRequest `json:"toolCalls,omitempty"`
	ToolCallID string            `json:"toolCallId,omitempty"`
	Metadata   map[string]any    `json:"metadata,omitempty"`
}

// ThreadRef identifies or describes a thread inline within a run request
// or event payload.
type ThreadRef struct {
	ID           string         `json:"id,omitempty"`
	ExternalID   string         `json:"externalId,omitempty"`
	Name         string         `json:"name,omitempty"`
	Description  string         `json:"description,omitempty"`
	Participants []string       `json:"participants,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// ToolCallRequest is an inbound tool call as supplied by a caller (as
// opposed to ToolCallDescriptor, which is the persisted form on a
// Message).
type ToolCallRequest struct {
	ID   string         `json:"id,omitempty"`
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// LLMCallPayload is the payload of an EventLLMCall event: a fully
// prepared provider request.
type LLMCallPayload struct {
	AgentName string          `json:"agentName"`
	AgentID   string          `json:"agentId"`
	Messages  []ChatTurn      `json:"messages"`
	Tools     []ToolDefinition `json:"tools"`
	Config    LLMConfig       `json:"config"`
}

// ChatTurn is one turn in the flattened history sent to a provider.
type ChatTurn struct {
	Role    string        `json:"role"` // system | user | assistant
	Content any           `json:"content"` // string or []ContentPart
	Name    string        `json:"name,omitempty"`
}

// ToolCallEnvelope carries one function call as resolved from a tool
// name, keyed for the TOOL_CALL payload.
type ToolCallEnvelope struct {
	ID       string       `json:"id,omitempty"`
	Function FunctionCall `json:"function"`
}

// FunctionCall is the {name, arguments} shape of a single invocation.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolCallPayload is the payload of an EventToolCall event: one tool
// invocation.
type ToolCallPayload struct {
	AgentName  string            `json:"agentName"`
	SenderID   string            `json:"senderId"`
	SenderType SenderType        `json:"senderType"`
	Call       ToolCallEnvelope  `json:"call"`
}

// TokenPayload is the payload of an EventToken event: a streaming
// signal. Tokens are never persisted beyond transient
// processing/completed status and are never enqueued — they are
// delivered directly on the run handle.
type TokenPayload struct {
	ThreadID   string `json:"threadId"`
	AgentName  string `json:"agentName"`
	Token      string `json:"token"`
	IsComplete bool   `json:"isComplete"`
}

// AssetCreatedPayload is the payload of an EventAssetCreated event,
// emitted only when a processor creates an asset. Like TOKEN, it is
// never enqueued for processing.
type AssetCreatedPayload struct {
	AssetID    string `json:"assetId"`
	Ref        string `json:"ref"`
	MimeType   string `json:"mime,omitempty"`
	By         string `json:"by"`
	Tool       string `json:"tool,omitempty"`
	ToolCallID string `json:"toolCallId,omitempty"`
	Base64     string `json:"base64,omitempty"`
	DataURL    string `json:"dataUrl,omitempty"`
}
