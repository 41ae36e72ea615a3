package models

// LLMConfig captures the provider/model/sampling knobs for an agent's
// calls, carried on both the Agent catalog entry and the prepared
// LLMCallPayload.
type LLMConfig struct {
	Provider        string  `json:"provider"`
	Model           string  `json:"model"`
	Temperature     float64 `json:"temperature,omitempty"`
	TopP            float64 `json:"topP,omitempty"`
	MaxTokens       int     `json:"maxTokens,omitempty"`
	ReasoningEffort string  `json:"reasoningEffort,omitempty"`
	ResponseFormat  string  `json:"responseFormat,omitempty"`
}

// Agent is configuration, not stored state: the engine treats agents as
// an in-memory catalog supplied per run via RunRequest.context.agents.
type Agent struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Role          string    `json:"role,omitempty"`
	Personality   string    `json:"personality,omitempty"`
	Instructions  string    `json:"instructions,omitempty"`
	Description   string    `json:"description,omitempty"`
	AllowedTools  []string  `json:"allowedTools,omitempty"`
	AllowedAgents []string  `json:"allowedAgents,omitempty"`
	LLM           LLMConfig `json:"llm"`
}

// CanAddress reports whether the agent is allowed to @mention peer.
// An empty AllowedAgents list is treated as "no restriction" only when
// explicitly unset by the caller; callers that want to restrict
// addressing to nobody should supply a non-nil empty slice.
func (a *Agent) CanAddress(peer string) bool {
	if a.AllowedAgents == nil {
		return true
	}
	for _, name := range a.AllowedAgents {
		if name == peer {
			return true
		}
	}
	return false
}

// HasTool reports whether key is in the agent's tool allowlist.
func (a *Agent) HasTool(key string) bool {
	for _, k := range a.AllowedTools {
		if k == key {
			return true
		}
	}
	return false
}
