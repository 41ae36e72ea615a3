package tooling

import (
	"sort"
	"strings"
	"sync"

	"github.com/copilotzhq/copilotz/pkg/models"
)

// MaxToolNameLength and MaxToolParamsSize bound a tool call before
// dispatch, mirroring agent.ToolRegistry's guard rails.
const (
	MaxToolNameLength = 128
	MaxToolParamsSize = 256 * 1024
)

// Source distinguishes where a tool was resolved from, for the
// resolution-order rule in §4.5.
type Source int

const (
	SourceNative Source = iota
	SourceUser
	SourceOpenAPI
	SourceRemote
)

// Registry holds every resolvable tool for one run, merged from the
// native set, user-provided tools, OpenAPI-derived tools, and remote
// tool-protocol servers, in that resolution order.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]registeredTool
	order []string
}

type registeredTool struct {
	tool   models.Tool
	source Source
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]registeredTool)}
}

// Register adds a tool under the given source unless its key is
// already registered; it never replaces an existing entry. The first
// registrant for a key wins, whatever its source, so registering native
// tools first is what lets them shadow a same-named OpenAPI operation
// (§4.5 resolution order).
func (r *Registry) Register(tool models.Tool, source Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[tool.Key]; exists {
		return
	}
	r.tools[tool.Key] = registeredTool{tool: tool, source: source}
	r.order = append(r.order, tool.Key)
}

// Get resolves a tool by name. ok is false if no tool was registered
// under that key.
func (r *Registry) Get(name string) (models.Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rt, ok := r.tools[name]
	if !ok {
		return models.Tool{}, false
	}
	return rt.tool, true
}

// Keys returns every registered tool key, in registration order.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// AsToolDefinitions returns the {type:"function", function:{...}}
// shape for every tool in keys (typically an agent's allowlist),
// skipping keys that aren't registered.
func (r *Registry) AsToolDefinitions(keys []string) []models.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]models.ToolDefinition, 0, len(keys))
	for _, key := range keys {
		rt, ok := r.tools[key]
		if !ok {
			continue
		}
		defs = append(defs, models.ToolDefinition{
			Type: "function",
			Function: models.ToolFunctionSchema{
				Name:        rt.tool.Key,
				Description: rt.tool.Description,
				Parameters:  rt.tool.InputSchema,
			},
		})
	}
	return defs
}

// NotFoundDiagnostic builds the TOOL_NOT_FOUND message content: the
// available tool list plus the nearest matches by Levenshtein distance
// <= 2 or substring containment (§4.5).
func (r *Registry) NotFoundDiagnostic(name string) string {
	available := r.Keys()
	sort.Strings(available)

	var nearest []string
	for _, key := range available {
		if strings.Contains(key, name) || strings.Contains(name, key) || levenshtein(key, name) <= 2 {
			nearest = append(nearest, key)
		}
	}

	var b strings.Builder
	b.WriteString("TOOL_NOT_FOUND: no tool named \"")
	b.WriteString(name)
	b.WriteString("\" is registered.\navailable tools: ")
	b.WriteString(strings.Join(available, ", "))
	if len(nearest) > 0 {
		b.WriteString("\nnearest matches: ")
		b.WriteString(strings.Join(nearest, ", "))
	}
	return b.String()
}

// levenshtein computes the edit distance between a and b.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	m, n := len(ra), len(rb)
	prev := make([]int, n+1)
	curr := make([]int, n+1)
	for j := 0; j <= n; j++ {
		prev[j] = j
	}
	for i := 1; i <= m; i++ {
		curr[0] = i
		for j := 1; j <= n; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[n]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
