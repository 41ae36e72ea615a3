package llm

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/copilotzhq/copilotz/pkg/models"
)

const (
	toolCallsOpenTag  = "<tool_calls>"
	toolCallsCloseTag = "</tool_calls>"
)

// SystemPreamble is the fixed tool-calling instructions prepended to
// every agent's system turn, describing the text protocol in §6.
const SystemPreamble = `When you need to call a tool, emit a block of the form:
<tool_calls>
{"function":{"name":"<tool>","arguments":"<json-encoded object>"}}
</tool_calls>
One JSON object per line inside the block. Do not emit any other text inside the block.`

// streamState is the filter's two-state machine: outside visible text,
// or inside a <tool_calls> block being accumulated for parsing.
type streamState int

const (
	stateOutside streamState = iota
	stateInside
)

// ToolCallFilter elides <tool_calls>...</tool_calls> blocks from the
// visible token stream while continuously accumulating the raw
// response for parsing afterward. It holds a small pending buffer to
// catch a tag split across chunk boundaries (§9 design note).
type ToolCallFilter struct {
	state   streamState
	pending string // unflushed tail, held back in case it's a partial tag
	raw     strings.Builder
}

// NewToolCallFilter returns a filter ready to consume chunks.
func NewToolCallFilter() *ToolCallFilter {
	return &ToolCallFilter{}
}

// Feed processes one chunk of raw provider text and returns the
// visible portion to emit as a TOKEN, if any.
func (f *ToolCallFilter) Feed(chunk string) string {
	f.raw.WriteString(chunk)
	f.pending += chunk

	var visible strings.Builder
	for {
		switch f.state {
		case stateOutside:
			idx := strings.Index(f.pending, toolCallsOpenTag)
			if idx < 0 {
				// Hold back a suffix that could be the start of the
				// open tag so a split across chunks isn't missed.
				keep := overlapSuffixLen(f.pending, toolCallsOpenTag)
				visible.WriteString(f.pending[:len(f.pending)-keep])
				f.pending = f.pending[len(f.pending)-keep:]
				return visible.String()
			}
			visible.WriteString(f.pending[:idx])
			f.pending = f.pending[idx+len(toolCallsOpenTag):]
			f.state = stateInside
		case stateInside:
			idx := strings.Index(f.pending, toolCallsCloseTag)
			if idx < 0 {
				return visible.String()
			}
			f.pending = f.pending[idx+len(toolCallsCloseTag):]
			f.state = stateOutside
		}
	}
}

// overlapSuffixLen returns the length of the longest suffix of s that
// is a prefix of tag — the part of s that might still turn into tag
// once more chunks arrive.
func overlapSuffixLen(s, tag string) int {
	max := len(s)
	if max > len(tag)-1 {
		max = len(tag) - 1
	}
	for n := max; n > 0; n-- {
		if strings.HasSuffix(s, tag[:n]) {
			return n
		}
	}
	return 0
}

// Unclosed reports whether the stream ended mid-block (malformed per
// §4.4/§6: an unclosed <tool_calls> block at stream end).
func (f *ToolCallFilter) Unclosed() bool {
	return f.state == stateInside
}

// Raw returns the full accumulated response, tags included.
func (f *ToolCallFilter) Raw() string {
	return f.raw.String()
}

// ParseToolCalls extracts every <tool_calls> block from raw and parses
// its JSON lines into ToolCallEnvelope values, assigning a synthetic id
// (<name>_<index>) to any call missing one. parseErr is non-nil (but
// calls may still be partially populated) when a line fails to parse or
// a block is left unclosed — callers attach this as metadata.parseError
// rather than failing the event (§4.4).
func ParseToolCalls(raw string) (calls []models.ToolCallEnvelope, parseErr error) {
	remaining := raw
	index := 0
	for {
		start := strings.Index(remaining, toolCallsOpenTag)
		if start < 0 {
			return calls, parseErr
		}
		afterOpen := remaining[start+len(toolCallsOpenTag):]
		end := strings.Index(afterOpen, toolCallsCloseTag)
		if end < 0 {
			return calls, fmt.Errorf("llm: unclosed tool_calls block")
		}
		block := afterOpen[:end]
		remaining = afterOpen[end+len(toolCallsCloseTag):]

		scanner := bufio.NewScanner(strings.NewReader(block))
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			var envelope models.ToolCallEnvelope
			if err := json.Unmarshal([]byte(line), &envelope); err != nil {
				parseErr = fmt.Errorf("llm: parse tool call line %q: %w", line, err)
				continue
			}
			if envelope.ID == "" {
				envelope.ID = fmt.Sprintf("%s_%d", envelope.Function.Name, index)
			}
			calls = append(calls, envelope)
			index++
		}
	}
}
