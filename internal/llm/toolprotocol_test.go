package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestToolCallFilter_ElidesBlock verifies (P4): the concatenation of
// emitted visible chunks equals the raw response with <tool_calls>
// blocks elided.
func TestToolCallFilter_ElidesBlock(t *testing.T) {
	filter := NewToolCallFilter()
	raw := `It is 12:34.<tool_calls>
{"function":{"name":"get_current_time","arguments":"{}"}}
</tool_calls>`

	var visible string
	for _, chunk := range chunkString(raw, 5) {
		visible += filter.Feed(chunk)
	}

	assert.Equal(t, "It is 12:34.", visible)
	assert.False(t, filter.Unclosed())
}

// TestToolCallFilter_HandlesTagSplitAcrossChunks verifies the
// pending-overlap buffer catches a tag split mid-chunk-boundary.
func TestToolCallFilter_HandlesTagSplitAcrossChunks(t *testing.T) {
	filter := NewToolCallFilter()
	chunks := []string{"hello <tool_c", "alls>\n", `{"function":{"name":"x","arguments":"{}"}}`, "\n</tool_calls>", " done"}

	var visible string
	for _, c := range chunks {
		visible += filter.Feed(c)
	}
	assert.Equal(t, "hello  done", visible)
}

func TestToolCallFilter_UnclosedBlockIsMalformed(t *testing.T) {
	filter := NewToolCallFilter()
	filter.Feed("text <tool_calls>\n{\"function\":{\"name\":\"x\",\"arguments\":\"{}\"}}\n")
	assert.True(t, filter.Unclosed())
}

func TestParseToolCalls(t *testing.T) {
	raw := `<tool_calls>
{"function":{"name":"get_current_time","arguments":"{}"}}
{"id":"custom-1","function":{"name":"wait","arguments":"{\"ms\":10}"}}
</tool_calls>`

	calls, err := ParseToolCalls(raw)
	require.NoError(t, err)
	require.Len(t, calls, 2)
	assert.Equal(t, "get_current_time_0", calls[0].ID)
	assert.Equal(t, "custom-1", calls[1].ID)
	assert.Equal(t, "wait", calls[1].Function.Name)
}

func TestParseToolCalls_MalformedLineReportsErrorButKeepsGoodOnes(t *testing.T) {
	raw := `<tool_calls>
not json
{"function":{"name":"ok","arguments":"{}"}}
</tool_calls>`
	calls, err := ParseToolCalls(raw)
	assert.Error(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, "ok", calls[0].Function.Name)
}

func chunkString(s string, size int) []string {
	var out []string
	for i := 0; i < len(s); i += size {
		end := i + size
		if end > len(s) {
			end = len(s)
		}
		out = append(out, s[i:end])
	}
	return out
}
