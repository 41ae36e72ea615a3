package native

import (
	"fmt"
	"time"

	"github.com/copilotzhq/copilotz/pkg/models"
)

// statelessTools returns the native tools with no side effects beyond
// reading process-local state.
func statelessTools() []models.Tool {
	return []models.Tool{
		getCurrentTimeTool(),
		waitTool(),
		verbalPauseTool(),
	}
}

func getCurrentTimeTool() models.Tool {
	return models.Tool{
		Key:         "get_current_time",
		Description: "returns the current UTC time in RFC3339 format",
		InputSchema: objectSchema(nil, map[string]any{}),
		Executor: models.ExecutorFunc(func(args map[string]any, ectx models.ToolExecContext) (any, error) {
			return map[string]any{"time": time.Now().UTC().Format(time.RFC3339)}, nil
		}),
	}
}

func waitTool() models.Tool {
	return models.Tool{
		Key:         "wait",
		Description: "pauses the agent's turn for the given number of seconds before the next LLM_CALL",
		InputSchema: objectSchema([]string{"seconds"}, map[string]any{
			"seconds": map[string]any{"type": "number", "minimum": 0, "maximum": 300},
		}),
		Executor: models.ExecutorFunc(func(args map[string]any, ectx models.ToolExecContext) (any, error) {
			seconds, _ := args["seconds"].(float64)
			if seconds < 0 || seconds > 300 {
				return nil, fmt.Errorf("seconds out of range [0,300]: %v", seconds)
			}
			select {
			case <-time.After(time.Duration(seconds * float64(time.Second))):
			case <-ectx.Context.Done():
				return nil, ectx.Context.Err()
			}
			return map[string]any{"waited": seconds}, nil
		}),
	}
}

// verbalPauseTool's suppression of the follow-up LLM_CALL is handled by
// the TOOL_CALL processor special-casing this key (§4.5); the
// executor itself only needs to report a minimal success.
func verbalPauseTool() models.Tool {
	return models.Tool{
		Key:         "verbal_pause",
		Description: "signals the agent is pausing to wait for the next incoming message, without ending the thread",
		InputSchema: objectSchema(nil, map[string]any{
			"reason": stringProp("optional note on why the agent is pausing"),
		}),
		Executor: models.ExecutorFunc(func(args map[string]any, ectx models.ToolExecContext) (any, error) {
			return map[string]any{"paused": true}, nil
		}),
	}
}
