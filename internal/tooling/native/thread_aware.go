package native

import (
	"fmt"

	"github.com/copilotzhq/copilotz/pkg/models"
)

// threadAwareTools returns ask_question, create_thread, end_thread,
// and create_task — the four native tools that reach back into the
// queue/thread stores via Dispatcher (§4.5 special cases).
func threadAwareTools(dispatcher Dispatcher) []models.Tool {
	return []models.Tool{
		askQuestionTool(dispatcher),
		createThreadTool(dispatcher),
		endThreadTool(dispatcher),
		createTaskTool(dispatcher),
	}
}

func requireDispatcher(dispatcher Dispatcher, toolName string) error {
	if dispatcher == nil {
		return fmt.Errorf("%s: no dispatcher wired for this run", toolName)
	}
	return nil
}

// askQuestionTool creates a child thread {askingAgent, targetAgent},
// enqueues the question, and blocks for the target's first reply.
func askQuestionTool(dispatcher Dispatcher) models.Tool {
	return models.Tool{
		Key:         "ask_question",
		Description: "asks another agent a question in a dedicated child thread and waits for its reply",
		InputSchema: objectSchema([]string{"targetAgent", "question"}, map[string]any{
			"targetAgent": stringProp("name of the agent to ask"),
			"question":    stringProp("the question to ask"),
		}),
		Executor: models.ExecutorFunc(func(args map[string]any, ectx models.ToolExecContext) (any, error) {
			if err := requireDispatcher(dispatcher, "ask_question"); err != nil {
				return nil, err
			}
			targetAgent, _ := args["targetAgent"].(string)
			question, _ := args["question"].(string)
			if targetAgent == "" || question == "" {
				return nil, fmt.Errorf("targetAgent and question are required")
			}

			participants := []models.Sender{
				{Type: models.SenderAgent, Name: ectx.AgentName},
				{Type: models.SenderAgent, Name: targetAgent},
			}
			childThreadID, err := dispatcher.CreateChildThread(ectx.ThreadID, participants)
			if err != nil {
				return nil, fmt.Errorf("create child thread: %w", err)
			}

			reply, err := dispatcher.SendAndAwaitReply(childThreadID, question)
			if err != nil {
				return nil, fmt.Errorf("await reply from %s: %w", targetAgent, err)
			}
			return map[string]any{"threadId": childThreadID, "answer": reply}, nil
		}),
	}
}

func createThreadTool(dispatcher Dispatcher) models.Tool {
	return models.Tool{
		Key:         "create_thread",
		Description: "creates a new child thread and returns its id",
		InputSchema: objectSchema([]string{"participants"}, map[string]any{
			"participants": map[string]any{
				"type":        "array",
				"description": "agent names to add as participants",
				"items":       map[string]any{"type": "string"},
			},
		}),
		Executor: models.ExecutorFunc(func(args map[string]any, ectx models.ToolExecContext) (any, error) {
			if err := requireDispatcher(dispatcher, "create_thread"); err != nil {
				return nil, err
			}
			var participants []models.Sender
			if raw, ok := args["participants"].([]any); ok {
				for _, p := range raw {
					if name, ok := p.(string); ok {
						participants = append(participants, models.Sender{Type: models.SenderAgent, Name: name})
					}
				}
			}
			childThreadID, err := dispatcher.CreateChildThread(ectx.ThreadID, participants)
			if err != nil {
				return nil, fmt.Errorf("create child thread: %w", err)
			}
			return map[string]any{"threadId": childThreadID}, nil
		}),
	}
}

func endThreadTool(dispatcher Dispatcher) models.Tool {
	return models.Tool{
		Key:         "end_thread",
		Description: "archives the current thread with a summary; no further events will be produced for it",
		InputSchema: objectSchema([]string{"summary"}, map[string]any{
			"summary": stringProp("brief summary of how the conversation concluded"),
		}),
		Executor: models.ExecutorFunc(func(args map[string]any, ectx models.ToolExecContext) (any, error) {
			if err := requireDispatcher(dispatcher, "end_thread"); err != nil {
				return nil, err
			}
			summary, _ := args["summary"].(string)
			if err := dispatcher.ArchiveThread(ectx.ThreadID, summary); err != nil {
				return nil, fmt.Errorf("archive thread: %w", err)
			}
			return map[string]any{"threadId": ectx.ThreadID, "archived": true}, nil
		}),
	}
}

func createTaskTool(dispatcher Dispatcher) models.Tool {
	return models.Tool{
		Key:         "create_task",
		Description: "enqueues a message into the current thread now, recording runAt as its scheduled time",
		InputSchema: objectSchema([]string{"runAt", "content"}, map[string]any{
			"runAt":   stringProp("RFC3339 timestamp recorded as the message's scheduled time"),
			"content": stringProp("message content to deliver"),
		}),
		Executor: models.ExecutorFunc(func(args map[string]any, ectx models.ToolExecContext) (any, error) {
			if err := requireDispatcher(dispatcher, "create_task"); err != nil {
				return nil, err
			}
			runAt, _ := args["runAt"].(string)
			content, _ := args["content"].(string)
			if runAt == "" || content == "" {
				return nil, fmt.Errorf("runAt and content are required")
			}
			if err := dispatcher.ScheduleTask(ectx.ThreadID, runAt, content); err != nil {
				return nil, fmt.Errorf("schedule task: %w", err)
			}
			return map[string]any{"threadId": ectx.ThreadID, "runAt": runAt, "scheduled": true}, nil
		}),
	}
}
