package native

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copilotzhq/copilotz/internal/tooling"
	"github.com/copilotzhq/copilotz/pkg/models"
)

type fakeDispatcher struct {
	childThreadID string
	reply         string
	archived      map[string]string
	scheduled     []string
}

func (f *fakeDispatcher) CreateChildThread(parentThreadID string, participants []models.Sender) (string, error) {
	return f.childThreadID, nil
}

func (f *fakeDispatcher) SendAndAwaitReply(threadID, content string) (string, error) {
	return f.reply, nil
}

func (f *fakeDispatcher) ArchiveThread(threadID, summary string) error {
	if f.archived == nil {
		f.archived = map[string]string{}
	}
	f.archived[threadID] = summary
	return nil
}

func (f *fakeDispatcher) ScheduleTask(threadID, runAt, content string) error {
	f.scheduled = append(f.scheduled, threadID+"|"+runAt+"|"+content)
	return nil
}

func TestRegister_RegistersAllFourteenNativeKeys(t *testing.T) {
	reg := tooling.NewRegistry()
	Register(reg, &fakeDispatcher{})

	expected := []string{
		"ask_question", "create_thread", "end_thread", "create_task",
		"verbal_pause", "get_current_time", "wait", "http_request",
		"fetch_text", "read_file", "write_file", "list_directory",
		"search_files", "run_command",
	}
	for _, key := range expected {
		_, ok := reg.Get(key)
		assert.True(t, ok, "expected native tool %q to be registered", key)
	}
}

func TestAskQuestionTool_ReturnsTargetAgentReply(t *testing.T) {
	reg := tooling.NewRegistry()
	dispatcher := &fakeDispatcher{childThreadID: "thread-2", reply: "Paris"}
	Register(reg, dispatcher)
	exec := tooling.NewExecutor(reg)

	out, err := exec.Run("ask_question", map[string]any{
		"targetAgent": "Expert",
		"question":    "capital of France?",
	}, models.ToolExecContext{Context: context.Background(), ThreadID: "thread-1", AgentName: "Asker"})

	require.NoError(t, err)
	result, ok := out.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Paris", result["answer"])
	assert.Equal(t, "thread-2", result["threadId"])
}

func TestEndThreadTool_ArchivesCurrentThread(t *testing.T) {
	reg := tooling.NewRegistry()
	dispatcher := &fakeDispatcher{}
	Register(reg, dispatcher)
	exec := tooling.NewExecutor(reg)

	_, err := exec.Run("end_thread", map[string]any{"summary": "done"},
		models.ToolExecContext{Context: context.Background(), ThreadID: "thread-1"})

	require.NoError(t, err)
	assert.Equal(t, "done", dispatcher.archived["thread-1"])
}

func TestEndThreadTool_WithoutDispatcherReturnsExecutionError(t *testing.T) {
	reg := tooling.NewRegistry()
	Register(reg, nil)
	exec := tooling.NewExecutor(reg)

	_, err := exec.Run("end_thread", map[string]any{"summary": "done"}, models.ToolExecContext{Context: context.Background()})
	require.Error(t, err)

	var te *tooling.ToolError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, tooling.KindExecution, te.Kind)
}

func TestReadFileTool_ReadsFileContents(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hello.txt")
	require.NoError(t, os.WriteFile(path, []byte("hi there"), 0o644))

	reg := tooling.NewRegistry()
	Register(reg, nil)
	exec := tooling.NewExecutor(reg)

	out, err := exec.Run("read_file", map[string]any{"path": path}, models.ToolExecContext{Context: context.Background()})
	require.NoError(t, err)
	result := out.(map[string]any)
	assert.Equal(t, "hi there", result["content"])
}

func TestWriteFileTool_CreatesParentDirectories(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "file.txt")

	reg := tooling.NewRegistry()
	Register(reg, nil)
	exec := tooling.NewExecutor(reg)

	_, err := exec.Run("write_file", map[string]any{"path": path, "content": "hello"}, models.ToolExecContext{Context: context.Background()})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestSearchFilesTool_FindsMatchingFileNames(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "needle.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644))

	reg := tooling.NewRegistry()
	Register(reg, nil)
	exec := tooling.NewExecutor(reg)

	out, err := exec.Run("search_files", map[string]any{"path": dir, "query": "needle"}, models.ToolExecContext{Context: context.Background()})
	require.NoError(t, err)
	result := out.(map[string]any)
	matches := result["matches"].([]string)
	require.Len(t, matches, 1)
	assert.Contains(t, matches[0], "needle.txt")
}

func TestGetCurrentTimeTool_ReturnsRFC3339Timestamp(t *testing.T) {
	reg := tooling.NewRegistry()
	Register(reg, nil)
	exec := tooling.NewExecutor(reg)

	out, err := exec.Run("get_current_time", map[string]any{}, models.ToolExecContext{Context: context.Background()})
	require.NoError(t, err)
	result := out.(map[string]any)
	assert.NotEmpty(t, result["time"])
}

func TestWaitTool_RejectsOutOfRangeSeconds(t *testing.T) {
	reg := tooling.NewRegistry()
	Register(reg, nil)
	exec := tooling.NewExecutor(reg)

	_, err := exec.Run("wait", map[string]any{"seconds": 301.0}, models.ToolExecContext{Context: context.Background()})
	require.Error(t, err)
}
