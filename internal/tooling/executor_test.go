package tooling

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copilotzhq/copilotz/pkg/models"
)

func echoTool() models.Tool {
	return models.Tool{
		Key:         "echo",
		Description: "returns its input argument",
		InputSchema: map[string]any{
			"type":                 "object",
			"required":             []string{"text"},
			"additionalProperties": false,
			"properties": map[string]any{
				"text": map[string]any{"type": "string"},
			},
		},
		Executor: models.ExecutorFunc(func(args map[string]any, ectx models.ToolExecContext) (any, error) {
			return args["text"], nil
		}),
	}
}

func TestExecutor_Run_ResolvesAndExecutesNativeTool(t *testing.T) {
	reg := NewRegistry()
	reg.Register(echoTool(), SourceNative)
	exec := NewExecutor(reg)

	out, err := exec.Run("echo", map[string]any{"text": "hi"}, models.ToolExecContext{})
	require.NoError(t, err)
	assert.Equal(t, "hi", out)
}

func TestExecutor_Run_UnknownToolReturnsNotFoundWithDiagnostic(t *testing.T) {
	reg := NewRegistry()
	reg.Register(echoTool(), SourceNative)
	exec := NewExecutor(reg)

	_, err := exec.Run("ecko", map[string]any{}, models.ToolExecContext{})
	require.Error(t, err)

	var te *ToolError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, KindNotFound, te.Kind)
	assert.Contains(t, te.Message, "echo")
}

func TestExecutor_Run_MissingRequiredArgReturnsValidationError(t *testing.T) {
	reg := NewRegistry()
	reg.Register(echoTool(), SourceNative)
	exec := NewExecutor(reg)

	_, err := exec.Run("echo", map[string]any{}, models.ToolExecContext{})
	require.Error(t, err)

	var te *ToolError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, KindValidation, te.Kind)
}

func TestExecutor_Run_ExtraPropertyRejectedByAdditionalPropertiesFalse(t *testing.T) {
	reg := NewRegistry()
	reg.Register(echoTool(), SourceNative)
	exec := NewExecutor(reg)

	_, err := exec.Run("echo", map[string]any{"text": "hi", "bogus": 1}, models.ToolExecContext{})
	require.Error(t, err)

	var te *ToolError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, KindValidation, te.Kind)
}

func TestExecutor_Run_ExecutorFailureWrapsAsExecutionError(t *testing.T) {
	reg := NewRegistry()
	failing := echoTool()
	failing.Key = "boom"
	failing.Executor = models.ExecutorFunc(func(args map[string]any, ectx models.ToolExecContext) (any, error) {
		return nil, errors.New("connection refused")
	})
	reg.Register(failing, SourceNative)
	exec := NewExecutor(reg)

	_, err := exec.Run("boom", map[string]any{"text": "hi"}, models.ToolExecContext{})
	require.Error(t, err)

	var te *ToolError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, KindExecution, te.Kind)
	assert.True(t, te.Retryable)
}

func TestRegistry_Register_FirstSourceWinsOnKeyCollision(t *testing.T) {
	reg := NewRegistry()
	native := echoTool()
	reg.Register(native, SourceNative)

	shadow := echoTool()
	shadow.Description = "openapi-derived echo"
	reg.Register(shadow, SourceOpenAPI)

	got, ok := reg.Get("echo")
	require.True(t, ok)
	assert.Equal(t, "returns its input argument", got.Description)
}

func TestLevenshtein(t *testing.T) {
	assert.Equal(t, 0, levenshtein("echo", "echo"))
	assert.Equal(t, 1, levenshtein("echo", "ech"))
	assert.Equal(t, 1, levenshtein("echo", "ecto"))
}
