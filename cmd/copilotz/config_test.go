package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
storage:
  backend: memory
assets:
  backend: memory
providers:
  primary:
    type: anthropic
    apiKey: ${TEST_ANTHROPIC_KEY}
agents:
  - name: Assistant
    provider: primary
    model: claude-3-opus
`

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "copilotz.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadConfig_AppliesDefaultsAndExpandsEnv(t *testing.T) {
	t.Setenv("TEST_ANTHROPIC_KEY", "sk-test-123")
	path := writeConfig(t, sampleConfig)

	cfg, err := loadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Equal(t, "memory", cfg.Assets.Backend)
	require.Len(t, cfg.Agents, 1)
	assert.Equal(t, "sk-test-123", cfg.Providers["primary"].APIKey)
}

func TestLoadConfig_RejectsAgentWithUndeclaredProvider(t *testing.T) {
	path := writeConfig(t, `
providers:
  primary:
    type: anthropic
    apiKey: x
agents:
  - name: Assistant
    provider: missing
    model: claude-3-opus
`)

	_, err := loadConfig(path)
	assert.ErrorContains(t, err, "undeclared provider")
}

func TestLoadConfig_RejectsSQLiteWithoutPath(t *testing.T) {
	path := writeConfig(t, `
storage:
  backend: sqlite
providers:
  primary:
    type: anthropic
    apiKey: x
agents:
  - name: Assistant
    provider: primary
    model: claude-3-opus
`)

	_, err := loadConfig(path)
	assert.ErrorContains(t, err, "storage.path is required")
}

func TestLoadConfig_RejectsEmptyAgentList(t *testing.T) {
	path := writeConfig(t, `
providers:
  primary:
    type: anthropic
    apiKey: x
`)

	_, err := loadConfig(path)
	assert.ErrorContains(t, err, "at least one agent is required")
}
