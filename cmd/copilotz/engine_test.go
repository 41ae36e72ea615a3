package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildEngine_WiresMemoryBackedEngine(t *testing.T) {
	cfg := &Config{
		Storage: StorageConfig{Backend: "memory"},
		Assets:  AssetsConfig{Backend: "memory"},
		Providers: map[string]ProviderConfig{
			"primary": {Type: "anthropic", APIKey: "sk-test"},
		},
		Agents: []AgentConfig{
			{Name: "Assistant", Provider: "primary", Model: "claude-3-opus"},
		},
	}
	applyConfigDefaults(cfg)
	require.NoError(t, validateConfig(cfg))

	engine, closeAll, err := buildEngine(context.Background(), cfg)
	require.NoError(t, err)
	defer closeAll()

	require.NotNil(t, engine)
	assert.Contains(t, engine.Catalog().Agents, "Assistant")
}

func TestBuildEngine_RejectsUnknownProviderType(t *testing.T) {
	cfg := &Config{
		Storage: StorageConfig{Backend: "memory"},
		Assets:  AssetsConfig{Backend: "memory"},
		Providers: map[string]ProviderConfig{
			"primary": {Type: "bogus", APIKey: "sk-test"},
		},
		Agents: []AgentConfig{
			{Name: "Assistant", Provider: "primary", Model: "m"},
		},
	}

	_, closeAll, err := buildEngine(context.Background(), cfg)
	defer closeAll()
	assert.ErrorContains(t, err, "unknown provider type")
}
