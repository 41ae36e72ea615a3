package main

import (
	"context"
	"fmt"

	"github.com/copilotzhq/copilotz/internal/assets"
	"github.com/copilotzhq/copilotz/internal/llm"
	"github.com/copilotzhq/copilotz/internal/llm/anthropic"
	"github.com/copilotzhq/copilotz/internal/llm/openai"
	"github.com/copilotzhq/copilotz/internal/processors"
	"github.com/copilotzhq/copilotz/internal/queue"
	"github.com/copilotzhq/copilotz/internal/threads"
	"github.com/copilotzhq/copilotz/internal/tooling"
	"github.com/copilotzhq/copilotz/internal/tooling/mcp"
	"github.com/copilotzhq/copilotz/internal/tooling/native"
	"github.com/copilotzhq/copilotz/internal/runtime"
	"github.com/copilotzhq/copilotz/pkg/models"
)

// buildEngine wires one runtime.Engine from cfg: storage, assets,
// native and MCP tool sources (no OpenAPI documents are loaded), agent
// catalog, and provider adapters. Any MCP servers that fail to connect are logged and
// skipped rather than failing startup, mirroring mcp.Manager's
// continue-past-per-server-failure behavior.
func buildEngine(ctx context.Context, cfg *Config) (*runtime.Engine, func(), error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	queueStore, err := buildQueueStore(cfg.Storage)
	if err != nil {
		return nil, closeAll, fmt.Errorf("build queue store: %w", err)
	}

	threadStore, err := buildThreadStore(cfg.Storage)
	if err != nil {
		return nil, closeAll, fmt.Errorf("build thread store: %w", err)
	}

	assetStore, err := buildAssetStore(ctx, cfg.Assets)
	if err != nil {
		return nil, closeAll, fmt.Errorf("build asset store: %w", err)
	}

	registry := tooling.NewRegistry()
	dispatcher := runtime.NewDispatcher()
	native.Register(registry, dispatcher)

	if len(cfg.MCPServers) > 0 {
		serverCfgs := make([]mcp.ServerConfig, 0, len(cfg.MCPServers))
		for _, s := range cfg.MCPServers {
			serverCfgs = append(serverCfgs, mcp.ServerConfig{Name: s.Name, URL: s.URL, Headers: s.Headers})
		}
		manager, errs := mcp.Connect(ctx, serverCfgs)
		for _, e := range errs {
			fmt.Println("mcp: server connect failed:", e)
		}
		manager.Register(registry)
		closers = append(closers, manager.Close)
	}

	agents := make(map[string]models.Agent, len(cfg.Agents))
	for _, a := range cfg.Agents {
		agents[a.Name] = models.Agent{
			ID:            a.Name,
			Name:          a.Name,
			Role:          a.Role,
			Personality:   a.Personality,
			Instructions:  a.Instructions,
			Description:   a.Description,
			AllowedTools:  a.AllowedTools,
			AllowedAgents: a.AllowedAgents,
			LLM: models.LLMConfig{
				Provider:    a.Provider,
				Model:       a.Model,
				Temperature: a.Temperature,
				TopP:        a.TopP,
				MaxTokens:   a.MaxTokens,
			},
		}
	}

	providers, err := buildProviders(cfg.Providers)
	if err != nil {
		return nil, closeAll, err
	}

	catalog := processors.Catalog{
		Agents:   agents,
		Registry: registry,
		AssetDB:  assetStore,
		Threads:  threadStore,
	}

	engine := runtime.New(runtime.Config{
		Queue:     queueStore,
		Threads:   threadStore,
		Catalog:   catalog,
		Providers: providers,
	})
	dispatcher.Bind(engine)

	return engine, closeAll, nil
}

func buildQueueStore(cfg StorageConfig) (queue.Store, error) {
	switch cfg.Backend {
	case "sqlite":
		return queue.NewSQLiteStore(queue.DefaultSQLiteConfig(cfg.Path))
	case "postgres":
		return queue.NewPostgresStoreFromDSN(queue.DefaultPostgresConfig(cfg.DSN))
	default:
		return queue.NewMemoryStore(queue.DefaultConfig()), nil
	}
}

func buildThreadStore(cfg StorageConfig) (threads.Store, error) {
	switch cfg.Backend {
	case "postgres":
		return threads.NewPostgresStoreFromDSN(cfg.DSN)
	default:
		return threads.NewMemoryStore(), nil
	}
}

func buildAssetStore(ctx context.Context, cfg AssetsConfig) (*assets.Store, error) {
	switch cfg.Backend {
	case "local":
		backend, err := assets.NewLocalBackend(cfg.Dir)
		if err != nil {
			return nil, err
		}
		return assets.New(backend, assets.DefaultConfig()), nil
	case "s3":
		s3cfg := assets.DefaultS3Config(cfg.Bucket)
		if cfg.Region != "" {
			s3cfg.Region = cfg.Region
		}
		backend, err := assets.NewS3Backend(ctx, s3cfg)
		if err != nil {
			return nil, err
		}
		return assets.New(backend, assets.DefaultConfig()), nil
	default:
		return assets.New(assets.NewMemoryBackend(), assets.DefaultConfig()), nil
	}
}

func buildProviders(cfgs map[string]ProviderConfig) (processors.Providers, error) {
	providers := make(processors.Providers, len(cfgs))
	for name, c := range cfgs {
		var provider llm.Provider
		switch c.Type {
		case "anthropic":
			provider = anthropic.New(anthropic.Config{APIKey: c.APIKey, BaseURL: c.BaseURL})
		case "openai":
			provider = openai.New(openai.Config{APIKey: c.APIKey, BaseURL: c.BaseURL})
		default:
			return nil, fmt.Errorf("unknown provider type %q for provider %q", c.Type, name)
		}
		providers[name] = provider
	}
	return providers, nil
}
