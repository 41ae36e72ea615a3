package main

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk shape the copilotz binary loads. Env vars are
// expanded before parsing, so API keys may be written inline or
// supplied as ${ANTHROPIC_API_KEY}-style references.
type Config struct {
	Storage   StorageConfig           `yaml:"storage"`
	Assets    AssetsConfig            `yaml:"assets"`
	Providers map[string]ProviderConfig `yaml:"providers"`
	Agents    []AgentConfig           `yaml:"agents"`
	MCPServers []MCPServerConfig      `yaml:"mcpServers"`
}

// StorageConfig selects the queue/thread backend. "memory" needs no
// further fields; "sqlite" reads Path; "postgres" reads DSN.
type StorageConfig struct {
	Backend string `yaml:"backend"` // memory | sqlite | postgres
	Path    string `yaml:"path,omitempty"`
	DSN     string `yaml:"dsn,omitempty"`
}

// AssetsConfig selects the asset backend. "memory" and "local" need
// only Dir (local only); "s3" reads Bucket/Region.
type AssetsConfig struct {
	Backend string `yaml:"backend"` // memory | local | s3
	Dir     string `yaml:"dir,omitempty"`
	Bucket  string `yaml:"bucket,omitempty"`
	Region  string `yaml:"region,omitempty"`
}

// ProviderConfig configures one named LLM provider adapter.
type ProviderConfig struct {
	Type    string `yaml:"type"` // anthropic | openai
	APIKey  string `yaml:"apiKey"`
	BaseURL string `yaml:"baseUrl,omitempty"`
}

// AgentConfig is the YAML shape of one catalog entry; ToCatalogAgent
// converts it to models.Agent.
type AgentConfig struct {
	Name          string   `yaml:"name"`
	Role          string   `yaml:"role,omitempty"`
	Personality   string   `yaml:"personality,omitempty"`
	Instructions  string   `yaml:"instructions,omitempty"`
	Description   string   `yaml:"description,omitempty"`
	AllowedTools  []string `yaml:"allowedTools,omitempty"`
	AllowedAgents []string `yaml:"allowedAgents,omitempty"`
	Provider      string   `yaml:"provider"`
	Model         string   `yaml:"model"`
	Temperature   float64  `yaml:"temperature,omitempty"`
	TopP          float64  `yaml:"topP,omitempty"`
	MaxTokens     int      `yaml:"maxTokens,omitempty"`
}

// MCPServerConfig is one remote tool-protocol server to connect at
// startup.
type MCPServerConfig struct {
	Name    string            `yaml:"name"`
	URL     string            `yaml:"url"`
	Headers map[string]string `yaml:"headers,omitempty"`
}

// loadConfig reads path, expanding environment variables, and applies
// defaults for anything left unset.
func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))
	var cfg Config
	decoder := yaml.NewDecoder(strings.NewReader(expanded))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyConfigDefaults(&cfg)
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyConfigDefaults(cfg *Config) {
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "memory"
	}
	if cfg.Assets.Backend == "" {
		cfg.Assets.Backend = "memory"
	}
	for i := range cfg.Agents {
		if cfg.Agents[i].Provider == "" {
			cfg.Agents[i].Provider = "anthropic"
		}
	}
}

func validateConfig(cfg *Config) error {
	switch cfg.Storage.Backend {
	case "memory":
	case "sqlite":
		if cfg.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for the sqlite backend")
		}
	case "postgres":
		if cfg.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown storage.backend %q", cfg.Storage.Backend)
	}

	switch cfg.Assets.Backend {
	case "memory", "local", "s3":
	default:
		return fmt.Errorf("unknown assets.backend %q", cfg.Assets.Backend)
	}

	if len(cfg.Agents) == 0 {
		return fmt.Errorf("at least one agent is required")
	}
	for _, a := range cfg.Agents {
		if a.Name == "" {
			return fmt.Errorf("agent entry missing name")
		}
		if _, ok := cfg.Providers[a.Provider]; !ok {
			return fmt.Errorf("agent %q references undeclared provider %q", a.Name, a.Provider)
		}
	}
	return nil
}

// defaultConfigPath mirrors the teacher's profile.DefaultConfigPath:
// copilotz looks for a file named copilotz.yaml in the working
// directory when --config is not given.
func defaultConfigPath() string {
	return "copilotz.yaml"
}
