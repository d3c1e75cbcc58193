package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/enercomp/enercomp/internal/logging"
)

// Well-known agent names. Each maps to "<name>.yaml" in the agent config dir.
const (
	DataAnalystAgentName      = "data_analyst_agent"
	ComplianceReportAgentName = "compliance_report_agent"
)

// Model providers accepted in agent config files.
const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
	ProviderMock      = "mock"
)

// DefaultModel is used when an agent config does not name one.
const DefaultModel = "gemini-1.5-flash-latest"

// AgentConfig is the per-agent model configuration loaded from
// "<agent name>.yaml" in the agent config directory.
type AgentConfig struct {
	// Model is the provider-specific model name
	Model string `koanf:"model"`

	// Provider selects the model backend: gemini (default), anthropic, mock
	Provider string `koanf:"provider"`

	// Temperature for generation, 0 by default
	Temperature float64 `koanf:"temperature"`

	// Prompt overrides the agent's built-in system prompt when set
	Prompt string `koanf:"prompt"`
}

// DefaultAgentConfig returns the configuration used when no file exists or
// the file cannot be parsed.
func DefaultAgentConfig() AgentConfig {
	return AgentConfig{
		Model:       DefaultModel,
		Provider:    ProviderGemini,
		Temperature: 0,
	}
}

// loadAgentConfigFile loads a single agent YAML file. Unset fields fall back
// to the defaults.
func loadAgentConfigFile(path string) (AgentConfig, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return AgentConfig{}, fmt.Errorf("failed to load agent config from %q: %w", path, err)
	}

	cfg := DefaultAgentConfig()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return AgentConfig{}, fmt.Errorf("failed to parse agent config from %q: %w", path, err)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Provider == "" {
		cfg.Provider = ProviderGemini
	}
	return cfg, nil
}

// AgentConfigs resolves per-agent configuration from a directory of YAML
// files. Resolutions are cached; Reload refreshes the cache in place, keeping
// the last good config for files that fail to parse.
type AgentConfigs struct {
	dir    string
	logger *logging.Logger

	mu    sync.RWMutex
	cache map[string]AgentConfig
}

// NewAgentConfigs creates a resolver over the given directory. An empty dir
// means every agent gets the defaults.
func NewAgentConfigs(dir string) *AgentConfigs {
	return &AgentConfigs{
		dir:    dir,
		logger: logging.GetLogger("config"),
		cache:  make(map[string]AgentConfig),
	}
}

// Get returns the configuration for the named agent. A missing or invalid
// file is logged and falls back to the defaults; it never fails the caller.
func (c *AgentConfigs) Get(name string) AgentConfig {
	c.mu.RLock()
	if cfg, ok := c.cache[name]; ok {
		c.mu.RUnlock()
		return cfg
	}
	c.mu.RUnlock()

	cfg := c.resolve(name)

	c.mu.Lock()
	c.cache[name] = cfg
	c.mu.Unlock()
	return cfg
}

func (c *AgentConfigs) resolve(name string) AgentConfig {
	if c.dir == "" {
		return DefaultAgentConfig()
	}

	path := filepath.Join(c.dir, name+".yaml")
	if _, err := os.Stat(path); err != nil {
		c.logger.Warn("agent config %s not found, using defaults (model=%s)", path, DefaultModel)
		return DefaultAgentConfig()
	}

	cfg, err := loadAgentConfigFile(path)
	if err != nil {
		c.logger.Warn("agent config %s invalid, using defaults: %v", path, err)
		return DefaultAgentConfig()
	}
	return cfg
}

// Reload re-resolves every cached agent config. A file that no longer parses
// keeps its previous configuration.
func (c *AgentConfigs) Reload() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for name, prev := range c.cache {
		path := filepath.Join(c.dir, name+".yaml")
		cfg, err := loadAgentConfigFile(path)
		if err != nil {
			c.logger.Warn("agent config %s reload failed, keeping previous config: %v", path, err)
			continue
		}
		if cfg != prev {
			c.logger.InfoWithFields("agent config reloaded",
				logging.Field("agent", name),
				logging.Field("model", cfg.Model),
				logging.Field("provider", cfg.Provider),
			)
		}
		c.cache[name] = cfg
	}
}
