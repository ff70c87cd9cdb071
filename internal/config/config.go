package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultSystemPrompt is offered to the model when none is configured
const DefaultSystemPrompt = "You are a helpful assistant tasked with performing arithmetic on a set of inputs."

// Config represents the toolrouter configuration
type Config struct {
	LLM       LLMConfig       `yaml:"llm"`
	Router    RouterConfig    `yaml:"router"`
	Server    ServerConfig    `yaml:"server"`
	Worker    WorkerConfig    `yaml:"worker"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LLMConfig lists the models that can be selected and names the active one
type LLMConfig struct {
	Current   string                 `yaml:"current"`
	Available map[string]ModelConfig `yaml:"available"`
}

// ModelConfig identifies a provider model
type ModelConfig struct {
	Provider string `yaml:"provider"` // "claude", "gemini", "openai", "ollama"
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url,omitempty"` // openai-compatible or ollama host
}

// RouterConfig configures the routing loop
type RouterConfig struct {
	SystemPrompt   string `yaml:"system_prompt"`
	MaxIterations  int    `yaml:"max_iterations"`
	ToolTimeoutSec int    `yaml:"tool_timeout_sec"`
	MaxHistory     int    `yaml:"max_history"`

	ToolTimeout time.Duration `yaml:"-"`
}

// ServerConfig configures the HTTP daemon
type ServerConfig struct {
	Address         string `yaml:"address"`
	ReadTimeoutSec  int    `yaml:"read_timeout_sec"`
	WriteTimeoutSec int    `yaml:"write_timeout_sec"`

	ReadTimeout  time.Duration `yaml:"-"`
	WriteTimeout time.Duration `yaml:"-"`
}

// WorkerConfig configures the multiply worker. Address is where the worker
// listens; URL is where the daemon reaches it. An empty URL multiplies in-process.
type WorkerConfig struct {
	Address    string `yaml:"address"`
	URL        string `yaml:"url"`
	TimeoutSec int    `yaml:"timeout_sec"`

	Timeout time.Duration `yaml:"-"`
}

// PipelineConfig configures the translation and summarization pipelines
type PipelineConfig struct {
	SourceLanguage  string `yaml:"source_language"`
	TargetLanguage  string `yaml:"target_language"`
	SummaryMaxWords int    `yaml:"summary_max_words"`
}

// TelemetryConfig configures OpenTelemetry
type TelemetryConfig struct {
	Enabled        bool   `yaml:"enabled"`
	TracesEnabled  bool   `yaml:"traces_enabled"`
	TracesExporter string `yaml:"traces_exporter"` // "stdout", "otlp", "none"
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
	MetricsEnabled bool   `yaml:"metrics_enabled"`
}

// LoggingConfig configures logging
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "text", "json"
	File   string `yaml:"file"`
}

// CurrentModel returns the active model configuration
func (l LLMConfig) CurrentModel() (ModelConfig, error) {
	mc, ok := l.Available[l.Current]
	if !ok {
		return ModelConfig{}, fmt.Errorf("current model %q not found in llm.available", l.Current)
	}
	return mc, nil
}

// ModelNames returns the configured model keys in sorted order
func (l LLMConfig) ModelNames() []string {
	names := make([]string, 0, len(l.Available))
	for name := range l.Available {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultPath returns ~/.toolrouter/config.yaml
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".toolrouter", "config.yaml")
	}
	return filepath.Join(home, ".toolrouter", "config.yaml")
}

func defaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Current: "claude-sonnet",
			Available: map[string]ModelConfig{
				"claude-sonnet": {Provider: "claude", Model: "claude-sonnet-4-20250514"},
				"gemini-flash":  {Provider: "gemini", Model: "gemini-2.0-flash-lite"},
				"gpt-4o-mini":   {Provider: "openai", Model: "gpt-4o-mini"},
				"llama":         {Provider: "ollama", Model: "llama3.1"},
			},
		},
		Router: RouterConfig{
			SystemPrompt:   DefaultSystemPrompt,
			MaxIterations:  10,
			ToolTimeoutSec: 30,
			MaxHistory:     200,
		},
		Server: ServerConfig{
			Address:         "127.0.0.1:7777",
			ReadTimeoutSec:  15,
			WriteTimeoutSec: 120,
		},
		Worker: WorkerConfig{
			Address:    "127.0.0.1:7778",
			TimeoutSec: 10,
		},
		Pipeline: PipelineConfig{
			SourceLanguage:  "English",
			TargetLanguage:  "French",
			SummaryMaxWords: 60,
		},
		Telemetry: TelemetryConfig{
			Enabled:        true,
			TracesEnabled:  false,
			TracesExporter: "stdout",
			OTLPEndpoint:   "localhost:4317",
			MetricsEnabled: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from path, applies environment overrides and
// computes derived fields. A missing file yields the defaults. An empty
// path skips the file entirely.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		expanded, err := expandHome(path)
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(expanded)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// defaults
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			// yaml.v3 merges into existing maps; a configured model list replaces the defaults
			defaults := cfg.LLM.Available
			cfg.LLM.Available = nil
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", expanded, err)
			}
			if cfg.LLM.Available == nil {
				cfg.LLM.Available = defaults
			}
		}
	}

	applyEnv(cfg)
	cfg.computeDurations()
	return cfg, nil
}

// Save writes cfg as YAML to path, creating the parent directory
func Save(cfg *Config, path string) error {
	expanded, err := expandHome(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(expanded, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	provider := os.Getenv("TOOLROUTER_LLM_PROVIDER")
	model := os.Getenv("TOOLROUTER_LLM_MODEL")
	if provider != "" || model != "" {
		if cfg.LLM.Available == nil {
			cfg.LLM.Available = map[string]ModelConfig{}
		}
		if cfg.LLM.Current == "" {
			cfg.LLM.Current = "env"
		}
		mc := cfg.LLM.Available[cfg.LLM.Current]
		if provider != "" {
			mc.Provider = provider
		}
		if model != "" {
			mc.Model = model
		}
		cfg.LLM.Available[cfg.LLM.Current] = mc
	}

	if v := os.Getenv("TOOLROUTER_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("TOOLROUTER_WORKER_URL"); v != "" {
		cfg.Worker.URL = v
	}
	if v := os.Getenv("TOOLROUTER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	cfg.Telemetry.Enabled = envBool("OTEL_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.TracesEnabled = envBool("OTEL_TRACES_ENABLED", cfg.Telemetry.TracesEnabled)
	cfg.Telemetry.MetricsEnabled = envBool("OTEL_METRICS_ENABLED", cfg.Telemetry.MetricsEnabled)
	if v := os.Getenv("OTEL_TRACES_EXPORTER"); v != "" {
		cfg.Telemetry.TracesExporter = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.Telemetry.OTLPEndpoint = v
	}
}

func (c *Config) computeDurations() {
	c.Router.ToolTimeout = time.Duration(c.Router.ToolTimeoutSec) * time.Second
	c.Server.ReadTimeout = time.Duration(c.Server.ReadTimeoutSec) * time.Second
	c.Server.WriteTimeout = time.Duration(c.Server.WriteTimeoutSec) * time.Second
	c.Worker.Timeout = time.Duration(c.Worker.TimeoutSec) * time.Second
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
