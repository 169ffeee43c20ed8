// Package config loads runtime settings from a YAML file with environment
// variable overrides, covering the pieces a deployment typically varies: the
// HTTP listener, the model backend and run limits.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root document.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	LLM     LLMConfig     `yaml:"llm"`
	Agent   AgentConfig   `yaml:"agent"`
	Logging LoggingConfig `yaml:"logging"`
	Redis   RedisConfig   `yaml:"redis"`
}

// ServerConfig configures the a2a HTTP surface.
type ServerConfig struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string `yaml:"addr"`
	// Name and Version fill the served agent card.
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	// ReadTimeout and WriteTimeout guard slow clients.
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// LLMConfig selects the model backend.
type LLMConfig struct {
	// Provider is "openai" or "anthropic".
	Provider string `yaml:"provider"`
	// Model is the provider-specific model id.
	Model string `yaml:"model"`
	// APIKey authenticates against the provider. Prefer the environment
	// override over committing keys to files.
	APIKey string `yaml:"api_key"`
}

// AgentConfig bounds agent runs.
type AgentConfig struct {
	SystemPrompt  string `yaml:"system_prompt"`
	MaxIterations int    `yaml:"max_iterations"`
	MaxLLMCalls   int    `yaml:"max_llm_calls"`
}

// LoggingConfig configures the slog backend.
type LoggingConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level"`
	// Format is "text" or "json".
	Format string `yaml:"format"`
}

// RedisConfig enables Redis-backed task and memory stores when Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:         ":8080",
			Name:         "skein-agent",
			Version:      "0.1.0",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 5 * time.Minute,
		},
		LLM: LLMConfig{
			Provider: "openai",
			Model:    "gpt-4o-mini",
		},
		Agent: AgentConfig{
			MaxIterations: 50,
			MaxLLMCalls:   50,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a YAML file over the defaults and then applies environment
// overrides. A missing file is not an error; the defaults plus environment
// are returned.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err == nil {
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Environment overrides, all prefixed SKEIN_.
func (c *Config) applyEnv() {
	setString(&c.Server.Addr, "SKEIN_SERVER_ADDR")
	setString(&c.Server.Name, "SKEIN_SERVER_NAME")
	setString(&c.LLM.Provider, "SKEIN_LLM_PROVIDER")
	setString(&c.LLM.Model, "SKEIN_LLM_MODEL")
	setString(&c.LLM.APIKey, "SKEIN_LLM_API_KEY")
	setString(&c.Agent.SystemPrompt, "SKEIN_AGENT_SYSTEM_PROMPT")
	setInt(&c.Agent.MaxIterations, "SKEIN_AGENT_MAX_ITERATIONS")
	setInt(&c.Agent.MaxLLMCalls, "SKEIN_AGENT_MAX_LLM_CALLS")
	setString(&c.Logging.Level, "SKEIN_LOG_LEVEL")
	setString(&c.Logging.Format, "SKEIN_LOG_FORMAT")
	setString(&c.Redis.Addr, "SKEIN_REDIS_ADDR")
	setString(&c.Redis.Password, "SKEIN_REDIS_PASSWORD")
	setInt(&c.Redis.DB, "SKEIN_REDIS_DB")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func (c Config) validate() error {
	switch c.LLM.Provider {
	case "openai", "anthropic", "mock":
	default:
		return fmt.Errorf("config: unknown llm provider %q", c.LLM.Provider)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log level %q", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config: unknown log format %q", c.Logging.Format)
	}

	if c.Agent.MaxIterations < 0 || c.Agent.MaxLLMCalls < 0 {
		return fmt.Errorf("config: limits must not be negative")
	}

	return nil
}
