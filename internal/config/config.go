package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/ziadkadry99/drift/internal/llm"
	"github.com/ziadkadry99/drift/pkg/drift"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "DRIFT_"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (DRIFT_*). Nested keys use a double
// underscore: DRIFT_LLM__MODEL -> llm.model.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

// LoadDotEnv exports the variables of a .env file into the process
// environment without overriding variables that are already set. A missing
// file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// Save writes the configuration to the given YAML file path. The file may hold
// an API key, so it is only readable by its owner.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// validProviders is the set of recognized provider values.
var validProviders = map[ProviderType]bool{
	ProviderAnthropic: true,
	ProviderOpenAI:    true,
	ProviderOllama:    true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if err := c.DriftConfig().Validate(); err != nil {
		return err
	}

	if c.LLM.Provider != "" && !validProviders[c.LLM.Provider] {
		return fmt.Errorf("invalid llm.provider %q: must be one of anthropic, openai, ollama", c.LLM.Provider)
	}
	if c.LLM.MaxTokens < 0 {
		return fmt.Errorf("llm.max_tokens must be non-negative")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be between 0 and 2")
	}
	if c.LLM.RequestsPerMinute < 0 {
		return fmt.Errorf("llm.requests_per_minute must be non-negative")
	}

	return nil
}

// DriftConfig returns the client settings of the configuration.
func (c *Config) DriftConfig() drift.Config {
	return drift.Config{
		BaseURL: c.BaseURL,
		APIKey:  c.APIKey,
		Timeout: c.Timeout,
	}
}

// ProviderConfig returns the LLM settings, failing when no provider is set.
func (c *Config) ProviderConfig() (llm.ProviderConfig, error) {
	if c.LLM.Provider == "" {
		return llm.ProviderConfig{}, fmt.Errorf("llm.provider is not configured")
	}
	model := c.LLM.Model
	if model == "" {
		model = DefaultModel(c.LLM.Provider)
	}
	return llm.ProviderConfig{
		Type:              string(c.LLM.Provider),
		Model:             model,
		BaseURL:           c.LLM.BaseURL,
		RequestsPerMinute: c.LLM.RequestsPerMinute,
	}, nil
}

// APIKeyEnvVar returns the conventional environment variable name for
// the API key of the given provider.
func APIKeyEnvVar(provider ProviderType) string {
	switch provider {
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	default:
		return ""
	}
}
