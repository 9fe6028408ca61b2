package config

import "time"

// ProviderType identifies an LLM provider.
type ProviderType string

const (
	ProviderAnthropic ProviderType = "anthropic"
	ProviderOpenAI    ProviderType = "openai"
	ProviderOllama    ProviderType = "ollama"
)

// Config is the drift CLI configuration, corresponding to .drift.yml.
type Config struct {
	BaseURL      string        `yaml:"base_url" koanf:"base_url"`
	APIKey       string        `yaml:"api_key,omitempty" koanf:"api_key"`
	Timeout      time.Duration `yaml:"timeout" koanf:"timeout"`
	SystemPrompt string        `yaml:"system_prompt,omitempty" koanf:"system_prompt"`
	AutoExtract  bool          `yaml:"auto_extract" koanf:"auto_extract"`
	MetricsAddr  string        `yaml:"metrics_addr,omitempty" koanf:"metrics_addr"`
	LLM          LLMConfig     `yaml:"llm" koanf:"llm"`
}

// LLMConfig selects the language model that answers in `drift chat`.
type LLMConfig struct {
	Provider          ProviderType `yaml:"provider,omitempty" koanf:"provider"`
	Model             string       `yaml:"model,omitempty" koanf:"model"`
	BaseURL           string       `yaml:"base_url,omitempty" koanf:"base_url"`
	MaxTokens         int          `yaml:"max_tokens" koanf:"max_tokens"`
	Temperature       float64      `yaml:"temperature" koanf:"temperature"`
	RequestsPerMinute int          `yaml:"requests_per_minute" koanf:"requests_per_minute"`
}
