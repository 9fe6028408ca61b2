package config

import "time"

// DefaultPath is where the CLI looks for its config file.
const DefaultPath = ".drift.yml"

// defaultModels maps each provider to the model the wizard proposes.
var defaultModels = map[ProviderType]string{
	ProviderAnthropic: "claude-sonnet-4-5-20250929",
	ProviderOpenAI:    "gpt-4o-mini",
	ProviderOllama:    "llama3",
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BaseURL: "http://localhost:3000",
		Timeout: 10 * time.Second,
		LLM: LLMConfig{
			Provider:          ProviderAnthropic,
			Model:             defaultModels[ProviderAnthropic],
			MaxTokens:         1024,
			Temperature:       0.7,
			RequestsPerMinute: 60,
		},
	}
}

// DefaultModel returns the proposed model for a provider, or "" if unknown.
func DefaultModel(p ProviderType) string {
	return defaultModels[p]
}
