package llm

import (
	"fmt"
	"os"
)

// ProviderConfig selects and configures a provider.
type ProviderConfig struct {
	Type    string
	Model   string
	BaseURL string
	// RequestsPerMinute wraps the provider in a rate limiter when positive.
	RequestsPerMinute int
}

// NewProvider creates a new LLM provider from cfg. API keys come from the
// conventional environment variables.
// Supported provider types: "anthropic", "openai", "ollama".
func NewProvider(cfg ProviderConfig) (Provider, error) {
	var p Provider
	switch cfg.Type {
	case "anthropic":
		apiKey := os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is not set")
		}
		p = NewAnthropicProvider(apiKey, cfg.Model, cfg.BaseURL)

	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		// Self-hosted OpenAI-compatible servers often run without a key.
		if apiKey == "" && cfg.BaseURL == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
		}
		p = NewOpenAIProvider(apiKey, cfg.Model, cfg.BaseURL)

	case "ollama":
		host := cfg.BaseURL
		if host == "" {
			host = os.Getenv("OLLAMA_HOST")
		}
		p = NewOllamaProvider(host, cfg.Model)

	default:
		return nil, fmt.Errorf("unsupported provider type: %s", cfg.Type)
	}

	if cfg.RequestsPerMinute > 0 {
		p = NewRateLimitedProvider(p, cfg.RequestsPerMinute)
	}
	return p, nil
}
