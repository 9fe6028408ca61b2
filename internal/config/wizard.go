package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/manifoldco/promptui"
)

const noProvider = "none"

// RunWizard runs an interactive configuration wizard, saves the result to
// path and returns it.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to drift! Let's connect to your drift backend.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Backend URL.
	urlPrompt := promptui.Prompt{
		Label:    "Drift backend URL",
		Default:  cfg.BaseURL,
		Validate: validateURL,
	}
	baseURL, err := urlPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("backend url: %w", err)
	}
	cfg.BaseURL = baseURL

	// 2. API key, optional.
	keyPrompt := promptui.Prompt{
		Label: "Drift API key (leave blank for none)",
		Mask:  '*',
	}
	apiKey, err := keyPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("api key: %w", err)
	}
	cfg.APIKey = apiKey

	// 3. Timeout.
	timeoutPrompt := promptui.Prompt{
		Label:   "Request timeout in seconds",
		Default: strconv.Itoa(int(cfg.Timeout / time.Second)),
		Validate: func(s string) error {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 {
				return fmt.Errorf("enter a positive number of seconds")
			}
			return nil
		},
	}
	timeoutStr, err := timeoutPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("timeout: %w", err)
	}
	secs, _ := strconv.Atoi(timeoutStr)
	cfg.Timeout = time.Duration(secs) * time.Second

	// 4. LLM provider for `drift chat`.
	providerPrompt := promptui.Select{
		Label: "Select LLM provider for drift chat",
		Items: []string{string(ProviderAnthropic), string(ProviderOpenAI), string(ProviderOllama), noProvider},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}

	if providerStr == noProvider {
		cfg.LLM = LLMConfig{}
	} else {
		provider := ProviderType(providerStr)
		modelPrompt := promptui.Prompt{
			Label:   "Model",
			Default: DefaultModel(provider),
		}
		model, err := modelPrompt.Run()
		if err != nil {
			return nil, fmt.Errorf("model: %w", err)
		}
		cfg.LLM.Provider = provider
		cfg.LLM.Model = model

		if envVar := APIKeyEnvVar(provider); envVar != "" && os.Getenv(envVar) == "" {
			fmt.Printf("\nNote: Set %s in your environment before running drift chat.\n", envVar)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}

func validateURL(s string) error {
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("enter an absolute http(s) URL")
	}
	return nil
}
