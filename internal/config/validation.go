package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
)

// SupportedProviders lists the LLM providers the factory can build
var SupportedProviders = []string{"claude", "gemini", "openai", "ollama"}

// Validate checks the settings that would otherwise fail late at runtime
func (c *Config) Validate() error {
	var errs []error
	mc, err := c.LLM.CurrentModel()
	if err != nil {
		errs = append(errs, err)
	} else if !slices.Contains(SupportedProviders, mc.Provider) {
		errs = append(errs, fmt.Errorf("unsupported LLM provider: %s", mc.Provider))
	}
	if c.Router.MaxIterations < 1 {
		errs = append(errs, fmt.Errorf("router.max_iterations must be at least 1, got %d", c.Router.MaxIterations))
	}
	if c.Router.ToolTimeoutSec < 0 || c.Worker.TimeoutSec < 0 {
		errs = append(errs, errors.New("timeouts must not be negative"))
	}
	if c.Pipeline.SummaryMaxWords < 0 {
		errs = append(errs, errors.New("pipeline.summary_max_words must not be negative"))
	}
	return errors.Join(errs...)
}

// ValidateAPIKeys validates that required API keys are set for the given model configuration.
// Returns an error with helpful messaging if validation fails.
func ValidateAPIKeys(mc ModelConfig) error {
	switch mc.Provider {
	case "claude":
		if os.Getenv("ANTHROPIC_API_KEY") == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY environment variable is required for Claude provider")
		}
	case "gemini":
		geminiKey := os.Getenv("GEMINI_API_KEY")
		googleKey := os.Getenv("GOOGLE_API_KEY")
		if geminiKey == "" && googleKey == "" {
			return fmt.Errorf("GEMINI_API_KEY or GOOGLE_API_KEY environment variable is required for Gemini provider")
		}
	case "openai":
		// OpenAI-compatible servers behind a base URL may not need a key
		if mc.BaseURL == "" && os.Getenv("OPENAI_API_KEY") == "" {
			return fmt.Errorf("OPENAI_API_KEY environment variable is required for OpenAI provider")
		}
	case "ollama":
		// local server, no key
	default:
		return fmt.Errorf("unsupported LLM provider: %s", mc.Provider)
	}
	return nil
}

const providerHelp = `Currently supported LLMs:
  - Claude (Anthropic) - requires ANTHROPIC_API_KEY
  - Gemini (Google) - requires GEMINI_API_KEY or GOOGLE_API_KEY
  - OpenAI or any OpenAI-compatible server - requires OPENAI_API_KEY unless base_url is set
  - Ollama - requires a running ollama server (OLLAMA_HOST)`

// ValidateAPIKeysWithUserMessage validates API keys and returns a user-friendly error message.
// This is suitable for CLI output where we want to show detailed setup instructions.
func ValidateAPIKeysWithUserMessage(mc ModelConfig) error {
	if !slices.Contains(SupportedProviders, mc.Provider) {
		return fmt.Errorf("You need to connect toolrouter to an LLM.\n\n%s\n\nConfigured provider '%s' is not supported.", providerHelp, mc.Provider)
	}

	if err := ValidateAPIKeys(mc); err != nil {
		var b strings.Builder
		fmt.Fprintf(&b, "You need to connect toolrouter to an LLM.\n\n%s is configured but %v.\n\n%s\n\n", mc.Provider, err, providerHelp)
		b.WriteString("Export the key, or pick another model with TOOLROUTER_LLM_PROVIDER and TOOLROUTER_LLM_MODEL")
		return errors.New(b.String())
	}
	return nil
}
