package llmfactory

import (
	"context"
	"fmt"
	"os"

	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/jaimegago/toolrouter/internal/config"
	"github.com/jaimegago/toolrouter/internal/llm"
	"github.com/jaimegago/toolrouter/internal/llm/claude"
	"github.com/jaimegago/toolrouter/internal/llm/gemini"
	"github.com/jaimegago/toolrouter/internal/llm/ollama"
	"github.com/jaimegago/toolrouter/internal/llm/openai"
)

// NewAdapter creates an LLMAdapter from a ModelConfig.
// It validates that the required API key environment variable is set
// before creating the provider client.
func NewAdapter(ctx context.Context, mc config.ModelConfig) (llm.LLMAdapter, error) {
	switch mc.Provider {
	case "claude":
		if os.Getenv("ANTHROPIC_API_KEY") == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is not set (required for provider %q)", mc.Provider)
		}
		var opts []option.RequestOption
		if mc.BaseURL != "" {
			opts = append(opts, option.WithBaseURL(mc.BaseURL))
		}
		return claude.NewClient(mc.Model, opts...)
	case "gemini":
		if os.Getenv("GEMINI_API_KEY") == "" && os.Getenv("GOOGLE_API_KEY") == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY or GOOGLE_API_KEY must be set (required for provider %q)", mc.Provider)
		}
		return gemini.NewClient(ctx, mc.Model)
	case "openai":
		if mc.BaseURL == "" && os.Getenv("OPENAI_API_KEY") == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is not set (required for provider %q without base_url)", mc.Provider)
		}
		return openai.NewClient(mc.Model, mc.BaseURL)
	case "ollama":
		return ollama.NewClient(mc.Model, mc.BaseURL)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %q (supported: claude, gemini, openai, ollama)", mc.Provider)
	}
}
