package llm

import (
	"context"
	"fmt"
	"strings"

	"meeting_assistant/internal/config"
)

// New builds the provider named by cfg.Provider.
func New(ctx context.Context, cfg config.LLMConfig) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case config.ProviderClaude:
		return NewClaude(cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.AnthropicBaseURL, cfg.MaxTokens, cfg.Timeout)
	case config.ProviderOpenAI:
		return NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL, cfg.MaxTokens, cfg.Timeout)
	case config.ProviderOllama:
		return NewOllama(cfg.OllamaBaseURL, cfg.OllamaModel, cfg.Timeout), nil
	case config.ProviderGemini:
		return NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.MaxTokens, cfg.Timeout)
	default:
		return nil, fmt.Errorf("unknown llm provider %q (supported: %s)", cfg.Provider, strings.Join(config.SupportedProviders, ", "))
	}
}
