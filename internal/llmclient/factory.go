package llmclient

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/CharbelDaher34/jarvis/api/schemas"
	"github.com/CharbelDaher34/jarvis/internal/config"
)

// NewClient builds the tiered LLM client stack from configuration: one
// backend per tier, fronted by the router.
func NewClient(cfg config.LLMConfig, logger *zap.Logger) (schemas.LLMClient, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		fast, err := NewGeminiClient(cfg.Fast, logger)
		if err != nil {
			return nil, fmt.Errorf("fast tier client: %w", err)
		}
		powerful, err := NewGeminiClient(cfg.Powerful, logger)
		if err != nil {
			return nil, fmt.Errorf("powerful tier client: %w", err)
		}
		return NewLLMRouter(logger, fast, powerful)
	default:
		return nil, fmt.Errorf("unknown or unsupported LLM provider configured: '%s'. Supported: [%s]", cfg.Provider, config.ProviderGemini)
	}
}
