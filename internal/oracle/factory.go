package oracle

import (
	"fmt"

	"github.com/kyrelim/pland/internal/config"
)

// NewOracle creates the appropriate Oracle based on the configured provider.
func NewOracle(cfg config.OracleConfig) (Oracle, error) {
	switch cfg.Provider {
	case "gemini", "":
		return NewGeminiClient(GeminiConfig{
			APIKey:  cfg.GeminiAPIKey,
			Model:   cfg.GeminiModel,
			BaseURL: cfg.GeminiURL,
			Timeout: cfg.Timeout,
		}), nil
	case "openai":
		return NewOpenAIClient(OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAIModel,
			BaseURL: cfg.OpenAIURL,
			Timeout: cfg.Timeout,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported oracle provider: %q", cfg.Provider)
	}
}
