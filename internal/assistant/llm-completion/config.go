// internal/assistant/llm-completion/config.go
package llmcompletion

import (
	"time"

	"garage-assistant/internal/common/config"
	"garage-assistant/internal/models"
)

type Config struct {
	Provider      string
	BaseURL       string
	APIKey        string
	Timeout       time.Duration
	PrimaryModel  string
	FallbackModel string
	AdvancedModel string
	FallbackOrder []string
}

func LoadConfig(cfg *config.Config) *Config {
	llm := cfg.APIs.LLM
	return &Config{
		Provider:      llm.Provider,
		BaseURL:       llm.BaseURL,
		APIKey:        llm.APIKey,
		Timeout:       config.GetDuration(llm.Timeout),
		PrimaryModel:  llm.Models.Primary,
		FallbackModel: llm.Models.Fallback,
		AdvancedModel: llm.Models.Advanced,
		FallbackOrder: llm.FallbackOrder,
	}
}

// usesFallbackModel reports whether the secondary model is tried before the
// evidence-only strategy.
func (c *Config) usesFallbackModel() bool {
	if c.FallbackModel == "" {
		return false
	}
	for _, step := range c.FallbackOrder {
		if step == models.StrategyFallbackModel {
			return true
		}
	}
	return false
}
