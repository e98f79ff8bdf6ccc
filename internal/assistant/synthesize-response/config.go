// internal/assistant/synthesize-response/config.go
package synthesizeresponse

import (
	"garage-assistant/internal/common/config"
)

const (
	defaultMaxLength   = 2000
	defaultRowsShown   = 3
	defaultSnippetsCap = 5
)

type Config struct {
	Synthesis config.SynthesisTables
	MaxLength int
	// RowsShown caps the rows printed per table in evidence-only answers.
	RowsShown   int
	SnippetsCap int
}

func LoadConfig(k *config.Knowledge, cfg *config.Config) *Config {
	c := &Config{
		Synthesis:   k.Synthesis,
		MaxLength:   defaultMaxLength,
		RowsShown:   defaultRowsShown,
		SnippetsCap: defaultSnippetsCap,
	}
	if cfg != nil && cfg.Assistant.MaxAnswerLength > 0 {
		c.MaxLength = cfg.Assistant.MaxAnswerLength
	}
	return c
}
