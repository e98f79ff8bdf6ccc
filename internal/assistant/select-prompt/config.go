// internal/assistant/select-prompt/config.go
package selectprompt

import "garage-assistant/internal/common/config"

type Config struct {
	Prompts config.PromptTables
}

func LoadConfig(k *config.Knowledge) *Config {
	return &Config{Prompts: k.Prompts}
}
