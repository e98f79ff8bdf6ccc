// internal/assistant/expand-query/config.go
package expandquery

import "garage-assistant/internal/common/config"

type Config struct {
	Expansions map[string][]string
	MaxQueries int
}

func LoadConfig(k *config.Knowledge, cfg *config.Config) *Config {
	c := &Config{Expansions: k.Expansions, MaxQueries: 4}
	if cfg != nil && cfg.APIs.WebSearch.MaxQueries > 0 {
		c.MaxQueries = cfg.APIs.WebSearch.MaxQueries
	}
	return c
}
