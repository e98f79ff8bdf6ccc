// internal/assistant/retrieve-context/config.go
package retrievecontext

import (
	"time"

	"garage-assistant/internal/common/config"
)

type Config struct {
	MaxRows      int
	QueryTimeout time.Duration
	IndexEnabled bool
	Index        string
}

func LoadConfig(cfg *config.Config) *Config {
	c := &Config{
		MaxRows:      cfg.Assistant.MaxRowsPerTable,
		QueryTimeout: config.GetDuration(cfg.Database.Postgres.QueryTimeout),
		IndexEnabled: cfg.Assistant.SearchIndex.Enabled,
		Index:        cfg.Assistant.SearchIndex.Index,
	}
	if c.MaxRows <= 0 {
		c.MaxRows = 50
	}
	if c.Index == "" {
		c.Index = "repair-notes"
	}
	return c
}
