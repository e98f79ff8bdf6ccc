// internal/assistant/web-search/config.go
package websearch

import (
	"time"

	"garage-assistant/internal/common/config"
)

type Config struct {
	Provider    string
	BaseURL     string
	APIKey      string
	EngineID    string
	Timeout     time.Duration
	MaxRetries  int
	BackoffBase time.Duration
	MinDelay    time.Duration
	CacheTTL    time.Duration
	MaxResults  int
}

func LoadConfig(cfg *config.Config) *Config {
	ws := cfg.APIs.WebSearch
	return &Config{
		Provider:    ws.Provider,
		BaseURL:     ws.BaseURL,
		APIKey:      ws.APIKey,
		EngineID:    ws.EngineID,
		Timeout:     config.GetDuration(ws.Timeout),
		MaxRetries:  ws.MaxRetries,
		BackoffBase: config.GetDuration(ws.BackoffBase),
		MinDelay:    config.GetDuration(ws.MinDelay),
		CacheTTL:    config.GetDuration(ws.CacheTTL),
		MaxResults:  ws.MaxResults,
	}
}
