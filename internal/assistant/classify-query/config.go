// internal/assistant/classify-query/config.go
package classifyquery

import "garage-assistant/internal/common/config"

type Config struct {
	Keywords config.KeywordTables
}

func LoadConfig(k *config.Knowledge) *Config {
	return &Config{Keywords: k.Keywords}
}
