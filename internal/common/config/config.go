// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	APIs      APIsConfig      `mapstructure:"apis"`
	Assistant AssistantConfig `mapstructure:"assistant"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
	QueryTimeout   int    `mapstructure:"query_timeout"` // milliseconds
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// APIsConfig holds settings for the two external providers.
type APIsConfig struct {
	LLM       LLMConfig       `mapstructure:"llm"`
	WebSearch WebSearchConfig `mapstructure:"web_search"`
}

type LLMConfig struct {
	Provider      string       `mapstructure:"provider"` // openai | genai
	BaseURL       string       `mapstructure:"base_url"`
	APIKey        string       `mapstructure:"api_key"`
	Timeout       int          `mapstructure:"timeout"` // milliseconds
	Models        ModelsConfig `mapstructure:"models"`
	FallbackOrder []string     `mapstructure:"fallback_order"`
}

type ModelsConfig struct {
	Primary  string `mapstructure:"primary"`
	Fallback string `mapstructure:"fallback"`
	Advanced string `mapstructure:"advanced"`
}

type WebSearchConfig struct {
	Provider     string `mapstructure:"provider"` // google | linkup
	BaseURL      string `mapstructure:"base_url"`
	APIKey       string `mapstructure:"api_key"`
	EngineID     string `mapstructure:"engine_id"`
	Timeout      int    `mapstructure:"timeout"`      // milliseconds
	MaxRetries   int    `mapstructure:"max_retries"`  // attempts after the first
	BackoffBase  int    `mapstructure:"backoff_base"` // milliseconds
	MinDelay     int    `mapstructure:"min_delay"`    // milliseconds between network calls
	CacheTTL     int    `mapstructure:"cache_ttl"`    // milliseconds
	CacheBackend string `mapstructure:"cache_backend"`
	MaxResults   int    `mapstructure:"max_results"`
	MaxQueries   int    `mapstructure:"max_queries"`
}

// AssistantConfig holds the orchestration policy.
type AssistantConfig struct {
	Deadline        int               `mapstructure:"deadline"` // milliseconds
	MaxAnswerLength int               `mapstructure:"max_answer_length"`
	MaxRowsPerTable int               `mapstructure:"max_rows_per_table"`
	KnowledgePath   string            `mapstructure:"knowledge_path"`
	SearchIndex     SearchIndexConfig `mapstructure:"search_index"`
}

type SearchIndexConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Index   string `mapstructure:"index"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type TracingConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
}
