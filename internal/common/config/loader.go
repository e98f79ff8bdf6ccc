// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	apperrors "garage-assistant/internal/common/errors"
)

// Load reads configs/config.yaml, merges config.<APP_ENVIRONMENT>.yaml and
// environment overrides, then applies defaults and validates.
func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // optional

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, apperrors.NewConfigInvalidError(err.Error())
	}
	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up from the working directory looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			if expanded := os.ExpandEnv(strVal); expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig fills secrets from their conventional variable names.
func overrideEmptyConfig(cfg *Config) {
	setIfEmpty(&cfg.APIs.LLM.APIKey, "LLM_API_KEY", "OPENAI_API_KEY", "GENAI_API_KEY")
	setIfEmpty(&cfg.APIs.WebSearch.APIKey, "WEB_SEARCH_API_KEY", "LINKUP_API_KEY")
	setIfEmpty(&cfg.APIs.WebSearch.EngineID, "WEB_SEARCH_ENGINE_ID")
	setIfEmpty(&cfg.Database.Postgres.User, "DB_USER")
	setIfEmpty(&cfg.Database.Postgres.Password, "DB_PASSWORD")
	setIfEmpty(&cfg.Database.Redis.Password, "REDIS_PASSWORD")
}

func setIfEmpty(dst *string, envNames ...string) {
	if *dst != "" {
		return
	}
	for _, name := range envNames {
		if val := os.Getenv(name); val != "" {
			*dst = val
			return
		}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "garage-assistant"
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}

	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Postgres.QueryTimeout == 0 {
		cfg.Database.Postgres.QueryTimeout = 5000
	}

	ws := &cfg.APIs.WebSearch
	if ws.Provider == "" {
		ws.Provider = "google"
	}
	if ws.Timeout == 0 {
		ws.Timeout = 10000
	}
	if ws.MaxRetries == 0 {
		ws.MaxRetries = 3
	}
	if ws.BackoffBase == 0 {
		ws.BackoffBase = 100
	}
	if ws.MinDelay == 0 {
		ws.MinDelay = 100
	}
	if ws.CacheTTL == 0 {
		ws.CacheTTL = 300000
	}
	if ws.CacheBackend == "" {
		ws.CacheBackend = "memory"
	}
	if ws.MaxResults == 0 {
		ws.MaxResults = 8
	}
	if ws.MaxQueries == 0 {
		ws.MaxQueries = 4
	}

	llm := &cfg.APIs.LLM
	if llm.Provider == "" {
		llm.Provider = "openai"
	}
	if llm.Timeout == 0 {
		llm.Timeout = 20000
	}
	if len(llm.FallbackOrder) == 0 {
		llm.FallbackOrder = []string{"fallback-model", "evidence-only"}
	}

	a := &cfg.Assistant
	if a.Deadline == 0 {
		a.Deadline = 25000
	}
	if a.MaxAnswerLength == 0 {
		a.MaxAnswerLength = 2000
	}
	if a.MaxRowsPerTable == 0 {
		a.MaxRowsPerTable = 50
	}
	if a.SearchIndex.Index == "" {
		a.SearchIndex.Index = "repair-notes"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = cfg.App.Name
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if cfg.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if cfg.Database.Postgres.User == "" {
		return fmt.Errorf("database.postgres.user is required")
	}

	switch cfg.APIs.WebSearch.CacheBackend {
	case "memory":
	case "redis":
		if cfg.Database.Redis.Address == "" {
			return fmt.Errorf("database.redis.address is required for the redis search cache")
		}
	default:
		return fmt.Errorf("apis.web_search.cache_backend %q is not supported", cfg.APIs.WebSearch.CacheBackend)
	}

	switch cfg.APIs.WebSearch.Provider {
	case "google", "linkup":
	default:
		return fmt.Errorf("apis.web_search.provider %q is not supported", cfg.APIs.WebSearch.Provider)
	}

	switch cfg.APIs.LLM.Provider {
	case "openai", "genai":
	default:
		return fmt.Errorf("apis.llm.provider %q is not supported", cfg.APIs.LLM.Provider)
	}
	if cfg.APIs.LLM.Models.Primary == "" {
		return fmt.Errorf("apis.llm.models.primary is required")
	}
	for _, step := range cfg.APIs.LLM.FallbackOrder {
		switch step {
		case "fallback-model":
			if cfg.APIs.LLM.Models.Fallback == "" {
				return fmt.Errorf("apis.llm.models.fallback is required when fallback-model is in fallback_order")
			}
		case "evidence-only":
		default:
			return fmt.Errorf("apis.llm.fallback_order: unknown step %q", step)
		}
	}

	if cfg.Assistant.SearchIndex.Enabled && len(cfg.Database.Elasticsearch.Addresses) == 0 {
		return fmt.Errorf("database.elasticsearch.addresses is required when assistant.search_index is enabled")
	}
	if cfg.Assistant.MaxAnswerLength < 200 {
		return fmt.Errorf("assistant.max_answer_length must be at least 200")
	}
	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
