package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config represents the application configuration. All environment
// variables share the ASKQL_ prefix, applied once at parse time.
type Config struct {
	Database DatabaseConfig `json:"database"`
	LLM      LLMConfig      `json:"llm"`
	Index    IndexConfig    `json:"index"`
	Schema   SchemaConfig   `json:"schema"`
	Logging  LoggingConfig  `json:"logging"`
}

// DatabaseConfig represents the PostgreSQL connection configuration
type DatabaseConfig struct {
	DSN          string `json:"dsn"           env:"DB_DSN"`
	QueryTimeout string `json:"query_timeout" env:"DB_QUERY_TIMEOUT" envDefault:"30s"`
}

// LLMConfig represents the language model provider configuration
type LLMConfig struct {
	Provider       string `json:"provider"        env:"LLM_PROVIDER"        envDefault:"anthropic"` // anthropic, openai
	Model          string `json:"model"           env:"LLM_MODEL"           envDefault:"claude-3-haiku-20240307"`
	APIKey         string `json:"api_key"         env:"LLM_API_KEY"`
	BaseURL        string `json:"base_url"        env:"LLM_BASE_URL"`
	EmbeddingModel string `json:"embedding_model" env:"LLM_EMBEDDING_MODEL" envDefault:"text-embedding-3-small"`
}

// IndexConfig represents the relevance index configuration
type IndexConfig struct {
	Strategy         string  `json:"strategy"          env:"INDEX_STRATEGY"          envDefault:"lexical"` // lexical, dense
	TopK             int     `json:"top_k"             env:"INDEX_TOP_K"             envDefault:"2"`
	LexicalThreshold float64 `json:"lexical_threshold" env:"INDEX_LEXICAL_THRESHOLD" envDefault:"0.1"`
	DenseThreshold   float64 `json:"dense_threshold"   env:"INDEX_DENSE_THRESHOLD"   envDefault:"0.3"`
}

// SchemaConfig represents the persisted schema document configuration
type SchemaConfig struct {
	Path string `json:"path" env:"SCHEMA_PATH" envDefault:"~/.config/askql/schema_info.json"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `json:"level"  env:"LOG_LEVEL"  envDefault:"info"`    // debug, info, warn, error
	Format string `json:"format" env:"LOG_FORMAT" envDefault:"console"` // console, json
	Output string `json:"output" env:"LOG_OUTPUT" envDefault:"stderr"`  // stdout, stderr
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig() (*Config, error) {
	return LoadConfigWithOverrides(nil)
}

// LoadConfigWithOverrides loads configuration with optional command-line
// flag overrides. Precedence, lowest to highest: built-in defaults, the
// JSON config file, environment variables, flags.
func LoadConfigWithOverrides(flagOverrides map[string]interface{}) (*Config, error) {
	// Parse against an empty environment so only envDefault tags apply.
	defaults := &Config{}
	if err := env.ParseWithOptions(defaults, env.Options{
		Prefix:      "ASKQL_",
		Environment: map[string]string{},
	}); err != nil {
		return nil, fmt.Errorf("failed to apply configuration defaults: %w", err)
	}

	config := *defaults

	// The config file overrides defaults but not explicit env or flags.
	configPath := getConfigPath()
	if _, err := os.Stat(configPath); err == nil {
		if err := loadConfigFromFile(&config, configPath); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	fromEnv := &Config{}
	if err := env.ParseWithOptions(fromEnv, env.Options{
		Prefix: "ASKQL_",
	}); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	applyEnvOverrides(&config, fromEnv, defaults)

	if flagOverrides != nil {
		applyFlagOverrides(&config, flagOverrides)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	config.Schema.Path = expandPath(config.Schema.Path)

	return &config, nil
}

// applyEnvOverrides copies into target every field where the environment
// produced a value different from the pure defaults, i.e. every variable
// actually set. A variable set to exactly its default value is
// indistinguishable from unset; the file value wins in that case.
func applyEnvOverrides(target, fromEnv, defaults *Config) {
	var apply func(t, e, d reflect.Value)
	apply = func(t, e, d reflect.Value) {
		if t.Kind() == reflect.Struct {
			for i := range t.NumField() {
				apply(t.Field(i), e.Field(i), d.Field(i))
			}

			return
		}

		if !e.Equal(d) {
			t.Set(e)
		}
	}

	apply(reflect.ValueOf(target).Elem(), reflect.ValueOf(fromEnv).Elem(), reflect.ValueOf(defaults).Elem())
}

// loadConfigFromFile loads configuration from a JSON file
func loadConfigFromFile(config *Config, configPath string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fileConfig Config
	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	mergeConfigs(config, &fileConfig)

	return nil
}

// applyFlagOverrides applies command-line flag overrides to configuration
func applyFlagOverrides(config *Config, overrides map[string]interface{}) {
	for key, value := range overrides {
		switch key {
		case "dsn":
			if str, ok := value.(string); ok && str != "" {
				config.Database.DSN = str
			}
		case "strategy":
			if str, ok := value.(string); ok && str != "" {
				config.Index.Strategy = str
			}
		case "top-k":
			if n, ok := value.(int); ok && n > 0 {
				config.Index.TopK = n
			}
		case "schema-path":
			if str, ok := value.(string); ok && str != "" {
				config.Schema.Path = str
			}
		case "log-level":
			if str, ok := value.(string); ok && str != "" {
				config.Logging.Level = str
			}
		}
	}
}

// mergeConfigs merges source configuration into target configuration
func mergeConfigs(target, source *Config) {
	var mergeValues func(t, s reflect.Value)
	mergeValues = func(t, s reflect.Value) {
		if t.Kind() != s.Kind() {
			return
		}

		if t.Kind() == reflect.Struct {
			for i := range s.NumField() {
				mergeValues(t.Field(i), s.Field(i))
			}
		} else if !s.IsZero() {
			t.Set(s)
		}
	}

	mergeValues(reflect.ValueOf(target).Elem(), reflect.ValueOf(source).Elem())
}

// validateConfig validates the configuration for common errors
func validateConfig(config *Config) error {
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf(
			"invalid log level: %s (must be debug, info, warn, or error)",
			config.Logging.Level,
		)
	}

	validLogFormats := map[string]bool{
		"console": true, "json": true,
	}
	if !validLogFormats[strings.ToLower(config.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s (must be console or json)", config.Logging.Format)
	}

	validStrategies := map[string]bool{
		"lexical": true, "dense": true,
	}
	if !validStrategies[strings.ToLower(config.Index.Strategy)] {
		return fmt.Errorf(
			"invalid index strategy: %s (must be lexical or dense)",
			config.Index.Strategy,
		)
	}

	if config.Index.TopK < 1 {
		return fmt.Errorf("index top_k must be positive: %d", config.Index.TopK)
	}

	if config.Index.LexicalThreshold < 0 || config.Index.LexicalThreshold > 1 {
		return fmt.Errorf(
			"lexical threshold must be in [0,1]: %f",
			config.Index.LexicalThreshold,
		)
	}

	if config.Index.DenseThreshold < 0 || config.Index.DenseThreshold > 1 {
		return fmt.Errorf("dense threshold must be in [0,1]: %f", config.Index.DenseThreshold)
	}

	if _, err := time.ParseDuration(config.Database.QueryTimeout); err != nil {
		return fmt.Errorf("invalid database query timeout: %s", config.Database.QueryTimeout)
	}

	return nil
}

// QueryTimeoutDuration returns the parsed database query timeout.
// validateConfig guarantees the string parses.
func (c *Config) QueryTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Database.QueryTimeout)
	if err != nil {
		return 30 * time.Second
	}

	return d
}

// SaveConfig saves configuration to file
func SaveConfig(config *Config) error {
	configPath := getConfigPath()

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetConfigPath returns the resolved path of the configuration file,
// honoring the ASKQL_CONFIG override.
func GetConfigPath() string {
	return getConfigPath()
}

// getConfigPath returns the path to the configuration file
func getConfigPath() string {
	if configPath := os.Getenv("ASKQL_CONFIG"); configPath != "" {
		return expandPath(configPath)
	}

	return filepath.Join(GetConfigDir(), "config.json")
}

// expandPath expands ~ to home directory in file paths
func expandPath(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return homeDir
	}

	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir, path[2:])
	}

	return path
}

// GetConfigDir returns the configuration directory
func GetConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".config/askql"
	}

	return filepath.Join(homeDir, ".config", "askql")
}
