package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for all configuration environment variables.
const EnvPrefix = "GAMEGEN"

// Default values
const (
	DefaultPort                      = 10000
	DefaultLogLevel                  = "info"
	DefaultShutdownTimeoutSeconds    = 10
	DefaultModelName                 = "gemini-2.0-flash"
	DefaultMaxOutputTokens           = 300
	DefaultTemperature               = 0.7
	DefaultMaxRetries                = 3
	DefaultRetryDelaySeconds         = 2
	DefaultMarker                    = "local"
	DefaultWorkerCount               = 4
	DefaultQueueSize                 = 100
	DefaultGenerationTimeoutSeconds  = 120
	DefaultRetentionCheckIntervalSec = 60
)

// Load configuration from environment variables and optionally a config file.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom works like Load but reads the config file at path when non-empty,
// instead of searching for config.yaml in the working directory.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvironmentVariables(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate runs struct tag validation plus cross-field rules.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	switch cfg.Store.Backend {
	case StoreBackendPostgres:
		if cfg.Database.URL == "" {
			return errors.New("config validation failed: database.url is required for the postgres store")
		}
	case StoreBackendRedis:
		if cfg.Redis.URL == "" {
			return errors.New("config validation failed: redis.url is required for the redis store")
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", DefaultPort)
	v.SetDefault("server.log_level", DefaultLogLevel)
	v.SetDefault("server.shutdown_timeout_seconds", DefaultShutdownTimeoutSeconds)

	v.SetDefault("store.backend", StoreBackendMemory)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("redis.key_prefix", "gamegen")

	v.SetDefault("llm.model_name", DefaultModelName)
	v.SetDefault("llm.max_output_tokens", DefaultMaxOutputTokens)
	v.SetDefault("llm.min_output_tokens", 0)
	v.SetDefault("llm.tokens_per_prompt_char", 0)
	v.SetDefault("llm.temperature", DefaultTemperature)
	v.SetDefault("llm.max_retries", DefaultMaxRetries)
	v.SetDefault("llm.retry_delay_seconds", DefaultRetryDelaySeconds)
	v.SetDefault("llm.serialize_calls", false)
	v.SetDefault("llm.marker", DefaultMarker)

	v.SetDefault("task.worker_count", DefaultWorkerCount)
	v.SetDefault("task.queue_size", DefaultQueueSize)
	v.SetDefault("task.unbounded", false)
	v.SetDefault("task.generation_timeout_seconds", DefaultGenerationTimeoutSeconds)
	v.SetDefault("task.retention_minutes", 0)
	v.SetDefault("task.retention_check_interval_seconds", DefaultRetentionCheckIntervalSec)

	v.SetDefault("api.legacy_polling", false)
}

// bindEnvironmentVariables binds keys without defaults so AutomaticEnv sees them
// during Unmarshal.
func bindEnvironmentVariables(v *viper.Viper) {
	for _, key := range []string{
		"database.url",
		"redis.url",
		"llm.gemini_api_key",
		"llm.prompt_template_path",
	} {
		_ = v.BindEnv(key)
	}
}
