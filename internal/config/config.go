package config

// Store backend names
const (
	StoreBackendMemory   = "memory"
	StoreBackendPostgres = "postgres"
	StoreBackendRedis    = "redis"
)

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Store    StoreConfig    `mapstructure:"store"    validate:"required"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	LLM      LLMConfig      `mapstructure:"llm"      validate:"required"`
	Task     TaskConfig     `mapstructure:"task"     validate:"required"`
	API      APIConfig      `mapstructure:"api"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port                   int    `mapstructure:"port"                     validate:"required,gt=0,lt=65536"`
	LogLevel               string `mapstructure:"log_level"                validate:"required,oneof=debug info warn error"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds" validate:"gte=0"`
}

// StoreConfig selects the task store implementation.
type StoreConfig struct {
	Backend string `mapstructure:"backend" validate:"required,oneof=memory postgres redis"`
}

// DatabaseConfig contains PostgreSQL settings, used when Store.Backend is postgres.
type DatabaseConfig struct {
	URL         string `mapstructure:"url"          validate:"omitempty,url"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

// RedisConfig contains Redis settings, used when Store.Backend is redis.
type RedisConfig struct {
	URL       string `mapstructure:"url"        validate:"omitempty,url"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// LLMConfig contains the generation backend settings.
type LLMConfig struct {
	GeminiAPIKey       string `mapstructure:"gemini_api_key"       validate:"required"`
	ModelName          string `mapstructure:"model_name"           validate:"required"`
	PromptTemplatePath string `mapstructure:"prompt_template_path"`

	// MaxOutputTokens caps generation length. When TokensPerPromptChar is
	// positive the limit scales with prompt length, clamped to
	// [MinOutputTokens, MaxOutputTokens].
	MaxOutputTokens     int     `mapstructure:"max_output_tokens"      validate:"gt=0"`
	MinOutputTokens     int     `mapstructure:"min_output_tokens"      validate:"gte=0,ltefield=MaxOutputTokens"`
	TokensPerPromptChar float64 `mapstructure:"tokens_per_prompt_char" validate:"gte=0"`
	Temperature         float64 `mapstructure:"temperature"            validate:"gte=0,lte=2"`

	MaxRetries        int `mapstructure:"max_retries"         validate:"gte=0"`
	RetryDelaySeconds int `mapstructure:"retry_delay_seconds" validate:"gte=0"`

	// SerializeCalls forces one backend call at a time for clients that are
	// not safe for concurrent use.
	SerializeCalls bool `mapstructure:"serialize_calls"`

	// Marker is the substring the post-processing policy looks for.
	Marker string `mapstructure:"marker"`
}

// TaskConfig controls the background task runner.
type TaskConfig struct {
	WorkerCount int `mapstructure:"worker_count" validate:"gte=1"`
	QueueSize   int `mapstructure:"queue_size"   validate:"gte=1"`

	// Unbounded runs every task on its own goroutine instead of the worker pool.
	Unbounded bool `mapstructure:"unbounded"`

	// GenerationTimeoutSeconds bounds each backend call; 0 disables the timeout.
	GenerationTimeoutSeconds int `mapstructure:"generation_timeout_seconds" validate:"gte=0"`

	// RetentionMinutes deletes resolved tasks after this age; 0 keeps them forever.
	RetentionMinutes              int `mapstructure:"retention_minutes"                validate:"gte=0"`
	RetentionCheckIntervalSeconds int `mapstructure:"retention_check_interval_seconds" validate:"gte=0"`
}

// APIConfig controls the HTTP contract.
type APIConfig struct {
	// LegacyPolling reports every task without a result as 202 with its raw
	// status, instead of resolving failed and errored tasks with 200.
	LegacyPolling bool `mapstructure:"legacy_polling"`
}
