package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	LLM      LLMConfig      `mapstructure:"llm"      validate:"required"`
	Queue    QueueConfig    `mapstructure:"queue"    validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// LLMConfig contains all settings for the external image-generation provider.
type LLMConfig struct {
	GeminiAPIKey   string `mapstructure:"gemini_api_key"   validate:"required"`
	ImageModelName string `mapstructure:"image_model_name" validate:"required"`
}

// QueueConfig contains the generation queue settings. All values are fixed
// at startup; the queue is not runtime-reconfigurable.
type QueueConfig struct {
	MaxConcurrent         int `mapstructure:"max_concurrent"           validate:"required,gt=0,lte=64"`
	QueueSize             int `mapstructure:"queue_size"               validate:"required,gt=0"`
	TaskTimeoutSeconds    int `mapstructure:"task_timeout_seconds"     validate:"required,gt=0"`
	MaxRetries            int `mapstructure:"max_retries"              validate:"gte=0,lte=10"`
	RetryDelaySeconds     int `mapstructure:"retry_delay_seconds"      validate:"required,gt=0"`
	RateLimitDelaySeconds int `mapstructure:"rate_limit_delay_seconds" validate:"required,gt=0"`
	HistorySize           int `mapstructure:"history_size"             validate:"required,gt=0"`
}
