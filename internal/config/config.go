package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the complete application configuration.
type Config struct {
	API        APIConfig        `mapstructure:"api"`
	Jobs       JobsConfig       `mapstructure:"jobs"`
	Embeddings EmbeddingsConfig `mapstructure:"embeddings"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	NATS       NATSConfig       `mapstructure:"nats"`
	Bedrock    BedrockConfig    `mapstructure:"bedrock"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Summarizer SummarizerConfig `mapstructure:"summarizer"`
	Log        LogConfig        `mapstructure:"log"`
}

// APIConfig holds API server configuration.
type APIConfig struct {
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// JobsConfig holds note-processing worker pool configuration.
type JobsConfig struct {
	MaxWorkers      int           `mapstructure:"max_workers"`       // Concurrent note-processing workers
	MaxQueueSize    int           `mapstructure:"max_queue_size"`    // Admission-control cap on queued+processing
	CleanupMaxAge   time.Duration `mapstructure:"cleanup_max_age"`   // Terminal jobs older than this are swept
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`  // How often the sweep runs
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`  // Grace period for in-flight jobs on shutdown
}

// EmbeddingsConfig holds embeddings worker pool configuration.
type EmbeddingsConfig struct {
	MaxWorkers   int           `mapstructure:"max_workers"`
	MaxQueueSize int           `mapstructure:"max_queue_size"`
	MaxRetries   int           `mapstructure:"max_retries"`    // Requeue budget per task
	ChunkSize    int           `mapstructure:"chunk_size"`     // Characters per embedding chunk
	ChunkOverlap int           `mapstructure:"chunk_overlap"`  // Overlapping characters between chunks
	CleanupMaxAge time.Duration `mapstructure:"cleanup_max_age"`
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host               string `mapstructure:"host"`
	Port               int    `mapstructure:"port"`
	User               string `mapstructure:"user"`
	Password           string `mapstructure:"password"`
	Name               string `mapstructure:"name"`
	SSLMode            string `mapstructure:"sslmode"`
	MaxConnections     int    `mapstructure:"max_connections"`
	MaxIdleConnections int    `mapstructure:"max_idle_connections"`
	MessagesTable      string `mapstructure:"messages_table"` // Durable conversation table (read-only)
}

// DSN returns the database connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// RedisConfig holds Redis configuration for the shared cache tier.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// NATSConfig holds NATS configuration.
type NATSConfig struct {
	URL           string        `mapstructure:"url"`
	MaxReconnects int           `mapstructure:"max_reconnects"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
	Enabled       bool          `mapstructure:"enabled"` // Event publishing is optional
}

// BedrockConfig holds AWS Bedrock configuration.
type BedrockConfig struct {
	Region         string        `mapstructure:"region"`
	ModelID        string        `mapstructure:"model_id"`           // Text generation model
	EmbeddingModel string        `mapstructure:"embedding_model_id"` // Embedding model
	MaxTokens      int           `mapstructure:"max_tokens"`
	Temperature    float64       `mapstructure:"temperature"`
	RateLimitRPS   float64       `mapstructure:"rate_limit_rps"`   // Outbound requests per second
	BurstCapacity  float64       `mapstructure:"burst_capacity"`   // Token bucket capacity; 0 means 2*rps
	AcquireTimeout time.Duration `mapstructure:"acquire_timeout"`  // Max wait for a rate-limit slot
	MaxRetries     int           `mapstructure:"max_retries"`      // Retries for throttled calls
	Timeout        time.Duration `mapstructure:"timeout"`
}

// CacheConfig holds tiered conversation cache configuration.
type CacheConfig struct {
	MaxEntriesPerSession int           `mapstructure:"max_entries_per_session"`
	TTL                  time.Duration `mapstructure:"ttl"`             // Redis sliding expiration
	KeyPrefix            string        `mapstructure:"key_prefix"`      // Redis key prefix
	DurableReadLimit     int           `mapstructure:"durable_read_limit"` // Max rows read from the durable tier
}

// SummarizerConfig holds conversation summarization configuration.
type SummarizerConfig struct {
	MaxMessages int     `mapstructure:"max_messages"` // History length that triggers summarization
	KeepRecent  int     `mapstructure:"keep_recent"`  // Raw exchanges preserved after the summary
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// New creates a new Config instance from Viper.
func New(v *viper.Viper) *Config {
	var config Config

	if err := v.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("unable to decode config: %w", err))
	}

	if err := config.Validate(); err != nil {
		panic(fmt.Errorf("invalid configuration: %w", err))
	}

	return &config
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Database.User == "" {
		return errors.New("database.user is required")
	}

	if c.Database.Name == "" {
		return errors.New("database.name is required")
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return errors.New("database.port must be between 1 and 65535")
	}

	if c.Jobs.MaxWorkers < 1 {
		return errors.New("jobs.max_workers must be at least 1")
	}

	if c.Jobs.MaxQueueSize < c.Jobs.MaxWorkers {
		return errors.New("jobs.max_queue_size must be at least jobs.max_workers")
	}

	if c.Embeddings.MaxWorkers < 1 {
		return errors.New("embeddings.max_workers must be at least 1")
	}

	if c.Embeddings.MaxRetries < 0 {
		return errors.New("embeddings.max_retries must not be negative")
	}

	if c.Bedrock.RateLimitRPS <= 0 {
		return errors.New("bedrock.rate_limit_rps must be positive")
	}

	if c.Cache.MaxEntriesPerSession < 1 {
		return errors.New("cache.max_entries_per_session must be at least 1")
	}

	if c.Summarizer.KeepRecent >= c.Summarizer.MaxMessages {
		return errors.New("summarizer.keep_recent must be smaller than summarizer.max_messages")
	}

	return nil
}
