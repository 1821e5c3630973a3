package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"medinotes/internal/config"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "medinotes",
	Short: "Medical notes processing and chatbot backend",
	Long: `MediNotes is a backend service for processing clinical notes and
serving chatbot conversation history.

The system supports:
- Structured note generation (SOAP, progress, consultation, follow-up,
  day-by-day summary) via AWS Bedrock
- Background embeddings generation with pgvector storage
- Bounded worker pools with admission control
- Three-tier conversation caching (memory, Redis, PostgreSQL)
- Job lifecycle events over NATS JetStream`,
}

// Execute runs the root command. Called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./configs/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "json", "Log format (json, text)")

	if err := viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level")); err != nil {
		fmt.Fprintf(os.Stderr, "Error binding log-level flag: %v\n", err)
	}
	if err := viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format")); err != nil {
		fmt.Fprintf(os.Stderr, "Error binding log-format flag: %v\n", err)
	}
}

func initConfig() {
	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("MEDINOTES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
		}
		// Config file not found; defaults and environment apply.
	}

	cfg = config.New(v)
}

func setDefaults(v *viper.Viper) {
	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", "8080")
	v.SetDefault("api.read_timeout", "10s")
	v.SetDefault("api.write_timeout", "30s")

	// Note-processing pool defaults
	v.SetDefault("jobs.max_workers", 4)
	v.SetDefault("jobs.max_queue_size", 16)
	v.SetDefault("jobs.cleanup_max_age", "1h")
	v.SetDefault("jobs.cleanup_interval", "10m")
	v.SetDefault("jobs.shutdown_timeout", "30s")

	// Embeddings pool defaults
	v.SetDefault("embeddings.max_workers", 2)
	v.SetDefault("embeddings.max_queue_size", 32)
	v.SetDefault("embeddings.max_retries", 3)
	v.SetDefault("embeddings.chunk_size", 300)
	v.SetDefault("embeddings.chunk_overlap", 50)
	v.SetDefault("embeddings.cleanup_max_age", "1h")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "medinotes")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.max_idle_connections", 5)
	v.SetDefault("database.messages_table", "messages")

	// Redis defaults
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "3s")
	v.SetDefault("redis.write_timeout", "3s")

	// NATS defaults
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.max_reconnects", 5)
	v.SetDefault("nats.reconnect_wait", "2s")
	v.SetDefault("nats.enabled", false)

	// Bedrock defaults
	v.SetDefault("bedrock.region", "us-east-1")
	v.SetDefault("bedrock.model_id", "anthropic.claude-3-5-sonnet-20240620-v1:0")
	v.SetDefault("bedrock.embedding_model_id", "amazon.titan-embed-text-v2:0")
	v.SetDefault("bedrock.max_tokens", 4096)
	v.SetDefault("bedrock.temperature", 0.2)
	v.SetDefault("bedrock.rate_limit_rps", 2.0)
	v.SetDefault("bedrock.burst_capacity", 4)
	v.SetDefault("bedrock.acquire_timeout", "30s")
	v.SetDefault("bedrock.max_retries", 3)
	v.SetDefault("bedrock.timeout", "60s")

	// Conversation cache defaults
	v.SetDefault("cache.max_entries_per_session", 50)
	v.SetDefault("cache.ttl", "30m")
	v.SetDefault("cache.key_prefix", "chatbot:session:")
	v.SetDefault("cache.durable_read_limit", 100)

	// Summarizer defaults
	v.SetDefault("summarizer.max_messages", 30)
	v.SetDefault("summarizer.keep_recent", 10)
	v.SetDefault("summarizer.max_tokens", 1000)
	v.SetDefault("summarizer.temperature", 0.3)

	// Logging defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// GetConfig returns the loaded configuration.
func GetConfig() *config.Config {
	return cfg
}
