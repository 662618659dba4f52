// Package config loads the API configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	Environment string
	LogLevel    string

	JWTSecret   string
	JWTIssuer   string
	TokenTTL    time.Duration
	CORSOrigins []string

	// InternalAPIKey guards /internal routes. Empty disables them.
	InternalAPIKey string

	Store         string
	MongoURI      string
	MongoDatabase string
	DatabaseURL   string

	LLM   LLMConfig
	Kafka KafkaConfig
}

// LLMConfig configures the chat-completions client.
type LLMConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// KafkaConfig configures domain event publishing. No bootstrap servers
// means events are discarded.
type KafkaConfig struct {
	BootstrapServers string
	APIKey           string
	APISecret        string
	Topic            string
	Workers          int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		Environment:    getEnv("APP_ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		JWTIssuer:      getEnv("JWT_ISSUER", "fintrack"),
		TokenTTL:       getEnvDuration("TOKEN_TTL", time.Hour),
		CORSOrigins:    splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		InternalAPIKey: os.Getenv("INTERNAL_API_KEY"),
		Store:          strings.ToLower(getEnv("STORE", StoreMongo)),
		MongoURI:       os.Getenv("MONGO_URI"),
		MongoDatabase:  getEnv("MONGO_DATABASE", "fintrack"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		LLM: LLMConfig{
			APIKey:      os.Getenv("OPENAI_API_KEY"),
			BaseURL:     getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Model:       getEnv("OPENAI_MODEL", "gpt-4"),
			MaxTokens:   getEnvInt("OPENAI_MAX_TOKENS", 1000),
			Temperature: getEnvFloat("OPENAI_TEMPERATURE", 0.7),
			Timeout:     getEnvDuration("LLM_TIMEOUT", 30*time.Second),
		},
		Kafka: KafkaConfig{
			BootstrapServers: os.Getenv("KAFKA_BOOTSTRAP_SERVERS"),
			APIKey:           os.Getenv("KAFKA_API_KEY"),
			APISecret:        os.Getenv("KAFKA_API_SECRET"),
			Topic:            getEnv("KAFKA_EVENTS_TOPIC", "fintrack_events"),
			Workers:          getEnvInt("EVENT_WORKERS", 4),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable not set")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be > 0")
	}
	switch c.Store {
	case StoreMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI environment variable not set")
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL environment variable not set")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown STORE %q", c.Store)
	}
	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("LLM_TIMEOUT must be > 0")
	}
	if c.Kafka.Workers <= 0 {
		return fmt.Errorf("EVENT_WORKERS must be > 0")
	}
	return nil
}

// IsDevelopment reports whether APP_ENV selects development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// EventsEnabled reports whether a Kafka cluster is configured.
func (c *Config) EventsEnabled() bool {
	return c.Kafka.BootstrapServers != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
