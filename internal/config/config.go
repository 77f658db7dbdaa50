// Package config loads service configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime settings for the relay.
type Config struct {
	Service       ServiceConfig
	Language      LanguageConfig
	Transcription TranscriptionConfig
	Storage       StorageConfig
	Kafka         KafkaConfig
	Auth          AuthConfig
	Observability ObservabilityConfig
}

// ServiceConfig covers the main HTTP listener.
type ServiceConfig struct {
	HTTPPort        string
	DefaultLanguage string
}

// LanguageConfig covers detection and translation.
type LanguageConfig struct {
	OpenAIAPIKey string
	ChatModel    string
	// UseLingua enables the offline detector as a fast path before the
	// LLM detector.
	UseLingua bool
	// CacheDir is the badger directory for the translation cache.
	// Empty disables caching.
	CacheDir string
	Timeout  time.Duration
}

// TranscriptionConfig covers speech-to-text.
type TranscriptionConfig struct {
	Provider string // openai | google | mock
	Model    string
	Timeout  time.Duration
}

// StorageConfig covers the preference store and message log. An empty
// DSN selects the in-memory implementations.
type StorageConfig struct {
	PostgresDSN string
}

// KafkaConfig covers the optional processed-message event stream.
type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
}

// AuthConfig covers the live-channel handshake. An empty secret
// disables token verification and accepts a bare user_id.
type AuthConfig struct {
	JWTSecret     string
	TokenValidity time.Duration
}

// ObservabilityConfig covers logging and the metrics server.
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string
	Port      string
}

// Load builds a Config from environment variables with defaults suited
// to local development.
func Load() *Config {
	return &Config{
		Service: ServiceConfig{
			HTTPPort:        envOrDefault("HTTP_PORT", "8080"),
			DefaultLanguage: envOrDefault("DEFAULT_LANGUAGE", "English"),
		},
		Language: LanguageConfig{
			OpenAIAPIKey: os.Getenv("OPENAI_API_KEY"),
			ChatModel:    envOrDefault("CHAT_MODEL", "gpt-4o-mini"),
			UseLingua:    envBool("LANGUAGE_USE_LINGUA", true),
			CacheDir:     os.Getenv("TRANSLATION_CACHE_DIR"),
			Timeout:      envDuration("LANGUAGE_TIMEOUT", 15*time.Second),
		},
		Transcription: TranscriptionConfig{
			Provider: envOrDefault("TRANSCRIPTION_PROVIDER", "openai"),
			Model:    envOrDefault("TRANSCRIPTION_MODEL", "gpt-4o-mini-transcribe"),
			Timeout:  envDuration("TRANSCRIPTION_TIMEOUT", 60*time.Second),
		},
		Storage: StorageConfig{
			PostgresDSN: os.Getenv("POSTGRES_DSN"),
		},
		Kafka: KafkaConfig{
			Enabled: envBool("KAFKA_ENABLED", false),
			Brokers: envList("KAFKA_BROKERS"),
			Topic:   envOrDefault("KAFKA_TOPIC", "relay.message.processed"),
		},
		Auth: AuthConfig{
			JWTSecret:     os.Getenv("JWT_SECRET"),
			TokenValidity: envDuration("JWT_VALIDITY", 7*24*time.Hour),
		},
		Observability: ObservabilityConfig{
			LogLevel:  envOrDefault("LOG_LEVEL", "info"),
			LogFormat: envOrDefault("LOG_FORMAT", "json"),
			Port:      envOrDefault("OBSERVABILITY_PORT", "9090"),
		},
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
