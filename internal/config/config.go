package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Gemini   GeminiConfig
	OpenAI   OpenAIConfig
	Storage  StorageConfig
	Auth     AuthConfig
	Speech   SpeechConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Addr              string
	AllowedOrigins    []string
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	MaxHeaderBytes    int
}

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type GeminiConfig struct {
	APIKey      string
	VisionModel string
	ImageModel  string
	SpeechModel string
}

type OpenAIConfig struct {
	APIKey         string
	Model          string
	EnableFallback bool
}

// StorageConfig selects the object storage backend ("minio" or "s3").
type StorageConfig struct {
	Driver        string
	Endpoint      string
	Region        string
	AccessKey     string
	SecretKey     string
	UseSSL        bool
	PublicURL     string
	CardBucket    string
	AvatarBucket  string
	MaxImageBytes int64
}

type AuthConfig struct {
	JWTSecret  string
	TokenTTL   time.Duration
	DevUserIDs []string
}

type SpeechConfig struct {
	DefaultVoice    string
	DefaultLanguage string
	Delimiter       string
}

type LoggingConfig struct {
	Level string
	File  string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Addr:              getEnv("SERVER_ADDR", ":8080"),
			AllowedOrigins:    parseCommaSeparated(getEnv("SERVER_ALLOWED_ORIGINS", "http://localhost:3000")),
			ReadTimeout:       time.Duration(getEnvInt("SERVER_READ_TIMEOUT_SECONDS", 30)) * time.Second,
			ReadHeaderTimeout: time.Duration(getEnvInt("SERVER_READ_HEADER_TIMEOUT_SECONDS", 10)) * time.Second,
			WriteTimeout:      time.Duration(getEnvInt("SERVER_WRITE_TIMEOUT_SECONDS", 120)) * time.Second,
			MaxHeaderBytes:    getEnvInt("SERVER_MAX_HEADER_BYTES", 1<<20),
		},
		Postgres: PostgresConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnvInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "pec"),
			Password: getEnv("POSTGRES_PASSWORD", ""),
			Database: getEnv("POSTGRES_DB", "pec_ai"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Gemini: GeminiConfig{
			APIKey:      getEnv("GEMINI_API_KEY", ""),
			VisionModel: getEnv("GEMINI_VISION_MODEL", "gemini-2.0-flash"),
			ImageModel:  getEnv("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image"),
			SpeechModel: getEnv("GEMINI_SPEECH_MODEL", "gemini-2.5-flash-preview-tts"),
		},
		OpenAI: OpenAIConfig{
			APIKey:         getEnv("OPENAI_API_KEY", ""),
			Model:          getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			EnableFallback: getEnvBool("OPENAI_ENABLE_FALLBACK", true),
		},
		Storage: StorageConfig{
			Driver:        strings.ToLower(getEnv("STORAGE_DRIVER", "minio")),
			Endpoint:      getEnv("STORAGE_ENDPOINT", "localhost:9000"),
			Region:        getEnv("STORAGE_REGION", "us-east-1"),
			AccessKey:     getEnv("STORAGE_ACCESS_KEY", ""),
			SecretKey:     getEnv("STORAGE_SECRET_KEY", ""),
			UseSSL:        getEnvBool("STORAGE_USE_SSL", false),
			PublicURL:     getEnv("STORAGE_PUBLIC_URL", ""),
			CardBucket:    getEnv("STORAGE_CARD_BUCKET", "original-images"),
			AvatarBucket:  getEnv("STORAGE_AVATAR_BUCKET", "avatars"),
			MaxImageBytes: int64(getEnvInt("STORAGE_MAX_IMAGE_BYTES", 10*1024*1024)),
		},
		Auth: AuthConfig{
			JWTSecret:  getEnv("AUTH_JWT_SECRET", ""),
			TokenTTL:   time.Duration(getEnvInt("AUTH_TOKEN_TTL_HOURS", 24)) * time.Hour,
			DevUserIDs: parseCommaSeparated(getEnv("AUTH_DEV_USER_IDS", "")),
		},
		Speech: SpeechConfig{
			DefaultVoice:    getEnv("SPEECH_DEFAULT_VOICE", "Kore"),
			DefaultLanguage: getEnv("SPEECH_DEFAULT_LANGUAGE", "pt-BR"),
			Delimiter:       getEnvRaw("SPEECH_DELIMITER", " "),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			File:  getEnv("LOG_FILE", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Gemini.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("AUTH_JWT_SECRET is required")
	}
	switch c.Storage.Driver {
	case "minio", "s3":
	default:
		return fmt.Errorf("STORAGE_DRIVER must be minio or s3, got %q", c.Storage.Driver)
	}
	if c.Storage.Endpoint == "" {
		return fmt.Errorf("STORAGE_ENDPOINT is required")
	}
	if c.Storage.CardBucket == "" {
		return fmt.Errorf("STORAGE_CARD_BUCKET is required")
	}
	if c.Storage.MaxImageBytes <= 0 {
		return fmt.Errorf("STORAGE_MAX_IMAGE_BYTES must be positive")
	}
	if c.Speech.Delimiter == "" {
		return fmt.Errorf("SPEECH_DELIMITER must not be empty")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return strings.TrimSpace(value)
	}
	return defaultValue
}

// getEnvRaw keeps surrounding whitespace, needed for delimiters.
func getEnvRaw(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func parseCommaSeparated(value string) []string {
	if value == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
