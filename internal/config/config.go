package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Storage   StorageConfig
	Lifecycle LifecycleConfig
	Nlp       NlpConfig
	Delivery  DeliveryConfig
	SMTP      SMTPConfig
	Keys      APIKeys
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	OtelEnabled        bool
	OtelEndpoint       string
}

type DatabaseConfig struct {
	Connection string
}

type StorageConfig struct {
	Path               string // Root for ingested files and rendered exports
	SessionStore       string // "memory" or "redis"
	DocumentStore      string // "memory" or "postgres"
	MaxAttachmentBytes int64
}

type LifecycleConfig struct {
	SessionTTL      time.Duration
	DocumentTTL     time.Duration
	CleanupInterval time.Duration
	ExportTimeout   time.Duration
}

type NlpConfig struct {
	PatternsFile        string // Empty means the embedded default table
	DefaultDocumentType string
	DefaultSection      string
}

type DeliveryConfig struct {
	Channels     []string // any of "log", "websocket", "email"
	ArchiveEmail string
}

type SMTPConfig struct {
	Host       string
	Port       int
	Email      string
	Password   string
	SenderName string
}

type APIKeys struct {
	JwtSecret string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			OtelEnabled:        getEnv("OTEL_ENABLED", "false") == "true",
			OtelEndpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Storage: StorageConfig{
			Path:               getEnv("STORAGE_PATH", "./temp_storage"),
			SessionStore:       getEnv("SESSION_STORE", "memory"),
			DocumentStore:      getEnv("DOCUMENT_STORE", "memory"),
			MaxAttachmentBytes: int64(getEnvAsInt("MAX_ATTACHMENT_BYTES", 20<<20)),
		},
		Lifecycle: LifecycleConfig{
			SessionTTL:      getEnvAsSeconds("SESSION_TTL_SECONDS", 3600),
			DocumentTTL:     getEnvAsSeconds("DOCUMENT_TTL_SECONDS", 86400),
			CleanupInterval: getEnvAsSeconds("CLEANUP_INTERVAL_SECONDS", 600),
			ExportTimeout:   getEnvAsSeconds("EXPORT_TIMEOUT_SECONDS", 30),
		},
		Nlp: NlpConfig{
			PatternsFile:        getEnv("INTENT_PATTERNS_FILE", ""),
			DefaultDocumentType: getEnv("DEFAULT_DOCUMENT_TYPE", "docx"),
			DefaultSection:      getEnv("DEFAULT_SECTION", "body"),
		},
		Delivery: DeliveryConfig{
			Channels:     getEnvAsList("DELIVERY_CHANNELS", "log"),
			ArchiveEmail: getEnv("DELIVERY_ARCHIVE_EMAIL", ""),
		},
		SMTP: SMTPConfig{
			Host:       getEnv("SMTP_HOST", "smtp.gmail.com"),
			Port:       getEnvAsInt("SMTP_PORT", 587),
			Email:      getEnv("SMTP_EMAIL", ""),
			Password:   getEnv("SMTP_PASSWORD", ""),
			SenderName: getEnv("SMTP_SENDER_NAME", "Doc Assistant"),
		},
		Keys: APIKeys{
			JwtSecret: getEnv("JWT_SECRET", ""),
		},
	}
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsList splits a comma separated value, dropping blanks.
func getEnvAsList(key, fallback string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, fallback), ",") {
		if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnvAsSeconds reads a positive integer number of seconds.
func getEnvAsSeconds(key string, fallback int) time.Duration {
	seconds := getEnvAsInt(key, fallback)
	if seconds <= 0 {
		seconds = fallback
	}
	return time.Duration(seconds) * time.Second
}
