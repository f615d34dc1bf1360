package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	pkgRetry "github.com/futig/rag-conversations/internal/pkg/retry"
	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	// Server configuration
	ServerAddr           string        `env:"SERVER_ADDR" envDefault:":8080"`
	ServerRequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" envDefault:"5m"`

	// Logging configuration
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Local state storage
	StoreCfg StoreConfig `envPrefix:"STORE_"`

	// Remote RAG service
	RAGConnectorCfg RAGConnectorConfig `envPrefix:"RAG_"`

	// File upload configuration
	FileUploadCfg FileUploadConfig `envPrefix:"FILE_UPLOAD_"`

	ConversationCfg ConversationConfig `envPrefix:"CONVERSATION_"`

	// Mock configuration
	EnableMocks bool `env:"ENABLE_MOCKS" envDefault:"false"`

	// Telegram bot configuration (optional)
	TelegramCfg TelegramConfig `envPrefix:"TELEGRAM_"`

	// Drop folder watcher (optional)
	WatchCfg WatchConfig `envPrefix:"WATCH_"`

	// Environment (set from flag, not from env var)
	Environment string
}

const (
	StoreDriverBolt     = "bolt"
	StoreDriverSQLite   = "sqlite"
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type StoreConfig struct {
	Driver      string `env:"DRIVER" envDefault:"bolt"`
	Path        string `env:"PATH" envDefault:"data/ragchat.db"`
	DatabaseURL string `env:"DATABASE_URL"`
	MaxConns    int    `env:"MAX_CONNS" envDefault:"5"`
}

type RAGConnectorConfig struct {
	HTTPClientConfig
	UploadEndpoint string               `env:"UPLOAD_ENDPOINT" envDefault:"/api/conversations/{conversation_id}/upload"`
	DeleteEndpoint string               `env:"DELETE_ENDPOINT" envDefault:"/api/conversations/{conversation_id}/files/{file_id}"`
	BuildEndpoint  string               `env:"BUILD_ENDPOINT" envDefault:"/api/conversations/{conversation_id}/create-rag"`
	QueryEndpoint  string               `env:"QUERY_ENDPOINT" envDefault:"/api/conversations/{conversation_id}/query"`
	StatusEndpoint string               `env:"STATUS_ENDPOINT" envDefault:"/api/conversations/{conversation_id}/status"`
	Retry          pkgRetry.RetryConfig `envPrefix:"RETRY_"`
}

type HTTPClientConfig struct {
	RequestTimeout        time.Duration `env:"TIMEOUT" envDefault:"10m"`
	ConnTimeout           time.Duration `env:"CONN_TIMEOUT" envDefault:"10s"`
	KeepAlive             time.Duration `env:"KEEP_ALIVE" envDefault:"90s"`
	IdleConnTimeout       time.Duration `env:"IDLE_CONN_TIMEOUT" envDefault:"90s"`
	ResponseHeaderTimeout time.Duration `env:"RESPONSE_HEADER_TIMEOUT" envDefault:"10m"`
	Token                 string        `env:"TOKEN"`
	Url                   string        `env:"SERVICE_URL" envDefault:"http://localhost:8000"`
}

// FileUploadConfig holds file upload limits
type FileUploadConfig struct {
	MaxFileSize   int64 `env:"MAX_FILE_SIZE" envDefault:"524288000"` // 500 MiB, videos included
	MaxFileCount  int   `env:"MAX_FILE_COUNT" envDefault:"20"`       // per batch
	MaxUploadSize int64 `env:"MAX_UPLOAD_SIZE" envDefault:"1073741824"`
	Concurrency   int   `env:"CONCURRENCY" envDefault:"4"`
}

type ConversationConfig struct {
	DefaultTitle string `env:"DEFAULT_TITLE" envDefault:"New conversation"`
	IDFormat     string `env:"ID_FORMAT" envDefault:"uuid"`
}

// TelegramConfig holds Telegram bot configuration
type TelegramConfig struct {
	BotToken           string `env:"BOT_TOKEN"`
	OwnerChatID        int64  `env:"OWNER_CHAT_ID"`
	UpdateTimeout      int    `env:"UPDATE_TIMEOUT" envDefault:"60"`
	RateLimitPerMinute int    `env:"RATE_LIMIT_PER_MINUTE" envDefault:"30"`
	RateLimitBurst     int    `env:"RATE_LIMIT_BURST" envDefault:"5"`
	ShutdownTimeout    int    `env:"SHUTDOWN_TIMEOUT" envDefault:"30"` // seconds
}

type WatchConfig struct {
	Dir string `env:"DIR" envDefault:"inbox"`
	// Settle is how long a file must stay unchanged before it is uploaded.
	Settle time.Duration `env:"SETTLE" envDefault:"2s"`
}

// LoadConfig reads .env.<environment> (if present) and parses the process
// environment into Config.
func LoadConfig(environment string) (*Config, error) {
	envFile := getEnvFile(environment)
	// Missing env files are fine: in containers variables are set externally.
	if err := godotenv.Load(envFile); err != nil {
		fmt.Printf("Warning: could not load %s file (this is ok if env vars are set externally): %v\n", envFile, err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	cfg.Environment = environment

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func validateConfig(cfg *Config) error {
	var errors []string

	switch cfg.StoreCfg.Driver {
	case StoreDriverBolt, StoreDriverSQLite, StoreDriverMemory:
	case StoreDriverPostgres:
		if cfg.StoreCfg.DatabaseURL == "" {
			errors = append(errors, "STORE_DATABASE_URL is required for the postgres driver")
		}
	default:
		errors = append(errors, fmt.Sprintf("STORE_DRIVER must be one of bolt, sqlite, postgres, memory, got %q", cfg.StoreCfg.Driver))
	}

	if cfg.FileUploadCfg.Concurrency < 1 || cfg.FileUploadCfg.Concurrency > 16 {
		errors = append(errors, fmt.Sprintf("FILE_UPLOAD_CONCURRENCY must be between 1 and 16, got %d", cfg.FileUploadCfg.Concurrency))
	}

	if cfg.FileUploadCfg.MaxFileCount < 1 {
		errors = append(errors, fmt.Sprintf("FILE_UPLOAD_MAX_FILE_COUNT must be positive, got %d", cfg.FileUploadCfg.MaxFileCount))
	}

	if cfg.RAGConnectorCfg.Retry.Attempts < 1 {
		errors = append(errors, fmt.Sprintf("RAG_RETRY_ATTEMPTS must be at least 1, got %d", cfg.RAGConnectorCfg.Retry.Attempts))
	}

	switch cfg.ConversationCfg.IDFormat {
	case "uuid", "short":
	default:
		errors = append(errors, fmt.Sprintf("CONVERSATION_ID_FORMAT must be uuid or short, got %q", cfg.ConversationCfg.IDFormat))
	}

	if cfg.TelegramCfg.RateLimitPerMinute < 1 || cfg.TelegramCfg.RateLimitPerMinute > 60 {
		errors = append(errors, fmt.Sprintf("TELEGRAM_RATE_LIMIT_PER_MINUTE must be between 1 and 60, got %d", cfg.TelegramCfg.RateLimitPerMinute))
	}

	if cfg.TelegramCfg.RateLimitBurst < 1 || cfg.TelegramCfg.RateLimitBurst > 20 {
		errors = append(errors, fmt.Sprintf("TELEGRAM_RATE_LIMIT_BURST must be between 1 and 20, got %d", cfg.TelegramCfg.RateLimitBurst))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation errors:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// ValidateTelegram checks the settings that only the bot command needs.
func (cfg *Config) ValidateTelegram() error {
	if cfg.TelegramCfg.BotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	if cfg.TelegramCfg.OwnerChatID == 0 {
		return fmt.Errorf("TELEGRAM_OWNER_CHAT_ID is required")
	}
	if cfg.TelegramCfg.ShutdownTimeout < 1 || cfg.TelegramCfg.ShutdownTimeout > 300 {
		return fmt.Errorf("TELEGRAM_SHUTDOWN_TIMEOUT must be between 1 and 300 seconds, got %d", cfg.TelegramCfg.ShutdownTimeout)
	}
	return nil
}

func getEnvFile(environment string) string {
	switch environment {
	case "prod", "production":
		return ".env.prod"
	case "local", "dev", "development":
		return ".env.local"
	default:
		return fmt.Sprintf(".env.%s", environment)
	}
}
