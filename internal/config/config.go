package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    slog.Level

	RawLogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// LLM
	LLMProvider      string `env:"LLM_PROVIDER" envDefault:"anthropic"`
	ModelName        string `env:"MODEL_NAME" envDefault:"claude-sonnet-4-5"`
	BackendModelName string `env:"BACKEND_MODEL_NAME"`
	AnthropicAPIKey  string `env:"ANTHROPIC_API_KEY"`
	GeminiAPIKey     string `env:"GEMINI_API_KEY"`

	// Storage
	StorageBackend string `env:"STORAGE_BACKEND" envDefault:"file"`
	SaveDir        string `env:"SAVE_DIR" envDefault:"./game"`
	RedisURL       string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	SQLitePath     string `env:"SQLITE_PATH" envDefault:"./game/games.db"`

	// Turns
	WorldSeed   string        `env:"WORLD_SEED"`
	TurnTimeout time.Duration `env:"TURN_TIMEOUT" envDefault:"3m"`
	AsyncTurns  bool          `env:"ASYNC_TURNS" envDefault:"false"`

	// Worker
	WorkerID string `env:"WORKER_ID"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.LogLevel = parseLogLevel(cfg.RawLogLevel)
	cfg.LLMProvider = strings.ToLower(cfg.LLMProvider)
	cfg.StorageBackend = strings.ToLower(cfg.StorageBackend)
	if cfg.BackendModelName == "" {
		cfg.BackendModelName = cfg.ModelName
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks combinations the env tags cannot express.
func (c *Config) Validate() error {
	switch c.LLMProvider {
	case "anthropic", "gemini", "mock":
	default:
		return fmt.Errorf("invalid LLM_PROVIDER %q (supported: anthropic, gemini, mock)", c.LLMProvider)
	}
	switch c.StorageBackend {
	case "file", "redis", "sqlite":
	default:
		return fmt.Errorf("invalid STORAGE_BACKEND %q (supported: file, redis, sqlite)", c.StorageBackend)
	}
	if c.AsyncTurns && c.StorageBackend != "redis" {
		return fmt.Errorf("ASYNC_TURNS requires STORAGE_BACKEND=redis")
	}
	if c.TurnTimeout <= 0 {
		return fmt.Errorf("TURN_TIMEOUT must be positive")
	}
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
