package storage

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jwebster45206/manor-engine/internal/config"
	"github.com/jwebster45206/manor-engine/pkg/storage"
)

// Open creates the snapshot store selected by STORAGE_BACKEND.
func Open(cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	switch cfg.StorageBackend {
	case "file":
		return NewFileStorage(cfg.SaveDir, logger)
	case "redis":
		return NewRedisStorage(cfg.RedisURL, logger)
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
		}
		return OpenSQLite(cfg.SQLitePath, logger)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
