package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/jwebster45206/manor-engine/pkg/state"
	"github.com/jwebster45206/manor-engine/pkg/storage"
)

// FileStorage saves each game as "<dir>/<id>.json".
type FileStorage struct {
	dir    string
	logger *slog.Logger
}

var _ storage.Storage = (*FileStorage)(nil)

// NewFileStorage creates a file store rooted at dir, creating the directory
// if needed.
func NewFileStorage(dir string, logger *slog.Logger) (*FileStorage, error) {
	if dir == "" {
		dir = "./game"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create save directory: %w", err)
	}
	return &FileStorage{dir: dir, logger: logger}, nil
}

func (f *FileStorage) path(id uuid.UUID) string {
	return filepath.Join(f.dir, id.String()+".json")
}

func (f *FileStorage) Ping(ctx context.Context) error {
	info, err := os.Stat(f.dir)
	if err != nil {
		return fmt.Errorf("save directory unavailable: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("save path %s is not a directory", f.dir)
	}
	return nil
}

func (f *FileStorage) Close() error {
	return nil
}

// SaveGame writes the snapshot to a temporary file and renames it into place
// so a crash never leaves a half-written save.
func (f *FileStorage) SaveGame(ctx context.Context, g *state.Game) error {
	if g == nil {
		return errors.New("game cannot be nil")
	}
	data, err := json.MarshalIndent(g, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal game: %w", err)
	}

	tmp, err := os.CreateTemp(f.dir, ".save-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write game: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write game: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path(g.Metadata.ID)); err != nil {
		f.logger.Error("Failed to save game", "game_id", g.Metadata.ID, "error", err)
		return fmt.Errorf("failed to save game: %w", err)
	}
	return nil
}

func (f *FileStorage) LoadGame(ctx context.Context, id uuid.UUID) (*state.Game, error) {
	data, err := os.ReadFile(f.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read game: %w", err)
	}
	var g state.Game
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game %s: %w", id, err)
	}
	return &g, nil
}

func (f *FileStorage) DeleteGame(ctx context.Context, id uuid.UUID) error {
	if err := os.Remove(f.path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete game: %w", err)
	}
	return nil
}

func (f *FileStorage) ListGames(ctx context.Context) ([]state.Metadata, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read save directory: %w", err)
	}

	result := make([]state.Metadata, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" || strings.HasPrefix(name, ".") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(f.dir, name))
		if err != nil {
			f.logger.Warn("Failed to read save file", "file", name, "error", err)
			continue
		}
		var g struct {
			Metadata state.Metadata `json:"metadata"`
		}
		if err := json.Unmarshal(data, &g); err != nil {
			f.logger.Warn("Skipping unreadable save file", "file", name, "error", err)
			continue
		}
		result = append(result, g.Metadata)
	}
	storage.SortMetadata(result)
	return result, nil
}
