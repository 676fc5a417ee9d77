package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/jwebster45206/manor-engine/pkg/state"
	"github.com/jwebster45206/manor-engine/pkg/storage"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS games (
	    id TEXT PRIMARY KEY,
	    name TEXT NOT NULL,
	    created_at INTEGER NOT NULL,
	    updated_at INTEGER NOT NULL,
	    snapshot_json TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS games_created_at ON games (created_at DESC)`,
}

// SQLiteStorage keeps game snapshots as JSON documents in one table, with
// the metadata columns broken out for listing.
type SQLiteStorage struct {
	sqlDB  *sql.DB
	logger *slog.Logger
}

var _ storage.Storage = (*SQLiteStorage)(nil)

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string, logger *slog.Logger) (*SQLiteStorage, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	for _, stmt := range sqliteSchema {
		if _, err := sqlDB.Exec(stmt); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}
	return &SQLiteStorage{sqlDB: sqlDB, logger: logger}, nil
}

func (s *SQLiteStorage) Ping(ctx context.Context) error {
	if err := s.sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite ping failed: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *SQLiteStorage) SaveGame(ctx context.Context, g *state.Game) error {
	if g == nil {
		return errors.New("game cannot be nil")
	}
	data, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("failed to marshal game: %w", err)
	}

	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO games (id, name, created_at, updated_at, snapshot_json)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		    name = excluded.name,
		    updated_at = excluded.updated_at,
		    snapshot_json = excluded.snapshot_json`,
		g.Metadata.ID.String(),
		g.Metadata.Name,
		g.Metadata.CreationDateTime.UnixMilli(),
		time.Now().UTC().UnixMilli(),
		string(data),
	)
	if err != nil {
		s.logger.Error("Failed to save game", "game_id", g.Metadata.ID, "error", err)
		return fmt.Errorf("save game: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) LoadGame(ctx context.Context, id uuid.UUID) (*state.Game, error) {
	row := s.sqlDB.QueryRowContext(ctx, `SELECT snapshot_json FROM games WHERE id = ?`, id.String())

	var data string
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load game: %w", err)
	}
	var g state.Game
	if err := json.Unmarshal([]byte(data), &g); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game %s: %w", id, err)
	}
	return &g, nil
}

func (s *SQLiteStorage) DeleteGame(ctx context.Context, id uuid.UUID) error {
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM games WHERE id = ?`, id.String()); err != nil {
		return fmt.Errorf("delete game: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) ListGames(ctx context.Context) ([]state.Metadata, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT id, name, created_at FROM games ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()

	result := make([]state.Metadata, 0)
	for rows.Next() {
		var (
			rawID     string
			md        state.Metadata
			createdAt int64
		)
		if err := rows.Scan(&rawID, &md.Name, &createdAt); err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		md.ID, err = uuid.Parse(rawID)
		if err != nil {
			s.logger.Warn("Skipping game with invalid id", "id", rawID, "error", err)
			continue
		}
		md.CreationDateTime = time.UnixMilli(createdAt).UTC()
		result = append(result, md)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	return result, nil
}
