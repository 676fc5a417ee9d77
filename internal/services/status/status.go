package status

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Level grades a status message shown to the player.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Message is one entry of a game's status log. The log is append-only and
// survives turn rollback.
type Message struct {
	Level Level     `json:"level"`
	Text  string    `json:"text"`
	Time  time.Time `json:"time"`
}

// Log records player-facing status messages per game.
type Log interface {
	Append(ctx context.Context, gameID uuid.UUID, level Level, text string) error
	// List returns the most recent limit messages, oldest first. A limit of
	// zero or less returns everything.
	List(ctx context.Context, gameID uuid.UUID, limit int) ([]Message, error)
	Clear(ctx context.Context, gameID uuid.UUID) error
}

// mirror writes a status message to slog at the matching level.
func mirror(logger *slog.Logger, gameID uuid.UUID, level Level, text string) {
	switch level {
	case LevelError:
		logger.Error(text, "game_id", gameID, "status", level)
	case LevelWarning:
		logger.Warn(text, "game_id", gameID, "status", level)
	default:
		logger.Info(text, "game_id", gameID, "status", level)
	}
}

// MemoryLog keeps status messages in process.
type MemoryLog struct {
	mu       sync.RWMutex
	messages map[uuid.UUID][]Message
	logger   *slog.Logger
}

var _ Log = (*MemoryLog)(nil)

func NewMemoryLog(logger *slog.Logger) *MemoryLog {
	return &MemoryLog{
		messages: make(map[uuid.UUID][]Message),
		logger:   logger,
	}
}

func (m *MemoryLog) Append(ctx context.Context, gameID uuid.UUID, level Level, text string) error {
	mirror(m.logger, gameID, level, text)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[gameID] = append(m.messages[gameID], Message{Level: level, Text: text, Time: time.Now().UTC()})
	return nil
}

func (m *MemoryLog) List(ctx context.Context, gameID uuid.UUID, limit int) ([]Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := m.messages[gameID]
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	out := make([]Message, len(all))
	copy(out, all)
	return out, nil
}

func (m *MemoryLog) Clear(ctx context.Context, gameID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.messages, gameID)
	return nil
}

// RedisLog keeps each game's status messages in the list
// "game-status:<id>" so the API and workers share them.
type RedisLog struct {
	rdb    *redis.Client
	logger *slog.Logger
}

var _ Log = (*RedisLog)(nil)

func NewRedisLog(rdb *redis.Client, logger *slog.Logger) *RedisLog {
	return &RedisLog{
		rdb:    rdb,
		logger: logger,
	}
}

func (r *RedisLog) key(gameID uuid.UUID) string {
	return fmt.Sprintf("game-status:%s", gameID.String())
}

func (r *RedisLog) Append(ctx context.Context, gameID uuid.UUID, level Level, text string) error {
	mirror(r.logger, gameID, level, text)

	data, err := json.Marshal(Message{Level: level, Text: text, Time: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal status message: %w", err)
	}
	if err := r.rdb.RPush(ctx, r.key(gameID), data).Err(); err != nil {
		r.logger.Error("Failed to append status message", "error", err, "game_id", gameID)
		return fmt.Errorf("failed to append status message: %w", err)
	}
	return nil
}

func (r *RedisLog) List(ctx context.Context, gameID uuid.UUID, limit int) ([]Message, error) {
	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}
	raw, err := r.rdb.LRange(ctx, r.key(gameID), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read status log: %w", err)
	}

	out := make([]Message, 0, len(raw))
	for _, s := range raw {
		var msg Message
		if err := json.Unmarshal([]byte(s), &msg); err != nil {
			r.logger.Warn("Skipping unreadable status message", "error", err, "game_id", gameID)
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}

func (r *RedisLog) Clear(ctx context.Context, gameID uuid.UUID) error {
	if err := r.rdb.Del(ctx, r.key(gameID)).Err(); err != nil {
		return fmt.Errorf("failed to clear status log: %w", err)
	}
	return nil
}
