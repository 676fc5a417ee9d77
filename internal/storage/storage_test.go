package storage

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/manor-engine/internal/config"
	"github.com/jwebster45206/manor-engine/pkg/state"
	"github.com/jwebster45206/manor-engine/pkg/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func setupTestRedis(t *testing.T) *miniredis.Miniredis {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	return mr
}

func testGame(t *testing.T, name string, created time.Time) *state.Game {
	t.Helper()
	g, err := state.NewGame(name, state.GameState{
		Setting:        "A quiet house.",
		Player:         state.Player{Name: "Corvin", Description: "A cartographer."},
		Rooms:          []state.Room{{Name: "Foyer", Description: "Dusty."}},
		Items:          []state.Item{{Name: "Note", Description: "Folded."}},
		PlayerLocation: state.PlayerLocation{Room: "Foyer", Description: "By the door."},
		ItemLocations:  []state.ItemLocation{state.InRoom("Note", "Foyer", "On the table.")},
		RoomConnections: []state.RoomConnection{
			{Room1: "Foyer", Room2: "Library", Description: "Doors."},
		},
	})
	require.NoError(t, err)
	g.Metadata.CreationDateTime = created
	return g
}

func backends(t *testing.T) map[string]storage.Storage {
	logger := testLogger()

	mr := setupTestRedis(t)
	rs, err := NewRedisStorage("redis://"+mr.Addr(), logger)
	require.NoError(t, err)

	fs, err := NewFileStorage(filepath.Join(t.TempDir(), "saves"), logger)
	require.NoError(t, err)

	ss, err := OpenSQLite(filepath.Join(t.TempDir(), "games.db"), logger)
	require.NoError(t, err)

	all := map[string]storage.Storage{
		"redis":  rs,
		"file":   fs,
		"sqlite": ss,
		"mock":   storage.NewMockStorage(),
	}
	t.Cleanup(func() {
		for _, s := range all {
			_ = s.Close()
		}
	})
	return all
}

func TestStorage_RoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Ping(ctx))

			g := testGame(t, "Shifting Manor", time.Now().UTC().Truncate(time.Millisecond))
			g.Turns = append(g.Turns, state.Turn{
				Prompt:      "take the note",
				Actions:     []state.Action{state.TakeItem("Note", "In a pocket.", "Takes it.")},
				Description: "Corvin pockets the note.",
			})
			require.NoError(t, s.SaveGame(ctx, g))

			loaded, err := s.LoadGame(ctx, g.Metadata.ID)
			require.NoError(t, err)
			require.NotNil(t, loaded)
			assert.Equal(t, g.Metadata.ID, loaded.Metadata.ID)
			assert.True(t, g.Metadata.CreationDateTime.Equal(loaded.Metadata.CreationDateTime))
			assert.Equal(t, g.State, loaded.State)
			assert.Equal(t, g.Turns, loaded.Turns)
			assert.NoError(t, loaded.Validate())

			// Overwrite in place.
			loaded.State.PlayerLocation.Description = "Near the stairs."
			require.NoError(t, s.SaveGame(ctx, loaded))
			again, err := s.LoadGame(ctx, g.Metadata.ID)
			require.NoError(t, err)
			assert.Equal(t, "Near the stairs.", again.State.PlayerLocation.Description)

			require.NoError(t, s.DeleteGame(ctx, g.Metadata.ID))
			gone, err := s.LoadGame(ctx, g.Metadata.ID)
			require.NoError(t, err)
			assert.Nil(t, gone)

			// Deleting twice is fine.
			assert.NoError(t, s.DeleteGame(ctx, g.Metadata.ID))
		})
	}
}

func TestStorage_LoadMissing(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			g, err := s.LoadGame(ctx, uuid.New())
			assert.NoError(t, err)
			assert.Nil(t, g)
		})
	}
}

func TestStorage_ListGames(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			empty, err := s.ListGames(ctx)
			require.NoError(t, err)
			assert.Empty(t, empty)

			older := testGame(t, "Older", base)
			newer := testGame(t, "Newer", base.Add(time.Hour))
			require.NoError(t, s.SaveGame(ctx, older))
			require.NoError(t, s.SaveGame(ctx, newer))

			list, err := s.ListGames(ctx)
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, newer.Metadata.ID, list[0].ID)
			assert.Equal(t, "Newer", list[0].Name)
			assert.Equal(t, older.Metadata.ID, list[1].ID)
			assert.True(t, base.Equal(list[1].CreationDateTime))
		})
	}
}

func TestFileStorage_Layout(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStorage(dir, testLogger())
	require.NoError(t, err)

	g := testGame(t, "Layout", time.Now().UTC())
	require.NoError(t, fs.SaveGame(context.Background(), g))

	data, err := os.ReadFile(filepath.Join(dir, g.Metadata.ID.String()+".json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n    \"metadata\": {")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")

	// Unreadable files are skipped when listing.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0o644))
	list, err := fs.ListGames(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestRedisStorage_Keys(t *testing.T) {
	mr := setupTestRedis(t)
	rs, err := NewRedisStorage("redis://"+mr.Addr(), testLogger())
	require.NoError(t, err)
	defer rs.Close()

	g := testGame(t, "Keys", time.Now().UTC())
	require.NoError(t, rs.SaveGame(context.Background(), g))

	assert.True(t, mr.Exists("game:"+g.Metadata.ID.String()))
	members, err := mr.ZMembers("games")
	require.NoError(t, err)
	assert.Equal(t, []string{g.Metadata.ID.String()}, members)

	// A snapshot deleted out of band is skipped.
	mr.Del("game:" + g.Metadata.ID.String())
	list, err := rs.ListGames(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRedisStorage_InvalidURL(t *testing.T) {
	_, err := NewRedisStorage("not a url", testLogger())
	assert.Error(t, err)
}

func TestRedisStorage_WaitForConnection(t *testing.T) {
	mr := setupTestRedis(t)
	rs, err := NewRedisStorage("redis://"+mr.Addr(), testLogger())
	require.NoError(t, err)
	defer rs.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, rs.WaitForConnection(ctx))
}

func TestOpenSQLite_EmptyPath(t *testing.T) {
	_, err := OpenSQLite("  ", testLogger())
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	mr := setupTestRedis(t)

	tests := []struct {
		name    string
		cfg     config.Config
		want    any
		wantErr bool
	}{
		{"file", config.Config{StorageBackend: "file", SaveDir: filepath.Join(dir, "saves")}, &FileStorage{}, false},
		{"redis", config.Config{StorageBackend: "redis", RedisURL: "redis://" + mr.Addr()}, &RedisStorage{}, false},
		{"sqlite", config.Config{StorageBackend: "sqlite", SQLitePath: filepath.Join(dir, "db", "games.db")}, &SQLiteStorage{}, false},
		{"unknown", config.Config{StorageBackend: "tape"}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Open(&tt.cfg, testLogger())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer s.Close()
			assert.IsType(t, tt.want, s)
			assert.NoError(t, s.Ping(context.Background()))
		})
	}
}
