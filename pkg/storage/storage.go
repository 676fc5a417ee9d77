package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/jwebster45206/manor-engine/pkg/state"
)

// Storage persists Game snapshots. LoadGame returns (nil, nil) when no game
// with the ID has been saved.
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	SaveGame(ctx context.Context, g *state.Game) error
	LoadGame(ctx context.Context, id uuid.UUID) (*state.Game, error)
	DeleteGame(ctx context.Context, id uuid.UUID) error

	// ListGames returns the metadata of every saved game, newest first.
	ListGames(ctx context.Context) ([]state.Metadata, error)
}
