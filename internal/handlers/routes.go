package handlers

import (
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/manor-engine/internal/services/events"
	"github.com/jwebster45206/manor-engine/internal/services/status"
	"github.com/jwebster45206/manor-engine/internal/worker"
	"github.com/jwebster45206/manor-engine/pkg/state"
	"github.com/jwebster45206/manor-engine/pkg/storage"
)

// Deps are the collaborators the HTTP surface is built from. Queue and
// Redis are optional: without Queue turns run in the request, without Redis
// the SSE endpoint is not mounted.
type Deps struct {
	Storage   storage.Storage
	Processor *worker.TurnProcessor
	StatusLog status.Log
	Publisher events.Publisher
	Queue     Enqueuer
	Redis     *redis.Client
	Health    map[string]Pinger
	SeedName  string
	Seed      state.GameState
	Logger    *slog.Logger
}

// NewMux registers every route.
func NewMux(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("/health", NewHealthHandler(d.Storage, d.Health, d.Logger))

	games := NewGamesHandler(d.Storage, d.StatusLog, d.SeedName, d.Seed, d.Logger)
	mux.Handle("/v1/games", games)
	mux.Handle("/v1/games/{id}", games)
	mux.Handle("/v1/games/{id}/description", NewDescriptionHandler(d.Storage, d.Logger))
	mux.Handle("/v1/games/{id}/actions", NewActionsHandler(d.Processor, d.Storage, d.Queue, d.Publisher, d.Logger))
	mux.Handle("/v1/games/{id}/turns", NewTurnsHandler(d.Processor, d.Storage, d.Queue, d.Publisher, d.Logger))
	mux.Handle("/v1/games/{id}/status", NewStatusHandler(d.StatusLog, d.Logger))

	if d.Redis != nil {
		mux.Handle("/v1/events/games/{id}", NewEventsHandler(d.Redis, d.Logger))
	}
	return mux
}
