package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/manor-engine/internal/services/status"
	"github.com/jwebster45206/manor-engine/pkg/state"
	"github.com/jwebster45206/manor-engine/pkg/storage"
)

// CreateGameRequest defines the optional request body for a new game.
type CreateGameRequest struct {
	Name string `json:"name,omitempty"`
}

// ListGamesResponse is the saved game list, newest first.
type ListGamesResponse struct {
	Games []state.Metadata `json:"games"`
}

type GamesHandler struct {
	storage   storage.Storage
	statusLog status.Log
	seedName  string
	seed      state.GameState
	logger    *slog.Logger
}

// NewGamesHandler serves the game collection. New games start from seed.
func NewGamesHandler(storage storage.Storage, statusLog status.Log, seedName string, seed state.GameState, logger *slog.Logger) *GamesHandler {
	return &GamesHandler{
		storage:   storage,
		statusLog: statusLog,
		seedName:  seedName,
		seed:      seed,
		logger:    logger,
	}
}

// ServeHTTP handles HTTP requests for games
// Routes:
// POST /v1/games          - Create a new game from the seed
// GET /v1/games           - List saved games
// GET /v1/games/{id}      - Read a game
// PUT /v1/games/{id}      - Import a game snapshot
// DELETE /v1/games/{id}   - Delete a game
func (h *GamesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.PathValue("id") == "" {
		switch r.Method {
		case http.MethodPost:
			h.handleCreate(w, r)
		case http.MethodGet:
			h.handleList(w, r)
		default:
			methodNotAllowed(w, r, h.logger, "POST, GET")
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.handleRead(w, r)
	case http.MethodPut:
		h.handleImport(w, r)
	case http.MethodDelete:
		h.handleDelete(w, r)
	default:
		methodNotAllowed(w, r, h.logger, "GET, PUT, DELETE")
	}
}

func (h *GamesHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateGameRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.logger.Warn("Invalid create game request", "error", err)
			writeError(w, h.logger, http.StatusBadRequest, "Invalid request body. Expected JSON with optional 'name' field.")
			return
		}
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = h.seedName
	}

	g, err := state.NewGame(name, h.seed)
	if err != nil {
		writeFailure(w, h.logger, fmt.Errorf("failed to create game: %w", err))
		return
	}
	if err := g.Validate(); err != nil {
		h.logger.Error("Seed world is inconsistent", "error", err)
		writeFailure(w, h.logger, err)
		return
	}
	if err := h.storage.SaveGame(r.Context(), g); err != nil {
		writeFailure(w, h.logger, err)
		return
	}
	if err := h.statusLog.Append(r.Context(), g.Metadata.ID, status.LevelInfo, "A new game has begun."); err != nil {
		h.logger.Error("Failed to append status message", "error", err)
	}

	h.logger.Info("Game created", "game_id", g.Metadata.ID, "name", g.Metadata.Name)
	writeJSON(w, h.logger, http.StatusCreated, g)
}

func (h *GamesHandler) handleList(w http.ResponseWriter, r *http.Request) {
	games, err := h.storage.ListGames(r.Context())
	if err != nil {
		writeFailure(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, ListGamesResponse{Games: games})
}

func (h *GamesHandler) handleRead(w http.ResponseWriter, r *http.Request) {
	g, ok := loadGame(w, r, h.storage, h.logger)
	if !ok {
		return
	}
	writeJSON(w, h.logger, http.StatusOK, g)
}

// handleImport stores a client-supplied snapshot after checking every world
// invariant. The snapshot's ID must match the path or be omitted.
func (h *GamesHandler) handleImport(w http.ResponseWriter, r *http.Request) {
	id, ok := gameID(w, r, h.logger)
	if !ok {
		return
	}

	var g state.Game
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&g); err != nil {
		h.logger.Warn("Invalid game snapshot", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid game snapshot: "+err.Error())
		return
	}

	switch g.Metadata.ID {
	case id:
	case uuid.Nil:
		g.Metadata.ID = id
	default:
		writeError(w, h.logger, http.StatusBadRequest, "Snapshot ID does not match the URL")
		return
	}
	if g.Metadata.CreationDateTime.IsZero() {
		g.Metadata.CreationDateTime = time.Now().UTC()
	}
	if g.Turns == nil {
		g.Turns = make([]state.Turn, 0)
	}

	if violations := g.State.Violations(); len(violations) > 0 {
		faults := make([]string, len(violations))
		for i, v := range violations {
			faults[i] = v.Error()
		}
		writeJSON(w, h.logger, http.StatusUnprocessableEntity, ErrorResponse{
			Error:  "The game snapshot violates world invariants.",
			Faults: faults,
		})
		return
	}
	if err := g.Validate(); err != nil {
		writeJSON(w, h.logger, http.StatusUnprocessableEntity, ErrorResponse{
			Error:  "The game snapshot has malformed turns.",
			Faults: []string{err.Error()},
		})
		return
	}

	if err := h.storage.SaveGame(r.Context(), &g); err != nil {
		writeFailure(w, h.logger, err)
		return
	}
	h.logger.Info("Game imported", "game_id", id, "turns", len(g.Turns))
	writeJSON(w, h.logger, http.StatusOK, &g)
}

func (h *GamesHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := gameID(w, r, h.logger)
	if !ok {
		return
	}
	if err := h.storage.DeleteGame(r.Context(), id); err != nil {
		writeFailure(w, h.logger, err)
		return
	}
	if err := h.statusLog.Clear(r.Context(), id); err != nil {
		h.logger.Error("Failed to clear status log", "game_id", id, "error", err)
	}
	h.logger.Info("Game deleted", "game_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// loadGame reads the {id} game, writing 400, 404 or 500 on failure.
func loadGame(w http.ResponseWriter, r *http.Request, store storage.Storage, logger *slog.Logger) (*state.Game, bool) {
	id, ok := gameID(w, r, logger)
	if !ok {
		return nil, false
	}
	g, err := store.LoadGame(r.Context(), id)
	if err != nil {
		writeFailure(w, logger, err)
		return nil, false
	}
	if g == nil {
		writeError(w, logger, http.StatusNotFound, "Game not found")
		return nil, false
	}
	return g, true
}
