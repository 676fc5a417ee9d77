package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/jwebster45206/manor-engine/internal/services/status"
	"github.com/jwebster45206/manor-engine/pkg/storage"
)

// DescriptionHandler renders the world as the model sees it.
// GET /v1/games/{id}/description
type DescriptionHandler struct {
	storage storage.Storage
	logger  *slog.Logger
}

func NewDescriptionHandler(storage storage.Storage, logger *slog.Logger) *DescriptionHandler {
	return &DescriptionHandler{storage: storage, logger: logger}
}

func (h *DescriptionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, h.logger, "GET")
		return
	}
	g, ok := loadGame(w, r, h.storage, h.logger)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(g.State.DescribeWorld())); err != nil {
		h.logger.Error("Failed to write description", "error", err)
	}
}

// StatusResponse is a game's status log, oldest first.
type StatusResponse struct {
	Messages []status.Message `json:"messages"`
}

// StatusHandler serves the player-facing status log.
// GET /v1/games/{id}/status?limit=N
type StatusHandler struct {
	statusLog status.Log
	logger    *slog.Logger
}

func NewStatusHandler(statusLog status.Log, logger *slog.Logger) *StatusHandler {
	return &StatusHandler{statusLog: statusLog, logger: logger}
}

func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, h.logger, "GET")
		return
	}
	id, ok := gameID(w, r, h.logger)
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, h.logger, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	msgs, err := h.statusLog.List(r.Context(), id, limit)
	if err != nil {
		writeFailure(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, StatusResponse{Messages: msgs})
}
