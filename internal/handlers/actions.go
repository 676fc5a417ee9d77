package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/manor-engine/internal/services/events"
	"github.com/jwebster45206/manor-engine/internal/worker"
	"github.com/jwebster45206/manor-engine/pkg/queue"
	"github.com/jwebster45206/manor-engine/pkg/state"
	"github.com/jwebster45206/manor-engine/pkg/storage"
)

// ApplyActionRequest carries one structured action.
type ApplyActionRequest struct {
	Action json.RawMessage `json:"action"`
}

// ActionsHandler exposes the legal action sets and direct action
// application, bypassing the model.
// GET  /v1/games/{id}/actions
// POST /v1/games/{id}/actions
type ActionsHandler struct {
	processor *worker.TurnProcessor
	storage   storage.Storage
	queue     Enqueuer
	publisher events.Publisher
	logger    *slog.Logger
}

func NewActionsHandler(processor *worker.TurnProcessor, storage storage.Storage, turnQueue Enqueuer, publisher events.Publisher, logger *slog.Logger) *ActionsHandler {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &ActionsHandler{
		processor: processor,
		storage:   storage,
		queue:     turnQueue,
		publisher: publisher,
		logger:    logger,
	}
}

func (h *ActionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		g, ok := loadGame(w, r, h.storage, h.logger)
		if !ok {
			return
		}
		writeJSON(w, h.logger, http.StatusOK, g.State.LegalActions())
	case http.MethodPost:
		h.handleApply(w, r)
	default:
		methodNotAllowed(w, r, h.logger, "GET, POST")
	}
}

func (h *ActionsHandler) handleApply(w http.ResponseWriter, r *http.Request) {
	id, ok := gameID(w, r, h.logger)
	if !ok {
		return
	}

	var req ApplyActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Action) == 0 {
		h.logger.Warn("Invalid action request", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body. Expected JSON with 'action' field.")
		return
	}
	var a state.Action
	if err := json.Unmarshal(req.Action, &a); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid action: "+err.Error())
		return
	}
	if err := a.Validate(); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid action: "+err.Error())
		return
	}

	if h.queue != nil {
		if _, ok := loadGame(w, r, h.storage, h.logger); !ok {
			return
		}
		submit(w, r, h.queue, h.publisher, h.logger, &queue.Request{
			RequestID:  uuid.New().String(),
			Type:       queue.RequestTypeAction,
			GameID:     id,
			Action:     req.Action,
			EnqueuedAt: time.Now().UTC(),
		})
		return
	}

	g, err := h.processor.ApplyAction(r.Context(), id, a)
	if err != nil {
		writeFailure(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, g)
}
