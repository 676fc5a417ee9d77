package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/jwebster45206/manor-engine/internal/middleware"
	"github.com/jwebster45206/manor-engine/internal/services/events"
	"github.com/jwebster45206/manor-engine/internal/worker"
	"github.com/jwebster45206/manor-engine/pkg/chat"
	"github.com/jwebster45206/manor-engine/pkg/queue"
	"github.com/jwebster45206/manor-engine/pkg/storage"
)

// Enqueuer accepts work for the turn worker.
type Enqueuer interface {
	EnqueueRequest(ctx context.Context, req *queue.Request) error
}

// QueuedResponse acknowledges a request handed to the worker.
type QueuedResponse struct {
	RequestID string `json:"requestId"`
	GameID    string `json:"gameId"`
	Status    string `json:"status"`
}

// TurnsHandler submits natural-language prompts.
// POST /v1/games/{id}/turns
type TurnsHandler struct {
	processor *worker.TurnProcessor
	storage   storage.Storage
	queue     Enqueuer
	publisher events.Publisher
	logger    *slog.Logger
}

// NewTurnsHandler processes turns in the request unless turnQueue is set, in
// which case turns are queued for the worker and answered with 202.
func NewTurnsHandler(processor *worker.TurnProcessor, storage storage.Storage, turnQueue Enqueuer, publisher events.Publisher, logger *slog.Logger) *TurnsHandler {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &TurnsHandler{
		processor: processor,
		storage:   storage,
		queue:     turnQueue,
		publisher: publisher,
		logger:    logger,
	}
}

func (h *TurnsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, h.logger, "POST")
		return
	}
	id, ok := gameID(w, r, h.logger)
	if !ok {
		return
	}

	var req chat.TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid turn request", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body. Expected JSON with 'prompt' field.")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	if h.queue != nil {
		h.enqueue(w, r, queue.NewTurnRequest(id, req.Prompt))
		return
	}

	requestID := w.Header().Get(middleware.RequestIDHeader)
	result, err := h.processor.ProcessTurn(r.Context(), id, req.Prompt)
	if err != nil {
		if pubErr := h.publisher.PublishTurnFailed(r.Context(), id, requestID, err.Error()); pubErr != nil {
			h.logger.Error("Failed to publish failure event", "error", pubErr)
		}
		writeFailure(w, h.logger, err)
		return
	}
	if !result.Command {
		if err := h.publisher.PublishTurnCompleted(r.Context(), id, requestID, result.Turn, result.Message); err != nil {
			h.logger.Error("Failed to publish completion event", "error", err)
		}
	}
	writeJSON(w, h.logger, http.StatusOK, result)
}

// enqueue checks the game exists, answers shortcut commands straight away
// and queues everything else.
func (h *TurnsHandler) enqueue(w http.ResponseWriter, r *http.Request, req *queue.Request) {
	g, ok := loadGame(w, r, h.storage, h.logger)
	if !ok {
		return
	}
	if cmd := g.State.TryHandleCommand(req.Prompt); cmd.Handled {
		writeJSON(w, h.logger, http.StatusOK, &worker.TurnResult{
			GameID:  g.Metadata.ID,
			Command: true,
			Message: cmd.Message,
			Turn:    len(g.Turns),
		})
		return
	}
	submit(w, r, h.queue, h.publisher, h.logger, req)
}

// submit hands req to the worker and answers 202.
func submit(w http.ResponseWriter, r *http.Request, q Enqueuer, publisher events.Publisher, logger *slog.Logger, req *queue.Request) {
	if err := q.EnqueueRequest(r.Context(), req); err != nil {
		writeFailure(w, logger, err)
		return
	}
	if err := publisher.PublishTurnQueued(r.Context(), req.GameID, req.RequestID); err != nil {
		logger.Error("Failed to publish queued event", "error", err)
	}
	logger.Info("Request queued", "request_id", req.RequestID, "game_id", req.GameID, "type", req.Type)
	writeJSON(w, logger, http.StatusAccepted, QueuedResponse{
		RequestID: req.RequestID,
		GameID:    req.GameID.String(),
		Status:    "queued",
	})
}
