package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/jwebster45206/manor-engine/internal/worker"
	"github.com/jwebster45206/manor-engine/pkg/state"
)

type ErrorResponse struct {
	Error  string   `json:"error"`
	Faults []string `json:"faults,omitempty"`
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, logger *slog.Logger, status int, msg string) {
	writeJSON(w, logger, status, ErrorResponse{Error: msg})
}

// writeFailure maps an engine error onto a status code and body.
//
//	400  empty prompt, malformed action
//	404  unknown game
//	409  rejected turn or action (game faults)
//	422  inconsistent world graph on import
//	502  language model failure
//	500  everything else
func writeFailure(w http.ResponseWriter, logger *slog.Logger, err error) {
	var (
		rejected *worker.RejectedError
		external *worker.ExternalFault
	)
	switch {
	case errors.Is(err, worker.ErrEmptyPrompt), errors.Is(err, worker.ErrInvalidAction):
		writeError(w, logger, http.StatusBadRequest, err.Error())
	case errors.Is(err, worker.ErrGameNotFound):
		writeError(w, logger, http.StatusNotFound, "Game not found")
	case errors.As(err, &rejected):
		writeJSON(w, logger, http.StatusConflict, ErrorResponse{
			Error:  "The turn was rejected and rolled back.",
			Faults: rejected.Messages(),
		})
	case state.IsGameFault(err):
		writeJSON(w, logger, http.StatusConflict, ErrorResponse{
			Error:  "The action was rejected.",
			Faults: []string{err.Error()},
		})
	case errors.As(err, &external):
		logger.Error("Language model failure", "stage", external.Stage, "error", external.Err)
		writeError(w, logger, http.StatusBadGateway, "The game master is unavailable. Please try again.")
	default:
		logger.Error("Request failed", "error", err)
		writeError(w, logger, http.StatusInternalServerError, "Internal server error")
	}
}

// gameID parses the {id} path value. It writes a 400 and returns false when
// the value is not a UUID.
func gameID(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (uuid.UUID, bool) {
	raw := r.PathValue("id")
	id, err := uuid.Parse(raw)
	if err != nil {
		logger.Warn("Invalid game ID", "id", raw, "error", err)
		writeError(w, logger, http.StatusBadRequest, "Invalid game ID format")
		return uuid.Nil, false
	}
	return id, true
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, logger *slog.Logger, allowed string) {
	logger.Warn("Method not allowed", "method", r.Method, "path", r.URL.Path)
	w.Header().Set("Allow", allowed)
	writeError(w, logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: "+allowed)
}
