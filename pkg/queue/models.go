package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RequestType identifies the type of request in the queue
type RequestType string

const (
	// RequestTypeTurn is a natural-language turn submitted by the player
	RequestTypeTurn RequestType = "turn"

	// RequestTypeAction applies one structured action without the LLM
	RequestTypeAction RequestType = "action"
)

// Request is a unit of work for the turn worker.
type Request struct {
	RequestID string      `json:"request_id"`
	Type      RequestType `json:"type"`
	GameID    uuid.UUID   `json:"game_id"`

	// Turn-specific fields
	Prompt string `json:"prompt,omitempty"`

	// Action-specific fields
	Action json.RawMessage `json:"action,omitempty"`

	// Attempts counts how often the request was put back because the game
	// was locked by another worker.
	Attempts int `json:"attempts,omitempty"`

	EnqueuedAt time.Time `json:"enqueued_at"`
}

// NewTurnRequest creates a turn request with a fresh request ID.
func NewTurnRequest(gameID uuid.UUID, prompt string) *Request {
	return &Request{
		RequestID:  uuid.New().String(),
		Type:       RequestTypeTurn,
		GameID:     gameID,
		Prompt:     prompt,
		EnqueuedAt: time.Now().UTC(),
	}
}

// Validate checks that the request carries what its type needs.
func (r *Request) Validate() error {
	if r.GameID == uuid.Nil {
		return fmt.Errorf("request %s: game id is required", r.RequestID)
	}
	switch r.Type {
	case RequestTypeTurn:
		if r.Prompt == "" {
			return fmt.Errorf("request %s: prompt is required", r.RequestID)
		}
	case RequestTypeAction:
		if len(r.Action) == 0 {
			return fmt.Errorf("request %s: action is required", r.RequestID)
		}
	default:
		return fmt.Errorf("request %s: unknown type %q", r.RequestID, r.Type)
	}
	return nil
}

// ToJSON converts the request to JSON bytes for Redis
func (r *Request) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

// FromJSON parses a request from JSON bytes
func FromJSON(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, err
	}
	return &req, nil
}
