package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// EventType represents the type of event being broadcast
type EventType string

const (
	EventTypeTurnQueued     EventType = "turn.queued"
	EventTypeTurnProcessing EventType = "turn.processing"
	EventTypeTurnCompleted  EventType = "turn.completed"
	EventTypeTurnFailed     EventType = "turn.failed"
	EventTypeRoomGenerated  EventType = "room.generated"
)

// Event represents a generic event structure
type Event struct {
	Type      EventType      `json:"type"`
	RequestID string         `json:"request_id,omitempty"`
	GameID    string         `json:"game_id,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// Channel returns the Pub/Sub channel carrying a game's events.
func Channel(gameID uuid.UUID) string {
	return fmt.Sprintf("game-events:%s", gameID.String())
}

// Publisher is what the turn processor needs to announce progress.
type Publisher interface {
	PublishTurnQueued(ctx context.Context, gameID uuid.UUID, requestID string) error
	PublishTurnProcessing(ctx context.Context, gameID uuid.UUID, requestID string, prompt string) error
	PublishTurnCompleted(ctx context.Context, gameID uuid.UUID, requestID string, turn int, narration string) error
	PublishTurnFailed(ctx context.Context, gameID uuid.UUID, requestID string, errorMsg string) error
	PublishRoomGenerated(ctx context.Context, gameID uuid.UUID, room string) error
}

// Broadcaster publishes events to Redis Pub/Sub for SSE distribution
type Broadcaster struct {
	redisClient *redis.Client
	logger      *slog.Logger
}

var _ Publisher = (*Broadcaster)(nil)

// NewBroadcaster creates a new event broadcaster
func NewBroadcaster(redisClient *redis.Client, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		redisClient: redisClient,
		logger:      logger,
	}
}

func (b *Broadcaster) PublishTurnQueued(ctx context.Context, gameID uuid.UUID, requestID string) error {
	return b.publishToGame(ctx, gameID, Event{
		Type:      EventTypeTurnQueued,
		RequestID: requestID,
		GameID:    gameID.String(),
		Data:      map[string]any{"status": "queued"},
	})
}

func (b *Broadcaster) PublishTurnProcessing(ctx context.Context, gameID uuid.UUID, requestID string, prompt string) error {
	return b.publishToGame(ctx, gameID, Event{
		Type:      EventTypeTurnProcessing,
		RequestID: requestID,
		GameID:    gameID.String(),
		Data: map[string]any{
			"status": "processing",
			"prompt": prompt,
		},
	})
}

func (b *Broadcaster) PublishTurnCompleted(ctx context.Context, gameID uuid.UUID, requestID string, turn int, narration string) error {
	return b.publishToGame(ctx, gameID, Event{
		Type:      EventTypeTurnCompleted,
		RequestID: requestID,
		GameID:    gameID.String(),
		Data: map[string]any{
			"status":    "completed",
			"turn":      turn,
			"narration": narration,
		},
	})
}

func (b *Broadcaster) PublishTurnFailed(ctx context.Context, gameID uuid.UUID, requestID string, errorMsg string) error {
	return b.publishToGame(ctx, gameID, Event{
		Type:      EventTypeTurnFailed,
		RequestID: requestID,
		GameID:    gameID.String(),
		Data: map[string]any{
			"status": "failed",
			"error":  errorMsg,
		},
	})
}

func (b *Broadcaster) PublishRoomGenerated(ctx context.Context, gameID uuid.UUID, room string) error {
	return b.publishToGame(ctx, gameID, Event{
		Type:   EventTypeRoomGenerated,
		GameID: gameID.String(),
		Data:   map[string]any{"room": room},
	})
}

// publishToGame publishes an event to the game-specific channel
func (b *Broadcaster) publishToGame(ctx context.Context, gameID uuid.UUID, event Event) error {
	channel := Channel(gameID)

	data, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("Failed to marshal event", "error", err, "event", event)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		b.logger.Error("Failed to publish event", "error", err, "channel", channel)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debug("Event published",
		"channel", channel,
		"event_type", event.Type,
		"request_id", event.RequestID,
	)

	return nil
}

// Nop discards every event. It stands in when no Redis is configured.
type Nop struct{}

var _ Publisher = Nop{}

func (Nop) PublishTurnQueued(context.Context, uuid.UUID, string) error {
	return nil
}

func (Nop) PublishTurnProcessing(context.Context, uuid.UUID, string, string) error {
	return nil
}

func (Nop) PublishTurnCompleted(context.Context, uuid.UUID, string, int, string) error {
	return nil
}

func (Nop) PublishTurnFailed(context.Context, uuid.UUID, string, string) error {
	return nil
}

func (Nop) PublishRoomGenerated(context.Context, uuid.UUID, string) error {
	return nil
}
