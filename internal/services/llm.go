package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jwebster45206/manor-engine/internal/config"
	"github.com/jwebster45206/manor-engine/pkg/chat"
)

// LLMService defines the interface for interacting with the LLM API
type LLMService interface {
	// InitModel prepares the model on startup
	InitModel(ctx context.Context, modelName string) error

	// Chat returns a free-text completion from the narrative model
	Chat(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error)

	// ChatJSON returns a completion from the backend model that conforms to
	// schema. Message holds the raw JSON text.
	ChatJSON(ctx context.Context, messages []chat.ChatMessage, schema *chat.Schema) (*chat.ChatResponse, error)
}

// NewLLMService builds the provider selected by LLM_PROVIDER.
func NewLLMService(ctx context.Context, cfg *config.Config, logger *slog.Logger) (LLMService, error) {
	switch cfg.LLMProvider {
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("anthropic API key is required when using anthropic provider")
		}
		return NewAnthropicService(cfg.AnthropicAPIKey, cfg.ModelName, cfg.BackendModelName, logger), nil
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("gemini API key is required when using gemini provider")
		}
		return NewGeminiService(ctx, cfg.GeminiAPIKey, cfg.ModelName, cfg.BackendModelName, logger)
	case "mock":
		return NewMockLLMAPI(), nil
	default:
		return nil, fmt.Errorf("invalid LLM provider %q", cfg.LLMProvider)
	}
}
