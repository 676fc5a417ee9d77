package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/jwebster45206/manor-engine/pkg/chat"
)

const (
	DefaultGeminiModel       = "gemini-2.5-flash"
	DefaultGeminiTemperature = 0.7
	DefaultGeminiMaxTokens   = 2048
)

// GeminiService implements LLMService for Google Gemini. Structured replies
// use Gemini's native response schema, so enum restrictions are enforced by
// the API.
type GeminiService struct {
	client           *genai.Client
	modelName        string
	backendModelName string
	logger           *slog.Logger
}

func NewGeminiService(ctx context.Context, apiKey, modelName, backendModelName string, logger *slog.Logger) (*GeminiService, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	if modelName == "" || strings.HasPrefix(modelName, "claude") {
		modelName = DefaultGeminiModel
	}
	if backendModelName == "" || strings.HasPrefix(backendModelName, "claude") {
		backendModelName = modelName
	}
	return &GeminiService{
		client:           client,
		modelName:        modelName,
		backendModelName: backendModelName,
		logger:           logger,
	}, nil
}

func (g *GeminiService) InitModel(ctx context.Context, modelName string) error {
	return nil
}

// Close releases the underlying client.
func (g *GeminiService) Close() error {
	return g.client.Close()
}

func (g *GeminiService) model(name string, system string) *genai.GenerativeModel {
	model := g.client.GenerativeModel(name)
	model.SetTemperature(DefaultGeminiTemperature)
	model.SetMaxOutputTokens(DefaultGeminiMaxTokens)
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}
	return model
}

func (g *GeminiService) Chat(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error) {
	system, history, last := splitGeminiMessages(messages)
	return g.send(ctx, g.model(g.modelName, system), history, last)
}

func (g *GeminiService) ChatJSON(ctx context.Context, messages []chat.ChatMessage, schema *chat.Schema) (*chat.ChatResponse, error) {
	if schema == nil {
		return nil, fmt.Errorf("schema is required")
	}
	system, history, last := splitGeminiMessages(messages)
	model := g.model(g.backendModelName, system)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = toGeminiSchema(schema)
	return g.send(ctx, model, history, last)
}

func (g *GeminiService) send(ctx context.Context, model *genai.GenerativeModel, history []*genai.Content, last string) (*chat.ChatResponse, error) {
	if last == "" {
		return nil, fmt.Errorf("no user message to send")
	}
	session := model.StartChat()
	session.History = history

	resp, err := session.SendMessage(ctx, genai.Text(last))
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("no content returned from Gemini")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return &chat.ChatResponse{Message: strings.TrimSpace(b.String())}, nil
}

// splitGeminiMessages separates the system instruction, the prior turns and
// the final user message that is sent.
func splitGeminiMessages(messages []chat.ChatMessage) (string, []*genai.Content, string) {
	var systemParts []string
	var turns []chat.ChatMessage
	for _, msg := range messages {
		if msg.Role == chat.ChatRoleSystem {
			systemParts = append(systemParts, msg.Content)
		} else {
			turns = append(turns, msg)
		}
	}

	var last string
	if n := len(turns); n > 0 && turns[n-1].Role == chat.ChatRoleUser {
		last = turns[n-1].Content
		turns = turns[:n-1]
	}

	history := make([]*genai.Content, 0, len(turns))
	for _, msg := range turns {
		role := "user"
		if msg.Role == chat.ChatRoleAgent {
			role = "model"
		}
		history = append(history, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(msg.Content)}})
	}
	return strings.Join(systemParts, "\n\n"), history, last
}

// toGeminiSchema converts the provider-neutral schema into Gemini's.
func toGeminiSchema(s *chat.Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Description: s.Description,
		Enum:        s.Enum,
		Required:    s.Required,
		Items:       toGeminiSchema(s.Items),
	}
	switch s.Type {
	case chat.TypeObject:
		out.Type = genai.TypeObject
	case chat.TypeArray:
		out.Type = genai.TypeArray
	case chat.TypeInteger:
		out.Type = genai.TypeInteger
	case chat.TypeBoolean:
		out.Type = genai.TypeBoolean
	default:
		out.Type = genai.TypeString
	}
	if len(s.Enum) > 0 {
		out.Format = "enum"
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = toGeminiSchema(prop)
		}
	}
	return out
}
