package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jwebster45206/manor-engine/pkg/chat"
)

const (
	anthropicBaseURL = "https://api.anthropic.com/v1"
	anthropicVersion = "2023-06-01"

	// anthropicOutputTool is the single tool the model is forced to call for
	// structured output; its input is the JSON reply.
	anthropicOutputTool = "submit_output"

	DefaultAnthropicTemperature = 0.7
	DefaultAnthropicMaxTokens   = 2048
)

// AnthropicService implements LLMService for Anthropic Claude
type AnthropicService struct {
	apiKey           string
	modelName        string
	backendModelName string
	baseURL          string
	httpClient       *http.Client
	logger           *slog.Logger
}

type AnthropicChatRequest struct {
	Model       string               `json:"model"`
	MaxTokens   int                  `json:"max_tokens"`
	Temperature *float64             `json:"temperature,omitempty"`
	Messages    []chat.ChatMessage   `json:"messages"`
	System      string               `json:"system,omitempty"`
	Tools       []AnthropicTool      `json:"tools,omitempty"`
	ToolChoice  *AnthropicToolChoice `json:"tool_choice,omitempty"`
}

type AnthropicTool struct {
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	InputSchema *chat.Schema `json:"input_schema"`
}

type AnthropicToolChoice struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

type AnthropicContentBlock struct {
	Type  string          `json:"type"`
	Text  string          `json:"text,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

type AnthropicChatResponse struct {
	ID         string                  `json:"id"`
	Type       string                  `json:"type"`
	Role       string                  `json:"role"`
	Content    []AnthropicContentBlock `json:"content"`
	Model      string                  `json:"model"`
	StopReason string                  `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewAnthropicService(apiKey string, modelName string, backendModelName string, logger *slog.Logger) *AnthropicService {
	if backendModelName == "" {
		backendModelName = modelName
	}
	return &AnthropicService{
		apiKey:           apiKey,
		modelName:        modelName,
		backendModelName: backendModelName,
		baseURL:          anthropicBaseURL,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		logger: logger,
	}
}

func (a *AnthropicService) InitModel(ctx context.Context, modelName string) error {
	return nil
}

// splitChatMessages extracts and combines all system messages into a single system prompt
// and returns the remaining non-system messages
func (a *AnthropicService) splitChatMessages(messages []chat.ChatMessage) (string, []chat.ChatMessage) {
	var systemParts []string
	var nonSystemMessages []chat.ChatMessage

	for _, msg := range messages {
		if msg.Role == chat.ChatRoleSystem {
			systemParts = append(systemParts, msg.Content)
		} else {
			nonSystemMessages = append(nonSystemMessages, msg)
		}
	}

	return strings.Join(systemParts, "\n\n"), nonSystemMessages
}

// send posts one Messages API request and decodes the reply.
func (a *AnthropicService) send(ctx context.Context, anthropicReq AnthropicChatRequest) (*AnthropicChatResponse, error) {
	reqBody, err := json.Marshal(anthropicReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/messages", bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	req.Header.Set("content-type", "application/json")

	start := time.Now()
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var anthropicResp AnthropicChatResponse
	if err := json.Unmarshal(body, &anthropicResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if anthropicResp.Error != nil {
		return nil, fmt.Errorf("API error: %s", anthropicResp.Error.Message)
	}

	a.logger.Debug("Anthropic request completed",
		"model", anthropicReq.Model,
		"duration", time.Since(start),
		"input_tokens", anthropicResp.Usage.InputTokens,
		"output_tokens", anthropicResp.Usage.OutputTokens)

	return &anthropicResp, nil
}

func (a *AnthropicService) newRequest(messages []chat.ChatMessage, modelName string) AnthropicChatRequest {
	systemPrompt, conversationMessages := a.splitChatMessages(messages)
	temperature := DefaultAnthropicTemperature
	return AnthropicChatRequest{
		Model:       modelName,
		MaxTokens:   DefaultAnthropicMaxTokens,
		Temperature: &temperature,
		Messages:    conversationMessages,
		System:      systemPrompt,
	}
}

func (a *AnthropicService) Chat(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error) {
	resp, err := a.send(ctx, a.newRequest(messages, a.modelName))
	if err != nil {
		return nil, err
	}

	var responseText string
	for _, content := range resp.Content {
		if content.Type == "text" {
			responseText += content.Text
		}
	}

	return &chat.ChatResponse{
		Message: strings.TrimSpace(responseText),
	}, nil
}

// ChatJSON forces a call to a single tool whose input schema is schema and
// returns the tool input as the JSON reply.
func (a *AnthropicService) ChatJSON(ctx context.Context, messages []chat.ChatMessage, schema *chat.Schema) (*chat.ChatResponse, error) {
	if schema == nil {
		return nil, fmt.Errorf("schema is required")
	}
	anthropicReq := a.newRequest(messages, a.backendModelName)
	anthropicReq.Tools = []AnthropicTool{{
		Name:        anthropicOutputTool,
		Description: "Submit the structured reply.",
		InputSchema: schema,
	}}
	anthropicReq.ToolChoice = &AnthropicToolChoice{Type: "tool", Name: anthropicOutputTool}

	resp, err := a.send(ctx, anthropicReq)
	if err != nil {
		return nil, err
	}

	for _, content := range resp.Content {
		if content.Type == "tool_use" && content.Name == anthropicOutputTool && len(content.Input) > 0 {
			return &chat.ChatResponse{Message: string(content.Input)}, nil
		}
	}
	// Some models answer in text despite the tool choice.
	for _, content := range resp.Content {
		if content.Type == "text" && strings.TrimSpace(content.Text) != "" {
			return &chat.ChatResponse{Message: strings.TrimSpace(content.Text)}, nil
		}
	}
	return &chat.ChatResponse{}, nil
}
