package services

import (
	"context"
	"sync"

	"github.com/jwebster45206/manor-engine/pkg/chat"
)

// MockLLMAPI is a mock implementation of LLMService for testing. Without
// hooks it answers Chat with "Mock response" and ChatJSON with a reply that
// proposes no actions.
type MockLLMAPI struct {
	InitModelFunc func(ctx context.Context, modelName string) error
	ChatFunc      func(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error)
	ChatJSONFunc  func(ctx context.Context, messages []chat.ChatMessage, schema *chat.Schema) (*chat.ChatResponse, error)

	// Track calls for testing
	InitModelCalls []string
	ChatCalls      []ChatCall
	ChatJSONCalls  []ChatCall

	mu sync.Mutex // protects all fields above
}

type ChatCall struct {
	Messages []chat.ChatMessage
	Schema   *chat.Schema
}

var _ LLMService = (*MockLLMAPI)(nil)

// NewMockLLMAPI creates a new mock LLM service
func NewMockLLMAPI() *MockLLMAPI {
	return &MockLLMAPI{
		InitModelCalls: make([]string, 0),
		ChatCalls:      make([]ChatCall, 0),
		ChatJSONCalls:  make([]ChatCall, 0),
	}
}

// InitModel mocks model initialization
func (m *MockLLMAPI) InitModel(ctx context.Context, modelName string) error {
	m.mu.Lock()
	m.InitModelCalls = append(m.InitModelCalls, modelName)
	fn := m.InitModelFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, modelName)
	}
	return nil
}

func (m *MockLLMAPI) Chat(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error) {
	m.mu.Lock()
	m.ChatCalls = append(m.ChatCalls, ChatCall{Messages: messages})
	fn := m.ChatFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, messages)
	}
	return &chat.ChatResponse{Message: "Mock response"}, nil
}

func (m *MockLLMAPI) ChatJSON(ctx context.Context, messages []chat.ChatMessage, schema *chat.Schema) (*chat.ChatResponse, error) {
	m.mu.Lock()
	m.ChatJSONCalls = append(m.ChatJSONCalls, ChatCall{Messages: messages, Schema: schema})
	fn := m.ChatJSONFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, messages, schema)
	}
	return &chat.ChatResponse{Message: `{"actions": []}`}, nil
}

// SetInitModelError sets up the mock to return an error on InitModel
func (m *MockLLMAPI) SetInitModelError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InitModelFunc = func(ctx context.Context, modelName string) error {
		return err
	}
}

// SetChatError sets up the mock to return an error on Chat
func (m *MockLLMAPI) SetChatError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ChatFunc = func(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error) {
		return nil, err
	}
}

// SetChatResponses makes Chat return the given messages in order, repeating
// the last one once exhausted.
func (m *MockLLMAPI) SetChatResponses(responses ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := 0
	m.ChatFunc = func(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error) {
		m.mu.Lock()
		defer m.mu.Unlock()
		r := responses[min(i, len(responses)-1)]
		i++
		return &chat.ChatResponse{Message: r}, nil
	}
}

// SetChatJSONResponses makes ChatJSON return the given messages in order,
// repeating the last one once exhausted.
func (m *MockLLMAPI) SetChatJSONResponses(responses ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := 0
	m.ChatJSONFunc = func(ctx context.Context, messages []chat.ChatMessage, schema *chat.Schema) (*chat.ChatResponse, error) {
		m.mu.Lock()
		defer m.mu.Unlock()
		r := responses[min(i, len(responses)-1)]
		i++
		return &chat.ChatResponse{Message: r}, nil
	}
}

// Reset clears all call tracking
func (m *MockLLMAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InitModelCalls = make([]string, 0)
	m.ChatCalls = make([]ChatCall, 0)
	m.ChatJSONCalls = make([]ChatCall, 0)
}

// GetCalls returns a copy of the call tracking data in a thread-safe way
func (m *MockLLMAPI) GetCalls() ([]ChatCall, []ChatCall) {
	m.mu.Lock()
	defer m.mu.Unlock()

	chatCalls := make([]ChatCall, len(m.ChatCalls))
	copy(chatCalls, m.ChatCalls)

	jsonCalls := make([]ChatCall, len(m.ChatJSONCalls))
	copy(jsonCalls, m.ChatJSONCalls)

	return chatCalls, jsonCalls
}
