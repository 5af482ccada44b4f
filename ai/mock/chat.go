package mock

import (
	"context"
	"sync"

	"github.com/poiesic/clinroute/ai"
)

// DefaultResponse is returned by MockChatModel when no response is scripted.
const DefaultResponse = "This is a mock response."

// MockChatModel is an ai.ChatModel double that records every message list it
// receives. It is safe for concurrent use.
type MockChatModel struct {
	// GenerateFunc is called by Generate if set.
	// If nil, Responses are returned in order, then Response.
	GenerateFunc func(ctx context.Context, messages []ai.Message) (string, error)

	// Response is returned once Responses is exhausted.
	Response string

	// Responses are returned one per call, in order.
	Responses []string

	mu    sync.Mutex
	calls [][]ai.Message
}

var _ ai.ChatModel = (*MockChatModel)(nil)

// NewMockChatModel returns a MockChatModel that always answers response.
// An empty response selects DefaultResponse.
func NewMockChatModel(response string) *MockChatModel {
	if response == "" {
		response = DefaultResponse
	}
	return &MockChatModel{Response: response}
}

// Generate records messages and returns the scripted response.
func (m *MockChatModel) Generate(ctx context.Context, messages []ai.Message) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, append([]ai.Message(nil), messages...))
	var next string
	scripted := false
	if m.GenerateFunc == nil && len(m.Responses) > 0 {
		next, m.Responses = m.Responses[0], m.Responses[1:]
		scripted = true
	}
	fn := m.GenerateFunc
	response := m.Response
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, messages)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if scripted {
		return next, nil
	}
	return response, nil
}

// Calls returns a copy of every recorded message list.
func (m *MockChatModel) Calls() [][]ai.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]ai.Message, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns the number of Generate calls.
func (m *MockChatModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Reset clears recorded calls and scripted responses.
func (m *MockChatModel) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.Responses = nil
	m.GenerateFunc = nil
}
