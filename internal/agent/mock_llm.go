package agent

import (
	"context"
	"sync"

	"github.com/pennywise-fi/pennywise/internal/model"
)

// MockLLM is a test implementation of the llm.Client interface with
// function fields for scripted behavior and call recording.
type MockLLM struct {
	CompleteFn func(ctx context.Context, prompt string) (string, error)
	ChatFn     func(ctx context.Context, system string, messages []model.Message) (string, error)

	mu              sync.Mutex
	CompletePrompts []string
	ChatCalls       int
}

// NewMockLLM creates a new mock LLM client.
func NewMockLLM() *MockLLM {
	return &MockLLM{}
}

// Complete records the prompt and runs the scripted function.
func (m *MockLLM) Complete(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.CompletePrompts = append(m.CompletePrompts, prompt)
	m.mu.Unlock()

	if m.CompleteFn != nil {
		return m.CompleteFn(ctx, prompt)
	}
	return "", nil
}

// Chat records the call and runs the scripted function.
func (m *MockLLM) Chat(ctx context.Context, system string, messages []model.Message) (string, error) {
	m.mu.Lock()
	m.ChatCalls++
	m.mu.Unlock()

	if m.ChatFn != nil {
		return m.ChatFn(ctx, system, messages)
	}
	return "", nil
}
