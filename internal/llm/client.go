// Package llm provides language model clients for the chat agent.
// It supports OpenAI and Anthropic providers behind a single interface;
// the agent treats completion as a black box and defines no retries.
package llm

import (
	"context"

	"github.com/pennywise-fi/pennywise/internal/model"
)

// Client defines the interface for LLM providers.
type Client interface {
	// Complete sends a single-prompt completion request and returns the
	// model's raw text reply.
	Complete(ctx context.Context, prompt string) (string, error)

	// Chat sends a full role-tagged message history, optionally framed by a
	// system instruction, and returns the model's raw text reply.
	Chat(ctx context.Context, system string, messages []model.Message) (string, error)
}

// Config holds LLM provider configuration.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	MaxTokens   int
}
