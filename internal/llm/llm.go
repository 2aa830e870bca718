// Package llm abstracts the chat-completion backend behind a small client
// interface so the conversation engine can run against any OpenAI-compatible
// endpoint or a local mock.
package llm

import (
	"context"
	"fmt"

	"agentpipe/internal/config"
)

// Message is a single chat message from an agent's perspective.
type Message struct {
	// Role is "user" or "assistant".
	Role    string
	Content string
}

// Request is one completion request: a system prompt plus the conversation
// so far.
type Request struct {
	System   string
	Messages []Message
}

// Client produces one completion for a request.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// New builds a Client from config.
func New(cfg config.LLMConfig) (Client, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAIClient(cfg)
	case "mock":
		return NewMockClient(), nil
	default:
		return nil, fmt.Errorf("llm provider %q not supported (openai|mock)", cfg.Provider)
	}
}
