// Package completion defines the AI completion provider interface.
package completion

import (
	"context"
	"errors"
	"fmt"
)

// Message is one turn of conversation context sent to the provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Conversation roles understood by completion providers.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Client defines the completion provider operations.
type Client interface {
	// Complete sends the conversation and returns the assistant's reply text.
	Complete(ctx context.Context, messages []Message, systemPrompt string, maxTokens int) (string, error)
}

// Category classifies provider failures so callers can pick an appropriate
// user-facing message.
type Category string

const (
	CategoryAuth      Category = "auth"
	CategoryRateLimit Category = "rate_limit"
	CategoryTimeout   Category = "timeout"
	CategoryAPI       Category = "api"
)

// ProviderError is a classified completion provider failure.
type ProviderError struct {
	Category   Category
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("completion provider error (%s, status %d): %s", e.Category, e.StatusCode, e.Message)
}

// CategoryOf returns the failure category, or CategoryAPI for unclassified errors.
func CategoryOf(err error) Category {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Category
	}
	return CategoryAPI
}
