// Package claude provides the Anthropic Claude completion client.
package claude

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/heritagebox/chat-service/internal/services/completion"
)

const (
	defaultBaseURL = "https://api.anthropic.com/v1/messages"
	defaultModel   = "claude-3-5-sonnet-20241022"

	apiVersion = "2023-06-01"

	maxRetries = 3
	retryDelay = time.Second
)

// ClientConfig holds the configuration for the Claude client.
type ClientConfig struct {
	// BaseURL overrides the API endpoint (for tests).
	BaseURL    string
	APIKey     string
	Model      string
	HTTPClient *http.Client
}

// Client implements the completion.Client interface for the Anthropic API.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewClient creates a new Claude completion client.
func NewClient(config *ClientConfig) (*Client, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if config.APIKey == "" {
		return nil, fmt.Errorf("claude API key is required")
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := config.Model
	if model == "" {
		model = defaultModel
	}
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	return &Client{
		baseURL:    baseURL,
		apiKey:     config.APIKey,
		model:      model,
		httpClient: httpClient,
	}, nil
}

type messagesRequest struct {
	Model     string               `json:"model"`
	MaxTokens int                  `json:"max_tokens"`
	System    string               `json:"system,omitempty"`
	Messages  []completion.Message `json:"messages"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

type apiErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends the conversation to the messages API. Transient failures
// (network, 5xx, rate limit) are retried up to three times with exponential
// backoff; other 4xx responses fail immediately.
func (c *Client) Complete(ctx context.Context, messages []completion.Message, systemPrompt string, maxTokens int) (string, error) {
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			delay := retryDelay << (attempt - 1)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", &completion.ProviderError{Category: completion.CategoryTimeout, Message: ctx.Err().Error()}
			}
		}

		text, err := c.complete(ctx, messages, systemPrompt, maxTokens)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if !retryable(err) {
			break
		}
	}
	return "", lastErr
}

func (c *Client) complete(ctx context.Context, messages []completion.Message, systemPrompt string, maxTokens int) (string, error) {
	body, err := json.Marshal(messagesRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		System:    systemPrompt,
		Messages:  messages,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", &completion.ProviderError{Category: completion.CategoryTimeout, Message: err.Error()}
		}
		return "", &completion.ProviderError{Category: completion.CategoryAPI, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", classifyStatus(resp)
	}

	var result messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(result.Content) == 0 || result.Content[0].Text == "" {
		return "", fmt.Errorf("no content in completion response")
	}
	return result.Content[0].Text, nil
}

// classifyStatus maps an error response onto a provider error category.
func classifyStatus(resp *http.Response) error {
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

	var apiErr apiErrorResponse
	message := string(detail)
	if err := json.Unmarshal(detail, &apiErr); err == nil && apiErr.Error.Message != "" {
		message = apiErr.Error.Message
	}

	category := completion.CategoryAPI
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		category = completion.CategoryAuth
	case resp.StatusCode == http.StatusTooManyRequests:
		category = completion.CategoryRateLimit
	case resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode == http.StatusGatewayTimeout:
		category = completion.CategoryTimeout
	}

	return &completion.ProviderError{
		Category:   category,
		StatusCode: resp.StatusCode,
		Message:    message,
	}
}

// retryable reports whether the failure is worth another attempt. Rate
// limits, timeouts, 5xx and transport errors are; other 4xx are not.
func retryable(err error) bool {
	var pe *completion.ProviderError
	if !errors.As(err, &pe) {
		return false
	}
	switch pe.Category {
	case completion.CategoryRateLimit, completion.CategoryTimeout:
		return true
	case completion.CategoryAuth:
		return false
	}
	return pe.StatusCode == 0 || pe.StatusCode >= 500
}
