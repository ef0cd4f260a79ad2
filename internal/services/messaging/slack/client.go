// Package slack provides the Slack messaging client and webhook event types.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/heritagebox/chat-service/internal/services/messaging"
)

const defaultBaseURL = "https://slack.com/api"

// ClientConfig holds the Slack client configuration.
type ClientConfig struct {
	// BaseURL overrides the Slack API endpoint (for tests).
	BaseURL    string
	BotToken   string
	HTTPClient *http.Client
}

// Client implements the messaging.Client interface for Slack.
type Client struct {
	baseURL    string
	botToken   string
	httpClient *http.Client
}

// NewClient creates a new Slack client.
func NewClient(config *ClientConfig) (*Client, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if config.BotToken == "" {
		return nil, fmt.Errorf("slack bot token is required")
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	return &Client{
		baseURL:    baseURL,
		botToken:   config.BotToken,
		httpClient: httpClient,
	}, nil
}

type postMessageRequest struct {
	Channel     string `json:"channel"`
	Text        string `json:"text"`
	ThreadTS    string `json:"thread_ts,omitempty"`
	UnfurlLinks bool   `json:"unfurl_links"`
	UnfurlMedia bool   `json:"unfurl_media"`
}

type postMessageResponse struct {
	OK      bool   `json:"ok"`
	TS      string `json:"ts"`
	Channel string `json:"channel"`
	Error   string `json:"error"`
	Warning string `json:"warning"`
}

// PostMessage posts text to a channel, optionally inside a thread.
func (c *Client) PostMessage(ctx context.Context, channel, text, threadTS string) (*messaging.PostResult, error) {
	body, err := json.Marshal(postMessageRequest{
		Channel:  strings.TrimPrefix(channel, "#"),
		Text:     text,
		ThreadTS: threadTS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat.postMessage", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.botToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	var result postMessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if !result.OK {
		return nil, fmt.Errorf("slack API error: %s", result.Error)
	}

	return &messaging.PostResult{TS: result.TS, Channel: result.Channel}, nil
}

// OpenThread posts the channel notice, then the detail message threaded
// under it. The notice's ts becomes the thread id.
func (c *Client) OpenThread(ctx context.Context, channel, notice, detail string) (string, error) {
	initial, err := c.PostMessage(ctx, channel, notice, "")
	if err != nil {
		return "", fmt.Errorf("failed to post thread notice: %w", err)
	}

	if _, err := c.PostMessage(ctx, channel, detail, initial.TS); err != nil {
		return "", fmt.Errorf("failed to post thread detail: %w", err)
	}

	return initial.TS, nil
}
