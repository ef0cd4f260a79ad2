// Package claude_test provides unit tests for the Claude completion client.
package claude_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heritagebox/chat-service/internal/services/completion"
	"github.com/heritagebox/chat-service/internal/services/completion/claude"
)

func newClient(t *testing.T, url string) *claude.Client {
	t.Helper()
	client, err := claude.NewClient(&claude.ClientConfig{
		BaseURL: url,
		APIKey:  "test-key",
	})
	require.NoError(t, err)
	return client
}

func completionResponse(text string) map[string]any {
	return map[string]any{
		"content": []map[string]any{
			{"type": "text", "text": text},
		},
	}
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	_, err := claude.NewClient(&claude.ClientConfig{})
	assert.Error(t, err)
}

func TestComplete_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "You are Helena.", req["system"])

		json.NewEncoder(w).Encode(completionResponse("Hello! How can I help?"))
	}))
	defer server.Close()

	client := newClient(t, server.URL)

	text, err := client.Complete(context.Background(), []completion.Message{
		{Role: completion.RoleUser, Content: "hi"},
	}, "You are Helena.", 1024)

	require.NoError(t, err)
	assert.Equal(t, "Hello! How can I help?", text)
}

func TestComplete_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(completionResponse("recovered"))
	}))
	defer server.Close()

	client := newClient(t, server.URL)

	text, err := client.Complete(context.Background(), []completion.Message{
		{Role: completion.RoleUser, Content: "hi"},
	}, "", 100)

	require.NoError(t, err)
	assert.Equal(t, "recovered", text)
	assert.Equal(t, int32(3), calls.Load())
}

func TestComplete_AuthErrorsDoNotRetry(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"type": "authentication_error", "message": "invalid x-api-key"},
		})
	}))
	defer server.Close()

	client := newClient(t, server.URL)

	_, err := client.Complete(context.Background(), []completion.Message{
		{Role: completion.RoleUser, Content: "hi"},
	}, "", 100)

	require.Error(t, err)
	assert.Equal(t, completion.CategoryAuth, completion.CategoryOf(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestComplete_RateLimitCategory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newClient(t, server.URL)

	_, err := client.Complete(context.Background(), []completion.Message{
		{Role: completion.RoleUser, Content: "hi"},
	}, "", 100)

	require.Error(t, err)
	assert.Equal(t, completion.CategoryRateLimit, completion.CategoryOf(err))
}

func TestComplete_EmptyContentIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"content": []any{}})
	}))
	defer server.Close()

	client := newClient(t, server.URL)

	_, err := client.Complete(context.Background(), []completion.Message{
		{Role: completion.RoleUser, Content: "hi"},
	}, "", 100)
	assert.Error(t, err)
}
