// Package slack_test provides unit tests for the Slack client and event
// helpers.
package slack_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heritagebox/chat-service/internal/services/messaging/slack"
)

func newClient(t *testing.T, url string) *slack.Client {
	t.Helper()
	client, err := slack.NewClient(&slack.ClientConfig{
		BaseURL:  url,
		BotToken: "xoxb-test",
	})
	require.NoError(t, err)
	return client
}

func TestNewClient_RequiresBotToken(t *testing.T) {
	_, err := slack.NewClient(&slack.ClientConfig{})
	assert.Error(t, err)
}

func TestPostMessage_StripsChannelHash(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat.postMessage", r.URL.Path)
		assert.Equal(t, "Bearer xoxb-test", r.Header.Get("Authorization"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "vip-sales", req["channel"])
		assert.Equal(t, "hello", req["text"])

		json.NewEncoder(w).Encode(map[string]any{"ok": true, "ts": "111.222", "channel": "C123"})
	}))
	defer server.Close()

	client := newClient(t, server.URL)

	result, err := client.PostMessage(context.Background(), "#vip-sales", "hello", "")
	require.NoError(t, err)
	assert.Equal(t, "111.222", result.TS)
	assert.Equal(t, "C123", result.Channel)
}

func TestPostMessage_APIErrorSurfaced(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "channel_not_found"})
	}))
	defer server.Close()

	client := newClient(t, server.URL)

	_, err := client.PostMessage(context.Background(), "#nope", "hello", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel_not_found")
}

func TestOpenThread_NoticeTSBecomesThreadID(t *testing.T) {
	var threadTSSeen []any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		threadTSSeen = append(threadTSSeen, req["thread_ts"])

		json.NewEncoder(w).Encode(map[string]any{"ok": true, "ts": "100.001", "channel": "C123"})
	}))
	defer server.Close()

	client := newClient(t, server.URL)

	threadTS, err := client.OpenThread(context.Background(), "#vip-sales", "notice", "detail")
	require.NoError(t, err)
	assert.Equal(t, "100.001", threadTS)

	// The notice goes out top-level, the detail under it.
	require.Len(t, threadTSSeen, 2)
	assert.Nil(t, threadTSSeen[0])
	assert.Equal(t, "100.001", threadTSSeen[1])
}

func TestIsHumanThreadMessage(t *testing.T) {
	cases := []struct {
		name  string
		event *slack.Event
		want  bool
	}{
		{"agent reply in thread", &slack.Event{Type: "message", User: "U1", ThreadTS: "1.2"}, true},
		{"bot echo", &slack.Event{Type: "message", BotID: "B1", ThreadTS: "1.2"}, false},
		{"top-level channel message", &slack.Event{Type: "message", User: "U1"}, false},
		{"missing user", &slack.Event{Type: "message", ThreadTS: "1.2"}, false},
		{"non-message event", &slack.Event{Type: "reaction_added", User: "U1", ThreadTS: "1.2"}, false},
		{"nil event", nil, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.event.IsHumanThreadMessage())
		})
	}
}

func TestCleanAgentText(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"👤 **Customer:** where is my order", "where is my order"},
		{"🤖 **Bot:** our hours are 9-5", "our hours are 9-5"},
		{"👤 **CUSTOMER:** quoted back in caps", "quoted back in caps"},
		{"**Sarah:** checking now", "checking now"},
		{"  plain text  ", "plain text"},
		{"middle **Bot:** untouched", "middle **Bot:** untouched"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, slack.CleanAgentText(tc.in))
	}
}

func TestFormatForThread(t *testing.T) {
	cases := []struct {
		in     string
		sender string
		want   string
	}{
		{"hello", "user", "👤 **Customer:** hello"},
		{"hi there", "bot", "🤖 **Bot:** hi there"},
		{"on it", "agent", "🤖 **Bot:** on it"},
		{"line one<br>line two", "user", "👤 **Customer:** line one\nline two"},
		{"<strong>bold</strong> and <em>italic</em>", "user", "👤 **Customer:** *bold* and _italic_"},
		{"<div>stripped</div>", "user", "👤 **Customer:** stripped"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, slack.FormatForThread(tc.in, tc.sender))
	}
}
