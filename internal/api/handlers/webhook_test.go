// Package handlers_test provides unit tests for the API handlers.
package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heritagebox/chat-service/internal/api/handlers"
	rediscache "github.com/heritagebox/chat-service/internal/infrastructure/cache/redis"
	"github.com/heritagebox/chat-service/internal/pkg/encryption"
	"github.com/heritagebox/chat-service/internal/services/session"
)

func setupSessions(t *testing.T) session.Service {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	client, err := rediscache.NewClient(rediscache.Config{
		Host:       mr.Host(),
		Port:       mr.Port(),
		DefaultTTL: 24 * time.Hour,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})

	svc, err := session.NewService(&session.Config{
		CacheClient: client,
		Encryptor:   encryption.NewNoOpEncryptor(),
		Logger:      zerolog.Nop(),
	})
	require.NoError(t, err)
	return svc
}

func webhookRouter(sessions session.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := handlers.NewWebhookHandler(sessions, zerolog.Nop())
	r.POST("/webhook", h.Receive)
	return r
}

func postWebhook(t *testing.T, r *gin.Engine, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestWebhook_URLVerificationEchoesChallenge(t *testing.T) {
	sessions := setupSessions(t)
	r := webhookRouter(sessions)

	w := postWebhook(t, r, map[string]any{
		"type":      "url_verification",
		"challenge": "challenge-token-123",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "challenge-token-123", w.Body.String())
}

func TestWebhook_MalformedPayloadIs500(t *testing.T) {
	sessions := setupSessions(t)
	r := webhookRouter(sessions)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestWebhook_AgentReplyRoutedToSession(t *testing.T) {
	sessions := setupSessions(t)
	ctx := context.Background()

	_, err := sessions.Create(ctx, "sess-1", "111.222")
	require.NoError(t, err)

	r := webhookRouter(sessions)
	w := postWebhook(t, r, map[string]any{
		"type": "event_callback",
		"event": map[string]any{
			"type":      "message",
			"user":      "U123",
			"text":      "Hi, I'm here to help!",
			"ts":        "1700000001.000100",
			"thread_ts": "111.222",
		},
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())

	sess, err := sessions.Get(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, sess.Messages, 1)
	assert.Equal(t, "agent_1700000001.000100", sess.Messages[0].ID)
	assert.Equal(t, "Hi, I'm here to help!", sess.Messages[0].Content)
	assert.Equal(t, "agent", string(sess.Messages[0].Sender))
}

func TestWebhook_StripsRelayPrefixes(t *testing.T) {
	sessions := setupSessions(t)
	ctx := context.Background()

	_, err := sessions.Create(ctx, "sess-1", "111.222")
	require.NoError(t, err)

	r := webhookRouter(sessions)

	cases := []struct {
		raw  string
		want string
	}{
		{"👤 **Customer:** need my order", "need my order"},
		{"🤖 **Bot:** automated text", "automated text"},
		{"**Jane:** let me check", "let me check"},
		{"plain reply", "plain reply"},
	}

	for i, tc := range cases {
		w := postWebhook(t, r, map[string]any{
			"type": "event_callback",
			"event": map[string]any{
				"type":      "message",
				"user":      "U123",
				"text":      tc.raw,
				"ts":        fmt.Sprintf("1700000002.%06d", i),
				"thread_ts": "111.222",
			},
		})
		assert.Equal(t, http.StatusOK, w.Code)
	}

	sess, err := sessions.Get(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, sess.Messages, len(cases))
	for i, tc := range cases {
		assert.Equal(t, tc.want, sess.Messages[i].Content)
	}
}

func TestWebhook_BotEchoesAndTopLevelMessagesDropped(t *testing.T) {
	sessions := setupSessions(t)
	ctx := context.Background()

	_, err := sessions.Create(ctx, "sess-1", "111.222")
	require.NoError(t, err)

	r := webhookRouter(sessions)

	// Bot echo of our own relay.
	w := postWebhook(t, r, map[string]any{
		"type": "event_callback",
		"event": map[string]any{
			"type":      "message",
			"bot_id":    "B999",
			"text":      "👤 **Customer:** relayed text",
			"ts":        "1700000003.000100",
			"thread_ts": "111.222",
		},
	})
	assert.Equal(t, http.StatusOK, w.Code)

	// Top-level channel message, no thread.
	w = postWebhook(t, r, map[string]any{
		"type": "event_callback",
		"event": map[string]any{
			"type": "message",
			"user": "U123",
			"text": "channel chatter",
			"ts":   "1700000004.000100",
		},
	})
	assert.Equal(t, http.StatusOK, w.Code)

	sess, err := sessions.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Empty(t, sess.Messages)
}

func TestWebhook_UnmappedThreadStill200(t *testing.T) {
	sessions := setupSessions(t)
	r := webhookRouter(sessions)

	w := postWebhook(t, r, map[string]any{
		"type": "event_callback",
		"event": map[string]any{
			"type":      "message",
			"user":      "U123",
			"text":      "hello?",
			"ts":        "1700000005.000100",
			"thread_ts": "999.999",
		},
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestWebhook_RedeliveryKeepsSameMessageID(t *testing.T) {
	sessions := setupSessions(t)
	ctx := context.Background()

	_, err := sessions.Create(ctx, "sess-1", "111.222")
	require.NoError(t, err)

	r := webhookRouter(sessions)
	event := map[string]any{
		"type": "event_callback",
		"event": map[string]any{
			"type":      "message",
			"user":      "U123",
			"text":      "did you get this?",
			"ts":        "1700000006.000100",
			"thread_ts": "111.222",
		},
	}

	postWebhook(t, r, event)
	postWebhook(t, r, event)

	// Slack retried delivery; both stored entries carry the same id so the
	// polling client can dedupe.
	sess, err := sessions.Get(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, sess.Messages, 2)
	assert.Equal(t, sess.Messages[0].ID, sess.Messages[1].ID)
}
