// Package chat_test provides unit tests for the chat orchestration service.
package chat_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/heritagebox/chat-service/internal/domain/errors"
	"github.com/heritagebox/chat-service/internal/domain/models"
	rediscache "github.com/heritagebox/chat-service/internal/infrastructure/cache/redis"
	"github.com/heritagebox/chat-service/internal/pkg/encryption"
	"github.com/heritagebox/chat-service/internal/services/catalog"
	"github.com/heritagebox/chat-service/internal/services/chat"
	"github.com/heritagebox/chat-service/internal/services/completion"
	"github.com/heritagebox/chat-service/internal/services/messaging"
	"github.com/heritagebox/chat-service/internal/services/session"
)

type fakeCompletion struct {
	reply string
	err   error

	mu       sync.Mutex
	lastMsgs []completion.Message
}

func (f *fakeCompletion) Complete(_ context.Context, messages []completion.Message, _ string, _ int) (string, error) {
	f.mu.Lock()
	f.lastMsgs = messages
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type fakeMessaging struct {
	mu       sync.Mutex
	posts    []string
	threads  []string
	postErr  error
	openErr  error
	threadTS string
}

func (f *fakeMessaging) PostMessage(_ context.Context, _, text, threadTS string) (*messaging.PostResult, error) {
	if f.postErr != nil {
		return nil, f.postErr
	}
	f.mu.Lock()
	f.posts = append(f.posts, text)
	f.threads = append(f.threads, threadTS)
	f.mu.Unlock()
	return &messaging.PostResult{TS: fmt.Sprintf("%d.000100", time.Now().Unix()), Channel: "C123"}, nil
}

func (f *fakeMessaging) OpenThread(ctx context.Context, channel, notice, detail string) (string, error) {
	if f.openErr != nil {
		return "", f.openErr
	}
	f.mu.Lock()
	f.posts = append(f.posts, notice, detail)
	f.mu.Unlock()
	return f.threadTS, nil
}

type fakeCatalog struct{}

func (fakeCatalog) Products(context.Context) []catalog.Product { return nil }
func (fakeCatalog) SystemPrompt(context.Context) string        { return "You are Helena." }

type fakeArchive struct {
	mu          sync.Mutex
	saved       []string
	orderAnswer string
	orderFound  bool
}

func (f *fakeArchive) SaveConversation(_ context.Context, sessionID string, _ []models.Message) {
	f.mu.Lock()
	f.saved = append(f.saved, sessionID)
	f.mu.Unlock()
}

func (f *fakeArchive) OrderStatus(context.Context, string) (string, bool) {
	return f.orderAnswer, f.orderFound
}

type fixture struct {
	sessions   session.Service
	completion *fakeCompletion
	messaging  *fakeMessaging
	archive    *fakeArchive
	svc        chat.Service
}

func setup(t *testing.T) *fixture {
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

	sessions, err := session.NewService(&session.Config{
		CacheClient: client,
		Encryptor:   encryption.NewNoOpEncryptor(),
		Logger:      zerolog.Nop(),
	})
	require.NoError(t, err)

	comp := &fakeCompletion{reply: "Happy to help!"}
	msgr := &fakeMessaging{threadTS: "111.222"}
	arch := &fakeArchive{}

	svc, err := chat.NewService(&chat.Config{
		Sessions:   sessions,
		Completion: comp,
		Messaging:  msgr,
		Catalog:    fakeCatalog{},
		Archive:    arch,
		Channel:    "#vip-sales",
		Logger:     zerolog.Nop(),
	})
	require.NoError(t, err)

	return &fixture{sessions: sessions, completion: comp, messaging: msgr, archive: arch, svc: svc}
}

func TestSendMessage_AIReplyAndTranscript(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	result, err := f.svc.SendMessage(ctx, "sess-1", "how much for photo scanning?")
	require.NoError(t, err)
	assert.Equal(t, "Happy to help!", result.Response)
	assert.False(t, result.HandoffActive)

	sess, err := f.sessions.Get(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, sess.Messages, 2)
	assert.Equal(t, models.SenderUser, sess.Messages[0].Sender)
	assert.Equal(t, models.SenderBot, sess.Messages[1].Sender)
}

func TestSendMessage_MapsSendersToProviderRoles(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.SendMessage(ctx, "sess-1", "first question")
	require.NoError(t, err)
	_, err = f.svc.SendMessage(ctx, "sess-1", "second question")
	require.NoError(t, err)

	f.completion.mu.Lock()
	defer f.completion.mu.Unlock()
	require.Len(t, f.completion.lastMsgs, 3)
	assert.Equal(t, completion.RoleUser, f.completion.lastMsgs[0].Role)
	assert.Equal(t, completion.RoleAssistant, f.completion.lastMsgs[1].Role)
	assert.Equal(t, completion.RoleUser, f.completion.lastMsgs[2].Role)
}

func TestSendMessage_OrderStatusIntercept(t *testing.T) {
	f := setup(t)
	f.archive.orderAnswer = "Order #12345 from 2026-08-01 - Status: Shipped"
	f.archive.orderFound = true
	ctx := context.Background()

	result, err := f.svc.SendMessage(ctx, "sess-1", "where is order #12345?")
	require.NoError(t, err)
	assert.Equal(t, f.archive.orderAnswer, result.Response)

	// No completion call was made; the bot reply is the store answer.
	f.completion.mu.Lock()
	assert.Nil(t, f.completion.lastMsgs)
	f.completion.mu.Unlock()
}

func TestSendMessage_CompletionFailureMapsCategory(t *testing.T) {
	f := setup(t)
	f.completion.err = &completion.ProviderError{Category: completion.CategoryRateLimit, StatusCode: 429, Message: "slow down"}
	ctx := context.Background()

	_, err := f.svc.SendMessage(ctx, "sess-1", "hello?")
	require.Error(t, err)

	domainErr, ok := domainerrors.GetDomainError(err)
	require.True(t, ok)
	assert.Contains(t, domainErr.Message, "temporarily busy")
}

func TestSendMessage_RelaysWhenHandoffActive(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.sessions.Create(ctx, "sess-1", "111.222")
	require.NoError(t, err)

	result, err := f.svc.SendMessage(ctx, "sess-1", "are you there?")
	require.NoError(t, err)
	assert.True(t, result.HandoffActive)
	assert.Empty(t, result.Response)

	// Message went into the Slack thread, not to the AI.
	f.messaging.mu.Lock()
	require.Len(t, f.messaging.posts, 1)
	assert.Contains(t, f.messaging.posts[0], "are you there?")
	assert.Equal(t, "111.222", f.messaging.threads[0])
	f.messaging.mu.Unlock()

	sess, err := f.sessions.Get(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, sess.Messages, 1)
	assert.Equal(t, models.SenderUser, sess.Messages[0].Sender)
}

func TestRequestHandoff_BindsThreadAndReplaysHistory(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	msg, err := f.svc.RequestHandoff(ctx, &chat.HandoffRequest{
		SessionID: "sess-1",
		Messages: []models.Message{
			{Content: "hi", Sender: models.SenderUser},
			{Content: "hello!", Sender: models.SenderBot},
		},
		CustomerInfo: &chat.CustomerInfo{Name: "Pat", Email: "pat@example.com"},
	})
	require.NoError(t, err)
	assert.Contains(t, msg, "notified via Slack")

	sess, err := f.sessions.GetByThread(ctx, "111.222")
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "sess-1", sess.SessionID)
	assert.Len(t, sess.Messages, 2)

	// Notice and detail both went out, and the detail names the customer.
	f.messaging.mu.Lock()
	require.Len(t, f.messaging.posts, 2)
	assert.Contains(t, f.messaging.posts[0], "NEW CUSTOMER SUPPORT REQUEST")
	assert.Contains(t, f.messaging.posts[1], "pat@example.com")
	f.messaging.mu.Unlock()
}

func TestRequestHandoff_NoReplayIntoExistingTranscript(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	// An AI phase already persisted these turns server-side.
	_, err := f.svc.SendMessage(ctx, "sess-1", "How much for VHS tapes?")
	require.NoError(t, err)

	// The widget hands over its own copy of the same history.
	_, err = f.svc.RequestHandoff(ctx, &chat.HandoffRequest{
		SessionID: "sess-1",
		Messages: []models.Message{
			{Content: "How much for VHS tapes?", Sender: models.SenderUser},
			{Content: "Happy to help!", Sender: models.SenderBot},
		},
	})
	require.NoError(t, err)

	sess, err := f.sessions.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "111.222", sess.SlackThreadID)
	require.Len(t, sess.Messages, 2)
	assert.Equal(t, models.SenderUser, sess.Messages[0].Sender)
	assert.Equal(t, models.SenderBot, sess.Messages[1].Sender)
}

func TestRequestHandoff_TruncatesHistoryOnRuneBoundary(t *testing.T) {
	f := setup(t)

	long := strings.Repeat("📼", 300)
	_, err := f.svc.RequestHandoff(context.Background(), &chat.HandoffRequest{
		SessionID: "sess-1",
		Messages:  []models.Message{{Content: long, Sender: models.SenderUser}},
	})
	require.NoError(t, err)

	f.messaging.mu.Lock()
	defer f.messaging.mu.Unlock()
	require.Len(t, f.messaging.posts, 2)
	detail := f.messaging.posts[1]
	assert.True(t, utf8.ValidString(detail))
	assert.Contains(t, detail, strings.Repeat("📼", 200)+"...")
	assert.NotContains(t, detail, strings.Repeat("📼", 201))
}

func TestRequestHandoff_DegradesWhenSlackFails(t *testing.T) {
	f := setup(t)
	f.messaging.openErr = errors.New("slack is down")
	ctx := context.Background()

	msg, err := f.svc.RequestHandoff(ctx, &chat.HandoffRequest{SessionID: "sess-1"})
	require.NoError(t, err)
	assert.Contains(t, msg, "request received")

	// No binding was created; the visitor can retry later.
	sess, err := f.sessions.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestRequestHandoff_RequiresSessionID(t *testing.T) {
	f := setup(t)

	_, err := f.svc.RequestHandoff(context.Background(), &chat.HandoffRequest{})
	require.Error(t, err)

	domainErr, ok := domainerrors.GetDomainError(err)
	require.True(t, ok)
	assert.Equal(t, domainerrors.ErrCodeValidation, domainErr.Code)
}

func TestRelayToThread_MissingSessionIs404(t *testing.T) {
	f := setup(t)

	_, err := f.svc.RelayToThread(context.Background(), "missing", "hello", models.SenderUser)
	require.Error(t, err)
	assert.True(t, domainerrors.IsNotFound(err))
}

func TestRelayToThread_UnboundSessionIs400(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.sessions.Create(ctx, "sess-1", "")
	require.NoError(t, err)

	_, err = f.svc.RelayToThread(ctx, "sess-1", "hello", models.SenderUser)
	require.Error(t, err)

	domainErr, ok := domainerrors.GetDomainError(err)
	require.True(t, ok)
	assert.Equal(t, domainerrors.ErrCodeBadRequest, domainErr.Code)
}

func TestRelayToThread_PostsAndRecords(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.sessions.Create(ctx, "sess-1", "111.222")
	require.NoError(t, err)

	result, err := f.svc.RelayToThread(ctx, "sess-1", "checking in", models.SenderUser)
	require.NoError(t, err)
	assert.NotEmpty(t, result.MessageID)
	assert.NotEmpty(t, result.SlackMessageID)
	assert.False(t, result.Timestamp.IsZero())

	sess, err := f.sessions.Get(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, sess.Messages, 1)
	assert.Equal(t, result.MessageID, sess.Messages[0].ID)
}

func TestRelayToThread_SlackFailureIs500(t *testing.T) {
	f := setup(t)
	f.messaging.postErr = errors.New("channel_not_found")
	ctx := context.Background()

	_, err := f.sessions.Create(ctx, "sess-1", "111.222")
	require.NoError(t, err)

	_, err = f.svc.RelayToThread(ctx, "sess-1", "hello", models.SenderUser)
	require.Error(t, err)

	domainErr, ok := domainerrors.GetDomainError(err)
	require.True(t, ok)
	assert.Equal(t, domainerrors.ErrCodeInternal, domainErr.Code)

	// Nothing was recorded when delivery failed.
	sess, err := f.sessions.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Empty(t, sess.Messages)
}
