// Package chat orchestrates the widget-side message flow: AI turns while the
// session is unbound, relay into the Slack thread once a handoff bound it,
// the handoff itself, and the explicit relay operation.
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/heritagebox/chat-service/internal/domain/errors"
	"github.com/heritagebox/chat-service/internal/domain/models"
	"github.com/heritagebox/chat-service/internal/services/archive"
	"github.com/heritagebox/chat-service/internal/services/catalog"
	"github.com/heritagebox/chat-service/internal/services/completion"
	"github.com/heritagebox/chat-service/internal/services/messaging"
	"github.com/heritagebox/chat-service/internal/services/messaging/slack"
	"github.com/heritagebox/chat-service/internal/services/session"
)

const (
	// completionWindow caps conversation context sent to the provider.
	completionWindow = 10

	defaultMaxTokens = 1024

	// archiveTimeout bounds the fire-and-forget archival goroutine.
	archiveTimeout = 30 * time.Second
)

// CustomerInfo is the optional contact block sent with a handoff.
type CustomerInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// HandoffRequest asks for a human takeover of a widget conversation.
type HandoffRequest struct {
	SessionID    string
	Messages     []models.Message
	CustomerInfo *CustomerInfo
}

// SendResult is the outcome of a widget chat turn.
type SendResult struct {
	// Response is the assistant's reply. Empty when the session is in handoff
	// mode and the message was relayed to the agent thread instead.
	Response      string
	HandoffActive bool
}

// RelayResult reports a message relayed into the Slack thread.
type RelayResult struct {
	MessageID      string
	SlackMessageID string
	Timestamp      time.Time
}

// Service is the widget-side inbound router.
type Service interface {
	// SendMessage handles one widget turn. Unbound sessions get an AI reply;
	// bound sessions relay the message into the Slack thread and return no
	// reply (the agent's answer arrives via the webhook and the poller).
	SendMessage(ctx context.Context, sessionID, message string) (*SendResult, error)

	// RequestHandoff opens a Slack thread, binds it to the session and replays
	// the conversation so far. A Slack failure degrades to a successful
	// "request received" result rather than an error.
	RequestHandoff(ctx context.Context, req *HandoffRequest) (string, error)

	// RelayToThread forwards a message into the session's Slack thread and
	// appends it to the transcript.
	RelayToThread(ctx context.Context, sessionID, message string, sender models.Sender) (*RelayResult, error)
}

// Config holds the chat service configuration.
type Config struct {
	Sessions   session.Service
	Completion completion.Client
	Messaging  messaging.Client
	Catalog    catalog.Service
	Archive    archive.Service

	// Channel is the Slack support channel handoff threads open in.
	Channel string
	// SiteURL appears in the handoff notification.
	SiteURL   string
	MaxTokens int
	Logger    zerolog.Logger
}

type service struct {
	sessions   session.Service
	completion completion.Client
	messaging  messaging.Client
	catalog    catalog.Service
	archive    archive.Service
	channel    string
	siteURL    string
	maxTokens  int
	log        zerolog.Logger
}

// NewService creates a new chat service.
func NewService(cfg *Config) (Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("session service is required")
	}
	if cfg.Completion == nil {
		return nil, fmt.Errorf("completion client is required")
	}
	if cfg.Messaging == nil {
		return nil, fmt.Errorf("messaging client is required")
	}
	if cfg.Catalog == nil {
		return nil, fmt.Errorf("catalog service is required")
	}
	if cfg.Archive == nil {
		return nil, fmt.Errorf("archive service is required")
	}
	if cfg.Channel == "" {
		return nil, fmt.Errorf("support channel is required")
	}

	siteURL := cfg.SiteURL
	if siteURL == "" {
		siteURL = "https://heritagebox.com"
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	return &service{
		sessions:   cfg.Sessions,
		completion: cfg.Completion,
		messaging:  cfg.Messaging,
		catalog:    cfg.Catalog,
		archive:    cfg.Archive,
		channel:    cfg.Channel,
		siteURL:    siteURL,
		maxTokens:  maxTokens,
		log:        cfg.Logger,
	}, nil
}

// SendMessage handles one widget chat turn.
func (s *service) SendMessage(ctx context.Context, sessionID, message string) (*SendResult, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, errors.NewInternalError("failed to load session", err)
	}

	if sess != nil && sess.HandoffActive() {
		if _, err := s.relay(ctx, sess, message, models.SenderUser); err != nil {
			return nil, err
		}
		return &SendResult{HandoffActive: true}, nil
	}

	if sess == nil {
		if _, err := s.sessions.Create(ctx, sessionID, ""); err != nil {
			return nil, errors.NewInternalError("failed to create session", err)
		}
	}

	if _, err := s.sessions.Append(ctx, sessionID, models.Message{
		Content: message,
		Sender:  models.SenderUser,
	}); err != nil {
		return nil, errors.NewInternalError("failed to record message", err)
	}

	// Order-status questions are answered from the record store without
	// spending a completion call.
	if answer, ok := s.archive.OrderStatus(ctx, message); ok {
		s.appendBot(ctx, sessionID, answer)
		return &SendResult{Response: answer}, nil
	}

	sess, err = s.sessions.Get(ctx, sessionID)
	if err != nil || sess == nil {
		return nil, errors.NewInternalError("failed to reload session", err)
	}

	reply, err := s.completion.Complete(ctx, completionContext(sess.Messages), s.catalog.SystemPrompt(ctx), s.maxTokens)
	if err != nil {
		s.log.Error().Err(err).Str("session_id", sessionID).Msg("completion failed")
		return nil, errors.NewInternalError(completionUserMessage(err), err)
	}

	s.appendBot(ctx, sessionID, reply)

	if archive.ShouldArchive(append(sess.Messages, models.Message{Content: reply, Sender: models.SenderBot}), message) {
		go s.archiveAsync(sessionID)
	}

	return &SendResult{Response: reply}, nil
}

// RequestHandoff opens the Slack thread and binds it to the session.
func (s *service) RequestHandoff(ctx context.Context, req *HandoffRequest) (string, error) {
	if req == nil || req.SessionID == "" {
		return "", errors.NewValidationError("Session ID is required", "")
	}

	notice := s.buildHandoffNotice(req)
	detail := s.buildHandoffDetail(req)

	threadTS, err := s.messaging.OpenThread(ctx, s.channel, notice, detail)
	if err != nil {
		// The visitor still gets a calm answer when Slack is down; support
		// follows up through other channels.
		s.log.Error().Err(err).Str("session_id", req.SessionID).Msg("slack handoff notification failed")
		return "Human support request received. Someone will assist you shortly.", nil
	}

	sess, err := s.sessions.Create(ctx, req.SessionID, threadTS)
	if err != nil {
		s.log.Error().Err(err).Str("session_id", req.SessionID).Str("thread_ts", threadTS).
			Msg("session creation failed after slack thread opened")
		return "Human support has been notified via Slack. Someone will assist you shortly.", nil
	}

	// Replay the widget's copy of the history only into a fresh session. A
	// session that went through AI turns already holds these messages, and
	// re-appending them would make the poller deliver duplicates.
	if len(sess.Messages) == 0 {
		for _, msg := range req.Messages {
			if _, err := s.sessions.Append(ctx, req.SessionID, msg); err != nil {
				s.log.Warn().Err(err).Str("session_id", req.SessionID).Msg("failed to replay history message")
				break
			}
		}
	}

	return "Human support has been notified via Slack. Someone will assist you shortly.", nil
}

// RelayToThread forwards a message into the session's Slack thread.
func (s *service) RelayToThread(ctx context.Context, sessionID, message string, sender models.Sender) (*RelayResult, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, errors.NewInternalError("failed to load session", err)
	}
	if sess == nil {
		return nil, errors.NewNotFoundError("Chat session", sessionID)
	}
	return s.relay(ctx, sess, message, sender)
}

func (s *service) relay(ctx context.Context, sess *models.Session, message string, sender models.Sender) (*RelayResult, error) {
	if sess.SlackThreadID == "" {
		return nil, errors.NewBadRequestError("No Slack thread associated with this session", sess.SessionID)
	}

	text := fmt.Sprintf("📧 *Session: %s*\n%s", sess.SessionID, slack.FormatForThread(message, string(sender)))
	posted, err := s.messaging.PostMessage(ctx, s.channel, text, sess.SlackThreadID)
	if err != nil {
		return nil, errors.NewInternalError("Failed to send message to Slack", err)
	}

	stored, err := s.sessions.Append(ctx, sess.SessionID, models.Message{
		Content: message,
		Sender:  sender,
	})
	if err != nil {
		return nil, errors.NewInternalError("failed to record relayed message", err)
	}

	return &RelayResult{
		MessageID:      stored.ID,
		SlackMessageID: posted.TS,
		Timestamp:      stored.Timestamp,
	}, nil
}

func (s *service) appendBot(ctx context.Context, sessionID, content string) {
	if _, err := s.sessions.Append(ctx, sessionID, models.Message{
		Content: content,
		Sender:  models.SenderBot,
	}); err != nil {
		s.log.Warn().Err(err).Str("session_id", sessionID).Msg("failed to record assistant reply")
	}
}

func (s *service) archiveAsync(sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
	defer cancel()

	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil || sess == nil {
		return
	}
	s.archive.SaveConversation(ctx, sessionID, sess.Messages)
}

// completionContext maps the trailing transcript window onto provider roles.
// Agent messages count as assistant turns so the provider sees a coherent
// alternation.
func completionContext(messages []models.Message) []completion.Message {
	if len(messages) > completionWindow {
		messages = messages[len(messages)-completionWindow:]
	}
	out := make([]completion.Message, 0, len(messages))
	for _, msg := range messages {
		role := completion.RoleAssistant
		if msg.Sender == models.SenderUser {
			role = completion.RoleUser
		}
		out = append(out, completion.Message{Role: role, Content: msg.Content})
	}
	return out
}

// completionUserMessage picks the visitor-facing wording for a provider
// failure.
func completionUserMessage(err error) string {
	switch completion.CategoryOf(err) {
	case completion.CategoryAuth:
		return "Configuration issue with AI service. Please contact support."
	case completion.CategoryRateLimit:
		return "Service is temporarily busy. Please try again in a moment."
	case completion.CategoryTimeout:
		return "Request timed out. Please try again."
	default:
		return "I apologize, but I'm having technical difficulties right now."
	}
}

func (s *service) buildHandoffNotice(req *HandoffRequest) string {
	name := "Anonymous"
	email := "Not provided"
	if req.CustomerInfo != nil {
		if req.CustomerInfo.Name != "" {
			name = req.CustomerInfo.Name
		}
		if req.CustomerInfo.Email != "" {
			email = req.CustomerInfo.Email
		}
	}
	return fmt.Sprintf("🚨 *NEW CUSTOMER SUPPORT REQUEST*\n\nCustomer: %s\nEmail: %s\nSession: `%s`\n\n_Click thread below to start conversation_ 👇",
		name, email, req.SessionID)
}

func (s *service) buildHandoffDetail(req *HandoffRequest) string {
	var b strings.Builder
	b.WriteString("🚨 **Customer Requesting Human Support**\n\n")

	b.WriteString("**Customer Info:**\n")
	info := req.CustomerInfo
	if info == nil {
		info = &CustomerInfo{}
	}
	fmt.Fprintf(&b, "• Email: %s\n", orDefault(info.Email, "Not provided"))
	fmt.Fprintf(&b, "• Name: %s\n", orDefault(info.Name, "Not provided"))
	fmt.Fprintf(&b, "• Phone: %s\n\n", orDefault(info.Phone, "Not provided"))

	b.WriteString("**Recent Conversation:**\n")
	if len(req.Messages) == 0 {
		b.WriteString("No conversation history available\n")
	} else {
		recent := req.Messages
		if len(recent) > 3 {
			recent = recent[len(recent)-3:]
		}
		for _, msg := range recent {
			sender := "👤 Customer"
			if msg.Sender != models.SenderUser {
				sender = "🤖 Bot"
			}
			content := msg.Content
			// Truncate on a rune boundary; transcripts carry emoji.
			if runes := []rune(content); len(runes) > 200 {
				content = string(runes[:200]) + "..."
			}
			fmt.Fprintf(&b, "%s: %s\n\n", sender, content)
		}
	}

	fmt.Fprintf(&b, "**Time:** %s\n", time.Now().UTC().Format(time.RFC1123))
	b.WriteString("**Action Required:** Please respond to customer on website chat or reach out directly.\n")
	b.WriteString("**Website:** " + s.siteURL)
	return b.String()
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
