package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/heritagebox/chat-service/internal/domain/models"
	"github.com/heritagebox/chat-service/internal/services/messaging/slack"
	"github.com/heritagebox/chat-service/internal/services/session"
)

// WebhookHandler receives Slack Events API callbacks: the thread-side inbound
// router. Slack retries non-200 responses, so processing failures still
// answer 200; only a malformed payload is a 500.
type WebhookHandler struct {
	sessions session.Service
	log      zerolog.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(sessions session.Service, log zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{sessions: sessions, log: log}
}

// Receive handles POST /webhook.
// @Summary Slack events webhook
// @Description Answers URL-verification challenges and routes agent thread replies into their sessions
// @Tags Webhook
// @Accept json
// @Produce plain
// @Success 200 {string} string "OK"
// @Failure 500 {string} string "Internal Server Error"
// @Router /webhook [post]
func (h *WebhookHandler) Receive(c *gin.Context) {
	var payload slack.WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.log.Error().Err(err).Msg("malformed slack webhook payload")
		c.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}

	// URL verification must echo the challenge and do nothing else.
	if payload.Type == "url_verification" {
		c.String(http.StatusOK, payload.Challenge)
		return
	}

	if payload.Type == "event_callback" && payload.Event != nil {
		h.handleEvent(c, payload.Event)
	}

	c.String(http.StatusOK, "OK")
}

func (h *WebhookHandler) handleEvent(c *gin.Context, event *slack.Event) {
	if !event.IsHumanThreadMessage() {
		return
	}

	ctx := c.Request.Context()
	sess, err := h.sessions.GetByThread(ctx, event.ThreadTS)
	if err != nil {
		h.log.Error().Err(err).Str("thread_ts", event.ThreadTS).Msg("thread lookup failed")
		return
	}
	if sess == nil {
		h.log.Warn().Str("thread_ts", event.ThreadTS).Msg("agent reply in unmapped thread")
		return
	}

	text := slack.CleanAgentText(event.Text)
	if text == "" {
		return
	}

	// The id derives from the Slack event ts, so a redelivered event stores
	// an identically-identified message and the poller dedupes it.
	if _, err := h.sessions.Append(ctx, sess.SessionID, models.Message{
		ID:      "agent_" + event.TS,
		Content: text,
		Sender:  models.SenderAgent,
	}); err != nil {
		h.log.Error().Err(err).Str("session_id", sess.SessionID).Msg("failed to store agent reply")
		return
	}

	h.log.Info().
		Str("session_id", sess.SessionID).
		Str("thread_ts", event.ThreadTS).
		Msg("agent reply routed to session")
}
