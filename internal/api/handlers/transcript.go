package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/heritagebox/chat-service/internal/api/dto"
	"github.com/heritagebox/chat-service/internal/api/middleware"
	"github.com/heritagebox/chat-service/internal/domain/errors"
	"github.com/heritagebox/chat-service/internal/domain/models"
	"github.com/heritagebox/chat-service/internal/services/session"
)

// TranscriptHandler serves the widget's transcript poll.
type TranscriptHandler struct {
	sessions session.Service
}

// NewTranscriptHandler creates a new TranscriptHandler.
func NewTranscriptHandler(sessions session.Service) *TranscriptHandler {
	return &TranscriptHandler{sessions: sessions}
}

// Messages handles GET /messages.
// @Summary Poll for new messages
// @Description Returns transcript messages after the cursor, excluding the visitor's own. An unknown cursor returns the full filtered transcript.
// @Tags Chat
// @Produce json
// @Param sessionId query string true "Session id"
// @Param lastMessageId query string false "Cursor: id of the last message the widget has"
// @Success 200 {object} dto.GetMessagesResponse
// @Failure 400 {object} dto.ErrorResponse "Missing sessionId"
// @Router /messages [get]
func (h *TranscriptHandler) Messages(c *gin.Context) {
	sessionID := c.Query("sessionId")
	if sessionID == "" {
		middleware.HandleError(c, errors.NewValidationError("Session ID is required", ""))
		return
	}
	lastMessageID := c.Query("lastMessageId")

	sess, err := h.sessions.Get(c.Request.Context(), sessionID)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}
	if sess == nil {
		// Absent is a normal poll outcome, not an error; the widget keeps its
		// local transcript and may re-request a handoff.
		c.JSON(http.StatusOK, dto.GetMessagesResponse{
			Success:       true,
			Messages:      []dto.MessageResponse{},
			SessionExists: false,
		})
		return
	}

	candidates := sess.Messages
	if lastMessageID != "" {
		// An unknown cursor falls back to the full transcript rather than
		// losing messages.
		for i, msg := range sess.Messages {
			if msg.ID == lastMessageID {
				candidates = sess.Messages[i+1:]
				break
			}
		}
	}

	// The visitor already has their own messages locally.
	messages := make([]dto.MessageResponse, 0, len(candidates))
	for _, msg := range candidates {
		if msg.Sender == models.SenderUser {
			continue
		}
		messages = append(messages, dto.MessageResponse{
			ID:        msg.ID,
			Content:   msg.Content,
			Sender:    string(msg.Sender),
			Timestamp: msg.Timestamp,
		})
	}

	lastActivity := sess.LastActivity
	c.JSON(http.StatusOK, dto.GetMessagesResponse{
		Success:       true,
		Messages:      messages,
		DebugLog:      sess.DebugLog,
		SessionExists: true,
		LastActivity:  &lastActivity,
	})
}
