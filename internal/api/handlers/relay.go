package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/heritagebox/chat-service/internal/api/dto"
	"github.com/heritagebox/chat-service/internal/api/middleware"
	"github.com/heritagebox/chat-service/internal/domain/errors"
	"github.com/heritagebox/chat-service/internal/domain/models"
	"github.com/heritagebox/chat-service/internal/services/chat"
)

// RelayHandler forwards messages into the session's Slack thread.
type RelayHandler struct {
	chatService chat.Service
}

// NewRelayHandler creates a new RelayHandler.
func NewRelayHandler(chatService chat.Service) *RelayHandler {
	return &RelayHandler{chatService: chatService}
}

// Relay handles POST /relay.
// @Summary Relay a message to the Slack thread
// @Description Posts the message into the session's bound thread and records it in the transcript
// @Tags Chat
// @Accept json
// @Produce json
// @Param request body dto.RelayRequest true "Relay request"
// @Success 200 {object} dto.RelayResponse
// @Failure 400 {object} dto.ErrorResponse "Missing fields or unbound session"
// @Failure 404 {object} dto.ErrorResponse "Session not found"
// @Failure 500 {object} dto.ErrorResponse "Slack delivery failed"
// @Router /relay [post]
func (h *RelayHandler) Relay(c *gin.Context) {
	var req dto.RelayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleError(c, errors.NewValidationError("Session ID, message, and sender are required", err.Error()))
		return
	}

	result, err := h.chatService.RelayToThread(c.Request.Context(), req.SessionID, req.Message, models.Sender(req.Sender))
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.RelayResponse{
		Success:        true,
		MessageID:      result.MessageID,
		SlackMessageID: result.SlackMessageID,
		Timestamp:      result.Timestamp,
	})
}
