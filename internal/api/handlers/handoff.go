package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/heritagebox/chat-service/internal/api/dto"
	"github.com/heritagebox/chat-service/internal/api/middleware"
	"github.com/heritagebox/chat-service/internal/domain/errors"
	"github.com/heritagebox/chat-service/internal/domain/models"
	"github.com/heritagebox/chat-service/internal/services/chat"
)

// HandoffHandler handles human handoff requests.
type HandoffHandler struct {
	chatService chat.Service
}

// NewHandoffHandler creates a new HandoffHandler.
func NewHandoffHandler(chatService chat.Service) *HandoffHandler {
	return &HandoffHandler{chatService: chatService}
}

// Request handles POST /handoff.
// @Summary Request human support
// @Description Opens a Slack thread, binds it to the session and replays the conversation. Degrades gracefully when Slack is unavailable.
// @Tags Chat
// @Accept json
// @Produce json
// @Param request body dto.HandoffRequest true "Handoff request"
// @Success 200 {object} dto.HandoffResponse
// @Failure 400 {object} dto.ErrorResponse "Missing session id"
// @Router /handoff [post]
func (h *HandoffHandler) Request(c *gin.Context) {
	var req dto.HandoffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleError(c, errors.NewValidationError("Session ID is required", err.Error()))
		return
	}

	handoff := &chat.HandoffRequest{SessionID: req.SessionID}
	if req.CustomerInfo != nil {
		handoff.CustomerInfo = &chat.CustomerInfo{
			Name:  req.CustomerInfo.Name,
			Email: req.CustomerInfo.Email,
			Phone: req.CustomerInfo.Phone,
		}
	}
	for _, msg := range req.Messages {
		handoff.Messages = append(handoff.Messages, models.Message{
			ID:      msg.ID,
			Content: msg.Content,
			Sender:  models.Sender(msg.Sender),
		})
	}

	message, err := h.chatService.RequestHandoff(c.Request.Context(), handoff)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.HandoffResponse{
		Success:   true,
		Message:   message,
		SessionID: req.SessionID,
		Timestamp: time.Now().UTC(),
	})
}
