package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/heritagebox/chat-service/internal/api/dto"
	"github.com/heritagebox/chat-service/internal/api/middleware"
	"github.com/heritagebox/chat-service/internal/domain/errors"
	"github.com/heritagebox/chat-service/internal/services/chat"
)

// ChatHandler handles widget chat turns.
type ChatHandler struct {
	chatService chat.Service
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(chatService chat.Service) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// Send handles POST /chat.
// @Summary Send a chat message
// @Description Handles one widget turn: an AI reply, or a relay into the Slack thread when a handoff is active
// @Tags Chat
// @Accept json
// @Produce json
// @Param request body dto.ChatRequest true "Chat message"
// @Success 200 {object} dto.ChatResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid request"
// @Failure 500 {object} dto.ErrorResponse "Internal error"
// @Router /chat [post]
func (h *ChatHandler) Send(c *gin.Context) {
	var req dto.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleError(c, errors.NewValidationError("Message and sessionId are required", err.Error()))
		return
	}

	result, err := h.chatService.SendMessage(c.Request.Context(), req.SessionID, req.Message)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ChatResponse{
		Success:       true,
		Response:      result.Response,
		SessionID:     req.SessionID,
		HandoffActive: result.HandoffActive,
	})
}
