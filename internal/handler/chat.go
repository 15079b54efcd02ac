package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"finchat/internal/middleware"
	"finchat/internal/models"
	"finchat/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ChatService answers questions for authenticated users.
type ChatService interface {
	CanAccess(ctx context.Context, username string) ([]models.Exchange, error)
	Ask(ctx context.Context, username, question string) (*models.ChatResponse, error)
}

type ChatHandler struct {
	chatService ChatService
	logger      *zap.Logger
}

func NewChatHandler(chatService ChatService, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{chatService: chatService, logger: logger}
}

// CanAccess handles GET /api/chat/can-access
func (h *ChatHandler) CanAccess(c *gin.Context) {
	username := c.GetString(middleware.UsernameKey)

	history, err := h.chatService.CanAccess(c.Request.Context(), username)
	if err != nil {
		if errors.Is(err, service.ErrUnknownUser) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Username doesn't exists"})
			return
		}
		h.logger.Error("Failed to check chat access", zap.String("username", username), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error testing Access"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "The user can access the chat",
		"chat":    history,
	})
}

// Ask handles POST /api/chat
func (h *ChatHandler) Ask(c *gin.Context) {
	username := c.GetString(middleware.UsernameKey)

	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.logger.Debug("Failed to bind JSON for chat", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.Username != "" && req.Username != username {
		c.JSON(http.StatusForbidden, gin.H{"error": "Token does not match username"})
		return
	}

	resp, err := h.chatService.Ask(c.Request.Context(), username, req.Question)
	if err != nil {
		if errors.Is(err, service.ErrUnknownUser) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Username doesn't exists"})
			return
		}

		fields := []zap.Field{zap.String("username", username), zap.Error(err)}
		var retrievalErr *service.RetrievalError
		if errors.As(err, &retrievalErr) {
			fields = append(fields, zap.String("stage", retrievalErr.Stage))
		}
		h.logger.Error("Chat request failed", fields...)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error testing Access"})
		return
	}

	c.JSON(http.StatusOK, resp)
}
