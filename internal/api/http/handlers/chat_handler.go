package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/refund-claim-service/internal/api/dto"
	"github.com/spec-kit/refund-claim-service/internal/auth"
	"github.com/spec-kit/refund-claim-service/internal/domain"
	"github.com/spec-kit/refund-claim-service/internal/service"
	apperrors "github.com/spec-kit/refund-claim-service/pkg/util"
)

// ChatHandler exposes the refund-guide chat.
type ChatHandler struct {
	chat *service.ChatService
}

// NewChatHandler constructs handler.
func NewChatHandler(chatService *service.ChatService) *ChatHandler {
	return &ChatHandler{chat: chatService}
}

// History GET /chat.
func (h *ChatHandler) History(c *fiber.Ctx) error {
	userID := auth.UserID(c)
	if userID == "" {
		return apperrors.NewUnauthorized("user required")
	}
	language := domain.Language(c.Query("language", string(domain.LanguageEnglish)))
	messages, err := h.chat.History(c.Context(), userID, language)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": messages})
}

// Send POST /chat.
func (h *ChatHandler) Send(c *fiber.Ctx) error {
	userID := auth.UserID(c)
	if userID == "" {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.ChatSendRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	language := domain.Language(req.Language)
	if language == "" {
		language = domain.LanguageEnglish
	}
	messages, err := h.chat.Send(c.Context(), userID, language, req.Text)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": messages})
}

// Reset DELETE /chat.
func (h *ChatHandler) Reset(c *fiber.Ctx) error {
	userID := auth.UserID(c)
	if userID == "" {
		return apperrors.NewUnauthorized("user required")
	}
	if err := h.chat.Reset(c.Context(), userID); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
