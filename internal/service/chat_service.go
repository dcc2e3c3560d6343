package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/refund-claim-service/internal/agents"
	"github.com/spec-kit/refund-claim-service/internal/domain"
	"github.com/spec-kit/refund-claim-service/internal/repository"
	apperrors "github.com/spec-kit/refund-claim-service/pkg/util"
)

// ChatAssistant answers refund questions in a conversation.
type ChatAssistant interface {
	Reply(ctx context.Context, language domain.Language, transcript []domain.ChatMessage, userText string) (string, error)
}

// ChatService runs the refund-guide chat, persisting the transcript per
// user.
type ChatService struct {
	transcripts repository.ChatRepository
	assistant   ChatAssistant
	logger      *zap.Logger
}

func NewChatService(transcripts repository.ChatRepository, assistant ChatAssistant, logger *zap.Logger) *ChatService {
	return &ChatService{transcripts: transcripts, assistant: assistant, logger: logger}
}

// History returns the user's saved transcript, seeding the welcome message
// for a first visit.
func (s *ChatService) History(ctx context.Context, userID string, language domain.Language) ([]domain.ChatMessage, error) {
	messages, err := s.transcripts.List(ctx, userID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if len(messages) > 0 {
		return messages, nil
	}

	welcome := domain.ChatMessage{
		ID:   uuid.NewString(),
		Role: domain.ChatRoleModel,
		Text: agents.WelcomeMessage(language),
	}
	if err := s.transcripts.Append(ctx, userID, welcome); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return []domain.ChatMessage{welcome}, nil
}

// Send appends the user's message, asks the assistant for a reply and
// appends that too. Both turns are returned.
func (s *ChatService) Send(ctx context.Context, userID string, language domain.Language, text string) ([]domain.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewValidationError("message text required", nil)
	}

	transcript, err := s.transcripts.List(ctx, userID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	userMsg := domain.ChatMessage{
		ID:   uuid.NewString(),
		Role: domain.ChatRoleUser,
		Text: text,
	}
	if err := s.transcripts.Append(ctx, userID, userMsg); err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	replyText, err := s.assistant.Reply(ctx, language, transcript, text)
	if err != nil {
		s.logger.Warn("chat reply failed", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	reply := domain.ChatMessage{
		ID:   uuid.NewString(),
		Role: domain.ChatRoleModel,
		Text: replyText,
	}
	if err := s.transcripts.Append(ctx, userID, reply); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return []domain.ChatMessage{userMsg, reply}, nil
}

// Reset clears the transcript so the next visit starts fresh.
func (s *ChatService) Reset(ctx context.Context, userID string) error {
	if err := s.transcripts.Clear(ctx, userID); err != nil {
		return apperrors.NewInternalError(err)
	}
	return nil
}
