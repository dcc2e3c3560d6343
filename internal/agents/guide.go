package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spec-kit/refund-claim-service/internal/config"
	"github.com/spec-kit/refund-claim-service/internal/domain"
	"github.com/spec-kit/refund-claim-service/internal/gemini"
)

// Guide is the refund-assistant chat. It shares the generative client with
// the pipeline stages but operates independently of any case.
type Guide struct {
	invoker gemini.Invoker
	model   string
}

// NewGuide builds the chat agent from configuration.
func NewGuide(invoker gemini.Invoker, cfg config.GeminiConfig) *Guide {
	return &Guide{invoker: invoker, model: cfg.ChatModel}
}

// Reply sends one user turn with the prior transcript and returns the
// assistant's answer.
func (g *Guide) Reply(ctx context.Context, language domain.Language, transcript []domain.ChatMessage, userText string) (string, error) {
	history := make([]gemini.Turn, 0, len(transcript))
	for _, msg := range transcript {
		role := gemini.RoleUser
		if msg.Role == domain.ChatRoleModel {
			role = gemini.RoleModel
		}
		history = append(history, gemini.Turn{Role: role, Text: msg.Text})
	}

	resp, err := g.invoker.GenerateContent(ctx, gemini.Request{
		Model:             g.model,
		SystemInstruction: guideSystemInstruction(language),
		History:           history,
		Parts:             []gemini.Part{{Text: userText}},
	})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.Text) == "" {
		return "", errors.New("model returned empty reply")
	}
	return resp.Text, nil
}

// WelcomeMessage seeds an empty transcript in the user's language.
func WelcomeMessage(language domain.Language) string {
	switch language {
	case domain.LanguageChinese:
		return "你好！我是您的退款助手。有什么可以帮您？"
	case domain.LanguageSpanish:
		return "¡Hola! Soy su asistente de reembolso. ¿Cómo puedo ayudarle?"
	default:
		return "Hi! I'm your Refund Assistant. Need help with the process?"
	}
}

func guideSystemInstruction(language domain.Language) string {
	langContext := "Answer in English."
	switch language {
	case domain.LanguageChinese:
		langContext = "Please answer in Chinese (Simplified)."
	case domain.LanguageSpanish:
		langContext = "Please answer in Spanish."
	}

	return fmt.Sprintf(`You are a friendly and helpful Travel Refund Assistant.
Your goal is to guide users through using this refund claim service and answer general questions about travel refunds.
%s

The workflow is:
1. Upload Evidence (Photos, PDFs, Voice Notes, Videos, Links).
2. Processing (AI agents extract data and check policies).
3. Review (You see the odds of winning).
4. Generate Appeal Letter (AI writes the legal letter).

Keep answers concise, encouraging, and easy to understand.
If asked about legal advice, state that you provide general information based on standard policies, not professional legal counsel.`, langContext)
}
