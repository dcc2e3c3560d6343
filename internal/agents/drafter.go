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

// Drafter is the letter-writing stage: it turns facts and analysis into a
// formal appeal letter in the case's language. Output is free-form markdown.
type Drafter struct {
	invoker     gemini.Invoker
	model       string
	temperature float64
}

// NewDrafter builds the stage from configuration.
func NewDrafter(invoker gemini.Invoker, cfg config.GeminiConfig) *Drafter {
	return &Drafter{
		invoker:     invoker,
		model:       cfg.DraftingModel,
		temperature: cfg.DraftingTemperature,
	}
}

// Draft runs one drafting call and returns the letter text verbatim.
func (d *Drafter) Draft(ctx context.Context, facts *domain.ExtractedFacts, analysis *domain.PolicyAnalysis, language domain.Language) (string, error) {
	email := facts.MerchantEmail
	if email == "" {
		email = "Customer Support"
	}
	reference := facts.BookingReference
	if reference == "" {
		reference = "N/A"
	}

	prompt := fmt.Sprintf(`You are a professional Consumer Rights Lawyer.
Write a formal, firm, but polite refund appeal letter.

Language: %s

Facts:
- To: %s
- Email: %s
- Reference: %s
- Date: %s
- Amount: %s %s
- Incident: %s

Legal Argument:
- Core Argument: %s
- Strategy: %s

Structure:
1. Formal header.
2. Clear statement of request (Full Refund).
3. Factual timeline.
4. Legal/Policy justification.
5. Call to action (7 days deadline).

Output strictly the letter content in Markdown format.
`,
		languageName(language),
		facts.MerchantName,
		email,
		reference,
		facts.TransactionDate,
		facts.Amount,
		facts.Currency,
		facts.IssueDescription,
		analysis.KeyPolicyClause,
		analysis.StrategySuggestion,
	)

	resp, err := d.invoker.GenerateContent(ctx, gemini.Request{
		Model:       d.model,
		Parts:       []gemini.Part{{Text: prompt}},
		Temperature: d.temperature,
	})
	if err != nil {
		return "", err
	}
	letter := strings.TrimSpace(resp.Text)
	if letter == "" {
		return "", errors.New("model returned no letter text")
	}
	return resp.Text, nil
}

func languageName(language domain.Language) string {
	switch language {
	case domain.LanguageChinese:
		return "Chinese (Simplified)"
	case domain.LanguageSpanish:
		return "Spanish"
	default:
		return "English"
	}
}
