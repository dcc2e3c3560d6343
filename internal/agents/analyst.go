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

// Analyst is the policy-review stage: it judges refund likelihood and picks
// the strongest argument. Each call is independent, so it can be re-invoked
// on the same facts for a refreshed opinion.
type Analyst struct {
	invoker     gemini.Invoker
	model       string
	temperature float64
}

// NewAnalyst builds the stage from configuration.
func NewAnalyst(invoker gemini.Invoker, cfg config.GeminiConfig) *Analyst {
	return &Analyst{
		invoker:     invoker,
		model:       cfg.AnalysisModel,
		temperature: cfg.AnalysisTemperature,
	}
}

// Analyze runs one schema-constrained analysis call on the extracted facts.
func (a *Analyst) Analyze(ctx context.Context, facts *domain.ExtractedFacts) (*domain.PolicyAnalysis, error) {
	prompt := fmt.Sprintf(`You are a Senior Travel Policy Analyst.
Case Details:
- Merchant: %s
- Issue: %s
- Amount: %s %s

Based on general international consumer protection laws and standard travel industry policies:
1. Assess if this is likely refundable.
2. Identify the strongest legal or policy argument.
3. Suggest a negotiation strategy.
`, facts.MerchantName, facts.IssueDescription, facts.Amount, facts.Currency)

	resp, err := a.invoker.GenerateContent(ctx, gemini.Request{
		Model:          a.model,
		Parts:          []gemini.Part{{Text: prompt}},
		Temperature:    a.temperature,
		ResponseSchema: analysisSchema(),
	})
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(resp.Text) == "" {
		return nil, errors.New("model returned empty analysis")
	}

	var analysis domain.PolicyAnalysis
	if err := SanitizeJSON(resp.Text, &analysis); err != nil {
		return nil, err
	}
	if analysis.RefundProbabilityScore < 0 {
		analysis.RefundProbabilityScore = 0
	}
	if analysis.RefundProbabilityScore > 100 {
		analysis.RefundProbabilityScore = 100
	}
	return &analysis, nil
}

func analysisSchema() *gemini.Schema {
	return &gemini.Schema{
		Type: gemini.TypeObject,
		Properties: map[string]*gemini.Schema{
			"isLikelyRefundable": {
				Type: gemini.TypeBoolean,
			},
			"refundProbabilityScore": {
				Type:        gemini.TypeInteger,
				Description: "0 to 100 confidence score",
			},
			"keyPolicyClause": {
				Type:        gemini.TypeString,
				Description: "The likely legal or policy reason for the refund",
			},
			"strategySuggestion": {
				Type:        gemini.TypeString,
				Description: "Advice on how to argue this case",
			},
		},
		Required: []string{"isLikelyRefundable", "keyPolicyClause", "strategySuggestion"},
	}
}
