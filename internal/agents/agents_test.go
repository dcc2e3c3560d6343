package agents

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/refund-claim-service/internal/config"
	"github.com/spec-kit/refund-claim-service/internal/domain"
	"github.com/spec-kit/refund-claim-service/internal/gemini"
)

// fakeInvoker records requests and plays back canned responses.
type fakeInvoker struct {
	requests  []gemini.Request
	responses []*gemini.Response
	err       error
}

func (f *fakeInvoker) GenerateContent(_ context.Context, req gemini.Request) (*gemini.Response, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	resp := f.responses[0]
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}
	return resp, nil
}

func testGeminiConfig() config.GeminiConfig {
	return config.GeminiConfig{
		ExtractionModel:       "gemini-2.5-flash",
		AnalysisModel:         "gemini-3-pro-preview",
		DraftingModel:         "gemini-3-pro-preview",
		ChatModel:             "gemini-2.5-flash",
		ExtractionTemperature: 0.1,
		AnalysisTemperature:   0.3,
		DraftingTemperature:   0.7,
	}
}

func TestExtractorSchemaMode(t *testing.T) {
	invoker := &fakeInvoker{responses: []*gemini.Response{{
		Text: `{"merchantName":"Acme Air","amount":"450.00","currency":"USD","issueDescription":"Flight cancelled"}`,
	}}}
	extractor := NewExtractor(invoker, testGeminiConfig())

	payload := base64.StdEncoding.EncodeToString([]byte("receipt bytes"))
	items := []domain.EvidenceItem{{
		ID:           "ev-1",
		Kind:         domain.EvidenceKindImage,
		Base64Data:   payload,
		MIMEType:     "image/png",
		UploadStatus: domain.UploadDone,
	}}

	facts, err := extractor.Extract(context.Background(), items, "the flight was cancelled", false)
	require.NoError(t, err)
	assert.Equal(t, "Acme Air", facts.MerchantName)
	assert.Empty(t, facts.SearchSources)

	require.Len(t, invoker.requests, 1)
	req := invoker.requests[0]
	assert.Equal(t, "gemini-2.5-flash", req.Model)
	assert.InDelta(t, 0.1, req.Temperature, 1e-9)
	assert.False(t, req.UseSearch)
	require.NotNil(t, req.ResponseSchema)
	assert.ElementsMatch(t, []string{"merchantName", "amount", "issueDescription"}, req.ResponseSchema.Required)

	// Binary evidence arrives decoded, followed by the prompt text.
	require.Len(t, req.Parts, 2)
	assert.Equal(t, []byte("receipt bytes"), req.Parts[0].Data)
	assert.Contains(t, req.Parts[1].Text, "Hierarchy of Truth")
}

func TestExtractorSearchMode(t *testing.T) {
	invoker := &fakeInvoker{responses: []*gemini.Response{{
		Text: "```json\n{\"merchantName\":\"Grand Hotel\",\"amount\":\"200\",\"issueDescription\":\"Dirty room\"}\n```",
		Sources: []gemini.Source{
			{Title: "Hotel refund policy", URI: "https://example.com/policy"},
		},
	}}}
	extractor := NewExtractor(invoker, testGeminiConfig())

	items := []domain.EvidenceItem{{
		ID:           "ev-link",
		Kind:         domain.EvidenceKindLink,
		LinkURL:      "https://example.com/booking",
		UploadStatus: domain.UploadDone,
	}}

	facts, err := extractor.Extract(context.Background(), items, "room was filthy", true)
	require.NoError(t, err)
	assert.Equal(t, "Grand Hotel", facts.MerchantName)
	require.Len(t, facts.SearchSources, 1)
	assert.Equal(t, "https://example.com/policy", facts.SearchSources[0].URI)

	req := invoker.requests[0]
	assert.True(t, req.UseSearch)
	assert.Nil(t, req.ResponseSchema)
	// Links are referenced in the prompt rather than sent as binary parts.
	require.Len(t, req.Parts, 1)
	assert.Contains(t, req.Parts[0].Text, "https://example.com/booking")
}

func TestExtractorSkipsUnfinishedUploads(t *testing.T) {
	invoker := &fakeInvoker{responses: []*gemini.Response{{
		Text: `{"merchantName":"Acme Air","amount":"1","issueDescription":"x"}`,
	}}}
	extractor := NewExtractor(invoker, testGeminiConfig())

	items := []domain.EvidenceItem{
		{
			ID:           "pending",
			Kind:         domain.EvidenceKindPDF,
			Base64Data:   base64.StdEncoding.EncodeToString([]byte("half-encoded")),
			MIMEType:     "application/pdf",
			UploadStatus: domain.UploadPending,
		},
		{
			ID:           "failed",
			Kind:         domain.EvidenceKindImage,
			MIMEType:     "image/jpeg",
			UploadStatus: domain.UploadFailed,
		},
	}

	_, err := extractor.Extract(context.Background(), items, "notes", false)
	require.NoError(t, err)

	req := invoker.requests[0]
	require.Len(t, req.Parts, 1)
	assert.NotEmpty(t, req.Parts[0].Text)
}

func TestExtractorInvokerError(t *testing.T) {
	invoker := &fakeInvoker{err: errors.New("service unavailable")}
	extractor := NewExtractor(invoker, testGeminiConfig())

	_, err := extractor.Extract(context.Background(), nil, "some notes", false)
	require.Error(t, err)
	assert.ErrorContains(t, err, "service unavailable")
}

func TestAnalystClampsScore(t *testing.T) {
	invoker := &fakeInvoker{responses: []*gemini.Response{{
		Text: `{"isLikelyRefundable":true,"refundProbabilityScore":140,"keyPolicyClause":"EU261","strategySuggestion":"Cite it"}`,
	}}}
	analyst := NewAnalyst(invoker, testGeminiConfig())

	analysis, err := analyst.Analyze(context.Background(), &domain.ExtractedFacts{
		MerchantName:     "Acme Air",
		Amount:           "450.00",
		Currency:         "USD",
		IssueDescription: "Flight cancelled",
	})
	require.NoError(t, err)
	assert.Equal(t, 100, analysis.RefundProbabilityScore)
	assert.True(t, analysis.IsLikelyRefundable)

	req := invoker.requests[0]
	assert.Equal(t, "gemini-3-pro-preview", req.Model)
	assert.InDelta(t, 0.3, req.Temperature, 1e-9)
	require.NotNil(t, req.ResponseSchema)
	assert.Contains(t, req.Parts[0].Text, "Acme Air")
	assert.Contains(t, req.Parts[0].Text, "450.00 USD")
}

func TestAnalystEmptyResponse(t *testing.T) {
	invoker := &fakeInvoker{responses: []*gemini.Response{{Text: "   "}}}
	analyst := NewAnalyst(invoker, testGeminiConfig())

	_, err := analyst.Analyze(context.Background(), &domain.ExtractedFacts{MerchantName: "X"})
	require.Error(t, err)
	assert.ErrorContains(t, err, "empty analysis")
}

func TestDrafterBuildsPromptWithFallbacks(t *testing.T) {
	invoker := &fakeInvoker{responses: []*gemini.Response{{Text: "Dear Acme Air,\n\nI request a full refund."}}}
	drafter := NewDrafter(invoker, testGeminiConfig())

	letter, err := drafter.Draft(context.Background(), &domain.ExtractedFacts{
		MerchantName:     "Acme Air",
		Amount:           "450.00",
		Currency:         "USD",
		TransactionDate:  "2025-03-10",
		IssueDescription: "Flight cancelled without rebooking",
	}, &domain.PolicyAnalysis{
		KeyPolicyClause:    "EU261",
		StrategySuggestion: "Reference compensation rules",
	}, domain.LanguageEnglish)
	require.NoError(t, err)
	assert.Contains(t, letter, "full refund")

	prompt := invoker.requests[0].Parts[0].Text
	assert.Contains(t, prompt, "Customer Support")
	assert.Contains(t, prompt, "N/A")
	assert.Contains(t, prompt, "Language: English")
	assert.Contains(t, prompt, "7 days deadline")
	assert.InDelta(t, 0.7, invoker.requests[0].Temperature, 1e-9)
}

func TestDrafterLanguageNames(t *testing.T) {
	invoker := &fakeInvoker{responses: []*gemini.Response{{Text: "信函"}, {Text: "carta"}}}
	drafter := NewDrafter(invoker, testGeminiConfig())
	facts := &domain.ExtractedFacts{MerchantName: "M", Amount: "1", Currency: "USD", IssueDescription: "x"}
	analysis := &domain.PolicyAnalysis{KeyPolicyClause: "c", StrategySuggestion: "s"}

	_, err := drafter.Draft(context.Background(), facts, analysis, domain.LanguageChinese)
	require.NoError(t, err)
	assert.Contains(t, invoker.requests[0].Parts[0].Text, "Chinese (Simplified)")

	_, err = drafter.Draft(context.Background(), facts, analysis, domain.LanguageSpanish)
	require.NoError(t, err)
	assert.Contains(t, invoker.requests[1].Parts[0].Text, "Spanish")
}

func TestDrafterEmptyLetter(t *testing.T) {
	invoker := &fakeInvoker{responses: []*gemini.Response{{Text: "\n\n"}}}
	drafter := NewDrafter(invoker, testGeminiConfig())

	_, err := drafter.Draft(context.Background(), &domain.ExtractedFacts{}, &domain.PolicyAnalysis{}, domain.LanguageEnglish)
	require.Error(t, err)
	assert.ErrorContains(t, err, "no letter text")
}

func TestGuideThreadsHistory(t *testing.T) {
	invoker := &fakeInvoker{responses: []*gemini.Response{{Text: "You should gather your receipts first."}}}
	guide := NewGuide(invoker, testGeminiConfig())

	transcript := []domain.ChatMessage{
		{ID: "1", Role: domain.ChatRoleModel, Text: "Hello!"},
		{ID: "2", Role: domain.ChatRoleUser, Text: "My flight was cancelled."},
	}
	reply, err := guide.Reply(context.Background(), domain.LanguageEnglish, transcript, "What should I do?")
	require.NoError(t, err)
	assert.Contains(t, reply, "receipts")

	req := invoker.requests[0]
	assert.Equal(t, "gemini-2.5-flash", req.Model)
	require.Len(t, req.History, 2)
	assert.Equal(t, gemini.RoleModel, req.History[0].Role)
	assert.Equal(t, gemini.RoleUser, req.History[1].Role)
	require.Len(t, req.Parts, 1)
	assert.Equal(t, "What should I do?", req.Parts[0].Text)
	assert.NotEmpty(t, req.SystemInstruction)
}

func TestWelcomeMessagePerLanguage(t *testing.T) {
	assert.NotEqual(t, WelcomeMessage(domain.LanguageEnglish), WelcomeMessage(domain.LanguageChinese))
	assert.NotEqual(t, WelcomeMessage(domain.LanguageEnglish), WelcomeMessage(domain.LanguageSpanish))
	assert.NotEmpty(t, WelcomeMessage(domain.Language("fr")))
}
