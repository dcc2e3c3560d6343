package agents

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/refund-claim-service/internal/domain"
	"github.com/spec-kit/refund-claim-service/pkg/util"
)

func TestSanitizeJSONDirectParse(t *testing.T) {
	var facts domain.ExtractedFacts
	err := SanitizeJSON(`{"merchantName":"Acme Air","amount":"450.00"}`, &facts)
	require.NoError(t, err)
	assert.Equal(t, "Acme Air", facts.MerchantName)
	assert.Equal(t, "450.00", facts.Amount)
}

func TestSanitizeJSONFencedBlock(t *testing.T) {
	raw := "Here is the extracted data:\n```json\n{\"merchantName\":\"Grand Hotel\",\"currency\":\"EUR\"}\n```\nLet me know if you need anything else."
	var facts domain.ExtractedFacts
	err := SanitizeJSON(raw, &facts)
	require.NoError(t, err)
	assert.Equal(t, "Grand Hotel", facts.MerchantName)
	assert.Equal(t, "EUR", facts.Currency)
}

func TestSanitizeJSONBraceSubstring(t *testing.T) {
	raw := `Sure! The answer is {"isLikelyRefundable": true, "refundProbabilityScore": 85, "keyPolicyClause": "EU261", "strategySuggestion": "Cite the regulation."} as requested.`
	var analysis domain.PolicyAnalysis
	err := SanitizeJSON(raw, &analysis)
	require.NoError(t, err)
	assert.True(t, analysis.IsLikelyRefundable)
	assert.Equal(t, 85, analysis.RefundProbabilityScore)
}

func TestSanitizeJSONLeadingWhitespace(t *testing.T) {
	var facts domain.ExtractedFacts
	err := SanitizeJSON("\n\n  {\"merchantName\":\"Rail Co\"}  \n", &facts)
	require.NoError(t, err)
	assert.Equal(t, "Rail Co", facts.MerchantName)
}

func TestSanitizeJSONNoJSON(t *testing.T) {
	var facts domain.ExtractedFacts
	err := SanitizeJSON("I could not find any booking details in the evidence.", &facts)
	require.Error(t, err)

	var domainErr *util.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, util.CodeMalformedModelOutput, domainErr.Code)
	assert.Contains(t, domainErr.Details["raw"], "could not find")
}

func TestSanitizeJSONInvalidBraces(t *testing.T) {
	var facts domain.ExtractedFacts
	err := SanitizeJSON(`{"merchantName": "Acme Air"`, &facts)
	require.Error(t, err)

	var domainErr *util.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, util.CodeMalformedModelOutput, domainErr.Code)
}

func TestSanitizeJSONTypeMismatch(t *testing.T) {
	var analysis domain.PolicyAnalysis
	err := SanitizeJSON(`{"refundProbabilityScore": "very high"}`, &analysis)
	require.Error(t, err)

	var domainErr *util.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, util.CodeMalformedModelOutput, domainErr.Code)
}
