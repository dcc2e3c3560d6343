package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResumeStep(t *testing.T) {
	empty := &Case{}
	assert.Equal(t, StepUploadEvidence, empty.ResumeStep())

	extractedOnly := &Case{ExtractedData: &ExtractedFacts{MerchantName: "Acme Air"}}
	assert.Equal(t, StepUploadEvidence, extractedOnly.ResumeStep())

	analyzed := &Case{
		ExtractedData:  &ExtractedFacts{MerchantName: "Acme Air"},
		PolicyAnalysis: &PolicyAnalysis{IsLikelyRefundable: true},
	}
	assert.Equal(t, StepReviewAnalysis, analyzed.ResumeStep())

	complete := &Case{
		ExtractedData:   &ExtractedFacts{MerchantName: "Acme Air"},
		PolicyAnalysis:  &PolicyAnalysis{IsLikelyRefundable: true},
		GeneratedLetter: "Dear Acme Air,",
	}
	assert.Equal(t, StepLetterReady, complete.ResumeStep())
}

func TestResumeStatuses(t *testing.T) {
	c := &Case{ExtractedData: &ExtractedFacts{MerchantName: "Acme Air"}}
	statuses := c.ResumeStatuses()
	assert.Equal(t, StageDone, statuses.Extraction)
	assert.Equal(t, StageWaiting, statuses.Analysis)
	assert.Equal(t, StageWaiting, statuses.Drafting)
}

func TestMissingRequired(t *testing.T) {
	complete := &ExtractedFacts{
		MerchantName:     "Acme Air",
		Amount:           "450.00",
		Currency:         "USD",
		TransactionDate:  "2025-03-10",
		IssueDescription: "Flight cancelled",
	}
	assert.Empty(t, complete.MissingRequired())

	partial := &ExtractedFacts{
		MerchantName: "Acme Air",
		Amount:       "   ",
		Currency:     "USD",
	}
	assert.ElementsMatch(t,
		[]string{"amount", "transactionDate", "issueDescription"},
		partial.MissingRequired(),
	)
}

func TestValidLanguage(t *testing.T) {
	assert.True(t, ValidLanguage(LanguageEnglish))
	assert.True(t, ValidLanguage(LanguageChinese))
	assert.True(t, ValidLanguage(LanguageSpanish))
	assert.False(t, ValidLanguage(Language("fr")))
	assert.False(t, ValidLanguage(Language("")))
}

func TestKindForMIME(t *testing.T) {
	assert.Equal(t, EvidenceKindPDF, KindForMIME("application/pdf"))
	assert.Equal(t, EvidenceKindImage, KindForMIME("image/png"))
	assert.Equal(t, EvidenceKindAudio, KindForMIME("audio/webm"))
	assert.Equal(t, EvidenceKindVideo, KindForMIME("video/mp4"))
	assert.Equal(t, EvidenceKindImage, KindForMIME("application/octet-stream"))
}

func TestEvidenceItemValidate(t *testing.T) {
	link := EvidenceItem{ID: "1", Kind: EvidenceKindLink, LinkURL: "https://example.com"}
	assert.NoError(t, link.Validate())

	binary := EvidenceItem{ID: "2", Kind: EvidenceKindImage, Base64Data: "aGVsbG8=", MIMEType: "image/png"}
	assert.NoError(t, binary.Validate())

	mixed := EvidenceItem{ID: "3", Kind: EvidenceKindImage, Base64Data: "aGVsbG8=", LinkURL: "https://example.com"}
	assert.Error(t, mixed.Validate())
}
