package domain

import "time"

// WizardStep enumerates the screens of the refund wizard.
type WizardStep string

const (
	StepWelcome          WizardStep = "WELCOME"
	StepUploadEvidence   WizardStep = "UPLOAD_EVIDENCE"
	StepProcessing       WizardStep = "PROCESSING"
	StepReviewAnalysis   WizardStep = "REVIEW_ANALYSIS"
	StepGeneratingLetter WizardStep = "GENERATING_LETTER"
	StepLetterReady      WizardStep = "LETTER_READY"
)

// StageStatus tracks progress of one pipeline stage.
type StageStatus string

const (
	StageWaiting StageStatus = "waiting"
	StageActive  StageStatus = "active"
	StageDone    StageStatus = "done"
)

// StageStatuses holds the per-stage indicators shown during processing.
type StageStatuses struct {
	Extraction StageStatus `json:"extraction"`
	Analysis   StageStatus `json:"analysis"`
	Drafting   StageStatus `json:"drafting"`
}

// NewStageStatuses returns all stages reset to waiting.
func NewStageStatuses() StageStatuses {
	return StageStatuses{
		Extraction: StageWaiting,
		Analysis:   StageWaiting,
		Drafting:   StageWaiting,
	}
}

// Language enumerates supported drafting languages.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageChinese Language = "zh"
	LanguageSpanish Language = "es"
)

// ValidLanguage reports whether the code is one of the supported languages.
func ValidLanguage(lang Language) bool {
	switch lang {
	case LanguageEnglish, LanguageChinese, LanguageSpanish:
		return true
	}
	return false
}

// Case is the aggregate for one refund claim, tracked end-to-end through the
// wizard. The JSON shape of this struct is the persisted case document.
type Case struct {
	ID              string          `json:"id"`
	OwnerID         string          `json:"ownerId"`
	CreatedAt       *time.Time      `json:"createdAt,omitempty"`
	UserLanguage    Language        `json:"userLanguage"`
	EvidenceFiles   []EvidenceItem  `json:"evidenceFiles"`
	UserNotes       string          `json:"userNotes"`
	ExtractedData   *ExtractedFacts `json:"extractedData,omitempty"`
	PolicyAnalysis  *PolicyAnalysis `json:"policyAnalysis,omitempty"`
	GeneratedLetter string          `json:"generatedLetter,omitempty"`
}

// ResumeStep returns the furthest completed wizard step implied by which
// optional fields are present on the case.
func (c *Case) ResumeStep() WizardStep {
	switch {
	case c.GeneratedLetter != "":
		return StepLetterReady
	case c.PolicyAnalysis != nil:
		return StepReviewAnalysis
	default:
		return StepUploadEvidence
	}
}

// ResumeStatuses back-fills stage indicators for a loaded case.
func (c *Case) ResumeStatuses() StageStatuses {
	statuses := NewStageStatuses()
	if c.ExtractedData != nil {
		statuses.Extraction = StageDone
	}
	if c.PolicyAnalysis != nil {
		statuses.Analysis = StageDone
	}
	if c.GeneratedLetter != "" {
		statuses.Drafting = StageDone
	}
	return statuses
}
