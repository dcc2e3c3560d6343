package dto

import (
	"time"

	"github.com/spec-kit/refund-claim-service/internal/domain"
	"github.com/spec-kit/refund-claim-service/internal/service"
)

// CreateCaseRequest starts a new refund case.
type CreateCaseRequest struct {
	Language string `json:"language"`
	// TemplateID seeds the case from a saved template when set.
	TemplateID string `json:"templateId,omitempty"`
}

// AddFilesRequest uploads a batch of evidence files.
type AddFilesRequest struct {
	Files []EvidenceFilePayload `json:"files"`
}

// EvidenceFilePayload is one base64-encoded upload.
type EvidenceFilePayload struct {
	DisplayName string `json:"displayName"`
	MIMEType    string `json:"mimeType"`
	Base64Data  string `json:"base64Data"`
}

// AddLinkRequest registers a URL as evidence.
type AddLinkRequest struct {
	URL string `json:"url"`
}

// UpdateNotesRequest replaces the case notes.
type UpdateNotesRequest struct {
	Notes string `json:"notes"`
}

// ApplyNoteTemplateRequest appends a pre-written note starter.
type ApplyNoteTemplateRequest struct {
	Kind string `json:"kind"`
}

// SetLanguageRequest switches the drafting language.
type SetLanguageRequest struct {
	Language string `json:"language"`
}

// StartProcessingRequest kicks off the extraction and analysis stages.
type StartProcessingRequest struct {
	UseSearch bool `json:"useSearch"`
}

// UpdateFactsRequest carries manual corrections; absent fields are left
// untouched.
type UpdateFactsRequest struct {
	MerchantName     *string `json:"merchantName,omitempty"`
	MerchantEmail    *string `json:"merchantEmail,omitempty"`
	TransactionDate  *string `json:"transactionDate,omitempty"`
	Amount           *string `json:"amount,omitempty"`
	Currency         *string `json:"currency,omitempty"`
	BookingReference *string `json:"bookingReference,omitempty"`
	IssueDescription *string `json:"issueDescription,omitempty"`
}

// EvidenceItemView is the client's view of one evidence item; payload bytes
// are omitted.
type EvidenceItemView struct {
	ID             string `json:"id"`
	Kind           string `json:"kind"`
	DisplayName    string `json:"displayName"`
	MIMEType       string `json:"mimeType"`
	LinkURL        string `json:"linkUrl,omitempty"`
	UploadStatus   string `json:"uploadStatus"`
	UploadProgress int    `json:"uploadProgress"`
}

// CaseView is the full wizard state returned by case endpoints.
type CaseView struct {
	ID              string                  `json:"id"`
	Step            string                  `json:"step"`
	Statuses        domain.StageStatuses    `json:"stageStatuses"`
	Language        string                  `json:"userLanguage"`
	CreatedAt       *time.Time              `json:"createdAt,omitempty"`
	EvidenceFiles   []EvidenceItemView      `json:"evidenceFiles"`
	UserNotes       string                  `json:"userNotes"`
	ExtractedData   *domain.ExtractedFacts  `json:"extractedData,omitempty"`
	PolicyAnalysis  *domain.PolicyAnalysis  `json:"policyAnalysis,omitempty"`
	GeneratedLetter string                  `json:"generatedLetter,omitempty"`
	SkippedFiles    []string                `json:"skippedFiles,omitempty"`
}

// CaseSummary is one row of the case history list.
type CaseSummary struct {
	ID           string     `json:"id"`
	CreatedAt    *time.Time `json:"createdAt,omitempty"`
	MerchantName string     `json:"merchantName,omitempty"`
	Amount       string     `json:"amount,omitempty"`
	Currency     string     `json:"currency,omitempty"`
	HasLetter    bool       `json:"hasLetter"`
}

// NewCaseView maps an orchestrator snapshot to the transport shape.
func NewCaseView(snapshot *service.CaseSnapshot) CaseView {
	c := snapshot.Case
	items := make([]EvidenceItemView, 0, len(c.EvidenceFiles))
	for _, item := range c.EvidenceFiles {
		items = append(items, EvidenceItemView{
			ID:             item.ID,
			Kind:           string(item.Kind),
			DisplayName:    item.DisplayName,
			MIMEType:       item.MIMEType,
			LinkURL:        item.LinkURL,
			UploadStatus:   string(item.UploadStatus),
			UploadProgress: item.UploadProgress,
		})
	}
	return CaseView{
		ID:              c.ID,
		Step:            string(snapshot.Step),
		Statuses:        snapshot.Statuses,
		Language:        string(c.UserLanguage),
		CreatedAt:       c.CreatedAt,
		EvidenceFiles:   items,
		UserNotes:       c.UserNotes,
		ExtractedData:   c.ExtractedData,
		PolicyAnalysis:  c.PolicyAnalysis,
		GeneratedLetter: c.GeneratedLetter,
	}
}

// NewCaseSummary maps a persisted case to its history row.
func NewCaseSummary(c *domain.Case) CaseSummary {
	summary := CaseSummary{
		ID:        c.ID,
		CreatedAt: c.CreatedAt,
		HasLetter: c.GeneratedLetter != "",
	}
	if c.ExtractedData != nil {
		summary.MerchantName = c.ExtractedData.MerchantName
		summary.Amount = c.ExtractedData.Amount
		summary.Currency = c.ExtractedData.Currency
	}
	return summary
}
