package domain

import "time"

// TemplateData is the subset of case data a template seeds into a new case.
type TemplateData struct {
	MerchantName     string `json:"merchantName,omitempty"`
	MerchantEmail    string `json:"merchantEmail,omitempty"`
	IssueDescription string `json:"issueDescription,omitempty"`
	UserNotes        string `json:"userNotes,omitempty"`
	Currency         string `json:"currency,omitempty"`
}

// Template is a reusable seed for new cases, created explicitly by the user
// from a case's extracted facts. Templates are never mutated.
type Template struct {
	ID        string       `json:"id"`
	OwnerID   string       `json:"ownerId"`
	Name      string       `json:"name"`
	CreatedAt time.Time    `json:"createdAt"`
	Data      TemplateData `json:"data"`
}
