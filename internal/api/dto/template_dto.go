package dto

import (
	"time"

	"github.com/spec-kit/refund-claim-service/internal/domain"
)

// SaveTemplateRequest snapshots a reviewed case as a reusable template.
type SaveTemplateRequest struct {
	Name   string `json:"name"`
	CaseID string `json:"caseId"`
}

// TemplateView is the client's view of a saved template.
type TemplateView struct {
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	CreatedAt time.Time           `json:"createdAt"`
	Data      domain.TemplateData `json:"data"`
}

// NewTemplateView maps a template to the transport shape.
func NewTemplateView(t *domain.Template) TemplateView {
	return TemplateView{
		ID:        t.ID,
		Name:      t.Name,
		CreatedAt: t.CreatedAt,
		Data:      t.Data,
	}
}
