package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/refund-claim-service/internal/domain"
	"github.com/spec-kit/refund-claim-service/internal/repository"
	apperrors "github.com/spec-kit/refund-claim-service/pkg/util"
)

// TemplateService manages reusable claim templates saved from reviewed
// cases.
type TemplateService struct {
	templates repository.TemplateRepository
	logger    *zap.Logger
}

func NewTemplateService(templates repository.TemplateRepository, logger *zap.Logger) *TemplateService {
	return &TemplateService{templates: templates, logger: logger}
}

// SaveFromCase snapshots the case's reviewed facts as a named template.
func (s *TemplateService) SaveFromCase(ctx context.Context, ownerID, name string, c *domain.Case) (*domain.Template, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewValidationError("template name required", nil)
	}
	if c.ExtractedData == nil {
		return nil, apperrors.NewValidationError("case has no extracted data to save", nil)
	}
	if c.OwnerID != ownerID {
		return nil, apperrors.NewForbidden("case belongs to another user")
	}

	t := &domain.Template{
		ID:      uuid.NewString(),
		OwnerID: ownerID,
		Name:    name,
		Data: domain.TemplateData{
			MerchantName:     c.ExtractedData.MerchantName,
			MerchantEmail:    c.ExtractedData.MerchantEmail,
			IssueDescription: c.ExtractedData.IssueDescription,
			UserNotes:        c.UserNotes,
			Currency:         c.ExtractedData.Currency,
		},
	}
	if err := s.templates.Put(ctx, t); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	s.logger.Info("template saved", zap.String("template_id", t.ID), zap.String("owner_id", ownerID))
	return t, nil
}

// List returns the owner's templates, most recent first.
func (s *TemplateService) List(ctx context.Context, ownerID string) ([]domain.Template, error) {
	return s.templates.ListByOwner(ctx, ownerID)
}

// Get returns one template, enforcing ownership.
func (s *TemplateService) Get(ctx context.Context, ownerID, templateID string) (*domain.Template, error) {
	t, err := s.templates.GetByID(ctx, templateID)
	if err != nil {
		return nil, apperrors.NewNotFound("template", map[string]any{"id": templateID})
	}
	if t.OwnerID != ownerID {
		return nil, apperrors.NewForbidden("template belongs to another user")
	}
	return t, nil
}

// Delete removes a template the owner no longer needs.
func (s *TemplateService) Delete(ctx context.Context, ownerID, templateID string) error {
	if _, err := s.Get(ctx, ownerID, templateID); err != nil {
		return err
	}
	if err := s.templates.Delete(ctx, templateID); err != nil {
		return apperrors.NewInternalError(err)
	}
	return nil
}
