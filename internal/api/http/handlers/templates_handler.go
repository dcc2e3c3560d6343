package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/refund-claim-service/internal/api/dto"
	"github.com/spec-kit/refund-claim-service/internal/auth"
	"github.com/spec-kit/refund-claim-service/internal/service"
	apperrors "github.com/spec-kit/refund-claim-service/pkg/util"
)

// TemplatesHandler manages reusable claim templates.
type TemplatesHandler struct {
	templates *service.TemplateService
	cases     *service.CaseService
}

// NewTemplatesHandler constructs handler.
func NewTemplatesHandler(templateService *service.TemplateService, caseService *service.CaseService) *TemplatesHandler {
	return &TemplatesHandler{templates: templateService, cases: caseService}
}

// SaveTemplate POST /templates.
func (h *TemplatesHandler) SaveTemplate(c *fiber.Ctx) error {
	userID := auth.UserID(c)
	if userID == "" {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.SaveTemplateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.CaseID == "" {
		return apperrors.NewValidationError("caseId required", nil)
	}

	snapshot, err := h.cases.GetCase(c.Context(), userID, req.CaseID)
	if err != nil {
		return err
	}
	template, err := h.templates.SaveFromCase(c.Context(), userID, req.Name, &snapshot.Case)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTemplateView(template)})
}

// ListTemplates GET /templates.
func (h *TemplatesHandler) ListTemplates(c *fiber.Ctx) error {
	userID := auth.UserID(c)
	if userID == "" {
		return apperrors.NewUnauthorized("user required")
	}
	templates, err := h.templates.List(c.Context(), userID)
	if err != nil {
		return err
	}
	items := make([]dto.TemplateView, 0, len(templates))
	for i := range templates {
		items = append(items, dto.NewTemplateView(&templates[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// DeleteTemplate DELETE /templates/:id.
func (h *TemplatesHandler) DeleteTemplate(c *fiber.Ctx) error {
	userID := auth.UserID(c)
	if userID == "" {
		return apperrors.NewUnauthorized("user required")
	}
	if err := h.templates.Delete(c.Context(), userID, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
