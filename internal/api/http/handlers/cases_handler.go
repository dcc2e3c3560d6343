package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/refund-claim-service/internal/api/dto"
	"github.com/spec-kit/refund-claim-service/internal/auth"
	"github.com/spec-kit/refund-claim-service/internal/domain"
	"github.com/spec-kit/refund-claim-service/internal/service"
	apperrors "github.com/spec-kit/refund-claim-service/pkg/util"
)

// CasesHandler manages the refund-case wizard endpoints.
type CasesHandler struct {
	cases     *service.CaseService
	templates *service.TemplateService
}

// NewCasesHandler constructs handler.
func NewCasesHandler(caseService *service.CaseService, templateService *service.TemplateService) *CasesHandler {
	return &CasesHandler{cases: caseService, templates: templateService}
}

// CreateCase POST /cases.
func (h *CasesHandler) CreateCase(c *fiber.Ctx) error {
	userID := auth.UserID(c)
	if userID == "" {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.CreateCaseRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	var (
		snapshot *service.CaseSnapshot
		err      error
	)
	if req.TemplateID != "" {
		template, tErr := h.templates.Get(c.Context(), userID, req.TemplateID)
		if tErr != nil {
			return tErr
		}
		snapshot, err = h.cases.CreateCaseFromTemplate(c.Context(), userID, template, domain.Language(req.Language))
	} else {
		snapshot, err = h.cases.CreateCase(c.Context(), userID, domain.Language(req.Language))
	}
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewCaseView(snapshot)})
}

// ListCases GET /cases.
func (h *CasesHandler) ListCases(c *fiber.Ctx) error {
	userID := auth.UserID(c)
	if userID == "" {
		return apperrors.NewUnauthorized("user required")
	}
	cases, err := h.cases.ListCases(c.Context(), userID)
	if err != nil {
		return err
	}
	items := make([]dto.CaseSummary, 0, len(cases))
	for i := range cases {
		items = append(items, dto.NewCaseSummary(&cases[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetCase GET /cases/:id.
func (h *CasesHandler) GetCase(c *fiber.Ctx) error {
	userID := auth.UserID(c)
	if userID == "" {
		return apperrors.NewUnauthorized("user required")
	}
	snapshot, err := h.cases.GetCase(c.Context(), userID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCaseView(snapshot)})
}

// DeleteCase DELETE /cases/:id.
func (h *CasesHandler) DeleteCase(c *fiber.Ctx) error {
	userID := auth.UserID(c)
	if userID == "" {
		return apperrors.NewUnauthorized("user required")
	}
	if err := h.cases.DeleteCase(c.Context(), userID, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// AddFiles POST /cases/:id/evidence/files.
func (h *CasesHandler) AddFiles(c *fiber.Ctx) error {
	userID := auth.UserID(c)
	if userID == "" {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.AddFilesRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	files := make([]service.EvidenceFileInput, 0, len(req.Files))
	for _, f := range req.Files {
		files = append(files, service.EvidenceFileInput{
			DisplayName: f.DisplayName,
			MIMEType:    f.MIMEType,
			Base64Data:  f.Base64Data,
		})
	}
	snapshot, skipped, err := h.cases.AddEvidenceFiles(c.Context(), userID, c.Params("id"), files)
	if err != nil {
		return err
	}
	view := dto.NewCaseView(snapshot)
	view.SkippedFiles = skipped
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": view})
}

// AddLink POST /cases/:id/evidence/links.
func (h *CasesHandler) AddLink(c *fiber.Ctx) error {
	userID := auth.UserID(c)
	if userID == "" {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.AddLinkRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	snapshot, err := h.cases.AddEvidenceLink(c.Context(), userID, c.Params("id"), req.URL)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewCaseView(snapshot)})
}

// RemoveEvidence DELETE /cases/:id/evidence/:itemId.
func (h *CasesHandler) RemoveEvidence(c *fiber.Ctx) error {
	userID := auth.UserID(c)
	if userID == "" {
		return apperrors.NewUnauthorized("user required")
	}
	snapshot, err := h.cases.RemoveEvidence(c.Context(), userID, c.Params("id"), c.Params("itemId"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCaseView(snapshot)})
}

// UpdateNotes PUT /cases/:id/notes.
func (h *CasesHandler) UpdateNotes(c *fiber.Ctx) error {
	userID := auth.UserID(c)
	if userID == "" {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.UpdateNotesRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	snapshot, err := h.cases.UpdateNotes(c.Context(), userID, c.Params("id"), req.Notes)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCaseView(snapshot)})
}

// ApplyNoteTemplate POST /cases/:id/notes/template.
func (h *CasesHandler) ApplyNoteTemplate(c *fiber.Ctx) error {
	userID := auth.UserID(c)
	if userID == "" {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.ApplyNoteTemplateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	snapshot, err := h.cases.GetCase(c.Context(), userID, c.Params("id"))
	if err != nil {
		return err
	}
	snapshot, err = h.cases.ApplyNoteTemplate(c.Context(), userID, c.Params("id"), snapshot.Case.UserLanguage, service.NoteTemplateKind(req.Kind))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCaseView(snapshot)})
}

// SetLanguage PUT /cases/:id/language.
func (h *CasesHandler) SetLanguage(c *fiber.Ctx) error {
	userID := auth.UserID(c)
	if userID == "" {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.SetLanguageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	snapshot, err := h.cases.SetLanguage(c.Context(), userID, c.Params("id"), domain.Language(req.Language))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCaseView(snapshot)})
}

// UpdateFacts PATCH /cases/:id/facts.
func (h *CasesHandler) UpdateFacts(c *fiber.Ctx) error {
	userID := auth.UserID(c)
	if userID == "" {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.UpdateFactsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	snapshot, err := h.cases.UpdateFacts(c.Context(), userID, c.Params("id"), service.FactsPatch{
		MerchantName:     req.MerchantName,
		MerchantEmail:    req.MerchantEmail,
		TransactionDate:  req.TransactionDate,
		Amount:           req.Amount,
		Currency:         req.Currency,
		BookingReference: req.BookingReference,
		IssueDescription: req.IssueDescription,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCaseView(snapshot)})
}

// StartProcessing POST /cases/:id/process.
func (h *CasesHandler) StartProcessing(c *fiber.Ctx) error {
	userID := auth.UserID(c)
	if userID == "" {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.StartProcessingRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	snapshot, err := h.cases.StartProcessing(c.Context(), userID, c.Params("id"), req.UseSearch)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCaseView(snapshot)})
}

// RefreshAnalysis POST /cases/:id/analysis/refresh.
func (h *CasesHandler) RefreshAnalysis(c *fiber.Ctx) error {
	userID := auth.UserID(c)
	if userID == "" {
		return apperrors.NewUnauthorized("user required")
	}
	snapshot, err := h.cases.RefreshAnalysis(c.Context(), userID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCaseView(snapshot)})
}

// GenerateLetter POST /cases/:id/letter.
func (h *CasesHandler) GenerateLetter(c *fiber.Ctx) error {
	userID := auth.UserID(c)
	if userID == "" {
		return apperrors.NewUnauthorized("user required")
	}
	snapshot, err := h.cases.GenerateLetter(c.Context(), userID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCaseView(snapshot)})
}
